package gateway

import (
	"net/http"
	"testing"
)

func TestErrorFromResponse_Layouts(t *testing.T) {
	t.Parallel()

	cases := []struct {
		body        string
		wantCode    string
		wantMessage string
	}{
		{`{"message":"Invalid password"}`, "", "Invalid password"},
		{`{"error":"Trip not found"}`, "", "Trip not found"},
		{`{"error":{"code":"NOT_FOUND","message":"no such trip"}}`, "NOT_FOUND", "no such trip"},
		{`upstream exploded`, "", "upstream exploded"},
		{``, "", ""},
	}
	for _, c := range cases {
		got := ErrorFromResponse(&Response{Status: http.StatusBadRequest, Body: []byte(c.body)})
		if got.Code != c.wantCode || got.Message != c.wantMessage {
			t.Fatalf("%q: got code=%q message=%q", c.body, got.Code, got.Message)
		}
	}

	if msg := (&APIError{Status: http.StatusConflict}).Error(); msg != "Conflict" {
		t.Fatalf("expected status text fallback, got %q", msg)
	}
}
