package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrAuthMissing means no credential was available, so nothing was sent.
	// The caller must treat the operation as aborted with no server-side effect.
	ErrAuthMissing = errors.New("not signed in")

	// ErrAuthRejected means the server refused the credential. The session has
	// already been purged by the time the caller sees this error.
	ErrAuthRejected = errors.New("session expired")
)

// NetworkError is a transport-level failure (unreachable host, timeout, reset).
// It is never retried by the gateway.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: network error: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError is a non-2xx answer other than an auth rejection: the server
// processed the request and refused it (validation, not found, conflict...).
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return http.StatusText(e.Status)
}

// errorBody accepts the error layouts the API is known to emit:
//
//	{"message": "..."}
//	{"error": "..."}
//	{"error": {"code": "...", "message": "..."}}
type errorBody struct {
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Error   json.RawMessage `json:"error"`
}

// ErrorFromResponse builds an *APIError from a non-2xx response.
func ErrorFromResponse(r *Response) *APIError {
	out := &APIError{Status: r.Status}

	var body errorBody
	if err := json.Unmarshal(r.Body, &body); err != nil {
		if txt := strings.TrimSpace(string(r.Body)); txt != "" && len(txt) <= 200 {
			out.Message = txt
		}
		return out
	}
	out.Message, out.Code = body.Message, body.Code

	raw := bytes.TrimSpace(body.Error)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
	case raw[0] == '"':
		var s string
		if json.Unmarshal(raw, &s) == nil && out.Message == "" {
			out.Message = s
		}
	case raw[0] == '{':
		var nested struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &nested) == nil {
			if out.Message == "" {
				out.Message = nested.Message
			}
			if out.Code == "" {
				out.Code = nested.Code
			}
		}
	}
	return out
}

// IsReported reports whether err was already shown to the user by the gateway,
// so feature calls do not notify twice.
func IsReported(err error) bool {
	var ne *NetworkError
	return errors.Is(err, ErrAuthMissing) || errors.Is(err, ErrAuthRejected) || errors.As(err, &ne)
}

// UserMessage returns the text to show the user for a failed feature call.
// ok is false when the gateway already reported err and nothing more should be shown.
func UserMessage(err error, action string) (msg string, ok bool) {
	if IsReported(err) {
		return "", false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Error() != "" {
		return action + ": " + apiErr.Error(), true
	}
	return action, true
}
