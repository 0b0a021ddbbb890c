package devapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	memclock "github.com/Overland-East-Bay/trip-safety-client/internal/adapters/memory/clock"
)

func newTestRouter(t *testing.T, opts Options) (http.Handler, *Server, *memclock.ManualClock) {
	t.Helper()
	clk := memclock.NewManualClock(time.Date(2026, 7, 4, 12, 0, 0, 0, time.UTC))
	opts.Clock = clk
	opts.Secret = []byte("test-secret")
	s := NewServer(opts)
	if _, err := s.AddUser(User{ID: "u1", Name: "Ada", Email: "Ada@Example.org", Username: "ada"}, "correct-horse"); err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	return NewRouter(s), s, clk
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func login(t *testing.T, h http.Handler) string {
	t.Helper()
	rr := do(t, h, http.MethodPost, "/auth/login", "", map[string]string{"email": "ada@example.org", "password": "correct-horse"})
	if rr.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rr.Code, rr.Body.String())
	}
	var out struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"_id"`
		} `json:"user"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil || out.Token == "" || out.User.ID != "u1" {
		t.Fatalf("login body: %s", rr.Body.String())
	}
	return out.Token
}

func TestRouter_Healthz_NoAuth(t *testing.T) {
	t.Parallel()

	h, _, _ := newTestRouter(t, Options{})
	rr := do(t, h, http.MethodGet, "/healthz", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestRouter_MissingCredentials_401WithRequestID(t *testing.T) {
	t.Parallel()

	h, _, _ := newTestRouter(t, Options{})
	rr := do(t, h, http.MethodGet, "/trips", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	var er errorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if er.Error.Code != "UNAUTHORIZED" || !er.Error.RequestID.IsSpecified() {
		t.Fatalf("unexpected error body: %s", rr.Body.String())
	}
}

func TestRouter_LoginWrongPassword(t *testing.T) {
	t.Parallel()

	h, _, _ := newTestRouter(t, Options{})
	rr := do(t, h, http.MethodPost, "/auth/login", "", map[string]string{"email": "ada@example.org", "password": "nope"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestRouter_CookieTransport(t *testing.T) {
	t.Parallel()

	h, _, _ := newTestRouter(t, Options{CookieName: "sid"})
	tok := login(t, h)

	req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: tok})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 via cookie, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestRouter_TripLifecycle(t *testing.T) {
	t.Parallel()

	h, s, _ := newTestRouter(t, Options{WrapTripList: true})
	tok := login(t, h)

	rr := do(t, h, http.MethodPost, "/trips", tok, map[string]any{
		"name":        "Ridge",
		"destination": "Mt Diablo",
		"startDate":   "2026-07-04T08:00:00Z",
		"endDate":     "2026-07-03T08:00:00Z",
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for inverted dates, got %d", rr.Code)
	}

	rr = do(t, h, http.MethodPost, "/trips", tok, map[string]any{
		"name":        "Ridge",
		"destination": "Mt Diablo",
		"startDate":   "2026-07-04T08:00:00Z",
		"endDate":     "2026-07-05T08:00:00Z",
		"contacts":    []map[string]string{{"name": "Sam", "phone": "+15550100"}},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rr.Code, rr.Body.String())
	}
	var created struct {
		Trip Trip `json:"trip"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &created)
	id := created.Trip.ID

	rr = do(t, h, http.MethodGet, "/trips", tok, nil)
	var listed struct {
		Trips []Trip `json:"trips"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &listed); err != nil || len(listed.Trips) != 1 {
		t.Fatalf("expected wrapped list of 1, got %s", rr.Body.String())
	}

	rr = do(t, h, http.MethodPut, "/trips/"+id+"/safe", tok, map[string]any{"location": nil, "timestamp": "2026-07-04T12:00:00Z"})
	if rr.Code != http.StatusOK || len(s.CheckIns()) != 1 || s.CheckIns()[0].Location != nil {
		t.Fatalf("check-in: %d %+v", rr.Code, s.CheckIns())
	}

	cid := created.Trip.Contacts[0].ID
	rr = do(t, h, http.MethodDelete, "/trips/"+id+"/contacts/"+cid, tok, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("remove contact: %d", rr.Code)
	}

	rr = do(t, h, http.MethodPut, "/trips/"+id+"/end", tok, nil)
	var ended struct {
		Trip Trip `json:"trip"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &ended)
	if ended.Trip.Status != statusCompleted || len(ended.Trip.Contacts) != 0 {
		t.Fatalf("unexpected ended trip %+v", ended.Trip)
	}
}

func TestRouter_LogoutRevokesToken(t *testing.T) {
	t.Parallel()

	h, _, _ := newTestRouter(t, Options{})
	tok := login(t, h)

	if rr := do(t, h, http.MethodPost, "/auth/logout", tok, nil); rr.Code != http.StatusOK {
		t.Fatalf("logout: %d", rr.Code)
	}
	if rr := do(t, h, http.MethodGet, "/auth/profile", tok, nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected revoked token rejected, got %d", rr.Code)
	}
}

func TestRouter_ExpiredToken(t *testing.T) {
	t.Parallel()

	h, _, clk := newTestRouter(t, Options{TokenTTL: time.Hour})
	tok := login(t, h)
	clk.Advance(2 * time.Hour)

	if rr := do(t, h, http.MethodGet, "/auth/profile", tok, nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected expired token rejected, got %d", rr.Code)
	}
}

func TestRouter_OAuthAuthorizeRedirectsWithToken(t *testing.T) {
	t.Parallel()

	h, _, _ := newTestRouter(t, Options{})
	rr := do(t, h, http.MethodGet, "/oauth/authorize?email=ada@example.org&redirect_uri=http://127.0.0.1:8765/callback", "", nil)
	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d %s", rr.Code, rr.Body.String())
	}
	loc, err := url.Parse(rr.Header().Get("Location"))
	if err != nil || loc.Host != "127.0.0.1:8765" {
		t.Fatalf("unexpected redirect %q", rr.Header().Get("Location"))
	}
	tok := loc.Query().Get("token")
	if rr := do(t, h, http.MethodGet, "/auth/profile", tok, nil); rr.Code != http.StatusOK {
		t.Fatalf("minted token rejected: %d", rr.Code)
	}

	rr = do(t, h, http.MethodGet, "/oauth/authorize?email=ada@example.org&redirect_uri=https://evil.example/cb", "", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected non-loopback redirect refused, got %d", rr.Code)
	}
}
