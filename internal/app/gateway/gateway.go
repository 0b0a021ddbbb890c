package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Overland-East-Bay/trip-safety-client/internal/platform/logger"
	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/notifier"
)

const (
	headerRequestID = "X-Request-Id"

	msgNetworkFailure = "Network error. Please check your connection."
	msgSessionExpired = "Session expired. Please log in again."
	msgSignInRequired = "Please log in to continue."
)

// CredentialSource yields the credential to send and purges it on rejection.
type CredentialSource interface {
	Credential(ctx context.Context) (string, bool)
	Clear(ctx context.Context) error
}

// AuthHandler reacts to authentication outcomes observed by the gateway.
// The auth flow implements it; the gateway never redirects on its own.
type AuthHandler interface {
	// RequireLogin is called when a request was aborted for lack of a credential.
	RequireLogin(ctx context.Context)
	// Expire is called after the server rejected the credential.
	Expire(ctx context.Context)
}

type Request struct {
	Method string
	// Path is relative to the base URL and may carry a query string.
	Path   string
	Body   any
	Header http.Header
}

type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

func (r *Response) OK() bool { return r.Status >= 200 && r.Status < 300 }

// Decode unmarshals the body into v. An empty body leaves v untouched.
func (r *Response) Decode(v any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Auth       Authenticator
	Notifier   notifier.Notifier
	Logger     *slog.Logger
	Metrics    *Metrics
}

// Gateway is the single path from feature calls to the remote API.
type Gateway struct {
	baseURL string
	http    *http.Client
	auth    Authenticator
	creds   CredentialSource
	notify  notifier.Notifier
	log     *slog.Logger
	metrics *Metrics

	mu      sync.RWMutex
	handler AuthHandler
}

func New(creds CredentialSource, opts Options) *Gateway {
	g := &Gateway{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    opts.HTTPClient,
		auth:    opts.Auth,
		creds:   creds,
		notify:  opts.Notifier,
		log:     opts.Logger,
		metrics: opts.Metrics,
	}
	if g.http == nil {
		g.http = &http.Client{Timeout: 15 * time.Second}
	}
	if g.auth == nil {
		g.auth = BearerAuth{}
	}
	if g.log == nil {
		g.log = logger.Discard()
	}
	return g
}

// SetAuthHandler installs the handler for missing and rejected credentials.
// It is set once during composition, after the auth flow exists.
func (g *Gateway) SetAuthHandler(h AuthHandler) {
	g.mu.Lock()
	g.handler = h
	g.mu.Unlock()
}

func (g *Gateway) authHandler() AuthHandler {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.handler
}

// Send issues an authenticated request with the stored credential.
//
// Without a credential nothing is sent and ErrAuthMissing is returned. A 401
// purges the session, triggers the expiry transition and returns
// ErrAuthRejected. Transport failures are reported to the user and returned
// as *NetworkError. Every other response is returned as-is.
func (g *Gateway) Send(ctx context.Context, req Request) (*Response, error) {
	cred, ok := g.creds.Credential(ctx)
	if !ok {
		g.metrics.count(req.Method, outcomeAborted)
		g.log.InfoContext(ctx, "request aborted: no credential",
			slog.String("method", req.Method),
			slog.String("path", req.Path),
		)
		if h := g.authHandler(); h != nil {
			h.RequireLogin(ctx)
		} else {
			g.report(ctx, notifier.LevelWarning, msgSignInRequired)
		}
		return nil, ErrAuthMissing
	}

	resp, err := g.roundTrip(ctx, req, cred)
	if err != nil {
		return nil, err
	}
	if resp.Status == http.StatusUnauthorized {
		g.reject(ctx)
		return nil, ErrAuthRejected
	}
	return resp, nil
}

// SendWithCredential sends with an explicit credential and does not react to
// a 401: the caller owns the outcome. Used for the OAuth profile exchange,
// where the credential is not yet the session's.
func (g *Gateway) SendWithCredential(ctx context.Context, req Request, credential string) (*Response, error) {
	return g.roundTrip(ctx, req, credential)
}

// SendAnonymous sends without any credential (login).
func (g *Gateway) SendAnonymous(ctx context.Context, req Request) (*Response, error) {
	return g.roundTrip(ctx, req, "")
}

// Do is Send followed by interpretation: 2xx bodies decode into out (when
// non-nil) and any other status becomes an *APIError.
func (g *Gateway) Do(ctx context.Context, req Request, out any) error {
	resp, err := g.Send(ctx, req)
	if err != nil {
		return err
	}
	return Interpret(resp, out)
}

// Interpret decodes a 2xx body into out, or returns the *APIError for the response.
func Interpret(resp *Response, out any) error {
	if !resp.OK() {
		return ErrorFromResponse(resp)
	}
	if out == nil {
		return nil
	}
	return resp.Decode(out)
}

func (g *Gateway) reject(ctx context.Context) {
	if h := g.authHandler(); h != nil {
		h.Expire(ctx)
		return
	}
	if err := g.creds.Clear(ctx); err != nil {
		g.log.WarnContext(ctx, "session purge failed", slog.String("error", err.Error()))
	}
	g.report(ctx, notifier.LevelWarning, msgSessionExpired)
}

func (g *Gateway) roundTrip(ctx context.Context, req Request, credential string) (*Response, error) {
	id := uuid.NewString()
	ctx = logger.WithRequestID(ctx, id)
	log := logger.WithContext(ctx, g.log)

	var body io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", req.Method, req.Path, err)
		}
		body = bytes.NewReader(b)
	}

	hreq, err := http.NewRequestWithContext(ctx, req.Method, g.baseURL+req.Path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", req.Method, req.Path, err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("Accept", "application/json")
	hreq.Header.Set(headerRequestID, id)
	if credential != "" {
		g.auth.Apply(hreq, credential)
	}

	start := time.Now()
	hresp, err := g.http.Do(hreq)
	if err != nil {
		g.metrics.count(req.Method, outcomeNetwork)
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return nil, ctx.Err()
		}
		log.WarnContext(ctx, "request failed",
			slog.String("method", req.Method),
			slog.String("path", req.Path),
			slog.String("error", err.Error()),
		)
		g.report(ctx, notifier.LevelError, msgNetworkFailure)
		return nil, &NetworkError{Method: req.Method, Path: req.Path, Err: err}
	}
	defer hresp.Body.Close()

	b, err := io.ReadAll(hresp.Body)
	g.metrics.observe(req.Method, time.Since(start))
	if err != nil {
		g.metrics.count(req.Method, outcomeNetwork)
		g.report(ctx, notifier.LevelError, msgNetworkFailure)
		return nil, &NetworkError{Method: req.Method, Path: req.Path, Err: err}
	}

	outcome := outcomeFor(hresp.StatusCode)
	if hresp.StatusCode == http.StatusUnauthorized {
		outcome = outcomeRejected
	}
	g.metrics.count(req.Method, outcome)
	log.DebugContext(ctx, "request completed",
		slog.String("method", req.Method),
		slog.String("path", req.Path),
		slog.Int("status", hresp.StatusCode),
		slog.Duration("elapsed", time.Since(start)),
	)

	return &Response{Status: hresp.StatusCode, Header: hresp.Header, Body: b}, nil
}

func (g *Gateway) report(ctx context.Context, level notifier.Level, msg string) {
	if g.notify != nil {
		g.notify.Notify(ctx, level, msg)
	}
}
