package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Overland-East-Bay/trip-safety-client/internal/app/gateway"
	"github.com/Overland-East-Bay/trip-safety-client/internal/app/session"
	"github.com/Overland-East-Bay/trip-safety-client/internal/domain"
)

// ErrNoCredentialIssued is returned when a login succeeded without a credential in the answer.
var ErrNoCredentialIssued = errors.New("login response carried no credential")

// RemoteAPI is the subset of the remote API the auth flow drives.
type RemoteAPI interface {
	FetchProfile(ctx context.Context, credential string) (domain.Profile, error)
	Login(ctx context.Context, email, password string) (domain.Session, error)
	Logout(ctx context.Context, credential string) error
}

// Sender is the gateway surface used by Remote.
type Sender interface {
	SendWithCredential(ctx context.Context, req gateway.Request, credential string) (*gateway.Response, error)
	SendAnonymous(ctx context.Context, req gateway.Request) (*gateway.Response, error)
}

// Remote implements RemoteAPI over the gateway. None of its calls trigger the
// gateway's 401 handling: the flow decides what a rejection means.
type Remote struct {
	gw Sender
}

func NewRemote(gw Sender) *Remote {
	return &Remote{gw: gw}
}

func (r *Remote) FetchProfile(ctx context.Context, credential string) (domain.Profile, error) {
	resp, err := r.gw.SendWithCredential(ctx, gateway.Request{Method: http.MethodGet, Path: "/auth/profile"}, credential)
	if err != nil {
		return domain.Profile{}, err
	}
	if !resp.OK() {
		return domain.Profile{}, gateway.ErrorFromResponse(resp)
	}
	p, err := session.DecodeProfile(resp.Body)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	return p, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login accepts the nested {token,user} answer as well as the flat one.
func (r *Remote) Login(ctx context.Context, email, password string) (domain.Session, error) {
	resp, err := r.gw.SendAnonymous(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body:   loginRequest{Email: email, Password: password},
	})
	if err != nil {
		return domain.Session{}, err
	}
	if !resp.OK() {
		return domain.Session{}, gateway.ErrorFromResponse(resp)
	}
	sess, err := session.DecodeRecord(resp.Body)
	if err != nil {
		return domain.Session{}, fmt.Errorf("decode login response: %w", err)
	}
	if !sess.Authenticated() {
		return domain.Session{}, ErrNoCredentialIssued
	}
	return sess, nil
}

func (r *Remote) Logout(ctx context.Context, credential string) error {
	resp, err := r.gw.SendWithCredential(ctx, gateway.Request{Method: http.MethodPost, Path: "/auth/logout"}, credential)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return gateway.ErrorFromResponse(resp)
	}
	return nil
}
