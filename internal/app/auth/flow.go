package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Overland-East-Bay/trip-safety-client/internal/app/gateway"
	"github.com/Overland-East-Bay/trip-safety-client/internal/domain"
	"github.com/Overland-East-Bay/trip-safety-client/internal/platform/credential"
	"github.com/Overland-East-Bay/trip-safety-client/internal/platform/logger"
	"github.com/Overland-East-Bay/trip-safety-client/internal/platform/validate"
	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/clock"
	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/navigator"
	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/notifier"
	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/scheduler"
)

const (
	DefaultExpiredRedirectDelay      = 1500 * time.Millisecond
	DefaultOAuthFailureRedirectDelay = time.Second

	msgExpired       = "Session expired. Please log in again."
	msgLoginRequired = "Please log in to continue."
	msgOAuthFailed   = "Authentication failed. Please try logging in again."
	msgLoggedOut     = "You have been logged out."
)

// Sessions is the session persistence the flow needs.
type Sessions interface {
	Load(ctx context.Context) (domain.Session, bool)
	Save(ctx context.Context, sess domain.Session) error
	Clear(ctx context.Context) error
	PutPendingToken(ctx context.Context, token string) error
	DeletePendingToken(ctx context.Context) error
}

type Deps struct {
	Sessions  Sessions
	Remote    RemoteAPI
	Notifier  notifier.Notifier
	Navigator navigator.Navigator
	Scheduler scheduler.Scheduler
	Clock     clock.Clock
	Logger    *slog.Logger
}

type Options struct {
	ExpiredRedirectDelay      time.Duration
	OAuthFailureRedirectDelay time.Duration
}

// Flow is the authentication state machine of one client instance.
//
// At most one delayed redirect to login is scheduled per lifecycle: repeated
// rejections or aborted calls while one is pending schedule nothing further.
type Flow struct {
	deps Deps
	opts Options
	log  *slog.Logger

	mu         sync.Mutex
	state      State
	redirected bool
	cancel     func() bool
}

var _ gateway.AuthHandler = (*Flow)(nil)

func NewFlow(deps Deps, opts Options) *Flow {
	if opts.ExpiredRedirectDelay <= 0 {
		opts.ExpiredRedirectDelay = DefaultExpiredRedirectDelay
	}
	if opts.OAuthFailureRedirectDelay <= 0 {
		opts.OAuthFailureRedirectDelay = DefaultOAuthFailureRedirectDelay
	}
	log := deps.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &Flow{deps: deps, opts: opts, log: log}
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

// Restore resolves the state from storage. A JWT credential whose exp has
// passed is expired on the spot; opaque credentials are trusted until the
// server says otherwise.
func (f *Flow) Restore(ctx context.Context) State {
	sess, ok := f.deps.Sessions.Load(ctx)
	if !ok || !sess.Authenticated() {
		f.setState(StateAnonymous)
		return StateAnonymous
	}
	f.setState(StateAuthenticated)
	if credential.Expired(sess.Credential, f.deps.Clock.Now()) {
		f.log.InfoContext(ctx, "stored credential has expired")
		f.Expire(ctx)
	}
	return f.State()
}

// AbsorbCallback consumes a provider credential carried in pageURL's token
// parameter. handled is false when there is nothing to absorb.
func (f *Flow) AbsorbCallback(ctx context.Context, pageURL string) (handled bool, err error) {
	tok, ok := tokenFromURL(pageURL)
	if !ok {
		return false, nil
	}

	f.setState(StatePendingOAuth)
	if err := f.deps.Sessions.PutPendingToken(ctx, tok); err != nil {
		return true, f.failOAuth(ctx, fmt.Errorf("store provisional credential: %w", err))
	}

	profile, err := f.deps.Remote.FetchProfile(ctx, tok)
	if err != nil {
		return true, f.failOAuth(ctx, fmt.Errorf("fetch profile: %w", err))
	}

	if err := f.deps.Sessions.Save(ctx, domain.Session{Credential: tok, Profile: profile}); err != nil {
		return true, f.failOAuth(ctx, fmt.Errorf("save session: %w", err))
	}
	if err := f.deps.Sessions.DeletePendingToken(ctx); err != nil {
		f.log.WarnContext(ctx, "provisional credential not removed", slog.String("error", err.Error()))
	}
	f.navigator().ReplaceURL(ctx, StripParam(pageURL, TokenParam))

	f.signedIn()

	f.log.InfoContext(ctx, "oauth sign-in completed")
	if name := profile.DisplayName(); name != "" {
		f.notify(ctx, notifier.LevelSuccess, "Welcome, "+name+"!")
	} else {
		f.notify(ctx, notifier.LevelSuccess, "Login successful!")
	}
	return true, nil
}

func (f *Flow) failOAuth(ctx context.Context, cause error) error {
	f.log.WarnContext(ctx, "oauth sign-in failed", slog.String("error", cause.Error()))
	if err := f.deps.Sessions.Clear(ctx); err != nil {
		f.log.WarnContext(ctx, "purge after failed oauth sign-in", slog.String("error", err.Error()))
	}
	f.setState(StateAnonymous)
	f.notify(ctx, notifier.LevelError, msgOAuthFailed)
	f.scheduleLogin(ctx, f.opts.OAuthFailureRedirectDelay)
	return cause
}

// Guard gates a protected view. When not authenticated it warns and sends the
// user to login immediately, unless a redirect is already on its way.
func (f *Flow) Guard(ctx context.Context) bool {
	f.mu.Lock()
	st, pending := f.state, f.redirected
	if st != StateAuthenticated && !pending {
		f.redirected = true
	}
	f.mu.Unlock()

	if st == StateAuthenticated {
		return true
	}
	if !pending {
		f.notify(ctx, notifier.LevelWarning, msgLoginRequired)
		f.navigator().Redirect(ctx, navigator.ViewLogin)
	}
	return false
}

// RequireLogin handles a call aborted for lack of a credential.
func (f *Flow) RequireLogin(ctx context.Context) {
	if f.scheduleLogin(ctx, f.opts.ExpiredRedirectDelay) {
		f.notify(ctx, notifier.LevelWarning, msgLoginRequired)
	}
}

// Expire moves an authenticated client to Expired: the session is purged,
// the user warned, and one delayed redirect to login scheduled. It is a no-op
// when already expired.
func (f *Flow) Expire(ctx context.Context) {
	f.mu.Lock()
	if f.state == StateExpired {
		f.mu.Unlock()
		return
	}
	f.state = StateExpired
	f.mu.Unlock()

	if err := f.deps.Sessions.Clear(ctx); err != nil {
		f.log.WarnContext(ctx, "purge of rejected session failed", slog.String("error", err.Error()))
	}
	f.log.InfoContext(ctx, "session expired")
	f.notify(ctx, notifier.LevelWarning, msgExpired)
	f.scheduleLogin(ctx, f.opts.ExpiredRedirectDelay)
}

type loginInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// Login signs in with email and password and persists the resulting session.
func (f *Flow) Login(ctx context.Context, email, password string) (domain.Session, error) {
	if err := validate.Struct(loginInput{Email: email, Password: password}); err != nil {
		f.notify(ctx, notifier.LevelError, err.Error())
		return domain.Session{}, err
	}

	sess, err := f.deps.Remote.Login(ctx, email, password)
	if err != nil {
		f.reportFailure(ctx, "Login failed", err)
		return domain.Session{}, err
	}
	if err := f.deps.Sessions.Save(ctx, sess); err != nil {
		f.notify(ctx, notifier.LevelError, "Login failed")
		return domain.Session{}, err
	}

	f.signedIn()

	f.notify(ctx, notifier.LevelSuccess, "Login successful!")
	sess, _ = f.deps.Sessions.Load(ctx)
	return sess, nil
}

// Logout tells the server (best effort), clears everything local and returns
// the user to the index view.
func (f *Flow) Logout(ctx context.Context) error {
	if sess, ok := f.deps.Sessions.Load(ctx); ok && sess.Authenticated() {
		if err := f.deps.Remote.Logout(ctx, sess.Credential); err != nil {
			f.log.InfoContext(ctx, "server logout failed", slog.String("error", err.Error()))
		}
	}
	if err := f.deps.Sessions.Clear(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	f.setState(StateAnonymous)
	f.notify(ctx, notifier.LevelInfo, msgLoggedOut)
	f.navigator().Redirect(ctx, navigator.ViewIndex)
	return nil
}

// signedIn enters Authenticated and disarms any redirect left over from an
// earlier expiry.
func (f *Flow) signedIn() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = StateAuthenticated
	f.redirected = false
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
}

// scheduleLogin arms the single pending redirect. It reports whether this
// call armed it.
func (f *Flow) scheduleLogin(ctx context.Context, d time.Duration) bool {
	f.mu.Lock()
	if f.redirected {
		f.mu.Unlock()
		return false
	}
	f.redirected = true
	f.mu.Unlock()

	// The redirect outlives the request that caused it.
	rctx := context.WithoutCancel(ctx)
	stop := f.deps.Scheduler.AfterFunc(d, func() {
		f.navigator().Redirect(rctx, navigator.ViewLogin)
	})

	f.mu.Lock()
	f.cancel = stop
	f.mu.Unlock()
	return true
}

func (f *Flow) reportFailure(ctx context.Context, action string, err error) {
	if msg, ok := gateway.UserMessage(err, action); ok {
		f.notify(ctx, notifier.LevelError, msg)
	}
}

func (f *Flow) notify(ctx context.Context, level notifier.Level, msg string) {
	if f.deps.Notifier != nil {
		f.deps.Notifier.Notify(ctx, level, msg)
	}
}

func (f *Flow) navigator() navigator.Navigator {
	if f.deps.Navigator == nil {
		return noopNavigator{}
	}
	return f.deps.Navigator
}

type noopNavigator struct{}

func (noopNavigator) Redirect(context.Context, navigator.View) {}
func (noopNavigator) ReplaceURL(context.Context, string)       {}
