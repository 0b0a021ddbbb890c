package auth_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	memclock "github.com/Overland-East-Bay/trip-safety-client/internal/adapters/memory/clock"
	memnavigator "github.com/Overland-East-Bay/trip-safety-client/internal/adapters/memory/navigator"
	memnotifier "github.com/Overland-East-Bay/trip-safety-client/internal/adapters/memory/notifier"
	memscheduler "github.com/Overland-East-Bay/trip-safety-client/internal/adapters/memory/scheduler"
	memstorage "github.com/Overland-East-Bay/trip-safety-client/internal/adapters/memory/storage"
	"github.com/Overland-East-Bay/trip-safety-client/internal/app/auth"
	"github.com/Overland-East-Bay/trip-safety-client/internal/app/gateway"
	"github.com/Overland-East-Bay/trip-safety-client/internal/app/session"
	"github.com/Overland-East-Bay/trip-safety-client/internal/domain"
	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/navigator"
	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/notifier"
	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/storage"
)

type fakeRemote struct {
	mu          sync.Mutex
	profile     domain.Profile
	profileErr  error
	profileWith []string
	login       domain.Session
	loginErr    error
	logouts     []string
}

func (r *fakeRemote) FetchProfile(ctx context.Context, credential string) (domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profileWith = append(r.profileWith, credential)
	return r.profile, r.profileErr
}

func (r *fakeRemote) Login(ctx context.Context, email, password string) (domain.Session, error) {
	return r.login, r.loginErr
}

func (r *fakeRemote) Logout(ctx context.Context, credential string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logouts = append(r.logouts, credential)
	return errors.New("server unreachable")
}

type harness struct {
	flow    *auth.Flow
	store   *session.Store
	storage *memstorage.Store
	remote  *fakeRemote
	notes   *memnotifier.Recorder
	nav     *memnavigator.Recorder
	sched   *memscheduler.Manual
	clock   *memclock.ManualClock
}

func newHarness(t *testing.T, pageURL string) *harness {
	t.Helper()
	h := &harness{
		storage: memstorage.NewStore(),
		remote:  &fakeRemote{},
		notes:   memnotifier.NewRecorder(),
		nav:     memnavigator.NewRecorder(pageURL),
		sched:   memscheduler.NewManual(),
		clock:   memclock.NewManualClock(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)),
	}
	h.store = session.NewStore(h.storage, h.clock, nil)
	h.flow = auth.NewFlow(auth.Deps{
		Sessions:  h.store,
		Remote:    h.remote,
		Notifier:  h.notes,
		Navigator: h.nav,
		Scheduler: h.sched,
		Clock:     h.clock,
	}, auth.Options{})
	return h
}

func strptr(s string) *string { return &s }

func TestAbsorbCallback_SuccessStoresSessionAndStripsToken(t *testing.T) {
	t.Parallel()

	page := "https://app.example.org/dashboard?token=T&tab=trips"
	h := newHarness(t, page)
	h.remote.profile = domain.Profile{Name: strptr("Ada"), Email: strptr("ada@example.org")}
	ctx := context.Background()

	handled, err := h.flow.AbsorbCallback(ctx, page)
	if err != nil || !handled {
		t.Fatalf("AbsorbCallback: handled=%v err=%v", handled, err)
	}
	if h.flow.State() != auth.StateAuthenticated {
		t.Fatalf("expected authenticated, got %v", h.flow.State())
	}
	if len(h.remote.profileWith) != 1 || h.remote.profileWith[0] != "T" {
		t.Fatalf("profile must be fetched with the callback token, got %v", h.remote.profileWith)
	}

	sess, ok := h.store.Load(ctx)
	if !ok || sess.Credential != "T" || sess.Profile.Name == nil || *sess.Profile.Name != "Ada" {
		t.Fatalf("unexpected session: %+v ok=%v", sess, ok)
	}
	if _, ok, _ := h.storage.Get(ctx, storage.KeyPendingToken); ok {
		t.Fatalf("provisional token must be removed")
	}
	if u := h.nav.URL(); strings.Contains(u, "token=") || !strings.Contains(u, "tab=trips") {
		t.Fatalf("unexpected visible url %q", u)
	}
	if h.sched.Scheduled() != 0 {
		t.Fatalf("no redirect expected on success")
	}
}

func TestAbsorbCallback_FailurePurgesAndRedirectsOnce(t *testing.T) {
	t.Parallel()

	page := "https://app.example.org/?token=bad"
	h := newHarness(t, page)
	h.remote.profileErr = &gateway.APIError{Status: http.StatusUnauthorized}
	ctx := context.Background()

	handled, err := h.flow.AbsorbCallback(ctx, page)
	if !handled || err == nil {
		t.Fatalf("expected handled failure, got handled=%v err=%v", handled, err)
	}
	if h.flow.State() != auth.StateAnonymous {
		t.Fatalf("expected anonymous, got %v", h.flow.State())
	}
	if h.storage.Len() != 0 {
		t.Fatalf("expected all state purged, %d entries left", h.storage.Len())
	}
	if h.notes.Count(notifier.LevelError) != 1 {
		t.Fatalf("expected one error notice, got %+v", h.notes.Messages())
	}
	pending := h.sched.Pending()
	if len(pending) != 1 || pending[0] != auth.DefaultOAuthFailureRedirectDelay {
		t.Fatalf("expected one redirect after the oauth delay, got %v", pending)
	}
	if len(h.nav.Redirects()) != 0 {
		t.Fatalf("redirect must wait for the delay")
	}
	h.sched.FireAll()
	if got := h.nav.Redirects(); len(got) != 1 || got[0] != navigator.ViewLogin {
		t.Fatalf("expected redirect to login, got %v", got)
	}
}

func TestAbsorbCallback_NoTokenIsNoop(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "https://app.example.org/")
	handled, err := h.flow.AbsorbCallback(context.Background(), "https://app.example.org/?tab=1")
	if handled || err != nil {
		t.Fatalf("expected no-op, got handled=%v err=%v", handled, err)
	}
	if h.flow.State() != auth.StateAnonymous {
		t.Fatalf("unexpected state %v", h.flow.State())
	}
}

func TestExpire_SchedulesExactlyOneRedirect(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "")
	ctx := context.Background()
	if err := h.store.Save(ctx, domain.Session{Credential: "opaque"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if st := h.flow.Restore(ctx); st != auth.StateAuthenticated {
		t.Fatalf("Restore: %v", st)
	}

	h.flow.Expire(ctx)
	h.flow.Expire(ctx)
	h.flow.RequireLogin(ctx)

	if h.flow.State() != auth.StateExpired {
		t.Fatalf("expected expired, got %v", h.flow.State())
	}
	if _, ok := h.store.Load(ctx); ok {
		t.Fatalf("session must be purged")
	}
	if h.sched.Scheduled() != 1 {
		t.Fatalf("expected one scheduled redirect, got %d", h.sched.Scheduled())
	}
	if d := h.sched.Pending(); d[0] != auth.DefaultExpiredRedirectDelay {
		t.Fatalf("unexpected delay %v", d)
	}
	if h.notes.Count(notifier.LevelWarning) != 1 {
		t.Fatalf("expected one warning, got %+v", h.notes.Messages())
	}
	if h.flow.Guard(ctx) {
		t.Fatalf("guard must fail when expired")
	}
	if len(h.nav.Redirects()) != 0 {
		t.Fatalf("guard must not add a second redirect while one is pending")
	}
}

func TestRestore_ExpiredJWTIsExpired(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "")
	ctx := context.Background()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": h.clock.Now().Add(-time.Minute).Unix(),
	}).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := h.store.Save(ctx, domain.Session{Credential: tok}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if st := h.flow.Restore(ctx); st != auth.StateExpired {
		t.Fatalf("expected expired, got %v", st)
	}
	if h.sched.Scheduled() != 1 {
		t.Fatalf("expected one redirect")
	}
}

func TestGuard_AnonymousRedirectsImmediately(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "")
	ctx := context.Background()
	h.flow.Restore(ctx)

	if h.flow.Guard(ctx) {
		t.Fatalf("guard must fail without a session")
	}
	if got := h.nav.Redirects(); len(got) != 1 || got[0] != navigator.ViewLogin {
		t.Fatalf("expected immediate redirect to login, got %v", got)
	}
	if h.notes.Count(notifier.LevelWarning) != 1 {
		t.Fatalf("expected a warning")
	}
}

func TestLogin_PersistsSessionAndCancelsPendingRedirect(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "")
	ctx := context.Background()
	h.flow.RequireLogin(ctx)
	if len(h.sched.Pending()) != 1 {
		t.Fatalf("expected pending redirect")
	}

	h.remote.login = domain.Session{Credential: "fresh", Profile: domain.Profile{Username: strptr("ada")}}
	sess, err := h.flow.Login(ctx, "ada@example.org", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.Credential != "fresh" || sess.LastSyncedAt.IsZero() {
		t.Fatalf("unexpected session %+v", sess)
	}
	if len(h.sched.Pending()) != 0 {
		t.Fatalf("login must disarm the pending redirect")
	}
	if !h.flow.Guard(ctx) {
		t.Fatalf("guard must pass after login")
	}
}

func TestLogin_InvalidInputIsNotSent(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "")
	h.remote.loginErr = errors.New("must not be called")
	if _, err := h.flow.Login(context.Background(), "not-an-email", ""); err == nil {
		t.Fatalf("expected validation error")
	}
	if h.notes.Count(notifier.LevelError) != 1 {
		t.Fatalf("expected one error notice")
	}
}

func TestLogout_ClearsEvenWhenServerFails(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "")
	ctx := context.Background()
	_ = h.store.Save(ctx, domain.Session{Credential: "c1"})
	_ = h.store.SetDarkMode(ctx, true)
	h.flow.Restore(ctx)

	if err := h.flow.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if len(h.remote.logouts) != 1 || h.remote.logouts[0] != "c1" {
		t.Fatalf("expected server logout with c1, got %v", h.remote.logouts)
	}
	if h.storage.Len() != 0 {
		t.Fatalf("expected storage empty")
	}
	if got := h.nav.Redirects(); len(got) != 1 || got[0] != navigator.ViewIndex {
		t.Fatalf("expected redirect to index, got %v", got)
	}
	if h.flow.State() != auth.StateAnonymous {
		t.Fatalf("unexpected state %v", h.flow.State())
	}
}
