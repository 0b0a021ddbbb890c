package client_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Overland-East-Bay/trip-safety-client/internal/adapters/devapi"
	memclock "github.com/Overland-East-Bay/trip-safety-client/internal/adapters/memory/clock"
	memlocation "github.com/Overland-East-Bay/trip-safety-client/internal/adapters/memory/location"
	memnavigator "github.com/Overland-East-Bay/trip-safety-client/internal/adapters/memory/navigator"
	memnotifier "github.com/Overland-East-Bay/trip-safety-client/internal/adapters/memory/notifier"
	memscheduler "github.com/Overland-East-Bay/trip-safety-client/internal/adapters/memory/scheduler"
	memstorage "github.com/Overland-East-Bay/trip-safety-client/internal/adapters/memory/storage"
	"github.com/Overland-East-Bay/trip-safety-client/internal/app/alerts"
	"github.com/Overland-East-Bay/trip-safety-client/internal/app/auth"
	"github.com/Overland-East-Bay/trip-safety-client/internal/app/client"
	"github.com/Overland-East-Bay/trip-safety-client/internal/app/gateway"
	"github.com/Overland-East-Bay/trip-safety-client/internal/app/trips"
	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/location"
	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/navigator"
)

type env struct {
	api     *devapi.Server
	client  *client.Client
	storage *memstorage.Store
	nav     *memnavigator.Recorder
	notes   *memnotifier.Recorder
	sched   *memscheduler.Manual
	userID  string
}

func newEnv(t *testing.T, pageURL string, apiOpts devapi.Options, auth gateway.Authenticator) *env {
	t.Helper()
	clk := memclock.NewManualClock(time.Date(2026, 7, 4, 12, 0, 0, 0, time.UTC))
	apiOpts.Clock = clk
	api := devapi.NewServer(apiOpts)
	uid, err := api.AddUser(devapi.User{Name: "Ada", Email: "ada@example.org", Username: "ada"}, "correct-horse")
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	srv := httptest.NewServer(devapi.NewRouter(api))
	t.Cleanup(srv.Close)

	e := &env{
		api:     api,
		storage: memstorage.NewStore(),
		nav:     memnavigator.NewRecorder(pageURL),
		notes:   memnotifier.NewRecorder(),
		sched:   memscheduler.NewManual(),
		userID:  uid,
	}
	e.client = client.New(client.Deps{
		Storage:    e.storage,
		Location:   &memlocation.Provider{Err: location.ErrUnavailable},
		Notifier:   e.notes,
		Navigator:  e.nav,
		Scheduler:  e.sched,
		Clock:      clk,
		HTTPClient: srv.Client(),
		Registerer: prometheus.NewRegistry(),
	}, client.Options{
		APIBaseURL:      srv.URL,
		WebBaseURL:      "https://app.example.org",
		Auth:            auth,
		LocationTimeout: 50 * time.Millisecond,
	})
	t.Cleanup(e.client.Close)
	return e
}

func TestClient_OAuthThenTripLifecycle(t *testing.T) {
	t.Parallel()

	e := newEnv(t, "", devapi.Options{}, gateway.BearerAuth{})
	tok, err := e.api.IssueToken(e.userID)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	page := "https://app.example.org/dashboard?token=" + tok
	ctx := context.Background()

	state, ok := e.client.Start(ctx, page, true)
	if !ok || state != auth.StateAuthenticated {
		t.Fatalf("Start: state=%v ok=%v notes=%+v", state, ok, e.notes.Messages())
	}
	if strings.Contains(e.nav.URL(), "token=") {
		t.Fatalf("token left in visible url: %q", e.nav.URL())
	}
	sess, _ := e.client.Sessions.Load(ctx)
	if sess.Credential != tok || sess.Profile.Email == nil || *sess.Profile.Email != "ada@example.org" {
		t.Fatalf("unexpected session %+v", sess)
	}
	if _, pending := e.client.Sessions.PendingToken(ctx); pending {
		t.Fatalf("provisional token left behind")
	}

	start := time.Date(2026, 7, 4, 8, 0, 0, 0, time.UTC)
	trip, err := e.client.Trips.Create(ctx, trips.CreateTripInput{
		Name:        "Ridge",
		Destination: "Mt Diablo",
		StartDate:   start,
		EndDate:     start.Add(36 * time.Hour),
		Contacts:    []trips.ContactInput{{Name: "Sam", Phone: "+15550100"}},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	listed, err := e.client.Trips.List(ctx)
	if err != nil || len(listed) != 1 || listed[0].ID != trip.ID {
		t.Fatalf("List: %+v %v", listed, err)
	}
	if cur, ok := e.client.Trips.Current(ctx); !ok || cur.ID != trip.ID {
		t.Fatalf("expected current trip")
	}

	if ok, err := e.client.Trips.CheckIn(ctx, trip.ID); !ok || err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if cis := e.api.CheckIns(); len(cis) != 1 || cis[0].Location != nil {
		t.Fatalf("expected one check-in without location, got %+v", cis)
	}

	if ok, err := e.client.Alerts.TriggerSOS(ctx, alerts.SOS{Message: "help", TripID: trip.ID}); !ok || err != nil {
		t.Fatalf("TriggerSOS: %v", err)
	}
	if as := e.api.Alerts(); len(as) != 1 || as[0].TripID != string(trip.ID) || as[0].Location != nil {
		t.Fatalf("unexpected alerts %+v", as)
	}

	ended, err := e.client.Trips.End(ctx, trip.ID)
	if err != nil || !ended.Status.IsTerminal() {
		t.Fatalf("End: %+v %v", ended, err)
	}
	if _, ok := e.client.Trips.Current(ctx); ok {
		t.Fatalf("ended trip must not be current")
	}

	var buf bytes.Buffer
	if err := e.client.Profile.Export(ctx, &buf); err != nil || !strings.Contains(buf.String(), "Ridge") {
		t.Fatalf("Export: %v %s", err, buf.String())
	}

	if err := e.client.Auth.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if e.storage.Len() != 0 {
		t.Fatalf("expected storage cleared after logout")
	}
	if got := e.nav.Redirects(); len(got) != 1 || got[0] != navigator.ViewIndex {
		t.Fatalf("expected redirect to index, got %v", got)
	}
}

func TestClient_CookieTransportWithWrappedList(t *testing.T) {
	t.Parallel()

	e := newEnv(t, "", devapi.Options{CookieName: "sid", WrapTripList: true}, gateway.CookieAuth{CookieName: "sid"})
	ctx := context.Background()

	if _, err := e.client.Auth.Login(ctx, "ada@example.org", "correct-horse"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	ts, err := e.client.Trips.List(ctx)
	if err != nil || len(ts) != 0 {
		t.Fatalf("List: %+v %v", ts, err)
	}
	if _, err := e.client.Profile.Fetch(ctx); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
}

func TestClient_RevokedSessionExpiresOnce(t *testing.T) {
	t.Parallel()

	e := newEnv(t, "", devapi.Options{}, gateway.BearerAuth{})
	ctx := context.Background()
	if _, err := e.client.Auth.Login(ctx, "ada@example.org", "correct-horse"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	sess, _ := e.client.Sessions.Load(ctx)

	// End the session server-side without the client noticing.
	resp, err := e.client.Gateway.SendWithCredential(ctx, gateway.Request{Method: http.MethodPost, Path: "/auth/logout"}, sess.Credential)
	if err != nil || !resp.OK() {
		t.Fatalf("server logout: %v", err)
	}

	_, err = e.client.Trips.List(ctx)
	if !errors.Is(err, gateway.ErrAuthRejected) {
		t.Fatalf("expected ErrAuthRejected, got %v", err)
	}
	_, err = e.client.Trips.List(ctx)
	if !errors.Is(err, gateway.ErrAuthMissing) {
		t.Fatalf("expected ErrAuthMissing after purge, got %v", err)
	}
	if e.client.Auth.State() != auth.StateExpired {
		t.Fatalf("expected expired, got %v", e.client.Auth.State())
	}
	if e.sched.Scheduled() != 1 {
		t.Fatalf("expected exactly one redirect scheduled, got %d", e.sched.Scheduled())
	}
	e.sched.FireAll()
	if got := e.nav.Redirects(); len(got) != 1 || got[0] != navigator.ViewLogin {
		t.Fatalf("expected redirect to login, got %v", got)
	}
}
