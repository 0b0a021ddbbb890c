package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/oapi-codegen/nullable"

	"github.com/Overland-East-Bay/trip-safety-client/internal/adapters/callback"
	"github.com/Overland-East-Bay/trip-safety-client/internal/app/alerts"
	"github.com/Overland-East-Bay/trip-safety-client/internal/app/location"
	"github.com/Overland-East-Bay/trip-safety-client/internal/app/session"
	"github.com/Overland-East-Bay/trip-safety-client/internal/app/trips"
	"github.com/Overland-East-Bay/trip-safety-client/internal/domain"
)

var errUsage = errors.New("usage")

var commands = map[string]command{
	"login":          {summary: "sign in with email and password", run: runLogin},
	"oauth-callback": {summary: "sign in through the browser", run: runOAuth},
	"logout":         {summary: "sign out and forget the session", run: runLogout},
	"whoami":         {summary: "refresh and show the signed-in profile", protected: true, run: runWhoami},
	"set-name":       {summary: "change the locally stored display name", protected: true, run: runSetName},
	"passwd":         {summary: "change the account password", protected: true, run: runPasswd},
	"dark-mode":      {summary: "show or change the dark mode preference (on|off|toggle)", run: runDarkMode},
	"export":         {summary: "write profile and trips as JSON", protected: true, run: runExport},
	"trips":          {summary: "list trips", protected: true, run: runTrips},
	"current":        {summary: "show the trip in progress", protected: true, run: runCurrent},
	"create-trip":    {summary: "plan a new trip", protected: true, run: runCreateTrip},
	"update-trip":    {summary: "change a trip's name, destination or dates", protected: true, run: runUpdateTrip},
	"end-trip":       {summary: "mark a trip completed", protected: true, run: runEndTrip},
	"checkin":        {summary: "tell your contacts you are safe", protected: true, run: runCheckIn},
	"add-contact":    {summary: "add an emergency contact to a trip", protected: true, run: runAddContact},
	"remove-contact": {summary: "remove an emergency contact from a trip", protected: true, run: runRemoveContact},
	"share":          {summary: "print a trip's public tracking link", protected: true, run: runShare},
	"sos":            {summary: "send an emergency alert", protected: true, run: runSOS},
	"locate":         {summary: "print the current position", run: runLocate},
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func parse(fs *flag.FlagSet, args []string, required ...string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	for _, name := range required {
		if f := fs.Lookup(name); f == nil || f.Value.String() == "" {
			fmt.Fprintf(os.Stderr, "-%s is required\n", name)
			fs.Usage()
			return errUsage
		}
	}
	return nil
}

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlags("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("TRIPSAFE_PASSWORD"), "account password (default $TRIPSAFE_PASSWORD)")
	if err := parse(fs, args, "email", "password"); err != nil {
		return err
	}
	_, err := a.c.Auth.Login(ctx, *email, *password)
	return err
}

func runOAuth(ctx context.Context, a *app, args []string) error {
	fs := newFlags("oauth-callback")
	email := fs.String("email", "", "account email passed to the provider")
	authorize := fs.String("authorize-url", "", "provider authorize endpoint (default <api>/oauth/authorize)")
	wait := fs.Duration("timeout", 5*time.Minute, "how long to wait for the browser")
	if err := parse(fs, args); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", a.cfg.CallbackAddr)
	if err != nil {
		return fmt.Errorf("listen for callback: %w", err)
	}
	cb := callback.New(a.c.Auth, a.log.With(slog.String("component", "callback")))
	srv := &http.Server{Handler: cb.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("callback server", slog.String("error", err.Error()))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	target := *authorize
	if target == "" {
		target = strings.TrimRight(a.cfg.APIBaseURL, "/") + "/oauth/authorize"
	}
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("authorize url: %w", err)
	}
	q := u.Query()
	q.Set("redirect_uri", "http://"+ln.Addr().String()+"/callback")
	if *email != "" {
		q.Set("email", *email)
	}
	u.RawQuery = q.Encode()
	fmt.Println("Open this address in your browser to sign in:")
	fmt.Println(" ", u.String())

	timer := time.NewTimer(*wait)
	defer timer.Stop()
	select {
	case res := <-cb.Results():
		return res.Err
	case <-timer.C:
		return errors.New("timed out waiting for the browser")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func runLogout(ctx context.Context, a *app, _ []string) error {
	return a.c.Auth.Logout(ctx)
}

func runWhoami(ctx context.Context, a *app, _ []string) error {
	sess, err := a.c.Profile.Fetch(ctx)
	if err != nil {
		return err
	}
	p := sess.Profile
	fmt.Printf("%s\n", p.DisplayName())
	for _, row := range []struct {
		label string
		v     *string
	}{{"name", p.Name}, {"username", p.Username}, {"email", p.Email}, {"picture", p.ProfilePicture}} {
		if row.v != nil && *row.v != "" {
			fmt.Printf("  %-9s %s\n", row.label, *row.v)
		}
	}
	return nil
}

func runSetName(ctx context.Context, a *app, args []string) error {
	fs := newFlags("set-name")
	name := fs.String("name", "", "new display name")
	unset := fs.Bool("clear", false, "remove the stored name")
	if err := parse(fs, args); err != nil {
		return err
	}
	var patch session.ProfilePatch
	switch {
	case *unset:
		patch.Name.SetNull()
	case *name != "":
		patch.Name = nullable.NewNullableWithValue(*name)
	default:
		fs.Usage()
		return errUsage
	}
	sess, _, err := a.c.Profile.UpdateLocal(ctx, patch)
	if err != nil {
		return err
	}
	fmt.Println(sess.Profile.DisplayName())
	return nil
}

func runPasswd(ctx context.Context, a *app, args []string) error {
	fs := newFlags("passwd")
	current := fs.String("current", "", "current password")
	next := fs.String("new", "", "new password, at least 8 characters")
	if err := parse(fs, args, "current", "new"); err != nil {
		return err
	}
	_, err := a.c.Profile.ChangePassword(ctx, *current, *next)
	return err
}

func runDarkMode(ctx context.Context, a *app, args []string) error {
	var (
		on  bool
		err error
	)
	switch mode := firstArg(args); mode {
	case "":
		on = a.c.Profile.DarkMode(ctx)
	case "toggle":
		on, err = a.c.Profile.ToggleDarkMode(ctx)
	case "on", "off":
		on = mode == "on"
		err = a.c.Profile.SetDarkMode(ctx, on)
	default:
		fmt.Fprintln(os.Stderr, "usage: tripsafe dark-mode [on|off|toggle]")
		return errUsage
	}
	if err != nil {
		return err
	}
	if on {
		fmt.Println("dark mode: on")
	} else {
		fmt.Println("dark mode: off")
	}
	return nil
}

func runExport(ctx context.Context, a *app, args []string) error {
	fs := newFlags("export")
	out := fs.String("out", "-", "output file, - for stdout")
	if err := parse(fs, args); err != nil {
		return err
	}
	var w io.Writer = os.Stdout
	if *out != "-" {
		f, err := os.OpenFile(*out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return a.c.Profile.Export(ctx, w)
}

func runTrips(ctx context.Context, a *app, args []string) error {
	fs := newFlags("trips")
	offline := fs.Bool("cached", false, "show the last fetched list without contacting the server")
	if err := parse(fs, args); err != nil {
		return err
	}
	var (
		list []domain.Trip
		err  error
	)
	if *offline {
		list = a.c.Trips.Cached(ctx)
	} else if list, err = a.c.Trips.List(ctx); err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("no trips")
		return nil
	}
	for _, t := range list {
		printTrip(t)
	}
	return nil
}

func runCurrent(ctx context.Context, a *app, _ []string) error {
	if _, err := a.c.Trips.List(ctx); err != nil {
		return err
	}
	t, ok := a.c.Trips.Current(ctx)
	if !ok {
		fmt.Println("no trip in progress")
		return nil
	}
	printTrip(t)
	for _, c := range t.Contacts {
		fmt.Printf("    contact %s  %s %s %s\n", c.ID, c.Name, c.Phone, c.Email)
	}
	return nil
}

func runCreateTrip(ctx context.Context, a *app, args []string) error {
	fs := newFlags("create-trip")
	name := fs.String("name", "", "trip name")
	dest := fs.String("destination", "", "where you are going")
	start := fs.String("start", "", "start date (YYYY-MM-DD or RFC 3339)")
	end := fs.String("end", "", "end date (YYYY-MM-DD or RFC 3339)")
	var contacts contactList
	fs.Var(&contacts, "contact", "emergency contact as name,phone[,email]; repeatable")
	if err := parse(fs, args, "name", "destination", "start", "end"); err != nil {
		return err
	}
	in := trips.CreateTripInput{Name: *name, Destination: *dest, Contacts: contacts}
	var err error
	if in.StartDate, err = parseWhen(*start); err != nil {
		return err
	}
	if in.EndDate, err = parseWhen(*end); err != nil {
		return err
	}
	t, err := a.c.Trips.Create(ctx, in)
	if err != nil {
		return err
	}
	printTrip(t)
	return nil
}

func runUpdateTrip(ctx context.Context, a *app, args []string) error {
	fs := newFlags("update-trip")
	id := fs.String("id", "", "trip id")
	name := fs.String("name", "", "new name")
	dest := fs.String("destination", "", "new destination")
	start := fs.String("start", "", "new start date")
	end := fs.String("end", "", "new end date")
	if err := parse(fs, args, "id"); err != nil {
		return err
	}
	var in trips.UpdateTripInput
	if *name != "" {
		in.Name = name
	}
	if *dest != "" {
		in.Destination = dest
	}
	for _, d := range []struct {
		raw string
		dst **time.Time
	}{{*start, &in.StartDate}, {*end, &in.EndDate}} {
		if d.raw == "" {
			continue
		}
		ts, err := parseWhen(d.raw)
		if err != nil {
			return err
		}
		*d.dst = &ts
	}
	t, err := a.c.Trips.Update(ctx, domain.TripID(*id), in)
	if err != nil {
		return err
	}
	printTrip(t)
	return nil
}

func runEndTrip(ctx context.Context, a *app, args []string) error {
	fs := newFlags("end-trip")
	id := fs.String("id", "", "trip id")
	if err := parse(fs, args, "id"); err != nil {
		return err
	}
	_, err := a.c.Trips.End(ctx, domain.TripID(*id))
	return err
}

func runCheckIn(ctx context.Context, a *app, args []string) error {
	fs := newFlags("checkin")
	id := fs.String("id", "", "trip id (default: the trip in progress)")
	if err := parse(fs, args); err != nil {
		return err
	}
	tripID, err := tripOrCurrent(ctx, a, *id)
	if err != nil {
		return err
	}
	_, err = a.c.Trips.CheckIn(ctx, tripID)
	return err
}

func runAddContact(ctx context.Context, a *app, args []string) error {
	fs := newFlags("add-contact")
	id := fs.String("id", "", "trip id")
	name := fs.String("name", "", "contact name")
	phone := fs.String("phone", "", "contact phone")
	email := fs.String("email", "", "contact email")
	if err := parse(fs, args, "id", "name"); err != nil {
		return err
	}
	t, err := a.c.Trips.AddContact(ctx, domain.TripID(*id), trips.ContactInput{Name: *name, Phone: *phone, Email: *email})
	if err != nil {
		return err
	}
	printTrip(t)
	return nil
}

func runRemoveContact(ctx context.Context, a *app, args []string) error {
	fs := newFlags("remove-contact")
	id := fs.String("id", "", "trip id")
	contact := fs.String("contact", "", "contact id")
	if err := parse(fs, args, "id", "contact"); err != nil {
		return err
	}
	_, err := a.c.Trips.RemoveContact(ctx, domain.TripID(*id), domain.ContactID(*contact))
	return err
}

func runShare(ctx context.Context, a *app, args []string) error {
	fs := newFlags("share")
	id := fs.String("id", "", "trip id (default: the trip in progress)")
	if err := parse(fs, args); err != nil {
		return err
	}
	tripID, err := tripOrCurrent(ctx, a, *id)
	if err != nil {
		return err
	}
	link, err := a.c.Trips.ShareLink(tripID)
	if err != nil {
		return err
	}
	fmt.Println(link)
	return nil
}

func runSOS(ctx context.Context, a *app, args []string) error {
	fs := newFlags("sos")
	msg := fs.String("message", "", "optional message for your contacts")
	id := fs.String("trip", "", "trip id (default: the trip in progress, if any)")
	if err := parse(fs, args); err != nil {
		return err
	}
	in := alerts.SOS{Message: *msg, TripID: domain.TripID(*id)}
	if in.TripID == "" {
		if t, ok := a.c.Trips.Current(ctx); ok {
			in.TripID = t.ID
		}
	}
	_, err := a.c.Alerts.TriggerSOS(ctx, in)
	return err
}

func runLocate(ctx context.Context, a *app, _ []string) error {
	pos, err := a.c.Location.Current(ctx, 0)
	if err != nil {
		return err
	}
	out, err := json.Marshal(location.FixFrom(&pos))
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// tripOrCurrent resolves an explicit id, falling back to the trip in progress.
func tripOrCurrent(ctx context.Context, a *app, id string) (domain.TripID, error) {
	if id != "" {
		return domain.TripID(id), nil
	}
	if _, err := a.c.Trips.List(ctx); err != nil {
		return "", err
	}
	t, ok := a.c.Trips.Current(ctx)
	if !ok {
		return "", errors.New("no trip in progress; pass -id")
	}
	return t.ID, nil
}

func printTrip(t domain.Trip) {
	fmt.Printf("%s  %-24s %-24s %s - %s  %s\n", t.ID, t.Name, t.Destination,
		t.StartDate.Format(time.DateOnly), t.EndDate.Format(time.DateOnly), t.Status)
}

func parseWhen(raw string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	ts, err := time.ParseInLocation(time.DateOnly, raw, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD or RFC 3339", raw)
	}
	return ts, nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// contactList collects repeated -contact name,phone[,email] flags.
type contactList []trips.ContactInput

func (l *contactList) String() string { return fmt.Sprint(len(*l)) }

func (l *contactList) Set(v string) error {
	parts := strings.Split(v, ",")
	if len(parts) < 2 || len(parts) > 3 {
		return fmt.Errorf("want name,phone[,email], got %q", v)
	}
	c := trips.ContactInput{Name: strings.TrimSpace(parts[0]), Phone: strings.TrimSpace(parts[1])}
	if len(parts) == 3 {
		c.Email = strings.TrimSpace(parts[2])
	}
	*l = append(*l, c)
	return nil
}
