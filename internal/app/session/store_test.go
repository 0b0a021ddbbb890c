package session_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oapi-codegen/nullable"

	memclock "github.com/Overland-East-Bay/trip-safety-client/internal/adapters/memory/clock"
	memstorage "github.com/Overland-East-Bay/trip-safety-client/internal/adapters/memory/storage"
	"github.com/Overland-East-Bay/trip-safety-client/internal/app/session"
	"github.com/Overland-East-Bay/trip-safety-client/internal/domain"
	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/storage"
)

// countingStorage counts writes so tests can assert that nothing was persisted.
type countingStorage struct {
	*memstorage.Store
	puts atomic.Int32
}

func (c *countingStorage) Put(ctx context.Context, key storage.Key, value []byte) error {
	c.puts.Add(1)
	return c.Store.Put(ctx, key, value)
}

func newStore(t *testing.T) (*session.Store, *countingStorage) {
	t.Helper()
	st := &countingStorage{Store: memstorage.NewStore()}
	clk := memclock.NewManualClock(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	return session.NewStore(st, clk, nil), st
}

func strptr(s string) *string { return &s }

func TestStore_MergeProfile_NoSessionDoesNotWrite(t *testing.T) {
	t.Parallel()

	s, st := newStore(t)
	_, ok, err := s.MergeProfile(context.Background(), session.ProfilePatch{Name: nullable.NewNullableWithValue("Ada")})
	if err != nil {
		t.Fatalf("MergeProfile err=%v", err)
	}
	if ok {
		t.Fatalf("MergeProfile ok=true, want false")
	}
	if st.puts.Load() != 0 || st.Len() != 0 {
		t.Fatalf("puts=%d len=%d, want no writes", st.puts.Load(), st.Len())
	}
}

func TestStore_MergeProfile_AccumulatesAndKeepsCredential(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _ := newStore(t)
	if err := s.Save(ctx, domain.Session{Credential: "T", Profile: domain.Profile{Username: strptr("ada")}}); err != nil {
		t.Fatalf("Save err=%v", err)
	}

	if _, ok, err := s.MergeProfile(ctx, session.ProfilePatch{Name: nullable.NewNullableWithValue("Ada")}); err != nil || !ok {
		t.Fatalf("MergeProfile x: ok=%v err=%v", ok, err)
	}
	got, ok, err := s.MergeProfile(ctx, session.ProfilePatch{Email: nullable.NewNullableWithValue("ada@example.com")})
	if err != nil || !ok {
		t.Fatalf("MergeProfile y: ok=%v err=%v", ok, err)
	}

	if got.Credential != "T" {
		t.Fatalf("credential=%q, want T", got.Credential)
	}
	p := got.Profile
	if p.Name == nil || *p.Name != "Ada" || p.Email == nil || *p.Email != "ada@example.com" || p.Username == nil || *p.Username != "ada" {
		t.Fatalf("profile=%+v", p)
	}

	// Null clears, unspecified leaves alone.
	got, _, _ = s.MergeProfile(ctx, session.ProfilePatch{Username: nullable.NewNullNullable[string]()})
	if got.Profile.Username != nil || got.Profile.Name == nil {
		t.Fatalf("after clear: profile=%+v", got.Profile)
	}
}

func TestStore_Load_CorruptRecordIsClearedAndAbsent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, st := newStore(t)
	_ = st.Store.Put(ctx, storage.KeySession, []byte(`{"token":`))

	if _, ok := s.Load(ctx); ok {
		t.Fatalf("Load ok=true for corrupt record")
	}
	if _, ok, _ := st.Get(ctx, storage.KeySession); ok {
		t.Fatalf("corrupt record was not removed")
	}
	if _, ok := s.Credential(ctx); ok {
		t.Fatalf("Credential ok=true after corruption")
	}
}

func TestStore_Load_NestedLegacyRecord(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, st := newStore(t)
	_ = st.Store.Put(ctx, storage.KeySession, []byte(`{"token":"T","user":{"name":"Ada"}}`))

	got, ok := s.Load(ctx)
	if !ok || got.Credential != "T" || got.Profile.Name == nil || *got.Profile.Name != "Ada" {
		t.Fatalf("Load()=%+v ok=%v", got, ok)
	}
	cred, ok := s.Credential(ctx)
	if !ok || cred != "T" {
		t.Fatalf("Credential()=%q ok=%v", cred, ok)
	}
}

func TestStore_Credential_EmptyTokenIsNotAuthenticated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, st := newStore(t)
	_ = st.Store.Put(ctx, storage.KeySession, []byte(`{"token":"","name":"Ada"}`))

	if _, ok := s.Load(ctx); !ok {
		t.Fatalf("record without credential should still load")
	}
	if _, ok := s.Credential(ctx); ok {
		t.Fatalf("Credential ok=true for empty token")
	}
}

func TestStore_Clear_RemovesDependentEntries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, st := newStore(t)
	_ = s.Save(ctx, domain.Session{Credential: "T"})
	_ = s.PutPendingToken(ctx, "P")
	_ = s.SetDarkMode(ctx, true)
	_ = s.SaveSignupDraft(ctx, session.SignupDraft{Email: "ada@example.com"})
	_ = st.Store.Put(ctx, storage.KeyTrips, []byte(`[]`))

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear err=%v", err)
	}
	if st.Len() != 0 {
		t.Fatalf("entries left after Clear: %d", st.Len())
	}
}

func TestStore_Save_StampsLastSyncedAt(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _ := newStore(t)
	_ = s.Save(ctx, domain.Session{Credential: "T"})
	got, _ := s.Load(ctx)
	if !got.LastSyncedAt.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Fatalf("LastSyncedAt=%v", got.LastSyncedAt)
	}
}

func TestStore_PendingTokenAndPreferences(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _ := newStore(t)

	if err := s.PutPendingToken(ctx, " "); err == nil {
		t.Fatalf("PutPendingToken(blank) err=nil")
	}
	_ = s.PutPendingToken(ctx, "P")
	if tok, ok := s.PendingToken(ctx); !ok || tok != "P" {
		t.Fatalf("PendingToken()=%q ok=%v", tok, ok)
	}
	_ = s.DeletePendingToken(ctx)
	if _, ok := s.PendingToken(ctx); ok {
		t.Fatalf("pending token survived delete")
	}

	if s.DarkMode(ctx) {
		t.Fatalf("dark mode should default to false")
	}
	_ = s.SetDarkMode(ctx, true)
	if !s.DarkMode(ctx) {
		t.Fatalf("dark mode not persisted")
	}

	_ = s.SaveSignupDraft(ctx, session.SignupDraft{Name: "Ada"})
	if d, ok := s.SignupDraft(ctx); !ok || d.Name != "Ada" {
		t.Fatalf("SignupDraft()=%+v ok=%v", d, ok)
	}
}
