package contracttest

import (
	"context"
	"errors"
	"testing"

	storageport "github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/storage"
)

type CleanupFunc = func()

type StorageFactory func(t *testing.T) (storageport.Storage, CleanupFunc)

// RunStorage exercises the behaviour every storage adapter must share.
func RunStorage(t *testing.T, newStore StorageFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	// Missing key.
	if _, ok, err := store.Get(ctx, storageport.KeySession); err != nil || ok {
		t.Fatalf("Get missing: ok=%v err=%v, want ok=false err=nil", ok, err)
	}

	if err := store.Put(ctx, storageport.KeySession, []byte(`{"token":"t-1"}`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, storageport.KeySession)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if string(got) != `{"token":"t-1"}` {
		t.Fatalf("Get=%q", string(got))
	}

	// Overwrite semantics.
	if err := store.Put(ctx, storageport.KeySession, []byte(`{"token":"t-2"}`)); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, storageport.KeySession)
	if err != nil || !ok || string(got) != `{"token":"t-2"}` {
		t.Fatalf("expected overwritten value, got ok=%v err=%v value=%q", ok, err, string(got))
	}

	// Returned values must not alias the stored copy.
	got[0] = 'X'
	again, _, _ := store.Get(ctx, storageport.KeySession)
	if string(again) != `{"token":"t-2"}` {
		t.Fatalf("stored value was mutated through a returned slice: %q", string(again))
	}

	// Multi-key delete, including keys that were never written.
	if err := store.Put(ctx, storageport.KeyTrips, []byte(`[]`)); err != nil {
		t.Fatalf("Put trips: %v", err)
	}
	if err := store.Put(ctx, storageport.KeyDarkMode, []byte(`true`)); err != nil {
		t.Fatalf("Put dark mode: %v", err)
	}
	if err := store.Delete(ctx, storageport.KeySession, storageport.KeyTrips, storageport.KeySignupDraft); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	for _, k := range []storageport.Key{storageport.KeySession, storageport.KeyTrips} {
		if _, ok, err := store.Get(ctx, k); err != nil || ok {
			t.Fatalf("Get %s after delete: ok=%v err=%v", k, ok, err)
		}
	}
	if v, ok, err := store.Get(ctx, storageport.KeyDarkMode); err != nil || !ok || string(v) != "true" {
		t.Fatalf("unrelated key affected by delete: ok=%v err=%v value=%q", ok, err, string(v))
	}

	if err := store.Delete(ctx); err != nil {
		t.Fatalf("Delete with no keys: %v", err)
	}

	if err := store.Put(ctx, "", []byte("x")); !errors.Is(err, storageport.ErrInvalidKey) {
		t.Fatalf("Put empty key err=%v, want ErrInvalidKey", err)
	}
}
