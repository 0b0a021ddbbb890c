package storage

import (
	"context"
	"testing"

	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/storage"
)

func TestStore_PutCopiesInput(t *testing.T) {
	t.Parallel()

	s := NewStore()
	in := []byte(`{"a":1}`)
	if err := s.Put(context.Background(), storage.KeyTrips, in); err != nil {
		t.Fatalf("Put() err=%v", err)
	}
	in[0] = 'X'

	got, ok, err := s.Get(context.Background(), storage.KeyTrips)
	if err != nil || !ok {
		t.Fatalf("Get() ok=%v err=%v", ok, err)
	}
	if string(got) != `{"a":1}` {
		t.Fatalf("Get()=%q, want original bytes", string(got))
	}
	if s.Len() != 1 {
		t.Fatalf("Len()=%d, want 1", s.Len())
	}
}
