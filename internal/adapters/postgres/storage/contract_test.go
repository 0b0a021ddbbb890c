package storage

import (
	"testing"

	"github.com/google/uuid"

	"github.com/Overland-East-Bay/trip-safety-client/internal/adapters/contracttest"
	"github.com/Overland-East-Bay/trip-safety-client/internal/adapters/postgres/testutil"
	storageport "github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/storage"
)

func TestContract_PostgresStorage(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunStorage(t, func(t *testing.T) (storageport.Storage, func()) {
		t.Helper()
		// A fresh namespace per run keeps reruns against a shared database independent.
		return NewStore(pool, "contract-"+uuid.NewString()), nil
	})
}
