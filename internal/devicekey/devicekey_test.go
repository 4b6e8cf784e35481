package devicekey_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sls-go/securelocalstore/internal/devicekey"
	"github.com/sls-go/securelocalstore/internal/devicekey/mock"
	"github.com/sls-go/securelocalstore/internal/slog"
)

func TestStore_GetKey_GeneratesAndCachesFreshKey(t *testing.T) {
	ctx := context.Background()
	store := devicekey.NewStore(devicekey.NewMemoryPersistent(), slog.Nop())
	ns := devicekey.Namespace{DBName: "db", StoreName: "keys", KeyID: "default"}

	k1, err := store.GetKey(ctx, ns)
	require.NoError(t, err)
	assert.Len(t, k1.Bytes(), 32)
	assert.False(t, k1.Extractable())

	k2, err := store.GetKey(ctx, ns)
	require.NoError(t, err)
	assert.Equal(t, k1.Bytes(), k2.Bytes())
}

func TestStore_GetKey_DifferentNamespacesDiffer(t *testing.T) {
	ctx := context.Background()
	store := devicekey.NewStore(devicekey.NewMemoryPersistent(), slog.Nop())

	k1, err := store.GetKey(ctx, devicekey.Namespace{DBName: "db", StoreName: "keys", KeyID: "a"})
	require.NoError(t, err)
	k2, err := store.GetKey(ctx, devicekey.Namespace{DBName: "db", StoreName: "keys", KeyID: "b"})
	require.NoError(t, err)

	assert.NotEqual(t, k1.Bytes(), k2.Bytes())
}

func TestStore_RotateKey_ChangesIdentityAndPersists(t *testing.T) {
	ctx := context.Background()
	persistent := devicekey.NewMemoryPersistent()
	store := devicekey.NewStore(persistent, slog.Nop())
	ns := devicekey.Namespace{DBName: "db", StoreName: "keys", KeyID: "default"}

	before, err := store.GetKey(ctx, ns)
	require.NoError(t, err)

	after, err := store.RotateKey(ctx, ns)
	require.NoError(t, err)
	assert.NotEqual(t, before.Bytes(), after.Bytes())

	raw, found, err := persistent.Load(ctx, ns)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, after.Bytes(), raw)
}

func TestStore_DeletePersistent_RemovesRecordAndCache(t *testing.T) {
	ctx := context.Background()
	persistent := devicekey.NewMemoryPersistent()
	store := devicekey.NewStore(persistent, slog.Nop())
	ns := devicekey.Namespace{DBName: "db", StoreName: "keys", KeyID: "default"}

	_, err := store.GetKey(ctx, ns)
	require.NoError(t, err)

	require.NoError(t, store.DeletePersistent(ctx, ns))

	_, found, err := persistent.Load(ctx, ns)
	require.NoError(t, err)
	assert.False(t, found)

	// GetKey after delete must regenerate, not reuse the deleted cache entry.
	fresh, err := store.GetKey(ctx, ns)
	require.NoError(t, err)
	assert.Len(t, fresh.Bytes(), 32)
}

func TestStore_GetKey_DegradesToInMemoryOnPersistenceFailure(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	ns := devicekey.Namespace{DBName: "db", StoreName: "keys", KeyID: "default"}

	persistent := mock.NewMockPersistent(ctrl)
	persistent.EXPECT().Load(ctx, ns).Return(nil, false, nil)
	persistent.EXPECT().Save(ctx, ns, gomock.Any()).Return(errors.New("disk full"))

	store := devicekey.NewStore(persistent, slog.Nop())

	k, err := store.GetKey(ctx, ns)
	require.NoError(t, err)
	assert.Len(t, k.Bytes(), 32)

	// Subsequent call is served from the in-process cache, not the backend.
	k2, err := store.GetKey(ctx, ns)
	require.NoError(t, err)
	assert.Equal(t, k.Bytes(), k2.Bytes())
}
