package kvstore_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/sls-go/securelocalstore/internal/kvstore"
	"github.com/sls-go/securelocalstore/slserrors"
)

func TestMemoryKV_GetAbsentIsNilFalse(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryKV(0)

	_, found, err := kv.Get(ctx)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryKV_SetThenGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryKV(0)

	require.NoError(t, kv.Set(ctx, `{"v":3}`))

	got, found, err := kv.Get(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, `{"v":3}`, got)
}

func TestMemoryKV_Clear(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryKV(0)
	require.NoError(t, kv.Set(ctx, "x"))

	kv.Clear(ctx)

	_, found, err := kv.Get(ctx)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryKV_QuotaExceeded(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryKV(4)

	err := kv.Set(ctx, "too-long-value")
	require.Error(t, err)
	assert.True(t, slserrors.Is(err, slserrors.KindStorageFull))
}

func TestBoltKV_SetGetClear(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.db")
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	require.NoError(t, err)
	defer db.Close()

	kv, err := kvstore.OpenBoltKV(db, "app:sls", nil)
	require.NoError(t, err)

	_, found, err := kv.Get(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, kv.Set(ctx, `{"hello":"world"}`))

	got, found, err := kv.Get(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, `{"hello":"world"}`, got)

	kv.Clear(ctx)
	_, found, err = kv.Get(ctx)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestBoltKV_DistinctStorageKeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.db")
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	require.NoError(t, err)
	defer db.Close()

	kvA, err := kvstore.OpenBoltKV(db, "a", nil)
	require.NoError(t, err)
	kvB, err := kvstore.OpenBoltKV(db, "b", nil)
	require.NoError(t, err)

	require.NoError(t, kvA.Set(ctx, "value-a"))

	_, found, err := kvB.Get(ctx)
	require.NoError(t, err)
	assert.False(t, found)
}
