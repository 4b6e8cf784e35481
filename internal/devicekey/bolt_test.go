package devicekey_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sls-go/securelocalstore/internal/devicekey"
)

func TestBoltPersistent_SaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "devicekeys.db")

	b, err := devicekey.OpenBoltPersistent(path)
	require.NoError(t, err)
	defer b.Close()

	ns := devicekey.Namespace{DBName: "sls", StoreName: "device-keys", KeyID: "default"}

	_, found, err := b.Load(ctx, ns)
	require.NoError(t, err)
	assert.False(t, found)

	raw := []byte("0123456789abcdef0123456789abcdef")
	require.NoError(t, b.Save(ctx, ns, raw))

	got, found, err := b.Load(ctx, ns)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, raw, got)

	require.NoError(t, b.Delete(ctx, ns))
	_, found, err = b.Load(ctx, ns)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestBoltPersistent_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "devicekeys.db")
	ns := devicekey.Namespace{DBName: "sls", StoreName: "device-keys", KeyID: "default"}
	raw := []byte("fedcba9876543210fedcba9876543210")

	b1, err := devicekey.OpenBoltPersistent(path)
	require.NoError(t, err)
	require.NoError(t, b1.Save(ctx, ns, raw))
	require.NoError(t, b1.Close())

	b2, err := devicekey.OpenBoltPersistent(path)
	require.NoError(t, err)
	defer b2.Close()

	got, found, err := b2.Load(ctx, ns)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, raw, got)
}
