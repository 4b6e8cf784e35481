package securelocalstore_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	securelocalstore "github.com/sls-go/securelocalstore"
	"github.com/sls-go/securelocalstore/internal/bundlever"
	"github.com/sls-go/securelocalstore/internal/cipher"
	"github.com/sls-go/securelocalstore/internal/devicekey"
	"github.com/sls-go/securelocalstore/internal/kdf"
	"github.com/sls-go/securelocalstore/internal/kvstore"
	"github.com/sls-go/securelocalstore/slserrors"
)

func base64Encode(raw []byte) string { return base64.StdEncoding.EncodeToString(raw) }

func deriveKEKForTest(t *testing.T, password string, salt []byte) *cipher.KeyHandle {
	t.Helper()
	kek, err := kdf.DeriveKEK(context.Background(), password, salt, 20)
	require.NoError(t, err)
	return kek
}

func newStore(t *testing.T, storageKey string, devKeys *devicekey.Store) *securelocalstore.Store {
	t.Helper()
	if devKeys == nil {
		devKeys = devicekey.NewStore(devicekey.NewMemoryPersistent(), nil)
	}
	s := securelocalstore.New(kvstore.NewMemoryKV(0), devKeys, securelocalstore.Config{StorageKey: storageKey})
	require.NoError(t, s.WaitReady(context.Background()))
	return s
}

func TestDeviceModeRoundTrip_S1(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, "app:sls", nil)

	require.NoError(t, s.SetData(ctx, map[string]any{"value1": 42, "nested": map[string]any{"a": "b"}}))

	view, err := securelocalstore.GetData[map[string]any](ctx, s)
	require.NoError(t, err)
	payload, err := view.Get()
	require.NoError(t, err)
	assert.Equal(t, 42.0, payload["value1"])
	assert.Equal(t, map[string]any{"a": "b"}, payload["nested"])

	view.Clear()
	_, err = view.Get()
	require.Error(t, err)
	assert.True(t, slserrors.Is(err, slserrors.KindLocked))

	view2, err := securelocalstore.GetData[map[string]any](ctx, s)
	require.NoError(t, err)
	payload2, err := view2.Get()
	require.NoError(t, err)
	assert.Equal(t, 42.0, payload2["value1"])
}

func TestLockUnlock_S2(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, "app:sls", nil)

	require.NoError(t, s.SetData(ctx, map[string]any{"note": "hi"}))
	require.NoError(t, s.SetMasterPassword(ctx, "correct horse battery staple"))

	s.Lock()
	assert.True(t, s.IsLocked())

	_, err := securelocalstore.GetData[map[string]any](ctx, s)
	require.Error(t, err)
	assert.True(t, slserrors.Is(err, slserrors.KindLocked))

	err = s.Unlock(ctx, "wrong")
	require.Error(t, err)
	assert.True(t, slserrors.Is(err, slserrors.KindValidation))
	assert.True(t, s.IsLocked())

	require.NoError(t, s.Unlock(ctx, "correct horse battery staple"))
	view, err := securelocalstore.GetData[map[string]any](ctx, s)
	require.NoError(t, err)
	payload, err := view.Get()
	require.NoError(t, err)
	assert.Equal(t, "hi", payload["note"])
}

func TestExportImportCustomPassword_DeviceToDevice_S3(t *testing.T) {
	ctx := context.Background()
	src := newStore(t, "src", nil)
	require.NoError(t, src.SetData(ctx, map[string]any{"a": 1}))

	pw := "export-pass"
	exported, err := src.ExportData(ctx, &pw)
	require.NoError(t, err)

	dst := newStore(t, "dst", nil)
	class, err := dst.ImportData(ctx, exported, &pw)
	require.NoError(t, err)
	assert.Equal(t, "customExportPassword", class)
	assert.False(t, dst.IsUsingMasterPassword())

	view, err := securelocalstore.GetData[map[string]any](ctx, dst)
	require.NoError(t, err)
	payload, err := view.Get()
	require.NoError(t, err)
	assert.Equal(t, 1.0, payload["a"])
}

func TestImportMasterProtectedBundle_S4(t *testing.T) {
	ctx := context.Background()
	src := newStore(t, "src", nil)
	require.NoError(t, src.SetMasterPassword(ctx, "mp"))
	require.NoError(t, src.SetData(ctx, map[string]any{"z": 9}))

	exported, err := src.ExportData(ctx, nil)
	require.NoError(t, err)
	assert.True(t, func() bool {
		var probe map[string]json.RawMessage
		require.NoError(t, json.Unmarshal([]byte(exported), &probe))
		var header struct {
			MPw *bool `json:"mPw"`
		}
		require.NoError(t, json.Unmarshal(probe["header"], &header))
		return header.MPw != nil && *header.MPw
	}())

	dst := newStore(t, "dst", nil)
	pw := "mp"
	class, err := dst.ImportData(ctx, exported, &pw)
	require.NoError(t, err)
	assert.Equal(t, "masterPassword", class)
	assert.True(t, dst.IsLocked())

	_, err = securelocalstore.GetData[map[string]any](ctx, dst)
	require.Error(t, err)
	assert.True(t, slserrors.Is(err, slserrors.KindLocked))

	require.NoError(t, dst.Unlock(ctx, "mp"))
	view, err := securelocalstore.GetData[map[string]any](ctx, dst)
	require.NoError(t, err)
	payload, err := view.Get()
	require.NoError(t, err)
	assert.Equal(t, 9.0, payload["z"])
}

func TestAADBindingPreventsMixAndMatch_S5(t *testing.T) {
	ctx := context.Background()
	devKeys := devicekey.NewStore(devicekey.NewMemoryPersistent(), nil)
	kv := kvstore.NewMemoryKV(0)
	s := securelocalstore.New(kv, devKeys, securelocalstore.Config{StorageKey: "app:sls"})
	require.NoError(t, s.WaitReady(ctx))
	require.NoError(t, s.SetData(ctx, map[string]any{"x": 1}))

	raw, found, err := kv.Get(ctx)
	require.NoError(t, err)
	require.True(t, found)

	var bundle bundlever.Bundle
	require.NoError(t, json.Unmarshal([]byte(raw), &bundle))

	deviceKEK, err := devKeys.GetKey(ctx, devicekey.Namespace{DBName: "securelocalstore", StoreName: "securelocalstore", KeyID: "default"})
	require.NoError(t, err)

	freshDEK, err := cipher.GenerateDEK()
	require.NoError(t, err)
	wrapped, err := cipher.Wrap(ctx, freshDEK, deviceKEK, []byte("sls|wrap|v3|app:sls"))
	require.NoError(t, err)
	bundle.Header.IV = base64Encode(wrapped.IVWrap)
	bundle.Header.WrappedKey = base64Encode(wrapped.WrappedKey)

	tampered, err := json.Marshal(bundle)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, string(tampered)))

	fresh := securelocalstore.New(kv, devKeys, securelocalstore.Config{StorageKey: "app:sls"})
	require.NoError(t, fresh.WaitReady(ctx))

	_, err = securelocalstore.GetData[map[string]any](ctx, fresh)
	require.Error(t, err)
	assert.True(t, slserrors.Is(err, slserrors.KindCrypto))
}

func TestMigrationV2ToV3_S6(t *testing.T) {
	ctx := context.Background()
	devKeys := devicekey.NewStore(devicekey.NewMemoryPersistent(), nil)
	kv := kvstore.NewMemoryKV(0)

	salt := make([]byte, 16)
	copy(salt, []byte("migrate-1-salt!!"))
	kek := deriveKEKForTest(t, "migrate-1", salt)

	dek, err := cipher.GenerateDEK()
	require.NoError(t, err)
	wrapped, err := cipher.Wrap(ctx, dek, kek, nil)
	require.NoError(t, err)
	sealed, err := cipher.Encrypt(ctx, dek, map[string]any{"b": 2}, nil)
	require.NoError(t, err)

	v2 := bundlever.Bundle{
		Header: bundlever.Header{
			V:          2,
			Salt:       base64Encode(salt),
			Rounds:     20,
			IV:         base64Encode(wrapped.IVWrap),
			WrappedKey: base64Encode(wrapped.WrappedKey),
		},
		Data: bundlever.DataBlock{IV: base64Encode(sealed.IV), Ciphertext: base64Encode(sealed.Ciphertext)},
	}
	raw, err := json.Marshal(v2)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, string(raw)))

	s := securelocalstore.New(kv, devKeys, securelocalstore.Config{StorageKey: "app:sls"})
	require.NoError(t, s.WaitReady(ctx))
	require.True(t, s.IsLocked())

	_, err = securelocalstore.GetData[map[string]any](ctx, s)
	require.Error(t, err)
	assert.True(t, slserrors.Is(err, slserrors.KindLocked))

	require.NoError(t, s.Unlock(ctx, "migrate-1"))
	view, err := securelocalstore.GetData[map[string]any](ctx, s)
	require.NoError(t, err)
	payload, err := view.Get()
	require.NoError(t, err)
	assert.Equal(t, 2.0, payload["b"])

	persisted, found, err := kv.Get(ctx)
	require.NoError(t, err)
	require.True(t, found)
	var migrated bundlever.Bundle
	require.NoError(t, json.Unmarshal([]byte(persisted), &migrated))
	assert.Equal(t, 3, migrated.Header.V)
	assert.Equal(t, "store", migrated.Header.Ctx)
}

func TestReadinessBarrier_BlocksUntilInitializeCompletes(t *testing.T) {
	s := newStore(t, "app:sls", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.WaitReady(ctx))

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "DeviceMode", stats.State)
	assert.Equal(t, securelocalstore.DataVersion, stats.DataVersion)
}

func TestSetData_RejectsNonObjectPayload(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, "app:sls", nil)

	err := s.SetData(ctx, []int{1, 2, 3})
	require.Error(t, err)
	assert.True(t, slserrors.Is(err, slserrors.KindValidation))
}

func TestRotateKeys_DisallowedInMasterMode(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, "app:sls", nil)
	require.NoError(t, s.SetMasterPassword(ctx, "pw"))

	err := s.RotateKeys(ctx)
	require.Error(t, err)
	assert.True(t, slserrors.Is(err, slserrors.KindMode))
}
