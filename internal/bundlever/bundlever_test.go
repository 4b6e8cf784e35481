package bundlever_test

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sls-go/securelocalstore/internal/bundlever"
)

func b64(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

func validDeviceBundle() bundlever.Bundle {
	return bundlever.Bundle{
		Header: bundlever.Header{
			V: 3, Salt: "", Rounds: 1,
			IV: b64("wrapiv123456"), WrappedKey: b64("wrappedkey"),
			Ctx: string(bundlever.CtxStore),
		},
		Data: bundlever.DataBlock{IV: b64("dataiv123456"), Ciphertext: b64("ciphertext")},
	}
}

func TestValidate_AcceptsValidDeviceBundle(t *testing.T) {
	require.NoError(t, bundlever.Validate(validDeviceBundle(), bundlever.ValidateOptions{RequireStoreCtx: true}))
}

func TestValidate_RejectsUnsupportedVersion(t *testing.T) {
	b := validDeviceBundle()
	b.Header.V = 4
	require.Error(t, bundlever.Validate(b, bundlever.ValidateOptions{}))
}

func TestValidate_RoundsOneRequiresEmptySalt(t *testing.T) {
	b := validDeviceBundle()
	b.Header.Salt = b64("somesalt1234567890123456")
	require.Error(t, bundlever.Validate(b, bundlever.ValidateOptions{}))
}

func TestValidate_RoundsGreaterThanOneRequiresSalt(t *testing.T) {
	b := validDeviceBundle()
	b.Header.Rounds = 20
	b.Header.Salt = ""
	require.Error(t, bundlever.Validate(b, bundlever.ValidateOptions{}))

	b.Header.Salt = b64("0123456789abcdef")
	require.NoError(t, bundlever.Validate(b, bundlever.ValidateOptions{RequireStoreCtx: true}))
}

func TestValidate_RejectsPartialDataBlock(t *testing.T) {
	b := validDeviceBundle()
	b.Data.Ciphertext = ""
	require.Error(t, bundlever.Validate(b, bundlever.ValidateOptions{}))
}

func TestValidate_AcceptsEmptyDataBlock(t *testing.T) {
	b := validDeviceBundle()
	b.Data = bundlever.DataBlock{}
	require.NoError(t, bundlever.Validate(b, bundlever.ValidateOptions{RequireStoreCtx: true}))
}

func TestValidate_RejectsNonStoreCtxWhenRequired(t *testing.T) {
	b := validDeviceBundle()
	b.Header.Ctx = string(bundlever.CtxExport)
	require.Error(t, bundlever.Validate(b, bundlever.ValidateOptions{RequireStoreCtx: true}))
	require.NoError(t, bundlever.Validate(b, bundlever.ValidateOptions{RequireStoreCtx: false}))
}

func TestValidate_RejectsOversizeField(t *testing.T) {
	b := validDeviceBundle()
	b.Header.WrappedKey = b64(string(make([]byte, bundlever.MaxFieldBytes+1)))
	require.Error(t, bundlever.Validate(b, bundlever.ValidateOptions{}))
}

func TestIsMasterProtected(t *testing.T) {
	truth := true
	falsity := false

	assert.True(t, bundlever.Bundle{Header: bundlever.Header{MPw: &truth}}.IsMasterProtected())
	assert.True(t, bundlever.Bundle{Header: bundlever.Header{Rounds: 20}}.IsMasterProtected())
	assert.False(t, bundlever.Bundle{Header: bundlever.Header{Rounds: 20, MPw: &falsity}}.IsMasterProtected())
	assert.False(t, bundlever.Bundle{Header: bundlever.Header{Rounds: 1}}.IsMasterProtected())
}

func TestAAD_DataAADDependsOnHeaderFields(t *testing.T) {
	b := validDeviceBundle()
	aad := bundlever.AADFor(bundlever.AADData, b, "app:sls")
	want := bundlever.BuildDataAAD(3, bundlever.CtxStore, "app:sls", b.Header.IV, b.Header.WrappedKey)
	assert.Equal(t, want, aad)

	flipped := b
	flipped.Header.WrappedKey = b64("different")
	assert.NotEqual(t, aad, bundlever.AADFor(bundlever.AADData, flipped, "app:sls"))
}

func TestAAD_DifferentStorageKeysDiffer(t *testing.T) {
	b := validDeviceBundle()
	a1 := bundlever.AADFor(bundlever.AADWrap, b, "app:sls")
	a2 := bundlever.AADFor(bundlever.AADWrap, b, "app:other")
	assert.NotEqual(t, a1, a2)
}

func TestAAD_ExportRootIsLiteral(t *testing.T) {
	b := validDeviceBundle()
	b.Header.Ctx = string(bundlever.CtxExport)
	aad := bundlever.AADFor(bundlever.AADWrap, b, "app:sls")
	assert.Equal(t, []byte("sls|wrap|v3|export"), aad)
}

func TestAAD_V2HasNoAAD(t *testing.T) {
	b := validDeviceBundle()
	b.Header.V = 2
	assert.Nil(t, bundlever.AADFor(bundlever.AADWrap, b, "app:sls"))
	assert.Nil(t, bundlever.AADFor(bundlever.AADData, b, "app:sls"))
}
