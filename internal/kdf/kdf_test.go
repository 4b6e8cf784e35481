package kdf_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sls-go/securelocalstore/internal/cipher"
	"github.com/sls-go/securelocalstore/internal/kdf"
	"github.com/sls-go/securelocalstore/slserrors"
)

func TestDeriveKEK_DeterministicForSameInputs(t *testing.T) {
	ctx := context.Background()
	salt := bytes.Repeat([]byte{0xAB}, kdf.SaltLen)

	k1, err := kdf.DeriveKEK(ctx, "correct horse battery staple", salt, kdf.DefaultRounds)
	require.NoError(t, err)
	k2, err := kdf.DeriveKEK(ctx, "correct horse battery staple", salt, kdf.DefaultRounds)
	require.NoError(t, err)

	assert.Equal(t, k1.Bytes(), k2.Bytes())
	assert.Len(t, k1.Bytes(), 32)
	assert.False(t, k1.Extractable())
	assert.True(t, k1.HasUsage(cipher.UsageWrap))
	assert.True(t, k1.HasUsage(cipher.UsageUnwrap))
}

func TestDeriveKEK_DifferentSaltDiffers(t *testing.T) {
	ctx := context.Background()
	salt1 := bytes.Repeat([]byte{0x01}, kdf.SaltLen)
	salt2 := bytes.Repeat([]byte{0x02}, kdf.SaltLen)

	k1, err := kdf.DeriveKEK(ctx, "same password", salt1, 2)
	require.NoError(t, err)
	k2, err := kdf.DeriveKEK(ctx, "same password", salt2, 2)
	require.NoError(t, err)

	assert.NotEqual(t, k1.Bytes(), k2.Bytes())
}

func TestDeriveKEK_RejectsEmptyPassword(t *testing.T) {
	ctx := context.Background()
	salt := bytes.Repeat([]byte{0xAB}, kdf.SaltLen)

	_, err := kdf.DeriveKEK(ctx, "", salt, kdf.DefaultRounds)
	require.Error(t, err)
	assert.True(t, slserrors.Is(err, slserrors.KindValidation))
}

func TestDeriveKEK_RejectsBadSaltLength(t *testing.T) {
	ctx := context.Background()
	_, err := kdf.DeriveKEK(ctx, "pw", []byte{1, 2, 3}, kdf.DefaultRounds)
	require.Error(t, err)
	assert.True(t, slserrors.Is(err, slserrors.KindValidation))
}

func TestDeriveKEK_RejectsOutOfRangeRounds(t *testing.T) {
	ctx := context.Background()
	salt := bytes.Repeat([]byte{0xAB}, kdf.SaltLen)

	_, err := kdf.DeriveKEK(ctx, "pw", salt, 0)
	require.Error(t, err)

	_, err = kdf.DeriveKEK(ctx, "pw", salt, 65)
	require.Error(t, err)
}
