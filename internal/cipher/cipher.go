// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package cipher implements the external AES-256-GCM primitive spec.md §4.1
// describes as Cipher: encrypt/decrypt of the user payload, and wrap/unwrap
// of a DEK under a KEK. It is a thin validating wrapper around the standard
// library's crypto/aes and crypto/cipher, in the same shape as the
// teacher's internal/crypto/keychain.go (nonce-prepended AES-GCM blobs),
// generalized with explicit AAD support and the usage/algorithm/length
// checks spec.md requires before invoking the primitive.
package cipher

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"io"

	"github.com/sls-go/securelocalstore/slserrors"
)

// NonceSize is the AES-GCM nonce length spec.md §4.1 mandates (96 bits).
const NonceSize = 12

// KeyLenBytes is the required AES-256 key length in bytes.
const KeyLenBytes = 32

// SaltSize is the length of a freshly generated Argon2id salt.
const SaltSize = 16

// DEKSize is the length of a freshly generated data-encryption key.
const DEKSize = 32

// Sealed holds an AES-GCM nonce paired with the ciphertext it protects.
type Sealed struct {
	IV         []byte
	Ciphertext []byte
}

// Wrapped holds the wrap nonce and wrapped key bytes produced by Wrap.
type Wrapped struct {
	IVWrap     []byte
	WrappedKey []byte
}

// GenerateSalt returns 16 cryptographically random bytes, per spec.md §4.1.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, slserrors.Cryptof(err, "generate salt")
	}
	return salt, nil
}

// GenerateDEK returns a fresh, extractable 256-bit AES-GCM key usable for
// encrypt/decrypt/wrap/unwrap, per spec.md §4.1.
func GenerateDEK() (*KeyHandle, error) {
	raw := make([]byte, DEKSize)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return nil, slserrors.Cryptof(err, "generate DEK")
	}
	return NewKeyHandle(raw, true, UsageEncrypt, UsageDecrypt, UsageWrap, UsageUnwrap), nil
}

func validateKey(k *KeyHandle, need Usage) error {
	if k == nil {
		return slserrors.Validationf(nil, "key is required")
	}
	if k.Algorithm() != AlgorithmAESGCM256 {
		return slserrors.Validationf(nil, "unsupported key algorithm %q", k.Algorithm())
	}
	if k.LengthBits() != 256 {
		return slserrors.Validationf(nil, "unsupported key length %d bits, want 256", k.LengthBits())
	}
	if !k.HasUsage(need) {
		return slserrors.Validationf(nil, "key missing required usage %q", need)
	}
	return nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, slserrors.Cryptof(err, "create AES cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, slserrors.Cryptof(err, "create GCM mode")
	}
	return gcm, nil
}

// Encrypt JSON-serializes obj, generates a random 12-byte nonce, and seals
// it with key under aad (which may be nil for V2 bundles with no AAD).
func Encrypt(_ context.Context, key *KeyHandle, obj any, aad []byte) (Sealed, error) {
	if err := validateKey(key, UsageEncrypt); err != nil {
		return Sealed{}, err
	}

	plaintext, err := json.Marshal(obj)
	if err != nil {
		return Sealed{}, slserrors.Validationf(err, "marshal plaintext payload")
	}

	gcm, err := newGCM(key.Bytes())
	if err != nil {
		return Sealed{}, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return Sealed{}, slserrors.Cryptof(err, "generate encrypt nonce")
	}

	ct := gcm.Seal(nil, nonce, plaintext, aad)
	return Sealed{IV: nonce, Ciphertext: ct}, nil
}

// Decrypt opens a Sealed blob with key under aad and JSON-unmarshals the
// plaintext into a new value of type T.
func Decrypt[T any](_ context.Context, key *KeyHandle, sealed Sealed, aad []byte) (T, error) {
	var zero T

	if err := validateKey(key, UsageDecrypt); err != nil {
		return zero, err
	}
	if len(sealed.IV) != NonceSize {
		return zero, slserrors.Validationf(nil, "iv length %d, want %d", len(sealed.IV), NonceSize)
	}
	if len(sealed.Ciphertext) == 0 {
		return zero, slserrors.Validationf(nil, "ciphertext is empty")
	}

	gcm, err := newGCM(key.Bytes())
	if err != nil {
		return zero, err
	}

	plaintext, err := gcm.Open(nil, sealed.IV, sealed.Ciphertext, aad)
	if err != nil {
		return zero, slserrors.Cryptof(err, "authentication failed")
	}

	var out T
	if err := json.Unmarshal(plaintext, &out); err != nil {
		return zero, slserrors.Validationf(err, "decrypted payload is not valid JSON")
	}
	return out, nil
}

// Wrap seals dek's raw bytes under kek using AES-GCM, returning a fresh wrap
// nonce and the wrapped key bytes. dek must be extractable.
func Wrap(_ context.Context, dek, kek *KeyHandle, aad []byte) (Wrapped, error) {
	if dek == nil || !dek.Extractable() {
		return Wrapped{}, slserrors.Validationf(nil, "DEK must be extractable to wrap")
	}
	if err := validateKey(kek, UsageWrap); err != nil {
		return Wrapped{}, err
	}

	gcm, err := newGCM(kek.Bytes())
	if err != nil {
		return Wrapped{}, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return Wrapped{}, slserrors.Cryptof(err, "generate wrap nonce")
	}

	wrapped := gcm.Seal(nil, nonce, dek.Bytes(), aad)
	return Wrapped{IVWrap: nonce, WrappedKey: wrapped}, nil
}

// Unwrap opens a wrapped DEK blob with kek, returning a KeyHandle. When
// forWrapping is true the returned handle is extractable and carries the
// wrap/unwrap usages in addition to encrypt/decrypt, for use in a re-wrap
// during a mode transition; otherwise it is non-extractable with only
// encrypt/decrypt usages.
func Unwrap(_ context.Context, ivWrap, wrappedKey []byte, kek *KeyHandle, forWrapping bool, aad []byte) (*KeyHandle, error) {
	if err := validateKey(kek, UsageUnwrap); err != nil {
		return nil, err
	}
	if len(ivWrap) != NonceSize {
		return nil, slserrors.Validationf(nil, "wrap iv length %d, want %d", len(ivWrap), NonceSize)
	}
	if len(wrappedKey) == 0 {
		return nil, slserrors.Validationf(nil, "wrapped key is empty")
	}

	gcm, err := newGCM(kek.Bytes())
	if err != nil {
		return nil, err
	}

	raw, err := gcm.Open(nil, ivWrap, wrappedKey, aad)
	if err != nil {
		return nil, slserrors.Cryptof(err, "unwrap authentication failed")
	}
	if len(raw) != KeyLenBytes {
		return nil, slserrors.Cryptof(nil, "unwrapped key length %d, want %d", len(raw), KeyLenBytes)
	}

	if forWrapping {
		return NewKeyHandle(raw, true, UsageWrap, UsageUnwrap, UsageEncrypt, UsageDecrypt), nil
	}
	return NewKeyHandle(raw, false, UsageEncrypt, UsageDecrypt), nil
}
