// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package kdf implements the memory-hard PasswordKDF spec.md §4.2
// describes: derivation of a non-extractable 256-bit KEK from a password,
// salt, and round count via Argon2id. Grounded on the teacher's
// internal/crypto/keychain.go GenerateKEK, with the parameters and bounds
// spec.md fixes instead of the teacher's OWASP defaults.
package kdf

import (
	"context"

	"golang.org/x/crypto/argon2"

	"github.com/sls-go/securelocalstore/internal/cipher"
	"github.com/sls-go/securelocalstore/slserrors"
)

const (
	// argonMemoryKiB is the fixed Argon2id memory cost, per spec.md §4.2.
	argonMemoryKiB = 65536
	// argonParallelism is the fixed Argon2id parallelism, per spec.md §4.2.
	argonParallelism = 1
	// argonKeyLen is the derived key length in bytes (256 bits).
	argonKeyLen = 32

	// MinRounds and MaxRounds bound the accepted "rounds" (Argon2id time
	// cost) parameter, per spec.md §4.2.
	MinRounds = 1
	MaxRounds = 64

	// DefaultRounds is used whenever a caller does not specify rounds.
	DefaultRounds = 20

	// SaltLen is the required salt length for password-derived KEKs.
	SaltLen = 16
)

// DeriveKEK derives a non-extractable 256-bit AES-GCM key from password and
// salt using Argon2id with time cost rounds. The returned handle carries
// only the wrap/unwrap usages, matching spec.md §4.2.
func DeriveKEK(_ context.Context, password string, salt []byte, rounds int) (*cipher.KeyHandle, error) {
	if password == "" {
		return nil, slserrors.Validationf(nil, "password must not be empty")
	}
	if len(salt) != SaltLen {
		return nil, slserrors.Validationf(nil, "salt length %d, want %d", len(salt), SaltLen)
	}
	if rounds < MinRounds || rounds > MaxRounds {
		return nil, slserrors.Validationf(nil, "rounds %d out of range [%d,%d]", rounds, MinRounds, MaxRounds)
	}

	raw, err := deriveArgon2id(password, salt, uint32(rounds))
	if err != nil {
		return nil, err
	}
	if len(raw) != argonKeyLen {
		return nil, slserrors.Cryptof(nil, "unexpected KDF output length %d, want %d", len(raw), argonKeyLen)
	}

	return cipher.NewKeyHandle(raw, false, cipher.UsageWrap, cipher.UsageUnwrap), nil
}

// deriveArgon2id is split out so tests can probe the raw derivation without
// going through the KeyHandle wrapper.
func deriveArgon2id(password string, salt []byte, rounds uint32) (raw []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			raw, err = nil, slserrors.Cryptof(nil, "argon2id panicked: %v", r)
		}
	}()
	return argon2.IDKey([]byte(password), salt, rounds, argonMemoryKiB, argonParallelism, argonKeyLen), nil
}
