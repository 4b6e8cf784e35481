// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package envelope implements spec.md §4.7's Envelope: the stateless
// DEK/KEK orchestration helpers consumed by the state machine — building a
// fresh store, decrypting/re-encrypting a payload under a new header, and
// loading a bundle's DEK into RAM under whichever KEK is currently active.
package envelope

import (
	"context"
	"encoding/base64"

	"github.com/sls-go/securelocalstore/internal/bundlever"
	"github.com/sls-go/securelocalstore/internal/cipher"
	"github.com/sls-go/securelocalstore/slserrors"
)

func decodeField(field, name string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(field)
	if err != nil {
		return nil, slserrors.Validationf(err, "%s is not valid base64", name)
	}
	return raw, nil
}

func encodeField(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}

// CreateEmpty builds a fresh V3, store-context bundle wrapping a new DEK
// under kek, with an empty ({}) encrypted payload. Used for the Initial →
// DeviceMode transition when no valid bundle exists yet. rounds/salt/mPw
// describe the new KEK's provenance and are embedded verbatim in the
// header (rounds=1, salt=nil, mPw=nil for a device KEK).
func CreateEmpty(ctx context.Context, kek *cipher.KeyHandle, storageKey string, rounds int, salt []byte, mPw *bool) (bundlever.Bundle, *cipher.KeyHandle, error) {
	dek, err := cipher.GenerateDEK()
	if err != nil {
		return bundlever.Bundle{}, nil, err
	}

	header, err := wrapHeader(ctx, dek, kek, storageKey, bundlever.CtxStore, rounds, salt, mPw)
	if err != nil {
		return bundlever.Bundle{}, nil, err
	}

	bundle := bundlever.Bundle{Header: header}
	dataAAD := bundlever.AADFor(bundlever.AADData, bundle, storageKey)
	sealed, err := cipher.Encrypt(ctx, dek, map[string]any{}, dataAAD)
	if err != nil {
		return bundlever.Bundle{}, nil, err
	}
	bundle.Data = bundlever.DataBlock{IV: encodeField(sealed.IV), Ciphertext: encodeField(sealed.Ciphertext)}

	return bundle, dek.WithExtractable(false, cipher.UsageEncrypt, cipher.UsageDecrypt), nil
}

// wrapHeader wraps dek under kek with the wrap AAD for a not-yet-built
// bundle at (version 3, ctx, rounds, salt), returning the completed Header.
func wrapHeader(ctx context.Context, dek, kek *cipher.KeyHandle, storageKey string, bctx bundlever.Context, rounds int, salt []byte, mPw *bool) (bundlever.Header, error) {
	extractableDEK := dek.WithExtractable(true, cipher.UsageWrap, cipher.UsageUnwrap, cipher.UsageEncrypt, cipher.UsageDecrypt)

	wrapAAD := bundlever.BuildWrapAAD(bundlever.CurrentVersion, bctx, storageKey)
	wrapped, err := cipher.Wrap(ctx, extractableDEK, kek, wrapAAD)
	if err != nil {
		return bundlever.Header{}, err
	}

	return bundlever.Header{
		V:          bundlever.CurrentVersion,
		Salt:       encodeField(salt),
		Rounds:     rounds,
		IV:         encodeField(wrapped.IVWrap),
		WrappedKey: encodeField(wrapped.WrappedKey),
		MPw:        mPw,
		Ctx:        string(bctx),
	}, nil
}

// EnsureLoaded unwraps bundle's DEK under kek, using the wrap AAD derived
// from bundle's own (version, ctx, storageKey). Pass forWrapping=true when
// the caller needs to immediately re-wrap the DEK (a mode transition);
// otherwise the returned handle is non-extractable and usable only for
// encrypt/decrypt.
func EnsureLoaded(ctx context.Context, kek *cipher.KeyHandle, bundle bundlever.Bundle, storageKey string, forWrapping bool) (*cipher.KeyHandle, error) {
	ivWrap, err := decodeField(bundle.Header.IV, "header.iv")
	if err != nil {
		return nil, err
	}
	wrappedKey, err := decodeField(bundle.Header.WrappedKey, "header.wrappedKey")
	if err != nil {
		return nil, err
	}

	wrapAAD := bundlever.AADFor(bundlever.AADWrap, bundle, storageKey)
	return cipher.Unwrap(ctx, ivWrap, wrappedKey, kek, forWrapping, wrapAAD)
}

// DecryptPayload decrypts bundle's data block with dek under the data AAD
// derived from bundle's own header fields, unmarshaling into a value of
// type T. V2 bundles are decrypted with no AAD.
func DecryptPayload[T any](ctx context.Context, dek *cipher.KeyHandle, bundle bundlever.Bundle, storageKey string) (T, error) {
	var zero T
	if bundle.EmptyPayload() {
		return zero, nil
	}

	iv, err := decodeField(bundle.Data.IV, "data.iv")
	if err != nil {
		return zero, err
	}
	ct, err := decodeField(bundle.Data.Ciphertext, "data.ciphertext")
	if err != nil {
		return zero, err
	}

	dataAAD := bundlever.AADFor(bundlever.AADData, bundle, storageKey)
	return cipher.Decrypt[T](ctx, dek, cipher.Sealed{IV: iv, Ciphertext: ct}, dataAAD)
}

// EncryptPayload re-encrypts payload under bundle's existing header fields
// (i.e. the DEK/KEK wrap is unchanged), returning a new Bundle with the
// same Header and an updated Data block. Used by plain setData, where only
// the ciphertext changes.
func EncryptPayload(ctx context.Context, dek *cipher.KeyHandle, bundle bundlever.Bundle, payload any, storageKey string) (bundlever.Bundle, error) {
	out := bundlever.Bundle{Header: bundle.Header}
	dataAAD := bundlever.AADFor(bundlever.AADData, out, storageKey)

	sealed, err := cipher.Encrypt(ctx, dek, payload, dataAAD)
	if err != nil {
		return bundlever.Bundle{}, err
	}
	out.Data = bundlever.DataBlock{IV: encodeField(sealed.IV), Ciphertext: encodeField(sealed.Ciphertext)}
	return out, nil
}

// ReEncrypt implements every mode-transition re-encryption: it decrypts
// oldBundle's payload under dek and the old AAD, wraps dek (which must be
// extractable) under newKEK with a freshly generated nonce, and re-encrypts
// the same plaintext under the new header-bound AAD. The returned DEK
// handle is re-unwrapped non-extractable, ready for continued use.
func ReEncrypt(
	ctx context.Context,
	dek *cipher.KeyHandle,
	oldBundle bundlever.Bundle,
	oldStorageKey string,
	newKEK *cipher.KeyHandle,
	newRounds int,
	newSalt []byte,
	newMPw *bool,
	newCtx bundlever.Context,
	newStorageKey string,
) (bundlever.Bundle, *cipher.KeyHandle, error) {
	plaintext, err := DecryptPayload[map[string]any](ctx, dek, oldBundle, oldStorageKey)
	if err != nil {
		return bundlever.Bundle{}, nil, err
	}

	header, err := wrapHeader(ctx, dek, newKEK, newStorageKey, newCtx, newRounds, newSalt, newMPw)
	if err != nil {
		return bundlever.Bundle{}, nil, err
	}

	newBundle := bundlever.Bundle{Header: header}
	dataAAD := bundlever.AADFor(bundlever.AADData, newBundle, newStorageKey)
	sealed, err := cipher.Encrypt(ctx, dek, plaintext, dataAAD)
	if err != nil {
		return bundlever.Bundle{}, nil, err
	}
	newBundle.Data = bundlever.DataBlock{IV: encodeField(sealed.IV), Ciphertext: encodeField(sealed.Ciphertext)}

	usableDEK, err := EnsureLoaded(ctx, newKEK, newBundle, newStorageKey, false)
	if err != nil {
		return bundlever.Bundle{}, nil, err
	}

	return newBundle, usableDEK, nil
}
