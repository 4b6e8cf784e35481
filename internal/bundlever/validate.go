// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package bundlever

import (
	"encoding/base64"

	"github.com/sls-go/securelocalstore/slserrors"
)

// ValidateOptions controls the context-dependent invariant checks of
// Validate.
type ValidateOptions struct {
	// RequireStoreCtx enforces spec.md §3 invariant 6: a bundle persisted
	// locally must have ctx == "store" if it declares a ctx at all. Set
	// this when validating a bundle freshly loaded from the KV slot;
	// leave it false when validating an import/export bundle.
	RequireStoreCtx bool
}

// Validate enforces every invariant in spec.md §3 against b, returning a
// *slserrors.Error of kind KindValidation on the first violation found.
func Validate(b Bundle, opts ValidateOptions) error {
	if b.Header.V != LegacyVersion && b.Header.V != CurrentVersion {
		return slserrors.Validationf(nil, "unsupported bundle version %d", b.Header.V)
	}

	if b.Header.Rounds <= 0 {
		return slserrors.Validationf(nil, "rounds must be a positive integer, got %d", b.Header.Rounds)
	}
	if b.Header.Rounds == 1 && b.Header.Salt != "" {
		return slserrors.Validationf(nil, "rounds == 1 requires an empty salt")
	}
	if b.Header.Rounds > 1 {
		if err := requireBase64(b.Header.Salt, "salt"); err != nil {
			return err
		}
	}

	if err := requireBase64(b.Header.IV, "header.iv"); err != nil {
		return err
	}
	if err := requireBase64(b.Header.WrappedKey, "header.wrappedKey"); err != nil {
		return err
	}

	dataEmpty := b.Data.IV == "" && b.Data.Ciphertext == ""
	dataFull := b.Data.IV != "" && b.Data.Ciphertext != ""
	if !dataEmpty && !dataFull {
		return slserrors.Validationf(nil, "data.iv and data.ciphertext must both be empty or both be non-empty")
	}
	if dataFull {
		if err := requireBase64(b.Data.IV, "data.iv"); err != nil {
			return err
		}
		if err := requireBase64(b.Data.Ciphertext, "data.ciphertext"); err != nil {
			return err
		}
	}

	if b.IsV3() {
		if b.Header.Ctx != "" && b.Header.Ctx != string(CtxStore) && b.Header.Ctx != string(CtxExport) {
			return slserrors.Validationf(nil, "unsupported ctx %q", b.Header.Ctx)
		}
		if opts.RequireStoreCtx && b.Header.Ctx != "" && b.Header.Ctx != string(CtxStore) {
			return slserrors.Validationf(nil, "bundle persisted locally must have ctx=%q, got %q", CtxStore, b.Header.Ctx)
		}
	}

	return nil
}

// requireBase64 enforces the field-length guard (spec.md §3 invariant 8)
// before decoding, then confirms the field is both non-empty and valid
// base64 (invariant 3).
func requireBase64(field, name string) error {
	if field == "" {
		return slserrors.Validationf(nil, "%s must not be empty", name)
	}
	if len(field) > MaxFieldBytes {
		return slserrors.Validationf(nil, "%s exceeds max encoded length of %d bytes", name, MaxFieldBytes)
	}
	if _, err := base64.StdEncoding.DecodeString(field); err != nil {
		return slserrors.Validationf(err, "%s is not valid base64", name)
	}
	return nil
}
