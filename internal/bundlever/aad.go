// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package bundlever

import "fmt"

// BuildWrapAAD returns the UTF-8 bytes of "sls|wrap|v<version>|<root>",
// where root is storageKey when ctx is CtxStore, or the literal "export"
// otherwise. V2 bundles have no AAD; callers must not call this for V2.
func BuildWrapAAD(version int, ctx Context, storageKey string) []byte {
	return []byte(fmt.Sprintf("sls|wrap|v%d|%s", version, root(ctx, storageKey)))
}

// BuildDataAAD returns the UTF-8 bytes of
// "sls|data|v<version>|<root>|<ivWrap>|<wrappedKey>". Because ivWrap and
// wrappedKey are the header's own wrap fields, any change to the header
// invalidates the data ciphertext's AAD (spec.md §3).
func BuildDataAAD(version int, ctx Context, storageKey, ivWrapB64, wrappedKeyB64 string) []byte {
	return []byte(fmt.Sprintf("sls|data|v%d|%s|%s|%s", version, root(ctx, storageKey), ivWrapB64, wrappedKeyB64))
}

func root(ctx Context, storageKey string) string {
	if ctx == CtxStore {
		return storageKey
	}
	return string(CtxExport)
}

// AADKind selects which of the two AAD strings AADFor builds.
type AADKind string

const (
	AADWrap AADKind = "wrap"
	AADData AADKind = "data"
)

// AADFor returns the appropriate AAD for b's own (version, ctx, header
// fields), or nil for a V2 bundle (which carries no AAD at all). ctx
// defaults to CtxStore when b.Header.Ctx is empty, matching a V3 bundle
// that predates the ctx field being mandatory.
func AADFor(kind AADKind, b Bundle, storageKey string) []byte {
	if b.IsV2() {
		return nil
	}

	ctx := Context(b.Header.Ctx)
	if ctx == "" {
		ctx = CtxStore
	}

	switch kind {
	case AADWrap:
		return BuildWrapAAD(b.Header.V, ctx, storageKey)
	case AADData:
		return BuildDataAAD(b.Header.V, ctx, storageKey, b.Header.IV, b.Header.WrappedKey)
	default:
		return nil
	}
}
