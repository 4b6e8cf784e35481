// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package bundlever implements spec.md §4.6's VersionManager: the V2/V3
// bundle data model, structural/semantic validation of both persisted and
// exported bundles, and the additional-authenticated-data byte strings that
// bind V3 ciphertext to its header and storage context.
package bundlever

// Context names the AAD root a V3 bundle was produced for.
type Context string

const (
	// CtxStore marks a bundle persisted in the local KV slot; its AAD root
	// is the facade's storageKey.
	CtxStore Context = "store"
	// CtxExport marks a portable bundle; its AAD root is the literal
	// string "export".
	CtxExport Context = "export"
)

const (
	// LegacyVersion is the only version this package ever reads without
	// AAD support.
	LegacyVersion = 2
	// CurrentVersion is the only version this package ever writes. It
	// resolves spec.md §9's "DATA_VERSION exposed as 2 vs 3" open
	// question in favor of the migration target.
	CurrentVersion = 3

	// MaxFieldBytes bounds any individual base64 field's encoded length,
	// checked before the field is decoded (spec.md §3 invariant 8).
	MaxFieldBytes = 1 << 20
)

// Header is the wrap-side metadata of a bundle: salt/rounds/iv/wrappedKey
// describe how the DEK is protected; Ctx (V3 only) names the AAD context.
type Header struct {
	V          int    `json:"v"`
	Salt       string `json:"salt"`
	Rounds     int    `json:"rounds"`
	IV         string `json:"iv"`
	WrappedKey string `json:"wrappedKey"`
	MPw        *bool  `json:"mPw,omitempty"`
	Ctx        string `json:"ctx,omitempty"`
}

// DataBlock is the encrypted user payload: an AES-GCM nonce and ciphertext,
// both base64.
type DataBlock struct {
	IV         string `json:"iv"`
	Ciphertext string `json:"ciphertext"`
}

// Bundle is a full persisted-or-exported document: header plus data.
type Bundle struct {
	Header Header    `json:"header"`
	Data   DataBlock `json:"data"`
}

// IsV2 reports whether b declares the legacy version.
func (b Bundle) IsV2() bool { return b.Header.V == LegacyVersion }

// IsV3 reports whether b declares the current version.
func (b Bundle) IsV3() bool { return b.Header.V == CurrentVersion }

// IsMasterProtected reports whether b is classified as master-password
// protected: mPw is explicitly true, or rounds > 1 and mPw is not
// explicitly false. Otherwise b is device-bound (when persisted) or
// custom-export-password-protected (when exported with rounds > 1 and
// mPw == false).
func (b Bundle) IsMasterProtected() bool {
	explicitlyFalse := b.Header.MPw != nil && !*b.Header.MPw
	if b.Header.MPw != nil && *b.Header.MPw {
		return true
	}
	return b.Header.Rounds > 1 && !explicitlyFalse
}

// EmptyPayload reports whether b's data block has no ciphertext at all
// (the "both empty" arm of spec.md §3 invariant 4).
func (b Bundle) EmptyPayload() bool {
	return b.Data.IV == "" && b.Data.Ciphertext == ""
}
