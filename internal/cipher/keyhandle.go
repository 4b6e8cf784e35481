// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package cipher

// Usage names one operation a KeyHandle is permitted to perform, mirroring
// the WebCrypto usage list the original spec's key objects carry.
type Usage string

const (
	UsageEncrypt Usage = "encrypt"
	UsageDecrypt Usage = "decrypt"
	UsageWrap    Usage = "wrap"
	UsageUnwrap  Usage = "unwrap"
)

// Algorithm identifies the declared algorithm of a KeyHandle. AES-256-GCM is
// the only algorithm this package accepts.
const AlgorithmAESGCM256 = "AES-GCM-256"

// KeyHandle represents an AES-256-GCM key together with the metadata the
// original WebCrypto API would track on a CryptoKey: its declared algorithm,
// its bit length, whether it is extractable, and which operations it may be
// used for.
//
// Raw bytes are kept on the handle for the lifetime of the process — Go has
// no non-extractable key primitive — but callers outside this package
// should treat Extractable == false handles as if the bytes were opaque:
// Envelope only ever reads Bytes() through Cipher methods, never copies it
// elsewhere, and rotate/wrap flows re-derive a fresh extractable handle
// instead of flipping the flag on an existing one.
type KeyHandle struct {
	bytes       []byte
	extractable bool
	usages      map[Usage]bool
	algorithm   string
	lengthBits  int
}

// NewKeyHandle builds a KeyHandle over raw for AES-GCM-256, restricted to
// usages. raw must be exactly 32 bytes (256 bits).
func NewKeyHandle(raw []byte, extractable bool, usages ...Usage) *KeyHandle {
	set := make(map[Usage]bool, len(usages))
	for _, u := range usages {
		set[u] = true
	}
	return &KeyHandle{
		bytes:       raw,
		extractable: extractable,
		usages:      set,
		algorithm:   AlgorithmAESGCM256,
		lengthBits:  len(raw) * 8,
	}
}

// Bytes returns the raw key material. Within this module it is called by
// Cipher and by devicekey.Store, which persists device KEK bytes.
func (k *KeyHandle) Bytes() []byte { return k.bytes }

// Extractable reports whether this handle's bytes may be re-exported (used
// during mode transitions, when a DEK must be briefly re-wrapped).
func (k *KeyHandle) Extractable() bool { return k.extractable }

// HasUsage reports whether u is among the usages this handle was created
// with.
func (k *KeyHandle) HasUsage(u Usage) bool { return k.usages[u] }

// Algorithm returns the declared algorithm string.
func (k *KeyHandle) Algorithm() string { return k.algorithm }

// LengthBits returns the declared key length in bits.
func (k *KeyHandle) LengthBits() int { return k.lengthBits }

// WithExtractable returns a new handle over the same bytes, differing only
// in the extractable flag and (optionally) the usage set. Used when a DEK
// must be temporarily treated as extractable for a single wrap call.
func (k *KeyHandle) WithExtractable(extractable bool, usages ...Usage) *KeyHandle {
	if len(usages) == 0 {
		usages = k.usageList()
	}
	return NewKeyHandle(k.bytes, extractable, usages...)
}

func (k *KeyHandle) usageList() []Usage {
	out := make([]Usage, 0, len(k.usages))
	for u := range k.usages {
		out = append(out, u)
	}
	return out
}
