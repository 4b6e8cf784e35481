// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package slserrors defines the typed error taxonomy used across
// securelocalstore. Every public operation of the facade returns an error
// that is either nil or an *Error whose Kind is one of the constants below,
// so callers can branch with errors.As/errors.Is instead of string
// matching. The one exception is a context that ends while an operation
// waits for the readiness barrier: that returns ctx.Err() unwrapped.
package slserrors

import (
	"errors"
	"fmt"
)

// Kind identifies one of the nine error classes spec.md §6/§7 requires.
type Kind string

const (
	// KindValidation marks bad argument shape: malformed base64/JSON, wrong
	// IV length, wrong key usages/algorithm/length, a non-plain payload.
	KindValidation Kind = "validation"
	// KindLocked marks an operation that requires an unlocked session while
	// the store is Locked, or access to a wiped DataView.
	KindLocked Kind = "locked"
	// KindMode marks an operation that is incompatible with the current
	// StateMachine mode (e.g. rotateKeys in master mode).
	KindMode Kind = "mode"
	// KindStorageFull marks a KV write rejected for quota reasons.
	KindStorageFull Kind = "storage_full"
	// KindPersistence marks a KV integrity check failure or an
	// unclassified write error.
	KindPersistence Kind = "persistence"
	// KindCrypto marks an AES-GCM authentication failure, a KDF failure, or
	// an unexpected primitive rejection not caused by argument shape.
	KindCrypto Kind = "crypto"
	// KindImport marks any structural, semantic, size, or authentication
	// failure encountered while importing a bundle.
	KindImport Kind = "import"
	// KindExport marks exportData called without a usable password.
	KindExport Kind = "export"
	// KindNotSupported marks a device key store unavailable beyond its
	// in-memory fallback.
	KindNotSupported Kind = "not_supported"
)

// Error is the common root every securelocalstore error derives from.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("securelocalstore: %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("securelocalstore: %s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

func newErr(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// New constructs an *Error of the given kind wrapping cause (which may be
// nil). Use the Is* helpers below to classify an existing error.
func New(kind Kind, msg string, cause error) *Error {
	return newErr(kind, msg, cause)
}

// Validationf builds a KindValidation error.
func Validationf(cause error, format string, args ...any) *Error {
	return newErr(KindValidation, fmt.Sprintf(format, args...), cause)
}

// Lockedf builds a KindLocked error.
func Lockedf(format string, args ...any) *Error {
	return newErr(KindLocked, fmt.Sprintf(format, args...), nil)
}

// Modef builds a KindMode error.
func Modef(format string, args ...any) *Error {
	return newErr(KindMode, fmt.Sprintf(format, args...), nil)
}

// StorageFullf builds a KindStorageFull error; attemptedBytes records the
// size of the write that was rejected.
func StorageFullf(attemptedBytes int, cause error) *Error {
	return newErr(KindStorageFull, fmt.Sprintf("storage quota exceeded writing %d bytes", attemptedBytes), cause)
}

// Persistencef builds a KindPersistence error.
func Persistencef(cause error, format string, args ...any) *Error {
	return newErr(KindPersistence, fmt.Sprintf(format, args...), cause)
}

// Cryptof builds a KindCrypto error.
func Cryptof(cause error, format string, args ...any) *Error {
	return newErr(KindCrypto, fmt.Sprintf(format, args...), cause)
}

// Importf builds a KindImport error.
func Importf(cause error, format string, args ...any) *Error {
	return newErr(KindImport, fmt.Sprintf(format, args...), cause)
}

// Exportf builds a KindExport error.
func Exportf(format string, args ...any) *Error {
	return newErr(KindExport, fmt.Sprintf(format, args...), nil)
}

// NotSupportedf builds a KindNotSupported error.
func NotSupportedf(cause error, format string, args ...any) *Error {
	return newErr(KindNotSupported, fmt.Sprintf(format, args...), cause)
}

// Is reports whether err (or something in its chain) is of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
