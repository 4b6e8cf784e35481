// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package securelocalstore

import (
	"github.com/sls-go/securelocalstore/slserrors"
)

// DataView is a read-only, wipeable view of a decrypted payload returned by
// Store.GetData. It owns a private copy of the plaintext so a caller-held
// view survives subsequent writes to the store; Clear makes the view itself
// unusable without touching the underlying store.
//
// Grounded on spec.md §9's "Dynamic proxy view" design note: Go has no
// language-level proxy, so this is the wrapper-plus-wipe-flag translation —
// a struct owning the plaintext and a cleared bool, with every accessor
// checking the flag first.
type DataView[T any] struct {
	payload map[string]any
	typed   T
	cleared bool
}

func newDataView[T any](payload map[string]any, typed T) *DataView[T] {
	return &DataView[T]{payload: payload, typed: typed}
}

// Get returns the fully-typed decrypted payload. Returns a LockedError once
// the view has been cleared.
func (v *DataView[T]) Get() (T, error) {
	var zero T
	if v.cleared {
		return zero, slserrors.Lockedf("data view has been cleared")
	}
	return v.typed, nil
}

// Keys enumerates the payload's top-level keys plus the literal "clear",
// matching spec.md §8 invariant 4's enumerable-surface requirement. Returns
// a LockedError once the view has been cleared.
func (v *DataView[T]) Keys() ([]string, error) {
	if v.cleared {
		return nil, slserrors.Lockedf("data view has been cleared")
	}
	keys := make([]string, 0, len(v.payload)+1)
	for k := range v.payload {
		keys = append(keys, k)
	}
	keys = append(keys, "clear")
	return keys, nil
}

// Has reports whether key is present among the payload's top-level keys or
// is the literal "clear". Returns a LockedError once the view has been
// cleared.
func (v *DataView[T]) Has(key string) (bool, error) {
	if v.cleared {
		return false, slserrors.Lockedf("data view has been cleared")
	}
	if key == "clear" {
		return true, nil
	}
	_, ok := v.payload[key]
	return ok, nil
}

// Clear wipes this view's copy of the plaintext. It never fails and never
// touches the underlying store: a fresh GetData call still returns the same
// data, per spec.md §8 scenario S1.
func (v *DataView[T]) Clear() {
	v.payload = nil
	var zero T
	v.typed = zero
	v.cleared = true
}

// Cleared reports whether Clear has been called on this view.
func (v *DataView[T]) Cleared() bool { return v.cleared }
