// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package kvstore implements spec.md §4.4's KVStore: a single named string
// slot, backed by an in-memory map or a durable go.etcd.io/bbolt bucket —
// the local-process analogue of a browser's localStorage.setItem/getItem
// on one key.
package kvstore

import "context"

// KVStore reads, writes, and clears the one string slot it was constructed
// for (its storageKey is fixed at construction, matching the facade's own
// storageKey-scoped view of the world).
type KVStore interface {
	// Get returns the stored value and true, or ("", false, nil) if the
	// slot is absent. The value is returned as stored, without parsing;
	// statemachine.Initialize treats content that is not valid JSON as
	// absent (spec.md §4.4: "malformed JSON yields null").
	Get(ctx context.Context) (string, bool, error)
	// Set stores value, then reads it back and compares; a mismatch
	// surfaces as a PersistenceError. A write rejected for quota reasons
	// surfaces as a StorageFullError.
	Set(ctx context.Context, value string) error
	// Clear best-effort removes the slot. It never returns an error.
	Clear(ctx context.Context)
}
