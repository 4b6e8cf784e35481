// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package devicekey implements spec.md §4.3's DeviceKeyStore: a per-namespace
// provider of a non-extractable KEK, persisted in an origin-bound key
// database with an in-memory fallback. Namespaces are
// (dbName, storeName, keyId) triples, serialized "dbName::storeName::keyId"
// for the in-process cache, exactly as spec.md specifies.
package devicekey

//go:generate mockgen -source=interfaces.go -destination=mock/mock_persistent.go -package=mock

import "context"

// Namespace identifies one device-KEK record.
type Namespace struct {
	DBName    string
	StoreName string
	KeyID     string
}

// Key returns the in-process cache key "dbName::storeName::keyId".
func (n Namespace) Key() string {
	return n.DBName + "::" + n.StoreName + "::" + n.KeyID
}

// Persistent is the origin-bound key database this package wraps: a place
// to durably store one record per Namespace, holding the raw KEK bytes. A
// real browser
// would back this with IndexedDB; this module's default backend is
// go.etcd.io/bbolt (see BoltPersistent), with an in-memory implementation
// available for tests and for callers who accept purely ephemeral device
// keys.
type Persistent interface {
	// Load returns the raw key bytes stored for ns, or (nil, false) if
	// absent. Returns an error only on a genuine I/O failure.
	Load(ctx context.Context, ns Namespace) ([]byte, bool, error)
	// Save durably stores raw under ns, replacing any existing record.
	Save(ctx context.Context, ns Namespace, raw []byte) error
	// Delete removes the record for ns, if any. Deleting a missing record
	// is not an error.
	Delete(ctx context.Context, ns Namespace) error
}
