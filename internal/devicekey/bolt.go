// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package devicekey

import (
	"context"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/sls-go/securelocalstore/slserrors"
)

var deviceKeyBucket = []byte("device_keys")

// BoltPersistent is the durable Persistent backend: one record per
// Namespace, stored in a single bucket of an embedded bbolt database. This
// is the local-process analogue of the origin-bound IndexedDB key database
// spec.md §4.3 describes, grounded on the bucket-per-concern bbolt wiring
// in the rubin-protocol node store (db.go: Open, CreateBucketIfNotExists).
type BoltPersistent struct {
	db *bolt.DB
}

// OpenBoltPersistent opens (creating if necessary) a bbolt database file at
// path and ensures the device-key bucket exists.
func OpenBoltPersistent(path string) (*BoltPersistent, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, slserrors.NotSupportedf(err, "open device key database %q", path)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(deviceKeyBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, slserrors.NotSupportedf(err, "create device key bucket")
	}

	return &BoltPersistent{db: db}, nil
}

// Close releases the underlying bbolt file handle.
func (b *BoltPersistent) Close() error {
	return b.db.Close()
}

func (b *BoltPersistent) Load(_ context.Context, ns Namespace) ([]byte, bool, error) {
	var raw []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(deviceKeyBucket).Get([]byte(ns.Key()))
		if v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, slserrors.NotSupportedf(err, "read device key record %q", ns.Key())
	}
	return raw, raw != nil, nil
}

func (b *BoltPersistent) Save(_ context.Context, ns Namespace, raw []byte) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(deviceKeyBucket).Put([]byte(ns.Key()), raw)
	})
	if err != nil {
		return slserrors.NotSupportedf(err, "write device key record %q", ns.Key())
	}
	return nil
}

// Delete removes the single record for ns — a surgical delete within a
// shared bucket, per spec.md §4.3's requirement that deletePersistent not
// disturb other namespaces' records.
func (b *BoltPersistent) Delete(_ context.Context, ns Namespace) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(deviceKeyBucket).Delete([]byte(ns.Key()))
	})
	if err != nil {
		return slserrors.NotSupportedf(err, "delete device key record %q", ns.Key())
	}
	return nil
}
