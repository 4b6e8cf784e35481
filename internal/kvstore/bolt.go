// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package kvstore

import (
	"context"

	bolt "go.etcd.io/bbolt"

	"github.com/sls-go/securelocalstore/internal/slog"
	"github.com/sls-go/securelocalstore/slserrors"
)

var kvBucket = []byte("site_local_kv")

// boltKV is the durable KVStore backend, one bbolt bucket shared across
// storage keys, grounded on the same bucket-per-concern wiring used by
// devicekey.BoltPersistent.
type boltKV struct {
	db         *bolt.DB
	storageKey string
	logger     *slog.Logger
}

// OpenBoltKV opens (creating if necessary) db's KV bucket and returns a
// KVStore scoped to storageKey. Multiple storage keys may share the same
// underlying *bolt.DB; pass the same handle and a different storageKey.
func OpenBoltKV(db *bolt.DB, storageKey string, logger *slog.Logger) (KVStore, error) {
	if logger == nil {
		logger = slog.Nop()
	}
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(kvBucket)
		return err
	})
	if err != nil {
		return nil, slserrors.Persistencef(err, "create kv bucket")
	}
	return &boltKV{db: db, storageKey: storageKey, logger: logger}, nil
}

func (b *boltKV) Get(_ context.Context) (string, bool, error) {
	var raw []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(kvBucket).Get([]byte(b.storageKey))
		if v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return "", false, slserrors.Persistencef(err, "read storage key %q", b.storageKey)
	}
	if raw == nil {
		return "", false, nil
	}
	return string(raw), true, nil
}

func (b *boltKV) Set(_ context.Context, value string) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(kvBucket).Put([]byte(b.storageKey), []byte(value))
	})
	if err != nil {
		if isQuotaError(err) {
			return slserrors.StorageFullf(len(value), err)
		}
		return slserrors.Persistencef(err, "write storage key %q", b.storageKey)
	}

	got, found, readErr := b.Get(context.Background())
	if readErr != nil {
		return slserrors.Persistencef(readErr, "read back storage key %q", b.storageKey)
	}
	if !found || got != value {
		return slserrors.Persistencef(nil, "read-back mismatch for storage key %q", b.storageKey)
	}
	return nil
}

func (b *boltKV) Clear(_ context.Context) {
	_ = b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(kvBucket).Delete([]byte(b.storageKey))
	})
}
