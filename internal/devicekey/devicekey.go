// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package devicekey

import (
	"context"
	"sync"

	"github.com/sls-go/securelocalstore/internal/cipher"
	"github.com/sls-go/securelocalstore/internal/slog"
)

// Store provides a per-namespace non-extractable KEK, caching handles
// in-process and backing them with a Persistent implementation. It
// implements spec.md §4.3 in full: getKey, rotateKey, and deletePersistent.
type Store struct {
	mu         sync.Mutex
	cache      map[string]*cipher.KeyHandle
	persistent Persistent
	logger     *slog.Logger
}

// NewStore builds a Store over persistent. Pass NewMemoryPersistent() for a
// purely ephemeral device-key store.
func NewStore(persistent Persistent, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Nop()
	}
	return &Store{
		cache:      make(map[string]*cipher.KeyHandle),
		persistent: persistent,
		logger:     logger,
	}
}

// GetKey returns the cached in-process handle for ns if present; otherwise
// it loads the record from the persistent backend, or — if none exists —
// generates a fresh non-extractable KEK and attempts to persist it. A
// persistence failure does not prevent the key from being cached and
// returned: the namespace degrades to an in-memory-only KEK for the rest of
// the process lifetime.
func (s *Store) GetKey(ctx context.Context, ns Namespace) (*cipher.KeyHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if k, ok := s.cache[ns.Key()]; ok {
		return k, nil
	}

	raw, found, err := s.persistent.Load(ctx, ns)
	if err == nil && found {
		k := cipher.NewKeyHandle(raw, false, cipher.UsageWrap, cipher.UsageUnwrap)
		s.cache[ns.Key()] = k
		return k, nil
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("namespace", ns.Key()).Msg("device key load failed, generating fresh key")
	}

	k, genErr := freshDeviceKEK()
	if genErr != nil {
		return nil, genErr
	}

	if saveErr := s.persistent.Save(ctx, ns, k.Bytes()); saveErr != nil {
		s.logger.Warn().Err(saveErr).Str("namespace", ns.Key()).Msg("device key persistence failed, continuing in-memory only")
	}

	s.cache[ns.Key()] = k
	return k, nil
}

// RotateKey always generates a fresh KEK for ns, attempts to persist it, and
// updates the in-process cache — regardless of whether a record already
// existed.
func (s *Store) RotateKey(ctx context.Context, ns Namespace) (*cipher.KeyHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, err := freshDeviceKEK()
	if err != nil {
		return nil, err
	}

	if saveErr := s.persistent.Save(ctx, ns, k.Bytes()); saveErr != nil {
		s.logger.Warn().Err(saveErr).Str("namespace", ns.Key()).Msg("device key rotation persistence failed, continuing in-memory only")
	}

	s.cache[ns.Key()] = k
	return k, nil
}

// DeletePersistent removes the persisted record and the in-process cache
// entry for ns. Safe to call when no record exists.
func (s *Store) DeletePersistent(ctx context.Context, ns Namespace) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.cache, ns.Key())
	return s.persistent.Delete(ctx, ns)
}

func freshDeviceKEK() (*cipher.KeyHandle, error) {
	dek, err := cipher.GenerateDEK()
	if err != nil {
		return nil, err
	}
	return cipher.NewKeyHandle(dek.Bytes(), false, cipher.UsageWrap, cipher.UsageUnwrap), nil
}
