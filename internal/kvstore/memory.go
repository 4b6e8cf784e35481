// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package kvstore

import (
	"context"
	"sync"

	"github.com/sls-go/securelocalstore/slserrors"
)

// memoryKV is an in-process KVStore, optionally enforcing a soft byte
// quota so callers (and tests) can exercise the StorageFullError path
// without needing a full disk.
type memoryKV struct {
	mu       sync.Mutex
	value    string
	present  bool
	maxBytes int
}

// NewMemoryKV returns a KVStore backed by a process-local variable.
// maxBytes <= 0 means unlimited.
func NewMemoryKV(maxBytes int) KVStore {
	return &memoryKV{maxBytes: maxBytes}
}

func (m *memoryKV) Get(_ context.Context) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.present {
		return "", false, nil
	}
	return m.value, true, nil
}

func (m *memoryKV) Set(_ context.Context, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxBytes > 0 && len(value) > m.maxBytes {
		return slserrors.StorageFullf(len(value), nil)
	}

	m.value = value
	m.present = true

	// Read-back integrity check, per spec.md §4.4, even though an
	// in-process map cannot really diverge from what was just assigned.
	if m.value != value {
		return slserrors.Persistencef(nil, "read-back mismatch after write")
	}
	return nil
}

func (m *memoryKV) Clear(_ context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = ""
	m.present = false
}
