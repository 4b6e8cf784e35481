// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package devicekey

import (
	"context"
	"sync"
)

// memoryPersistent is a pure in-memory Persistent, for callers that pass
// it to NewStore instead of a durable key database (spec.md §4.3's "pure
// in-memory KEK" mode). Nothing switches to it automatically when a durable
// backend fails; Store.GetKey then keeps the key in its in-process cache.
type memoryPersistent struct {
	mu      sync.Mutex
	records map[string][]byte
}

// NewMemoryPersistent returns a Persistent backed by a process-local map.
// Records do not survive process restart.
func NewMemoryPersistent() Persistent {
	return &memoryPersistent{records: make(map[string][]byte)}
}

func (m *memoryPersistent) Load(_ context.Context, ns Namespace) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.records[ns.Key()]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, true, nil
}

func (m *memoryPersistent) Save(_ context.Context, ns Namespace, raw []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(raw))
	copy(cp, raw)
	m.records[ns.Key()] = cp
	return nil
}

func (m *memoryPersistent) Delete(_ context.Context, ns Namespace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, ns.Key())
	return nil
}
