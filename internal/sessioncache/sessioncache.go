// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package sessioncache implements spec.md §4.5's SessionCache: a RAM-only
// cache holding at most one derived KEK, keyed by (salt, rounds). Kept
// deliberately minimal — a mutex-guarded struct — since spec.md never asks
// for more than one entry.
package sessioncache

import (
	"encoding/base64"
	"sync"

	"github.com/sls-go/securelocalstore/internal/cipher"
)

// Cache holds (KEK, saltB64, rounds); cleared on lock, on mode change, and
// whenever the owning facade tears down.
type Cache struct {
	mu     sync.Mutex
	kek    *cipher.KeyHandle
	saltB  string
	rounds int
	set    bool
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{}
}

// Set overwrites the cached entry with kek, derived from (salt, rounds).
func (c *Cache) Set(kek *cipher.KeyHandle, salt []byte, rounds int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kek = kek
	c.saltB = base64.StdEncoding.EncodeToString(salt)
	c.rounds = rounds
	c.set = true
}

// Match returns the cached KEK iff both salt and rounds match the cached
// entry exactly; otherwise it returns (nil, false).
func (c *Cache) Match(salt []byte, rounds int) (*cipher.KeyHandle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.set || c.rounds != rounds {
		return nil, false
	}
	if c.saltB != base64.StdEncoding.EncodeToString(salt) {
		return nil, false
	}
	return c.kek, true
}

// Clear drops the cached key reference.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kek = nil
	c.saltB = ""
	c.rounds = 0
	c.set = false
}
