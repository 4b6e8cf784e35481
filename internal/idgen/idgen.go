// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package idgen generates string identifiers: the device-key-store keyId
// the facade uses when a caller leaves one unset. Adapted from the
// teacher's internal/utils/uuid.go UUIDGenerator.
package idgen

import "github.com/google/uuid"

// Generator creates string UUID values. Stateless and safe to reuse across
// goroutines.
type Generator struct{}

// New returns a Generator.
func New() Generator { return Generator{} }

// Generate returns a UUID string, preferring UUID v7 (time-ordered) and
// falling back to a random UUID if v7 generation fails.
func (Generator) Generate() string {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return v7.String()
}
