// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import "github.com/sls-go/securelocalstore/internal/kdf"

// validate checks that cfg satisfies the bounds the rest of the library
// enforces anyway, so a misconfigured demo fails at startup with a clear
// message instead of on the first KDF call.
func (cfg *Config) validate() error {
	if cfg.BoltPath == "" {
		return ErrInvalidBoltPath
	}
	if cfg.StorageKey == "" {
		return ErrInvalidStorageKey
	}
	if cfg.DefaultRounds != 0 && (cfg.DefaultRounds < kdf.MinRounds || cfg.DefaultRounds > kdf.MaxRounds) {
		return ErrInvalidDefaultRounds
	}
	return nil
}
