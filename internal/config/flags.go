// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import "flag"

// RegisterFlags binds cfg's fields to fs, using the env-loaded value of
// each field as the flag's default — so a flag only overrides cfg when the
// caller explicitly passes it, matching the teacher's env-then-flag
// precedence without a separate merge pass.
func (cfg *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&cfg.BoltPath, "bolt-path", cfg.BoltPath, "path to the bbolt database file")
	fs.StringVar(&cfg.StorageKey, "storage-key", cfg.StorageKey, "KV slot name / store-context AAD root")
	fs.StringVar(&cfg.DBName, "db-name", cfg.DBName, "device-key namespace: database name")
	fs.StringVar(&cfg.StoreName, "store-name", cfg.StoreName, "device-key namespace: store name")
	fs.StringVar(&cfg.KeyID, "key-id", cfg.KeyID, "device-key namespace: key id")
	fs.IntVar(&cfg.DefaultRounds, "default-rounds", cfg.DefaultRounds, "Argon2id rounds for new master passwords (0 = library default)")
	fs.DurationVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "timeout for readiness and each command")
}
