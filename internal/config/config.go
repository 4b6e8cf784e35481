// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import "time"

// Config is the configuration cmd/slsdemo needs to open a bbolt-backed
// Store. It is a reduced shape of the teacher's StructuredConfig: one flat
// struct, no per-subsystem sub-structs, since a single-process library has
// nothing analogous to the teacher's DB/Server/Adapter/Workers split.
type Config struct {
	// BoltPath is the file path of the bbolt database backing the KV slot;
	// cmd/slsdemo keeps the device-key store in a second file, BoltPath
	// with ".keys" appended.
	// Env: SLS_BOLT_PATH
	BoltPath string `env:"SLS_BOLT_PATH" envDefault:"slsdemo.db"`

	// StorageKey names the KV slot and the V3 store-context AAD root.
	// Env: SLS_STORAGE_KEY
	StorageKey string `env:"SLS_STORAGE_KEY" envDefault:"app:sls"`

	// DBName, StoreName, and KeyID identify the device-key namespace.
	// Env: SLS_DB_NAME / SLS_STORE_NAME / SLS_KEY_ID
	DBName    string `env:"SLS_DB_NAME" envDefault:"securelocalstore"`
	StoreName string `env:"SLS_STORE_NAME" envDefault:"securelocalstore"`
	KeyID     string `env:"SLS_KEY_ID" envDefault:"default"`

	// DefaultRounds is the Argon2id time cost used for new master-password
	// KEKs. Zero means "use the library default" (kdf.DefaultRounds).
	// Env: SLS_DEFAULT_ROUNDS
	DefaultRounds int `env:"SLS_DEFAULT_ROUNDS" envDefault:"0"`

	// RequestTimeout bounds every command the demo CLI issues against the
	// store (readiness wait plus the operation itself).
	// Env: SLS_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"SLS_REQUEST_TIMEOUT" envDefault:"10s"`
}

// Load builds a [Config] from environment variables and validates it.
// cmd/slsdemo registers flags over the returned Config's fields (see
// [Config.RegisterFlags]) so flags take priority over env when explicitly
// passed, matching the teacher's env-then-flag precedence without needing a
// merge step: flag.*Var's default is simply the already-loaded env value.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.validate()
}
