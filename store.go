// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package securelocalstore implements an envelope-encrypted state machine
// for a single JSON object living in a local key/value slot: device-bound
// mode by default, upgradeable to master-password mode, with export/import
// portability and transparent V2→V3 bundle migration.
//
// Store is the only entry point most callers need. It wraps
// internal/statemachine.Machine with the mutex-serialization and readiness
// barrier spec.md §4.10/§5 require, and exposes DataView as the wipeable
// read handle for decrypted payloads.
package securelocalstore

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sls-go/securelocalstore/internal/devicekey"
	"github.com/sls-go/securelocalstore/internal/idgen"
	"github.com/sls-go/securelocalstore/internal/kdf"
	"github.com/sls-go/securelocalstore/internal/kvstore"
	"github.com/sls-go/securelocalstore/internal/sessioncache"
	"github.com/sls-go/securelocalstore/internal/slog"
	"github.com/sls-go/securelocalstore/internal/statemachine"
	"github.com/sls-go/securelocalstore/slserrors"
)

// DataVersion is the on-disk bundle version this build reads and writes,
// per spec.md §4.10's DATA_VERSION.
const DataVersion = 3

// Config selects a Store's storage slot, device-key namespace, and default
// Argon2id round count. StorageKey also doubles as the V3 store-context AAD
// root (spec.md §4.1/§4.6), so two Stores with different StorageKeys can
// never decrypt each other's bundles even when they share a device key.
type Config struct {
	// StorageKey names the KV slot and binds the store-context AAD.
	StorageKey string
	// DBName, StoreName, and KeyID identify the device-key namespace. All
	// three default to "securelocalstore" when left blank.
	DBName    string
	StoreName string
	KeyID     string
	// DefaultRounds is the Argon2id time cost used whenever a new
	// master-password KEK is derived (setMasterPassword, rotation, a
	// custom-password export). Defaults to kdf.DefaultRounds.
	DefaultRounds int
	// Logger receives structured diagnostics; defaults to a no-op logger.
	Logger *slog.Logger
}

func (c Config) namespace() devicekey.Namespace {
	dbName, storeName, keyID := c.DBName, c.StoreName, c.KeyID
	if dbName == "" {
		dbName = "securelocalstore"
	}
	if storeName == "" {
		storeName = "securelocalstore"
	}
	if keyID == "" {
		keyID = idgen.New().Generate()
	}
	return devicekey.Namespace{DBName: dbName, StoreName: storeName, KeyID: keyID}
}

// Store is the public facade: a mutex-serialized, single-namespace envelope
// store. Construct with New, which starts asynchronous initialization; every
// operation other than Lock/IsLocked/IsUsingMasterPassword/LastResetReason/
// DataVersion blocks on the readiness barrier first, matching spec.md §4.10.
type Store struct {
	mu      sync.Mutex
	machine *statemachine.Machine
	ready   chan struct{}
	initErr error
}

// New constructs a Store over kv (the KV slot) and deviceKeys (the
// device-key namespace provider), and immediately starts asynchronous
// initialization in the background — the same "construct, then begin
// background init" shape as the teacher's client.App. Callers that need the
// result of initialization (LastResetReason, or to know initialization
// succeeded) should call WaitReady.
func New(kv kvstore.KVStore, deviceKeys *devicekey.Store, cfg Config) *Store {
	if cfg.DefaultRounds <= 0 {
		cfg.DefaultRounds = kdf.DefaultRounds
	}
	machine := statemachine.New(statemachine.Deps{
		KV:            kv,
		DeviceKeys:    deviceKeys,
		Namespace:     cfg.namespace(),
		Session:       sessioncache.New(),
		StorageKey:    cfg.StorageKey,
		DefaultRounds: cfg.DefaultRounds,
		Logger:        cfg.Logger,
	})

	s := &Store{machine: machine, ready: make(chan struct{})}
	go s.initialize()
	return s
}

func (s *Store) initialize() {
	// Machine.Initialize is the one call a Store makes before any caller
	// could possibly be holding s.mu, so no lock is needed here.
	err := s.machine.Initialize(context.Background())
	s.mu.Lock()
	s.initErr = err
	s.mu.Unlock()
	close(s.ready)
}

// WaitReady blocks until background initialization completes, or ctx is
// done, and returns whatever error Initialize produced (nil on success).
// Every other exported method (besides Lock/IsLocked/IsUsingMasterPassword/
// LastResetReason/DataVersion) calls this internally, so most callers never
// need to call it directly.
func (s *Store) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.initErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) awaitAndLock(ctx context.Context) error {
	if err := s.WaitReady(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	return nil
}

// DataVersion reports the on-disk bundle version this build reads and
// writes, per spec.md §4.10.
func (s *Store) DataVersion() int { return DataVersion }

// LastResetReason reports why Initialize discarded the persisted bundle and
// created a fresh one ("invalid-config" or "device-kek-mismatch"), or "" if
// it did not. A prior Clear also resets this to "", since Clear is an
// explicit caller action rather than one of Initialize's two implicit
// reset causes. Safe to call before initialization completes; returns ""
// in that case.
func (s *Store) LastResetReason() string {
	select {
	case <-s.ready:
	default:
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.LastResetReason()
}

// IsLocked reports whether the store is currently in the Locked state. Does
// not wait on the readiness barrier, per spec.md §6.
func (s *Store) IsLocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.IsLocked()
}

// IsUsingMasterPassword reports whether the store is protected by a master
// password (Locked or MasterMode). Does not wait on the readiness barrier,
// per spec.md §6.
func (s *Store) IsUsingMasterPassword() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.IsUsingMasterPassword()
}

// Lock wipes the in-RAM DEK and session KEK, transitioning MasterMode →
// Locked. A no-op outside MasterMode. Does not wait on the readiness
// barrier, per spec.md §6.
func (s *Store) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.machine.Lock()
}

// Unlock verifies password against a Locked bundle and transitions to
// MasterMode.
func (s *Store) Unlock(ctx context.Context, password string) error {
	if err := s.awaitAndLock(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()
	return s.machine.Unlock(ctx, password)
}

// SetMasterPassword protects the store with password, transitioning
// DeviceMode → MasterMode.
func (s *Store) SetMasterPassword(ctx context.Context, password string) error {
	if err := s.awaitAndLock(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()
	return s.machine.SetMasterPassword(ctx, password)
}

// RemoveMasterPassword reverts the store to device-bound protection,
// transitioning MasterMode → DeviceMode.
func (s *Store) RemoveMasterPassword(ctx context.Context) error {
	if err := s.awaitAndLock(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()
	return s.machine.RemoveMasterPassword(ctx)
}

// RotateMasterPassword changes the master password (or sets one for the
// first time from DeviceMode).
func (s *Store) RotateMasterPassword(ctx context.Context, oldPassword, newPassword string) error {
	if err := s.awaitAndLock(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()
	return s.machine.RotateMasterPassword(ctx, oldPassword, newPassword)
}

// RotateKeys generates a fresh device KEK and re-wraps the DEK under it,
// without changing the decrypted payload. Only legal in DeviceMode.
func (s *Store) RotateKeys(ctx context.Context) error {
	if err := s.awaitAndLock(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()
	return s.machine.RotateKeys(ctx)
}

// GetData decrypts the current payload and returns a wipeable DataView
// typed as T. Only legal in DeviceMode and MasterMode.
func GetData[T any](ctx context.Context, s *Store) (*DataView[T], error) {
	if err := s.awaitAndLock(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	payload, err := statemachine.GetData[map[string]any](ctx, s.machine)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, slserrors.Validationf(err, "re-marshal decrypted payload")
	}
	var typed T
	if err := json.Unmarshal(raw, &typed); err != nil {
		return nil, slserrors.Validationf(err, "decrypted payload does not match requested shape")
	}

	return newDataView(payload, typed), nil
}

// SetData sanitizes payload (it must be a plain JSON object), encrypts it,
// and persists it under the current header. Only legal in DeviceMode and
// MasterMode.
func (s *Store) SetData(ctx context.Context, payload any) error {
	if err := s.awaitAndLock(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()
	return s.machine.SetData(ctx, payload)
}

// ExportData builds a portable, ctx="export" bundle. customPassword is
// required in DeviceMode; optional in MasterMode (nil or blank reuses the
// active session KEK and the bundle's own salt/rounds).
func (s *Store) ExportData(ctx context.Context, customPassword *string) (string, error) {
	if err := s.awaitAndLock(ctx); err != nil {
		return "", err
	}
	defer s.mu.Unlock()
	return s.machine.ExportData(ctx, customPassword)
}

// ImportData ingests serialized, overwriting the current store entirely,
// and returns "masterPassword" or "customExportPassword" depending on how
// the imported bundle was protected.
func (s *Store) ImportData(ctx context.Context, serialized string, password *string) (string, error) {
	if err := s.awaitAndLock(ctx); err != nil {
		return "", err
	}
	defer s.mu.Unlock()
	return s.machine.ImportData(ctx, serialized, password)
}

// Clear tears down the current session and persisted bundle, then performs
// a single fresh-initialize step, always landing back in DeviceMode.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.awaitAndLock(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()
	return s.machine.Clear(ctx)
}

// Stats reports a snapshot of the store's current mode, useful for
// diagnostics and the demo CLI.
type Stats struct {
	State                 string
	IsLocked              bool
	IsUsingMasterPassword bool
	LastResetReason       string
	DataVersion           int
}

// Stats returns a snapshot of the store's current mode. Waits on the
// readiness barrier first.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	if err := s.awaitAndLock(ctx); err != nil {
		return Stats{}, err
	}
	defer s.mu.Unlock()
	return Stats{
		State:                 s.machine.State().String(),
		IsLocked:              s.machine.IsLocked(),
		IsUsingMasterPassword: s.machine.IsUsingMasterPassword(),
		LastResetReason:       s.machine.LastResetReason(),
		DataVersion:           DataVersion,
	}, nil
}
