// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package statemachine implements spec.md §4.8's StateMachine: the
// four-state gate (Initial, DeviceMode, Locked, MasterMode) that decides
// which operations are legal and carries out every mode transition by
// delegating to internal/envelope and internal/portability. Grounded on the
// teacher's internal/client/app.go lifecycle shape — a constructor that
// kicks off asynchronous initialization and a long-lived struct that reacts
// to its current mode — generalized to the explicit four-state table
// spec.md §4.8 specifies, since the teacher itself only ever distinguishes
// authenticated from unauthenticated.
package statemachine

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/sls-go/securelocalstore/internal/bundlever"
	"github.com/sls-go/securelocalstore/internal/cipher"
	"github.com/sls-go/securelocalstore/internal/devicekey"
	"github.com/sls-go/securelocalstore/internal/envelope"
	"github.com/sls-go/securelocalstore/internal/kdf"
	"github.com/sls-go/securelocalstore/internal/kvstore"
	"github.com/sls-go/securelocalstore/internal/portability"
	"github.com/sls-go/securelocalstore/internal/sessioncache"
	"github.com/sls-go/securelocalstore/internal/slog"
	"github.com/sls-go/securelocalstore/slserrors"
)

// State names one of the four states spec.md §4.8 defines.
type State int

const (
	StateInitial State = iota
	StateDeviceMode
	StateLocked
	StateMasterMode
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "Initial"
	case StateDeviceMode:
		return "DeviceMode"
	case StateLocked:
		return "Locked"
	case StateMasterMode:
		return "MasterMode"
	default:
		return "Unknown"
	}
}

// Deps bundles the collaborators a Machine needs. All fields are required
// except Logger, which defaults to a no-op logger.
type Deps struct {
	KV            kvstore.KVStore
	DeviceKeys    *devicekey.Store
	Namespace     devicekey.Namespace
	Session       *sessioncache.Cache
	StorageKey    string
	DefaultRounds int
	Logger        *slog.Logger
}

// Machine holds the current state, the in-RAM bundle, and the loaded DEK
// (nil whenever Locked). Every exported method is expected to be called
// with external callers already serialized — Machine itself does no
// locking, matching spec.md §5's "callers are expected to serialize
// operations on one facade".
type Machine struct {
	deps        Deps
	state       State
	bundle      bundlever.Bundle
	dek         *cipher.KeyHandle
	resetReason string
}

// New returns a Machine in StateInitial. Call Initialize before any other
// method.
func New(deps Deps) *Machine {
	if deps.Logger == nil {
		deps.Logger = slog.Nop()
	}
	if deps.DefaultRounds <= 0 {
		deps.DefaultRounds = kdf.DefaultRounds
	}
	return &Machine{deps: deps, state: StateInitial}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// LastResetReason reports why Initialize discarded the persisted bundle and
// created a fresh one ("invalid-config" or "device-kek-mismatch"), or "" if
// it did not. Clear always resets this back to "".
func (m *Machine) LastResetReason() string { return m.resetReason }

// IsLocked reports whether the machine is in StateLocked.
func (m *Machine) IsLocked() bool { return m.state == StateLocked }

// IsUsingMasterPassword reports whether the store is protected by a master
// password (Locked or MasterMode). Called before Initialize completes it
// returns false, since this accessor is synchronous and cannot await the
// readiness barrier the facade layer provides.
func (m *Machine) IsUsingMasterPassword() bool {
	return m.state == StateLocked || m.state == StateMasterMode
}

func (m *Machine) persist(ctx context.Context, bundle bundlever.Bundle) error {
	raw, err := json.Marshal(bundle)
	if err != nil {
		return slserrors.Validationf(err, "marshal bundle")
	}
	if err := m.deps.KV.Set(ctx, string(raw)); err != nil {
		return err
	}
	m.bundle = bundle
	return nil
}

// Initialize loads the persisted bundle and transitions out of
// StateInitial into DeviceMode or Locked. It must be called exactly once,
// before any other method.
func (m *Machine) Initialize(ctx context.Context) error {
	raw, found, err := m.deps.KV.Get(ctx)
	if err != nil {
		m.deps.Logger.Warn().Err(err).Msg("kv read failed during initialize, treating as absent")
		found = false
	}

	var bundle bundlever.Bundle
	valid := false
	if found {
		if err := json.Unmarshal([]byte(raw), &bundle); err != nil {
			m.deps.Logger.Warn().Err(err).Msg("persisted bundle is not valid JSON, treating as absent")
		} else if err := bundlever.Validate(bundle, bundlever.ValidateOptions{RequireStoreCtx: true}); err != nil {
			m.deps.Logger.Warn().Err(err).Msg("persisted bundle failed validation, resetting")
			m.resetReason = "invalid-config"
		} else {
			valid = true
		}
	}

	if !valid {
		return m.resetToFreshDeviceMode(ctx)
	}

	if bundle.Header.Rounds > 1 {
		m.bundle = bundle
		m.state = StateLocked
		return nil
	}

	kek, err := m.deps.DeviceKeys.GetKey(ctx, m.deps.Namespace)
	if err != nil {
		return err
	}

	dek, err := envelope.EnsureLoaded(ctx, kek, bundle, m.deps.StorageKey, bundle.IsV2())
	if err != nil {
		m.deps.Logger.Warn().Err(err).Msg("device KEK could not unwrap persisted bundle, resetting")
		m.resetReason = "device-kek-mismatch"
		return m.resetToFreshDeviceMode(ctx)
	}

	if bundle.IsV2() {
		newBundle, newDEK, err := portability.MigrateV2ToV3(ctx, kek, bundle, m.deps.StorageKey, 1, nil, nil)
		if err != nil {
			return err
		}
		if err := m.persist(ctx, newBundle); err != nil {
			return err
		}
		m.dek = newDEK
		m.state = StateDeviceMode
		return nil
	}

	m.bundle = bundle
	m.dek = dek
	m.state = StateDeviceMode
	return nil
}

func (m *Machine) resetToFreshDeviceMode(ctx context.Context) error {
	kek, err := m.deps.DeviceKeys.GetKey(ctx, m.deps.Namespace)
	if err != nil {
		return err
	}
	bundle, dek, err := envelope.CreateEmpty(ctx, kek, m.deps.StorageKey, 1, nil, nil)
	if err != nil {
		return err
	}
	if err := m.persist(ctx, bundle); err != nil {
		return err
	}
	m.dek = dek
	m.state = StateDeviceMode
	return nil
}

// Unlock verifies password against the Locked bundle and transitions to
// MasterMode. It is a no-op in DeviceMode and MasterMode.
func (m *Machine) Unlock(ctx context.Context, password string) error {
	if m.state != StateLocked {
		return nil
	}

	salt, err := decodeSalt(m.bundle.Header.Salt)
	if err != nil {
		return err
	}
	kek, err := kdf.DeriveKEK(ctx, password, salt, m.bundle.Header.Rounds)
	if err != nil {
		return err
	}

	dek, err := envelope.EnsureLoaded(ctx, kek, m.bundle, m.deps.StorageKey, m.bundle.IsV2())
	if err != nil {
		return slserrors.Validationf(err, "incorrect password")
	}

	if m.bundle.IsV2() {
		mPw := true
		newBundle, newDEK, err := portability.MigrateV2ToV3(ctx, kek, m.bundle, m.deps.StorageKey, m.bundle.Header.Rounds, salt, &mPw)
		if err != nil {
			return err
		}
		if err := m.persist(ctx, newBundle); err != nil {
			return err
		}
		m.dek = newDEK
	} else {
		m.dek = dek
	}

	m.deps.Session.Set(kek, salt, m.bundle.Header.Rounds)
	m.state = StateMasterMode
	return nil
}

// SetMasterPassword protects the store with password, transitioning
// DeviceMode → MasterMode.
func (m *Machine) SetMasterPassword(ctx context.Context, password string) error {
	switch m.state {
	case StateLocked:
		return slserrors.Lockedf("setMasterPassword requires an unlocked session")
	case StateMasterMode:
		return slserrors.Modef("a master password is already set")
	case StateInitial:
		return slserrors.Modef("store is not yet initialized")
	}

	deviceKEK, err := m.deps.DeviceKeys.GetKey(ctx, m.deps.Namespace)
	if err != nil {
		return err
	}
	dek, err := envelope.EnsureLoaded(ctx, deviceKEK, m.bundle, m.deps.StorageKey, true)
	if err != nil {
		return err
	}

	salt, err := cipher.GenerateSalt()
	if err != nil {
		return err
	}
	newKEK, err := kdf.DeriveKEK(ctx, password, salt, m.deps.DefaultRounds)
	if err != nil {
		return err
	}

	mPw := true
	newBundle, newDEK, err := envelope.ReEncrypt(ctx, dek, m.bundle, m.deps.StorageKey, newKEK, m.deps.DefaultRounds, salt, &mPw, bundlever.CtxStore, m.deps.StorageKey)
	if err != nil {
		return err
	}
	if err := m.persist(ctx, newBundle); err != nil {
		return err
	}

	m.dek = newDEK
	m.deps.Session.Set(newKEK, salt, m.deps.DefaultRounds)
	m.state = StateMasterMode
	return nil
}

// RemoveMasterPassword reverts the store to device-bound protection,
// transitioning MasterMode → DeviceMode.
func (m *Machine) RemoveMasterPassword(ctx context.Context) error {
	switch m.state {
	case StateLocked:
		return slserrors.Lockedf("removeMasterPassword requires an unlocked session")
	case StateDeviceMode:
		return slserrors.Modef("no master password is set")
	case StateInitial:
		return slserrors.Modef("store is not yet initialized")
	}

	sessionKEK, ok := m.deps.Session.Match(decodeSaltOrNil(m.bundle.Header.Salt), m.bundle.Header.Rounds)
	if !ok {
		return slserrors.Modef("no active master-password session")
	}

	deviceKEK, err := m.deps.DeviceKeys.GetKey(ctx, m.deps.Namespace)
	if err != nil {
		return err
	}

	dek, err := envelope.EnsureLoaded(ctx, sessionKEK, m.bundle, m.deps.StorageKey, true)
	if err != nil {
		return err
	}

	newBundle, newDEK, err := envelope.ReEncrypt(ctx, dek, m.bundle, m.deps.StorageKey, deviceKEK, 1, nil, nil, bundlever.CtxStore, m.deps.StorageKey)
	if err != nil {
		return err
	}
	if err := m.persist(ctx, newBundle); err != nil {
		return err
	}

	m.dek = newDEK
	m.deps.Session.Clear()
	m.state = StateDeviceMode
	return nil
}

// RotateMasterPassword changes the master password. In DeviceMode it
// behaves like SetMasterPassword(newPassword) (oldPassword is ignored,
// since none is set yet); in Locked it unlocks with oldPassword first; in
// MasterMode it verifies oldPassword against the current bundle before
// rotating.
func (m *Machine) RotateMasterPassword(ctx context.Context, oldPassword, newPassword string) error {
	switch m.state {
	case StateInitial:
		return slserrors.Modef("store is not yet initialized")
	case StateDeviceMode:
		return m.SetMasterPassword(ctx, newPassword)
	case StateLocked:
		if err := m.Unlock(ctx, oldPassword); err != nil {
			return err
		}
		return m.rotateWithinMasterMode(ctx, oldPassword, newPassword)
	default:
		return m.rotateWithinMasterMode(ctx, oldPassword, newPassword)
	}
}

func (m *Machine) rotateWithinMasterMode(ctx context.Context, oldPassword, newPassword string) error {
	salt, err := decodeSalt(m.bundle.Header.Salt)
	if err != nil {
		return err
	}
	oldKEK, err := kdf.DeriveKEK(ctx, oldPassword, salt, m.bundle.Header.Rounds)
	if err != nil {
		return err
	}
	dek, err := envelope.EnsureLoaded(ctx, oldKEK, m.bundle, m.deps.StorageKey, true)
	if err != nil {
		return slserrors.Validationf(err, "incorrect password")
	}

	newSalt, err := cipher.GenerateSalt()
	if err != nil {
		return err
	}
	newKEK, err := kdf.DeriveKEK(ctx, newPassword, newSalt, m.deps.DefaultRounds)
	if err != nil {
		return err
	}

	mPw := true
	newBundle, newDEK, err := envelope.ReEncrypt(ctx, dek, m.bundle, m.deps.StorageKey, newKEK, m.deps.DefaultRounds, newSalt, &mPw, bundlever.CtxStore, m.deps.StorageKey)
	if err != nil {
		return err
	}
	if err := m.persist(ctx, newBundle); err != nil {
		return err
	}

	m.dek = newDEK
	m.deps.Session.Set(newKEK, newSalt, m.deps.DefaultRounds)
	m.state = StateMasterMode
	return nil
}

// Lock wipes the in-RAM DEK and session KEK, transitioning MasterMode →
// Locked. It is a no-op in DeviceMode and Locked.
func (m *Machine) Lock() {
	if m.state != StateMasterMode {
		return
	}
	m.dek = nil
	m.deps.Session.Clear()
	m.state = StateLocked
}

// RotateKeys generates a fresh device KEK and re-wraps the DEK under it,
// without changing the decrypted payload. Only legal in DeviceMode.
func (m *Machine) RotateKeys(ctx context.Context) error {
	switch m.state {
	case StateLocked:
		return slserrors.Lockedf("rotateKeys requires an unlocked session")
	case StateMasterMode:
		return slserrors.Modef("rotateKeys is not supported while protected by a master password")
	case StateInitial:
		return slserrors.Modef("store is not yet initialized")
	}

	oldKEK, err := m.deps.DeviceKeys.GetKey(ctx, m.deps.Namespace)
	if err != nil {
		return err
	}
	dek, err := envelope.EnsureLoaded(ctx, oldKEK, m.bundle, m.deps.StorageKey, true)
	if err != nil {
		return err
	}

	newKEK, err := m.deps.DeviceKeys.RotateKey(ctx, m.deps.Namespace)
	if err != nil {
		return err
	}

	newBundle, newDEK, err := envelope.ReEncrypt(ctx, dek, m.bundle, m.deps.StorageKey, newKEK, 1, nil, nil, bundlever.CtxStore, m.deps.StorageKey)
	if err != nil {
		return err
	}
	if err := m.persist(ctx, newBundle); err != nil {
		return err
	}

	m.dek = newDEK
	return nil
}

// GetData decrypts and unmarshals the current payload into T. Only legal in
// DeviceMode and MasterMode.
func GetData[T any](ctx context.Context, m *Machine) (T, error) {
	var zero T
	if m.state == StateLocked {
		return zero, slserrors.Lockedf("getData requires an unlocked session")
	}
	if m.state == StateInitial {
		return zero, slserrors.Modef("store is not yet initialized")
	}
	return envelope.DecryptPayload[T](ctx, m.dek, m.bundle, m.deps.StorageKey)
}

// SetData sanitizes payload (it must be a plain JSON object), encrypts it,
// and persists it under the current header. Only legal in DeviceMode and
// MasterMode.
func (m *Machine) SetData(ctx context.Context, payload any) error {
	switch m.state {
	case StateLocked:
		return slserrors.Lockedf("setData requires an unlocked session")
	case StateInitial:
		return slserrors.Modef("store is not yet initialized")
	}

	sanitized, err := sanitizePayload(payload)
	if err != nil {
		return err
	}

	newBundle, err := envelope.EncryptPayload(ctx, m.dek, m.bundle, sanitized, m.deps.StorageKey)
	if err != nil {
		return err
	}
	return m.persist(ctx, newBundle)
}

// ExportData builds a ctx="export" bundle. customPassword is required in
// DeviceMode; it is optional in MasterMode (nil/empty reuses the session
// KEK and the bundle's own salt/rounds).
func (m *Machine) ExportData(ctx context.Context, customPassword *string) (string, error) {
	raw := rawOrEmpty(customPassword)
	trimmed := strings.TrimSpace(raw)

	switch m.state {
	case StateLocked:
		return "", slserrors.Lockedf("exportData requires an unlocked session")
	case StateInitial:
		return "", slserrors.Modef("store is not yet initialized")
	case StateDeviceMode:
		if trimmed == "" {
			return "", slserrors.Exportf("exportData from device mode requires a password")
		}
		deviceKEK, err := m.deps.DeviceKeys.GetKey(ctx, m.deps.Namespace)
		if err != nil {
			return "", err
		}
		return portability.BuildExport(ctx, m.bundle, m.deps.StorageKey, deviceKEK, raw, m.deps.DefaultRounds)
	default: // StateMasterMode
		sessionKEK, ok := m.deps.Session.Match(decodeSaltOrNil(m.bundle.Header.Salt), m.bundle.Header.Rounds)
		if !ok {
			return "", slserrors.Modef("no active master-password session")
		}
		return portability.BuildExport(ctx, m.bundle, m.deps.StorageKey, sessionKEK, raw, m.deps.DefaultRounds)
	}
}

// ImportData ingests serialized, overwriting the current store entirely,
// and returns the classification of the password that protected it. Legal
// in every state once Initialize has completed.
func (m *Machine) ImportData(ctx context.Context, serialized string, password *string) (string, error) {
	if m.state == StateInitial {
		return "", slserrors.Modef("store is not yet initialized")
	}

	newBundle, newDEK, class, err := portability.Import(ctx, serialized, password, m.deps.StorageKey, func(ctx context.Context) (*cipher.KeyHandle, error) {
		return m.deps.DeviceKeys.GetKey(ctx, m.deps.Namespace)
	})
	if err != nil {
		return "", err
	}

	if err := m.persist(ctx, newBundle); err != nil {
		return "", err
	}

	m.deps.Session.Clear()
	m.dek = newDEK
	if newDEK == nil {
		m.state = StateLocked
	} else {
		m.state = StateDeviceMode
	}
	return string(class), nil
}

// Clear tears down the current session and persisted bundle, then performs
// a single fresh-initialize step, always landing in DeviceMode. Per
// spec.md §9, this is not recursive: it never calls Initialize again. Per
// spec.md §3's lifecycle ("destroyed by clear(), which also deletes the
// device-KEK record for this namespace"), the device-key store's persisted
// record for this namespace is deleted too, so resetToFreshDeviceMode
// below always generates and persists a brand new device KEK.
func (m *Machine) Clear(ctx context.Context) error {
	m.dek = nil
	m.deps.Session.Clear()
	m.deps.KV.Clear(ctx)
	if err := m.deps.DeviceKeys.DeletePersistent(ctx, m.deps.Namespace); err != nil {
		m.deps.Logger.Warn().Err(err).Msg("device key deletion failed during clear")
	}
	// lastResetReason documents only the two implicit-reset causes
	// Initialize can hit (spec.md §9: "records why a fresh store was
	// created during initialization"); Clear is an explicit, caller-known
	// action, not an ambiguous one, so it does not populate this field.
	m.resetReason = ""
	return m.resetToFreshDeviceMode(ctx)
}

func decodeSalt(saltB64 string) ([]byte, error) {
	if saltB64 == "" {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(saltB64)
	if err != nil {
		return nil, slserrors.Validationf(err, "header.salt is not valid base64")
	}
	return raw, nil
}

func decodeSaltOrNil(saltB64 string) []byte {
	raw, err := decodeSalt(saltB64)
	if err != nil {
		return nil
	}
	return raw
}

func rawOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
