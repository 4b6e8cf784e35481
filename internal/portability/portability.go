// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package portability implements spec.md §4.9: export-bundle construction,
// import classification and ingestion, and V2→V3 migration. It is the
// procedural layer sitting on top of internal/envelope, kept distinct from
// internal/statemachine so the import/export step ordering spec.md §4.9
// specifies can be read, tested, and audited on its own.
package portability

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/sls-go/securelocalstore/internal/bundlever"
	"github.com/sls-go/securelocalstore/internal/cipher"
	"github.com/sls-go/securelocalstore/internal/envelope"
	"github.com/sls-go/securelocalstore/internal/kdf"
	"github.com/sls-go/securelocalstore/slserrors"
)

// MaxBundleBytes bounds a serialized import payload, checked before any
// parsing is attempted (spec.md §8 boundary behavior).
const MaxBundleBytes = 2 << 20

// Classification is the string importData returns to identify which kind
// of password protected the imported bundle.
type Classification string

const (
	ClassificationMasterPassword       Classification = "masterPassword"
	ClassificationCustomExportPassword Classification = "customExportPassword"
)

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

// BuildExport constructs a serialized, ctx="export" V3 bundle from
// currentBundle. currentKEK must be the KEK currently protecting
// currentBundle (the device KEK in device mode, the session KEK in master
// mode). customPassword is the raw, untrimmed password typed by the caller;
// only its trimmed form gates whether a custom password was supplied at
// all — the untrimmed value is what reaches kdf.DeriveKEK, so meaningful
// whitespace in a password survives export/import round-trips. When a
// custom password is supplied, a fresh salt and defaultRounds are used to
// derive the export KEK and mPw is set false; otherwise currentBundle's own
// salt/rounds and currentKEK are reused and mPw is set true — callers must
// only take this branch in master mode, where currentBundle.Header.Rounds >
// 1.
func BuildExport(ctx context.Context, currentBundle bundlever.Bundle, storageKey string, currentKEK *cipher.KeyHandle, customPassword string, defaultRounds int) (string, error) {
	exportKEK := currentKEK
	rounds := currentBundle.Header.Rounds
	mPw := true

	salt, err := decodeSalt(currentBundle.Header.Salt)
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(customPassword) != "" {
		salt, err = cipher.GenerateSalt()
		if err != nil {
			return "", err
		}
		rounds = defaultRounds
		exportKEK, err = kdf.DeriveKEK(ctx, customPassword, salt, rounds)
		if err != nil {
			return "", err
		}
		mPw = false
	}

	dek, err := envelope.EnsureLoaded(ctx, currentKEK, currentBundle, storageKey, true)
	if err != nil {
		return "", err
	}

	exportBundle, _, err := envelope.ReEncrypt(ctx, dek, currentBundle, storageKey, exportKEK, rounds, salt, &mPw, bundlever.CtxExport, storageKey)
	if err != nil {
		return "", err
	}

	raw, err := json.Marshal(exportBundle)
	if err != nil {
		return "", slserrors.Exportf("failed to serialize export bundle: %v", err)
	}
	return string(raw), nil
}

// MigrateV2ToV3 decrypts oldBundle under kek (a V2 bundle is read with no
// AAD, a V3 bundle under the AAD of its own ctx; Import uses the latter for
// master-protected export bundles) and re-encrypts it as a V3,
// ctx="store" bundle, keeping rounds/salt/mPw as
// given by the caller (blank/rounds=1 for a device-bound target, the
// source's own salt/rounds for a master-password target).
func MigrateV2ToV3(ctx context.Context, kek *cipher.KeyHandle, oldBundle bundlever.Bundle, storageKey string, rounds int, salt []byte, mPw *bool) (bundlever.Bundle, *cipher.KeyHandle, error) {
	dek, err := envelope.EnsureLoaded(ctx, kek, oldBundle, storageKey, true)
	if err != nil {
		return bundlever.Bundle{}, nil, err
	}
	return envelope.ReEncrypt(ctx, dek, oldBundle, storageKey, kek, rounds, salt, mPw, bundlever.CtxStore, storageKey)
}

func requireJSONObject(raw json.RawMessage, name string) error {
	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, "{") {
		return slserrors.Importf(nil, "%q must be a JSON object", name)
	}
	return nil
}

// Import implements spec.md §4.9's twelve-step import procedure. storageKey
// is the importing facade's own storage key, used both as the AAD root for
// a re-wrapped bundle and, for the "adopt verbatim" case, as the assumed
// root of an already store-context bundle. deviceKEK is invoked only for
// the custom-export-password branch, which re-wraps under the local device
// key.
//
// On success it returns the new persisted-shape bundle, the classification
// string, and either a usable non-extractable DEK (customExportPassword:
// target unlocks into DeviceMode) or a nil DEK (masterPassword: target
// transitions to Locked and must be unlocked separately).
func Import(ctx context.Context, serialized string, password *string, storageKey string, deviceKEK func(context.Context) (*cipher.KeyHandle, error)) (bundlever.Bundle, *cipher.KeyHandle, Classification, error) {
	if len(serialized) > MaxBundleBytes {
		return bundlever.Bundle{}, nil, "", slserrors.Importf(nil, "import payload exceeds %d bytes", MaxBundleBytes)
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(serialized), &probe); err != nil {
		return bundlever.Bundle{}, nil, "", slserrors.Importf(err, "malformed JSON")
	}
	headerRaw, ok := probe["header"]
	if !ok {
		return bundlever.Bundle{}, nil, "", slserrors.Importf(nil, "missing \"header\" object")
	}
	if err := requireJSONObject(headerRaw, "header"); err != nil {
		return bundlever.Bundle{}, nil, "", err
	}
	dataRaw, ok := probe["data"]
	if !ok {
		return bundlever.Bundle{}, nil, "", slserrors.Importf(nil, "missing \"data\" object")
	}
	if err := requireJSONObject(dataRaw, "data"); err != nil {
		return bundlever.Bundle{}, nil, "", err
	}

	var bundle bundlever.Bundle
	if err := json.Unmarshal([]byte(serialized), &bundle); err != nil {
		return bundlever.Bundle{}, nil, "", slserrors.Importf(err, "malformed bundle")
	}

	if err := bundlever.Validate(bundle, bundlever.ValidateOptions{}); err != nil {
		return bundlever.Bundle{}, nil, "", slserrors.Importf(err, "bundle failed validation")
	}

	class := ClassificationCustomExportPassword
	if bundle.IsMasterProtected() {
		class = ClassificationMasterPassword
	}

	var rawPw string
	if password != nil {
		rawPw = *password
	}
	if strings.TrimSpace(rawPw) == "" {
		if class == ClassificationMasterPassword {
			return bundlever.Bundle{}, nil, "", slserrors.Importf(nil, "master password required")
		}
		return bundlever.Bundle{}, nil, "", slserrors.Importf(nil, "export password required")
	}

	salt, err := decodeSalt(bundle.Header.Salt)
	if err != nil {
		return bundlever.Bundle{}, nil, "", slserrors.Importf(err, "invalid bundle salt")
	}

	kek, err := kdf.DeriveKEK(ctx, rawPw, salt, bundle.Header.Rounds)
	if err != nil {
		return bundlever.Bundle{}, nil, "", slserrors.Importf(err, "key derivation failed")
	}

	if _, err := envelope.EnsureLoaded(ctx, kek, bundle, storageKey, false); err != nil {
		return bundlever.Bundle{}, nil, "", slserrors.Importf(err, "incorrect password or corrupted bundle")
	}

	if class == ClassificationMasterPassword {
		if bundle.IsV3() && bundle.Header.Ctx == string(bundlever.CtxStore) {
			return bundle, nil, class, nil
		}
		mPw := true
		newBundle, _, err := MigrateV2ToV3(ctx, kek, bundle, storageKey, bundle.Header.Rounds, salt, &mPw)
		if err != nil {
			return bundlever.Bundle{}, nil, "", slserrors.Importf(err, "failed to re-wrap imported bundle")
		}
		return newBundle, nil, class, nil
	}

	devKEK, err := deviceKEK(ctx)
	if err != nil {
		return bundlever.Bundle{}, nil, "", slserrors.Importf(err, "device key unavailable")
	}
	dek, err := envelope.EnsureLoaded(ctx, kek, bundle, storageKey, true)
	if err != nil {
		return bundlever.Bundle{}, nil, "", slserrors.Importf(err, "incorrect password or corrupted bundle")
	}
	newBundle, newDEK, err := envelope.ReEncrypt(ctx, dek, bundle, storageKey, devKEK, 1, nil, nil, bundlever.CtxStore, storageKey)
	if err != nil {
		return bundlever.Bundle{}, nil, "", slserrors.Importf(err, "failed to re-wrap imported bundle under device key")
	}
	return newBundle, newDEK, class, nil
}
