// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import "errors"

// Validation errors returned by [Config.validate] when a required field is
// missing or out of the range the rest of the library accepts.
var (
	ErrInvalidBoltPath      = errors.New("invalid config: bolt path must not be empty")
	ErrInvalidStorageKey    = errors.New("invalid config: storage key must not be empty")
	ErrInvalidDefaultRounds = errors.New("invalid config: default rounds out of range")
)
