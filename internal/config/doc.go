// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package config provides configuration loading for cmd/slsdemo.
//
// Configuration is assembled from two sources, in priority order (a flag
// that is passed wins, whatever its value): environment variables, loaded
// by [Load], then command-line flags, registered by [Config.RegisterFlags]
// with the env-loaded values as their defaults. Unlike the
// source this package is adapted from, there is no JSON-file layer and no
// merge library: a local single-process library has nothing resembling the
// original's multi-environment deployment story, so two sources chained by
// hand cover every field this package defines.
package config
