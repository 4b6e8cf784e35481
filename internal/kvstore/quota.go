// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package kvstore

import (
	"errors"
	"strings"
	"syscall"
)

// quotaNeedles are the message fragments spec.md §4.4 says a quota failure
// is detected by when no structured error is available — the local-process
// equivalent of matching a DOMException's name/message, since Go errors
// carry neither a browser-style "name" field nor the numeric codes
// (22, 1014) the original WebCrypto exceptions use.
var quotaNeedles = []string{
	"quota",
	"no space left on device",
	"disk full",
	"enospc",
}

// isQuotaError classifies err as a storage-quota failure: an ENOSPC from
// the OS, or a message containing one of quotaNeedles.
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ENOSPC) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, needle := range quotaNeedles {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
