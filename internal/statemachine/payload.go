// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package statemachine

import (
	"encoding/json"

	"github.com/sls-go/securelocalstore/slserrors"
)

// sanitizePayload enforces spec.md §8 invariant 8: setData(v) must reject v
// unless it is a plain JSON object. Round-tripping through encoding/json
// rejects arrays and scalars (they do not unmarshal into a map), null is
// rejected explicitly, and anything encoding/json itself cannot marshal
// (functions, channels, cyclic maps) fails the marshal step, which is the
// closest Go analogue to rejecting symbols/BigInt/cycles.
func sanitizePayload(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, slserrors.Validationf(err, "payload is not JSON-serializable")
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, slserrors.Validationf(err, "payload must be a plain JSON object")
	}
	if obj == nil {
		return nil, slserrors.Validationf(nil, "payload must be a plain JSON object, got null")
	}
	return obj, nil
}
