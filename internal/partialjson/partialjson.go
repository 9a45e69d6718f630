// Package partialjson decodes JSON text that may have been cut off while
// streaming. The text is repaired with jsonrepair, which closes open
// strings, arrays and objects, and then decoded with encoding/json.
package partialjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ErrIncomplete is returned when the input ends before any value starts.
var ErrIncomplete = errors.New("partialjson: incomplete value")

// ErrNotContainer is returned for input that does not open an object or
// array. Prose is never coerced into JSON.
var ErrNotContainer = errors.New("partialjson: not an object or array")

// Parse decodes s. Values use the encoding/json shapes: map[string]any,
// []any, string, float64, bool and nil.
func Parse(s string) (any, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return nil, ErrIncomplete
	}
	if t[0] != '{' && t[0] != '[' {
		return nil, ErrNotContainer
	}
	repaired, err := jsonrepair.JSONRepair(t)
	if err != nil {
		return nil, fmt.Errorf("partialjson: repair: %w", err)
	}
	var v any
	if err := json.Unmarshal([]byte(repaired), &v); err != nil {
		return nil, fmt.Errorf("partialjson: decode repaired text: %w", err)
	}
	return v, nil
}
