// Package jsonutil handles the loose typing of LLM-produced JSON, where a
// field documented as a string may come back as a number, a boolean, or a
// single value where an array was expected.
package jsonutil

import (
	"encoding/json"
	"fmt"
)

// FlexibleString converts a json.RawMessage to a string, handling cases where
// LLMs return numbers or booleans instead of strings. Returns empty string
// for null/empty.
func FlexibleString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		if numVal == float64(int64(numVal)) {
			return fmt.Sprintf("%d", int64(numVal))
		}
		return fmt.Sprintf("%g", numVal)
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		return fmt.Sprintf("%t", boolVal)
	}

	return string(raw)
}

// FlexibleStringSlice converts a json.RawMessage to a string slice. A JSON
// array is converted element-wise; a single scalar becomes a one-element
// slice; an object becomes its stringified values. Returns nil for
// null/empty.
func FlexibleStringSlice(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var rawItems []json.RawMessage
	if err := json.Unmarshal(raw, &rawItems); err == nil {
		out := make([]string, 0, len(rawItems))
		for _, item := range rawItems {
			if s := FlexibleString(item); s != "" {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}

	var rawMap map[string]json.RawMessage
	if err := json.Unmarshal(raw, &rawMap); err == nil {
		out := make([]string, 0, len(rawMap))
		for _, v := range rawMap {
			if s := FlexibleString(v); s != "" {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}

	if s := FlexibleString(raw); s != "" {
		return []string{s}
	}
	return nil
}

// FlexibleInt converts a json.RawMessage to an int, accepting both numeric
// values and numeric strings. Returns 0 when the value cannot be coerced.
func FlexibleInt(raw json.RawMessage) int {
	if len(raw) == 0 || string(raw) == "null" {
		return 0
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		return int(numVal)
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		var parsed float64
		if _, scanErr := fmt.Sscanf(strVal, "%g", &parsed); scanErr == nil {
			return int(parsed)
		}
	}

	return 0
}
