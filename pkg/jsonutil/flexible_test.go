package jsonutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlexibleString(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"string", `"hello"`, "hello"},
		{"integer", `42`, "42"},
		{"float", `3.5`, "3.5"},
		{"bool", `true`, "true"},
		{"null", `null`, ""},
		{"empty", ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FlexibleString(json.RawMessage(tt.raw)))
		})
	}
}

func TestFlexibleStringSlice(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"array", `["a", "b"]`, []string{"a", "b"}},
		{"mixed array", `["a", 1, true]`, []string{"a", "1", "true"}},
		{"single scalar", `"active"`, []string{"active"}},
		{"single number", `7`, []string{"7"}},
		{"null", `null`, nil},
		{"empty array", `[]`, nil},
		{"empty", ``, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FlexibleStringSlice(json.RawMessage(tt.raw)))
		})
	}
}

func TestFlexibleStringSlice_ObjectValues(t *testing.T) {
	got := FlexibleStringSlice(json.RawMessage(`{"a": "x", "b": "y"}`))
	assert.ElementsMatch(t, []string{"x", "y"}, got)
}

func TestFlexibleInt(t *testing.T) {
	assert.Equal(t, 42, FlexibleInt(json.RawMessage(`42`)))
	assert.Equal(t, 42, FlexibleInt(json.RawMessage(`"42"`)))
	assert.Equal(t, 3, FlexibleInt(json.RawMessage(`3.9`)))
	assert.Equal(t, 0, FlexibleInt(json.RawMessage(`null`)))
	assert.Equal(t, 0, FlexibleInt(json.RawMessage(`"not a number"`)))
	assert.Equal(t, 0, FlexibleInt(json.RawMessage(``)))
}
