package logging

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short text", Excerpt("short text", 240))

	long := strings.Repeat("a", 500)
	got := Excerpt(long, 240)
	assert.Equal(t, 243, len(got))
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestExcerpt_CollapsesWhitespace(t *testing.T) {
	got := Excerpt("line one\n\n  line two\ttabbed", 240)
	assert.Equal(t, "line one line two tabbed", got)
}

func TestExcerpt_RuneBoundary(t *testing.T) {
	// Multi-byte runes must not be cut in the middle.
	s := strings.Repeat("é", 200)
	got := Excerpt(s, 99)
	trimmed := strings.TrimSuffix(got, "...")
	assert.True(t, len(trimmed) <= 99)
	for _, r := range trimmed {
		assert.Equal(t, 'é', r)
	}
}

func TestExcerpt_DefaultMax(t *testing.T) {
	long := strings.Repeat("b", 1000)
	got := Excerpt(long, 0)
	assert.Equal(t, DefaultExcerptLen+3, len(got))
}

func TestRedactSecrets(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"openai key", "failed with key sk-abcdef1234567890"},
		{"api key assignment", "api_key: super-secret-value"},
		{"bearer token", "Authorization: Bearer abc.def.ghi-jkl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RedactSecrets(tt.input)
			assert.Contains(t, got, "[REDACTED]")
			assert.NotContains(t, got, "super-secret-value")
		})
	}

	assert.Equal(t, "nothing sensitive here", RedactSecrets("nothing sensitive here"))
}
