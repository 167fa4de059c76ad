// Package logging provides helpers for keeping log output bounded and free
// of secrets. Raw LLM responses can be arbitrarily large and prompts may
// embed uploaded source, so anything destined for a log line or a persisted
// failure reason goes through Excerpt first.
package logging

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultExcerptLen is the maximum length of diagnostic excerpts taken from
// raw model output or source text.
const DefaultExcerptLen = 240

var apiKeyPattern = regexp.MustCompile(`(?i)(sk-[a-zA-Z0-9_-]{8,}|api[_-]?key\s*[:=]\s*\S+|bearer\s+[a-zA-Z0-9._-]{8,})`)

// Excerpt returns s truncated to max bytes on a rune boundary, with an
// ellipsis marker when truncation happened. Newlines are collapsed so the
// excerpt stays on one log line.
func Excerpt(s string, max int) string {
	if max <= 0 {
		max = DefaultExcerptLen
	}
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// RedactSecrets replaces API-key-looking substrings before logging.
func RedactSecrets(s string) string {
	return apiKeyPattern.ReplaceAllString(s, "[REDACTED]")
}
