// Package llm abstracts over LLM providers and implements the ordered
// fallback gateway used by the analysis pipeline.
package llm

import (
	"context"
	"time"
)

// Provider is the single contract every provider adapter exposes. Adapters
// hide provider-specific authentication, rate-limit signaling, and payload
// shape behind one completion call.
type Provider interface {
	// Name returns a stable provider identifier ("openai", "anthropic").
	Name() string

	// Complete sends a prompt and returns the raw model text. Failures are
	// returned as *Error with retryability classified.
	Complete(ctx context.Context, prompt, systemMessage string) (string, error)
}

// RawModelOutput is the gateway's successful result: unparsed model text
// plus attempt metadata for observability.
type RawModelOutput struct {
	Provider string
	Text     string
	Latency  time.Duration
}
