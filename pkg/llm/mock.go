package llm

import (
	"context"
)

// MockProvider is a configurable mock for testing gateway and pipeline
// behavior. Set CompleteFunc to control responses per call.
type MockProvider struct {
	// ProviderName is returned by Name. Defaults to "mock".
	ProviderName string

	// CompleteFunc is called when Complete is invoked.
	// If nil, returns empty string and nil error.
	CompleteFunc func(ctx context.Context, prompt, systemMessage string) (string, error)

	// CompleteCalls counts invocations of Complete.
	CompleteCalls int
}

// NewMockProvider creates a mock with the given name.
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{ProviderName: name}
}

// Name implements Provider.
func (m *MockProvider) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

// Complete implements Provider.
func (m *MockProvider) Complete(ctx context.Context, prompt, systemMessage string) (string, error) {
	m.CompleteCalls++
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt, systemMessage)
	}
	return "", nil
}

// Reset clears call tracking.
func (m *MockProvider) Reset() {
	m.CompleteCalls = 0
}

var _ Provider = (*MockProvider)(nil)
