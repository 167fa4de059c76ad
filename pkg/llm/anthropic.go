package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

// AnthropicConfig holds configuration for the Anthropic provider.
type AnthropicConfig struct {
	APIKey    string
	Model     string // e.g. "claude-sonnet-4-5-20250929"
	MaxTokens int
}

// AnthropicProvider adapts the Anthropic Messages API to the Provider
// contract.
type AnthropicProvider struct {
	client    *anthropic.Client
	model     string
	maxTokens int
	logger    *zap.Logger
}

// NewAnthropicProvider creates an Anthropic provider.
func NewAnthropicProvider(cfg *AnthropicConfig, logger *zap.Logger) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4000
	}

	return &AnthropicProvider{
		client:    anthropic.NewClient(cfg.APIKey),
		model:     cfg.Model,
		maxTokens: maxTokens,
		logger:    logger.Named("anthropic"),
	}, nil
}

// Name implements Provider.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Complete implements Provider.
func (p *AnthropicProvider) Complete(ctx context.Context, prompt, systemMessage string) (string, error) {
	p.logger.Debug("provider request",
		zap.String("model", p.model),
		zap.Int("prompt_len", len(prompt)))

	start := time.Now()

	resp, err := p.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(p.model),
		System:    systemMessage,
		MaxTokens: p.maxTokens,
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(prompt),
		},
	})
	if err != nil {
		classified := ClassifyError(err)
		classified.Provider = p.Name()
		p.logger.Warn("provider request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.String("error_type", string(classified.Type)),
			zap.Error(err))
		return "", classified
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == anthropic.MessagesContentTypeText && block.Text != nil {
			text = *block.Text
			break
		}
	}
	if text == "" {
		e := NewError(ErrorTypeUnknown, "no text content in response", false, nil)
		e.Provider = p.Name()
		return "", e
	}

	p.logger.Info("provider request completed",
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)))

	return text, nil
}

var _ Provider = (*AnthropicProvider)(nil)
