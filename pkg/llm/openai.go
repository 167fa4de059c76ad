package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIConfig holds configuration for the OpenAI-compatible provider.
type OpenAIConfig struct {
	Endpoint    string // Base URL, e.g. "https://api.openai.com/v1"; also works for local OpenAI-compatible servers
	Model       string // Model name, e.g. "gpt-4o"
	APIKey      string // Optional for local endpoints
	Temperature float64
}

// OpenAIProvider adapts OpenAI-compatible chat completion endpoints to the
// Provider contract.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	temperature float64
	logger      *zap.Logger
}

// NewOpenAIProvider creates a provider for an OpenAI-compatible endpoint.
func NewOpenAIProvider(cfg *OpenAIConfig, logger *zap.Logger) (*OpenAIProvider, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		logger:      logger.Named("openai"),
	}, nil
}

// Name implements Provider.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Complete implements Provider.
func (p *OpenAIProvider) Complete(ctx context.Context, prompt, systemMessage string) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemMessage},
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}

	p.logger.Debug("provider request",
		zap.String("model", p.model),
		zap.Int("prompt_len", len(prompt)))

	start := time.Now()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: float32(p.temperature),
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

	if len(resp.Choices) == 0 {
		e := NewError(ErrorTypeUnknown, "no choices in response", false, nil)
		e.Provider = p.Name()
		return "", e
	}

	p.logger.Info("provider request completed",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	return resp.Choices[0].Message.Content, nil
}

var _ Provider = (*OpenAIProvider)(nil)
