package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pankajg09/data-dictionary-system/pkg/apperrors"
	"github.com/pankajg09/data-dictionary-system/pkg/retry"
)

// GatewayConfig bounds individual provider attempts. The configuration is an
// explicit value passed in at construction; the gateway holds no ambient or
// global provider state.
type GatewayConfig struct {
	// AttemptTimeout is the independent timeout for each provider attempt.
	AttemptTimeout time.Duration
	// MaxRetries is the number of retries per provider on transient failures.
	MaxRetries int
	// Breaker configures the per-provider circuit breakers.
	Breaker CircuitBreakerConfig
}

// DefaultGatewayConfig returns the default attempt bounds: 30s per attempt,
// 2 retries with exponential backoff.
func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		AttemptTimeout: 30 * time.Second,
		MaxRetries:     2,
		Breaker:        DefaultCircuitBreakerConfig(),
	}
}

// ExhaustedError reports that every provider in the order failed, with the
// final reason per provider.
type ExhaustedError struct {
	PerProvider map[string]string
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	names := make([]string, 0, len(e.PerProvider))
	for name := range e.PerProvider {
		names = append(names, name)
	}
	sort.Strings(names)

	var parts []string
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.PerProvider[name]))
	}
	return fmt.Sprintf("all providers exhausted (%s)", strings.Join(parts, "; "))
}

// Unwrap allows errors.Is(err, apperrors.ErrAllProvidersExhausted).
func (e *ExhaustedError) Unwrap() error {
	return apperrors.ErrAllProvidersExhausted
}

// Gateway tries providers in order with per-attempt timeout, retry with
// backoff on transient failures, and a circuit breaker per provider.
// It is stateless per invocation apart from the breakers and safe for
// concurrent use.
type Gateway struct {
	providers []Provider
	cfg       GatewayConfig
	breakers  map[string]*CircuitBreaker
	logger    *zap.Logger
}

// NewGateway creates a gateway over the given provider order.
func NewGateway(providers []Provider, cfg GatewayConfig, logger *zap.Logger) *Gateway {
	if cfg.AttemptTimeout == 0 {
		cfg.AttemptTimeout = DefaultGatewayConfig().AttemptTimeout
	}
	if cfg.Breaker.Threshold == 0 {
		cfg.Breaker = DefaultCircuitBreakerConfig()
	}

	breakers := make(map[string]*CircuitBreaker, len(providers))
	for _, p := range providers {
		breakers[p.Name()] = NewCircuitBreaker(cfg.Breaker)
	}

	return &Gateway{
		providers: providers,
		cfg:       cfg,
		breakers:  breakers,
		logger:    logger.Named("gateway"),
	}
}

// Providers returns the configured provider names in fallback order.
func (g *Gateway) Providers() []string {
	names := make([]string, len(g.providers))
	for i, p := range g.providers {
		names[i] = p.Name()
	}
	return names
}

// Invoke tries each provider in order and returns the first successful raw
// output. Transient failures (network, rate limit, 5xx) are retried on the
// same provider with exponential backoff; non-transient failures (auth,
// malformed request) abort that provider immediately and move on. When every
// provider is exhausted the per-provider reasons are returned in an
// *ExhaustedError.
func (g *Gateway) Invoke(ctx context.Context, prompt, systemMessage string) (*RawModelOutput, error) {
	if len(g.providers) == 0 {
		return nil, fmt.Errorf("no providers configured")
	}

	reasons := make(map[string]string, len(g.providers))

	for _, provider := range g.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := provider.Name()
		breaker := g.breakers[name]

		if ok, berr := breaker.Allow(); !ok {
			g.logger.Warn("provider skipped",
				zap.String("provider", name),
				zap.Error(berr))
			reasons[name] = berr.Error()
			continue
		}

		start := time.Now()
		text, err := g.attempt(ctx, provider, prompt, systemMessage)
		latency := time.Since(start)

		if err == nil {
			breaker.RecordSuccess()
			g.logger.Info("provider attempt succeeded",
				zap.String("provider", name),
				zap.Duration("latency", latency),
				zap.Int("response_len", len(text)))
			return &RawModelOutput{
				Provider: name,
				Text:     text,
				Latency:  latency,
			}, nil
		}

		// Caller cancellation/timeout is not a provider failure; surface it
		// instead of falling through to the next provider.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		breaker.RecordFailure()
		g.logger.Warn("provider attempt failed",
			zap.String("provider", name),
			zap.Duration("latency", latency),
			zap.String("error_type", string(GetErrorType(err))),
			zap.Bool("retryable", IsRetryable(err)),
			zap.Error(err))
		reasons[name] = err.Error()
	}

	return nil, &ExhaustedError{PerProvider: reasons}
}

// attempt runs one provider with retry-on-transient and per-attempt timeout.
func (g *Gateway) attempt(ctx context.Context, provider Provider, prompt, systemMessage string) (string, error) {
	var text string

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxRetries = g.cfg.MaxRetries

	err := retry.DoIfRetryable(ctx, retryCfg, func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, g.cfg.AttemptTimeout)
		defer cancel()

		out, err := provider.Complete(attemptCtx, prompt, systemMessage)
		if err != nil {
			// A deadline hit on the attempt context while the caller is still
			// live counts as a transient provider failure.
			if attemptCtx.Err() != nil && ctx.Err() == nil {
				e := NewError(ErrorTypeEndpoint, "attempt timeout", true, err)
				e.Provider = provider.Name()
				return e
			}
			return err
		}
		text = out
		return nil
	})

	return text, err
}
