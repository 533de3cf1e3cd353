// Package completion wraps the text generation backend behind a small
// interface so the orchestrator never depends on a concrete provider.
package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

var (
	// ErrServiceUnavailable indicates the backend could not be reached or
	// returned a non-timeout failure.
	ErrServiceUnavailable = errors.New("completion service unavailable")

	// ErrTimeout indicates the request exceeded its deadline.
	ErrTimeout = errors.New("completion request timed out")

	// ErrInvalidConfig indicates missing or contradictory settings.
	ErrInvalidConfig = errors.New("invalid completion config")
)

// Config holds the connection settings for an OpenAI-compatible backend.
type Config struct {
	BaseURL string        `koanf:"base_url"`
	Model   string        `koanf:"model"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"`
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	return nil
}

// Service generates completions via an OpenAI-compatible endpoint.
// It works against the OpenAI API and any compatible local server.
type Service struct {
	llm     *openai.LLM
	timeout time.Duration
	logger  *zap.Logger
}

// NewService creates a completion service. logger may be nil.
func NewService(config Config, logger *zap.Logger) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	apiKey := config.APIKey
	if apiKey == "" {
		// The client requires a token even for local backends.
		apiKey = "placeholder"
	}

	llm, err := openai.New(
		openai.WithBaseURL(config.BaseURL),
		openai.WithModel(config.Model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}

	return &Service{llm: llm, timeout: config.Timeout, logger: logger}, nil
}

// Complete generates text for prompt. Failures are normalized to the
// package sentinels so callers can branch without provider knowledge.
func (s *Service) Complete(ctx context.Context, prompt string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := llms.GenerateFromSinglePrompt(ctx, s.llm, prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	s.logger.Debug("completion generated",
		zap.Int("prompt_len", len(prompt)),
		zap.Int("response_len", len(text)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return text, nil
}
