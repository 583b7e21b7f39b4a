// Package provider sends prompts to an external language-model provider.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/greenstudio/greenstudio/internal/model"

	"go.uber.org/zap"
)

// Generator produces text for a prompt under a system instruction.
// history may be empty; prompt must be non-empty (callers validate).
type Generator interface {
	Generate(ctx context.Context, prompt, systemInstruction string, history []model.Turn) (string, error)
}

// Kinds accepted by New.
const (
	KindGenAI = "genai"
	KindProxy = "proxy"
)

// ProviderError reports a failed generation: transport failure, provider-side
// error, malformed response, or no usable text.
type ProviderError struct { //nolint:revive // name is part of the public vocabulary
	Provider string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Message == "" && e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsProviderError reports whether err wraps a *ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

// Config selects and configures a Generator.
type Config struct {
	Kind    string
	Model   string
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// ErrNoAPIKey is returned by New when the genai backend has no key.
var ErrNoAPIKey = errors.New("provider: no API key configured (set GEMINI_API_KEY or run `greenstudio setup`)")

// New builds the Generator named by cfg.Kind. An empty kind means genai.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (Generator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "", KindGenAI:
		if cfg.APIKey == "" {
			return nil, ErrNoAPIKey
		}
		return NewGenAIClient(ctx, cfg.APIKey, cfg.Model, logger)
	case KindProxy:
		if cfg.BaseURL == "" {
			return nil, errors.New("provider: proxy kind requires base_url")
		}
		return NewProxyClient(cfg.BaseURL, cfg.Timeout, logger), nil
	default:
		return nil, fmt.Errorf("provider: unknown kind %q", cfg.Kind)
	}
}
