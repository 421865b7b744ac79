// Package llm asks a language model to explain an analysis result.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/panbanda/mcuscope/pkg/config"
)

var (
	// ErrNoProvider is returned when summaries are requested with the
	// provider set to "none".
	ErrNoProvider = errors.New("llm: no provider configured")
	// ErrEmptyResponse is returned when the model produced no text.
	ErrEmptyResponse = errors.New("llm: empty response from model")
	// ErrMissingAPIKey is returned when the provider needs a key that is unset.
	ErrMissingAPIKey = errors.New("llm: API key not set")
)

// Client generates free-form text from a prompt.
type Client interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
	Close() error
}

// NewClient returns the client for the configured provider.
func NewClient(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (Client, error) {
	switch cfg.Provider {
	case "gemini":
		g, err := NewGeminiClient(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return g, nil
	case "", "none":
		return nil, ErrNoProvider
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}
