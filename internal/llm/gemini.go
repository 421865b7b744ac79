package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	genai "google.golang.org/genai"

	"github.com/panbanda/mcuscope/pkg/config"
)

const (
	geminiAttempts = 3
	geminiBackoff  = 300 * time.Millisecond
)

// GeminiClient is a thin wrapper around the official genai client.
type GeminiClient struct {
	cli         *genai.Client
	model       string
	temperature float32
	maxTokens   int32
	timeout     time.Duration
	logger      *slog.Logger
}

// NewGeminiClient builds a client from the llm config section. The API key
// is read from the environment variable the config names.
func NewGeminiClient(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (*GeminiClient, error) {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingAPIKey, cfg.APIKeyEnv)
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &GeminiClient{
		cli:         cli,
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		maxTokens:   int32(cfg.MaxTokens),
		timeout:     time.Duration(cfg.Timeout) * time.Second,
		logger:      logger,
	}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }
func (g *GeminiClient) Close() error { return nil }

// Generate sends prompt and returns the concatenated text of the first
// candidate. Failed calls are retried with exponential backoff.
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	g.logger.Debug("llm request", "model", g.model, "bytes", len(prompt))

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.temperature),
		MaxOutputTokens: g.maxTokens,
	}
	return withRetry(ctx, geminiAttempts, geminiBackoff, g.logger, func() (string, error) {
		resp, err := g.cli.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
		if err != nil {
			return "", err
		}
		if text := responseText(resp); text != "" {
			return text, nil
		}
		return "", ErrEmptyResponse
	})
}

// withRetry calls fn up to attempts times, waiting base, 2*base, ... between
// failures. Permanent errors are returned without another attempt.
func withRetry(ctx context.Context, attempts int, base time.Duration, logger *slog.Logger, fn func() (string, error)) (string, error) {
	var lastErr error
	for attempt := range attempts {
		text, err := fn()
		if err == nil {
			return text, nil
		}
		lastErr = err
		logger.Warn("llm request failed", "attempt", attempt+1, "error", err)
		if !retryable(err) || attempt == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(base << attempt):
		}
	}
	return "", lastErr
}

// retryable reports whether err may succeed on a later attempt. Client
// errors other than timeouts and rate limits are permanent.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusRequestTimeout, apiErr.Code == http.StatusTooManyRequests:
			return true
		case apiErr.Code >= 400 && apiErr.Code < 500:
			return false
		}
	}
	return true
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil {
			sb.WriteString(p.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}
