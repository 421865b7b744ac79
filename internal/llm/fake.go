package llm

import (
	"context"
	"sync"
)

// FakeClient returns a canned reply and records every prompt it receives.
type FakeClient struct {
	Reply string
	Err   error

	mu      sync.Mutex
	prompts []string
}

func NewFakeClient(reply string) *FakeClient {
	return &FakeClient{Reply: reply}
}

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.Err != nil {
		return "", f.Err
	}
	return f.Reply, nil
}

// Prompts returns the prompts received so far.
func (f *FakeClient) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}
