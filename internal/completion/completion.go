// Package completion adapts LLM text-completion endpoints to a single
// Completer interface.
package completion

import (
	"context"
	"fmt"
	"time"
)

// Request is one chat-style completion call.
type Request struct {
	System    string
	User      string
	Model     string
	MaxTokens int
	// Temperature is left to the provider default when nil.
	Temperature *float64
}

// Completer sends a request to a completion service and returns its text.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ServiceError is any failure of the completion service: transport,
// authentication, an error status, or an unusable response body.
type ServiceError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ServiceError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s api status %d: %s", e.Provider, e.StatusCode, truncate(e.Message, 200))
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("%s api: %s: %v", e.Provider, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s api: %v", e.Provider, e.Err)
	default:
		return fmt.Sprintf("%s api: %s", e.Provider, e.Message)
	}
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Config selects and configures a provider.
type Config struct {
	Provider        string // "openai" or "anthropic"
	Model           string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AnthropicAPIKey string
	Timeout         time.Duration
}

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	DefaultOpenAIModel    = "gpt-4o"
	DefaultAnthropicModel = "claude-sonnet-4-5-20250929"
)

// Client is a Completer bound to one provider and model.
type Client interface {
	Completer
	Model() string
	Close()
}

// New builds the client for cfg.Provider.
func New(cfg Config) (Client, error) {
	switch cfg.Provider {
	case ProviderOpenAI, "":
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.Model, cfg.Timeout), nil
	case ProviderAnthropic:
		return NewAnthropicClient(cfg.AnthropicAPIKey, cfg.Model, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
