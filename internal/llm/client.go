package llm

import (
	"context"
	"fmt"
)

// Prompt is a system instruction plus the user message
type Prompt struct {
	System string
	User   string
}

// Client is an abstraction over LLM providers
type Client interface {
	// GenerateJSON asks the model for a single JSON object and returns its raw text
	GenerateJSON(ctx context.Context, prompt Prompt) (string, error)
	// Model returns the model identifier sent to the provider
	Model() string
	// Close releases any resources held by the client
	Close() error
}

// TransportError is returned when the provider could not be reached or answered
// with a non-success status
type TransportError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("generation request failed: %d - %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("generation request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewClient creates a new LLM client based on configuration
func NewClient(ctx context.Context, config *Config, apiKey string) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, config, apiKey)
	case ProviderGateway:
		return NewGatewayClient(config, apiKey, nil)
	default:
		return nil, fmt.Errorf("unknown provider %q", config.Provider)
	}
}
