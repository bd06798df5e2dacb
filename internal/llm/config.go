// Package llm provides the model backends used to draft articles.
// Both backends return raw JSON text; validation happens in the caller.
package llm

import "time"

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderGateway is an OpenAI-compatible chat-completions proxy
	ProviderGateway Provider = "gateway"
	// ProviderGemini is the Google Gemini SDK
	ProviderGemini Provider = "gemini"
)

// Defaults for the chat-completions gateway
const (
	DefaultGatewayURL   = "https://gateway.pydantic.dev/proxy/chat/"
	DefaultGatewayModel = "google-gla:gemini-1.5-flash"
	DefaultGeminiModel  = "gemini-1.5-flash"
	DefaultTemperature  = 0.7
	DefaultMaxTokens    = 2000
	DefaultTimeout      = 90 * time.Second
)

// Config holds the model configuration for a backend
type Config struct {
	Provider    Provider
	Model       string
	Temperature float32
	MaxTokens   int32
	// GatewayURL is only used by ProviderGateway
	GatewayURL string
}

// DefaultConfig returns the default configuration (the gateway)
func DefaultConfig() *Config {
	return DefaultGatewayConfig()
}

// DefaultGatewayConfig returns the default gateway configuration
func DefaultGatewayConfig() *Config {
	return &Config{
		Provider:    ProviderGateway,
		Model:       DefaultGatewayModel,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		GatewayURL:  DefaultGatewayURL,
	}
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider:    ProviderGemini,
		Model:       DefaultGeminiModel,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
	}
}

// ConfigFor returns the defaults for a provider, falling back to the gateway
func ConfigFor(p Provider) *Config {
	if p == ProviderGemini {
		return DefaultGeminiConfig()
	}
	return DefaultGatewayConfig()
}

// WithModel returns a copy of the config using model. An empty model keeps the current one.
func (c *Config) WithModel(model string) *Config {
	cp := *c
	if model != "" {
		cp.Model = model
	}
	return &cp
}
