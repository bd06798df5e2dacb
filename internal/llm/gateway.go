package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxErrorBody caps how much of a failed response body is kept
const maxErrorBody = 4096

// GatewayClient implements Client against an OpenAI-compatible chat-completions endpoint
type GatewayClient struct {
	httpClient *http.Client
	config     *Config
	apiKey     string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float32        `json:"temperature"`
	MaxTokens      int32          `json:"max_tokens,omitempty"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewGatewayClient creates a gateway client. A nil httpClient uses http.DefaultClient;
// deadlines come from the request context.
func NewGatewayClient(config *Config, apiKey string, httpClient *http.Client) (*GatewayClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if config == nil {
		config = DefaultGatewayConfig()
	}
	if config.GatewayURL == "" {
		return nil, fmt.Errorf("gateway URL is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &GatewayClient{httpClient: httpClient, config: config, apiKey: apiKey}, nil
}

// GenerateJSON posts the prompt and returns the first choice's message content
func (c *GatewayClient) GenerateJSON(ctx context.Context, prompt Prompt) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.User},
		},
		Temperature:    c.config.Temperature,
		MaxTokens:      c.config.MaxTokens,
		ResponseFormat: responseFormat{Type: "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.GatewayURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &TransportError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &TransportError{Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", &TransportError{Err: fmt.Errorf("no response from model")}
	}

	return CleanJSONBlock(parsed.Choices[0].Message.Content), nil
}

// Model returns the configured model identifier
func (c *GatewayClient) Model() string {
	return c.config.Model
}

// Close is a no-op; the HTTP client is shared
func (c *GatewayClient) Close() error {
	return nil
}
