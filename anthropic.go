package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const anthropicAPIURL = "https://api.anthropic.com/v1/messages"

// Ensure AnthropicClient implements LLMProvider
var _ LLMProvider = (*AnthropicClient)(nil)

// AnthropicClient implements LLMProvider for direct Anthropic API
type AnthropicClient struct {
	apiKey     string
	apiURL     string
	models     ModelSettings
	httpClient *http.Client
}

// AnthropicRequest represents a request to the Anthropic Messages API
type AnthropicRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
}

// AnthropicResponse represents a response from the Anthropic Messages API
type AnthropicResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// NewAnthropicProvider creates an AnthropicClient as an LLMProvider
func NewAnthropicProvider(cfg *ProviderConfig) (LLMProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key required (set NAMECRITIC_API_KEY)")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	apiURL := anthropicAPIURL
	if cfg.BaseURL != "" {
		apiURL = strings.TrimRight(cfg.BaseURL, "/") + "/v1/messages"
	}

	return &AnthropicClient{
		apiKey:     cfg.APIKey,
		apiURL:     apiURL,
		models:     cfg.Models,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Name returns the provider name
func (c *AnthropicClient) Name() string {
	return "Anthropic"
}

// MapModel maps a role alias to an Anthropic model ID
func (c *AnthropicClient) MapModel(alias string) string {
	return MapModelGeneric(ProviderAnthropic, c.models, alias)
}

// DefaultModel returns the default model
func (c *AnthropicClient) DefaultModel() string {
	return c.MapModel(RoleGenerator)
}

// claudeMessages builds the message list for a Claude request. Claude has no JSON
// mode, so JSON requests prefill the assistant turn with an opening brace.
func claudeMessages(req ChatRequest) []Message {
	messages := []Message{{Role: "user", Content: req.User}}
	if req.JSON {
		messages = append(messages, Message{Role: "assistant", Content: "{"})
	}
	return messages
}

// claudeTemperature clamps to the 0..1 range Claude accepts
func claudeTemperature(t float64) *float64 {
	if t == 0 {
		return nil
	}
	if t > 1 {
		t = 1
	}
	return &t
}

func claudeMaxTokens(n int) int {
	if n <= 0 {
		return 1024
	}
	return n
}

// Chat sends a request to the Anthropic API
func (c *AnthropicClient) Chat(ctx context.Context, creq ChatRequest) (*ChatResult, error) {
	model := c.MapModel(creq.Model)
	if model == "" {
		model = c.DefaultModel()
	}

	req := AnthropicRequest{
		Model:       model,
		MaxTokens:   claudeMaxTokens(creq.MaxTokens),
		System:      creq.System,
		Messages:    claudeMessages(creq),
		Temperature: claudeTemperature(creq.Temperature),
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var apiResp AnthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	var text string
	for _, content := range apiResp.Content {
		if content.Type == "text" {
			text += content.Text
		}
	}

	if text == "" {
		return nil, fmt.Errorf("model returned no text content (stop_reason: %s)", apiResp.StopReason)
	}
	if creq.JSON {
		text = "{" + text
	}

	return &ChatResult{
		Text:         strings.TrimSpace(text),
		Model:        model,
		InputTokens:  apiResp.Usage.InputTokens,
		OutputTokens: apiResp.Usage.OutputTokens,
		Latency:      time.Since(start),
	}, nil
}
