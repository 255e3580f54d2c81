package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// Ensure GeminiClient implements LLMProvider
var _ LLMProvider = (*GeminiClient)(nil)

// GeminiClient implements LLMProvider for the Google Gemini API
type GeminiClient struct {
	client *genai.Client
	models ModelSettings
}

// NewGeminiProvider creates a GeminiClient as an LLMProvider
func NewGeminiProvider(ctx context.Context, cfg *ProviderConfig) (LLMProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key required (set NAMECRITIC_API_KEY)")
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiClient{client: client, models: cfg.Models}, nil
}

// Name returns the provider name
func (c *GeminiClient) Name() string {
	return "Gemini"
}

// MapModel maps a role alias to a Gemini model ID
func (c *GeminiClient) MapModel(alias string) string {
	return MapModelGeneric(ProviderGemini, c.models, alias)
}

// DefaultModel returns the default model
func (c *GeminiClient) DefaultModel() string {
	return c.MapModel(RoleGenerator)
}

func float32Opt(v float64) *float32 {
	if v == 0 {
		return nil
	}
	f := float32(v)
	return &f
}

// Chat sends a request through the genai SDK
func (c *GeminiClient) Chat(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	model := c.MapModel(req.Model)
	if model == "" {
		model = c.DefaultModel()
	}

	gcfg := &genai.GenerateContentConfig{
		Temperature: float32Opt(req.Temperature),
		TopP:        float32Opt(req.TopP),
	}
	if req.System != "" {
		gcfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		gcfg.ResponseMIMEType = "application/json"
	}
	if req.MaxTokens > 0 {
		gcfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, model, genai.Text(req.User), gcfg)
	if err != nil {
		return nil, fmt.Errorf("model.GenerateContent(): %w", err)
	}

	text := resp.Text()
	if text == "" {
		reason := "unknown"
		if len(resp.Candidates) > 0 {
			reason = string(resp.Candidates[0].FinishReason)
		}
		return nil, fmt.Errorf("model returned no text (finish_reason: %s)", reason)
	}

	result := &ChatResult{
		Text:    strings.TrimSpace(text),
		Model:   model,
		Latency: time.Since(start),
	}
	if resp.UsageMetadata != nil {
		result.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return result, nil
}
