package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// Ensure BedrockClient implements LLMProvider
var _ LLMProvider = (*BedrockClient)(nil)

// BedrockClient wraps the AWS Bedrock Runtime client
type BedrockClient struct {
	client *bedrockruntime.Client
	models ModelSettings
}

// Message represents a conversation message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ClaudeRequest represents the request body for Claude models
type ClaudeRequest struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	Messages         []Message `json:"messages"`
	System           string    `json:"system,omitempty"`
	Temperature      *float64  `json:"temperature,omitempty"`
}

// ClaudeResponse represents the response from Claude models
type ClaudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// NewBedrockProvider creates a BedrockClient as an LLMProvider
func NewBedrockProvider(ctx context.Context, cfg *ProviderConfig) (LLMProvider, error) {
	region := cfg.Region
	if region == "" {
		region = getEnvOrDefault("AWS_REGION", "us-east-1")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, ErrAWSConfig(err)
	}

	return &BedrockClient{
		client: bedrockruntime.NewFromConfig(awsCfg),
		models: cfg.Models,
	}, nil
}

// Name returns the provider name
func (b *BedrockClient) Name() string {
	return "Bedrock"
}

// MapModel maps a role alias to a Bedrock model ID
func (b *BedrockClient) MapModel(alias string) string {
	return MapModelGeneric(ProviderBedrock, b.models, alias)
}

// DefaultModel returns the default model
func (b *BedrockClient) DefaultModel() string {
	return b.MapModel(RoleGenerator)
}

// Chat invokes a Claude model on Bedrock
func (b *BedrockClient) Chat(ctx context.Context, creq ChatRequest) (*ChatResult, error) {
	modelID := b.MapModel(creq.Model)
	if modelID == "" {
		modelID = b.DefaultModel()
	}

	request := ClaudeRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        claudeMaxTokens(creq.MaxTokens),
		Messages:         claudeMessages(creq),
		System:           creq.System,
		Temperature:      claudeTemperature(creq.Temperature),
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	start := time.Now()
	output, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		Body:        requestBody,
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, ErrBedrockInvoke(err)
	}

	var response ClaudeResponse
	if err := json.Unmarshal(output.Body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	var text string
	for _, content := range response.Content {
		if content.Type == "text" {
			text += content.Text
		}
	}
	if creq.JSON {
		text = "{" + text
	}

	return &ChatResult{
		Text:         strings.TrimSpace(text),
		Model:        modelID,
		InputTokens:  response.Usage.InputTokens,
		OutputTokens: response.Usage.OutputTokens,
		Latency:      time.Since(start),
	}, nil
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
