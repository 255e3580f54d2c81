package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"
)

// LLMGuardClient scans the user's theme with an llm-guard server before it
// is interpolated into any prompt.
// See: https://github.com/protectai/llm-guard
type LLMGuardClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	enabled    bool
}

// LLMGuardScanRequest is the request format for /scan/prompt
type LLMGuardScanRequest struct {
	Prompt string `json:"prompt"`
}

// LLMGuardScanResponse is the response from the scanning endpoint
type LLMGuardScanResponse struct {
	IsValid         bool                     `json:"is_valid"`
	SanitizedPrompt string                   `json:"sanitized_prompt,omitempty"`
	Results         map[string]ScannerResult `json:"results"`
}

// ScannerResult represents a single scanner result
type ScannerResult struct {
	Score   float64 `json:"score"`
	IsValid bool    `json:"is_valid"`
	Risk    string  `json:"risk,omitempty"`
}

// NewLLMGuardClient creates a client for baseURL. An empty URL disables scanning.
func NewLLMGuardClient(baseURL string) *LLMGuardClient {
	if baseURL == "" {
		return &LLMGuardClient{enabled: false}
	}

	return &LLMGuardClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   os.Getenv("LLMGUARD_TOKEN"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		enabled: true,
	}
}

// IsEnabled returns whether llm-guard is configured
func (c *LLMGuardClient) IsEnabled() bool {
	return c.enabled
}

// CheckTheme scans theme and returns ErrUnsafeTheme when a scanner flags it.
// The sanitized prompt is returned when the server provides one.
func (c *LLMGuardClient) CheckTheme(ctx context.Context, theme string) (string, error) {
	if !c.enabled {
		return theme, nil
	}

	resp, err := c.ScanPrompt(ctx, theme)
	if err != nil {
		return "", err
	}
	if !resp.IsValid {
		return "", ErrUnsafeTheme(FormatSecurityIssues(resp))
	}
	if resp.SanitizedPrompt != "" {
		return resp.SanitizedPrompt, nil
	}
	return theme, nil
}

// ScanPrompt scans user input for prompt injection, secrets, and toxicity
func (c *LLMGuardClient) ScanPrompt(ctx context.Context, prompt string) (*LLMGuardScanResponse, error) {
	if !c.enabled {
		return &LLMGuardScanResponse{IsValid: true, SanitizedPrompt: prompt}, nil
	}

	body, err := json.Marshal(LLMGuardScanRequest{Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/scan/prompt", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llm-guard request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("llm-guard returned status %d", resp.StatusCode)
	}

	var result LLMGuardScanResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &result, nil
}

// FormatSecurityIssues formats scan results as human-readable warnings
func FormatSecurityIssues(resp *LLMGuardScanResponse) string {
	if resp.IsValid {
		return ""
	}

	var issues []string
	for scanner, result := range resp.Results {
		if !result.IsValid {
			issue := fmt.Sprintf("- %s: score=%.2f", scanner, result.Score)
			if result.Risk != "" {
				issue += fmt.Sprintf(" (%s)", result.Risk)
			}
			issues = append(issues, issue)
		}
	}

	if len(issues) == 0 {
		return "Rephrase the theme and try again."
	}
	sort.Strings(issues)

	return "Security scan detected issues:\n" + strings.Join(issues, "\n")
}
