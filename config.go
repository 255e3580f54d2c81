package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds runtime configuration
type Config struct {
	// Provider selection
	Provider   ProviderType
	APIKey     string
	BaseURL    string // OpenAI-compatible endpoint override
	OllamaHost string
	Region     string // For Bedrock
	Timeout    time.Duration

	Models ModelSettings

	// Run size (0 = profile default)
	Count       int
	MaxCritique int
	Parallel    int
	OutputDir   string

	// Web availability check
	GoogleAPIKey string
	GoogleCSEID  string
	WebCheck     bool
	SearchDelay  time.Duration

	// Similarity
	DedupeThreshold float64

	// Token budget
	MaxTokens      int // Maximum tokens per response
	MaxTotalTokens int // Maximum total tokens per run (0 = unlimited)

	// Paths
	WordNetDir string
	HistoryDB  string

	LLMGuardURL string

	Settings *Settings
	Theme    *Theme
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return configFromSettings(DefaultSettings())
}

func configFromSettings(s *Settings) *Config {
	cfg := &Config{
		Provider:        ParseProviderType(s.Provider),
		OllamaHost:      defaultOllamaHost,
		Region:          "us-east-1",
		Timeout:         120 * time.Second,
		Models:          s.Models,
		Count:           s.Generation.Count,
		MaxCritique:     s.Generation.MaxCritique,
		Parallel:        s.Generation.Parallel,
		OutputDir:       s.Generation.OutputDir,
		WebCheck:        s.Search.Enabled,
		SearchDelay:     time.Duration(s.Search.DelayMillis) * time.Millisecond,
		DedupeThreshold: s.Similarity.Threshold,
		MaxTokens:       s.Tokens.MaxPerResponse,
		MaxTotalTokens:  s.Tokens.MaxPerRun,
		Settings:        s,
		Theme:           NewTheme(&s.Theme),
	}
	if cfg.Parallel < 1 {
		cfg.Parallel = 1
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}
	if dir, err := AppDir(); err == nil {
		cfg.WordNetDir = filepath.Join(dir, "wordnet")
		cfg.HistoryDB = filepath.Join(dir, "history.db")
	}
	return cfg
}

// LoadDotEnv loads KEY=VALUE pairs from path into the environment.
// Variables that are already set win, and a missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// LoadConfig loads configuration from settings, .env and environment variables
func LoadConfig() *Config {
	settings, _ := LoadSettings()
	_ = LoadDotEnv(".env")
	cfg := configFromSettings(settings)
	applyEnv(cfg)
	return cfg
}

func applyEnv(cfg *Config) {
	// Provider
	if val := os.Getenv("NAMECRITIC_PROVIDER"); val != "" {
		cfg.Provider = ParseProviderType(val)
	}
	cfg.APIKey = os.Getenv("NAMECRITIC_API_KEY")
	if val := os.Getenv("NAMECRITIC_BASE_URL"); val != "" {
		cfg.BaseURL = val
	}
	if val := os.Getenv("OLLAMA_HOST"); val != "" {
		cfg.OllamaHost = normalizeOllamaHost(val)
	}
	if val := os.Getenv("AWS_REGION"); val != "" {
		cfg.Region = val
	}
	if val := os.Getenv("NAMECRITIC_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}

	// Models
	if val := os.Getenv("NAMECRITIC_GENERATOR_MODEL"); val != "" {
		cfg.Models.Generator = val
	}
	if val := os.Getenv("NAMECRITIC_CRITIC_MODEL"); val != "" {
		cfg.Models.Critic = val
	}
	if val := os.Getenv("NAMECRITIC_SYNTHESIS_MODEL"); val != "" {
		cfg.Models.Synthesis = val
	}
	if val := os.Getenv("NAMECRITIC_RANKER_MODEL"); val != "" {
		cfg.Models.Ranker = val
	}

	// Run size
	if val := os.Getenv("NAMECRITIC_COUNT"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			cfg.Count = n
		}
	}
	if val := os.Getenv("NAMECRITIC_MAX_CRITIQUE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			cfg.MaxCritique = n
		}
	}

	// Web check
	cfg.GoogleAPIKey = os.Getenv("GOOGLE_API_KEY")
	cfg.GoogleCSEID = os.Getenv("GOOGLE_CSE_ID")
	if val := os.Getenv("NAMECRITIC_SEARCH_DELAY"); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d >= 0 {
			cfg.SearchDelay = d
		} else if f, err := strconv.ParseFloat(val, 64); err == nil && f >= 0 {
			cfg.SearchDelay = time.Duration(f * float64(time.Second))
		}
	}

	// Token budget
	if val := os.Getenv("NAMECRITIC_MAX_TOKENS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			cfg.MaxTokens = n
		}
	}
	if val := os.Getenv("NAMECRITIC_MAX_TOTAL_TOKENS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n >= 0 {
			cfg.MaxTotalTokens = n // 0 = unlimited
		}
	}

	// Paths
	if val := os.Getenv("NAMECRITIC_WORDNET_DIR"); val != "" {
		cfg.WordNetDir = val
	}
	if val := os.Getenv("NAMECRITIC_HISTORY_DB"); val != "" {
		cfg.HistoryDB = val
	}

	cfg.LLMGuardURL = os.Getenv("LLMGUARD_URL")

	if val := os.Getenv("NAMECRITIC_THEME"); val != "" {
		cfg.Settings.Theme.Name = val
		cfg.Theme = NewTheme(&cfg.Settings.Theme)
	}
}

// SearchConfigured reports whether both Custom Search credentials are present
func (c *Config) SearchConfigured() bool {
	return c.GoogleAPIKey != "" && c.GoogleCSEID != ""
}

// ProviderConfig builds the provider factory input from the runtime config
func (c *Config) ProviderConfig() *ProviderConfig {
	return &ProviderConfig{
		Provider:   c.Provider,
		APIKey:     c.APIKey,
		BaseURL:    c.BaseURL,
		OllamaHost: c.OllamaHost,
		Region:     c.Region,
		Timeout:    c.Timeout,
		Models:     c.Models,
	}
}

// TokenTracker tracks token usage across a run. Safe for concurrent use.
type TokenTracker struct {
	mu           sync.Mutex
	InputTokens  int
	OutputTokens int
	TotalTokens  int
	Calls        int
	MaxTokens    int
	WarnAt       int
	warned       bool
}

// NewTokenTracker creates a new token tracker with the given limits
func NewTokenTracker(maxTokens int) *TokenTracker {
	return &TokenTracker{
		MaxTokens: maxTokens,
		WarnAt:    maxTokens * 80 / 100,
	}
}

// Add adds tokens to the tracker and returns (ok, warning message)
func (t *TokenTracker) Add(input, output int) (bool, string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Calls++
	t.InputTokens += input
	t.OutputTokens += output
	t.TotalTokens = t.InputTokens + t.OutputTokens

	if t.MaxTokens == 0 {
		return true, ""
	}

	if t.TotalTokens > t.MaxTokens {
		return false, "Token budget exceeded. Remaining model calls will be skipped."
	}

	// Warn once
	if !t.warned && t.WarnAt > 0 && t.TotalTokens >= t.WarnAt {
		t.warned = true
		remaining := t.MaxTokens - t.TotalTokens
		return true, formatTokenWarning(remaining, t.MaxTokens)
	}

	return true, ""
}

// Exhausted reports whether the budget has been spent
func (t *TokenTracker) Exhausted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.MaxTokens > 0 && t.TotalTokens > t.MaxTokens
}

// GetUsage returns current token usage
func (t *TokenTracker) GetUsage() (input, output, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.InputTokens, t.OutputTokens, t.TotalTokens
}

func formatTokenWarning(remaining, max int) string {
	pct := (max - remaining) * 100 / max
	return "Warning: " + strconv.Itoa(pct) + "% of token budget used (" + strconv.Itoa(remaining) + " tokens remaining)."
}
