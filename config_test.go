package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Provider != ProviderOllama {
		t.Errorf("Provider = %q, want ollama", cfg.Provider)
	}
	if cfg.MaxTokens != 1024 {
		t.Errorf("MaxTokens = %d, want 1024", cfg.MaxTokens)
	}
	if cfg.MaxTotalTokens != 0 {
		t.Errorf("MaxTotalTokens = %d, want 0 (unlimited)", cfg.MaxTotalTokens)
	}
	if cfg.DedupeThreshold != 0.92 {
		t.Errorf("DedupeThreshold = %v, want 0.92", cfg.DedupeThreshold)
	}
	if cfg.SearchDelay != time.Second {
		t.Errorf("SearchDelay = %v, want 1s", cfg.SearchDelay)
	}
	if cfg.Parallel != 1 {
		t.Errorf("Parallel = %d, want 1", cfg.Parallel)
	}
	if cfg.Theme == nil {
		t.Error("Theme should not be nil")
	}
	if cfg.Settings == nil {
		t.Error("Settings should not be nil")
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("NAMECRITIC_PROVIDER", "claude")
	t.Setenv("NAMECRITIC_API_KEY", "sk-test")
	t.Setenv("OLLAMA_HOST", "0.0.0.0:9999")
	t.Setenv("NAMECRITIC_GENERATOR_MODEL", "gen-model")
	t.Setenv("NAMECRITIC_RANKER_MODEL", "rank-model")
	t.Setenv("NAMECRITIC_COUNT", "12")
	t.Setenv("NAMECRITIC_MAX_CRITIQUE", "4")
	t.Setenv("NAMECRITIC_SEARCH_DELAY", "1.5")
	t.Setenv("NAMECRITIC_MAX_TOTAL_TOKENS", "50000")
	t.Setenv("NAMECRITIC_WORDNET_DIR", "/tmp/wn")
	t.Setenv("GOOGLE_API_KEY", "g-key")
	t.Setenv("GOOGLE_CSE_ID", "cse")
	t.Setenv("NAMECRITIC_THEME", "dracula")

	cfg := LoadConfig()

	if cfg.Provider != ProviderAnthropic {
		t.Errorf("Provider = %q, want anthropic", cfg.Provider)
	}
	if cfg.APIKey != "sk-test" {
		t.Errorf("APIKey = %q, want sk-test", cfg.APIKey)
	}
	if cfg.OllamaHost != "http://127.0.0.1:9999" {
		t.Errorf("OllamaHost = %q, want http://127.0.0.1:9999", cfg.OllamaHost)
	}
	if cfg.Models.Generator != "gen-model" {
		t.Errorf("Models.Generator = %q, want gen-model", cfg.Models.Generator)
	}
	if cfg.Models.Ranker != "rank-model" {
		t.Errorf("Models.Ranker = %q, want rank-model", cfg.Models.Ranker)
	}
	if cfg.Count != 12 {
		t.Errorf("Count = %d, want 12", cfg.Count)
	}
	if cfg.MaxCritique != 4 {
		t.Errorf("MaxCritique = %d, want 4", cfg.MaxCritique)
	}
	if cfg.SearchDelay != 1500*time.Millisecond {
		t.Errorf("SearchDelay = %v, want 1.5s", cfg.SearchDelay)
	}
	if cfg.MaxTotalTokens != 50000 {
		t.Errorf("MaxTotalTokens = %d, want 50000", cfg.MaxTotalTokens)
	}
	if cfg.WordNetDir != "/tmp/wn" {
		t.Errorf("WordNetDir = %q, want /tmp/wn", cfg.WordNetDir)
	}
	if !cfg.SearchConfigured() {
		t.Error("SearchConfigured() = false with both credentials set")
	}
	if cfg.Settings.Theme.Name != "dracula" {
		t.Errorf("Theme.Name = %q, want dracula", cfg.Settings.Theme.Name)
	}

	pc := cfg.ProviderConfig()
	if pc.Provider != ProviderAnthropic || pc.APIKey != "sk-test" {
		t.Errorf("ProviderConfig() = %+v, want anthropic with key", pc)
	}
}

func TestLoadConfigReadsSettingsFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	settings := DefaultSettings()
	settings.Provider = "gemini"
	settings.Generation.Parallel = 4
	if err := saveSettingsFile(filepath.Join(home, ".namecritic", "settings.json"), settings); err != nil {
		t.Fatalf("saveSettingsFile: %v", err)
	}

	cfg := LoadConfig()

	if cfg.Provider != ProviderGemini {
		t.Errorf("Provider = %q, want gemini", cfg.Provider)
	}
	if cfg.Parallel != 4 {
		t.Errorf("Parallel = %d, want 4", cfg.Parallel)
	}
	if cfg.HistoryDB != filepath.Join(home, ".namecritic", "history.db") {
		t.Errorf("HistoryDB = %q", cfg.HistoryDB)
	}
}

func TestLoadDotEnv(t *testing.T) {
	t.Run("missing file is fine", func(t *testing.T) {
		if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
			t.Errorf("LoadDotEnv() = %v, want nil", err)
		}
	})

	t.Run("existing variables win", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(path, []byte("GOOGLE_CSE_ID=from-file\nNAMECRITIC_DOTENV_ONLY=yes\n"), 0600); err != nil {
			t.Fatal(err)
		}
		t.Setenv("GOOGLE_CSE_ID", "from-env")
		t.Setenv("NAMECRITIC_DOTENV_ONLY", "")
		_ = os.Unsetenv("NAMECRITIC_DOTENV_ONLY")

		if err := LoadDotEnv(path); err != nil {
			t.Fatalf("LoadDotEnv() = %v", err)
		}
		if got := os.Getenv("GOOGLE_CSE_ID"); got != "from-env" {
			t.Errorf("GOOGLE_CSE_ID = %q, want from-env", got)
		}
		if got := os.Getenv("NAMECRITIC_DOTENV_ONLY"); got != "yes" {
			t.Errorf("NAMECRITIC_DOTENV_ONLY = %q, want yes", got)
		}
	})
}

func TestTokenTracker(t *testing.T) {
	t.Run("basic tracking", func(t *testing.T) {
		tracker := NewTokenTracker(1000)

		ok, warn := tracker.Add(100, 200)
		if !ok {
			t.Error("Add should succeed")
		}
		if warn != "" {
			t.Error("Should not warn yet")
		}

		input, output, total := tracker.GetUsage()
		if input != 100 || output != 200 || total != 300 {
			t.Errorf("GetUsage = (%d, %d, %d), want (100, 200, 300)", input, output, total)
		}
	})

	t.Run("warning at threshold", func(t *testing.T) {
		tracker := NewTokenTracker(1000)

		ok, warn := tracker.Add(500, 400) // 900 total, above the 800 warning mark
		if !ok {
			t.Error("Add should succeed")
		}
		if warn == "" {
			t.Error("Should warn at threshold")
		}

		ok, warn = tracker.Add(10, 10)
		if !ok {
			t.Error("Add should succeed")
		}
		if warn != "" {
			t.Error("Should not warn again")
		}
	})

	t.Run("exceed limit", func(t *testing.T) {
		tracker := NewTokenTracker(1000)

		tracker.Add(500, 400)
		ok, warn := tracker.Add(200, 200)

		if ok {
			t.Error("Add should fail when exceeding limit")
		}
		if warn == "" {
			t.Error("Should return error message")
		}
		if !tracker.Exhausted() {
			t.Error("Exhausted() = false after exceeding the budget")
		}
	})

	t.Run("unlimited mode", func(t *testing.T) {
		tracker := NewTokenTracker(0)

		ok, warn := tracker.Add(50000, 50000)
		if !ok {
			t.Error("Add should always succeed in unlimited mode")
		}
		if warn != "" {
			t.Error("Should not warn in unlimited mode")
		}
		if tracker.Exhausted() {
			t.Error("unlimited tracker reported exhausted")
		}
	})
}
