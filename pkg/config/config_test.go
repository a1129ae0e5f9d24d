package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tourgen.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected config file to be created: %v", err)
	}
	if cfg.Pipeline.MaxPhotos != 5 {
		t.Errorf("Default max_photos = %d, want 5", cfg.Pipeline.MaxPhotos)
	}
	if cfg.Queue.MaxAttempts != 5 {
		t.Errorf("Default max_attempts = %d, want 5", cfg.Queue.MaxAttempts)
	}
}

func TestLoadMergesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tourgen.yaml")
	content := `
pipeline:
  max_photos: 8
queue:
  visibility_timeout: 90s
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Pipeline.MaxPhotos != 8 {
		t.Errorf("max_photos = %d, want 8", cfg.Pipeline.MaxPhotos)
	}
	if time.Duration(cfg.Queue.VisibilityTimeout) != 90*time.Second {
		t.Errorf("visibility_timeout = %v", cfg.Queue.VisibilityTimeout)
	}
	// Untouched sections keep defaults.
	if cfg.LLM.Provider != "openai" {
		t.Errorf("llm.provider default lost: %q", cfg.LLM.Provider)
	}
}

func TestEnvOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tourgen.yaml")
	t.Setenv("PLACES_API_KEY", "places-secret")
	t.Setenv("OPENAI_API_KEY", "openai-secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Places.Key != "places-secret" {
		t.Errorf("Places key not overlaid: %q", cfg.Places.Key)
	}
	if cfg.LLM.OpenAI.Key != "openai-secret" {
		t.Errorf("OpenAI key not overlaid: %q", cfg.LLM.OpenAI.Key)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"BadLocale", func(c *Config) { c.TTS.Language = "english" }},
		{"ZeroPhotos", func(c *Config) { c.Pipeline.MaxPhotos = 0 }},
		{"ZeroConcurrency", func(c *Config) { c.Pipeline.PhotoConcurrency = 0 }},
		{"UnknownProvider", func(c *Config) { c.LLM.Provider = "llama-at-home" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"90s", 90 * time.Second},
		{"2h45m", 2*time.Hour + 45*time.Minute},
		{"1d", Day},
		{"1w", Week},
		{"1d12h", Day + 12*time.Hour},
		{"", 0},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		if err != nil {
			t.Errorf("ParseDuration(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseDuration("soon"); err == nil {
		t.Error("Expected error for junk input")
	}
}
