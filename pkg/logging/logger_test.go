package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"tourgen/pkg/config"
)

func TestInitAndRotate(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.LogConfig{
		Server:   config.LogSettings{Path: filepath.Join(dir, "server.log"), Level: "DEBUG"},
		Requests: config.LogSettings{Path: filepath.Join(dir, "requests.log"), Level: "INFO"},
	}

	cleanup, err := Init(cfg)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	slog.Info("hello from test")
	RequestLogger.Info("request log line")
	cleanup()

	data, err := os.ReadFile(cfg.Server.Path)
	if err != nil {
		t.Fatalf("Failed to read server log: %v", err)
	}
	if len(data) == 0 {
		t.Error("Server log is empty")
	}

	// Second init should rotate the previous file to .old.
	cleanup2, err := Init(cfg)
	if err != nil {
		t.Fatalf("Second Init failed: %v", err)
	}
	defer cleanup2()

	if _, err := os.Stat(cfg.Server.Path + ".old"); err != nil {
		t.Errorf("Expected rotated .old file: %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"Warn", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"garbage", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
