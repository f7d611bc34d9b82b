package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/llehouerou/musicbox/internal/config"
)

func TestSetup_JSON(t *testing.T) {
	var buf bytes.Buffer

	logger, err := Setup(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	logger.Info().Msg("hidden")
	logger.Warn().Str("room", "playlists").Msg("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("line is not JSON: %v", err)
	}
	if entry["message"] != "shown" || entry["room"] != "playlists" || entry["level"] != "warn" {
		t.Errorf("entry = %v", entry)
	}
	if _, ok := entry["time"]; !ok {
		t.Error("entry has no timestamp")
	}
}

func TestSetup_ConsoleFormat(t *testing.T) {
	var buf bytes.Buffer

	logger, err := Setup(config.LogConfig{Format: "console"}, &buf)
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	logger.Info().Msg("Client connected")

	if strings.HasPrefix(buf.String(), "{") {
		t.Errorf("console output looks like JSON: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "Client connected") {
		t.Errorf("output = %q, want message", buf.String())
	}
}

func TestSetup_AutoFormatForNonTerminal(t *testing.T) {
	var buf bytes.Buffer

	logger, err := Setup(config.LogConfig{}, &buf)
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	logger.Info().Msg("x")

	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("non-terminal output should be JSON, got %q", buf.String())
	}
}

func TestSetup_Invalid(t *testing.T) {
	tests := []config.LogConfig{
		{Level: "loud"},
		{Format: "xml"},
	}
	for _, cfg := range tests {
		_, err := Setup(cfg, &bytes.Buffer{})
		if !errors.Is(err, config.ErrConfiguration) {
			t.Errorf("Setup(%+v) error = %v, want ErrConfiguration", cfg, err)
		}
	}
}
