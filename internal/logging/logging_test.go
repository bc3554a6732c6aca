package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestSetup(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	tests := []struct {
		level    string
		expected zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{" warn ", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := Setup(tt.level, &buf, false)
			if err != nil {
				t.Fatalf("Setup(%q) failed: %v", tt.level, err)
			}
			if logger.GetLevel() != tt.expected {
				t.Errorf("Expected level %v, got %v", tt.expected, logger.GetLevel())
			}
			if zerolog.GlobalLevel() != tt.expected {
				t.Errorf("Expected global level %v, got %v", tt.expected, zerolog.GlobalLevel())
			}
		})
	}
}

func TestSetupInvalidLevel(t *testing.T) {
	_, err := Setup("loud", &bytes.Buffer{}, false)
	if err == nil {
		t.Fatal("Expected error for invalid level")
	}
	if !strings.Contains(err.Error(), "invalid log level") {
		t.Errorf("Expected invalid log level error, got: %v", err)
	}
}

func TestSetupJSONOutput(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	if _, err := Setup("info", &buf, false); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	log.Info().Str("collection", "paper_content").Msg("indexed")
	log.Debug().Msg("filtered")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("Expected 1 log line, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("Expected JSON log line: %v", err)
	}
	if entry["message"] != "indexed" || entry["collection"] != "paper_content" {
		t.Errorf("Unexpected log entry: %v", entry)
	}
	if _, ok := entry["time"]; !ok {
		t.Error("Expected timestamp in log entry")
	}
}

func TestSetupConsoleOutput(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	if _, err := Setup("info", &buf, true); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	log.Info().Msg("loaded documents")

	out := buf.String()
	if !strings.Contains(out, "loaded documents") {
		t.Errorf("Expected message in console output, got %q", out)
	}
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Errorf("Expected human readable output, got JSON %q", out)
	}
}
