package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewJSONLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.DebugLevel)

	var buf bytes.Buffer
	log := newWithWriter("warn", "json", &buf)
	log.Info().Msg("hidden")
	log.Warn().Str("guild", "g1").Msg("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("not json: %v", err)
	}
	if entry["message"] != "shown" || entry["guild"] != "g1" || entry["level"] != "warn" {
		t.Errorf("entry = %v", entry)
	}
}

func TestNewTextFormat(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.DebugLevel)

	var buf bytes.Buffer
	log := newWithWriter("debug", "text", &buf)
	log.Debug().Msg("console line")
	if strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), "console line") {
		t.Errorf("unexpected text output: %q", buf.String())
	}
}
