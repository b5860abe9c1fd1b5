package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zerolog.Level
		wantErr bool
	}{
		{in: "", want: zerolog.InfoLevel},
		{in: "debug", want: zerolog.DebugLevel},
		{in: " WARN ", want: zerolog.WarnLevel},
		{in: "error", want: zerolog.ErrorLevel},
		{in: "loud", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Format: FormatJSON, Output: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Debug().Msg("hidden")
	logger.Info().Str("peer", "abc").Msg("websocket join")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if entry["message"] != "websocket join" || entry["peer"] != "abc" || entry["level"] != "info" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "debug", Output: &buf, NoColor: true})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Debug().Msg("connection open")
	if !strings.Contains(buf.String(), "connection open") || !strings.Contains(buf.String(), "DBG") {
		t.Errorf("unexpected console output: %q", buf.String())
	}
}

func TestNew_InvalidFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Error("expected error for invalid format")
	}
}

func TestSetupAndComponent(t *testing.T) {
	saved, savedLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = saved
		zerolog.SetGlobalLevel(savedLevel)
	})

	var buf bytes.Buffer
	if err := Setup(Options{Level: "warn", Format: FormatJSON, Output: &buf}); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	l := Component(nil, "hub")
	l.Info().Msg("dropped")
	before := Component(nil, "server")
	l.Warn().Msg("kept")

	if strings.Contains(buf.String(), "dropped") {
		t.Error("info logged at warn level")
	}
	if !strings.Contains(buf.String(), `"component":"hub"`) {
		t.Errorf("missing component field: %q", buf.String())
	}

	if err := SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel failed: %v", err)
	}
	log.Logger.Debug().Msg("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Error("SetLevel did not lower the level")
	}
	before.Debug().Msg("older child visible")
	if !strings.Contains(buf.String(), "older child visible") {
		t.Error("SetLevel did not reach a logger derived before the change")
	}
}

func TestComponent_UsesGivenBase(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf).With().Str("url", "ws://x").Logger()

	l := Component(&base, "wsconn")
	l.Error().Msg("boom")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	if entry["component"] != "wsconn" || entry["url"] != "ws://x" {
		t.Errorf("entry = %v, want component and inherited url", entry)
	}
}
