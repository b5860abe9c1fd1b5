package format

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/grantcarthew/spreadfire/internal/display"
	"github.com/grantcarthew/spreadfire/internal/wsconn"
)

func init() {
	// Disable colors in tests for consistent output
	color.NoColor = true
}

func TestNewOutputOptions(t *testing.T) {
	tests := []struct {
		name             string
		jsonOutput       bool
		noColorFlag      bool
		noColorEnv       string
		expectedUseColor bool
	}{
		{
			name:             "JSON output disables color",
			jsonOutput:       true,
			expectedUseColor: false,
		},
		{
			name:             "no-color flag disables color",
			noColorFlag:      true,
			expectedUseColor: false,
		},
		{
			name:             "NO_COLOR env disables color",
			noColorEnv:       "1",
			expectedUseColor: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", tt.noColorEnv)
			if tt.noColorEnv == "" {
				os.Unsetenv("NO_COLOR")
			}

			opts := NewOutputOptions(tt.jsonOutput, tt.noColorFlag)
			if opts.UseColor != tt.expectedUseColor {
				t.Errorf("UseColor = %v, want %v", opts.UseColor, tt.expectedUseColor)
			}
		})
	}
}

func TestActionSuccess(t *testing.T) {
	var buf bytes.Buffer
	if err := ActionSuccess(&buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.String() != "OK\n" {
		t.Errorf("got %q, want %q", buf.String(), "OK\n")
	}
}

func TestActionError(t *testing.T) {
	var buf bytes.Buffer
	if err := ActionError(&buf, "socket is not open", OutputOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.String() != "Error: socket is not open\n" {
		t.Errorf("got %q", buf.String())
	}
}

func TestConnection(t *testing.T) {
	tests := []struct {
		name     string
		info     wsconn.Info
		contains []string
		excludes []string
	}{
		{
			name: "never connected",
			info: wsconn.Info{
				State:          wsconn.StateClosedPendingRetry,
				URL:            "ws://localhost:3000/_websocket",
				ReconnectCount: 3,
				LastError:      "connection refused",
			},
			contains: []string{"reconnecting ws://localhost:3000/_websocket", "never connected, reconnect attempts: 3", "last error: connection refused"},
		},
		{
			name: "open",
			info: wsconn.Info{
				State:         wsconn.StateOpen,
				URL:           "ws://localhost:3000/_websocket",
				EverConnected: true,
				Opens:         2,
				LastOpen:      time.Date(2026, 1, 2, 12, 0, 1, 0, time.UTC),
			},
			contains: []string{"open ws://localhost:3000/_websocket", "opens: 2, reconnect attempts: 0, last open: 12:00:01"},
			excludes: []string{"last error", "never connected"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Connection(&buf, tt.info, OutputOptions{}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			out := buf.String()
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(out, unwanted) {
					t.Errorf("output contains %q:\n%s", unwanted, out)
				}
			}
		})
	}
}

func TestHistory(t *testing.T) {
	at := time.Date(2026, 1, 2, 9, 30, 0, 250_000_000, time.UTC)
	lines := []display.Line{
		{Text: "hello", ReceivedAt: at},
		{Text: "calculation done at now", ReceivedAt: at.Add(time.Second)},
	}

	var buf bytes.Buffer
	if err := History(&buf, lines, OutputOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "09:30:00.250  hello\n09:30:01.250  calculation done at now\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestServerStarted(t *testing.T) {
	var buf bytes.Buffer
	err := ServerStarted(&buf, ServerInfo{
		URL:         "http://localhost:3000",
		Socket:      "ws://localhost:3000/_websocket",
		Calculation: 5 * time.Second,
		Assets:      "embedded",
		ConfigPath:  "spreadfire.yaml",
		Watching:    true,
	}, OutputOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		"Server started: http://localhost:3000",
		"Socket: ws://localhost:3000/_websocket",
		"Calculation: 5s",
		"Assets: embedded",
		"Config: spreadfire.yaml (watching for changes)",
	} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output missing %q:\n%s", want, buf.String())
		}
	}
}
