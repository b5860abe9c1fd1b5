// Package format renders command results as human-readable text.
package format

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/grantcarthew/spreadfire/internal/display"
	"github.com/grantcarthew/spreadfire/internal/wsconn"
)

// Color helper functions that respect color.NoColor flag
func colorFprint(w io.Writer, c color.Attribute, s string) {
	color.New(c).Fprint(w, s)
}

func colorFprintf(w io.Writer, c color.Attribute, format string, args ...any) {
	color.New(c).Fprintf(w, format, args...)
}

// OutputOptions controls text formatting behavior.
type OutputOptions struct {
	UseColor bool // Enable ANSI color codes
}

// NewOutputOptions returns output options based on flags and environment.
// Priority: jsonOutput > noColorFlag > NO_COLOR env > TTY detection.
func NewOutputOptions(jsonOutput bool, noColorFlag bool) OutputOptions {
	// JSON output never has colors
	if jsonOutput {
		return OutputOptions{UseColor: false}
	}

	// --no-color flag disables colors
	if noColorFlag {
		return OutputOptions{UseColor: false}
	}

	// NO_COLOR environment variable disables colors
	if os.Getenv("NO_COLOR") != "" {
		return OutputOptions{UseColor: false}
	}

	// Enable colors if stdout is a TTY
	return OutputOptions{
		UseColor: term.IsTerminal(int(os.Stdout.Fd())),
	}
}

// ActionSuccess outputs "OK" for successful action commands.
func ActionSuccess(w io.Writer) error {
	_, err := fmt.Fprintln(w, "OK")
	return err
}

// ActionError outputs "Error: <message>" for failed action commands.
func ActionError(w io.Writer, msg string, opts OutputOptions) error {
	if opts.UseColor {
		colorFprint(w, color.FgRed, "Error:")
		_, err := fmt.Fprintf(w, " %s\n", msg)
		return err
	}
	_, err := fmt.Fprintf(w, "Error: %s\n", msg)
	return err
}

// stateColor picks the color for a connection state.
func stateColor(s wsconn.State) color.Attribute {
	switch s {
	case wsconn.StateOpen:
		return color.FgGreen
	case wsconn.StateConnecting:
		return color.FgCyan
	case wsconn.StateClosedPendingRetry:
		return color.FgYellow
	default:
		return color.FgRed
	}
}

// Connection outputs connection health in text format.
// Format:
//
//	open ws://localhost:3000/_websocket
//	opens: 2, reconnect attempts: 0, last open: 12:00:01
//	last error: ...
func Connection(w io.Writer, info wsconn.Info, opts OutputOptions) error {
	if opts.UseColor {
		colorFprint(w, stateColor(info.State), info.State.String())
	} else {
		fmt.Fprint(w, info.State.String())
	}
	fmt.Fprintf(w, " %s\n", info.URL)

	if !info.EverConnected {
		fmt.Fprintf(w, "never connected, reconnect attempts: %d\n", info.ReconnectCount)
	} else {
		fmt.Fprintf(w, "opens: %d, reconnect attempts: %d, last open: %s\n",
			info.Opens, info.ReconnectCount, info.LastOpen.Format("15:04:05"))
	}

	if info.LastError != "" {
		if opts.UseColor {
			colorFprintf(w, color.FgYellow, "last error: %s\n", info.LastError)
		} else {
			fmt.Fprintf(w, "last error: %s\n", info.LastError)
		}
	}
	return nil
}

// History outputs received lines with their arrival time.
// Format: 12:00:01.000  text
func History(w io.Writer, lines []display.Line, opts OutputOptions) error {
	for _, line := range lines {
		ts := line.ReceivedAt.Format("15:04:05.000")
		if opts.UseColor {
			colorFprint(w, color.FgHiBlack, ts)
		} else {
			fmt.Fprint(w, ts)
		}
		if _, err := fmt.Fprintf(w, "  %s\n", line.Text); err != nil {
			return err
		}
	}
	return nil
}

// ServerInfo describes a started server.
type ServerInfo struct {
	URL         string        `json:"url"`
	Socket      string        `json:"socket"`
	Calculation time.Duration `json:"calculation"`
	Assets      string        `json:"assets"`
	ConfigPath  string        `json:"configPath,omitempty"`
	Watching    bool          `json:"watching"`
}

// ServerStarted outputs the startup banner of `spreadfire serve`.
func ServerStarted(w io.Writer, info ServerInfo, opts OutputOptions) error {
	if opts.UseColor {
		fmt.Fprint(w, "Server started: ")
		colorFprintf(w, color.FgGreen, "%s\n", info.URL)
	} else {
		fmt.Fprintf(w, "Server started: %s\n", info.URL)
	}
	fmt.Fprintf(w, "Socket: %s\n", info.Socket)
	fmt.Fprintf(w, "Calculation: %s\n", info.Calculation)
	fmt.Fprintf(w, "Assets: %s\n", info.Assets)
	if info.ConfigPath != "" {
		if info.Watching {
			fmt.Fprintf(w, "Config: %s (watching for changes)\n", info.ConfigPath)
		} else {
			fmt.Fprintf(w, "Config: %s\n", info.ConfigPath)
		}
	}
	_, err := fmt.Fprintln(w, "\nPress Ctrl+C to stop the server")
	return err
}
