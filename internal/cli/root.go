// Package cli implements the spreadfire command line.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/grantcarthew/spreadfire/internal/config"
	"github.com/grantcarthew/spreadfire/internal/logging"
)

// Version is set at build time.
var Version = "dev"

// Debug enables verbose debug output.
var Debug bool

// JSONOutput enables JSON output format (default is text).
var JSONOutput bool

// NoColor disables color output.
var NoColor bool

// ConfigPath is the YAML config file (empty = $SPREADFIRE_CONFIG or defaults only).
var ConfigPath string

// LogFormat overrides log.format from the config file.
var LogFormat string

// appConfig is loaded before every command runs.
var appConfig = config.Default()

var rootCmd = &cobra.Command{
	Use:   "spreadfire",
	Short: "Grid page server with a reconnecting socket client",
	Long: `spreadfire serves a page with a grid canvas and a socket endpoint at /_websocket.
Clients keep a single socket open, replacing it one second after every loss.
Any text a client sends is broadcast to every client; "[Run calculation]"
starts a timed calculation that reports back to the sender only.`,
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "Enable verbose debug output")
	rootCmd.PersistentFlags().BoolVar(&JSONOutput, "json", false, "Output in JSON format (default is text)")
	rootCmd.PersistentFlags().BoolVar(&NoColor, "no-color", false, "Disable color output")
	rootCmd.PersistentFlags().StringVarP(&ConfigPath, "config", "c", "", "Config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&LogFormat, "log-format", "", "Log format: console or json")
	rootCmd.SetVersionTemplate(`spreadfire version {{.Version}}
`)
}

// setup loads the config file and installs the logger.
func setup(cmd *cobra.Command, args []string) error {
	path := ConfigPath
	if path == "" {
		path = os.Getenv("SPREADFIRE_CONFIG")
	}

	cfg, err := config.LoadAndValidate(path)
	if err != nil {
		return outputError(err.Error())
	}
	ConfigPath = path

	if cmd.Flags().Changed("log-format") {
		cfg.Log.Format = LogFormat
	}
	if Debug {
		cfg.Log.Level = "debug"
	}

	err = logging.Setup(logging.Options{
		Level:   cfg.Log.Level,
		Format:  logging.Format(cfg.Log.Format),
		Output:  os.Stderr,
		NoColor: !shouldUseColor(),
	})
	if err != nil {
		return outputError(err.Error())
	}

	appConfig = cfg
	debugf("config loaded (path=%q)", path)
	return nil
}

// debugf logs a debug message if debug mode is enabled.
func debugf(format string, args ...any) {
	log.Debug().Msgf(format, args...)
}

// Execute runs the root command.
// Supports command abbreviation via unique prefix matching.
func Execute() error {
	// Try abbreviation expansion for CLI commands
	args := os.Args[1:]
	if len(args) > 0 {
		if expanded := tryExpandCommand(args[0]); expanded != "" {
			args[0] = expanded
			rootCmd.SetArgs(args)
		}
	}
	return rootCmd.Execute()
}

// tryExpandCommand attempts to expand a command abbreviation.
// Returns the expanded command if exactly one match is found, empty string otherwise.
func tryExpandCommand(prefix string) string {
	var matches []string
	for _, cmd := range rootCmd.Commands() {
		name := cmd.Name()
		if name == prefix {
			// Exact match, no expansion needed
			return ""
		}
		if len(prefix) < len(name) && name[:len(prefix)] == prefix {
			matches = append(matches, name)
		}
	}

	// Return expanded command only if exactly one match
	if len(matches) == 1 {
		return matches[0]
	}
	return ""
}

// printedError is an error whose message has already been written to stderr.
type printedError struct {
	msg string
}

func (e *printedError) Error() string {
	return e.msg
}

// IsPrintedError reports whether err was already shown to the user.
func IsPrintedError(err error) bool {
	var pe *printedError
	return errors.As(err, &pe)
}

// isStdoutTTY returns true if stdout is a terminal.
func isStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// isStdinTTY returns true if stdin is a terminal.
func isStdinTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// outputJSON writes a JSON response to the given writer.
// Pretty prints if stdout is a TTY, compact otherwise.
func outputJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	if isStdoutTTY() {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(data)
}

// outputSuccess writes a successful response to stdout.
// Uses text format by default, JSON if --json flag is set.
// For action commands (no data), outputs "OK" in text mode.
func outputSuccess(data any) error {
	if JSONOutput {
		resp := map[string]any{
			"ok": true,
		}
		if data != nil {
			resp["data"] = data
		}
		return outputJSON(os.Stdout, resp)
	}

	if data == nil {
		if shouldUseColor() {
			color.New(color.FgGreen).Fprintln(os.Stdout, "OK")
		} else {
			fmt.Fprintln(os.Stdout, "OK")
		}
		return nil
	}

	_, err := fmt.Fprintf(os.Stdout, "%v\n", data)
	return err
}

// outputError writes an error response to stderr and returns an error.
// Uses text format by default, JSON if --json flag is set.
func outputError(msg string) error {
	if JSONOutput {
		resp := map[string]any{
			"ok":    false,
			"error": msg,
		}
		_ = outputJSON(os.Stderr, resp)
	} else {
		if shouldUseColor() {
			color.New(color.FgRed).Fprint(os.Stderr, "Error:")
			fmt.Fprintf(os.Stderr, " %s\n", msg)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
		}
	}
	return &printedError{msg: msg}
}

// shouldUseColor determines if color output should be used based on flags and environment.
func shouldUseColor() bool {
	if JSONOutput {
		return false
	}
	if NoColor {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}
