package cli

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/grantcarthew/spreadfire/internal/wsconn"
)

var connectCmd = &cobra.Command{
	Use:   "connect [origin]",
	Short: "Interactive client for a spreadfire server",
	Long: `Connect to a spreadfire server and keep the connection alive.

Received text is printed as it arrives. Each line typed is sent to the
server, which broadcasts it to every connected client. The connection is
replaced one second after every loss, forever; lines typed while it is down
are dropped with a notice.

The origin defaults to client.origin from the config file
(http://localhost:3000). http maps to ws, https to wss.

Commands:
  /run        Start a calculation
  /status     Show connection state
  /history    Show received lines
  /clear      Forget received lines
  /quit       Disconnect and exit

Examples:
  connect                          # http://localhost:3000
  connect https://calc.example.com # wss://calc.example.com/_websocket
  echo hello | connect             # Send stdin lines, then exit`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConnect,
}

var (
	connectReconnectDelay time.Duration
	connectHistory        int
)

func init() {
	connectCmd.Flags().DurationVar(&connectReconnectDelay, "reconnect-delay", 0, "Wait between a lost connection and the next attempt (default from config)")
	connectCmd.Flags().IntVar(&connectHistory, "history", 0, "Received lines kept for /history (default from config)")

	rootCmd.AddCommand(connectCmd)
}

// clientSettingsFrom merges the config file with the origin argument and flags.
func clientSettingsFrom(args []string, reconnectDelay time.Duration, history int) clientSettings {
	cfg := appConfig.Client
	s := clientSettings{
		Origin:         cfg.Origin,
		ReconnectDelay: cfg.ReconnectDelay,
		WriteTimeout:   cfg.WriteTimeout,
		History:        cfg.History,
	}
	if len(args) == 1 {
		s.Origin = args[0]
	}
	if reconnectDelay > 0 {
		s.ReconnectDelay = reconnectDelay
	}
	if history > 0 {
		s.History = history
	}
	return s
}

func runConnect(cmd *cobra.Command, args []string) error {
	settings := clientSettingsFrom(args, connectReconnectDelay, connectHistory)

	s, err := dialSession(settings, os.Stdout, nil)
	if err != nil {
		return outputError(err.Error())
	}
	defer s.close()

	debugf("connecting to %s", settings.Origin)

	if isStdinTTY() {
		return runPrompt(s)
	}
	if !waitOpen(s.conn, settings.WriteTimeout) {
		debugf("not connected after %v, reading input anyway", settings.WriteTimeout)
	}
	return runLines(s, os.Stdin)
}

// waitOpen polls until the connection is open or timeout elapses.
func waitOpen(conn sender, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if conn.Info().State == wsconn.StateOpen {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// runPrompt reads lines with editing and history until /quit, Ctrl+C or EOF.
func runPrompt(s *session) error {
	l := liner.NewLiner()
	defer l.Close()

	l.SetCtrlCAborts(true)
	l.SetCompleter(func(line string) []string {
		var out []string
		for _, c := range sessionCommands {
			if strings.HasPrefix("/"+c, line) {
				out = append(out, "/"+c)
			}
		}
		return out
	})

	for {
		line, err := l.Prompt("spreadfire> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		if strings.TrimSpace(line) != "" {
			l.AppendHistory(line)
		}
		if s.handleLine(line) {
			return nil
		}
	}
}

// runLines handles input that is not a terminal, one line at a time.
func runLines(s *session, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if s.handleLine(scanner.Text()) {
			return nil
		}
	}
	return scanner.Err()
}
