package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/grantcarthew/spreadfire/internal/cli/format"
	"github.com/grantcarthew/spreadfire/internal/display"
	"github.com/grantcarthew/spreadfire/internal/server"
	"github.com/grantcarthew/spreadfire/internal/wsconn"
)

// clientSettings are the connection settings shared by connect and run.
type clientSettings struct {
	Origin         string
	ReconnectDelay time.Duration
	WriteTimeout   time.Duration
	History        int
}

// sender is the part of the socket manager a session uses.
type sender interface {
	Send(text string) error
	Info() wsconn.Info
	Close() error
}

// lockedWriter serializes writes from the socket read goroutine and the prompt.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

// session is an interactive client: received text goes to the display,
// typed lines are sent or run as slash commands.
type session struct {
	conn    sender
	display *display.Display
	out     io.Writer
	opts    format.OutputOptions
}

// dialSession connects to the server at settings.Origin and shows everything
// it receives on out.
func dialSession(settings clientSettings, out io.Writer, onState func(wsconn.State)) (*session, error) {
	url, err := wsconn.EndpointFromOrigin(settings.Origin)
	if err != nil {
		return nil, err
	}

	w := &lockedWriter{w: out}
	d := display.New(w, settings.History)
	m, err := wsconn.New(wsconn.Config{
		URL:            url,
		ReconnectDelay: settings.ReconnectDelay,
		WriteTimeout:   settings.WriteTimeout,
		Logger:         &log.Logger,
		OnStateChange:  onState,
	}, func(text string) {
		_ = d.Append(text)
	})
	if err != nil {
		return nil, err
	}

	return newSession(m, d, w, format.NewOutputOptions(JSONOutput, NoColor)), nil
}

func newSession(conn sender, d *display.Display, out io.Writer, opts format.OutputOptions) *session {
	return &session{
		conn:    conn,
		display: d,
		out:     out,
		opts:    opts,
	}
}

// sessionCommands lists slash commands for abbreviation matching.
var sessionCommands = []string{"run", "status", "history", "clear", "help", "quit", "exit"}

// expandAbbreviation expands a command prefix to a full command name.
// Returns the expanded command and true if exactly one match found.
func expandAbbreviation(prefix string, commands []string) (string, bool) {
	prefix = strings.ToLower(prefix)
	var matches []string
	for _, cmd := range commands {
		if cmd == prefix {
			return cmd, true
		}
		if strings.HasPrefix(cmd, prefix) {
			matches = append(matches, cmd)
		}
	}
	if len(matches) == 1 {
		return matches[0], true
	}
	return "", false
}

// handleLine processes one line of input. It returns true when the user asked
// to quit.
func (s *session) handleLine(line string) bool {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return false
	}

	if !strings.HasPrefix(line, "/") {
		s.send(line)
		return false
	}

	fields := strings.Fields(line[1:])
	if len(fields) == 0 {
		s.send(line)
		return false
	}
	cmd, ok := expandAbbreviation(fields[0], sessionCommands)
	if !ok {
		format.ActionError(s.out, fmt.Sprintf("unknown command: /%s (try /help)", fields[0]), s.opts)
		return false
	}

	switch cmd {
	case "run":
		s.send(server.RunCalculationPrefix)
	case "status":
		s.printStatus()
	case "history":
		format.History(s.out, s.display.Lines(), s.opts)
	case "clear":
		s.display.Clear()
		fmt.Fprintln(s.out, "OK")
	case "help":
		s.printHelp()
	case "quit", "exit":
		return true
	}
	return false
}

// send writes text to the socket, reporting why it could not be sent.
func (s *session) send(text string) {
	err := s.conn.Send(text)
	switch {
	case err == nil:
	case errors.Is(err, wsconn.ErrNeverConnected):
		format.ActionError(s.out, "not connected yet, message dropped", s.opts)
	case errors.Is(err, wsconn.ErrNotConnected):
		format.ActionError(s.out, "reconnecting, message dropped", s.opts)
	default:
		format.ActionError(s.out, err.Error(), s.opts)
	}
}

func (s *session) printStatus() {
	info := s.conn.Info()
	if JSONOutput {
		_ = outputJSON(s.out, info)
		return
	}
	format.Connection(s.out, info, s.opts)
}

func (s *session) printHelp() {
	fmt.Fprint(s.out, `
Type a line to send it to every connected client.

Commands (unique prefixes accepted: /r=run, /s=status, /c=clear, /q=quit):
  /run        Start a calculation ("[Run calculation]")
  /status     Show connection state
  /history    Show received lines
  /clear      Forget received lines
  /help       Show this help
  /quit       Disconnect and exit
`)
}

// close disconnects the socket.
func (s *session) close() error {
	return s.conn.Close()
}
