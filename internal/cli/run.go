package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/grantcarthew/spreadfire/internal/display"
	"github.com/grantcarthew/spreadfire/internal/server"
	"github.com/grantcarthew/spreadfire/internal/wsconn"
)

var runCmd = &cobra.Command{
	Use:   "run [origin]",
	Short: "Run one calculation and print the result",
	Long: `Connect, send "[Run calculation]" once the connection is open and print
everything received until the calculation result arrives.

Exits non-zero when no result arrives within --wait.

Examples:
  run                              # http://localhost:3000
  run http://10.0.0.5:3000 --wait 1m
  run --json                       # {"ok":true,"data":{"result":...}}`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

var runWait time.Duration

// calculationDone prefixes the frame that reports a finished calculation.
const calculationDone = "calculation done"

func init() {
	runCmd.Flags().DurationVar(&runWait, "wait", 30*time.Second, "How long to wait for the result")

	rootCmd.AddCommand(runCmd)
}

// RunResult is the outcome of a one-shot calculation.
type RunResult struct {
	Result   string        `json:"result"`
	Received []string      `json:"received"`
	Elapsed  time.Duration `json:"elapsed"`
}

func runRun(cmd *cobra.Command, args []string) error {
	settings := clientSettingsFrom(args, 0, 0)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, runWait)
	defer cancel()

	var out io.Writer = os.Stdout
	if JSONOutput {
		out = io.Discard
	}

	res, err := runCalculation(ctx, settings, out)
	if err != nil {
		return outputError(err.Error())
	}
	if JSONOutput {
		return outputSuccess(res)
	}
	return nil
}

// runCalculation connects, requests one calculation and waits for its result.
// Every received line is written to out.
func runCalculation(ctx context.Context, settings clientSettings, out io.Writer) (*RunResult, error) {
	url, err := wsconn.EndpointFromOrigin(settings.Origin)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	opened := make(chan struct{})
	var openOnce sync.Once
	received := make(chan string, 16)
	done := make(chan struct{})

	d := display.New(out, settings.History)
	m, err := wsconn.New(wsconn.Config{
		URL:            url,
		ReconnectDelay: settings.ReconnectDelay,
		WriteTimeout:   settings.WriteTimeout,
		Logger:         &log.Logger,
		OnStateChange: func(s wsconn.State) {
			if s == wsconn.StateOpen {
				openOnce.Do(func() { close(opened) })
			}
		},
	}, func(text string) {
		_ = d.Append(text)
		select {
		case received <- text:
		case <-done:
		}
	})
	if err != nil {
		return nil, err
	}
	defer m.Close()
	defer close(done) // runs first: releases a handler blocked on received

	select {
	case <-opened:
	case <-ctx.Done():
		return nil, fmt.Errorf("not connected to %s: %w", url, waitErr(ctx))
	}

	if err := m.Send(server.RunCalculationPrefix); err != nil {
		return nil, err
	}
	debugf("calculation requested")

	res := &RunResult{}
	for {
		select {
		case text := <-received:
			res.Received = append(res.Received, text)
			if strings.HasPrefix(text, calculationDone) {
				res.Result = text
				res.Elapsed = time.Since(start)
				return res, nil
			}
		case <-ctx.Done():
			return nil, fmt.Errorf("no calculation result: %w", waitErr(ctx))
		}
	}
}

// waitErr names why a wait ended.
func waitErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.New("timed out")
	}
	return errors.New("interrupted")
}
