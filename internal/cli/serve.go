package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/grantcarthew/spreadfire/internal/cli/format"
	"github.com/grantcarthew/spreadfire/internal/config"
	"github.com/grantcarthew/spreadfire/internal/logging"
	"github.com/grantcarthew/spreadfire/internal/server"
	"github.com/grantcarthew/spreadfire/internal/wsconn"
)

var serveCmd = &cobra.Command{
	Use:   "serve [directory]",
	Short: "Serve the grid page and the socket endpoint",
	Long: `Serve the grid page at / and the socket endpoint at /_websocket.

The page assets are compiled into the binary. Pass a directory to serve
index.html and its scripts from disk instead.

Socket behavior:
  "[Run calculation]..."   restart the sender's calculation; after the
                           calculation length the sender receives
                           "calculation done at <timestamp>"
  anything else            broadcast to every connected client

On Ctrl+C every client receives "server shutdown" before it is closed.

When a config file is given it is watched; edits to server.calculation and
log.level apply without a restart.

Examples:
  serve                            # Embedded page on port 3000
  serve ./public                   # Page from ./public
  serve --port 0 --host localhost  # Auto-detect a free port
  serve --calculation 2s           # Shorter calculations
  serve -c spreadfire.yaml         # Settings from a file, hot reloaded`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

var (
	servePort        int
	serveHost        string
	serveCalculation time.Duration
	servePeerBuffer  int
	serveWatch       bool
)

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", config.DefaultPort, "Server port (0 = auto-detect)")
	serveCmd.Flags().StringVar(&serveHost, "host", config.DefaultHost, "Bind host (localhost or 0.0.0.0)")
	serveCmd.Flags().DurationVar(&serveCalculation, "calculation", config.DefaultCalculation, "Calculation length")
	serveCmd.Flags().IntVar(&servePeerBuffer, "peer-buffer", config.DefaultPeerBuffer, "Outbound frames queued per client")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", true, "Reload the config file when it changes")

	rootCmd.AddCommand(serveCmd)
}

// serveSettings merges the config file with flags given on the command line.
func serveSettings(cmd *cobra.Command, args []string) config.ServerConfig {
	cfg := appConfig.Server
	if len(args) == 1 {
		cfg.Directory = args[0]
	}
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Port = servePort
	}
	if flags.Changed("host") {
		cfg.Host = serveHost
	}
	if flags.Changed("calculation") {
		cfg.Calculation = serveCalculation
	}
	if flags.Changed("peer-buffer") {
		cfg.PeerBuffer = servePeerBuffer
	}
	return cfg
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := serveSettings(cmd, args)

	srv, err := server.New(server.Config{
		Host:        cfg.Host,
		Port:        cfg.Port,
		Directory:   cfg.Directory,
		Calculation: cfg.Calculation,
		PeerBuffer:  cfg.PeerBuffer,
		Grid:        cfg.Grid,
	})
	if err != nil {
		return outputError(err.Error())
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		return outputError(err.Error())
	}

	watching := false
	if ConfigPath != "" && serveWatch {
		r := &reloader{
			srv:             srv,
			keepCalculation: cmd.Flags().Changed("calculation"),
			keepLevel:       Debug,
		}
		watcher, err := config.NewWatcher(config.WatcherConfig{
			Path:     ConfigPath,
			OnReload: r.apply,
			Logger:   &log.Logger,
		})
		if err == nil {
			err = watcher.Start()
		}
		if err != nil {
			log.Warn().Err(err).Msg("config watcher disabled")
		} else {
			watching = true
			defer watcher.Stop()
		}
	}

	socket, err := wsconn.EndpointFromOrigin(srv.URL())
	if err != nil {
		socket = srv.URL() + wsconn.EndpointPath
	}
	assets := "embedded"
	if cfg.Directory != "" {
		assets = cfg.Directory
	}
	info := format.ServerInfo{
		URL:         srv.URL(),
		Socket:      socket,
		Calculation: srv.Calculation(),
		Assets:      assets,
		ConfigPath:  ConfigPath,
		Watching:    watching,
	}
	if JSONOutput {
		if err := outputSuccess(info); err != nil {
			return err
		}
	} else {
		format.ServerStarted(os.Stdout, info, format.NewOutputOptions(JSONOutput, NoColor))
	}

	<-ctx.Done()
	debugf("shutdown signal received")

	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Stop(stopCtx); err != nil {
		return outputError(fmt.Sprintf("shutdown: %v", err))
	}
	return nil
}

// calculationSetter is the part of the server a config reload touches.
type calculationSetter interface {
	SetCalculation(d time.Duration) error
	Calculation() time.Duration
}

// reloader applies an edited config file to a running server. Values given as
// flags stay as they are.
type reloader struct {
	srv             calculationSetter
	keepCalculation bool
	keepLevel       bool
}

func (r *reloader) apply(cfg *config.Config) {
	if !r.keepCalculation && cfg.Server.Calculation != r.srv.Calculation() {
		if err := r.srv.SetCalculation(cfg.Server.Calculation); err != nil {
			log.Warn().Err(err).Msg("calculation not changed")
		}
	}
	if !r.keepLevel {
		if err := logging.SetLevel(cfg.Log.Level); err != nil {
			log.Warn().Err(err).Msg("log level not changed")
		}
	}
}
