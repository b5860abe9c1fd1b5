// Package server hosts the spreadfire page and the socket endpoint it talks to.
//
// Every socket connection is a peer. Text frames starting with
// RunCalculationPrefix restart that peer's calculation; any other text frame
// is broadcast to every peer, the sender included.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/grantcarthew/spreadfire/internal/grid"
	"github.com/grantcarthew/spreadfire/internal/logging"
)

const (
	// DefaultCalculation is how long a calculation runs before it reports.
	DefaultCalculation = 5 * time.Second

	// DefaultPeerBuffer is the number of outbound frames queued per peer.
	DefaultPeerBuffer = 5

	// ShutdownMessage is sent to every peer before the server closes them.
	ShutdownMessage = "server shutdown"
)

// Config holds server configuration.
type Config struct {
	Host        string        // Bind host ("localhost" or "0.0.0.0")
	Port        int           // Server port (0 = auto-detect)
	Directory   string        // Serve page assets from this directory instead of the embedded copy
	Calculation time.Duration // Calculation length (0 = DefaultCalculation)
	PeerBuffer  int           // Outbound frames queued per peer (0 = DefaultPeerBuffer)
	Grid        grid.Spec     // Grid rendered at /grid.svg (zero value = grid.DefaultSpec())
	Clock       clock.Clock   // Time source for calculations (nil = wall clock)
	Logger      *zerolog.Logger
}

// Server serves the page and brokers messages between socket peers.
type Server struct {
	config    Config
	hub       *hub
	calcs     *calculations
	httpSrv   *http.Server
	listener  net.Listener
	serveDone chan struct{}
	mu        sync.RWMutex
	running   bool
	started   time.Time
	logger    zerolog.Logger
}

// New creates a new server with the given configuration.
func New(cfg Config) (*Server, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Calculation == 0 {
		cfg.Calculation = DefaultCalculation
	}
	if cfg.PeerBuffer == 0 {
		cfg.PeerBuffer = DefaultPeerBuffer
	}
	if cfg.Grid == (grid.Spec{}) {
		cfg.Grid = grid.DefaultSpec()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	logger := logging.Component(cfg.Logger, "server")

	s := &Server{
		config: cfg,
		hub:    newHub(logger),
		calcs:  newCalculations(cfg.Clock, cfg.Calculation, logger),
		logger: logger,
	}
	return s, nil
}

// validateConfig validates the server configuration.
func validateConfig(cfg Config) error {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.Calculation < 0 {
		return fmt.Errorf("calculation must be >= 0, got %v", cfg.Calculation)
	}
	if cfg.PeerBuffer < 0 {
		return fmt.Errorf("peer buffer must be >= 0, got %d", cfg.PeerBuffer)
	}
	if cfg.Directory != "" {
		info, err := os.Stat(cfg.Directory)
		if err != nil {
			return fmt.Errorf("asset directory: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("asset directory %s is not a directory", cfg.Directory)
		}
	}
	if cfg.Grid != (grid.Spec{}) {
		if err := cfg.Grid.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Start starts listening and serving in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server already running")
	}
	if s.serveDone != nil {
		return fmt.Errorf("server cannot be restarted")
	}

	handler, err := s.routes()
	if err != nil {
		return fmt.Errorf("failed to build routes: %w", err)
	}

	listener, err := s.listen()
	if err != nil {
		return err
	}

	s.listener = listener
	s.httpSrv = &http.Server{
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	s.serveDone = make(chan struct{})
	s.running = true
	s.started = s.config.Clock.Now()

	go func() {
		defer close(s.serveDone)
		s.logger.Info().Str("addr", listener.Addr().String()).Msg("http server started")
		if err := s.httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("http server error")
		}
	}()

	return nil
}

// listen binds the configured address, picking a port when none is set.
func (s *Server) listen() (net.Listener, error) {
	port := s.config.Port
	if port == 0 {
		var err error
		port, err = findAvailablePort(s.config.Host)
		if err != nil {
			return nil, fmt.Errorf("failed to find available port: %w", err)
		}
		s.logger.Debug().Int("port", port).Msg("auto-detected port")
	}

	addr := net.JoinHostPort(s.config.Host, fmt.Sprint(port))
	listener, err := net.Listen("tcp", addr)
	if err != nil && s.config.Port == 0 {
		// Lost the race for the probed port; let the OS pick one.
		listener, err = net.Listen("tcp", net.JoinHostPort(s.config.Host, "0"))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return listener, nil
}

// Stop tells every peer the server is going away, closes them and shuts the
// HTTP server down. Running calculations are aborted.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	var errs []error

	s.calcs.abortAll()
	n := s.hub.shutdown(ShutdownMessage)
	s.logger.Info().Int("peers", n).Msg(ShutdownMessage)

	peersDone := make(chan struct{})
	go func() {
		s.hub.wait()
		close(peersDone)
	}()
	select {
	case <-peersDone:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("peers did not disconnect: %w", ctx.Err()))
		s.hub.closeNow()
		<-peersDone
	}

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shutdown HTTP server: %w", err))
	}
	<-s.serveDone

	if len(errs) > 0 {
		return fmt.Errorf("stop errors: %v", errs)
	}

	s.logger.Debug().Msg("server stopped")
	return nil
}

// SetCalculation changes the length of calculations started from now on.
func (s *Server) SetCalculation(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("calculation must be > 0, got %v", d)
	}
	s.calcs.setDuration(d)
	s.logger.Info().Dur("calculation", d).Msg("calculation length changed")
	return nil
}

// Calculation returns the current calculation length.
func (s *Server) Calculation() time.Duration {
	return s.calcs.getDuration()
}

// Peers returns the number of connected peers.
func (s *Server) Peers() int {
	return s.hub.count()
}

// Addr returns the server's listening address.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Port returns the server's listening port.
func (s *Server) Port() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.listener == nil {
		return 0
	}
	addr := s.listener.Addr().(*net.TCPAddr)
	return addr.Port
}

// URL returns the server's full URL.
func (s *Server) URL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.listener == nil {
		return ""
	}

	addr := s.listener.Addr().(*net.TCPAddr)
	host := addr.IP.String()
	if addr.IP.IsUnspecified() {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, fmt.Sprint(addr.Port))
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// findAvailablePort finds an available port on the given host.
func findAvailablePort(host string) (int, error) {
	// Try the usual dev ports first
	commonPorts := []int{3000, 8080, 8000, 5000, 4000}

	for _, port := range commonPorts {
		if isPortAvailable(host, port) {
			return port, nil
		}
	}

	// Fall back to OS-assigned port
	listener, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, err
	}
	defer listener.Close()

	port := listener.Addr().(*net.TCPAddr).Port
	return port, nil
}

// isPortAvailable checks if a port is available for binding.
func isPortAvailable(host string, port int) bool {
	listener, err := net.Listen("tcp", net.JoinHostPort(host, fmt.Sprint(port)))
	if err != nil {
		return false
	}
	listener.Close()
	return true
}
