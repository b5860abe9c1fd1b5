package config

import (
	"errors"
	"fmt"

	"github.com/grantcarthew/spreadfire/internal/logging"
	"github.com/grantcarthew/spreadfire/internal/wsconn"
)

// Validate checks that all values are usable.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("server.port must be between 0 and 65535")
	}
	if c.Server.Calculation <= 0 {
		return errors.New("server.calculation must be > 0")
	}
	if c.Server.PeerBuffer < 1 {
		return errors.New("server.peer_buffer must be >= 1")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("server.shutdown_timeout must be > 0")
	}
	if err := c.Server.Grid.Validate(); err != nil {
		return fmt.Errorf("server.grid: %w", err)
	}

	if _, err := wsconn.EndpointFromOrigin(c.Client.Origin); err != nil {
		return fmt.Errorf("client.origin: %w", err)
	}
	if c.Client.ReconnectDelay <= 0 {
		return errors.New("client.reconnect_delay must be > 0")
	}
	if c.Client.WriteTimeout <= 0 {
		return errors.New("client.write_timeout must be > 0")
	}
	if c.Client.History < 1 {
		return errors.New("client.history must be >= 1")
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch logging.Format(c.Log.Format) {
	case logging.FormatConsole, logging.FormatJSON:
	default:
		return fmt.Errorf("log.format must be 'console' or 'json', got %q", c.Log.Format)
	}

	return nil
}
