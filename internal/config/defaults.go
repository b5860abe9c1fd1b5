package config

import (
	"time"

	"github.com/grantcarthew/spreadfire/internal/grid"
)

// Default values for optional configuration fields.
const (
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 3000
	DefaultCalculation     = 5 * time.Second
	DefaultPeerBuffer      = 5
	DefaultShutdownTimeout = 5 * time.Second
	DefaultOrigin          = "http://localhost:3000"
	DefaultReconnectDelay  = 1000 * time.Millisecond
	DefaultWriteTimeout    = 5 * time.Second
	DefaultHistory         = 500
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "console"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.Calculation == 0 {
		c.Server.Calculation = DefaultCalculation
	}
	if c.Server.PeerBuffer == 0 {
		c.Server.PeerBuffer = DefaultPeerBuffer
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	applyGridDefaults(&c.Server.Grid)

	// Client defaults
	if c.Client.Origin == "" {
		c.Client.Origin = DefaultOrigin
	}
	if c.Client.ReconnectDelay == 0 {
		c.Client.ReconnectDelay = DefaultReconnectDelay
	}
	if c.Client.WriteTimeout == 0 {
		c.Client.WriteTimeout = DefaultWriteTimeout
	}
	if c.Client.History == 0 {
		c.Client.History = DefaultHistory
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func applyGridDefaults(g *grid.Spec) {
	d := grid.DefaultSpec()
	if g.Width == 0 {
		g.Width = d.Width
	}
	if g.Height == 0 {
		g.Height = d.Height
	}
	if g.Rows == 0 {
		g.Rows = d.Rows
	}
	if g.Cols == 0 {
		g.Cols = d.Cols
	}
	if g.Border == 0 {
		g.Border = d.Border
	}
	if g.Background == "" {
		g.Background = d.Background
	}
}
