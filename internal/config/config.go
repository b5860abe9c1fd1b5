package config

import (
	"time"

	"github.com/grantcarthew/spreadfire/internal/grid"
)

// Config is the root configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Client ClientConfig `yaml:"client"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig configures `spreadfire serve`.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Directory       string        `yaml:"directory"` // serve page assets from disk instead of the embedded copy
	Calculation     time.Duration `yaml:"calculation"`
	PeerBuffer      int           `yaml:"peer_buffer"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Grid            grid.Spec     `yaml:"grid"`
}

// ClientConfig configures `spreadfire connect` and `spreadfire run`.
type ClientConfig struct {
	Origin         string        `yaml:"origin"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	History        int           `yaml:"history"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}
