// Package config holds the marketd configuration and its loader.
package config

import (
	"fmt"
)

// Config is the full marketd configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	History HistoryConfig `mapstructure:"history"`
	Market  MarketConfig  `mapstructure:"market"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig configures the API server.
type ServerConfig struct {
	// ListenAddr is the host:port the JSON-RPC server binds to.
	ListenAddr string `mapstructure:"listen_addr"`

	// EnableWebsocket turns on the event broadcast endpoint at /ws.
	EnableWebsocket bool `mapstructure:"enable_websocket"`
}

// StorageConfig configures the state store.
type StorageConfig struct {
	// Backend is "memory", "pebble", "bbolt" or "leveldb".
	Backend string `mapstructure:"backend"`

	// Path is the on-disk location for persistent backends.
	Path string `mapstructure:"path"`

	// Compression is "none" or "lz4".
	Compression string `mapstructure:"compression"`

	// CacheSize is the number of entries the read cache holds.
	CacheSize int `mapstructure:"cache_size"`
}

// HistoryConfig configures the trade history database.
type HistoryConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Driver is "sqlite" or "postgres".
	Driver string `mapstructure:"driver"`

	// DSN is the driver connection string.
	DSN string `mapstructure:"dsn"`
}

// MarketConfig configures engine behavior.
type MarketConfig struct {
	// Operator is the identity the market presents to asset registries.
	Operator string `mapstructure:"operator"`

	// OverpaymentPolicy is "refund" or "retain".
	OverpaymentPolicy string `mapstructure:"overpayment_policy"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is "debug", "info", "warn" or "error".
	Level string `mapstructure:"level"`

	// Format is "json" or "console".
	Format string `mapstructure:"format"`
}

// Default returns the configuration marketd runs with when nothing is
// specified.
func Default() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr:      "127.0.0.1:7459",
			EnableWebsocket: true,
		},
		Storage: StorageConfig{
			Backend:     "memory",
			Path:        "data/state",
			Compression: "lz4",
			CacheSize:   16384,
		},
		History: HistoryConfig{
			Enabled: false,
			Driver:  "sqlite",
			DSN:     "data/history.db",
		},
		Market: MarketConfig{
			Operator:          "marketd",
			OverpaymentPolicy: "refund",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "memory", "pebble", "bbolt", "leveldb":
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}
	if c.Storage.Backend != "memory" && c.Storage.Path == "" {
		return fmt.Errorf("config: storage path is required for backend %q", c.Storage.Backend)
	}
	switch c.Storage.Compression {
	case "none", "lz4":
	default:
		return fmt.Errorf("config: unknown compression %q", c.Storage.Compression)
	}
	if c.History.Enabled {
		switch c.History.Driver {
		case "sqlite", "postgres":
		default:
			return fmt.Errorf("config: unknown history driver %q", c.History.Driver)
		}
		if c.History.DSN == "" {
			return fmt.Errorf("config: history dsn is required")
		}
	}
	switch c.Market.OverpaymentPolicy {
	case "refund", "retain":
	default:
		return fmt.Errorf("config: unknown overpayment policy %q", c.Market.OverpaymentPolicy)
	}
	if c.Market.Operator == "" {
		return fmt.Errorf("config: market operator is required")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("config: server listen address is required")
	}
	return nil
}
