package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load builds the configuration from sources in priority order:
// 1. Built-in defaults
// 2. Configuration file (optional; TOML/YAML, picked by extension)
// 3. Environment variables (MARKETD_ prefix, dots become underscores)
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", path)
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("MARKETD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.listen_addr", d.Server.ListenAddr)
	v.SetDefault("server.enable_websocket", d.Server.EnableWebsocket)

	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.compression", d.Storage.Compression)
	v.SetDefault("storage.cache_size", d.Storage.CacheSize)

	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("history.driver", d.History.Driver)
	v.SetDefault("history.dsn", d.History.DSN)

	v.SetDefault("market.operator", d.Market.Operator)
	v.SetDefault("market.overpayment_policy", d.Market.OverpaymentPolicy)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}
