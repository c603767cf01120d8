package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/omochice/ng-bridge/internal/bridge"
)

// DefaultServerURL is used when neither NG_SERVER_URL nor a config value is set.
const DefaultServerURL = "ws://127.0.0.1:1453/"

// flag name -> config key
var flagKeys = map[string]string{
	"server-url":        "server_url",
	"outbound-capacity": "outbound_capacity",
	"inbound-capacity":  "inbound_capacity",
	"overflow":          "overflow",
	"log-level":         "log_level",
}

// RegisterFlags adds the flags Load understands to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("server-url", DefaultServerURL, "WebSocket endpoint of the game server")
	fs.Int("outbound-capacity", bridge.DefaultCapacity, "capacity of the outbound action queue")
	fs.Int("inbound-capacity", bridge.DefaultCapacity, "capacity of the inbound response queue")
	fs.String("overflow", bridge.OverflowBlock.String(), "inbound overflow policy (block or drop)")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
}

// Load resolves the configuration. configPath is an extra directory searched
// for ngclient.yaml; flags may be nil. A missing config file is not an error.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("server_url", DefaultServerURL)
	v.SetDefault("outbound_capacity", bridge.DefaultCapacity)
	v.SetDefault("inbound_capacity", bridge.DefaultCapacity)
	v.SetDefault("overflow", bridge.OverflowBlock.String())
	v.SetDefault("log_level", "info")

	v.SetConfigName("ngclient")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	// default config path
	v.AddConfigPath(".")
	v.AddConfigPath("config")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix("NG")
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validateConfig(config *Config) error {
	u, err := url.Parse(config.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid server_url %q: %w", config.ServerURL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("server_url %q must use ws or wss", config.ServerURL)
	}
	if u.Host == "" {
		return fmt.Errorf("server_url %q has no host", config.ServerURL)
	}

	if config.OutboundCapacity <= 0 {
		return fmt.Errorf("outbound_capacity must be positive, got %d", config.OutboundCapacity)
	}
	if config.InboundCapacity <= 0 {
		return fmt.Errorf("inbound_capacity must be positive, got %d", config.InboundCapacity)
	}

	if _, err := bridge.ParseOverflow(config.Overflow); err != nil {
		return err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(config.LogLevel)); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", config.LogLevel, err)
	}

	return nil
}
