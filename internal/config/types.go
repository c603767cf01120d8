package config

import "log/slog"

// Config holds the client settings resolved from defaults, file, env and flags.
type Config struct {
	ServerURL        string `mapstructure:"server_url"`
	OutboundCapacity int    `mapstructure:"outbound_capacity"`
	InboundCapacity  int    `mapstructure:"inbound_capacity"`
	Overflow         string `mapstructure:"overflow"` // "block" or "drop"
	LogLevel         string `mapstructure:"log_level"`
}

// Level returns the configured log level. Load has already validated it.
func (c *Config) Level() slog.Level {
	var level slog.Level
	_ = level.UnmarshalText([]byte(c.LogLevel))
	return level
}
