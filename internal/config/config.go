package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string         `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration  `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration  `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string         `mapstructure:"log_level" yaml:"log_level"`
	Throttle          ThrottleConfig `mapstructure:"throttle" yaml:"throttle"`
	Registry          RegistryConfig `mapstructure:"registry" yaml:"registry"`
}

// ThrottleConfig tunes the per-identity message throttle. Policy is "drop"
// (reject silently) or "disconnect" (warn once, then close the connection).
type ThrottleConfig struct {
	Window        time.Duration `mapstructure:"window" yaml:"window"`
	Limit         int           `mapstructure:"limit" yaml:"limit"`
	Policy        string        `mapstructure:"policy" yaml:"policy"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
	IdleTTL       time.Duration `mapstructure:"idle_ttl" yaml:"idle_ttl"`
}

// RegistryConfig names the membership-count policy variants.
type RegistryConfig struct {
	CountOnRejoin   bool `mapstructure:"count_on_rejoin" yaml:"count_on_rejoin"`
	AbsentRoomCount int  `mapstructure:"absent_room_count" yaml:"absent_room_count"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		Throttle: ThrottleConfig{
			Window:        time.Second,
			Limit:         3,
			Policy:        "drop",
			SweepInterval: time.Minute,
			IdleTTL:       5 * time.Minute,
		},
		Registry: RegistryConfig{
			CountOnRejoin:   true,
			AbsentRoomCount: 0,
		},
	}
}
