package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envConfigDefaultPath = "ZEROCHAT_CONFIG_DEFAULT_PATH"
	defaultConfigName    = "config.yaml"
)

// Load builds configuration from defaults, optional config file, env vars, and returns the resolved path.
// Precedence: defaults < config file < env vars < caller overrides.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("addr", cfg.Addr)
	v.SetDefault("read_header_timeout", cfg.ReadHeaderTimeout)
	v.SetDefault("shutdown_timeout", cfg.ShutdownTimeout)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("throttle.window", cfg.Throttle.Window)
	v.SetDefault("throttle.limit", cfg.Throttle.Limit)
	v.SetDefault("throttle.policy", cfg.Throttle.Policy)
	v.SetDefault("throttle.sweep_interval", cfg.Throttle.SweepInterval)
	v.SetDefault("throttle.idle_ttl", cfg.Throttle.IdleTTL)
	v.SetDefault("registry.count_on_rejoin", cfg.Registry.CountOnRejoin)
	v.SetDefault("registry.absent_room_count", cfg.Registry.AbsentRoomCount)

	v.SetEnvPrefix("ZEROCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath := resolveConfigPath(explicitPath)
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			if writeErr := writeDefaultConfig(configPath, cfg); writeErr != nil && logger != nil {
				logger.Warn().Err(writeErr).Str("path", configPath).Msg("failed to write default config")
			} else if logger != nil {
				logger.Info().Str("path", configPath).Msg("created default config")
			}
			// try reading again in case it was just written
			if readErr := v.ReadInConfig(); readErr != nil && logger != nil {
				logger.Warn().Err(readErr).Str("path", configPath).Msg("failed to read config after writing default")
			}
		} else {
			return cfg, configPath, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, configPath, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return cfg, configPath, err
	}

	return cfg, configPath, nil
}

func validate(cfg Config) error {
	switch cfg.Throttle.Policy {
	case "drop", "disconnect":
	default:
		return fmt.Errorf("invalid throttle policy %q (want drop or disconnect)", cfg.Throttle.Policy)
	}
	if cfg.Throttle.Limit <= 0 {
		return fmt.Errorf("throttle limit must be positive, got %d", cfg.Throttle.Limit)
	}
	if cfg.Throttle.Window <= 0 {
		return fmt.Errorf("throttle window must be positive, got %s", cfg.Throttle.Window)
	}
	return nil
}

func resolveConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}

	if base := os.Getenv(envConfigDefaultPath); base != "" {
		if err := os.MkdirAll(base, 0o755); err == nil {
			return filepath.Join(base, defaultConfigName)
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return defaultConfigName
	}
	return filepath.Join(cwd, defaultConfigName)
}

func writeDefaultConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(fileView(cfg))
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// fileConfig mirrors Config with durations as strings, so the written file
// reads "5s" rather than raw nanosecond integers.
type fileConfig struct {
	Addr              string             `yaml:"addr"`
	ReadHeaderTimeout string             `yaml:"read_header_timeout"`
	ShutdownTimeout   string             `yaml:"shutdown_timeout"`
	LogLevel          string             `yaml:"log_level"`
	Throttle          fileThrottleConfig `yaml:"throttle"`
	Registry          RegistryConfig     `yaml:"registry"`
}

type fileThrottleConfig struct {
	Window        string `yaml:"window"`
	Limit         int    `yaml:"limit"`
	Policy        string `yaml:"policy"`
	SweepInterval string `yaml:"sweep_interval"`
	IdleTTL       string `yaml:"idle_ttl"`
}

func fileView(cfg Config) fileConfig {
	return fileConfig{
		Addr:              cfg.Addr,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout.String(),
		ShutdownTimeout:   cfg.ShutdownTimeout.String(),
		LogLevel:          cfg.LogLevel,
		Throttle: fileThrottleConfig{
			Window:        cfg.Throttle.Window.String(),
			Limit:         cfg.Throttle.Limit,
			Policy:        cfg.Throttle.Policy,
			SweepInterval: cfg.Throttle.SweepInterval.String(),
			IdleTTL:       cfg.Throttle.IdleTTL.String(),
		},
		Registry: cfg.Registry,
	}
}
