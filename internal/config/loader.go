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
	envPrefix            = "P2PCHAT"
	envConfigDefaultPath = "P2PCHAT_CONFIG_DEFAULT_PATH"
	defaultConfigName    = "config.yaml"
)

// Load builds server configuration from defaults, optional config file, env vars, and returns the resolved path.
// Precedence: defaults < config file < env vars < caller overrides.
// A missing config file is created with the defaults.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	cfg := Default()

	v := newViper()
	v.SetDefault("addr", cfg.Addr)
	v.SetDefault("read_header_timeout", cfg.ReadHeaderTimeout)
	v.SetDefault("shutdown_timeout", cfg.ShutdownTimeout)
	v.SetDefault("write_timeout", cfg.WriteTimeout)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_format", cfg.LogFormat)
	v.SetDefault("max_message_bytes", cfg.MaxMessageBytes)
	v.SetDefault("client_buffer", cfg.ClientBuffer)
	v.SetDefault("resync_interval", cfg.ResyncInterval)
	v.SetDefault("join_policy", cfg.JoinPolicy)
	v.SetDefault("permanent_rooms", cfg.PermanentRooms)
	v.SetDefault("allow_chat_relay", cfg.AllowChatRelay)
	v.SetDefault("allowed_origins", cfg.AllowedOrigins)
	v.SetDefault("frames_per_minute", cfg.FramesPerMinute)

	configPath := resolveConfigPath(explicitPath)
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		if !isNotFound(err) {
			return cfg, configPath, fmt.Errorf("read config: %w", err)
		}
		if writeErr := writeDefaultConfig(configPath, cfg); writeErr != nil && logger != nil {
			logger.Warn().Err(writeErr).Str("path", configPath).Msg("failed to write default config")
		} else if logger != nil {
			logger.Info().Str("path", configPath).Msg("created default config")
		}
		// try reading again in case it was just written
		if readErr := v.ReadInConfig(); readErr != nil && logger != nil {
			logger.Warn().Err(readErr).Str("path", configPath).Msg("failed to read config after writing default")
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, configPath, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, configPath, err
	}

	return cfg, configPath, nil
}

// LoadClient builds client configuration. Unlike Load it never writes a file:
// an explicit path that does not exist is an error, no path means defaults and env only.
func LoadClient(explicitPath string) (ClientConfig, error) {
	cfg := DefaultClient()

	v := newViper()
	v.SetDefault("server_url", cfg.ServerURL)
	v.SetDefault("stun_servers", cfg.STUNServers)
	v.SetDefault("join_retry_delay", cfg.JoinRetryDelay)
	v.SetDefault("list_rooms_interval", cfg.ListRoomsInterval)
	v.SetDefault("signal_strategy", cfg.SignalStrategy)
	v.SetDefault("chat_relay", cfg.ChatRelay)
	v.SetDefault("public_room", cfg.PublicRoom)
	v.SetDefault("log_level", cfg.LogLevel)

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("read client config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal client config: %w", err)
	}
	switch cfg.SignalStrategy {
	case "eager", "queue":
	default:
		return cfg, fmt.Errorf("invalid signal_strategy %q", cfg.SignalStrategy)
	}
	return cfg, nil
}

// Validate rejects values the server cannot run with.
func (c Config) Validate() error {
	switch c.JoinPolicy {
	case "permissive", "strict":
	default:
		return fmt.Errorf("invalid join_policy %q", c.JoinPolicy)
	}
	if c.MaxMessageBytes <= 0 {
		return fmt.Errorf("max_message_bytes must be positive")
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
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
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
