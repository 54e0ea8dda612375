package config

import "time"

// Config holds signaling server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"`

	// MaxMessageBytes caps a single inbound frame; SDP blobs stay well below it.
	MaxMessageBytes int64 `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	// ClientBuffer is the per-connection outbound queue before frames are dropped.
	ClientBuffer   int           `mapstructure:"client_buffer" yaml:"client_buffer"`
	ResyncInterval time.Duration `mapstructure:"resync_interval" yaml:"resync_interval"`
	JoinPolicy     string        `mapstructure:"join_policy" yaml:"join_policy"`
	PermanentRooms []string      `mapstructure:"permanent_rooms" yaml:"permanent_rooms"`
	AllowChatRelay bool          `mapstructure:"allow_chat_relay" yaml:"allow_chat_relay"`
	AllowedOrigins []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	// FramesPerMinute limits inbound frames per connection; zero disables the limit.
	FramesPerMinute int `mapstructure:"frames_per_minute" yaml:"frames_per_minute"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":3000",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		WriteTimeout:      5 * time.Second,
		LogLevel:          "info",
		LogFormat:         "console",
		MaxMessageBytes:   64 << 10,
		ClientBuffer:      64,
		ResyncInterval:    1500 * time.Millisecond,
		JoinPolicy:        "permissive",
		PermanentRooms:    []string{"Public"},
		AllowedOrigins:    []string{"*"},
		FramesPerMinute:   1200,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.JoinPolicy != "" {
		c.JoinPolicy = other.JoinPolicy
	}
	if other.ResyncInterval != 0 {
		c.ResyncInterval = other.ResyncInterval
	}
}

// ClientConfig holds chat client configuration values.
type ClientConfig struct {
	ServerURL         string        `mapstructure:"server_url" yaml:"server_url"`
	STUNServers       []string      `mapstructure:"stun_servers" yaml:"stun_servers"`
	JoinRetryDelay    time.Duration `mapstructure:"join_retry_delay" yaml:"join_retry_delay"`
	ListRoomsInterval time.Duration `mapstructure:"list_rooms_interval" yaml:"list_rooms_interval"`
	SignalStrategy    string        `mapstructure:"signal_strategy" yaml:"signal_strategy"`
	ChatRelay         bool          `mapstructure:"chat_relay" yaml:"chat_relay"`
	PublicRoom        string        `mapstructure:"public_room" yaml:"public_room"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
}

// DefaultClient returns client defaults.
func DefaultClient() ClientConfig {
	return ClientConfig{
		ServerURL:         "ws://localhost:3000/ws",
		STUNServers:       []string{"stun:stun.l.google.com:19302"},
		JoinRetryDelay:    100 * time.Millisecond,
		ListRoomsInterval: 4 * time.Second,
		SignalStrategy:    "eager",
		PublicRoom:        "Public",
		LogLevel:          "warn",
	}
}
