// Package config loads server settings from defaults, an optional YAML file
// and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the environment variable pointing at the YAML file
const ConfigFileEnv = "POKER_CONFIG_FILE"

// Config holds every tunable of the poker server. Env tags carry no
// defaults so values from the YAML file survive unless overridden.
type Config struct {
	Port           string   `yaml:"port" env:"PORT"`
	LogLevel       string   `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat      string   `yaml:"log_format" env:"LOG_FORMAT"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`

	SessionIdleTTL time.Duration `yaml:"session_idle_ttl" env:"SESSION_IDLE_TTL"`
	SweepInterval  time.Duration `yaml:"sweep_interval" env:"SWEEP_INTERVAL"`

	WebSocket WebSocketConfig `yaml:"websocket" envPrefix:"WS_"`
	NATS      NATSConfig      `yaml:"nats" envPrefix:"NATS_"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// WebSocketConfig tunes client connections
type WebSocketConfig struct {
	ReadTimeout    time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout   time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	PingInterval   time.Duration `yaml:"ping_interval" env:"PING_INTERVAL"`
	MaxMessageSize int64         `yaml:"max_message_size" env:"MAX_MESSAGE_SIZE"`
	SendBufferSize int           `yaml:"send_buffer_size" env:"SEND_BUFFER_SIZE"`
}

// NATSConfig configures the optional game event feed. An empty URL disables it.
type NATSConfig struct {
	URL           string        `yaml:"url" env:"URL"`
	SubjectPrefix string        `yaml:"subject_prefix" env:"SUBJECT_PREFIX"`
	StreamName    string        `yaml:"stream_name" env:"STREAM_NAME"`
	StreamMaxAge  time.Duration `yaml:"stream_max_age" env:"STREAM_MAX_AGE"`
	ReconnectWait time.Duration `yaml:"reconnect_wait" env:"RECONNECT_WAIT"`
}

// Default returns the built in configuration
func Default() Config {
	return Config{
		Port:           "8080",
		LogLevel:       "info",
		LogFormat:      "console",
		AllowedOrigins: []string{"*"},
		SessionIdleTTL: 6 * time.Hour,
		SweepInterval:  time.Minute,
		WebSocket: WebSocketConfig{
			ReadTimeout:    60 * time.Second,
			WriteTimeout:   10 * time.Second,
			PingInterval:   30 * time.Second,
			MaxMessageSize: 4096,
			SendBufferSize: 256,
		},
		NATS: NATSConfig{
			SubjectPrefix: "poker.games",
			StreamMaxAge:  time.Hour,
			ReconnectWait: 2 * time.Second,
		},
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load builds the configuration from defaults, the file named by
// POKER_CONFIG_FILE when set, and then the environment
func Load() (Config, error) {
	return LoadFile(os.Getenv(ConfigFileEnv))
}

// LoadFile is Load with an explicit file path. An empty path skips the file.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports settings the server cannot run with
func (c Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if _, err := c.ZerologLevel(); err != nil {
		errs = append(errs, err)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	if c.WebSocket.PingInterval >= c.WebSocket.ReadTimeout {
		errs = append(errs, errors.New("websocket ping interval must be shorter than the read timeout"))
	}
	if c.WebSocket.MaxMessageSize <= 0 {
		errs = append(errs, errors.New("websocket max message size must be positive"))
	}
	if c.WebSocket.SendBufferSize <= 0 {
		errs = append(errs, errors.New("websocket send buffer size must be positive"))
	}
	if c.NATS.URL != "" && c.NATS.SubjectPrefix == "" {
		errs = append(errs, errors.New("nats subject prefix is required when nats is enabled"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ZerologLevel parses LogLevel
func (c Config) ZerologLevel() (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// NATSEnabled reports whether the event feed should be started
func (c Config) NATSEnabled() bool {
	return c.NATS.URL != ""
}
