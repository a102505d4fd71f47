// Package config provides configuration management for the slackbridge
// server. Configuration is read once at startup from a YAML file with
// environment variable expansion, so secrets stay out of the file itself.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the complete server configuration. It combines server
// settings, the two upstream credentials, logging preferences, and inbound
// rate limiting into a single structure.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Slack     SlackConfig     `yaml:"slack"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig holds HTTP server settings: timeouts, limits, and
// operational parameters.
type ServerConfig struct {
	// Port specifies the HTTP server port (default: 8080)
	Port int `yaml:"port"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body (default: 30s)
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response (default: 45s)
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// MaxHeaderBytes controls the maximum number of bytes the server will
	// read parsing the request header's keys and values (default: 1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// ShutdownTimeout specifies how long to wait for the server to shut
	// down gracefully before forcing termination (default: 30s)
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// SlackConfig holds the Slack credentials.
type SlackConfig struct {
	// BotToken is the bot user OAuth token (xoxb-...). Use an environment
	// reference (e.g. ${SLACK_BOT_TOKEN}) rather than a literal value.
	BotToken string `yaml:"bot_token" validate:"required"`

	// SigningSecret verifies that inbound event payloads were sent by
	// Slack.
	SigningSecret string `yaml:"signing_secret" validate:"required"`
}

// OpenAIConfig holds the OpenAI credentials and model selection.
type OpenAIConfig struct {
	// APIKey authenticates against the OpenAI API. Use an environment
	// reference (e.g. ${OPENAI_API_KEY}) rather than a literal value.
	APIKey string `yaml:"api_key" validate:"required"`

	// Model is the completion model identifier (default: gpt-4)
	Model string `yaml:"model"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	// Level is one of: debug, info, warn, error
	Level string `yaml:"level"`

	// Format is one of: json, text
	Format string `yaml:"format"`
}

// RateLimitConfig controls per-client throttling of the inbound events
// endpoint.
type RateLimitConfig struct {
	// Requests is the number of requests allowed per window (default: 10)
	Requests int `yaml:"requests"`

	// Window is the throttling window (default: 1m)
	Window time.Duration `yaml:"window"`
}

// DefaultConfig returns the configuration used when the file omits a
// value. Credentials have no defaults; they must come from the file or
// its environment references.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    45 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
		},
		Slack: SlackConfig{
			BotToken:      "${SLACK_BOT_TOKEN}",
			SigningSecret: "${SLACK_SIGNING_SECRET}",
		},
		OpenAI: OpenAIConfig{
			APIKey: "${OPENAI_API_KEY}",
			Model:  "gpt-4",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		RateLimit: RateLimitConfig{
			Requests: 10,
			Window:   time.Minute,
		},
	}
}

// LoadFile loads configuration from a YAML file
func LoadFile(filename string) (*Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// expandEnvVars resolves environment variable references in configuration
// strings. It supports ${VAR} substitution, ${VAR:-default} default value
// syntax, and nested references.
func expandEnvVars(s string) string {
	result := os.Expand(s, func(key string) string {
		if i := strings.Index(key, ":-"); i >= 0 {
			envKey := key[:i]
			defaultValue := key[i+2:]
			if val := os.Getenv(envKey); val != "" {
				return val
			}
			return defaultValue
		}
		return os.Getenv(key)
	})

	// Resolve nested references until the result is stable.
	prev := ""
	for prev != result {
		prev = result
		result = os.Expand(result, os.Getenv)
	}

	return result
}

// Load loads configuration from an io.Reader
func Load(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Start with defaults
	config := DefaultConfig()

	// Decode YAML on top of defaults, expanding environment references
	dec := yaml.NewDecoder(strings.NewReader(expandEnvVars(string(data))))
	if err := dec.Decode(config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// Defaults reference environment variables; an unset variable leaves
	// the field empty so Validate reports it as missing.
	config.Slack.BotToken = expandEnvVars(config.Slack.BotToken)
	config.Slack.SigningSecret = expandEnvVars(config.Slack.SigningSecret)
	config.OpenAI.APIKey = expandEnvVars(config.OpenAI.APIKey)

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("negative read timeout: %v", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("negative write timeout: %v", c.Server.WriteTimeout)
	}
	if c.Server.MaxHeaderBytes < 0 {
		return fmt.Errorf("negative max header bytes: %d", c.Server.MaxHeaderBytes)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("negative shutdown timeout: %v", c.Server.ShutdownTimeout)
	}

	// Credential presence validation
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if ok := errors.As(err, &verrs); ok && len(verrs) > 0 {
			return fmt.Errorf("missing required configuration: %s", fieldName(verrs[0]))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Model validation
	if c.OpenAI.Model == "" {
		return fmt.Errorf("empty OpenAI model")
	}

	// Logging validation
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "text":
		// Valid formats
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	// Rate limit validation
	if c.RateLimit.Requests <= 0 {
		return fmt.Errorf("rate limit requests must be positive: %d", c.RateLimit.Requests)
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive: %v", c.RateLimit.Window)
	}

	return nil
}

// fieldName renders a validator failure as the dotted config path, e.g.
// "Slack.BotToken".
func fieldName(fe validator.FieldError) string {
	ns := fe.StructNamespace()
	return strings.TrimPrefix(ns, "Config.")
}
