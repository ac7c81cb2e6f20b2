package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"

	"github.com/pelletier/go-toml"
)

const (
	DefaultListenAddress   = "0.0.0.0:8545"
	DefaultRequestLogLevel = "info"
)

var (
	ErrInvalidListenAddress = errors.New("invalid listen address")
	ErrEmptyAllowedOrigins  = errors.New("empty CORS allowed origins")
	ErrInvalidLogLevel      = errors.New("invalid request log level")
)

var listenAddressRegex = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}:\d+$`)

// Config defines the base-level server configuration
type Config struct {
	// The associated CORS config, if any
	CORSConfig *CORS `toml:"cors_config"`

	// The address at which the server will be served.
	// Format should be: <IP>:<PORT>
	ListenAddress string `toml:"listen_address"`

	// The level request logs are emitted at (debug, info, warn, error)
	RequestLogLevel string `toml:"request_log_level"`
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		ListenAddress:   DefaultListenAddress,
		RequestLogLevel: DefaultRequestLogLevel,
		CORSConfig:      DefaultCORSConfig(),
	}
}

// ValidateConfig validates the server configuration
func ValidateConfig(config *Config) error {
	// Validate the listen address
	if !listenAddressRegex.MatchString(config.ListenAddress) {
		return ErrInvalidListenAddress
	}

	// A CORS section without origins would block every browser client
	if config.CORSConfig != nil && len(config.CORSConfig.AllowedOrigins) == 0 {
		return ErrEmptyAllowedOrigins
	}

	if _, err := config.LogLevel(); err != nil {
		return err
	}

	return nil
}

// LogLevel parses the request log level. An empty level means info
func (c *Config) LogLevel() (slog.Level, error) {
	if c.RequestLogLevel == "" {
		return slog.LevelInfo, nil
	}

	var level slog.Level

	if err := level.UnmarshalText([]byte(c.RequestLogLevel)); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.RequestLogLevel)
	}

	return level, nil
}

// Read reads the configuration from the given path.
// Missing fields are filled in with the defaults
func Read(path string) (*Config, error) {
	// Read the config file
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read server config: %w", err)
	}

	// Parse it on top of the defaults
	cfg := DefaultConfig()

	if err := toml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("unable to parse server config: %w", err)
	}

	return cfg, nil
}
