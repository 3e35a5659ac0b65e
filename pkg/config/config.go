package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Output formats supported by the CLI
const (
	FormatText = "text"
	FormatJSON = "json"
)

// MaxMTU is the largest ATT MTU a peripheral can negotiate
const MaxMTU = 517

// Config holds application configuration
type Config struct {
	LogLevel string `yaml:"log_level" default:"info"`

	DeviceName         string `yaml:"device_name" default:"Jinou_Sensor_HumiTemp"`
	ServiceUUID        string `yaml:"service_uuid" default:"0000aa20-0000-1000-8000-00805f9b34fb"`
	CharacteristicUUID string `yaml:"characteristic_uuid" default:"0000aa21-0000-1000-8000-00805f9b34fb"`

	MTU                   int           `yaml:"mtu" default:"517"`
	MaxConnectionAttempts int           `yaml:"max_connection_attempts" default:"5"`
	RetryDelay            time.Duration `yaml:"retry_delay" default:"0s"`
	ConnectTimeout        time.Duration `yaml:"connect_timeout" default:"30s"`

	EventBufferSize uint32 `yaml:"event_buffer_size" default:"1024"`
	OutputFormat    string `yaml:"output_format" default:"text"`
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	return cfg
}

// Load reads a YAML file on top of the defaults and validates the result.
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field and reports all problems at once
func (c *Config) Validate() error {
	var errs []error

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if strings.TrimSpace(c.DeviceName) == "" {
		errs = append(errs, errors.New("device_name must not be empty"))
	}
	if _, err := uuid.Parse(c.ServiceUUID); err != nil {
		errs = append(errs, fmt.Errorf("service_uuid: %w", err))
	}
	if _, err := uuid.Parse(c.CharacteristicUUID); err != nil {
		errs = append(errs, fmt.Errorf("characteristic_uuid: %w", err))
	}
	if c.MTU < 23 || c.MTU > MaxMTU {
		errs = append(errs, fmt.Errorf("mtu must be within [23, %d], got %d", MaxMTU, c.MTU))
	}
	if c.MaxConnectionAttempts < 1 {
		errs = append(errs, fmt.Errorf("max_connection_attempts must be positive, got %d", c.MaxConnectionAttempts))
	}
	if c.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("retry_delay must not be negative, got %s", c.RetryDelay))
	}
	if c.ConnectTimeout <= 0 {
		errs = append(errs, fmt.Errorf("connect_timeout must be positive, got %s", c.ConnectTimeout))
	}
	if c.EventBufferSize == 0 {
		errs = append(errs, errors.New("event_buffer_size must be positive"))
	}
	switch c.OutputFormat {
	case FormatText, FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("output_format must be %q or %q, got %q", FormatText, FormatJSON, c.OutputFormat))
	}

	return errors.Join(errs...)
}

// NewLogger creates a configured logger instance
func (c *Config) NewLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	return logger, nil
}
