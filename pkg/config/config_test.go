package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NotNil(t, cfg)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "Jinou_Sensor_HumiTemp", cfg.DeviceName)
	assert.Equal(t, "0000aa20-0000-1000-8000-00805f9b34fb", cfg.ServiceUUID)
	assert.Equal(t, "0000aa21-0000-1000-8000-00805f9b34fb", cfg.CharacteristicUUID)
	assert.Equal(t, 517, cfg.MTU)
	assert.Equal(t, 5, cfg.MaxConnectionAttempts)
	assert.Equal(t, time.Duration(0), cfg.RetryDelay)
	assert.Equal(t, 30*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, uint32(1024), cfg.EventBufferSize)
	assert.Equal(t, FormatText, cfg.OutputFormat)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("file overlays defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "humitemp.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
device_name: Lab_Sensor
max_connection_attempts: 3
retry_delay: 2s
output_format: json
`), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, "Lab_Sensor", cfg.DeviceName)
		assert.Equal(t, 3, cfg.MaxConnectionAttempts)
		assert.Equal(t, 2*time.Second, cfg.RetryDelay)
		assert.Equal(t, FormatJSON, cfg.OutputFormat)
		assert.Equal(t, 517, cfg.MTU, "unset keys MUST keep their defaults")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("mtu: [1, 2"), 0o600))
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "invalid.yaml")
		require.NoError(t, os.WriteFile(path, []byte("mtu: 9000\n"), 0o600))
		_, err := Load(path)
		assert.ErrorContains(t, err, "mtu")
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"empty device name", func(c *Config) { c.DeviceName = " " }, "device_name"},
		{"bad service uuid", func(c *Config) { c.ServiceUUID = "aa20" }, "service_uuid"},
		{"bad characteristic uuid", func(c *Config) { c.CharacteristicUUID = "xyz" }, "characteristic_uuid"},
		{"mtu too small", func(c *Config) { c.MTU = 10 }, "mtu"},
		{"no attempts", func(c *Config) { c.MaxConnectionAttempts = 0 }, "max_connection_attempts"},
		{"negative delay", func(c *Config) { c.RetryDelay = -time.Second }, "retry_delay"},
		{"zero timeout", func(c *Config) { c.ConnectTimeout = 0 }, "connect_timeout"},
		{"zero buffer", func(c *Config) { c.EventBufferSize = 0 }, "event_buffer_size"},
		{"unknown format", func(c *Config) { c.OutputFormat = "csv" }, "output_format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}

	t.Run("reports every problem", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.MTU = 0
		cfg.OutputFormat = "xml"
		err := cfg.Validate()
		assert.ErrorContains(t, err, "mtu")
		assert.ErrorContains(t, err, "output_format")
	})
}

func TestConfig_NewLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "panic"} {
		t.Run(level, func(t *testing.T) {
			cfg := &Config{LogLevel: level}
			logger, err := cfg.NewLogger()
			require.NoError(t, err)

			expected, _ := logrus.ParseLevel(level)
			assert.Equal(t, expected, logger.GetLevel())

			formatter, ok := logger.Formatter.(*logrus.TextFormatter)
			require.True(t, ok)
			assert.True(t, formatter.FullTimestamp)
			assert.Equal(t, time.RFC3339, formatter.TimestampFormat)
		})
	}

	_, err := (&Config{LogLevel: "chatty"}).NewLogger()
	assert.Error(t, err)
}

func BenchmarkDefaultConfig(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = DefaultConfig()
	}
}
