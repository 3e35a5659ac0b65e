package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("log-level", "", "")
	cmd.Flags().String("config", "", "")
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd
}

func TestConfigureLogger(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "humitemp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: warn\n"), 0o600))

	tests := []struct {
		name    string
		args    []string
		want    logrus.Level
		wantErr bool
	}{
		{name: "silent by default", want: logrus.PanicLevel},
		{name: "flag", args: []string{"--log-level", "debug"}, want: logrus.DebugLevel},
		{name: "config file", args: []string{"--config", path}, want: logrus.WarnLevel},
		{name: "flag beats config", args: []string{"--config", path, "--log-level", "error"}, want: logrus.ErrorLevel},
		{name: "invalid", args: []string{"--log-level", "loud"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newFlagCommand(t, tt.args...)
			cfg, err := loadConfig(cmd)
			require.NoError(t, err)

			logger, err := configureLogger(cmd, cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, logger.GetLevel())
		})
	}
}

func TestLoadConfigRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mtu: 5\n"), 0o600))

	_, err := loadConfig(newFlagCommand(t, "--config", path))
	assert.Error(t, err)
}
