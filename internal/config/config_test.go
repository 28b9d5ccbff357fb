package config

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	fs := pflag.NewFlagSet("ofslicerd", pflag.ContinueOnError)

	cfg, err := Parse(fs, nil)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestParseOverrides(t *testing.T) {
	fs := pflag.NewFlagSet("ofslicerd", pflag.ContinueOnError)

	cfg, err := Parse(fs, []string{
		"--listen-address", "127.0.0.1:9090",
		"--meters-enabled",
		"--default-idle-timeout", "30",
		"--log-level", "debug",
	})
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1:9090", cfg.ListenAddress)
	require.True(t, cfg.MetersEnabled)
	require.Equal(t, 30, cfg.DefaultIdleTimeout)
	require.Equal(t, "debug", cfg.LogLevel)
}
