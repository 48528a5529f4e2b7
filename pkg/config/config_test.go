package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "https://oauth2.xaman.app/api/v1", cfg.Agent.BaseURL)
	assert.Equal(t, "xaman.app", cfg.Agent.DetectHost)
	assert.Equal(t, 2*time.Second, cfg.Agent.PollInterval)
	assert.Equal(t, "1000000000", cfg.Asset.TrustlineLimit)
	assert.Equal(t, "preferences.json", cfg.Preferences.Path)
	assert.Equal(t, 30*time.Second, cfg.Reconciliation.Interval)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 70000\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation")
}

func TestLoadRejectsAPIKeyWithoutBaseURL(t *testing.T) {
	path := writeConfig(t, "agent:\n  api_key: secret\n  base_url: \"\"\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent.base_url")
}

func TestLoadRejectsInvalidSidechainAddress(t *testing.T) {
	path := writeConfig(t, "sidechain:\n  address: not-an-address\n")

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
