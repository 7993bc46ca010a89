package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "listen:\n  docs_port: 8080\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Listen.DocsPort)
	require.Equal(t, 3001, cfg.Listen.AdminPort)
	require.Equal(t, "./data/docs", cfg.Storage.Path)
	require.Equal(t, 5*time.Minute, cfg.Registry.SyncInterval.Std())
}

func TestLoadParsesDurations(t *testing.T) {
	path := writeConfig(t, "registry:\n  sync_interval: 90s\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 90*time.Second, cfg.Registry.SyncInterval.Std())
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("DOCSERVE_TEST_STORAGE", "/var/lib/docserve")
	path := writeConfig(t, "storage:\n  path: ${DOCSERVE_TEST_STORAGE}\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/var/lib/docserve", cfg.Storage.Path)
}

func TestLoadRejectsClashingPorts(t *testing.T) {
	path := writeConfig(t, "listen:\n  docs_port: 9000\n  admin_port: 9000\n")
	_, err := Load(path)
	require.ErrorContains(t, err, "must differ")
}

func TestLoadRejectsUnknownLogLevel(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: loud\n")
	_, err := Load(path)
	require.ErrorContains(t, err, "unknown log level")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestWriteDefaultRefusesOverwrite(t *testing.T) {
	path := writeConfig(t, "listen: {}\n")
	require.Error(t, WriteDefault(path, false))
	require.NoError(t, WriteDefault(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
}
