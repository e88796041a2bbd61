package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	require.NoError(t, err)
	require.Equal(t, 300000, cfg.TickIntervalMs)
	require.Equal(t, 2, cfg.Retention.MediumAfterDays)
	require.Equal(t, 7, cfg.Retention.OldAfterDays)
	require.Equal(t, 14, cfg.Retention.ArchiveAfterDays)
	require.False(t, cfg.Codec.RedactPII)
	require.Equal(t, "foreground", cfg.Watcher.Mode)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ".aicf", "config.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0o755))

	body := `{
		// tick every minute
		"tickIntervalMs": 60000,
		"platforms": {"augment": {"enabled": true}},
		"retention": {"oldAfterDays": 10},
		"codec": {"redactPII": true}
	}`
	require.NoError(t, os.WriteFile(configPath, []byte(body), 0o644))

	cfg, err := Load(tmpDir)
	require.NoError(t, err)
	require.Equal(t, 60000, cfg.TickIntervalMs)
	require.True(t, cfg.Platforms["augment"].Enabled)
	require.Equal(t, 2, cfg.Retention.MediumAfterDays) // untouched default
	require.Equal(t, 10, cfg.Retention.OldAfterDays)
	require.True(t, cfg.Codec.RedactPII)
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	tmpDir := t.TempDir()
	cfg, err := Load(tmpDir)
	require.NoError(t, err)
	require.NotNil(t, cfg)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ".aicf", "config.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0o755))
	require.NoError(t, os.WriteFile(configPath, []byte(`{"tickIntervalMs": 60000}`), 0o644))

	t.Setenv("AICF_TICK_INTERVAL_MS", "15000")
	t.Setenv("AICF_REDACT_PII", "true")

	cfg, err := Load(tmpDir)
	require.NoError(t, err)
	require.Equal(t, 15000, cfg.TickIntervalMs)
	require.True(t, cfg.Codec.RedactPII)
}

func TestResolveBaseDir(t *testing.T) {
	tmpDir := t.TempDir()
	got, err := ResolveBaseDir(tmpDir)
	require.NoError(t, err)
	require.Equal(t, tmpDir, got)
}

func TestGetPathsLayout(t *testing.T) {
	paths := GetPaths("/srv/proj")
	require.Equal(t, "/srv/proj/.cache/llm", paths.Cache)
	require.Equal(t, "/srv/proj/.aicf/recent", paths.Recent)
	require.Equal(t, "/srv/proj/.aicf/sessions", paths.Sessions)
	require.Equal(t, "/srv/proj/.aicf/medium", paths.Medium)
	require.Equal(t, "/srv/proj/.aicf/old", paths.Old)
	require.Equal(t, "/srv/proj/.aicf/archive", paths.Archive)
	require.Equal(t, "/srv/proj/.ai/recent", paths.AiRecent)
}
