// Package config loads pipeline configuration from the project's
// .aicf/config.json (JSONC) over built-in defaults, then applies
// environment variable overrides. There is no global config layer.
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"
)

// PlatformConfig is the per-platform enablement block under "platforms".
type PlatformConfig struct {
	Enabled bool `json:"enabled"`
}

// RetentionConfig holds the age-based drop-off thresholds.
type RetentionConfig struct {
	MediumAfterDays  int `json:"mediumAfterDays"`
	OldAfterDays     int `json:"oldAfterDays"`
	ArchiveAfterDays int `json:"archiveAfterDays"`
}

// CodecConfig holds AicfCodec behavior flags.
type CodecConfig struct {
	RedactPII bool `json:"redactPII"`
}

// WatcherConfig holds orchestrator-facing settings.
type WatcherConfig struct {
	Mode string `json:"mode"` // "daemon" | "foreground"
}

// Config is the full shape of .aicf/config.json.
type Config struct {
	TickIntervalMs int                       `json:"tickIntervalMs"`
	Platforms      map[string]PlatformConfig `json:"platforms"`
	Retention      RetentionConfig           `json:"retention"`
	Codec          CodecConfig               `json:"codec"`
	Watcher        WatcherConfig             `json:"watcher"`
}

// Default returns the documented default configuration (§7 Configuration).
func Default() *Config {
	return &Config{
		TickIntervalMs: 300000,
		Platforms:      make(map[string]PlatformConfig),
		Retention: RetentionConfig{
			MediumAfterDays:  2,
			OldAfterDays:     7,
			ArchiveAfterDays: 14,
		},
		Codec:   CodecConfig{RedactPII: false},
		Watcher: WatcherConfig{Mode: "foreground"},
	}
}

// TickInterval returns TickIntervalMs as a time.Duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

// Durations returns the thresholds as durations.
func (r RetentionConfig) Durations() (medium, old, archive time.Duration) {
	return time.Duration(r.MediumAfterDays) * 24 * time.Hour,
		time.Duration(r.OldAfterDays) * 24 * time.Hour,
		time.Duration(r.ArchiveAfterDays) * 24 * time.Hour
}

// Load reads .aicf/config.json under baseDir, falling back to defaults for
// any field it does not set, then applies environment variable overrides.
// A missing config file is not an error.
func Load(baseDir string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(baseDir, ".aicf", "config.json")
	if err := loadConfigFile(path, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	data = stripJSONComments(data)

	var fileCfg Config
	if err := json.Unmarshal(data, &fileCfg); err != nil {
		return err
	}

	mergeConfig(cfg, &fileCfg)
	return nil
}

// stripJSONComments removes // and /* */ comments so config.json may be
// hand-edited as JSONC without tripping encoding/json.
func stripJSONComments(data []byte) []byte {
	singleLine := regexp.MustCompile(`//.*$`)
	lines := bytes.Split(data, []byte("\n"))
	for i, line := range lines {
		lines[i] = singleLine.ReplaceAll(line, nil)
	}
	data = bytes.Join(lines, []byte("\n"))

	multiLine := regexp.MustCompile(`/\*[\s\S]*?\*/`)
	return multiLine.ReplaceAll(data, nil)
}

func mergeConfig(target, source *Config) {
	if source.TickIntervalMs != 0 {
		target.TickIntervalMs = source.TickIntervalMs
	}
	if source.Platforms != nil {
		if target.Platforms == nil {
			target.Platforms = make(map[string]PlatformConfig)
		}
		for k, v := range source.Platforms {
			target.Platforms[k] = v
		}
	}
	if source.Retention.MediumAfterDays != 0 {
		target.Retention.MediumAfterDays = source.Retention.MediumAfterDays
	}
	if source.Retention.OldAfterDays != 0 {
		target.Retention.OldAfterDays = source.Retention.OldAfterDays
	}
	if source.Retention.ArchiveAfterDays != 0 {
		target.Retention.ArchiveAfterDays = source.Retention.ArchiveAfterDays
	}
	target.Codec.RedactPII = target.Codec.RedactPII || source.Codec.RedactPII
	if source.Watcher.Mode != "" {
		target.Watcher.Mode = source.Watcher.Mode
	}
}

// applyEnvOverrides lets ambient env vars win over file contents,
// mirroring the teacher's provider-API-key override pattern.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AICF_TICK_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TickIntervalMs = n
		}
	}
	if v := os.Getenv("AICF_REDACT_PII"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Codec.RedactPII = b
		}
	}
	if v := os.Getenv("AICF_WATCHER_MODE"); v == "daemon" || v == "foreground" {
		cfg.Watcher.Mode = v
	}
}

// Save writes the configuration to path as indented JSON, creating parent
// directories as needed.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}
