// Package config loads .aicf/config.json: tick interval, per-platform
// enablement, retention thresholds, codec flags and watcher mode.
// Environment variables (AICF_TICK_INTERVAL_MS, AICF_REDACT_PII,
// AICF_WATCHER_MODE) always win over the file.
package config
