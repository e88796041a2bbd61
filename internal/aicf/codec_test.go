package aicf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteRecordThenReadAll(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "2026-07-31_conv1.aicf")
	c := New()

	records := [][]string{
		{"timestamp", "2026-07-31T10:00:00Z"},
		{"conversationId", "conv1"},
		{"platforms", "augment,warp"},
		{"userIntents", "2026-07-31T10:00:01Z", "fix the flaky test", "0.82"},
		{"compression", "FULL"},
	}

	require.NoError(t, c.WriteRecord(path, records))

	result, err := c.ReadAll(path)
	require.NoError(t, err)
	require.Equal(t, Version, result.Version)
	require.Equal(t, 0, result.Skipped)
	require.Len(t, result.Lines, len(records))
	require.Equal(t, "conversationId", result.Lines[1].Tag)
	require.Equal(t, []string{"conv1"}, result.Lines[1].Fields)
}

func TestAppendLineCreatesHeaderOnFirstWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".permissions.aicf")
	c := New()

	require.NoError(t, c.AppendLine(path, "PLATFORM", "augment", "active"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "version|3.0.0-alpha\nPLATFORM|augment|active\n", string(data))
}

func TestAppendLineAppendsWithoutDuplicatingHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".permissions.aicf")
	c := New()

	require.NoError(t, c.AppendLine(path, "PLATFORM", "augment", "active"))
	require.NoError(t, c.AppendLine(path, "AUDIT", "granted", "augment"))

	result, err := c.ReadAll(path)
	require.NoError(t, err)
	require.Len(t, result.Lines, 2)
	require.Equal(t, "AUDIT", result.Lines[1].Tag)
}

func TestRejectsFieldsWithPipeOrLineBreaks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "record.aicf")
	c := New()

	_, err := c.encodeLine("decisions", "has a | pipe")
	require.Error(t, err)

	_, err = c.encodeLine("decisions", "line\nbreak")
	require.Error(t, err)

	require.NoError(t, c.AppendLine(path, "decisions", "clean value"))
}

func TestNoTmpFileSurvivesWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "record.aicf")
	c := New()

	require.NoError(t, c.WriteRecord(path, [][]string{{"conversationId", "x"}}))

	_, err := os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err))
}

func TestReadAllSkipsBlankLinesSilently(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "record.aicf")

	raw := "version|3.0.0-alpha\nconversationId|conv1\n\ncompression|FULL\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	c := New()
	result, err := c.ReadAll(path)
	require.NoError(t, err)
	require.Equal(t, 0, result.Skipped) // blank lines are skipped silently, not counted as corrupt
	require.Len(t, result.Lines, 2)
}

func TestReadAllMissingVersionHeaderCountsSkipped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "record.aicf")

	raw := "conversationId|conv1\ncompression|FULL\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	c := New()
	result, err := c.ReadAll(path)
	require.NoError(t, err)
	require.Equal(t, 1, result.Skipped)
	require.Len(t, result.Lines, 1)
}

func TestBasicRedactorMasksPII(t *testing.T) {
	c := New().WithRedactor(BasicRedactor{})

	line, err := c.encodeLine("userIntents", "contact me at jane@example.com or 555-123-4567")
	require.NoError(t, err)
	require.Contains(t, line, "[REDACTED_EMAIL]")
	require.Contains(t, line, "[REDACTED_PHONE]")
}

func TestValidVersion(t *testing.T) {
	require.True(t, ValidVersion("3.0.0-alpha"))
	require.True(t, ValidVersion("3.1.0"))
	require.False(t, ValidVersion("2.9.9"))
	require.False(t, ValidVersion("not-a-version"))
}
