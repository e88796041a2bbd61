package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aicfd/aicfd/internal/aicf"
	"github.com/aicfd/aicfd/internal/consolidation"
	"github.com/aicfd/aicfd/internal/model"
)

func writeChunk(t *testing.T, cacheRoot, platform, conversationID string, messages []model.Message) {
	t.Helper()
	chunk := model.CacheChunk{Platform: platform, ConversationID: conversationID, ProducedAt: time.Now(), Messages: messages}
	dir := filepath.Join(cacheRoot, platform)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	data, err := json.Marshal(chunk)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, chunk.FileName()), data, 0o644))
}

func newMessage(conversationID, platform, role, content string, ts time.Time) model.Message {
	m := model.Message{ConversationID: conversationID, Role: model.Role(role), Content: content, Timestamp: ts}
	m.Finalize(platform)
	return m
}

func TestConsolidateGroupsByDate(t *testing.T) {
	root := t.TempDir()
	cacheRoot := filepath.Join(root, ".cache", "llm")
	recentDir := filepath.Join(root, ".aicf", "recent")
	aiDir := filepath.Join(root, ".ai", "recent")
	sessionsDir := filepath.Join(root, ".aicf", "sessions")

	day1 := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)

	writeChunk(t, cacheRoot, "augment", "conv-a", []model.Message{
		newMessage("conv-a", "augment", "user", "Can you help me fix this?", day1),
	})
	writeChunk(t, cacheRoot, "augment", "conv-b", []model.Message{
		newMessage("conv-b", "augment", "user", "Please add logging.", day2),
	})

	codec := aicf.New()
	cacheAgent := consolidation.New(cacheRoot, recentDir, aiDir, codec)
	_, err := cacheAgent.Consolidate(context.Background())
	require.NoError(t, err)

	sessionAgent := New(recentDir, sessionsDir, codec)
	stats, err := sessionAgent.Consolidate()
	require.NoError(t, err)
	require.Equal(t, 2, stats.RecordsIndexed)
	require.Equal(t, 2, stats.SessionsWritten)

	entries, err := os.ReadDir(sessionsDir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestConsolidateIsIdempotent(t *testing.T) {
	root := t.TempDir()
	cacheRoot := filepath.Join(root, ".cache", "llm")
	recentDir := filepath.Join(root, ".aicf", "recent")
	aiDir := filepath.Join(root, ".ai", "recent")
	sessionsDir := filepath.Join(root, ".aicf", "sessions")

	ts := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)
	writeChunk(t, cacheRoot, "warp", "conv-c", []model.Message{
		newMessage("conv-c", "warp", "user", "Please refactor this module.", ts),
	})

	codec := aicf.New()
	cacheAgent := consolidation.New(cacheRoot, recentDir, aiDir, codec)
	_, err := cacheAgent.Consolidate(context.Background())
	require.NoError(t, err)

	sessionAgent := New(recentDir, sessionsDir, codec)
	_, err = sessionAgent.Consolidate()
	require.NoError(t, err)

	path := filepath.Join(sessionsDir, "2026-07-31-session.aicf")
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = sessionAgent.Consolidate()
	require.NoError(t, err)
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestConsolidateWithNoRecordsIsNoop(t *testing.T) {
	root := t.TempDir()
	agent := New(filepath.Join(root, ".aicf", "recent"), filepath.Join(root, ".aicf", "sessions"), aicf.New())
	stats, err := agent.Consolidate()
	require.NoError(t, err)
	require.Equal(t, 0, stats.SessionsWritten)
}
