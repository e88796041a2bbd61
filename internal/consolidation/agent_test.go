package consolidation

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aicfd/aicfd/internal/aicf"
	"github.com/aicfd/aicfd/internal/model"
)

func newMessage(conversationID, platform, role, content string, ts time.Time) model.Message {
	m := model.Message{
		ConversationID: conversationID,
		Role:           model.Role(role),
		Content:        content,
		Timestamp:      ts,
	}
	m.Finalize(platform)
	return m
}

func writeChunk(t *testing.T, cacheRoot, platform, conversationID string, messages []model.Message) {
	t.Helper()
	chunk := model.CacheChunk{
		Platform:       platform,
		ConversationID: conversationID,
		ProducedAt:     time.Now(),
		Messages:       messages,
	}
	dir := filepath.Join(cacheRoot, platform)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, chunk.FileName())
	data, err := json.Marshal(chunk)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestConsolidateWritesRecordAndConsumesChunks(t *testing.T) {
	base := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)
	root := t.TempDir()
	cacheRoot := filepath.Join(root, ".cache", "llm")
	recentDir := filepath.Join(root, ".aicf", "recent")
	aiDir := filepath.Join(root, ".ai", "recent")

	conversationID := "conv-1"
	messages := []model.Message{
		newMessage(conversationID, "augment", "user", "Can you help me fix the flaky test?", base),
		newMessage(conversationID, "augment", "assistant", "We decided to use a worker pool for parallel reads.", base.Add(time.Minute)),
	}
	writeChunk(t, cacheRoot, "augment", conversationID, messages)

	agent := New(cacheRoot, recentDir, aiDir, aicf.New())
	stats, err := agent.Consolidate(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.ConversationsWritten)
	require.Equal(t, 1, stats.ChunksConsumed)
	require.Empty(t, stats.Failures)

	entries, err := os.ReadDir(recentDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	mdEntries, err := os.ReadDir(aiDir)
	require.NoError(t, err)
	require.Len(t, mdEntries, 1)

	remaining, err := os.ReadDir(filepath.Join(cacheRoot, "augment"))
	require.NoError(t, err)
	require.Empty(t, remaining)
}

func TestConsolidateMergesAcrossPlatforms(t *testing.T) {
	base := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)
	root := t.TempDir()
	cacheRoot := filepath.Join(root, ".cache", "llm")
	recentDir := filepath.Join(root, ".aicf", "recent")
	aiDir := filepath.Join(root, ".ai", "recent")

	conversationID := "conv-shared"
	writeChunk(t, cacheRoot, "augment", conversationID, []model.Message{
		newMessage(conversationID, "augment", "user", "Please fix the bug in the reader.", base),
	})
	writeChunk(t, cacheRoot, "warp", conversationID, []model.Message{
		newMessage(conversationID, "warp", "assistant", "I fixed the bug in the reader.", base.Add(time.Minute)),
	})

	agent := New(cacheRoot, recentDir, aiDir, aicf.New())
	stats, err := agent.Consolidate(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.ConversationsWritten)
	require.Equal(t, 2, stats.ChunksConsumed)
}

func TestConsolidateWithNoChunksIsNoop(t *testing.T) {
	root := t.TempDir()
	agent := New(filepath.Join(root, ".cache", "llm"), filepath.Join(root, ".aicf", "recent"), filepath.Join(root, ".ai", "recent"), aicf.New())
	stats, err := agent.Consolidate(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, stats.ConversationsWritten)
	require.Empty(t, stats.Failures)
}
