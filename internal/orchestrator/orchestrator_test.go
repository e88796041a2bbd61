package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aicfd/aicfd/internal/aicf"
	"github.com/aicfd/aicfd/internal/cache"
	"github.com/aicfd/aicfd/internal/consolidation"
	"github.com/aicfd/aicfd/internal/dropoff"
	"github.com/aicfd/aicfd/internal/model"
	"github.com/aicfd/aicfd/internal/permission"
	"github.com/aicfd/aicfd/internal/reader"
	"github.com/aicfd/aicfd/internal/session"
)

type fakeReader struct {
	platform string
	messages []model.Message
}

func (f *fakeReader) Platform() string                        { return f.platform }
func (f *fakeReader) IsAvailable(ctx context.Context) bool     { return true }
func (f *fakeReader) ReadAll(ctx context.Context) ([]model.Message, error) {
	return f.messages, nil
}
func (f *fakeReader) ReadSince(ctx context.Context, cursor reader.Cursor) ([]model.Message, reader.Cursor, error) {
	return f.messages, cursor, nil
}

func newMessage(conversationID, platform, role, content string, ts time.Time) model.Message {
	m := model.Message{ConversationID: conversationID, Role: model.Role(role), Content: content, Timestamp: ts}
	m.Finalize(platform)
	return m
}

func buildOrchestrator(t *testing.T, root string) *Orchestrator {
	t.Helper()
	baseDir := filepath.Join(root, ".aicf")
	cacheRoot := filepath.Join(root, ".cache", "llm")
	aiDir := filepath.Join(root, ".ai", "recent")

	permStore, err := permission.NewStore(filepath.Join(baseDir, ".permissions.aicf"))
	require.NoError(t, err)
	require.NoError(t, permStore.Grant("augment", permission.ConsentExplicit))

	ts := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)
	r := &fakeReader{platform: "augment", messages: []model.Message{
		newMessage("conv-1", "augment", "user", "Can you help me fix the flaky test?", ts),
		newMessage("conv-1", "augment", "assistant", "We decided to use a worker pool.", ts.Add(time.Minute)),
	}}

	writer := cache.New(r, filepath.Join(cacheRoot, "augment"), permStore)
	codec := aicf.New()
	consolAgt := consolidation.New(cacheRoot, filepath.Join(baseDir, "recent"), aiDir, codec)
	sessionAgt := session.New(filepath.Join(baseDir, "recent"), filepath.Join(baseDir, "sessions"), codec)
	dropoffAgt := dropoff.New(baseDir, codec)

	return New(baseDir, cacheRoot, []*cache.Writer{writer}, permStore, consolAgt, sessionAgt, dropoffAgt)
}

func TestTickRunsFullPipeline(t *testing.T) {
	root := t.TempDir()
	orch := buildOrchestrator(t, root)

	stats, err := orch.Tick(context.Background())
	require.NoError(t, err)
	require.False(t, stats.Skipped)
	require.Equal(t, 1, stats.ChunksWritten)
	require.Equal(t, 1, stats.ConversationsOut)
	require.Equal(t, 1, stats.SessionsWritten)

	entries, err := os.ReadDir(filepath.Join(root, ".aicf", "recent"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestTickSkipsWhenAlreadyRunning(t *testing.T) {
	root := t.TempDir()
	orch := buildOrchestrator(t, root)
	require.NoError(t, orch.lock.Lock())
	defer orch.lock.Unlock()

	stats, err := orch.Tick(context.Background())
	require.NoError(t, err)
	require.True(t, stats.Skipped)
}

func TestTickReprocessesIdenticalContentConsistently(t *testing.T) {
	// The fake reader always returns the same messages (no cursor), so each
	// tick re-observes and re-consolidates the same conversation; this
	// exercises overwrite-on-rename rather than cross-tick dedup, which is
	// the real readers' job via ReadSince.
	root := t.TempDir()
	orch := buildOrchestrator(t, root)

	first, err := orch.Tick(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, first.ConversationsOut)

	second, err := orch.Tick(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, second.ConversationsOut)

	entries, err := os.ReadDir(filepath.Join(root, ".aicf", "recent"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
