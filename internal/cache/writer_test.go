package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aicfd/aicfd/internal/model"
	"github.com/aicfd/aicfd/internal/permission"
	"github.com/aicfd/aicfd/internal/reader"
)

type fakeReader struct {
	platform string
	messages []model.Message
	err      error
}

func (f *fakeReader) Platform() string { return f.platform }
func (f *fakeReader) IsAvailable(ctx context.Context) bool { return true }
func (f *fakeReader) ReadAll(ctx context.Context) ([]model.Message, error) {
	return f.messages, f.err
}
func (f *fakeReader) ReadSince(ctx context.Context, cursor reader.Cursor) ([]model.Message, reader.Cursor, error) {
	return f.messages, cursor, f.err
}

func newActiveStore(t *testing.T, platform string) *permission.Store {
	path := filepath.Join(t.TempDir(), ".permissions.aicf")
	s, err := permission.NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Grant(platform, permission.ConsentExplicit))
	return s
}

func msg(conversationID, content string, ts time.Time) model.Message {
	m := model.Message{ConversationID: conversationID, Content: content, Timestamp: ts, Role: model.RoleUser}
	m.Finalize("augment")
	return m
}

func TestWriteCreatesOneChunkPerConversation(t *testing.T) {
	cacheDir := t.TempDir()
	store := newActiveStore(t, "augment")

	base := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)
	r := &fakeReader{platform: "augment", messages: []model.Message{
		msg("conv1", "hello", base),
		msg("conv1", "world", base.Add(time.Minute)),
		msg("conv2", "other", base),
	}}

	w := New(r, cacheDir, store)
	stats, err := w.Write(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, stats.NewChunksWritten)
	require.Equal(t, 0, stats.ChunksSkipped)

	refs, err := EnumerateAll(filepath.Dir(cacheDir))
	require.NoError(t, err)
	require.Len(t, refs, 2)
}

func TestWriteIsIdempotent(t *testing.T) {
	cacheDir := t.TempDir()
	store := newActiveStore(t, "augment")

	base := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)
	r := &fakeReader{platform: "augment", messages: []model.Message{msg("conv1", "hello", base)}}

	w := New(r, cacheDir, store)
	stats1, err := w.Write(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats1.NewChunksWritten)

	stats2, err := w.Write(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, stats2.NewChunksWritten)
	require.Equal(t, 1, stats2.ChunksSkipped)
}

func TestWriteSkipsWhenPermissionNotActive(t *testing.T) {
	cacheDir := t.TempDir()
	path := filepath.Join(t.TempDir(), ".permissions.aicf")
	store, err := permission.NewStore(path)
	require.NoError(t, err)

	r := &fakeReader{platform: "warp", messages: []model.Message{msg("conv1", "hello", time.Now())}}
	w := New(r, cacheDir, store)

	stats, err := w.Write(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, stats.NewChunksWritten)

	log := store.AuditLog()
	require.Len(t, log, 1)
	require.Equal(t, permission.EventAccessDenied, log[0].Event)
}
