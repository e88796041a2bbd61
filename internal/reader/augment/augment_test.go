package augment

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb"
)

func seedStore(t *testing.T, dir string, entries map[string]string) {
	t.Helper()
	db, err := leveldb.OpenFile(dir, nil)
	require.NoError(t, err)
	for key, value := range entries {
		require.NoError(t, db.Put([]byte(key), []byte(value), nil))
	}
	require.NoError(t, db.Close())
}

func TestReadAllDecodesExchanges(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	seedStore(t, dir, map[string]string{
		"exchange:1": `{"conversationId":"conv-1","timestamp":"2026-07-31T10:00:00Z","request_message":"hello","response_text":"hi there"}`,
		"other:1":    `{"ignored":true}`,
	})

	r := New(dir)
	require.Equal(t, "augment", r.Platform())

	messages, err := r.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, "hello", messages[0].Content)
	require.Equal(t, "hi there", messages[1].Content)
	require.Equal(t, 0, r.SkippedMalformed())
}

func TestReadAllSkipsMalformedExchanges(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	seedStore(t, dir, map[string]string{
		"exchange:1": `{"conversationId":"conv-1","timestamp":"2026-07-31T10:00:00Z","request_message":"hello"}`,
		"exchange:2": ``,
	})

	r := New(dir)
	messages, err := r.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, 1, r.SkippedMalformed())
}

func TestReadAllDropsEmptyContent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	seedStore(t, dir, map[string]string{
		"exchange:1": `{"conversationId":"conv-1","timestamp":"2026-07-31T10:00:00Z","request_message":"","response_text":""}`,
	})

	r := New(dir)
	messages, err := r.ReadAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, messages)
}

func TestIsAvailable(t *testing.T) {
	r := New(filepath.Join(t.TempDir(), "missing"))
	require.False(t, r.IsAvailable(context.Background()))
}

func TestReadSinceFiltersByCursor(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	seedStore(t, dir, map[string]string{
		"exchange:1": `{"conversationId":"conv-1","timestamp":"2026-07-31T10:00:00Z","request_message":"old"}`,
		"exchange:2": `{"conversationId":"conv-1","timestamp":"2026-07-31T12:00:00Z","request_message":"new"}`,
	})

	r := New(dir)
	messages, cursor, err := r.ReadSince(context.Background(), "2026-07-31T11:00:00Z")
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, "new", messages[0].Content)
	require.Equal(t, "2026-07-31T12:00:00Z", string(cursor))
}
