package warp

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func seedDB(t *testing.T, path string) {
	t.Helper()
	db, err := sql.Open("sqlite3", "file:"+path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE agent_conversations (conversation_id TEXT, created_at TEXT);
		CREATE TABLE ai_queries (conversation_id TEXT, input TEXT, output TEXT);
	`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO agent_conversations VALUES ('conv-1', '2026-07-31T10:00:00Z')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO ai_queries VALUES ('conv-1', '[{"Query":{"text":"hello"}}]', '{"ActionResult":{"content":"hi there"}}')`)
	require.NoError(t, err)

	// A row with a NULL input column cannot be scanned into a plain string,
	// the same way a corrupted export might leave a gap in a real store.
	_, err = db.Exec(`INSERT INTO agent_conversations VALUES ('conv-2', '2026-07-31T11:00:00Z')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO ai_queries VALUES ('conv-2', NULL, '{}')`)
	require.NoError(t, err)
}

func TestReadAllJoinsConversationsAndQueries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warp.sqlite")
	seedDB(t, path)

	r := New(path)
	require.Equal(t, "warp", r.Platform())

	messages, err := r.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, "hello", messages[0].Content)
	require.Equal(t, "hi there", messages[1].Content)
	require.Equal(t, 1, r.SkippedMalformed())
}

func TestIsAvailable(t *testing.T) {
	r := New(filepath.Join(t.TempDir(), "missing.sqlite"))
	require.False(t, r.IsAvailable(context.Background()))
}

func TestRenderActionResultIncludesCommandsAndFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warp.sqlite")
	db, err := sql.Open("sqlite3", "file:"+path)
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE agent_conversations (conversation_id TEXT, created_at TEXT);
		CREATE TABLE ai_queries (conversation_id TEXT, input TEXT, output TEXT);
		INSERT INTO agent_conversations VALUES ('conv-1', '2026-07-31T10:00:00Z');
		INSERT INTO ai_queries VALUES ('conv-1', '[]', '{"ActionResult":{"content":"ran it","commands":["ls"],"files":["a.go"]}}');
	`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	r := New(path)
	messages, err := r.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Contains(t, messages[0].Content, "ran it")
	require.Contains(t, messages[0].Content, "$ ls")
	require.Contains(t, messages[0].Content, "file: a.go")
}
