package claudedesktop

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

	_, err = db.Exec(`CREATE TABLE messages (conversation_id TEXT, role TEXT, content TEXT, created_at TEXT)`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO messages VALUES ('conv-1', 'user', 'hello', '2026-07-31T10:00:00Z')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO messages VALUES ('conv-1', 'model', 'hi there', '2026-07-31 10:00:01')`)
	require.NoError(t, err)
	// Empty content is legitimately filtered, not malformed.
	_, err = db.Exec(`INSERT INTO messages VALUES ('conv-1', 'user', '', '2026-07-31T10:00:02Z')`)
	require.NoError(t, err)
	// A NULL created_at cannot be scanned into a plain string.
	_, err = db.Exec(`INSERT INTO messages VALUES ('conv-1', 'user', 'broken', NULL)`)
	require.NoError(t, err)
}

func TestReadAllNormalizesRolesAndTimestamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claudedesktop.sqlite")
	seedDB(t, path)

	r := New(path)
	require.Equal(t, "claudedesktop", r.Platform())

	messages, err := r.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, "hello", messages[0].Content)
	require.Equal(t, "hi there", messages[1].Content)
	require.Equal(t, 1, r.SkippedMalformed())
}

func TestNormalizeRole(t *testing.T) {
	require.Equal(t, "user", string(normalizeRole("user")))
	require.Equal(t, "assistant", string(normalizeRole("assistant")))
	require.Equal(t, "assistant", string(normalizeRole("model")))
	require.Equal(t, "system", string(normalizeRole("tool")))
}

func TestIsAvailable(t *testing.T) {
	r := New(filepath.Join(t.TempDir(), "missing.sqlite"))
	require.False(t, r.IsAvailable(context.Background()))
}
