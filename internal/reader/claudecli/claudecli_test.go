package claudecli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTranscript(t *testing.T, projectsDir, project, session, content string) {
	t.Helper()
	dir := filepath.Join(projectsDir, project)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, session+".jsonl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestReadAllParsesUserAndAssistantLines(t *testing.T) {
	projectsDir := t.TempDir()
	writeTranscript(t, projectsDir, "proj-1", "sess-1",
		`{"type":"user","message":{"role":"user","content":"hello"},"timestamp":"2026-07-31T10:00:00Z","sessionId":"sess-1"}`+"\n"+
			`{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"hi"},{"type":"text","text":"there"}]},"timestamp":"2026-07-31T10:00:01Z","sessionId":"sess-1"}`+"\n")

	r := New(projectsDir)
	require.Equal(t, "claudecli", r.Platform())

	messages, err := r.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, "hello", messages[0].Content)
	require.Equal(t, "hi\nthere", messages[1].Content)
	require.Equal(t, 0, r.SkippedMalformed())
}

func TestReadAllSkipsMalformedLines(t *testing.T) {
	projectsDir := t.TempDir()
	writeTranscript(t, projectsDir, "proj-1", "sess-1",
		`{"type":"user","message":{"role":"user","content":"hello"},"timestamp":"2026-07-31T10:00:00Z","sessionId":"sess-1"}`+"\n"+
			`not json at all`+"\n")

	r := New(projectsDir)
	messages, err := r.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, 1, r.SkippedMalformed())
}

func TestReadAllDropsEmptyContentAndUnknownTypes(t *testing.T) {
	projectsDir := t.TempDir()
	writeTranscript(t, projectsDir, "proj-1", "sess-1",
		`{"type":"summary","summary":"ignored"}`+"\n"+
			`{"type":"user","message":{"role":"user","content":""},"timestamp":"2026-07-31T10:00:00Z","sessionId":"sess-1"}`+"\n")

	r := New(projectsDir)
	messages, err := r.ReadAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, messages)
}

func TestIsAvailable(t *testing.T) {
	r := New(filepath.Join(t.TempDir(), "missing"))
	require.False(t, r.IsAvailable(context.Background()))
}

func TestExtractContentHandlesPlainString(t *testing.T) {
	projectsDir := t.TempDir()
	writeTranscript(t, projectsDir, "proj-1", "sess-1",
		`{"type":"user","message":{"role":"user","content":"plain string"},"timestamp":"2026-07-31T10:00:00Z","sessionId":"sess-1"}`+"\n")

	r := New(projectsDir)
	messages, err := r.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, "plain string", messages[0].Content)
}
