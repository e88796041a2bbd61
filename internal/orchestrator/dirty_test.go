package orchestrator

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aicfd/aicfd/internal/event"
)

func TestDirtyWatcherPublishesOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.db")
	require.NoError(t, os.WriteFile(path, []byte("seed"), 0o644))

	dw, err := NewDirtyWatcher(map[string]string{"augment": path})
	require.NoError(t, err)
	defer dw.Close()

	go dw.Run()

	received := make(chan event.PlatformDirtyData, 1)
	unsubscribe := event.Subscribe(event.PlatformDirty, func(e event.Event) {
		if data, ok := e.Data.(event.PlatformDirtyData); ok {
			select {
			case received <- data:
			default:
			}
		}
	})
	defer unsubscribe()

	require.NoError(t, os.WriteFile(path, []byte("changed"), 0o644))

	select {
	case data := <-received:
		require.Equal(t, "augment", data.Platform)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for platform.dirty event")
	}
}

func TestNewDirtyWatcherSkipsMissingPaths(t *testing.T) {
	dw, err := NewDirtyWatcher(map[string]string{"augment": "/nonexistent/path/that/does/not/exist"})
	require.NoError(t, err)
	defer dw.Close()
	require.Empty(t, dw.paths)
}
