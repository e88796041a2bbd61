package orchestrator

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/aicfd/aicfd/internal/event"
	"github.com/aicfd/aicfd/internal/logging"
)

// DirtyWatcher nudges the orchestrator between ticks by watching each
// platform's source path with fsnotify and publishing event.PlatformDirty
// on any write. A source path that is a directory is watched non-recursively:
// changes to its direct entries count, changes further down are not seen.
// It never triggers a tick itself; Start's ticker remains the only thing
// that calls Tick.
type DirtyWatcher struct {
	watcher *fsnotify.Watcher
	paths   map[string]string // watched path -> platform
}

// NewDirtyWatcher watches each platform's path in platformPaths (platform
// name -> source path) for changes. A platform whose path does not exist
// yet is skipped rather than failing the whole watcher.
func NewDirtyWatcher(platformPaths map[string]string) (*DirtyWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dw := &DirtyWatcher{watcher: w, paths: map[string]string{}}
	for platform, path := range platformPaths {
		if err := w.Add(path); err != nil {
			logging.Debug().Str("platform", platform).Str("path", path).Err(err).Msg("dirty watcher: platform path unavailable, skipping")
			continue
		}
		dw.paths[path] = platform
	}

	return dw, nil
}

// Run consumes fsnotify events until the watcher is closed, publishing
// event.PlatformDirty for each write/create seen on a watched path.
func (dw *DirtyWatcher) Run() {
	for {
		select {
		case ev, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			platform, known := dw.paths[ev.Name]
			if !known {
				platform, known = dw.paths[filepath.Dir(ev.Name)]
			}
			if !known {
				continue
			}
			event.PublishSync(event.Event{
				Type: event.PlatformDirty,
				Data: event.PlatformDirtyData{Platform: platform, Path: ev.Name},
			})
		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			logging.Warn().Err(err).Msg("dirty watcher error")
		}
	}
}

// Close stops the underlying fsnotify watcher.
func (dw *DirtyWatcher) Close() error {
	return dw.watcher.Close()
}
