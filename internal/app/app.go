// Package app wires every pipeline component into one Orchestrator, reading
// the on-disk configuration and permission store first. This is the
// composition root cmd/aicfd drives.
package app

import (
	"fmt"

	"github.com/aicfd/aicfd/internal/aicf"
	"github.com/aicfd/aicfd/internal/cache"
	"github.com/aicfd/aicfd/internal/config"
	"github.com/aicfd/aicfd/internal/consolidation"
	"github.com/aicfd/aicfd/internal/dropoff"
	"github.com/aicfd/aicfd/internal/logging"
	"github.com/aicfd/aicfd/internal/orchestrator"
	"github.com/aicfd/aicfd/internal/permission"
	"github.com/aicfd/aicfd/internal/platforms"
	"github.com/aicfd/aicfd/internal/reader"
	"github.com/aicfd/aicfd/internal/reader/augment"
	"github.com/aicfd/aicfd/internal/reader/claudecli"
	"github.com/aicfd/aicfd/internal/reader/claudedesktop"
	"github.com/aicfd/aicfd/internal/reader/warp"
	"github.com/aicfd/aicfd/internal/session"
)

// App holds every long-lived component the CLI commands operate on.
type App struct {
	Paths        *config.Paths
	Config       *config.Config
	Permissions  *permission.Store
	Codec        *aicf.Codec
	Orchestrator *orchestrator.Orchestrator
	// DirtyWatcher nudges between ticks via fsnotify; nil if the fsnotify
	// watcher itself could not be created. Platform paths that cannot be
	// watched are skipped, not treated as failure.
	DirtyWatcher *orchestrator.DirtyWatcher
}

// New loads configuration and the permission store under baseDir, builds a
// reader+writer pair for every known platform, and assembles the
// Orchestrator. Readers whose source path cannot be located are still
// built (pointing at an empty path); IsAvailable will simply report false
// and CacheWriter.Write becomes a no-op for that platform.
func New(baseDir string) (*App, error) {
	paths := config.GetPaths(baseDir)
	if err := paths.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("app: ensure dirs: %w", err)
	}

	cfg, err := config.Load(baseDir)
	if err != nil {
		return nil, fmt.Errorf("app: load config: %w", err)
	}

	permStore, err := permission.NewStore(paths.PermissionsPath())
	if err != nil {
		return nil, fmt.Errorf("app: load permission store: %w", err)
	}

	codec := aicf.New()
	if cfg.Codec.RedactPII {
		codec = codec.WithRedactor(aicf.BasicRedactor{})
	}

	sourcePaths := discoverSourcePaths()
	writers := buildWriters(paths, permStore, sourcePaths)

	dirtyWatcher, err := orchestrator.NewDirtyWatcher(nonEmptyPaths(sourcePaths))
	if err != nil {
		logging.Warn().Err(err).Msg("app: dirty watcher unavailable, relying on the tick timer only")
		dirtyWatcher = nil
	}

	medium, old, archive := cfg.Retention.Durations()
	dropoffAgt := dropoff.New(paths.Aicf, codec).WithThresholds(dropoff.Thresholds{
		MediumAfter:  medium,
		OldAfter:     old,
		ArchiveAfter: archive,
	})

	orch := orchestrator.New(
		paths.Aicf,
		paths.Cache,
		writers,
		permStore,
		consolidation.New(paths.Cache, paths.Recent, paths.AiRecent, codec),
		session.New(paths.Recent, paths.Sessions, codec),
		dropoffAgt,
	)

	return &App{
		Paths:        paths,
		Config:       cfg,
		Permissions:  permStore,
		Codec:        codec,
		Orchestrator: orch,
		DirtyWatcher: dirtyWatcher,
	}, nil
}

// discoverSourcePaths locates each platform's on-disk store, using the
// same platform id strings internal/platforms and the readers share.
// A platform whose path cannot be located maps to "".
func discoverSourcePaths() map[string]string {
	return map[string]string{
		platforms.Augment:       platforms.AugmentStorePath(),
		platforms.Warp:          platforms.WarpDBPath(),
		platforms.ClaudeDesktop: platforms.ClaudeDesktopDBPath(),
		platforms.ClaudeCLI:     platforms.ClaudeCLIProjectsDir(),
	}
}

// nonEmptyPaths drops platforms whose source path could not be located,
// since NewDirtyWatcher would otherwise try (and fail) to watch "".
func nonEmptyPaths(sourcePaths map[string]string) map[string]string {
	out := make(map[string]string, len(sourcePaths))
	for platform, path := range sourcePaths {
		if path != "" {
			out[platform] = path
		}
	}
	return out
}

// buildWriters constructs one cache.Writer per known platform, using its
// discovered source path.
func buildWriters(paths *config.Paths, permStore *permission.Store, sourcePaths map[string]string) []*cache.Writer {
	readers := []reader.Reader{
		augment.New(sourcePaths[platforms.Augment]),
		warp.New(sourcePaths[platforms.Warp]),
		claudedesktop.New(sourcePaths[platforms.ClaudeDesktop]),
		claudecli.New(sourcePaths[platforms.ClaudeCLI]),
	}

	writers := make([]*cache.Writer, 0, len(readers))
	for _, r := range readers {
		writers = append(writers, cache.New(r, paths.PlatformCacheDir(r.Platform()), permStore))
	}
	return writers
}
