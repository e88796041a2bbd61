// Package orchestrator implements WatcherOrchestrator: the periodic
// scheduler that runs, in order, cache writers, cache consolidation,
// session consolidation and memory drop-off, under a single pipeline-wide
// file lock.
package orchestrator

import (
	"context"
	"crypto/rand"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/aicfd/aicfd/internal/cache"
	"github.com/aicfd/aicfd/internal/consolidation"
	"github.com/aicfd/aicfd/internal/dropoff"
	"github.com/aicfd/aicfd/internal/event"
	"github.com/aicfd/aicfd/internal/fsutil"
	"github.com/aicfd/aicfd/internal/logging"
	"github.com/aicfd/aicfd/internal/permission"
	"github.com/aicfd/aicfd/internal/session"
)

// stuckStageMultiple is how many tick intervals a tick may run before the
// orchestrator logs a stuck-stage warning.
const stuckStageMultiple = 10

// ulidEntropy backs tickID generation: ULIDs keep tick IDs sortable by time
// while remaining unique within a millisecond.
var ulidEntropy = ulid.Monotonic(rand.Reader, 0)

// TickStats aggregates every stage's counters for one tick.
type TickStats struct {
	TickID           string
	Duration         time.Duration
	ChunksWritten    int
	ChunksSkipped    int
	SkippedMalformed int
	ConversationsOut int
	SessionsWritten  int
	FilesDroppedOff  int
	Skipped          bool // a prior tick was still running, or the pipeline lock was held
}

// Orchestrator is the WatcherOrchestrator.
type Orchestrator struct {
	baseDir   string // .aicf
	cacheRoot string // .cache/llm

	writers    []*cache.Writer
	permStore  *permission.Store
	consolAgt  *consolidation.Agent
	sessionAgt *session.Agent
	dropoffAgt *dropoff.Agent

	lock *fsutil.FileLock

	running  int32 // atomic: 1 while a tick is executing
	tickN    uint64
	interval time.Duration
}

// New wires an Orchestrator from its constituent agents. writers is one
// cache.Writer per platform; the orchestrator runs them in the order given.
func New(
	baseDir, cacheRoot string,
	writers []*cache.Writer,
	permStore *permission.Store,
	consolAgt *consolidation.Agent,
	sessionAgt *session.Agent,
	dropoffAgt *dropoff.Agent,
) *Orchestrator {
	return &Orchestrator{
		baseDir:    baseDir,
		cacheRoot:  cacheRoot,
		writers:    writers,
		permStore:  permStore,
		consolAgt:  consolAgt,
		sessionAgt: sessionAgt,
		dropoffAgt: dropoffAgt,
		lock:       fsutil.NewFileLock(filepath.Join(baseDir, ".pipeline.lock")),
		interval:   5 * time.Minute,
	}
}

// Tick runs one full pipeline pass: writers -> consolidation -> session ->
// drop-off. If a tick is already running, it skips rather than queuing.
func (o *Orchestrator) Tick(ctx context.Context) (TickStats, error) {
	if !atomic.CompareAndSwapInt32(&o.running, 0, 1) {
		return TickStats{Skipped: true}, nil
	}
	defer atomic.StoreInt32(&o.running, 0)

	if !o.lock.TryLock() {
		return TickStats{Skipped: true}, nil
	}
	defer o.lock.Unlock()

	atomic.AddUint64(&o.tickN, 1)
	started := time.Now()
	tickID := ulid.MustNew(ulid.Timestamp(started), ulidEntropy).String()

	event.PublishSync(event.Event{
		Type: event.TickStarted,
		Data: event.TickStartedData{TickID: tickID, StartedAt: started},
	})

	stats := TickStats{TickID: tickID}

	stuckTimer := time.AfterFunc(o.stuckAfter(), func() {
		logging.Warn().Str("tick", tickID).Msg("tick still running past the stuck-stage threshold")
	})
	defer stuckTimer.Stop()

	if err := o.runWriters(ctx, &stats); err != nil {
		return o.fail(tickID, "writers", err, started)
	}
	if err := o.runConsolidation(ctx, &stats); err != nil {
		return o.fail(tickID, "consolidation", err, started)
	}
	if err := o.runSession(&stats); err != nil {
		return o.fail(tickID, "session", err, started)
	}
	if err := o.runDropoff(&stats); err != nil {
		return o.fail(tickID, "dropoff", err, started)
	}

	stats.Duration = time.Since(started)

	event.PublishSync(event.Event{
		Type: event.TickCompleted,
		Data: event.TickCompletedData{
			TickID:           tickID,
			Duration:         stats.Duration,
			ChunksWritten:    stats.ChunksWritten,
			ConversationsOut: stats.ConversationsOut,
			FilesDroppedOff:  stats.FilesDroppedOff,
			SkippedMalformed: stats.SkippedMalformed,
		},
	})

	logging.Info().
		Str("tick", tickID).
		Dur("duration", stats.Duration).
		Int("chunksWritten", stats.ChunksWritten).
		Int("conversationsOut", stats.ConversationsOut).
		Int("sessionsWritten", stats.SessionsWritten).
		Int("filesDroppedOff", stats.FilesDroppedOff).
		Int("skippedMalformed", stats.SkippedMalformed).
		Msg("tick completed")

	return stats, nil
}

func (o *Orchestrator) fail(tickID, stage string, err error, started time.Time) (TickStats, error) {
	event.PublishSync(event.Event{
		Type: event.TickFailed,
		Data: event.TickFailedData{TickID: tickID, Stage: stage, Error: err.Error()},
	})
	logging.Error().Str("tick", tickID).Str("stage", stage).Err(err).Msg("tick failed")
	return TickStats{TickID: tickID, Duration: time.Since(started)}, fmt.Errorf("orchestrator: %s: %w", stage, err)
}

func (o *Orchestrator) stuckAfter() time.Duration {
	return stuckStageMultiple * o.interval
}

// runWriters runs every platform's CacheWriter. Platforms are independent,
// so writers run concurrently, one goroutine per writer.
func (o *Orchestrator) runWriters(ctx context.Context, stats *TickStats) error {
	var mu sync.Mutex
	var wg sync.WaitGroup
	errs := make([]error, len(o.writers))

	for i, w := range o.writers {
		wg.Add(1)
		go func(i int, w *cache.Writer) {
			defer wg.Done()
			writeStats, err := w.Write(ctx)
			if err != nil {
				errs[i] = err
				return
			}
			mu.Lock()
			stats.ChunksWritten += writeStats.NewChunksWritten
			stats.ChunksSkipped += writeStats.ChunksSkipped
			stats.SkippedMalformed += writeStats.SkippedMalformed
			mu.Unlock()
		}(i, w)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) runConsolidation(ctx context.Context, stats *TickStats) error {
	result, err := o.consolAgt.Consolidate(ctx)
	if err != nil {
		return err
	}
	stats.ConversationsOut = result.ConversationsWritten
	for _, f := range result.Failures {
		logging.Warn().Str("conversationId", f.ConversationID).Str("error", f.Error).Msg("conversation consolidation failed, chunks retained for retry")
	}
	return nil
}

func (o *Orchestrator) runSession(stats *TickStats) error {
	result, err := o.sessionAgt.Consolidate()
	if err != nil {
		return err
	}
	stats.SessionsWritten = result.SessionsWritten
	for _, f := range result.Failures {
		logging.Warn().Str("path", f.Path).Str("error", f.Error).Msg("session indexing failed")
	}
	return nil
}

func (o *Orchestrator) runDropoff(stats *TickStats) error {
	result, err := o.dropoffAgt.Dropoff()
	if err != nil {
		return err
	}
	for _, n := range result.Migrated {
		stats.FilesDroppedOff += n
	}
	for _, f := range result.Failures {
		logging.Warn().Str("path", f.Path).Str("error", f.Error).Msg("drop-off migration failed, source retained")
	}
	return nil
}

// Start runs Tick every interval until ctx is canceled, then finishes the
// in-flight tick (if any) before returning.
func (o *Orchestrator) Start(ctx context.Context, interval time.Duration) {
	o.interval = interval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("orchestrator received shutdown signal, waiting for in-flight tick to finish")
			for atomic.LoadInt32(&o.running) == 1 {
				time.Sleep(50 * time.Millisecond)
			}
			return
		case <-ticker.C:
			if _, err := o.Tick(ctx); err != nil {
				logging.Error().Err(err).Msg("tick returned an error")
			}
		}
	}
}
