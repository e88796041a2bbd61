// Package cache implements the per-platform CacheWriter: it reads raw
// Messages (gated by the permission store), groups them by conversation,
// and idempotently persists each group as a content-addressed chunk under
// .cache/llm/<platform>/.
package cache

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/aicfd/aicfd/internal/model"
	"github.com/aicfd/aicfd/internal/permission"
	"github.com/aicfd/aicfd/internal/reader"
	"github.com/aicfd/aicfd/internal/storage"
)

// Stats summarizes one CacheWriter.Write call.
type Stats struct {
	NewChunksWritten int
	ChunksSkipped    int
	SkippedMalformed int // rows/entries the reader could not parse
}

// malformedCounter is implemented by readers that track how many entries
// they could not parse during their most recent ReadAll.
type malformedCounter interface {
	SkippedMalformed() int
}

// Writer writes one platform's Messages to its chunk cache directory.
type Writer struct {
	platform  string
	reader    reader.Reader
	store     *storage.Storage // rooted at .cache/llm/<platform>
	permStore *permission.Store
}

// New returns a Writer for r, persisting chunks under cacheDir and gated by
// permStore.
func New(r reader.Reader, cacheDir string, permStore *permission.Store) *Writer {
	return &Writer{
		platform:  r.Platform(),
		reader:    r,
		store:     storage.New(cacheDir),
		permStore: permStore,
	}
}

// Write reads the platform's Messages (if permission is active), groups
// them by conversation, and writes any not-yet-seen chunk atomically.
func (w *Writer) Write(ctx context.Context) (Stats, error) {
	entry := w.permStore.Get(w.platform)
	if !entry.IsActive() {
		w.permStore.LogEvent(permission.AuditEvent{
			Event:    permission.EventAccessDenied,
			Platform: w.platform,
			Actor:    permission.ActorSystem,
			Action:   "read",
		})
		return Stats{}, nil
	}

	messages, err := w.reader.ReadAll(ctx)
	if err != nil {
		w.permStore.LogEvent(permission.AuditEvent{
			Event:    permission.EventAccessDenied,
			Platform: w.platform,
			Actor:    permission.ActorSystem,
			Action:   "read_failed:" + err.Error(),
		})
		return Stats{}, nil
	}

	groups := groupByConversation(messages)

	var stats Stats
	if mc, ok := w.reader.(malformedCounter); ok {
		stats.SkippedMalformed = mc.SkippedMalformed()
	}
	for conversationID, msgs := range groups {
		chunk := model.CacheChunk{
			Platform:       w.platform,
			ConversationID: conversationID,
			ProducedAt:     time.Now().UTC(),
			Messages:       msgs,
		}

		key := strings.TrimSuffix(chunk.FileName(), ".json")
		if w.store.Exists(ctx, []string{key}) {
			stats.ChunksSkipped++
			continue
		}

		if err := w.store.Put(ctx, []string{key}, chunk); err != nil {
			continue
		}
		stats.NewChunksWritten++
	}

	return stats, nil
}

func groupByConversation(messages []model.Message) map[string][]model.Message {
	groups := make(map[string][]model.Message)
	for _, m := range messages {
		groups[m.ConversationID] = append(groups[m.ConversationID], m)
	}
	for _, msgs := range groups {
		sort.Slice(msgs, func(i, j int) bool {
			return msgs[i].Timestamp.Before(msgs[j].Timestamp)
		})
	}
	return groups
}
