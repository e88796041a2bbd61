// Package consolidation implements CacheConsolidationAgent: it merges every
// platform's cached chunks into one ConversationRecord per conversationId,
// runs deterministic extraction, and writes the AICF record plus its
// Markdown companion.
package consolidation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aicfd/aicfd/internal/aicf"
	"github.com/aicfd/aicfd/internal/cache"
	"github.com/aicfd/aicfd/internal/extract"
	"github.com/aicfd/aicfd/internal/logging"
	"github.com/aicfd/aicfd/internal/model"
)

// Stats summarizes one consolidate() run.
type Stats struct {
	ConversationsWritten int
	ChunksConsumed       int
	Failures             []Failure
}

// Failure records one conversation that could not be consolidated this run;
// its chunks are left in place for a later retry.
type Failure struct {
	ConversationID string
	Error          string
}

// Agent is the CacheConsolidationAgent.
type Agent struct {
	cacheRoot string // .cache/llm
	recentDir string // .aicf/recent
	aiDir     string // .ai/recent
	codec     *aicf.Codec
	ruleset   extract.Ruleset
}

// New returns an Agent wired to the given directories.
func New(cacheRoot, recentDir, aiDir string, codec *aicf.Codec) *Agent {
	return &Agent{
		cacheRoot: cacheRoot,
		recentDir: recentDir,
		aiDir:     aiDir,
		codec:     codec,
		ruleset:   extract.DefaultRuleset{},
	}
}

// Consolidate enumerates every cached chunk, merges and groups Messages by
// conversation, runs extraction, and writes each conversation's record. A
// failure on one conversation is recorded and does not stop the others.
func (a *Agent) Consolidate(ctx context.Context) (Stats, error) {
	refs, err := cache.EnumerateAll(a.cacheRoot)
	if err != nil {
		return Stats{}, fmt.Errorf("consolidation: enumerate chunks: %w", err)
	}
	if len(refs) == 0 {
		return Stats{}, nil
	}

	var allMessages []model.Message
	chunksByConversation := make(map[string][]string) // conversationId -> chunk paths
	for _, ref := range refs {
		allMessages = append(allMessages, ref.Chunk.Messages...)
		chunksByConversation[ref.Chunk.ConversationID] = append(chunksByConversation[ref.Chunk.ConversationID], ref.Path)
	}

	deduped := mergeNearDuplicates(dedupeByContentHash(allMessages))
	groups := groupByConversation(deduped)

	var stats Stats
	for conversationID, group := range groups {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		record, err := a.buildRecord(conversationID, group)
		if err != nil {
			stats.Failures = append(stats.Failures, Failure{ConversationID: conversationID, Error: err.Error()})
			continue
		}

		if err := a.writeRecord(record); err != nil {
			stats.Failures = append(stats.Failures, Failure{ConversationID: conversationID, Error: err.Error()})
			continue
		}

		for _, path := range chunksByConversation[conversationID] {
			if err := cache.Delete(path); err != nil {
				stats.Failures = append(stats.Failures, Failure{ConversationID: conversationID, Error: "delete chunk: " + err.Error()})
				continue
			}
			stats.ChunksConsumed++
		}
		stats.ConversationsWritten++
	}

	return stats, nil
}

func (a *Agent) buildRecord(conversationID string, group []dedupedMessage) (model.ConversationRecord, error) {
	if len(group) == 0 {
		return model.ConversationRecord{}, fmt.Errorf("empty group for %s", conversationID)
	}

	messages := make([]model.Message, len(group))
	for i, d := range group {
		messages[i] = d.message
	}

	result := a.ruleset.Extract(messages)

	// TimestampEnd is normally the last raw message's timestamp, but an
	// extracted item carrying a later one (e.g. a decision timestamped off
	// a differently-clocked platform) still needs to be reflected.
	end := messages[len(messages)-1].Timestamp
	if latest := result.LatestTimestamp(); latest.After(end) {
		end = latest
	}

	record := model.ConversationRecord{
		ConversationID: conversationID,
		TimestampStart: messages[0].Timestamp,
		TimestampEnd:   end,
		Platforms:      platformSet(group),
		MessageCount:   len(messages),
		UserIntents:    result.UserIntents,
		AIActions:      result.AIActions,
		TechnicalWork:  result.TechnicalWork,
		Decisions:      result.Decisions,
		Flow:           result.Flow,
		WorkingState:   result.WorkingState,
		Compression:    model.CompressionFull,
	}

	return record, nil
}

func (a *Agent) writeRecord(record model.ConversationRecord) error {
	basename := record.FileBasename()
	recordPath := filepath.Join(a.recentDir, basename+".aicf")
	mdPath := filepath.Join(a.aiDir, basename+".md")
	newMarkdown := renderMarkdown(record)

	if oldMarkdown, err := os.ReadFile(mdPath); err == nil {
		ratio := changeRatio(string(oldMarkdown), newMarkdown)
		logging.Debug().Str("conversationId", record.ConversationID).Float64("changeRatio", ratio).
			Msg("re-consolidating a conversation that already has a record")

		if old, err := a.codec.ReadAll(recordPath); err == nil {
			oldRecord := model.ConversationRecord{Platforms: previousPlatforms(old.Lines)}
			for _, p := range record.Platforms {
				if !oldRecord.HasPlatform(p) {
					logging.Info().Str("conversationId", record.ConversationID).Str("platform", p).
						Msg("conversation gained a new platform since its last consolidation")
				}
			}
		}
	}

	if err := os.MkdirAll(a.recentDir, 0o755); err != nil {
		return fmt.Errorf("create recent dir: %w", err)
	}
	if err := a.codec.WriteRecord(recordPath, encodeRecord(record)); err != nil {
		return fmt.Errorf("write record: %w", err)
	}

	if err := os.MkdirAll(a.aiDir, 0o755); err != nil {
		return fmt.Errorf("create ai dir: %w", err)
	}
	if err := os.WriteFile(mdPath, []byte(newMarkdown), 0o644); err != nil {
		return fmt.Errorf("write markdown: %w", err)
	}

	return nil
}

// encodeRecord renders a ConversationRecord as the AICF line schema from
// the storage layout: timestamp, conversationId, platforms, messageCount,
// then one line per extracted item, then workingState and the trailing
// compression tag.
func encodeRecord(r model.ConversationRecord) [][]string {
	var lines [][]string

	lines = append(lines, []string{"timestamp", r.TimestampStart.UTC().Format(time.RFC3339)})
	lines = append(lines, []string{"conversationId", r.ConversationID})
	lines = append(lines, []string{"platforms", joinCSV(r.Platforms)})
	lines = append(lines, []string{"messageCount", strconv.Itoa(r.MessageCount)})

	for _, ui := range r.UserIntents {
		lines = append(lines, []string{"userIntents", ui.Timestamp.UTC().Format(time.RFC3339), ui.Text, strconv.FormatFloat(ui.Confidence, 'f', 2, 64)})
	}
	for _, aa := range r.AIActions {
		lines = append(lines, []string{"aiActions", aa.Timestamp.UTC().Format(time.RFC3339), aa.Text})
	}
	for _, tw := range r.TechnicalWork {
		lines = append(lines, []string{"technicalWork", tw.Timestamp.UTC().Format(time.RFC3339), tw.Category, tw.Text})
	}
	for _, d := range r.Decisions {
		lines = append(lines, []string{"decisions", d.Timestamp.UTC().Format(time.RFC3339), d.Text})
	}
	for _, f := range r.Flow {
		lines = append(lines, []string{"flow", strconv.Itoa(f.N), string(f.Role), f.Marker})
	}

	lines = append(lines, []string{"workingState", r.WorkingState})
	lines = append(lines, []string{"compression", string(r.Compression)})

	return lines
}

// previousPlatforms extracts the "platforms" line's CSV value from a
// previously-written record's decoded lines.
func previousPlatforms(lines []aicf.Line) []string {
	for _, l := range lines {
		if l.Tag == "platforms" && len(l.Fields) > 0 {
			return strings.Split(l.Fields[0], ",")
		}
	}
	return nil
}

func joinCSV(items []string) string {
	out := ""
	for i, item := range items {
		if i > 0 {
			out += ","
		}
		out += item
	}
	return out
}
