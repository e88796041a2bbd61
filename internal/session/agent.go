// Package session implements SessionConsolidationAgent: it groups every
// ConversationRecord under .aicf/recent/ by the UTC calendar date it
// started on and rewrites that date's session file in full.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aicfd/aicfd/internal/aicf"
	"github.com/aicfd/aicfd/internal/model"
)

// Stats summarizes one consolidate() run.
type Stats struct {
	SessionsWritten int
	RecordsIndexed  int
	Failures        []Failure
}

// Failure records one record that could not be read while indexing.
type Failure struct {
	Path  string
	Error string
}

// Agent is the SessionConsolidationAgent.
type Agent struct {
	recentDir   string // .aicf/recent
	sessionsDir string // .aicf/sessions
	codec       *aicf.Codec
}

// New returns an Agent wired to recentDir and sessionsDir.
func New(recentDir, sessionsDir string, codec *aicf.Codec) *Agent {
	return &Agent{recentDir: recentDir, sessionsDir: sessionsDir, codec: codec}
}

// Consolidate reads every record under recentDir, groups them by the UTC
// date of their timestamp line, and rewrites each date's session
// file in full. It is idempotent: re-running with unchanged records
// produces byte-identical session files.
func (a *Agent) Consolidate() (Stats, error) {
	entries, err := os.ReadDir(a.recentDir)
	if err != nil {
		if os.IsNotExist(err) {
			return Stats{}, nil
		}
		return Stats{}, fmt.Errorf("session: read recent dir: %w", err)
	}

	byDate := make(map[string][]model.ConversationRef)
	var stats Stats

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".aicf") {
			continue
		}
		path := filepath.Join(a.recentDir, e.Name())
		ref, date, err := a.indexRecord(path)
		if err != nil {
			stats.Failures = append(stats.Failures, Failure{Path: path, Error: err.Error()})
			continue
		}
		byDate[date] = append(byDate[date], ref)
		stats.RecordsIndexed++
	}

	if err := os.MkdirAll(a.sessionsDir, 0o755); err != nil {
		return stats, fmt.Errorf("session: create sessions dir: %w", err)
	}

	for date, refs := range byDate {
		sort.Slice(refs, func(i, j int) bool {
			return refs[i].TimestampStart.Before(refs[j].TimestampStart)
		})
		sessionFile := model.SessionFile{Date: date, Conversations: refs}
		if err := a.writeSession(sessionFile); err != nil {
			stats.Failures = append(stats.Failures, Failure{Path: date, Error: err.Error()})
			continue
		}
		stats.SessionsWritten++
	}

	return stats, nil
}

// indexRecord reads one conversation record and builds its ConversationRef
// plus the UTC date it should be filed under.
func (a *Agent) indexRecord(path string) (model.ConversationRef, string, error) {
	result, err := a.codec.ReadAll(path)
	if err != nil {
		return model.ConversationRef{}, "", err
	}

	ref := model.ConversationRef{RecordPath: path}
	var start time.Time

	for _, line := range result.Lines {
		switch line.Tag {
		case "timestamp":
			if len(line.Fields) > 0 {
				start, _ = time.Parse(time.RFC3339, line.Fields[0])
			}
		case "conversationId":
			if len(line.Fields) > 0 {
				ref.ConversationID = line.Fields[0]
			}
		case "platforms":
			if len(line.Fields) > 0 && line.Fields[0] != "" {
				ref.Platforms = strings.Split(line.Fields[0], ",")
			}
		case "messageCount":
			if len(line.Fields) > 0 {
				ref.MessageCount, _ = strconv.Atoi(line.Fields[0])
			}
		case "workingState":
			if len(line.Fields) > 0 {
				ref.Summary = line.Fields[0]
			}
		}
	}

	if ref.ConversationID == "" {
		return model.ConversationRef{}, "", fmt.Errorf("missing conversationId in %s", path)
	}
	if start.IsZero() {
		return model.ConversationRef{}, "", fmt.Errorf("missing timestamp in %s", path)
	}

	ref.TimestampStart = start

	return ref, start.UTC().Format("2006-01-02"), nil
}

func (a *Agent) writeSession(s model.SessionFile) error {
	path := filepath.Join(a.sessionsDir, s.FileName())

	var records [][]string
	records = append(records, []string{"date", s.Date})
	records = append(records, []string{"conversationCount", strconv.Itoa(len(s.Conversations))})
	for _, ref := range s.Conversations {
		records = append(records, []string{
			"conversationRef",
			ref.ConversationID,
			ref.RecordPath,
			ref.TimestampStart.UTC().Format(time.RFC3339),
			strings.Join(ref.Platforms, ","),
			strconv.Itoa(ref.MessageCount),
			ref.Summary,
		})
	}

	return a.codec.WriteRecord(path, records)
}
