// Package dropoff implements MemoryDropoffAgent: it walks the tiered
// directories recent/ -> medium/ -> old/ -> archive/ and migrates each
// record whose age exceeds the next threshold, rewriting it at the
// destination tier's compression level.
package dropoff

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aicfd/aicfd/internal/aicf"
	"github.com/aicfd/aicfd/internal/model"
)

// Tier is one retention directory.
type Tier string

const (
	TierRecent  Tier = "recent"
	TierMedium  Tier = "medium"
	TierOld     Tier = "old"
	TierArchive Tier = "archive"
)

// Thresholds controls the age, measured from timestampStart, at which a
// record is migrated to the next tier.
type Thresholds struct {
	MediumAfter  time.Duration
	OldAfter     time.Duration
	ArchiveAfter time.Duration
}

// DefaultThresholds matches the spec's default retention policy: 2/7/14 days.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MediumAfter:  2 * 24 * time.Hour,
		OldAfter:     7 * 24 * time.Hour,
		ArchiveAfter: 14 * 24 * time.Hour,
	}
}

// Stats summarizes one dropoff() run.
type Stats struct {
	Migrated map[Tier]int
	Failures []Failure
}

// Failure records one record that could not be migrated; it is left in
// place at its current tier for a later retry.
type Failure struct {
	Path  string
	Error string
}

// Agent is the MemoryDropoffAgent.
type Agent struct {
	baseDir    string // .aicf
	thresholds Thresholds
	codec      *aicf.Codec
	now        func() time.Time
}

// New returns an Agent rooted at baseDir (typically ".aicf") using the
// default retention thresholds.
func New(baseDir string, codec *aicf.Codec) *Agent {
	return &Agent{baseDir: baseDir, thresholds: DefaultThresholds(), codec: codec, now: time.Now}
}

// WithThresholds returns a copy of the agent using custom thresholds.
func (a *Agent) WithThresholds(t Thresholds) *Agent {
	cp := *a
	cp.thresholds = t
	return &cp
}

// WithClock overrides the agent's notion of "now", for deterministic tests.
func (a *Agent) WithClock(now func() time.Time) *Agent {
	cp := *a
	cp.now = now
	return &cp
}

func (a *Agent) dir(t Tier) string {
	return filepath.Join(a.baseDir, string(t))
}

// Dropoff scans recent/, medium/ and old/ and migrates every file whose age
// exceeds the next threshold to its correct destination tier, rewriting at
// that tier's compression level. Already-correct files are left untouched.
func (a *Agent) Dropoff() (Stats, error) {
	stats := Stats{Migrated: map[Tier]int{}}
	now := a.now()

	for _, tier := range []Tier{TierRecent, TierMedium, TierOld} {
		dir := a.dir(tier)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return stats, fmt.Errorf("dropoff: read %s: %w", dir, err)
		}

		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".aicf") {
				continue
			}
			path := filepath.Join(dir, e.Name())
			if err := a.migrateIfDue(path, tier, now, &stats); err != nil {
				stats.Failures = append(stats.Failures, Failure{Path: path, Error: err.Error()})
			}
		}
	}

	return stats, nil
}

func (a *Agent) targetTier(age time.Duration) Tier {
	switch {
	case age >= a.thresholds.ArchiveAfter:
		return TierArchive
	case age >= a.thresholds.OldAfter:
		return TierOld
	case age >= a.thresholds.MediumAfter:
		return TierMedium
	default:
		return TierRecent
	}
}

func (a *Agent) migrateIfDue(path string, currentTier Tier, now time.Time, stats *Stats) error {
	result, err := a.codec.ReadAll(path)
	if err != nil {
		return fmt.Errorf("read record: %w", err)
	}

	fields := recordFields(result)
	start, err := time.Parse(time.RFC3339, fields["timestamp"])
	if err != nil {
		return fmt.Errorf("parse timestamp: %w", err)
	}

	target := a.targetTier(now.Sub(start))
	if target == currentTier {
		return nil
	}

	compressed, err := compress(target, fields, result.Lines)
	if err != nil {
		return fmt.Errorf("compress: %w", err)
	}

	destDir := a.dir(target)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", destDir, err)
	}
	destPath := filepath.Join(destDir, filepath.Base(path))

	if target == TierArchive {
		// The archive tier's contract is a single bare line, not a full
		// AICF record, so it skips the version header entirely.
		if err := a.codec.WriteRaw(destPath, compressed[0]); err != nil {
			return fmt.Errorf("write %s: %w", destPath, err)
		}
	} else if err := a.codec.WriteRecord(destPath, compressed); err != nil {
		return fmt.Errorf("write %s: %w", destPath, err)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove source %s: %w", path, err)
	}

	stats.Migrated[target]++
	return nil
}

// recordFields flattens a ReadResult's single-valued tags into a map for
// convenient lookup; multi-valued tags (userIntents, decisions, ...) are
// read separately by compress.
func recordFields(result *aicf.ReadResult) map[string]string {
	fields := map[string]string{}
	for _, line := range result.Lines {
		if len(line.Fields) == 0 {
			continue
		}
		if _, ok := fields[line.Tag]; !ok {
			fields[line.Tag] = line.Fields[0]
		}
	}
	return fields
}

// compress rewrites a record's lines at the destination tier's compression
// level, per the retention policy: medium keeps decisions/technical work and
// a summary line, old keeps only decisions, archive collapses to one line.
func compress(target Tier, fields map[string]string, lines []aicf.Line) ([][]string, error) {
	conversationID := fields["conversationId"]
	timestamp := fields["timestamp"]
	platforms := fields["platforms"]
	workingState := fields["workingState"]

	switch target {
	case TierMedium:
		out := [][]string{
			{"timestamp", timestamp},
			{"conversationId", conversationID},
			{"platforms", platforms},
		}
		for _, l := range lines {
			if l.Tag == "decisions" {
				out = append(out, append([]string{"decisions"}, l.Fields...))
			}
			if l.Tag == "technicalWork" {
				out = append(out, append([]string{"technicalWork"}, l.Fields...))
			}
		}
		out = append(out, []string{"summary", workingState})
		out = append(out, []string{"compression", string(model.CompressionSummary)})
		return out, nil
	case TierOld:
		out := [][]string{
			{"timestamp", timestamp},
			{"conversationId", conversationID},
			{"platforms", platforms},
		}
		for _, l := range lines {
			if l.Tag == "decisions" {
				out = append(out, append([]string{"decisions"}, l.Fields...))
			}
		}
		out = append(out, []string{"compression", string(model.CompressionKeyPoints)})
		return out, nil
	case TierArchive:
		date := timestamp
		if t, err := time.Parse(time.RFC3339, timestamp); err == nil {
			date = t.UTC().Format("2006-01-02")
		}
		summary := workingState
		if summary == "" {
			summary = "no summary available"
		}
		return [][]string{
			{date, conversationID, summary},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported compression target %q", target)
	}
}
