// Package claudecli reads Claude CLI's JSONL session transcripts under
// ~/.claude/projects/<project>/<session>.jsonl.
package claudecli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/tidwall/gjson"

	"github.com/aicfd/aicfd/internal/model"
	"github.com/aicfd/aicfd/internal/reader"
)

const platform = "claudecli"

// Reader reads every project's JSONL session transcripts under projectsDir
// (typically ~/.claude/projects).
type Reader struct {
	projectsDir string
	skipped     int64 // atomic: unparseable JSONL lines seen in the most recent ReadAll
}

// New returns a reader rooted at projectsDir.
func New(projectsDir string) *Reader {
	return &Reader{projectsDir: projectsDir}
}

func (r *Reader) Platform() string { return platform }

// SkippedMalformed returns the number of transcript lines that failed to
// parse as JSON during the most recent ReadAll.
func (r *Reader) SkippedMalformed() int { return int(atomic.LoadInt64(&r.skipped)) }

func (r *Reader) IsAvailable(ctx context.Context) bool {
	info, err := os.Stat(r.projectsDir)
	return err == nil && info.IsDir()
}

// getAvailableProjects returns the set of project subdirectories under
// projectsDir, each one a distinct Claude CLI project.
func (r *Reader) getAvailableProjects() ([]string, error) {
	entries, err := os.ReadDir(r.projectsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var projects []string
	for _, e := range entries {
		if e.IsDir() {
			projects = append(projects, e.Name())
		}
	}
	return projects, nil
}

func (r *Reader) ReadAll(ctx context.Context) ([]model.Message, error) {
	projects, err := r.getAvailableProjects()
	if err != nil {
		return nil, fmt.Errorf("claudecli: enumerate projects: %w", err)
	}

	var messages []model.Message
	var skipped int64
	for _, project := range projects {
		pattern := filepath.Join(r.projectsDir, project, "*.jsonl")
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			continue
		}
		for _, path := range matches {
			msgs, n, err := readTranscript(path)
			if err != nil {
				continue
			}
			messages = append(messages, msgs...)
			skipped += int64(n)
		}
	}
	atomic.StoreInt64(&r.skipped, skipped)

	return messages, nil
}

func (r *Reader) ReadSince(ctx context.Context, cursor reader.Cursor) ([]model.Message, reader.Cursor, error) {
	all, err := r.ReadAll(ctx)
	if err != nil {
		return nil, cursor, err
	}

	since, _ := time.Parse(time.RFC3339, string(cursor))
	var out []model.Message
	latest := since
	for _, m := range all {
		if m.Timestamp.After(since) {
			out = append(out, m)
			if m.Timestamp.After(latest) {
				latest = m.Timestamp
			}
		}
	}

	newCursor := cursor
	if !latest.IsZero() {
		newCursor = reader.Cursor(latest.UTC().Format(time.RFC3339))
	}
	return out, newCursor, nil
}

// readTranscript parses one JSONL session file. Each line is
// {type, message:{role, content[]}, timestamp, sessionId, ...}; type is
// accepted as any of message/user/assistant. It also returns the count of
// lines that failed to parse as JSON at all.
func readTranscript(path string) ([]model.Message, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	var messages []model.Message
	var skipped int

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		if !gjson.ValidBytes(line) {
			skipped++
			continue
		}
		v := gjson.ParseBytes(line)

		lineType := v.Get("type").String()
		if lineType != "message" && lineType != "user" && lineType != "assistant" {
			continue
		}

		role := v.Get("message.role").String()
		if role == "" {
			role = lineType
		}

		content := extractContent(v.Get("message.content"))
		if content == "" {
			continue
		}

		sessionID := v.Get("sessionId").String()
		ts := parseTimestamp(v.Get("timestamp").String())

		m := model.Message{
			ID:             sessionID + ":" + ts.Format(time.RFC3339Nano),
			ConversationID: sessionID,
			Timestamp:      ts,
			Role:           normalizeRole(role),
			Content:        content,
		}
		m.Finalize(platform)
		messages = append(messages, m)
	}

	return messages, skipped, scanner.Err()
}

// extractContent handles content as either a plain string or an array of
// typed blocks, concatenating text blocks.
func extractContent(content gjson.Result) string {
	if content.Type.String() == "String" {
		return content.String()
	}

	var text string
	if content.IsArray() {
		content.ForEach(func(_, block gjson.Result) bool {
			if t := block.Get("text").String(); t != "" {
				if text != "" {
					text += "\n"
				}
				text += t
			}
			return true
		})
	}
	return text
}

func normalizeRole(raw string) model.Role {
	switch raw {
	case "user":
		return model.RoleUser
	case "assistant":
		return model.RoleAssistant
	default:
		return model.RoleSystem
	}
}

func parseTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts
	}
	return time.Time{}
}
