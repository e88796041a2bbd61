// Package claudedesktop reads the Claude Desktop SQLite conversation store.
package claudedesktop

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sort"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/aicfd/aicfd/internal/model"
	"github.com/aicfd/aicfd/internal/reader"
)

const platform = "claudedesktop"

// Reader reads the Claude Desktop SQLite database at dbPath.
type Reader struct {
	dbPath  string
	skipped int64 // atomic: rows that failed to scan in the most recent ReadAll
}

// New returns a reader for the SQLite database at dbPath.
func New(dbPath string) *Reader {
	return &Reader{dbPath: dbPath}
}

func (r *Reader) Platform() string { return platform }

// SkippedMalformed returns the number of rows that failed to scan during
// the most recent ReadAll.
func (r *Reader) SkippedMalformed() int { return int(atomic.LoadInt64(&r.skipped)) }

func (r *Reader) IsAvailable(ctx context.Context) bool {
	_, err := os.Stat(r.dbPath)
	return err == nil
}

func (r *Reader) open() (*sql.DB, func(), error) {
	// The live DB is safely copied to a tmp location before opening, since
	// Claude Desktop may hold it open exclusively while the app is running.
	tmpPath, copyErr := reader.CopyToTemp(r.dbPath, "claudedesktop-sqlite-")
	if copyErr != nil {
		return nil, nil, fmt.Errorf("claudedesktop: copy db: %w", copyErr)
	}
	db2, err2 := sql.Open("sqlite3", "file:"+tmpPath+"?mode=ro")
	if err2 != nil {
		os.RemoveAll(tmpPath)
		return nil, nil, fmt.Errorf("claudedesktop: open copied db: %w", err2)
	}
	cleanup := func() {
		db2.Close()
		os.RemoveAll(tmpPath)
	}
	return db2, cleanup, nil
}

const messagesQuery = `
SELECT conversation_id, role, content, created_at
FROM messages
ORDER BY created_at ASC
`

func (r *Reader) ReadAll(ctx context.Context) ([]model.Message, error) {
	db, cleanup, err := r.open()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	rows, err := db.QueryContext(ctx, messagesQuery)
	if err != nil {
		return nil, fmt.Errorf("claudedesktop: query: %w", err)
	}
	defer rows.Close()

	var messages []model.Message
	var skipped int64
	for rows.Next() {
		var conversationID, role, content, createdAt string
		if err := rows.Scan(&conversationID, &role, &content, &createdAt); err != nil {
			skipped++
			continue
		}
		if content == "" {
			continue
		}

		ts := parseTimestamp(createdAt)
		m := model.Message{
			ID:             conversationID + ":" + createdAt,
			ConversationID: conversationID,
			Timestamp:      ts,
			Role:           normalizeRole(role),
			Content:        content,
		}
		m.Finalize(platform)
		messages = append(messages, m)
	}
	atomic.StoreInt64(&r.skipped, skipped)

	// created_at mixes RFC 3339 and "YYYY-MM-DD HH:MM:SS" text, so the SQL
	// ORDER BY is not chronological on its own; order by the parsed time.
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})

	return messages, rows.Err()
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

func normalizeRole(raw string) model.Role {
	switch raw {
	case "user":
		return model.RoleUser
	case "assistant", "model":
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
	if ts, err := time.Parse("2006-01-02 15:04:05", raw); err == nil {
		return ts
	}
	return time.Time{}
}
