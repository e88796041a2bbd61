// Package warp reads Warp's SQLite conversation store, joining
// agent_conversations with ai_queries to reconstruct each exchange.
package warp

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/tidwall/gjson"

	"github.com/aicfd/aicfd/internal/model"
	"github.com/aicfd/aicfd/internal/reader"
)

const platform = "warp"

// Reader reads the Warp SQLite database at dbPath.
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
	dsn := "file:" + r.dbPath + "?mode=ro&immutable=0"
	db, err := sql.Open("sqlite3", dsn)
	if err == nil {
		if pingErr := db.Ping(); pingErr == nil {
			return db, func() { db.Close() }, nil
		}
		db.Close()
	}

	tmpPath, copyErr := reader.CopyToTemp(r.dbPath, "warp-sqlite-")
	if copyErr != nil {
		return nil, nil, fmt.Errorf("warp: copy db: %w", copyErr)
	}
	db2, err2 := sql.Open("sqlite3", "file:"+tmpPath+"?mode=ro")
	if err2 != nil {
		os.RemoveAll(tmpPath)
		return nil, nil, fmt.Errorf("warp: open copied db: %w", err2)
	}
	cleanup := func() {
		db2.Close()
		os.RemoveAll(tmpPath)
	}
	return db2, cleanup, nil
}

const exchangeQuery = `
SELECT c.conversation_id, c.created_at, q.input, q.output
FROM agent_conversations c
JOIN ai_queries q ON q.conversation_id = c.conversation_id
ORDER BY c.created_at ASC
`

func (r *Reader) ReadAll(ctx context.Context) ([]model.Message, error) {
	db, cleanup, err := r.open()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	rows, err := db.QueryContext(ctx, exchangeQuery)
	if err != nil {
		return nil, fmt.Errorf("warp: query: %w", err)
	}
	defer rows.Close()

	var messages []model.Message
	var skipped int64
	for rows.Next() {
		var conversationID, createdAt, input, output string
		if err := rows.Scan(&conversationID, &createdAt, &input, &output); err != nil {
			skipped++
			continue
		}
		messages = append(messages, decodeExchange(conversationID, createdAt, input, output)...)
	}
	atomic.StoreInt64(&r.skipped, skipped)

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

// decodeExchange parses the `input` JSON array for Query.text (user) and
// the `output` JSON for ActionResult content (rendered as a synthetic
// assistant Message, including any commands or file lists it carries).
func decodeExchange(conversationID, createdAt, input, output string) []model.Message {
	ts := parseTimestamp(createdAt)
	var out []model.Message

	gjson.Parse(input).ForEach(func(_, item gjson.Result) bool {
		text := item.Get("Query.text").String()
		if text == "" {
			return true
		}
		m := model.Message{
			ID:             conversationID + ":user:" + ts.Format(time.RFC3339Nano),
			ConversationID: conversationID,
			Timestamp:      ts,
			Role:           model.RoleUser,
			Content:        text,
		}
		m.Finalize(platform)
		out = append(out, m)
		return true
	})

	result := gjson.Parse(output)
	if content := result.Get("ActionResult.content").String(); content != "" {
		m := model.Message{
			ID:             conversationID + ":assistant:" + ts.Format(time.RFC3339Nano),
			ConversationID: conversationID,
			Timestamp:      ts,
			Role:           model.RoleAssistant,
			Content:        renderActionResult(result),
		}
		m.Finalize(platform)
		out = append(out, m)
	}

	return out
}

// renderActionResult flattens an ActionResult's content plus any commands or
// file lists it carries into a single synthetic assistant message.
func renderActionResult(result gjson.Result) string {
	text := result.Get("ActionResult.content").String()
	if cmds := result.Get("ActionResult.commands"); cmds.IsArray() {
		cmds.ForEach(func(_, cmd gjson.Result) bool {
			text += "\n$ " + cmd.String()
			return true
		})
	}
	if files := result.Get("ActionResult.files"); files.IsArray() {
		files.ForEach(func(_, f gjson.Result) bool {
			text += "\nfile: " + f.String()
			return true
		})
	}
	return text
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
