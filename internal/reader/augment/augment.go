// Package augment reads Augment's VSCode workspaceStorage LevelDB store.
package augment

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
	"github.com/tidwall/gjson"

	"github.com/aicfd/aicfd/internal/model"
	"github.com/aicfd/aicfd/internal/reader"
)

const platform = "augment"

const exchangePrefix = "exchange:"

// Reader reads Augment's LevelDB key-value store under
// <workspaceStorage>/<ws>/Augment.vscode-augment/augment-kv-store.
type Reader struct {
	storePath string
	skipped   int64 // atomic: malformed exchange values seen in the most recent ReadAll
}

// New returns a reader for the LevelDB store at storePath.
func New(storePath string) *Reader {
	return &Reader{storePath: storePath}
}

func (r *Reader) Platform() string { return platform }

// SkippedMalformed returns the number of exchange values that failed to
// decode during the most recent ReadAll.
func (r *Reader) SkippedMalformed() int { return int(atomic.LoadInt64(&r.skipped)) }

func (r *Reader) IsAvailable(ctx context.Context) bool {
	_, err := os.Stat(r.storePath)
	return err == nil
}

func (r *Reader) ReadAll(ctx context.Context) ([]model.Message, error) {
	db, cleanup, err := r.open()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	var messages []model.Message
	var skipped int64

	iter := db.NewIterator(util.BytesPrefix([]byte(exchangePrefix)), nil)
	defer iter.Release()

	for iter.Next() {
		msgs, err := decodeExchange(iter.Value())
		if err != nil {
			skipped++
			continue
		}
		messages = append(messages, msgs...)
	}
	atomic.StoreInt64(&r.skipped, skipped)

	return messages, iter.Error()
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

// open tries the live store first; if it is exclusively locked by the VSCode
// host process it copies the directory to a temp location and opens that
// instead. cleanup removes any temp copy made.
var readOnlyOpts = &opt.Options{ReadOnly: true}

func (r *Reader) open() (*leveldb.DB, func(), error) {
	db, err := leveldb.OpenFile(r.storePath, readOnlyOpts)
	if err == nil {
		return db, func() { db.Close() }, nil
	}
	if !errors.IsCorrupted(err) {
		// Likely a LOCK error: another process holds the store exclusively.
		tmpPath, copyErr := reader.CopyToTemp(r.storePath, "augment-leveldb-")
		if copyErr != nil {
			return nil, nil, fmt.Errorf("augment: copy store: %w", copyErr)
		}
		db2, err2 := leveldb.OpenFile(tmpPath, readOnlyOpts)
		if err2 != nil {
			os.RemoveAll(tmpPath)
			return nil, nil, fmt.Errorf("augment: open copied store: %w", err2)
		}
		return db2, func() { db2.Close(); os.RemoveAll(tmpPath) }, nil
	}
	return nil, nil, fmt.Errorf("augment: open store: %w", err)
}

// decodeExchange parses one exchange: value into its user/assistant Messages.
func decodeExchange(value []byte) ([]model.Message, error) {
	v := gjson.ParseBytes(value)
	if !v.Exists() {
		return nil, fmt.Errorf("augment: empty exchange value")
	}

	conversationID := v.Get("conversationId").String()
	ts := parseTimestamp(v.Get("timestamp").String())
	requestText := strings.TrimSpace(v.Get("request_message").String())
	responseText := strings.TrimSpace(v.Get("response_text").String())

	var out []model.Message
	if requestText != "" {
		m := model.Message{
			ID:             conversationID + ":user:" + ts.Format(time.RFC3339Nano),
			ConversationID: conversationID,
			Timestamp:      ts,
			Role:           model.RoleUser,
			Content:        requestText,
		}
		m.Finalize(platform)
		out = append(out, m)
	}
	if responseText != "" {
		m := model.Message{
			ID:             conversationID + ":assistant:" + ts.Format(time.RFC3339Nano),
			ConversationID: conversationID,
			Timestamp:      ts,
			Role:           model.RoleAssistant,
			Content:        responseText,
		}
		m.Finalize(platform)
		out = append(out, m)
	}

	return out, nil
}

func parseTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts
	}
	if ms, err := time.Parse("2006-01-02T15:04:05.000Z", raw); err == nil {
		return ms
	}
	return time.Time{}
}
