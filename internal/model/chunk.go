package model

import (
	"sort"
	"time"
)

// CacheChunk is a content-addressed snapshot of raw messages a CacheWriter
// persisted for one platform. Its filename embeds ContentHash so re-emitting
// the same messages is a no-op.
type CacheChunk struct {
	Platform       string    `json:"platform"`
	ConversationID string    `json:"conversationId"`
	ProducedAt     time.Time `json:"producedAt"`
	Messages       []Message `json:"messages"`
}

// ContentHash returns the content-address this chunk is filed under: the
// SHA-256 over the concatenation of member contentHash values in ascending
// order, so identical message sets always hash identically regardless of
// capture order or capture time.
func (c CacheChunk) ContentHash() string {
	hashes := make([]string, len(c.Messages))
	for i, m := range c.Messages {
		hashes[i] = m.Metadata.ContentHash
	}
	sort.Strings(hashes)

	var buf []byte
	for _, h := range hashes {
		buf = append(buf, []byte(h)...)
		buf = append(buf, '\n')
	}
	return ContentHash(string(buf))
}

// FileName returns "chunk-<contentHash>.json".
func (c CacheChunk) FileName() string {
	return "chunk-" + c.ContentHash() + ".json"
}
