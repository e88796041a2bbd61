// Package model holds the entities shared across readers, the cache,
// consolidation, session files and drop-off: Message, ConversationRecord,
// CacheChunk and SessionFile.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Role is the speaker of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Metadata carries provenance for a Message.
type Metadata struct {
	Source         string `json:"source"`
	ExtractedFrom  string `json:"extractedFrom,omitempty"`
	ContentHash    string `json:"contentHash"`
}

// Message is the canonical conversation atom every reader emits.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Timestamp      time.Time `json:"timestamp"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	Metadata       Metadata  `json:"metadata"`
}

// ContentHash returns the SHA-256 hex digest of the lowercase-trimmed
// content, the value every Message.Metadata.ContentHash must hold.
func ContentHash(content string) string {
	normalized := strings.ToLower(strings.TrimSpace(content))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Finalize stamps Metadata.Source and computes the content hash. Readers
// call this on every Message before returning it.
func (m *Message) Finalize(source string) {
	m.Metadata.Source = source
	m.Metadata.ContentHash = ContentHash(m.Content)
}
