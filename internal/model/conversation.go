package model

import "time"

// CompressionLevel is the fidelity a ConversationRecord is stored at, driven
// by its retention tier.
type CompressionLevel string

const (
	CompressionFull       CompressionLevel = "FULL"
	CompressionSummary    CompressionLevel = "SUMMARY"
	CompressionKeyPoints  CompressionLevel = "KEY_POINTS"
	CompressionSingleLine CompressionLevel = "SINGLE_LINE"
)

// UserIntent is one extracted user-intent line, with the extractor's
// confidence in the match.
type UserIntent struct {
	Timestamp  time.Time `json:"timestamp"`
	Text       string    `json:"text"`
	Confidence float64   `json:"confidence"`
}

// AIAction is one extracted assistant action line.
type AIAction struct {
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
}

// TechnicalWorkItem is one extracted technical-work line, grouped by category.
type TechnicalWorkItem struct {
	Timestamp time.Time `json:"timestamp"`
	Category  string    `json:"category"`
	Text      string    `json:"text"`
}

// Decision is one extracted decision line.
type Decision struct {
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
}

// FlowStep is one message's position in the conversation's turn-taking flow.
type FlowStep struct {
	N      int    `json:"n"`
	Role   Role   `json:"role"`
	Marker string `json:"marker"`
}

// ConversationRecord is the consolidated, per-conversation analytical record
// written by CacheConsolidationAgent.
type ConversationRecord struct {
	ConversationID string              `json:"conversationId"`
	TimestampStart time.Time           `json:"timestampStart"`
	TimestampEnd   time.Time           `json:"timestampEnd"`
	Platforms      []string            `json:"platforms"`
	MessageCount   int                 `json:"messageCount"`
	UserIntents    []UserIntent        `json:"userIntents"`
	AIActions      []AIAction          `json:"aiActions"`
	TechnicalWork  []TechnicalWorkItem `json:"technicalWork"`
	Decisions      []Decision          `json:"decisions"`
	Flow           []FlowStep          `json:"flow"`
	WorkingState   string              `json:"workingState"`
	Compression    CompressionLevel    `json:"compression"`
}

// FileBasename returns "<YYYY-MM-DD>_<conversationId>", the basename shared
// by the .aicf record and its .ai/ Markdown companion.
func (r ConversationRecord) FileBasename() string {
	return r.TimestampStart.UTC().Format("2006-01-02") + "_" + r.ConversationID
}

// HasPlatform reports whether platform already appears in Platforms.
func (r ConversationRecord) HasPlatform(platform string) bool {
	for _, p := range r.Platforms {
		if p == platform {
			return true
		}
	}
	return false
}
