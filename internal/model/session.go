package model

import "time"

// ConversationRef is one line item in a SessionFile: a pointer to a
// ConversationRecord that started on the session's date.
type ConversationRef struct {
	ConversationID string    `json:"conversationId"`
	RecordPath     string    `json:"recordPath"`
	TimestampStart time.Time `json:"timestampStart"`
	Platforms      []string  `json:"platforms"`
	MessageCount   int       `json:"messageCount"`
	Summary        string    `json:"summary,omitempty"`
}

// SessionFile groups every conversation that started on one UTC calendar
// date. It is rewritten in full on every run by SessionConsolidationAgent,
// so it is always consistent with the current contents of .aicf/recent/.
type SessionFile struct {
	Date      string            `json:"date"` // YYYY-MM-DD
	Conversations []ConversationRef `json:"conversations"`
}

// FileName returns "<YYYY-MM-DD>-session.aicf".
func (s SessionFile) FileName() string {
	return s.Date + "-session.aicf"
}
