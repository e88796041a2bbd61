// Package permission implements the consent and audit gate each platform's
// cache writer checks before it lets the reader touch the source store.
package permission

import "time"

// Status is the lifecycle state of a platform's consent record.
type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
	StatusPending Status = "pending"
)

// ConsentType distinguishes how consent was obtained.
type ConsentType string

const (
	ConsentExplicit ConsentType = "explicit" // user ran `aicfd permissions grant`
	ConsentImplied  ConsentType = "implied"  // platform enabled by default config
)

// Entry is one platform's current consent record.
type Entry struct {
	Platform    string      `json:"platform"`
	Status      Status      `json:"status"`
	ConsentType ConsentType `json:"consentType"`
	GrantedAt   time.Time   `json:"grantedAt,omitempty"`
	RevokedAt   time.Time   `json:"revokedAt,omitempty"`
}

// IsActive reports whether a reader is allowed to emit Messages for this entry.
func (e Entry) IsActive() bool {
	return e.Status == StatusActive
}

// AuditEvent is one append-only row in the audit log. Event is a short verb
// like "granted", "revoked", or "access_denied". ID is a ULID, so rows sort
// lexicographically in the order they were appended even when two events
// share the same Timestamp.
type AuditEvent struct {
	ID        string    `json:"id"`
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Platform  string    `json:"platform,omitempty"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
}

const (
	EventGranted      = "granted"
	EventRevoked      = "revoked"
	EventAccessDenied = "access_denied"
)

// ActorSystem identifies audit events raised by the pipeline itself rather
// than a user-initiated CLI command.
const ActorSystem = "system"
