package permission

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/aicfd/aicfd/internal/aicf"
)

var auditIDEntropy = ulid.Monotonic(rand.Reader, 0)

func newAuditID(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), auditIDEntropy).String()
}

// Store persists per-platform consent entries and an append-only audit log
// to a single AICF file, .aicf/.permissions.aicf. Get is the gate each
// platform's cache writer checks before running its reader.
type Store struct {
	mu    sync.RWMutex
	path  string
	codec *aicf.Codec

	entries map[string]Entry
	audit   []AuditEvent
}

// NewStore loads path if it exists, or starts with an empty store.
func NewStore(path string) (*Store, error) {
	s := &Store{
		path:    path,
		codec:   aicf.New(),
		entries: make(map[string]Entry),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	result, err := s.codec.ReadAll(s.path)
	if err != nil {
		// A missing permissions file is not an error: every platform starts pending.
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}

	for _, line := range result.Lines {
		switch line.Tag {
		case "PLATFORM":
			entry, err := decodeEntry(line.Fields)
			if err != nil {
				continue
			}
			s.entries[entry.Platform] = entry
		case "AUDIT":
			event, err := decodeAuditEvent(line.Fields)
			if err != nil {
				continue
			}
			s.audit = append(s.audit, event)
		}
	}
	return nil
}

func decodeEntry(fields []string) (Entry, error) {
	if len(fields) < 3 {
		return Entry{}, fmt.Errorf("permission: malformed PLATFORM record")
	}
	entry := Entry{
		Platform:    fields[0],
		Status:      Status(fields[1]),
		ConsentType: ConsentType(fields[2]),
	}
	if len(fields) > 3 && fields[3] != "" {
		if ts, err := time.Parse(time.RFC3339, fields[3]); err == nil {
			entry.GrantedAt = ts
		}
	}
	if len(fields) > 4 && fields[4] != "" {
		if ts, err := time.Parse(time.RFC3339, fields[4]); err == nil {
			entry.RevokedAt = ts
		}
	}
	return entry, nil
}

func encodeEntry(e Entry) []string {
	granted, revoked := "", ""
	if !e.GrantedAt.IsZero() {
		granted = e.GrantedAt.UTC().Format(time.RFC3339)
	}
	if !e.RevokedAt.IsZero() {
		revoked = e.RevokedAt.UTC().Format(time.RFC3339)
	}
	return []string{"PLATFORM", e.Platform, string(e.Status), string(e.ConsentType), granted, revoked}
}

func decodeAuditEvent(fields []string) (AuditEvent, error) {
	if len(fields) < 5 {
		return AuditEvent{}, fmt.Errorf("permission: malformed AUDIT record")
	}
	ts, err := time.Parse(time.RFC3339, fields[1])
	if err != nil {
		return AuditEvent{}, err
	}
	return AuditEvent{
		ID:        fields[0],
		Timestamp: ts,
		Event:     fields[2],
		Platform:  fields[3],
		Actor:     fields[4],
		Action:    strings.Join(fields[5:], " "),
	}, nil
}

func encodeAuditEvent(e AuditEvent) []string {
	return []string{"AUDIT", e.ID, e.Timestamp.UTC().Format(time.RFC3339), e.Event, e.Platform, e.Actor, e.Action}
}

// List returns every known platform's current entry.
func (s *Store) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out
}

// Get returns platform's current entry, defaulting to StatusPending if the
// platform has never been granted or revoked.
func (s *Store) Get(platform string) Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.entries[platform]; ok {
		return e
	}
	return Entry{Platform: platform, Status: StatusPending}
}

// Grant marks platform active and appends a "granted" audit event.
func (s *Store) Grant(platform string, consentType ConsentType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	entry := Entry{
		Platform:    platform,
		Status:      StatusActive,
		ConsentType: consentType,
		GrantedAt:   now,
	}
	if existing, ok := s.entries[platform]; ok {
		entry.RevokedAt = existing.RevokedAt
	}
	s.entries[platform] = entry

	event := AuditEvent{ID: newAuditID(now), Event: EventGranted, Timestamp: now, Platform: platform, Actor: ActorSystem, Action: "grant"}
	s.audit = append(s.audit, event)

	return s.persist()
}

// Revoke marks platform revoked and appends a "revoked" audit event.
func (s *Store) Revoke(platform string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	entry, ok := s.entries[platform]
	if !ok {
		entry = Entry{Platform: platform}
	}
	entry.Status = StatusRevoked
	entry.RevokedAt = now
	s.entries[platform] = entry

	event := AuditEvent{ID: newAuditID(now), Event: EventRevoked, Timestamp: now, Platform: platform, Actor: ActorSystem, Action: "revoke"}
	s.audit = append(s.audit, event)

	return s.persist()
}

// LogEvent appends an audit event without changing any entry's status. Used
// by readers to record access_denied when a platform's gate is not active.
func (s *Store) LogEvent(event AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.ID == "" {
		event.ID = newAuditID(event.Timestamp)
	}
	s.audit = append(s.audit, event)
	return s.persist()
}

// AuditLog returns every recorded audit event in append order.
func (s *Store) AuditLog() []AuditEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]AuditEvent, len(s.audit))
	copy(out, s.audit)
	return out
}

// persist rewrites the whole permissions file. Callers must hold s.mu.
func (s *Store) persist() error {
	records := make([][]string, 0, len(s.entries)+len(s.audit)+1)
	records = append(records, []string{"PERMISSIONS", strconv.Itoa(len(s.entries))})
	for _, e := range s.entries {
		records = append(records, encodeEntry(e))
	}
	for _, e := range s.audit {
		records = append(records, encodeAuditEvent(e))
	}
	return s.codec.WriteRecord(s.path, records)
}
