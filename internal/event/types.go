package event

import (
	"encoding/json"
	"sync"
	"time"
)

// decoders maps an EventType to a function that decodes a JSON payload back
// into its registered concrete Go type. Publish's broker round-trip would
// otherwise degrade Data to a generic map[string]any; registering a decoder
// per type here keeps subscribers' e.Data.(ConcreteType) assertions working
// whether the event arrived via Publish (broker) or PublishSync (direct).
var decoders sync.Map // EventType -> func([]byte) (any, error)

func registerDecoder(t EventType, decode func([]byte) (any, error)) {
	decoders.Store(t, decode)
}

// decodePayload decodes raw using t's registered decoder, falling back to a
// generic JSON decode (producing a map, slice, or scalar) for an
// unregistered type or a decode error.
func decodePayload(t EventType, raw []byte) any {
	if v, ok := decoders.Load(t); ok {
		if fn, ok := v.(func([]byte) (any, error)); ok {
			if decoded, err := fn(raw); err == nil {
				return decoded
			}
		}
	}
	var generic any
	_ = json.Unmarshal(raw, &generic)
	return generic
}

func decodeAs[T any](raw []byte) (any, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func init() {
	registerDecoder(TickStarted, decodeAs[TickStartedData])
	registerDecoder(TickCompleted, decodeAs[TickCompletedData])
	registerDecoder(TickFailed, decodeAs[TickFailedData])
	registerDecoder(PlatformDirty, decodeAs[PlatformDirtyData])
	registerDecoder(CacheChunkWritten, decodeAs[CacheChunkWrittenData])
	registerDecoder(ConversationConsolidated, decodeAs[ConversationConsolidatedData])
	registerDecoder(SessionFileWritten, decodeAs[SessionFileWrittenData])
	registerDecoder(MemoryDroppedOff, decodeAs[MemoryDroppedOffData])
	registerDecoder(PermissionGranted, decodeAs[PermissionGrantedData])
	registerDecoder(PermissionRevoked, decodeAs[PermissionRevokedData])
}

// TickStartedData is the data for tick.started events.
type TickStartedData struct {
	TickID    string    `json:"tickId"`
	StartedAt time.Time `json:"startedAt"`
}

// TickCompletedData is the data for tick.completed events.
type TickCompletedData struct {
	TickID           string        `json:"tickId"`
	Duration         time.Duration `json:"duration"`
	ChunksWritten    int           `json:"chunksWritten"`
	ConversationsOut int           `json:"conversationsOut"`
	FilesDroppedOff  int           `json:"filesDroppedOff"`
	SkippedMalformed int           `json:"skippedMalformed"`
}

// TickFailedData is the data for tick.failed events. It reports the error of
// the stage that ended the tick; the stages after it do not run in that tick.
type TickFailedData struct {
	TickID string `json:"tickId"`
	Stage  string `json:"stage"`
	Error  string `json:"error"`
}

// PlatformDirtyData is the data for platform.dirty events, raised by the
// fsnotify watch on a platform's source store between ticks.
type PlatformDirtyData struct {
	Platform string `json:"platform"`
	Path     string `json:"path"`
}

// CacheChunkWrittenData is the data for cache.chunk_written events.
type CacheChunkWrittenData struct {
	Platform       string `json:"platform"`
	ConversationID string `json:"conversationId"`
	ChunkHash      string `json:"chunkHash"`
}

// ConversationConsolidatedData is the data for conversation.consolidated events.
type ConversationConsolidatedData struct {
	ConversationID string   `json:"conversationId"`
	Platforms      []string `json:"platforms"`
	RecordPath     string   `json:"recordPath"`
	SourceChunks   int      `json:"sourceChunks"`
}

// SessionFileWrittenData is the data for session_file.written events.
type SessionFileWrittenData struct {
	Date             string `json:"date"`
	Path             string `json:"path"`
	ConversationRefs int    `json:"conversationRefs"`
}

// MemoryDroppedOffData is the data for memory.dropped_off events, one per
// record moved to a coarser retention tier.
type MemoryDroppedOffData struct {
	RecordPath  string `json:"recordPath"`
	FromTier    string `json:"fromTier"`
	ToTier      string `json:"toTier"`
	Compression string `json:"compression"`
}

// PermissionGrantedData is the data for permission.granted events.
type PermissionGrantedData struct {
	Platform string `json:"platform"`
	Actor    string `json:"actor"`
}

// PermissionRevokedData is the data for permission.revoked events.
type PermissionRevokedData struct {
	Platform string `json:"platform"`
	Actor    string `json:"actor"`
}
