/*
Package event provides a type-safe pub/sub event bus for the watcher
pipeline. Publish routes through watermill's gochannel broker: Data is
JSON-encoded onto the message and decoded back into its registered concrete
type on the way out, so subscribers still receive typed data. PublishSync
bypasses the broker for callers that need synchronous, in-order delivery
before the call returns.

# Event Types

Tick lifecycle:
  - tick.started: orchestrator acquired the pipeline lock and began a run
  - tick.completed: a full tick finished, with per-stage counts
  - tick.failed: one stage of a tick errored; the stages after it do not run in that tick

Pipeline events:
  - platform.dirty: fsnotify observed a change in a platform's source store
  - cache.chunk_written: a CacheWriter persisted a content-addressed chunk
  - conversation.consolidated: CacheConsolidationAgent wrote an AICF record
  - session_file.written: SessionConsolidationAgent rewrote a daily session file
  - memory.dropped_off: a record moved to a coarser retention tier

Consent events:
  - permission.granted / permission.revoked: PermissionStore state changed

# Usage

Publishing:

	event.Publish(event.Event{
		Type: event.TickCompleted,
		Data: event.TickCompletedData{TickID: id, ChunksWritten: n},
	})

Subscribing:

	unsubscribe := event.Subscribe(event.TickFailed, func(e event.Event) {
		data := e.Data.(event.TickFailedData)
		logging.Warn().Str("stage", data.Stage).Msg(data.Error)
	})
	defer unsubscribe()

# Subscriber Safety

PublishSync calls subscribers synchronously in the publisher's goroutine.
Subscribers must return quickly and must never call Publish/PublishSync
re-entrantly or acquire a lock the publisher may be holding.

# Thread Safety

The bus is safe for concurrent publish/subscribe from multiple goroutines.
*/
package event
