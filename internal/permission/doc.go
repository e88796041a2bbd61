/*
Package permission implements the consent and audit gate that each
platform's cache writer checks before its reader touches the source store.

A Store persists one Entry per platform (status, consent type, grant/revoke
timestamps) plus an append-only AuditEvent log, all to a single AICF file
(.aicf/.permissions.aicf) with @PERMISSIONS, @PLATFORM and @AUDIT-tagged
records. All mutations rewrite the file atomically via the aicf package.

cache.Writer calls Store.Get(platform) before running the platform's reader. A
non-active entry must produce an empty read and an access_denied audit
event rather than touching the platform's files:

	entry := store.Get("warp")
	if !entry.IsActive() {
		store.LogEvent(permission.AuditEvent{
			Event: permission.EventAccessDenied, Platform: "warp",
			Actor: permission.ActorSystem, Action: "read",
		})
		return nil, nil
	}

Grant and Revoke are the only ways an entry's status changes; both append
a matching audit row in the same atomic write.
*/
package permission
