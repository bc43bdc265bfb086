// Package store provides Redis-backed persistence for the client core: the
// current session token, the user profile, the bounded activity log, the sync
// delivery cursor, and the dashboard notification settings.
//
// # Key schema
//
// All keys live under a configurable prefix:
//
//	<prefix>:session.token          opaque token string
//	<prefix>:session.user           JSON-serialized profile
//	<prefix>:activity.log           list of JSON records, capped at the configured capacity
//	<prefix>:sync.cursor            count of activity records already delivered
//	<prefix>:notification.settings  opaque JSON consumed by the dashboard
//
// # Architecture boundaries
//
// This package owns raw persistence only. It does NOT decode tokens, evaluate
// session TTLs, or decide which records are security-relevant — those
// responsibilities belong to the Manager and the activity log.
//
// # What this package must NOT do
//
//   - Import clientcore, token, or cache (no upward imports).
//   - Interpret the profile payload beyond (de)serializing bytes.
package store
