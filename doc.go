// Package clientcore is the resilient client core of the internal factory
// dashboard: a local session authority plus a request-interception cache
// layer with deferred-write durability.
//
// The package owns the session/token lifecycle (issue, validate, expire,
// warn), the bounded activity log, and the notification dispatcher. Request
// interception, the generation cache, and activity synchronization live in
// the intercept, cache, and syncq sub-packages and share the same Redis
// persistence.
//
// # Architecture boundaries
//
// clientcore is the public surface. It exposes [Manager], [Builder],
// [Config], the notification sinks, and value types. Raw persistence lives in
// the store package; token encoding in the token package. Neither imports
// this package back.
//
// # Trust model
//
// The session token is client-held state. The default codec is reversible
// base64, a liveness and expiry marker rather than a credential proof; the
// core guarantees consistent, time-bounded session semantics, not security
// against a hostile client. Deployments needing tamper evidence opt into the
// signed codec via [TokenConfig].
//
// # Concurrency
//
// Manager methods are safe to call from multiple goroutines after
// [Builder.Build]. The periodic validity and near-expiry checks started by
// [Manager.Start] may interleave arbitrarily with user-triggered login and
// logout; Validate is idempotent, so revalidating an already-expired session
// is a no-op.
package clientcore
