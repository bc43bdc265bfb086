// Package intercept implements the per-request routing policy as an
// http.RoundTripper: API traffic always goes to the network, static assets are
// served cache-first with background revalidation, and offline failures
// degrade through an explicit fallback chain instead of propagating raw
// transport errors.
//
// # Routing policy
//
// Only GET requests are intercepted; everything else passes through the inner
// transport untouched. API-prefixed paths are never cached: a network failure
// there synthesizes a structured 503 JSON response the caller can detect. For
// all other requests a cache hit is returned immediately while a detached,
// deadline-bounded revalidation refreshes the entry for future reads
// (stale-while-revalidate). The response is therefore never delayed by a
// revalidation fetch, at the cost of serving up to one generation of
// staleness.
//
// Cache identity is the request path and query; the host is deliberately not
// part of the key. The interceptor assumes a single origin, the dashboard
// host the install manifest was fetched from, so intercepted requests match
// the path-keyed entries the manifest installed. Routing traffic for multiple
// origins through one Interceptor would collide entries that share a path.
//
// # Fallback chain
//
// When both network and cache fail to satisfy a request: text/html consumers
// get the offline page from cache, image requests get the default icon, and
// everything else gets a plain-text 503.
package intercept
