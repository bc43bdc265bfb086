// Package cache provides the generation-named response cache backing the
// request interceptor: a fixed manifest of static assets installed up front,
// plus opportunistically added responses.
//
// # Generations
//
// All entries of one deployment live under a single generation name (for
// example "factory-internal-v1.0"). Bumping the name is the only supported
// migration mechanism: Activate deletes every generation whose name differs
// from the current one, so old generations never serve stale content after an
// upgrade. There is no partial-entry migration.
//
// # Architecture boundaries
//
// This package owns cached (request, response) pairs and nothing else. It
// does not decide routing policy; cache-first, network-first, and the
// fallback chain belong to the intercept package.
package cache
