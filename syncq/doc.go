// Package syncq delivers queued activity records to the sync endpoint once
// connectivity returns. The whole undelivered suffix of the log is sent as one
// batch, never split; a persisted delivery cursor marks how many records have
// already been delivered so a retried flush does not duplicate them.
//
// Delivery failures apply no local backoff: the platform's retry mechanism is
// expected to re-invoke Flush, which re-reads the log and re-sends the same
// pending suffix.
package syncq
