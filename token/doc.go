// Package token provides the session token codecs: a reversible base64 codec
// matching the legacy wire format, and an optional HMAC-signed codec for
// deployments that need tamper evidence.
//
// # Wire format
//
// The default codec produces base64(subject + ":" + issuedAtEpochMillis). It is
// a liveness and expiry marker, NOT a credential proof: any holder of the token
// can decode the subject and issue time. Deployments that require an integrity
// property must use [SignedCodec] instead of relying on the base64 form.
//
// # Architecture boundaries
//
// This package owns token encoding only. It does not read or write persistence,
// evaluate session TTLs, or decide expiry policy — those responsibilities belong
// to the Manager.
package token
