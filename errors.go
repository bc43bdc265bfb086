package clientcore

import (
	"errors"

	"github.com/mosaber/clientcore/store"
	"github.com/mosaber/clientcore/syncq"
	"github.com/mosaber/clientcore/token"
)

var (
	// ErrMalformedToken is returned when a persisted token fails to decode;
	// the Manager recovers by forcing the Expired transition.
	ErrMalformedToken = token.ErrMalformed
	// ErrInvalidCredentials is returned when a login attempt is rejected. It
	// is the only error in this core surfaced synchronously to the UI caller.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrStorageUnavailable is returned when the persistence layer cannot be
	// reached; callers treat the session as Anonymous.
	ErrStorageUnavailable = store.ErrUnavailable
	// ErrNetworkUnavailable classifies a delivery failure whose cause was the
	// transport rather than the endpoint: the request never produced a
	// response.
	ErrNetworkUnavailable = syncq.ErrNetworkUnavailable
	// ErrSyncDeliveryFailed is returned when an activity batch POST fails. No
	// local backoff is applied; the platform retry re-invokes the flush.
	ErrSyncDeliveryFailed = syncq.ErrDeliveryFailed
	// ErrSessionExpired is returned when an operation requiring a live
	// session, such as recording a sensitive action, finds the persisted one
	// past its TTL.
	ErrSessionExpired = errors.New("session expired")
	// ErrManagerNotReady is returned when a Manager method is called before
	// Build wired its dependencies.
	ErrManagerNotReady = errors.New("manager not initialized")
)
