package token

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

// ErrMalformed is returned when a token does not decode to exactly two
// colon-separated fields with a non-negative integer timestamp.
var ErrMalformed = errors.New("malformed session token")

// Codec converts between a (subject, issue time) pair and an opaque token
// string.
//
// Codec implementations are intended to be configured during initialization and
// then treated as immutable.
type Codec interface {
	Encode(subject string, issuedAt time.Time) (string, error)
	Decode(token string) (subject string, issuedAt time.Time, err error)
}

// Base64Codec is the default, non-cryptographic codec. The encoded form is
// readable by any holder; it carries no integrity guarantee.
type Base64Codec struct{}

// NewBase64 returns the default codec.
func NewBase64() Base64Codec {
	return Base64Codec{}
}

// Encode produces base64(subject + ":" + issuedAt in epoch milliseconds).
func (Base64Codec) Encode(subject string, issuedAt time.Time) (string, error) {
	payload := subject + ":" + strconv.FormatInt(issuedAt.UnixMilli(), 10)
	return base64.StdEncoding.EncodeToString([]byte(payload)), nil
}

// Decode reverses Encode. It fails with [ErrMalformed] when the payload does
// not split into exactly two fields or the timestamp field is not a
// non-negative integer.
func (Base64Codec) Decode(tok string) (string, time.Time, error) {
	raw, err := base64.StdEncoding.DecodeString(tok)
	if err != nil {
		return "", time.Time{}, ErrMalformed
	}

	parts := strings.Split(string(raw), ":")
	if len(parts) != 2 {
		return "", time.Time{}, ErrMalformed
	}

	millis, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || millis < 0 {
		return "", time.Time{}, ErrMalformed
	}

	return parts[0], time.UnixMilli(millis), nil
}
