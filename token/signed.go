package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SignedCodec wraps the session token in an HMAC-signed JWT so a tampered
// subject or issue time fails decoding. The claims stay readable; only
// integrity is added, not confidentiality.
type SignedCodec struct {
	key []byte
}

type sessionClaims struct {
	Subject      string `json:"sub"`
	IssuedMillis int64  `json:"imi"`
	jwt.RegisteredClaims
}

// NewSigned builds a SignedCodec from an HS256 key. The key must be at least
// 32 bytes.
func NewSigned(key []byte) (*SignedCodec, error) {
	if len(key) < 32 {
		return nil, errors.New("signing key must be at least 32 bytes")
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &SignedCodec{key: k}, nil
}

// Encode signs the (subject, issuedAt) pair with HS256.
func (c *SignedCodec) Encode(subject string, issuedAt time.Time) (string, error) {
	claims := sessionClaims{
		Subject:      subject,
		IssuedMillis: issuedAt.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(issuedAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
}

// Decode verifies the signature and recovers the pair. Any parse or signature
// failure is reported as [ErrMalformed] so callers treat tampering the same as
// corruption.
func (c *SignedCodec) Decode(tok string) (string, time.Time, error) {
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(tok, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return c.key, nil
	})
	if err != nil || !parsed.Valid {
		return "", time.Time{}, ErrMalformed
	}
	if claims.Subject == "" || claims.IssuedMillis < 0 {
		return "", time.Time{}, ErrMalformed
	}
	return claims.Subject, time.UnixMilli(claims.IssuedMillis), nil
}
