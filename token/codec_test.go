package token

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"
)

func TestBase64RoundTrip(t *testing.T) {
	codec := NewBase64()

	cases := []struct {
		name    string
		subject string
		issued  time.Time
	}{
		{"plain", "admin", time.UnixMilli(0)},
		{"unicode subject", "user-محمد", time.UnixMilli(1700000000000)},
		{"far future", "user2", time.UnixMilli(1 << 50)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tok, err := codec.Encode(tc.subject, tc.issued)
			if err != nil {
				t.Fatalf("encode failed: %v", err)
			}

			subject, issued, err := codec.Decode(tok)
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if subject != tc.subject {
				t.Fatalf("subject mismatch: got %q want %q", subject, tc.subject)
			}
			if !issued.Equal(tc.issued) {
				t.Fatalf("issue time mismatch: got %v want %v", issued, tc.issued)
			}
		})
	}
}

func TestBase64DecodeRejectsMalformed(t *testing.T) {
	codec := NewBase64()

	cases := []struct {
		name  string
		token string
	}{
		{"not base64", "%%%"},
		{"empty", ""},
		{"one field", base64.StdEncoding.EncodeToString([]byte("admin"))},
		{"three fields", base64.StdEncoding.EncodeToString([]byte("admin:1:2"))},
		{"non-numeric timestamp", base64.StdEncoding.EncodeToString([]byte("admin:soon"))},
		{"negative timestamp", base64.StdEncoding.EncodeToString([]byte("admin:-5"))},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := codec.Decode(tc.token)
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestSignedCodecRoundTrip(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}

	codec, err := NewSigned(key)
	if err != nil {
		t.Fatalf("NewSigned failed: %v", err)
	}

	issued := time.UnixMilli(1700000000000)
	tok, err := codec.Encode("admin", issued)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	subject, got, err := codec.Decode(tok)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if subject != "admin" || !got.Equal(issued) {
		t.Fatalf("round trip mismatch: %q %v", subject, got)
	}
}

func TestSignedCodecRejectsTampering(t *testing.T) {
	key := make([]byte, 32)
	codec, err := NewSigned(key)
	if err != nil {
		t.Fatalf("NewSigned failed: %v", err)
	}

	tok, err := codec.Encode("user1", time.UnixMilli(1000))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	// Flip a byte in the payload segment.
	tampered := []byte(tok)
	tampered[len(tampered)/2] ^= 0x01

	if _, _, err := codec.Decode(string(tampered)); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for tampered token, got %v", err)
	}
}

func TestSignedCodecRejectsShortKey(t *testing.T) {
	if _, err := NewSigned([]byte("short")); err == nil {
		t.Fatal("expected error for short key")
	}
}

func TestSignedCodecRejectsUnsignedToken(t *testing.T) {
	key := make([]byte, 32)
	codec, err := NewSigned(key)
	if err != nil {
		t.Fatalf("NewSigned failed: %v", err)
	}

	// A base64 token from the default codec is not a JWT at all.
	plain, err := NewBase64().Encode("admin", time.UnixMilli(1000))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if _, _, err := codec.Decode(plain); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}
