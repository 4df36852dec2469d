package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// DefaultTTL is how long a stored response stays replayable.
const DefaultTTL = 24 * time.Hour

// Response is a cached response for a previously seen idempotency key.
type Response struct {
	Status int
	Body   json.RawMessage
}

// ValidateKey checks key length and charset.
func ValidateKey(key string) error {
	if len(key) < 8 || len(key) > 128 {
		return fmt.Errorf("idempotency key must be between 8 and 128 characters")
	}
	for _, r := range key {
		if !(r == '-' || r == '_' ||
			(r >= '0' && r <= '9') ||
			(r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z')) {
			return fmt.Errorf("idempotency key contains invalid character %q", r)
		}
	}
	return nil
}

// ReadBody reads at most maxSize bytes of the request body.
func ReadBody(r io.Reader, maxSize int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, maxSize))
}

// HashRequest returns the hex SHA-256 of the request body.
func HashRequest(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// ShouldReturnCached decides whether a stored response can be replayed for a
// repeated key. A different request hash means the key was reused for a
// different payload.
func ShouldReturnCached(cached *Response, requestHash, storedHash string) (bool, string) {
	if requestHash != storedHash {
		return false, "idempotency key was already used with a different request body"
	}
	if cached.Status == 0 {
		return false, "original request is still in flight"
	}
	return true, ""
}
