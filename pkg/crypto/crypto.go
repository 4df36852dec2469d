// Package crypto provides password and API key hashing helpers.
package crypto

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// HashKey hashes an admin API key with bcrypt.
func HashKey(key string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CompareKey reports whether key matches the stored bcrypt hash.
func CompareKey(hash, key string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}

// HashRequestBody returns the hex SHA-256 of a request body, used to detect
// idempotency key reuse with a different payload.
func HashRequestBody(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
