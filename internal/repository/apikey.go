package repository

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashAPIKey returns the stored form of an API key.
func HashAPIKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
