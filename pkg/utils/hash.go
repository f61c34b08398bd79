package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashString returns the hex SHA-256 digest of s
func HashString(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}
