package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashKey returns a stable opaque identifier for s, safe to use as a cache key.
func HashKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
