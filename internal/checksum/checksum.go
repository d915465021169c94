// Package checksum implements the content hashing scheme used for change
// detection. The scheme is fixed: hex-encoded SHA-256 over the raw bytes.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Matches reports whether stored equals the digest of data.
func Matches(stored string, data []byte) bool {
	return stored == Sum(data)
}
