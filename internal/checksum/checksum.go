// Package checksum provides the content digests used for cache keys and ETags.
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

// SumString returns the digest of text.
func SumString(text string) string {
	return Sum([]byte(text))
}

// ETag returns a quoted, shortened digest suitable for an HTTP ETag header.
func ETag(data []byte) string {
	return `"` + Sum(data)[:16] + `"`
}
