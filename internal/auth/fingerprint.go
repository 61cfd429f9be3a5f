package auth

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Fingerprint returns a short, non-reversible identifier for a token that
// is safe to write to logs.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	sum := blake3.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}
