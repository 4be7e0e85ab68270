package content

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash derives the content-addressing key for tier-1 duplicate detection:
// hex(SHA-256(Normalize(text))), always 64 lowercase hex characters.
// Inputs differing only in case or whitespace runs hash identically.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(Normalize(text)))
	return hex.EncodeToString(sum[:])
}
