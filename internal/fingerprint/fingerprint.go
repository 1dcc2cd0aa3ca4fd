// Package fingerprint computes stable content fingerprints for dedup.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/linnemanlabs/sift/internal/message"
)

// separator joins subject and body in the digest input. NUL cannot survive
// normalization of either field, so "a b"+"" and "a"+"b" never collide.
const separator = "\x00"

// Normalize trims the string, collapses internal whitespace runs to a
// single space, and lower-cases the result.
func Normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Compute returns the hex SHA-256 of the normalized message content.
// Deterministic and pure: identical normalized content always yields the
// same fingerprint, including for empty or whitespace-only messages.
func Compute(m *message.Message) string {
	h := sha256.New()
	h.Write([]byte(Normalize(m.Subject)))
	h.Write([]byte(separator))
	h.Write([]byte(Normalize(m.Body)))
	return hex.EncodeToString(h.Sum(nil))
}
