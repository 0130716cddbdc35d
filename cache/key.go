package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// fingerprintSep separates the key components before hashing. It keeps
// ("ab", "c") and ("a", "bc") from colliding.
const fingerprintSep = "|"

// Fingerprint derives the deterministic cache key for a request. Identical
// (content, target, optimization) triples always produce the same key, which
// is what gives the batch engine its at-most-one-compute guarantee.
func Fingerprint(content, target, optimization string) string {
	h := sha256.New()
	io.WriteString(h, content)
	io.WriteString(h, fingerprintSep)
	io.WriteString(h, target)
	io.WriteString(h, fingerprintSep)
	io.WriteString(h, optimization)
	return hex.EncodeToString(h.Sum(nil))
}
