// Package hash computes the chain-of-custody digest for raw evidence bytes.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// PrefixLimit bounds how many bytes of very large media payloads are hashed.
// Hashing a 32 MiB prefix keeps ingestion of video evidence fast. The
// guarantee weakens accordingly: same prefix implies same digest, so the
// dedup gate's exact-match claim is exact only up to this bound.
const PrefixLimit = 32 << 20

// Digest returns the SHA-256 hex digest of data, deterministic for the same
// input. At most PrefixLimit bytes are hashed.
func Digest(data []byte) string {
	if len(data) > PrefixLimit {
		data = data[:PrefixLimit]
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
