// Package crypto provides the hashing helpers used to fingerprint peers.
package crypto

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Hash generates a BLAKE2b-256 hash
func Hash(data []byte) []byte {
	sum := blake2b.Sum256(data)
	return sum[:]
}

// Fingerprint generates a BLAKE2b-256 hash and returns it as a hex string.
// It is used to give operators a stable identifier for a peer's handshake.
func Fingerprint(data []byte) string {
	return hex.EncodeToString(Hash(data))
}
