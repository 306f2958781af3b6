package cbor

import (
	"golang.org/x/crypto/blake2b"
)

// DigestSize is the length of a Digest in bytes.
const DigestSize = blake2b.Size256

// Digest returns the BLAKE2b-256 hash of the canonical encoding of v.
// Maps holding the same pairs in different insertion orders share a
// digest.
func Digest(v Value) [DigestSize]byte {
	return blake2b.Sum256(Encode(v))
}
