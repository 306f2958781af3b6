// Package bridge converts between cbor.Value trees and Go native values.
//
// FromNative and ToNative cover the scalar, string, slice and map types
// plus a few types with well-known CBOR tags:
//
//	time.Time  tag 1 (epoch seconds) on encode; tags 0 and 1 on decode
//	*big.Int   plain integer when it fits 64 bits, else tag 2 or 3
//	uuid.UUID  tag 37 over a 16-byte string
//
// Marshal and Unmarshal bridge arbitrary Go structs by going through
// fxamacker/cbor, configured with the same canonical ordering the codec
// uses, so struct tags (`cbor:"1,keyasint"`, `json:"name"`) work as they
// do elsewhere.
//
// Map keys from Go maps are emitted in sorted order so that conversion
// is deterministic before the encoder canonicalizes them again.
package bridge
