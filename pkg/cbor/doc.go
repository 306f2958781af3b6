// Package cbor implements the Concise Binary Object Representation
// (RFC 8949) over in-memory byte slices.
//
// Every wire item maps to exactly one variant of the closed Value sum
// type. The encoder always produces the canonical form: integers, lengths
// and tag numbers use the shortest argument, and map pairs are sorted by
// the bytewise lexicographic order of their encoded keys. The decoder
// accepts any well-formed input, including non-minimal arguments and
// indefinite-length arrays and maps.
//
// # Basic Usage
//
//	data := cbor.Encode(cbor.Array{cbor.Unsigned(1), cbor.Text("a")})
//
//	v, err := cbor.Decode(data)
//	if errors.Is(err, cbor.ErrTruncatedInput) {
//	    // fetch more bytes and retry
//	}
//
// # CBOR Sequences
//
// DecodeFirst exposes the unconsumed suffix so callers can walk a
// sequence of concatenated items (RFC 8742):
//
//	for len(data) > 0 {
//	    v, rest, err := cbor.DecodeFirst(data)
//	    ...
//	    data = rest
//	}
//
// # Modes
//
// Encoding and decoding behavior is configured with EncOptions and
// DecOptions, which build immutable EncMode and DecMode values that are
// safe for concurrent use. The package-level functions use the default
// modes.
//
// # Not Supported
//
// Indefinite-length (chunked) byte and text strings are rejected by the
// decoder and never produced by the encoder.
package cbor
