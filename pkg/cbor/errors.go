package cbor

import (
	"errors"
	"fmt"
)

// Decode errors. Every error returned by the decoder is a *SyntaxError
// wrapping one of these or ErrInvalidSimpleValue, so callers can test
// with errors.Is.
var (
	// ErrEmptyInput is returned when decoding zero bytes.
	ErrEmptyInput = errors.New("empty input")

	// ErrTruncatedInput is returned when a header or payload needs more
	// bytes than remain. Retrying with a longer buffer may succeed.
	ErrTruncatedInput = errors.New("truncated input")

	// ErrInvalidUTF8 is returned when a text string payload is not UTF-8.
	ErrInvalidUTF8 = errors.New("invalid UTF-8 in text string")

	// ErrReservedAdditionalInfo is returned for additional info 28-30.
	ErrReservedAdditionalInfo = errors.New("reserved additional info")

	// ErrUnexpectedBreak is returned for a break marker outside an
	// indefinite-length array or map, or additional info 31 on a major
	// type that does not allow it.
	ErrUnexpectedBreak = errors.New("unexpected break")

	// ErrIndefiniteString is returned for an indefinite-length (chunked)
	// byte or text string, which this codec does not reassemble.
	ErrIndefiniteString = errors.New("indefinite-length byte or text string not supported")

	// ErrMaxDepthExceeded is returned when nesting exceeds the decoder's
	// MaxNestedLevels.
	ErrMaxDepthExceeded = errors.New("maximum nesting depth exceeded")

	// ErrNotEmbeddedCBOR is returned by UnwrapAndDecode when the outer
	// item is not tag 24 wrapping a byte string.
	ErrNotEmbeddedCBOR = errors.New("not an embedded CBOR data item")
)

// SyntaxError describes malformed input and where it was found.
type SyntaxError struct {
	// Offset is the byte position of the item that failed to decode.
	Offset int
	// Err is one of the package's sentinel errors.
	Err error
	// Detail is optional context such as the byte counts involved.
	Detail string
}

func (e *SyntaxError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("cbor: %v at offset %d: %s", e.Err, e.Offset, e.Detail)
	}
	return fmt.Sprintf("cbor: %v at offset %d", e.Err, e.Offset)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

func truncated(off, need, have int) *SyntaxError {
	return &SyntaxError{
		Offset: off,
		Err:    ErrTruncatedInput,
		Detail: fmt.Sprintf("need %d bytes, have %d", need, have),
	}
}

func additionalInfoDetail(info uint8) string {
	return fmt.Sprintf("additional info %d", info)
}
