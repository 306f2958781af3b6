package cbor

import (
	"errors"
	"fmt"
	"math"
)

// MajorType is the 3-bit item category carried in the top bits of every
// header byte.
type MajorType uint8

const (
	MajorUnsigned MajorType = 0
	MajorNegative MajorType = 1
	MajorBytes    MajorType = 2
	MajorText     MajorType = 3
	MajorArray    MajorType = 4
	MajorMap      MajorType = 5
	MajorTag      MajorType = 6
	MajorSimple   MajorType = 7
)

// String returns the lowercase name of the major type.
func (m MajorType) String() string {
	switch m {
	case MajorUnsigned:
		return "unsigned"
	case MajorNegative:
		return "negative"
	case MajorBytes:
		return "bytes"
	case MajorText:
		return "text"
	case MajorArray:
		return "array"
	case MajorMap:
		return "map"
	case MajorTag:
		return "tag"
	case MajorSimple:
		return "simple"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

// ParseMajorType parses the name returned by MajorType.String.
func ParseMajorType(s string) (MajorType, error) {
	for m := MajorUnsigned; m <= MajorSimple; m++ {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown major type: %q", s)
}

// Value is a single CBOR data item.
//
// The set of implementations is closed:
//   - Unsigned
//   - Negative
//   - Bytes
//   - Text
//   - Array
//   - Map
//   - Tagged
//   - Bool
//   - Null
//   - Undefined
//   - Float32
//   - Float64
//   - Simple
//
// Values are treated as immutable once built. The encoder never modifies
// a Value and the decoder never shares backing storage with its input.
type Value interface {
	// MajorType returns the wire category of the item.
	MajorType() MajorType

	// String returns the diagnostic notation of the item.
	String() string

	isValue()
}

var (
	_ Value = Unsigned(0)
	_ Value = Negative(0)
	_ Value = Bytes(nil)
	_ Value = Text("")
	_ Value = Array(nil)
	_ Value = Map(nil)
	_ Value = Tagged{}
	_ Value = Bool(false)
	_ Value = Null{}
	_ Value = Undefined{}
	_ Value = Float32(0)
	_ Value = Float64(0)
	_ Value = Simple{}
)

// Unsigned is a non-negative integer (major type 0).
type Unsigned uint64

// Negative is a negative integer (major type 1). It stores the encoded
// argument n, so the integer it denotes is -1-n. This covers the full
// CBOR range down to -2^64 and leaves no invalid states.
type Negative uint64

// Int64 returns the integer denoted by n. The second result is false
// when the value is below math.MinInt64.
func (n Negative) Int64() (int64, bool) {
	if uint64(n) > math.MaxInt64 {
		return 0, false
	}
	return -1 - int64(n), true
}

// Int returns the Unsigned or Negative value for i.
func Int(i int64) Value {
	if i >= 0 {
		return Unsigned(i)
	}
	return Negative(^uint64(i))
}

// Bytes is a byte string (major type 2).
type Bytes []byte

// Text is a UTF-8 text string (major type 3).
type Text string

// Array is an ordered sequence of items (major type 4).
type Array []Value

// Pair is one key/value entry of a Map.
type Pair struct {
	Key   Value
	Value Value
}

// Map is an ordered sequence of key/value pairs (major type 5). Keys are
// not required to be unique; duplicates are preserved as-is. The encoder
// emits pairs sorted by encoded key regardless of the order held here.
type Map []Pair

// Get returns the value of the first pair whose key equals key.
func (m Map) Get(key Value) (Value, bool) {
	for _, p := range m {
		if Equal(p.Key, key) {
			return p.Value, true
		}
	}
	return nil, false
}

// Tagged attaches a semantic tag number to its content (major type 6).
type Tagged struct {
	Number  uint64
	Content Value
}

// Well-known tag numbers.
const (
	TagDateTimeString   uint64 = 0
	TagEpochDateTime    uint64 = 1
	TagPositiveBignum   uint64 = 2
	TagNegativeBignum   uint64 = 3
	TagEmbeddedCBOR     uint64 = 24
	TagUUID             uint64 = 37
	TagSelfDescribeCBOR uint64 = 55799
)

// Bool is the simple value false (20) or true (21).
type Bool bool

// Null is the simple value null (22).
type Null struct{}

// Undefined is the simple value undefined (23).
type Undefined struct{}

// Float32 is a single-precision float (major type 7, additional info 26).
// Half-precision input is widened into this variant by the decoder.
type Float32 float32

// Float64 is a double-precision float (major type 7, additional info 27).
type Float64 float64

// ErrInvalidSimpleValue is returned for simple value codes that CBOR
// reserves: 20-23 have their own variants and 24-31 are not well-formed.
var ErrInvalidSimpleValue = errors.New("invalid simple value")

// Simple is an unassigned or application-defined simple value, codes
// 0-19 and 32-255. The zero value is simple(0).
type Simple struct {
	code uint8
}

// NewSimple returns the simple value for code.
func NewSimple(code uint8) (Simple, error) {
	if code >= simpleFalse && code < 32 {
		return Simple{}, fmt.Errorf("%w: %d", ErrInvalidSimpleValue, code)
	}
	return Simple{code: code}, nil
}

// Code returns the simple value number.
func (s Simple) Code() uint8 { return s.code }

func (Unsigned) MajorType() MajorType  { return MajorUnsigned }
func (Negative) MajorType() MajorType  { return MajorNegative }
func (Bytes) MajorType() MajorType     { return MajorBytes }
func (Text) MajorType() MajorType      { return MajorText }
func (Array) MajorType() MajorType     { return MajorArray }
func (Map) MajorType() MajorType       { return MajorMap }
func (Tagged) MajorType() MajorType    { return MajorTag }
func (Bool) MajorType() MajorType      { return MajorSimple }
func (Null) MajorType() MajorType      { return MajorSimple }
func (Undefined) MajorType() MajorType { return MajorSimple }
func (Float32) MajorType() MajorType   { return MajorSimple }
func (Float64) MajorType() MajorType   { return MajorSimple }
func (Simple) MajorType() MajorType    { return MajorSimple }

func (Unsigned) isValue()  {}
func (Negative) isValue()  {}
func (Bytes) isValue()     {}
func (Text) isValue()      {}
func (Array) isValue()     {}
func (Map) isValue()       {}
func (Tagged) isValue()    {}
func (Bool) isValue()      {}
func (Null) isValue()      {}
func (Undefined) isValue() {}
func (Float32) isValue()   {}
func (Float64) isValue()   {}
func (Simple) isValue()    {}

func (v Unsigned) String() string  { return Diagnose(v) }
func (v Negative) String() string  { return Diagnose(v) }
func (v Bytes) String() string     { return Diagnose(v) }
func (v Text) String() string      { return Diagnose(v) }
func (v Array) String() string     { return Diagnose(v) }
func (v Map) String() string       { return Diagnose(v) }
func (v Tagged) String() string    { return Diagnose(v) }
func (v Bool) String() string      { return Diagnose(v) }
func (v Null) String() string      { return Diagnose(v) }
func (v Undefined) String() string { return Diagnose(v) }
func (v Float32) String() string   { return Diagnose(v) }
func (v Float64) String() string   { return Diagnose(v) }
func (v Simple) String() string    { return Diagnose(v) }

// Equal reports whether a and b are the same item. Floats compare by bit
// pattern so NaN payloads survive round-trip checks. Map pairs compare
// in order; canonicalize both sides first to ignore insertion order.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case Unsigned:
		y, ok := b.(Unsigned)
		return ok && x == y
	case Negative:
		y, ok := b.(Negative)
		return ok && x == y
	case Bytes:
		y, ok := b.(Bytes)
		return ok && string(x) == string(y)
	case Text:
		y, ok := b.(Text)
		return ok && x == y
	case Array:
		y, ok := b.(Array)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case Map:
		y, ok := b.(Map)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i].Key, y[i].Key) || !Equal(x[i].Value, y[i].Value) {
				return false
			}
		}
		return true
	case Tagged:
		y, ok := b.(Tagged)
		return ok && x.Number == y.Number && Equal(x.Content, y.Content)
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case Null:
		_, ok := b.(Null)
		return ok
	case Undefined:
		_, ok := b.(Undefined)
		return ok
	case Float32:
		y, ok := b.(Float32)
		return ok && math.Float32bits(float32(x)) == math.Float32bits(float32(y))
	case Float64:
		y, ok := b.(Float64)
		return ok && math.Float64bits(float64(x)) == math.Float64bits(float64(y))
	case Simple:
		y, ok := b.(Simple)
		return ok && x == y
	case nil:
		return b == nil
	}
	return false
}
