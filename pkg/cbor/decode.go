package cbor

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/x448/float16"
)

const (
	DefaultMaxNestedLevels = 32
	minMaxNestedLevels     = 4
	maxMaxNestedLevels     = 65535
)

// DecOptions configures a DecMode.
type DecOptions struct {
	// MaxNestedLevels bounds how deeply arrays, maps and tags may nest.
	// Zero selects the default of 32; otherwise it must be 4-65535.
	MaxNestedLevels int
}

// DecMode is an immutable decoder configuration, safe for concurrent use.
type DecMode interface {
	// Decode decodes the first item of data. Trailing bytes are ignored.
	Decode(data []byte) (Value, error)
	// DecodeFirst decodes the first item of data and returns the
	// unconsumed remainder.
	DecodeFirst(data []byte) (Value, []byte, error)
	// DecodeAll decodes every item of a CBOR sequence.
	DecodeAll(data []byte) ([]Value, error)
	// UnwrapAndDecode decodes a tag 24 embedded item: the outer tag's
	// byte string is decoded as a second, independent item.
	UnwrapAndDecode(data []byte) (Value, error)
	// Valid checks that data starts with one well-formed item.
	Valid(data []byte) error
	// DecOptions returns the options the mode was built from.
	DecOptions() DecOptions
}

// DecMode validates opts and returns the resulting mode.
func (opts DecOptions) DecMode() (DecMode, error) {
	levels := opts.MaxNestedLevels
	if levels == 0 {
		levels = DefaultMaxNestedLevels
	}
	if levels < minMaxNestedLevels || levels > maxMaxNestedLevels {
		return nil, fmt.Errorf("cbor: invalid MaxNestedLevels %d (range is [%d, %d])",
			opts.MaxNestedLevels, minMaxNestedLevels, maxMaxNestedLevels)
	}
	return &decMode{maxNestedLevels: levels}, nil
}

type decMode struct {
	maxNestedLevels int
}

var defaultDecMode = &decMode{maxNestedLevels: DefaultMaxNestedLevels}

// Decode decodes the first item of data with the default mode. Trailing
// bytes are not an error; empty input is.
func Decode(data []byte) (Value, error) {
	return defaultDecMode.Decode(data)
}

// DecodeFirst decodes the first item of data with the default mode and
// returns the bytes that follow it.
func DecodeFirst(data []byte) (Value, []byte, error) {
	return defaultDecMode.DecodeFirst(data)
}

// DecodeAll decodes a CBOR sequence with the default mode. An empty
// sequence yields no items and no error.
func DecodeAll(data []byte) ([]Value, error) {
	return defaultDecMode.DecodeAll(data)
}

// UnwrapAndDecode decodes a tag 24 embedded item with the default mode.
func UnwrapAndDecode(data []byte) (Value, error) {
	return defaultDecMode.UnwrapAndDecode(data)
}

// Valid reports whether data starts with one well-formed item.
func Valid(data []byte) error {
	return defaultDecMode.Valid(data)
}

func (dm *decMode) DecOptions() DecOptions {
	return DecOptions{MaxNestedLevels: dm.maxNestedLevels}
}

func (dm *decMode) Decode(data []byte) (Value, error) {
	v, _, err := dm.DecodeFirst(data)
	return v, err
}

func (dm *decMode) DecodeFirst(data []byte) (Value, []byte, error) {
	if len(data) == 0 {
		return nil, data, &SyntaxError{Offset: 0, Err: ErrEmptyInput}
	}
	d := decoder{data: data, maxDepth: dm.maxNestedLevels}
	v, err := d.value(0)
	if err != nil {
		return nil, data, err
	}
	return v, data[d.off:], nil
}

func (dm *decMode) DecodeAll(data []byte) ([]Value, error) {
	d := decoder{data: data, maxDepth: dm.maxNestedLevels}
	var items []Value
	for d.off < len(d.data) {
		v, err := d.value(0)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, nil
}

func (dm *decMode) UnwrapAndDecode(data []byte) (Value, error) {
	outer, err := dm.Decode(data)
	if err != nil {
		return nil, err
	}
	tagged, ok := outer.(Tagged)
	if !ok || tagged.Number != TagEmbeddedCBOR {
		return nil, &SyntaxError{
			Offset: 0,
			Err:    ErrNotEmbeddedCBOR,
			Detail: fmt.Sprintf("outer item is %s", describe(outer)),
		}
	}
	payload, ok := tagged.Content.(Bytes)
	if !ok {
		return nil, &SyntaxError{
			Offset: 0,
			Err:    ErrNotEmbeddedCBOR,
			Detail: fmt.Sprintf("tag 24 content is %s", describe(tagged.Content)),
		}
	}
	// Offsets in errors from the second pass are relative to payload.
	return dm.Decode(payload)
}

func (dm *decMode) Valid(data []byte) error {
	_, err := dm.Decode(data)
	return err
}

func describe(v Value) string {
	if t, ok := v.(Tagged); ok {
		return fmt.Sprintf("tag %d", t.Number)
	}
	return v.MajorType().String()
}

// decoder walks data with a single cursor. Every call to value consumes
// exactly one item or fails without further use of the decoder.
type decoder struct {
	data     []byte
	off      int
	maxDepth int
}

// value decodes the item at the cursor. depth is the number of enclosing
// arrays, maps and tags.
func (d *decoder) value(depth int) (Value, error) {
	start := d.off
	h, err := readHead(d.data, d.off)
	if err != nil {
		return nil, err
	}
	d.off += h.size

	switch h.major {
	case MajorUnsigned:
		if h.indefinite() {
			return nil, d.badIndefinite(start, h)
		}
		return Unsigned(h.arg), nil

	case MajorNegative:
		if h.indefinite() {
			return nil, d.badIndefinite(start, h)
		}
		return Negative(h.arg), nil

	case MajorBytes, MajorText:
		if h.indefinite() {
			return nil, &SyntaxError{Offset: start, Err: ErrIndefiniteString}
		}
		payload, err := d.payload(start, h.arg)
		if err != nil {
			return nil, err
		}
		if h.major == MajorBytes {
			return Bytes(payload), nil
		}
		if !utf8.Valid(payload) {
			return nil, &SyntaxError{Offset: start, Err: ErrInvalidUTF8}
		}
		return Text(payload), nil

	case MajorArray:
		if err := d.enter(start, depth); err != nil {
			return nil, err
		}
		if h.indefinite() {
			arr := Array{}
			for {
				done, err := d.atBreak()
				if err != nil {
					return nil, err
				}
				if done {
					return arr, nil
				}
				elem, err := d.value(depth + 1)
				if err != nil {
					return nil, err
				}
				arr = append(arr, elem)
			}
		}
		// Every element takes at least one byte.
		if h.arg > uint64(len(d.data)-d.off) {
			return nil, &SyntaxError{
				Offset: start,
				Err:    ErrTruncatedInput,
				Detail: fmt.Sprintf("array of %d elements, %d bytes remain", h.arg, len(d.data)-d.off),
			}
		}
		arr := make(Array, 0, int(h.arg))
		for i := uint64(0); i < h.arg; i++ {
			elem, err := d.value(depth + 1)
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil

	case MajorMap:
		if err := d.enter(start, depth); err != nil {
			return nil, err
		}
		if h.indefinite() {
			m := Map{}
			for {
				done, err := d.atBreak()
				if err != nil {
					return nil, err
				}
				if done {
					return m, nil
				}
				p, err := d.pair(depth + 1)
				if err != nil {
					return nil, err
				}
				m = append(m, p)
			}
		}
		// Every pair takes at least two bytes.
		if h.arg > uint64(len(d.data)-d.off)/2 {
			return nil, &SyntaxError{
				Offset: start,
				Err:    ErrTruncatedInput,
				Detail: fmt.Sprintf("map of %d pairs, %d bytes remain", h.arg, len(d.data)-d.off),
			}
		}
		m := make(Map, 0, int(h.arg))
		for i := uint64(0); i < h.arg; i++ {
			p, err := d.pair(depth + 1)
			if err != nil {
				return nil, err
			}
			m = append(m, p)
		}
		return m, nil

	case MajorTag:
		if h.indefinite() {
			return nil, d.badIndefinite(start, h)
		}
		if err := d.enter(start, depth); err != nil {
			return nil, err
		}
		content, err := d.value(depth + 1)
		if err != nil {
			return nil, err
		}
		return Tagged{Number: h.arg, Content: content}, nil

	default:
		return d.simple(start, h)
	}
}

func (d *decoder) simple(start int, h head) (Value, error) {
	switch h.info {
	case simpleFalse:
		return Bool(false), nil
	case simpleTrue:
		return Bool(true), nil
	case simpleNull:
		return Null{}, nil
	case simpleUndefined:
		return Undefined{}, nil
	case simpleOneByte:
		s, err := NewSimple(uint8(h.arg))
		if err != nil || h.arg < 32 {
			return nil, &SyntaxError{
				Offset: start,
				Err:    ErrInvalidSimpleValue,
				Detail: fmt.Sprintf("two-byte simple value %d", h.arg),
			}
		}
		return s, nil
	case simpleFloat16:
		return Float32(float16.Frombits(uint16(h.arg)).Float32()), nil
	case simpleFloat32:
		return Float32(math.Float32frombits(uint32(h.arg))), nil
	case simpleFloat64:
		return Float64(math.Float64frombits(h.arg)), nil
	case infoIndefinite:
		return nil, &SyntaxError{Offset: start, Err: ErrUnexpectedBreak}
	default:
		// 0-19; 28-30 were rejected by readHead.
		return Simple{code: h.info}, nil
	}
}

func (d *decoder) pair(depth int) (Pair, error) {
	key, err := d.value(depth)
	if err != nil {
		return Pair{}, err
	}
	val, err := d.value(depth)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Key: key, Value: val}, nil
}

// enter checks that opening one more container at depth stays within
// the configured limit.
func (d *decoder) enter(start, depth int) error {
	if depth+1 > d.maxDepth {
		return &SyntaxError{
			Offset: start,
			Err:    ErrMaxDepthExceeded,
			Detail: fmt.Sprintf("limit is %d", d.maxDepth),
		}
	}
	return nil
}

// atBreak consumes a break byte if one is at the cursor.
func (d *decoder) atBreak() (bool, error) {
	if d.off >= len(d.data) {
		return false, &SyntaxError{
			Offset: d.off,
			Err:    ErrTruncatedInput,
			Detail: "missing break for indefinite-length item",
		}
	}
	if d.data[d.off] == breakByte {
		d.off++
		return true, nil
	}
	return false, nil
}

// payload returns a copy of the next n bytes.
func (d *decoder) payload(start int, n uint64) ([]byte, error) {
	remaining := len(d.data) - d.off
	if n > uint64(remaining) {
		return nil, &SyntaxError{
			Offset: start,
			Err:    ErrTruncatedInput,
			Detail: fmt.Sprintf("payload needs %d bytes, have %d", n, remaining),
		}
	}
	out := make([]byte, int(n))
	copy(out, d.data[d.off:])
	d.off += int(n)
	return out, nil
}

func (d *decoder) badIndefinite(start int, h head) error {
	return &SyntaxError{
		Offset: start,
		Err:    ErrUnexpectedBreak,
		Detail: fmt.Sprintf("additional info 31 not allowed for major type %s", h.major),
	}
}
