package cbor

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"slices"
)

// IndefLengthMode selects how arrays and maps are framed on encode.
type IndefLengthMode int

const (
	// IndefLengthForbidden emits every array and map with a definite
	// count in its header.
	IndefLengthForbidden IndefLengthMode = iota

	// IndefLengthContainers emits arrays and maps with additional info
	// 31 and a trailing break byte. Byte and text strings are always
	// definite.
	IndefLengthContainers

	maxIndefLengthMode
)

func (m IndefLengthMode) valid() bool {
	return m >= 0 && m < maxIndefLengthMode
}

// EncOptions configures an EncMode.
type EncOptions struct {
	IndefLength IndefLengthMode
}

// EncMode is an immutable encoder configuration, safe for concurrent use.
type EncMode interface {
	// Encode returns the encoding of v.
	Encode(v Value) []byte
	// Append appends the encoding of v to dst.
	Append(dst []byte, v Value) []byte
	// Canonical returns a copy of v with every map's pairs in the order
	// this mode emits them. Keys sort by their encoding under this mode,
	// so array and map keys may order differently with indefinite length.
	Canonical(v Value) Value
	// EncOptions returns the options the mode was built from.
	EncOptions() EncOptions
}

// EncMode validates opts and returns the resulting mode.
func (opts EncOptions) EncMode() (EncMode, error) {
	if !opts.IndefLength.valid() {
		return nil, fmt.Errorf("cbor: invalid IndefLength %d", opts.IndefLength)
	}
	return &encMode{indefLength: opts.IndefLength}, nil
}

type encMode struct {
	indefLength IndefLengthMode
}

// defaultEncMode produces the canonical definite-length form.
var defaultEncMode = &encMode{indefLength: IndefLengthForbidden}

// Encode returns the canonical encoding of v. It never fails for a
// Value built from this package's types.
func Encode(v Value) []byte {
	return defaultEncMode.Encode(v)
}

func (em *encMode) EncOptions() EncOptions {
	return EncOptions{IndefLength: em.indefLength}
}

func (em *encMode) Encode(v Value) []byte {
	return em.Append(nil, v)
}

func (em *encMode) Append(dst []byte, v Value) []byte {
	switch x := v.(type) {
	case Unsigned:
		return appendHead(dst, MajorUnsigned, uint64(x))
	case Negative:
		return appendHead(dst, MajorNegative, uint64(x))
	case Bytes:
		dst = appendHead(dst, MajorBytes, uint64(len(x)))
		return append(dst, x...)
	case Text:
		dst = appendHead(dst, MajorText, uint64(len(x)))
		return append(dst, x...)
	case Array:
		if em.indefLength == IndefLengthContainers {
			dst = append(dst, makeByte(MajorArray, infoIndefinite))
		} else {
			dst = appendHead(dst, MajorArray, uint64(len(x)))
		}
		for _, elem := range x {
			dst = em.Append(dst, elem)
		}
		if em.indefLength == IndefLengthContainers {
			dst = append(dst, breakByte)
		}
		return dst
	case Map:
		return em.appendMap(dst, x)
	case Tagged:
		dst = appendHead(dst, MajorTag, x.Number)
		return em.Append(dst, x.Content)
	case Bool:
		if x {
			return append(dst, makeByte(MajorSimple, simpleTrue))
		}
		return append(dst, makeByte(MajorSimple, simpleFalse))
	case Null:
		return append(dst, makeByte(MajorSimple, simpleNull))
	case Undefined:
		return append(dst, makeByte(MajorSimple, simpleUndefined))
	case Float32:
		dst = append(dst, makeByte(MajorSimple, simpleFloat32))
		return binary.BigEndian.AppendUint32(dst, math.Float32bits(float32(x)))
	case Float64:
		dst = append(dst, makeByte(MajorSimple, simpleFloat64))
		return binary.BigEndian.AppendUint64(dst, math.Float64bits(float64(x)))
	case Simple:
		if x.code < simpleOneByte {
			return append(dst, makeByte(MajorSimple, x.code))
		}
		return append(dst, makeByte(MajorSimple, simpleOneByte), x.code)
	case nil:
		// A missing value encodes as null so partially built trees stay
		// encodable.
		return append(dst, makeByte(MajorSimple, simpleNull))
	}
	panic(fmt.Sprintf("cbor: unknown Value type %T", v))
}

// encodedPair holds a map pair with its key already encoded so sorting
// compares bytes once per key.
type encodedPair struct {
	key   []byte
	value Value
}

func (em *encMode) appendMap(dst []byte, m Map) []byte {
	pairs := make([]encodedPair, len(m))
	for i, p := range m {
		pairs[i] = encodedPair{key: em.Append(nil, p.Key), value: p.Value}
	}
	// Stable so duplicate keys keep their relative order.
	slices.SortStableFunc(pairs, func(a, b encodedPair) int {
		return bytes.Compare(a.key, b.key)
	})

	if em.indefLength == IndefLengthContainers {
		dst = append(dst, makeByte(MajorMap, infoIndefinite))
	} else {
		dst = appendHead(dst, MajorMap, uint64(len(pairs)))
	}
	for _, p := range pairs {
		dst = append(dst, p.key...)
		dst = em.Append(dst, p.value)
	}
	if em.indefLength == IndefLengthContainers {
		dst = append(dst, breakByte)
	}
	return dst
}

// Canonical returns a copy of v with every map's pairs in the order
// Encode emits them. Decoding Encode(v) yields a value Equal to
// Canonical(v). Use EncMode.Canonical for other modes.
func Canonical(v Value) Value {
	return defaultEncMode.Canonical(v)
}

func (em *encMode) Canonical(v Value) Value {
	switch x := v.(type) {
	case Array:
		out := make(Array, len(x))
		for i, elem := range x {
			out[i] = em.Canonical(elem)
		}
		return out
	case Map:
		pairs := make([]encodedPair, len(x))
		for i, p := range x {
			pairs[i] = encodedPair{key: em.Encode(p.Key), value: p.Value}
		}
		order := make([]int, len(x))
		for i := range order {
			order[i] = i
		}
		slices.SortStableFunc(order, func(a, b int) int {
			return bytes.Compare(pairs[a].key, pairs[b].key)
		})
		out := make(Map, len(x))
		for i, idx := range order {
			out[i] = Pair{Key: em.Canonical(x[idx].Key), Value: em.Canonical(x[idx].Value)}
		}
		return out
	case Tagged:
		return Tagged{Number: x.Number, Content: em.Canonical(x.Content)}
	case nil:
		return Null{}
	}
	return v
}
