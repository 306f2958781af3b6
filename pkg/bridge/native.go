package bridge

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/mash-protocol/mash-cbor/pkg/cbor"
)

var (
	// ErrUnsupportedType is returned for Go values with no CBOR mapping.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrUnhashableKey is returned by ToNative for array or map keys,
	// which cannot key a Go map.
	ErrUnhashableKey = errors.New("map key cannot be used as a Go map key")

	// ErrTooDeep is returned when a native value nests beyond maxDepth,
	// which usually means a pointer cycle.
	ErrTooDeep = errors.New("value nests too deeply")

	// ErrInvalidTagContent is returned by ToNative when a well-known
	// tag wraps content of the wrong type.
	ErrInvalidTagContent = errors.New("invalid content for tag")

	// ErrInvalidUTF8Text is returned by FromNative for Go strings that
	// are not valid UTF-8 and so cannot become text strings.
	ErrInvalidUTF8Text = errors.New("string is not valid UTF-8")
)

const maxDepth = 1000

// Tag is the native form of a tag that has no dedicated Go type.
type Tag struct {
	Number  uint64
	Content any
}

// ByteKey is the native form of a byte string used as a map key.
type ByteKey string

var bigOne = big.NewInt(1)

// FromNative converts a Go value to a cbor.Value.
func FromNative(x any) (cbor.Value, error) {
	return fromNative(x, 0)
}

func fromNative(x any, depth int) (cbor.Value, error) {
	if depth > maxDepth {
		return nil, ErrTooDeep
	}
	switch v := x.(type) {
	case nil:
		return cbor.Null{}, nil
	case cbor.Value:
		return v, nil
	case bool:
		return cbor.Bool(v), nil
	case int:
		return cbor.Int(int64(v)), nil
	case int8:
		return cbor.Int(int64(v)), nil
	case int16:
		return cbor.Int(int64(v)), nil
	case int32:
		return cbor.Int(int64(v)), nil
	case int64:
		return cbor.Int(v), nil
	case uint:
		return cbor.Unsigned(v), nil
	case uint8:
		return cbor.Unsigned(v), nil
	case uint16:
		return cbor.Unsigned(v), nil
	case uint32:
		return cbor.Unsigned(v), nil
	case uint64:
		return cbor.Unsigned(v), nil
	case float32:
		return cbor.Float32(v), nil
	case float64:
		return cbor.Float64(v), nil
	case string:
		return fromString(v)
	case ByteKey:
		return cbor.Bytes(v), nil
	case []byte:
		return cbor.Bytes(bytes.Clone(v)), nil
	case time.Time:
		return fromTime(v), nil
	case *big.Int:
		if v == nil {
			return cbor.Null{}, nil
		}
		return fromBigInt(v), nil
	case big.Int:
		return fromBigInt(&v), nil
	case uuid.UUID:
		return cbor.Tagged{Number: cbor.TagUUID, Content: cbor.Bytes(bytes.Clone(v[:]))}, nil
	case Tag:
		content, err := fromNative(v.Content, depth+1)
		if err != nil {
			return nil, err
		}
		return cbor.Tagged{Number: v.Number, Content: content}, nil
	case []any:
		arr := make(cbor.Array, len(v))
		for i, elem := range v {
			item, err := fromNative(elem, depth+1)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			arr[i] = item
		}
		return arr, nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		m := make(cbor.Map, len(keys))
		for i, k := range keys {
			if !utf8.ValidString(k) {
				return nil, fmt.Errorf("key %q: %w", k, ErrInvalidUTF8Text)
			}
			item, err := fromNative(v[k], depth+1)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			m[i] = cbor.Pair{Key: cbor.Text(k), Value: item}
		}
		return m, nil
	}
	return fromReflect(reflect.ValueOf(x), depth)
}

func fromReflect(rv reflect.Value, depth int) (cbor.Value, error) {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return cbor.Null{}, nil
		}
		return fromNative(rv.Elem().Interface(), depth+1)
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return cbor.Null{}, nil
		}
		arr := make(cbor.Array, rv.Len())
		for i := range arr {
			item, err := fromNative(rv.Index(i).Interface(), depth+1)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			arr[i] = item
		}
		return arr, nil
	case reflect.Map:
		if rv.IsNil() {
			return cbor.Null{}, nil
		}
		m := make(cbor.Map, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key, err := fromNative(iter.Key().Interface(), depth+1)
			if err != nil {
				return nil, fmt.Errorf("map key: %w", err)
			}
			val, err := fromNative(iter.Value().Interface(), depth+1)
			if err != nil {
				return nil, fmt.Errorf("key %s: %w", key, err)
			}
			m = append(m, cbor.Pair{Key: key, Value: val})
		}
		// Go map iteration order is random.
		return cbor.Canonical(m), nil
	case reflect.Struct:
		return Marshal(rv.Interface())
	case reflect.Bool:
		return cbor.Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return cbor.Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return cbor.Unsigned(rv.Uint()), nil
	case reflect.Float32:
		return cbor.Float32(rv.Float()), nil
	case reflect.Float64:
		return cbor.Float64(rv.Float()), nil
	case reflect.String:
		return fromString(rv.String())
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, rv.Type())
}

func fromString(s string) (cbor.Value, error) {
	if !utf8.ValidString(s) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidUTF8Text, s)
	}
	return cbor.Text(s), nil
}

func fromTime(t time.Time) cbor.Value {
	if t.Nanosecond() == 0 {
		return cbor.Tagged{Number: cbor.TagEpochDateTime, Content: cbor.Int(t.Unix())}
	}
	secs := float64(t.Unix()) + float64(t.Nanosecond())/1e9
	return cbor.Tagged{Number: cbor.TagEpochDateTime, Content: cbor.Float64(secs)}
}

func fromBigInt(n *big.Int) cbor.Value {
	if n.Sign() >= 0 {
		if n.IsUint64() {
			return cbor.Unsigned(n.Uint64())
		}
		return cbor.Tagged{Number: cbor.TagPositiveBignum, Content: cbor.Bytes(n.Bytes())}
	}
	// A negative n is stored as -1-n.
	m := new(big.Int).Neg(n)
	m.Sub(m, bigOne)
	if m.IsUint64() {
		return cbor.Negative(m.Uint64())
	}
	return cbor.Tagged{Number: cbor.TagNegativeBignum, Content: cbor.Bytes(m.Bytes())}
}

// ToNative converts v to Go's natural representation:
//
//	Unsigned           uint64
//	Negative           int64, or *big.Int below math.MinInt64
//	Bytes              []byte
//	Text               string
//	Array              []any
//	Map                map[string]any when every key is text, else map[any]any
//	Tagged             time.Time, *big.Int, uuid.UUID or Tag
//	Bool               bool
//	Null               nil
//	Float32, Float64   float32, float64
//	Undefined, Simple  returned unchanged
func ToNative(v cbor.Value) (any, error) {
	return toNative(v, 0)
}

func toNative(v cbor.Value, depth int) (any, error) {
	if depth > maxDepth {
		return nil, ErrTooDeep
	}
	switch x := v.(type) {
	case cbor.Unsigned:
		return uint64(x), nil
	case cbor.Negative:
		if i, ok := x.Int64(); ok {
			return i, nil
		}
		n := new(big.Int).SetUint64(uint64(x))
		return n.Neg(n.Add(n, bigOne)), nil
	case cbor.Bytes:
		return bytes.Clone([]byte(x)), nil
	case cbor.Text:
		return string(x), nil
	case cbor.Array:
		out := make([]any, len(x))
		for i, elem := range x {
			item, err := toNative(elem, depth+1)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = item
		}
		return out, nil
	case cbor.Map:
		return mapToNative(x, depth)
	case cbor.Tagged:
		return tagToNative(x, depth)
	case cbor.Bool:
		return bool(x), nil
	case cbor.Null, nil:
		return nil, nil
	case cbor.Float32:
		return float32(x), nil
	case cbor.Float64:
		return float64(x), nil
	case cbor.Undefined, cbor.Simple:
		return x, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
}

func mapToNative(m cbor.Map, depth int) (any, error) {
	textKeys := true
	for _, p := range m {
		if _, ok := p.Key.(cbor.Text); !ok {
			textKeys = false
			break
		}
	}
	if textKeys {
		out := make(map[string]any, len(m))
		for _, p := range m {
			k := string(p.Key.(cbor.Text))
			// Later duplicates win, as with fxamacker's DupMapKeyQuiet.
			val, err := toNative(p.Value, depth+1)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out[k] = val
		}
		return out, nil
	}

	out := make(map[any]any, len(m))
	for _, p := range m {
		var key any
		switch k := p.Key.(type) {
		case cbor.Array, cbor.Map:
			return nil, fmt.Errorf("%w: %s", ErrUnhashableKey, k.MajorType())
		case cbor.Bytes:
			key = ByteKey(k)
		default:
			native, err := toNative(k, depth+1)
			if err != nil {
				return nil, err
			}
			if b, ok := native.(*big.Int); ok {
				// Pointer keys would compare by identity.
				native = b.String()
			}
			if !hashable(native) {
				return nil, fmt.Errorf("%w: %T", ErrUnhashableKey, native)
			}
			key = native
		}
		val, err := toNative(p.Value, depth+1)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", p.Key, err)
		}
		out[key] = val
	}
	return out, nil
}

// hashable reports whether x can be used as a Go map key without panicking.
func hashable(x any) bool {
	switch v := x.(type) {
	case nil:
		return true
	case Tag:
		return hashable(v.Content)
	case []any, map[string]any, map[any]any, []byte:
		return false
	}
	return reflect.TypeOf(x).Comparable()
}

func tagToNative(t cbor.Tagged, depth int) (any, error) {
	switch t.Number {
	case cbor.TagDateTimeString:
		s, ok := t.Content.(cbor.Text)
		if !ok {
			return nil, fmt.Errorf("%w 0: %s", ErrInvalidTagContent, t.Content.MajorType())
		}
		ts, err := time.Parse(time.RFC3339Nano, string(s))
		if err != nil {
			return nil, fmt.Errorf("%w 0: %v", ErrInvalidTagContent, err)
		}
		return ts, nil
	case cbor.TagEpochDateTime:
		switch c := t.Content.(type) {
		case cbor.Unsigned:
			if uint64(c) > math.MaxInt64 {
				break
			}
			return time.Unix(int64(c), 0).UTC(), nil
		case cbor.Negative:
			if i, ok := c.Int64(); ok {
				return time.Unix(i, 0).UTC(), nil
			}
		case cbor.Float64:
			if ts, ok := epochFloat(float64(c)); ok {
				return ts, nil
			}
		case cbor.Float32:
			if ts, ok := epochFloat(float64(c)); ok {
				return ts, nil
			}
		}
		return nil, fmt.Errorf("%w 1: %s", ErrInvalidTagContent, t.Content)
	case cbor.TagPositiveBignum, cbor.TagNegativeBignum:
		b, ok := t.Content.(cbor.Bytes)
		if !ok {
			return nil, fmt.Errorf("%w %d: %s", ErrInvalidTagContent, t.Number, t.Content.MajorType())
		}
		n := new(big.Int).SetBytes(b)
		if t.Number == cbor.TagNegativeBignum {
			n.Add(n, bigOne)
			n.Neg(n)
		}
		return n, nil
	case cbor.TagUUID:
		b, ok := t.Content.(cbor.Bytes)
		if !ok || len(b) != 16 {
			return nil, fmt.Errorf("%w 37: want 16-byte string, got %s", ErrInvalidTagContent, t.Content)
		}
		u, err := uuid.FromBytes(b)
		if err != nil {
			return nil, fmt.Errorf("%w 37: %v", ErrInvalidTagContent, err)
		}
		return u, nil
	}
	content, err := toNative(t.Content, depth+1)
	if err != nil {
		return nil, err
	}
	return Tag{Number: t.Number, Content: content}, nil
}

// epochFloat reports false for NaN, infinities and seconds outside the
// int64 range.
func epochFloat(secs float64) (time.Time, bool) {
	if math.IsNaN(secs) || secs >= math.MaxInt64 || secs < math.MinInt64 {
		return time.Time{}, false
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC(), true
}
