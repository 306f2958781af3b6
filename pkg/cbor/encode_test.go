package cbor

import (
	"encoding/hex"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustHex(t testing.TB, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex %q: %v", s, err)
	}
	return b
}

func mustSimple(t testing.TB, code uint8) Simple {
	t.Helper()
	s, err := NewSimple(code)
	if err != nil {
		t.Fatalf("NewSimple(%d): %v", code, err)
	}
	return s
}

// vector is one RFC 8949 Appendix A example that the encoder produces
// byte for byte.
type vector struct {
	name  string
	value Value
	hex   string
}

func rfcVectors(t testing.TB) []vector {
	seq := make(Array, 25)
	for i := range seq {
		seq[i] = Unsigned(i + 1)
	}
	return []vector{
		{"0", Unsigned(0), "00"},
		{"1", Unsigned(1), "01"},
		{"10", Unsigned(10), "0a"},
		{"23", Unsigned(23), "17"},
		{"24", Unsigned(24), "1818"},
		{"25", Unsigned(25), "1819"},
		{"100", Unsigned(100), "1864"},
		{"1000", Unsigned(1000), "1903e8"},
		{"1000000", Unsigned(1000000), "1a000f4240"},
		{"1000000000000", Unsigned(1000000000000), "1b000000e8d4a51000"},
		{"max uint64", Unsigned(math.MaxUint64), "1bffffffffffffffff"},
		{"-18446744073709551616", Negative(math.MaxUint64), "3bffffffffffffffff"},
		{"-1", Int(-1), "20"},
		{"-10", Int(-10), "29"},
		{"-100", Int(-100), "3863"},
		{"-1000", Int(-1000), "3903e7"},
		{"1.1", Float64(1.1), "fb3ff199999999999a"},
		{"100000.0 single", Float32(100000.0), "fa47c35000"},
		{"max float32", Float32(math.MaxFloat32), "fa7f7fffff"},
		{"1.0e+300", Float64(1.0e+300), "fb7e37e43c8800759c"},
		{"-4.1", Float64(-4.1), "fbc010666666666666"},
		{"Infinity single", Float32(math.Inf(1)), "fa7f800000"},
		{"-Infinity double", Float64(math.Inf(-1)), "fbfff0000000000000"},
		{"false", Bool(false), "f4"},
		{"true", Bool(true), "f5"},
		{"null", Null{}, "f6"},
		{"undefined", Undefined{}, "f7"},
		{"simple(16)", mustSimple(t, 16), "f0"},
		{"simple(255)", mustSimple(t, 255), "f8ff"},
		{"date string", Tagged{Number: 0, Content: Text("2013-03-21T20:04:00Z")}, "c074323031332d30332d32315432303a30343a30305a"},
		{"epoch", Tagged{Number: 1, Content: Unsigned(1363896240)}, "c11a514b67b0"},
		{"base16 hint", Tagged{Number: 23, Content: Bytes{0x01, 0x02, 0x03, 0x04}}, "d74401020304"},
		{"embedded cbor", Tagged{Number: 24, Content: Bytes{0x64, 0x49, 0x45, 0x54, 0x46}}, "d818456449455446"},
		{"uri", Tagged{Number: 32, Content: Text("http://www.example.com")}, "d82076687474703a2f2f7777772e6578616d706c652e636f6d"},
		{"empty bytes", Bytes{}, "40"},
		{"bytes", Bytes{0x01, 0x02, 0x03, 0x04}, "4401020304"},
		{"empty text", Text(""), "60"},
		{"a", Text("a"), "6161"},
		{"IETF", Text("IETF"), "6449455446"},
		{"escapes", Text("\"\\"), "62225c"},
		{"u umlaut", Text("ü"), "62c3bc"},
		{"water", Text("水"), "63e6b0b4"},
		{"empty array", Array{}, "80"},
		{"[1,2,3]", Array{Unsigned(1), Unsigned(2), Unsigned(3)}, "83010203"},
		{"nested arrays", Array{Unsigned(1), Array{Unsigned(2), Unsigned(3)}, Array{Unsigned(4), Unsigned(5)}}, "8301820203820405"},
		{"25 elements", seq, "98190102030405060708090a0b0c0d0e0f101112131415161718181819"},
		{"empty map", Map{}, "a0"},
		{"{1:2,3:4}", Map{{Unsigned(1), Unsigned(2)}, {Unsigned(3), Unsigned(4)}}, "a201020304"},
		{"text keys", Map{
			{Text("a"), Unsigned(1)},
			{Text("b"), Array{Unsigned(2), Unsigned(3)}},
		}, "a26161016162820203"},
		{"array holding map", Array{Text("a"), Map{{Text("b"), Text("c")}}}, "826161a161626163"},
		{"five pairs", Map{
			{Text("a"), Text("A")},
			{Text("b"), Text("B")},
			{Text("c"), Text("C")},
			{Text("d"), Text("D")},
			{Text("e"), Text("E")},
		}, "a56161614161626142616361436164614461656145"},
	}
}

func TestEncodeRFCVectors(t *testing.T) {
	for _, tt := range rfcVectors(t) {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.hex, hex.EncodeToString(Encode(tt.value)))
		})
	}
}

func TestEncodeCanonicalMapOrder(t *testing.T) {
	forward := Map{
		{Text("a"), Unsigned(1)},
		{Unsigned(10), Unsigned(2)},
		{Int(-1), Unsigned(3)},
	}
	reversed := Map{forward[2], forward[1], forward[0]}
	rotated := Map{forward[1], forward[2], forward[0]}

	want := "a30a0220036161" + "01"
	assert.Equal(t, want, hex.EncodeToString(Encode(forward)))
	assert.Equal(t, want, hex.EncodeToString(Encode(reversed)))
	assert.Equal(t, want, hex.EncodeToString(Encode(rotated)))
}

func TestEncodeMapSortsBytewiseNotLengthFirst(t *testing.T) {
	// 100 encodes as 1864 and "b" as 6162; a length-first sort would put
	// the text key first.
	m := Map{
		{Text("b"), Null{}},
		{Unsigned(100), Null{}},
		{Text("aa"), Null{}},
	}
	assert.Equal(t, "a31864f66162f6626161f6", hex.EncodeToString(Encode(m)))
}

func TestEncodeMapKeepsDuplicates(t *testing.T) {
	m := Map{
		{Unsigned(1), Text("x")},
		{Unsigned(0), Null{}},
		{Unsigned(1), Text("y")},
	}
	assert.Equal(t, "a300f6016178016179", hex.EncodeToString(Encode(m)))
}

func TestEncodeNestedMapsCanonical(t *testing.T) {
	inner1 := Map{{Unsigned(2), Unsigned(0)}, {Unsigned(1), Unsigned(0)}}
	inner2 := Map{{Unsigned(1), Unsigned(0)}, {Unsigned(2), Unsigned(0)}}
	a := Array{Tagged{Number: 6, Content: inner1}}
	b := Array{Tagged{Number: 6, Content: inner2}}
	assert.Equal(t, Encode(a), Encode(b))
}

func TestEncodeIndefiniteContainers(t *testing.T) {
	em, err := EncOptions{IndefLength: IndefLengthContainers}.EncMode()
	require.NoError(t, err)

	tests := []struct {
		name  string
		value Value
		hex   string
	}{
		{"empty array", Array{}, "9fff"},
		{"array", Array{Unsigned(1), Array{Unsigned(2), Unsigned(3)}}, "9f019f0203ffff"},
		{"map", Map{{Text("b"), Unsigned(2)}, {Text("a"), Unsigned(1)}}, "bf616101616202ff"},
		{"strings stay definite", Array{Text("ab"), Bytes{0x01}}, "9f62616241" + "01ff"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.hex, hex.EncodeToString(em.Encode(tt.value)))
		})
	}
	assert.Equal(t, IndefLengthContainers, em.EncOptions().IndefLength)
}

func TestEncOptionsInvalid(t *testing.T) {
	_, err := EncOptions{IndefLength: IndefLengthMode(42)}.EncMode()
	assert.Error(t, err)
}

func TestEncodeAppend(t *testing.T) {
	em, err := EncOptions{}.EncMode()
	require.NoError(t, err)

	dst := []byte{0xaa}
	dst = em.Append(dst, Unsigned(1))
	dst = em.Append(dst, Text("a"))
	assert.Equal(t, []byte{0xaa, 0x01, 0x61, 0x61}, dst)
}

func TestEncodeNilAsNull(t *testing.T) {
	assert.Equal(t, []byte{0x81, 0xf6}, Encode(Array{nil}))
}

func TestIntSplitsSign(t *testing.T) {
	assert.Equal(t, Unsigned(0), Int(0))
	assert.Equal(t, Unsigned(math.MaxInt64), Int(math.MaxInt64))
	assert.Equal(t, Negative(0), Int(-1))
	assert.Equal(t, Negative(math.MaxInt64), Int(math.MinInt64))
}

func TestNegativeInt64(t *testing.T) {
	v, ok := Negative(99).Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(-100), v)

	v, ok = Negative(math.MaxInt64).Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(math.MinInt64), v)

	_, ok = Negative(math.MaxInt64 + 1).Int64()
	assert.False(t, ok)
}

func TestNewSimpleRejectsReservedCodes(t *testing.T) {
	for code := 0; code < 256; code++ {
		_, err := NewSimple(uint8(code))
		if code >= 20 && code <= 31 {
			assert.ErrorIs(t, err, ErrInvalidSimpleValue, "code %d", code)
		} else {
			assert.NoError(t, err, "code %d", code)
		}
	}
}

func TestCanonicalSortsMaps(t *testing.T) {
	v := Array{Map{{Unsigned(3), Unsigned(4)}, {Unsigned(1), Map{{Text("z"), Null{}}, {Text("a"), Null{}}}}}}
	want := Array{Map{{Unsigned(1), Map{{Text("a"), Null{}}, {Text("z"), Null{}}}}, {Unsigned(3), Unsigned(4)}}}
	assert.True(t, Equal(Canonical(v), want), "got %s", Canonical(v))
}

func TestCanonicalFollowsMode(t *testing.T) {
	v := Map{
		{Array{Unsigned(1)}, Text("short")},
		{Array{Unsigned(1), Unsigned(2)}, Text("long")},
	}
	em, err := EncOptions{IndefLength: IndefLengthContainers}.EncMode()
	require.NoError(t, err)

	// 0x81 sorts before 0x82, but the break byte 0xff sorts after 0x02.
	assert.Equal(t, `{[1]: "short", [1, 2]: "long"}`, Canonical(v).String())
	assert.Equal(t, `{[1, 2]: "long", [1]: "short"}`, em.Canonical(v).String())

	got, err := Decode(em.Encode(v))
	require.NoError(t, err)
	assert.True(t, Equal(got, em.Canonical(v)), "got %s", got)
	assert.False(t, Equal(got, Canonical(v)))
}

func TestDigestIgnoresInsertionOrder(t *testing.T) {
	a := Map{{Text("x"), Unsigned(1)}, {Text("y"), Unsigned(2)}}
	b := Map{{Text("y"), Unsigned(2)}, {Text("x"), Unsigned(1)}}
	c := Map{{Text("y"), Unsigned(2)}, {Text("x"), Unsigned(3)}}

	assert.Equal(t, Digest(a), Digest(b))
	assert.NotEqual(t, Digest(a), Digest(c))
}
