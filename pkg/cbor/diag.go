package cbor

import (
	"encoding/hex"
	"math"
	"strconv"
	"strings"
)

// Diagnose returns the diagnostic notation of v (RFC 8949 §8), for
// example `[1, "a", {h'00': null}]`.
func Diagnose(v Value) string {
	var sb strings.Builder
	writeDiag(&sb, v)
	return sb.String()
}

// DiagnoseBytes decodes every item of the CBOR sequence in data and
// returns their diagnostic notation separated by ", ".
func DiagnoseBytes(data []byte) (string, error) {
	items, err := DecodeAll(data)
	if err != nil {
		return "", err
	}
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = Diagnose(item)
	}
	return strings.Join(parts, ", "), nil
}

func writeDiag(sb *strings.Builder, v Value) {
	switch x := v.(type) {
	case Unsigned:
		sb.WriteString(strconv.FormatUint(uint64(x), 10))
	case Negative:
		if uint64(x) == math.MaxUint64 {
			sb.WriteString("-18446744073709551616")
			return
		}
		sb.WriteByte('-')
		sb.WriteString(strconv.FormatUint(uint64(x)+1, 10))
	case Bytes:
		sb.WriteString("h'")
		sb.WriteString(hex.EncodeToString(x))
		sb.WriteByte('\'')
	case Text:
		writeQuoted(sb, string(x))
	case Array:
		sb.WriteByte('[')
		for i, elem := range x {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeDiag(sb, elem)
		}
		sb.WriteByte(']')
	case Map:
		sb.WriteByte('{')
		for i, p := range x {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeDiag(sb, p.Key)
			sb.WriteString(": ")
			writeDiag(sb, p.Value)
		}
		sb.WriteByte('}')
	case Tagged:
		sb.WriteString(strconv.FormatUint(x.Number, 10))
		sb.WriteByte('(')
		writeDiag(sb, x.Content)
		sb.WriteByte(')')
	case Bool:
		sb.WriteString(strconv.FormatBool(bool(x)))
	case Null, nil:
		sb.WriteString("null")
	case Undefined:
		sb.WriteString("undefined")
	case Float32:
		writeFloat(sb, float64(x), 32)
	case Float64:
		writeFloat(sb, float64(x), 64)
	case Simple:
		sb.WriteString("simple(")
		sb.WriteString(strconv.Itoa(int(x.code)))
		sb.WriteByte(')')
	}
}

func writeFloat(sb *strings.Builder, f float64, bitSize int) {
	switch {
	case math.IsNaN(f):
		sb.WriteString("NaN")
		return
	case math.IsInf(f, 1):
		sb.WriteString("Infinity")
		return
	case math.IsInf(f, -1):
		sb.WriteString("-Infinity")
		return
	}
	s := strconv.FormatFloat(f, 'g', -1, bitSize)
	// Always show a fraction so floats read differently from integers.
	if !strings.ContainsRune(s, '.') {
		if i := strings.IndexByte(s, 'e'); i >= 0 {
			s = s[:i] + ".0" + s[i:]
		} else {
			s += ".0"
		}
	}
	sb.WriteString(s)
}

const lowerhex = "0123456789abcdef"

// writeQuoted writes s as a JSON-style string literal.
func writeQuoted(sb *strings.Builder, s string) {
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if r < 0x20 {
				sb.WriteString(`\u00`)
				sb.WriteByte(lowerhex[r>>4])
				sb.WriteByte(lowerhex[r&0xf])
				continue
			}
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
}
