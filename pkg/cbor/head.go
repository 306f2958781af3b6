package cbor

import (
	"encoding/binary"
)

// Additional info values (low 5 bits of the header byte).
const (
	infoMaxInline  = 23 // 0-23: the argument itself
	infoUint8      = 24 // 1-byte argument follows
	infoUint16     = 25 // 2-byte argument follows
	infoUint32     = 26 // 4-byte argument follows
	infoUint64     = 27 // 8-byte argument follows
	infoIndefinite = 31 // indefinite length, or break for major type 7
)

// Simple values in major type 7.
const (
	simpleFalse     = 20
	simpleTrue      = 21
	simpleNull      = 22
	simpleUndefined = 23
	simpleOneByte   = 24
	simpleFloat16   = 25
	simpleFloat32   = 26
	simpleFloat64   = 27
)

// breakByte terminates an indefinite-length array or map.
const breakByte = 0xff

// makeByte creates a header byte from major type and additional info.
func makeByte(major MajorType, info uint8) byte {
	return byte(major)<<5 | info
}

// head is one parsed item header.
type head struct {
	major MajorType
	info  uint8
	// arg is the argument for info <= 27; zero for indefinite items.
	arg uint64
	// size is the number of bytes the header occupied.
	size int
}

func (h head) indefinite() bool {
	return h.info == infoIndefinite
}

// appendHead appends the header for major and arg using the shortest
// argument width that can hold arg.
func appendHead(dst []byte, major MajorType, arg uint64) []byte {
	return appendHeadOrder(dst, binary.BigEndian, major, arg)
}

// appendHeadOrder is appendHead with an explicit byte order for the
// follow-on bytes. CBOR itself is always big-endian; the parameter keeps
// every conversion explicit instead of depending on the host order.
func appendHeadOrder(dst []byte, order binary.AppendByteOrder, major MajorType, arg uint64) []byte {
	switch {
	case arg <= infoMaxInline:
		return append(dst, makeByte(major, uint8(arg)))
	case arg <= 0xff:
		return append(dst, makeByte(major, infoUint8), byte(arg))
	case arg <= 0xffff:
		return order.AppendUint16(append(dst, makeByte(major, infoUint16)), uint16(arg))
	case arg <= 0xffffffff:
		return order.AppendUint32(append(dst, makeByte(major, infoUint32)), uint32(arg))
	default:
		return order.AppendUint64(append(dst, makeByte(major, infoUint64)), arg)
	}
}

// headSize returns the number of bytes appendHead produces for arg.
func headSize(arg uint64) int {
	switch {
	case arg <= infoMaxInline:
		return 1
	case arg <= 0xff:
		return 2
	case arg <= 0xffff:
		return 3
	case arg <= 0xffffffff:
		return 5
	default:
		return 9
	}
}

// readHead parses the header starting at data[off]. The argument may use
// any width the additional info allows; minimality is not required.
// Additional info 31 is returned as-is for the caller to interpret.
func readHead(data []byte, off int) (head, error) {
	return readHeadOrder(data, off, binary.BigEndian)
}

func readHeadOrder(data []byte, off int, order binary.ByteOrder) (head, error) {
	if off >= len(data) {
		return head{}, &SyntaxError{Offset: off, Err: ErrTruncatedInput}
	}
	b := data[off]
	h := head{
		major: MajorType(b >> 5),
		info:  b & 0x1f,
		size:  1,
	}
	rest := data[off+1:]

	switch {
	case h.info <= infoMaxInline:
		h.arg = uint64(h.info)
	case h.info == infoUint8:
		if len(rest) < 1 {
			return head{}, truncated(off, 2, len(data)-off)
		}
		h.arg = uint64(rest[0])
		h.size += 1
	case h.info == infoUint16:
		if len(rest) < 2 {
			return head{}, truncated(off, 3, len(data)-off)
		}
		h.arg = uint64(order.Uint16(rest))
		h.size += 2
	case h.info == infoUint32:
		if len(rest) < 4 {
			return head{}, truncated(off, 5, len(data)-off)
		}
		h.arg = uint64(order.Uint32(rest))
		h.size += 4
	case h.info == infoUint64:
		if len(rest) < 8 {
			return head{}, truncated(off, 9, len(data)-off)
		}
		h.arg = order.Uint64(rest)
		h.size += 8
	case h.info == infoIndefinite:
		// Caller decides whether indefinite is legal for the major type.
	default:
		return head{}, &SyntaxError{
			Offset: off,
			Err:    ErrReservedAdditionalInfo,
			Detail: additionalInfoDetail(h.info),
		}
	}
	return h, nil
}
