package seqfile

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/mash-protocol/mash-cbor/pkg/cbor"
)

// Filter selects items by their outermost header.
// Nil fields match all items.
type Filter struct {
	// Major matches items of this major type.
	Major *cbor.MajorType

	// Tag matches tagged items with this tag number.
	Tag *uint64
}

// matches returns true if v matches all filter criteria.
func (f *Filter) matches(v cbor.Value) bool {
	if f.Major != nil && v.MajorType() != *f.Major {
		return false
	}
	if f.Tag != nil {
		t, ok := v.(cbor.Tagged)
		if !ok || t.Number != *f.Tag {
			return false
		}
	}
	return true
}

// Reader iterates over the items of a sequence held in memory.
type Reader struct {
	data   []byte
	off    int
	last   int
	index  int
	dm     cbor.DecMode
	filter Filter
	err    error
}

// NewReader reads all items from the file at path.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{}, nil)
}

// NewFilteredReader reads the items of the file at path that match filter,
// decoding with dm (nil selects the default mode).
func NewFilteredReader(path string, filter Filter, dm cbor.DecMode) (*Reader, error) {
	data, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewBytesReader(data, filter, dm), nil
}

// NewBytesReader iterates over the items in data.
func NewBytesReader(data []byte, filter Filter, dm cbor.DecMode) *Reader {
	if dm == nil {
		dm, _ = cbor.DecOptions{}.DecMode()
	}
	return &Reader{data: data, dm: dm, filter: filter}
}

// ReadFile returns the raw sequence stored at path, decompressing .zst files.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ZstdExt) {
		return data, nil
	}
	zr, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer zr.Close()
	out, err := zr.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress %s: %w", path, err)
	}
	return out, nil
}

// Next returns the next item that matches the filter.
// Returns io.EOF when no more items are available. A decode error is
// returned again by every later call, since the sequence cannot be
// resynchronized past a malformed item.
func (r *Reader) Next() (cbor.Value, error) {
	for r.err == nil {
		if r.off >= len(r.data) {
			return nil, io.EOF
		}
		v, rest, err := r.dm.DecodeFirst(r.data[r.off:])
		if err != nil {
			r.err = fmt.Errorf("item %d at byte %d: %w", r.index, r.off, err)
			break
		}
		r.last = r.off
		r.off = len(r.data) - len(rest)
		r.index++

		if r.filter.matches(v) {
			return v, nil
		}
	}
	return nil, r.err
}

// Offset returns the byte offset of the item most recently decoded.
func (r *Reader) Offset() int {
	return r.last
}

// Raw returns the encoded bytes of the item most recently decoded, as
// stored in the file.
func (r *Reader) Raw() []byte {
	return r.data[r.last:r.off]
}

// Close releases the buffered file contents.
func (r *Reader) Close() error {
	r.data = nil
	r.off = 0
	r.last = 0
	return nil
}
