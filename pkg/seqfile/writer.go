package seqfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/mash-protocol/mash-cbor/pkg/cbor"
)

// ZstdExt marks a compressed sequence file.
const ZstdExt = ".zst"

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("seqfile: writer closed")

// Options configures a Writer.
type Options struct {
	// EncMode encodes each item. Nil selects the default definite-length mode.
	EncMode cbor.EncMode

	// Truncate discards existing content instead of appending.
	Truncate bool
}

// Writer appends CBOR items to a file.
// It is safe for concurrent use from multiple goroutines.
type Writer struct {
	file   *os.File
	out    io.Writer
	zw     *zstd.Encoder
	em     cbor.EncMode
	buf    []byte
	count  int
	mu     sync.Mutex
	closed bool
}

// NewWriter opens path for appending, creating it with permissions 0644
// if it doesn't exist.
func NewWriter(path string, opts Options) (*Writer, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if opts.Truncate {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_APPEND
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, err
	}

	em := opts.EncMode
	if em == nil {
		em, _ = cbor.EncOptions{}.EncMode()
	}
	w := &Writer{file: f, out: f, em: em}

	if strings.HasSuffix(path, ZstdExt) {
		w.zw, err = zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("zstd writer: %w", err)
		}
		w.out = w.zw
	}
	return w, nil
}

// Write appends the encoding of v.
func (w *Writer) Write(v cbor.Value) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}

	w.buf = w.em.Append(w.buf[:0], v)
	if _, err := w.out.Write(w.buf); err != nil {
		return fmt.Errorf("seqfile: write item %d: %w", w.count, err)
	}
	w.count++
	return nil
}

// Count returns the number of items written so far.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Close flushes any compressed data and closes the file.
// It is safe to call Close multiple times.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	var zerr error
	if w.zw != nil {
		zerr = w.zw.Close()
	}
	return errors.Join(zerr, w.file.Close())
}

// Compile-time interface satisfaction check.
var _ Sink = (*Writer)(nil)
