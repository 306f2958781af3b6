package seqfile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mash-protocol/mash-cbor/pkg/cbor"
)

func TestWriterCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.cbor")

	w, err := NewWriter(path, Options{})
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	defer w.Close()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("file not created: %v", err)
	}
}

func TestWriterWritesConcatenatedItems(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.cbor")

	w, err := NewWriter(path, Options{})
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	for _, v := range []cbor.Value{cbor.Unsigned(1), cbor.Text("a"), cbor.Array{cbor.Bool(true)}} {
		if err := w.Write(v); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if w.Count() != 3 {
		t.Errorf("Count() = %d, want 3", w.Count())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	want := []byte{0x01, 0x61, 0x61, 0x81, 0xf5}
	if !bytes.Equal(data, want) {
		t.Errorf("file = %x, want %x", data, want)
	}
}

func TestWriterAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.cbor")

	for i := 0; i < 2; i++ {
		w, err := NewWriter(path, Options{})
		if err != nil {
			t.Fatalf("NewWriter failed: %v", err)
		}
		w.Write(cbor.Unsigned(uint64(i)))
		w.Close()
	}

	data, _ := os.ReadFile(path)
	if !bytes.Equal(data, []byte{0x00, 0x01}) {
		t.Errorf("file = %x, want 0001", data)
	}

	w, err := NewWriter(path, Options{Truncate: true})
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	w.Write(cbor.Unsigned(9))
	w.Close()

	data, _ = os.ReadFile(path)
	if !bytes.Equal(data, []byte{0x09}) {
		t.Errorf("file after truncate = %x, want 09", data)
	}
}

func TestWriterUsesEncMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.cbor")
	em, err := cbor.EncOptions{IndefLength: cbor.IndefLengthContainers}.EncMode()
	if err != nil {
		t.Fatalf("EncMode failed: %v", err)
	}

	w, err := NewWriter(path, Options{EncMode: em})
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	w.Write(cbor.Array{cbor.Unsigned(1)})
	w.Close()

	data, _ := os.ReadFile(path)
	if !bytes.Equal(data, []byte{0x9f, 0x01, 0xff}) {
		t.Errorf("file = %x, want 9f01ff", data)
	}
}

func TestWriterCompressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.cbor"+ZstdExt)

	// Two sessions produce two zstd frames.
	for session := 0; session < 2; session++ {
		w, err := NewWriter(path, Options{})
		if err != nil {
			t.Fatalf("NewWriter failed: %v", err)
		}
		for i := 0; i < 100; i++ {
			if err := w.Write(cbor.Text("repeated payload")); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
		}
		if err := w.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}

	raw, _ := os.ReadFile(path)
	data, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(data) != 200*17 {
		t.Fatalf("decompressed %d bytes, want %d", len(data), 200*17)
	}
	if len(raw) >= len(data) {
		t.Errorf("compressed size %d not smaller than %d", len(raw), len(data))
	}

	items, err := cbor.DecodeAll(data)
	if err != nil {
		t.Fatalf("DecodeAll failed: %v", err)
	}
	if len(items) != 200 {
		t.Errorf("got %d items, want 200", len(items))
	}
}

func TestWriterThreadSafe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.cbor")

	w, err := NewWriter(path, Options{})
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}

	const goroutines = 10
	const perGoroutine = 100

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				w.Write(cbor.Array{cbor.Unsigned(uint64(id)), cbor.Unsigned(uint64(i)), cbor.Text("payload")})
			}
		}(g)
	}
	wg.Wait()
	w.Close()

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()

	n := 0
	for {
		_, err := r.Next()
		if err != nil {
			break
		}
		n++
	}
	if n != goroutines*perGoroutine {
		t.Errorf("read %d items, want %d", n, goroutines*perGoroutine)
	}
}

func TestWriterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.cbor")

	w, err := NewWriter(path, Options{})
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if err := w.Write(cbor.Null{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Write after Close = %v, want ErrClosed", err)
	}
}

func TestNewWriterBadPath(t *testing.T) {
	_, err := NewWriter(filepath.Join(t.TempDir(), "missing", "items.cbor"), Options{})
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}
