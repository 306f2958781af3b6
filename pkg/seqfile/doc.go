// Package seqfile reads and writes CBOR sequence files (RFC 8742).
//
// A sequence file is a plain concatenation of encoded items with no
// framing or header, so any number of writers can append to the same file
// over time and the result stays a valid sequence.
//
// # Basic Usage
//
//	w, _ := seqfile.NewWriter("/var/tmp/items.cbor", seqfile.Options{})
//	w.Write(cbor.Text("hello"))
//	w.Close()
//
//	r, _ := seqfile.NewReader("/var/tmp/items.cbor")
//	for {
//	    v, err := r.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    ...
//	}
//
// Items can be mirrored to the console while writing:
//
//	sink := seqfile.NewMultiSink(w, seqfile.NewSlogAdapter(slog.Default()))
//
// # Compression
//
// Files whose name ends in .zst are zstd compressed. Each Writer session
// adds one zstd frame; the Reader decompresses all frames before decoding.
package seqfile
