package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"

	"github.com/mash-protocol/mash-cbor/pkg/cbor"
	"github.com/mash-protocol/mash-cbor/pkg/seqfile"
)

// ViewOptions configures the view command.
type ViewOptions struct {
	Input   inputFlags
	Major   string  // major type name or number
	Tag     *uint64 // nil for any
	Offsets bool
	Raw     bool
}

// RunView prints every item of a sequence in diagnostic notation.
func RunView(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("view", stderr)
	var opts ViewOptions
	opts.Input.register(fs)
	fs.StringVar(&opts.Major, "major", "", "Only show items of this major type (name or 0-7)")
	var tag uint64
	fs.Uint64Var(&tag, "tag", 0, "Only show items with this tag number")
	fs.BoolVar(&opts.Offsets, "offsets", false, "Prefix each item with its byte offset")
	fs.BoolVar(&opts.Raw, "raw", false, "Print the encoded bytes after each item")
	if ok, code := parseFlags(fs, args, printViewUsage, stdout, stderr); !ok {
		return code
	}

	if fs.Changed("tag") {
		opts.Tag = &tag
	}

	filter, err := buildFilter(opts.Major, opts.Tag)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCommandError
	}
	dm, err := opts.Input.decMode()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCommandError
	}
	data, source, err := opts.Input.loadInput(fs.Args())
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCommandError
	}

	logger := newLogger(stderr, opts.Input.verbose)
	logger.Debug("viewing sequence", "source", source, "bytes", len(data))

	printer := &itemPrinter{w: stdout, offsets: opts.Offsets, raw: opts.Raw}
	var sink seqfile.Sink = printer
	if opts.Input.verbose {
		sink = seqfile.NewMultiSink(printer, seqfile.NewSlogAdapter(logger))
	}

	return forEachItem(data, filter, dm, stderr, func(r *seqfile.Reader, v cbor.Value) error {
		printer.offset = r.Offset()
		printer.encoded = r.Raw()
		return sink.Write(v)
	})
}

// buildFilter turns the --major and --tag flags into a seqfile.Filter.
func buildFilter(major string, tag *uint64) (seqfile.Filter, error) {
	var f seqfile.Filter
	if major != "" {
		m, err := parseMajorFlag(major)
		if err != nil {
			return f, err
		}
		f.Major = &m
	}
	f.Tag = tag
	return f, nil
}

func parseMajorFlag(s string) (cbor.MajorType, error) {
	if n, err := strconv.ParseUint(s, 10, 8); err == nil {
		if n > uint64(cbor.MajorSimple) {
			return 0, fmt.Errorf("major type %d out of range (0-7)", n)
		}
		return cbor.MajorType(n), nil
	}
	return cbor.ParseMajorType(s)
}

// itemPrinter writes one line per item.
type itemPrinter struct {
	w       io.Writer
	offsets bool
	raw     bool

	// Position of the item being written, set by the caller.
	offset  int
	encoded []byte
}

func (p *itemPrinter) Write(v cbor.Value) error {
	if p.offsets {
		fmt.Fprintf(p.w, "%08x  ", p.offset)
	}
	if _, err := fmt.Fprintln(p.w, cbor.Diagnose(v)); err != nil {
		return err
	}
	if p.raw {
		fmt.Fprintf(p.w, "  # %s\n", hex.EncodeToString(p.encoded))
	}
	return nil
}

func printViewUsage(w io.Writer) {
	fmt.Fprintln(w, `
Usage: mash-cbor view [options] [file]

Prints each item of a CBOR sequence in diagnostic notation. Reads stdin
when no file is given; files ending in .zst are decompressed.

Options:
  --hex STRING     Read CBOR from a hex string
  --major TYPE     Only show items of this major type (unsigned, negative,
                   bytes, text, array, map, tag, simple or 0-7)
  --tag N          Only show items with this tag number
  --offsets        Prefix each item with its byte offset
  --raw            Print the encoded bytes after each item
  --max-depth N    Maximum nesting depth [default: 32]
  -v, --verbose    Log each item to stderr

Examples:
  mash-cbor view items.cbor
  mash-cbor view --hex 83010203
  mash-cbor view --tag 1 --offsets items.cbor.zst`)
}
