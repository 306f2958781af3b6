package commands

import (
	"fmt"
	"io"
	"slices"

	"github.com/mash-protocol/mash-cbor/pkg/cbor"
	"github.com/mash-protocol/mash-cbor/pkg/seqfile"
)

// Stats holds aggregate statistics about a CBOR sequence.
type Stats struct {
	Items    int
	Bytes    int
	TopLevel map[cbor.MajorType]int // outermost items
	Nested   map[cbor.MajorType]int // every item at any depth
	Tags     map[uint64]int
	MaxDepth int
	Largest  int // encoded size of the largest item
}

func newStats() *Stats {
	return &Stats{
		TopLevel: make(map[cbor.MajorType]int),
		Nested:   make(map[cbor.MajorType]int),
		Tags:     make(map[uint64]int),
	}
}

// add records one top-level item of the given encoded size.
func (s *Stats) add(v cbor.Value, size int) {
	s.Items++
	s.Bytes += size
	s.Largest = max(s.Largest, size)
	s.TopLevel[v.MajorType()]++
	s.MaxDepth = max(s.MaxDepth, s.walk(v))
}

// walk counts v and its children and returns its nesting depth.
func (s *Stats) walk(v cbor.Value) int {
	s.Nested[v.MajorType()]++
	depth := 0
	switch x := v.(type) {
	case cbor.Array:
		for _, elem := range x {
			depth = max(depth, s.walk(elem))
		}
		return depth + 1
	case cbor.Map:
		for _, p := range x {
			depth = max(depth, s.walk(p.Key), s.walk(p.Value))
		}
		return depth + 1
	case cbor.Tagged:
		s.Tags[x.Number]++
		return s.walk(x.Content) + 1
	}
	return 0
}

// RunStats prints statistics about a sequence.
func RunStats(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("stats", stderr)
	var input inputFlags
	input.register(fs)
	if ok, code := parseFlags(fs, args, printStatsUsage, stdout, stderr); !ok {
		return code
	}

	dm, err := input.decMode()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCommandError
	}
	data, source, err := input.loadInput(fs.Args())
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCommandError
	}
	logger := newLogger(stderr, input.verbose)

	stats := newStats()
	code := forEachItem(data, seqfile.Filter{}, dm, stderr, func(r *seqfile.Reader, v cbor.Value) error {
		stats.add(v, len(r.Raw()))
		logger.Debug("item", "offset", r.Offset(), "major", v.MajorType().String(), "size", len(r.Raw()))
		return nil
	})
	if code != exitSuccess {
		return code
	}

	printStats(stdout, source, stats)
	return exitSuccess
}

func printStats(w io.Writer, source string, stats *Stats) {
	fmt.Fprintln(w, "=== CBOR Sequence Statistics ===")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Source:     %s\n", source)
	fmt.Fprintf(w, "Items:      %d\n", stats.Items)
	fmt.Fprintf(w, "Bytes:      %d\n", stats.Bytes)
	fmt.Fprintf(w, "Largest:    %d\n", stats.Largest)
	fmt.Fprintf(w, "Max depth:  %d\n", stats.MaxDepth)
	fmt.Fprintln(w)

	printMajorCounts(w, "Top-level items by major type:", stats.TopLevel)
	printMajorCounts(w, "All items by major type:", stats.Nested)

	if len(stats.Tags) > 0 {
		fmt.Fprintln(w, "Tags:")
		tags := make([]uint64, 0, len(stats.Tags))
		for tag := range stats.Tags {
			tags = append(tags, tag)
		}
		slices.Sort(tags)
		for _, tag := range tags {
			fmt.Fprintf(w, "  %-12d %d\n", tag, stats.Tags[tag])
		}
	}
}

func printMajorCounts(w io.Writer, title string, counts map[cbor.MajorType]int) {
	fmt.Fprintln(w, title)
	for m := cbor.MajorUnsigned; m <= cbor.MajorSimple; m++ {
		if count := counts[m]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", m.String()+":", count)
		}
	}
	fmt.Fprintln(w)
}

func printStatsUsage(w io.Writer) {
	fmt.Fprintln(w, `
Usage: mash-cbor stats [options] [file]

Counts items by major type and tag, and reports sizes and nesting depth.

Options:
  --hex STRING     Read CBOR from a hex string
  --max-depth N    Maximum nesting depth [default: 32]
  -v, --verbose    Log each item to stderr

Examples:
  mash-cbor stats items.cbor
  cat items.cbor | mash-cbor stats`)
}
