package commands

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/mash-protocol/mash-cbor/pkg/cbor"
	"github.com/mash-protocol/mash-cbor/pkg/seqfile"
)

// RunDigest prints the BLAKE2b-256 digest of each item's canonical encoding.
func RunDigest(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("digest", stderr)
	var input inputFlags
	input.register(fs)
	if ok, code := parseFlags(fs, args, printDigestUsage, stdout, stderr); !ok {
		return code
	}

	dm, err := input.decMode()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCommandError
	}
	data, _, err := input.loadInput(fs.Args())
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCommandError
	}
	logger := newLogger(stderr, input.verbose)

	index := 0
	return forEachItem(data, seqfile.Filter{}, dm, stderr, func(r *seqfile.Reader, v cbor.Value) error {
		sum := cbor.Digest(v)
		logger.Debug("digest", "offset", r.Offset(), "size", len(r.Raw()))
		_, err := fmt.Fprintf(stdout, "%s  item %d\n", hex.EncodeToString(sum[:]), index)
		index++
		return err
	})
}

func printDigestUsage(w io.Writer) {
	fmt.Fprintln(w, `
Usage: mash-cbor digest [options] [file]

Prints the BLAKE2b-256 digest of each item. Items are re-encoded in
canonical form first, so maps that differ only in key order get the
same digest.

Options:
  --hex STRING     Read CBOR from a hex string
  --max-depth N    Maximum nesting depth [default: 32]
  -v, --verbose    Log each item to stderr`)
}
