package commands

import (
	"fmt"
	"io"

	"github.com/mash-protocol/mash-cbor/pkg/cbor"
	"github.com/mash-protocol/mash-cbor/pkg/seqfile"
)

// RunUnwrap decodes the CBOR embedded in each tag-24 item of a sequence.
func RunUnwrap(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("unwrap", stderr)
	var input inputFlags
	input.register(fs)
	if ok, code := parseFlags(fs, args, printUnwrapUsage, stdout, stderr); !ok {
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

	failed := false
	code := forEachItem(data, seqfile.Filter{}, dm, stderr, func(r *seqfile.Reader, _ cbor.Value) error {
		inner, err := dm.UnwrapAndDecode(r.Raw())
		if err != nil {
			// Keep going so every item gets reported.
			fmt.Fprintf(stderr, "Error: item at byte %d: %v\n", r.Offset(), err)
			failed = true
			return nil
		}
		logger.Debug("unwrapped", "offset", r.Offset(), "major", inner.MajorType().String())
		_, err = fmt.Fprintln(stdout, cbor.Diagnose(inner))
		return err
	})
	if code == exitSuccess && failed {
		return exitDecodeError
	}
	return code
}

func printUnwrapUsage(w io.Writer) {
	fmt.Fprintln(w, `
Usage: mash-cbor unwrap [options] [file]

Decodes the byte string inside each tag-24 (embedded CBOR) item and
prints the inner item in diagnostic notation.

Options:
  --hex STRING     Read CBOR from a hex string
  --max-depth N    Maximum nesting depth [default: 32]
  -v, --verbose    Log each item to stderr

Examples:
  mash-cbor unwrap --hex d818456449455446`)
}
