// Package commands implements the mash-cbor CLI commands.
package commands

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/mash-protocol/mash-cbor/pkg/cbor"
	"github.com/mash-protocol/mash-cbor/pkg/seqfile"
)

const (
	exitSuccess      = 0
	exitCommandError = 1
	exitDecodeError  = 2
)

// Stdin is read when a command gets no file argument or the file "-".
var Stdin io.Reader = os.Stdin

// inputFlags are shared by every command that reads CBOR.
type inputFlags struct {
	hex      string
	maxDepth int
	verbose  bool
}

func (f *inputFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.hex, "hex", "", "Read CBOR from this hex string instead of a file")
	fs.IntVar(&f.maxDepth, "max-depth", cbor.DefaultMaxNestedLevels, "Maximum nesting depth (4-65535)")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "Log each item to stderr")
}

// newFlagSet creates a flag set that reports errors instead of exiting.
func newFlagSet(name string, stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SortFlags = false
	return fs
}

// parseFlags parses args and reports whether the command should go on.
// code is the exit code to use when it should not.
func parseFlags(fs *pflag.FlagSet, args []string, usage func(io.Writer), stdout, stderr io.Writer) (ok bool, code int) {
	fs.Usage = func() {}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			usage(stdout)
			return false, exitSuccess
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		usage(stderr)
		return false, exitCommandError
	}
	return true, exitSuccess
}

// newLogger returns the operational logger for a command.
func newLogger(stderr io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
}

// decMode builds the decoder for the --max-depth flag.
func (f *inputFlags) decMode() (cbor.DecMode, error) {
	return cbor.DecOptions{MaxNestedLevels: f.maxDepth}.DecMode()
}

// loadInput returns the raw sequence named by --hex, a file argument or stdin.
func (f *inputFlags) loadInput(args []string) ([]byte, string, error) {
	if f.hex != "" {
		if len(args) > 0 {
			return nil, "", errors.New("--hex and a file argument are mutually exclusive")
		}
		data, err := parseHex(f.hex)
		if err != nil {
			return nil, "", err
		}
		return data, "hex", nil
	}
	if len(args) > 1 {
		return nil, "", fmt.Errorf("unexpected argument: %s", args[1])
	}
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(Stdin)
		if err != nil {
			return nil, "", fmt.Errorf("read stdin: %w", err)
		}
		return data, "stdin", nil
	}
	data, err := seqfile.ReadFile(args[0])
	if err != nil {
		return nil, "", err
	}
	return data, args[0], nil
}

// parseHex decodes hex, ignoring whitespace and an optional 0x prefix.
func parseHex(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return data, nil
}

// forEachItem decodes the sequence in data and calls fn for every item
// that matches filter. It returns exitDecodeError after printing a
// malformed item's error.
func forEachItem(data []byte, filter seqfile.Filter, dm cbor.DecMode, stderr io.Writer,
	fn func(r *seqfile.Reader, v cbor.Value) error) int {
	r := seqfile.NewBytesReader(data, filter, dm)
	defer r.Close()
	for {
		v, err := r.Next()
		if err == io.EOF {
			return exitSuccess
		}
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitDecodeError
		}
		if err := fn(r, v); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitCommandError
		}
	}
}
