package commands

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/mash-protocol/mash-cbor/pkg/cbor"
)

// lineReader is the part of *readline.Instance the REPL uses.
type lineReader interface {
	Readline() (string, error)
	Close() error
}

// RunRepl starts an interactive session that decodes hex input.
func RunRepl(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("repl", stderr)
	maxDepth := fs.Int("max-depth", cbor.DefaultMaxNestedLevels, "Maximum nesting depth (4-65535)")
	if ok, code := parseFlags(fs, args, printReplUsage, stdout, stderr); !ok {
		return code
	}

	dm, err := cbor.DecOptions{MaxNestedLevels: *maxDepth}.DecMode()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCommandError
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "cbor> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdout:          stdout,
		Stderr:          stderr,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to create readline: %v\n", err)
		return exitCommandError
	}

	newRepl(rl, dm, stdout).run()
	return exitSuccess
}

type repl struct {
	in  lineReader
	dm  cbor.DecMode
	out io.Writer
}

func newRepl(in lineReader, dm cbor.DecMode, out io.Writer) *repl {
	return &repl{in: in, dm: dm, out: out}
}

// run reads commands until EOF or "exit".
func (r *repl) run() {
	defer r.in.Close()

	r.printHelp()

	for {
		line, err := r.in.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		cmd, rest, _ := strings.Cut(input, " ")
		switch strings.ToLower(cmd) {
		case "help", "?":
			r.printHelp()
		case "exit", "quit", "q":
			return
		case "unwrap", "u":
			r.cmdUnwrap(rest)
		case "digest", "d":
			r.cmdDigest(rest)
		case "canon", "c":
			r.cmdCanonical(rest)
		default:
			r.cmdView(input)
		}
	}
}

func (r *repl) decodeAll(hexInput string) ([]cbor.Value, bool) {
	data, err := parseHex(hexInput)
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
		return nil, false
	}
	var items []cbor.Value
	for len(data) > 0 {
		v, rest, err := r.dm.DecodeFirst(data)
		if err != nil {
			fmt.Fprintf(r.out, "Error: %v\n", err)
			return nil, false
		}
		items = append(items, v)
		data = rest
	}
	if len(items) == 0 {
		fmt.Fprintln(r.out, "Error: no input")
		return nil, false
	}
	return items, true
}

func (r *repl) cmdView(input string) {
	items, ok := r.decodeAll(input)
	if !ok {
		return
	}
	for _, v := range items {
		fmt.Fprintln(r.out, cbor.Diagnose(v))
	}
}

func (r *repl) cmdUnwrap(input string) {
	data, err := parseHex(input)
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
		return
	}
	v, err := r.dm.UnwrapAndDecode(data)
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(r.out, cbor.Diagnose(v))
}

func (r *repl) cmdDigest(input string) {
	items, ok := r.decodeAll(input)
	if !ok {
		return
	}
	for _, v := range items {
		sum := cbor.Digest(v)
		fmt.Fprintln(r.out, hex.EncodeToString(sum[:]))
	}
}

func (r *repl) cmdCanonical(input string) {
	items, ok := r.decodeAll(input)
	if !ok {
		return
	}
	for _, v := range items {
		fmt.Fprintln(r.out, hex.EncodeToString(cbor.Encode(v)))
	}
}

func (r *repl) printHelp() {
	fmt.Fprintln(r.out, `Enter hex-encoded CBOR to see it in diagnostic notation.

Commands:
  <hex>            Decode and print every item
  unwrap <hex>     Decode the CBOR embedded in a tag-24 item
  digest <hex>     BLAKE2b-256 of each item's canonical encoding
  canon <hex>      Re-encode each item canonically
  help             Show this help
  exit             Leave the session`)
}

func printReplUsage(w io.Writer) {
	fmt.Fprintln(w, `
Usage: mash-cbor repl [options]

Starts an interactive session that decodes hex-encoded CBOR.

Options:
  --max-depth N    Maximum nesting depth [default: 32]`)
}
