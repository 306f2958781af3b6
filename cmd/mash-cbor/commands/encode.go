package commands

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mash-protocol/mash-cbor/pkg/bridge"
	"github.com/mash-protocol/mash-cbor/pkg/cbor"
	"github.com/mash-protocol/mash-cbor/pkg/seqfile"
)

// YAML tags understood by encode beyond the YAML core schema.
const (
	yamlTagHex    = "!hex"     // byte string given as hex
	yamlTagPrefix = "!cbor/"   // !cbor/N wraps the node in tag N
	yamlTagF32    = "!float32" // single-precision float
	yamlTagSimple = "!simple"  // simple(N)
	yamlTagUndef  = "!undefined"
)

// ErrExcessiveAliasing is returned by DecodeYAML for documents whose
// aliases expand far beyond their written size.
var ErrExcessiveAliasing = errors.New("yaml: document contains excessive aliasing")

// EncodeOptions configures the encode command.
type EncodeOptions struct {
	Output     string
	Indefinite bool
	Truncate   bool
	Verbose    bool
}

// RunEncode converts the documents of a YAML file to CBOR items.
func RunEncode(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("encode", stderr)
	var opts EncodeOptions
	fs.StringVarP(&opts.Output, "output", "o", "", "Append items to this sequence file (default: hex to stdout)")
	fs.BoolVar(&opts.Indefinite, "indefinite", false, "Emit arrays and maps with indefinite length")
	fs.BoolVar(&opts.Truncate, "truncate", false, "Replace the output file instead of appending")
	fs.BoolVarP(&opts.Verbose, "verbose", "v", false, "Log each item to stderr")
	if ok, code := parseFlags(fs, args, printEncodeUsage, stdout, stderr); !ok {
		return code
	}

	var src io.Reader = Stdin
	if fs.NArg() > 1 {
		fmt.Fprintf(stderr, "Error: unexpected argument: %s\n", fs.Arg(1))
		return exitCommandError
	}
	if fs.NArg() == 1 && fs.Arg(0) != "-" {
		f, err := os.Open(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitCommandError
		}
		defer f.Close()
		src = f
	}

	items, err := DecodeYAML(src)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitDecodeError
	}

	encOpts := cbor.EncOptions{}
	if opts.Indefinite {
		encOpts.IndefLength = cbor.IndefLengthContainers
	}
	em, err := encOpts.EncMode()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCommandError
	}

	logger := newLogger(stderr, opts.Verbose)
	var sink seqfile.Sink
	if opts.Output != "" {
		w, err := seqfile.NewWriter(opts.Output, seqfile.Options{EncMode: em, Truncate: opts.Truncate})
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitCommandError
		}
		defer func() {
			if err := w.Close(); err != nil {
				fmt.Fprintf(stderr, "Error: %v\n", err)
			}
		}()
		sink = w
	} else {
		sink = &hexPrinter{w: stdout, em: em}
	}
	if opts.Verbose {
		sink = seqfile.NewMultiSink(sink, seqfile.NewSlogAdapter(logger))
	}

	for i, v := range items {
		if err := sink.Write(v); err != nil {
			fmt.Fprintf(stderr, "Error: document %d: %v\n", i, err)
			return exitCommandError
		}
	}
	logger.Debug("encoded documents", "count", len(items), "output", opts.Output)
	return exitSuccess
}

// hexPrinter writes one hex line per item.
type hexPrinter struct {
	w   io.Writer
	em  cbor.EncMode
	buf []byte
}

func (p *hexPrinter) Write(v cbor.Value) error {
	p.buf = p.em.Append(p.buf[:0], v)
	_, err := fmt.Fprintln(p.w, hex.EncodeToString(p.buf))
	return err
}

// DecodeYAML converts every document in r to a CBOR value. Mapping order
// is kept; the encoder sorts keys canonically anyway.
func DecodeYAML(r io.Reader) ([]cbor.Value, error) {
	dec := yaml.NewDecoder(r)
	var out []cbor.Value
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		var c yamlConverter
		v, err := c.value(&doc, 0)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", len(out), err)
		}
		out = append(out, v)
	}
}

// yamlConverter walks one document. It counts nodes the way yaml.v3's
// decoder does so that alias bombs fail instead of expanding.
type yamlConverter struct {
	nodes      int // nodes converted, aliases expanded included
	aliased    int // nodes converted inside an alias expansion
	aliasDepth int
}

// allowedAliasRatio is yaml.v3's limit on the share of nodes that may
// come from alias expansion, tightening as the document grows.
func allowedAliasRatio(nodes int) float64 {
	switch {
	case nodes <= 400_000:
		return 0.99
	case nodes >= 4_000_000:
		return 0.10
	default:
		return 0.10 + 0.89*(1-float64(nodes-400_000)/3_600_000)
	}
}

func (c *yamlConverter) value(n *yaml.Node, depth int) (cbor.Value, error) {
	if depth > cbor.DefaultMaxNestedLevels*4 {
		return nil, fmt.Errorf("line %d: yaml nests too deeply", n.Line)
	}
	c.nodes++
	if c.aliasDepth > 0 {
		c.aliased++
	}
	if c.aliased > 100 && c.nodes > 1000 && float64(c.aliased)/float64(c.nodes) > allowedAliasRatio(c.nodes) {
		return nil, fmt.Errorf("line %d: %w", n.Line, ErrExcessiveAliasing)
	}

	if strings.HasPrefix(n.Tag, yamlTagPrefix) {
		num, err := strconv.ParseUint(strings.TrimPrefix(n.Tag, yamlTagPrefix), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad tag %q", n.Line, n.Tag)
		}
		inner := *n
		inner.Tag = ""
		content, err := c.value(&inner, depth+1)
		if err != nil {
			return nil, err
		}
		return cbor.Tagged{Number: num, Content: content}, nil
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return cbor.Null{}, nil
		}
		return c.value(n.Content[0], depth)
	case yaml.AliasNode:
		c.aliasDepth++
		v, err := c.value(n.Alias, depth+1)
		c.aliasDepth--
		return v, err
	case yaml.SequenceNode:
		arr := make(cbor.Array, len(n.Content))
		for i, elem := range n.Content {
			v, err := c.value(elem, depth+1)
			if err != nil {
				return nil, err
			}
			arr[i] = v
		}
		return arr, nil
	case yaml.MappingNode:
		m := make(cbor.Map, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, err := c.value(n.Content[i], depth+1)
			if err != nil {
				return nil, err
			}
			v, err := c.value(n.Content[i+1], depth+1)
			if err != nil {
				return nil, err
			}
			m = append(m, cbor.Pair{Key: k, Value: v})
		}
		return m, nil
	case yaml.ScalarNode:
		return yamlScalar(n)
	}
	return nil, fmt.Errorf("line %d: unsupported yaml node kind %d", n.Line, n.Kind)
}

func yamlScalar(n *yaml.Node) (cbor.Value, error) {
	switch n.Tag {
	case yamlTagHex:
		b, err := parseHex(n.Value)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return cbor.Bytes(b), nil
	case yamlTagF32:
		f, err := strconv.ParseFloat(n.Value, 32)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return cbor.Float32(f), nil
	case yamlTagSimple:
		code, err := strconv.ParseUint(n.Value, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		s, err := cbor.NewSimple(uint8(code))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return s, nil
	case yamlTagUndef:
		return cbor.Undefined{}, nil
	}

	switch n.ShortTag() {
	case "!!binary":
		b, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(n.Value), ""))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return cbor.Bytes(b), nil
	case "!!str":
		return cbor.Text(n.Value), nil
	case "!!float":
		// YAML resolves integers beyond 64 bits as floats.
		if b, ok := parseBigInt(n.Value); ok {
			return bridge.FromNative(b)
		}
		return yamlFloat(n)
	case "!!timestamp":
		var t time.Time
		if err := n.Decode(&t); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return bridge.FromNative(t)
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return cbor.Int(i), nil
		}
		var u uint64
		if err := n.Decode(&u); err == nil {
			return cbor.Unsigned(u), nil
		}
		b, ok := parseBigInt(n.Value)
		if !ok {
			return nil, fmt.Errorf("line %d: invalid integer %q", n.Line, n.Value)
		}
		return bridge.FromNative(b)
	}

	var x any
	if err := n.Decode(&x); err != nil {
		return nil, fmt.Errorf("line %d: %w", n.Line, err)
	}
	return bridge.FromNative(x)
}

// parseBigInt parses an integer literal of any size, with an optional
// 0x, 0o or 0b prefix.
func parseBigInt(s string) (*big.Int, bool) {
	s = strings.ReplaceAll(s, "_", "")
	if s == "" || strings.ContainsAny(s, ".eE") && !strings.ContainsAny(s, "xX") {
		return nil, false
	}
	return new(big.Int).SetString(s, 0)
}

func yamlFloat(n *yaml.Node) (cbor.Value, error) {
	switch strings.ToLower(n.Value) {
	case ".inf", "+.inf":
		return cbor.Float64(math.Inf(1)), nil
	case "-.inf":
		return cbor.Float64(math.Inf(-1)), nil
	case ".nan":
		return cbor.Float64(math.NaN()), nil
	}
	var f float64
	if err := n.Decode(&f); err != nil {
		return nil, fmt.Errorf("line %d: %w", n.Line, err)
	}
	return cbor.Float64(f), nil
}

func printEncodeUsage(w io.Writer) {
	fmt.Fprintln(w, `
Usage: mash-cbor encode [options] [file.yaml]

Converts each YAML document to one CBOR item. Reads stdin when no file
is given. Without -o, prints one hex line per item.

YAML tags:
  !hex 0102        byte string from hex (!!binary takes base64)
  !cbor/N VALUE    wrap VALUE in tag N
  !float32 1.5     single-precision float
  !simple 16       simple value
  !undefined ~     undefined
  timestamps       tag 1 epoch time

Options:
  -o, --output FILE   Append items to a sequence file (.zst compresses)
  --truncate          Replace the output file instead of appending
  --indefinite        Emit arrays and maps with indefinite length
  -v, --verbose       Log each item to stderr

Examples:
  mash-cbor encode doc.yaml
  mash-cbor encode -o items.cbor doc.yaml`)
}
