package commands

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mash-protocol/mash-cbor/pkg/cbor"
	"github.com/mash-protocol/mash-cbor/pkg/seqfile"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestRunEncode_HexOutput(t *testing.T) {
	path := writeYAML(t, `c: !hex 0102
a: 1
b: [true, null, -5]
---
!cbor/32 "http://x"
`)
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	exitCode := RunEncode([]string{path}, stdout, stderr)

	if exitCode != exitSuccess {
		t.Fatalf("expected exit code %d, got %d (stderr: %s)", exitSuccess, exitCode, stderr.String())
	}
	want := "a3616101616283f5f6246163420102\n" + "d82068687474703a2f2f78\n"
	if stdout.String() != want {
		t.Errorf("stdout = %q, want %q", stdout.String(), want)
	}
}

func TestDecodeYAMLScalars(t *testing.T) {
	tests := []struct {
		yaml string
		want string // hex
	}{
		{"0", "00"},
		{"1000000", "1a000f4240"},
		{"18446744073709551615", "1bffffffffffffffff"},
		{"18446744073709551616", "c249010000000000000000"},
		{"-18446744073709551617", "c349010000000000000000"},
		{"0x10", "10"},
		{"-1", "20"},
		{"1.5", "fb3ff8000000000000"},
		{"!float32 1.5", "fa3fc00000"},
		{".inf", "fb7ff0000000000000"},
		{"-.inf", "fbfff0000000000000"},
		{"true", "f5"},
		{"~", "f6"},
		{"!undefined ~", "f7"},
		{"!simple 16", "f0"},
		{"'quoted 1'", "6871756f7465642031"},
		{"\"1\"", "6131"},
		{"!!binary AQID", "43010203"},
		{"!hex 0x0a0b", "420a0b"},
		{"2013-03-21T20:04:00Z", "c11a514b67b0"},
		{"!cbor/1 1363896240", "c11a514b67b0"},
	}

	for _, tt := range tests {
		t.Run(tt.yaml, func(t *testing.T) {
			items, err := DecodeYAML(strings.NewReader(tt.yaml))
			if err != nil {
				t.Fatalf("DecodeYAML failed: %v", err)
			}
			if len(items) != 1 {
				t.Fatalf("got %d items, want 1", len(items))
			}
			got := hex.EncodeToString(cbor.Encode(items[0]))
			if got != tt.want {
				t.Errorf("encoded %s (%s), want %s", got, items[0], tt.want)
			}
		})
	}
}

func TestDecodeYAMLStructures(t *testing.T) {
	items, err := DecodeYAML(strings.NewReader(`
base: &base {x: 1}
copy: *base
list:
  - [1, 2]
  - {b: 2, a: 1}
1: integer key
`))
	if err != nil {
		t.Fatalf("DecodeYAML failed: %v", err)
	}
	want := `{"base": {"x": 1}, "copy": {"x": 1}, "list": [[1, 2], {"b": 2, "a": 1}], 1: "integer key"}`
	if got := items[0].String(); got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestDecodeYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"syntax", "a: [", "parse yaml"},
		{"bad hex", "!hex zz", "invalid hex"},
		{"bad tag number", "!cbor/x 1", "bad tag"},
		{"reserved simple", "!simple 24", "invalid simple value"},
		{"simple out of range", "!simple 256", "out of range"},
		{"bad binary", "!!binary '***'", "illegal base64"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeYAML(strings.NewReader(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

// nestedAliasYAML builds a document whose last anchor expands to
// width^levels scalars.
func nestedAliasYAML(levels, width int) string {
	var b strings.Builder
	b.WriteString("l0: &l0 [" + strings.TrimSuffix(strings.Repeat(`"lol",`, width), ",") + "]\n")
	for i := 1; i < levels; i++ {
		ref := fmt.Sprintf("*l%d,", i-1)
		fmt.Fprintf(&b, "l%d: &l%d [%s]\n", i, i, strings.TrimSuffix(strings.Repeat(ref, width), ","))
	}
	return b.String()
}

func TestDecodeYAMLExcessiveAliasing(t *testing.T) {
	doc := nestedAliasYAML(6, 10)

	_, err := DecodeYAML(strings.NewReader(doc))
	if !errors.Is(err, ErrExcessiveAliasing) {
		t.Fatalf("error = %v, want %v", err, ErrExcessiveAliasing)
	}

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	exitCode := RunEncode([]string{writeYAML(t, doc)}, stdout, stderr)
	if exitCode != exitDecodeError {
		t.Errorf("expected exit code %d, got %d", exitDecodeError, exitCode)
	}
	if stdout.Len() != 0 {
		t.Errorf("expected no output, got %d bytes", stdout.Len())
	}
}

func TestDecodeYAMLModestAliasing(t *testing.T) {
	items, err := DecodeYAML(strings.NewReader(nestedAliasYAML(2, 10)))
	if err != nil {
		t.Fatalf("DecodeYAML failed: %v", err)
	}
	m, ok := items[0].(cbor.Map)
	if !ok {
		t.Fatalf("got %T, want cbor.Map", items[0])
	}
	l1, ok := m.Get(cbor.Text("l1"))
	if !ok {
		t.Fatal("missing key l1")
	}
	if n := len(l1.(cbor.Array)); n != 10 {
		t.Errorf("l1 has %d elements, want 10", n)
	}
}

func TestDecodeYAMLEmpty(t *testing.T) {
	items, err := DecodeYAML(strings.NewReader(""))
	if err != nil {
		t.Fatalf("DecodeYAML failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("got %d items, want 0", len(items))
	}
}

func TestRunEncode_OutputFile(t *testing.T) {
	yamlPath := writeYAML(t, "a: 1\n---\n[x, y]\n")
	out := filepath.Join(t.TempDir(), "items.cbor.zst")

	for i := 0; i < 2; i++ {
		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}
		exitCode := RunEncode([]string{"-o", out, yamlPath}, stdout, stderr)
		if exitCode != exitSuccess {
			t.Fatalf("expected exit code %d, got %d (stderr: %s)", exitSuccess, exitCode, stderr.String())
		}
		if stdout.Len() != 0 {
			t.Errorf("expected no stdout with -o, got %q", stdout.String())
		}
	}

	r, err := seqfile.NewReader(out)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()

	var got []string
	for {
		v, err := r.Next()
		if err != nil {
			break
		}
		got = append(got, v.String())
	}
	want := []string{`{"a": 1}`, `["x", "y"]`, `{"a": 1}`, `["x", "y"]`}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("file items = %v, want %v", got, want)
	}
}

func TestRunEncode_Truncate(t *testing.T) {
	yamlPath := writeYAML(t, "1\n")
	out := filepath.Join(t.TempDir(), "items.cbor")
	if err := os.WriteFile(out, []byte{0x02, 0x03}, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	exitCode := RunEncode([]string{"--truncate", "-o", out, yamlPath}, &bytes.Buffer{}, &bytes.Buffer{})

	if exitCode != exitSuccess {
		t.Fatalf("expected exit code %d, got %d", exitSuccess, exitCode)
	}
	data, _ := os.ReadFile(out)
	if !bytes.Equal(data, []byte{0x01}) {
		t.Errorf("file = %x, want 01", data)
	}
}

func TestRunEncode_Indefinite(t *testing.T) {
	setStdin(t, []byte("x: [1]\n"))
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	exitCode := RunEncode([]string{"--indefinite"}, stdout, stderr)

	if exitCode != exitSuccess {
		t.Fatalf("expected exit code %d, got %d (stderr: %s)", exitSuccess, exitCode, stderr.String())
	}
	if stdout.String() != "bf61789f01ffff\n" {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestRunEncode_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantErr  string
	}{
		{"missing file", []string{filepath.Join(t.TempDir(), "nope.yaml")}, exitCommandError, "no such file"},
		{"two files", []string{"a.yaml", "b.yaml"}, exitCommandError, "unexpected argument"},
		{"bad yaml", []string{writeYAML(t, "a: [")}, exitDecodeError, "parse yaml"},
		{"bad output dir", []string{"-o", filepath.Join(t.TempDir(), "x", "y.cbor"), writeYAML(t, "1")}, exitCommandError, "no such file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout := &bytes.Buffer{}
			stderr := &bytes.Buffer{}

			exitCode := RunEncode(tt.args, stdout, stderr)

			if exitCode != tt.wantCode {
				t.Errorf("expected exit code %d, got %d", tt.wantCode, exitCode)
			}
			if !strings.Contains(stderr.String(), tt.wantErr) {
				t.Errorf("expected %q in stderr, got: %s", tt.wantErr, stderr.String())
			}
		})
	}
}

func TestRunEncode_Verbose(t *testing.T) {
	setStdin(t, []byte("[1, 2]\n"))
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	exitCode := RunEncode([]string{"-v"}, stdout, stderr)

	if exitCode != exitSuccess {
		t.Fatalf("expected exit code %d, got %d", exitSuccess, exitCode)
	}
	if stdout.String() != "820102\n" {
		t.Errorf("stdout = %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "len=2") {
		t.Errorf("expected item log in stderr, got: %s", stderr.String())
	}
}
