// Command mash-cbor inspects and produces CBOR data (RFC 8949) and CBOR
// sequence files (RFC 8742).
//
// Usage:
//
//	mash-cbor <command> [flags] [file]
//
// Commands:
//
//	view     Print items in diagnostic notation
//	stats    Show statistics about a sequence
//	unwrap   Decode the CBOR embedded in tag-24 items
//	encode   Convert YAML documents to CBOR
//	digest   Print a BLAKE2b-256 digest per item
//	repl     Interactive hex decoder
//
// Examples:
//
//	# View a sequence file
//	mash-cbor view items.cbor
//
//	# Decode a hex string
//	mash-cbor view --hex a26161016162820203
//
//	# Build a compressed sequence file from YAML
//	mash-cbor encode -o items.cbor.zst docs.yaml
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mash-protocol/mash-cbor/cmd/mash-cbor/commands"
)

const version = "0.1.0"

const (
	exitSuccess      = 0
	exitCommandError = 1
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return exitCommandError
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "view":
		return commands.RunView(args, stdout, stderr)
	case "stats":
		return commands.RunStats(args, stdout, stderr)
	case "unwrap":
		return commands.RunUnwrap(args, stdout, stderr)
	case "encode":
		return commands.RunEncode(args, stdout, stderr)
	case "digest":
		return commands.RunDigest(args, stdout, stderr)
	case "repl":
		return commands.RunRepl(args, stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return exitSuccess
	case "version", "--version":
		fmt.Fprintf(stdout, "mash-cbor version %s\n", version)
		return exitSuccess
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", cmd)
		printUsage(stderr)
		return exitCommandError
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `mash-cbor - CBOR inspection and conversion tool

Usage:
  mash-cbor <command> [options] [file]

Commands:
  view     Print items in diagnostic notation
  stats    Show statistics about a sequence
  unwrap   Decode the CBOR embedded in tag-24 items
  encode   Convert YAML documents to CBOR
  digest   Print a BLAKE2b-256 digest per item
  repl     Interactive hex decoder

Options:
  -h, --help     Show this help message
  --version      Show version information

Commands read stdin when no file is given. Files ending in .zst are
zstd compressed.

For command-specific help, run:
  mash-cbor <command> --help`)
}
