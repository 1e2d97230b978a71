// Command xcf is the toolbox front end: view, concat, fill-tags, and
// gtcheck subcommands over the XCF companion format, dispatched the
// way bgen's example/ tools parse their own flag.FlagSet per
// invocation rather than pulling in a subcommand framework.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/carbocation/pfx"
)

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "view":
		err = runView(os.Args[2:])
	case "concat":
		err = runConcat(os.Args[2:])
	case "fill-tags":
		err = runFillTags(os.Args[2:])
	case "gtcheck":
		err = runGtcheck(os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "xcf: unknown subcommand %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatalln(pfx.Err(err))
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: xcf <subcommand> [flags]

subcommands:
  view       decode a companion file to text, or re-encode it with --format {bcf|bg|bh|sg|sh|pp}
  concat     join non-overlapping or phase-overlapping shards (--naive|--ligate)
  fill-tags  compute and write per-site allele/genotype statistics
  gtcheck    compare two companion files site by site`)
}
