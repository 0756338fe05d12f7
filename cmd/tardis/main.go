// Command tardis packs one or more native ELF executables into a single
// self-extracting ELF that reconstitutes and runs each guest entirely
// in memory.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/kernelmethod/tardis-go/cmd/tardis/embedded"
	"github.com/kernelmethod/tardis-go/internal/logger"
)

const usage = `Usage:
    tardis pack -o OUTPUT GUEST [GUEST ...]
    tardis inspect [--json] CONTAINER

Commands:
    pack      Pack one or more guest executables into a self-extracting
              container. Guests are started in the order given; with
              more than one, each runs in its own forked process and
              the order in which they run is not defined.
    inspect   Print the manifest layout of a previously packed container
              without running any of the guests it holds.

Options (pack):
    -o, --output PATH   Output container path (required).

Options (inspect):
    --json              Print the layout as machine-readable JSON.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "pack":
		runPack(os.Args[2:])
	case "inspect":
		runInspect(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
	default:
		fmt.Fprintf(os.Stderr, "tardis: unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(1)
	}
}

func runPack(args []string) {
	fs := flag.NewFlagSet("pack", flag.ExitOnError)
	output := fs.String("o", "", "output container path")
	fs.StringVar(output, "output", "", "output container path")
	fs.Parse(args)

	guests := fs.Args()
	if *output == "" || len(guests) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	if err := pack(embedded.Loader, guests, *output); err != nil {
		logger.Global.Errorf("%v", err)
	}
}

func runInspect(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "print the layout as machine-readable JSON")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	if err := inspectContainer(fs.Arg(0), *asJSON); err != nil {
		logger.Global.Errorf("%v", err)
	}
}
