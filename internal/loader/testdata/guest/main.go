// Command guest is a test fixture, never shipped: internal/loader's and
// cmd/tardis's end-to-end tests build it with `go build` and pack it as
// an ordinary resource to stand in for a real guest executable. It
// exits with the status given as its first argument (0 if omitted),
// and if given a second argument, first appends its own pid to the
// file at that path — the end-to-end fork test uses this to tell two
// forked guests apart, since every guest in a manifest is started with
// the same argv.
package main

import (
	"fmt"
	"os"
	"strconv"
)

func main() {
	if len(os.Args) > 2 {
		if f, err := os.OpenFile(os.Args[2], os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			f.Close()
		}
	}

	code := 0
	if len(os.Args) > 1 {
		if n, err := strconv.Atoi(os.Args[1]); err == nil {
			code = n
		}
	}
	os.Exit(code)
}
