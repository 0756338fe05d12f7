// Command tardis-loader is the loader stub embedded at the start of
// every tardis container. It is never run directly by a user: the
// packer writes its compiled bytes to offset 0 of every packed file, so
// this binary is what actually executes when someone runs a packed
// executable.
//
// main only ever runs in the parent/single-guest path; anything after a
// fork in the multi-guest case is handled by internal/loader without
// going back through here.
package main

import (
	"fmt"
	"os"

	"github.com/kernelmethod/tardis-go/internal/loader"
)

func main() {
	self, err := loader.ReadSelf()
	if err != nil {
		die(err)
	}

	manifest, err := loader.DecodeManifest(self)
	if err != nil {
		die(err)
	}

	argv := loader.Argv(os.Args)
	envp := loader.Envp(os.Environ())

	if err := loader.Run(manifest, argv, envp); err != nil {
		die(err)
	}
}

// die is only reachable on the pre-fork / single-guest path: any
// failure in the loader is terminal, and a corrupted container must
// never be executed.
func die(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
