package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/kernelmethod/tardis-go/internal/inspect"
)

// inspectContainer prints a container's layout to stdout, either as
// the fixed human-readable text form or, if asJSON is set, as the
// machine-readable form of internal/inspect.Metadata.
func inspectContainer(path string, asJSON bool) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("inspect: read %s: %w", path, err)
	}

	meta, err := inspect.Inspect(b)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "    ")
		return enc.Encode(meta)
	}

	fmt.Printf("%s: %d bytes, loader %d bytes, %d resource(s)\n",
		path, meta.FileSize, meta.LoaderSize, meta.NResources)
	for i, r := range meta.Resources {
		fmt.Printf("  [%d] offset=%d on-disk=%d ciphertext=%d plaintext=%d\n",
			i, r.Offset, r.OnDiskSize, r.CiphertextLen, r.PlaintextLen)
	}
	return nil
}
