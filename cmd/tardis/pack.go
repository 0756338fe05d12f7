package main

import (
	"fmt"
	"os"

	"github.com/kernelmethod/tardis-go/internal/codec"
	"github.com/kernelmethod/tardis-go/internal/container"
	"github.com/kernelmethod/tardis-go/internal/logger"
	"github.com/kernelmethod/tardis-go/internal/memlock"
)

// pack writes loader ‖ resources ‖ end marker to outputPath, one
// resource per entry in guestPaths, in order. The output's permission
// bits are copied from the first guest.
func pack(loader []byte, guestPaths []string, outputPath string) error {
	if len(guestPaths) == 0 {
		return fmt.Errorf("pack: no guest executables given")
	}

	if err := memlock.Lock(); err != nil {
		logger.Global.Warningf("%v", err)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("pack: create %s: %w", outputPath, err)
	}
	defer out.Close()

	if _, err := out.Write(loader); err != nil {
		return fmt.Errorf("pack: write loader: %w", err)
	}

	var guestsSize, origSize int
	for i, path := range guestPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("pack: read guest %s: %w", path, err)
		}
		origSize += len(data)

		res, err := codec.Encode(data)
		if err != nil {
			return fmt.Errorf("pack: encode guest %s: %w", path, err)
		}

		resBytes := container.SerializeResource(res)
		if _, err := out.Write(resBytes); err != nil {
			return fmt.Errorf("pack: write resource %d: %w", i, err)
		}
		guestsSize += len(resBytes)
	}

	marker := container.EndMarker{
		ManifestStart: uint64(len(loader)),
		NResources:    uint64(len(guestPaths)),
	}
	if _, err := out.Write(container.SerializeEndMarker(marker)); err != nil {
		return fmt.Errorf("pack: write end marker: %w", err)
	}

	if err := copyPermissions(guestPaths[0], outputPath); err != nil {
		return fmt.Errorf("pack: copy permissions from %s: %w", guestPaths[0], err)
	}

	outputSize := len(loader) + guestsSize + container.EndMarkerSize
	ratio := 100.0
	if origSize > 0 {
		ratio = float64(outputSize) / float64(origSize) * 100
	}
	fmt.Printf("Wrote %s (%.2f%% of input)\n", outputPath, ratio)
	return nil
}

func copyPermissions(srcPath, dstPath string) error {
	fi, err := os.Stat(srcPath)
	if err != nil {
		return err
	}
	return os.Chmod(dstPath, fi.Mode().Perm())
}
