// Package inspect reports structural metadata about a tardis container
// without executing it, for the packer CLI's "inspect" subcommand.
package inspect

import (
	"fmt"

	"github.com/kernelmethod/tardis-go/internal/codec"
	"github.com/kernelmethod/tardis-go/internal/container"
)

// Metadata summarizes a container's on-disk layout.
type Metadata struct {
	FileSize      int64          `json:"file_size"`
	ManifestStart uint64         `json:"manifest_start"`
	NResources    uint64         `json:"n_resources"`
	LoaderSize    int64          `json:"loader_size"`
	Resources     []ResourceInfo `json:"resources"`
}

// ResourceInfo summarizes one resource's on-disk footprint.
type ResourceInfo struct {
	Offset        int64 `json:"offset"`
	OnDiskSize    int64 `json:"on_disk_size"`
	CiphertextLen int64 `json:"ciphertext_len"`
	PlaintextLen  int64 `json:"plaintext_len"`
}

// Inspect parses the container held in b and reports its layout. It
// decodes each resource to report its true plaintext size, so a
// tampered or corrupted resource surfaces as an error here rather than
// being silently skipped.
func Inspect(b []byte) (*Metadata, error) {
	m, marker, err := container.Parse(b)
	if err != nil {
		return nil, fmt.Errorf("inspect: %w", err)
	}

	meta := &Metadata{
		FileSize:      int64(len(b)),
		ManifestStart: marker.ManifestStart,
		NResources:    marker.NResources,
		LoaderSize:    int64(marker.ManifestStart),
	}

	offset := int64(marker.ManifestStart)
	for i, res := range m.Resources {
		plain, err := codec.Decode(res)
		if err != nil {
			return nil, fmt.Errorf("inspect: resource %d: %w", i, err)
		}
		size := int64(container.ResourceSize(res))
		meta.Resources = append(meta.Resources, ResourceInfo{
			Offset:        offset,
			OnDiskSize:    size,
			CiphertextLen: int64(len(res.Data)),
			PlaintextLen:  int64(len(plain)),
		})
		offset += size
	}

	return meta, nil
}
