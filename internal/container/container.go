// Package container implements the tardis container format: a loader
// image, followed by a manifest of resources, followed by a fixed-size
// end marker. It is the single source of truth both the packer and the
// loader use to lay out and walk a packed file.
package container

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/kernelmethod/tardis-go/internal/codec"
)

// Magic identifies a tardis container. The last 20 bytes of a packed
// file are its end marker, which begins with this 4-byte sequence.
var Magic = [4]byte{'e', 't', 'a', 'r'}

// EndMarkerSize is the exact on-disk size of an EndMarker: 4 bytes of
// magic plus two 8-byte little-endian fields.
const EndMarkerSize = 4 + 8 + 8

// resourceHeaderSize is the on-disk size of a resource's length+key
// header, before the variable-length data field.
const resourceHeaderSize = 8 + codec.KeySize

// ErrBadMagic is returned by ParseEndMarker when the trailing 20 bytes
// don't begin with Magic; it means the file is not a tardis container.
var ErrBadMagic = errors.New("container: end marker magic mismatch")

// ErrTruncated is returned when a resource or the end marker is not
// fully present in the supplied bytes, or when a manifest walk does not
// end exactly where the end marker begins.
var ErrTruncated = errors.New("container: truncated resource or end marker")

// EndMarker locates the manifest within a container.
type EndMarker struct {
	ManifestStart uint64
	NResources    uint64
}

// SerializeEndMarker renders an EndMarker to its fixed 20-byte wire form.
// It never fails.
func SerializeEndMarker(m EndMarker) []byte {
	out := make([]byte, EndMarkerSize)
	copy(out[:4], Magic[:])
	binary.LittleEndian.PutUint64(out[4:12], m.ManifestStart)
	binary.LittleEndian.PutUint64(out[12:20], m.NResources)
	return out
}

// ParseEndMarker reads the trailing EndMarkerSize bytes of a container.
func ParseEndMarker(tail []byte) (EndMarker, error) {
	if len(tail) != EndMarkerSize {
		return EndMarker{}, fmt.Errorf("%w: end marker is %d bytes, want %d", ErrTruncated, len(tail), EndMarkerSize)
	}
	if string(tail[:4]) != string(Magic[:]) {
		return EndMarker{}, ErrBadMagic
	}
	return EndMarker{
		ManifestStart: binary.LittleEndian.Uint64(tail[4:12]),
		NResources:    binary.LittleEndian.Uint64(tail[12:20]),
	}, nil
}

// SerializeResource renders a resource to its on-disk form: an 8-byte
// little-endian length, the 32-byte key, then the ciphertext+tag data.
// length is the number of data bytes that follow the header, so the
// total on-disk size is 8 + 32 + length.
func SerializeResource(res codec.Resource) []byte {
	out := make([]byte, resourceHeaderSize+len(res.Data))
	binary.LittleEndian.PutUint64(out[:8], uint64(len(res.Data)))
	copy(out[8:resourceHeaderSize], res.Key[:])
	copy(out[resourceHeaderSize:], res.Data)
	return out
}

// ResourceSize returns the on-disk size of a serialized resource: the
// walk protocol advances the manifest cursor by exactly this many bytes
// per resource.
func ResourceSize(res codec.Resource) int {
	return resourceHeaderSize + len(res.Data)
}

// ParseResource reads one resource from b starting at offset, returning
// the decoded resource and the number of bytes consumed (the resource's
// on-disk size).
func ParseResource(b []byte, offset int) (codec.Resource, int, error) {
	if offset < 0 || offset+resourceHeaderSize > len(b) {
		return codec.Resource{}, 0, fmt.Errorf("%w: resource header at offset %d", ErrTruncated, offset)
	}
	header := b[offset : offset+resourceHeaderSize]
	length := binary.LittleEndian.Uint64(header[:8])

	dataStart := offset + resourceHeaderSize
	dataEnd := dataStart + int(length)
	if length > uint64(len(b)) || dataEnd > len(b) || dataEnd < dataStart {
		return codec.Resource{}, 0, fmt.Errorf("%w: resource data at offset %d (length %d)", ErrTruncated, offset, length)
	}

	var res codec.Resource
	copy(res.Key[:], header[8:resourceHeaderSize])
	res.Data = append([]byte(nil), b[dataStart:dataEnd]...)

	return res, resourceHeaderSize + int(length), nil
}

// Manifest is the ordered sequence of resources walked from
// EndMarker.ManifestStart.
type Manifest struct {
	Resources []codec.Resource
}

// WalkManifest parses n resources out of b starting at offset, the
// protocol both the loader and inspect follow (through Parse). It
// returns an error unless the walk consumes exactly the bytes between
// offset and the start of the end marker.
func WalkManifest(b []byte, offset int, n uint64) (Manifest, error) {
	endMarkerStart := len(b) - EndMarkerSize
	if endMarkerStart < 0 {
		return Manifest{}, fmt.Errorf("%w: file smaller than an end marker", ErrTruncated)
	}

	// Every resource occupies at least its header on disk, so a count
	// larger than this cannot be satisfied by b.
	if n > uint64(len(b))/resourceHeaderSize {
		return Manifest{}, fmt.Errorf("%w: %d resources cannot fit in %d bytes", ErrTruncated, n, len(b))
	}

	m := Manifest{Resources: make([]codec.Resource, 0, n)}
	cursor := offset
	for i := uint64(0); i < n; i++ {
		res, consumed, err := ParseResource(b, cursor)
		if err != nil {
			return Manifest{}, fmt.Errorf("resource %d: %w", i, err)
		}
		m.Resources = append(m.Resources, res)
		cursor += consumed
	}

	if cursor != endMarkerStart {
		return Manifest{}, fmt.Errorf("%w: manifest walk ended at %d, expected %d", ErrTruncated, cursor, endMarkerStart)
	}

	return m, nil
}

// Parse locates and walks the manifest of a full container image.
func Parse(b []byte) (Manifest, EndMarker, error) {
	if len(b) < EndMarkerSize {
		return Manifest{}, EndMarker{}, fmt.Errorf("%w: file smaller than an end marker", ErrTruncated)
	}
	marker, err := ParseEndMarker(b[len(b)-EndMarkerSize:])
	if err != nil {
		return Manifest{}, EndMarker{}, err
	}
	m, err := WalkManifest(b, int(marker.ManifestStart), marker.NResources)
	if err != nil {
		return Manifest{}, EndMarker{}, err
	}
	return m, marker, nil
}
