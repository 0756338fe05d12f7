// Package codec implements the resource codec: LZ4 compression and
// ChaCha20-Poly1305 authenticated encryption of a single opaque guest
// payload into a self-describing, tamper-evident resource.
package codec

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the length in bytes of a resource's symmetric key.
const KeySize = chacha20poly1305.KeySize

// Resource is a compressed, authenticated-encrypted container for exactly
// one guest. The key travels alongside the ciphertext: the AEAD provides
// integrity and tamper-evidence, not confidentiality against a holder of
// the container.
type Resource struct {
	Key  [KeySize]byte
	Data []byte // ciphertext of the size-prepended LZ4 block, plus the AEAD tag
}

// Sentinel errors identifying why Decode rejected a resource. Errors are
// compared with errors.Is, never by string matching.
var (
	ErrAuthFailure       = errors.New("codec: authentication failed, resource may be tampered with or corrupted")
	ErrDecompressFailure = errors.New("codec: malformed lz4 payload after successful authentication")
	ErrBadKey            = errors.New("codec: key has the wrong length")
)

// Encode compresses and seals plain into a new Resource with a freshly
// drawn key. It never fails on well-formed input.
func Encode(plain []byte) (Resource, error) {
	compressed, err := compressSizePrepended(plain)
	if err != nil {
		return Resource{}, fmt.Errorf("codec: compress: %w", err)
	}

	var res Resource
	if _, err := io.ReadFull(rand.Reader, res.Key[:]); err != nil {
		return Resource{}, fmt.Errorf("codec: generate key: %w", err)
	}

	aead, err := chacha20poly1305.New(res.Key[:])
	if err != nil {
		return Resource{}, fmt.Errorf("codec: init aead: %w", err)
	}

	nonce := soleNonce()
	res.Data = aead.Seal(nil, nonce[:], compressed, nil)
	return res, nil
}

// Decode authenticates, decrypts, and decompresses a Resource, returning
// the original plaintext guest bytes.
func Decode(res Resource) ([]byte, error) {
	aead, err := chacha20poly1305.New(res.Key[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadKey, err)
	}

	nonce := soleNonce()
	compressed, err := aead.Open(nil, nonce[:], res.Data, nil)
	if err != nil {
		return nil, ErrAuthFailure
	}

	plain, err := decompressSizePrepended(compressed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompressFailure, err)
	}
	return plain, nil
}

// soleNonce returns the single nonce ever emitted by a one-message
// nonce sequence: counter 0, last-chunk flag set. A resource is encrypted under
// a key used for exactly one message, so this is the only nonce a key
// will ever see; reusing the schedule across keys never reuses a nonce
// under the same key.
func soleNonce() [chacha20poly1305.NonceSize]byte {
	var nonce [chacha20poly1305.NonceSize]byte
	setCounter(&nonce, 0)
	setLastFlag(&nonce)
	return nonce
}

func setCounter(nonce *[chacha20poly1305.NonceSize]byte, counter uint64) {
	binary.BigEndian.PutUint64(nonce[3:11], counter)
}

func setLastFlag(nonce *[chacha20poly1305.NonceSize]byte) {
	nonce[len(nonce)-1] = 1
}

// compressSizePrepended LZ4 block-compresses data and prepends a 4-byte
// little-endian original-length header, the "size-prepended" framing the
// loader expects on decode.
func compressSizePrepended(data []byte) ([]byte, error) {
	bound := lz4.CompressBlockBound(len(data))
	out := make([]byte, 4+bound)
	binary.LittleEndian.PutUint32(out[:4], uint32(len(data)))

	if len(data) == 0 {
		return out[:4], nil
	}

	var c lz4.Compressor
	n, err := c.CompressBlock(data, out[4:])
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// lz4 reports n==0 when the input doesn't shrink; fall back to a
		// literals-only block (a standalone valid LZ4 sequence) so that
		// Encode never fails regardless of how incompressible the guest is.
		stored := literalBlock(data)
		n = copy(out[4:], stored)
	}
	return out[:4+n], nil
}

// literalBlock builds a minimal LZ4 block consisting of a single
// literals-only sequence, which the LZ4 block format permits as the final
// (and here only) sequence of a block.
func literalBlock(data []byte) []byte {
	lit := len(data)
	var hdr []byte
	if lit >= 15 {
		hdr = append(hdr, 0xF0)
		rem := lit - 15
		for rem >= 255 {
			hdr = append(hdr, 0xFF)
			rem -= 255
		}
		hdr = append(hdr, byte(rem))
	} else {
		hdr = append(hdr, byte(lit)<<4)
	}
	return append(hdr, data...)
}

func decompressSizePrepended(data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("frame too short: %d bytes", len(data))
	}
	originalLen := binary.LittleEndian.Uint32(data[:4])
	if originalLen == 0 {
		return []byte{}, nil
	}
	plain := make([]byte, originalLen)
	n, err := lz4.UncompressBlock(data[4:], plain)
	if err != nil {
		return nil, err
	}
	return plain[:n], nil
}
