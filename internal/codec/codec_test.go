package codec_test

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"testing"

	"github.com/kernelmethod/tardis-go/internal/codec"
)

func TestRoundTrip(t *testing.T) {
	for _, length := range []int{0, 1, 4, 1000, 64 * 1024, 64*1024 + 1} {
		length := length
		t.Run(fmt.Sprintf("len=%d", length), func(t *testing.T) {
			plain := make([]byte, length)
			if _, err := rand.Read(plain); err != nil {
				t.Fatal(err)
			}

			res, err := codec.Encode(plain)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			got, err := codec.Decode(res)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !bytes.Equal(got, plain) {
				t.Fatalf("round-trip mismatch: got %d bytes, want %d bytes", len(got), len(plain))
			}
		})
	}
}

func TestRoundTripLowEntropy(t *testing.T) {
	// A highly compressible (zero-filled) payload must survive
	// Encode/Decode; random payloads are covered by TestRoundTrip.
	zeros := make([]byte, 8192)
	res, err := codec.Encode(zeros)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := codec.Decode(res)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got, zeros) {
		t.Fatal("round-trip mismatch for zero-filled input")
	}
}

func TestDecodeTamperedDataFails(t *testing.T) {
	res, err := codec.Encode([]byte("hello, tardis"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	res.Data[0] ^= 0xFF
	if _, err := codec.Decode(res); err == nil {
		t.Fatal("expected Decode to fail after flipping a ciphertext bit")
	}
}

func TestDecodeTamperedKeyFails(t *testing.T) {
	res, err := codec.Encode([]byte("hello, tardis"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var otherKey [codec.KeySize]byte
	if _, err := rand.Read(otherKey[:]); err != nil {
		t.Fatal(err)
	}
	res.Key = otherKey
	if _, err := codec.Decode(res); err == nil {
		t.Fatal("expected Decode to fail after replacing the key")
	}
}

func TestEncodeNeverFails(t *testing.T) {
	inputs := [][]byte{
		nil,
		{},
		bytes.Repeat([]byte{0xAA}, 16),
		bytes.Repeat([]byte{0x00}, 1<<20),
	}
	for _, in := range inputs {
		if _, err := codec.Encode(in); err != nil {
			t.Fatalf("Encode(%d bytes): %v", len(in), err)
		}
	}
}
