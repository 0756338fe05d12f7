package inspect_test

import (
	"bytes"
	"testing"

	"github.com/kernelmethod/tardis-go/internal/codec"
	"github.com/kernelmethod/tardis-go/internal/container"
	"github.com/kernelmethod/tardis-go/internal/inspect"
)

func buildContainer(t *testing.T, loaderSize int, guests [][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(bytes.Repeat([]byte{0x7f}, loaderSize))
	for _, g := range guests {
		res, err := codec.Encode(g)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		buf.Write(container.SerializeResource(res))
	}
	buf.Write(container.SerializeEndMarker(container.EndMarker{
		ManifestStart: uint64(loaderSize),
		NResources:    uint64(len(guests)),
	}))
	return buf.Bytes()
}

func TestInspect(t *testing.T) {
	guests := [][]byte{[]byte("guest one"), []byte("guest two, a bit longer")}
	b := buildContainer(t, 128, guests)

	meta, err := inspect.Inspect(b)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if meta.FileSize != int64(len(b)) {
		t.Fatalf("FileSize = %d, want %d", meta.FileSize, len(b))
	}
	if meta.LoaderSize != 128 {
		t.Fatalf("LoaderSize = %d, want 128", meta.LoaderSize)
	}
	if meta.NResources != uint64(len(guests)) {
		t.Fatalf("NResources = %d, want %d", meta.NResources, len(guests))
	}
	if len(meta.Resources) != len(guests) {
		t.Fatalf("got %d resource infos, want %d", len(meta.Resources), len(guests))
	}
	for i, g := range guests {
		if meta.Resources[i].PlaintextLen != int64(len(g)) {
			t.Fatalf("resource %d PlaintextLen = %d, want %d", i, meta.Resources[i].PlaintextLen, len(g))
		}
	}
}

func TestInspectRejectsCorruptContainer(t *testing.T) {
	b := buildContainer(t, 16, [][]byte{[]byte("guest")})
	b[len(b)-1] ^= 0xFF // corrupt the end marker's resource count
	if _, err := inspect.Inspect(b); err == nil {
		t.Fatal("expected Inspect to reject a corrupted container")
	}
}
