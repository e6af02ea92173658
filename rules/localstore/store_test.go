package localstore

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestSerializeFloat32(t *testing.T) {
	t.Parallel()

	in := []float32{0, 1, -2.5, math.Pi}
	out := serializeFloat32(in)

	if len(out) != len(in)*4 {
		t.Fatalf("expected %d bytes, got %d", len(in)*4, len(out))
	}
	for i, want := range in {
		got := math.Float32frombits(binary.LittleEndian.Uint32(out[i*4:]))
		if got != want {
			t.Fatalf("value %d: got %v, want %v", i, got, want)
		}
	}
}

func TestNewRequiresEmbedder(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{Path: ":memory:"}, nil); err == nil {
		t.Fatal("expected error for nil embedder")
	}
}
