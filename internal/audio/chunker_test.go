package audio

import (
	"encoding/binary"
	"testing"
)

func TestChunkerEmitsFixedSizeChunks(t *testing.T) {
	// 24kHz mono, 100ms chunks = 2400 samples = 4800 bytes per chunk.
	c := NewChunker(24000, 1, 100)

	chunks := c.Push(make([]float32, 2000))
	if len(chunks) != 0 {
		t.Fatalf("got %d chunks before enough samples", len(chunks))
	}

	chunks = c.Push(make([]float32, 3000))
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) != 4800 {
			t.Errorf("chunk %d size = %d, want 4800", i, len(chunk))
		}
	}

	// 5000 pushed, 4800 consumed, 200 samples left.
	rest := c.Flush()
	if len(rest) != 400 {
		t.Errorf("flush size = %d bytes, want 400", len(rest))
	}
	if c.Flush() != nil {
		t.Error("second flush should return nil")
	}
}

func TestEncodePCM16ClampsAndScales(t *testing.T) {
	out := encodePCM16([]float32{0, 1, -1, 2, -2, 0.5})

	got := func(i int) int16 {
		return int16(binary.LittleEndian.Uint16(out[i*2:]))
	}

	if got(0) != 0 {
		t.Errorf("sample 0 = %d, want 0", got(0))
	}
	if got(1) != 32767 {
		t.Errorf("sample 1 = %d, want 32767", got(1))
	}
	if got(2) != -32767 {
		t.Errorf("sample 2 = %d, want -32767", got(2))
	}
	if got(3) != 32767 || got(4) != -32767 {
		t.Errorf("out-of-range samples not clamped: %d, %d", got(3), got(4))
	}
	half := float32(0.5)
	if got(5) != int16(half*32767) {
		t.Errorf("sample 5 = %d, want %d", got(5), int16(half*32767))
	}
}
