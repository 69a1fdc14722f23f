package audio

import "encoding/binary"

// Chunker converts raw float32 capture buffers into fixed-duration
// 16-bit little-endian PCM chunks sized for the realtime STT API.
type Chunker struct {
	samplesPerChunk int
	pending         []float32
}

// NewChunker creates a chunker emitting chunks of chunkMs milliseconds.
func NewChunker(sampleRate, channels, chunkMs int) *Chunker {
	return &Chunker{
		samplesPerChunk: sampleRate * channels * chunkMs / 1000,
	}
}

// Push adds capture samples and returns any complete chunks.
func (c *Chunker) Push(samples []float32) [][]byte {
	c.pending = append(c.pending, samples...)

	var chunks [][]byte
	for len(c.pending) >= c.samplesPerChunk {
		chunks = append(chunks, encodePCM16(c.pending[:c.samplesPerChunk]))
		c.pending = c.pending[c.samplesPerChunk:]
	}
	return chunks
}

// Flush returns the remaining partial chunk, if any, and resets the
// pending buffer.
func (c *Chunker) Flush() []byte {
	if len(c.pending) == 0 {
		return nil
	}
	out := encodePCM16(c.pending)
	c.pending = nil
	return out
}

// encodePCM16 converts float32 samples in [-1, 1] to 16-bit LE PCM,
// clamping out-of-range values.
func encodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}
