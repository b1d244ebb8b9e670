package main

import (
	"encoding/binary"
	"math"

	"github.com/kernellabs/obecore/config"
	"github.com/kernellabs/obecore/pipeline"
)

// mp2CodecFactory builds the external MP2 codec collaborator for one
// configured PCM encoder. The real MP2 library is out of scope (spec.md
// §1 names the third-party audio encoder libraries as a black-box
// collaborator); passthroughCodec below stands in for it, packing
// interleaved float32 samples back into 16-bit PCM at a fixed frame
// size rather than performing MPEG Layer II compression. Swap this
// factory for one backed by a real MP2 encoder library to get actual
// compression without touching package pipeline.
func mp2CodecFactory(cfg config.EncoderConfig) (pipeline.Codec, error) {
	const samplesPerFrame = 1152 // MPEG Layer II frame size convention
	return &passthroughCodec{
		frameLen:        samplesPerFrame * 2,
		samplesPerFrame: samplesPerFrame,
	}, nil
}

// passthroughCodec packs float32 samples into 16-bit PCM in frameLen-byte
// chunks, buffering any remainder until the next call.
type passthroughCodec struct {
	frameLen        int
	samplesPerFrame int
	pending         []byte
}

func (c *passthroughCodec) Encode(samples []float32) []byte {
	for _, s := range samples {
		v := int16(math.Max(-1, math.Min(1, float64(s))) * math.MaxInt16)
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(v))
		c.pending = append(c.pending, b[:]...)
	}
	if len(c.pending) < c.frameLen {
		return nil
	}
	out := c.pending[:c.frameLen]
	c.pending = append([]byte(nil), c.pending[c.frameLen:]...)
	return out
}

func (c *passthroughCodec) FrameLength() int     { return c.frameLen }
func (c *passthroughCodec) SamplesPerFrame() int { return c.samplesPerFrame }
