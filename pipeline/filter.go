package pipeline

import (
	"github.com/kernellabs/obecore/config"
	"github.com/kernellabs/obecore/frame"
)

// routeAudio examines raw against every configured encoder and either
// copies the encoder's channel pair into a new raw frame for a PCM
// encoder, hands the original raw frame off to a matching AC-3
// passthrough encoder, or releases the frame if nothing claims it,
// mirroring the audio filter stage's three-way branch in spec.md §4.4.
func (p *Pipeline) routeAudio(raw *frame.RawFrame) {
	claimed := false
	for i := range p.cfg.Encoders {
		enc := &p.cfg.Encoders[i]
		switch enc.Format {
		case config.FormatPCM:
			if raw.Audio.Format == frame.SampleFormatNone {
				continue
			}
			copied := copyChannelPair(raw, enc.Pair)
			p.queues[enc.Name].Enqueue(copied)
		case config.FormatAC3Passthrough:
			if claimed || raw.Audio.Format != frame.SampleFormatNone || raw.InputStreamID != enc.InputStreamID {
				continue
			}
			p.queues[enc.Name].Enqueue(raw)
			claimed = true
		}
	}
	if !claimed {
		raw.Release()
	}
}

// copyChannelPair allocates a new raw audio frame holding only the
// samples of the given channel pair (or, if Mono, one channel within
// it), copied out of src's interleaved buffer using the sample-copy
// primitive spec.md §4.4 calls for.
func copyChannelPair(src *frame.RawFrame, pair config.ChannelPair) *frame.RawFrame {
	block := src.Audio
	sampleBytes := sampleSize(block.Format)
	pairOffset := 2 * pair.SDIPair * sampleBytes

	channels := 2
	if pair.Mono {
		channels = 1
	}

	dst := make([]byte, block.SampleCount*channels*sampleBytes)
	for f := 0; f < block.SampleCount; f++ {
		srcOff := f*block.LineSize + pairOffset
		dstOff := f * channels * sampleBytes
		copy(dst[dstOff:dstOff+channels*sampleBytes], block.Samples[0][srcOff:srcOff+channels*sampleBytes])
	}

	out := frame.NewAudioFrame(src.InputStreamID, src.PTS, &frame.AudioBlock{
		Samples:      [][]byte{dst},
		Planar:       false,
		Format:       block.Format,
		ChannelCount: channels,
		SampleCount:  block.SampleCount,
		LineSize:     channels * sampleBytes,
	})
	return out
}

func sampleSize(f frame.SampleFormat) int {
	switch f {
	case frame.SampleFormatS32, frame.SampleFormatFloatPlanar:
		return 4
	default:
		return 2
	}
}
