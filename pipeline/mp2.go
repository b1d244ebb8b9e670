package pipeline

import (
	"math"

	"github.com/ausocean/utils/logging"

	"github.com/kernellabs/obecore/clock"
	"github.com/kernellabs/obecore/config"
	"github.com/kernellabs/obecore/frame"
	"github.com/kernellabs/obecore/queue"
	"github.com/kernellabs/obecore/ringbuf"
)

const (
	outputFIFOInitial = 16 * 1024
	outputFIFOMax     = 256 * 1024
)

// pcmEncoder is the MP2 PCM compressor stage: it converts interleaved
// 16-bit or 32-bit PCM input (as copyChannelPair produces) to interleaved
// float32, drives an external Codec, and cuts coded frames at
// framelength * FramesPerPES bytes, per spec.md §4.4. Planar input is not
// handled: only Samples[0] is read, as interleaved samples.
type pcmEncoder struct {
	cfg    config.EncoderConfig
	codec  Codec
	in     *queue.Queue
	mux    *queue.Queue
	logger logging.Logger

	out *ringbuf.Ring

	basePTS  int64
	haveBase bool
	emitted  int64
}

func newPCMEncoder(cfg config.EncoderConfig, codec Codec, in, mux *queue.Queue, logger logging.Logger) (*pcmEncoder, error) {
	out, err := ringbuf.New(outputFIFOInitial, outputFIFOMax)
	if err != nil {
		return nil, err
	}
	return &pcmEncoder{cfg: cfg, codec: codec, in: in, mux: mux, logger: logger, out: out}, nil
}

// run drains raw audio frames until the queue is cancelled, encoding and
// forwarding coded frames to the mux queue as they become available.
func (e *pcmEncoder) run() {
	for {
		item, ok := e.in.Dequeue()
		if !ok {
			return
		}
		raw := item.(*frame.RawFrame)
		e.process(raw)
		raw.Release()
	}
}

func (e *pcmEncoder) process(raw *frame.RawFrame) {
	if !e.haveBase {
		e.basePTS = raw.PTS
		e.haveBase = true
	}

	samples := toFloatInterleaved(raw.Audio)
	encoded := e.codec.Encode(samples)
	if len(encoded) == 0 {
		return
	}
	if overflowed := e.out.Write(encoded); overflowed {
		e.logger.Warning("mp2 encoder output fifo overflowed", "encoder", e.cfg.Name)
	}

	cut := e.codec.FrameLength() * e.cfg.FramesPerPES
	if cut <= 0 {
		return
	}
	step := int64(e.codec.SamplesPerFrame()) * clock.OBEClockHz * int64(e.cfg.FramesPerPES) / int64(e.cfg.SampleRate)
	for e.out.Used() >= cut {
		payload := e.out.ReadAlloc(cut)
		pts := e.basePTS + e.emitted*step
		e.emitted++
		e.mux.Enqueue(&frame.CodedFrame{
			OutputStreamID: e.cfg.OutputStreamID,
			Payload:        payload,
			PTS:            pts,
			RandomAccess:   true,
		})
	}
}

// toFloatInterleaved converts a 16-bit or 32-bit signed interleaved PCM
// block into normalized interleaved float32 samples for the external
// codec to consume.
func toFloatInterleaved(block *frame.AudioBlock) []float32 {
	sampleBytes := sampleSize(block.Format)
	n := block.SampleCount * block.ChannelCount
	out := make([]float32, n)
	buf := block.Samples[0]
	for i := 0; i < n; i++ {
		off := i * sampleBytes
		if off+sampleBytes > len(buf) {
			break
		}
		switch sampleBytes {
		case 4:
			v := int32(buf[off]) | int32(buf[off+1])<<8 | int32(buf[off+2])<<16 | int32(buf[off+3])<<24
			out[i] = float32(v) / math.MaxInt32
		default:
			v := int16(buf[off]) | int16(buf[off+1])<<8
			out[i] = float32(v) / math.MaxInt16
		}
	}
	return out
}
