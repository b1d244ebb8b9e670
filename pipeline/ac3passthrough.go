package pipeline

import (
	"github.com/ausocean/utils/logging"

	"github.com/kernellabs/obecore/ac3"
	"github.com/kernellabs/obecore/config"
	"github.com/kernellabs/obecore/frame"
	"github.com/kernellabs/obecore/queue"
	"github.com/kernellabs/obecore/smpte337"
)

// ac3Encoder is the AC-3 bitstream passthrough stage: it owns one
// smpte337.Detector, feeds it the configured channel pair of every
// incoming raw frame, and validates each discovered payload's CRCs
// directly with ac3.ValidateFrame rather than running the sync-hunting
// slicer, since smpte337 has already deframed the payload in full.
type ac3Encoder struct {
	cfg       config.EncoderConfig
	capture   config.CaptureLayout
	detector  *smpte337.Detector
	mux       *queue.Queue
	in        *queue.Queue
	logger    logging.Logger
	onCRCFail ac3.CRCFailureFunc

	currentPTS int64
}

func newAC3Encoder(cfg config.EncoderConfig, capture config.CaptureLayout, in, mux *queue.Queue, logger logging.Logger, onCRCFail ac3.CRCFailureFunc) (*ac3Encoder, error) {
	e := &ac3Encoder{cfg: cfg, capture: capture, in: in, mux: mux, logger: logger, onCRCFail: onCRCFail}
	d, err := smpte337.New(e.onPayload)
	if err != nil {
		return nil, err
	}
	e.detector = d
	return e, nil
}

func (e *ac3Encoder) run() {
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

func (e *ac3Encoder) process(raw *frame.RawFrame) {
	e.currentPTS = raw.PTS

	block := raw.Audio
	sampleBytes := e.capture.SampleDepth / 8
	pairOffset := 2 * e.cfg.Pair.SDIPair * sampleBytes
	if pairOffset >= len(block.Samples[0]) {
		return
	}
	buf := block.Samples[0][pairOffset:]

	if err := e.detector.Write(buf, block.SampleCount, e.capture.SampleDepth, e.capture.Channels, block.LineSize, 2); err != nil {
		e.logger.Warning("ac3 passthrough write failed", "encoder", e.cfg.Name, "error", err.Error())
	}
}

// onPayload is the smpte337.Detector callback: it validates a discovered
// AC-3 payload's CRCs and, on success, forwards it as a coded frame.
func (e *ac3Encoder) onPayload(mode, typ byte, bits uint16, payload []byte) {
	if typ != smpte337.DataTypeAC3 {
		return
	}
	crc1, crc2, ok := ac3.ValidateFrame(payload)
	if !ok {
		if e.onCRCFail != nil {
			e.onCRCFail(payload, crc1, crc2)
		}
		return
	}
	frameCopy := make([]byte, len(payload))
	copy(frameCopy, payload)
	e.mux.Enqueue(&frame.CodedFrame{
		OutputStreamID: e.cfg.OutputStreamID,
		Payload:        frameCopy,
		PTS:            e.currentPTS,
		RandomAccess:   true,
	})
}
