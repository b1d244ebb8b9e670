package pipeline

import (
	"github.com/kernellabs/obecore/container/mts"
	"github.com/kernellabs/obecore/frame"
	"github.com/kernellabs/obecore/scte104"
)

// scteStreamID is the mux output-stream-id the SCTE-35 section generator's
// coded frames are tagged with. SCTE-35 sections aren't an audio/video
// stream, but the mux queue contract only carries (stream id, payload,
// PTS, random access), so a dedicated id keeps them distinguishable from
// the configured audio encoders' ids.
const scteStreamID = -1

// HandleSCTE104 decodes a VANC-delivered SCTE-104 payload and converts
// every operation it carries into SCTE-35 sections on the mux queue, per
// spec.md §4.5. It runs synchronously on the caller's goroutine, matching
// spec.md §5's requirement that VANC parsing and SCTE-35 emission share
// the capture callback thread.
func (p *Pipeline) HandleSCTE104(payload []byte, streamTimeTicks int64) {
	msg, err := scte104.Decode(payload)
	if err != nil {
		if err == scte104.ErrNotMultipleOperation {
			return
		}
		p.logger.Warning("scte104 decode failed", "error", err.Error())
		return
	}

	for i := 0; i < msg.NullRequests; i++ {
		p.enqueueSections(p.scte.Heartbeat(streamTimeTicks))
	}
	for _, req := range msg.SpliceRequests {
		p.scte.SetNextEventID(req.EventID)
		switch req.InsertType {
		case scte104.InsertStartNormal, scte104.InsertStartImmediate:
			p.enqueueSections(p.scte.ImmediateOutOfNetwork(req.UniqueProgramID, streamTimeTicks))
		case scte104.InsertEndNormal, scte104.InsertEndImmediate:
			p.enqueueSections(p.scte.ImmediateInToNetwork(req.UniqueProgramID, streamTimeTicks))
		default:
			p.logger.Warning("scte104 splice request with unsupported insert type ignored", "insertType", req.InsertType)
		}
	}
}

func (p *Pipeline) enqueueSections(pkts [][mts.PacketSize]byte) {
	for _, pkt := range pkts {
		buf := make([]byte, mts.PacketSize)
		copy(buf, pkt[:])
		p.mux.Enqueue(&frame.CodedFrame{
			OutputStreamID: scteStreamID,
			Payload:        buf,
			RandomAccess:   true,
		})
	}
}
