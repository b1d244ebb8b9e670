// Package smpte337 detects SMPTE 337M encapsulated non-PCM bitstreams
// (such as AC-3) tunneled through a PCM channel pair, and extracts the
// encapsulated payload.
package smpte337

import (
	"github.com/pkg/errors"

	"github.com/kernellabs/obecore/ringbuf"
)

// Initial and maximum ring sizes, matching the source detector's
// allocation so that a burst of several SMPTE 337 payloads can queue up
// before the caller drains them.
const (
	initialRingSize = 32 * 1024
	maxRingSize     = 256 * 1024
)

// Data type values carried in the preamble's Pc field (bits 0..4).
const (
	DataTypeAC3 = 1
)

// headerLen is the size in bytes of the preamble fields actually inspected
// and cut from the front of a discovered frame: the four-byte preamble
// (Pa, Pb), the Pc byte pair, and the Pd byte pair.
const headerLen = 8

// peekLen is the lookahead window the scan loop requires before it will
// inspect a candidate header, matching the source detector's PEEK_LEN.
const peekLen = 16

// preamble is the byte-swapped-in wire preamble Pa=0xF872, Pb=0x4E1F.
var preamble = [4]byte{0xF8, 0x72, 0x4E, 0x1F}

// Callback is invoked once per discovered payload. mode is the data mode
// (0=16-bit, 1=20-bit, 2=24-bit), typ is the data type (1=AC-3), bits is
// the payload bit count from Pd, and payload is a buffer owned by the
// detector and valid only for the duration of the call.
type Callback func(mode, typ byte, bits uint16, payload []byte)

// Detector owns one elastic ring and scans it for SMPTE 337 preambles as
// PCM is ingested. One Detector is used per audio channel pair under
// inspection.
type Detector struct {
	rb *ringbuf.Ring
	cb Callback

	overflows          int
	unsupportedPayload int
}

// New returns a Detector that invokes cb for each discovered payload.
func New(cb Callback) (*Detector, error) {
	if cb == nil {
		return nil, errors.New("smpte337: callback must not be nil")
	}
	rb, err := ringbuf.NewThreadSafe(initialRingSize, maxRingSize)
	if err != nil {
		return nil, errors.Wrap(err, "smpte337: could not allocate ring")
	}
	return &Detector{rb: rb, cb: cb}, nil
}

// Overflows returns the number of ring overflow events observed so far.
func (d *Detector) Overflows() int { return d.overflows }

// UnsupportedPayloads returns the number of scans that found a matching
// preamble with an unsupported data type and had to discard a byte. Bytes
// discarded because the preamble did not match are not counted.
func (d *Detector) UnsupportedPayloads() int { return d.unsupportedPayload }

// Write ingests audioFrames frames of interleaved PCM from buf, each frame
// comprising channelsPerFrame samples of sampleDepth bits (16 or 32),
// spaced frameStrideBytes apart. Only the first spanCount samples of each
// frame are inspected (normally 2, a channel pair). For 32-bit samples
// only the top 16 bits of each sample are used. Each extracted 16-bit word
// is byte-swapped most-significant-byte-first into the ring, after which
// the ring is scanned for complete payloads.
func (d *Detector) Write(buf []byte, audioFrames int, sampleDepth int, channelsPerFrame int, frameStrideBytes int, spanCount int) error {
	if len(buf) == 0 || audioFrames <= 0 || channelsPerFrame <= 0 || frameStrideBytes <= 0 ||
		(sampleDepth != 16 && sampleDepth != 32) || spanCount == 0 || spanCount > channelsPerFrame {
		return errors.New("smpte337: invalid write parameters")
	}

	sampleBytes := sampleDepth / 8
	for f := 0; f < audioFrames; f++ {
		frame := f * frameStrideBytes
		for k := 0; k < spanCount; k++ {
			off := frame + k*sampleBytes
			if off+sampleBytes > len(buf) {
				return errors.New("smpte337: buffer too short for declared layout")
			}
			var word [2]byte
			if sampleDepth == 32 {
				// Top 16 bits of a little-endian 32-bit sample are the
				// last two bytes.
				word[0] = buf[off+3]
				word[1] = buf[off+2]
			} else {
				word[0] = buf[off+1]
				word[1] = buf[off+0]
			}
			if d.rb.Write(word[:]) {
				d.overflows++
			}
		}
	}

	d.scan()
	return nil
}

// scan peeks the ring for SMPTE 337 preambles and, for each complete
// payload discovered, consumes it and invokes the callback.
func (d *Detector) scan() {
	var hdr [peekLen]byte
	for {
		if d.rb.Used() < peekLen {
			return
		}
		d.rb.Peek(hdr[:])

		if hdr[0] != preamble[0] || hdr[1] != preamble[1] || hdr[2] != preamble[2] || hdr[3] != preamble[3] {
			d.rb.Discard(1)
			continue
		}

		typ := hdr[5] & 0x1f
		if typ != DataTypeAC3 {
			d.unsupportedPayload++
			d.rb.Discard(1)
			continue
		}

		mode := (hdr[5] >> 5) & 0x03
		bits := uint16(hdr[6])<<8 | uint16(hdr[7])
		payloadBytes := int(bits / 8)

		if d.rb.Used() < headerLen+payloadBytes {
			return
		}

		frame := d.rb.ReadAlloc(headerLen + payloadBytes)
		d.cb(mode, typ, bits, frame[headerLen:])
	}
}
