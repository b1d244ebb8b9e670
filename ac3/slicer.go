// Package ac3 reassembles ATSC A/52 AC-3 syncframes from raw PCM words
// (or from payloads handed off by package smpte337) and validates both of
// a syncframe's CRC-16 fields before releasing it.
package ac3

import (
	"github.com/pkg/errors"

	"github.com/kernellabs/obecore/ringbuf"
)

const (
	initialRingSize = 32 * 1024
	maxRingSize     = 256 * 1024
)

const (
	syncHi = 0x0B
	syncLo = 0x77
)

type syncState int

const (
	searchingSync syncState = iota
	acquiredSync
)

// Callback is invoked once per complete, CRC-valid syncframe. frame is
// owned by the caller of Write no longer; ownership transfers to the
// callback.
type Callback func(frame []byte)

// CRCFailureFunc is invoked, if set, for a syncframe whose CRC1 or CRC2
// did not validate, before the frame is discarded. Intended for forensic
// journaling; frame is valid only for the duration of the call.
type CRCFailureFunc func(frame []byte, crc1, crc2 uint16)

// Slicer hunts a stream of 16-bit PCM words for AC-3 sync, reassembles
// one syncframe at a time using the length given by Table 5.18, and
// validates both CRCs before delivering the frame.
type Slicer struct {
	rb    *ringbuf.Ring
	state syncState

	wordsPerSyncframe int

	cb          Callback
	onCRCFail   CRCFailureFunc
	malformed   int
	crcFailures int
}

// New returns a Slicer that delivers complete, CRC-valid syncframes to cb.
// onCRCFail, if non-nil, is invoked for frames that fail CRC validation
// instead of silently dropping them.
func New(cb Callback, onCRCFail CRCFailureFunc) (*Slicer, error) {
	if cb == nil {
		return nil, errors.New("ac3: callback must not be nil")
	}
	rb, err := ringbuf.New(initialRingSize, maxRingSize)
	if err != nil {
		return nil, errors.Wrap(err, "ac3: could not allocate ring")
	}
	return &Slicer{rb: rb, cb: cb, onCRCFail: onCRCFail}, nil
}

// MalformedHeaders returns the count of headers with an unrecognized
// frmsizecod or fscod encountered so far.
func (s *Slicer) MalformedHeaders() int { return s.malformed }

// CRCFailures returns the count of syncframes dropped for failing CRC1 or
// CRC2 so far.
func (s *Slicer) CRCFailures() int { return s.crcFailures }

// Write ingests audioFrames frames of interleaved PCM from buf, each frame
// comprising channelsPerFrame samples of sampleDepth bits (16 or 32),
// spaced frameStrideBytes apart. Only the first spanCount samples of each
// frame are inspected (normally 2, a channel pair). For 32-bit samples
// only the top 16 bits of each sample are used.
func (s *Slicer) Write(buf []byte, audioFrames, sampleDepth, channelsPerFrame, frameStrideBytes, spanCount int) error {
	if len(buf) == 0 || audioFrames <= 0 || channelsPerFrame <= 0 || frameStrideBytes <= 0 ||
		(sampleDepth != 16 && sampleDepth != 32) || spanCount == 0 || spanCount > channelsPerFrame {
		return errors.New("ac3: invalid write parameters")
	}

	sampleBytes := sampleDepth / 8
	for f := 0; f < audioFrames; f++ {
		frame := f * frameStrideBytes
		for k := 0; k < spanCount; k++ {
			off := frame + k*sampleBytes
			if off+sampleBytes > len(buf) {
				return errors.New("ac3: buffer too short for declared layout")
			}
			var word [2]byte
			if sampleDepth == 32 {
				word[0] = buf[off+3]
				word[1] = buf[off+2]
			} else {
				word[0] = buf[off+1]
				word[1] = buf[off+0]
			}
			s.process(word)
		}
	}
	return nil
}

// process folds in one canonical big-endian 16-bit word.
func (s *Slicer) process(word [2]byte) {
	switch s.state {
	case searchingSync:
		if word[0] == syncHi && word[1] == syncLo {
			s.rb.Reset()
			s.rb.Write(word[:])
			s.wordsPerSyncframe = 0
			s.state = acquiredSync
		}
	case acquiredSync:
		s.rb.Write(word[:])

		if s.wordsPerSyncframe == 0 && s.rb.Used() >= 5 {
			var hdr [5]byte
			s.rb.Peek(hdr[:])
			fscod := uint32(hdr[4]>>6) & 0x3
			frmsizecod := uint32(hdr[4]) & 0x3f

			n, ok := wordsPerSyncframe(fscod, frmsizecod)
			if !ok {
				s.malformed++
				s.rb.Discard(1)
				s.state = searchingSync
				return
			}
			s.wordsPerSyncframe = n
		}

		if s.wordsPerSyncframe > 0 && s.rb.Used() == s.wordsPerSyncframe*2 {
			s.deliver()
			s.state = searchingSync
		}
	}
}

// deliver validates the buffered syncframe's CRCs and, if both are valid,
// hands the frame (in canonical big-endian byte order) to the callback.
func (s *Slicer) deliver() {
	frame := s.rb.ReadAlloc(s.rb.Used())
	s.wordsPerSyncframe = 0

	words := make([]uint16, len(frame)/2)
	for i := range words {
		words[i] = uint16(frame[2*i])<<8 | uint16(frame[2*i+1])
	}

	framesize := len(words)
	framesize58 := framesize/2 + framesize/8

	crc1 := crcCalc(words[1:framesize58])
	crc2 := crcCalc(words[1:framesize])

	if crc1 != 0 || crc2 != 0 {
		s.crcFailures++
		if s.onCRCFail != nil {
			s.onCRCFail(frame, crc1, crc2)
		}
		return
	}
	s.cb(frame)
}
