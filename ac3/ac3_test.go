package ac3

import "testing"

// buildValidFrame constructs a syncframe for frmsizecod 0x00 at 48kHz (64
// words), filling the payload with a repeating byte pattern and computing
// CRC1 (words[1..39]) and CRC2 (words[1..63]) so the result validates.
func buildValidFrame() []uint16 {
	const framesize = 64 // fs48 for frmsizecod 0x00
	const framesize58 = framesize/2 + framesize/8

	words := make([]uint16, framesize)
	words[0] = 0x0B77
	// word[2] high byte: fscod=0 (48kHz), frmsizecod=0x00.
	words[2] = 0x0000
	for i := 3; i < framesize-1; i++ {
		words[i] = uint16(0xA500 + i)
	}

	// CRC1 sits in front of the words it protects, so it is not simply the
	// remainder of words[2..39]: search for the value that makes the CRC
	// over words[1..39] zero.
	for c := 0; c <= 0xFFFF; c++ {
		words[1] = uint16(c)
		if crcCalc(words[1:framesize58]) == 0 {
			break
		}
	}
	words[framesize-1] = crcCalc(words[1 : framesize-1])
	return words
}

func wordsToBigEndianBytes(words []uint16) []byte {
	buf := make([]byte, len(words)*2)
	for i, w := range words {
		buf[2*i] = byte(w >> 8)
		buf[2*i+1] = byte(w)
	}
	return buf
}

// wordsToSlicerBytes reverses the MSB-first extraction Write performs for
// 16-bit samples (word[0]=buf[off+1], word[1]=buf[off+0]) so that feeding
// the resulting buffer through Write recovers the canonical big-endian
// words unchanged.
func wordsToSlicerBytes(words []uint16) []byte {
	buf := make([]byte, len(words)*2)
	for i, w := range words {
		buf[2*i] = byte(w)      // low byte first (native sample order)
		buf[2*i+1] = byte(w >> 8)
	}
	return buf
}

func TestSyncAcrossWriteCalls(t *testing.T) {
	words := buildValidFrame()
	raw := wordsToSlicerBytes(words)

	var got []byte
	var calls int
	s, err := New(func(frame []byte) {
		calls++
		got = append([]byte(nil), frame...)
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	// First write: only the sync word.
	if err := s.Write(raw[:2], 1, 16, 1, 2, 1); err != nil {
		t.Fatal(err)
	}
	if calls != 0 {
		t.Fatalf("callback fired before frame complete")
	}

	// Second write: the remainder of the frame.
	rest := raw[2:]
	if err := s.Write(rest, len(rest)/2, 16, 1, 2, 1); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	want := wordsToBigEndianBytes(words)
	if len(got) != len(want) {
		t.Fatalf("frame length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("frame mismatch at byte %d: got 0x%02x, want 0x%02x", i, got[i], want[i])
		}
	}
}

// TestKBackToBackFrames is the testable-property invariant: K valid
// back-to-back frames chunked arbitrarily across writes yield exactly K
// callbacks.
func TestKBackToBackFrames(t *testing.T) {
	const k = 3
	var all []byte
	for i := 0; i < k; i++ {
		all = append(all, wordsToSlicerBytes(buildValidFrame())...)
	}

	var calls int
	s, err := New(func(frame []byte) { calls++ }, nil)
	if err != nil {
		t.Fatal(err)
	}

	// Chunk arbitrarily: 7 words at a time.
	const chunkWords = 7
	for off := 0; off < len(all); off += chunkWords * 2 {
		end := off + chunkWords*2
		if end > len(all) {
			end = len(all)
		}
		chunk := all[off:end]
		n := len(chunk) / 2
		if n == 0 {
			continue
		}
		if err := s.Write(chunk[:n*2], n, 16, 1, 2, 1); err != nil {
			t.Fatal(err)
		}
	}
	if calls != k {
		t.Fatalf("calls = %d, want %d", calls, k)
	}
}

func TestCRCFailureDropsFrame(t *testing.T) {
	words := buildValidFrame()
	words[10] ^= 0xFF // corrupt payload without touching CRC fields
	raw := wordsToSlicerBytes(words)

	var delivered, failed int
	s, err := New(
		func(frame []byte) { delivered++ },
		func(frame []byte, crc1, crc2 uint16) { failed++ },
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Write(raw, len(raw)/2, 16, 1, 2, 1); err != nil {
		t.Fatal(err)
	}
	if delivered != 0 {
		t.Fatalf("delivered = %d, want 0", delivered)
	}
	if failed != 1 {
		t.Fatalf("failed = %d, want 1", failed)
	}
	if s.CRCFailures() != 1 {
		t.Fatalf("CRCFailures() = %d, want 1", s.CRCFailures())
	}
}

func TestUnknownFrmsizecodReturnsToSearching(t *testing.T) {
	// Sync word followed by a header byte whose low 6 bits (0x3f) is
	// outside the defined 0x00..0x25 range.
	words := []uint16{0x0B77, 0x0000, 0x3f00, 0x0000}
	raw := wordsToSlicerBytes(words)

	s, err := New(func(frame []byte) {
		t.Fatal("callback should not fire for malformed header")
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Write(raw, len(raw)/2, 16, 1, 2, 1); err != nil {
		t.Fatal(err)
	}
	if s.MalformedHeaders() == 0 {
		t.Fatal("expected a malformed header to be counted")
	}
}

func TestNewRejectsNilCallback(t *testing.T) {
	if _, err := New(nil, nil); err == nil {
		t.Fatal("expected error for nil callback")
	}
}
