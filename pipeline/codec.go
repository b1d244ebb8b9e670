package pipeline

// Codec is the external MP2 audio encoder collaborator: a black-box
// codec this core feeds interleaved float32 samples and drains raw
// encoded bytes from, the way spec.md §1 treats the third-party MP2/AC-3
// encoder libraries as out of scope. One Codec instance belongs to
// exactly one pcmEncoder.
type Codec interface {
	// Encode appends samples to the codec's internal history and returns
	// any newly produced encoded bytes; it may return nil if not enough
	// samples have accumulated yet for a further encode step.
	Encode(samples []float32) []byte

	// FrameLength is the codec's fixed encoded-frame size in bytes.
	FrameLength() int

	// SamplesPerFrame is the number of input samples (per channel)
	// consumed per encoded frame, used to derive the PTS step.
	SamplesPerFrame() int
}
