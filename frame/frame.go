// Package frame defines the raw and coded frame types passed between
// pipeline stages, and the exactly-once release discipline raw frames
// carry from capture through to their final consumer.
package frame

import "sync"

// Kind distinguishes the two raw frame payloads a capture interval can
// produce.
type Kind int

const (
	Video Kind = iota
	Audio
)

// ColorSpace identifies a video raw frame's sample encoding.
type ColorSpace int

const (
	ColorSpaceUnknown ColorSpace = iota
	ColorSpaceYUV422P10
)

// SampleFormat identifies a PCM audio raw frame's sample encoding.
type SampleFormat int

const (
	SampleFormatNone SampleFormat = iota
	SampleFormatS16
	SampleFormatS32
	SampleFormatFloatPlanar
)

// VideoImage is the video-kind payload of a raw frame: one or more image
// planes (only one for the packed 10-bit 4:2:2 layout this system
// ingests), their strides, dimensions, color space, and the first SDI
// active line, used by ancillary-data extraction to align VANC lookups.
type VideoImage struct {
	Planes         [][]byte
	Strides        []int
	Width, Height  int
	ColorSpace     ColorSpace
	FirstActiveLine int
}

// AudioBlock is the audio-kind payload of a raw frame: PCM samples plus
// enough layout information for a sample-copy primitive to pull out one
// channel pair.
type AudioBlock struct {
	// Samples holds interleaved PCM when Planar is false, or one
	// contiguous buffer per channel when Planar is true.
	Samples      [][]byte
	Planar       bool
	Format       SampleFormat
	ChannelCount int
	SampleCount  int
	// LineSize is the stride in bytes between frames in Samples[0] for
	// interleaved audio, or between samples for a single plane.
	LineSize int
}

// RawFrame is the union described by the data model: a video image OR an
// audio block, stamped with its originating stream and capture-clock PTS,
// and released exactly once regardless of how many stages inspect it.
type RawFrame struct {
	Kind  Kind
	Video *VideoImage
	Audio *AudioBlock

	InputStreamID int
	PTS           int64 // OBE_CLOCK ticks

	once     sync.Once
	releases []func()
}

// NewVideoFrame returns a raw frame wrapping a video image.
func NewVideoFrame(inputStreamID int, pts int64, img *VideoImage) *RawFrame {
	return &RawFrame{Kind: Video, Video: img, InputStreamID: inputStreamID, PTS: pts}
}

// NewAudioFrame returns a raw frame wrapping an audio block.
func NewAudioFrame(inputStreamID int, pts int64, block *AudioBlock) *RawFrame {
	return &RawFrame{Kind: Audio, Audio: block, InputStreamID: inputStreamID, PTS: pts}
}

// OnRelease registers a callback to run when the frame is released. Used
// by the capture collaborator to return buffers to a hardware-owned pool.
// Callbacks run in registration order.
func (f *RawFrame) OnRelease(cb func()) {
	f.releases = append(f.releases, cb)
}

// Release runs every registered release callback exactly once. Calling
// Release more than once is safe; only the first call has effect.
func (f *RawFrame) Release() {
	f.once.Do(func() {
		for _, cb := range f.releases {
			cb()
		}
	})
}

// CodedFrame is the triple handed from an encoder to the mux queue:
// output stream, payload bytes, PTS, and whether a decoder may start
// cleanly at this frame.
type CodedFrame struct {
	OutputStreamID int
	Payload        []byte
	PTS            int64 // OBE_CLOCK ticks
	RandomAccess   bool
}
