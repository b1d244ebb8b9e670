// Package forensics journals AC-3 syncframes that failed CRC validation so
// a failure can be inspected after the fact: a rolling raw-binary dump of
// every failed frame plus its CRC remainders, and a standalone .wav
// snippet per frame for listening to what the slicer actually received.
//
// A Journal's OnCRCFail method has the signature of ac3.CRCFailureFunc and
// is meant to be wired directly into ac3.New as the onCRCFail argument.
package forensics

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/utils/logging"
)

const (
	rawFileName  = "ac3-crc-failures.bin"
	defaultMaxMB = 50
	wavBitDepth  = 16
	wavFormat    = 1 // PCM
)

// Journal writes a rolling raw dump and per-frame .wav snippets for every
// AC-3 syncframe that fails CRC validation, under dir.
type Journal struct {
	mu         sync.Mutex
	dir        string
	sampleRate int
	logger     logging.Logger
	raw        *lumberjack.Logger
	count      int
}

// New returns a Journal that writes under dir, creating it if necessary.
// sampleRate is the AC-3 frame's sample rate, used only to label the .wav
// snippet; the raw dump preserves the frame bytes regardless.
func New(dir string, sampleRate int, logger logging.Logger) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "forensics: could not create journal dir")
	}
	return &Journal{
		dir:        dir,
		sampleRate: sampleRate,
		logger:     logger,
		raw: &lumberjack.Logger{
			Filename: filepath.Join(dir, rawFileName),
			MaxSize:  defaultMaxMB,
			MaxAge:   7,
			Compress: true,
		},
	}, nil
}

// OnCRCFail records one CRC-invalid syncframe. It matches
// ac3.CRCFailureFunc and is safe to pass directly as a Slicer's
// onCRCFail argument.
func (j *Journal) OnCRCFail(frame []byte, crc1, crc2 uint16) {
	j.mu.Lock()
	j.count++
	n := j.count
	j.mu.Unlock()

	if err := j.writeRaw(frame, crc1, crc2, n); err != nil {
		j.logger.Warning("forensics: could not append raw dump", "error", err.Error())
	}
	if err := j.writeWAV(frame, n); err != nil {
		j.logger.Warning("forensics: could not write wav snippet", "error", err.Error())
	}
}

// writeRaw appends one raw-dump entry: sequence number, both CRC
// remainders, and the frame length, followed by the frame bytes themselves.
func (j *Journal) writeRaw(frame []byte, crc1, crc2 uint16, seq int) error {
	hdr := make([]byte, 12)
	binary.BigEndian.PutUint32(hdr[0:4], uint32(seq))
	binary.BigEndian.PutUint16(hdr[4:6], crc1)
	binary.BigEndian.PutUint16(hdr[6:8], crc2)
	binary.BigEndian.PutUint32(hdr[8:12], uint32(len(frame)))
	if _, err := j.raw.Write(hdr); err != nil {
		return err
	}
	_, err := j.raw.Write(frame)
	return err
}

// writeWAV writes frame, interpreted as a sequence of big-endian 16-bit
// words, as a mono PCM .wav file so the failed syncframe can be played
// back and listened to directly.
func (j *Journal) writeWAV(frame []byte, seq int) error {
	path := filepath.Join(j.dir, fmt.Sprintf("ac3-crc-fail-%06d.wav", seq))
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "forensics: could not create wav file")
	}
	defer f.Close()

	enc := wav.NewEncoder(f, j.sampleRate, wavBitDepth, 1, wavFormat)

	samples := make([]int, len(frame)/2)
	for i := range samples {
		samples[i] = int(int16(binary.BigEndian.Uint16(frame[2*i : 2*i+2])))
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: j.sampleRate},
		Data:           samples,
		SourceBitDepth: wavBitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return errors.Wrap(err, "forensics: could not encode wav data")
	}
	return enc.Close()
}

// Failures returns the number of CRC failures journaled so far.
func (j *Journal) Failures() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.count
}

// Close flushes and closes the rolling raw dump file.
func (j *Journal) Close() error {
	return j.raw.Close()
}
