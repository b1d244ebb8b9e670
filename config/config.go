// Package config holds the per-stream settings this encoder core needs
// that the teacher's revid/config has no equivalent for: SDI capture
// layout, per-encoder channel routing, output PIDs, queue depths, and
// the capture-stall threshold. It is watched for on-disk changes with
// fsnotify, the same way capture-adjacent tooling elsewhere in the
// corpus reacts to a config file changing underneath a running process.
package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/ausocean/utils/logging"
)

// EncoderFormat selects what an audio filter stage does with a given
// output encoder: copy a PCM channel pair to a software encoder, or hand
// off a pre-detected non-PCM raw frame to a bitstream passthrough.
type EncoderFormat int

const (
	FormatPCM EncoderFormat = iota
	FormatAC3Passthrough
)

func (f EncoderFormat) String() string {
	switch f {
	case FormatPCM:
		return "pcm"
	case FormatAC3Passthrough:
		return "ac3-passthrough"
	default:
		return "unknown"
	}
}

// ChannelPair identifies which SDI channel pair (or single mono channel
// within one) an encoder consumes from the capture audio block. This
// replaces the teacher's fixed "16 channels, 32-bit audio" assumption
// (spec.md §9 REDESIGN FLAGS) with a per-stream configuration value.
type ChannelPair struct {
	SDIPair int  // base channel-pair index (pair N covers channels 2N, 2N+1)
	Mono    bool // true selects a single channel within the pair, not both
}

// EncoderConfig describes one configured output encoder.
type EncoderConfig struct {
	Name           string
	Format         EncoderFormat
	OutputStreamID int
	InputStreamID  int // matched against a non-PCM raw frame's stream id (AC-3 passthrough only)
	Pair           ChannelPair
	SampleRate     uint
	FramesPerPES   int // MP2 only: number of codec frames cut into one coded frame
	QueueDepth     int // 0 selects the pipeline-wide default
}

// CaptureLayout describes the interleaved PCM layout the capture
// collaborator delivers, replacing the source's compile-time constants.
type CaptureLayout struct {
	Channels    int // channels per audio frame (typically 16)
	SampleDepth int // 16 or 32
	SampleRate  uint
	FrameStride int // bytes between frames; 0 derives Channels*SampleDepth/8
}

// Config is the full set of tunables for one obecore pipeline instance.
type Config struct {
	Capture CaptureLayout
	Encoders []EncoderConfig

	// MuxQueueDepth and StageQueueDepth are nominal depths for the mux
	// and per-stage queues. Per spec.md §4.4 there is no hard bound
	// beyond memory: the queue package never blocks or refuses an
	// enqueue, and the pipeline does not compare queue sizes against
	// these values or log when they are exceeded.
	MuxQueueDepth   int
	StageQueueDepth int

	// StallThreshold is SDI_MAX_DELAY: the maximum gap between capture
	// frame arrivals before the stall/drop flag is raised.
	StallThreshold time.Duration

	SCTEOutputPID     uint16
	SCTEUniqueProgram uint16

	// ForensicsDir, if non-empty, enables the CRC-failure journal and
	// names the directory its rolling files are written under.
	ForensicsDir string

	Logger logging.Logger `json:"-"`
}

// frameStride returns c.FrameStride if set, otherwise the layout implied
// by Channels and SampleDepth.
func (c CaptureLayout) frameStride() int {
	if c.FrameStride > 0 {
		return c.FrameStride
	}
	return c.Channels * c.SampleDepth / 8
}

// FrameStride returns the configured or derived frame stride in bytes.
func (c *Config) FrameStride() int { return c.Capture.frameStride() }

// Validate checks field ranges and cross-references between the capture
// layout and each encoder's channel routing, the way revid/config.
// Validate checks its own fields before a pipeline is built from them.
func (c *Config) Validate() error {
	if c.Capture.Channels <= 0 {
		return errors.New("config: capture channel count must be positive")
	}
	if c.Capture.SampleDepth != 16 && c.Capture.SampleDepth != 32 {
		return errors.New("config: capture sample depth must be 16 or 32")
	}
	if c.Capture.SampleRate == 0 {
		return errors.New("config: capture sample rate must be positive")
	}
	if c.StallThreshold <= 0 {
		return errors.New("config: stall threshold must be positive")
	}
	if len(c.Encoders) == 0 {
		return errors.New("config: at least one encoder must be configured")
	}
	seen := map[int]bool{}
	for i, e := range c.Encoders {
		if seen[e.OutputStreamID] {
			return errors.Errorf("config: duplicate output stream id %d at encoder %d", e.OutputStreamID, i)
		}
		seen[e.OutputStreamID] = true
		if e.Pair.SDIPair < 0 || 2*e.Pair.SDIPair+1 >= c.Capture.Channels {
			return errors.Errorf("config: encoder %q channel pair %d out of range for %d capture channels", e.Name, e.Pair.SDIPair, c.Capture.Channels)
		}
		switch e.Format {
		case FormatPCM:
			if e.SampleRate == 0 {
				return errors.Errorf("config: encoder %q needs a sample rate", e.Name)
			}
			if e.FramesPerPES <= 0 {
				return errors.Errorf("config: encoder %q needs frames_per_pes > 0", e.Name)
			}
		case FormatAC3Passthrough:
			// InputStreamID matches against the pre-detector's tagged
			// raw frame; no further fields required.
		default:
			return errors.Errorf("config: encoder %q has unknown format %v", e.Name, e.Format)
		}
	}
	return nil
}

// Load reads and validates a JSON-encoded Config from path.
func Load(path string, logger logging.Logger) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "config: could not read file")
	}
	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(err, "config: could not parse JSON")
	}
	c.Logger = logger
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Watcher reloads a Config from disk whenever the underlying file
// changes and hands the new Config to onChange, mirroring the
// fsnotify-driven hot reload used elsewhere in the corpus's
// capture-adjacent tooling for a config file that can change underneath
// a running process.
type Watcher struct {
	w    *fsnotify.Watcher
	done chan struct{}
}

// Watch begins watching path for changes, invoking onChange with each
// successfully reloaded Config. Load/parse errors are logged and do not
// stop watching. Call Close to stop.
func Watch(path string, logger logging.Logger, onChange func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "config: could not create fsnotify watcher")
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, errors.Wrap(err, "config: could not watch file")
	}
	w := &Watcher{w: fw, done: make(chan struct{})}
	go w.run(path, logger, onChange)
	return w, nil
}

func (w *Watcher) run(path string, logger logging.Logger, onChange func(*Config)) {
	for {
		select {
		case event, ok := <-w.w.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			c, err := Load(path, logger)
			if err != nil {
				logger.Warning("config reload failed", "error", err.Error())
				continue
			}
			onChange(c)
		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}
			logger.Warning("config watcher error", "error", err.Error())
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.w.Close()
}
