// Package pipeline wires the capture, audio filter, encoder, and mux
// stages described in spec.md §4.4 into one running frame pipeline:
// unbounded per-stage queues, PTS clocking derived from the capture clock,
// and cooperative cancellation across every worker.
package pipeline

import (
	"sync"
	"time"

	"github.com/ausocean/utils/logging"
	"github.com/pkg/errors"

	"github.com/kernellabs/obecore/ac3"
	"github.com/kernellabs/obecore/clock"
	"github.com/kernellabs/obecore/config"
	"github.com/kernellabs/obecore/forensics"
	"github.com/kernellabs/obecore/frame"
	"github.com/kernellabs/obecore/queue"
	"github.com/kernellabs/obecore/scte35"
)

// Pipeline owns every per-stage queue, encoder worker, and the shared
// mux queue for one running instance, plus the capture-clock
// collaborators (stall detection, jitter tracking) spec.md §5 calls for.
type Pipeline struct {
	cfg    *config.Config
	logger logging.Logger

	queues map[string]*queue.Queue // keyed by EncoderConfig.Name
	mux    *queue.Queue

	scte     *scte35.Generator
	journal  *forensics.Journal
	stall    *clock.StallDetector
	jitter   *clock.JitterTracker

	wg      sync.WaitGroup
	dropMu  sync.Mutex
	dropped bool
}

// NewCodec is called once per configured PCM encoder to obtain its
// external MP2 codec collaborator. Supplied by the caller, since the
// actual MP2 encoder library is out of scope (spec.md §1).
type NewCodec func(cfg config.EncoderConfig) (Codec, error)

// New builds a Pipeline from cfg: one queue and worker per configured
// encoder, a shared mux queue, the SCTE-35 generator, and — if
// cfg.ForensicsDir is set — a CRC-failure journal wired into every AC-3
// passthrough encoder's onCRCFail callback.
func New(cfg *config.Config, logger logging.Logger, newCodec NewCodec) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:    cfg,
		logger: logger,
		queues: make(map[string]*queue.Queue, len(cfg.Encoders)),
		mux:    queue.New(),
		scte:   scte35.NewGenerator(cfg.SCTEOutputPID),
		stall:  clock.NewStallDetector(cfg.StallThreshold),
		jitter: clock.NewJitterTracker(),
	}

	var onCRCFail ac3.CRCFailureFunc
	if cfg.ForensicsDir != "" {
		j, err := forensics.New(cfg.ForensicsDir, int(cfg.Capture.SampleRate), logger)
		if err != nil {
			return nil, errors.Wrap(err, "pipeline: could not create forensics journal")
		}
		p.journal = j
		onCRCFail = j.OnCRCFail
	}

	for _, enc := range cfg.Encoders {
		depth := enc.QueueDepth
		if depth == 0 {
			depth = cfg.StageQueueDepth
		}
		q := queue.New()
		p.queues[enc.Name] = q

		switch enc.Format {
		case config.FormatPCM:
			codec, err := newCodec(enc)
			if err != nil {
				return nil, errors.Wrapf(err, "pipeline: could not build codec for encoder %q", enc.Name)
			}
			pe, err := newPCMEncoder(enc, codec, q, p.mux, logger)
			if err != nil {
				return nil, errors.Wrapf(err, "pipeline: could not start encoder %q", enc.Name)
			}
			p.wg.Add(1)
			go func() { defer p.wg.Done(); pe.run() }()
		case config.FormatAC3Passthrough:
			ae, err := newAC3Encoder(enc, cfg.Capture, q, p.mux, logger, onCRCFail)
			if err != nil {
				return nil, errors.Wrapf(err, "pipeline: could not start encoder %q", enc.Name)
			}
			p.wg.Add(1)
			go func() { defer p.wg.Done(); ae.run() }()
		default:
			return nil, errors.Errorf("pipeline: encoder %q has unknown format", enc.Name)
		}
	}

	return p, nil
}

// SubmitAudio is the capture stage's entry point for one audio interval:
// it records the arrival for stall/jitter tracking and dispatches the
// frame to every encoder queue the audio filter stage's routing rules
// claim it for.
func (p *Pipeline) SubmitAudio(raw *frame.RawFrame, now time.Time) {
	stalled, gap := p.stall.Tick(now)
	p.jitter.Record(gap)
	if stalled {
		p.setDropped(true)
		p.logger.Warning("capture stall detected", "gap", gap.String())
	} else {
		p.setDropped(false)
	}
	p.routeAudio(raw)
}

func (p *Pipeline) setDropped(v bool) {
	p.dropMu.Lock()
	p.dropped = v
	p.dropMu.Unlock()
}

// Dropped reports whether the most recent capture interval exceeded the
// stall threshold, per spec.md §5's shared mutex-guarded drop flag.
func (p *Pipeline) Dropped() bool {
	p.dropMu.Lock()
	defer p.dropMu.Unlock()
	return p.dropped
}

// Mux returns the shared multi-producer single-consumer mux queue coded
// frames (audio and SCTE-35 sections) are delivered to.
func (p *Pipeline) Mux() *queue.Queue { return p.mux }

// JitterStdDev returns the standard deviation of recorded audio
// inter-arrival gaps, in seconds.
func (p *Pipeline) JitterStdDev() float64 { return p.jitter.StdDev() }

// Stop cancels every encoder queue and the mux queue, waits for all
// encoder workers to exit, and closes the forensics journal if one is
// active.
func (p *Pipeline) Stop() {
	for _, q := range p.queues {
		q.Cancel()
	}
	p.wg.Wait()
	p.mux.Cancel()
	if p.journal != nil {
		p.journal.Close()
	}
}
