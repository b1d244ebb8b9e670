// Package clock converts between the capture card's OBE_CLOCK domain and
// 90kHz PTS, detects capture stalls, tracks arrival jitter, and notifies
// systemd's watchdog on a fixed interval.
package clock

import (
	"sync"
	"time"

	"github.com/ausocean/utils/realtime"
	"github.com/coreos/go-systemd/daemon"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// OBEClockHz is the capture card's stream clock rate: 1 tick = 1/27,000,000s.
const OBEClockHz = 27_000_000

// PTSHz is the MPEG PTS clock rate.
const PTSHz = 90000

// ticksPerPTS is OBEClockHz / PTSHz, an exact integer.
const ticksPerPTS = OBEClockHz / PTSHz

// ToPTS converts an OBE_CLOCK tick count to a 90kHz PTS value.
func ToPTS(ticks int64) int64 { return ticks / ticksPerPTS }

// ToTicks converts a 90kHz PTS value to OBE_CLOCK ticks.
func ToTicks(pts int64) int64 { return pts * ticksPerPTS }

// RealTime correlates OBE_CLOCK stream time with wall-clock time once the
// capture collaborator has a GPS or NTP fix, the way RealTime does for
// timestamp metadata in the teacher's MPEG-TS encoder.
var RealTime = realtime.NewRealTime()

// StallDetector flags a capture stage that has gone longer than a
// configured threshold (SDI_MAX_DELAY) without a new frame arriving.
type StallDetector struct {
	threshold time.Duration

	mu   sync.Mutex
	last time.Time
	set  bool
}

// NewStallDetector returns a StallDetector that considers the capture
// stalled once more than threshold elapses between Tick calls.
func NewStallDetector(threshold time.Duration) *StallDetector {
	return &StallDetector{threshold: threshold}
}

// Tick records a frame arrival at now and reports whether the gap since
// the previous arrival exceeded the stall threshold. The first call never
// reports a stall.
func (d *StallDetector) Tick(now time.Time) (stalled bool, gap time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.set {
		d.last, d.set = now, true
		return false, 0
	}
	gap = now.Sub(d.last)
	d.last = now
	return gap > d.threshold, gap
}

// JitterTracker accumulates inter-arrival gaps and reports their standard
// deviation, the arrival jitter, via gonum/stat.
type JitterTracker struct {
	mu   sync.Mutex
	gaps []float64
}

// NewJitterTracker returns an empty JitterTracker.
func NewJitterTracker() *JitterTracker { return &JitterTracker{} }

// Record adds one inter-arrival gap, in seconds, to the sample.
func (j *JitterTracker) Record(gap time.Duration) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.gaps = append(j.gaps, gap.Seconds())
}

// StdDev returns the standard deviation of recorded gaps, in seconds, or
// 0 if fewer than two samples have been recorded.
func (j *JitterTracker) StdDev() float64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.gaps) < 2 {
		return 0
	}
	_, std := stat.MeanStdDev(j.gaps, nil)
	return std
}

// Watchdog periodically notifies systemd's watchdog mechanism from its own
// goroutine; notification does not depend on capture frames arriving.
// Calling Stop halts notification; it does not notify systemd of a stop.
type Watchdog struct {
	ticker *time.Ticker
	done   chan struct{}
}

// StartWatchdog begins notifying systemd every interval. If the process
// is not running under systemd with WatchdogSec set, SdNotify is a no-op
// and this still runs harmlessly.
func StartWatchdog(interval time.Duration) (*Watchdog, error) {
	if interval <= 0 {
		return nil, errors.New("clock: watchdog interval must be positive")
	}
	w := &Watchdog{ticker: time.NewTicker(interval), done: make(chan struct{})}
	go w.run()
	return w, nil
}

func (w *Watchdog) run() {
	for {
		select {
		case <-w.ticker.C:
			daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		case <-w.done:
			return
		}
	}
}

// Stop halts the watchdog goroutine.
func (w *Watchdog) Stop() {
	w.ticker.Stop()
	close(w.done)
}
