package timer

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"starEcho/pkg/metrics"
)

// SleepMeter accumulates the time the drain worker spends waiting for work.
// The worker adds to it and the reporter swaps it out; both sides are atomic.
type SleepMeter struct {
	slept atomic.Duration
	ticks atomic.Int64
}

func NewSleepMeter() *SleepMeter {
	return &SleepMeter{}
}

// Add records d of idle time.
func (m *SleepMeter) Add(d time.Duration) {
	if d > 0 {
		m.slept.Add(d)
	}
}

// Slept returns the idle time since the last Reset.
func (m *SleepMeter) Slept() time.Duration {
	return m.slept.Load()
}

// Reset returns the idle time since the previous Reset and starts over.
func (m *SleepMeter) Reset() time.Duration {
	return m.slept.Swap(0)
}

// Ticks returns how many report periods have elapsed. It is a monotonic
// counter, unaffected by wall clock jumps.
func (m *SleepMeter) Ticks() int64 {
	return m.ticks.Load()
}

// Report logs the idle share every interval until ctx is done.
func (m *SleepMeter) Report(ctx context.Context, interval time.Duration, logger *log.Entry) {
	if interval <= 0 {
		return
	}
	if logger == nil {
		logger = log.WithField("module", "timer")
	}

	tc := time.NewTicker(interval)
	defer tc.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tc.C:
			m.tick(interval, logger)
		}
	}
}

func (m *SleepMeter) tick(interval time.Duration, logger *log.Entry) {
	slept := m.Reset()
	n := m.ticks.Inc()
	metrics.IdleSeconds.Add(slept.Seconds())
	logger.Debugf("tick %d: slept %v of %v (%.1f%%)", n, slept, interval,
		100*float64(slept)/float64(interval))
}
