package irq

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"starEcho/pkg/timer"
)

// Watch polls dev and raises line whenever frames are pending, then waits
// for the worker to clear it before polling again. It returns nil when ctx
// is done and an error when the device can no longer be waited on.
func Watch(ctx context.Context, dev Device, line *Line, interval time.Duration) error {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	waiter, _ := dev.(Waiter)

	for {
		if ctx.Err() != nil {
			return nil
		}

		var ready bool
		if waiter != nil {
			var err error
			ready, err = waiter.WaitReadable(interval)
			if err != nil {
				return errors.Wrap(err, "wait readable failed")
			}
		} else if ready = dev.InterruptPending(); !ready {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(interval):
			}
		}
		if !ready {
			continue
		}

		line.arm()
		line.Raise()
		select {
		case <-ctx.Done():
			return nil
		case <-line.Cleared():
		}
	}
}

// Worker is the only goroutine touching the drainer, and so the buffer,
// cache and dispatcher behind it.
type Worker struct {
	drainer *Drainer
	line    *Line
	meter   *timer.SleepMeter
	logger  *log.Entry
}

func NewWorker(drainer *Drainer, line *Line, meter *timer.SleepMeter) *Worker {
	if meter == nil {
		meter = timer.NewSleepMeter()
	}
	return &Worker{
		drainer: drainer,
		line:    line,
		meter:   meter,
		logger:  log.WithField("module", "irq"),
	}
}

// Run drains once for frames that arrived before start-up, then once per
// raised line until ctx is done. A pass in progress always completes.
func (w *Worker) Run(ctx context.Context) {
	w.pass()
	for {
		idle := time.Now()
		select {
		case <-ctx.Done():
			return
		case <-w.line.Raised():
		}
		w.meter.Add(time.Since(idle))
		w.pass()
	}
}

func (w *Worker) pass() {
	stats := w.drainer.Drain()
	if stats.Aborted {
		w.logger.Warnf("drain aborted after %d receive errors: %v", stats.ReceiveErrors, stats.LastError)
	}
}
