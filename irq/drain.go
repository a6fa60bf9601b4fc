package irq

import (
	"io"

	log "github.com/sirupsen/logrus"

	"starEcho/layers"
	"starEcho/pkg/metrics"
	"starEcho/responder"
)

const DefaultMaxReceiveErrors = 16

// DrainStats summarizes one Drain pass.
type DrainStats struct {
	Received       int
	Transmitted    int
	Dropped        int
	ReceiveErrors  int
	TransmitErrors int
	// Aborted is set when the pass stopped on consecutive receive errors
	// rather than an empty queue.
	Aborted bool
	// LastError is the last device error, its cause is ErrPeripheral.
	LastError error
}

type DrainerConfig struct {
	// MaxReceiveErrors ends a pass after that many receive errors in a row.
	MaxReceiveErrors int
	Logger           *log.Entry
}

// Drainer owns the frame buffer and runs one frame at a time through the
// handler.
type Drainer struct {
	dev       Device
	buf       *layers.Buffer
	handler   Handler
	ack       Acknowledger
	maxErrors int
	logger    *log.Entry
}

func NewDrainer(dev Device, buf *layers.Buffer, handler Handler, ack Acknowledger, cfg DrainerConfig) *Drainer {
	if cfg.MaxReceiveErrors <= 0 {
		cfg.MaxReceiveErrors = DefaultMaxReceiveErrors
	}
	logger := cfg.Logger
	if logger == nil {
		l := log.New()
		l.SetOutput(io.Discard)
		logger = log.NewEntry(l)
	}
	return &Drainer{
		dev:       dev,
		buf:       buf,
		handler:   handler,
		ack:       ack,
		maxErrors: cfg.MaxReceiveErrors,
		logger:    logger,
	}
}

// Drain receives and handles frames while the device reports pending ones,
// then clears the acknowledger exactly once.
func (d *Drainer) Drain() (stats DrainStats) {
	consecutive := 0
	for d.dev.InterruptPending() {
		n, err := d.dev.Receive(d.buf.Reset())
		if err != nil {
			stats.ReceiveErrors++
			stats.LastError = peripheralError("receive", err)
			metrics.DeviceErrors.WithLabelValues("receive").Inc()
			d.logger.Warnf("receive failed: %v", err)

			consecutive++
			if consecutive >= d.maxErrors {
				stats.Aborted = true
				d.logger.Errorf("%d receive errors in a row, leaving drain", consecutive)
				break
			}
			continue
		}
		consecutive = 0
		if n <= 0 {
			continue
		}

		d.buf.Truncate(n)
		stats.Received++
		metrics.FramesReceived.Inc()
		d.logger.Tracef("Rx(%d)", n)

		d.handle(&stats)
	}

	if d.ack != nil {
		d.ack.ClearInterrupt()
	}
	return stats
}

func (d *Drainer) handle(stats *DrainStats) {
	v, err := d.handler.Handle(d.buf)
	switch v {
	case responder.VerdictReplied:
		out := d.buf.Bytes()
		if err := d.dev.Transmit(out); err != nil {
			stats.TransmitErrors++
			stats.LastError = peripheralError("transmit", err)
			metrics.DeviceErrors.WithLabelValues("transmit").Inc()
			metrics.FramesDropped.WithLabelValues(metrics.ReasonTransmit).Inc()
			d.logger.Warnf("transmit failed: %v", err)
			return
		}
		stats.Transmitted++
		metrics.FramesTransmitted.Inc()
		d.logger.Tracef("Tx(%d)", len(out))
	case responder.VerdictDropped, responder.VerdictNoRoute:
		stats.Dropped++
		if err != nil {
			d.logger.Debugf("frame dropped: %v", err)
		}
	}
}
