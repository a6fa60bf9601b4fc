// Package irq drains a network device the way an interrupt handler would:
// a watcher raises a line when frames are pending, and a single worker pulls
// every pending frame through the dispatcher before acknowledging the line.
package irq

import (
	"time"

	"github.com/pkg/errors"

	"starEcho/layers"
	"starEcho/responder"
)

// ErrPeripheral is the cause of every device failure reported by the drain
// loop.
var ErrPeripheral = errors.New("peripheral error")

// Device is the network peripheral. Watch calls InterruptPending (or
// WaitReadable) on its own goroutine while the worker receives and
// transmits, so those two must be safe to call alongside Receive.
type Device interface {
	// InterruptPending reports whether at least one frame can be received
	// without blocking.
	InterruptPending() bool
	// Receive copies one frame into b and returns its length.
	Receive(b []byte) (int, error)
	Transmit(b []byte) error
}

// Waiter is implemented by devices that can block until a frame arrives.
type Waiter interface {
	WaitReadable(timeout time.Duration) (bool, error)
}

// Acknowledger clears the latched interrupt once the receive queue is empty.
type Acknowledger interface {
	ClearInterrupt()
}

// Handler processes one frame held in a buffer.
type Handler interface {
	Handle(buf *layers.Buffer) (responder.Verdict, error)
}

func peripheralError(op string, err error) error {
	return errors.Wrapf(ErrPeripheral, "%s: %v", op, err)
}
