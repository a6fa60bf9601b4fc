package irq

// Line is a level triggered interrupt line. Raise latches it, the worker
// sees it through Raised, and ClearInterrupt signals the raiser that the
// queue has been drained. Both directions hold at most one pending signal.
type Line struct {
	raised  chan struct{}
	cleared chan struct{}
}

func NewLine() *Line {
	return &Line{
		raised:  make(chan struct{}, 1),
		cleared: make(chan struct{}, 1),
	}
}

// Raise latches the line. Raising a latched line is a no-op.
func (l *Line) Raise() {
	select {
	case l.raised <- struct{}{}:
	default:
	}
}

func (l *Line) Raised() <-chan struct{} {
	return l.raised
}

// ClearInterrupt implements Acknowledger.
func (l *Line) ClearInterrupt() {
	select {
	case l.cleared <- struct{}{}:
	default:
	}
}

func (l *Line) Cleared() <-chan struct{} {
	return l.cleared
}

// arm discards a clear that no raise is waiting for, such as the one left
// by the start-up drain.
func (l *Line) arm() {
	select {
	case <-l.cleared:
	default:
	}
}
