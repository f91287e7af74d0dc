// Package roomtimer provides a small cancellable one-shot delayed callback,
// the mechanism the room package uses for disconnect grace and post-game
// cleanup. The callback always runs by posting back onto the caller's own
// event channel rather than mutating state directly, so a firing timer is
// serialized the same way an inbound message is.
package roomtimer

import "time"

// Timer is a cancellable one-shot delay.
type Timer struct {
	cancel chan struct{}
}

// Schedule starts a timer that calls fire after d, unless Cancel is called
// first or done is closed (e.g. because the owning room has shut down).
func Schedule(d time.Duration, done <-chan struct{}, fire func()) *Timer {
	t := &Timer{cancel: make(chan struct{})}
	cancel := t.cancel
	go func() {
		select {
		case <-time.After(d):
			fire()
		case <-cancel:
		case <-done:
		}
	}()
	return t
}

// Cancel stops the timer if it has not already fired. Safe to call more
// than once and safe to call on a nil *Timer.
func (t *Timer) Cancel() {
	if t == nil || t.cancel == nil {
		return
	}
	select {
	case <-t.cancel:
		// already cancelled
	default:
		close(t.cancel)
	}
}
