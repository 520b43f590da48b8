package docdisk

import (
	"sync"
	"time"
)

// DefaultDismissAfter is how long a notification stays visible.
const DefaultDismissAfter = 5 * time.Second

// Notifier holds at most one live notification. Showing a new one replaces
// the current one and restarts the dismiss timer; there is no queue.
type Notifier struct {
	clock Clock
	after time.Duration

	mu       sync.Mutex // protects the fields below
	current  *Notification
	timer    Timer
	seq      uint64 // identifies the live timer; stale firings are ignored
	onChange func(*Notification)
}

// NewNotifier creates a Notifier that dismisses notifications after the given
// duration. A non-positive duration selects DefaultDismissAfter.
func NewNotifier(clock Clock, after time.Duration) *Notifier {
	if after <= 0 {
		after = DefaultDismissAfter
	}
	return &Notifier{clock: clock, after: after}
}

// OnChange registers fn to be called after every change, with the new
// notification or nil once it is cleared. fn runs without the lock held,
// on the timer goroutine for automatic dismissal.
func (n *Notifier) OnChange(fn func(*Notification)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onChange = fn
}

// Show replaces any live notification and starts a fresh dismiss timer.
func (n *Notifier) Show(message string, severity Severity) {
	n.mu.Lock()
	if n.timer != nil {
		n.timer.Stop()
	}
	n.seq++
	seq := n.seq
	note := &Notification{
		Message:   message,
		Severity:  severity,
		ExpiresAt: n.clock.Now().Add(n.after),
	}
	n.current = note
	n.timer = n.clock.AfterFunc(n.after, func() { n.expire(seq) })
	fn := n.onChange
	n.mu.Unlock()

	if fn != nil {
		c := *note
		fn(&c)
	}
}

// Dismiss clears the live notification and cancels its timer.
func (n *Notifier) Dismiss() {
	if n.clear() {
		n.notify(nil)
	}
}

// Close cancels any pending timer without notifying the listener.
func (n *Notifier) Close() {
	n.clear()
}

// Current returns the live notification, if any.
func (n *Notifier) Current() (Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return Notification{}, false
	}
	return *n.current, true
}

func (n *Notifier) clear() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.seq++
	had := n.current != nil
	n.current = nil
	return had
}

func (n *Notifier) expire(seq uint64) {
	n.mu.Lock()
	if n.seq != seq {
		n.mu.Unlock()
		return
	}
	n.current = nil
	n.timer = nil
	n.mu.Unlock()

	n.notify(nil)
}

func (n *Notifier) notify(note *Notification) {
	n.mu.Lock()
	fn := n.onChange
	n.mu.Unlock()
	if fn != nil {
		fn(note)
	}
}
