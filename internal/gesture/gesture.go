// Package gesture disambiguates short clicks from sustained presses on
// a per-target basis. It is a pure timing state machine: quick-add and
// edit-open actions are bound by the caller, not here.
package gesture

import (
	"sync"
	"time"
)

// DefaultLongPressDelay is how long a press must be held before it
// counts as a long press.
const DefaultLongPressDelay = time.Second

// Recognizer tracks press state per target. Each pressed target owns
// its own one-shot timer, so concurrent presses on different targets
// never interfere.
type Recognizer struct {
	delay       time.Duration
	onLongPress func(target string)

	mu      sync.Mutex
	pending map[string]*press
}

// press is one pointer-down session. fire compares pointers so a timer
// from a superseded session can never consume a newer press.
type press struct {
	timer *time.Timer
}

// NewRecognizer creates a new Recognizer instance. onLongPress is
// invoked with the pressed target when a press is held past delay; a
// non-positive delay falls back to DefaultLongPressDelay.
func NewRecognizer(delay time.Duration, onLongPress func(target string)) *Recognizer {
	if delay <= 0 {
		delay = DefaultLongPressDelay
	}

	return &Recognizer{
		delay:       delay,
		onLongPress: onLongPress,
		pending:     make(map[string]*press),
	}
}

// PressStart moves the target from Idle to Pressed and arms its timer.
// A press already in flight for the same target is restarted.
func (r *Recognizer) PressStart(target string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.pending[target]; ok {
		prev.timer.Stop()
	}

	p := &press{}
	p.timer = time.AfterFunc(r.delay, func() {
		r.fire(target, p)
	})
	r.pending[target] = p
}

// PressEnd releases the target. It returns true when the release beat
// the timer, i.e. the press was a short interaction; false when the
// long press already fired (or no press was in flight).
func (r *Recognizer) PressEnd(target string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pending[target]
	if !ok {
		return false
	}

	// When Stop reports false the timer has already gone off; leave the
	// entry for fire to consume so exactly one outcome wins.
	if !p.timer.Stop() {
		return false
	}

	delete(r.pending, target)
	return true
}

// Cancel drops a pending press without treating it as a short
// interaction (pointer left the target mid-hold).
func (r *Recognizer) Cancel(target string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pending[target]
	if !ok {
		return
	}

	if p.timer.Stop() {
		delete(r.pending, target)
	}
}

// fire runs on timer expiry: the press became a long press, invoke the
// callback exactly once and return the target to Idle.
func (r *Recognizer) fire(target string, p *press) {
	r.mu.Lock()
	if r.pending[target] != p {
		r.mu.Unlock()
		return
	}
	delete(r.pending, target)
	r.mu.Unlock()

	if r.onLongPress != nil {
		r.onLongPress(target)
	}
}
