package actuator

import (
	"fmt"
	"sync"

	"github.com/ayusman/mudra/internal/mapping"
)

// Recorder is an Injector that records events instead of injecting them.
// It is used by tests and by dry runs.
type Recorder struct {
	mu     sync.Mutex
	width  int
	height int
	events []Event
	err    error
}

// NewRecorder returns a recorder reporting the given screen size.
func NewRecorder(width, height int) *Recorder {
	return &Recorder{width: width, height: height}
}

// SetError makes every following call fail with err. A nil err clears it.
func (r *Recorder) SetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Count returns how many recorded events have the given type.
func (r *Recorder) Count(t EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

// Reset drops the recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func (r *Recorder) ScreenSize() (int, int) {
	return r.width, r.height
}

func (r *Recorder) MoveRelative(dx, dy int) error {
	return r.record(Event{Type: EventMove, DX: dx, DY: dy})
}

func (r *Recorder) Click(button mapping.Button, double bool) error {
	return r.record(Event{Type: EventClick, Button: button, Double: double})
}

func (r *Recorder) Toggle(button mapping.Button, down bool) error {
	return r.record(Event{Type: EventToggle, Button: button, Down: down})
}

func (r *Recorder) Scroll(dx, dy int) error {
	return r.record(Event{Type: EventScroll, DX: dx, DY: dy})
}

func (r *Recorder) KeyTap(key string) error {
	return r.record(Event{Type: EventKey, Key: key})
}

func (r *Recorder) record(ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return fmt.Errorf("%s: %w", ev.Type, r.err)
	}
	r.events = append(r.events, ev)
	return nil
}
