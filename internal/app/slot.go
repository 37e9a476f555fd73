package app

import (
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// State is the lifecycle state of the pipeline driver.
type State int32

const (
	// StateIdle is the state before the first frame is read.
	StateIdle State = iota
	// StateRunning is the steady per-frame state.
	StateRunning
	// StateStopped is terminal: the frame source ended or the driver was cancelled.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Snapshot is a copy of the slot contents. Frame, when set, is a clone
// owned by the caller; release it with Close.
type Snapshot struct {
	Frame    *gocv.Mat
	Index    uint64
	At       time.Time
	State    State
	Hands    [detector.NumRoles]*detector.HandLandmarks
	Gestures [detector.NumRoles]gesture.Classified
}

// Close releases the frame clone.
func (s *Snapshot) Close() error {
	if s.Frame == nil {
		return nil
	}
	err := s.Frame.Close()
	s.Frame = nil
	return err
}

// Slot holds the latest frame and hands seen by the driver. The driver is
// the only writer; readers receive copies and never block the driver for
// longer than a frame clone.
type Slot struct {
	mu       sync.RWMutex
	frame    *gocv.Mat
	index    uint64
	at       time.Time
	state    State
	hands    [detector.NumRoles]*detector.HandLandmarks
	gestures [detector.NumRoles]gesture.Classified

	done     chan struct{}
	doneOnce sync.Once
}

// NewSlot returns an empty slot in the idle state.
func NewSlot() *Slot {
	return &Slot{done: make(chan struct{})}
}

// publish replaces the slot contents with one complete tick: the frame,
// the hands found in it and their classification. Readers never see a
// frame without the hands that belong to it.
func (s *Slot) publish(frame *gocv.Mat, index uint64, at time.Time, hands [detector.NumRoles]*detector.HandLandmarks, gestures [detector.NumRoles]gesture.Classified) {
	clone := frame.Clone()
	var copied [detector.NumRoles]*detector.HandLandmarks
	for i, h := range hands {
		if h != nil {
			c := *h
			copied[i] = &c
		}
	}

	s.mu.Lock()
	old := s.frame
	s.frame = &clone
	s.index = index
	s.at = at
	s.hands = copied
	s.gestures = gestures
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}
}

func (s *Slot) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()

	if st == StateStopped {
		s.doneOnce.Do(func() { close(s.done) })
	}
}

// Snapshot returns a copy of the slot including a clone of the frame.
func (s *Slot) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.peekLocked()
	if s.frame != nil {
		clone := s.frame.Clone()
		snap.Frame = &clone
	}
	return snap
}

// Peek returns a copy of the slot without the frame.
func (s *Slot) Peek() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.peekLocked()
}

func (s *Slot) peekLocked() Snapshot {
	snap := Snapshot{
		Index:    s.index,
		At:       s.at,
		State:    s.state,
		Gestures: s.gestures,
	}
	for i, h := range s.hands {
		if h != nil {
			c := *h
			snap.Hands[i] = &c
		}
	}
	return snap
}

// Index returns the index of the latest frame, 0 before the first frame.
func (s *Slot) Index() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

// State returns the driver state recorded in the slot.
func (s *Slot) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Done is closed when the driver stops. Readers should stop waiting for new
// frames once it is closed.
func (s *Slot) Done() <-chan struct{} {
	return s.done
}

// release frees the held frame.
func (s *Slot) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frame != nil {
		s.frame.Close()
		s.frame = nil
	}
}
