// Package control holds the process-wide switch that lets gestures drive
// the host's input.
package control

import (
	"sync"
	"sync/atomic"
)

// Gate is an atomic enable flag. The pipeline reads it every tick; any
// goroutine may flip it. Enable and Disable are idempotent and never block
// the reader.
type Gate struct {
	enabled atomic.Bool
	// epoch counts enabled->disabled transitions, so the pipeline can notice a
	// disable that was undone before its next tick.
	epoch atomic.Uint64

	mu        sync.Mutex
	listeners []func(enabled bool)
}

// NewGate returns a gate in the given initial state.
func NewGate(enabled bool) *Gate {
	g := &Gate{}
	g.enabled.Store(enabled)
	return g
}

// Enable turns actuation on.
func (g *Gate) Enable() {
	if g.enabled.CompareAndSwap(false, true) {
		g.notify(true)
	}
}

// Disable turns actuation off.
func (g *Gate) Disable() {
	if g.enabled.CompareAndSwap(true, false) {
		g.epoch.Add(1)
		g.notify(false)
	}
}

// Set enables or disables the gate.
func (g *Gate) Set(enabled bool) {
	if enabled {
		g.Enable()
		return
	}
	g.Disable()
}

// IsEnabled reports whether actuation is on.
func (g *Gate) IsEnabled() bool {
	return g.enabled.Load()
}

// Epoch returns the number of enabled->disabled transitions so far.
func (g *Gate) Epoch() uint64 {
	return g.epoch.Load()
}

// OnChange registers fn to run after every state transition. Listeners run
// on the goroutine that flipped the gate and must not block.
func (g *Gate) OnChange(fn func(enabled bool)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listeners = append(g.listeners, fn)
}

// OnDisable registers fn to run after every enabled->disabled transition.
func (g *Gate) OnDisable(fn func()) {
	g.OnChange(func(enabled bool) {
		if !enabled {
			fn()
		}
	})
}

func (g *Gate) notify(enabled bool) {
	g.mu.Lock()
	listeners := append(([]func(bool))(nil), g.listeners...)
	g.mu.Unlock()

	for _, fn := range listeners {
		fn(enabled)
	}
}
