package actuator

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/ayusman/mudra/internal/mapping"
)

// Config holds actuator tuning.
type Config struct {
	// Alpha is the exponential smoothing weight of the newest delta.
	Alpha float64
	// Deadzone is the smoothed per-axis delta, in normalized frame units,
	// below which the axis does not move.
	Deadzone float64
	// MaxStep is the largest per-axis pointer step in pixels.
	MaxStep int
	// Gain multiplies the screen-scaled delta.
	Gain float64
	// InvertX flips horizontal motion.
	InvertX bool
	// ClickInterval is the minimum time between repeated clicks.
	ClickInterval time.Duration
	// RepeatInterval is the minimum time between repeated scroll and volume steps.
	RepeatInterval time.Duration
	// ScrollStep is the scroll amount of one step.
	ScrollStep int
}

// DefaultConfig returns the default actuator configuration.
func DefaultConfig() Config {
	return Config{
		Alpha:          0.5,
		Deadzone:       0.002,
		MaxStep:        80,
		Gain:           1.5,
		ClickInterval:  600 * time.Millisecond,
		RepeatInterval: 250 * time.Millisecond,
		ScrollStep:     3,
	}
}

// Actuator executes descriptors for one hand. It owns the smoothing,
// debounce and drag state of that hand and is not safe for concurrent use.
type Actuator struct {
	cfg    Config
	inj    Injector
	now    func() time.Time
	logger *slog.Logger

	smoothX, smoothY float64
	smoothing        bool
	last             mapping.Action
	lastFire         map[mapping.Action]time.Time
	dragging         bool
	width, height    int
}

// Option configures an Actuator.
type Option func(*Actuator)

// WithClock replaces time.Now as the actuator's clock.
func WithClock(now func() time.Time) Option {
	return func(a *Actuator) { a.now = now }
}

// WithLogger sets the actuator's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Actuator) { a.logger = logger }
}

// New returns an actuator driving inj.
func New(cfg Config, inj Injector, opts ...Option) *Actuator {
	a := &Actuator{
		cfg:      cfg,
		inj:      inj,
		now:      time.Now,
		logger:   slog.Default(),
		last:     mapping.ActionNone,
		lastFire: make(map[mapping.Action]time.Time),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Apply executes d. Injector failures are returned wrapped in ErrActuation
// and leave the actuator's state as it was before the call.
func (a *Actuator) Apply(d mapping.Descriptor) error {
	if a.dragging && d.Kind != mapping.KindDrag {
		if err := a.inj.Toggle(mapping.ButtonLeft, false); err != nil {
			return fmt.Errorf("%w: release drag: %w", ErrActuation, err)
		}
		a.dragging = false
	}

	switch d.Kind {
	case mapping.KindMove, mapping.KindDrag:
		return a.move(d)
	case mapping.KindClick, mapping.KindScroll, mapping.KindVolume:
		return a.discrete(d)
	}

	a.smoothing = false
	a.last = mapping.ActionNone
	return nil
}

// Reset drops smoothing and debounce state and releases a held drag button.
func (a *Actuator) Reset() error {
	a.smoothX, a.smoothY, a.smoothing = 0, 0, false
	a.last = mapping.ActionNone
	clear(a.lastFire)

	if !a.dragging {
		return nil
	}
	a.dragging = false
	if err := a.inj.Toggle(mapping.ButtonLeft, false); err != nil {
		return fmt.Errorf("%w: release drag: %w", ErrActuation, err)
	}
	return nil
}

// Dragging reports whether the actuator holds the drag button down.
func (a *Actuator) Dragging() bool {
	return a.dragging
}

func (a *Actuator) move(d mapping.Descriptor) error {
	sx, sy := d.DX, d.DY
	if a.smoothing {
		sx = a.cfg.Alpha*d.DX + (1-a.cfg.Alpha)*a.smoothX
		sy = a.cfg.Alpha*d.DY + (1-a.cfg.Alpha)*a.smoothY
	}

	if a.width <= 0 || a.height <= 0 {
		a.width, a.height = a.inj.ScreenSize()
		if a.width <= 0 || a.height <= 0 {
			return fmt.Errorf("%w: screen size unavailable", ErrActuation)
		}
	}

	px := a.pixels(sx, a.width)
	py := a.pixels(sy, a.height)
	if a.cfg.InvertX {
		px = -px
	}

	if d.Kind == mapping.KindDrag && !a.dragging {
		if err := a.inj.Toggle(mapping.ButtonLeft, true); err != nil {
			return fmt.Errorf("%w: press drag: %w", ErrActuation, err)
		}
		a.dragging = true
	}

	if px != 0 || py != 0 {
		if err := a.inj.MoveRelative(px, py); err != nil {
			return fmt.Errorf("%w: move: %w", ErrActuation, err)
		}
	}

	a.smoothX, a.smoothY, a.smoothing = sx, sy, true
	a.last = d.Action
	return nil
}

// pixels converts a smoothed normalized delta to a clamped pixel step.
func (a *Actuator) pixels(v float64, extent int) int {
	if math.Abs(v) < a.cfg.Deadzone {
		return 0
	}
	p := int(math.Round(v * float64(extent) * a.cfg.Gain))
	if a.cfg.MaxStep > 0 {
		p = max(-a.cfg.MaxStep, min(a.cfg.MaxStep, p))
	}
	return p
}

func (a *Actuator) discrete(d mapping.Descriptor) error {
	now := a.now()
	if a.last == d.Action {
		if fired, ok := a.lastFire[d.Action]; ok && now.Sub(fired) < a.interval(d.Kind) {
			return nil
		}
	}

	fired, err := a.fire(d)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrActuation, d.Action, err)
	}

	a.smoothing = false
	a.last = d.Action
	if fired {
		a.lastFire[d.Action] = now
		a.logger.Debug("action fired", "action", d.Action)
	}
	return nil
}

func (a *Actuator) fire(d mapping.Descriptor) (bool, error) {
	switch d.Kind {
	case mapping.KindClick:
		return true, a.inj.Click(d.Button, d.Clicks > 1)
	case mapping.KindScroll:
		if d.Direction == mapping.DirNone {
			return false, nil
		}
		return true, a.inj.Scroll(0, int(d.Direction)*a.cfg.ScrollStep)
	case mapping.KindVolume:
		switch {
		case d.Mute:
			return true, a.inj.KeyTap(KeyVolumeMute)
		case d.Direction == mapping.DirUp:
			return true, a.inj.KeyTap(KeyVolumeUp)
		case d.Direction == mapping.DirDown:
			return true, a.inj.KeyTap(KeyVolumeDown)
		}
	}
	return false, nil
}

func (a *Actuator) interval(k mapping.Kind) time.Duration {
	if k == mapping.KindClick {
		return a.cfg.ClickInterval
	}
	return a.cfg.RepeatInterval
}
