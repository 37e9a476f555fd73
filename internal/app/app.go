// Package app wires the capture, recognition, mapping and actuation stages
// into the per-frame pipeline driver.
package app

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/actuator"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/control"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/mapping"
)

var (
	// ErrStopped is returned by Step once the driver has stopped.
	ErrStopped = errors.New("pipeline stopped")
	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("pipeline already running")
)

// Options holds the collaborators of an App.
type Options struct {
	Config   config.Config
	Camera   capture.Camera
	Detector detector.Detector
	Table    *mapping.Table
	Injector actuator.Injector
	// Gate defaults to a new gate in Config.Enabled state.
	Gate   *control.Gate
	Logger *slog.Logger
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// App is the pipeline driver: it reads frames, classifies hands, maps
// gestures to actions and actuates them, one frame per tick.
type App struct {
	cfg        config.Config
	camera     capture.Camera
	detector   detector.Detector
	table      *mapping.Table
	gate       *control.Gate
	classifier *gesture.Classifier
	mapper     *mapping.Mapper
	actuators  [detector.NumRoles]*actuator.Actuator
	slot       *Slot
	logger     *slog.Logger
	now        func() time.Time
	runID      string

	state   atomic.Int32
	started atomic.Bool

	// Owned by the driver goroutine.
	frame     uint64
	epoch     uint64
	motion    *capture.MotionDetector
	handsSeen bool

	mu        sync.RWMutex
	callbacks []func(gesture.Classified)
}

// New creates an App from opts.
func New(opts Options) (*App, error) {
	switch {
	case opts.Camera == nil:
		return nil, errors.New("app: camera is required")
	case opts.Detector == nil:
		return nil, errors.New("app: detector is required")
	case opts.Table == nil:
		return nil, errors.New("app: mapping table is required")
	case opts.Injector == nil:
		return nil, errors.New("app: injector is required")
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gate := opts.Gate
	if gate == nil {
		gate = control.NewGate(opts.Config.Enabled)
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}

	runID := uuid.NewString()
	logger = logger.With("run", runID)

	a := &App{
		cfg:        opts.Config,
		camera:     opts.Camera,
		detector:   opts.Detector,
		table:      opts.Table,
		gate:       gate,
		classifier: gesture.NewClassifier(opts.Config.Gesture, logger.With("component", "classifier")),
		mapper:     mapping.NewMapper(opts.Table),
		slot:       NewSlot(),
		logger:     logger,
		now:        now,
		runID:      runID,
		epoch:      gate.Epoch(),
	}
	if t := opts.Config.Camera.MotionThreshold; t > 0 {
		a.motion = capture.NewMotionDetector(t)
	}
	for i := range a.actuators {
		a.actuators[i] = actuator.New(opts.Config.Actuator, opts.Injector,
			actuator.WithClock(now),
			actuator.WithLogger(logger.With("component", "actuator", "role", detector.Role(i).String())),
		)
	}
	return a, nil
}

// OnGesture registers fn to run whenever a hand's stable gesture changes.
// Callbacks run on the driver goroutine and must not block.
func (a *App) OnGesture(fn func(gesture.Classified)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.callbacks = append(a.callbacks, fn)
}

func (a *App) notify(c gesture.Classified) {
	a.mu.RLock()
	callbacks := a.callbacks
	a.mu.RUnlock()

	for _, fn := range callbacks {
		fn(c)
	}
}

// State returns the driver state.
func (a *App) State() State {
	return State(a.state.Load())
}

func (a *App) setState(st State) {
	if State(a.state.Swap(int32(st))) == st {
		return
	}
	a.slot.setState(st)
	a.logger.Info("pipeline state changed", "state", st)
}

// Slot returns the latest-state slot read by the preview.
func (a *App) Slot() *Slot {
	return a.slot
}

// Gate returns the control gate.
func (a *App) Gate() *control.Gate {
	return a.gate
}

// Table returns the mapping table.
func (a *App) Table() *mapping.Table {
	return a.table
}

// Config returns the configuration the App was built with.
func (a *App) Config() config.Config {
	return a.cfg
}

// RunID identifies this driver instance in logs.
func (a *App) RunID() string {
	return a.runID
}

// Close releases the detector and the slot frame. Call it after Run returns.
func (a *App) Close() error {
	a.slot.release()
	if a.motion != nil {
		a.motion.Close()
	}
	return a.detector.Close()
}
