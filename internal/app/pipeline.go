package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// Run drives the pipeline at the configured frame rate until the frame
// source ends or ctx is cancelled. It opens the camera if needed and closes
// it on return; after a read timeout the close happens in the background so
// a hung device cannot keep Run from returning. The driver ends in
// StateStopped either way.
func (a *App) Run(ctx context.Context) error {
	if !a.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer a.resetActuation()

	if !a.camera.IsOpen() {
		if err := a.camera.Open(); err != nil {
			a.setState(StateStopped)
			return fmt.Errorf("open camera: %w", err)
		}
	}
	closeCamera := true
	defer func() {
		if closeCamera {
			a.camera.Close()
		}
	}()

	fps := a.cfg.Camera.FPS
	a.camera.SetFPS(fps)

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	a.logger.Info("pipeline started", "fps", fps, "enabled", a.gate.IsEnabled())

	for {
		select {
		case <-ctx.Done():
			a.setState(StateStopped)
			a.logger.Info("pipeline cancelled", "frames", a.frame)
			return ctx.Err()
		case <-ticker.C:
			if err := a.Step(); err != nil {
				a.logger.Error("pipeline stopped", "frames", a.frame, "err", err)
				if errors.Is(err, capture.ErrReadTimeout) {
					// The stalled read may still hold the device.
					closeCamera = false
					go a.camera.Close()
				}
				return err
			}
		}
	}
}

// Step runs one tick: read a frame, find the hands in it, and when the gate
// is open classify, map and actuate each hand. The frame and its hands are
// published together whether or not the gate is open. It returns an error
// only when the frame source has ended, after which the driver is stopped.
func (a *App) Step() error {
	if a.State() == StateStopped {
		return ErrStopped
	}

	frame, err := capture.ReadFrameTimeout(a.camera, a.cfg.Camera.ReadTimeout)
	if err != nil {
		a.setState(StateStopped)
		return fmt.Errorf("read frame: %w", err)
	}
	defer frame.Close()

	if a.State() == StateIdle {
		a.setState(StateRunning)
	}

	a.frame++
	index, now := a.frame, a.now()

	if epoch := a.gate.Epoch(); epoch != a.epoch {
		a.epoch = epoch
		a.resetActuation()
	}

	var roles [detector.NumRoles]*detector.HandLandmarks
	var results [detector.NumRoles]gesture.Classified
	for i := range results {
		results[i] = gesture.Classified{Label: gesture.None, Raw: gesture.None, Role: detector.Role(i), Frame: index}
	}

	if hands, err := a.detect(frame); err != nil {
		a.logger.Warn("hand detection failed", "frame", index, "err", err)
	} else {
		a.handsSeen = len(hands) > 0
		if a.cfg.Camera.Mirror {
			for i := range hands {
				hands[i] = hands[i].Mirrored()
			}
		}
		roles = detector.AssignRoles(hands, a.cfg.PrimaryHand)
		if a.gate.IsEnabled() {
			for i, hand := range roles {
				results[i] = a.handle(hand, detector.Role(i), index, now)
			}
		}
	}

	a.slot.publish(frame, index, now, roles, results)
	return nil
}

// detect runs the detector unless the scene is idle: no hand in the last
// frame and too little change since it.
func (a *App) detect(frame *gocv.Mat) ([]detector.HandLandmarks, error) {
	if a.motion != nil {
		if moved, _ := a.motion.Moved(frame); !moved && !a.handsSeen {
			return nil, nil
		}
	}
	return a.detector.Detect(frame)
}

// handle classifies, maps and actuates one hand role. A missing hand is
// still classified so the stabilizer and actuator observe its absence.
func (a *App) handle(hand *detector.HandLandmarks, role detector.Role, index uint64, now time.Time) gesture.Classified {
	c := a.classifier.Classify(hand, role, index, now)
	if c.Changed {
		a.logger.Info("gesture", "role", role.String(), "label", c.Label, "confidence", c.Confidence, "frame", index)
		a.notify(c)
	}

	d := a.mapper.Map(c)
	if err := a.actuators[role].Apply(d); err != nil {
		a.logger.Warn("actuation failed", "role", role.String(), "action", d.Action, "err", err)
	}
	return c
}

// resetActuation drops recognition and actuation history after the gate
// was closed, so re-enabling starts clean and a held drag is released.
func (a *App) resetActuation() {
	a.classifier.Reset()
	a.handsSeen = false
	if a.motion != nil {
		a.motion.Reset()
	}
	for role, act := range a.actuators {
		if err := act.Reset(); err != nil {
			a.logger.Warn("actuator reset failed", "role", detector.Role(role).String(), "err", err)
		}
	}
}
