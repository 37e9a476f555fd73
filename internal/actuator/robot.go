package actuator

import (
	"fmt"

	"github.com/go-vgo/robotgo"

	"github.com/ayusman/mudra/internal/mapping"
)

// RobotInjector injects events in-process through robotgo.
type RobotInjector struct{}

// NewRobotInjector returns an injector backed by robotgo.
func NewRobotInjector() *RobotInjector {
	return &RobotInjector{}
}

func (r *RobotInjector) ScreenSize() (int, int) {
	return robotgo.GetScreenSize()
}

func (r *RobotInjector) MoveRelative(dx, dy int) error {
	robotgo.MoveRelative(dx, dy)
	return nil
}

func (r *RobotInjector) Click(button mapping.Button, double bool) error {
	robotgo.Click(string(button), double)
	return nil
}

func (r *RobotInjector) Toggle(button mapping.Button, down bool) error {
	if down {
		return robotgo.Toggle(string(button))
	}
	return robotgo.Toggle(string(button), "up")
}

func (r *RobotInjector) Scroll(dx, dy int) error {
	robotgo.Scroll(dx, dy)
	return nil
}

func (r *RobotInjector) KeyTap(key string) error {
	if err := robotgo.KeyTap(key); err != nil {
		return fmt.Errorf("key %s: %w", key, err)
	}
	return nil
}
