// Package actuator replays action descriptors as OS-level pointer, button,
// scroll and key events.
package actuator

import (
	"errors"

	"github.com/ayusman/mudra/internal/mapping"
)

// ErrActuation wraps every failure of the underlying injector.
var ErrActuation = errors.New("actuation failed")

// Volume keys understood by every Injector.
const (
	KeyVolumeUp   = "audio_vol_up"
	KeyVolumeDown = "audio_vol_down"
	KeyVolumeMute = "audio_mute"
)

// Injector issues raw input events on the host.
type Injector interface {
	// ScreenSize returns the main display size in pixels.
	ScreenSize() (width, height int)
	MoveRelative(dx, dy int) error
	Click(button mapping.Button, double bool) error
	// Toggle presses (down) or releases a mouse button.
	Toggle(button mapping.Button, down bool) error
	Scroll(dx, dy int) error
	KeyTap(key string) error
}

// EventType names an injector call on the wire.
type EventType string

const (
	EventMove   EventType = "move"
	EventClick  EventType = "click"
	EventToggle EventType = "toggle"
	EventScroll EventType = "scroll"
	EventKey    EventType = "key"
	EventScreen EventType = "screen"
)

// Event is one injector call encoded for an external helper process.
type Event struct {
	Type   EventType      `json:"type"`
	Button mapping.Button `json:"button,omitempty"`
	Double bool           `json:"double,omitempty"`
	Down   bool           `json:"down,omitempty"`
	DX     int            `json:"dx,omitempty"`
	DY     int            `json:"dy,omitempty"`
	Key    string         `json:"key,omitempty"`
}

// Response is a helper process's reply to one Event.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
}
