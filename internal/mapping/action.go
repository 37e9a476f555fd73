// Package mapping holds the gesture to action table and turns stabilized
// gestures into action descriptors.
package mapping

import "fmt"

// Action is a member of the closed action vocabulary.
type Action string

const (
	ActionNone  Action = "none"
	MoveCursor  Action = "move_cursor"
	LeftClick   Action = "left_click"
	RightClick  Action = "right_click"
	DoubleClick Action = "double_click"
	Drag        Action = "drag"
	Scroll      Action = "scroll"
	ScrollUp    Action = "scroll_up"
	ScrollDown  Action = "scroll_down"
	VolumeUp    Action = "volume_up"
	VolumeDown  Action = "volume_down"
	VolumeMute  Action = "volume_mute"
)

var actions = []Action{
	MoveCursor, LeftClick, RightClick, DoubleClick, Drag,
	Scroll, ScrollUp, ScrollDown, VolumeUp, VolumeDown, VolumeMute,
}

// Actions returns every assignable action in display order. ActionNone is excluded.
func Actions() []Action {
	out := make([]Action, len(actions))
	copy(out, actions)
	return out
}

// ParseAction converts an identifier to an Action.
func ParseAction(s string) (Action, error) {
	if Action(s) == ActionNone {
		return ActionNone, nil
	}
	for _, a := range actions {
		if string(a) == s {
			return a, nil
		}
	}
	return ActionNone, fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

func (a Action) String() string {
	return string(a)
}

// Kind groups actions by how the actuator executes them.
type Kind string

const (
	KindNone   Kind = "none"
	KindMove   Kind = "move"
	KindClick  Kind = "click"
	KindDrag   Kind = "drag"
	KindScroll Kind = "scroll"
	KindVolume Kind = "volume"
)

// Kind returns the execution kind of the action.
func (a Action) Kind() Kind {
	switch a {
	case MoveCursor:
		return KindMove
	case LeftClick, RightClick, DoubleClick:
		return KindClick
	case Drag:
		return KindDrag
	case Scroll, ScrollUp, ScrollDown:
		return KindScroll
	case VolumeUp, VolumeDown, VolumeMute:
		return KindVolume
	}
	return KindNone
}

// Button names a mouse button.
type Button string

const (
	ButtonLeft  Button = "left"
	ButtonRight Button = "right"
)

// Direction is the sign of a scroll or volume step.
type Direction int

const (
	DirNone Direction = 0
	DirUp   Direction = 1
	DirDown Direction = -1
)

// Descriptor is a concrete, executable action for one tick. DX and DY are
// pointer deltas in normalized frame units. Mute marks volume_mute, which
// toggles instead of stepping.
type Descriptor struct {
	Kind      Kind      `json:"kind"`
	Action    Action    `json:"action"`
	Button    Button    `json:"button,omitempty"`
	Clicks    int       `json:"clicks,omitempty"`
	DX        float64   `json:"dx,omitempty"`
	DY        float64   `json:"dy,omitempty"`
	Direction Direction `json:"direction,omitempty"`
	Mute      bool      `json:"mute,omitempty"`
}

// Noop is the descriptor for an unmapped gesture.
var Noop = Descriptor{Kind: KindNone, Action: ActionNone}
