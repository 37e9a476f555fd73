package mapping

import "github.com/ayusman/mudra/internal/gesture"

// Resolver looks up the action bound to a gesture.
type Resolver interface {
	Resolve(g gesture.Label) Action
}

// Mapper turns stabilized gestures into action descriptors.
type Mapper struct {
	resolver Resolver
}

// NewMapper returns a mapper reading bindings from r.
func NewMapper(r Resolver) *Mapper {
	return &Mapper{resolver: r}
}

// Map returns the descriptor for c. None and unmapped gestures yield Noop.
func (m *Mapper) Map(c gesture.Classified) Descriptor {
	if c.Label == gesture.None {
		return Noop
	}

	a := m.resolver.Resolve(c.Label)
	d := Descriptor{Kind: a.Kind(), Action: a}

	switch a {
	case MoveCursor, Drag:
		d.DX, d.DY = c.Motion.DX, c.Motion.DY
		if a == Drag {
			d.Button = ButtonLeft
		}
	case LeftClick:
		d.Button, d.Clicks = ButtonLeft, 1
	case RightClick:
		d.Button, d.Clicks = ButtonRight, 1
	case DoubleClick:
		d.Button, d.Clicks = ButtonLeft, 2
	case Scroll:
		// Frame y grows downward, so a hand moving up scrolls up.
		switch {
		case c.Motion.DY < 0:
			d.Direction = DirUp
		case c.Motion.DY > 0:
			d.Direction = DirDown
		}
	case ScrollUp, VolumeUp:
		d.Direction = DirUp
	case ScrollDown, VolumeDown:
		d.Direction = DirDown
	case VolumeMute:
		d.Mute = true
	default:
		return Noop
	}
	return d
}
