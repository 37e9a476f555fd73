// Package detector provides hand detection interfaces and types for gesture recognition.
package detector

import (
	"errors"
	"math"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// minScale is the smallest wrist to middle MCP distance treated as a real hand.
const minScale = 1e-6

// ErrDegenerate is returned when a skeleton cannot be measured: a coordinate
// is NaN or infinite, or the hand has no measurable size.
var ErrDegenerate = errors.New("degenerate hand geometry")

// Point3D represents a 3D point in space with x, y, z coordinates.
// Visibility is the per-point confidence reported by the tracker, 0 when unknown.
type Point3D struct {
	X          float64 `json:"x" cbor:"x"`
	Y          float64 `json:"y" cbor:"y"`
	Z          float64 `json:"z" cbor:"z"`
	Visibility float64 `json:"visibility,omitempty" cbor:"v,omitempty"`
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points" cbor:"points"`
	Handedness string                `json:"handedness" cbor:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score" cbor:"score"`
}

// Role identifies which of the two tracked hands a skeleton belongs to.
type Role int

const (
	// Primary is the hand matching the configured dominant handedness.
	Primary Role = iota
	// Secondary is the other hand.
	Secondary
)

// NumRoles is the number of hand roles tracked per frame.
const NumRoles = 2

func (r Role) String() string {
	switch r {
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	default:
		return "unknown"
	}
}

// MarshalText encodes the role by name.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// distance3D calculates the Euclidean distance between two 3D points.
func distance3D(a, b Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point3D) float64 {
	return distance3D(a, b)
}

// Scale returns the wrist to middle finger MCP distance, the per-hand unit
// that every geometric threshold is expressed in.
func (h *HandLandmarks) Scale() float64 {
	return distance3D(h.Points[Wrist], h.Points[MiddleMCP])
}

// Validate reports ErrDegenerate when the skeleton cannot be classified.
func (h *HandLandmarks) Validate() error {
	if h == nil {
		return ErrDegenerate
	}
	for _, p := range h.Points {
		if !finite(p.X) || !finite(p.Y) || !finite(p.Z) {
			return ErrDegenerate
		}
	}
	if h.Scale() < minScale {
		return ErrDegenerate
	}
	return nil
}

// PalmCenter returns the centroid of the wrist and the four finger MCP joints.
func (h *HandLandmarks) PalmCenter() Point3D {
	idx := [...]int{Wrist, IndexMCP, MiddleMCP, RingMCP, PinkyMCP}
	var c Point3D
	for _, i := range idx {
		c.X += h.Points[i].X
		c.Y += h.Points[i].Y
		c.Z += h.Points[i].Z
	}
	n := float64(len(idx))
	c.X /= n
	c.Y /= n
	c.Z /= n
	return c
}

// Mirrored returns a copy with every X coordinate reflected across the frame
// centre, as seen in a selfie view. A reflected right hand is a left hand, so
// the handedness label is swapped too. MediaPipe labels an unflipped camera
// frame as if it were mirrored; after this call the label names the user's
// own hand.
func (h HandLandmarks) Mirrored() HandLandmarks {
	for i := range h.Points {
		h.Points[i].X = 1 - h.Points[i].X
	}
	switch h.Handedness {
	case "Left":
		h.Handedness = "Right"
	case "Right":
		h.Handedness = "Left"
	}
	return h
}

// Normalize normalizes the hand landmarks relative to wrist position and hand size.
// The normalized landmarks have the wrist at origin (0,0,0) and are scaled
// so that the distance from wrist to middle finger MCP is 1.0.
// Returns a new HandLandmarks instance with normalized points.
func (h *HandLandmarks) Normalize() *HandLandmarks {
	if h == nil {
		return nil
	}

	normalized := &HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}

	wrist := h.Points[Wrist]
	for i := 0; i < NumLandmarks; i++ {
		normalized.Points[i] = Point3D{
			X:          h.Points[i].X - wrist.X,
			Y:          h.Points[i].Y - wrist.Y,
			Z:          h.Points[i].Z - wrist.Z,
			Visibility: h.Points[i].Visibility,
		}
	}

	scale := distance3D(Point3D{}, normalized.Points[MiddleMCP])
	if scale < 1e-10 {
		return normalized
	}

	for i := 0; i < NumLandmarks; i++ {
		normalized.Points[i].X /= scale
		normalized.Points[i].Y /= scale
		normalized.Points[i].Z /= scale
	}

	return normalized
}

// AssignRoles splits the detected hands into primary and secondary slots.
// The first hand whose handedness equals primary takes the primary slot.
// Remaining hands fill the secondary slot first, then an empty primary slot,
// in detection order. Extra hands are ignored.
func AssignRoles(hands []HandLandmarks, primary string) [NumRoles]*HandLandmarks {
	var roles [NumRoles]*HandLandmarks
	var rest []*HandLandmarks

	for i := range hands {
		h := &hands[i]
		if roles[Primary] == nil && h.Handedness == primary {
			roles[Primary] = h
			continue
		}
		rest = append(rest, h)
	}

	for _, h := range rest {
		switch {
		case roles[Secondary] == nil:
			roles[Secondary] = h
		case roles[Primary] == nil:
			roles[Primary] = h
		}
	}

	return roles
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
