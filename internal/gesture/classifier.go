package gesture

import (
	"errors"
	"log/slog"
	"time"

	"github.com/ayusman/mudra/internal/detector"
)

// Config holds classifier tuning.
type Config struct {
	// Window is the number of raw labels the stabilizer considers.
	Window int
	// Votes is how many of those labels must agree before the stable label switches.
	Votes int
	// MinConfidence is the hand score below which a skeleton is ignored.
	MinConfidence float64
	// Thresholds are the pose geometry limits.
	Thresholds Thresholds
	// PathSize is the number of palm positions kept for swipe detection.
	PathSize int
	// SwipeTolerance is the maximum DTW distance of a swipe.
	SwipeTolerance float64
	// SwipeMinTravel is the minimum horizontal travel of a swipe in hand scales.
	SwipeMinTravel float64
}

// DefaultConfig returns the default classifier configuration.
func DefaultConfig() Config {
	return Config{
		Window:         3,
		Votes:          3,
		MinConfidence:  0.5,
		Thresholds:     DefaultThresholds(),
		PathSize:       30,
		SwipeTolerance: 0.25,
		SwipeMinTravel: 2.5,
	}
}

// Vector is a 2-D displacement in normalized frame units.
type Vector struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// Classified is the outcome of classifying one hand for one frame.
type Classified struct {
	Label      Label            `json:"label"`
	Raw        Label            `json:"raw"`
	Role       detector.Role    `json:"role"`
	Confidence float64          `json:"confidence"`
	Frame      uint64           `json:"frame"`
	Anchor     detector.Point3D `json:"anchor"`
	Motion     Vector           `json:"motion"`
	// Changed is set on the frame where Label became the stable label.
	Changed bool `json:"changed"`
}

type handState struct {
	stabilizer *Stabilizer
	path       []PathPoint
	anchor     detector.Point3D
	hasAnchor  bool
}

// Classifier turns per-frame skeletons into stabilized gestures, keeping
// independent state for each hand role. It is not safe for concurrent use;
// the pipeline goroutine owns it.
type Classifier struct {
	cfg    Config
	swipes *SwipeMatcher
	hands  [detector.NumRoles]*handState
	logger *slog.Logger
}

// NewClassifier creates a classifier with the given configuration.
func NewClassifier(cfg Config, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Classifier{
		cfg:    cfg,
		swipes: NewSwipeMatcher(cfg.SwipeTolerance, cfg.SwipeMinTravel),
		logger: logger,
	}
	for i := range c.hands {
		c.hands[i] = &handState{stabilizer: NewStabilizer(cfg.Window, cfg.Votes)}
	}
	return c
}

// Classify processes the skeleton seen for role in frame. A nil hand means
// the role had no hand this frame. Low-confidence and degenerate skeletons
// count as None; they never produce an error.
func (c *Classifier) Classify(hand *detector.HandLandmarks, role detector.Role, frame uint64, at time.Time) Classified {
	st := c.hands[role]
	out := Classified{Role: role, Frame: frame, Raw: None}

	raw, err := c.rawLabel(hand)
	if err != nil {
		if errors.Is(err, detector.ErrDegenerate) {
			c.logger.Debug("discarding degenerate hand", "role", role, "frame", frame)
		}
		st.hasAnchor = false
		st.path = st.path[:0]
	}

	if err == nil && hand != nil && hand.Score >= c.cfg.MinConfidence {
		anchor := hand.PalmCenter()
		if st.hasAnchor {
			out.Motion = Vector{DX: anchor.X - st.anchor.X, DY: anchor.Y - st.anchor.Y}
		}
		out.Anchor = anchor
		st.anchor, st.hasAnchor = anchor, true
	} else {
		st.hasAnchor = false
	}
	out.Raw = raw

	if swipe, score := c.trackSwipe(st, hand, raw, at); swipe != None {
		st.stabilizer.Reset()
		out.Label = swipe
		out.Confidence = score * hand.Score
		out.Changed = true
		return out
	}

	stable, changed := st.stabilizer.Push(raw)
	out.Label = stable
	out.Changed = changed
	if stable != None && hand != nil {
		out.Confidence = hand.Score * st.stabilizer.Agreement()
	}

	return out
}

// Stable returns the current stable label for a role.
func (c *Classifier) Stable(role detector.Role) Label {
	return c.hands[role].stabilizer.Stable()
}

// Reset drops all per-hand history.
func (c *Classifier) Reset() {
	for _, st := range c.hands {
		st.stabilizer.Reset()
		st.path = st.path[:0]
		st.hasAnchor = false
	}
}

func (c *Classifier) rawLabel(hand *detector.HandLandmarks) (Label, error) {
	if hand == nil {
		return None, nil
	}
	if hand.Score < c.cfg.MinConfidence {
		return None, nil
	}
	return ClassifyPose(hand, c.cfg.Thresholds)
}

// trackSwipe extends the palm path while the hand is open and checks it for
// a swipe. A recognized swipe clears the path so one motion fires once.
func (c *Classifier) trackSwipe(st *handState, hand *detector.HandLandmarks, raw Label, at time.Time) (Label, float64) {
	if raw != OpenPalm || hand == nil {
		st.path = st.path[:0]
		return None, 0
	}

	if len(st.path) >= c.cfg.PathSize && c.cfg.PathSize > 0 {
		copy(st.path, st.path[1:])
		st.path = st.path[:c.cfg.PathSize-1]
	}
	st.path = append(st.path, PathPoint{X: st.anchor.X, Y: st.anchor.Y, Timestamp: at.UnixMilli()})

	label, score := c.swipes.Match(st.path, hand.Scale())
	if label != None {
		st.path = st.path[:0]
	}
	return label, score
}
