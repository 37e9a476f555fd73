package gesture

import (
	"github.com/ayusman/mudra/internal/detector"
)

// Thresholds are the geometric limits of the pose rules. Every value is a
// ratio to the hand scale (wrist to middle MCP), so the rules hold at any
// distance from the camera.
type Thresholds struct {
	// ExtendRatio is the fingertip to palm centre distance above which a finger counts as extended.
	ExtendRatio float64
	// ThumbRatio is the thumb tip to index MCP distance above which the thumb counts as extended.
	ThumbRatio float64
	// PinchRatio is the thumb tip to index tip distance below which the hand pinches.
	PinchRatio float64
	// PinchReach is the minimum index tip to palm distance for a pinch, which
	// keeps a fist with the thumb resting on the index finger from reading as a pinch.
	PinchReach float64
}

// DefaultThresholds returns thresholds tuned against MediaPipe landmarks.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ExtendRatio: 1.4,
		ThumbRatio:  0.9,
		PinchRatio:  0.35,
		PinchReach:  0.8,
	}
}

// fingers lists the tip landmark of the index, middle, ring and pinky fingers.
var fingers = [4]int{detector.IndexTip, detector.MiddleTip, detector.RingTip, detector.PinkyTip}

// Pose is the measured shape of one hand.
type Pose struct {
	Extended      [4]bool // index, middle, ring, pinky
	ThumbExtended bool
	ThumbUp       bool
	Pinching      bool
}

// Measure computes the pose of a hand. It returns detector.ErrDegenerate for
// skeletons that cannot be measured. Distances are taken on the normalized
// skeleton, so every threshold is a multiple of the hand scale.
func Measure(hand *detector.HandLandmarks, th Thresholds) (Pose, error) {
	if err := hand.Validate(); err != nil {
		return Pose{}, err
	}

	n := hand.Normalize()
	palm := n.PalmCenter()
	p := n.Points

	var pose Pose
	for i, tip := range fingers {
		pose.Extended[i] = detector.Distance(p[tip], palm) >= th.ExtendRatio
	}

	pose.ThumbExtended = detector.Distance(p[detector.ThumbTip], p[detector.IndexMCP]) >= th.ThumbRatio
	pose.ThumbUp = p[detector.ThumbTip].Y < p[detector.IndexMCP].Y

	gap := detector.Distance(p[detector.ThumbTip], p[detector.IndexTip])
	reach := detector.Distance(p[detector.IndexTip], palm)
	pose.Pinching = gap < th.PinchRatio && reach >= th.PinchReach

	return pose, nil
}

// Label maps a measured pose to a static gesture label.
func (p Pose) Label() Label {
	if p.Pinching {
		return Pinch
	}

	index, middle, ring, pinky := p.Extended[0], p.Extended[1], p.Extended[2], p.Extended[3]
	switch {
	case index && middle && ring && pinky:
		return OpenPalm
	case index && !middle && !ring && !pinky:
		return Point
	case index && middle && !ring && !pinky:
		return TwoFinger
	case !index && !middle && !ring && !pinky:
		if p.ThumbExtended && p.ThumbUp {
			return ThumbsUp
		}
		return Fist
	}
	return None
}

// ClassifyPose returns the raw, single-frame label of a hand.
func ClassifyPose(hand *detector.HandLandmarks, th Thresholds) (Label, error) {
	pose, err := Measure(hand, th)
	if err != nil {
		return None, err
	}
	return pose.Label(), nil
}
