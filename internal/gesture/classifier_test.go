package gesture

import (
	"math"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/detector"
)

func classifyN(c *Classifier, hand *detector.HandLandmarks, role detector.Role, n int) []Classified {
	start := time.Unix(0, 0)
	out := make([]Classified, n)
	for i := range out {
		out[i] = c.Classify(hand, role, uint64(i+1), start.Add(time.Duration(i)*66*time.Millisecond))
	}
	return out
}

func TestClassifier_HeldFist(t *testing.T) {
	c := NewClassifier(DefaultConfig(), nil)
	fist := detector.FistLandmarks()

	results := classifyN(c, &fist, detector.Primary, 5)

	changes := 0
	for i, r := range results {
		if r.Raw != Fist {
			t.Errorf("frame %d: raw = %s, want fist", i+1, r.Raw)
		}
		if r.Changed {
			changes++
			if i != 2 {
				t.Errorf("expected the change on frame 3, got frame %d", i+1)
			}
		}
	}
	if changes != 1 {
		t.Errorf("expected exactly one change, got %d", changes)
	}
	if results[1].Label != None || results[4].Label != Fist {
		t.Errorf("unexpected stable labels: frame 2 %s, frame 5 %s", results[1].Label, results[4].Label)
	}
	if results[4].Confidence <= 0 || results[4].Confidence > 1 {
		t.Errorf("confidence %f out of (0, 1]", results[4].Confidence)
	}
	if c.Stable(detector.Primary) != Fist {
		t.Errorf("Stable() = %s, want fist", c.Stable(detector.Primary))
	}
}

func TestClassifier_RolesAreIndependent(t *testing.T) {
	c := NewClassifier(DefaultConfig(), nil)
	fist := detector.FistLandmarks()
	point := detector.PointLandmarks()

	for i := 0; i < 3; i++ {
		c.Classify(&fist, detector.Primary, uint64(i), time.Now())
		c.Classify(&point, detector.Secondary, uint64(i), time.Now())
	}

	if c.Stable(detector.Primary) != Fist {
		t.Errorf("primary = %s, want fist", c.Stable(detector.Primary))
	}
	if c.Stable(detector.Secondary) != Point {
		t.Errorf("secondary = %s, want point", c.Stable(detector.Secondary))
	}
}

func TestClassifier_MissingHand(t *testing.T) {
	c := NewClassifier(DefaultConfig(), nil)
	fist := detector.FistLandmarks()
	classifyN(c, &fist, detector.Primary, 3)

	results := classifyN(c, nil, detector.Primary, 3)
	if !results[2].Changed || results[2].Label != None {
		t.Errorf("expected the hand to fall back to none, got %+v", results[2])
	}
	if results[2].Confidence != 0 {
		t.Errorf("expected zero confidence with no hand, got %f", results[2].Confidence)
	}
}

func TestClassifier_LowConfidence(t *testing.T) {
	c := NewClassifier(DefaultConfig(), nil)
	fist := detector.FistLandmarks()
	fist.Score = 0.2

	for _, r := range classifyN(c, &fist, detector.Primary, 5) {
		if r.Raw != None || r.Label != None {
			t.Errorf("low-confidence hand classified as raw %s stable %s", r.Raw, r.Label)
		}
		if r.Motion != (Vector{}) {
			t.Errorf("expected no motion for an ignored hand, got %+v", r.Motion)
		}
	}
}

func TestClassifier_DegenerateHand(t *testing.T) {
	c := NewClassifier(DefaultConfig(), nil)
	bad := detector.DegenerateLandmarks()

	for _, r := range classifyN(c, &bad, detector.Primary, 4) {
		if r.Raw != None || r.Label != None {
			t.Errorf("degenerate hand classified as raw %s stable %s", r.Raw, r.Label)
		}
	}
}

func TestClassifier_Motion(t *testing.T) {
	c := NewClassifier(DefaultConfig(), nil)
	point := detector.PointLandmarks()
	moved := detector.Shifted(point, 0.01, -0.02)

	first := c.Classify(&point, detector.Primary, 1, time.Now())
	if first.Motion != (Vector{}) {
		t.Errorf("expected no motion on the first frame, got %+v", first.Motion)
	}

	second := c.Classify(&moved, detector.Primary, 2, time.Now())
	if math.Abs(second.Motion.DX-0.01) > 1e-9 || math.Abs(second.Motion.DY+0.02) > 1e-9 {
		t.Errorf("expected motion (0.01, -0.02), got %+v", second.Motion)
	}

	want := moved.PalmCenter()
	if second.Anchor != want {
		t.Errorf("anchor = %+v, want palm centre %+v", second.Anchor, want)
	}
}

func TestClassifier_Swipe(t *testing.T) {
	tests := []struct {
		name string
		step float64
		want Label
	}{
		{"right", 0.06, SwipeRight},
		{"left", -0.06, SwipeLeft},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(DefaultConfig(), nil)
			palm := detector.OpenPalmLandmarks()

			var swipes []Classified
			for i := 0; i < 12; i++ {
				hand := detector.Shifted(palm, float64(i)*tt.step, 0)
				r := c.Classify(&hand, detector.Primary, uint64(i+1), time.Unix(0, int64(i)*int64(66*time.Millisecond)))
				if r.Label.IsMotion() {
					swipes = append(swipes, r)
				}
			}

			if len(swipes) == 0 {
				t.Fatal("expected a swipe")
			}
			if swipes[0].Label != tt.want {
				t.Errorf("swipe = %s, want %s", swipes[0].Label, tt.want)
			}
			if !swipes[0].Changed || swipes[0].Raw != OpenPalm {
				t.Errorf("unexpected swipe result %+v", swipes[0])
			}
			if swipes[0].Frame != 7 {
				t.Errorf("expected the swipe on frame 7, got %d", swipes[0].Frame)
			}
		})
	}
}

func TestClassifier_StationaryPalmDoesNotSwipe(t *testing.T) {
	c := NewClassifier(DefaultConfig(), nil)
	palm := detector.OpenPalmLandmarks()

	for _, r := range classifyN(c, &palm, detector.Primary, 40) {
		if r.Label.IsMotion() {
			t.Fatalf("unexpected swipe on frame %d", r.Frame)
		}
	}
	if c.Stable(detector.Primary) != OpenPalm {
		t.Errorf("expected open palm, got %s", c.Stable(detector.Primary))
	}
}

func TestClassifier_Reset(t *testing.T) {
	c := NewClassifier(DefaultConfig(), nil)
	fist := detector.FistLandmarks()
	classifyN(c, &fist, detector.Primary, 3)

	c.Reset()
	if c.Stable(detector.Primary) != None {
		t.Errorf("expected none after reset, got %s", c.Stable(detector.Primary))
	}

	r := c.Classify(&fist, detector.Primary, 10, time.Now())
	if r.Motion != (Vector{}) {
		t.Errorf("expected motion history cleared, got %+v", r.Motion)
	}
}
