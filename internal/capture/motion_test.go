package capture

import (
	"image"
	"testing"

	"gocv.io/x/gocv"
)

func solidFrame(t *testing.T, v float64) *gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSize(60, 80, gocv.MatTypeCV8UC3)
	m.SetTo(gocv.NewScalar(v, v, v, 0))
	t.Cleanup(func() { m.Close() })
	return &m
}

func TestMotionDetector(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	black := solidFrame(t, 0)

	if moved, _ := md.Moved(black); !moved {
		t.Error("first frame should report motion")
	}
	if moved, pct := md.Moved(black); moved || pct != 0 {
		t.Errorf("identical frame reported motion (%.2f%%)", pct)
	}

	half := solidFrame(t, 0)
	region := half.Region(image.Rect(0, 0, 40, 60))
	region.SetTo(gocv.NewScalar(255, 255, 255, 0))
	region.Close()

	moved, pct := md.Moved(half)
	if !moved {
		t.Errorf("half-changed frame should report motion, got %.2f%%", pct)
	}
	if pct < 20 || pct > 80 {
		t.Errorf("changed share = %.2f%%, want roughly half", pct)
	}
}

func TestMotionDetector_Reset(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	black := solidFrame(t, 0)
	md.Moved(black)
	md.Moved(black)

	md.Reset()
	if moved, _ := md.Moved(black); !moved {
		t.Error("frame after reset should report motion")
	}
}

func TestMotionDetector_EmptyFrame(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	empty := gocv.NewMat()
	defer empty.Close()
	if moved, _ := md.Moved(&empty); moved {
		t.Error("empty frame should not report motion")
	}
	if moved, _ := md.Moved(nil); moved {
		t.Error("nil frame should not report motion")
	}
}
