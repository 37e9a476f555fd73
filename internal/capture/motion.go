package capture

import (
	"image"

	"gocv.io/x/gocv"
)

// Frame differencing parameters.
const (
	// blurSize is the Gaussian kernel applied before differencing.
	blurSize = 21
	// diffThreshold is the per-pixel intensity change counted as motion.
	diffThreshold = 25
)

// MotionDetector reports whether consecutive frames differ, so an idle
// scene can skip landmark detection. It is owned by one goroutine.
type MotionDetector struct {
	threshold float64
	prev      gocv.Mat
	primed    bool
}

// NewMotionDetector returns a detector that reports motion when more than
// threshold percent of the pixels changed.
func NewMotionDetector(threshold float64) *MotionDetector {
	return &MotionDetector{threshold: threshold, prev: gocv.NewMat()}
}

// Moved compares frame with the previous one and returns whether the
// changed share exceeds the threshold, along with that share in percent.
// The first frame after New or Reset only sets the baseline and reports
// motion, so detection runs on it.
func (m *MotionDetector) Moved(frame *gocv.Mat) (bool, float64) {
	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	gocv.GaussianBlur(gray, &blurred, image.Pt(blurSize, blurSize), 0, 0, gocv.BorderDefault)

	if !m.primed || m.prev.Rows() != blurred.Rows() || m.prev.Cols() != blurred.Cols() {
		m.prev.Close()
		m.prev = blurred
		m.primed = true
		return true, 100
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prev, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, diffThreshold, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(thresh)) / float64(thresh.Rows()*thresh.Cols()) * 100

	m.prev.Close()
	m.prev = blurred
	return changed > m.threshold, changed
}

// Reset drops the baseline frame.
func (m *MotionDetector) Reset() {
	m.primed = false
}

// Close releases the baseline frame.
func (m *MotionDetector) Close() {
	m.prev.Close()
	m.primed = false
}
