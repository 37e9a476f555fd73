package gesture

import (
	"math"
)

// PathPoint represents a point in a hand trajectory.
type PathPoint struct {
	X         float64 // X coordinate
	Y         float64 // Y coordinate
	Timestamp int64   // Timestamp in milliseconds
}

// DTWDistance calculates Dynamic Time Warping distance between two paths.
// Returns infinity if either path is empty.
// The distance is normalized by the maximum path length.
func DTWDistance(path1, path2 []PathPoint) float64 {
	n := len(path1)
	m := len(path2)

	if n == 0 || m == 0 {
		return math.Inf(1)
	}

	// Two rolling rows of the (n+1) x (m+1) cost matrix.
	prev := make([]float64, m+1)
	curr := make([]float64, m+1)
	for j := range prev {
		prev[j] = math.Inf(1)
	}
	prev[0] = 0

	for i := 1; i <= n; i++ {
		curr[0] = math.Inf(1)
		for j := 1; j <= m; j++ {
			cost := pointDistance(path1[i-1], path2[j-1])
			curr[j] = cost + min(prev[j], curr[j-1], prev[j-1])
		}
		prev, curr = curr, prev
	}

	return prev[m] / float64(max(n, m))
}

// pointDistance calculates the Euclidean distance between two PathPoints.
func pointDistance(a, b PathPoint) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// normalizePath translates the path to start at the bounding box corner and
// divides both axes by the larger extent, so the unit box keeps the path's
// aspect ratio. Timestamps are preserved.
func normalizePath(path []PathPoint) []PathPoint {
	if path == nil {
		return nil
	}

	n := len(path)
	if n == 0 {
		return []PathPoint{}
	}

	if n == 1 {
		return []PathPoint{{Timestamp: path[0].Timestamp}}
	}

	minX, maxX := path[0].X, path[0].X
	minY, maxY := path[0].Y, path[0].Y
	for _, p := range path {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}

	extent := math.Max(maxX-minX, maxY-minY)

	normalized := make([]PathPoint, n)
	for i, p := range path {
		normalized[i] = PathPoint{Timestamp: p.Timestamp}
		if extent > 0 {
			normalized[i].X = (p.X - minX) / extent
			normalized[i].Y = (p.Y - minY) / extent
		}
	}

	return normalized
}

// straightPath returns n evenly spaced points from (x0, y0) to (x1, y1).
func straightPath(n int, x0, y0, x1, y1 float64) []PathPoint {
	path := make([]PathPoint, n)
	for i := range path {
		t := float64(i) / float64(n-1)
		path[i] = PathPoint{X: x0 + t*(x1-x0), Y: y0 + t*(y1-y0)}
	}
	return path
}

// swipeTemplate is a reference trajectory for one motion gesture.
type swipeTemplate struct {
	label Label
	path  []PathPoint
}

// SwipeMatcher recognizes horizontal swipes in a palm trajectory using DTW
// against straight left and right reference paths.
type SwipeMatcher struct {
	templates []swipeTemplate
	tolerance float64
	minTravel float64
}

// NewSwipeMatcher returns a matcher accepting paths within tolerance DTW
// distance whose horizontal travel is at least minTravel hand scales.
func NewSwipeMatcher(tolerance, minTravel float64) *SwipeMatcher {
	return &SwipeMatcher{
		templates: []swipeTemplate{
			{label: SwipeLeft, path: straightPath(10, 1, 0, 0, 0)},
			{label: SwipeRight, path: straightPath(10, 0, 0, 1, 0)},
		},
		tolerance: tolerance,
		minTravel: minTravel,
	}
}

// Match returns the swipe label and its score in (0, 1], or None when the
// path is too short, travels too little, or matches no template.
// scale is the hand scale in frame units.
func (m *SwipeMatcher) Match(path []PathPoint, scale float64) (Label, float64) {
	if len(path) < 2 || scale <= 0 {
		return None, 0
	}

	travel := math.Abs(path[len(path)-1].X-path[0].X) / scale
	if travel < m.minTravel {
		return None, 0
	}

	input := normalizePath(path)

	best, bestDist := None, math.Inf(1)
	for _, t := range m.templates {
		d := DTWDistance(input, t.path)
		if d < bestDist {
			best, bestDist = t.label, d
		}
	}

	if bestDist > m.tolerance {
		return None, 0
	}
	return best, 1.0 / (1.0 + bestDist)
}
