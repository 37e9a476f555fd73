package gesture

// Stabilizer debounces a stream of raw per-frame labels.
//
// It keeps the last size raw labels. The stable label switches to a new
// label only when the window is full, the new label is the strict plurality,
// and it holds at least votes entries. Every switch clears the window, so
// the next switch needs a fresh run of frames.
type Stabilizer struct {
	window []Label
	size   int
	votes  int
	stable Label
}

// NewStabilizer returns a stabilizer with a window of size frames requiring
// votes agreeing frames to switch. Votes is clamped to [1, size].
func NewStabilizer(size, votes int) *Stabilizer {
	if size < 1 {
		size = 1
	}
	if votes < 1 || votes > size {
		votes = size
	}
	return &Stabilizer{
		window: make([]Label, 0, size),
		size:   size,
		votes:  votes,
		stable: None,
	}
}

// Push records one raw label and returns the stable label and whether it changed.
func (s *Stabilizer) Push(raw Label) (Label, bool) {
	if len(s.window) == s.size {
		copy(s.window, s.window[1:])
		s.window = s.window[:s.size-1]
	}
	s.window = append(s.window, raw)

	if len(s.window) < s.size {
		return s.stable, false
	}

	top, count, tied := s.plurality()
	if tied || top == s.stable || count < s.votes {
		return s.stable, false
	}

	s.stable = top
	s.window = s.window[:0]
	return s.stable, true
}

// Stable returns the current stable label.
func (s *Stabilizer) Stable() Label {
	return s.stable
}

// Agreement returns the fraction of the window that matches the stable label.
// A freshly cleared window counts as full agreement.
func (s *Stabilizer) Agreement() float64 {
	if len(s.window) == 0 {
		return 1
	}
	n := 0
	for _, l := range s.window {
		if l == s.stable {
			n++
		}
	}
	return float64(n) / float64(len(s.window))
}

// Reset clears the window and returns the stable label to None.
func (s *Stabilizer) Reset() {
	s.window = s.window[:0]
	s.stable = None
}

func (s *Stabilizer) plurality() (Label, int, bool) {
	counts := make(map[Label]int, len(s.window))
	for _, l := range s.window {
		counts[l]++
	}

	var top Label
	best, tied := 0, false
	for l, c := range counts {
		switch {
		case c > best:
			top, best, tied = l, c, false
		case c == best:
			tied = true
		}
	}
	return top, best, tied
}
