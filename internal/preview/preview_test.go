package preview

import (
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	"sync"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// fakeSource serves a fixed frame and lets tests advance the index.
type fakeSource struct {
	mu    sync.Mutex
	frame gocv.Mat
	index uint64
	hands [detector.NumRoles]*detector.HandLandmarks
	done  chan struct{}
}

func newFakeSource(t *testing.T) *fakeSource {
	t.Helper()
	s := &fakeSource{
		frame: gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3),
		done:  make(chan struct{}),
	}
	t.Cleanup(func() { s.frame.Close() })
	return s
}

func (s *fakeSource) advance() {
	s.mu.Lock()
	s.index++
	s.mu.Unlock()
}

func (s *fakeSource) Snapshot() app.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := s.frame.Clone()
	return app.Snapshot{Frame: &clone, Index: s.index, Hands: s.hands}
}

func (s *fakeSource) Index() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

func (s *fakeSource) Done() <-chan struct{} {
	return s.done
}

func centeredHand() *detector.HandLandmarks {
	h := &detector.HandLandmarks{Handedness: "Right", Score: 0.9}
	for i := range h.Points {
		h.Points[i] = detector.Point3D{X: 0.4 + 0.01*float64(i), Y: 0.7 - 0.02*float64(i)}
	}
	return h
}

func isJPEG(data []byte) bool {
	return bytes.HasPrefix(data, []byte{0xFF, 0xD8})
}

func TestRender_EncodesJPEG(t *testing.T) {
	frame := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer frame.Close()

	data, err := Render(app.Snapshot{Frame: &frame}, Options{})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !isJPEG(data) {
		t.Error("Render should return JPEG data")
	}
}

func TestRender_NoFrame(t *testing.T) {
	if _, err := Render(app.Snapshot{}, DefaultOptions()); !errors.Is(err, ErrNoFrame) {
		t.Errorf("Render() error = %v, want ErrNoFrame", err)
	}

	empty := gocv.NewMat()
	defer empty.Close()
	if _, err := Render(app.Snapshot{Frame: &empty}, DefaultOptions()); !errors.Is(err, ErrNoFrame) {
		t.Errorf("Render(empty) error = %v, want ErrNoFrame", err)
	}
}

func TestRender_Mirror(t *testing.T) {
	frame := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer frame.Close()

	left := frame.Region(image.Rect(0, 0, 80, 120))
	left.SetTo(gocv.NewScalar(255, 255, 255, 0))
	left.Close()

	if _, err := Render(app.Snapshot{Frame: &frame}, Options{Mirror: true}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if v := frame.GetVecbAt(60, 150); v[0] != 255 {
		t.Errorf("right side after mirror = %v, want white", v)
	}
	if v := frame.GetVecbAt(60, 10); v[0] != 0 {
		t.Errorf("left side after mirror = %v, want black", v)
	}
}

func TestRender_Overlay(t *testing.T) {
	count := func(overlay bool) int {
		frame := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
		defer frame.Close()

		snap := app.Snapshot{Frame: &frame}
		snap.Hands[detector.Primary] = centeredHand()
		snap.Gestures[detector.Primary] = gesture.Classified{Label: gesture.Fist}

		if _, err := Render(snap, Options{Overlay: overlay}); err != nil {
			t.Fatalf("Render failed: %v", err)
		}

		gray := gocv.NewMat()
		defer gray.Close()
		gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
		return gocv.CountNonZero(gray)
	}

	if n := count(false); n != 0 {
		t.Errorf("without overlay %d pixels were drawn", n)
	}
	if n := count(true); n == 0 {
		t.Error("overlay should draw the skeleton")
	}
}

func TestRenderer_NextReturnsEachFrameOnce(t *testing.T) {
	src := newFakeSource(t)
	r := NewRenderer(src, Options{Poll: time.Millisecond})

	src.advance()
	data, err := r.Next(context.Background())
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if !isJPEG(data) {
		t.Error("Next should return JPEG data")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := r.Next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Next without a new frame error = %v, want deadline exceeded", err)
	}

	src.advance()
	if _, err := r.Next(context.Background()); err != nil {
		t.Errorf("Next after advance failed: %v", err)
	}
}

func TestRenderer_NextEndsWhenDone(t *testing.T) {
	src := newFakeSource(t)
	r := NewRenderer(src, Options{Poll: time.Millisecond})

	src.advance()
	close(src.done)

	// The last frame is still delivered before EOF.
	if _, err := r.Next(context.Background()); err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if _, err := r.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("Next after done error = %v, want io.EOF", err)
	}
}
