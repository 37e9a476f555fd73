// Package preview renders the driver's latest frame for display: mirrored
// like a mirror when configured, with both hand skeletons drawn over it,
// and encoded as JPEG.
package preview

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// ErrNoFrame is returned by Render when the snapshot carries no frame.
var ErrNoFrame = errors.New("no frame available")

// Source is the read side of the driver's latest-state slot.
type Source interface {
	Snapshot() app.Snapshot
	Index() uint64
	Done() <-chan struct{}
}

// Options control how frames are drawn.
type Options struct {
	// Mirror flips the frame horizontally. Set it when the driver mirrors
	// landmarks so the overlay lines up.
	Mirror bool
	// Overlay draws hand skeletons and gesture labels.
	Overlay bool
	// Quality is the JPEG quality, 1 to 100. Zero uses 80.
	Quality int
	// Poll is how often Next checks for a new frame. Zero uses 10ms.
	Poll time.Duration
}

// DefaultOptions returns mirrored, overlaid rendering.
func DefaultOptions() Options {
	return Options{Mirror: true, Overlay: true, Quality: 80, Poll: 10 * time.Millisecond}
}

// connections are the bone segments of a MediaPipe hand skeleton.
var connections = [][2]int{
	{detector.Wrist, detector.ThumbCMC}, {detector.ThumbCMC, detector.ThumbMCP},
	{detector.ThumbMCP, detector.ThumbIP}, {detector.ThumbIP, detector.ThumbTip},
	{detector.Wrist, detector.IndexMCP}, {detector.IndexMCP, detector.IndexPIP},
	{detector.IndexPIP, detector.IndexDIP}, {detector.IndexDIP, detector.IndexTip},
	{detector.IndexMCP, detector.MiddleMCP}, {detector.MiddleMCP, detector.MiddlePIP},
	{detector.MiddlePIP, detector.MiddleDIP}, {detector.MiddleDIP, detector.MiddleTip},
	{detector.MiddleMCP, detector.RingMCP}, {detector.RingMCP, detector.RingPIP},
	{detector.RingPIP, detector.RingDIP}, {detector.RingDIP, detector.RingTip},
	{detector.RingMCP, detector.PinkyMCP}, {detector.Wrist, detector.PinkyMCP},
	{detector.PinkyMCP, detector.PinkyPIP}, {detector.PinkyPIP, detector.PinkyDIP},
	{detector.PinkyDIP, detector.PinkyTip},
}

var roleColors = [detector.NumRoles]color.RGBA{
	detector.Primary:   {R: 0, G: 220, B: 0, A: 255},
	detector.Secondary: {R: 0, G: 140, B: 255, A: 255},
}

// Render draws snap according to opts and returns the JPEG bytes. The
// snapshot's frame is modified in place; the caller still owns it.
func Render(snap app.Snapshot, opts Options) ([]byte, error) {
	if snap.Frame == nil || snap.Frame.Empty() {
		return nil, ErrNoFrame
	}
	img := snap.Frame

	if opts.Mirror {
		gocv.Flip(*img, img, 1)
	}
	if opts.Overlay {
		for role, hand := range snap.Hands {
			if hand != nil {
				drawHand(img, hand, snap.Gestures[role].Label, roleColors[role])
			}
		}
	}

	quality := opts.Quality
	if quality <= 0 || quality > 100 {
		quality = 80
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, *img, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

func drawHand(img *gocv.Mat, hand *detector.HandLandmarks, label gesture.Label, c color.RGBA) {
	w, h := img.Cols(), img.Rows()
	pt := func(i int) image.Point {
		p := hand.Points[i]
		return image.Pt(int(p.X*float64(w)), int(p.Y*float64(h)))
	}

	for _, bone := range connections {
		gocv.Line(img, pt(bone[0]), pt(bone[1]), c, 2)
	}
	for i := range hand.Points {
		gocv.Circle(img, pt(i), 4, c, -1)
	}

	if label != gesture.None && label != "" {
		wrist := pt(detector.Wrist)
		gocv.PutText(img, string(label), image.Pt(wrist.X+8, wrist.Y+24), gocv.FontHersheySimplex, 0.7, c, 2)
	}
}

// Renderer hands out each new frame of a source once, rendered.
type Renderer struct {
	src  Source
	opts Options
	last uint64
}

// NewRenderer returns a renderer reading from src.
func NewRenderer(src Source, opts Options) *Renderer {
	if opts.Poll <= 0 {
		opts.Poll = 10 * time.Millisecond
	}
	return &Renderer{src: src, opts: opts}
}

// Next blocks until the source holds a frame newer than the last one
// returned and renders it. It returns io.EOF once the source is done and
// has nothing new, or ctx.Err() when ctx ends first.
func (r *Renderer) Next(ctx context.Context) ([]byte, error) {
	ticker := time.NewTicker(r.opts.Poll)
	defer ticker.Stop()

	for {
		if idx := r.src.Index(); idx > r.last {
			snap := r.src.Snapshot()
			data, err := Render(snap, r.opts)
			snap.Close()
			r.last = max(snap.Index, idx)
			if errors.Is(err, ErrNoFrame) {
				continue
			}
			return data, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-r.src.Done():
			if r.src.Index() <= r.last {
				return nil, io.EOF
			}
		case <-ticker.C:
		}
	}
}
