// Package capture provides camera capture functionality using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultFPS    = 15
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrSourceExhausted is returned when the frame source can no longer
	// produce frames: the device failed, the file ended, or a read timed out.
	ErrSourceExhausted = errors.New("frame source exhausted")

	// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
	ErrCameraNotOpen = fmt.Errorf("%w: camera is not open", ErrSourceExhausted)

	// ErrReadTimeout is returned when a frame does not arrive within the read timeout.
	ErrReadTimeout = fmt.Errorf("%w: frame read timed out", ErrSourceExhausted)
)

// Camera defines the interface for camera capture implementations.
type Camera interface {
	Open() error
	Close() error
	// ReadFrame returns the next frame. The caller owns the returned Mat.
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// cameraImpl manages video capture from a device index or a video file using GoCV.
type cameraImpl struct {
	source  interface{}
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
	fps     int
	// reading is the capture a ReadFrame call is blocked on, if any. Close
	// leaves it to that call to release.
	reading *gocv.VideoCapture
}

// NewCamera creates a new Camera for the given device ID.
func NewCamera(deviceID int) Camera {
	return &cameraImpl{
		source: deviceID,
		fps:    DefaultFPS,
	}
}

// NewVideoFile creates a Camera that replays a video file. The source is
// exhausted when the file ends.
func NewVideoFile(path string) Camera {
	return &cameraImpl{
		source: path,
		fps:    DefaultFPS,
	}
}

// Open opens the capture source.
// Device sources are set to 640x480 for performance.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.source)
	if err != nil {
		return fmt.Errorf("open capture %v: %w", c.source, err)
	}

	if _, isDevice := c.source.(int); isDevice {
		capture.Set(gocv.VideoCaptureFrameWidth, DefaultWidth)
		capture.Set(gocv.VideoCaptureFrameHeight, DefaultHeight)
		capture.Set(gocv.VideoCaptureFPS, float64(c.fps))
	}

	c.capture = capture
	c.running = true

	return nil
}

// Close closes the camera and releases resources.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	capture := c.capture
	c.capture = nil
	c.running = false
	if c.reading == capture {
		return nil
	}

	return capture.Close()
}

// ReadFrame reads a single frame from the camera.
// The caller is responsible for closing the returned Mat.
// The lock is not held while the device blocks, so Close never waits on a
// stalled read; a capture closed mid-read is released here once Read returns.
func (c *cameraImpl) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	if !c.running || c.capture == nil {
		c.mu.Unlock()
		return nil, ErrCameraNotOpen
	}
	if c.reading != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: a read is already in progress", ErrSourceExhausted)
	}
	capture := c.capture
	c.reading = capture
	c.mu.Unlock()

	mat := gocv.NewMat()
	ok := capture.Read(&mat)

	c.mu.Lock()
	c.reading = nil
	closed := c.capture != capture
	c.mu.Unlock()

	if closed {
		mat.Close()
		capture.Close()
		return nil, ErrCameraNotOpen
	}
	if !ok {
		mat.Close()
		return nil, fmt.Errorf("%w: read from %v failed", ErrSourceExhausted, c.source)
	}

	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("%w: captured frame is empty", ErrSourceExhausted)
	}

	return &mat, nil
}

// SetFPS sets the frames per second for capture.
// Values less than or equal to 0 are ignored.
func (c *cameraImpl) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps

	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the current frames per second setting.
func (c *cameraImpl) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fps
}

// IsOpen returns true if the camera is currently open and running.
func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}

type readResult struct {
	frame *gocv.Mat
	err   error
}

// ReadFrameTimeout reads one frame, giving up after timeout with ErrReadTimeout.
// A frame that arrives after the deadline is closed and dropped.
// A non-positive timeout reads without a deadline.
func ReadFrameTimeout(cam Camera, timeout time.Duration) (*gocv.Mat, error) {
	if timeout <= 0 {
		return cam.ReadFrame()
	}

	ch := make(chan readResult, 1)
	go func() {
		frame, err := cam.ReadFrame()
		ch <- readResult{frame: frame, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		return r.frame, r.err
	case <-timer.C:
		go func() {
			if r := <-ch; r.frame != nil {
				r.frame.Close()
			}
		}()
		return nil, ErrReadTimeout
	}
}
