// Package camera acquires frames for the classification pipeline.
//
// Capture is the narrow interface the checkpoint state machine depends on.
// Replay cycles still images from a directory and is used on the bench and in
// tests; OpenCV (build tag gocv) reads from a V4L2 device on the robot.
package camera

import (
	"context"
	"errors"
	"image"
	"time"
)

// ErrCaptureUnavailable is returned when no frame can be acquired. It is fatal
// for a circuit run.
var ErrCaptureUnavailable = errors.New("capture unavailable")

// Encoding is the declared color layout of a frame.
type Encoding string

// RGB is the only encoding frames carry after acquisition. Devices that
// deliver BGR are converted before the frame leaves the capture.
const RGB Encoding = "RGB"

// Frame is one captured image. It is not modified after capture.
type Frame struct {
	Image      image.Image
	Encoding   Encoding
	CapturedAt time.Time
}

// Width returns the frame width in pixels.
func (f Frame) Width() int { return f.Image.Bounds().Dx() }

// Height returns the frame height in pixels.
func (f Frame) Height() int { return f.Image.Bounds().Dy() }

// Capture is a source of frames.
type Capture interface {
	// AcquireFrame blocks until a frame is available or ctx is done.
	// Failures wrap ErrCaptureUnavailable.
	AcquireFrame(ctx context.Context) (Frame, error)

	// Close releases the device.
	Close() error
}
