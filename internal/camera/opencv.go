//go:build gocv

package camera

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// OpenCV captures frames from a video device through gocv.
type OpenCV struct {
	mu     sync.Mutex
	device *gocv.VideoCapture
	mat    gocv.Mat
}

// NewOpenCV opens device (an index such as 0 or a path such as /dev/video0)
// and requests the given resolution.
func NewOpenCV(device string, width, height int) (*OpenCV, error) {
	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open camera %s: %v", ErrCaptureUnavailable, device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: camera %s not opened", ErrCaptureUnavailable, device)
	}
	vc.Set(gocv.VideoCaptureFrameWidth, float64(width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(height))

	return &OpenCV{device: vc, mat: gocv.NewMat()}, nil
}

// AcquireFrame implements Capture. The device delivers BGR; ToImage converts
// it to an RGBA image.
func (c *OpenCV) AcquireFrame(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if ok := c.device.Read(&c.mat); !ok || c.mat.Empty() {
		return Frame{}, fmt.Errorf("%w: failed to read frame", ErrCaptureUnavailable)
	}
	img, err := c.mat.ToImage()
	if err != nil {
		return Frame{}, fmt.Errorf("%w: failed to convert frame: %v", ErrCaptureUnavailable, err)
	}
	return Frame{Image: img, Encoding: RGB, CapturedAt: time.Now()}, nil
}

// Close implements Capture.
func (c *OpenCV) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mat.Close()
	return c.device.Close()
}
