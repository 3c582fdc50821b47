package camera

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ironsheep/logistics-bot/internal/imaging"
)

// Replay serves still images from a directory as camera frames, in file name
// order, wrapping around at the end. Decoded images are cached so repeated
// circuits do not hit the disk again.
type Replay struct {
	mu     sync.Mutex
	paths  []string
	next   int
	cache  *imaging.ImageCache
	closed bool
	now    func() time.Time
}

// NewReplay lists the images in dir. It fails with ErrCaptureUnavailable when
// the directory cannot be read or holds no images.
func NewReplay(dir string) (*Replay, error) {
	paths, err := imaging.ListImages(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no images in %s", ErrCaptureUnavailable, dir)
	}
	return &Replay{
		paths: paths,
		cache: imaging.NewImageCache(),
		now:   time.Now,
	}, nil
}

// AcquireFrame implements Capture.
func (r *Replay) AcquireFrame(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return Frame{}, fmt.Errorf("%w: replay closed", ErrCaptureUnavailable)
	}

	path := r.paths[r.next]
	r.next = (r.next + 1) % len(r.paths)

	img, err := r.cache.Load(path)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}
	return Frame{Image: img, Encoding: RGB, CapturedAt: r.now()}, nil
}

// Close implements Capture. It drops the decoded image cache.
func (r *Replay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.cache.Clear()
	return nil
}
