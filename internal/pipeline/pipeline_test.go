package pipeline

import (
	"errors"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/logistics-bot/internal/imaging"
	"github.com/ironsheep/logistics-bot/internal/materials"
)

var (
	paper  = color.RGBA{200, 200, 200, 255}
	symbol = color.RGBA{220, 20, 30, 255}
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func blankFrame() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	for y := 0; y < 480; y++ {
		for x := 0; x < 640; x++ {
			img.SetRGBA(x, y, paper)
		}
	}
	return img
}

func paint(img *image.RGBA, inside func(x, y int) bool) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if inside(x, y) {
				img.SetRGBA(x, y, symbol)
			}
		}
	}
}

func square(x0, y0, size int) func(x, y int) bool {
	return func(x, y int) bool {
		return x >= x0 && x < x0+size && y >= y0 && y < y0+size
	}
}

func disk(cx, cy, r int) func(x, y int) bool {
	return func(x, y int) bool {
		return (x-cx)*(x-cx)+(y-cy)*(y-cy) <= r*r
	}
}

func TestRun_SyntheticFrame(t *testing.T) {
	frame := blankFrame()
	// Inside the default region (100,100)-(540,380).
	paint(frame, square(130, 150, 70))
	paint(frame, disk(400, 240, 60))
	// Outside the region; must be ignored.
	paint(frame, square(10, 10, 60))
	// Speck inside the region, removed by the opening.
	paint(frame, square(300, 120, 3))

	p := New(imaging.DefaultRegion, testLogger())
	res, err := p.Run(frame)
	require.NoError(t, err)

	assert.Equal(t, materials.Counts{DispatchReady: 1, Damaged: 1}, res.Counts)
	assert.Equal(t, len(res.Detections), res.Counts.Total())
	assert.Equal(t, image.Rect(0, 0, 440, 280), res.Mask.Bounds())
}

func TestRun_EmptyFrame(t *testing.T) {
	res, err := New(imaging.DefaultRegion, testLogger()).Run(blankFrame())
	require.NoError(t, err)
	assert.Equal(t, materials.Counts{}, res.Counts)
	assert.Empty(t, res.Detections)
}

func TestRun_InvalidRegion(t *testing.T) {
	small := image.NewRGBA(image.Rect(0, 0, 320, 240))
	_, err := New(imaging.DefaultRegion, testLogger()).Run(small)
	require.Error(t, err)
	assert.True(t, errors.Is(err, imaging.ErrInvalidRegion))
}

func TestSaveImages(t *testing.T) {
	frame := blankFrame()
	paint(frame, square(130, 150, 70))

	p := New(imaging.DefaultRegion, testLogger())
	p.ImageDir = filepath.Join(t.TempDir(), "captures")
	res, err := p.Run(frame)
	require.NoError(t, err)

	at := time.Unix(1700000000, 0)
	paths, err := p.SaveImages("Building A", frame, res, at)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(p.ImageDir, "Building_A_1700000000.jpg"), paths[0])
	assert.Equal(t, filepath.Join(p.ImageDir, "Building_A_1700000000_annotated.jpg"), paths[1])
	for _, path := range paths {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}

func TestSaveImages_Disabled(t *testing.T) {
	p := New(imaging.DefaultRegion, testLogger())
	paths, err := p.SaveImages("Start", blankFrame(), Result{}, time.Now())
	require.NoError(t, err)
	assert.Nil(t, paths)
}
