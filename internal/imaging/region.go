package imaging

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ErrInvalidRegion is returned when a Region does not fit inside a frame.
var ErrInvalidRegion = errors.New("invalid region")

// Region is an axis-aligned rectangle within a frame.
//
// (X, Y) is the top-left corner (inclusive). The region spans Width columns and
// Height rows, so its right and bottom edges (X+Width, Y+Height) are exclusive.
type Region struct {
	X      int `toml:"x" json:"x"`
	Y      int `toml:"y" json:"y"`
	Width  int `toml:"width" json:"width"`
	Height int `toml:"height" json:"height"`
}

// DefaultRegion is the classification window used on a 640x480 frame.
var DefaultRegion = Region{X: 100, Y: 100, Width: 440, Height: 280}

// Rect returns the region as an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Validate reports whether the region fits a frame of the given size.
//
// It is meant to be called once at startup so that a bad configuration fails
// before the first capture. The returned error wraps ErrInvalidRegion.
func (r Region) Validate(width, height int) error {
	return r.within(image.Rect(0, 0, width, height))
}

func (r Region) within(bounds image.Rectangle) error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: non-positive size %dx%d", ErrInvalidRegion, r.Width, r.Height)
	}
	rect := r.Rect().Add(bounds.Min)
	if !rect.In(bounds) {
		return fmt.Errorf("%w: (%d,%d)-(%d,%d) outside frame bounds (%d,%d)-(%d,%d)",
			ErrInvalidRegion, r.X, r.Y, r.X+r.Width, r.Y+r.Height,
			0, 0, bounds.Dx(), bounds.Dy())
	}
	return nil
}

// ExtractRegion copies the pixels covered by r out of img.
//
// Region coordinates are relative to the top-left corner of img, whatever its
// bounds origin. The returned buffer has bounds (0,0)-(Width,Height) and shares
// no memory with img.
//
// # Errors
//
//   - Returns an error wrapping ErrInvalidRegion if r has a non-positive size
//     or extends past any edge of img.
func ExtractRegion(img image.Image, r Region) (*image.NRGBA, error) {
	bounds := img.Bounds()
	if err := r.within(bounds); err != nil {
		return nil, err
	}
	return imaging.Crop(img, r.Rect().Add(bounds.Min)), nil
}

// CropGray copies rect out of a mask into a new mask whose bounds start at (0,0).
// The rectangle is clipped to the mask bounds.
func CropGray(mask *image.Gray, rect image.Rectangle) *image.Gray {
	rect = rect.Intersect(mask.Bounds())
	out := image.NewGray(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	for y := 0; y < rect.Dy(); y++ {
		src := mask.PixOffset(rect.Min.X, rect.Min.Y+y)
		copy(out.Pix[y*out.Stride:y*out.Stride+rect.Dx()], mask.Pix[src:src+rect.Dx()])
	}
	return out
}
