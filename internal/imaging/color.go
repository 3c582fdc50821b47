package imaging

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/anthonynsimon/bild/effect"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// HueBand is an inclusive range of hues in degrees (0-360).
type HueBand struct {
	Min float64 `toml:"min" json:"min"`
	Max float64 `toml:"max" json:"max"`
}

// Contains reports whether hue h (degrees) lies within the band.
func (b HueBand) Contains(h float64) bool {
	return h >= b.Min && h <= b.Max
}

// Segmenter isolates symbol pixels by color.
//
// A pixel is kept when its hue falls inside any of Bands and both its
// saturation and value reach the configured minimums. The raw mask is then
// cleaned with a morphological opening using a KernelSize x KernelSize square.
type Segmenter struct {
	// Bands are unioned. Use two bands for hues that wrap around 0°.
	Bands []HueBand

	// MinSaturation is the lowest accepted saturation (0-1).
	MinSaturation float64

	// MinValue is the lowest accepted value/brightness (0-1).
	MinValue float64

	// KernelSize is the side of the square structuring element. Values below
	// 2 disable the opening.
	KernelSize int
}

// DefaultSegmenter returns a segmenter tuned for red symbols.
//
// The bands correspond to OpenCV hue ranges [0,10] and [160,179], and the
// saturation/value floors to 100/255.
func DefaultSegmenter() Segmenter {
	return Segmenter{
		Bands: []HueBand{
			{Min: 0, Max: 20},
			{Min: 320, Max: 360},
		},
		MinSaturation: 100.0 / 255.0,
		MinValue:      100.0 / 255.0,
		KernelSize:    5,
	}
}

// Segment returns the denoised binary mask of img.
//
// The mask has the same size as img, with bounds starting at (0,0). Matching
// pixels are 255 and all others 0.
func (s Segmenter) Segment(img image.Image) *image.Gray {
	return Open(s.Threshold(img), s.KernelSize)
}

// Threshold returns the raw union mask, before any morphological cleanup.
func (s Segmenter) Threshold(img image.Image) *image.Gray {
	bounds := img.Bounds()
	mask := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))

	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			if s.matches(img.At(x+bounds.Min.X, y+bounds.Min.Y)) {
				mask.Pix[y*mask.Stride+x] = 255
			}
		}
	}
	return mask
}

func (s Segmenter) matches(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	col := colorful.Color{
		R: float64(r) / 65535.0,
		G: float64(g) / 65535.0,
		B: float64(b) / 65535.0,
	}
	h, sat, val := col.Hsv()
	if sat < s.MinSaturation || val < s.MinValue {
		return false
	}
	for _, band := range s.Bands {
		if band.Contains(h) {
			return true
		}
	}
	return false
}

// Open applies a morphological opening (erosion followed by dilation) with a
// size x size square structuring element. Isolated specks smaller than the
// element disappear while larger regions keep their shape.
//
// The erosion and dilation are delegated to bild, which searches a window of
// 2*radius+1 pixels per axis; an odd size therefore maps to radius (size-1)/2.
func Open(mask *image.Gray, size int) *image.Gray {
	if size < 2 {
		return mask
	}
	radius := float64(size-1) / 2

	rgba := image.NewRGBA(mask.Bounds())
	draw.Draw(rgba, rgba.Bounds(), mask, mask.Bounds().Min, draw.Src)

	opened := effect.Dilate(effect.Erode(rgba, radius), radius)
	return binarize(opened)
}

// binarize converts any image to a 0/255 mask with bounds starting at (0,0).
func binarize(img image.Image) *image.Gray {
	bounds := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			if grayAt(img, x+bounds.Min.X, y+bounds.Min.Y) >= 128 {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

// CountOn returns the number of non-zero pixels in a mask.
func CountOn(mask *image.Gray) int {
	n := 0
	bounds := mask.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if mask.GrayAt(x, y).Y != 0 {
				n++
			}
		}
	}
	return n
}

// grayAt converts a pixel to 8-bit luminance using ITU-R BT.601 weights.
func grayAt(img image.Image, x, y int) uint8 {
	r, g, b, _ := img.At(x, y).RGBA()
	return uint8(float64(r>>8)*0.299 + float64(g>>8)*0.587 + float64(b>>8)*0.114)
}
