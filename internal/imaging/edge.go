package imaging

import (
	"image"
	"math"
)

// plane is a single-channel float image stored row-major.
type plane struct {
	w, h int
	v    []float64
}

func newPlane(w, h int) *plane {
	return &plane{w: w, h: h, v: make([]float64, w*h)}
}

func (p *plane) at(x, y int) float64 {
	return p.v[clamp(y, 0, p.h-1)*p.w+clamp(x, 0, p.w-1)]
}

func (p *plane) set(x, y int, val float64) {
	p.v[y*p.w+x] = val
}

// Canny performs Canny edge detection and returns a binary edge map.
//
// Edge pixels are 255, all others 0. The result has the size of img with bounds
// starting at (0,0). Thresholds are given on the 0-255 scale, the same scale
// OpenCV uses; the symbol classifier calls this with 50 and 150 on a mask crop.
//
// # Algorithm
//
//  1. Luminance (ITU-R BT.601) normalised to 0-1
//  2. 5x5 Gaussian blur, sigma ≈ 1.4
//  3. Sobel gradients; magnitude and direction
//  4. Non-maximum suppression along the gradient direction
//  5. Hysteresis: strong pixels (>= high) are kept, weak pixels (>= low) are
//     kept only when an 8-neighbour is strong
func Canny(img image.Image, thresholdLow, thresholdHigh int) *image.Gray {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := image.NewGray(image.Rect(0, 0, width, height))
	if width == 0 || height == 0 {
		return out
	}

	gray := newPlane(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			gray.set(x, y, float64(grayAt(img, x+bounds.Min.X, y+bounds.Min.Y))/255.0)
		}
	}

	blurred := gaussianBlur(gray)
	magnitude, direction := sobel(blurred)
	suppressed := nonMaxSuppress(magnitude, direction)

	low := float64(thresholdLow) / 255.0
	high := float64(thresholdHigh) / 255.0

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			val := suppressed.at(x, y)
			switch {
			case val >= high:
				out.Pix[y*out.Stride+x] = 255
			case val >= low && hasStrongNeighbor(suppressed, x, y, high):
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

func sobel(src *plane) (magnitude, direction *plane) {
	sobelX := [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY := [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	magnitude = newPlane(src.w, src.h)
	direction = newPlane(src.w, src.h)
	for y := 0; y < src.h; y++ {
		for x := 0; x < src.w; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					v := src.at(x+kx, y+ky)
					gx += v * sobelX[ky+1][kx+1]
					gy += v * sobelY[ky+1][kx+1]
				}
			}
			magnitude.set(x, y, math.Sqrt(gx*gx+gy*gy))
			direction.set(x, y, math.Atan2(gy, gx))
		}
	}
	return magnitude, direction
}

// nonMaxSuppress thins edges to one pixel by keeping only local maxima across
// the gradient direction. Border pixels are always suppressed.
func nonMaxSuppress(magnitude, direction *plane) *plane {
	out := newPlane(magnitude.w, magnitude.h)
	for y := 1; y < magnitude.h-1; y++ {
		for x := 1; x < magnitude.w-1; x++ {
			angle := direction.at(x, y)
			mag := magnitude.at(x, y)

			var n1, n2 float64
			switch {
			case (angle >= -math.Pi/8 && angle < math.Pi/8) || angle >= 7*math.Pi/8 || angle < -7*math.Pi/8:
				n1, n2 = magnitude.at(x-1, y), magnitude.at(x+1, y)
			case (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8):
				n1, n2 = magnitude.at(x-1, y-1), magnitude.at(x+1, y+1)
			case (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8):
				n1, n2 = magnitude.at(x, y-1), magnitude.at(x, y+1)
			default:
				n1, n2 = magnitude.at(x+1, y-1), magnitude.at(x-1, y+1)
			}

			if mag >= n1 && mag >= n2 {
				out.set(x, y, mag)
			}
		}
	}
	return out
}

func hasStrongNeighbor(p *plane, x, y int, high float64) bool {
	for ky := -1; ky <= 1; ky++ {
		for kx := -1; kx <= 1; kx++ {
			if p.at(x+kx, y+ky) >= high {
				return true
			}
		}
	}
	return false
}

// gaussianBlur applies a 5x5 Gaussian kernel (sum 273) with replicated borders.
func gaussianBlur(src *plane) *plane {
	kernel := [5][5]float64{
		{1, 4, 7, 4, 1},
		{4, 16, 26, 16, 4},
		{7, 26, 41, 26, 7},
		{4, 16, 26, 16, 4},
		{1, 4, 7, 4, 1},
	}
	const kernelSum = 273.0

	out := newPlane(src.w, src.h)
	for y := 0; y < src.h; y++ {
		for x := 0; x < src.w; x++ {
			var sum float64
			for ky := -2; ky <= 2; ky++ {
				for kx := -2; kx <= 2; kx++ {
					sum += src.at(x+kx, y+ky) * kernel[ky+2][kx+2]
				}
			}
			out.set(x, y, sum/kernelSum)
		}
	}
	return out
}

func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
