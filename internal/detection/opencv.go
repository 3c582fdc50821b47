//go:build gocv

package detection

import (
	"image"
	"math"

	"gocv.io/x/gocv"
)

// OpenCVLineDetector finds segments with OpenCV's probabilistic Hough
// transform (HoughLinesP) using 1 px and 1° resolution.
type OpenCVLineDetector struct {
	// Threshold is the accumulator vote threshold.
	Threshold int
}

// NewOpenCVLineDetector returns a detector with a 20 vote threshold.
func NewOpenCVLineDetector() *OpenCVLineDetector {
	return &OpenCVLineDetector{Threshold: 20}
}

// Segments implements LineDetector.
func (d *OpenCVLineDetector) Segments(edges *image.Gray, minLength, maxGap float64) []Segment {
	src, err := gocv.ImageGrayToMatGray(edges)
	if err != nil {
		return nil
	}
	defer src.Close()

	lines := gocv.NewMat()
	defer lines.Close()
	gocv.HoughLinesPWithParams(src, &lines, 1, float32(math.Pi/180), d.Threshold,
		float32(minLength), float32(maxGap))

	origin := edges.Bounds().Min
	segments := make([]Segment, 0, lines.Rows())
	for i := 0; i < lines.Rows(); i++ {
		v := lines.GetVeciAt(i, 0)
		seg := Segment{
			A: image.Point{X: int(v[0]), Y: int(v[1])}.Add(origin),
			B: image.Point{X: int(v[2]), Y: int(v[3])}.Add(origin),
		}
		if seg.Length() >= minLength {
			segments = append(segments, seg)
		}
	}
	return segments
}
