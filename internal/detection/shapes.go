package detection

import (
	"image"
	"math"

	"github.com/ironsheep/logistics-bot/internal/imaging"
)

// Shape is the geometric label assigned to a contour.
type Shape int

const (
	// Unclassified is the zero value. Classify never assigns it.
	Unclassified Shape = iota
	Circle
	Triangle
	Square
	X
)

var shapeNames = map[Shape]string{
	Unclassified: "Unclassified",
	Circle:       "Circle",
	Triangle:     "Triangle",
	Square:       "Square",
	X:            "X",
}

func (s Shape) String() string {
	if name, ok := shapeNames[s]; ok {
		return name
	}
	return "Unclassified"
}

// MarshalText implements encoding.TextMarshaler.
func (s Shape) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Measurement holds the contour metrics the label decision is based on.
type Measurement struct {
	// Vertices is the vertex count of the approximated polygon.
	Vertices int

	// Area is the enclosed contour area in square pixels.
	Area float64

	// Perimeter is the closed contour length in pixels.
	Perimeter float64

	// Box is the contour bounding box in mask coordinates.
	Box image.Rectangle
}

// Detection is one classified contour.
type Detection struct {
	Shape       Shape           `json:"shape"`
	Contour     Contour         `json:"-"`
	Approx      []image.Point   `json:"approx"`
	Area        float64         `json:"area"`
	Perimeter   float64         `json:"perimeter"`
	Circularity float64         `json:"circularity"`
	AspectRatio float64         `json:"aspect_ratio"`
	Box         image.Rectangle `json:"box"`
}

// Classifier labels the external contours of a segmentation mask.
//
// # Decision
//
// Contours smaller than MinArea are discarded. The rest are approximated to a
// polygon with epsilon = ApproxFactor × perimeter and labelled by vertex count v:
//
//   - v == 3: Triangle
//   - v == 4: Square, whatever the aspect ratio
//   - v < 3: Circle
//   - v > 4: Circle when circularity exceeds CircularityThreshold, otherwise
//     the crossing probe decides between X and Circle
//
// The crossing probe crops the contour's bounding box from the mask, runs
// Canny edge detection and asks Lines for segments at least MinLineFraction of
// the shorter box side long. Two segments whose angles differ by more than
// MinCrossAngle and less than MaxCrossAngle degrees mark the contour as an X.
type Classifier struct {
	MinArea              float64
	ApproxFactor         float64
	CircularityThreshold float64

	Lines           LineDetector
	CannyLow        int
	CannyHigh       int
	MinLineFraction float64
	MaxLineGap      float64
	MinCrossAngle   float64
	MaxCrossAngle   float64
}

// NewClassifier returns a classifier with the default thresholds and the pure
// Go Hough line detector.
func NewClassifier() *Classifier {
	return &Classifier{
		MinArea:              300,
		ApproxFactor:         0.04,
		CircularityThreshold: 0.75,
		Lines:                NewHoughDetector(),
		CannyLow:             50,
		CannyHigh:            150,
		MinLineFraction:      0.5,
		MaxLineGap:           10,
		MinCrossAngle:        40,
		MaxCrossAngle:        140,
	}
}

// Classify labels every external contour of mask that passes the area filter.
// Detections are returned in raster order of the contours' topmost-leftmost
// pixels; every returned detection carries one of Circle, Triangle, Square or X.
func (c *Classifier) Classify(mask *image.Gray) []Detection {
	detections := make([]Detection, 0)
	for _, contour := range FindExternalContours(mask) {
		area := contour.Area()
		if area < c.MinArea {
			continue
		}
		perimeter := contour.Perimeter()
		approx := ApproxPolygon(contour, c.ApproxFactor*perimeter)
		box := contour.BoundingBox()

		m := Measurement{
			Vertices:  len(approx),
			Area:      area,
			Perimeter: perimeter,
			Box:       box,
		}
		detections = append(detections, Detection{
			Shape:       c.Decide(mask, m),
			Contour:     contour,
			Approx:      approx,
			Area:        area,
			Perimeter:   perimeter,
			Circularity: Circularity(area, perimeter),
			AspectRatio: float64(box.Dx()) / float64(box.Dy()),
			Box:         box,
		})
	}
	return detections
}

// Decide applies the label decision to already measured contour metrics.
// The mask is only consulted by the crossing probe.
func (c *Classifier) Decide(mask *image.Gray, m Measurement) Shape {
	switch {
	case m.Vertices == 3:
		return Triangle
	case m.Vertices == 4:
		return Square
	case m.Vertices < 3:
		return Circle
	}

	if Circularity(m.Area, m.Perimeter) > c.CircularityThreshold {
		return Circle
	}
	if c.hasCrossingLines(mask, m.Box) {
		return X
	}
	return Circle
}

// Circularity returns 4π·area/perimeter², which is 1 for a perfect circle.
func Circularity(area, perimeter float64) float64 {
	if perimeter == 0 {
		return 0
	}
	return 4 * math.Pi * area / (perimeter * perimeter)
}

func (c *Classifier) hasCrossingLines(mask *image.Gray, box image.Rectangle) bool {
	if c.Lines == nil {
		return false
	}
	crop := imaging.CropGray(mask, box.Add(mask.Bounds().Min))
	if crop.Bounds().Empty() {
		return false
	}
	edges := imaging.Canny(crop, c.CannyLow, c.CannyHigh)

	minLength := c.MinLineFraction * float64(min(box.Dx(), box.Dy()))
	segments := c.Lines.Segments(edges, minLength, c.MaxLineGap)
	if len(segments) < 2 {
		return false
	}
	return c.anyCrossingPair(segments)
}

func (c *Classifier) anyCrossingPair(segments []Segment) bool {
	angles := make([]float64, len(segments))
	for i, s := range segments {
		angles[i] = s.Angle()
	}
	for i := 0; i < len(angles); i++ {
		for j := i + 1; j < len(angles); j++ {
			diff := math.Abs(angles[i] - angles[j])
			if diff > c.MinCrossAngle && diff < c.MaxCrossAngle {
				return true
			}
		}
	}
	return false
}
