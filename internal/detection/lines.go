package detection

import (
	"image"
	"math"
	"sort"
)

// Segment is a straight line segment between two pixels.
type Segment struct {
	A image.Point `json:"a"`
	B image.Point `json:"b"`
}

// Length returns the Euclidean length of the segment.
func (s Segment) Length() float64 {
	return dist(s.A, s.B)
}

// Angle returns the segment orientation in degrees, in the range (-90, 90].
//
// The endpoints are ordered left to right (top to bottom for vertical
// segments) before measuring, so a segment and its reverse report the same
// angle. Y grows downward, so a segment rising to the right has a negative
// angle.
func (s Segment) Angle() float64 {
	a, b := s.A, s.B
	if b.X < a.X || (b.X == a.X && b.Y < a.Y) {
		a, b = b, a
	}
	return math.Atan2(float64(b.Y-a.Y), float64(b.X-a.X)) * 180 / math.Pi
}

// LineDetector finds straight segments in a binary edge map.
//
// Implementations return segments at least minLength long. Collinear edge
// pixels separated by at most maxGap are joined into one segment.
type LineDetector interface {
	Segments(edges *image.Gray, minLength, maxGap float64) []Segment
}

// HoughDetector is a pure Go line segment detector built on the standard
// Hough transform.
//
// # Algorithm
//
//  1. Every edge pixel votes for all (rho, theta) lines through it, with 1°
//     angular and 1 px distance resolution
//  2. Accumulator cells with at least Threshold votes that are a local maximum
//     in a 5x5 neighbourhood become candidate lines, strongest first
//  3. For each candidate, edge pixels within 2 px of the line are sorted by
//     their position along it and split wherever consecutive pixels are more
//     than maxGap apart
//  4. Runs at least minLength long become segments, up to MaxLines in total
type HoughDetector struct {
	// Threshold is the minimum number of votes for a candidate line.
	Threshold int

	// MaxLines caps the number of returned segments.
	MaxLines int
}

// NewHoughDetector returns a detector with a 20 vote threshold and a 50 line cap.
func NewHoughDetector() *HoughDetector {
	return &HoughDetector{Threshold: 20, MaxLines: 50}
}

const numAngles = 180

type peak struct {
	rho   int
	theta int
	votes int
}

// Segments implements LineDetector.
func (h *HoughDetector) Segments(edges *image.Gray, minLength, maxGap float64) []Segment {
	bounds := edges.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	points := make([]image.Point, 0)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if edges.GrayAt(x+bounds.Min.X, y+bounds.Min.Y).Y != 0 {
				points = append(points, image.Point{X: x, Y: y})
			}
		}
	}
	if len(points) < 2 {
		return nil
	}

	var cosT, sinT [numAngles]float64
	for t := 0; t < numAngles; t++ {
		angle := float64(t) * math.Pi / 180.0
		cosT[t], sinT[t] = math.Cos(angle), math.Sin(angle)
	}

	// Vote in Hough space
	maxDist := int(math.Hypot(float64(width), float64(height))) + 1
	accumulator := make([][]int, maxDist*2+1)
	for i := range accumulator {
		accumulator[i] = make([]int, numAngles)
	}
	for _, p := range points {
		for t := 0; t < numAngles; t++ {
			rho := float64(p.X)*cosT[t] + float64(p.Y)*sinT[t]
			accumulator[int(math.Round(rho))+maxDist][t]++
		}
	}

	peaks := findPeaks(accumulator, h.Threshold)
	sort.Slice(peaks, func(i, j int) bool {
		return peaks[i].votes > peaks[j].votes
	})

	segments := make([]Segment, 0)
	for _, pk := range peaks {
		if h.MaxLines > 0 && len(segments) >= h.MaxLines {
			break
		}
		rho := float64(pk.rho - maxDist)
		cosA, sinA := cosT[pk.theta], sinT[pk.theta]

		// Edge pixels near the line, keyed by position along it.
		type onLine struct {
			p image.Point
			t float64
		}
		near := make([]onLine, 0)
		for _, p := range points {
			if math.Abs(float64(p.X)*cosA+float64(p.Y)*sinA-rho) < 2.0 {
				near = append(near, onLine{p: p, t: -float64(p.X)*sinA + float64(p.Y)*cosA})
			}
		}
		if len(near) < 2 {
			continue
		}
		sort.Slice(near, func(i, j int) bool { return near[i].t < near[j].t })

		runStart := 0
		for i := 1; i <= len(near); i++ {
			if i < len(near) && near[i].t-near[i-1].t <= maxGap {
				continue
			}
			seg := Segment{
				A: near[runStart].p.Add(bounds.Min),
				B: near[i-1].p.Add(bounds.Min),
			}
			if seg.Length() >= minLength {
				segments = append(segments, seg)
				if h.MaxLines > 0 && len(segments) >= h.MaxLines {
					break
				}
			}
			runStart = i
		}
	}
	return segments
}

// findPeaks returns accumulator cells at or above threshold that are not
// exceeded by any cell in their 5x5 neighbourhood. Theta wraps around.
func findPeaks(accumulator [][]int, threshold int) []peak {
	peaks := make([]peak, 0)
	for r := range accumulator {
		for t := 0; t < numAngles; t++ {
			votes := accumulator[r][t]
			if votes < threshold || votes == 0 {
				continue
			}
			isMax := true
			for dr := -2; dr <= 2 && isMax; dr++ {
				for dt := -2; dt <= 2 && isMax; dt++ {
					if dr == 0 && dt == 0 {
						continue
					}
					nr := r + dr
					nt := (t + dt + numAngles) % numAngles
					if nr >= 0 && nr < len(accumulator) && accumulator[nr][nt] > votes {
						isMax = false
					}
				}
			}
			if isMax {
				peaks = append(peaks, peak{rho: r, theta: t, votes: votes})
			}
		}
	}
	return peaks
}
