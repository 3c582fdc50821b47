package detection

import (
	"image"
	"math"
)

// Contour is the closed outer boundary of a connected region, as an ordered
// list of boundary pixels. The last point connects back to the first.
type Contour []image.Point

// moore lists the eight neighbour offsets in clockwise order starting East.
var moore = [8]image.Point{
	{X: 1, Y: 0},   // E
	{X: 1, Y: 1},   // SE
	{X: 0, Y: 1},   // S
	{X: -1, Y: 1},  // SW
	{X: -1, Y: 0},  // W
	{X: -1, Y: -1}, // NW
	{X: 0, Y: -1},  // N
	{X: 1, Y: -1},  // NE
}

const dirWest = 4

// cross lists the four edge-sharing neighbour offsets.
var cross = [4]image.Point{{X: 1, Y: 0}, {X: 0, Y: 1}, {X: -1, Y: 0}, {X: 0, Y: -1}}

// FindExternalContours returns the outer boundary of every external region of
// a binary mask.
//
// Foreground is any non-zero pixel and regions are 8-connected. A region is
// external unless it lies entirely inside a hole of another region; holes and
// anything nested in them are skipped. Contours are returned in raster order
// of their topmost-leftmost pixel, in mask coordinates relative to the mask's
// bounds origin.
//
// # Algorithm
//
//  1. Flood-fill the background from the image border (4-connected) to find
//     which background pixels are outside every region
//  2. Label foreground regions with an 8-connected flood fill
//  3. A region touching the border or an outside background pixel is external
//  4. Trace each external region clockwise with Moore-neighbour tracing,
//     starting from its topmost-leftmost pixel
func FindExternalContours(mask *image.Gray) []Contour {
	g := newGrid(mask)
	if g.w == 0 || g.h == 0 {
		return nil
	}

	outside := g.outsideBackground()
	labels, count := g.label()

	external := make([]bool, count+1)
	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			id := labels[y*g.w+x]
			if id == 0 || external[id] {
				continue
			}
			if x == 0 || y == 0 || x == g.w-1 || y == g.h-1 {
				external[id] = true
				continue
			}
			for _, d := range cross {
				if outside[(y+d.Y)*g.w+x+d.X] {
					external[id] = true
					break
				}
			}
		}
	}

	contours := make([]Contour, 0)
	traced := make([]bool, count+1)
	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			id := labels[y*g.w+x]
			if id == 0 || traced[id] {
				continue
			}
			traced[id] = true
			if external[id] {
				contours = append(contours, g.trace(labels, id, image.Point{X: x, Y: y}))
			}
		}
	}
	return contours
}

// grid is a foreground bitmap with bounds starting at (0,0).
type grid struct {
	w, h int
	fg   []bool
}

func newGrid(mask *image.Gray) *grid {
	b := mask.Bounds()
	g := &grid{w: b.Dx(), h: b.Dy(), fg: make([]bool, b.Dx()*b.Dy())}
	for y := 0; y < g.h; y++ {
		row := mask.Pix[mask.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := 0; x < g.w; x++ {
			g.fg[y*g.w+x] = row[x] != 0
		}
	}
	return g
}

func (g *grid) in(p image.Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < g.w && p.Y < g.h
}

// outsideBackground marks background pixels 4-connected to the image border.
func (g *grid) outsideBackground() []bool {
	outside := make([]bool, g.w*g.h)
	stack := make([]image.Point, 0, 2*(g.w+g.h))
	push := func(x, y int) {
		i := y*g.w + x
		if !g.fg[i] && !outside[i] {
			outside[i] = true
			stack = append(stack, image.Point{X: x, Y: y})
		}
	}
	for x := 0; x < g.w; x++ {
		push(x, 0)
		push(x, g.h-1)
	}
	for y := 0; y < g.h; y++ {
		push(0, y)
		push(g.w-1, y)
	}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, d := range cross {
			n := p.Add(d)
			if g.in(n) {
				push(n.X, n.Y)
			}
		}
	}
	return outside
}

// label assigns a region id (1..count) to every foreground pixel.
func (g *grid) label() ([]int, int) {
	labels := make([]int, g.w*g.h)
	count := 0
	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			if g.fg[y*g.w+x] && labels[y*g.w+x] == 0 {
				count++
				g.floodFill(labels, image.Point{X: x, Y: y}, count)
			}
		}
	}
	return labels, count
}

// floodFill performs an iterative 8-connected fill from start.
func (g *grid) floodFill(labels []int, start image.Point, id int) {
	stack := []image.Point{start}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !g.in(p) {
			continue
		}
		i := p.Y*g.w + p.X
		if labels[i] != 0 || !g.fg[i] {
			continue
		}
		labels[i] = id

		for _, d := range moore {
			stack = append(stack, p.Add(d))
		}
	}
}

// trace follows the outer boundary of region id clockwise.
//
// start must be the region's topmost-leftmost pixel, so its west neighbour is
// known to be background. Tracing stops when the walk is about to repeat its
// first move (Jacob's stopping criterion).
func (g *grid) trace(labels []int, id int, start image.Point) Contour {
	isMember := func(p image.Point) bool {
		return g.in(p) && labels[p.Y*g.w+p.X] == id
	}

	pts := Contour{start}
	cur, back := start, dirWest
	var second image.Point

	for i := 0; ; i++ {
		dir := -1
		for k := 1; k <= 8; k++ {
			d := (back + k) % 8
			if isMember(cur.Add(moore[d])) {
				dir = d
				break
			}
		}
		if dir < 0 {
			// Isolated pixel.
			return pts
		}
		next := cur.Add(moore[dir])

		if i == 0 {
			second = next
		} else if cur == start && next == second {
			break
		}
		pts = append(pts, next)

		// The background pixel examined just before next becomes the new
		// backtrack, expressed relative to next.
		prev := cur.Add(moore[(dir+7)%8]).Sub(next)
		back = direction(prev)
		cur = next

		if len(pts) > 4*g.w*g.h {
			break
		}
	}

	// The walk ended on start again; drop the duplicate.
	return pts[:len(pts)-1]
}

func direction(d image.Point) int {
	for i, m := range moore {
		if m == d {
			return i
		}
	}
	return dirWest
}

// Area returns the enclosed area of the contour using the shoelace formula
// over pixel centres.
func (c Contour) Area() float64 {
	return polygonArea(c)
}

// Perimeter returns the closed arc length of the contour.
func (c Contour) Perimeter() float64 {
	if len(c) < 2 {
		return 0
	}
	var sum float64
	for i := range c {
		sum += dist(c[i], c[(i+1)%len(c)])
	}
	return sum
}

// BoundingBox returns the smallest rectangle containing every contour pixel.
// Max is exclusive, so a single pixel yields a 1x1 box.
func (c Contour) BoundingBox() image.Rectangle {
	if len(c) == 0 {
		return image.Rectangle{}
	}
	minP, maxP := c[0], c[0]
	for _, p := range c[1:] {
		minP.X = min(minP.X, p.X)
		minP.Y = min(minP.Y, p.Y)
		maxP.X = max(maxP.X, p.X)
		maxP.Y = max(maxP.Y, p.Y)
	}
	return image.Rectangle{Min: minP, Max: maxP.Add(image.Point{X: 1, Y: 1})}
}

func polygonArea(pts []image.Point) float64 {
	if len(pts) < 3 {
		return 0
	}
	var sum int
	for i := range pts {
		j := (i + 1) % len(pts)
		sum += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return math.Abs(float64(sum)) / 2
}

func dist(a, b image.Point) float64 {
	return math.Hypot(float64(b.X-a.X), float64(b.Y-a.Y))
}

// ApproxPolygon simplifies a closed contour with the Douglas-Peucker
// algorithm. Points closer than epsilon to the simplified outline are dropped.
//
// The curve is split at two far-apart anchor points: the point farthest from
// the first contour point, and the point farthest from that one. Both anchors
// are always kept, and each half is simplified independently.
func ApproxPolygon(c Contour, epsilon float64) []image.Point {
	n := len(c)
	if n < 3 {
		out := make([]image.Point, n)
		copy(out, c)
		return out
	}

	a := farthestFrom(c, c[0])
	b := farthestFrom(c, c[a])
	if a == b {
		return []image.Point{c[a]}
	}

	// Rotate so the ring starts at anchor a; anchor b sits at index m.
	ring := make([]image.Point, 0, n+1)
	ring = append(ring, c[a:]...)
	ring = append(ring, c[:a]...)
	ring = append(ring, c[a])
	m := (b - a + n) % n

	out := make([]image.Point, 0, 8)
	out = append(out, ring[0])
	out = douglasPeucker(ring[:m+1], epsilon, out)
	out = append(out, ring[m])
	out = douglasPeucker(ring[m:], epsilon, out)
	return out
}

func farthestFrom(c Contour, p image.Point) int {
	best, bestD := 0, -1.0
	for i, q := range c {
		if d := dist(p, q); d > bestD {
			best, bestD = i, d
		}
	}
	return best
}

// douglasPeucker appends the interior points of pts that survive
// simplification. The endpoints are not appended.
func douglasPeucker(pts []image.Point, epsilon float64, out []image.Point) []image.Point {
	if len(pts) < 3 {
		return out
	}
	first, last := pts[0], pts[len(pts)-1]

	idx, maxD := 0, 0.0
	for i := 1; i < len(pts)-1; i++ {
		if d := segmentDistance(pts[i], first, last); d > maxD {
			idx, maxD = i, d
		}
	}
	if maxD <= epsilon {
		return out
	}

	out = douglasPeucker(pts[:idx+1], epsilon, out)
	out = append(out, pts[idx])
	return douglasPeucker(pts[idx:], epsilon, out)
}

// segmentDistance returns the distance from p to the line through a and b, or
// to a when a and b coincide.
func segmentDistance(p, a, b image.Point) float64 {
	dx, dy := float64(b.X-a.X), float64(b.Y-a.Y)
	l := math.Hypot(dx, dy)
	if l == 0 {
		return dist(p, a)
	}
	return math.Abs(dx*float64(p.Y-a.Y)-dy*float64(p.X-a.X)) / l
}
