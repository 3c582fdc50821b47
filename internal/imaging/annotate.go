package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Mark is one labelled outline drawn onto an annotated frame.
//
// Outline points are in region coordinates; Annotate shifts them by the region
// origin. The outline is drawn closed.
type Mark struct {
	Outline []image.Point
	Label   string
}

var (
	regionColor  = color.RGBA{0, 0, 255, 255}
	outlineColor = color.RGBA{0, 255, 0, 255}
	labelColor   = color.RGBA{255, 255, 255, 255}
	labelBg      = color.RGBA{0, 0, 0, 255}
)

// Annotate returns a copy of frame with the region rectangle, every mark's
// outline and label, and an optional caption in the top-left corner.
func Annotate(frame image.Image, region Region, marks []Mark, caption string) *image.RGBA {
	bounds := frame.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(out, out.Bounds(), frame, bounds.Min, draw.Src)

	r := region.Rect()
	drawPolygon(out, []image.Point{
		r.Min,
		{X: r.Max.X - 1, Y: r.Min.Y},
		{X: r.Max.X - 1, Y: r.Max.Y - 1},
		{X: r.Min.X, Y: r.Max.Y - 1},
	}, regionColor)

	origin := r.Min
	for _, m := range marks {
		if len(m.Outline) == 0 {
			continue
		}
		pts := make([]image.Point, len(m.Outline))
		for i, p := range m.Outline {
			pts[i] = p.Add(origin)
		}
		drawPolygon(out, pts, outlineColor)
		if m.Label != "" {
			drawLabel(out, pts[0].X, pts[0].Y-2, m.Label)
		}
	}

	if caption != "" {
		drawLabel(out, 4, 14, caption)
	}
	return out
}

// SaveImage writes img to path. The format follows the file extension.
func SaveImage(img image.Image, path string) error {
	if err := imaging.Save(img, path, imaging.JPEGQuality(90)); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}

func drawPolygon(img *image.RGBA, pts []image.Point, c color.RGBA) {
	for i := range pts {
		drawLine(img, pts[i], pts[(i+1)%len(pts)], c)
	}
}

// drawLine draws a one pixel wide Bresenham line, clipped to the image.
func drawLine(img *image.RGBA, a, b image.Point, c color.RGBA) {
	dx := abs(b.X - a.X)
	dy := -abs(b.Y - a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	e := dx + dy
	x, y := a.X, a.Y
	for {
		if (image.Point{X: x, Y: y}).In(img.Bounds()) {
			img.SetRGBA(x, y, c)
		}
		if x == b.X && y == b.Y {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
	}
}

// drawLabel renders text with its baseline at (x, y) on a filled background.
func drawLabel(img *image.RGBA, x, y int, text string) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelColor),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	width := d.MeasureString(text).Ceil()
	bg := image.Rect(x-1, y-face.Ascent-1, x+width+1, y+face.Descent+1).Intersect(img.Bounds())
	draw.Draw(img, bg, image.NewUniform(labelBg), image.Point{}, draw.Src)
	d.DrawString(text)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
