package features

import (
	"image"
	"image/color"
	"math"
)

// DrawOptions configures the keypoint overlay.
type DrawOptions struct {
	Color        color.RGBA
	MinRadius    int
	OctaveWeight float64 // extra radius per pyramid octave
	Fill         bool
	// Scale maps detection-frame coordinates onto dst, normally 1/Frame.Scale.
	Scale float64
}

// DefaultDrawOptions returns a green, outline-only overlay.
func DefaultDrawOptions() DrawOptions {
	return DrawOptions{
		Color:        color.RGBA{G: 220, A: 255},
		MinRadius:    2,
		OctaveWeight: 2,
		Scale:        1,
	}
}

// DrawKeypoints draws every keypoint of set onto dst as a circle whose radius
// grows with the octave it was found in, plus a tick showing its angle.
func DrawKeypoints(dst *image.RGBA, set *Set, opts DrawOptions) {
	if set == nil {
		return
	}
	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}
	outline := darken(opts.Color, 0.3)

	for _, k := range set.KeyPoints {
		cx := int(math.Round(k.X * scale))
		cy := int(math.Round(k.Y * scale))
		octave := k.Octave & 0xff // ORB packs the layer into the low byte
		r := opts.MinRadius + int(float64(octave)*opts.OctaveWeight)
		if r < 1 {
			r = 1
		}

		if opts.Fill {
			fillCircle(dst, cx, cy, r, opts.Color)
			drawCircle(dst, cx, cy, r, outline)
		} else {
			drawCircle(dst, cx, cy, r, opts.Color)
		}

		if k.Angle >= 0 {
			a := k.Angle * math.Pi / 180
			ex := cx + int(math.Round(float64(r)*math.Cos(a)))
			ey := cy + int(math.Round(float64(r)*math.Sin(a)))
			drawLine(dst, cx, cy, ex, ey, opts.Color)
		}
	}
}

func fillCircle(img *image.RGBA, cx, cy, r int, c color.RGBA) {
	b := img.Bounds()
	for y := max(cy-r, b.Min.Y); y <= cy+r && y < b.Max.Y; y++ {
		for x := max(cx-r, b.Min.X); x <= cx+r && x < b.Max.X; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= r*r {
				img.SetRGBA(x, y, c)
			}
		}
	}
}

// drawCircle draws a circle outline with the midpoint algorithm.
func drawCircle(img *image.RGBA, cx, cy, r int, c color.RGBA) {
	b := img.Bounds()
	plot := func(x, y int) {
		if image.Pt(x, y).In(b) {
			img.SetRGBA(x, y, c)
		}
	}

	x, y, err := r, 0, 0
	for x >= y {
		plot(cx+x, cy+y)
		plot(cx+y, cy+x)
		plot(cx-y, cy+x)
		plot(cx-x, cy+y)
		plot(cx-x, cy-y)
		plot(cx-y, cy-x)
		plot(cx+y, cy-x)
		plot(cx+x, cy-y)

		y++
		if err <= 0 {
			err += 2*y + 1
		}
		if err > 0 {
			x--
			err -= 2*x + 1
		}
	}
}

// drawLine is Bresenham, clipped to the image.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	b := img.Bounds()
	dx, dy := abs(x1-x0), abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx - dy
	for {
		if image.Pt(x0, y0).In(b) {
			img.SetRGBA(x0, y0, c)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func darken(c color.RGBA, factor float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * (1 - factor)),
		G: uint8(float64(c.G) * (1 - factor)),
		B: uint8(float64(c.B) * (1 - factor)),
		A: c.A,
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
