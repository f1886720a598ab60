package paint

import (
	"image"
	"math"

	"golang.org/x/image/vector"

	"photocarve/pkg/geometry"
)

// arcSegments is the number of segments per half circle of a stroke cap.
const arcSegments = 16

// Stroke rasterises a capsule of the given radius from a to b into channel c.
// Painting keeps the maximum coverage; erasing zeroes every pixel the capsule
// claims. It reports whether the stroke touched the mask at all.
func (m *Mask) Stroke(a, b geometry.Point2D, radius float64, c Channel, erase bool) bool {
	if radius <= 0 {
		return false
	}
	// Only the part of the segment within reach of the mask can touch it.
	// Clipping also keeps far endpoints out of the float32 rasteriser.
	grow := radius + 1
	a, b, ok := clipSegment(a, b, -grow, -grow, float64(m.Width)+grow, float64(m.Height)+grow)
	if !ok {
		return false
	}
	bounds := StrokeBounds(a, b, radius).Intersect(image.Rect(0, 0, m.Width, m.Height))
	if bounds.Empty() {
		return false
	}

	cov := rasterCapsule(a, b, radius, bounds)
	plane := m.plane(c)
	touched := false
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := cov.Pix[(y-bounds.Min.Y)*cov.Stride:]
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			v := row[x-bounds.Min.X]
			if v == 0 {
				continue
			}
			i := y*m.Width + x
			if erase {
				if v >= ClaimThreshold {
					plane[i] = 0
					touched = true
				}
				continue
			}
			if v > plane[i] {
				plane[i] = v
			}
			touched = true
		}
	}
	if touched {
		m.Revision++
	}
	return touched
}

// rasterCapsule returns the anti-aliased coverage of the capsule within
// bounds, indexed relative to bounds.Min.
func rasterCapsule(a, b geometry.Point2D, r float64, bounds image.Rectangle) *image.Alpha {
	w, h := bounds.Dx(), bounds.Dy()
	z := vector.NewRasterizer(w, h)
	ox, oy := float64(bounds.Min.X), float64(bounds.Min.Y)

	// Pixel centres sit at +0.5 in the rasteriser's coordinate system.
	ax, ay := a.X+0.5-ox, a.Y+0.5-oy
	bx, by := b.X+0.5-ox, b.Y+0.5-oy

	dx, dy := bx-ax, by-ay
	theta := math.Atan2(dy, dx)
	if dx == 0 && dy == 0 {
		theta = 0
	}

	pt := func(cx, cy, ang float64) (float32, float32) {
		return float32(cx + r*math.Cos(ang)), float32(cy + r*math.Sin(ang))
	}

	// half circle around b from theta-90° to theta+90°, then around a back.
	x0, y0 := pt(bx, by, theta-math.Pi/2)
	z.MoveTo(x0, y0)
	for i := 1; i <= arcSegments; i++ {
		z.LineTo(pt(bx, by, theta-math.Pi/2+math.Pi*float64(i)/arcSegments))
	}
	for i := 0; i <= arcSegments; i++ {
		z.LineTo(pt(ax, ay, theta+math.Pi/2+math.Pi*float64(i)/arcSegments))
	}
	z.ClosePath()

	dst := image.NewAlpha(image.Rect(0, 0, w, h))
	z.Draw(dst, dst.Bounds(), image.Opaque, image.Point{})
	return dst
}

// clipSegment clips a->b to the box [minX,maxX]x[minY,maxY] (Liang-Barsky).
// ok is false when no part of the segment lies inside or an endpoint is not
// finite.
func clipSegment(a, b geometry.Point2D, minX, minY, maxX, maxY float64) (geometry.Point2D, geometry.Point2D, bool) {
	for _, v := range [4]float64{a.X, a.Y, b.X, b.Y} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return a, b, false
		}
	}
	d := b.Sub(a)
	t0, t1 := 0.0, 1.0
	edges := [4][2]float64{
		{-d.X, a.X - minX},
		{d.X, maxX - a.X},
		{-d.Y, a.Y - minY},
		{d.Y, maxY - a.Y},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return a, b, false
			}
			continue
		}
		t := q / p
		if p < 0 {
			if t > t1 {
				return a, b, false
			}
			t0 = math.Max(t0, t)
		} else {
			if t < t0 {
				return a, b, false
			}
			t1 = math.Min(t1, t)
		}
	}
	return a.Add(d.Scale(t0)), a.Add(d.Scale(t1)), true
}

// StrokeBounds returns the image-space box a stroke can touch.
func StrokeBounds(a, b geometry.Point2D, radius float64) image.Rectangle {
	return image.Rect(
		int(math.Floor(math.Min(a.X, b.X)-radius)),
		int(math.Floor(math.Min(a.Y, b.Y)-radius)),
		int(math.Ceil(math.Max(a.X, b.X)+radius))+1,
		int(math.Ceil(math.Max(a.Y, b.Y)+radius))+1,
	)
}
