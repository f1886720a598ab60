package projection

import (
	"photocarve/pkg/geometry"
)

// NativeHomography returns the transform from image i native pixels to
// baseline native pixels. A stored projection is rescaled from detection
// space; without one the image is stretched over the baseline. ok is false
// when either frame is unknown.
func (m *Model) NativeHomography(i int) (geometry.Homography, bool) {
	img, ok := m.FrameAt(i)
	if !ok || !img.Valid() {
		return geometry.Homography{}, false
	}
	base, ok := m.FrameAt(0)
	if !ok || !base.Valid() {
		return geometry.Homography{}, false
	}
	if i == 0 {
		return geometry.IdentityHomography(), true
	}
	if h, ok := m.Get(i); ok {
		return h.Rescaled(img.Scale, base.Scale), true
	}
	return geometry.ScaleHomography(
		float64(base.NativeW)/float64(img.NativeW),
		float64(base.NativeH)/float64(img.NativeH),
	), true
}

// DetectionHomography returns the detection-space projection of image i,
// the identity when none is stored.
func (m *Model) DetectionHomography(i int) geometry.Homography {
	return m.Projection(i)
}

// ImageToBaseline maps an image-native point into baseline native space.
func (m *Model) ImageToBaseline(i int, p geometry.Point2D) (geometry.Point2D, bool) {
	h, ok := m.NativeHomography(i)
	if !ok {
		return geometry.Point2D{}, false
	}
	if !m.Has(i) {
		// linear scale, no matrix work
		return geometry.Point2D{X: p.X * h[0], Y: p.Y * h[4]}, true
	}
	return h.Apply(p)
}

// BaselineToImage maps a baseline native point into image i native space.
func (m *Model) BaselineToImage(i int, p geometry.Point2D) (geometry.Point2D, bool) {
	h, ok := m.NativeHomography(i)
	if !ok {
		return geometry.Point2D{}, false
	}
	if !m.Has(i) {
		return geometry.Point2D{X: p.X / h[0], Y: p.Y / h[4]}, true
	}
	inv, ok := h.Inverse()
	if !ok {
		return geometry.Point2D{}, false
	}
	return inv.Apply(p)
}

// ScreenToImage maps a canvas pixel to image i native pixels.
func (m *Model) ScreenToImage(i int, p geometry.Point2D, c Canvas) (geometry.Point2D, bool) {
	base, ok := m.FrameAt(0)
	if !ok || c.Width <= 0 || c.Height <= 0 {
		return geometry.Point2D{}, false
	}
	bp := p.ScaleXY(float64(base.NativeW)/float64(c.Width), float64(base.NativeH)/float64(c.Height))
	return m.BaselineToImage(i, bp)
}

// ImageToScreen maps image i native pixels to a canvas pixel.
func (m *Model) ImageToScreen(i int, p geometry.Point2D, c Canvas) (geometry.Point2D, bool) {
	base, ok := m.FrameAt(0)
	if !ok || c.Width <= 0 || c.Height <= 0 {
		return geometry.Point2D{}, false
	}
	bp, ok := m.ImageToBaseline(i, p)
	if !ok {
		return geometry.Point2D{}, false
	}
	return bp.ScaleXY(float64(c.Width)/float64(base.NativeW), float64(c.Height)/float64(base.NativeH)), true
}
