package segment

import (
	"fmt"
	"image"
)

// Carve copies src into an RGBA composite whose alpha is 0 on background and
// boundary labels and 255 everywhere else.
func Carve(src *image.NRGBA, mk *Markers) (*image.NRGBA, error) {
	b := src.Bounds()
	if b.Dx() != mk.Width || b.Dy() != mk.Height {
		return nil, fmt.Errorf("image %v does not match markers %dx%d", b.Size(), mk.Width, mk.Height)
	}
	out := image.NewNRGBA(image.Rect(0, 0, mk.Width, mk.Height))
	for y := 0; y < mk.Height; y++ {
		so := src.PixOffset(b.Min.X, b.Min.Y+y)
		do := out.PixOffset(0, y)
		for x := 0; x < mk.Width; x++ {
			s := so + x*4
			d := do + x*4
			out.Pix[d+0] = src.Pix[s+0]
			out.Pix[d+1] = src.Pix[s+1]
			out.Pix[d+2] = src.Pix[s+2]
			switch mk.Labels[y*mk.Width+x] {
			case BackgroundLabel, Boundary:
				out.Pix[d+3] = 0
			default:
				out.Pix[d+3] = 255
			}
		}
	}
	return out, nil
}
