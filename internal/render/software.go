package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"photocarve/pkg/geometry"
)

// Software renders on the CPU by inverse-mapping every canvas pixel into
// each image.
type Software struct {
	Background color.RGBA
	Mode       BlendMode // used for every image after the first
	Opacity    float64
	ShowMasks  bool
}

// NewSoftware returns a renderer with a dark background and normal blending.
func NewSoftware() *Software {
	return &Software{
		Background: color.RGBA{R: 40, G: 40, B: 40, A: 255},
		Mode:       BlendNormal,
		Opacity:    1,
	}
}

// Render draws inputs in order. The baseline fills the canvas.
func (s *Software) Render(inputs []Input, canvas image.Point) (*image.RGBA, error) {
	if canvas.X <= 0 || canvas.Y <= 0 {
		return nil, &SurfaceError{Index: -1, Reason: "empty canvas"}
	}
	for _, in := range inputs {
		if err := validate(in); err != nil {
			return nil, err
		}
	}

	out := image.NewRGBA(image.Rect(0, 0, canvas.X, canvas.Y))
	draw.Draw(out, out.Bounds(), &image.Uniform{C: s.Background}, image.Point{}, draw.Src)

	for n, in := range inputs {
		mode, opacity := s.Mode, s.Opacity
		if n == 0 {
			mode, opacity = BlendNormal, 1
		}

		toBase := imageToBaseline(in)
		fromBase, ok := toBase.Inverse()
		if !ok {
			// a degenerate projection is drawn unwarped
			in.Projected = false
			fromBase, _ = imageToBaseline(in).Inverse()
		}
		screenToBase := geometry.ScaleHomography(
			float64(in.BaselineSize.X)/float64(canvas.X),
			float64(in.BaselineSize.Y)/float64(canvas.Y),
		)
		m := fromBase.Mul(screenToBase)

		tex := in.Image
		if in.Composite != nil {
			tex = in.Composite
		}
		var mask *image.NRGBA
		if s.ShowMasks {
			mask = in.Mask
		}
		s.drawImage(out, tex, mask, m, mode, opacity)
	}
	return out, nil
}

func (s *Software) drawImage(out *image.RGBA, tex, mask *image.NRGBA, m geometry.Homography, mode BlendMode, opacity float64) {
	b := tex.Bounds()
	w, h := b.Dx(), b.Dy()
	for y := 0; y < out.Rect.Dy(); y++ {
		for x := 0; x < out.Rect.Dx(); x++ {
			p, ok := m.Apply(geometry.Point2D{X: float64(x) + 0.5, Y: float64(y) + 0.5})
			if !ok {
				continue
			}
			ix, iy := int(math.Floor(p.X)), int(math.Floor(p.Y))
			if ix < 0 || iy < 0 || ix >= w || iy >= h {
				continue
			}
			c := out.RGBAAt(x, y)
			c = blend(c, tex.NRGBAAt(b.Min.X+ix, b.Min.Y+iy), mode, opacity)
			if mask != nil {
				mb := mask.Bounds()
				c = blend(c, mask.NRGBAAt(mb.Min.X+ix, mb.Min.Y+iy), BlendNormal, 1)
			}
			out.SetRGBA(x, y, c)
		}
	}
}
