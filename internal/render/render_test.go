package render

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photocarve/pkg/geometry"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

var (
	red   = color.NRGBA{R: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

func TestRenderSurfaceErrors(t *testing.T) {
	r := NewSoftware()
	_, err := r.Render(nil, image.Point{})
	var se *SurfaceError
	require.ErrorAs(t, err, &se)

	_, err = r.Render([]Input{{Index: 1, BaselineSize: image.Pt(4, 4)}}, image.Pt(4, 4))
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 1, se.Index)

	_, err = r.Render([]Input{{
		Image:        solid(4, 4, red),
		Mask:         solid(3, 4, red),
		BaselineSize: image.Pt(4, 4),
	}}, image.Pt(4, 4))
	assert.ErrorAs(t, err, &se)
}

func TestRenderBaselineFillsCanvas(t *testing.T) {
	out, err := NewSoftware().Render([]Input{{
		Image:        solid(4, 4, red),
		BaselineSize: image.Pt(4, 4),
	}}, image.Pt(8, 6))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 6), out.Bounds())
	assert.Equal(t, color.RGBA{R: 255, A: 255}, out.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{R: 255, A: 255}, out.RGBAAt(7, 5))
}

func TestRenderCompositeAlpha(t *testing.T) {
	comp := solid(10, 10, blue)
	for y := 0; y < 10; y++ {
		for x := 0; x < 5; x++ {
			comp.SetNRGBA(x, y, color.NRGBA{B: 255})
		}
	}
	out, err := NewSoftware().Render([]Input{
		{Index: 0, Image: solid(10, 10, red), BaselineSize: image.Pt(10, 10)},
		{Index: 1, Image: solid(10, 10, white), Composite: comp, BaselineSize: image.Pt(10, 10)},
	}, image.Pt(10, 10))
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 255, A: 255}, out.RGBAAt(2, 5))
	assert.Equal(t, color.RGBA{B: 255, A: 255}, out.RGBAAt(7, 5))
}

func TestRenderFollowsProjection(t *testing.T) {
	black := color.NRGBA{A: 255}
	in := Input{
		Index:                 1,
		Image:                 solid(20, 20, white),
		Projection:            geometry.Homography{1, 0, 5, 0, 1, 5, 0, 0, 1},
		Projected:             true,
		DetectionSize:         image.Pt(10, 10),
		BaselineDetectionSize: image.Pt(10, 10),
		BaselineSize:          image.Pt(20, 20),
	}
	base := Input{Image: solid(20, 20, black), BaselineSize: image.Pt(20, 20)}

	out, err := NewSoftware().Render([]Input{base, in}, image.Pt(20, 20))
	require.NoError(t, err)
	// five detection pixels are ten native pixels
	assert.Equal(t, color.RGBA{A: 255}, out.RGBAAt(5, 5))
	assert.Equal(t, color.RGBA{A: 255}, out.RGBAAt(15, 9))
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, out.RGBAAt(12, 12))
}

func TestRenderMaskTint(t *testing.T) {
	mask := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	mask.SetNRGBA(1, 1, color.NRGBA{G: 255, A: 255})

	r := NewSoftware()
	r.ShowMasks = true
	out, err := r.Render([]Input{{Image: solid(4, 4, red), Mask: mask, BaselineSize: image.Pt(4, 4)}}, image.Pt(4, 4))
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{G: 255, A: 255}, out.RGBAAt(1, 1))
	assert.Equal(t, color.RGBA{R: 255, A: 255}, out.RGBAAt(2, 2))
}

func TestUniform(t *testing.T) {
	h := geometry.Homography{1, 2, 3, 4, 5, 6, 7, 8, 9}
	assert.Equal(t, [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1}, Input{Projection: h}.Uniform())
	assert.Equal(t, [9]float32{1, 4, 7, 2, 5, 8, 3, 6, 9}, Input{Projection: h, Projected: true}.Uniform())
}

func TestBlend(t *testing.T) {
	dst := color.RGBA{R: 100, G: 100, B: 100, A: 255}
	assert.Equal(t, color.RGBA{R: 255, A: 255}, blend(dst, red, BlendNormal, 1))
	assert.Equal(t, dst, blend(dst, color.NRGBA{R: 255}, BlendNormal, 1))
	assert.Equal(t, color.RGBA{R: 100, A: 255}, blend(dst, red, BlendMultiply, 1))
	assert.Equal(t, color.RGBA{R: 155, G: 100, B: 100, A: 255}, blend(dst, red, BlendDifference, 1))

	m, err := ParseBlendMode("Screen")
	require.NoError(t, err)
	assert.Equal(t, BlendScreen, m)
	_, err = ParseBlendMode("dodge")
	assert.Error(t, err)
}
