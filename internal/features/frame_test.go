package features

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photocarve/internal/config"
)

func TestNewFrameInfo(t *testing.T) {
	tests := []struct {
		name         string
		w, h, limit  int
		wantW, wantH int
		wantScale    float64
	}{
		{"downscale", 1600, 1200, 800, 800, 600, 0.5},
		{"never upscale", 640, 480, 800, 640, 480, 1},
		{"exact limit", 800, 600, 800, 800, 600, 1},
		{"tall strip", 4000, 1, 800, 800, 1, 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fi := NewFrameInfo(tt.w, tt.h, tt.limit)
			assert.Equal(t, tt.wantW, fi.Width)
			assert.Equal(t, tt.wantH, fi.Height)
			assert.InDelta(t, tt.wantScale, fi.Scale, 1e-12)
			assert.Equal(t, tt.w, fi.NativeWidth)
		})
	}
}

func TestNewFrameGrayscale(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 200, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			src.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}

	f := NewFrame(src, 100)
	require.Equal(t, image.Rect(0, 0, 100, 50), f.Gray.Bounds())
	assert.InDelta(t, 255, int(f.Gray.GrayAt(50, 25).Y), 1)

	same := NewFrame(src, 800)
	assert.Equal(t, 200, same.Info.Width)
	assert.Equal(t, uint8(255), same.Gray.GrayAt(0, 0).Y)
}

func TestSetValidate(t *testing.T) {
	s := &Set{
		KeyPoints:   make([]KeyPoint, 2),
		Descriptors: Descriptors{Rows: 2, Cols: 4, Data: make([]byte, 8)},
	}
	require.NoError(t, s.Validate())
	assert.Equal(t, 2, s.Len())
	assert.Len(t, s.Descriptors.Row(1), 4)

	s.Descriptors.Rows = 3
	assert.Error(t, s.Validate())

	var empty *Set
	assert.Equal(t, 0, empty.Len())
}

func TestExtractRejectsBadParams(t *testing.T) {
	p := ParamsFrom(config.Default())
	p.WidthLimit = 0

	_, err := NewExtractor().Extract(image.NewGray(image.Rect(0, 0, 8, 8)), p)
	var cerr *config.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "width_limit", cerr.Field)
}

func TestDrawKeypoints(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 40, 40))
	set := &Set{KeyPoints: []KeyPoint{
		{X: 10, Y: 10, Angle: -1},
		{X: 30, Y: 30, Angle: 0, Octave: 2},
	}}
	opts := DefaultDrawOptions()
	DrawKeypoints(dst, set, opts)

	// radius 2 at octave 0, radius 6 at octave 2
	assert.Equal(t, opts.Color, dst.RGBAAt(12, 10))
	assert.Equal(t, opts.Color, dst.RGBAAt(36, 30))
	assert.Equal(t, color.RGBA{}, dst.RGBAAt(20, 20))

	DrawKeypoints(dst, nil, opts)
}
