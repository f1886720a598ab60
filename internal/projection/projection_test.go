package projection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photocarve/pkg/geometry"
)

func model(frames ...Frame) *Model {
	m := NewModel()
	for i, f := range frames {
		m.SetFrame(i, f)
	}
	return m
}

func TestAbsentProjectionRoundTrip(t *testing.T) {
	m := model(
		Frame{NativeW: 1600, NativeH: 1200, Scale: 0.5},
		Frame{NativeW: 800, NativeH: 600, Scale: 1},
	)
	canvas := Canvas{Width: 400, Height: 300}

	for _, p := range []geometry.Point2D{{X: 0, Y: 0}, {X: 123.5, Y: 77.25}, {X: 799, Y: 599}} {
		for _, i := range []int{0, 1} {
			b, ok := m.ImageToBaseline(i, p)
			require.True(t, ok)
			back, ok := m.BaselineToImage(i, b)
			require.True(t, ok)
			assert.InDelta(t, p.X, back.X, 1e-9)
			assert.InDelta(t, p.Y, back.Y, 1e-9)

			s, ok := m.ImageToScreen(i, p, canvas)
			require.True(t, ok)
			img, ok := m.ScreenToImage(i, s, canvas)
			require.True(t, ok)
			assert.InDelta(t, p.X, img.X, 1e-9)
			assert.InDelta(t, p.Y, img.Y, 1e-9)
		}
	}

	// unprojected image is stretched over the baseline
	b, _ := m.ImageToBaseline(1, geometry.Point2D{X: 400, Y: 300})
	assert.Equal(t, geometry.Point2D{X: 800, Y: 600}, b)
}

func TestSetIgnoresBaseline(t *testing.T) {
	m := NewModel()
	assert.False(t, m.Set(0, geometry.ScaleHomography(2, 2)))
	assert.False(t, m.Has(0))
	assert.True(t, m.Projection(0).IsIdentity(0))
}

func TestStoredProjectionIsRescaled(t *testing.T) {
	m := model(
		Frame{NativeW: 1600, NativeH: 1200, Scale: 0.5},
		Frame{NativeW: 3200, NativeH: 2400, Scale: 0.25},
	)
	// detection frames are both 800x600; shift by 10 detection pixels
	h := geometry.Homography{1, 0, 10, 0, 1, 0, 0, 0, 1}
	require.True(t, m.Set(1, h))

	// native (400,0) in image 1 is detection (100,0) -> baseline detection
	// (110,0) -> baseline native (220,0)
	b, ok := m.ImageToBaseline(1, geometry.Point2D{X: 400, Y: 0})
	require.True(t, ok)
	assert.InDelta(t, 220, b.X, 1e-9)
	assert.InDelta(t, 0, b.Y, 1e-9)

	back, ok := m.BaselineToImage(1, b)
	require.True(t, ok)
	assert.InDelta(t, 400, back.X, 1e-9)
}

func TestScreenToImageThroughSingularProjection(t *testing.T) {
	m := model(Frame{NativeW: 100, NativeH: 100, Scale: 1}, Frame{NativeW: 100, NativeH: 100, Scale: 1})
	m.Set(1, geometry.Homography{})
	_, ok := m.ScreenToImage(1, geometry.Point2D{X: 5, Y: 5}, Canvas{Width: 100, Height: 100})
	assert.False(t, ok)

	_, ok = m.ScreenToImage(1, geometry.Point2D{}, Canvas{})
	assert.False(t, ok)
}

func TestUnknownFrame(t *testing.T) {
	m := NewModel()
	_, ok := m.NativeHomography(3)
	assert.False(t, ok)
}

func TestShift(t *testing.T) {
	m := model(Frame{NativeW: 1, NativeH: 1, Scale: 1}, Frame{NativeW: 2, NativeH: 2, Scale: 1},
		Frame{NativeW: 3, NativeH: 3, Scale: 1})
	m.Set(1, geometry.ScaleHomography(2, 2))
	m.Set(2, geometry.ScaleHomography(3, 3))

	m.Shift(1)
	assert.Equal(t, []int{1}, m.Indices())
	h, ok := m.Get(1)
	require.True(t, ok)
	assert.Equal(t, 3.0, h[0])
	f, ok := m.FrameAt(1)
	require.True(t, ok)
	assert.Equal(t, 3, f.NativeW)
	_, ok = m.FrameAt(2)
	assert.False(t, ok)

	c := m.Clone()
	m.Reset()
	assert.True(t, c.Has(1))
	assert.False(t, m.Has(1))
}
