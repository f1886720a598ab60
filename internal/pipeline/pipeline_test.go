package pipeline

import (
	"errors"
	"image"
	"image/color"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photocarve/internal/config"
	"photocarve/internal/features"
	photoimage "photocarve/internal/image"
	"photocarve/internal/logging"
	"photocarve/internal/native"
	"photocarve/internal/paint"
	"photocarve/internal/projection"
	"photocarve/pkg/geometry"
)

var knownH = geometry.Homography{
	1.01, 0.02, 6,
	-0.015, 0.99, -4,
	1e-5, 0, 1,
}

type fakeExtractor struct {
	sets  map[image.Image]*features.Set
	fail  map[image.Image]error
	calls int
}

func newFakeExtractor() *fakeExtractor {
	return &fakeExtractor{sets: map[image.Image]*features.Set{}, fail: map[image.Image]error{}}
}

func (f *fakeExtractor) Extract(src image.Image, p features.Params) (*features.Set, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	f.calls++
	if err, ok := f.fail[src]; ok {
		return nil, err
	}
	out := features.Set{}
	if set, ok := f.sets[src]; ok {
		out = *set
	}
	b := src.Bounds()
	out.Frame = features.NewFrameInfo(b.Dx(), b.Dy(), p.WidthLimit)
	return &out, nil
}

func filled(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

// matchedPair returns a baseline set and a target set whose keypoints map
// onto the baseline's through h, with identical descriptors.
func matchedPair(t *testing.T, rng *rand.Rand, n int, w, hgt float64, h geometry.Homography) (*features.Set, *features.Set) {
	t.Helper()
	inv, ok := h.Inverse()
	require.True(t, ok)

	desc := features.Descriptors{Rows: n, Cols: 32, Data: make([]byte, n*32)}
	rng.Read(desc.Data)
	base := &features.Set{Descriptors: desc}
	target := &features.Set{Descriptors: desc}
	for i := 0; i < n; i++ {
		bp := geometry.Point2D{X: 20 + rng.Float64()*(w-40), Y: 20 + rng.Float64()*(hgt-40)}
		tp, ok := inv.Apply(bp)
		require.True(t, ok)
		base.KeyPoints = append(base.KeyPoints, features.KeyPoint{X: bp.X, Y: bp.Y, Angle: -1})
		target.KeyPoints = append(target.KeyPoints, features.KeyPoint{X: tp.X, Y: tp.Y, Angle: -1})
	}
	return base, target
}

type fixture struct {
	p      *Pipeline
	ex     *fakeExtractor
	layers []*photoimage.Layer
}

// newFixture loads count images of w x h; every non-baseline image matches
// the baseline through knownH.
func newFixture(t *testing.T, count, w, h int) *fixture {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	ex := newFakeExtractor()
	var layers []*photoimage.Layer
	for i := 0; i < count; i++ {
		c := color.NRGBA{R: uint8(40 * i), G: 90, B: uint8(200 - 30*i), A: 255}
		layers = append(layers, photoimage.FromImage("img", filled(w, h, c)))
	}

	base, target := matchedPair(t, rng, 50, float64(w), float64(h), knownH)
	ex.sets[layers[0].Image] = base
	for i := 1; i < count; i++ {
		ex.sets[layers[i].Image] = target
	}

	p := New(photoimage.NewStore(layers...), ex, logging.Discard())
	return &fixture{p: p, ex: ex, layers: layers}
}

func TestScenarioFiftyMatches(t *testing.T) {
	f := newFixture(t, 2, 800, 600)
	cfg := config.Default()

	report, err := f.p.UpdateImages(cfg)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, report.Extracted)
	assert.Equal(t, []int{1}, report.Aligned)
	assert.Empty(t, report.Failures)

	h, ok := f.p.Projection().Get(1)
	require.True(t, ok)
	assert.False(t, h.HasNaN())
	assert.True(t, h.ApproxEqual(knownH, 1e-6))
	assert.Equal(t, AlignKey(f.layers[1].ID, f.layers[0].ID, cfg), f.p.Keys(1).Align)

	res, aerr := f.p.Alignment(1)
	assert.NoError(t, aerr)
	assert.Equal(t, 50, res.Matches)
}

func TestScenarioZeroMatches(t *testing.T) {
	f := newFixture(t, 2, 200, 150)
	// every baseline row has two equally distant candidates
	base := f.ex.sets[f.layers[0].Image]
	ambiguous := &features.Set{Descriptors: features.Descriptors{Cols: 32}}
	for i := 0; i < base.Len(); i++ {
		for bit := 0; bit < 2; bit++ {
			row := append([]byte(nil), base.Descriptors.Row(i)...)
			row[5] ^= 1 << bit
			ambiguous.Descriptors.Data = append(ambiguous.Descriptors.Data, row...)
			ambiguous.Descriptors.Rows++
			ambiguous.KeyPoints = append(ambiguous.KeyPoints, base.KeyPoints[i])
		}
	}
	f.ex.sets[f.layers[1].Image] = ambiguous

	failures := 0
	f.p.On(EventAlignmentFailed, func(interface{}) { failures++ })

	cfg := config.Default()
	report, err := f.p.UpdateImages(cfg)
	require.NoError(t, err)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, 1, report.Failures[0].Index)
	assert.False(t, f.p.Projection().Has(1))
	assert.Equal(t, AlignKey(f.layers[1].ID, f.layers[0].ID, cfg), f.p.Keys(1).Align)
	assert.Equal(t, 1, failures)

	inputs := f.p.RenderInputs(1)
	require.Len(t, inputs, 1)
	assert.False(t, inputs[0].Projected)

	// the failed alignment is not retried with unchanged inputs
	report, err = f.p.UpdateImages(cfg)
	require.NoError(t, err)
	assert.Zero(t, report.Recomputed())
	assert.Equal(t, 1, failures)
}

func TestUpdateImagesIsIdempotent(t *testing.T) {
	f := newFixture(t, 3, 200, 150)
	cfg := config.Default()

	_, err := f.p.UpdateImages(cfg)
	require.NoError(t, err)
	calls := f.ex.calls
	keys := []Keys{f.p.Keys(0), f.p.Keys(1), f.p.Keys(2)}
	h1 := f.p.Projection().Projection(1)

	report, err := f.p.UpdateImages(cfg)
	require.NoError(t, err)
	assert.Zero(t, report.Recomputed())
	assert.Equal(t, calls, f.ex.calls)
	assert.Equal(t, keys, []Keys{f.p.Keys(0), f.p.Keys(1), f.p.Keys(2)})
	assert.Equal(t, h1, f.p.Projection().Projection(1))
}

func TestPaintInvalidatesOnlyThatComposite(t *testing.T) {
	f := newFixture(t, 3, 200, 150)
	cfg := config.Default()
	_, err := f.p.UpdateImages(cfg)
	require.NoError(t, err)
	before := []Keys{f.p.Keys(0), f.p.Keys(1), f.p.Keys(2)}

	changed := 0
	f.p.On(EventMaskChanged, func(data interface{}) { changed = data.(int) })

	err = f.p.PaintStroke(Stroke{Image: 2, From: geometry.Point2D{X: 60, Y: 60}, To: geometry.Point2D{X: 90, Y: 70}},
		projection.Canvas{Width: 200, Height: 150}, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, changed)

	after := f.p.Keys(2)
	assert.Empty(t, after.Composite)
	assert.Equal(t, before[2].Features, after.Features)
	assert.Equal(t, before[2].Align, after.Align)
	assert.Equal(t, before[0], f.p.Keys(0))
	assert.Equal(t, before[1], f.p.Keys(1))

	report, err := f.p.UpdateImages(cfg)
	require.NoError(t, err)
	assert.Empty(t, report.Extracted)
	assert.Empty(t, report.Aligned)
	assert.Equal(t, []int{2}, report.Composited)
	require.NotNil(t, f.p.Composite(2))
	assert.Nil(t, f.p.Composite(1))
}

func TestPaintStrokeLandsThroughInverseProjection(t *testing.T) {
	f := newFixture(t, 2, 200, 150)
	cfg := config.Default()
	_, err := f.p.UpdateImages(cfg)
	require.NoError(t, err)

	inv, ok := knownH.Inverse()
	require.True(t, ok)
	s := geometry.Point2D{X: 100, Y: 80}
	want, ok := inv.Apply(s)
	require.True(t, ok)
	require.Greater(t, want.Distance(s), 6.0)

	pixel := func(m *paint.Mask, p geometry.Point2D) int {
		return int(math.Floor(p.Y))*m.Width + int(math.Floor(p.X))
	}

	require.NoError(t, f.p.PaintStroke(Stroke{Image: 1, From: s, To: s}, projection.Canvas{Width: 200, Height: 150}, cfg))
	m := f.p.Mask(1)
	require.NotNil(t, m)
	assert.True(t, m.Claimed(paint.Foreground, pixel(m, want)))
	assert.False(t, m.Claimed(paint.Foreground, pixel(m, s)))

	// a half-size canvas shows the same point at half the coordinates
	require.NoError(t, f.p.ClearMask(1, paint.Foreground))
	half := geometry.Point2D{X: s.X / 2, Y: s.Y / 2}
	require.NoError(t, f.p.PaintStroke(Stroke{Image: 1, From: half, To: half}, projection.Canvas{Width: 100, Height: 75}, cfg))
	m = f.p.Mask(1)
	assert.True(t, m.Claimed(paint.Foreground, pixel(m, want)))
	assert.False(t, m.Claimed(paint.Foreground, pixel(m, s)))
}

func TestPaintImageStrokeRejectsBadRadius(t *testing.T) {
	f := newFixture(t, 2, 200, 150)
	for _, r := range []float64{0, -1, 600, math.NaN()} {
		err := f.p.PaintImageStroke(1, geometry.Point2D{X: 10, Y: 10}, geometry.Point2D{X: 20, Y: 10}, false, false, r)
		var cerr *config.Error
		require.True(t, errors.As(err, &cerr), "radius %v", r)
		assert.Equal(t, "brush_radius", cerr.Field)
	}
	assert.Nil(t, f.p.Mask(1))

	cfg := config.Default()
	cfg.BrushRadius = 0
	err := f.p.PaintStroke(Stroke{Image: 1, From: geometry.Point2D{X: 10, Y: 10}, To: geometry.Point2D{X: 20, Y: 10}},
		projection.Canvas{Width: 200, Height: 150}, cfg)
	var cerr *config.Error
	assert.True(t, errors.As(err, &cerr))
}

func TestDetectorChangeRecomputesComposite(t *testing.T) {
	f := newFixture(t, 2, 200, 150)
	cfg := config.Default()
	_, err := f.p.UpdateImages(cfg)
	require.NoError(t, err)

	require.NoError(t, f.p.PaintImageStroke(1, geometry.Point2D{X: 50, Y: 50}, geometry.Point2D{X: 80, Y: 60}, false, false, 3))
	report, err := f.p.UpdateImages(cfg)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, report.Composited)
	first := f.p.Composite(1)
	require.NotNil(t, first)

	cfg.Detector = config.DetectorORB
	report, err = f.p.UpdateImages(cfg)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, report.Extracted)
	assert.Equal(t, []int{1}, report.Aligned)
	assert.Equal(t, []int{1}, report.Composited)
	assert.Equal(t, CompositeKey(f.layers[1].ID, cfg), f.p.Keys(1).Composite)

	report, err = f.p.UpdateImages(cfg)
	require.NoError(t, err)
	assert.Zero(t, report.Recomputed())
}

func TestBaselineAndRangeErrors(t *testing.T) {
	f := newFixture(t, 2, 200, 150)
	cfg := config.Default()
	canvas := projection.Canvas{Width: 200, Height: 150}

	err := f.p.PaintStroke(Stroke{Image: 0}, canvas, cfg)
	assert.ErrorIs(t, err, ErrBaselineMask)
	assert.ErrorIs(t, f.p.ClearMask(0, paint.Foreground), ErrBaselineMask)
	assert.ErrorIs(t, f.p.PaintStroke(Stroke{Image: 7}, canvas, cfg), ErrIndexOutOfRange)
	assert.ErrorIs(t, f.p.RemoveImage(9), ErrIndexOutOfRange)
}

func TestInvalidConfigAbortsPass(t *testing.T) {
	f := newFixture(t, 2, 200, 150)
	cfg := config.Default()
	cfg.MaxFeatures = -1

	report, err := f.p.UpdateImages(cfg)
	var cerr *config.Error
	require.ErrorAs(t, err, &cerr)
	assert.Zero(t, report.Recomputed())
	assert.Zero(t, f.ex.calls)
}

func TestNativeErrorKeepsCompletedWork(t *testing.T) {
	f := newFixture(t, 3, 200, 150)
	f.ex.fail[f.layers[1].Image] = native.New("detect", native.CodeDetect, errors.New("error code -215"))
	cfg := config.Default()

	report, err := f.p.UpdateImages(cfg)
	var nerr *native.Error
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, []int{0}, report.Extracted)
	assert.NotEmpty(t, f.p.Keys(0).Features)
	assert.Empty(t, f.p.Keys(1).Features)

	delete(f.ex.fail, f.layers[1].Image)
	report, err = f.p.UpdateImages(cfg)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, report.Extracted)
}

func TestClearMask(t *testing.T) {
	f := newFixture(t, 2, 200, 150)
	cfg := config.Default()
	require.NoError(t, f.p.PaintImageStroke(1, geometry.Point2D{X: 50, Y: 50}, geometry.Point2D{X: 60, Y: 50}, false, false, 3))
	_, err := f.p.UpdateImages(cfg)
	require.NoError(t, err)
	require.NotNil(t, f.p.Composite(1))

	require.NoError(t, f.p.ClearMask(1, paint.Foreground))
	assert.Empty(t, f.p.Keys(1).Composite)
	_, err = f.p.UpdateImages(cfg)
	require.NoError(t, err)
	assert.Nil(t, f.p.Composite(1))
	assert.Equal(t, CompositeKey(f.layers[1].ID, cfg), f.p.Keys(1).Composite)
}

func TestRemoveImageShiftsRecords(t *testing.T) {
	f := newFixture(t, 3, 200, 150)
	cfg := config.Default()
	_, err := f.p.UpdateImages(cfg)
	require.NoError(t, err)
	old2 := f.p.Keys(2)

	require.NoError(t, f.p.RemoveImage(1))
	assert.Equal(t, old2, f.p.Keys(1))
	assert.Equal(t, Keys{}, f.p.Keys(2))
	assert.True(t, f.p.Projection().Has(1))
	assert.False(t, f.p.Projection().Has(2))

	report, err := f.p.UpdateImages(cfg)
	require.NoError(t, err)
	assert.Zero(t, report.Recomputed())
}

func TestRemoveBaselineRealigns(t *testing.T) {
	f := newFixture(t, 3, 200, 150)
	cfg := config.Default()
	_, err := f.p.UpdateImages(cfg)
	require.NoError(t, err)

	require.NoError(t, f.p.RemoveImage(0))
	assert.False(t, f.p.Projection().Has(0))

	report, err := f.p.UpdateImages(cfg)
	require.NoError(t, err)
	assert.Empty(t, report.Extracted)
	assert.Equal(t, 1, len(report.Aligned)+len(report.Failures))
}

func TestKeysAreStagePrefixed(t *testing.T) {
	cfg := config.Default()
	fk := FeaturesKey("abc", cfg)
	ak := AlignKey("abc", "base", cfg)
	ck := CompositeKey("abc", cfg)
	assert.Equal(t, StageFeatures, fk.Stage())
	assert.Equal(t, StageAlign, ak.Stage())
	assert.Equal(t, StageComposite, ck.Stage())
	assert.NotEqual(t, fk, ak)
	assert.NotEqual(t, ak, ck)

	orb := cfg
	orb.Detector = config.DetectorORB
	assert.NotEqual(t, CompositeKey("abc", cfg), CompositeKey("abc", orb))

	ratio := cfg
	ratio.RatioThreshold = 0.8
	assert.Equal(t, FeaturesKey("abc", cfg), FeaturesKey("abc", ratio))
	assert.NotEqual(t, AlignKey("abc", "base", cfg), AlignKey("abc", "base", ratio))
	assert.Equal(t, CompositeKey("abc", cfg), CompositeKey("abc", ratio))

	// ORB knobs only matter for ORB
	edge := cfg
	edge.EdgeThreshold = 15
	assert.Equal(t, FeaturesKey("abc", cfg), FeaturesKey("abc", edge))
}
