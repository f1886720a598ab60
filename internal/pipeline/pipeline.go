// Package pipeline decides, per image and per stage, what has to be
// recomputed after images, configuration or paint hints change, and keeps
// the results: feature sets, projections and carved composites.
package pipeline

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"photocarve/internal/alignment"
	"photocarve/internal/config"
	"photocarve/internal/features"
	photoimage "photocarve/internal/image"
	"photocarve/internal/paint"
	"photocarve/internal/projection"
	"photocarve/internal/segment"
)

var (
	// ErrBaselineMask is returned when painting on image 0.
	ErrBaselineMask = errors.New("the baseline image has no paint mask")
	// ErrIndexOutOfRange is returned for an image index that is not loaded.
	ErrIndexOutOfRange = errors.New("image index out of range")
)

// record is the cached state of one image.
type record struct {
	id        string
	features  *features.Set
	keys      Keys
	alignment *alignment.Result
	alignErr  error
	mask      *paint.Mask
	composite *image.NRGBA
}

func (r *record) clone() *record {
	c := *r
	c.mask = r.mask.Clone()
	return &c
}

// Report lists what one pass recomputed.
type Report struct {
	Extracted  []int
	Aligned    []int
	Composited []int
	Failures   []*alignment.Failure
}

// Recomputed returns the number of stage runs in the pass.
func (r *Report) Recomputed() int {
	return len(r.Extracted) + len(r.Aligned) + len(r.Composited) + len(r.Failures)
}

// Pipeline owns the per-image records. It is driven from one goroutine; the
// Worker runs passes on snapshots instead of sharing it.
type Pipeline struct {
	store     *photoimage.Store
	extractor features.Extractor
	proj      *projection.Model
	records   map[int]*record
	log       *slog.Logger

	mu        sync.Mutex
	listeners map[EventType][]EventListener
	detached  bool
	pending   []pendingEvent
}

// New creates a pipeline over store. A nil logger uses slog.Default().
func New(store *photoimage.Store, extractor features.Extractor, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		store:     store,
		extractor: extractor,
		proj:      projection.NewModel(),
		records:   make(map[int]*record),
		log:       log,
		listeners: make(map[EventType][]EventListener),
	}
}

// Store returns the image store.
func (p *Pipeline) Store() *photoimage.Store { return p.store }

// Projection returns the projection model.
func (p *Pipeline) Projection() *projection.Model { return p.proj }

// syncRecords matches records to the current store contents. A record whose
// image identity changed starts over.
func (p *Pipeline) syncRecords(layers []*photoimage.Layer, cfg config.Config) {
	for i := range p.records {
		if i >= len(layers) {
			delete(p.records, i)
			p.proj.Clear(i)
		}
	}
	for i, l := range layers {
		rec, ok := p.records[i]
		if !ok || rec.id != l.ID {
			rec = &record{id: l.ID}
			p.records[i] = rec
			p.proj.Clear(i)
		}
		if rec.mask != nil && !rec.mask.Matches(l.Width(), l.Height()) {
			p.log.Warn("discarding paint mask of wrong size", "image", i)
			rec.mask = nil
			rec.keys.Composite = ""
		}
		info := features.NewFrameInfo(l.Width(), l.Height(), cfg.WidthLimit)
		if rec.features != nil {
			info = rec.features.Frame
		}
		p.proj.SetFrame(i, projection.FrameOf(info))
	}
}

// UpdateImages runs one orchestration pass: features for every image, then
// alignment of every image onto the baseline, then composites. A stage runs
// only when its key is stale, and its key is stored only after it succeeds.
// Alignment failures are reported and do not stop the pass; any other error
// aborts it, keeping the work already done.
func (p *Pipeline) UpdateImages(cfg config.Config) (*Report, error) {
	report := &Report{}
	if err := cfg.Validate(); err != nil {
		return report, err
	}

	layers := p.store.Layers()
	p.syncRecords(layers, cfg)
	if len(layers) == 0 {
		return report, nil
	}

	for i, l := range layers {
		if err := p.updateFeatures(i, l, cfg, report); err != nil {
			return report, err
		}
	}

	base := p.records[0]
	for i := 1; i < len(layers); i++ {
		if err := p.updateAlignment(i, layers[i], layers[0], base, cfg, report); err != nil {
			return report, err
		}
	}

	for i := 1; i < len(layers); i++ {
		if err := p.updateComposite(i, layers[i], cfg, report); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (p *Pipeline) updateFeatures(i int, l *photoimage.Layer, cfg config.Config, report *Report) error {
	rec := p.records[i]
	key := FeaturesKey(l.ID, cfg)
	if rec.keys.Features == key {
		p.log.Debug("features cached", "image", i)
		return nil
	}

	start := time.Now()
	set, err := p.extractor.Extract(l.Image, features.ParamsFrom(cfg))
	if err != nil {
		return fmt.Errorf("extract features of image %d: %w", i, err)
	}

	rec.features = set
	rec.keys.Features = key
	p.proj.SetFrame(i, projection.FrameOf(set.Frame))
	report.Extracted = append(report.Extracted, i)

	p.log.Info("features extracted", "image", i, "keypoints", set.Len(), "detector", cfg.Detector, "took", time.Since(start))
	p.Emit(EventFeaturesExtracted, i)
	return nil
}

func (p *Pipeline) updateAlignment(i int, l, baseLayer *photoimage.Layer, base *record, cfg config.Config, report *Report) error {
	rec := p.records[i]
	key := AlignKey(l.ID, baseLayer.ID, cfg)
	if rec.keys.Align == key {
		p.log.Debug("alignment cached", "image", i)
		return nil
	}

	if !cfg.AlignmentEnabled {
		p.proj.Clear(i)
		rec.alignment, rec.alignErr = nil, nil
		rec.keys.Align = key
		return nil
	}

	start := time.Now()
	res, err := alignment.Align(base.features, rec.features, i, alignment.DefaultOptions(cfg.RatioThreshold))
	var failure *alignment.Failure
	switch {
	case errors.As(err, &failure):
		p.proj.Clear(i)
		rec.alignment, rec.alignErr = nil, failure
		// inputs are unchanged, a retry would fail the same way
		rec.keys.Align = key
		report.Failures = append(report.Failures, failure)
		p.log.Warn("could not align image onto baseline automatically", "image", i, "reason", failure.Reason)
		p.Emit(EventAlignmentFailed, failure)
		return nil
	case err != nil:
		return fmt.Errorf("align image %d: %w", i, err)
	}

	p.proj.Set(i, res.Homography)
	rec.alignment, rec.alignErr = res, nil
	rec.keys.Align = key
	report.Aligned = append(report.Aligned, i)

	p.log.Info("image aligned", "image", i, "matches", res.Matches, "inliers", res.Inliers,
		"error", res.Error, "took", time.Since(start))
	p.Emit(EventAlignmentComplete, i)
	return nil
}

func (p *Pipeline) updateComposite(i int, l *photoimage.Layer, cfg config.Config, report *Report) error {
	rec := p.records[i]
	key := CompositeKey(l.ID, cfg)
	if rec.keys.Composite == key {
		p.log.Debug("composite cached", "image", i)
		return nil
	}

	start := time.Now()
	res, err := segment.Run(l.Image, rec.mask, cfg.Segmentation)
	if err != nil {
		return fmt.Errorf("composite image %d: %w", i, err)
	}

	rec.composite = nil
	if res != nil {
		rec.composite = res.Composite
	}
	rec.keys.Composite = key
	report.Composited = append(report.Composited, i)

	p.log.Info("composite updated", "image", i, "carved", res != nil, "took", time.Since(start))
	p.Emit(EventCompositeReady, i)
	return nil
}

// RemoveImage removes image i from the store. Later records shift down.
func (p *Pipeline) RemoveImage(i int) error {
	if err := p.store.Remove(i); err != nil {
		return fmt.Errorf("%w: %v", ErrIndexOutOfRange, err)
	}

	shifted := make(map[int]*record, len(p.records))
	for j, rec := range p.records {
		switch {
		case j < i:
			shifted[j] = rec
		case j > i:
			shifted[j-1] = rec
		}
	}
	p.records = shifted
	p.proj.Shift(i)

	if base, ok := p.records[0]; ok && i == 0 {
		// the new baseline is never projected and has no mask
		p.proj.Clear(0)
		base.mask, base.composite = nil, nil
		base.alignment, base.alignErr = nil, nil
		base.keys.Align, base.keys.Composite = "", ""
	}
	p.Emit(EventImageRemoved, i)
	return nil
}

// Features returns the feature set of image i, or nil.
func (p *Pipeline) Features(i int) *features.Set {
	if rec, ok := p.records[i]; ok {
		return rec.features
	}
	return nil
}

// Composite returns the carved composite of image i, or nil.
func (p *Pipeline) Composite(i int) *image.NRGBA {
	if rec, ok := p.records[i]; ok {
		return rec.composite
	}
	return nil
}

// Mask returns the paint mask of image i, or nil.
func (p *Pipeline) Mask(i int) *paint.Mask {
	if rec, ok := p.records[i]; ok {
		return rec.mask
	}
	return nil
}

// Keys returns the stored stage keys of image i.
func (p *Pipeline) Keys(i int) Keys {
	if rec, ok := p.records[i]; ok {
		return rec.keys
	}
	return Keys{}
}

// Alignment returns the last alignment result of image i and, if the last
// attempt failed, its failure.
func (p *Pipeline) Alignment(i int) (*alignment.Result, error) {
	if rec, ok := p.records[i]; ok {
		return rec.alignment, rec.alignErr
	}
	return nil, nil
}
