package pipeline

import (
	"fmt"

	"photocarve/internal/config"
	photoimage "photocarve/internal/image"
	"photocarve/internal/paint"
	"photocarve/internal/projection"
	"photocarve/pkg/geometry"
)

// Stroke is one pointer drag in canvas coordinates.
type Stroke struct {
	Image      int
	From       geometry.Point2D
	To         geometry.Point2D
	Background bool
	Erase      bool
}

func (p *Pipeline) paintable(i int) (*photoimage.Layer, *record, error) {
	if i == 0 {
		return nil, nil, ErrBaselineMask
	}
	l := p.store.At(i)
	if l == nil {
		return nil, nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	rec, ok := p.records[i]
	if !ok || rec.id != l.ID {
		rec = &record{id: l.ID}
		p.records[i] = rec
	}
	return l, rec, nil
}

// PaintStroke maps a canvas drag through the inverse projection of image i
// and rasterises it into that image's mask. Only the composite key of image
// i is dropped.
func (p *Pipeline) PaintStroke(s Stroke, canvas projection.Canvas, cfg config.Config) error {
	p.syncRecords(p.store.Layers(), cfg)
	l, rec, err := p.paintable(s.Image)
	if err != nil {
		return err
	}

	from, ok := p.proj.ScreenToImage(s.Image, s.From, canvas)
	if !ok {
		return fmt.Errorf("paint image %d: stroke start %v does not map into the image", s.Image, s.From)
	}
	to, ok := p.proj.ScreenToImage(s.Image, s.To, canvas)
	if !ok {
		return fmt.Errorf("paint image %d: stroke end %v does not map into the image", s.Image, s.To)
	}

	return p.paintImage(s.Image, l, rec, from, to, s.Background, s.Erase, cfg.BrushRadius)
}

// PaintImageStroke paints a stroke given in image-native coordinates.
func (p *Pipeline) PaintImageStroke(i int, from, to geometry.Point2D, background, erase bool, radius float64) error {
	l, rec, err := p.paintable(i)
	if err != nil {
		return err
	}
	return p.paintImage(i, l, rec, from, to, background, erase, radius)
}

func (p *Pipeline) paintImage(i int, l *photoimage.Layer, rec *record, from, to geometry.Point2D, background, erase bool, radius float64) error {
	if err := config.ValidateBrushRadius(radius); err != nil {
		return err
	}
	if rec.mask == nil || !rec.mask.Matches(l.Width(), l.Height()) {
		rec.mask = paint.New(l.Width(), l.Height())
	}
	ch := paint.Foreground
	if background {
		ch = paint.Background
	}
	if !rec.mask.Stroke(from, to, radius, ch, erase) {
		return nil
	}
	rec.keys.Composite = ""
	p.log.Debug("mask painted", "image", i, "channel", ch, "erase", erase)
	p.Emit(EventMaskChanged, i)
	return nil
}

// ClearMask empties one channel of the mask of image i.
func (p *Pipeline) ClearMask(i int, ch paint.Channel) error {
	_, rec, err := p.paintable(i)
	if err != nil {
		return err
	}
	if rec.mask == nil {
		return nil
	}
	rec.mask.Clear(ch)
	rec.keys.Composite = ""
	p.Emit(EventMaskChanged, i)
	return nil
}
