package pipeline

import (
	"image"

	photoimage "photocarve/internal/image"
	"photocarve/internal/render"
)

// RenderInputs assembles what the renderer needs for every image, or only
// for image selected when it is not negative.
func (p *Pipeline) RenderInputs(selected int) []render.Input {
	layers := p.store.Layers()
	if len(layers) == 0 {
		return nil
	}

	base := layers[0]
	baseFrame, _ := p.proj.FrameAt(0)
	baseDet := image.Pt(int(float64(baseFrame.NativeW)*baseFrame.Scale), int(float64(baseFrame.NativeH)*baseFrame.Scale))
	if rec, ok := p.records[0]; ok && rec.features != nil {
		baseDet = image.Pt(rec.features.Frame.Width, rec.features.Frame.Height)
	}

	var inputs []render.Input
	for i, l := range layers {
		if selected >= 0 && i != selected {
			continue
		}
		in := render.Input{
			Index:                 i,
			Image:                 l.Image,
			BaselineDetectionSize: baseDet,
			BaselineSize:          image.Pt(base.Width(), base.Height()),
			Color:                 photoimage.Color(l, i),
		}
		if h, ok := p.proj.Get(i); ok {
			in.Projection, in.Projected = h, true
		}
		if rec, ok := p.records[i]; ok {
			if rec.features != nil {
				in.DetectionSize = image.Pt(rec.features.Frame.Width, rec.features.Frame.Height)
			}
			in.Composite = rec.composite
			if rec.mask != nil && !rec.mask.Empty() {
				in.Mask = rec.mask.Tint(in.Color)
			}
		}
		inputs = append(inputs, in)
	}
	return inputs
}
