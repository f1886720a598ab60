package segment

import (
	"fmt"
	"image"

	"photocarve/internal/config"
	"photocarve/internal/native"
	"photocarve/internal/paint"
)

// Result is a finished segmentation.
type Result struct {
	Composite  *image.NRGBA
	Markers    *Markers
	Components int
}

// Run segments src from the paint hints in mask. It returns a nil result and
// no error when the mask has no foreground seed, since there is nothing to
// carve.
func Run(src *image.NRGBA, mask *paint.Mask, alg config.SegmentationAlgorithm) (*Result, error) {
	if !mask.HasSeeds() {
		return nil, nil
	}
	b := src.Bounds()
	if !mask.Matches(b.Dx(), b.Dy()) {
		return nil, fmt.Errorf("mask %dx%d does not match image %v", mask.Width, mask.Height, b.Size())
	}
	if alg != config.SegmentWatershed {
		return nil, &config.Error{Field: "segmentation", Value: alg, Reason: "unknown segmentation algorithm"}
	}

	mk, n := BuildMarkers(mask)
	err := native.Guard("watershed", native.CodeWatershed, func() error {
		return watershed(src, mk)
	})
	if err != nil {
		return nil, err
	}

	comp, err := Carve(src, mk)
	if err != nil {
		return nil, err
	}
	return &Result{Composite: comp, Markers: mk, Components: n}, nil
}
