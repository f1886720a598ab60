// Package render is the boundary to whatever draws the aligned images. The
// core hands over per-image textures and projections; Software is a CPU
// implementation used by the command line tools.
package render

import (
	"fmt"
	"image"
	"image/color"

	"photocarve/pkg/geometry"
)

// Input is everything a renderer needs to draw one image.
type Input struct {
	Index     int
	Image     *image.NRGBA // native colour texture
	Mask      *image.NRGBA // paint overlay, optional
	Composite *image.NRGBA // carved result, optional

	// Projection maps detection-frame pixels of this image onto baseline
	// detection-frame pixels, row-major. Projected is false when no
	// projection is stored and the image is shown unwarped.
	Projection geometry.Homography
	Projected  bool

	DetectionSize         image.Point
	BaselineDetectionSize image.Point
	BaselineSize          image.Point // baseline native size
	Color                 color.RGBA
}

// Uniform returns the projection in the column-major float layout used by
// GL mat3 uniforms.
func (in Input) Uniform() [9]float32 {
	if !in.Projected {
		return geometry.IdentityHomography().ColumnMajor()
	}
	return in.Projection.ColumnMajor()
}

// Renderer draws a set of inputs onto a canvas of the given size.
type Renderer interface {
	Render(inputs []Input, canvas image.Point) (*image.RGBA, error)
}

// SurfaceError reports an invalid render state. It is a programming error,
// not something the user can fix.
type SurfaceError struct {
	Index  int
	Reason string
}

func (e *SurfaceError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("render surface: %s", e.Reason)
	}
	return fmt.Sprintf("render surface: image %d: %s", e.Index, e.Reason)
}

func validate(in Input) error {
	if in.Image == nil || in.Image.Bounds().Empty() {
		return &SurfaceError{Index: in.Index, Reason: "missing image texture"}
	}
	size := in.Image.Bounds().Size()
	if in.Mask != nil && in.Mask.Bounds().Size() != size {
		return &SurfaceError{Index: in.Index, Reason: fmt.Sprintf("mask %v does not match image %v", in.Mask.Bounds().Size(), size)}
	}
	if in.Composite != nil && in.Composite.Bounds().Size() != size {
		return &SurfaceError{Index: in.Index, Reason: fmt.Sprintf("composite %v does not match image %v", in.Composite.Bounds().Size(), size)}
	}
	if in.BaselineSize.X <= 0 || in.BaselineSize.Y <= 0 {
		return &SurfaceError{Index: in.Index, Reason: "unknown baseline size"}
	}
	if in.Projected && (in.DetectionSize.X <= 0 || in.BaselineDetectionSize.X <= 0) {
		return &SurfaceError{Index: in.Index, Reason: "projection without detection sizes"}
	}
	return nil
}

// imageToBaseline returns the native image to baseline native transform.
func imageToBaseline(in Input) geometry.Homography {
	size := in.Image.Bounds().Size()
	if !in.Projected {
		return geometry.ScaleHomography(
			float64(in.BaselineSize.X)/float64(size.X),
			float64(in.BaselineSize.Y)/float64(size.Y),
		)
	}
	si := float64(in.DetectionSize.X) / float64(size.X)
	s0 := float64(in.BaselineDetectionSize.X) / float64(in.BaselineSize.X)
	return in.Projection.Rescaled(si, s0)
}
