// Package features turns images into keypoints and binary descriptors on a
// downscaled grayscale detection frame.
package features

import (
	"fmt"

	"photocarve/pkg/geometry"
)

// KeyPoint is a detected keypoint in detection-frame coordinates.
type KeyPoint struct {
	X, Y     float64
	Size     float64
	Angle    float64
	Response float64
	Octave   int
}

// Point returns the keypoint position.
func (k KeyPoint) Point() geometry.Point2D {
	return geometry.Point2D{X: k.X, Y: k.Y}
}

// Descriptors is a row-major descriptor matrix of packed bits, one row per
// keypoint.
type Descriptors struct {
	Rows int
	Cols int // bytes per row
	Data []byte
}

// Row returns descriptor i.
func (d Descriptors) Row(i int) []byte {
	return d.Data[i*d.Cols : (i+1)*d.Cols]
}

// Set is the feature set of one image.
type Set struct {
	KeyPoints   []KeyPoint
	Descriptors Descriptors
	Frame       FrameInfo
}

// Len returns the number of keypoints.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.KeyPoints)
}

// Validate checks the keypoint/descriptor invariant.
func (s *Set) Validate() error {
	if len(s.KeyPoints) != s.Descriptors.Rows {
		return fmt.Errorf("%d keypoints but %d descriptor rows", len(s.KeyPoints), s.Descriptors.Rows)
	}
	if len(s.Descriptors.Data) != s.Descriptors.Rows*s.Descriptors.Cols {
		return fmt.Errorf("descriptor buffer holds %d bytes, want %d", len(s.Descriptors.Data), s.Descriptors.Rows*s.Descriptors.Cols)
	}
	return nil
}
