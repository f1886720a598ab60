// Package config holds the explicit configuration value read by every
// pipeline stage, along with its defaults and validation.
package config

import (
	"fmt"
	"strings"
)

// DetectorType selects the keypoint detector.
type DetectorType int

const (
	DetectorAKAZE DetectorType = iota // binary descriptor, no count knob
	DetectorORB                       // bounded feature count, tunable edge threshold
)

func (d DetectorType) String() string {
	switch d {
	case DetectorAKAZE:
		return "akaze"
	case DetectorORB:
		return "orb"
	default:
		return fmt.Sprintf("detector(%d)", int(d))
	}
}

// ParseDetector converts a detector name to a DetectorType.
func ParseDetector(name string) (DetectorType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "akaze", "":
		return DetectorAKAZE, nil
	case "orb":
		return DetectorORB, nil
	}
	return 0, &Error{Field: "detector", Value: name, Reason: "unknown detector"}
}

// SegmentationAlgorithm selects how paint hints are turned into segments.
type SegmentationAlgorithm int

const (
	SegmentWatershed SegmentationAlgorithm = iota
)

func (s SegmentationAlgorithm) String() string {
	switch s {
	case SegmentWatershed:
		return "watershed"
	default:
		return fmt.Sprintf("segmentation(%d)", int(s))
	}
}

// ParseSegmentation converts an algorithm name to a SegmentationAlgorithm.
func ParseSegmentation(name string) (SegmentationAlgorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "watershed", "":
		return SegmentWatershed, nil
	}
	return 0, &Error{Field: "segmentation", Value: name, Reason: "unknown segmentation algorithm"}
}

// Defaults.
const (
	DefaultWidthLimit     = 800
	DefaultMaxFeatures    = 200
	DefaultEdgeThreshold  = 31
	DefaultRatioThreshold = 0.7
	DefaultBrushRadius    = 2.0
)

// Config is passed by value into each orchestration call.
type Config struct {
	Detector         DetectorType
	WidthLimit       int     // detection frame width cap in pixels
	MaxFeatures      int     // ORB only
	EdgeThreshold    int     // ORB only
	RatioThreshold   float64 // nearest/second-nearest ratio test
	Segmentation     SegmentationAlgorithm
	AlignmentEnabled bool
	BrushRadius      float64 // paint stroke radius in image-native pixels
}

// Default returns the documented defaults.
func Default() Config {
	return Config{
		Detector:         DetectorAKAZE,
		WidthLimit:       DefaultWidthLimit,
		MaxFeatures:      DefaultMaxFeatures,
		EdgeThreshold:    DefaultEdgeThreshold,
		RatioThreshold:   DefaultRatioThreshold,
		Segmentation:     SegmentWatershed,
		AlignmentEnabled: true,
		BrushRadius:      DefaultBrushRadius,
	}
}

// Error is a configuration value rejected before it reaches the vision library.
type Error struct {
	Field  string
	Value  any
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid configuration %s=%v: %s", e.Field, e.Value, e.Reason)
}

// Validate range-checks every field.
func (c Config) Validate() error {
	if err := c.ValidateDetector(); err != nil {
		return err
	}
	if !(c.RatioThreshold > 0 && c.RatioThreshold <= 1) {
		return &Error{Field: "ratio", Value: c.RatioThreshold, Reason: "must be in (0, 1]"}
	}
	if c.Segmentation != SegmentWatershed {
		return &Error{Field: "segmentation", Value: c.Segmentation, Reason: "unknown segmentation algorithm"}
	}
	return ValidateBrushRadius(c.BrushRadius)
}

// ValidateBrushRadius checks a paint stroke radius in image pixels.
func ValidateBrushRadius(r float64) error {
	if !(r > 0 && r <= 512) {
		return &Error{Field: "brush_radius", Value: r, Reason: "must be in (0, 512]"}
	}
	return nil
}

// ValidateDetector checks only the fields forwarded to the detector.
func (c Config) ValidateDetector() error {
	switch c.Detector {
	case DetectorAKAZE, DetectorORB:
	default:
		return &Error{Field: "detector", Value: c.Detector, Reason: "unknown detector"}
	}
	if c.WidthLimit < 16 || c.WidthLimit > 16384 {
		return &Error{Field: "width_limit", Value: c.WidthLimit, Reason: "must be in [16, 16384]"}
	}
	if c.MaxFeatures < 1 || c.MaxFeatures > 100000 {
		return &Error{Field: "max_features", Value: c.MaxFeatures, Reason: "must be in [1, 100000]"}
	}
	// also the ORB patch size, which OpenCV requires to be at least 2
	if c.EdgeThreshold < 2 || c.EdgeThreshold > 255 {
		return &Error{Field: "edge_threshold", Value: c.EdgeThreshold, Reason: "must be in [2, 255]"}
	}
	return nil
}

// DetectorFields is the subset of configuration read by feature extraction.
// The ORB knobs only take part when ORB is selected.
func (c Config) DetectorFields() string {
	if c.Detector == DetectorORB {
		return fmt.Sprintf("%s/w%d/n%d/e%d", c.Detector, c.WidthLimit, c.MaxFeatures, c.EdgeThreshold)
	}
	return fmt.Sprintf("%s/w%d", c.Detector, c.WidthLimit)
}

// AlignmentFields is the subset of configuration read by alignment.
func (c Config) AlignmentFields() string {
	return fmt.Sprintf("%s/align=%t/r%g", c.DetectorFields(), c.AlignmentEnabled, c.RatioThreshold)
}

// CompositeFields is the subset of configuration read by compositing.
func (c Config) CompositeFields() string {
	return fmt.Sprintf("%s/%s", c.Segmentation, c.Detector)
}
