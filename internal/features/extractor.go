package features

import (
	"fmt"
	"image"

	"photocarve/internal/config"
	"photocarve/internal/native"
)

// Params are the configuration fields read by feature extraction.
type Params struct {
	Detector      config.DetectorType
	WidthLimit    int
	MaxFeatures   int
	EdgeThreshold int
}

// ParamsFrom selects the extraction fields of cfg.
func ParamsFrom(cfg config.Config) Params {
	return Params{
		Detector:      cfg.Detector,
		WidthLimit:    cfg.WidthLimit,
		MaxFeatures:   cfg.MaxFeatures,
		EdgeThreshold: cfg.EdgeThreshold,
	}
}

// Validate range-checks the parameters before they reach the detector.
func (p Params) Validate() error {
	cfg := config.Default()
	cfg.Detector = p.Detector
	cfg.WidthLimit = p.WidthLimit
	cfg.MaxFeatures = p.MaxFeatures
	cfg.EdgeThreshold = p.EdgeThreshold
	return cfg.ValidateDetector()
}

// Extractor produces the feature set of an image.
type Extractor interface {
	Extract(src image.Image, p Params) (*Set, error)
}

// NativeExtractor runs the OpenCV detectors. Without the gocv build tag every
// call fails with native.ErrUnavailable.
type NativeExtractor struct{}

// NewExtractor returns the OpenCV-backed extractor.
func NewExtractor() NativeExtractor {
	return NativeExtractor{}
}

// Extract downscales src to a detection frame and runs the selected detector.
func (NativeExtractor) Extract(src image.Image, p Params) (*Set, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if src == nil || src.Bounds().Empty() {
		return nil, native.New("extract features", native.CodeDecode, fmt.Errorf("empty image"))
	}

	frame := NewFrame(src, p.WidthLimit)

	var set *Set
	err := native.Guard("extract features", native.CodeDetect, func() error {
		kps, desc, err := detect(frame, p)
		if err != nil {
			return err
		}
		set = &Set{KeyPoints: kps, Descriptors: desc, Frame: frame.Info}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := set.Validate(); err != nil {
		return nil, native.New("extract features", native.CodeDescriptor, err)
	}
	return set, nil
}
