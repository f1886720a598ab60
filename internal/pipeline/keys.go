package pipeline

import (
	"strings"

	"photocarve/internal/config"
)

// Stage names one cached pipeline stage. Every key starts with its stage so
// the three key spaces never overlap.
type Stage string

const (
	StageFeatures  Stage = "features"
	StageAlign     Stage = "align"
	StageComposite Stage = "composite"
)

// Key fingerprints the inputs of one stage for one image. The zero Key never
// matches a computed key, so clearing a key forces recomputation.
type Key string

func makeKey(stage Stage, parts ...string) Key {
	return Key(string(stage) + "|" + strings.Join(parts, "|"))
}

// FeaturesKey covers the image and the detector fields.
func FeaturesKey(imageID string, cfg config.Config) Key {
	return makeKey(StageFeatures, imageID, cfg.DetectorFields())
}

// AlignKey covers the image, the baseline it is aligned onto, the detector
// fields, the alignment toggle and the ratio threshold.
func AlignKey(imageID, baselineID string, cfg config.Config) Key {
	return makeKey(StageAlign, imageID, baselineID, cfg.AlignmentFields())
}

// CompositeKey covers the image, the segmentation algorithm and the detector.
// Mask edits invalidate it by clearing the stored key.
func CompositeKey(imageID string, cfg config.Config) Key {
	return makeKey(StageComposite, imageID, cfg.CompositeFields())
}

// Stage returns the stage prefix of k.
func (k Key) Stage() Stage {
	s, _, _ := strings.Cut(string(k), "|")
	return Stage(s)
}

// Keys are the three stored keys of an image.
type Keys struct {
	Features  Key
	Align     Key
	Composite Key
}
