package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"photocarve/internal/prefs"
)

// Persisted setting names and defaults.
var (
	KeyDetector      = prefs.Key[string]{Name: "detector", Default: DetectorAKAZE.String()}
	KeyWidthLimit    = prefs.Key[int]{Name: "width_limit", Default: DefaultWidthLimit}
	KeyMaxFeatures   = prefs.Key[int]{Name: "max_features", Default: DefaultMaxFeatures}
	KeyEdgeThreshold = prefs.Key[int]{Name: "edge_threshold", Default: DefaultEdgeThreshold}
	KeyRatio         = prefs.Key[float64]{Name: "ratio", Default: DefaultRatioThreshold}
	KeySegmentation  = prefs.Key[string]{Name: "segmentation", Default: SegmentWatershed.String()}
	KeyAlignment     = prefs.Key[bool]{Name: "alignment_enabled", Default: true}
	KeyBrushRadius   = prefs.Key[float64]{Name: "brush_radius", Default: DefaultBrushRadius}
)

// Environment overrides, applied after persisted settings.
const (
	EnvDetector      = "PHOTOCARVE_DETECTOR"
	EnvWidthLimit    = "PHOTOCARVE_WIDTH_LIMIT"
	EnvMaxFeatures   = "PHOTOCARVE_MAX_FEATURES"
	EnvEdgeThreshold = "PHOTOCARVE_EDGE_THRESHOLD"
	EnvRatio         = "PHOTOCARVE_RATIO"
	EnvAlignment     = "PHOTOCARVE_ALIGN"
	EnvBrushRadius   = "PHOTOCARVE_BRUSH_RADIUS"
)

// FromPrefs builds a Config from persisted settings. Unparseable enum names
// are reported as configuration errors.
func FromPrefs(p *prefs.Prefs) (Config, error) {
	cfg := Default()

	det, err := ParseDetector(prefs.Get(p, KeyDetector))
	if err != nil {
		return cfg, err
	}
	seg, err := ParseSegmentation(prefs.Get(p, KeySegmentation))
	if err != nil {
		return cfg, err
	}

	cfg.Detector = det
	cfg.Segmentation = seg
	cfg.WidthLimit = prefs.Get(p, KeyWidthLimit)
	cfg.MaxFeatures = prefs.Get(p, KeyMaxFeatures)
	cfg.EdgeThreshold = prefs.Get(p, KeyEdgeThreshold)
	cfg.RatioThreshold = prefs.Get(p, KeyRatio)
	cfg.AlignmentEnabled = prefs.Get(p, KeyAlignment)
	cfg.BrushRadius = prefs.Get(p, KeyBrushRadius)
	return cfg, nil
}

// ApplyEnv loads .env (missing file is ignored) and overlays any
// PHOTOCARVE_* variables onto cfg.
func ApplyEnv(cfg Config) (Config, error) {
	_ = godotenv.Load()

	if v, ok := os.LookupEnv(EnvDetector); ok {
		det, err := ParseDetector(v)
		if err != nil {
			return cfg, err
		}
		cfg.Detector = det
	}
	if err := envInt(EnvWidthLimit, "width_limit", &cfg.WidthLimit); err != nil {
		return cfg, err
	}
	if err := envInt(EnvMaxFeatures, "max_features", &cfg.MaxFeatures); err != nil {
		return cfg, err
	}
	if err := envInt(EnvEdgeThreshold, "edge_threshold", &cfg.EdgeThreshold); err != nil {
		return cfg, err
	}
	if err := envFloat(EnvRatio, "ratio", &cfg.RatioThreshold); err != nil {
		return cfg, err
	}
	if err := envFloat(EnvBrushRadius, "brush_radius", &cfg.BrushRadius); err != nil {
		return cfg, err
	}
	if v, ok := os.LookupEnv(EnvAlignment); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, &Error{Field: "alignment_enabled", Value: v, Reason: "not a boolean"}
		}
		cfg.AlignmentEnabled = b
	}
	return cfg, nil
}

func envInt(name, field string, dst *int) error {
	v, ok := os.LookupEnv(name)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return &Error{Field: field, Value: v, Reason: "not an integer"}
	}
	*dst = n
	return nil
}

func envFloat(name, field string, dst *float64) error {
	v, ok := os.LookupEnv(name)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return &Error{Field: field, Value: v, Reason: "not a number"}
	}
	*dst = f
	return nil
}

// Save persists cfg into p.
func Save(p *prefs.Prefs, cfg Config) error {
	steps := []func() error{
		func() error { return prefs.Set(p, KeyDetector, cfg.Detector.String()) },
		func() error { return prefs.Set(p, KeyWidthLimit, cfg.WidthLimit) },
		func() error { return prefs.Set(p, KeyMaxFeatures, cfg.MaxFeatures) },
		func() error { return prefs.Set(p, KeyEdgeThreshold, cfg.EdgeThreshold) },
		func() error { return prefs.Set(p, KeyRatio, cfg.RatioThreshold) },
		func() error { return prefs.Set(p, KeySegmentation, cfg.Segmentation.String()) },
		func() error { return prefs.Set(p, KeyAlignment, cfg.AlignmentEnabled) },
		func() error { return prefs.Set(p, KeyBrushRadius, cfg.BrushRadius) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
