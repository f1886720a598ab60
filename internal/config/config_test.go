package config

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photocarve/internal/prefs"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DetectorAKAZE, cfg.Detector)
	assert.Equal(t, 800, cfg.WidthLimit)
	assert.Equal(t, 200, cfg.MaxFeatures)
	assert.Equal(t, 31, cfg.EdgeThreshold)
	assert.Equal(t, 0.7, cfg.RatioThreshold)
	assert.True(t, cfg.AlignmentEnabled)
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	cases := map[string]func(*Config){
		"max_features":   func(c *Config) { c.MaxFeatures = -1 },
		"width_limit":    func(c *Config) { c.WidthLimit = 0 },
		"edge_threshold": func(c *Config) { c.EdgeThreshold = 1 },
		"ratio":          func(c *Config) { c.RatioThreshold = 1.5 },
		"detector":       func(c *Config) { c.Detector = DetectorType(9) },
		"brush_radius":   func(c *Config) { c.BrushRadius = 0 },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			err := cfg.Validate()
			var cfgErr *Error
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, field, cfgErr.Field)
		})
	}
}

func TestEdgeThresholdLowerBound(t *testing.T) {
	cfg := Default()
	cfg.Detector = DetectorORB
	cfg.EdgeThreshold = 2
	assert.NoError(t, cfg.ValidateDetector())
	cfg.EdgeThreshold = 1
	assert.Error(t, cfg.ValidateDetector())
}

func TestValidateBrushRadius(t *testing.T) {
	assert.NoError(t, ValidateBrushRadius(0.5))
	assert.NoError(t, ValidateBrushRadius(512))
	for _, r := range []float64{0, -2, 513} {
		var cfgErr *Error
		require.True(t, errors.As(ValidateBrushRadius(r), &cfgErr), "radius %v", r)
		assert.Equal(t, "brush_radius", cfgErr.Field)
	}
}

func TestDetectorFieldsIgnoreORBKnobsForAKAZE(t *testing.T) {
	a := Default()
	b := Default()
	b.MaxFeatures = 500
	assert.Equal(t, a.DetectorFields(), b.DetectorFields())

	a.Detector, b.Detector = DetectorORB, DetectorORB
	assert.NotEqual(t, a.DetectorFields(), b.DetectorFields())
}

func TestStageFieldsDiffer(t *testing.T) {
	cfg := Default()
	aligned := cfg.AlignmentFields()
	cfg.AlignmentEnabled = false
	assert.NotEqual(t, aligned, cfg.AlignmentFields())
	assert.Equal(t, "watershed/akaze", cfg.CompositeFields())
}

func TestPrefsRoundTrip(t *testing.T) {
	p, err := prefs.Open(filepath.Join(t.TempDir(), "preferences.json"))
	require.NoError(t, err)

	cfg := Default()
	cfg.Detector = DetectorORB
	cfg.MaxFeatures = 350
	cfg.AlignmentEnabled = false
	require.NoError(t, Save(p, cfg))

	got, err := FromPrefs(p)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv(EnvDetector, "orb")
	t.Setenv(EnvRatio, "0.65")
	t.Setenv(EnvAlignment, "false")

	cfg, err := ApplyEnv(Default())
	require.NoError(t, err)
	assert.Equal(t, DetectorORB, cfg.Detector)
	assert.Equal(t, 0.65, cfg.RatioThreshold)
	assert.False(t, cfg.AlignmentEnabled)
}

func TestApplyEnvRejectsGarbage(t *testing.T) {
	t.Setenv(EnvWidthLimit, "wide")
	_, err := ApplyEnv(Default())
	var cfgErr *Error
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "width_limit", cfgErr.Field)
}
