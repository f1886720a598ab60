package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New("info", "json", &buf)
	log.Debug("hidden")
	log.Info("shown", "image", 2)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"image":2`)
}

func TestTintFormat(t *testing.T) {
	var buf bytes.Buffer
	New("debug", "text", &buf).Debug("pass complete")
	assert.Contains(t, buf.String(), "pass complete")
}
