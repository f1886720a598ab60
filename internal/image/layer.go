// Package image provides image loading and the ordered image store read by
// the alignment pipeline.
package image

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Layer is one loaded photograph. It is immutable once created.
type Layer struct {
	Name  string       // Display name (file base name)
	Path  string       // Original file path, empty for in-memory images
	ID    string       // Content fingerprint
	Image *image.NRGBA // Native-resolution pixels
}

// Load reads and decodes an image file.
func Load(path string) (*Layer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", filepath.Base(path), err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("image %s has no pixels", filepath.Base(path))
	}

	return &Layer{
		Name:  filepath.Base(path),
		Path:  path,
		ID:    fingerprint(data),
		Image: toNRGBA(img),
	}, nil
}

// FromImage wraps an already decoded image. The identity is derived from the
// pixel data.
func FromImage(name string, img image.Image) *Layer {
	n := toNRGBA(img)
	h := sha256.New()
	fmt.Fprintf(h, "%dx%d:", n.Rect.Dx(), n.Rect.Dy())
	h.Write(n.Pix)
	return &Layer{
		Name:  name,
		ID:    hex.EncodeToString(h.Sum(nil)[:16]),
		Image: n,
	}
}

// Width returns the image width in pixels.
func (l *Layer) Width() int {
	if l.Image == nil {
		return 0
	}
	return l.Image.Bounds().Dx()
}

// Height returns the image height in pixels.
func (l *Layer) Height() int {
	if l.Image == nil {
		return 0
	}
	return l.Image.Bounds().Dy()
}

func fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:16])
}

// toNRGBA copies img into a zero-origin NRGBA buffer.
func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) {
		return n
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// SupportedFormats returns the list of supported image formats.
func SupportedFormats() []string {
	return []string{".tiff", ".tif", ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}
