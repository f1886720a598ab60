// Package paint holds the per-image foreground/background hint raster that
// user strokes accumulate into.
package paint

import (
	"fmt"
	"image"
	"image/color"
)

// Channel selects one of the two mask planes.
type Channel int

const (
	Foreground Channel = iota
	Background
)

func (c Channel) String() string {
	if c == Background {
		return "background"
	}
	return "foreground"
}

// ParseChannel converts "fg"/"foreground" or "bg"/"background".
func ParseChannel(s string) (Channel, error) {
	switch s {
	case "fg", "foreground":
		return Foreground, nil
	case "bg", "background":
		return Background, nil
	}
	return 0, fmt.Errorf("unknown mask channel %q", s)
}

// ClaimThreshold is the coverage at which a pixel counts as painted.
const ClaimThreshold = 128

// Mask is a two-channel coverage raster in image-native resolution.
type Mask struct {
	Width    int
	Height   int
	FG       []uint8
	BG       []uint8
	Revision uint64 // bumped on every mutation
}

// New allocates an empty mask.
func New(w, h int) *Mask {
	return &Mask{
		Width:  w,
		Height: h,
		FG:     make([]uint8, w*h),
		BG:     make([]uint8, w*h),
	}
}

func (m *Mask) plane(c Channel) []uint8 {
	if c == Background {
		return m.BG
	}
	return m.FG
}

// Clear empties one channel.
func (m *Mask) Clear(c Channel) {
	clear(m.plane(c))
	m.Revision++
}

// Clone returns a deep copy.
func (m *Mask) Clone() *Mask {
	if m == nil {
		return nil
	}
	return &Mask{
		Width:    m.Width,
		Height:   m.Height,
		FG:       append([]uint8(nil), m.FG...),
		BG:       append([]uint8(nil), m.BG...),
		Revision: m.Revision,
	}
}

// Claimed reports whether pixel i (row-major) is painted in channel c.
func (m *Mask) Claimed(c Channel, i int) bool {
	return m.plane(c)[i] >= ClaimThreshold
}

// HasSeeds reports whether any pixel is claimed by the foreground.
func (m *Mask) HasSeeds() bool {
	if m == nil {
		return false
	}
	for _, v := range m.FG {
		if v >= ClaimThreshold {
			return true
		}
	}
	return false
}

// Empty reports whether neither channel has any coverage.
func (m *Mask) Empty() bool {
	for i := range m.FG {
		if m.FG[i] != 0 || m.BG[i] != 0 {
			return false
		}
	}
	return true
}

// Matches reports whether the mask fits an image of the given size.
func (m *Mask) Matches(w, h int) bool {
	return m != nil && m.Width == w && m.Height == h
}

// Texture packs the mask for display: R is foreground, G is background.
func (m *Mask) Texture() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, m.Width, m.Height))
	for i := range m.FG {
		img.Pix[i*4+0] = m.FG[i]
		img.Pix[i*4+1] = m.BG[i]
		img.Pix[i*4+3] = max(m.FG[i], m.BG[i])
	}
	return img
}

// Tint renders the mask as a translucent overlay in the given colour, with
// background strokes drawn darker.
func (m *Mask) Tint(c color.RGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, m.Width, m.Height))
	for i := range m.FG {
		o := i * 4
		switch {
		case m.FG[i] >= ClaimThreshold:
			img.Pix[o], img.Pix[o+1], img.Pix[o+2], img.Pix[o+3] = c.R, c.G, c.B, 160
		case m.BG[i] >= ClaimThreshold:
			img.Pix[o], img.Pix[o+1], img.Pix[o+2], img.Pix[o+3] = c.R/3, c.G/3, c.B/3, 160
		}
	}
	return img
}
