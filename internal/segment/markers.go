// Package segment turns paint hints into a marker map, floods it with a
// marker watershed and carves the composite alpha.
package segment

import (
	"photocarve/internal/paint"
)

// Marker labels.
const (
	Boundary        int32 = -1
	Unknown         int32 = 0
	BackgroundLabel int32 = 1
	FirstForeground int32 = 2
)

// Markers is an integer label raster, row-major.
type Markers struct {
	Width  int
	Height int
	Labels []int32
}

// NewMarkers allocates an all-unknown marker map.
func NewMarkers(w, h int) *Markers {
	return &Markers{Width: w, Height: h, Labels: make([]int32, w*h)}
}

// At returns the label at (x, y).
func (m *Markers) At(x, y int) int32 {
	return m.Labels[y*m.Width+x]
}

// Clone returns a deep copy.
func (m *Markers) Clone() *Markers {
	return &Markers{Width: m.Width, Height: m.Height, Labels: append([]int32(nil), m.Labels...)}
}

var neighbours8 = [8][2]int{{-1, -1}, {0, -1}, {1, -1}, {-1, 0}, {1, 0}, {-1, 1}, {0, 1}, {1, 1}}

// BuildMarkers labels the mask: every 8-connected foreground blob gets its
// own label from FirstForeground up, background pixels get BackgroundLabel
// and the rest stay Unknown. Foreground wins where both channels are painted.
// It returns the map and the number of foreground components.
func BuildMarkers(mask *paint.Mask) (*Markers, int) {
	w, h := mask.Width, mask.Height
	mk := NewMarkers(w, h)

	for i := range mk.Labels {
		if !mask.Claimed(paint.Foreground, i) && mask.Claimed(paint.Background, i) {
			mk.Labels[i] = BackgroundLabel
		}
	}

	next := FirstForeground
	queue := make([]int, 0, 64)
	for start := range mk.Labels {
		if mk.Labels[start] != Unknown || !mask.Claimed(paint.Foreground, start) {
			continue
		}
		mk.Labels[start] = next
		queue = append(queue[:0], start)
		for len(queue) > 0 {
			i := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			x, y := i%w, i/w
			for _, d := range neighbours8 {
				nx, ny := x+d[0], y+d[1]
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if mk.Labels[j] == Unknown && mask.Claimed(paint.Foreground, j) {
					mk.Labels[j] = next
					queue = append(queue, j)
				}
			}
		}
		next++
	}
	return mk, int(next - FirstForeground)
}
