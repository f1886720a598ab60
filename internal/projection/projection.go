// Package projection keeps the per-image homographies onto the baseline and
// maps points between screen, image-native and detection-frame space.
//
// Stored homographies map image i detection-frame coordinates to baseline
// detection-frame coordinates. The screen shows the baseline stretched over
// the whole canvas.
package projection

import (
	"sort"
	"sync"

	"photocarve/internal/features"
	"photocarve/pkg/geometry"
)

// Frame is the geometry of one image: its native size and the detection
// scale its homography was estimated at.
type Frame struct {
	NativeW int
	NativeH int
	Scale   float64
}

// FrameOf converts detection-frame info into a Frame.
func FrameOf(info features.FrameInfo) Frame {
	return Frame{NativeW: info.NativeWidth, NativeH: info.NativeHeight, Scale: info.Scale}
}

// Valid reports whether f describes a non-empty image.
func (f Frame) Valid() bool {
	return f.NativeW > 0 && f.NativeH > 0 && f.Scale > 0
}

// Canvas is the screen surface size in pixels.
type Canvas struct {
	Width  int
	Height int
}

// Model holds the optional projection and the frame of every image.
type Model struct {
	mu     sync.RWMutex
	proj   map[int]geometry.Homography
	frames map[int]Frame
}

// NewModel creates an empty model.
func NewModel() *Model {
	return &Model{
		proj:   make(map[int]geometry.Homography),
		frames: make(map[int]Frame),
	}
}

// Set stores the projection of image i. The baseline is never projected, so
// Set on index 0 is ignored and reports false.
func (m *Model) Set(i int, h geometry.Homography) bool {
	if i <= 0 {
		return false
	}
	m.mu.Lock()
	m.proj[i] = h
	m.mu.Unlock()
	return true
}

// Clear removes the projection of image i.
func (m *Model) Clear(i int) {
	m.mu.Lock()
	delete(m.proj, i)
	m.mu.Unlock()
}

// Get returns the stored projection of image i.
func (m *Model) Get(i int) (geometry.Homography, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.proj[i]
	return h, ok
}

// Has reports whether image i has a projection.
func (m *Model) Has(i int) bool {
	_, ok := m.Get(i)
	return ok
}

// Projection returns the stored projection of image i, or the identity.
func (m *Model) Projection(i int) geometry.Homography {
	if h, ok := m.Get(i); ok {
		return h
	}
	return geometry.IdentityHomography()
}

// SetFrame records the geometry of image i.
func (m *Model) SetFrame(i int, f Frame) {
	m.mu.Lock()
	m.frames[i] = f
	m.mu.Unlock()
}

// FrameAt returns the geometry of image i.
func (m *Model) FrameAt(i int) (Frame, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.frames[i]
	return f, ok
}

// Reset drops every projection and frame.
func (m *Model) Reset() {
	m.mu.Lock()
	m.proj = make(map[int]geometry.Homography)
	m.frames = make(map[int]Frame)
	m.mu.Unlock()
}

// Shift forgets image removed and moves every later index down by one.
func (m *Model) Shift(removed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.proj = shiftMap(m.proj, removed)
	m.frames = shiftMap(m.frames, removed)
}

func shiftMap[V any](in map[int]V, removed int) map[int]V {
	out := make(map[int]V, len(in))
	for i, v := range in {
		switch {
		case i < removed:
			out[i] = v
		case i > removed:
			out[i-1] = v
		}
	}
	return out
}

// Indices returns the projected image indices in order.
func (m *Model) Indices() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]int, 0, len(m.proj))
	for i := range m.proj {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Clone returns an independent copy, used for background snapshots.
func (m *Model) Clone() *Model {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c := NewModel()
	for i, h := range m.proj {
		c.proj[i] = h
	}
	for i, f := range m.frames {
		c.frames[i] = f
	}
	return c
}

// Assign replaces the contents of m with a copy of o.
func (m *Model) Assign(o *Model) {
	c := o.Clone()
	m.mu.Lock()
	m.proj, m.frames = c.proj, c.frames
	m.mu.Unlock()
}
