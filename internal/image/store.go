package image

import (
	"fmt"
	"hash/fnv"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
)

// Store holds the ordered list of loaded images. Index 0 is the baseline.
type Store struct {
	mu     sync.RWMutex
	layers []*Layer
}

// NewStore creates a store holding the given layers in order.
func NewStore(layers ...*Layer) *Store {
	return &Store{layers: append([]*Layer(nil), layers...)}
}

// Add appends a layer and returns its index.
func (s *Store) Add(l *Layer) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layers = append(s.layers, l)
	return len(s.layers) - 1
}

// Remove deletes the layer at index i; later layers shift down by one.
func (s *Store) Remove(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.layers) {
		return fmt.Errorf("remove image %d: index out of range [0,%d)", i, len(s.layers))
	}
	s.layers = append(s.layers[:i], s.layers[i+1:]...)
	return nil
}

// Replace swaps the whole list, e.g. after re-scanning a directory.
func (s *Store) Replace(layers []*Layer) {
	s.mu.Lock()
	s.layers = append([]*Layer(nil), layers...)
	s.mu.Unlock()
}

// At returns the layer at index i or nil.
func (s *Store) At(i int) *Layer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.layers) {
		return nil
	}
	return s.layers[i]
}

// Len returns the number of layers.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.layers)
}

// Layers returns a copy of the ordered layer list.
func (s *Store) Layers() []*Layer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Layer(nil), s.layers...)
}

// LoadAll loads every path in order.
func LoadAll(paths []string) ([]*Layer, error) {
	layers := make([]*Layer, 0, len(paths))
	for _, p := range paths {
		l, err := Load(p)
		if err != nil {
			return nil, err
		}
		layers = append(layers, l)
	}
	return layers, nil
}

// LoadDir loads all supported images in dir sorted by file name.
func LoadDir(dir string) ([]*Layer, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read image dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !IsSupportedFormat(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return LoadAll(paths)
}

// Color returns a stable overlay colour for the layer at index.
func Color(l *Layer, index int) color.RGBA {
	h := fnv.New32a()
	fmt.Fprintf(h, "%s#%d", l.ID, index)
	sum := h.Sum32()

	hue := float64(sum%360)
	sat := 0.55 + float64((sum>>9)%30)/100
	val := 0.75 + float64((sum>>17)%20)/100
	r, g, b := colorful.Hsv(hue, sat, val).RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}
