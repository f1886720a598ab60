// Package prefs provides JSON-based persisted settings. Values are hydrated
// once when the store is opened and written back on every change.
package prefs

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

const prefsFile = "preferences.json"

// Value is the set of types a preference may hold.
type Value interface {
	~bool | ~int | ~float64 | ~string
}

// Key names a setting together with its typed default.
type Key[T Value] struct {
	Name    string
	Default T
}

// Prefs stores preferences as a key-value map backed by a JSON file.
type Prefs struct {
	mu     sync.RWMutex
	values map[string]interface{}
	path   string
}

// DefaultPath returns ~/.config/photocarve/preferences.json.
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, "photocarve", prefsFile)
}

// Load opens the store at DefaultPath.
func Load() (*Prefs, error) {
	return Open(DefaultPath())
}

// Open reads preferences from path. A missing file yields an empty store.
func Open(path string) (*Prefs, error) {
	p := &Prefs{
		values: make(map[string]interface{}),
		path:   path,
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(data, &p.values); err != nil {
		return nil, err
	}
	return p, nil
}

// Path returns the backing file.
func (p *Prefs) Path() string {
	return p.path
}

// Save writes preferences to disk.
func (p *Prefs) Save() error {
	p.mu.RLock()
	data, err := json.MarshalIndent(p.values, "", "  ")
	p.mu.RUnlock()
	if err != nil {
		return err
	}

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(p.path, data, 0o644)
}

// Names returns the stored keys in sorted order.
func (p *Prefs) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.values))
	for k := range p.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Raw returns the stored value for name, if any.
func (p *Prefs) Raw(name string) (interface{}, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.values[name]
	return v, ok
}

// Get returns the stored value for k, or its default when unset or of the
// wrong type. JSON numbers are converted to the key's numeric type.
func Get[T Value](p *Prefs, k Key[T]) T {
	p.mu.RLock()
	v, ok := p.values[k.Name]
	p.mu.RUnlock()
	if !ok {
		return k.Default
	}

	var out T
	switch any(out).(type) {
	case int:
		switch n := v.(type) {
		case float64:
			return any(int(n)).(T)
		case int:
			return any(n).(T)
		}
	case float64:
		switch n := v.(type) {
		case float64:
			return any(n).(T)
		case int:
			return any(float64(n)).(T)
		}
	}
	if t, ok := v.(T); ok {
		return t
	}
	return k.Default
}

// Set stores a value and writes the file back.
func Set[T Value](p *Prefs, k Key[T], val T) error {
	p.mu.Lock()
	p.values[k.Name] = val
	p.mu.Unlock()
	return p.Save()
}

// Delete removes a value so that its default applies again.
func (p *Prefs) Delete(name string) error {
	p.mu.Lock()
	delete(p.values, name)
	p.mu.Unlock()
	return p.Save()
}
