// Package units defines the in-memory representation shared by all
// translation file formats: an ordered mapping from key to text.
//
// Key order mirrors the source file and is preserved through
// parse → edit → serialize so that diffs against hand-edited files stay
// readable. Order carries no meaning for synchronization; the key-set
// diff treats the map as a set.
package units

// Map is an ordered key → text mapping for one (locale, file) pair.
// The zero value is not usable; construct with New.
type Map struct {
	keys   []string
	values map[string]string
}

// New returns an empty Map.
func New() *Map {
	return &Map{values: make(map[string]string)}
}

// Set stores text under key, appending the key at the end unless it is
// already present, in which case the value is replaced in place.
func (m *Map) Set(key, text string) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = text
}

// Get returns the text for key and whether it exists.
func (m *Map) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Delete removes key, preserving the relative order of the rest.
func (m *Map) Delete(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order. The returned slice is shared;
// callers must not modify it.
func (m *Map) Keys() []string {
	return m.keys
}

// Len returns the number of entries.
func (m *Map) Len() int {
	return len(m.keys)
}

// Clone returns an independent copy with the same order.
func (m *Map) Clone() *Map {
	c := &Map{
		keys:   append([]string(nil), m.keys...),
		values: make(map[string]string, len(m.values)),
	}
	for k, v := range m.values {
		c.values[k] = v
	}
	return c
}
