// Package jsonfile implements reading and writing of JSON translation files.
//
// Two structural conventions exist in the wild and are indistinguishable by
// extension:
//
//	flat:    { "menu.file.open": "Open", "Hello. Bye.": "..." }
//	nested:  { "menu": { "file": { "open": "Open" } } }
//
// Whether a file is flat or nested is decided once at parse time, from the
// shapes of the top-level values, never from the presence of dots inside key
// strings (flat files legitimately use whole sentences as keys), and
// memoized per file path in a Registry. Serialization always replays the
// memoized choice, so a file never migrates between conventions as a side
// effect of translation.
//
// Non-string leaf values (numbers, booleans, arrays, null) are carried
// through as their compact JSON encoding and re-emitted verbatim as long as
// they are left unmodified.
package jsonfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/minios-linux/locsync/units"
)

// Structure is the structural convention of a JSON translation file.
type Structure string

const (
	// StructureFlat: keys are literal strings, dots carry no meaning.
	StructureFlat Structure = "flat"
	// StructureNested: nesting encodes a dot-joined key path.
	StructureNested Structure = "nested"
)

// MalformedError reports a JSON syntax or shape error for a specific file.
type MalformedError struct {
	Path string
	Err  error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed JSON in %s: %v", e.Path, e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// ---------------------------------------------------------------------------
// Registry (per-path structural memoization)
// ---------------------------------------------------------------------------

// Registry remembers, per file path, the structural variant inferred at
// parse time plus the raw encodings of non-string leaves. One Registry is
// shared by every locale pipeline of a sync run, so access is synchronized.
type Registry struct {
	mu       sync.RWMutex
	variants map[string]Structure
	raw      map[string]map[string]string // path -> flattened key -> raw JSON
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		variants: make(map[string]Structure),
		raw:      make(map[string]map[string]string),
	}
}

// Variant returns the memoized structure for path.
func (r *Registry) Variant(path string) (Structure, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.variants[path]
	return s, ok
}

// SetVariant records the structure for path.
func (r *Registry) SetVariant(path string, s Structure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.variants[path] = s
}

// Snapshot returns a copy of all memoized variants, for persistence.
func (r *Registry) Snapshot() map[string]Structure {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Structure, len(r.variants))
	for k, v := range r.variants {
		out[k] = v
	}
	return out
}

// Hydrate pre-seeds variants (from a lock file). Entries memoized during
// the current run are not overwritten.
func (r *Registry) Hydrate(variants map[string]Structure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for path, s := range variants {
		if _, ok := r.variants[path]; !ok {
			r.variants[path] = s
		}
	}
}

func (r *Registry) setRaw(path string, rawLeaves map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(rawLeaves) == 0 {
		delete(r.raw, path)
		return
	}
	r.raw[path] = rawLeaves
}

func (r *Registry) rawFor(path string) map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.raw[path]
}

// ---------------------------------------------------------------------------
// Structure detection
// ---------------------------------------------------------------------------

// DetectStructure classifies a decoded JSON object: nested if and only if
// at least one top-level value is itself a non-null object. Arrays and
// primitives never make an object nested, and key contents are deliberately
// ignored: a flat file whose keys contain dots must stay flat.
func DetectStructure(obj map[string]any) Structure {
	for _, v := range obj {
		if _, ok := v.(map[string]any); ok {
			return StructureNested
		}
	}
	return StructureFlat
}

// ---------------------------------------------------------------------------
// Flatten / Unflatten
// ---------------------------------------------------------------------------

// Flatten walks nested objects, joining path segments with dots. Descent
// stops at the first non-object value: arrays and primitives are leaves.
func Flatten(obj map[string]any) map[string]any {
	out := make(map[string]any)
	flattenInto(out, "", obj)
	return out
}

func flattenInto(out map[string]any, prefix string, obj map[string]any) {
	for k, v := range obj {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if child, ok := v.(map[string]any); ok {
			flattenInto(out, key, child)
			continue
		}
		out[key] = v
	}
}

// Unflatten is the inverse of Flatten: each key is split on dots and nested
// containers are built per segment. Keys without dots stay top-level leaves.
func Unflatten(flat map[string]any) map[string]any {
	out := make(map[string]any)
	for key, v := range flat {
		segs := strings.Split(key, ".")
		cur := out
		for _, seg := range segs[:len(segs)-1] {
			child, ok := cur[seg].(map[string]any)
			if !ok {
				child = make(map[string]any)
				cur[seg] = child
			}
			cur = child
		}
		cur[segs[len(segs)-1]] = v
	}
	return out
}

// ---------------------------------------------------------------------------
// Ordered decoding
// ---------------------------------------------------------------------------

// orderedObj is a JSON object preserving member order. Values are string,
// *orderedObj, or rawValue.
type orderedObj struct {
	keys []string
	vals map[string]any
}

// rawValue carries the compact JSON encoding of a non-string, non-object
// leaf (number, bool, null, array).
type rawValue string

func decodeOrdered(data []byte) (*orderedObj, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	t, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := t.(json.Delim)
	if !ok || delim != '{' {
		return nil, fmt.Errorf("top-level value is not an object")
	}
	obj, err := decodeObject(dec)
	if err != nil {
		return nil, err
	}
	// Trailing garbage after the document is a syntax error.
	if _, err := dec.Token(); err == nil {
		return nil, fmt.Errorf("unexpected data after top-level object")
	}
	return obj, nil
}

// decodeObject reads members until the matching '}'. The opening '{' has
// already been consumed.
func decodeObject(dec *json.Decoder) (*orderedObj, error) {
	obj := &orderedObj{vals: make(map[string]any)}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := kt.(string)
		if !ok {
			return nil, fmt.Errorf("expected string key, got %v", kt)
		}
		val, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		if _, dup := obj.vals[key]; !dup {
			obj.keys = append(obj.keys, key)
		}
		obj.vals[key] = val
	}
	if _, err := dec.Token(); err != nil { // consume '}'
		return nil, err
	}
	return obj, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	t, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch v := t.(type) {
	case json.Delim:
		switch v {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArrayRaw(dec)
		}
		return nil, fmt.Errorf("unexpected delimiter %v", v)
	case string:
		return v, nil
	case json.Number:
		return rawValue(v.String()), nil
	case bool:
		return rawValue(strconv.FormatBool(v)), nil
	case nil:
		return rawValue("null"), nil
	}
	return nil, fmt.Errorf("unexpected token %v", t)
}

// decodeArrayRaw re-encodes an array (opening '[' already consumed) back to
// compact JSON, preserving element order and any nested object member order.
func decodeArrayRaw(dec *json.Decoder) (rawValue, error) {
	var b strings.Builder
	b.WriteByte('[')
	first := true
	for dec.More() {
		v, err := decodeValue(dec)
		if err != nil {
			return "", err
		}
		if !first {
			b.WriteByte(',')
		}
		first = false
		b.WriteString(compactEncode(v))
	}
	if _, err := dec.Token(); err != nil { // consume ']'
		return "", err
	}
	b.WriteByte(']')
	return rawValue(b.String()), nil
}

// compactEncode renders a decoded value back to compact JSON.
func compactEncode(v any) string {
	switch x := v.(type) {
	case string:
		return jsonQuote(x)
	case rawValue:
		return string(x)
	case *orderedObj:
		var b strings.Builder
		b.WriteByte('{')
		for i, k := range x.keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(jsonQuote(k))
			b.WriteByte(':')
			b.WriteString(compactEncode(x.vals[k]))
		}
		b.WriteByte('}')
		return b.String()
	}
	return "null"
}

// jsonQuote JSON-encodes a string without HTML escaping, so values like
// "<b>" survive byte-for-byte.
func jsonQuote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}

// ---------------------------------------------------------------------------
// Parse
// ---------------------------------------------------------------------------

// Parse parses JSON translation content into an ordered key → text map.
// When path is non-empty and reg is non-nil, the inferred structure is
// memoized so a later Serialize reproduces it. Nested files are flattened
// in document order; flat files keep their keys untouched, literal dots
// included.
func Parse(content []byte, path string, reg *Registry) (*units.Map, error) {
	obj, err := decodeOrdered(content)
	if err != nil {
		return nil, &MalformedError{Path: path, Err: err}
	}

	structure := StructureFlat
	for _, k := range obj.keys {
		if _, ok := obj.vals[k].(*orderedObj); ok {
			structure = StructureNested
			break
		}
	}

	m := units.New()
	rawLeaves := make(map[string]string)
	collectUnits(m, rawLeaves, "", obj)

	if path != "" && reg != nil {
		reg.SetVariant(path, structure)
		reg.setRaw(path, rawLeaves)
	}
	return m, nil
}

// collectUnits walks obj in document order, flattening nested objects with
// dot-joined paths. For flat files no descent happens because no value is
// an object.
func collectUnits(m *units.Map, rawLeaves map[string]string, prefix string, obj *orderedObj) {
	for _, k := range obj.keys {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch v := obj.vals[k].(type) {
		case *orderedObj:
			collectUnits(m, rawLeaves, key, v)
		case string:
			m.Set(key, v)
		case rawValue:
			m.Set(key, string(v))
			rawLeaves[key] = string(v)
		}
	}
}

// ParseFile reads and parses a JSON translation file from disk.
func ParseFile(path string, reg *Registry) (*units.Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data, path, reg)
}

// ---------------------------------------------------------------------------
// Serialize
// ---------------------------------------------------------------------------

// Serialize renders the map as pretty-printed JSON with 2-space indentation
// and a trailing newline. The output structure is resolved in order:
// forced argument, the Registry's memoized variant for path, then a
// conservative key heuristic, defaulting to flat.
func Serialize(m *units.Map, path string, forced Structure, reg *Registry) ([]byte, error) {
	structure := forced
	if structure == "" && path != "" && reg != nil {
		if s, ok := reg.Variant(path); ok {
			structure = s
		}
	}
	if structure == "" {
		structure = inferStructureFromKeys(m.Keys())
	}

	var rawLeaves map[string]string
	if path != "" && reg != nil {
		rawLeaves = reg.rawFor(path)
	}

	var b strings.Builder
	if structure == StructureNested {
		writeNested(&b, m, rawLeaves)
	} else {
		writeFlat(&b, m, rawLeaves)
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// inferStructureFromKeys decides the output structure when nothing was
// memoized for the file. A map is nested-eligible only when dotted keys
// split into clean identifier-like segments that are used consistently as
// path prefixes by more than one key; anything ambiguous falls back to
// flat, which is always safe to emit.
func inferStructureFromKeys(keys []string) Structure {
	prefixCount := make(map[string]int)
	dotted := false

	for _, key := range keys {
		if !strings.Contains(key, ".") {
			continue
		}
		dotted = true
		segs := strings.Split(key, ".")
		for _, seg := range segs {
			if seg == "" || strings.ContainsAny(seg, " \t") {
				return StructureFlat // sentence-like key, dots are literal
			}
		}
		prefixCount[segs[0]]++
	}
	if !dotted {
		return StructureFlat
	}

	// A dotted key is a path only when its first segment groups at least
	// two keys, and no key collides with another key's path prefix.
	for _, key := range keys {
		if strings.Contains(key, ".") {
			if prefixCount[strings.Split(key, ".")[0]] < 2 {
				return StructureFlat
			}
		}
		for _, other := range keys {
			if other != key && strings.HasPrefix(other, key+".") {
				return StructureFlat // "a" and "a.b" cannot both exist nested
			}
		}
	}
	return StructureNested
}

func writeFlat(b *strings.Builder, m *units.Map, rawLeaves map[string]string) {
	b.WriteString("{")
	keys := m.Keys()
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString("\n  ")
		b.WriteString(jsonQuote(k))
		b.WriteString(": ")
		writeLeaf(b, m, k, rawLeaves)
	}
	if len(keys) > 0 {
		b.WriteByte('\n')
	}
	b.WriteString("}")
}

func writeNested(b *strings.Builder, m *units.Map, rawLeaves map[string]string) {
	root := buildTree(m)
	writeTree(b, m, root, rawLeaves, 0)
}

// treeNode rebuilds the nesting from dotted keys, preserving first-seen
// order of each segment.
type treeNode struct {
	order    []string
	children map[string]*treeNode
	leafKey  string // full flattened key when this node is a leaf
}

func newTreeNode() *treeNode {
	return &treeNode{children: make(map[string]*treeNode)}
}

func buildTree(m *units.Map) *treeNode {
	root := newTreeNode()
	for _, key := range m.Keys() {
		segs := strings.Split(key, ".")
		cur := root
		for _, seg := range segs {
			child, ok := cur.children[seg]
			if !ok {
				child = newTreeNode()
				cur.children[seg] = child
				cur.order = append(cur.order, seg)
			}
			cur = child
		}
		cur.leafKey = key
	}
	return root
}

func writeTree(b *strings.Builder, m *units.Map, node *treeNode, rawLeaves map[string]string, depth int) {
	indent := strings.Repeat("  ", depth+1)
	b.WriteString("{")
	for i, seg := range node.order {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
		b.WriteString(indent)
		b.WriteString(jsonQuote(seg))
		b.WriteString(": ")
		child := node.children[seg]
		if child.leafKey != "" && len(child.children) == 0 {
			writeLeaf(b, m, child.leafKey, rawLeaves)
		} else {
			writeTree(b, m, child, rawLeaves, depth+1)
		}
	}
	if len(node.order) > 0 {
		b.WriteByte('\n')
		b.WriteString(strings.Repeat("  ", depth))
	}
	b.WriteString("}")
}

// writeLeaf emits a value: non-string leaves recorded at parse time are
// re-emitted raw as long as their text is unchanged, everything else is a
// JSON string.
func writeLeaf(b *strings.Builder, m *units.Map, key string, rawLeaves map[string]string) {
	v, _ := m.Get(key)
	if raw, ok := rawLeaves[key]; ok && raw == v {
		b.WriteString(raw)
		return
	}
	b.WriteString(jsonQuote(v))
}

// WriteFile serializes and writes to path using the structure memoized for
// that path.
func WriteFile(m *units.Map, path string, reg *Registry) error {
	data, err := Serialize(m, path, "", reg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
