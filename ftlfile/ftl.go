// Package ftlfile implements reading and writing of FTL-style message files.
//
// Recognized grammar:
//
//	# comment lines are skipped
//	key = single-line value
//	key =
//	    multi-line values continue on
//	    indented lines
//	key = value
//	    .tooltip = attribute lines are recognized but discarded
//
// The codec is lenient by design: translation files are hand-edited, so
// malformed lines (no '=', or '=' with an empty key) are skipped rather
// than failing the whole parse.
//
// Known limitation: message attributes (".attr = ..." lines under a message)
// and comments are dropped, only the key and primary value of each message
// survive a parse/serialize cycle. Blank lines inside a multi-line value are
// likewise collapsed, so multi-line round-trips preserve content but are not
// byte-exact.
//
// Only an unindented line terminates a multi-line value. An indented line
// containing '=' is read as continuation text, not as a new message: values
// legitimately contain '=' (URLs, shell snippets), and Fluent itself keys
// messages at column zero.
package ftlfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/minios-linux/locsync/units"
)

// Parse parses FTL content into an ordered key → value map.
func Parse(data []byte) (*units.Map, error) {
	m := units.New()

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	lines := strings.Split(text, "\n")

	var curKey string
	var curParts []string

	flush := func() {
		if curKey == "" {
			return
		}
		m.Set(curKey, strings.Join(curParts, "\n"))
		curKey = ""
		curParts = nil
	}

	for _, raw := range lines {
		trimmed := strings.TrimSpace(raw)

		// Indented lines extend the current message.
		if curKey != "" && raw != trimmed && (strings.HasPrefix(raw, " ") || strings.HasPrefix(raw, "\t")) {
			if trimmed == "" {
				continue // blank continuation lines are collapsed
			}
			if strings.HasPrefix(trimmed, ".") {
				continue // attribute line, value only
			}
			if len(curParts) == 1 && curParts[0] == "" {
				curParts = curParts[:0] // "key =" header of a multi-line value
			}
			curParts = append(curParts, trimmed)
			continue
		}

		// Any non-indented line ends the current message.
		flush()

		switch {
		case trimmed == "", strings.HasPrefix(trimmed, "#"):
			continue
		}

		eq := strings.Index(trimmed, "=")
		if eq <= 0 {
			continue // malformed: no '=' or empty key, skipped silently
		}
		key := strings.TrimSpace(trimmed[:eq])
		if key == "" || strings.HasPrefix(key, ".") {
			continue // empty key or stray attribute line, discarded
		}
		value := strings.TrimSpace(trimmed[eq+1:])

		curKey = key
		curParts = []string{value}
	}
	flush()

	return m, nil
}

// ParseFile reads and parses an FTL file from disk.
func ParseFile(path string) (*units.Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data)
}

// Serialize renders the map back to FTL text, one message per entry in map
// order. Multi-line values are emitted as "key =" followed by each non-empty
// line indented with 4 spaces. Empty values are emitted as "key = " with a
// trailing space so the key itself survives the round trip.
func Serialize(m *units.Map) []byte {
	var b strings.Builder
	for _, key := range m.Keys() {
		value, _ := m.Get(key)

		switch {
		case value == "":
			b.WriteString(key)
			b.WriteString(" = \n")
		case strings.Contains(value, "\n"):
			b.WriteString(key)
			b.WriteString(" =\n")
			for _, line := range strings.Split(value, "\n") {
				if strings.TrimSpace(line) == "" {
					continue
				}
				b.WriteString("    ")
				b.WriteString(line)
				b.WriteByte('\n')
			}
		default:
			b.WriteString(key)
			b.WriteString(" = ")
			b.WriteString(value)
			b.WriteByte('\n')
		}
	}
	return []byte(b.String())
}

// WriteFile serializes and writes to path, creating parent directories.
func WriteFile(m *units.Map, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, Serialize(m), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
