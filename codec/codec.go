// Package codec exposes one parse/serialize contract over all supported
// translation file formats, dispatching by detected format. The in-memory
// representation (units.Map) is format-agnostic, so a sync run may read an
// FTL primary and write JSON targets without conversion steps.
package codec

import (
	"fmt"
	"sync"

	"github.com/minios-linux/locsync/format"
	"github.com/minios-linux/locsync/ftlfile"
	"github.com/minios-linux/locsync/jsonfile"
	"github.com/minios-linux/locsync/units"
)

// UnsupportedFormatError reports a file that detected as Unknown. Callers
// skip such files: translation directories legitimately contain
// non-translation files.
type UnsupportedFormatError struct {
	Path string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported translation format: %s", e.Path)
}

// Codec parses and serializes translation files of any supported format.
// It shares one jsonfile.Registry so structural decisions are stable across
// the run, and remembers each parsed file's detected format so extensionless
// files that were classified by content sniffing serialize with the same
// codec that read them.
type Codec struct {
	Registry *jsonfile.Registry

	mu      sync.RWMutex
	formats map[string]format.Format
}

// New returns a Codec with a fresh structure registry.
func New() *Codec {
	return &Codec{
		Registry: jsonfile.NewRegistry(),
		formats:  make(map[string]format.Format),
	}
}

// Parse detects the format of filename and parses content with the matching
// codec.
func (c *Codec) Parse(filename string, content []byte) (*units.Map, error) {
	f := format.Detect(filename, content)
	if f == format.Unknown {
		return nil, &UnsupportedFormatError{Path: filename}
	}

	c.mu.Lock()
	c.formats[filename] = f
	c.mu.Unlock()

	switch f {
	case format.JSON:
		return jsonfile.Parse(content, filename, c.Registry)
	default:
		return ftlfile.Parse(content)
	}
}

// Serialize renders m in filename's format. For JSON files the structural
// variant memoized at parse time is replayed.
func (c *Codec) Serialize(filename string, m *units.Map) ([]byte, error) {
	switch c.formatOf(filename) {
	case format.JSON:
		return jsonfile.Serialize(m, filename, "", c.Registry)
	case format.FTL:
		return ftlfile.Serialize(m), nil
	}
	return nil, &UnsupportedFormatError{Path: filename}
}

// FormatsCompatible reports whether both files detect to a known format.
// The formats need not match each other: each locale file is read and
// written in its own format.
func (c *Codec) FormatsCompatible(fileA, fileB string) bool {
	return c.formatOf(fileA) != format.Unknown && c.formatOf(fileB) != format.Unknown
}

// formatOf returns the format remembered from Parse, falling back to
// extension-only detection for files not seen yet (e.g. a target file that
// does not exist and will be created).
func (c *Codec) formatOf(filename string) format.Format {
	c.mu.RLock()
	f, ok := c.formats[filename]
	c.mu.RUnlock()
	if ok {
		return f
	}
	return format.Detect(filename, nil)
}
