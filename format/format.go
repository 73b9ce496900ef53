// Package format classifies translation files by format.
//
// Classification prefers the file extension (case-insensitive). When the
// extension is missing or unrecognized, the content is sniffed: valid JSON
// wins, otherwise a "key = value" line marks the file as FTL. Files that
// match neither are Unknown and must be rejected by callers; translation
// directories routinely contain READMEs, images, and other non-translation
// files, so Unknown is an expected classification, not a parse error.
package format

import (
	"encoding/json"
	"path/filepath"
	"strings"
)

// Format identifies a supported translation file format.
type Format string

const (
	// FTL is the message-list format: "key = value" lines with # comments.
	FTL Format = "ftl"
	// JSON is a JSON object of translation strings, flat or nested.
	JSON Format = "json"
	// Unknown means the file could not be classified. Terminal: callers
	// must skip the file rather than guess further.
	Unknown Format = "unknown"
)

// Detect classifies a file. The extension is authoritative when recognized;
// content sniffing applies otherwise. Content may be nil when only the name
// is available, in which case unrecognized extensions yield Unknown.
func Detect(filename string, content []byte) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".ftl":
		return FTL
	case ".json":
		return JSON
	}
	return sniff(content)
}

// sniff inspects the content when the extension did not decide.
func sniff(content []byte) Format {
	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return Unknown
	}

	if json.Valid([]byte(trimmed)) {
		return JSON
	}

	// A JSON-looking document that failed validation is not FTL even if a
	// line inside it happens to contain "=".
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return Unknown
	}

	for _, line := range strings.Split(trimmed, "\n") {
		if isMessageLine(line) {
			return FTL
		}
	}
	return Unknown
}

// isMessageLine reports whether line looks like a "key = value" declaration:
// a non-empty, non-comment line with '=' preceded by a plausible identifier.
func isMessageLine(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return false
	}
	eq := strings.Index(line, "=")
	if eq <= 0 {
		return false
	}
	key := strings.TrimSpace(line[:eq])
	if key == "" {
		return false
	}
	for _, r := range key {
		if r == ' ' || r == '\t' {
			return false
		}
	}
	return true
}
