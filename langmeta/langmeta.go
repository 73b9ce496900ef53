// Package langmeta resolves locale identifiers to canonical BCP 47 tags
// and human-readable names. Prompts address the model with a language name
// ("Brazilian Portuguese") rather than a bare code ("pt-BR").
package langmeta

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Normalize canonicalizes a locale identifier: underscores become hyphens
// ("pt_BR" -> "pt-BR") and casing is fixed per BCP 47. Unparseable input is
// returned trimmed but otherwise untouched.
func Normalize(code string) string {
	code = strings.TrimSpace(strings.ReplaceAll(code, "_", "-"))
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	return tag.String()
}

// Valid reports whether code parses as a BCP 47 language tag.
func Valid(code string) bool {
	_, err := language.Parse(strings.ReplaceAll(strings.TrimSpace(code), "_", "-"))
	return err == nil
}

// EnglishName returns the English display name for a locale code
// ("de" -> "German", "pt-BR" -> "Brazilian Portuguese"). Falls back to the
// code itself when the tag cannot be parsed or named.
func EnglishName(code string) string {
	tag, err := language.Parse(strings.ReplaceAll(strings.TrimSpace(code), "_", "-"))
	if err != nil {
		return code
	}
	name := display.English.Tags().Name(tag)
	if name == "" {
		return code
	}
	return name
}

// SelfName returns the language's name in itself ("de" -> "Deutsch"),
// used in status output. Falls back to the English name.
func SelfName(code string) string {
	tag, err := language.Parse(strings.ReplaceAll(strings.TrimSpace(code), "_", "-"))
	if err != nil {
		return code
	}
	if name := display.Self.Name(tag); name != "" {
		return name
	}
	return EnglishName(code)
}
