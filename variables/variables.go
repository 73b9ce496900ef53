// Package variables implements detection of embedded placeholder variables
// in translation strings. Four placeholder syntaxes are recognized:
//
//	{{name}}   double-brace (i18next / Handlebars interpolation)
//	{name}     single-brace (ICU / Python format)
//	%{name}    percent-brace (Rails i18n)
//	{$name}    dollar-brace (Fluent placeables)
//
// Placeholders must survive translation byte-for-byte, so both the parsing
// side and the dispatcher use this package: parsers to attach placeholder
// lists to entries, the dispatcher to validate AI output.
package variables

import (
	"sort"
	"strings"
)

// span marks a matched placeholder within the scanned text.
type span struct {
	start, end int
}

// Extract returns every placeholder token found in text, in order of first
// appearance, without duplicates. A token is the full matched span including
// its braces (e.g. "{{count}}", "%{name}").
//
// Double-brace tokens are matched first with balanced-brace scanning, so an
// inner single-brace expression (e.g. "{{format(x, {precision: 2})}}") is
// consumed as part of the outer token rather than matched on its own.
// Unterminated braces are not tokens and are skipped without error.
func Extract(text string) []string {
	consumed := make([]bool, len(text))
	var spans []span

	claim := func(start, end int) {
		spans = append(spans, span{start, end})
		for i := start; i < end; i++ {
			consumed[i] = true
		}
	}

	// Pass 1: double-brace, balanced-aware.
	for i := 0; i+1 < len(text); i++ {
		if text[i] != '{' || text[i+1] != '{' || consumed[i] {
			continue
		}
		if end := scanDoubleBrace(text, i); end > 0 {
			claim(i, end)
			i = end - 1
		}
	}

	// Pass 2: percent-brace.
	for i := 0; i+1 < len(text); i++ {
		if text[i] != '%' || text[i+1] != '{' || consumed[i] || consumed[i+1] {
			continue
		}
		if end := scanSimpleBrace(text, i+1, consumed); end > 0 {
			claim(i, end)
			i = end - 1
		}
	}

	// Pass 3: dollar-brace {$name}.
	for i := 0; i+1 < len(text); i++ {
		if text[i] != '{' || text[i+1] != '$' || consumed[i] || consumed[i+1] {
			continue
		}
		if end := scanSimpleBrace(text, i, consumed); end > 0 {
			claim(i, end)
			i = end - 1
		}
	}

	// Pass 4: single-brace, skipping spans already claimed above.
	for i := 0; i < len(text); i++ {
		if text[i] != '{' || consumed[i] {
			continue
		}
		if end := scanSimpleBrace(text, i, consumed); end > 0 {
			claim(i, end)
			i = end - 1
		}
	}

	// Emit in order of appearance in the text, not in pass order.
	sort.Slice(spans, func(a, b int) bool { return spans[a].start < spans[b].start })

	var tokens []string
	seen := make(map[string]bool)
	for _, s := range spans {
		tok := text[s.start:s.end]
		if !seen[tok] {
			seen[tok] = true
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// scanDoubleBrace returns the index one past the closing "}}" of a balanced
// double-brace token starting at i, or 0 if the token is unterminated.
func scanDoubleBrace(text string, i int) int {
	depth := 0
	for j := i; j < len(text); j++ {
		switch text[j] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				// The token must close with "}}".
				if j >= 1 && text[j-1] == '}' {
					return j + 1
				}
				return 0
			}
		}
	}
	return 0
}

// scanSimpleBrace returns the index one past the closing '}' of a
// non-nesting brace token opening at i, or 0 when the token is unterminated,
// empty, contains a nested brace, or overlaps an already-consumed span.
func scanSimpleBrace(text string, i int, consumed []bool) int {
	for j := i + 1; j < len(text); j++ {
		if consumed[j] {
			return 0
		}
		switch text[j] {
		case '}':
			if j == i+1 {
				return 0 // "{}" carries no variable
			}
			return j + 1
		case '{', '\n':
			return 0
		}
	}
	return 0
}

// ValidatePreservation reports whether every placeholder extracted from
// source appears verbatim in translation. Extra placeholders introduced by
// the translation are tolerated. A source without placeholders always
// validates.
func ValidatePreservation(source, translation string) bool {
	for _, tok := range Extract(source) {
		if !strings.Contains(translation, tok) {
			return false
		}
	}
	return true
}

// Missing returns the source placeholders absent from translation, for
// warning messages. Order follows Extract.
func Missing(source, translation string) []string {
	var missing []string
	for _, tok := range Extract(source) {
		if !strings.Contains(translation, tok) {
			missing = append(missing, tok)
		}
	}
	return missing
}
