package translate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/minios-linux/locsync/langmeta"
)

// DefaultSystemPrompt is the base instruction sent with every batch.
// {{targetLang}} is replaced with the target language's English name.
const DefaultSystemPrompt = `You are a professional translator specializing in software and product localization. You are translating UI strings for a software application.

IMPORTANT TRANSLATION PRINCIPLES:
- Translate for NATURALNESS and FLUENCY in {{targetLang}}, not word-for-word
- Use idiomatic expressions natural to {{targetLang}}, not literal translations
- Use established IT terminology in {{targetLang}}
- Maintain the original tone and intent, but express it naturally in {{targetLang}}
- Keep brand names and proper nouns unchanged

TECHNICAL REQUIREMENTS:
- Return ONLY a JSON array of translated strings, one for each input entry, in the same order.
- Preserve leading/trailing whitespace, newlines, and punctuation patterns.
- Return ONLY the JSON array, no explanations or markdown code blocks.`

// preserveVariablesClause is appended whenever the request carries
// placeholder-bearing texts, which is every dispatcher batch.
const preserveVariablesClause = `
- CRITICAL: Preserve every placeholder EXACTLY as written, character for character. Placeholders look like {{name}}, {name}, %{name}, or {$name}. Never translate, rename, or drop them.`

// buildSystemPrompt resolves the system prompt for a batch.
func buildSystemPrompt(targetLang string, reqCtx *RequestContext) string {
	prompt := strings.ReplaceAll(DefaultSystemPrompt, "{{targetLang}}", langmeta.EnglishName(targetLang))

	if reqCtx == nil {
		return prompt + preserveVariablesClause
	}

	var extra strings.Builder
	if reqCtx.PreserveVariables {
		extra.WriteString(preserveVariablesClause)
	}
	if reqCtx.Domain != "" {
		fmt.Fprintf(&extra, "\n- Subject domain: %s.", reqCtx.Domain)
	}
	if reqCtx.Tone != "" {
		fmt.Fprintf(&extra, "\n- Tone: %s.", reqCtx.Tone)
	}
	if reqCtx.MaxLength > 0 {
		fmt.Fprintf(&extra, "\n- Keep each translation under %d characters.", reqCtx.MaxLength)
	}
	if reqCtx.CustomInstructions != "" {
		fmt.Fprintf(&extra, "\n\nPROJECT CONTEXT:\n%s", reqCtx.CustomInstructions)
	}
	return prompt + extra.String()
}

// buildUserPrompt renders the numbered entry list and the array-shape
// demand.
func buildUserPrompt(sourceLang string, texts []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Translate these %s entries:\n\n", langmeta.EnglishName(sourceLang))
	for i, t := range texts {
		fmt.Fprintf(&b, "%d. %s\n", i+1, escapeForPrompt(t))
	}
	fmt.Fprintf(&b, "\nReturn a JSON array with exactly %d translated strings.", len(texts))
	return b.String()
}

// escapeForPrompt keeps multi-line entries on one numbered line.
func escapeForPrompt(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

// unescapeFromPrompt reverses escapeForPrompt for models that echo the
// escaped form back. A single left-to-right scan decodes each escape
// once, so an escaped backslash followed by 'n' stays a literal
// backslash-n instead of turning into a newline.
func unescapeFromPrompt(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				b.WriteByte('\n')
				i++
				continue
			case '\\':
				b.WriteByte('\\')
				i++
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

var markdownCodeBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// parseTranslations extracts a JSON array of expected strings from the
// model response. Markdown fences and surrounding prose are stripped
// before parsing; a wrong element count is an error so the chain can
// retry.
func parseTranslations(content string, expected int) ([]string, error) {
	content = strings.TrimSpace(content)

	if m := markdownCodeBlock.FindStringSubmatch(content); len(m) > 1 {
		content = m[1]
	}

	startIdx := strings.Index(content, "[")
	endIdx := strings.LastIndex(content, "]")
	if startIdx >= 0 && endIdx > startIdx {
		content = content[startIdx : endIdx+1]
	}

	var translations []string
	if err := json.Unmarshal([]byte(content), &translations); err != nil {
		return nil, fmt.Errorf("response is not a JSON string array: %w (response: %s)", err, truncate(content, 300))
	}
	if len(translations) != expected {
		return nil, fmt.Errorf("got %d translations, expected %d", len(translations), expected)
	}
	return translations, nil
}

// truncate shortens s for error messages.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
