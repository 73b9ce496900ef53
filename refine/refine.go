// Package refine turns a free-text project description into concise
// translation guidance. It reuses the translation service as a generic
// LLM mechanism (a same-language en to en call) and falls back to a
// deterministic heuristic scorer when the model reply cannot be parsed,
// so a sync run never blocks on response shape drift.
package refine

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/minios-linux/locsync/translate"
)

// Result is the outcome of refining a project description.
type Result struct {
	// Refined is the distilled guidance suitable for prompt injection.
	Refined string
	// Score rates the description's usefulness for translators, 0 to 10.
	Score int
	// Suggestions lists concrete ways to improve a weak description.
	Suggestions []string
	// Heuristic is true when the score came from the local fallback
	// scorer instead of the model.
	Heuristic bool
}

// DefaultThreshold is the score below which callers should warn.
const DefaultThreshold = 5

const refineInstructions = `Do not translate the input. Instead, act as a localization lead: distill the project description into translation-relevant guidance (product domain, audience, tone, terminology to keep untranslated). Then self-score the original description's usefulness for translators from 0 to 10 and suggest improvements if it is weak.

Return ONLY a JSON object of the form:
{"refined": "...", "score": 7, "suggestions": ["..."]}`

// Refiner refines project descriptions through a translation service.
type Refiner struct {
	service   translate.Service
	threshold int
}

// New returns a Refiner. threshold <= 0 selects DefaultThreshold.
func New(service translate.Service, threshold int) *Refiner {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Refiner{service: service, threshold: threshold}
}

// Refine distills rawDescription into translation guidance. Provider
// errors are returned as-is; an unparseable model reply degrades to the
// heuristic scorer with the raw description kept verbatim.
func (r *Refiner) Refine(ctx context.Context, rawDescription string) (*Result, error) {
	raw := strings.TrimSpace(rawDescription)
	if raw == "" {
		return &Result{
			Score:       0,
			Suggestions: []string{"describe what the product does and who uses it"},
			Heuristic:   true,
		}, nil
	}

	reqCtx := &translate.RequestContext{CustomInstructions: refineInstructions}
	replies, err := r.service.TranslateBatch(ctx, "en", "en", []string{raw}, reqCtx)
	if err != nil {
		return nil, err
	}

	result, ok := parseRefinement(replies[raw])
	if !ok {
		logrus.Debug("refinement reply was not parseable, using heuristic scorer")
		result = heuristicResult(raw)
	}

	if result.Score < r.threshold {
		logrus.WithFields(logrus.Fields{
			"score":     result.Score,
			"threshold": r.threshold,
		}).Warn("project description scored low, translations may lack context")
	}
	return result, nil
}

// parseRefinement extracts the refinement JSON object from a model reply
// that may be wrapped in markdown fences or prose.
func parseRefinement(reply string) (*Result, bool) {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, false
	}

	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	body := reply[start : end+1]
	if !json.Valid([]byte(body)) {
		return nil, false
	}

	refined := gjson.Get(body, "refined")
	score := gjson.Get(body, "score")
	if !refined.Exists() || !score.Exists() {
		return nil, false
	}

	result := &Result{
		Refined: strings.TrimSpace(refined.String()),
		Score:   clampScore(int(score.Int())),
	}
	for _, s := range gjson.Get(body, "suggestions").Array() {
		if text := strings.TrimSpace(s.String()); text != "" {
			result.Suggestions = append(result.Suggestions, text)
		}
	}
	if result.Refined == "" {
		return nil, false
	}
	return result, true
}

// Signal words the heuristic scorer looks for, one point each.
var contextSignals = []string{
	"app", "software", "tool", "service", "platform", "website",
	"user", "audience", "customer",
	"tone", "formal", "informal", "casual", "friendly", "professional",
	"brand", "terminology", "domain",
}

// heuristicResult scores a description locally: length bounds plus
// keyword presence, capped to the 0 to 10 range.
func heuristicResult(raw string) *Result {
	result := &Result{Refined: raw, Heuristic: true}
	lower := strings.ToLower(raw)

	score := 0
	switch n := len(raw); {
	case n >= 80 && n <= 1200:
		score += 4
	case n >= 40:
		score += 2
	default:
		result.Suggestions = append(result.Suggestions, "expand the description, a sentence or two is rarely enough")
	}

	matched := 0
	for _, signal := range contextSignals {
		if strings.Contains(lower, signal) {
			matched++
		}
	}
	if matched > 6 {
		matched = 6
	}
	score += matched

	if !containsAny(lower, "user", "audience", "customer") {
		result.Suggestions = append(result.Suggestions, "describe the target audience")
	}
	if !containsAny(lower, "tone", "formal", "informal", "casual", "friendly", "professional") {
		result.Suggestions = append(result.Suggestions, "state the desired tone")
	}

	result.Score = clampScore(score)
	return result
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 10 {
		return 10
	}
	return n
}
