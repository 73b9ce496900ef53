// Package translate implements the translation dispatch layer: a
// TranslationService capability with HTTP provider adapters, a fallback
// chain with retry and error classification, a shared token-bucket rate
// limiter, and a two-tier translation cache.
package translate

import (
	"context"
	"sync"
)

// RequestContext carries optional translation guidance injected into the
// provider prompt.
type RequestContext struct {
	// Domain describes the subject area ("medical software", "e-commerce").
	Domain string
	// Tone is the desired register ("formal", "playful").
	Tone string
	// PreserveVariables adds the placeholder-preservation clause. It is on
	// for every dispatcher batch; exposed for direct Service callers.
	PreserveVariables bool
	// MaxLength caps translation length in characters (0 = no cap).
	MaxLength int
	// CustomInstructions is free-form guidance appended verbatim, typically
	// the refined project description.
	CustomInstructions string
}

// Service is the translation capability. TranslateBatch translates texts
// (unique, order meaningful for the request) from sourceLang to targetLang
// and returns a map keyed by source text. An empty input yields an empty
// map without any network call.
type Service interface {
	// Name identifies the provider for logs and error messages.
	Name() string
	TranslateBatch(ctx context.Context, sourceLang, targetLang string, texts []string, reqCtx *RequestContext) (map[string]string, error)
}

// UsageStats are cumulative token counts for a service.
type UsageStats struct {
	InputTokens  int64
	OutputTokens int64
}

// Add accumulates other into s.
func (s *UsageStats) Add(other UsageStats) {
	s.InputTokens += other.InputTokens
	s.OutputTokens += other.OutputTokens
}

// UsageReporter is implemented by services that track token usage.
type UsageReporter interface {
	Usage() UsageStats
}

// usageCounter is the shared mutex-guarded accumulator embedded by
// providers.
type usageCounter struct {
	mu    sync.Mutex
	stats UsageStats
}

func (u *usageCounter) add(in, out int64) {
	u.mu.Lock()
	u.stats.InputTokens += in
	u.stats.OutputTokens += out
	u.mu.Unlock()
}

// Usage returns the accumulated token counts.
func (u *usageCounter) Usage() UsageStats {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.stats
}
