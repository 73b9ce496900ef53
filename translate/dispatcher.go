package translate

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/minios-linux/locsync/variables"
)

// Warning flags a translation whose placeholders do not match the
// source. The translation is still used; the caller decides whether to
// surface or reject it.
type Warning struct {
	Text        string
	Translation string
	MissingVars []string
}

// BatchResult is the outcome of one dispatched batch.
type BatchResult struct {
	// Translations maps source text to translation for every input text.
	Translations map[string]string
	// Warnings lists placeholder mismatches.
	Warnings []Warning
	// CacheHits counts inputs served from the cache.
	CacheHits int
}

// DefaultBatchSize caps how many entries go into one provider request.
// Large locales are split into chunks of this size (or the limiter's
// capacity, whichever is smaller) so a single file can never demand more
// tokens than the bucket holds.
const DefaultBatchSize = 50

// Dispatcher fronts a Service with deduplication, caching, rate
// limiting and placeholder validation. It is safe for concurrent use by
// per-locale workers sharing one limiter and cache.
type Dispatcher struct {
	service Service
	limiter *TokenBucket
	cache   *Cache
}

// NewDispatcher wires a dispatcher. limiter and cache may be nil to
// disable rate limiting or caching.
func NewDispatcher(service Service, limiter *TokenBucket, cache *Cache) *Dispatcher {
	return &Dispatcher{service: service, limiter: limiter, cache: cache}
}

// Translate resolves texts from sourceLang to targetLang. Duplicate
// inputs are sent to the provider once; uncached texts are sent in
// chunks so one request never exceeds the limiter's capacity. An
// all-cached batch makes no provider call and consumes no rate-limit
// tokens.
//
// On provider failure the partial BatchResult is returned alongside the
// error: it holds every translation resolved before the failure (cache
// hits and completed chunks), so callers can still write what they have.
func (d *Dispatcher) Translate(ctx context.Context, sourceLang, targetLang string, texts []string, reqCtx *RequestContext) (*BatchResult, error) {
	result := &BatchResult{Translations: make(map[string]string, len(texts))}
	if len(texts) == 0 {
		return result, nil
	}

	// Dedupe preserving first-seen order.
	seen := make(map[string]bool, len(texts))
	unique := make([]string, 0, len(texts))
	for _, t := range texts {
		if !seen[t] {
			seen[t] = true
			unique = append(unique, t)
		}
	}

	var pending []string
	for _, t := range unique {
		if d.cache != nil {
			if translation, ok := d.cache.Get(ctx, sourceLang, targetLang, t); ok {
				result.Translations[t] = translation
				result.CacheHits++
				continue
			}
		}
		pending = append(pending, t)
	}

	if len(pending) == 0 {
		return result, nil
	}

	// Copy before mutating: the caller's struct stays untouched.
	rc := RequestContext{}
	if reqCtx != nil {
		rc = *reqCtx
	}
	rc.PreserveVariables = true

	chunkSize := DefaultBatchSize
	if d.limiter != nil && d.limiter.Capacity() < chunkSize {
		chunkSize = d.limiter.Capacity()
	}
	if chunkSize < 1 {
		chunkSize = 1
	}

	for start := 0; start < len(pending); start += chunkSize {
		end := start + chunkSize
		if end > len(pending) {
			end = len(pending)
		}
		chunk := pending[start:end]

		if d.limiter != nil {
			if err := d.limiter.Acquire(ctx, len(chunk)); err != nil {
				return result, err
			}
		}

		translated, err := d.service.TranslateBatch(ctx, sourceLang, targetLang, chunk, &rc)
		if err != nil {
			return result, err
		}

		for _, t := range chunk {
			translation, ok := translated[t]
			if !ok {
				// A dropped entry stays untranslated, the batch still succeeds.
				logrus.WithField("text", truncate(t, 60)).Debug("provider returned no translation for entry")
				continue
			}
			if !variables.ValidatePreservation(t, translation) {
				result.Warnings = append(result.Warnings, Warning{
					Text:        t,
					Translation: translation,
					MissingVars: variables.Missing(t, translation),
				})
			}
			result.Translations[t] = translation
			if d.cache != nil {
				d.cache.Put(ctx, sourceLang, targetLang, t, translation)
			}
		}
	}
	return result, nil
}

// CacheHitRate reports the cache's lifetime hit rate, 0 when caching is
// disabled.
func (d *Dispatcher) CacheHitRate() float64 {
	if d.cache == nil {
		return 0
	}
	return d.cache.HitRate()
}

// Usage reports token usage when the underlying service tracks it.
func (d *Dispatcher) Usage() UsageStats {
	if r, ok := d.service.(UsageReporter); ok {
		return r.Usage()
	}
	return UsageStats{}
}
