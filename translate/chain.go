package translate

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// FallbackChain tries providers in order. Retryable failures are retried
// on the same provider with exponential backoff before moving on; auth
// and quota failures skip straight to the next provider; invalid
// requests surface immediately since every provider would reject them
// the same way.
type FallbackChain struct {
	providers  []Service
	maxRetries int
	backoff    time.Duration
	sleep      func(context.Context, time.Duration) error
}

// ChainOption adjusts a FallbackChain.
type ChainOption func(*FallbackChain)

// WithMaxRetries sets the per-provider retry budget for retryable
// failures. Zero means a single attempt.
func WithMaxRetries(n int) ChainOption {
	return func(c *FallbackChain) { c.maxRetries = n }
}

// WithBackoff sets the initial retry delay. Each retry doubles it.
func WithBackoff(d time.Duration) ChainOption {
	return func(c *FallbackChain) { c.backoff = d }
}

// NewFallbackChain builds a chain over providers, first to last.
func NewFallbackChain(providers []Service, opts ...ChainOption) *FallbackChain {
	c := &FallbackChain{
		providers:  providers,
		maxRetries: 2,
		backoff:    2 * time.Second,
		sleep:      sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *FallbackChain) Name() string { return "fallback-chain" }

// TranslateBatch walks the provider list until one succeeds. If all
// providers fail it returns an AllProvidersFailedError keyed by
// provider name.
func (c *FallbackChain) TranslateBatch(ctx context.Context, sourceLang, targetLang string, texts []string, reqCtx *RequestContext) (map[string]string, error) {
	if len(texts) == 0 {
		return map[string]string{}, nil
	}
	if len(c.providers) == 0 {
		return nil, errors.New("no translation providers configured")
	}

	terminal := make(map[string]error, len(c.providers))
	for _, provider := range c.providers {
		result, err := c.tryProvider(ctx, provider, sourceLang, targetLang, texts, reqCtx)
		if err == nil {
			return result, nil
		}

		var perr *ProviderError
		if errors.As(err, &perr) && perr.Kind == KindInvalidRequest {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		terminal[provider.Name()] = err
		logrus.WithFields(logrus.Fields{
			"provider": provider.Name(),
			"error":    err,
		}).Debug("provider exhausted, falling back")
	}
	return nil, &AllProvidersFailedError{Terminal: terminal}
}

// tryProvider runs one provider with its retry budget. Non-retryable
// errors return immediately.
func (c *FallbackChain) tryProvider(ctx context.Context, provider Service, sourceLang, targetLang string, texts []string, reqCtx *RequestContext) (map[string]string, error) {
	delay := c.backoff
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			logrus.WithFields(logrus.Fields{
				"provider": provider.Name(),
				"attempt":  attempt + 1,
				"delay":    delay,
			}).Debug("retrying provider")
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
			delay *= 2
		}

		result, err := provider.TranslateBatch(ctx, sourceLang, targetLang, texts, reqCtx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		var perr *ProviderError
		if !errors.As(err, &perr) || !perr.Kind.Retryable() {
			return nil, err
		}
	}
	return nil, lastErr
}

// Usage sums usage across providers that report it.
func (c *FallbackChain) Usage() UsageStats {
	var total UsageStats
	for _, provider := range c.providers {
		if r, ok := provider.(UsageReporter); ok {
			total.Add(r.Usage())
		}
	}
	return total
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
