package translate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrorKind classifies a provider failure, which decides retry and
// fallback behavior in the chain.
type ErrorKind int

const (
	// KindNetworkError: transport failure or per-call timeout. Retried.
	KindNetworkError ErrorKind = iota
	// KindRateLimited: HTTP 429. Retried with backoff.
	KindRateLimited
	// KindServiceUnavailable: 5xx, or an unusable model response. Retried.
	KindServiceUnavailable
	// KindAuthFailed: 401/403. Never retried. Falls through to the next
	// provider immediately, a bad key won't become valid.
	KindAuthFailed
	// KindQuotaExceeded: 402 or an exhausted-quota body. Falls through
	// immediately.
	KindQuotaExceeded
	// KindInvalidRequest: 4xx indicating a caller bug. Surfaced
	// immediately, no retry, no fallback.
	KindInvalidRequest
)

func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate limited"
	case KindAuthFailed:
		return "authentication failed"
	case KindQuotaExceeded:
		return "quota exceeded"
	case KindServiceUnavailable:
		return "service unavailable"
	case KindInvalidRequest:
		return "invalid request"
	default:
		return "network error"
	}
}

// Retryable reports whether the same provider should be retried.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindRateLimited, KindServiceUnavailable, KindNetworkError:
		return true
	}
	return false
}

// ProviderError is a classified failure from one provider call.
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Status   int // HTTP status when applicable, 0 otherwise
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (HTTP %d): %v", e.Provider, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// classifyStatus maps an HTTP status to an ErrorKind. Quota exhaustion is
// also recognized from common response-body phrasings since several vendors
// report it behind a generic 429 or 403.
func classifyStatus(status int, body string) ErrorKind {
	lower := strings.ToLower(body)
	quota := strings.Contains(lower, "quota") || strings.Contains(lower, "insufficient_quota") ||
		strings.Contains(lower, "billing")

	switch {
	case status == http.StatusTooManyRequests:
		if quota {
			return KindQuotaExceeded
		}
		return KindRateLimited
	case status == http.StatusUnauthorized:
		return KindAuthFailed
	case status == http.StatusForbidden:
		if quota {
			return KindQuotaExceeded
		}
		return KindAuthFailed
	case status == http.StatusPaymentRequired:
		return KindQuotaExceeded
	case status >= 500:
		return KindServiceUnavailable
	case status >= 400:
		return KindInvalidRequest
	}
	return KindNetworkError
}

// classify extracts the ErrorKind from any error returned along the call
// path. Context cancellation and deadlines count as network errors per the
// timeout contract; everything unclassified is treated as a network error
// so it stays retryable.
func classify(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindNetworkError
	}
	return KindNetworkError
}

// AllProvidersFailedError reports that every provider in the chain reached
// a terminal error for a batch.
type AllProvidersFailedError struct {
	// Terminal holds each provider's final error, keyed by provider ID.
	Terminal map[string]error
}

func (e *AllProvidersFailedError) Error() string {
	ids := make([]string, 0, len(e.Terminal))
	for id := range e.Terminal {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString("all translation providers failed:")
	for _, id := range ids {
		fmt.Fprintf(&b, "\n  %s: %v", id, e.Terminal[id])
	}
	return b.String()
}
