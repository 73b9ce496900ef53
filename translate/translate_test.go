// Package translate contains tests for the translation dispatch layer.
package translate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// parseTranslations
// ---------------------------------------------------------------------------

func TestParseTranslations_PlainArray(t *testing.T) {
	got, err := parseTranslations(`["Hallo", "Welt"]`, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0] != "Hallo" || got[1] != "Welt" {
		t.Errorf("got %v", got)
	}
}

func TestParseTranslations_MarkdownFence(t *testing.T) {
	content := "```json\n[\"Hallo\", \"Welt\"]\n```"
	got, err := parseTranslations(content, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0] != "Hallo" {
		t.Errorf("got %v", got)
	}
}

func TestParseTranslations_SurroundingProse(t *testing.T) {
	content := `Here are the translations:
["Hallo", "Welt"]
Let me know if you need anything else.`
	got, err := parseTranslations(content, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[1] != "Welt" {
		t.Errorf("got %v", got)
	}
}

func TestParseTranslations_WrongCount(t *testing.T) {
	if _, err := parseTranslations(`["only one"]`, 2); err == nil {
		t.Error("expected count mismatch error")
	}
}

func TestParseTranslations_NotAnArray(t *testing.T) {
	if _, err := parseTranslations(`{"a": "b"}`, 1); err == nil {
		t.Error("expected parse error")
	}
}

// ---------------------------------------------------------------------------
// Prompt building
// ---------------------------------------------------------------------------

func TestBuildSystemPrompt_LanguageSubstitution(t *testing.T) {
	prompt := buildSystemPrompt("de", nil)
	if !strings.Contains(prompt, "German") {
		t.Errorf("prompt should name the target language:\n%s", prompt)
	}
	if strings.Contains(prompt, "{{targetLang}}") {
		t.Error("placeholder left unsubstituted")
	}
	if !strings.Contains(prompt, "Preserve every placeholder") {
		t.Error("variable clause missing for nil context")
	}
}

func TestBuildSystemPrompt_RequestContext(t *testing.T) {
	prompt := buildSystemPrompt("fr", &RequestContext{
		Domain:             "medical software",
		Tone:               "formal",
		PreserveVariables:  true,
		MaxLength:          40,
		CustomInstructions: "The product is called Medix.",
	})
	for _, want := range []string{"medical software", "formal", "40 characters", "Medix", "Preserve every placeholder"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildUserPrompt(t *testing.T) {
	prompt := buildUserPrompt("en", []string{"Hello", "Line one\nline two"})
	if !strings.Contains(prompt, "1. Hello") {
		t.Error("entries should be numbered from 1")
	}
	if !strings.Contains(prompt, `2. Line one\nline two`) {
		t.Error("newlines should be escaped in entries")
	}
	if !strings.Contains(prompt, "exactly 2") {
		t.Error("prompt should demand the exact count")
	}
}

func TestUnescapeFromPrompt(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"escaped newline", `line one\nline two`, "line one\nline two"},
		{"escaped backslash before n", `Path: C:\\new folder`, `Path: C:\new folder`},
		{"mixed", `a\\b\nc`, "a\\b\nc"},
		{"no escapes", "plain", "plain"},
		{"trailing backslash", `end\`, `end\`},
	}

	for _, tc := range tests {
		if got := unescapeFromPrompt(tc.in); got != tc.want {
			t.Errorf("%s: unescapeFromPrompt(%q) = %q, want %q", tc.name, tc.in, got, tc.want)
		}
	}
}

func TestEscapeRoundTrip(t *testing.T) {
	for _, s := range []string{
		"Path: C:\\new folder",
		"line one\nline two",
		"backslash \\\\ and\nnewline",
	} {
		if got := unescapeFromPrompt(escapeForPrompt(s)); got != s {
			t.Errorf("round trip of %q = %q", s, got)
		}
	}
}

// ---------------------------------------------------------------------------
// Error classification
// ---------------------------------------------------------------------------

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		body   string
		want   ErrorKind
	}{
		{http.StatusTooManyRequests, "slow down", KindRateLimited},
		{http.StatusTooManyRequests, "insufficient_quota", KindQuotaExceeded},
		{http.StatusUnauthorized, "", KindAuthFailed},
		{http.StatusForbidden, "", KindAuthFailed},
		{http.StatusForbidden, "billing hard limit reached", KindQuotaExceeded},
		{http.StatusPaymentRequired, "", KindQuotaExceeded},
		{http.StatusBadGateway, "", KindServiceUnavailable},
		{http.StatusInternalServerError, "", KindServiceUnavailable},
		{http.StatusBadRequest, "", KindInvalidRequest},
	}
	for _, tc := range tests {
		if got := classifyStatus(tc.status, tc.body); got != tc.want {
			t.Errorf("classifyStatus(%d, %q) = %v, want %v", tc.status, tc.body, got, tc.want)
		}
	}
}

func TestErrorKindRetryable(t *testing.T) {
	retryable := []ErrorKind{KindNetworkError, KindRateLimited, KindServiceUnavailable}
	terminal := []ErrorKind{KindAuthFailed, KindQuotaExceeded, KindInvalidRequest}
	for _, k := range retryable {
		if !k.Retryable() {
			t.Errorf("%v should be retryable", k)
		}
	}
	for _, k := range terminal {
		if k.Retryable() {
			t.Errorf("%v should not be retryable", k)
		}
	}
}

// ---------------------------------------------------------------------------
// TokenBucket
// ---------------------------------------------------------------------------

func TestTokenBucket_ImmediateAcquire(t *testing.T) {
	b := NewTokenBucket(10, 1)
	if err := b.Acquire(context.Background(), 10); err != nil {
		t.Fatalf("full bucket should satisfy capacity-sized request: %v", err)
	}
	if got := b.Available(); got != 0 {
		t.Errorf("Available() = %d, want 0", got)
	}
}

func TestTokenBucket_OverCapacity(t *testing.T) {
	b := NewTokenBucket(5, 1)
	if err := b.Acquire(context.Background(), 6); err == nil {
		t.Error("request above capacity should fail immediately")
	}
}

func TestTokenBucket_LazyRefill(t *testing.T) {
	current := time.Unix(1000, 0)
	b := NewTokenBucket(10, 2)
	b.now = func() time.Time { return current }

	if err := b.Acquire(context.Background(), 10); err != nil {
		t.Fatalf("drain: %v", err)
	}
	current = current.Add(3 * time.Second) // 6 tokens back
	if got := b.Available(); got != 6 {
		t.Errorf("Available() = %d, want 6", got)
	}
	current = current.Add(time.Hour)
	if got := b.Available(); got != 10 {
		t.Errorf("refill should saturate at capacity, got %d", got)
	}
}

func TestTokenBucket_AcquireCancelled(t *testing.T) {
	b := NewTokenBucket(1, 0.001)
	if err := b.Acquire(context.Background(), 1); err != nil {
		t.Fatalf("drain: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := b.Acquire(ctx, 1); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Cache
// ---------------------------------------------------------------------------

type fakeStore struct {
	entries map[string]string
	gets    int
	puts    int
	err     error
}

func newFakeStore() *fakeStore { return &fakeStore{entries: map[string]string{}} }

func (s *fakeStore) key(src, tgt, hash string) string { return src + "|" + tgt + "|" + hash }

func (s *fakeStore) Get(_ context.Context, src, tgt, hash string) (string, bool, error) {
	s.gets++
	if s.err != nil {
		return "", false, s.err
	}
	v, ok := s.entries[s.key(src, tgt, hash)]
	return v, ok, nil
}

func (s *fakeStore) Put(_ context.Context, src, tgt, hash, _, translation string) error {
	s.puts++
	if s.err != nil {
		return s.err
	}
	s.entries[s.key(src, tgt, hash)] = translation
	return nil
}

func TestCache_MemoryHit(t *testing.T) {
	c := NewCache(100, time.Hour, nil)
	ctx := context.Background()

	if _, ok := c.Get(ctx, "en", "de", "Hello"); ok {
		t.Fatal("unexpected hit on empty cache")
	}
	c.Put(ctx, "en", "de", "Hello", "Hallo")
	got, ok := c.Get(ctx, "en", "de", "Hello")
	if !ok || got != "Hallo" {
		t.Errorf("got (%q, %v), want (Hallo, true)", got, ok)
	}
	if _, ok := c.Get(ctx, "en", "fr", "Hello"); ok {
		t.Error("different target language must not hit")
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	current := time.Unix(1000, 0)
	c := NewCache(100, time.Minute, nil)
	c.now = func() time.Time { return current }
	ctx := context.Background()

	c.Put(ctx, "en", "de", "Hello", "Hallo")
	current = current.Add(2 * time.Minute)
	if _, ok := c.Get(ctx, "en", "de", "Hello"); ok {
		t.Error("expired entry should miss")
	}
}

func TestCache_CapacityEviction(t *testing.T) {
	c := NewCache(2, time.Hour, nil)
	ctx := context.Background()

	c.Put(ctx, "en", "de", "one", "eins")
	c.Put(ctx, "en", "de", "two", "zwei")
	c.Put(ctx, "en", "de", "three", "drei")

	if _, ok := c.Get(ctx, "en", "de", "one"); ok {
		t.Error("oldest entry should have been evicted")
	}
	if _, ok := c.Get(ctx, "en", "de", "three"); !ok {
		t.Error("newest entry should survive")
	}
}

func TestCache_StoreFallback(t *testing.T) {
	store := newFakeStore()
	c := NewCache(100, time.Hour, store)
	ctx := context.Background()

	c.Put(ctx, "en", "de", "Hello", "Hallo")
	if store.puts != 1 {
		t.Fatalf("store.puts = %d, want 1", store.puts)
	}

	// Fresh memory tier, same store: the durable tier serves the hit and
	// repopulates memory.
	c2 := NewCache(100, time.Hour, store)
	got, ok := c2.Get(ctx, "en", "de", "Hello")
	if !ok || got != "Hallo" {
		t.Fatalf("got (%q, %v), want (Hallo, true)", got, ok)
	}
	if _, ok := c2.Get(ctx, "en", "de", "Hello"); !ok {
		t.Fatal("second lookup should hit")
	}
	if store.gets != 1 {
		t.Errorf("store.gets = %d, want 1 (memory tier should absorb the second lookup)", store.gets)
	}
}

func TestCache_StoreErrorIsSoft(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("disk on fire")
	c := NewCache(100, time.Hour, store)
	ctx := context.Background()

	c.Put(ctx, "en", "de", "Hello", "Hallo")
	got, ok := c.Get(ctx, "en", "de", "Hello")
	if !ok || got != "Hallo" {
		t.Errorf("memory tier should still serve despite store errors, got (%q, %v)", got, ok)
	}
}

func TestCache_HitRate(t *testing.T) {
	c := NewCache(100, time.Hour, nil)
	ctx := context.Background()

	c.Put(ctx, "en", "de", "Hello", "Hallo")
	c.Get(ctx, "en", "de", "Hello")
	c.Get(ctx, "en", "de", "missing")
	if got := c.HitRate(); got != 0.5 {
		t.Errorf("HitRate() = %v, want 0.5", got)
	}
}

// ---------------------------------------------------------------------------
// FallbackChain
// ---------------------------------------------------------------------------

// fakeProvider fails with err for failUntil calls, then echoes each text
// prefixed with its name.
type fakeProvider struct {
	name      string
	err       error
	failUntil int
	calls     int
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) TranslateBatch(_ context.Context, _, _ string, texts []string, _ *RequestContext) (map[string]string, error) {
	p.calls++
	if p.calls <= p.failUntil {
		return nil, p.err
	}
	out := make(map[string]string, len(texts))
	for _, t := range texts {
		out[t] = p.name + ":" + t
	}
	return out, nil
}

func noSleep(context.Context, time.Duration) error { return nil }

func TestFallbackChain_FirstProviderSucceeds(t *testing.T) {
	a := &fakeProvider{name: "a"}
	b := &fakeProvider{name: "b"}
	chain := NewFallbackChain([]Service{a, b})
	chain.sleep = noSleep

	got, err := chain.TranslateBatch(context.Background(), "en", "de", []string{"x"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["x"] != "a:x" {
		t.Errorf("got %q", got["x"])
	}
	if b.calls != 0 {
		t.Errorf("second provider called %d times, want 0", b.calls)
	}
}

func TestFallbackChain_AuthFailureSkipsRetries(t *testing.T) {
	a := &fakeProvider{
		name:      "a",
		failUntil: 100,
		err:       &ProviderError{Provider: "a", Kind: KindAuthFailed, Status: 401, Err: errors.New("bad key")},
	}
	b := &fakeProvider{name: "b"}
	chain := NewFallbackChain([]Service{a, b}, WithMaxRetries(3))
	chain.sleep = noSleep

	got, err := chain.TranslateBatch(context.Background(), "en", "de", []string{"x"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.calls != 1 {
		t.Errorf("auth failure should not be retried, provider called %d times", a.calls)
	}
	if got["x"] != "b:x" {
		t.Errorf("got %q, want fallback result", got["x"])
	}
}

func TestFallbackChain_RetryableRecovery(t *testing.T) {
	a := &fakeProvider{
		name:      "a",
		failUntil: 2,
		err:       &ProviderError{Provider: "a", Kind: KindRateLimited, Status: 429, Err: errors.New("slow down")},
	}
	chain := NewFallbackChain([]Service{a}, WithMaxRetries(2))
	chain.sleep = noSleep

	got, err := chain.TranslateBatch(context.Background(), "en", "de", []string{"x"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.calls != 3 {
		t.Errorf("provider called %d times, want 3", a.calls)
	}
	if got["x"] != "a:x" {
		t.Errorf("got %q", got["x"])
	}
}

func TestFallbackChain_InvalidRequestSurfacesImmediately(t *testing.T) {
	a := &fakeProvider{
		name:      "a",
		failUntil: 100,
		err:       &ProviderError{Provider: "a", Kind: KindInvalidRequest, Status: 400, Err: errors.New("bad request")},
	}
	b := &fakeProvider{name: "b"}
	chain := NewFallbackChain([]Service{a, b})
	chain.sleep = noSleep

	_, err := chain.TranslateBatch(context.Background(), "en", "de", []string{"x"}, nil)
	var perr *ProviderError
	if !errors.As(err, &perr) || perr.Kind != KindInvalidRequest {
		t.Fatalf("expected invalid-request error, got %v", err)
	}
	if b.calls != 0 {
		t.Error("invalid request must not fall through to the next provider")
	}
}

func TestFallbackChain_AllProvidersFailed(t *testing.T) {
	a := &fakeProvider{
		name:      "a",
		failUntil: 100,
		err:       &ProviderError{Provider: "a", Kind: KindAuthFailed, Err: errors.New("bad key")},
	}
	b := &fakeProvider{
		name:      "b",
		failUntil: 100,
		err:       &ProviderError{Provider: "b", Kind: KindServiceUnavailable, Status: 503, Err: errors.New("down")},
	}
	chain := NewFallbackChain([]Service{a, b}, WithMaxRetries(1))
	chain.sleep = noSleep

	_, err := chain.TranslateBatch(context.Background(), "en", "de", []string{"x"}, nil)
	var all *AllProvidersFailedError
	if !errors.As(err, &all) {
		t.Fatalf("expected AllProvidersFailedError, got %v", err)
	}
	if len(all.Terminal) != 2 {
		t.Errorf("Terminal has %d entries, want 2", len(all.Terminal))
	}
	if b.calls != 2 {
		t.Errorf("retryable provider called %d times, want 2", b.calls)
	}
	msg := err.Error()
	if !strings.Contains(msg, "a:") || !strings.Contains(msg, "b:") {
		t.Errorf("message should name both providers:\n%s", msg)
	}
}

func TestFallbackChain_EmptyInput(t *testing.T) {
	a := &fakeProvider{name: "a"}
	chain := NewFallbackChain([]Service{a})

	got, err := chain.TranslateBatch(context.Background(), "en", "de", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 || a.calls != 0 {
		t.Error("empty input must not reach any provider")
	}
}

// ---------------------------------------------------------------------------
// Dispatcher
// ---------------------------------------------------------------------------

func TestDispatcher_CacheAvoidsSecondCall(t *testing.T) {
	p := &fakeProvider{name: "p"}
	d := NewDispatcher(p, nil, NewCache(100, time.Hour, nil))
	ctx := context.Background()

	first, err := d.Translate(ctx, "en", "de", []string{"Hello"}, nil)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if first.CacheHits != 0 || first.Translations["Hello"] != "p:Hello" {
		t.Fatalf("first = %+v", first)
	}

	second, err := d.Translate(ctx, "en", "de", []string{"Hello"}, nil)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if second.CacheHits != 1 {
		t.Errorf("CacheHits = %d, want 1", second.CacheHits)
	}
	if p.calls != 1 {
		t.Errorf("provider called %d times, want 1", p.calls)
	}
}

func TestDispatcher_DeduplicatesInput(t *testing.T) {
	var sent []string
	p := &capturingProvider{fn: func(texts []string) { sent = texts }}
	d := NewDispatcher(p, nil, nil)

	result, err := d.Translate(context.Background(), "en", "de", []string{"a", "b", "a"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sent) != 2 {
		t.Errorf("sent %v, want 2 unique texts", sent)
	}
	if result.Translations["a"] == "" || result.Translations["b"] == "" {
		t.Errorf("result = %+v", result.Translations)
	}
}

func TestDispatcher_EmptyInput(t *testing.T) {
	p := &fakeProvider{name: "p"}
	d := NewDispatcher(p, NewTokenBucket(1, 0.0001), nil)

	result, err := d.Translate(context.Background(), "en", "de", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Translations) != 0 || p.calls != 0 {
		t.Error("empty input must not call the provider or take tokens")
	}
}

func TestDispatcher_PlaceholderWarning(t *testing.T) {
	p := &mappingProvider{out: map[string]string{
		"Hello {{name}}": "Hallo",         // placeholder dropped
		"Bye {{name}}":   "Tschüss {{name}}",
	}}
	d := NewDispatcher(p, nil, nil)

	result, err := d.Translate(context.Background(), "en", "de", []string{"Hello {{name}}", "Bye {{name}}"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("got %d warnings, want 1: %+v", len(result.Warnings), result.Warnings)
	}
	w := result.Warnings[0]
	if w.Text != "Hello {{name}}" {
		t.Errorf("warning for %q", w.Text)
	}
	if len(w.MissingVars) != 1 || w.MissingVars[0] != "{{name}}" {
		t.Errorf("MissingVars = %v", w.MissingVars)
	}
	// The flagged translation is still returned.
	if result.Translations["Hello {{name}}"] != "Hallo" {
		t.Errorf("Translations = %v", result.Translations)
	}
}

func TestDispatcher_TokenAccounting(t *testing.T) {
	p := &fakeProvider{name: "p"}
	bucket := NewTokenBucket(10, 0.0001)
	d := NewDispatcher(p, bucket, nil)

	if _, err := d.Translate(context.Background(), "en", "de", []string{"a", "b", "c"}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := bucket.Available(); got != 7 {
		t.Errorf("Available() = %d, want 7", got)
	}
}

func TestDispatcher_ChunksBatchesAboveBucketCapacity(t *testing.T) {
	var sizes []int
	p := &capturingProvider{fn: func(texts []string) { sizes = append(sizes, len(texts)) }}
	// Fast refill keeps the second chunk's Acquire from stalling the test.
	d := NewDispatcher(p, NewTokenBucket(60, 100000), nil)

	texts := make([]string, 61)
	for i := range texts {
		texts[i] = fmt.Sprintf("entry %d", i)
	}

	result, err := d.Translate(context.Background(), "en", "de", texts, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Translations) != 61 {
		t.Fatalf("got %d translations, want 61", len(result.Translations))
	}
	if len(sizes) != 2 || sizes[0] != DefaultBatchSize || sizes[1] != 11 {
		t.Errorf("chunk sizes = %v, want [%d 11]", sizes, DefaultBatchSize)
	}
}

func TestDispatcher_ChunkSizeClampedToCapacity(t *testing.T) {
	var sizes []int
	p := &capturingProvider{fn: func(texts []string) { sizes = append(sizes, len(texts)) }}
	d := NewDispatcher(p, NewTokenBucket(2, 100000), nil)

	result, err := d.Translate(context.Background(), "en", "de", []string{"a", "b", "c", "d", "e"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Translations) != 5 {
		t.Fatalf("got %d translations, want 5", len(result.Translations))
	}
	for i, n := range sizes {
		if n > 2 {
			t.Errorf("chunk %d has %d entries, exceeds bucket capacity 2", i, n)
		}
	}
}

func TestDispatcher_PartialResultOnProviderFailure(t *testing.T) {
	cache := NewCache(100, time.Hour, nil)
	cache.Put(context.Background(), "en", "de", "Hello", "Hallo")

	p := &fakeProvider{name: "p", err: errors.New("401 unauthorized"), failUntil: 100}
	d := NewDispatcher(p, nil, cache)

	result, err := d.Translate(context.Background(), "en", "de", []string{"Hello", "World"}, nil)
	if err == nil {
		t.Fatal("expected an error from the failing provider")
	}
	if result == nil {
		t.Fatal("partial result must be returned alongside the error")
	}
	if result.Translations["Hello"] != "Hallo" {
		t.Errorf("cached translation lost: %+v", result.Translations)
	}
	if result.CacheHits != 1 {
		t.Errorf("CacheHits = %d, want 1", result.CacheHits)
	}
}

func TestDispatcher_DoesNotMutateRequestContext(t *testing.T) {
	var got RequestContext
	p := &contextProvider{fn: func(rc *RequestContext) { got = *rc }}
	d := NewDispatcher(p, nil, nil)

	reqCtx := &RequestContext{Domain: "medical"}
	if _, err := d.Translate(context.Background(), "en", "de", []string{"Hello"}, reqCtx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.PreserveVariables || got.Domain != "medical" {
		t.Errorf("provider saw %+v", got)
	}
	if reqCtx.PreserveVariables {
		t.Error("caller's RequestContext was mutated")
	}
}

// contextProvider records the request context it receives and echoes the
// texts back.
type contextProvider struct {
	fn func(rc *RequestContext)
}

func (p *contextProvider) Name() string { return "context" }

func (p *contextProvider) TranslateBatch(_ context.Context, _, _ string, texts []string, reqCtx *RequestContext) (map[string]string, error) {
	p.fn(reqCtx)
	out := make(map[string]string, len(texts))
	for _, t := range texts {
		out[t] = t
	}
	return out, nil
}

// capturingProvider records the texts it receives and echoes them back.
type capturingProvider struct {
	fn func(texts []string)
}

func (p *capturingProvider) Name() string { return "capturing" }

func (p *capturingProvider) TranslateBatch(_ context.Context, _, _ string, texts []string, _ *RequestContext) (map[string]string, error) {
	p.fn(texts)
	out := make(map[string]string, len(texts))
	for _, t := range texts {
		out[t] = "!" + t
	}
	return out, nil
}

// mappingProvider returns a fixed translation table.
type mappingProvider struct {
	out map[string]string
}

func (p *mappingProvider) Name() string { return "mapping" }

func (p *mappingProvider) TranslateBatch(_ context.Context, _, _ string, texts []string, _ *RequestContext) (map[string]string, error) {
	out := make(map[string]string, len(texts))
	for _, t := range texts {
		out[t] = p.out[t]
	}
	return out, nil
}
