// Package runner contains tests for the sync orchestrator.
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/minios-linux/locsync/codec"
	"github.com/minios-linux/locsync/config"
	"github.com/minios-linux/locsync/lockfile"
	"github.com/minios-linux/locsync/translate"
)

// prefixService translates by prefixing each text with the target
// language, and counts batch calls.
type prefixService struct {
	calls int
	texts []string
}

func (s *prefixService) Name() string { return "prefix" }

func (s *prefixService) TranslateBatch(_ context.Context, _, targetLang string, texts []string, _ *translate.RequestContext) (map[string]string, error) {
	s.calls++
	s.texts = append(s.texts, texts...)
	out := make(map[string]string, len(texts))
	for _, t := range texts {
		out[t] = targetLang + ":" + t
	}
	return out, nil
}

func writeLocale(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newRunner(t *testing.T, dir string, svc translate.Service, langs []string) (*Runner, []config.ResolvedTarget) {
	t.Helper()
	lock, err := lockfile.Load(dir)
	if err != nil {
		t.Fatalf("lockfile.Load: %v", err)
	}
	r := &Runner{
		Codec:       codec.New(),
		Dispatcher:  translate.NewDispatcher(svc, nil, nil),
		Lock:        lock,
		Concurrency: 2,
	}
	targets := []config.ResolvedTarget{{
		Target:    config.Target{Name: "test", Dir: "."},
		AbsDir:    dir,
		Primary:   "en",
		Languages: langs,
	}}
	return r, targets
}

func readJSON(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	return obj
}

func TestRun_CreatesMissingLocale(t *testing.T) {
	dir := t.TempDir()
	writeLocale(t, dir, "en.json", `{"greeting":"Hello","farewell":"Bye"}`)

	svc := &prefixService{}
	r, targets := newRunner(t, dir, svc, []string{"de"})

	summary, err := r.Run(context.Background(), targets)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.FailureCount() != 0 {
		t.Fatalf("failures: %+v", summary.Results)
	}

	got := readJSON(t, filepath.Join(dir, "de.json"))
	if got["greeting"] != "de:Hello" || got["farewell"] != "de:Bye" {
		t.Errorf("de.json = %v", got)
	}
	if summary.Results[0].Translated != 2 {
		t.Errorf("Translated = %d, want 2", summary.Results[0].Translated)
	}
}

func TestRun_RemovesStaleAndKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	writeLocale(t, dir, "en.json", `{"greeting":"Hello","new":"Fresh"}`)
	writeLocale(t, dir, "de.json", `{"greeting":"Hallo","stale":"Alt"}`)

	svc := &prefixService{}
	r, targets := newRunner(t, dir, svc, []string{"de"})

	summary, err := r.Run(context.Background(), targets)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := readJSON(t, filepath.Join(dir, "de.json"))
	if got["greeting"] != "Hallo" {
		t.Errorf("existing translation should be kept, got %v", got["greeting"])
	}
	if got["new"] != "de:Fresh" {
		t.Errorf("missing key should be translated, got %v", got["new"])
	}
	if _, ok := got["stale"]; ok {
		t.Error("stale key should be removed")
	}
	if summary.Results[0].Removed != 1 || summary.Results[0].Reused != 1 {
		t.Errorf("result = %+v", summary.Results[0])
	}
	for _, text := range svc.texts {
		if text == "Hello" {
			t.Error("already-translated text must not be re-sent")
		}
	}
}

func TestRun_MissingPrimaryIsFatal(t *testing.T) {
	dir := t.TempDir()
	svc := &prefixService{}
	r, targets := newRunner(t, dir, svc, []string{"de"})

	if _, err := r.Run(context.Background(), targets); err == nil {
		t.Error("expected error for missing primary file")
	}
}

func TestRun_MalformedPrimaryIsFatal(t *testing.T) {
	dir := t.TempDir()
	writeLocale(t, dir, "en.json", `{"greeting": `)

	svc := &prefixService{}
	r, targets := newRunner(t, dir, svc, []string{"de"})

	_, err := r.Run(context.Background(), targets)
	if err == nil {
		t.Fatal("expected error for malformed primary file")
	}
	if !strings.Contains(err.Error(), "en.json") {
		t.Errorf("error should name the file: %v", err)
	}
}

func TestRun_MalformedTargetFailsLocaleOnly(t *testing.T) {
	dir := t.TempDir()
	writeLocale(t, dir, "en.json", `{"greeting":"Hello"}`)
	writeLocale(t, dir, "de.json", `{"broken": `)

	svc := &prefixService{}
	r, targets := newRunner(t, dir, svc, []string{"de", "fr"})

	summary, err := r.Run(context.Background(), targets)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.FailureCount() != 1 {
		t.Fatalf("FailureCount = %d, want 1: %+v", summary.FailureCount(), summary.Results)
	}

	// The healthy locale still completed.
	got := readJSON(t, filepath.Join(dir, "fr.json"))
	if got["greeting"] != "fr:Hello" {
		t.Errorf("fr.json = %v", got)
	}
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	dir := t.TempDir()
	writeLocale(t, dir, "en.json", `{"greeting":"Hello"}`)

	svc := &prefixService{}
	r, targets := newRunner(t, dir, svc, []string{"de"})
	r.DryRun = true

	summary, err := r.Run(context.Background(), targets)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if svc.calls != 0 {
		t.Error("dry run must not call the provider")
	}
	if _, err := os.Stat(filepath.Join(dir, "de.json")); !os.IsNotExist(err) {
		t.Error("dry run must not create files")
	}
	if summary.Results[0].Translated != 1 {
		t.Errorf("dry run should report pending translations, got %+v", summary.Results[0])
	}
}

func TestRun_ChangedPrimaryTextRetranslated(t *testing.T) {
	dir := t.TempDir()
	enPath := writeLocale(t, dir, "en.json", `{"greeting":"Hello"}`)

	svc := &prefixService{}
	r, targets := newRunner(t, dir, svc, []string{"de"})

	if _, err := r.Run(context.Background(), targets); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// Second run with an edited primary text must resend the key even
	// though de.json already has it.
	if err := os.WriteFile(enPath, []byte(`{"greeting":"Hello there"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	r2, targets2 := newRunnerSharedLock(t, dir, svc, []string{"de"}, r.Lock)
	if _, err := r2.Run(context.Background(), targets2); err != nil {
		t.Fatalf("second run: %v", err)
	}

	got := readJSON(t, filepath.Join(dir, "de.json"))
	if got["greeting"] != "de:Hello there" {
		t.Errorf("changed text should be retranslated, got %v", got["greeting"])
	}
}

func newRunnerSharedLock(t *testing.T, dir string, svc translate.Service, langs []string, lock *lockfile.LockFile) (*Runner, []config.ResolvedTarget) {
	t.Helper()
	r := &Runner{
		Codec:       codec.New(),
		Dispatcher:  translate.NewDispatcher(svc, nil, nil),
		Lock:        lock,
		Concurrency: 2,
	}
	targets := []config.ResolvedTarget{{
		Target:    config.Target{Name: "test", Dir: "."},
		AbsDir:    dir,
		Primary:   "en",
		Languages: langs,
	}}
	return r, targets
}

func TestRun_FirstRunTrustsExistingTranslations(t *testing.T) {
	dir := t.TempDir()
	writeLocale(t, dir, "en.json", `{"greeting":"Hello"}`)
	writeLocale(t, dir, "de.json", `{"greeting":"Hallo"}`)

	svc := &prefixService{}
	r, targets := newRunner(t, dir, svc, []string{"de"})

	if _, err := r.Run(context.Background(), targets); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if svc.calls != 0 {
		t.Error("with no checksum history, existing translations must be trusted")
	}
	got := readJSON(t, filepath.Join(dir, "de.json"))
	if got["greeting"] != "Hallo" {
		t.Errorf("de.json = %v", got)
	}
}

func TestRun_CancelledContextSkipsWrites(t *testing.T) {
	dir := t.TempDir()
	writeLocale(t, dir, "en.json", `{"greeting":"Hello"}`)

	svc := &prefixService{}
	r, targets := newRunner(t, dir, svc, []string{"de"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := r.Run(ctx, targets)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "de.json")); !os.IsNotExist(err) {
		t.Error("cancelled run must not write target files")
	}
	if len(summary.Results) != 1 || !summary.Results[0].Skipped {
		t.Errorf("results = %+v, want skipped locale", summary.Results)
	}
}

func TestRun_MixedFormats(t *testing.T) {
	dir := t.TempDir()
	writeLocale(t, dir, "en.ftl", "greeting = Hello\nfarewell = Bye\n")
	writeLocale(t, dir, "de.ftl", "greeting = Hallo\n")

	svc := &prefixService{}
	r, targets := newRunner(t, dir, svc, []string{"de"})

	if _, err := r.Run(context.Background(), targets); err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "de.ftl"))
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.Contains(content, "greeting = Hallo") {
		t.Errorf("existing entry lost:\n%s", content)
	}
	if !strings.Contains(content, "farewell = de:Bye") {
		t.Errorf("new entry missing:\n%s", content)
	}
}

// failingService rejects every batch.
type failingService struct {
	calls int
}

func (s *failingService) Name() string { return "failing" }

func (s *failingService) TranslateBatch(_ context.Context, _, _ string, _ []string, _ *translate.RequestContext) (map[string]string, error) {
	s.calls++
	return nil, errors.New("401 unauthorized")
}

func TestRun_ProviderFailureStillWritesCachedEntries(t *testing.T) {
	dir := t.TempDir()
	writeLocale(t, dir, "en.json", `{"greet":"Hello","other":"World","kept":"Stay"}`)
	writeLocale(t, dir, "de.json", `{"kept":"Bleib"}`)

	cache := translate.NewCache(10, 0, nil)
	cache.Put(context.Background(), "en", "de", "Hello", "Hallo")

	svc := &failingService{}
	r, targets := newRunner(t, dir, svc, []string{"de"})
	r.Dispatcher = translate.NewDispatcher(svc, nil, cache)

	summary, err := r.Run(context.Background(), targets)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.FailureCount() != 1 {
		t.Fatalf("failures = %d, want 1: %+v", summary.FailureCount(), summary.Results)
	}

	got := readJSON(t, filepath.Join(dir, "de.json"))
	if got["greet"] != "Hallo" {
		t.Errorf("cached translation not written: %v", got)
	}
	if got["kept"] != "Bleib" {
		t.Errorf("existing translation lost: %v", got)
	}
	if _, ok := got["other"]; ok {
		t.Errorf("failed entry must not appear untranslated: %v", got)
	}

	// The failed keys stay unrecorded so the next run retries them.
	lockKey := lockfile.TargetKey(filepath.Join(dir, "de.json"))
	if r.Lock.HasTarget(lockKey) {
		t.Error("lock updated despite a failed batch")
	}
}
