// Package runner orchestrates a synchronization run: it reads the
// primary locale through the codec, diffs each target locale against it,
// dispatches missing and changed texts for translation, and writes the
// synchronized files back. Locales are processed concurrently up to a
// fan-out limit; the dispatcher's rate limiter and cache are shared
// across all of them.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/minios-linux/locsync/codec"
	"github.com/minios-linux/locsync/config"
	"github.com/minios-linux/locsync/keysync"
	"github.com/minios-linux/locsync/lockfile"
	"github.com/minios-linux/locsync/translate"
	"github.com/minios-linux/locsync/units"
)

// Runner executes sync runs. All fields must be set before Run.
type Runner struct {
	Codec      *codec.Codec
	Dispatcher *translate.Dispatcher
	Lock       *lockfile.LockFile
	// ReqCtx is the run-wide prompt guidance; per-target prompts are
	// appended to it.
	ReqCtx *translate.RequestContext
	// Concurrency caps the per-target locale fan-out (min 1).
	Concurrency int
	// DryRun computes and reports diffs without translating or writing.
	DryRun bool
}

// LocaleResult is the outcome for one (target, locale) pair.
type LocaleResult struct {
	Target     string
	Lang       string
	Path       string
	Translated int
	Removed    int
	Reused     int
	Warnings   []translate.Warning
	Skipped    bool
	Err        error
}

// Summary aggregates a whole run.
type Summary struct {
	RunID        string
	Results      []LocaleResult
	CacheHitRate float64
	Usage        translate.UsageStats
}

// WarningCount totals variable-preservation warnings across locales.
func (s *Summary) WarningCount() int {
	n := 0
	for _, r := range s.Results {
		n += len(r.Warnings)
	}
	return n
}

// FailureCount totals locales that ended in an error.
func (s *Summary) FailureCount() int {
	n := 0
	for _, r := range s.Results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// Run synchronizes every locale of every target. It returns an error
// only for run-fatal conditions: a missing or malformed primary file.
// Per-locale failures are recorded in the summary and the run continues.
func (r *Runner) Run(ctx context.Context, targets []config.ResolvedTarget) (*Summary, error) {
	summary := &Summary{RunID: uuid.NewString()}
	log := logrus.WithField("run", summary.RunID)

	for _, rt := range targets {
		primaryPath := rt.PrimaryPath()
		if primaryPath == "" {
			return nil, fmt.Errorf("target %q: no %s locale file in %s", rt.Target.Name, rt.Primary, rt.AbsDir)
		}

		content, err := os.ReadFile(primaryPath)
		if err != nil {
			return nil, fmt.Errorf("target %q: reading primary: %w", rt.Target.Name, err)
		}
		primary, err := r.Codec.Parse(primaryPath, content)
		if err != nil {
			return nil, fmt.Errorf("target %q: %w", rt.Target.Name, err)
		}

		langs := rt.Languages
		if len(langs) == 0 {
			log.WithField("target", rt.Target.Name).Warn("no target languages resolved, nothing to do")
			continue
		}

		log.WithFields(logrus.Fields{
			"target":  rt.Target.Name,
			"primary": primaryPath,
			"keys":    primary.Len(),
			"locales": len(langs),
		}).Debug("target loaded")

		results := r.syncTarget(ctx, rt, primary, primaryPath, langs)
		summary.Results = append(summary.Results, results...)

		if ctx.Err() != nil {
			break
		}
	}

	if r.Dispatcher != nil {
		summary.CacheHitRate = r.Dispatcher.CacheHitRate()
		summary.Usage = r.Dispatcher.Usage()
	}
	return summary, nil
}

// syncTarget fans the target's locales out over a worker pool.
func (r *Runner) syncTarget(ctx context.Context, rt config.ResolvedTarget, primary *units.Map, primaryPath string, langs []string) []LocaleResult {
	limit := r.Concurrency
	if limit < 1 {
		limit = 1
	}

	results := make([]LocaleResult, len(langs))
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for i, lang := range langs {
		wg.Add(1)
		go func(i int, lang string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				results[i] = LocaleResult{Target: rt.Target.Name, Lang: lang, Skipped: true, Err: ctx.Err()}
				return
			}
			results[i] = r.syncLocale(ctx, rt, primary, primaryPath, lang)
		}(i, lang)
	}
	wg.Wait()
	return results
}

// syncLocale runs the diff/translate/serialize sequence for one locale.
func (r *Runner) syncLocale(ctx context.Context, rt config.ResolvedTarget, primary *units.Map, primaryPath, lang string) LocaleResult {
	res := LocaleResult{Target: rt.Target.Name, Lang: lang}
	log := logrus.WithFields(logrus.Fields{"target": rt.Target.Name, "lang": lang})

	targetPath := rt.ExistingLocalePath(lang)
	if targetPath == "" {
		targetPath = rt.LocalePath(lang, filepath.Ext(primaryPath))
	}
	res.Path = targetPath

	target, err := r.readTarget(targetPath)
	if err != nil {
		var unsupported *codec.UnsupportedFormatError
		if errors.As(err, &unsupported) {
			log.Debug("unrecognized file, skipping locale")
			res.Skipped = true
			return res
		}
		res.Err = err
		return res
	}

	lockKey := lockfile.TargetKey(targetPath)

	// Changed primary texts behind existing keys are dropped from the
	// working copy so they land in the translate set.
	work := target
	if target != nil && r.Lock != nil && r.Lock.HasTarget(lockKey) {
		contents := make(map[string]string, primary.Len())
		for _, key := range primary.Keys() {
			text, _ := primary.Get(key)
			contents[key] = lockfile.EntryContent(key, text)
		}
		changed := r.Lock.FilterChanged(lockKey, contents)
		if len(changed) > 0 {
			work = target.Clone()
			for key := range changed {
				if work.Has(key) {
					work.Delete(key)
				}
			}
		}
	}

	diff := keysync.Compute(primary, work)
	res.Removed = len(diff.ToRemove)
	res.Reused = len(diff.Unchanged)

	if diff.Empty() {
		log.Debug("already synchronized")
		if !r.DryRun {
			r.recordLock(lockKey, primary)
		}
		return res
	}

	log.WithFields(logrus.Fields{
		"translate": len(diff.ToTranslate),
		"remove":    len(diff.ToRemove),
		"keep":      len(diff.Unchanged),
	}).Debug("diff computed")

	if r.DryRun {
		res.Translated = len(diff.ToTranslate)
		return res
	}

	translations := map[string]string{}
	if len(diff.ToTranslate) > 0 {
		texts := make([]string, 0, len(diff.ToTranslate))
		byText := make(map[string][]string, len(diff.ToTranslate))
		for _, key := range diff.ToTranslate {
			text, _ := primary.Get(key)
			if _, seen := byText[text]; !seen {
				texts = append(texts, text)
			}
			byText[text] = append(byText[text], key)
		}

		batch, err := r.Dispatcher.Translate(ctx, rt.Primary, lang, texts, r.requestContext(rt))
		if batch != nil {
			res.Warnings = batch.Warnings
			for text, keys := range byText {
				translated, ok := batch.Translations[text]
				if !ok {
					continue
				}
				for _, key := range keys {
					translations[key] = translated
					res.Translated++
				}
			}
		}
		if err != nil {
			res.Err = fmt.Errorf("translating to %s: %w", lang, err)
			if len(translations) == 0 && target == nil {
				return res
			}
			// Fall through: entries resolved from the cache before the
			// failure are still written.
		}
	}

	merged := keysync.Apply(primary, work, translations)
	if res.Err != nil {
		// Entries the provider never delivered keep their previous
		// translation when one exists, so a failed batch cannot erase
		// a stale-but-present value.
		merged = units.New()
		for _, k := range primary.Keys() {
			if v, ok := translations[k]; ok {
				merged.Set(k, v)
				continue
			}
			if work != nil {
				if v, ok := work.Get(k); ok {
					merged.Set(k, v)
					continue
				}
			}
			if target != nil {
				if v, ok := target.Get(k); ok {
					merged.Set(k, v)
				}
			}
		}
	}

	if ctx.Err() != nil {
		res.Skipped = true
		res.Err = ctx.Err()
		return res
	}

	out, err := r.Codec.Serialize(targetPath, merged)
	if err != nil {
		res.Err = err
		return res
	}
	if err := writeFileAtomic(targetPath, out); err != nil {
		res.Err = err
		return res
	}

	// A failed batch keeps its old checksums so the missed keys are
	// retried next run.
	if res.Err == nil {
		r.recordLock(lockKey, primary)
	}
	log.WithFields(logrus.Fields{
		"translated": res.Translated,
		"removed":    res.Removed,
	}).Debug("locale written")
	return res
}

// readTarget parses the target locale file, tolerating absence.
func (r *Runner) readTarget(path string) (*units.Map, error) {
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.Codec.Parse(path, content)
}

// recordLock refreshes the checksum history for a target file against
// the current primary texts.
func (r *Runner) recordLock(lockKey string, primary *units.Map) {
	if r.Lock == nil {
		return
	}
	entries := make(map[string]string, primary.Len())
	for _, key := range primary.Keys() {
		text, _ := primary.Get(key)
		entries[key] = lockfile.EntryContent(key, text)
	}
	r.Lock.UpdateBatch(lockKey, entries)
	r.Lock.Clean(lockKey, primary.Keys())
}

// requestContext merges the run-wide guidance with the target's prompt.
func (r *Runner) requestContext(rt config.ResolvedTarget) *translate.RequestContext {
	base := r.ReqCtx
	if base == nil {
		base = &translate.RequestContext{}
	}
	if rt.Target.Prompt == "" {
		out := *base
		return &out
	}
	out := *base
	if out.CustomInstructions != "" {
		out.CustomInstructions = strings.TrimSpace(out.CustomInstructions) + "\n\n" + rt.Target.Prompt
	} else {
		out.CustomInstructions = rt.Target.Prompt
	}
	return &out
}

// writeFileAtomic writes data via a temp file and rename, so a
// cancelled or failed run never leaves a half-written locale file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
