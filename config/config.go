// Package config loads .locsync.yaml and resolves the effective run
// configuration. When the file exists it is the sole source of truth
// for targets; otherwise a single target covering the working directory
// is assumed. API keys are never stored in the file directly: they come
// from the environment or the credentials store, the file may only name
// which env variable to read.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/minios-linux/locsync/langmeta"
	"github.com/minios-linux/locsync/translate"
)

// FileName is the project config file name.
const FileName = ".locsync.yaml"

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// Config is the top-level .locsync.yaml structure.
type Config struct {
	// SourceLang is the primary locale whose key set defines every other
	// file (default "en").
	SourceLang string `yaml:"source_lang,omitempty"`
	// Languages is the default target language list for all targets.
	Languages []string `yaml:"languages,omitempty"`
	// Targets lists the locale directories to synchronize.
	Targets []Target `yaml:"targets"`

	// Description is free-text project context refined into translation
	// guidance before the first batch.
	Description string `yaml:"description,omitempty"`
	// Domain and Tone are passed to providers verbatim.
	Domain string `yaml:"domain,omitempty"`
	Tone   string `yaml:"tone,omitempty"`
	// QualityThreshold is the refinement score below which a warning is
	// printed (default 5).
	QualityThreshold int `yaml:"quality_threshold,omitempty"`

	// Providers overrides or extends the built-in provider table. Order
	// is the fallback order.
	Providers []translate.ProviderConfig `yaml:"providers,omitempty"`

	Cache       CacheConfig     `yaml:"cache,omitempty"`
	RateLimit   RateLimitConfig `yaml:"rate_limit,omitempty"`
	Concurrency int             `yaml:"concurrency,omitempty"`
}

// Target describes one directory of locale files named <lang>.<ext>.
type Target struct {
	// Name is a human-readable label shown in status/logs.
	Name string `yaml:"name"`
	// Dir is the locale directory relative to the project root.
	Dir string `yaml:"dir"`
	// Languages overrides the global target language list.
	Languages []string `yaml:"languages,omitempty"`
	// Prompt is appended to the translation instructions for this target.
	Prompt string `yaml:"prompt,omitempty"`
}

// CacheConfig controls the translation cache tiers.
type CacheConfig struct {
	// Disabled turns off both cache tiers.
	Disabled bool `yaml:"disabled,omitempty"`
	// TTL is the entry lifetime (default 720h).
	TTL translate.Duration `yaml:"ttl,omitempty"`
	// Capacity bounds the in-memory tier (default 10000 entries).
	Capacity int `yaml:"capacity,omitempty"`
	// Path overrides the SQLite database location.
	Path string `yaml:"path,omitempty"`
}

// RateLimitConfig shapes the shared token bucket.
type RateLimitConfig struct {
	// Burst is the bucket capacity (default 60).
	Burst int `yaml:"burst,omitempty"`
	// PerSecond is the refill rate (default 1.0).
	PerSecond float64 `yaml:"per_second,omitempty"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads .locsync.yaml from rootDir and applies defaults and
// environment overrides. A missing file yields the default config with a
// single target covering rootDir itself.
func Load(rootDir string) (*Config, error) {
	var cfg Config

	path := filepath.Join(rootDir, FileName)
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		cfg.Targets = []Target{{Name: filepath.Base(rootDir), Dir: "."}}
	case err != nil:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	cfg.applyDefaults()
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.SourceLang == "" {
		c.SourceLang = "en"
	}
	if c.QualityThreshold == 0 {
		c.QualityThreshold = 5
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = translate.Duration(720 * time.Hour)
	}
	if c.Cache.Capacity == 0 {
		c.Cache.Capacity = 10000
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 60
	}
	if c.RateLimit.PerSecond == 0 {
		c.RateLimit.PerSecond = 1.0
	}
	if c.Concurrency == 0 {
		c.Concurrency = 4
	}

	for i := range c.Targets {
		t := &c.Targets[i]
		if t.Dir == "" {
			t.Dir = "."
		}
		if len(t.Languages) == 0 {
			t.Languages = c.Languages
		}
	}
}

func (c *Config) validate(path string) error {
	if len(c.Targets) == 0 {
		return fmt.Errorf("%s: no targets declared", path)
	}
	for i, t := range c.Targets {
		if t.Name == "" {
			return fmt.Errorf("%s: target #%d has no name", path, i+1)
		}
		for _, lang := range t.Languages {
			if !langmeta.Valid(lang) {
				return fmt.Errorf("%s: target %q: unrecognized language code %q", path, t.Name, lang)
			}
		}
	}
	if !langmeta.Valid(c.SourceLang) {
		return fmt.Errorf("%s: unrecognized source language %q", path, c.SourceLang)
	}
	for _, p := range c.Providers {
		if p.ID == "" {
			return fmt.Errorf("%s: provider entry has no id", path)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Target resolution
// ---------------------------------------------------------------------------

// localeExtensions are the file extensions recognized as locale files
// when auto-detecting a target's languages.
var localeExtensions = []string{".json", ".ftl"}

// ResolvedTarget is a target with absolute paths and a concrete
// language list.
type ResolvedTarget struct {
	Target  Target
	AbsDir  string
	Primary string
	// Languages are the target locales, source excluded, normalized.
	Languages []string
}

// Resolve expands targets against projectRoot. Targets without an
// explicit language list get the locales found on disk.
func (c *Config) Resolve(projectRoot string) ([]ResolvedTarget, error) {
	absRoot, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, err
	}

	source := langmeta.Normalize(c.SourceLang)
	resolved := make([]ResolvedTarget, 0, len(c.Targets))
	for _, t := range c.Targets {
		absDir := filepath.Join(absRoot, t.Dir)

		langs := t.Languages
		if len(langs) == 0 {
			langs = DetectLanguages(absDir)
		}

		seen := make(map[string]bool, len(langs))
		var targets []string
		for _, lang := range langs {
			norm := langmeta.Normalize(lang)
			if norm == source || seen[norm] {
				continue
			}
			seen[norm] = true
			targets = append(targets, norm)
		}

		resolved = append(resolved, ResolvedTarget{
			Target:    t,
			AbsDir:    absDir,
			Primary:   source,
			Languages: targets,
		})
	}
	return resolved, nil
}

// DetectLanguages scans dir for files named <lang>.<ext> with a
// recognized extension and a valid language code.
func DetectLanguages(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var langs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if !isLocaleExtension(ext) {
			continue
		}
		lang := strings.TrimSuffix(name, filepath.Ext(name))
		if langmeta.Valid(lang) {
			langs = append(langs, lang)
		}
	}
	sort.Strings(langs)
	return langs
}

func isLocaleExtension(ext string) bool {
	for _, e := range localeExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// LocalePath returns the locale file path for lang inside the target,
// matching the primary file's extension.
func (rt *ResolvedTarget) LocalePath(lang, ext string) string {
	return filepath.Join(rt.AbsDir, lang+ext)
}

// PrimaryPath finds the primary locale file inside the target, trying
// each recognized extension. Returns "" when absent.
func (rt *ResolvedTarget) PrimaryPath() string {
	return rt.ExistingLocalePath(rt.Primary)
}

// ExistingLocalePath finds the on-disk locale file for lang, trying each
// recognized extension. Returns "" when absent.
func (rt *ResolvedTarget) ExistingLocalePath(lang string) string {
	for _, ext := range localeExtensions {
		path := filepath.Join(rt.AbsDir, lang+ext)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ---------------------------------------------------------------------------
// Provider resolution
// ---------------------------------------------------------------------------

// ResolveProviders merges the config's provider entries over the
// built-in table and fills credentials. Key precedence per provider:
// value already in the entry, then environment, then lookup (the
// credentials store). Providers that still lack a key are dropped,
// except Ollama which needs none. Order follows the config when given,
// the built-in table otherwise.
func (c *Config) ResolveProviders(lookup func(id string) string) []translate.ProviderConfig {
	builtin := make(map[string]translate.ProviderConfig)
	for _, p := range translate.DefaultProviders() {
		builtin[p.ID] = p
	}

	ordered := c.Providers
	if len(ordered) == 0 {
		ordered = translate.DefaultProviders()
	}

	var out []translate.ProviderConfig
	for _, entry := range ordered {
		p := entry
		if base, ok := builtin[p.ID]; ok {
			if p.Name == "" {
				p.Name = base.Name
			}
			if p.APIFormat == "" {
				p.APIFormat = base.APIFormat
			}
			if p.BaseURL == "" {
				p.BaseURL = base.BaseURL
			}
			if p.Model == "" {
				p.Model = base.Model
			}
		}
		if p.APIKey == "" {
			p.APIKey = envAPIKey(p.ID)
		}
		if p.APIKey == "" && lookup != nil {
			p.APIKey = lookup(p.ID)
		}
		if p.APIKey == "" && p.APIFormat != translate.FormatOllama {
			continue
		}
		out = append(out, p)
	}
	return out
}

// RequestContext builds the prompt guidance shared by every batch of a
// run. refined, when non-empty, is the refiner's output.
func (c *Config) RequestContext(refined string) *translate.RequestContext {
	instructions := refined
	if instructions == "" {
		instructions = strings.TrimSpace(c.Description)
	}
	return &translate.RequestContext{
		Domain:             c.Domain,
		Tone:               c.Tone,
		PreserveVariables:  true,
		CustomInstructions: instructions,
	}
}
