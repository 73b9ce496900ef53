// locsync — locale file synchronizer with AI translation support.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/minios-linux/locsync/cachestore"
	"github.com/minios-linux/locsync/codec"
	"github.com/minios-linux/locsync/config"
	"github.com/minios-linux/locsync/i18n"
	"github.com/minios-linux/locsync/keysync"
	"github.com/minios-linux/locsync/lockfile"
	"github.com/minios-linux/locsync/refine"
	"github.com/minios-linux/locsync/runner"
	"github.com/minios-linux/locsync/settings"
	"github.com/minios-linux/locsync/translate"
	"github.com/minios-linux/locsync/units"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir string
	verbose bool
)

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "locsync",
		Short: "Keep locale files synchronized with AI translation",
		Long: `locsync — locale file synchronizer with AI translation.

Keeps a directory of locale files (one primary language plus any number of
targets) structurally in sync: keys missing from a target are translated
from the primary, keys removed from the primary are dropped, and existing
translations are never resent. Supports Fluent (.ftl) and JSON locale
files, preserving key order and JSON nesting layout on rewrite (Fluent
comments and attributes are not carried over).

Commands:
  status      Show per-locale sync statistics
  sync        Translate missing keys and write target locales
  refine      Preview the refined translation context
  cache       Inspect or clear the durable translation cache
  auth        Manage provider API keys

Providers (fallback order, configured in .locsync.yaml):
  openai      OpenAI chat completions — API key
  anthropic   Anthropic messages — API key
  gemini      Google Gemini — API key
  ollama      Ollama local server — no key required`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logrus.SetOutput(os.Stderr)
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.WarnLevel)
			}
		},
	}

	// Global persistent flags — inherited by all subcommands
	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable detailed logging")

	root.AddCommand(
		newStatusCmd(),
		newSyncCmd(),
		newRefineCmd(),
		newCacheCmd(),
		newAuthCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("locsync version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}

	return cmd
}

// ---------------------------------------------------------------------------
// status (read-only: per-locale sync statistics)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show per-locale sync statistics",
		Long: `Show per-target sync statistics against the primary locale.

For every target directory, lists the primary key count and each locale's
translated, missing, and stale key counts. Does not modify any files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus()
		},
	}

	return cmd
}

func runStatus() error {
	cfg, err := config.Load(rootDir)
	if err != nil {
		return err
	}
	targets, err := cfg.Resolve(rootDir)
	if err != nil {
		return err
	}
	lock, err := lockfile.Load(rootDir)
	if err != nil {
		return err
	}

	cdc := codec.New()
	lock.HydrateRegistry(cdc.Registry)

	absRoot, _ := filepath.Abs(rootDir)
	fmt.Fprintf(os.Stderr, "\n%sProject%s\n", colorBlue, colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintf(os.Stderr, "  Root:     %s\n", absRoot)
	fmt.Fprintf(os.Stderr, "  Source:   %s\n", cfg.SourceLang)
	fmt.Fprintf(os.Stderr, "  Lock:     %s\n", lock.Summary())
	fmt.Fprintln(os.Stderr)

	for _, rt := range targets {
		fmt.Fprintf(os.Stderr, "%s%s%s (%s)\n", colorBlue, rt.Target.Name, colorReset, rt.Target.Dir)
		fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))

		primaryPath := rt.PrimaryPath()
		if primaryPath == "" {
			logWarning("no primary locale file (%s) in %s", rt.Primary, rt.AbsDir)
			fmt.Fprintln(os.Stderr)
			continue
		}
		content, err := os.ReadFile(primaryPath)
		if err != nil {
			return err
		}
		primary, err := cdc.Parse(primaryPath, content)
		if err != nil {
			return fmt.Errorf("parse %s: %w", filepath.Base(primaryPath), err)
		}

		fmt.Fprintf(os.Stderr, "  Primary:  %s (%d keys)\n\n", filepath.Base(primaryPath), primary.Len())
		fmt.Fprintf(os.Stderr, "  %-10s %-12s %-10s %-10s %-8s\n", "Lang", "Translated", "Missing", "Stale", "Percent")
		fmt.Fprintln(os.Stderr, "  "+strings.Repeat("─", 52))

		for _, lang := range rt.Languages {
			path := rt.ExistingLocalePath(lang)
			if path == "" {
				fmt.Fprintf(os.Stderr, "  %-10s %-12s %-10d %-10s %-8s\n", lang, "missing", primary.Len(), "-", "0%")
				continue
			}
			data, err := os.ReadFile(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "  %-10s %-12s %-10s %-10s %-8s\n", lang, "error", "-", "-", "-")
				continue
			}
			target, err := cdc.Parse(path, data)
			if err != nil {
				fmt.Fprintf(os.Stderr, "  %-10s %-12s %-10s %-10s %-8s\n", lang, "malformed", "-", "-", "-")
				continue
			}

			diff := keysync.Compute(primary, target)
			stale := staleCount(lock, path, primary, diff.Unchanged)
			translated := len(diff.Unchanged) - stale
			percent := 0
			if primary.Len() > 0 {
				percent = translated * 100 / primary.Len()
			}

			fmt.Fprintf(os.Stderr, "  %-10s %-12d %-10d %-10d %d%%\n",
				lang, translated, len(diff.ToTranslate), stale, percent)
		}
		fmt.Fprintln(os.Stderr)
	}

	return nil
}

// staleCount counts keys whose primary text changed since the last
// recorded sync of path. Without lock history nothing counts as stale.
func staleCount(lock *lockfile.LockFile, path string, primary *units.Map, keys []string) int {
	targetKey := lockfile.TargetKey(path)
	if !lock.HasTarget(targetKey) {
		return 0
	}
	entries := make(map[string]string, len(keys))
	for _, key := range keys {
		if text, ok := primary.Get(key); ok {
			entries[key] = lockfile.EntryContent(key, text)
		}
	}
	return len(lock.FilterChanged(targetKey, entries))
}

// ---------------------------------------------------------------------------
// sync (translate missing keys and write target locales)
// ---------------------------------------------------------------------------

func newSyncCmd() *cobra.Command {
	var (
		dryRun      bool
		noCache     bool
		noRefine    bool
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Translate missing keys and write target locales",
		Long: `Synchronize every target locale with its primary.

Missing keys are translated through the configured provider chain, keys
dropped from the primary are removed, and keys whose primary text changed
since the last run are retranslated. Existing translations are reused
untouched. Writes are atomic; an interrupted run leaves files intact.

Examples:
  # Sync everything under the current directory
  locsync sync

  # Show what would change without calling any provider
  locsync sync --dry-run

  # Skip the durable cache for this run
  locsync sync --no-cache`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), syncArgs{
				dryRun:      dryRun,
				noCache:     noCache,
				noRefine:    noRefine,
				concurrency: concurrency,
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report pending work without translating or writing")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Disable the translation cache for this run")
	cmd.Flags().BoolVar(&noRefine, "no-refine", false, "Use the project description verbatim, skip refinement")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Locale workers per target (0 = config value)")

	return cmd
}

type syncArgs struct {
	dryRun      bool
	noCache     bool
	noRefine    bool
	concurrency int
}

func runSync(ctx context.Context, a syncArgs) error {
	cfg, err := config.Load(rootDir)
	if err != nil {
		return err
	}
	targets, err := cfg.Resolve(rootDir)
	if err != nil {
		return err
	}
	lock, err := lockfile.Load(rootDir)
	if err != nil {
		return err
	}

	cdc := codec.New()
	lock.HydrateRegistry(cdc.Registry)

	// Provider chain. Dry runs never translate, so an empty chain is
	// only fatal for real runs.
	provConfigs := cfg.ResolveProviders(settings.GetAPIKey)
	if len(provConfigs) == 0 && !a.dryRun {
		logError("%s", i18n.T("No translation providers configured"))
		logInfo("Set a key with 'locsync auth set <provider> <key>' or add a providers section to %s", config.FileName)
		os.Exit(1)
	}

	var service translate.Service
	if len(provConfigs) > 0 {
		providers := make([]translate.Service, 0, len(provConfigs))
		for _, pc := range provConfigs {
			providers = append(providers, translate.NewHTTPProvider(pc))
			logrus.WithFields(logrus.Fields{"provider": pc.ID, "model": pc.Model}).Debug("provider ready")
		}
		service = translate.NewFallbackChain(providers)
	}

	limiter := translate.NewTokenBucket(cfg.RateLimit.Burst, cfg.RateLimit.PerSecond)

	// Cache tiers: in-memory always (unless disabled), SQLite underneath
	// when it opens. A broken database degrades to memory-only.
	var cache *translate.Cache
	if !cfg.Cache.Disabled && !a.noCache {
		var store translate.Store
		dbPath := cfg.Cache.Path
		if dbPath == "" {
			dbPath, err = cachestore.DefaultPath()
			if err != nil {
				dbPath = ""
			}
		}
		if dbPath != "" {
			sqlStore, err := cachestore.Open(dbPath, cfg.Cache.TTL.Std())
			if err != nil {
				logWarning("translation cache unavailable, continuing without it: %v", err)
			} else {
				defer sqlStore.Close()
				store = sqlStore
			}
		}
		cache = translate.NewCache(cfg.Cache.Capacity, cfg.Cache.TTL.Std(), store)
	}

	// Refine the project description into translation guidance before
	// the first batch.
	refined := ""
	if desc := strings.TrimSpace(cfg.Description); desc != "" && !a.noRefine && !a.dryRun && service != nil {
		res, err := refine.New(service, cfg.QualityThreshold).Refine(ctx, desc)
		if err != nil {
			logWarning("context refinement failed, using description as-is: %v", err)
		} else {
			refined = res.Refined
			if res.Score < cfg.QualityThreshold {
				logWarning("translation context scored %d/10, consider expanding the description in %s", res.Score, config.FileName)
				for _, s := range res.Suggestions {
					fmt.Fprintf(os.Stderr, "  - %s\n", s)
				}
			}
		}
	}

	concurrency := cfg.Concurrency
	if a.concurrency > 0 {
		concurrency = a.concurrency
	}

	r := &runner.Runner{
		Codec:       cdc,
		Dispatcher:  translate.NewDispatcher(service, limiter, cache),
		Lock:        lock,
		ReqCtx:      cfg.RequestContext(refined),
		Concurrency: concurrency,
		DryRun:      a.dryRun,
	}

	logInfo("%s", i18n.T("Synchronizing locale files..."))
	summary, err := r.Run(ctx, targets)
	if err != nil {
		return err
	}

	lock.CaptureRegistry(cdc.Registry)
	if !a.dryRun {
		if err := lock.Save(); err != nil {
			return err
		}
	}

	printSummary(summary, a.dryRun)

	if summary.FailureCount() > 0 {
		os.Exit(1)
	}
	return nil
}

func printSummary(s *runner.Summary, dryRun bool) {
	translated, removed, reused := 0, 0, 0
	for _, res := range s.Results {
		translated += res.Translated
		removed += res.Removed
		reused += res.Reused

		switch {
		case res.Err != nil:
			logError("%s/%s: %v", res.Target, res.Lang, res.Err)
		case res.Skipped:
			logWarning("%s/%s: skipped", res.Target, res.Lang)
		case res.Translated == 0 && res.Removed == 0:
			logSuccess("%s/%s: %s", res.Target, res.Lang, i18n.T("Already synchronized"))
		case dryRun:
			logInfo("%s/%s: %d to translate, %d to remove", res.Target, res.Lang, res.Translated, res.Removed)
		default:
			logSuccess("%s/%s: %s", res.Target, res.Lang, fmt.Sprintf(i18n.N("%d entry translated", "%d entries translated", res.Translated), res.Translated))
		}
	}

	fmt.Fprintf(os.Stderr, "\n%s%s%s\n", colorBlue, i18n.T("Run summary"), colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintf(os.Stderr, "  Translated: %d\n", translated)
	fmt.Fprintf(os.Stderr, "  Removed:    %d\n", removed)
	fmt.Fprintf(os.Stderr, "  Reused:     %d\n", reused)
	if warnings := s.WarningCount(); warnings > 0 {
		fmt.Fprintf(os.Stderr, "  Warnings:   %s\n", fmt.Sprintf(i18n.N("%d warning", "%d warnings", warnings), warnings))
		for _, res := range s.Results {
			for _, w := range res.Warnings {
				logWarning("%s/%s: translation dropped %s: %q", res.Target, res.Lang,
					strings.Join(w.MissingVars, ", "), w.Translation)
			}
		}
	}
	if !dryRun {
		fmt.Fprintf(os.Stderr, "  Cache hits: %.0f%%\n", s.CacheHitRate*100)
		if s.Usage.InputTokens > 0 || s.Usage.OutputTokens > 0 {
			fmt.Fprintf(os.Stderr, "  Tokens:     %d in / %d out\n", s.Usage.InputTokens, s.Usage.OutputTokens)
		}
	}
	fmt.Fprintln(os.Stderr)
}

// ---------------------------------------------------------------------------
// refine (preview the refined translation context)
// ---------------------------------------------------------------------------

func newRefineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refine [description]",
		Short: "Preview the refined translation context",
		Long: `Refine a project description into translation guidance.

Runs the same refinement step sync performs before its first batch and
prints the refined context, its quality score, and any suggestions.
Without an argument, refines the description from ` + config.FileName + `.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rootDir)
			if err != nil {
				return err
			}

			raw := strings.TrimSpace(cfg.Description)
			if len(args) == 1 {
				raw = strings.TrimSpace(args[0])
			}
			if raw == "" {
				return fmt.Errorf("no description: pass one as an argument or set it in %s", config.FileName)
			}

			provConfigs := cfg.ResolveProviders(settings.GetAPIKey)
			if len(provConfigs) == 0 {
				logError("%s", i18n.T("No translation providers configured"))
				os.Exit(1)
			}
			providers := make([]translate.Service, 0, len(provConfigs))
			for _, pc := range provConfigs {
				providers = append(providers, translate.NewHTTPProvider(pc))
			}
			chain := translate.NewFallbackChain(providers)

			res, err := refine.New(chain, cfg.QualityThreshold).Refine(cmd.Context(), raw)
			if err != nil {
				return err
			}

			fmt.Printf("Score: %d/10", res.Score)
			if res.Heuristic {
				fmt.Printf(" (heuristic)")
			}
			fmt.Println()
			fmt.Printf("\n%s\n", res.Refined)
			if len(res.Suggestions) > 0 {
				fmt.Println("\nSuggestions:")
				for _, s := range res.Suggestions {
					fmt.Printf("  - %s\n", s)
				}
			}
			return nil
		},
	}

	return cmd
}

// ---------------------------------------------------------------------------
// cache (inspect or clear the durable translation cache)
// ---------------------------------------------------------------------------

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the durable translation cache",
		Long: `Manage the SQLite translation cache shared across runs.

Subcommands:
  stats   Show entry count, language count, and oldest entry
  purge   Delete entries older than the configured TTL
  clear   Delete all cached translations`,
	}

	cmd.AddCommand(newCacheStatsCmd(), newCachePurgeCmd(), newCacheClearCmd())
	return cmd
}

// openCacheStore resolves the cache database path from config and opens it.
func openCacheStore() (*cachestore.SQLStore, error) {
	cfg, err := config.Load(rootDir)
	if err != nil {
		return nil, err
	}
	dbPath := cfg.Cache.Path
	if dbPath == "" {
		dbPath, err = cachestore.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return cachestore.Open(dbPath, cfg.Cache.TTL.Std())
}

func newCacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show translation cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openCacheStore()
			if err != nil {
				return err
			}
			defer store.Close()

			st, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Entries:   %d\n", st.Entries)
			fmt.Printf("Languages: %d\n", st.Languages)
			if !st.Oldest.IsZero() {
				fmt.Printf("Oldest:    %s\n", st.Oldest.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func newCachePurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete cache entries older than the configured TTL",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openCacheStore()
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Purge(cmd.Context())
			if err != nil {
				return err
			}
			logSuccess("%d expired entries removed", n)
			return nil
		},
	}
}

func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all cached translations",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openCacheStore()
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			logSuccess("%s (%d entries)", i18n.T("Cache cleared"), n)
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// auth (manage provider API keys)
// ---------------------------------------------------------------------------

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage provider API keys",
		Long: `Store and inspect provider API keys.

Keys are written to ` + settings.FilePath() + ` with 0600 permissions.
Lookup order at run time: api_key in ` + config.FileName + `, then the
LOCSYNC_<PROVIDER>_API_KEY environment variable, then this store.`,
	}

	cmd.AddCommand(newAuthSetCmd(), newAuthRemoveCmd(), newAuthListCmd())
	return cmd
}

func newAuthSetCmd() *cobra.Command {
	var baseURL string

	cmd := &cobra.Command{
		Use:   "set <provider> <api-key>",
		Short: "Store an API key for a provider",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			providerID, key := args[0], args[1]
			if baseURL != "" {
				if err := settings.SetAPIKeyWithBaseURL(providerID, key, baseURL); err != nil {
					return err
				}
			} else {
				if err := settings.SetAPIKey(providerID, key); err != nil {
					return err
				}
			}
			logSuccess("API key stored for %s (%s)", providerID, settings.MaskKey(key))
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "", "Custom API base URL for this provider")
	return cmd
}

func newAuthRemoveCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "remove [provider]",
		Short: "Remove a stored API key",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				if err := settings.RemoveAll(); err != nil {
					return err
				}
				logSuccess("All stored credentials removed")
				return nil
			}
			if len(args) != 1 {
				return fmt.Errorf("provider required (or use --all)")
			}
			if err := settings.Remove(args[0]); err != nil {
				return err
			}
			logSuccess("Credentials removed for %s", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Remove credentials for every provider")
	return cmd
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored API keys (masked)",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := settings.Load()
			if len(store) == 0 {
				logInfo("No stored credentials. Add one with 'locsync auth set <provider> <key>'.")
				return nil
			}

			ids := make([]string, 0, len(store))
			for id := range store {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			fmt.Printf("%-14s %-18s %s\n", "Provider", "Key", "Base URL")
			fmt.Println(strings.Repeat("─", 52))
			for _, id := range ids {
				entry := store[id]
				base := entry.BaseURL
				if base == "" {
					base = "-"
				}
				fmt.Printf("%-14s %-18s %s\n", id, settings.MaskKey(entry.Key), base)
			}
			return nil
		},
	}
}
