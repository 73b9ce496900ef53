package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
)

// envOverrides are run-level settings read from the environment. They
// win over the file so CI can steer a run without editing it.
type envOverrides struct {
	SourceLang  string   `env:"LOCSYNC_SOURCE_LANG"`
	Languages   []string `env:"LOCSYNC_LANGUAGES" envSeparator:","`
	Concurrency int      `env:"LOCSYNC_CONCURRENCY"`
	NoCache     bool     `env:"LOCSYNC_NO_CACHE"`
}

// applyEnv overlays environment overrides onto cfg.
func applyEnv(cfg *Config) error {
	var ov envOverrides
	if err := env.Parse(&ov); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}

	if ov.SourceLang != "" {
		cfg.SourceLang = ov.SourceLang
	}
	if len(ov.Languages) > 0 {
		cfg.Languages = ov.Languages
		for i := range cfg.Targets {
			cfg.Targets[i].Languages = ov.Languages
		}
	}
	if ov.Concurrency > 0 {
		cfg.Concurrency = ov.Concurrency
	}
	if ov.NoCache {
		cfg.Cache.Disabled = true
	}
	return nil
}

// envAPIKey reads the credential variable for a provider id, e.g.
// LOCSYNC_OPENAI_API_KEY for "openai".
func envAPIKey(id string) string {
	name := "LOCSYNC_" + strings.ToUpper(strings.ReplaceAll(id, "-", "_")) + "_API_KEY"
	return os.Getenv(name)
}
