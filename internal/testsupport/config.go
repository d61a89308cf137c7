package testsupport

import (
	"path/filepath"
	"testing"

	"deckhand/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories and
// timings fast enough for tests. It applies any provided options last.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Anki.HomeProfile = "User 1"
	cfg.Switch.SettleDelayMS = 1
	cfg.Switch.PollIntervalMS = 1
	cfg.Switch.AcceptAfterMS = 20
	cfg.Switch.MaxWaitMS = 100

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithAnkiURL points the config at a fake backend.
func WithAnkiURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Anki.URL = url
	}
}

// WithHomeProfile overrides the home profile name.
func WithHomeProfile(name string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Anki.HomeProfile = name
	}
}

// WithTargets sets the distribution target profiles.
func WithTargets(targets ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Anki.TargetProfiles = targets
	}
}
