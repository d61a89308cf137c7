package main

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"

	"deckhand/internal/config"
	"deckhand/internal/logging"
	"deckhand/internal/profiles"
	"deckhand/internal/services/anki"
	"deckhand/internal/services/llm"
	"deckhand/internal/services/tts"
	"deckhand/internal/store"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// newLogger builds the CLI logger. Interactive terminals get the console
// format regardless of the configured one; pipes keep the configured format.
func (c *commandContext) newLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	format := cfg.Logging.Format
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		format = "console"
	}
	return logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: format,
	})
}

func (c *commandContext) ankiClient() (*anki.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return anki.NewClient(anki.Config{
		URL:            cfg.Anki.URL,
		TimeoutSeconds: cfg.Anki.TimeoutSeconds,
	}), nil
}

func (c *commandContext) llmClient() (*llm.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		ImageModel:     cfg.LLM.ImageModel,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	}), nil
}

func (c *commandContext) ttsClient() (*tts.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return tts.NewClient(tts.Config{
		APIKey:         cfg.TTS.APIKey,
		BaseURL:        cfg.TTS.BaseURL,
		Model:          cfg.TTS.Model,
		Voice:          cfg.TTS.Voice,
		Format:         cfg.TTS.Format,
		TimeoutSeconds: cfg.TTS.TimeoutSeconds,
	}), nil
}

func (c *commandContext) openStore() (*store.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return store.Open(cfg)
}

// distribution bundles the profile machinery a manual CLI run needs.
type distribution struct {
	backend     *anki.Client
	lock        *profiles.Lock
	switcher    *profiles.Switcher
	distributor *profiles.Distributor
	resolved    store.Resolved
}

func (c *commandContext) newDistribution(st *store.Store, logger *slog.Logger) (*distribution, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	backend, err := c.ankiClient()
	if err != nil {
		return nil, err
	}
	resolved, err := store.Resolve(context.Background(), st, cfg)
	if err != nil {
		return nil, err
	}
	lock := profiles.NewLock()
	switcher := profiles.NewSwitcher(backend, profiles.TimingsFromConfig(cfg.Switch), logger)
	return &distribution{
		backend:  backend,
		lock:     lock,
		switcher: switcher,
		distributor: profiles.NewDistributor(backend, lock, switcher,
			resolved.HomeProfile, resolved.Deck, resolved.Model, logger),
		resolved: resolved,
	}, nil
}
