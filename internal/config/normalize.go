package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAnki()
	c.normalizeLLM()
	c.normalizeTTS()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeAnki() {
	c.Anki.URL = strings.TrimRight(strings.TrimSpace(c.Anki.URL), "/")
	if c.Anki.URL == "" {
		c.Anki.URL = strings.TrimRight(strings.TrimSpace(os.Getenv("ANKI_CONNECT_URL")), "/")
	}
	c.Anki.HomeProfile = strings.TrimSpace(c.Anki.HomeProfile)
	if c.Anki.HomeProfile == "" {
		c.Anki.HomeProfile = strings.TrimSpace(os.Getenv("DECKHAND_HOME_PROFILE"))
	}
	if len(c.Anki.TargetProfiles) == 0 {
		if env := strings.TrimSpace(os.Getenv("DECKHAND_TARGET_PROFILES")); env != "" {
			c.Anki.TargetProfiles = strings.Split(env, ",")
		}
	}
	targets := make([]string, 0, len(c.Anki.TargetProfiles))
	for _, target := range c.Anki.TargetProfiles {
		if trimmed := strings.TrimSpace(target); trimmed != "" {
			targets = append(targets, trimmed)
		}
	}
	c.Anki.TargetProfiles = targets
	c.Anki.Deck = strings.TrimSpace(c.Anki.Deck)
	c.Anki.Model = strings.TrimSpace(c.Anki.Model)
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = strings.TrimSpace(os.Getenv("DECKHAND_LLM_API_KEY"))
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	c.LLM.ImageModel = strings.TrimSpace(c.LLM.ImageModel)
	if c.LLM.ImageModel == "" {
		c.LLM.ImageModel = c.LLM.Model
	}
}

func (c *Config) normalizeTTS() {
	c.TTS.APIKey = strings.TrimSpace(c.TTS.APIKey)
	if c.TTS.APIKey == "" {
		c.TTS.APIKey = strings.TrimSpace(os.Getenv("DECKHAND_TTS_API_KEY"))
	}
	c.TTS.BaseURL = strings.TrimSpace(c.TTS.BaseURL)
	c.TTS.Voice = strings.TrimSpace(c.TTS.Voice)
	c.TTS.Format = strings.ToLower(strings.TrimSpace(c.TTS.Format))
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
