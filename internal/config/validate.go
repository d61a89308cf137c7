package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAnki(); err != nil {
		return err
	}
	if err := c.validateSwitch(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateTTS(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAnki() error {
	if c.Anki.URL == "" {
		return errors.New("anki.url must be set (the AnkiConnect endpoint, e.g. http://127.0.0.1:8765)")
	}
	parsed, err := url.Parse(c.Anki.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("anki.url %q is not a valid URL", c.Anki.URL)
	}
	if c.Anki.Deck == "" {
		return errors.New("anki.deck must be set")
	}
	if c.Anki.Model == "" {
		return errors.New("anki.model must be set")
	}
	if c.Anki.TimeoutSeconds < 0 {
		return errors.New("anki.timeout_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateSwitch() error {
	if c.Switch.SettleDelayMS < 0 {
		return errors.New("switch.settle_delay_ms must not be negative")
	}
	if c.Switch.PollIntervalMS <= 0 {
		return errors.New("switch.poll_interval_ms must be positive")
	}
	if c.Switch.MaxWaitMS <= 0 {
		return errors.New("switch.max_wait_ms must be positive")
	}
	if c.Switch.AcceptAfterMS < 0 {
		return errors.New("switch.accept_after_ms must not be negative")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.ChunkSize <= 0 {
		return errors.New("pipeline.chunk_size must be positive")
	}
	return nil
}

func (c *Config) validateTTS() error {
	switch c.TTS.Format {
	case "", "mp3", "opus", "aac", "flac", "wav":
		return nil
	default:
		return fmt.Errorf("tts.format %q is not a supported audio format", c.TTS.Format)
	}
}
