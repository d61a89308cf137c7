package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Anki contains the AnkiConnect endpoint and the note schema the portal
// curates.
type Anki struct {
	URL            string   `toml:"url"`
	HomeProfile    string   `toml:"home_profile"`
	TargetProfiles []string `toml:"target_profiles"`
	Deck           string   `toml:"deck"`
	Model          string   `toml:"model"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Switch contains the profile-switch readiness protocol timings. All values
// are milliseconds so tests can shrink them without sub-second truncation.
type Switch struct {
	SettleDelayMS  int `toml:"settle_delay_ms"`
	PollIntervalMS int `toml:"poll_interval_ms"`
	AcceptAfterMS  int `toml:"accept_after_ms"`
	MaxWaitMS      int `toml:"max_wait_ms"`
}

// LLM contains connection settings for the text/vision generation service.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	ImageModel     string `toml:"image_model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// TTS contains connection settings for the speech synthesis service.
type TTS struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Voice          string `toml:"voice"`
	Format         string `toml:"format"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Pipeline contains enrichment batch tuning.
type Pipeline struct {
	ChunkSize     int  `toml:"chunk_size"`
	ImagesEnabled bool `toml:"images_enabled"`
}

// Language describes per-language generation settings keyed by a short code.
type Language struct {
	Name   string `toml:"name"`
	Voice  string `toml:"voice"`
	Prompt string `toml:"prompt"`
}

// Logging contains log output configuration.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for deckhand.
//
// Sections by subsystem:
//   - Paths: data/log directories and API bind address
//   - Anki: AnkiConnect endpoint, home profile, note schema
//   - Switch: profile-switch readiness protocol timings
//   - LLM: text/vision generation service connection
//   - TTS: speech synthesis service connection
//   - Pipeline: enrichment batching and optional stages
//   - Languages: per-language voices and prompt hints
//   - Logging: log format and level
type Config struct {
	Paths     Paths               `toml:"paths"`
	Anki      Anki                `toml:"anki"`
	Switch    Switch              `toml:"switch"`
	LLM       LLM                 `toml:"llm"`
	TTS       TTS                 `toml:"tts"`
	Pipeline  Pipeline            `toml:"pipeline"`
	Languages map[string]Language `toml:"languages"`
	Logging   Logging             `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/deckhand/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("deckhand.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories required for operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Language returns the language settings for code, falling back to an empty
// profile when the code is unknown.
func (c *Config) Language(code string) Language {
	if c == nil || len(c.Languages) == 0 {
		return Language{}
	}
	return c.Languages[strings.ToLower(strings.TrimSpace(code))]
}
