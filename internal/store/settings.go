package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Setting keys understood by the CLI and daemon. Values override the file
// configuration when present.
const (
	SettingHomeProfile    = "home_profile"
	SettingTargetProfiles = "target_profiles"
	SettingDeck           = "deck"
	SettingModel          = "model"
)

// KnownSettings lists the keys `deckhand config set` accepts.
var KnownSettings = []string{
	SettingHomeProfile,
	SettingTargetProfiles,
	SettingDeck,
	SettingModel,
}

// IsKnownSetting reports whether key is a recognized setting name.
func IsKnownSetting(key string) bool {
	for _, known := range KnownSettings {
		if known == key {
			return true
		}
	}
	return false
}

// GetSetting returns the stored value for key, or "" when unset.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	ctx = ensureContext(ctx)
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read setting %q: %w", key, err)
	}
	return value, nil
}

// SetSetting stores or replaces a setting value.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("setting key must not be empty")
	}
	err := s.execWithRetry(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("write setting %q: %w", key, err)
	}
	return nil
}

// DeleteSetting removes a stored override, reverting to file defaults.
func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	if err := s.execWithRetry(ctx, "DELETE FROM settings WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete setting %q: %w", key, err)
	}
	return nil
}

// AllSettings returns every stored override keyed by setting name.
func (s *Store) AllSettings(ctx context.Context) (map[string]string, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM settings ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

// TargetProfiles returns the stored target list, split on commas, or nil
// when no override exists.
func (s *Store) TargetProfiles(ctx context.Context) ([]string, error) {
	raw, err := s.GetSetting(ctx, SettingTargetProfiles)
	if err != nil || raw == "" {
		return nil, err
	}
	var targets []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			targets = append(targets, trimmed)
		}
	}
	return targets, nil
}
