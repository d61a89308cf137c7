package store

import (
	"context"

	"deckhand/internal/config"
)

// Resolved is the effective distribution configuration after store
// overrides are applied on top of the file config.
type Resolved struct {
	HomeProfile string   `json:"home_profile"`
	Targets     []string `json:"targets"`
	Deck        string   `json:"deck"`
	Model       string   `json:"model"`
}

// Resolve merges stored overrides over file configuration. A nil store
// yields the file values unchanged.
func Resolve(ctx context.Context, s *Store, cfg *config.Config) (Resolved, error) {
	resolved := Resolved{
		HomeProfile: cfg.Anki.HomeProfile,
		Targets:     cfg.Anki.TargetProfiles,
		Deck:        cfg.Anki.Deck,
		Model:       cfg.Anki.Model,
	}
	if s == nil {
		return resolved, nil
	}

	if value, err := s.GetSetting(ctx, SettingHomeProfile); err != nil {
		return resolved, err
	} else if value != "" {
		resolved.HomeProfile = value
	}
	if targets, err := s.TargetProfiles(ctx); err != nil {
		return resolved, err
	} else if targets != nil {
		resolved.Targets = targets
	}
	if value, err := s.GetSetting(ctx, SettingDeck); err != nil {
		return resolved, err
	} else if value != "" {
		resolved.Deck = value
	}
	if value, err := s.GetSetting(ctx, SettingModel); err != nil {
		return resolved, err
	} else if value != "" {
		resolved.Model = value
	}
	return resolved, nil
}
