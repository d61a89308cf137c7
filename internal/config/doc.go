// Package config loads, validates, and normalizes deckhand's TOML
// configuration. Values resolve file > environment > default.
package config
