// Package logging constructs the slog loggers used across deckhand and
// provides the shared attribute helpers and field-name constants so log
// output stays consistent between the CLI, the daemon, and the pipeline.
package logging
