package enrich

import (
	"context"
	"log/slog"

	"deckhand/internal/logging"
)

// ProgressSink receives coarse progress while a pipeline run executes.
// Update is called before each major step and is expected to replace the
// previous status rather than accumulate; Send delivers the terminal summary.
type ProgressSink interface {
	Update(ctx context.Context, text string)
	Send(ctx context.Context, text string) error
}

// NopSink discards all progress.
type NopSink struct{}

func (NopSink) Update(context.Context, string) {}

func (NopSink) Send(context.Context, string) error { return nil }

// LogSink reports progress through a logger. The daemon uses it so API-driven
// runs still surface their status.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink wraps logger as a progress sink.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logging.NewComponentLogger(logger, "enrich")}
}

func (s *LogSink) Update(_ context.Context, text string) {
	s.logger.Info(text)
}

func (s *LogSink) Send(_ context.Context, text string) error {
	s.logger.Info(text)
	return nil
}
