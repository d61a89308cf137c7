package profiles

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"deckhand/internal/config"
	"deckhand/internal/logging"
)

// ReadinessCheck fingerprints backend state that changes when the active
// profile changes. The default uses the deck-name list; a backend with a
// real "switch complete" signal can swap in something stricter.
type ReadinessCheck func(ctx context.Context) ([]string, error)

// Timings holds the switch protocol delays.
type Timings struct {
	SettleDelay  time.Duration
	PollInterval time.Duration
	AcceptAfter  time.Duration
	MaxWait      time.Duration
}

// TimingsFromConfig converts the millisecond config section.
func TimingsFromConfig(cfg config.Switch) Timings {
	return Timings{
		SettleDelay:  time.Duration(cfg.SettleDelayMS) * time.Millisecond,
		PollInterval: time.Duration(cfg.PollIntervalMS) * time.Millisecond,
		AcceptAfter:  time.Duration(cfg.AcceptAfterMS) * time.Millisecond,
		MaxWait:      time.Duration(cfg.MaxWaitMS) * time.Millisecond,
	}
}

// Switcher issues a profile switch and polls until the backend looks ready
// on the new profile. loadProfile returns before the switch completes, so
// confirmation is a heuristic: the deck list differing from the pre-switch
// snapshot. Identical deck layouts across profiles are indistinguishable
// from "not yet switched", hence the accept-after escape hatch.
type Switcher struct {
	backend   Backend
	timings   Timings
	readiness ReadinessCheck
	logger    *slog.Logger
}

// SwitcherOption customizes the switcher.
type SwitcherOption func(*Switcher)

// WithReadinessCheck replaces the deck-list readiness oracle.
func WithReadinessCheck(check ReadinessCheck) SwitcherOption {
	return func(s *Switcher) {
		if check != nil {
			s.readiness = check
		}
	}
}

// NewSwitcher constructs a switcher over the given backend.
func NewSwitcher(backend Backend, timings Timings, logger *slog.Logger, opts ...SwitcherOption) *Switcher {
	s := &Switcher{
		backend:   backend,
		timings:   timings,
		readiness: backend.DeckNames,
		logger:    logging.NewComponentLogger(logger, "profile-switcher"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SwitchAndWait switches the backend to target and waits, bounded by the
// configured budget, for evidence the switch took effect. Confirmation
// failures never surface as errors: after the budget the caller proceeds
// optimistically. Only the switch command itself (and ctx cancellation)
// can fail the call.
func (s *Switcher) SwitchAndWait(ctx context.Context, target string) error {
	before, err := s.readiness(ctx)
	if err != nil {
		s.logger.Debug("pre-switch fingerprint unavailable", logging.Error(err))
		before = nil
	}

	ok, err := s.backend.LoadProfile(ctx, target)
	if err != nil {
		return fmt.Errorf("switch profile %q: %w", target, err)
	}
	if !ok {
		return fmt.Errorf("switch profile %q: backend refused to load it", target)
	}
	switchedAt := time.Now()

	if err := sleepCtx(ctx, s.timings.SettleDelay); err != nil {
		return err
	}

	deadline := switchedAt.Add(s.timings.MaxWait)
	for {
		now, err := s.readiness(ctx)
		if err == nil && fingerprintDiffers(before, now) {
			s.logger.Debug("profile switch confirmed",
				logging.String(logging.FieldProfile, target),
				logging.Duration("elapsed", time.Since(switchedAt)),
			)
			return nil
		}
		if err != nil && ctx.Err() != nil {
			return ctx.Err()
		}

		// Same-shape profiles never produce a difference; accept after a
		// grace period instead of burning the whole budget.
		if err == nil && time.Since(switchedAt) >= s.timings.AcceptAfter {
			s.logger.Debug("profile switch accepted without confirmation",
				logging.String(logging.FieldProfile, target),
			)
			return nil
		}

		if time.Now().After(deadline) {
			s.logger.Warn("profile switch unconfirmed after budget, proceeding",
				logging.String(logging.FieldProfile, target),
				logging.Duration("budget", s.timings.MaxWait),
			)
			return nil
		}
		if err := sleepCtx(ctx, s.timings.PollInterval); err != nil {
			return err
		}
	}
}

// fingerprintDiffers compares deck lists as sets.
func fingerprintDiffers(before, now []string) bool {
	if len(before) != len(now) {
		return true
	}
	seen := make(map[string]struct{}, len(before))
	for _, name := range before {
		seen[name] = struct{}{}
	}
	for _, name := range now {
		if _, ok := seen[name]; !ok {
			return true
		}
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
