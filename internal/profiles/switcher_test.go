package profiles_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"deckhand/internal/logging"
	"deckhand/internal/profiles"
	"deckhand/internal/services/anki"
	"deckhand/internal/testsupport"
)

func fastTimings() profiles.Timings {
	return profiles.Timings{
		SettleDelay:  time.Millisecond,
		PollInterval: time.Millisecond,
		AcceptAfter:  20 * time.Millisecond,
		MaxWait:      200 * time.Millisecond,
	}
}

func backendFor(fake *testsupport.FakeAnki) *anki.Client {
	return anki.NewClient(anki.Config{URL: fake.URL(), TimeoutSeconds: 5})
}

func TestSwitchConfirmedByDeckDifference(t *testing.T) {
	fake := testsupport.NewFakeAnki(t, "User 1", "Spanish")
	fake.Seed("Spanish", "Español", "Vocabulary", []string{"Word"})
	fake.SwitchPolls = 2

	switcher := profiles.NewSwitcher(backendFor(fake), fastTimings(), logging.NewNop())
	if err := switcher.SwitchAndWait(context.Background(), "Spanish"); err != nil {
		t.Fatalf("SwitchAndWait: %v", err)
	}
	if got := fake.Active(); got != "Spanish" {
		t.Fatalf("expected active profile Spanish, got %q", got)
	}
}

func TestSwitchAcceptsIdenticalDeckLayout(t *testing.T) {
	// Both profiles only have the Default deck, so the oracle can never
	// observe a difference; the switch must still be accepted.
	fake := testsupport.NewFakeAnki(t, "User 1", "Twin")

	start := time.Now()
	switcher := profiles.NewSwitcher(backendFor(fake), fastTimings(), logging.NewNop())
	if err := switcher.SwitchAndWait(context.Background(), "Twin"); err != nil {
		t.Fatalf("SwitchAndWait: %v", err)
	}
	if elapsed := time.Since(start); elapsed >= fastTimings().MaxWait {
		t.Fatalf("expected accept-after to fire before the max wait, took %s", elapsed)
	}
	if got := fake.Active(); got != "Twin" {
		t.Fatalf("expected active profile Twin, got %q", got)
	}
}

func TestSwitchFailsOpenWhenPollingNeverSucceeds(t *testing.T) {
	fake := testsupport.NewFakeAnki(t, "User 1", "Spanish")
	fake.FailAction("deckNames", "collection busy")

	timings := fastTimings()
	start := time.Now()
	switcher := profiles.NewSwitcher(backendFor(fake), timings, logging.NewNop())
	if err := switcher.SwitchAndWait(context.Background(), "Spanish"); err != nil {
		t.Fatalf("expected fail-open nil, got %v", err)
	}
	elapsed := time.Since(start)
	if elapsed < timings.MaxWait {
		t.Fatalf("expected the full budget to elapse, took %s", elapsed)
	}
	if elapsed > timings.MaxWait+timings.SettleDelay+150*time.Millisecond {
		t.Fatalf("fail-open took too long: %s", elapsed)
	}
}

func TestSwitchPropagatesLoadFailure(t *testing.T) {
	fake := testsupport.NewFakeAnki(t, "User 1")

	switcher := profiles.NewSwitcher(backendFor(fake), fastTimings(), logging.NewNop())
	err := switcher.SwitchAndWait(context.Background(), "Missing")
	if err == nil || !strings.Contains(err.Error(), "Missing") {
		t.Fatalf("expected load failure, got %v", err)
	}
}

func TestSwitchUsesInjectedReadinessCheck(t *testing.T) {
	fake := testsupport.NewFakeAnki(t, "User 1", "Spanish")

	polls := 0
	check := func(ctx context.Context) ([]string, error) {
		polls++
		if polls > 1 {
			return []string{"switched"}, nil
		}
		return []string{"initial"}, nil
	}

	switcher := profiles.NewSwitcher(backendFor(fake), fastTimings(), logging.NewNop(),
		profiles.WithReadinessCheck(check))
	if err := switcher.SwitchAndWait(context.Background(), "Spanish"); err != nil {
		t.Fatalf("SwitchAndWait: %v", err)
	}
	if polls < 2 {
		t.Fatalf("expected the injected check to be polled, saw %d calls", polls)
	}
}
