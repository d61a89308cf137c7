package profiles

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"deckhand/internal/logging"
	"deckhand/internal/notes"
	"deckhand/internal/services/anki"
)

// Result is the outcome of distributing into one target profile.
type Result struct {
	Profile          string `json:"profile"`
	Success          bool   `json:"success"`
	NotesDistributed int    `json:"notes_distributed"`
	Err              string `json:"error,omitempty"`
}

// Distributor replicates notes from the home profile into target profiles.
// All failure modes resolve to per-target Results; Distribute itself never
// returns an error.
type Distributor struct {
	backend  Backend
	lock     *Lock
	switcher *Switcher
	home     string
	deck     string
	model    string
	logger   *slog.Logger
}

// NewDistributor wires a distributor over the shared lock and switcher.
// home may be empty, in which case every Distribute call is a no-op.
func NewDistributor(backend Backend, lock *Lock, switcher *Switcher, home, deck, model string, logger *slog.Logger) *Distributor {
	return &Distributor{
		backend:  backend,
		lock:     lock,
		switcher: switcher,
		home:     strings.TrimSpace(home),
		deck:     deck,
		model:    model,
		logger:   logging.NewComponentLogger(logger, "distributor"),
	}
}

// Distribute copies the given notes and media into each target profile,
// upserting by the UUID identity field, and restores the home profile before
// returning. Targets are visited strictly sequentially because the backend
// has a single active-profile slot. The home profile, if listed, is skipped.
func (d *Distributor) Distribute(ctx context.Context, noteIDs []int64, targets []string, media []notes.MediaAsset) []Result {
	if d.home == "" {
		d.logger.Warn("no home profile configured, skipping distribution")
		return nil
	}

	results := make([]Result, 0, len(targets))
	err := d.lock.Do(ctx, func() error {
		source, err := d.backend.NotesInfo(ctx, noteIDs)
		if err != nil {
			msg := fmt.Sprintf("read source notes: %v", err)
			for _, target := range targets {
				if strings.EqualFold(target, d.home) {
					continue
				}
				results = append(results, Result{Profile: target, Err: msg})
			}
			return nil
		}

		for _, target := range targets {
			if strings.EqualFold(target, d.home) {
				continue
			}
			results = append(results, d.distributeOne(ctx, target, source, media))
		}
		return nil
	})
	if err != nil {
		// Lock wait aborted; nothing was attempted.
		for _, target := range targets {
			if strings.EqualFold(target, d.home) {
				continue
			}
			results = append(results, Result{Profile: target, Err: err.Error()})
		}
	}
	return results
}

// distributeOne runs the per-target protocol. Whatever goes wrong, it makes
// a best-effort switch back home before reporting the failure.
func (d *Distributor) distributeOne(ctx context.Context, target string, source []notes.Note, media []notes.MediaAsset) Result {
	logger := d.logger.With(logging.String(logging.FieldProfile, target))

	count, err := d.copyIntoTarget(ctx, target, source, media, logger)
	if err != nil {
		d.restoreHome(ctx, logger)
		logger.Warn("distribution to target failed", logging.Error(err))
		return Result{Profile: target, Err: err.Error()}
	}

	if err := d.switcher.SwitchAndWait(ctx, d.home); err != nil {
		logger.Warn("failed to restore home profile", logging.Error(err))
		return Result{Profile: target, NotesDistributed: count, Err: fmt.Sprintf("restore home profile: %v", err)}
	}

	logger.Info("distribution to target complete", logging.Int("notes", count))
	return Result{Profile: target, Success: true, NotesDistributed: count}
}

func (d *Distributor) copyIntoTarget(ctx context.Context, target string, source []notes.Note, media []notes.MediaAsset, logger *slog.Logger) (int, error) {
	if err := d.switcher.SwitchAndWait(ctx, target); err != nil {
		return 0, err
	}

	decks, err := d.backend.DeckNames(ctx)
	if err != nil {
		return 0, fmt.Errorf("list decks: %w", err)
	}
	if !containsString(decks, d.deck) {
		return 0, fmt.Errorf("deck %q not found in profile %q", d.deck, target)
	}

	models, err := d.backend.ModelNames(ctx)
	if err != nil {
		return 0, fmt.Errorf("list models: %w", err)
	}
	if !containsString(models, d.model) {
		return 0, fmt.Errorf("model %q not found in profile %q", d.model, target)
	}

	for _, asset := range media {
		if _, err := d.backend.StoreMediaFile(ctx, asset.Filename, asset.Data); err != nil {
			logger.Warn("media store failed, skipping asset",
				logging.String("filename", asset.Filename),
				logging.Error(err),
			)
		}
	}

	count := 0
	for _, note := range source {
		identity := note.Identity()
		if identity == "" {
			logger.Warn("source note has no identity, skipping",
				logging.Int64(logging.FieldNoteID, note.ID),
			)
			continue
		}

		existing, err := d.backend.FindNotes(ctx, notes.TextQuery(d.deck, identity))
		if err != nil {
			return count, fmt.Errorf("find note by identity: %w", err)
		}
		if len(existing) > 0 {
			// Updating in place preserves the target's scheduling state.
			if err := d.backend.UpdateNoteFields(ctx, existing[0], note.Fields); err != nil {
				return count, fmt.Errorf("update note %d: %w", existing[0], err)
			}
			count++
			continue
		}

		_, err = d.backend.AddNote(ctx, anki.NewNote{
			Deck:   d.deck,
			Model:  d.model,
			Fields: note.Fields,
			Tags:   note.Tags,
		})
		if err != nil {
			logger.Warn("note creation failed in target, skipping",
				logging.String(logging.FieldWord, note.Word()),
				logging.Error(err),
			)
			continue
		}
		count++
	}
	return count, nil
}

// restoreHome is the best-effort recovery path; its own failure is only
// logged so the original error stays visible.
func (d *Distributor) restoreHome(ctx context.Context, logger *slog.Logger) {
	if err := d.switcher.SwitchAndWait(ctx, d.home); err != nil {
		logger.Error("could not restore home profile after failure", logging.Error(err))
	}
}

func containsString(haystack []string, needle string) bool {
	for _, candidate := range haystack {
		if candidate == needle {
			return true
		}
	}
	return false
}
