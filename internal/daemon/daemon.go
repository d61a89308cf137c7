package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"deckhand/internal/config"
	"deckhand/internal/enrich"
	"deckhand/internal/logging"
	"deckhand/internal/notes"
	"deckhand/internal/profiles"
	"deckhand/internal/services"
	"deckhand/internal/store"
)

// Backend is the automation client surface the daemon drives. *anki.Client
// satisfies it.
type Backend interface {
	profiles.Backend
	Version(ctx context.Context) (int, error)
	GetProfiles(ctx context.Context) ([]string, error)
}

// Daemon coordinates the enrichment services and enforces single-instance
// execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *store.Store
	backend   Backend
	generator enrich.TextGenerator
	speech    enrich.SpeechSynthesizer

	lock     *profiles.Lock
	switcher *profiles.Switcher

	lockPath string
	flock    *flock.Flock

	running atomic.Bool
	busy    atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc

	api *apiServer
}

// BackendStatus reports reachability of the automation endpoint.
type BackendStatus struct {
	Reachable bool   `json:"reachable"`
	Version   int    `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool           `json:"running"`
	Busy         bool           `json:"busy"`
	PID          int            `json:"pid"`
	Backend      BackendStatus  `json:"backend"`
	Settings     store.Resolved `json:"settings"`
	DBPath       string         `json:"db_path"`
	LockFilePath string         `json:"lock_file_path"`
}

// New constructs a daemon with initialized dependencies.
func New(
	cfg *config.Config,
	st *store.Store,
	backend Backend,
	generator enrich.TextGenerator,
	speech enrich.SpeechSynthesizer,
	logger *slog.Logger,
) (*Daemon, error) {
	if cfg == nil || st == nil || backend == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, backend, and logger")
	}

	lock := profiles.NewLock()
	switcher := profiles.NewSwitcher(backend, profiles.TimingsFromConfig(cfg.Switch), logger)
	lockPath := filepath.Join(cfg.Paths.DataDir, "deckhand.lock")
	return &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		store:     st,
		backend:   backend,
		generator: generator,
		speech:    speech,
		lock:      lock,
		switcher:  switcher,
		lockPath:  lockPath,
		flock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and brings the API server up.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.flock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another deckhand daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	api, err := newAPIServer(d.cfg, d, d.logger)
	if err != nil {
		d.releaseLock()
		return err
	}
	d.api = api
	if err := d.api.start(d.ctx); err != nil {
		d.releaseLock()
		return err
	}

	d.running.Store(true)
	d.logger.Info("deckhand daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts the API server down and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.api != nil {
		d.api.stop()
		d.api = nil
	}
	d.releaseLock()
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("deckhand daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr reports the API listen address, "" until Start succeeds.
func (d *Daemon) Addr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}

func (d *Daemon) releaseLock() {
	if err := d.flock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
}

// Status returns the current daemon status, probing the backend.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		Busy:         d.busy.Load(),
		PID:          os.Getpid(),
		DBPath:       d.store.Path(),
		LockFilePath: d.lockPath,
	}

	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if version, err := d.backend.Version(probeCtx); err != nil {
		status.Backend = BackendStatus{Error: err.Error()}
	} else {
		status.Backend = BackendStatus{Reachable: true, Version: version}
	}

	if resolved, err := store.Resolve(ctx, d.store, d.cfg); err == nil {
		status.Settings = resolved
	}
	return status
}

// Enrich runs the full pipeline for the given words. Only one run may be
// active at a time; a second request is rejected rather than queued.
func (d *Daemon) Enrich(ctx context.Context, words []string, language string) (enrich.Summary, error) {
	if len(words) == 0 {
		return enrich.Summary{}, errors.New("no words provided")
	}
	if !d.busy.CompareAndSwap(false, true) {
		return enrich.Summary{}, errors.New("a run is already in progress")
	}
	defer d.busy.Store(false)

	resolved, err := store.Resolve(ctx, d.store, d.cfg)
	if err != nil {
		return enrich.Summary{}, fmt.Errorf("resolve settings: %w", err)
	}

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := d.logger.With(logging.String(logging.FieldRunID, runID))
	logger.Info("enrichment run starting",
		logging.Int("words", len(words)),
		logging.String(logging.FieldDeck, resolved.Deck),
	)

	pipeline := enrich.NewPipeline(
		d.backend,
		d.generator,
		d.speech,
		profiles.NewDistributor(d.backend, d.lock, d.switcher,
			resolved.HomeProfile, resolved.Deck, resolved.Model, d.logger),
		enrich.Settings{
			Deck:          resolved.Deck,
			Model:         resolved.Model,
			Targets:       resolved.Targets,
			ChunkSize:     d.cfg.Pipeline.ChunkSize,
			ImagesEnabled: d.cfg.Pipeline.ImagesEnabled,
		},
		d.logger,
	)

	started := time.Now()
	summary, runErr := pipeline.Run(ctx, words, enrich.NewLogSink(d.logger), d.cfg.Language(language))

	record := store.Run{
		RunID:          runID,
		Kind:           store.RunKindEnrich,
		Language:       language,
		WordsRequested: len(words),
		Created:        summary.Created,
		Duplicates:     summary.Duplicates,
		Errors:         len(summary.Errors),
		Detail:         strings.Join(summary.Errors, "; "),
		StartedAt:      started,
		FinishedAt:     time.Now(),
	}
	if runErr != nil {
		record.Detail = runErr.Error()
	}
	if _, err := d.store.RecordRun(ctx, record); err != nil {
		logger.Warn("failed to record run history", logging.Error(err))
	}
	return summary, runErr
}

// Distribute pushes every note in the configured deck to the target
// profiles. The home profile is made active first so the source read sees
// the authoritative copy.
func (d *Daemon) Distribute(ctx context.Context) ([]profiles.Result, error) {
	if !d.busy.CompareAndSwap(false, true) {
		return nil, errors.New("a run is already in progress")
	}
	defer d.busy.Store(false)

	resolved, err := store.Resolve(ctx, d.store, d.cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve settings: %w", err)
	}
	if len(resolved.Targets) == 0 {
		return nil, errors.New("no target profiles configured")
	}

	if err := d.switcher.SwitchAndWait(ctx, resolved.HomeProfile); err != nil {
		return nil, fmt.Errorf("switch to home profile: %w", err)
	}
	ids, err := d.backend.FindNotes(ctx, notes.DeckQuery(resolved.Deck))
	if err != nil {
		return nil, fmt.Errorf("list deck notes: %w", err)
	}

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	started := time.Now()

	distributor := profiles.NewDistributor(d.backend, d.lock, d.switcher,
		resolved.HomeProfile, resolved.Deck, resolved.Model, d.logger)
	results := distributor.Distribute(ctx, ids, resolved.Targets, nil)

	distributed := 0
	var failures []string
	for _, result := range results {
		distributed += result.NotesDistributed
		if result.Err != "" {
			failures = append(failures, result.Profile+": "+result.Err)
		}
	}
	if _, err := d.store.RecordRun(ctx, store.Run{
		RunID:          runID,
		Kind:           store.RunKindDistribute,
		WordsRequested: len(ids),
		Created:        distributed,
		Errors:         len(failures),
		Detail:         strings.Join(failures, "; "),
		StartedAt:      started,
		FinishedAt:     time.Now(),
	}); err != nil {
		d.logger.Warn("failed to record run history", logging.Error(err))
	}
	return results, nil
}

// History returns the most recent pipeline and distribution runs.
func (d *Daemon) History(ctx context.Context, limit int) ([]store.Run, error) {
	return d.store.RecentRuns(ctx, limit)
}
