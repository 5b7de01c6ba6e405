package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/americano-tennis/internal/config"
	"github.com/americano-tennis/internal/domain"
)

// Reconciler is the part of the tournament service the worker drives
type Reconciler interface {
	ListActiveTournaments(ctx context.Context) ([]domain.Tournament, error)
	ReconcileTournament(ctx context.Context, tournamentID int64) (int, error)
	SyncToCache(ctx context.Context, tournamentID int64) error
	WarmCache(ctx context.Context, tournamentID int64) (bool, error)
}

// ReconcileWorker periodically recomputes the standings of active
// tournaments from their match history and refreshes the standings cache
type ReconcileWorker struct {
	service Reconciler
	config  *config.SyncConfig
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// NewReconcileWorker creates a new reconcile worker
func NewReconcileWorker(service Reconciler, cfg *config.SyncConfig, logger *slog.Logger) *ReconcileWorker {
	return &ReconcileWorker{
		service: service,
		config:  cfg,
		logger:  logger,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start begins the background reconcile loop
func (w *ReconcileWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("reconcile worker started", "interval", w.config.Interval)

	go w.run(ctx)
	return nil
}

// Stop stops the background reconcile loop
func (w *ReconcileWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("reconcile worker stopped")
	return nil
}

func (w *ReconcileWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// CycleResult summarizes one reconcile cycle
type CycleResult struct {
	Tournaments int
	Corrected   int
	Errors      int
}

// RunOnce reconciles every active tournament, at most BatchSize at a time
func (w *ReconcileWorker) RunOnce(ctx context.Context) CycleResult {
	w.logger.Info("starting reconcile cycle")
	startTime := time.Now()

	tournaments, err := w.service.ListActiveTournaments(ctx)
	if err != nil {
		w.logger.Error("failed to list tournaments for reconcile", "error", err)
		return CycleResult{Errors: 1}
	}

	limit := w.config.BatchSize
	if limit <= 0 {
		limit = 1
	}

	var (
		mu     sync.Mutex
		result = CycleResult{Tournaments: len(tournaments)}
		wg     sync.WaitGroup
		sem    = make(chan struct{}, limit)
	)
	for _, t := range tournaments {
		wg.Add(1)
		sem <- struct{}{}
		go func(tournamentID int64) {
			defer wg.Done()
			defer func() { <-sem }()

			corrected, err := w.reconcile(ctx, tournamentID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				w.logger.Error("failed to reconcile tournament",
					"tournament_id", tournamentID,
					"error", err,
				)
				result.Errors++
				return
			}
			result.Corrected += corrected
		}(t.ID)
	}
	wg.Wait()

	w.logger.Info("reconcile cycle completed",
		"duration", time.Since(startTime),
		"tournaments", result.Tournaments,
		"corrected", result.Corrected,
		"errors", result.Errors,
	)
	return result
}

func (w *ReconcileWorker) reconcile(ctx context.Context, tournamentID int64) (int, error) {
	corrected, err := w.service.ReconcileTournament(ctx, tournamentID)
	if err != nil {
		return 0, err
	}
	if corrected > 0 {
		w.logger.Warn("corrected drifted standings",
			"tournament_id", tournamentID,
			"players", corrected,
		)
	}
	if err := w.service.SyncToCache(ctx, tournamentID); err != nil {
		w.logger.Warn("failed to refresh standings cache",
			"tournament_id", tournamentID,
			"error", err,
		)
	}
	return corrected, nil
}

// SyncAllToCache loads the standings of every active tournament missing
// from the cache. It is used at startup to warm the cache.
func (w *ReconcileWorker) SyncAllToCache(ctx context.Context) error {
	w.logger.Info("warming standings cache")

	tournaments, err := w.service.ListActiveTournaments(ctx)
	if err != nil {
		return err
	}

	loaded := 0
	for _, t := range tournaments {
		written, err := w.service.WarmCache(ctx, t.ID)
		if err != nil {
			w.logger.Error("failed to cache standings",
				"tournament_id", t.ID,
				"error", err,
			)
			// Continue with other tournaments
			continue
		}
		if written {
			loaded++
		}
	}

	w.logger.Info("standings cache warmed", "tournaments", len(tournaments), "loaded", loaded)
	return nil
}

// IsRunning returns whether the worker is currently running
func (w *ReconcileWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
