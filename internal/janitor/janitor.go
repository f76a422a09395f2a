// Package janitor implements periodic catalog snapshots with retention. It
// runs independently from the request path so snapshot I/O never delays
// generation or validation.
package janitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/haukened/imeigen/internal/app"
)

// Store abstracts the snapshot operations the Janitor drives.
type Store interface {
	// Snapshot writes the current catalog and returns the snapshot name and
	// the number of records written.
	Snapshot(ctx context.Context) (string, int, error)
	// Prune deletes the oldest snapshots beyond keep and returns how many were
	// removed.
	Prune(ctx context.Context, keep int) (int, error)
}

// Config holds tunables for the Janitor.
type Config struct {
	Interval time.Duration // how often a cycle begins
	Keep     int           // snapshots retained after each cycle; <= 0 keeps all
	Logger   *slog.Logger  // optional logger (defaults to slog.Default())
}

// Janitor encapsulates the background snapshot loop.
type Janitor struct {
	store Store
	rec   app.Recorder
	cfg   Config

	ticker *time.Ticker
	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

// New constructs but does not start a Janitor. rec may be nil.
func New(store Store, rec app.Recorder, cfg Config) *Janitor {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Janitor{
		store:  store,
		rec:    rec,
		cfg:    cfg,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start launches the janitor loop in a new goroutine.
func (j *Janitor) Start(ctx context.Context) {
	if j.ticker != nil {
		return
	} // already started
	j.ticker = time.NewTicker(j.cfg.Interval)
	go j.loop(ctx)
}

// Stop signals the loop to exit and waits for completion. It is a no-op when
// the loop was never started.
func (j *Janitor) Stop() {
	if j.ticker == nil {
		return
	}
	j.once.Do(func() { close(j.stopCh) })
	<-j.doneCh
}

func (j *Janitor) loop(ctx context.Context) {
	log := j.cfg.Logger.With("domain", "janitor")
	defer func() {
		j.ticker.Stop()
		close(j.doneCh)
	}()
	for {
		select {
		case <-ctx.Done():
			log.Info("janitor stop", "reason", "context_cancel")
			return
		case <-j.stopCh:
			log.Info("janitor stop", "reason", "stop_signal")
			return
		case <-j.ticker.C:
			j.RunCycle(ctx)
		}
	}
}

func (j *Janitor) inc(name string, delta int64) {
	if j.rec != nil && delta > 0 {
		j.rec.Inc(name, delta)
	}
}

// RunCycle performs one snapshot followed by retention. A failed snapshot
// skips pruning so a broken writer can never empty the directory.
func (j *Janitor) RunCycle(ctx context.Context) {
	start := time.Now()
	log := j.cfg.Logger.With("domain", "janitor", "action", "cycle")

	name, n, err := j.store.Snapshot(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Error("snapshot", "error", err)
		}
		j.inc(app.CounterSnapshotFailures, 1)
		return
	}
	j.inc(app.CounterSnapshotsWritten, 1)
	if j.rec != nil {
		j.rec.Observe(app.SummarySnapshotRecords, int64(n))
	}

	pruned, err := j.store.Prune(ctx, j.cfg.Keep)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("prune", "error", err)
	}
	j.inc(app.CounterSnapshotsPruned, int64(pruned))
	log.Info("cycle complete", "snapshot", name, "records", n, "pruned", pruned, "ms", time.Since(start).Milliseconds())
}
