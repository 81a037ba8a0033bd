// Package backup exports catalogs and personnel as JSONL snapshots and
// writes them to S3 or local files, once or on a schedule.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/kadr/internal/events"
	"github.com/alfredjeanlab/kadr/internal/idgen"
	"github.com/alfredjeanlab/kadr/internal/store"
)

// Scheduler runs periodic backups to one or more destinations.
type Scheduler struct {
	store        store.Store
	destinations []Destination
	interval     time.Duration
	publisher    events.Publisher
	logger       *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler that exports from the store to the given
// destinations at the specified interval. publisher may be nil.
func NewScheduler(s store.Store, destinations []Destination, interval time.Duration, publisher events.Publisher, logger *slog.Logger) *Scheduler {
	if publisher == nil {
		publisher = &events.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:        s,
		destinations: destinations,
		interval:     interval,
		publisher:    publisher,
		logger:       logger,
	}
}

// Start begins periodic backups. It runs one immediately, then one on each
// tick. A non-positive interval makes Start a no-op.
func (s *Scheduler) Start() {
	if s.interval <= 0 {
		s.logger.Info("backup scheduler disabled")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the scheduler and waits for the current backup (if any) to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	_, _ = s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.RunOnce(ctx)
		}
	}
}

// RunOnce exports a snapshot and writes it to every destination. Each
// successful write publishes a BackupCompleted event. The returned error
// joins every destination failure.
func (s *Scheduler) RunOnce(ctx context.Context) (Stats, error) {
	run := idgen.BackupID()
	var buf bytes.Buffer
	stats, err := ExportJSONL(ctx, s.store, &buf)
	if err != nil {
		s.logger.Error("backup export failed", "run", run, "err", err)
		return stats, fmt.Errorf("export: %w", err)
	}
	data := buf.Bytes()

	var errs []error
	for _, dest := range s.destinations {
		if err := dest.Write(ctx, data); err != nil {
			s.logger.Error("backup destination write failed", "run", run, "destination", dest.Location(), "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", dest.Location(), err))
			continue
		}
		evt := events.BackupCompleted{
			Run:       run,
			Key:       dest.Location(),
			Catalogs:  stats.CatalogRows,
			Personnel: stats.PersonnelRows,
		}
		if err := s.publisher.Publish(ctx, events.TopicBackupCompleted, evt); err != nil {
			s.logger.Warn("failed to publish event", "topic", events.TopicBackupCompleted, "err", err)
		}
	}

	s.logger.Info("backup completed",
		"run", run,
		"destinations", len(s.destinations),
		"failed", len(errs),
		"bytes", len(data),
		"catalog_rows", stats.CatalogRows,
		"personnel_rows", stats.PersonnelRows,
	)
	return stats, errors.Join(errs...)
}
