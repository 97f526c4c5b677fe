package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/auction/internal/infrastructure/journal"
	"github.com/fastygo/auction/usecase"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// Journal is the persisted repair queue the processor drains.
// *journal.Store implements it.
type Journal interface {
	Batch(limit int) ([]journal.Entry, error)
	Retry(entry journal.Entry) error
	Remove(entry journal.Entry) error
	Size() (int, error)
	Prune(olderThan time.Time) (int, error)
}

// ProcessorConfig controls how often the journal is drained and how often the
// paid-but-unsettled scan runs.
type ProcessorConfig struct {
	Interval          time.Duration
	ReconcileInterval time.Duration
	Retention         time.Duration
	BatchSize         int
	MaxRetries        int
}

// RepairProcessor replays journaled repairs and periodically reconciles
// payments whose item update never landed.
type RepairProcessor struct {
	store      Journal
	monitor    ConnectionHealth
	dispatcher *usecase.Dispatcher
	reconcile  func(ctx context.Context) error
	logger     *zap.Logger
	cron       *cron.Cron
	cfg        ProcessorConfig
}

func NewRepairProcessor(
	store Journal,
	monitor ConnectionHealth,
	dispatcher *usecase.Dispatcher,
	reconcile func(ctx context.Context) error,
	logger *zap.Logger,
	cfg ProcessorConfig,
) *RepairProcessor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = 5 * time.Minute
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 72 * time.Hour
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	rp := &RepairProcessor{
		store:      store,
		monitor:    monitor,
		dispatcher: dispatcher,
		reconcile:  reconcile,
		logger:     logger,
		cfg:        cfg,
		cron:       cron.New(cron.WithSeconds()),
	}

	rp.schedule(cfg.Interval, "journal drain", rp.Drain)
	if reconcile != nil {
		rp.schedule(cfg.ReconcileInterval, "payment reconciliation", rp.Reconcile)
	}
	rp.schedule(time.Hour, "journal prune", rp.prune)
	return rp
}

func (rp *RepairProcessor) schedule(every time.Duration, name string, job func(context.Context) error) {
	spec := fmt.Sprintf("@every %s", every)
	if _, err := rp.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), every)
		defer cancel()
		if err := job(ctx); err != nil {
			rp.logger.Error(name+" failed", zap.Error(err))
		}
	}); err != nil {
		rp.logger.Error("failed to schedule job", zap.String("job", name), zap.String("spec", spec), zap.Error(err))
	}
}

// Start launches the cron scheduler.
func (rp *RepairProcessor) Start() {
	if rp == nil || rp.cron == nil {
		return
	}
	rp.cron.Start()
	rp.logger.Info("repair processor started")
}

// Stop gracefully stops the scheduler.
func (rp *RepairProcessor) Stop(ctx context.Context) {
	if rp == nil || rp.cron == nil {
		return
	}
	stopCtx := rp.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	rp.logger.Info("repair processor stopped")
}

// Drain replays journaled entries synchronously.
func (rp *RepairProcessor) Drain(ctx context.Context) error {
	if rp == nil || rp.store == nil {
		return nil
	}
	if rp.monitor != nil && !rp.monitor.IsOnline() {
		rp.logger.Debug("skipping journal drain (offline)")
		return nil
	}

	entries, err := rp.store.Batch(rp.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if err := rp.dispatcher.Dispatch(ctx, entry.Operation, entry.Data); err != nil {
			rp.logger.Error("failed to replay repair",
				zap.String("entry_id", entry.ID),
				zap.String("operation", entry.Operation),
				zap.String("subject", entry.Subject),
				zap.Error(err))

			entry.Retries++
			if entry.Retries >= rp.cfg.MaxRetries {
				rp.logger.Warn("dropping repair (max retries reached)",
					zap.String("entry_id", entry.ID),
					zap.String("operation", entry.Operation),
					zap.String("subject", entry.Subject))
				if err := rp.store.Remove(entry); err != nil {
					rp.logger.Error("failed to drop exhausted repair",
						zap.String("entry_id", entry.ID),
						zap.String("operation", entry.Operation),
						zap.Error(err))
				}
				continue
			}
			if err := rp.store.Retry(entry); err != nil {
				rp.logger.Error("failed to requeue repair", zap.String("entry_id", entry.ID), zap.Error(err))
			}
			continue
		}

		if err := rp.store.Remove(entry); err != nil {
			rp.logger.Warn("failed to purge replayed repair", zap.String("entry_id", entry.ID), zap.Error(err))
		}
	}
	return nil
}

// Reconcile runs the paid-but-unsettled scan.
func (rp *RepairProcessor) Reconcile(ctx context.Context) error {
	if rp == nil || rp.reconcile == nil {
		return nil
	}
	if rp.monitor != nil && !rp.monitor.IsOnline() {
		return nil
	}
	return rp.reconcile(ctx)
}

// Size returns the number of journaled repairs.
func (rp *RepairProcessor) Size() int {
	if rp == nil || rp.store == nil {
		return 0
	}
	size, err := rp.store.Size()
	if err != nil {
		return 0
	}
	return size
}

func (rp *RepairProcessor) prune(ctx context.Context) error {
	if rp.store == nil {
		return nil
	}
	pruned, err := rp.store.Prune(time.Now().Add(-rp.cfg.Retention))
	if err != nil {
		return err
	}
	if pruned > 0 {
		rp.logger.Warn("pruned expired repairs", zap.Int("count", pruned))
	}
	return nil
}
