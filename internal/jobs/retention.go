// Package jobs holds background maintenance loops that run beside the
// scanner.
package jobs

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// PriceRetention periodically prunes old price snapshots. At a
// one-second poll interval the snapshot table grows fast; rows past the
// retention horizon only matter to offline analysis, which reads its
// own replica.
type PriceRetention struct {
	logger   *zap.Logger
	db       DBExecutor // small interface wrapper over pgxpool.Pool
	maxAge   time.Duration
	interval time.Duration
	stopCh   chan struct{}
}

// DBExecutor defines minimal subset of pgxpool.Pool needed for execution.
type DBExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// NewPriceRetention constructs a background job that runs periodically.
func NewPriceRetention(logger *zap.Logger, db DBExecutor, maxAge, interval time.Duration) *PriceRetention {
	return &PriceRetention{
		logger:   logger,
		db:       db,
		maxAge:   maxAge,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the pruning loop.
func (r *PriceRetention) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("price_retention.started",
		zap.Duration("interval", r.interval),
		zap.Duration("max_age", r.maxAge))

	for {
		select {
		case <-ticker.C:
			r.runOnce(ctx)
		case <-r.stopCh:
			r.logger.Info("price_retention.stopped (manual stop)")
			return
		case <-ctx.Done():
			r.logger.Info("price_retention.stopped (context canceled)")
			return
		}
	}
}

// Stop gracefully halts the job.
func (r *PriceRetention) Stop() {
	close(r.stopCh)
}

// runOnce executes one pruning cycle.
func (r *PriceRetention) runOnce(ctx context.Context) {
	start := time.Now()
	cutoff := start.Add(-r.maxAge).UTC()

	tag, err := r.db.Exec(ctx,
		`DELETE FROM market.exchange_price WHERE observed_at < $1`, cutoff)
	if err != nil {
		r.logger.Error("price_retention.prune_failed", zap.Error(err))
		return
	}

	r.logger.Info("price_retention.pruned",
		zap.Int64("rows", tag.RowsAffected()),
		zap.Time("cutoff", cutoff),
		zap.Duration("duration", time.Since(start)))
}
