package sweeper

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/idempotency"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"go.uber.org/zap"
)

// Sweeper deletes expired idempotency records. A key whose record is gone is
// treated as never seen, which is how a record stuck in processing after a
// crash is eventually released.
type Sweeper struct {
	repo      idempotency.Repository
	interval  time.Duration
	batchSize int
	metrics   *idempotency.Metrics
	logger    logger.ZapLogger
	now       func() time.Time
}

func NewSweeper(repo idempotency.Repository, interval time.Duration, batchSize int, metrics *idempotency.Metrics, log logger.ZapLogger) *Sweeper {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Sweeper{
		repo:      repo,
		interval:  interval,
		batchSize: batchSize,
		metrics:   metrics,
		logger:    log,
		now:       time.Now,
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting idempotency sweeper", zap.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping idempotency sweeper")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Error("Failed to sweep idempotency records", zap.Error(err))
			}
		}
	}
}

// Sweep deletes expired records batch by batch until a short batch signals
// that nothing is left.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	now := s.now()
	var total int64
	for {
		n, err := s.repo.DeleteExpired(ctx, now, s.batchSize)
		total += n
		s.metrics.Swept(n)
		if err != nil {
			return total, err
		}
		if n < int64(s.batchSize) {
			break
		}
	}
	if total > 0 {
		s.logger.Debug("Swept expired idempotency records", zap.Int64("count", total))
	}
	return total, nil
}
