package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"settlement-core.backend/internal/domain/entities"
	"settlement-core.backend/pkg/logger"
	"settlement-core.backend/pkg/metrics"
)

const settlementCycleJobName = "settlement_cycle"

type settlementGenerator interface {
	LastCompletedPeriod() (time.Time, time.Time)
	GenerateForPeriod(ctx context.Context, start, end time.Time, concurrency int) (*entities.SettlementRunResult, error)
}

// SettlementCycleJob creates settlement batches for the last completed period.
// Batches are unique per seller and period, so re-running a period only
// reports the existing ones.
type SettlementCycleJob struct {
	generator   settlementGenerator
	interval    time.Duration
	concurrency int
	stop        chan struct{}
	stopOnce    sync.Once
}

func NewSettlementCycleJob(generator settlementGenerator, interval time.Duration, concurrency int) *SettlementCycleJob {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &SettlementCycleJob{
		generator:   generator,
		interval:    interval,
		concurrency: concurrency,
		stop:        make(chan struct{}),
	}
}

// Start runs one pass immediately, then on every tick.
func (j *SettlementCycleJob) Start(ctx context.Context) {
	logger.Info(ctx, "Starting settlement cycle job", zap.Duration("interval", j.interval))
	j.RunOnce(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Settlement cycle job stopped (context cancelled)")
			return
		case <-j.stop:
			logger.Info(ctx, "Settlement cycle job stopped")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

func (j *SettlementCycleJob) Stop() {
	j.stopOnce.Do(func() { close(j.stop) })
}

func (j *SettlementCycleJob) RunOnce(ctx context.Context) *entities.SettlementRunResult {
	start, end := j.generator.LastCompletedPeriod()
	res, err := j.generator.GenerateForPeriod(ctx, start, end, j.concurrency)
	if err != nil {
		metrics.JobRuns.WithLabelValues(settlementCycleJobName, "error").Inc()
		logger.Error(ctx, "Settlement cycle failed",
			zap.Time("periodStart", start),
			zap.Time("periodEnd", end),
			zap.Error(err),
		)
		return nil
	}

	result := "ok"
	if res.Failed > 0 {
		result = "partial"
	}
	metrics.JobRuns.WithLabelValues(settlementCycleJobName, result).Inc()
	logger.Info(ctx, "Settlement cycle finished",
		zap.String("period", res.Period),
		zap.Int("sellers", res.Sellers),
		zap.Int("created", res.Created),
		zap.Int("existing", res.Existing),
		zap.Int("failed", res.Failed),
	)
	return res
}
