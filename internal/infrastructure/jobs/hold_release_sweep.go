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

const holdSweepJobName = "hold_release_sweep"

type holdSweeper interface {
	SweepReleasableHolds(ctx context.Context, limit int) (*entities.SweepResult, error)
}

// HoldReleaseSweepJob releases warranty holds whose warranty period has ended.
// Each release re-checks the hold under the wallet lock, so overlapping runs
// on several instances are harmless.
type HoldReleaseSweepJob struct {
	sweeper   holdSweeper
	interval  time.Duration
	batchSize int
	stop      chan struct{}
	stopOnce  sync.Once
}

func NewHoldReleaseSweepJob(sweeper holdSweeper, interval time.Duration, batchSize int) *HoldReleaseSweepJob {
	if interval <= 0 {
		interval = time.Hour
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &HoldReleaseSweepJob{
		sweeper:   sweeper,
		interval:  interval,
		batchSize: batchSize,
		stop:      make(chan struct{}),
	}
}

func (j *HoldReleaseSweepJob) Start(ctx context.Context) {
	logger.Info(ctx, "Starting hold release sweep job", zap.Duration("interval", j.interval))

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Hold release sweep job stopped (context cancelled)")
			return
		case <-j.stop:
			logger.Info(ctx, "Hold release sweep job stopped")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

func (j *HoldReleaseSweepJob) Stop() {
	j.stopOnce.Do(func() { close(j.stop) })
}

// RunOnce performs a single sweep pass.
func (j *HoldReleaseSweepJob) RunOnce(ctx context.Context) *entities.SweepResult {
	res, err := j.sweeper.SweepReleasableHolds(ctx, j.batchSize)
	if err != nil {
		metrics.JobRuns.WithLabelValues(holdSweepJobName, "error").Inc()
		logger.Error(ctx, "Hold release sweep failed", zap.Error(err))
		return nil
	}
	metrics.JobRuns.WithLabelValues(holdSweepJobName, "ok").Inc()

	if res.Scanned > 0 {
		logger.Info(ctx, "Hold release sweep finished",
			zap.Int("scanned", res.Scanned),
			zap.Int("released", res.Released),
			zap.Int("skipped", res.Skipped),
			zap.Int("failed", res.Failed),
		)
	}
	return res
}
