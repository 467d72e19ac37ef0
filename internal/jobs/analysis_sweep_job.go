package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const AnalysisSweepJobName = "analysis_sweep"

// StaleAnalysisSweeper fails analyses stuck in processing
type StaleAnalysisSweeper interface {
	SweepStale(ctx context.Context) (int64, error)
}

// AnalysisSweepJob releases captures whose analysis never finished, for example after
// a crash mid-request, so they can be analyzed again
type AnalysisSweepJob struct {
	sweeper StaleAnalysisSweeper
	logger  *zap.Logger
	timeout time.Duration
}

func NewAnalysisSweepJob(sweeper StaleAnalysisSweeper, logger *zap.Logger, timeout time.Duration) *AnalysisSweepJob {
	return &AnalysisSweepJob{
		sweeper: sweeper,
		logger:  logger,
		timeout: timeout,
	}
}

// Run performs one sweep
func (j *AnalysisSweepJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	count, err := j.sweeper.SweepStale(ctx)
	if err != nil {
		j.logger.Error("analysis sweep failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}

	j.logger.Debug("analysis sweep completed",
		zap.Int64("failed_stale", count),
		zap.Duration("duration", time.Since(start)))
}

// RegisterAnalysisSweepJob registers the sweeper and runs one sweep in the background
// so captures left in processing by a previous process are released at startup
func RegisterAnalysisSweepJob(scheduler *Scheduler, sweeper StaleAnalysisSweeper, logger *zap.Logger, cronExpr string) error {
	job := NewAnalysisSweepJob(sweeper, logger, time.Minute)
	go job.Run()
	return scheduler.AddJob(AnalysisSweepJobName, cronExpr, job.Run)
}
