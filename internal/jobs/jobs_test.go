package jobs_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yugmi/sense-api/internal/jobs"
	"go.uber.org/zap"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (s *countingSweeper) SweepStale(ctx context.Context) (int64, error) {
	s.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("sweep must run with a deadline")
	}
	return 2, s.err
}

func TestScheduler_AddAndRemove(t *testing.T) {
	s := jobs.NewScheduler(zap.NewNop())

	require.NoError(t, s.AddJob("b", "@every 1h", func() {}))
	require.NoError(t, s.AddJob("a", "0 */5 * * * *", func() {}))
	assert.Equal(t, []string{"a", "b"}, s.JobNames())

	err := s.AddJob("a", "@every 1h", func() {})
	assert.Error(t, err)

	err = s.AddJob("bad", "not a cron expression", func() {})
	assert.Error(t, err)

	require.NoError(t, s.RemoveJob("a"))
	assert.Equal(t, []string{"b"}, s.JobNames())
	assert.Error(t, s.RemoveJob("a"))
}

func TestScheduler_RunsJobs(t *testing.T) {
	s := jobs.NewScheduler(zap.NewNop())
	var runs atomic.Int32
	require.NoError(t, s.AddJob("tick", "@every 1s", func() { runs.Add(1) }))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestAnalysisSweepJob(t *testing.T) {
	sweeper := &countingSweeper{}
	job := jobs.NewAnalysisSweepJob(sweeper, zap.NewNop(), time.Second)

	job.Run()
	assert.Equal(t, int32(1), sweeper.calls.Load())

	sweeper.err = errors.New("database unavailable")
	job.Run()
	assert.Equal(t, int32(2), sweeper.calls.Load())
}

func TestRegisterAnalysisSweepJob(t *testing.T) {
	s := jobs.NewScheduler(zap.NewNop())
	sweeper := &countingSweeper{}

	require.NoError(t, jobs.RegisterAnalysisSweepJob(s, sweeper, zap.NewNop(), "0 */5 * * * *"))
	assert.Equal(t, []string{jobs.AnalysisSweepJobName}, s.JobNames())

	// the startup sweep runs in the background
	assert.Eventually(t, func() bool { return sweeper.calls.Load() >= 1 }, time.Second, 10*time.Millisecond)
}
