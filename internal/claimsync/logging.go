package claimsync

import (
	"context"
	"time"

	auditdomain "github.com/smallbiznis/tally/internal/audit/domain"
	obscontext "github.com/smallbiznis/tally/internal/observability/context"
	obslogger "github.com/smallbiznis/tally/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/tally/internal/observability/metrics"
	"go.uber.org/zap"
)

// jobRun tallies one pass over the claim outbox.
type jobRun struct {
	job       string
	runID     string
	batchSize int
	startedAt time.Time
	applied   int
	failed    int
}

type jobRunKey struct{}

func (r *jobRun) AddProcessed(count int) {
	if r != nil && count > 0 {
		r.applied += count
	}
}

func (r *jobRun) IncError() {
	if r != nil {
		r.failed++
	}
}

func (s *Syncer) ensureJobRun(ctx context.Context, job string, batchSize int) (context.Context, *jobRun, bool) {
	if existing, ok := ctx.Value(jobRunKey{}).(*jobRun); ok {
		return ctx, existing, false
	}
	run := &jobRun{
		job:       job,
		runID:     s.genID.Generate().String(),
		batchSize: batchSize,
		startedAt: s.clock.Now(),
	}
	ctx = context.WithValue(ctx, jobRunKey{}, run)
	ctx = obscontext.WithActor(ctx, auditdomain.ActorTypeSystem, "claimsync")
	return ctx, run, true
}

func (s *Syncer) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}

func (s *Syncer) logJobStart(ctx context.Context, run *jobRun) {
	s.logger(ctx).Debug("claimsync.job.start",
		zap.String("job", run.job),
		zap.String("run_id", run.runID),
		zap.Int("batch_size", run.batchSize),
	)
}

// logJobFinish stays quiet for idle passes.
func (s *Syncer) logJobFinish(ctx context.Context, run *jobRun) {
	fields := []zap.Field{
		zap.String("job", run.job),
		zap.String("run_id", run.runID),
		zap.Int64("duration_ms", s.clock.Now().Sub(run.startedAt).Milliseconds()),
		zap.Int("applied", run.applied),
		zap.Int("failed", run.failed),
	}
	switch log := s.logger(ctx); {
	case run.failed > 0:
		log.Warn("claimsync.job.finish", fields...)
	case run.applied > 0:
		log.Info("claimsync.job.finish", fields...)
	}
}

func (s *Syncer) logJobError(ctx context.Context, run *jobRun, job *Job, err error) {
	run.IncError()
	s.logger(ctx).Error("claimsync.apply.failed",
		zap.String("run_id", run.runID),
		zap.String("job_id", job.ID.String()),
		zap.String("user_id", job.UserID.String()),
		zap.Int("attempts", job.Attempts+1),
		zap.String("error_type", obsmetrics.ClassifyReason(err)),
		zap.Bool("retryable", obsmetrics.IsRetryable(err)),
		zap.Error(err),
	)
}
