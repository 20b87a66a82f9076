package claimsync

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/tally/internal/auth/domain"
	"github.com/smallbiznis/tally/internal/clock"
	obsmetrics "github.com/smallbiznis/tally/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrInvalidConfig = errors.New("claimsync: invalid config")
	ErrInvalidUser   = errors.New("claimsync: invalid user")
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Provider authdomain.Provider
	Config   Config                   `optional:"true"`
	Metrics  *obsmetrics.DomainMetrics `optional:"true"`
}

// Syncer delivers claim changes to the identity provider. Business
// transactions call Enqueue inside their transaction and Apply after commit;
// the worker loop retries whatever the request path could not deliver.
type Syncer struct {
	db       *gorm.DB
	log      *zap.Logger
	cfg      Config
	genID    *snowflake.Node
	clock    clock.Clock
	provider authdomain.Provider
	metrics  *obsmetrics.DomainMetrics
}

func New(p Params) (*Syncer, error) {
	if p.DB == nil || p.Log == nil || p.GenID == nil || p.Clock == nil || p.Provider == nil {
		return nil, ErrInvalidConfig
	}
	return &Syncer{
		db:       p.DB,
		log:      p.Log.Named("claimsync").With(zap.String("component", "claimsync")),
		cfg:      p.Config.withDefaults(),
		genID:    p.GenID,
		clock:    p.Clock,
		provider: p.Provider,
		metrics:  p.Metrics,
	}, nil
}

// Enqueue records the claims a user must end up with. Older pending jobs for
// the same user are superseded so a late retry can never restore stale claims.
func (s *Syncer) Enqueue(ctx context.Context, tx *gorm.DB, userID snowflake.ID, claims authdomain.Claims) (Job, error) {
	if userID == 0 {
		return Job{}, ErrInvalidUser
	}
	if tx == nil {
		tx = s.db
	}

	now := s.clock.Now()
	if err := s.supersede(ctx, tx, userID, now); err != nil {
		return Job{}, err
	}

	job := Job{
		ID:        s.genID.Generate(),
		UserID:    userID,
		Claims:    datatypes.NewJSONType(claims),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&job).Error; err != nil {
		return Job{}, err
	}
	return job, nil
}

// Apply pushes one job to the provider. Jobs that are no longer pending are
// ignored, which keeps the call idempotent.
func (s *Syncer) Apply(ctx context.Context, jobID snowflake.ID) error {
	job, err := s.findJob(ctx, s.db, jobID)
	if err != nil {
		return err
	}
	if job == nil || job.Status != StatusPending {
		return nil
	}
	_, err = s.apply(ctx, job)
	return err
}

// ApplyAfterCommit is the request-path variant of Apply: failures are logged
// and left for the worker.
func (s *Syncer) ApplyAfterCommit(ctx context.Context, job Job) {
	if job.ID == 0 {
		return
	}
	if err := s.Apply(context.WithoutCancel(ctx), job.ID); err != nil {
		s.logger(ctx).Warn("claimsync.apply.deferred",
			zap.String("job_id", job.ID.String()),
			zap.String("user_id", job.UserID.String()),
			zap.String("reason", obsmetrics.ClassifyReason(err)),
			zap.Error(err),
		)
	}
}

func (s *Syncer) apply(ctx context.Context, job *Job) (string, error) {
	if err := s.provider.UpdateClaims(ctx, job.UserID, job.Claims.Data()); err != nil {
		failed, markErr := s.recordFailure(ctx, job, err, s.clock.Now())
		if markErr != nil {
			return "", errors.Join(err, markErr)
		}
		if failed {
			return obsmetrics.ClaimSyncFailed, err
		}
		return obsmetrics.ClaimSyncRetried, err
	}
	if err := s.markApplied(ctx, job.ID, s.clock.Now()); err != nil {
		return "", err
	}
	return obsmetrics.ClaimSyncApplied, nil
}

// RunOnce processes one batch of due jobs.
func (s *Syncer) RunOnce(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, "claim_sync", s.cfg.BatchSize)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	cutoff := s.clock.Now().Add(-s.cfg.Grace)
	var jobs []Job
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		jobs, err = s.fetchDue(ctx, tx, cutoff, s.cfg.BatchSize)
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			return nil
		}
		// Touching the rows pushes them past the next cutoff while this run owns them.
		ids := make([]snowflake.ID, 0, len(jobs))
		for _, job := range jobs {
			ids = append(ids, job.ID)
		}
		return tx.Model(&Job{}).
			Where("id IN ?", ids).
			Update("updated_at", s.clock.Now()).Error
	})
	if err != nil {
		run.IncError()
		return err
	}

	counts := map[string]int{}
	for i := range jobs {
		outcome, err := s.apply(ctx, &jobs[i])
		if outcome != "" {
			counts[outcome]++
		}
		if err != nil {
			s.logJobError(ctx, run, &jobs[i], err)
			continue
		}
		run.AddProcessed(1)
	}
	for outcome, n := range counts {
		s.metrics.AddClaimSync(outcome, n)
	}
	return nil
}

// RunForever runs RunOnce on every tick until ctx is cancelled.
func (s *Syncer) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now()

	for {
		if lag := s.clock.Now().Sub(nextRun); lag > 0 {
			s.metrics.ObserveWorkerLag(lag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("claimsync run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
