package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tally/internal/businessmetrics/domain"
	"github.com/smallbiznis/tally/internal/clock"
	obsmetrics "github.com/smallbiznis/tally/internal/observability/metrics"
	"github.com/smallbiznis/tally/internal/ratelimit"
	"github.com/smallbiznis/tally/internal/tenant"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	lockAttempts = 3
	lockBackoff  = 50 * time.Millisecond
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Clock   clock.Clock
	Lock    *ratelimit.TenantLock       `optional:"true"`
	Metrics *obsmetrics.DomainMetrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	clock   clock.Clock
	lock    *ratelimit.TenantLock
	metrics *obsmetrics.DomainMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("businessmetrics.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		clock:   p.Clock,
		lock:    p.Lock,
		metrics: p.Metrics,
	}
}

func (s *Service) Get(ctx context.Context) (domain.BusinessMetrics, error) {
	t, ok := tenant.FromContext(ctx)
	if !ok {
		return domain.BusinessMetrics{}, domain.ErrInvalidTenant
	}

	row, err := s.repo.FindByTenant(ctx, s.db, t)
	if err != nil {
		return domain.BusinessMetrics{}, err
	}
	if row == nil {
		orgID, personalID := t.Columns()
		return domain.BusinessMetrics{
			OrgID:             orgID,
			PersonalAccountID: personalID,
			Revenue:           decimal.Zero,
			Expenses:          decimal.Zero,
			Profit:            decimal.Zero,
		}, nil
	}
	return *row, nil
}

// Recompute rebuilds the row from the stored orders and expenses. With redis
// configured it runs under a per-tenant lock; when the lock stays busy the
// recomputation proceeds and the last writer wins.
func (s *Service) Recompute(ctx context.Context, t tenant.Tenant, trigger string) (domain.BusinessMetrics, error) {
	if t.IsZero() {
		return domain.BusinessMetrics{}, domain.ErrInvalidTenant
	}

	start := s.clock.Now()
	release := s.acquire(ctx, t)
	defer release()

	row, err := s.recompute(ctx, t)
	s.metrics.ObserveRecompute(trigger, s.clock.Now().Sub(start), err)
	if err != nil {
		s.log.Error("recompute business metrics failed",
			zap.String("tenant", t.String()),
			zap.String("trigger", trigger),
			zap.Error(err),
		)
		return domain.BusinessMetrics{}, err
	}
	return row, nil
}

func (s *Service) recompute(ctx context.Context, t tenant.Tenant) (domain.BusinessMetrics, error) {
	var out domain.BusinessMetrics
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		totals, err := s.repo.SumTotals(ctx, tx, t)
		if err != nil {
			return err
		}

		row, err := s.repo.FindByTenant(ctx, tx, t)
		if err != nil {
			return err
		}
		if row == nil {
			orgID, personalID := t.Columns()
			row = &domain.BusinessMetrics{
				ID:                s.genID.Generate(),
				OrgID:             orgID,
				PersonalAccountID: personalID,
			}
		}

		row.Revenue = totals.Revenue
		row.Expenses = totals.Expenses
		row.Profit = totals.Revenue.Sub(totals.Expenses)
		row.UpdatedAt = s.clock.Now()

		if err := s.repo.Save(ctx, tx, row); err != nil {
			return err
		}
		out = *row
		return nil
	})
	return out, err
}

func (s *Service) acquire(ctx context.Context, t tenant.Tenant) func() {
	noop := func() {}
	if !s.lock.Enabled() {
		return noop
	}

	key := t.String()
	for attempt := 0; attempt < lockAttempts; attempt++ {
		token, ok, err := s.lock.TryLock(ctx, key)
		if err != nil {
			s.log.Warn("metrics lock unavailable", zap.String("tenant", key), zap.Error(err))
			return noop
		}
		if ok {
			return func() {
				if err := s.lock.Release(context.WithoutCancel(ctx), key, token); err != nil {
					s.log.Warn("failed to release metrics lock", zap.String("tenant", key), zap.Error(err))
				}
			}
		}

		timer := time.NewTimer(lockBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return noop
		case <-timer.C:
		}
	}

	s.log.Warn("metrics lock busy, recomputing without it", zap.String("tenant", key))
	return noop
}
