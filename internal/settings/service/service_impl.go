package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tally/internal/clock"
	"github.com/smallbiznis/tally/internal/config"
	"github.com/smallbiznis/tally/internal/settings/domain"
	"github.com/smallbiznis/tally/internal/tenant"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Repo   domain.Repository
	Clock  clock.Clock
	Tuning *config.DashboardTuningHolder
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	repo   domain.Repository
	clock  clock.Clock
	tuning *config.DashboardTuningHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("settings.service"),
		genID:  p.GenID,
		repo:   p.Repo,
		clock:  p.Clock,
		tuning: p.Tuning,
	}
}

func (s *Service) Get(ctx context.Context) (domain.Settings, error) {
	t, ok := tenant.FromContext(ctx)
	if !ok {
		return domain.Settings{}, domain.ErrInvalidTenant
	}

	row, err := s.repo.FindByTenant(ctx, s.db, t)
	if err != nil {
		return domain.Settings{}, err
	}
	if row == nil {
		return s.defaults(t), nil
	}
	return *row, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (domain.Settings, error) {
	t, ok := tenant.FromContext(ctx)
	if !ok {
		return domain.Settings{}, domain.ErrInvalidTenant
	}

	var out domain.Settings
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := s.repo.FindByTenant(ctx, tx, t)
		if err != nil {
			return err
		}

		insert := row == nil
		current := s.defaults(t)
		if row != nil {
			current = *row
		}

		if err := apply(&current, req); err != nil {
			return err
		}
		current.UpdatedAt = s.clock.Now()

		if insert {
			current.ID = s.genID.Generate()
			current.CreatedAt = current.UpdatedAt
			if err := s.repo.Insert(ctx, tx, &current); err != nil {
				return err
			}
		} else if err := s.repo.Update(ctx, tx, &current); err != nil {
			return err
		}
		out = current
		return nil
	})
	if err != nil {
		return domain.Settings{}, err
	}
	return out, nil
}

func (s *Service) Provision(ctx context.Context, tx *gorm.DB, t tenant.Tenant, businessName, businessEmail string) (domain.Settings, error) {
	if t.IsZero() {
		return domain.Settings{}, domain.ErrInvalidTenant
	}

	row := s.defaults(t)
	row.ID = s.genID.Generate()
	row.BusinessName = strings.TrimSpace(businessName)
	row.BusinessEmail = strings.TrimSpace(businessEmail)
	row.CreatedAt = s.clock.Now()
	row.UpdatedAt = row.CreatedAt

	if err := s.repo.Insert(ctx, tx, &row); err != nil {
		return domain.Settings{}, err
	}
	return row, nil
}

func (s *Service) defaults(t tenant.Tenant) domain.Settings {
	orgID, personalID := t.Columns()
	currency := "XCD"
	if s.tuning != nil {
		currency = s.tuning.Get().DefaultCurrency
	}
	return domain.Settings{
		OrgID:                orgID,
		PersonalAccountID:    personalID,
		Currency:             currency,
		BusinessFunding:      decimal.Zero,
		NotificationsEnabled: true,
		EmailNotifications:   true,
	}
}

func apply(row *domain.Settings, req domain.UpdateRequest) error {
	if req.BusinessName != nil {
		row.BusinessName = strings.TrimSpace(*req.BusinessName)
	}
	if req.BusinessEmail != nil {
		email := strings.TrimSpace(*req.BusinessEmail)
		if email != "" && !strings.Contains(email, "@") {
			return domain.ErrInvalidEmail
		}
		row.BusinessEmail = email
	}
	if req.Currency != nil {
		currency := strings.ToUpper(strings.TrimSpace(*req.Currency))
		if len(currency) != 3 {
			return domain.ErrInvalidCurrency
		}
		row.Currency = currency
	}
	if req.BusinessFunding != nil {
		if req.BusinessFunding.IsNegative() {
			return domain.ErrInvalidFunding
		}
		row.BusinessFunding = *req.BusinessFunding
	}
	if req.NotificationsEnabled != nil {
		row.NotificationsEnabled = *req.NotificationsEnabled
	}
	if req.EmailNotifications != nil {
		row.EmailNotifications = *req.EmailNotifications
	}
	return nil
}
