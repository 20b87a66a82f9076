package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	bmdomain "github.com/smallbiznis/tally/internal/businessmetrics/domain"
	"github.com/smallbiznis/tally/internal/clock"
	"github.com/smallbiznis/tally/internal/expense/domain"
	"github.com/smallbiznis/tally/internal/tenant"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Clock   clock.Clock
	Metrics bmdomain.Service `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	clock   clock.Clock
	metrics bmdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("expense.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		clock:   p.Clock,
		metrics: p.Metrics,
	}
}

func (s *Service) List(ctx context.Context, filter domain.ListFilter) ([]domain.Expense, error) {
	t, ok := tenant.FromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidTenant
	}
	return s.repo.List(ctx, s.db, t, filter)
}

func (s *Service) Create(ctx context.Context, createdBy snowflake.ID, req domain.CreateExpenseRequest) (domain.Expense, error) {
	t, ok := tenant.FromContext(ctx)
	if !ok {
		return domain.Expense{}, domain.ErrInvalidTenant
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		return domain.Expense{}, domain.ErrInvalidDescription
	}
	if req.Amount.IsNegative() {
		return domain.Expense{}, domain.ErrInvalidAmount
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		return domain.Expense{}, domain.ErrInvalidCategory
	}

	now := s.clock.Now()
	date := now
	if req.Date != nil && !req.Date.IsZero() {
		date = req.Date.UTC()
	}

	orgID, personalID := t.Columns()
	expense := domain.Expense{
		ID:                s.genID.Generate(),
		OrgID:             orgID,
		PersonalAccountID: personalID,
		Description:       description,
		Amount:            req.Amount,
		Category:          category,
		Vendor:            strings.TrimSpace(req.Vendor),
		Date:              date,
		ReceiptURL:        strings.TrimSpace(req.ReceiptURL),
		CreatedBy:         createdBy,
		CreatedAt:         now,
	}
	for _, item := range req.Items {
		desc := strings.TrimSpace(item.Description)
		if desc == "" || item.Quantity <= 0 || item.UnitPrice.IsNegative() {
			return domain.Expense{}, domain.ErrInvalidItem
		}
		expense.Items = append(expense.Items, domain.ExpenseItem{
			ID:          s.genID.Generate(),
			ExpenseID:   expense.ID,
			Description: desc,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Total:       item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))),
		})
	}

	if err := s.repo.Insert(ctx, s.db, &expense); err != nil {
		return domain.Expense{}, err
	}
	s.recompute(ctx, t, bmdomain.TriggerExpenseCreated)
	return expense, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	t, ok := tenant.FromContext(ctx)
	if !ok {
		return domain.ErrInvalidTenant
	}
	expenseID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || expenseID == 0 {
		return domain.ErrInvalidID
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expense, err := s.repo.FindByID(ctx, tx, t, expenseID)
		if err != nil {
			return err
		}
		if expense == nil {
			return domain.ErrNotFound
		}
		return s.repo.Delete(ctx, tx, t, expenseID)
	})
	if err != nil {
		return err
	}

	s.recompute(ctx, t, bmdomain.TriggerExpenseDeleted)
	return nil
}

func (s *Service) recompute(ctx context.Context, t tenant.Tenant, trigger string) {
	if s.metrics == nil {
		return
	}
	if _, err := s.metrics.Recompute(ctx, t, trigger); err != nil {
		s.log.Warn("business metrics recompute failed",
			zap.String("tenant", t.String()),
			zap.String("trigger", trigger),
			zap.Error(err),
		)
	}
}
