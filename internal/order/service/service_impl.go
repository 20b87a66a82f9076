package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	bmdomain "github.com/smallbiznis/tally/internal/businessmetrics/domain"
	"github.com/smallbiznis/tally/internal/clock"
	"github.com/smallbiznis/tally/internal/order/domain"
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
		log:     p.Log.Named("order.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		clock:   p.Clock,
		metrics: p.Metrics,
	}
}

func (s *Service) List(ctx context.Context, filter domain.ListFilter) ([]domain.Order, error) {
	t, ok := tenant.FromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidTenant
	}
	return s.repo.List(ctx, s.db, t, filter)
}

func (s *Service) Get(ctx context.Context, id string) (domain.Order, error) {
	t, ok := tenant.FromContext(ctx)
	if !ok {
		return domain.Order{}, domain.ErrInvalidTenant
	}
	orderID, err := parseID(id)
	if err != nil {
		return domain.Order{}, err
	}

	order, err := s.repo.FindByID(ctx, s.db, t, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order == nil {
		return domain.Order{}, domain.ErrNotFound
	}
	return *order, nil
}

func (s *Service) Create(ctx context.Context, createdBy snowflake.ID, req domain.CreateOrderRequest) (domain.Order, error) {
	t, ok := tenant.FromContext(ctx)
	if !ok {
		return domain.Order{}, domain.ErrInvalidTenant
	}

	customer := strings.TrimSpace(req.CustomerName)
	if customer == "" {
		return domain.Order{}, domain.ErrInvalidCustomerName
	}

	now := s.clock.Now()
	orgID, personalID := t.Columns()
	order := domain.Order{
		ID:                s.genID.Generate(),
		OrgID:             orgID,
		PersonalAccountID: personalID,
		CustomerName:      customer,
		DeliveryAddress:   strings.TrimSpace(req.DeliveryAddress),
		DeliveryTime:      req.DeliveryTime,
		IsCompleted:       req.IsCompleted,
		Description:       strings.TrimSpace(req.Description),
		CreatedBy:         createdBy,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	subtotal := decimal.Zero
	for _, item := range req.Items {
		name := strings.TrimSpace(item.Name)
		if name == "" || item.Quantity <= 0 || item.UnitPrice.IsNegative() {
			return domain.Order{}, domain.ErrInvalidItem
		}
		total := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(total)
		order.Items = append(order.Items, domain.OrderItem{
			ID:         s.genID.Generate(),
			OrderID:    order.ID,
			Name:       name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: total,
		})
	}
	for _, fee := range req.Fees {
		name := strings.TrimSpace(fee.Name)
		if name == "" || fee.Amount.IsNegative() {
			return domain.Order{}, domain.ErrInvalidFee
		}
		subtotal = subtotal.Add(fee.Amount)
		order.Fees = append(order.Fees, domain.AdditionalFee{
			ID:      s.genID.Generate(),
			OrderID: order.ID,
			Name:    name,
			Amount:  fee.Amount,
		})
	}

	order.TotalAmount = subtotal
	if req.TotalAmount != nil {
		if req.TotalAmount.IsNegative() {
			return domain.Order{}, domain.ErrInvalidAmount
		}
		order.TotalAmount = *req.TotalAmount
	}

	if err := s.repo.Insert(ctx, s.db, &order); err != nil {
		return domain.Order{}, err
	}
	if order.IsCompleted {
		s.recompute(ctx, t, bmdomain.TriggerOrderCompleted)
	}
	return order, nil
}

func (s *Service) Toggle(ctx context.Context, id string) (domain.Order, error) {
	t, ok := tenant.FromContext(ctx)
	if !ok {
		return domain.Order{}, domain.ErrInvalidTenant
	}
	orderID, err := parseID(id)
	if err != nil {
		return domain.Order{}, err
	}

	var out domain.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.repo.FindByID(ctx, tx, t, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return domain.ErrNotFound
		}

		order.IsCompleted = !order.IsCompleted
		order.UpdatedAt = s.clock.Now()
		if err := s.repo.SetCompleted(ctx, tx, t, orderID, order.IsCompleted, order.UpdatedAt); err != nil {
			return err
		}
		out = *order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	if out.IsCompleted {
		s.recompute(ctx, t, bmdomain.TriggerOrderCompleted)
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id string) (domain.Order, error) {
	t, ok := tenant.FromContext(ctx)
	if !ok {
		return domain.Order{}, domain.ErrInvalidTenant
	}
	orderID, err := parseID(id)
	if err != nil {
		return domain.Order{}, err
	}

	var out domain.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.repo.FindByID(ctx, tx, t, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return domain.ErrNotFound
		}
		if err := s.repo.Delete(ctx, tx, t, orderID); err != nil {
			return err
		}
		out = *order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	if out.IsCompleted {
		s.recompute(ctx, t, bmdomain.TriggerOrderDeleted)
	}
	return out, nil
}

// recompute refreshes the cached metrics. The order change is already
// committed, so failures are logged and not returned.
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

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
