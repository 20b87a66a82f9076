package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tally/internal/clock"
	"github.com/smallbiznis/tally/internal/config"
	"github.com/smallbiznis/tally/internal/settings/domain"
	"github.com/smallbiznis/tally/internal/settings/repository"
	"github.com/smallbiznis/tally/internal/tenant"
	"github.com/smallbiznis/tally/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (domain.Service, *Service) {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Settings{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:     conn,
		Log:    zap.NewNop(),
		GenID:  node,
		Repo:   repository.Provide(),
		Clock:  clock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		Tuning: config.NewStaticDashboardTuning(config.DefaultDashboardTuning(config.Config{})),
	})
	return svc, svc.(*Service)
}

func TestGetReturnsDefaults(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := tenant.WithContext(context.Background(), tenant.Personal(9))

	got, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "XCD", got.Currency)
	assert.True(t, got.BusinessFunding.IsZero())
	assert.True(t, got.NotificationsEnabled)
	assert.True(t, got.EmailNotifications)
	assert.Equal(t, "", got.BusinessName)
}

func TestGetRequiresTenant(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Get(context.Background())
	assert.True(t, errors.Is(err, domain.ErrInvalidTenant))
}

func TestUpdateUpsertsPerTenant(t *testing.T) {
	svc, _ := newTestService(t)
	orgCtx := tenant.WithContext(context.Background(), tenant.Organization(5))
	otherCtx := tenant.WithContext(context.Background(), tenant.Organization(6))

	name := "Bakery"
	funding := decimal.RequireFromString("250.50")
	_, err := svc.Update(orgCtx, domain.UpdateRequest{BusinessName: &name, BusinessFunding: &funding})
	require.NoError(t, err)

	currency := "usd"
	updated, err := svc.Update(orgCtx, domain.UpdateRequest{Currency: &currency})
	require.NoError(t, err)
	assert.Equal(t, "USD", updated.Currency)
	assert.Equal(t, "Bakery", updated.BusinessName)

	got, err := svc.Get(orgCtx)
	require.NoError(t, err)
	assert.Equal(t, "Bakery", got.BusinessName)
	assert.True(t, funding.Equal(got.BusinessFunding), "expected funding 250.50, got %s", got.BusinessFunding)

	other, err := svc.Get(otherCtx)
	require.NoError(t, err)
	assert.Equal(t, "", other.BusinessName)
}

func TestUpdateValidates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := tenant.WithContext(context.Background(), tenant.Personal(1))

	bad := "dollars"
	_, err := svc.Update(ctx, domain.UpdateRequest{Currency: &bad})
	assert.True(t, errors.Is(err, domain.ErrInvalidCurrency))

	email := "nope"
	_, err = svc.Update(ctx, domain.UpdateRequest{BusinessEmail: &email})
	assert.True(t, errors.Is(err, domain.ErrInvalidEmail))

	negative := decimal.NewFromInt(-1)
	_, err = svc.Update(ctx, domain.UpdateRequest{BusinessFunding: &negative})
	assert.True(t, errors.Is(err, domain.ErrInvalidFunding))
}

func TestProvisionSetsOneTenantColumn(t *testing.T) {
	_, impl := newTestService(t)

	row, err := impl.Provision(context.Background(), impl.db, tenant.Organization(77), " Shop ", "shop@example.com")
	require.NoError(t, err)
	require.NotNil(t, row.OrgID)
	assert.Nil(t, row.PersonalAccountID)
	assert.Equal(t, "Shop", row.BusinessName)

	_, err = impl.Provision(context.Background(), impl.db, tenant.Tenant{}, "", "")
	assert.True(t, errors.Is(err, domain.ErrInvalidTenant))
}
