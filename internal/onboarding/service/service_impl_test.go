package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/tally/internal/auth/domain"
	authrepository "github.com/smallbiznis/tally/internal/auth/repository"
	"github.com/smallbiznis/tally/internal/claimsync"
	"github.com/smallbiznis/tally/internal/clock"
	"github.com/smallbiznis/tally/internal/config"
	"github.com/smallbiznis/tally/internal/onboarding/domain"
	"github.com/smallbiznis/tally/internal/onboarding/repository"
	orgdomain "github.com/smallbiznis/tally/internal/organization/domain"
	orgrepository "github.com/smallbiznis/tally/internal/organization/repository"
	orgservice "github.com/smallbiznis/tally/internal/organization/service"
	settingsdomain "github.com/smallbiznis/tally/internal/settings/domain"
	settingsrepository "github.com/smallbiznis/tally/internal/settings/repository"
	settingsservice "github.com/smallbiznis/tally/internal/settings/service"
	"github.com/smallbiznis/tally/internal/tenant"
	"github.com/smallbiznis/tally/pkg/db"
	"go.uber.org/zap"
)

type claimsWriter struct {
	users authdomain.Repository
}

func (w claimsWriter) CurrentCaller(context.Context, string) (*authdomain.Caller, error) {
	return nil, authdomain.ErrUnauthenticated
}

func (w claimsWriter) UpdateClaims(ctx context.Context, id snowflake.ID, claims authdomain.Claims) error {
	return w.users.UpdateClaims(ctx, id, claims)
}

type harness struct {
	svc      domain.Service
	orgs     orgdomain.Service
	settings settingsdomain.Service
	users    authdomain.Repository
	node     *snowflake.Node
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(
		&authdomain.User{},
		&domain.PersonalAccount{},
		&orgdomain.Organization{},
		&orgdomain.OrganizationMember{},
		&orgdomain.MemberPermission{},
		&orgdomain.JoinRequest{},
		&settingsdomain.Settings{},
		&claimsync.Job{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	node, err := snowflake.NewNode(2)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	clk := clock.NewFakeClock(time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC))
	users := authrepository.New(conn)

	settings := settingsservice.New(settingsservice.Params{
		DB:     conn,
		Log:    zap.NewNop(),
		GenID:  node,
		Repo:   settingsrepository.Provide(),
		Clock:  clk,
		Tuning: config.NewStaticDashboardTuning(config.DefaultDashboardTuning(config.Config{})),
	})
	syncer, err := claimsync.New(claimsync.Params{
		DB: conn, Log: zap.NewNop(), GenID: node, Clock: clk,
		Provider: claimsWriter{users: users},
	})
	if err != nil {
		t.Fatalf("claimsync: %v", err)
	}
	orgs := orgservice.NewService(orgservice.Params{
		DB: conn, Log: zap.NewNop(), GenID: node, Clock: clk,
		Repo:     orgrepository.NewRepository(conn),
		Users:    users,
		Settings: settings,
		Claims:   syncer,
	})

	svc := New(Params{
		DB:            conn,
		Log:           zap.NewNop(),
		GenID:         node,
		Clock:         clk,
		Repo:          repository.Provide(),
		Users:         users,
		Organizations: orgs,
		Settings:      settings,
		Claims:        syncer,
	})
	return &harness{svc: svc, orgs: orgs, settings: settings, users: users, node: node}
}

func (h *harness) register(t *testing.T, name, email string) *authdomain.Caller {
	t.Helper()
	now := time.Now().UTC()
	u := &authdomain.User{ID: h.node.Generate(), FullName: name, Email: email, CreatedAt: now, UpdatedAt: now}
	if err := h.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u.Caller()
}

func TestPersonalOnboarding(t *testing.T) {
	h := newHarness(t)
	caller := h.register(t, "Pat Personal", "pat@example.com")
	ctx := context.Background()

	res, err := h.svc.Onboard(ctx, caller, domain.Request{AccountType: "personal", BusinessEmail: "shop@pat.test"})
	if err != nil {
		t.Fatalf("onboard: %v", err)
	}
	if res.PersonalAccountID == nil {
		t.Fatalf("expected personal account id")
	}

	user, err := h.users.FindByID(ctx, caller.ID)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	claims := user.Claims.Data()
	if claims.AccountType != authdomain.AccountTypePersonal || claims.PersonalAccountID != *res.PersonalAccountID {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.Role != "" || claims.OrganizationID != 0 {
		t.Fatalf("personal claims must carry no role or organization, got %+v", claims)
	}
	if !user.IsOnboarded {
		t.Fatalf("expected user onboarded")
	}

	settings, err := h.settings.Get(tenant.WithContext(ctx, tenant.Resolve(claims)))
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if settings.ID == 0 || settings.BusinessEmail != "shop@pat.test" {
		t.Fatalf("expected provisioned settings, got %+v", settings)
	}

	_, err = h.svc.Onboard(ctx, caller, domain.Request{AccountType: "personal"})
	if !errors.Is(err, domain.ErrAlreadyOnboarded) {
		t.Fatalf("expected ErrAlreadyOnboarded, got %v", err)
	}
}

func TestCreateAndJoinOnboarding(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := h.register(t, "Ada Admin", "ada@example.com")
	joiner := h.register(t, "Jo Joiner", "jo@example.com")

	created, err := h.svc.Onboard(ctx, admin, domain.Request{AccountType: "create", OrganizationName: "Corner Shop"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Organization == nil || created.Organization.Code == "" {
		t.Fatalf("expected organization with code, got %+v", created)
	}

	status, err := h.svc.Status(ctx, joiner)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.OnboardingCompleted || status.HasPendingRequest || status.AccountType != nil {
		t.Fatalf("unexpected status before join: %+v", status)
	}

	joined, err := h.svc.Onboard(ctx, joiner, domain.Request{
		AccountType:      "join",
		OrganizationCode: created.Organization.Code,
		FullName:         "Jo J.",
	})
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if joined.JoinRequest == nil || joined.JoinRequest.Name != "Jo J." {
		t.Fatalf("expected join request, got %+v", joined)
	}

	status, err = h.svc.Status(ctx, joiner)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.OnboardingCompleted || !status.HasPendingRequest {
		t.Fatalf("expected pending request, got %+v", status)
	}

	status, err = h.svc.Status(ctx, admin)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.OnboardingCompleted || status.AccountType == nil || *status.AccountType != authdomain.AccountTypeOrganization {
		t.Fatalf("expected onboarded organization admin, got %+v", status)
	}
}

func TestOnboardRefusedWhileJoinRequestPending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := h.register(t, "Ada Admin", "ada@example.com")
	joiner := h.register(t, "Jo Joiner", "jo@example.com")

	created, err := h.svc.Onboard(ctx, admin, domain.Request{AccountType: "create", OrganizationName: "Corner Shop"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := h.svc.Onboard(ctx, joiner, domain.Request{AccountType: "join", OrganizationCode: created.Organization.Code}); err != nil {
		t.Fatalf("join: %v", err)
	}

	for _, choice := range []string{"personal", "create"} {
		_, err := h.svc.Onboard(ctx, joiner, domain.Request{AccountType: choice, OrganizationName: "Side Hustle"})
		if !errors.Is(err, domain.ErrJoinRequestPending) {
			t.Fatalf("%s: expected ErrJoinRequestPending, got %v", choice, err)
		}
	}

	user, err := h.users.FindByID(ctx, joiner.ID)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if user.IsOnboarded || user.AccountType != nil {
		t.Fatalf("expected joiner still waiting, got %+v", user)
	}
	member, err := h.orgs.MemberByUser(ctx, joiner.ID)
	if err != nil {
		t.Fatalf("member: %v", err)
	}
	if member != nil {
		t.Fatalf("expected no membership, got %+v", member)
	}
}

func TestOnboardValidation(t *testing.T) {
	h := newHarness(t)
	caller := h.register(t, "Val", "val@example.com")

	cases := []struct {
		name string
		req  domain.Request
		want error
	}{
		{"unknown choice", domain.Request{AccountType: "team"}, domain.ErrInvalidAccountType},
		{"bad email", domain.Request{AccountType: "personal", BusinessEmail: "nope"}, domain.ErrInvalidEmail},
		{"missing org name", domain.Request{AccountType: "create"}, orgdomain.ErrInvalidName},
		{"unknown code", domain.Request{AccountType: "join", OrganizationCode: "ZZZZ"}, orgdomain.ErrOrganizationNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.svc.Onboard(context.Background(), caller, tc.req)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	if _, err := h.svc.Onboard(context.Background(), nil, domain.Request{}); !errors.Is(err, domain.ErrInvalidUser) {
		t.Fatalf("expected ErrInvalidUser, got %v", err)
	}
}
