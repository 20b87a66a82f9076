package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/tally/internal/auth/domain"
	"github.com/smallbiznis/tally/internal/auth/repository"
	"github.com/smallbiznis/tally/internal/auth/token"
	"github.com/smallbiznis/tally/internal/clock"
	"github.com/smallbiznis/tally/pkg/db"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) authdomain.Service {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&authdomain.User{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	return New(Params{
		Log:    zap.NewNop(),
		Repo:   repository.New(dbConn),
		Tokens: token.New([]byte("test-secret"), time.Hour, clock.NewFakeClock(time.Now())),
		GenID:  node,
	})
}

func TestRegisterThenCurrentCaller(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, authdomain.RegisterRequest{
		FullName: "Alice Able",
		Email:    " Alice@Example.com ",
		Password: "correct-password",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.Caller.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %s", res.Caller.Email)
	}

	caller, err := svc.CurrentCaller(ctx, res.Token)
	if err != nil {
		t.Fatalf("current caller: %v", err)
	}
	if caller.ID != res.Caller.ID || caller.FullName != "Alice Able" {
		t.Fatalf("unexpected caller %+v", caller)
	}
	if caller.Claims.OnboardingCompleted {
		t.Fatalf("new users must not be onboarded")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	req := authdomain.RegisterRequest{FullName: "Bob", Email: "bob@example.com", Password: "strong-password"}
	if _, err := svc.Register(ctx, req); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(ctx, req); !errors.Is(err, authdomain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		req  authdomain.RegisterRequest
		want error
	}{
		{authdomain.RegisterRequest{Email: "a@b.co", Password: "longenough"}, authdomain.ErrInvalidName},
		{authdomain.RegisterRequest{FullName: "A", Email: "nope", Password: "longenough"}, authdomain.ErrInvalidEmail},
		{authdomain.RegisterRequest{FullName: "A", Email: "a@b.co", Password: "short"}, authdomain.ErrInvalidPassword},
	}
	for _, tc := range cases {
		if _, err := svc.Register(ctx, tc.req); !errors.Is(err, tc.want) {
			t.Fatalf("expected %v, got %v", tc.want, err)
		}
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, authdomain.RegisterRequest{
		FullName: "Carol",
		Email:    "carol@example.com",
		Password: "correct-password",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Login(ctx, authdomain.LoginRequest{Email: "carol@example.com", Password: "wrong-password"}); !errors.Is(err, authdomain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, authdomain.LoginRequest{Email: "nobody@example.com", Password: "whatever1"}); !errors.Is(err, authdomain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
	if _, err := svc.Login(ctx, authdomain.LoginRequest{Email: "carol@example.com", Password: "correct-password"}); err != nil {
		t.Fatalf("expected login to succeed, got %v", err)
	}
}

func TestUpdateClaimsVisibleOnNextLookup(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, authdomain.RegisterRequest{FullName: "Dan", Email: "dan@example.com", Password: "strong-password"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	claims := authdomain.Claims{
		Role:                authdomain.RoleMember,
		AccountType:         authdomain.AccountTypeOrganization,
		OrganizationID:      snowflake.ID(99),
		OnboardingCompleted: true,
	}
	if err := svc.UpdateClaims(ctx, res.Caller.ID, claims); err != nil {
		t.Fatalf("update claims: %v", err)
	}

	caller, err := svc.CurrentCaller(ctx, res.Token)
	if err != nil {
		t.Fatalf("current caller: %v", err)
	}
	if caller.Claims != claims {
		t.Fatalf("expected %+v, got %+v", claims, caller.Claims)
	}
}

func TestCurrentCallerRejectsGarbage(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.CurrentCaller(context.Background(), "not-a-token"); !errors.Is(err, authdomain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}
