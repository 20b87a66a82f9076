package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/tally/internal/audit/domain"
	"github.com/smallbiznis/tally/internal/audit/repository"
	"github.com/smallbiznis/tally/internal/clock"
	obscontext "github.com/smallbiznis/tally/internal/observability/context"
	"github.com/smallbiznis/tally/internal/tenant"
	"github.com/smallbiznis/tally/pkg/db"
	"github.com/smallbiznis/tally/pkg/db/pagination"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (auditdomain.Service, *clock.FakeClock) {
	t.Helper()
	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&auditdomain.AuditLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	clk := clock.NewFakeClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := NewService(Params{DB: conn, Log: zap.NewNop(), GenID: node, Repo: repository.Provide(), Clock: clk})
	return svc, clk
}

func TestRecordResolvesContext(t *testing.T) {
	svc, _ := newTestService(t)
	orgID := snowflake.ID(42)

	ctx := tenant.WithContext(context.Background(), tenant.Organization(orgID))
	ctx = obscontext.WithActor(ctx, auditdomain.ActorTypeUser, "7")
	ctx = obscontext.WithIPAddress(ctx, "10.0.0.1")
	ctx = obscontext.WithRequestID(ctx, "req-1")

	err := svc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionJoinRequestApproved,
		TargetType: "join_request",
		Metadata:   map[string]any{"email": "jane@example.com"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := svc.List(ctx, auditdomain.ListRequest{OrgID: orgID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(resp.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(resp.Entries))
	}
	entry := resp.Entries[0]
	if entry.ActorType != auditdomain.ActorTypeUser || entry.ActorID == nil || *entry.ActorID != "7" {
		t.Fatalf("expected actor from context, got %s %v", entry.ActorType, entry.ActorID)
	}
	if entry.IPAddress == nil || *entry.IPAddress != "10.0.0.1" {
		t.Fatalf("expected ip address from context, got %v", entry.IPAddress)
	}
	if entry.Metadata["email"] != "j****@example.com" {
		t.Fatalf("expected masked email, got %v", entry.Metadata["email"])
	}
	if entry.Metadata["request_id"] != "req-1" {
		t.Fatalf("expected request id, got %v", entry.Metadata["request_id"])
	}
}

func TestRecordRequiresAction(t *testing.T) {
	svc, _ := newTestService(t)
	if err := svc.Record(context.Background(), auditdomain.Entry{Action: "  ", TargetType: "x"}); !errors.Is(err, auditdomain.ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}
}

func TestListPaginatesNewestFirst(t *testing.T) {
	svc, clk := newTestService(t)
	orgID := snowflake.ID(5)
	other := snowflake.ID(6)

	for i := 0; i < 3; i++ {
		if err := svc.Record(context.Background(), removal(orgID)); err != nil {
			t.Fatalf("audit: %v", err)
		}
		clk.Advance(time.Minute)
	}
	if err := svc.Record(context.Background(), removal(other)); err != nil {
		t.Fatalf("audit: %v", err)
	}

	first, err := svc.List(context.Background(), auditdomain.ListRequest{OrgID: orgID, Pagination: paginationOf("", 2)})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(first.Entries) != 2 || !first.PageInfo.HasMore {
		t.Fatalf("expected 2 entries with more, got %d has_more=%v", len(first.Entries), first.PageInfo.HasMore)
	}
	if !first.Entries[0].CreatedAt.After(first.Entries[1].CreatedAt) {
		t.Fatalf("expected newest first")
	}

	second, err := svc.List(context.Background(), auditdomain.ListRequest{OrgID: orgID, Pagination: paginationOf(first.PageInfo.NextPageToken, 2)})
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(second.Entries) != 1 || second.PageInfo.HasMore {
		t.Fatalf("expected final single entry, got %d has_more=%v", len(second.Entries), second.PageInfo.HasMore)
	}
}

func TestListValidation(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.List(context.Background(), auditdomain.ListRequest{}); !errors.Is(err, auditdomain.ErrInvalidOrganization) {
		t.Fatalf("expected ErrInvalidOrganization, got %v", err)
	}
	start := time.Now()
	end := start.Add(-time.Hour)
	_, err := svc.List(context.Background(), auditdomain.ListRequest{OrgID: 1, StartAt: &start, EndAt: &end})
	if !errors.Is(err, auditdomain.ErrInvalidTimeRange) {
		t.Fatalf("expected ErrInvalidTimeRange, got %v", err)
	}
	_, err = svc.List(context.Background(), auditdomain.ListRequest{OrgID: 1, Pagination: paginationOf("%%%", 10)})
	if !errors.Is(err, auditdomain.ErrInvalidPageToken) {
		t.Fatalf("expected ErrInvalidPageToken, got %v", err)
	}
}

func paginationOf(token string, size int) pagination.Pagination {
	return pagination.Pagination{PageToken: token, PageSize: size}
}

func removal(orgID snowflake.ID) auditdomain.Entry {
	return auditdomain.Entry{
		OrgID:      orgID,
		ActorType:  auditdomain.ActorTypeSystem,
		Action:     auditdomain.ActionMemberRemoved,
		TargetType: "member",
	}
}
