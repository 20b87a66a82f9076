package tenant

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/tally/internal/auth/domain"
	"github.com/smallbiznis/tally/pkg/db"
)

func TestResolvePrefersOrganization(t *testing.T) {
	claims := authdomain.Claims{OrganizationID: 10, PersonalAccountID: 20}
	got := Resolve(claims)
	if got.Kind() != KindOrganization || got.ID() != 10 {
		t.Fatalf("expected organization:10, got %s", got)
	}
}

func TestResolvePersonal(t *testing.T) {
	got := Resolve(authdomain.Claims{PersonalAccountID: 20})
	if got != Personal(20) {
		t.Fatalf("expected personal:20, got %s", got)
	}
}

func TestResolveEmptyIsZero(t *testing.T) {
	got := Resolve(authdomain.Claims{AccountType: authdomain.AccountTypePersonal})
	if !got.IsZero() {
		t.Fatalf("expected zero tenant, got %s", got)
	}
}

func TestResolveIsPure(t *testing.T) {
	claims := authdomain.Claims{OrganizationID: 5}
	first := Resolve(claims)
	for i := 0; i < 10; i++ {
		if Resolve(claims) != first {
			t.Fatalf("expected identical results across calls")
		}
	}
	if claims.OrganizationID != 5 {
		t.Fatalf("expected claims untouched")
	}
}

func TestColumnsRoundTrip(t *testing.T) {
	for _, tn := range []Tenant{Organization(1), Personal(2), {}} {
		org, personal := tn.Columns()
		if org != nil && personal != nil {
			t.Fatalf("expected at most one column set for %s", tn)
		}
		if FromColumns(org, personal) != tn {
			t.Fatalf("expected round trip for %s", tn)
		}
	}
}

func TestContextRejectsZeroTenant(t *testing.T) {
	if _, ok := FromContext(WithContext(context.Background(), Tenant{})); ok {
		t.Fatalf("expected zero tenant to be absent")
	}
	got, ok := FromContext(WithContext(context.Background(), Personal(3)))
	if !ok || got.ID() != 3 {
		t.Fatalf("expected personal:3 from context")
	}
}

type scopedRow struct {
	ID                snowflake.ID  `gorm:"primaryKey"`
	OrganizationID    *snowflake.ID `gorm:"column:organization_id"`
	PersonalAccountID *snowflake.ID `gorm:"column:personal_account_id"`
}

func TestScopeFiltersByEitherColumn(t *testing.T) {
	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&scopedRow{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	for i, tn := range []Tenant{Organization(100), Personal(200), Organization(300)} {
		org, personal := tn.Columns()
		if err := conn.Create(&scopedRow{ID: snowflake.ID(i + 1), OrganizationID: org, PersonalAccountID: personal}).Error; err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	var rows []scopedRow
	if err := conn.Scopes(Scope(Personal(200))).Find(&rows).Error; err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != 2 {
		t.Fatalf("expected only row 2, got %+v", rows)
	}

	rows = nil
	if err := conn.Scopes(Scope(Tenant{})).Find(&rows).Error; err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected zero tenant to match nothing, got %d rows", len(rows))
	}
}
