// Package tenant models the owning scope of every order, expense and
// settings row: exactly one personal account or one organization.
package tenant

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/tally/internal/auth/domain"
	"gorm.io/gorm"
)

type Kind string

const (
	KindPersonal     Kind = "personal"
	KindOrganization Kind = "organization"
)

var ErrNotResolved = errors.New("tenant not found")

// Tenant is either Personal(id) or Organization(id). The zero value is "no tenant".
type Tenant struct {
	kind Kind
	id   snowflake.ID
}

func Personal(id snowflake.ID) Tenant {
	if id == 0 {
		return Tenant{}
	}
	return Tenant{kind: KindPersonal, id: id}
}

func Organization(id snowflake.ID) Tenant {
	if id == 0 {
		return Tenant{}
	}
	return Tenant{kind: KindOrganization, id: id}
}

func (t Tenant) Kind() Kind           { return t.kind }
func (t Tenant) ID() snowflake.ID     { return t.id }
func (t Tenant) IsZero() bool         { return t.id == 0 }
func (t Tenant) IsOrganization() bool { return t.kind == KindOrganization && t.id != 0 }

func (t Tenant) String() string {
	if t.IsZero() {
		return "none"
	}
	return fmt.Sprintf("%s:%s", t.kind, t.id)
}

// Columns returns the values of the organization_id and personal_account_id
// columns. At most one is non-nil.
func (t Tenant) Columns() (orgID *snowflake.ID, personalID *snowflake.ID) {
	if t.IsZero() {
		return nil, nil
	}
	id := t.id
	if t.kind == KindOrganization {
		return &id, nil
	}
	return nil, &id
}

// FromColumns is the inverse of Columns. Rows with both columns set resolve
// to the organization, matching Resolve.
func FromColumns(orgID, personalID *snowflake.ID) Tenant {
	if orgID != nil && *orgID != 0 {
		return Organization(*orgID)
	}
	if personalID != nil && *personalID != 0 {
		return Personal(*personalID)
	}
	return Tenant{}
}

// Resolve picks the tenant of the session claims: organization first, then personal account.
func Resolve(claims authdomain.Claims) Tenant {
	if claims.OrganizationID != 0 {
		return Organization(claims.OrganizationID)
	}
	return Personal(claims.PersonalAccountID)
}

// Scope filters rows owned by t. A zero tenant matches nothing.
func Scope(t Tenant) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if t.IsZero() {
			return db.Where("1 = 0")
		}
		return db.Where("(organization_id = ? OR personal_account_id = ?)", t.id, t.id)
	}
}

type ctxKey struct{}

func WithContext(ctx context.Context, t Tenant) context.Context {
	return context.WithValue(ctx, ctxKey{}, t)
}

func FromContext(ctx context.Context) (Tenant, bool) {
	t, ok := ctx.Value(ctxKey{}).(Tenant)
	return t, ok && !t.IsZero()
}
