package authorization

import (
	"context"
	"errors"

	authdomain "github.com/smallbiznis/tally/internal/auth/domain"
	"github.com/smallbiznis/tally/internal/permission"
)

const (
	ObjectDashboard    = "dashboard"
	ObjectAnalytics    = "analytics"
	ObjectMetrics      = "business_metrics"
	ObjectFunding      = "funding"
	ObjectOrder        = "order"
	ObjectExpense      = "expense"
	ObjectSettings     = "settings"
	ObjectOrganization = "organization"
	ObjectMember       = "member"
	ObjectJoinRequest  = "join_request"
	ObjectAuditLog     = "audit_log"
)

const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionToggle = "toggle"
	ActionDelete = "delete"
	ActionDecide = "decide"
)

var (
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrNoPolicy      = errors.New("no capability policy for object and action")
)

// Service resolves which capabilities an (object, action) pair requires and
// runs the permission gate against them.
type Service interface {
	Requirements(object, action string) ([]permission.Capability, error)
	Authorize(ctx context.Context, caller *authdomain.Caller, object, action string) (permission.Decision, error)
	// Allows answers a visibility question. Unlike Authorize it never audits
	// a denial.
	Allows(ctx context.Context, caller *authdomain.Caller, object, action string) (bool, error)
}
