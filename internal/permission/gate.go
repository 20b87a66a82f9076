package permission

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/tally/internal/auth/domain"
	obsmetrics "github.com/smallbiznis/tally/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	ReasonUnauthorized = "Unauthorized"
	ReasonNoMembership = "No organization found"
	ReasonDenied       = "Permission denied: You don't have permission to perform this action"
)

// Member is the organization membership the gate evaluates.
type Member struct {
	ID          snowflake.ID
	OrgID       snowflake.ID
	UserID      snowflake.ID
	Role        authdomain.Role
	Permissions Set
}

// MemberStore looks up the membership of a user. It returns (nil, nil) when
// the user belongs to no organization.
type MemberStore interface {
	MemberByUser(ctx context.Context, userID snowflake.ID) (*Member, error)
}

// Decision is the outcome of a gate check. Denials are values, not errors.
type Decision struct {
	Allowed bool
	Caller  *authdomain.Caller
	Member  *Member
	Reason  string
	Status  int
}

// DeniedError carries a denial across an error-returning boundary.
type DeniedError struct {
	Reason string
	Status int
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Reason)
}

// Err converts a denial to *DeniedError; an allowed decision yields nil.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &DeniedError{Reason: d.Reason, Status: d.Status}
}

type Params struct {
	fx.In

	Log     *zap.Logger
	Members MemberStore
	Metrics *obsmetrics.DomainMetrics `optional:"true"`
}

type Gate struct {
	log     *zap.Logger
	members MemberStore
	metrics *obsmetrics.DomainMetrics
}

func NewGate(p Params) *Gate {
	return &Gate{
		log:     p.Log.Named("permission.gate"),
		members: p.Members,
		metrics: p.Metrics,
	}
}

// Check allows the caller when any one of required is held. Personal
// accounts own their single tenant and bypass capability checks. Lookup
// failures are returned as errors.
func (g *Gate) Check(ctx context.Context, caller *authdomain.Caller, required ...Capability) (Decision, error) {
	if caller == nil {
		g.metrics.IncGateDecision(obsmetrics.DecisionUnauthorized)
		return deny(nil, ReasonUnauthorized, http.StatusUnauthorized), nil
	}

	if caller.IsPersonal() {
		g.metrics.IncGateDecision(obsmetrics.DecisionPersonalBypass)
		return Decision{Allowed: true, Caller: caller}, nil
	}

	member, err := g.members.MemberByUser(ctx, caller.ID)
	if err != nil {
		return Decision{}, fmt.Errorf("lookup membership: %w", err)
	}
	if member == nil {
		g.metrics.IncGateDecision(obsmetrics.DecisionNoMembership)
		return deny(caller, ReasonNoMembership, http.StatusNotFound), nil
	}

	if !member.Permissions.Intersects(required...) {
		g.metrics.IncGateDecision(obsmetrics.DecisionForbidden)
		g.log.Debug("capability denied",
			zap.String("user_id", caller.ID.String()),
			zap.String("org_id", member.OrgID.String()),
		)
		d := deny(caller, ReasonDenied, http.StatusForbidden)
		d.Member = member
		return d, nil
	}

	g.metrics.IncGateDecision(obsmetrics.DecisionAllowed)
	return Decision{Allowed: true, Caller: caller, Member: member}, nil
}

func deny(caller *authdomain.Caller, reason string, status int) Decision {
	return Decision{Caller: caller, Reason: reason, Status: status}
}
