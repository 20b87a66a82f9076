package authorization

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/tally/internal/audit/domain"
	authdomain "github.com/smallbiznis/tally/internal/auth/domain"
	"github.com/smallbiznis/tally/internal/permission"
	"go.uber.org/zap"
)

type stubMembers map[snowflake.ID]*permission.Member

func (s stubMembers) MemberByUser(ctx context.Context, userID snowflake.ID) (*permission.Member, error) {
	return s[userID], nil
}

type recordingAudit struct {
	actions []string
}

func (r *recordingAudit) Record(ctx context.Context, e auditdomain.Entry) error {
	r.actions = append(r.actions, e.Action)
	return nil
}

func (r *recordingAudit) List(ctx context.Context, req auditdomain.ListRequest) (auditdomain.ListResponse, error) {
	return auditdomain.ListResponse{}, nil
}

func newTestService(t *testing.T, members stubMembers, audit auditdomain.Service) Service {
	t.Helper()
	enforcer, err := newEnforcer(nil)
	if err != nil {
		t.Fatalf("newEnforcer: %v", err)
	}
	gate := permission.NewGate(permission.Params{Log: zap.NewNop(), Members: members})
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer, Gate: gate, AuditSvc: audit})
}

func orgCaller(id snowflake.ID) *authdomain.Caller {
	return &authdomain.Caller{ID: id, Claims: authdomain.Claims{
		AccountType:    authdomain.AccountTypeOrganization,
		OrganizationID: 1,
	}}
}

func TestRequirements(t *testing.T) {
	svc := newTestService(t, stubMembers{}, nil)

	cases := []struct {
		object, action string
		want           []permission.Capability
	}{
		{ObjectDashboard, ActionView, []permission.Capability{permission.Read}},
		{ObjectOrder, ActionCreate, []permission.Capability{permission.Write}},
		{ObjectOrder, ActionToggle, []permission.Capability{permission.Delete, permission.Update}},
		{ObjectSettings, ActionUpdate, []permission.Capability{permission.Write, permission.ManageSettings}},
		{ObjectJoinRequest, ActionDecide, []permission.Capability{permission.ManageTeam}},
	}
	for _, tc := range cases {
		got, err := svc.Requirements(tc.object, tc.action)
		if err != nil {
			t.Fatalf("%s.%s: unexpected error %v", tc.object, tc.action, err)
		}
		if !permission.NewSet(got...).Intersects(tc.want...) || len(got) != len(tc.want) {
			t.Fatalf("%s.%s: expected %v, got %v", tc.object, tc.action, tc.want, got)
		}
	}
}

func TestRequirementsRejectsUnknown(t *testing.T) {
	svc := newTestService(t, stubMembers{}, nil)

	if _, err := svc.Requirements("", ActionView); !errors.Is(err, ErrInvalidObject) {
		t.Fatalf("expected ErrInvalidObject, got %v", err)
	}
	if _, err := svc.Requirements(ObjectOrder, " "); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}
	if _, err := svc.Requirements("spaceship", ActionView); !errors.Is(err, ErrNoPolicy) {
		t.Fatalf("expected ErrNoPolicy, got %v", err)
	}
}

func TestAuthorizeAnyOf(t *testing.T) {
	members := stubMembers{
		10: {ID: 1, OrgID: 1, UserID: 10, Role: authdomain.RoleMember, Permissions: permission.NewSet(permission.Update)},
		11: {ID: 2, OrgID: 1, UserID: 11, Role: authdomain.RoleMember, Permissions: permission.NewSet(permission.Read)},
	}
	audit := &recordingAudit{}
	svc := newTestService(t, members, audit)

	d, err := svc.Authorize(context.Background(), orgCaller(10), ObjectOrder, ActionToggle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Allowed {
		t.Fatalf("expected UPDATE to satisfy order toggle, got %+v", d)
	}

	d, err = svc.Authorize(context.Background(), orgCaller(11), ObjectOrder, ActionToggle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Allowed || d.Status != http.StatusForbidden {
		t.Fatalf("expected 403, got %+v", d)
	}
	if len(audit.actions) != 1 || audit.actions[0] != "authorization.denied" {
		t.Fatalf("expected one denial audit, got %v", audit.actions)
	}
}

func TestAuthorizePersonalBypassesPolicy(t *testing.T) {
	svc := newTestService(t, stubMembers{}, nil)
	caller := &authdomain.Caller{ID: 5, Claims: authdomain.Claims{
		AccountType:       authdomain.AccountTypePersonal,
		PersonalAccountID: 9,
	}}

	d, err := svc.Authorize(context.Background(), caller, ObjectMember, ActionDelete)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Allowed {
		t.Fatalf("expected personal bypass, got %+v", d)
	}
}

func TestAuthorizeNoMembershipIsNotAudited(t *testing.T) {
	audit := &recordingAudit{}
	svc := newTestService(t, stubMembers{}, audit)

	d, err := svc.Authorize(context.Background(), orgCaller(99), ObjectDashboard, ActionView)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Status != http.StatusNotFound {
		t.Fatalf("expected 404, got %+v", d)
	}
	if len(audit.actions) != 0 {
		t.Fatalf("expected no audit entries, got %v", audit.actions)
	}
}

func TestAllowsDoesNotAuditDenials(t *testing.T) {
	members := stubMembers{
		11: {ID: 2, OrgID: 1, UserID: 11, Role: authdomain.RoleMember, Permissions: permission.NewSet(permission.Read)},
		12: {ID: 3, OrgID: 1, UserID: 12, Role: authdomain.RoleMember, Permissions: permission.NewSet(permission.Read, permission.ViewFunding)},
	}
	audit := &recordingAudit{}
	svc := newTestService(t, members, audit)

	for i := 0; i < 3; i++ {
		allowed, err := svc.Allows(context.Background(), orgCaller(11), ObjectFunding, ActionView)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if allowed {
			t.Fatalf("expected funding hidden from READ-only member")
		}
	}
	if len(audit.actions) != 0 {
		t.Fatalf("expected no audit rows for a visibility check, got %v", audit.actions)
	}

	allowed, err := svc.Allows(context.Background(), orgCaller(12), ObjectFunding, ActionView)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Fatalf("expected VIEW_FUNDING to reveal funding")
	}
}
