package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/tally/internal/audit/domain"
	authdomain "github.com/smallbiznis/tally/internal/auth/domain"
	"github.com/smallbiznis/tally/internal/permission"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

// policies maps every route requirement to capabilities. Several rows for the
// same (object, action) mean any one of them suffices.
var policies = [][]string{
	{string(permission.Read), ObjectDashboard, ActionView},
	{string(permission.Read), ObjectAnalytics, ActionView},
	{string(permission.Read), ObjectMetrics, ActionView},
	{string(permission.ViewFunding), ObjectFunding, ActionView},

	{string(permission.Read), ObjectOrder, ActionView},
	{string(permission.Write), ObjectOrder, ActionCreate},
	{string(permission.Delete), ObjectOrder, ActionToggle},
	{string(permission.Update), ObjectOrder, ActionToggle},
	{string(permission.Delete), ObjectOrder, ActionDelete},
	{string(permission.Update), ObjectOrder, ActionDelete},

	{string(permission.Read), ObjectExpense, ActionView},
	{string(permission.Write), ObjectExpense, ActionCreate},
	{string(permission.Delete), ObjectExpense, ActionDelete},

	{string(permission.Read), ObjectSettings, ActionView},
	{string(permission.Write), ObjectSettings, ActionUpdate},
	{string(permission.ManageSettings), ObjectSettings, ActionUpdate},

	{string(permission.Read), ObjectOrganization, ActionView},
	{string(permission.ManageTeam), ObjectMember, ActionUpdate},
	{string(permission.ManageTeam), ObjectMember, ActionDelete},
	{string(permission.ManageTeam), ObjectJoinRequest, ActionDecide},
	{string(permission.ManageTeam), ObjectAuditLog, ActionView},
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	Gate     *permission.Gate
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	gate     *permission.Gate
	auditSvc auditdomain.Service
}

// NewEnforcer loads persisted policies through the gorm adapter and seeds
// the built-in route requirements.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	return newEnforcer(adapter)
}

func newEnforcer(adapter *gormadapter.Adapter) (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}

	var enforcer *casbin.SyncedEnforcer
	if adapter == nil {
		enforcer, err = casbin.NewSyncedEnforcer(m)
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m, adapter)
	}
	if err != nil {
		return nil, err
	}

	if adapter != nil {
		enforcer.EnableAutoSave(true)
		if err := enforcer.LoadPolicy(); err != nil {
			return nil, err
		}
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		gate:     p.Gate,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Requirements(object, action string) ([]permission.Capability, error) {
	object = strings.TrimSpace(object)
	if object == "" {
		return nil, ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return nil, ErrInvalidAction
	}

	rules, err := s.enforcer.GetFilteredPolicy(1, object, action)
	if err != nil {
		return nil, err
	}

	caps := make([]permission.Capability, 0, len(rules))
	for _, rule := range rules {
		if len(rule) < 3 {
			continue
		}
		if c, ok := permission.Parse(rule[0]); ok {
			caps = append(caps, c)
		}
	}
	if len(caps) == 0 {
		return nil, fmt.Errorf("%w: %s.%s", ErrNoPolicy, object, action)
	}
	return caps, nil
}

func (s *ServiceImpl) Authorize(ctx context.Context, caller *authdomain.Caller, object, action string) (permission.Decision, error) {
	decision, err := s.check(ctx, caller, object, action)
	if err != nil {
		return permission.Decision{}, err
	}
	if !decision.Allowed && decision.Member != nil {
		s.auditDenied(ctx, decision, object, action)
	}
	return decision, nil
}

func (s *ServiceImpl) Allows(ctx context.Context, caller *authdomain.Caller, object, action string) (bool, error) {
	decision, err := s.check(ctx, caller, object, action)
	if err != nil {
		return false, err
	}
	return decision.Allowed, nil
}

func (s *ServiceImpl) check(ctx context.Context, caller *authdomain.Caller, object, action string) (permission.Decision, error) {
	required, err := s.Requirements(object, action)
	if err != nil {
		return permission.Decision{}, err
	}
	return s.gate.Check(ctx, caller, required...)
}

func (s *ServiceImpl) auditDenied(ctx context.Context, d permission.Decision, object, action string) {
	if s.auditSvc == nil || d.Caller == nil {
		return
	}
	if err := s.auditSvc.Record(ctx, auditdomain.Entry{
		OrgID:      d.Member.OrgID,
		ActorType:  auditdomain.ActorTypeUser,
		ActorID:    d.Caller.ID.String(),
		Action:     auditdomain.ActionAuthorizationDenied,
		TargetType: "authorization",
		TargetID:   object,
		Metadata: map[string]any{
			"object": object,
			"action": action,
			"member": d.Member.ID.String(),
		},
	}); err != nil {
		s.log.Warn("failed to audit denied authorization", zap.Error(err))
	}
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
