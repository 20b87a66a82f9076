package server

import (
	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/tally/internal/audit/domain"
	authdomain "github.com/smallbiznis/tally/internal/auth/domain"
	obscontext "github.com/smallbiznis/tally/internal/observability/context"
	"github.com/smallbiznis/tally/internal/permission"
	"github.com/smallbiznis/tally/internal/tenant"
)

const (
	contextCallerKey   = "caller"
	contextDecisionKey = "permission_decision"
)

// Authenticated resolves the session token into a caller. Requests without a
// valid session stop here with 401.
func (s *Server) Authenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		caller, err := s.identity.CurrentCaller(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if caller == nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(contextCallerKey, caller)
		ctx := obscontext.WithActor(c.Request.Context(), auditdomain.ActorTypeUser, caller.ID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// TenantContext pins the caller's tenant on the request. An unresolved
// tenant is rejected before any tenant-scoped query runs.
func (s *Server) TenantContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		t := tenant.Resolve(caller.Claims)
		if t.IsZero() {
			AbortWithError(c, tenant.ErrNotResolved)
			return
		}

		ctx := tenant.WithContext(c.Request.Context(), t)
		ctx = obscontext.WithTenant(ctx, string(t.Kind()), t.ID().String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireCapability runs the permission gate against the capabilities the
// policy assigns to (object, action).
func (s *Server) RequireCapability(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.authorize(c, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// authorize is RequireCapability for handlers whose action is only known
// after the body is read.
func (s *Server) authorize(c *gin.Context, object, action string) error {
	caller, _ := callerFromContext(c)

	decision, err := s.authzSvc.Authorize(c.Request.Context(), caller, object, action)
	if err != nil {
		return err
	}
	if err := decision.Err(); err != nil {
		return err
	}

	c.Set(contextDecisionKey, decision)
	return nil
}

func callerFromContext(c *gin.Context) (*authdomain.Caller, bool) {
	value, ok := c.Get(contextCallerKey)
	if !ok {
		return nil, false
	}
	caller, ok := value.(*authdomain.Caller)
	if !ok || caller == nil {
		return nil, false
	}
	return caller, true
}

func decisionFromContext(c *gin.Context) (permission.Decision, bool) {
	value, ok := c.Get(contextDecisionKey)
	if !ok {
		return permission.Decision{}, false
	}
	decision, ok := value.(permission.Decision)
	return decision, ok
}

func tenantFromRequest(c *gin.Context) (tenant.Tenant, bool) {
	return tenant.FromContext(c.Request.Context())
}
