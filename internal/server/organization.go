package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/tally/internal/authorization"
	orgdomain "github.com/smallbiznis/tally/internal/organization/domain"
)

const (
	orgActionUpdatePermission = "UPDATE_PERMISSION"
	orgActionRemoveMember     = "REMOVE_MEMBER"
	orgActionHandleRequest    = "HANDLE_REQUEST"
)

// organizationActionRequest is the union body of POST /api/organization.
type organizationActionRequest struct {
	Action     string `json:"action"`
	MemberID   string `json:"memberId"`
	Permission string `json:"permission"`
	Value      *bool  `json:"value"`
	RequestID  string `json:"requestId"`
	Status     string `json:"status"`
}

func (s *Server) GetOrganization(c *gin.Context) {
	overview, err := s.organizationSvc.Overview(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

func (s *Server) OrganizationAction(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req organizationActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	switch strings.ToUpper(strings.TrimSpace(req.Action)) {
	case orgActionUpdatePermission:
		if err := s.authorize(c, authorization.ObjectMember, authorization.ActionUpdate); err != nil {
			AbortWithError(c, err)
			return
		}
		if req.Value == nil {
			AbortWithError(c, newValidationError("value", "required", "value is required"))
			return
		}
		member, err := s.organizationSvc.UpdateMemberPermission(ctx, caller, orgdomain.UpdatePermissionRequest{
			MemberID:   req.MemberID,
			Permission: req.Permission,
			Grant:      *req.Value,
		})
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, member)

	case orgActionRemoveMember:
		if err := s.authorize(c, authorization.ObjectMember, authorization.ActionDelete); err != nil {
			AbortWithError(c, err)
			return
		}
		if err := s.organizationSvc.RemoveMember(ctx, caller, req.MemberID); err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})

	case orgActionHandleRequest:
		if err := s.authorize(c, authorization.ObjectJoinRequest, authorization.ActionDecide); err != nil {
			AbortWithError(c, err)
			return
		}
		request, err := s.organizationSvc.DecideJoinRequest(ctx, caller, req.RequestID, req.Status)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, request)

	default:
		AbortWithError(c, newValidationError("action", "invalid_action", "Invalid action"))
	}
}
