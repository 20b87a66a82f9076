package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/tally/internal/audit/domain"
	"github.com/smallbiznis/tally/pkg/db/pagination"
)

type auditLogQuery struct {
	pagination.Pagination
	Action     string `form:"action"`
	TargetType string `form:"target_type"`
	TargetID   string `form:"target_id"`
	ActorType  string `form:"actor_type"`
	StartAt    string `form:"start_at"`
	EndAt      string `form:"end_at"`
}

// ListAuditLogs pages through the caller organization's audit trail,
// newest first.
func (s *Server) ListAuditLogs(c *gin.Context) {
	t, ok := tenantFromRequest(c)
	if !ok || !t.IsOrganization() {
		AbortWithError(c, auditdomain.ErrInvalidOrganization)
		return
	}

	var query auditLogQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	startAt, endAt, err := parseTimeRange(
		rangeParam{"start_at", query.StartAt},
		rangeParam{"end_at", query.EndAt},
		false,
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.auditSvc.List(c.Request.Context(), auditdomain.ListRequest{
		Pagination: query.Pagination,
		OrgID:      t.ID(),
		Action:     query.Action,
		TargetType: query.TargetType,
		TargetID:   query.TargetID,
		ActorType:  query.ActorType,
		StartAt:    startAt,
		EndAt:      endAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Entries, "page_info": resp.PageInfo})
}
