package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/tally/internal/authorization"
	dashboarddomain "github.com/smallbiznis/tally/internal/dashboard/domain"
	obslogger "github.com/smallbiznis/tally/internal/observability/logger"
	"go.uber.org/zap"
)

type analyticsQuery struct {
	Start string `form:"start"`
	End   string `form:"end"`
}

func (s *Server) GetDashboard(c *gin.Context) {
	summary, err := s.dashboardSvc.Dashboard(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if !s.canViewFunding(c) {
		summary.Metrics.HideFunding()
	}

	c.JSON(http.StatusOK, summary)
}

func (s *Server) GetTrends(c *gin.Context) {
	trends, err := s.dashboardSvc.Trends(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, trends)
}

func (s *Server) GetAnalytics(c *gin.Context) {
	var query analyticsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	start, end, err := parseTimeRange(
		rangeParam{"start", query.Start},
		rangeParam{"end", query.End},
		true,
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	summary, err := s.dashboardSvc.Analytics(c.Request.Context(), dashboarddomain.AnalyticsRequest{
		Start: *start,
		End:   *end,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) GetBusinessMetrics(c *gin.Context) {
	metrics, err := s.metricsSvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"revenue":   metrics.Revenue,
		"expenses":  metrics.Expenses,
		"profit":    metrics.Profit,
		"updatedAt": metrics.UpdatedAt,
	})
}

// canViewFunding reports whether the funding balance may be shown. Gate
// failures hide it rather than failing the whole dashboard.
func (s *Server) canViewFunding(c *gin.Context) bool {
	caller, _ := callerFromContext(c)
	allowed, err := s.authzSvc.Allows(c.Request.Context(), caller, authorization.ObjectFunding, authorization.ActionView)
	if err != nil {
		obslogger.WithContext(c.Request.Context(), s.log).Warn("funding visibility check failed", zap.Error(err))
		return false
	}
	return allowed
}
