package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/tally/internal/audit"
	auditdomain "github.com/smallbiznis/tally/internal/audit/domain"
	"github.com/smallbiznis/tally/internal/auth"
	authdomain "github.com/smallbiznis/tally/internal/auth/domain"
	"github.com/smallbiznis/tally/internal/auth/session"
	"github.com/smallbiznis/tally/internal/authorization"
	"github.com/smallbiznis/tally/internal/businessmetrics"
	businessmetricsdomain "github.com/smallbiznis/tally/internal/businessmetrics/domain"
	"github.com/smallbiznis/tally/internal/config"
	"github.com/smallbiznis/tally/internal/dashboard"
	dashboarddomain "github.com/smallbiznis/tally/internal/dashboard/domain"
	"github.com/smallbiznis/tally/internal/expense"
	expensedomain "github.com/smallbiznis/tally/internal/expense/domain"
	"github.com/smallbiznis/tally/internal/observability"
	obsmiddleware "github.com/smallbiznis/tally/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/tally/internal/observability/metrics"
	obstracing "github.com/smallbiznis/tally/internal/observability/tracing"
	"github.com/smallbiznis/tally/internal/onboarding"
	onboardingdomain "github.com/smallbiznis/tally/internal/onboarding/domain"
	"github.com/smallbiznis/tally/internal/order"
	orderdomain "github.com/smallbiznis/tally/internal/order/domain"
	"github.com/smallbiznis/tally/internal/organization"
	orgdomain "github.com/smallbiznis/tally/internal/organization/domain"
	"github.com/smallbiznis/tally/internal/permission"
	"github.com/smallbiznis/tally/internal/ratelimit"
	"github.com/smallbiznis/tally/internal/settings"
	settingsdomain "github.com/smallbiznis/tally/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	auth.Module,
	audit.Module,
	authorization.Module,
	permission.Module,
	ratelimit.Module,
	settings.Module,
	businessmetrics.Module,
	order.Module,
	expense.Module,
	dashboard.Module,
	organization.Module,
	onboarding.Module,
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	authsvc         authdomain.Service
	identity        authdomain.Provider
	sessions        *session.Manager
	authzSvc        authorization.Service
	auditSvc        auditdomain.Service
	onboardingSvc   onboardingdomain.Service
	dashboardSvc    dashboarddomain.Service
	metricsSvc      businessmetricsdomain.Service
	orderSvc        orderdomain.Service
	expenseSvc      expensedomain.Service
	settingsSvc     settingsdomain.Service
	organizationSvc orgdomain.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	Authsvc         authdomain.Service
	Identity        authdomain.Provider
	Sessions        *session.Manager
	AuthzSvc        authorization.Service
	AuditSvc        auditdomain.Service
	OnboardingSvc   onboardingdomain.Service
	DashboardSvc    dashboarddomain.Service
	MetricsSvc      businessmetricsdomain.Service
	OrderSvc        orderdomain.Service
	ExpenseSvc      expensedomain.Service
	SettingsSvc     settingsdomain.Service
	OrganizationSvc orgdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		authsvc:         p.Authsvc,
		identity:        p.Identity,
		sessions:        p.Sessions,
		authzSvc:        p.AuthzSvc,
		auditSvc:        p.AuditSvc,
		onboardingSvc:   p.OnboardingSvc,
		dashboardSvc:    p.DashboardSvc,
		metricsSvc:      p.MetricsSvc,
		orderSvc:        p.OrderSvc,
		expenseSvc:      p.ExpenseSvc,
		settingsSvc:     p.SettingsSvc,
		organizationSvc: p.OrganizationSvc,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/register", s.Register)
	auth.POST("/login", s.Login)
	auth.POST("/logout", s.Logout)
	auth.GET("/me", s.Authenticated(), s.Me)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.Authenticated())

	// -------- Onboarding --------
	// Runs before a tenant exists.
	api.GET("/onboarding", s.GetOnboardingStatus)
	api.POST("/onboarding", s.Onboard)

	scoped := api.Group("", s.TenantContext())

	// -------- Dashboard --------
	scoped.GET("/dashboard", s.RequireCapability(authorization.ObjectDashboard, authorization.ActionView), s.GetDashboard)
	scoped.GET("/dashboard/trends", s.RequireCapability(authorization.ObjectDashboard, authorization.ActionView), s.GetTrends)
	scoped.GET("/analytics", s.RequireCapability(authorization.ObjectAnalytics, authorization.ActionView), s.GetAnalytics)
	scoped.GET("/metrics", s.RequireCapability(authorization.ObjectMetrics, authorization.ActionView), s.GetBusinessMetrics)

	// -------- Orders --------
	scoped.GET("/orders", s.RequireCapability(authorization.ObjectOrder, authorization.ActionView), s.ListOrders)
	scoped.POST("/orders", s.RequireCapability(authorization.ObjectOrder, authorization.ActionCreate), s.CreateOrder)
	scoped.GET("/orders/:id", s.RequireCapability(authorization.ObjectOrder, authorization.ActionView), s.GetOrder)
	scoped.POST("/orders/action", s.OrderAction)

	// -------- Expenses --------
	scoped.GET("/expenses", s.RequireCapability(authorization.ObjectExpense, authorization.ActionView), s.ListExpenses)
	scoped.POST("/expenses", s.RequireCapability(authorization.ObjectExpense, authorization.ActionCreate), s.CreateExpense)
	scoped.POST("/expenses/delete", s.RequireCapability(authorization.ObjectExpense, authorization.ActionDelete), s.DeleteExpense)

	// -------- Settings --------
	scoped.GET("/settings", s.RequireCapability(authorization.ObjectSettings, authorization.ActionView), s.GetSettings)
	scoped.POST("/settings", s.RequireCapability(authorization.ObjectSettings, authorization.ActionUpdate), s.UpdateSettings)

	// -------- Organization --------
	scoped.GET("/organization", s.RequireCapability(authorization.ObjectOrganization, authorization.ActionView), s.GetOrganization)
	scoped.POST("/organization", s.OrganizationAction)
	scoped.GET("/organization/audit-logs", s.RequireCapability(authorization.ObjectAuditLog, authorization.ActionView), s.ListAuditLogs)
}
