package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wellspringhq/foundation/internal/audit"
	auditdomain "github.com/wellspringhq/foundation/internal/audit/domain"
	"github.com/wellspringhq/foundation/internal/auth"
	authdomain "github.com/wellspringhq/foundation/internal/auth/domain"
	authlocal "github.com/wellspringhq/foundation/internal/auth/local"
	"github.com/wellspringhq/foundation/internal/auth/session"
	"github.com/wellspringhq/foundation/internal/authorization"
	"github.com/wellspringhq/foundation/internal/config"
	"github.com/wellspringhq/foundation/internal/member"
	memberdomain "github.com/wellspringhq/foundation/internal/member/domain"
	"github.com/wellspringhq/foundation/internal/notify"
	"github.com/wellspringhq/foundation/internal/observability"
	obsmiddleware "github.com/wellspringhq/foundation/internal/observability/logger"
	obsmetrics "github.com/wellspringhq/foundation/internal/observability/metrics"
	obstracing "github.com/wellspringhq/foundation/internal/observability/tracing"
	"github.com/wellspringhq/foundation/internal/orgchart"
	orgchartdomain "github.com/wellspringhq/foundation/internal/orgchart/domain"
	"github.com/wellspringhq/foundation/internal/providers"
	"github.com/wellspringhq/foundation/internal/ratelimit"
	"github.com/wellspringhq/foundation/internal/reporting"
	reportingdomain "github.com/wellspringhq/foundation/internal/reporting/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	config.Module,
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	auth.Module,
	authlocal.Module,
	session.Module,
	member.Module,
	reporting.Module,
	orgchart.Module,
	providers.Module,
	notify.Module,
	ratelimit.Module,
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

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
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
	engine       *gin.Engine
	cfg          config.Config
	db           *gorm.DB
	authsvc      authdomain.Service
	sessions     *session.Manager
	genID        *snowflake.Node
	authzSvc     authorization.Service
	auditSvc     auditdomain.Service
	memberSvc    memberdomain.Service
	reportingSvc reportingdomain.Service
	orgchartSvc  orgchartdomain.Service
	notifier     notify.Dispatcher
	obsMetrics   *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	DB           *gorm.DB
	Authsvc      authdomain.Service
	Sessions     *session.Manager
	GenID        *snowflake.Node
	AuthzSvc     authorization.Service
	AuditSvc     auditdomain.Service
	MemberSvc    memberdomain.Service
	ReportingSvc reportingdomain.Service
	OrgChartSvc  orgchartdomain.Service
	Notifier     notify.Dispatcher
	ObsMetrics   *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		db:           p.DB,
		authsvc:      p.Authsvc,
		sessions:     p.Sessions,
		genID:        p.GenID,
		authzSvc:     p.AuthzSvc,
		auditSvc:     p.AuditSvc,
		memberSvc:    p.MemberSvc,
		reportingSvc: p.ReportingSvc,
		orgchartSvc:  p.OrgChartSvc,
		notifier:     p.Notifier,
		obsMetrics:   p.ObsMetrics,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	// Login/logout come from the local auth handler; everything here needs a
	// live session.
	auth := s.engine.Group("/api/v1/auth", s.AuthRequired())

	auth.GET("/me", s.Me)
	auth.POST("/change-password", s.ChangePassword)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1", s.AuthRequired())

	// -------- Members --------
	api.GET("/members", s.authorize(authorization.ObjectMember, authorization.ActionMemberView), s.ListMembers)
	api.POST("/members", s.authorize(authorization.ObjectMember, authorization.ActionMemberCreate), s.CreateMember)
	api.GET("/members/potential-parents", s.authorize(authorization.ObjectMember, authorization.ActionMemberView), s.ListPotentialParents)
	api.GET("/members/:id", s.authorize(authorization.ObjectMember, authorization.ActionMemberView), s.GetMemberByID)
	api.PATCH("/members/:id", s.authorize(authorization.ObjectMember, authorization.ActionMemberUpdate), s.UpdateMember)
	api.DELETE("/members/:id", s.authorize(authorization.ObjectMember, authorization.ActionMemberDelete), s.DeleteMember)
	api.GET("/members/:id/relationships", s.authorize(authorization.ObjectRelationship, authorization.ActionRelationshipView), s.ListRelationships)

	// -------- Reporting relationships --------
	api.GET("/relationships", s.authorize(authorization.ObjectRelationship, authorization.ActionRelationshipView), s.ListRelationships)
	api.POST("/relationships", s.authorize(authorization.ObjectRelationship, authorization.ActionRelationshipCreate), s.AddRelationship)
	api.PATCH("/relationships/:id", s.authorize(authorization.ObjectRelationship, authorization.ActionRelationshipUpdate), s.UpdateRelationship)
	api.DELETE("/relationships/:id", s.authorize(authorization.ObjectRelationship, authorization.ActionRelationshipDelete), s.RemoveRelationship)

	// -------- Org chart --------
	api.GET("/orgchart", s.authorize(authorization.ObjectOrgChart, authorization.ActionOrgChartView), s.GetOrgChart)
	api.GET("/departments", s.authorize(authorization.ObjectOrgChart, authorization.ActionOrgChartView), s.ListDepartments)

	// -------- Audit --------
	api.GET("/audit-logs", s.authorize(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)

	// -------- Users --------
	api.POST("/users", s.authorize(authorization.ObjectUser, authorization.ActionUserManage), s.CreateUser)
}
