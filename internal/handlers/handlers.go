package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"youthportal/api/internal/config"
	"youthportal/api/internal/log"
	"youthportal/api/internal/metrics"
	"youthportal/api/internal/middleware"
	"youthportal/api/internal/models"
	"youthportal/api/internal/security"
	"youthportal/api/internal/service"
	"youthportal/api/internal/session"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Config   *config.AppConfig
	Logger   zerolog.Logger
	Auth     *service.AuthService
	Sessions *session.Manager
	Cookie   *security.SessionCookie
	Tokens   *security.TokenIssuer
	Metrics  *metrics.Metrics
	Database Pinger
}

type HandlerSet struct {
	log      zerolog.Logger
	cfg      *config.AppConfig
	auth     *service.AuthService
	sessions *session.Manager
	cookie   *security.SessionCookie
	metrics  *metrics.Metrics
	db       Pinger

	// sessionGate answers the SPA's JSON calls, adminGate the server-rendered
	// panel pages, apiGate the bearer-token API.
	sessionGate *middleware.Gate
	adminGate   *middleware.Gate
	apiGate     *middleware.Gate
}

func NewHandlerSet(d Deps) HandlerSet {
	gateLog := log.Component(d.Logger, "auth_gate")
	cookieSource := middleware.NewSessionCredentials(d.Sessions, d.Cookie, gateLog)

	sessionGate := middleware.NewGate(middleware.GateConfig{
		Source:     cookieSource,
		Outcomes:   middleware.JSONOutcomes{},
		Principals: d.Auth,
		Metrics:    d.Metrics,
		Logger:     gateLog,
	})
	adminGate := middleware.NewGate(middleware.GateConfig{
		Source:     cookieSource,
		Outcomes:   middleware.RedirectOutcomes{LoginPath: d.Config.Admin.LoginPath, Logger: gateLog},
		Principals: d.Auth,
		Metrics:    d.Metrics,
		Logger:     gateLog,
	}).WithEviction(models.PanelRole)
	apiGate := middleware.NewGate(middleware.GateConfig{
		Source:     middleware.NewBearerCredentials(d.Tokens),
		Outcomes:   middleware.JSONOutcomes{},
		Principals: d.Auth,
		Metrics:    d.Metrics,
		Logger:     gateLog,
	})

	return HandlerSet{
		log:         d.Logger,
		cfg:         d.Config,
		auth:        d.Auth,
		sessions:    d.Sessions,
		cookie:      d.Cookie,
		metrics:     d.Metrics,
		db:          d.Database,
		sessionGate: sessionGate,
		adminGate:   adminGate,
		apiGate:     apiGate,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	auth := router.Group("/api/auth")
	{
		auth.POST("/login", h.Login)
		auth.POST("/logout", h.Logout)
		auth.GET("/check", h.sessionGate.Optional(), h.Check)

		protected := auth.Group("")
		protected.Use(h.sessionGate.Require(models.PanelRole))
		protected.GET("/session", h.SessionStatus)
		protected.POST("/session/refresh", h.RefreshSession)
		protected.POST("/token", h.IssueToken)
	}

	router.GET(h.cfg.Admin.LoginPath, h.AdminLoginPage)
	panel := router.Group("/admin")
	{
		panel.GET("/dashboard", h.adminGate.Require(models.PanelRole), h.AdminDashboard)
		panel.GET("/users", h.adminGate.Require(models.AdminRole), h.AdminUsers)
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/me", h.apiGate.Require(), h.Me)
		v1.GET("/whoami", h.apiGate.Optional(), h.WhoAmI)

		admin := v1.Group("/admin")
		admin.Use(h.apiGate.Require(models.AdminRole))
		admin.DELETE("/users/:id/sessions", h.RevokeUserSessions)
	}
}
