package server

import (
	"net/http"

	"ctem-enterprise/internal/config"
	"ctem-enterprise/internal/handlers"
	"ctem-enterprise/internal/middleware"
	"ctem-enterprise/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const sessionName = "ctem_session"

// NewRouter mounts the JSON API. ws, when non-nil, is served at /ws.
func NewRouter(cfg *config.Config, db *gorm.DB, h *handlers.Handler, ws http.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.CORS(cfg.AllowedOrigins))

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(middleware.InjectUser(db))

	r.GET("/health", h.Health)
	if ws != nil {
		r.GET("/ws", gin.WrapH(ws))
	}

	api := r.Group("/api")

	// auth
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.POST("/auth/logout", h.Logout)

	// threats, assets, vulnerabilities
	api.GET("/threats", h.ListThreats)
	api.POST("/threats", h.GetThreat)
	api.GET("/assets", h.ListAssets)
	api.GET("/vulnerabilities", h.ListVulnerabilities)
	api.POST("/risk/score", h.ScoreRisk)
	api.GET("/kev/:cve", h.GetKEVEntry)

	// dashboard panels
	api.GET("/risk/overview", h.RiskOverview)
	api.GET("/discovery", h.Discovery)
	api.GET("/exposure", h.Exposure)
	api.GET("/threat-intel", h.ThreatIntel)
	api.GET("/threat-intel/feed", h.ThreatFeed)
	api.GET("/forecast", h.Forecast)
	api.GET("/forecast/:month", h.ForecastDetail)

	// notifications
	api.GET("/notifications", h.Notifications)
	api.GET("/notifications/:id", h.NotificationDetails)
	api.POST("/notifications/:id/ack", h.AcknowledgeNotification)
	api.DELETE("/notifications/:id", h.DismissNotification)

	// user behavior
	api.GET("/user-behavior", h.UserBehavior)
	api.GET("/user-behavior/activities", h.UserActivities)
	api.GET("/user-behavior/anomalies", h.Anomalies)
	api.GET("/user-behavior/risk-profiles", h.RiskProfiles)
	api.GET("/user/profile", h.UserProfile)

	// attack paths and search
	api.GET("/attack-paths", h.AttackPaths)
	api.GET("/attack-paths/list", h.AttackPathList)
	api.GET("/attack-data", h.AttackData)
	api.GET("/search", h.Search)

	// auto-remediation: reads are open, writes need a session
	api.GET("/auto-remediation", h.GetAutoRemediation)
	api.GET("/auto-remediation/config", h.GetRemediationConfig)
	api.GET("/remediations", h.ListRemediations)
	api.GET("/remediations/:id", h.GetRemediation)

	auth := api.Group("/")
	auth.Use(middleware.RequireAuth())

	auth.POST("/auto-remediation", h.ExecuteRemediation)
	auth.PUT("/auto-remediation", h.UpdateRemediationStatus)
	auth.PUT("/auto-remediation/config",
		middleware.RequireRole(models.RoleAdmin, models.RoleEngineer),
		h.UpdateRemediationConfig,
	)

	auth.GET("/audit",
		middleware.RequireRole(models.RoleAdmin, models.RoleViewer),
		h.ListAuditLogs,
	)

	return r
}
