package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hailam/repertoire/internal/logger"
)

// RouterConfig selects the handlers a router serves. Nil handlers leave
// their routes out.
type RouterConfig struct {
	Log               *logger.Logger
	RepertoireHandler *RepertoireHandler
	HealthHandler     *HealthHandler
	// DisableMetrics leaves out the /metrics route and middleware.
	DisableMetrics bool
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(cfg.Log))
	if !cfg.DisableMetrics {
		r.Use(Metrics())
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api/v1")
	if h := cfg.RepertoireHandler; h != nil {
		users := api.Group("/users/:user")
		{
			users.GET("/lines/white", h.WhiteLines)
			users.GET("/lines/black", h.BlackLines)
			users.GET("/lines/new", h.NewLines)
			users.GET("/lines/recommended", h.RecommendedLines)
			users.GET("/lines/group/:group", h.GroupLines)
			users.GET("/roadmap", h.Roadmap)
			users.GET("/edges/:edge", h.Line)
			users.GET("/edges/:edge/next", h.NextGroups)
			users.DELETE("/edges/:edge", h.DeleteEdge)
			users.GET("/position", h.Position)
			users.POST("/import", h.Import)
			users.GET("/preferences", h.Preferences)
			users.PUT("/preferences", h.SavePreferences)
			users.POST("/sessions/:session/played/:edge", h.MarkPlayed)
			users.DELETE("/sessions/:session", h.EndSession)
		}
	}

	return r
}
