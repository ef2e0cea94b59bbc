package api

import (
	"slices"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ebaypulse/server/internal/views"
)

type RouterDeps struct {
	ServiceName    string
	Version        string
	KeyPresent     bool
	Store          string
	Views          *views.Service
	AllowedOrigins []string
	// Limiter is optional; requests are not limited when nil.
	Limiter *RateLimiter
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(Recovery(), RequestID(), Metrics(), cors.New(corsConfig(dep.AllowedOrigins)))

	NewHealthHandler(dep.ServiceName, dep.Version, dep.KeyPresent, dep.Store).RegisterRoutes(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	if dep.Limiter != nil {
		api.Use(dep.Limiter.Middleware())
	}
	api.Use(Session())
	NewHandler(dep.Views, dep.KeyPresent).Register(api)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, HeaderSessionID, HeaderRequestID)
	cfg.ExposeHeaders = []string{HeaderSessionID, HeaderRequestID}
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}

	var allowed []string
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			allowed = append(allowed, o)
		}
	}
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = allowed
	return cfg
}
