package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Gemini    string    `json:"gemini"`
	Store     string    `json:"store"`
}

type HealthHandler struct {
	serviceName string
	version     string
	keyPresent  bool
	store       string
}

func NewHealthHandler(serviceName, version string, keyPresent bool, store string) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		keyPresent:  keyPresent,
		store:       store,
	}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
		Gemini:    keyState(h.keyPresent),
		Store:     h.store,
	})
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
}

func keyState(present bool) string {
	if present {
		return "active"
	}
	return "missing"
}
