package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	errx "github.com/ebaypulse/server/internal/core/error"
	gwmodel "github.com/ebaypulse/server/internal/gateway/model"
	"github.com/ebaypulse/server/internal/views"
	"github.com/ebaypulse/server/internal/views/model"
	logx "github.com/ebaypulse/server/pkg/logger"
)

const invalidBodyMessage = "invalid body"

type Handler struct {
	svc        *views.Service
	keyPresent bool
}

func NewHandler(svc *views.Service, keyPresent bool) *Handler {
	return &Handler{svc: svc, keyPresent: keyPresent}
}

// Register attaches the view routes to the given router group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/status", h.status)
	rg.GET("/categories", h.categories)
	rg.GET("/trends", h.trends)
	rg.POST("/trends/select", h.selectProduct)
	rg.POST("/seo", h.optimize)
	rg.GET("/session", h.session)
	rg.PUT("/session/view", h.navigate)
}

func (h *Handler) status(c *gin.Context) {
	resp := StatusResponse{APIKey: keyState(h.keyPresent), Message: "Gemini AI Ready"}
	if !h.keyPresent {
		resp.Message = "API Key Missing"
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) categories(c *gin.Context) {
	c.JSON(http.StatusOK, CategoriesResponse{Categories: model.Categories, Default: model.DefaultTrendCategory})
}

func (h *Handler) trends(c *gin.Context) {
	res, err := h.svc.LoadTrends(c.Request.Context(), sessionID(c), c.Query("category"))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTrendsResponse(res.View, res.Applied))
}

func (h *Handler) selectProduct(c *gin.Context) {
	var p gwmodel.TrendingProduct
	if err := c.ShouldBindJSON(&p); err != nil || strings.TrimSpace(p.Title) == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: invalidBodyMessage})
		return
	}
	sess, err := h.svc.SelectProduct(c.Request.Context(), sessionID(c), p)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *Handler) optimize(c *gin.Context) {
	var req SEORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: invalidBodyMessage})
		return
	}
	view, err := h.svc.Optimize(c.Request.Context(), sessionID(c), req.Description)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, SEOResponse{Input: view.Input, Result: *view.Result, Stats: newListingStats(*view.Result)})
}

func (h *Handler) session(c *gin.Context) {
	sess, err := h.svc.Snapshot(c.Request.Context(), sessionID(c))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *Handler) navigate(c *gin.Context) {
	var req NavigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: invalidBodyMessage})
		return
	}
	sess, err := h.svc.Navigate(c.Request.Context(), sessionID(c), req.View)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func renderError(c *gin.Context, err error) {
	status, msg := errx.StatusOf(err)
	if status >= http.StatusInternalServerError {
		logx.Error().Err(err).Str("request_id", c.GetString(ctxRequestID)).Str("path", c.FullPath()).Msg("Request failed")
	}
	c.JSON(status, ErrorResponse{Error: msg})
}
