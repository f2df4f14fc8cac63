package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wagerescrow/internal/engine"
	"wagerescrow/internal/service"
)

type PlatformHandler struct {
	Engine *engine.Engine
	Stats  *service.StatsService
	Logger *zap.Logger
}

func (h *PlatformHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/platform", h.platform)
	r.GET("/api/v1/stats", h.stats)
}

// @Summary Current platform configuration
// @Tags platform
// @Success 200 {object} apiResponse
// @Router /api/v1/platform [get]
func (h *PlatformHandler) platform(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	cfg, err := h.Engine.PlatformConfig(c.Request.Context())
	if err != nil {
		EngineError(c, err)
		return
	}
	Ok(c, toPlatformView(cfg), nil)
}

// @Summary Dashboard statistics
// @Tags platform
// @Success 200 {object} apiResponse
// @Router /api/v1/stats [get]
func (h *PlatformHandler) stats(c *gin.Context) {
	if h.Stats == nil {
		Error(c, http.StatusInternalServerError, "stats unavailable", nil)
		return
	}
	st, err := h.Stats.Stats(c.Request.Context())
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("stats failed", zap.Error(err))
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, st, nil)
}
