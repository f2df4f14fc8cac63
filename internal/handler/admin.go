package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"wagerescrow/internal/auth"
	"wagerescrow/internal/engine"
	"wagerescrow/internal/repository"
)

// AdminHandler serves the operator views of alerts and the governance audit
// trail.
type AdminHandler struct {
	Engine *engine.Engine
	Guard  Guard
}

func (h *AdminHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/admin")
	g.GET("/alerts", h.Guard.with(h.alerts, auth.RoleOperator)...)
	g.POST("/alerts/:id/ack", h.Guard.with(h.ack, auth.RoleOperator)...)
	g.GET("/actions", h.Guard.with(h.actions, auth.RoleOperator)...)
}

// @Summary List system alerts
// @Tags admin
// @Param level query string false "info|warning|critical"
// @Param acknowledged query bool false "acknowledged"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/v1/admin/alerts [get]
func (h *AdminHandler) alerts(c *gin.Context) {
	if h.Engine == nil || h.Engine.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 20)
	offset := intQuery(c, "offset", 0)
	var level *string
	if v := strQueryPtr(c, "level"); v != nil {
		l := strings.ToLower(*v)
		level = &l
	}
	items, err := h.Engine.Repo.ListSystemAlerts(c.Request.Context(), repository.ListSystemAlertsParams{
		Limit:        limit,
		Offset:       offset,
		Level:        level,
		Acknowledged: boolQueryPtr(c, "acknowledged"),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	out := make([]alertView, 0, len(items))
	for i := range items {
		out = append(out, toAlertView(&items[i]))
	}
	Ok(c, out, map[string]any{"limit": limit, "offset": offset})
}

// @Summary Acknowledge an alert
// @Tags admin
// @Param id path string true "alert id"
// @Success 200 {object} apiResponse
// @Router /api/v1/admin/alerts/{id}/ack [post]
func (h *AdminHandler) ack(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	by, ok := actor(c)
	if !ok {
		return
	}
	a, err := h.Engine.AcknowledgeAlert(c.Request.Context(), strings.TrimSpace(c.Param("id")), by)
	if err != nil {
		EngineError(c, err)
		return
	}
	Ok(c, toAlertView(a), nil)
}

// @Summary Governance audit trail
// @Tags admin
// @Param action query string false "operation name"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/v1/admin/actions [get]
func (h *AdminHandler) actions(c *gin.Context) {
	if h.Engine == nil || h.Engine.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	items, err := h.Engine.Repo.ListAdminActions(c.Request.Context(), repository.ListAdminActionsParams{
		Limit:  limit,
		Offset: offset,
		Action: strQueryPtr(c, "action"),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	out := make([]adminActionView, 0, len(items))
	for i := range items {
		out = append(out, toAdminActionView(&items[i]))
	}
	Ok(c, out, map[string]any{"limit": limit, "offset": offset})
}
