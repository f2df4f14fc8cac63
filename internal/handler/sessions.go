package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wagerescrow/internal/auth"
	"wagerescrow/internal/engine"
	"wagerescrow/internal/models"
)

type SessionHandler struct {
	Engine *engine.Engine
	Guard  Guard
}

func (h *SessionHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/sessions")
	g.GET("/:owner", h.get)
	g.POST("", h.Guard.with(h.create, auth.RolePlayer)...)
	g.POST("/deposit", h.Guard.with(h.deposit, auth.RolePlayer)...)
	g.POST("/withdraw", h.Guard.with(h.withdraw, auth.RolePlayer)...)
}

type sessionAmountRequest struct {
	Amount int64  `json:"amount"`
	Tokens string `json:"tokens"`
}

// @Summary Open a session vault for the caller
// @Tags sessions
// @Success 200 {object} apiResponse
// @Router /api/v1/sessions [post]
func (h *SessionHandler) create(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	owner, ok := actor(c)
	if !ok {
		return
	}
	v, err := h.Engine.CreateSession(c.Request.Context(), owner)
	if err != nil {
		EngineError(c, err)
		return
	}
	Ok(c, toSessionView(v), nil)
}

// @Summary Deposit into the caller's session vault
// @Tags sessions
// @Param body body sessionAmountRequest true "amount in lamports or tokens"
// @Success 200 {object} apiResponse
// @Router /api/v1/sessions/deposit [post]
func (h *SessionHandler) deposit(c *gin.Context) {
	h.move(c, false)
}

// @Summary Withdraw from the caller's session vault
// @Tags sessions
// @Param body body sessionAmountRequest true "amount in lamports or tokens"
// @Success 200 {object} apiResponse
// @Router /api/v1/sessions/withdraw [post]
func (h *SessionHandler) withdraw(c *gin.Context) {
	h.move(c, true)
}

func (h *SessionHandler) move(c *gin.Context, withdraw bool) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	owner, ok := actor(c)
	if !ok {
		return
	}
	var req sessionAmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	amt, err := amountField(req.Amount, req.Tokens)
	if err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	var v *models.SessionVault
	if withdraw {
		v, err = h.Engine.Withdraw(c.Request.Context(), owner, amt)
	} else {
		v, err = h.Engine.Deposit(c.Request.Context(), owner, amt)
	}
	if err != nil {
		EngineError(c, err)
		return
	}
	Ok(c, toSessionView(v), nil)
}

// @Summary Get a session vault
// @Tags sessions
// @Param owner path string true "owner address"
// @Success 200 {object} apiResponse
// @Router /api/v1/sessions/{owner} [get]
func (h *SessionHandler) get(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	owner, ok := addressParam(c, "owner")
	if !ok {
		return
	}
	v, err := h.Engine.GetSession(c.Request.Context(), owner)
	if err != nil {
		EngineError(c, err)
		return
	}
	Ok(c, toSessionView(v), nil)
}
