package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wagerescrow/internal/address"
	"wagerescrow/internal/auth"
)

type AuthHandler struct {
	Challenger *auth.Challenger
	Logger     *zap.Logger
}

func (h *AuthHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/auth")
	g.POST("/challenge", h.challenge)
	g.POST("/login", h.login)
}

type challengeRequest struct {
	Address string `json:"address"`
}

type loginRequest struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
	Role      string `json:"role"`
}

// @Summary Request a login challenge
// @Tags auth
// @Param body body challengeRequest true "address"
// @Success 200 {object} apiResponse
// @Router /api/v1/auth/challenge [post]
func (h *AuthHandler) challenge(c *gin.Context) {
	if h.Challenger == nil {
		Error(c, http.StatusInternalServerError, "auth unavailable", nil)
		return
	}
	var req challengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	addr, err := address.Parse(req.Address)
	if err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	ch, err := h.Challenger.Issue(c.Request.Context(), addr)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("issue challenge failed", zap.Error(err))
		}
		Error(c, http.StatusInternalServerError, "challenge unavailable", nil)
		return
	}
	Ok(c, ch, nil)
}

// @Summary Exchange a signed challenge for a token
// @Tags auth
// @Param body body loginRequest true "signed challenge"
// @Success 200 {object} apiResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) login(c *gin.Context) {
	if h.Challenger == nil {
		Error(c, http.StatusInternalServerError, "auth unavailable", nil)
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	addr, err := address.Parse(req.Address)
	if err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	tok, err := h.Challenger.Login(c.Request.Context(), addr, req.Signature, req.Role)
	switch {
	case err == nil:
		Ok(c, tok, nil)
	case errors.Is(err, auth.ErrChallengeNotFound), errors.Is(err, auth.ErrBadSignature):
		Error(c, http.StatusUnauthorized, err.Error(), nil)
	case errors.Is(err, auth.ErrRoleNotAllowed):
		Error(c, http.StatusForbidden, err.Error(), nil)
	default:
		if h.Logger != nil {
			h.Logger.Warn("login failed", zap.Error(err))
		}
		Error(c, http.StatusInternalServerError, "login failed", nil)
	}
}
