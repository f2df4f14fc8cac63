package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wagerescrow/internal/leaderboard"
)

type LeaderboardHandler struct {
	Board leaderboard.Board
}

func (h *LeaderboardHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/leaderboard")
	g.GET("", h.top)
	g.GET("/:address", h.player)
}

// @Summary Top players
// @Tags leaderboard
// @Param by query string false "winnings|wins"
// @Param limit query int false "limit (max 100)"
// @Success 200 {object} apiResponse
// @Router /api/v1/leaderboard [get]
func (h *LeaderboardHandler) top(c *gin.Context) {
	if h.Board == nil {
		Error(c, http.StatusInternalServerError, "leaderboard unavailable", nil)
		return
	}
	by, err := leaderboard.ParseBy(c.Query("by"))
	if err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	items, err := h.Board.Top(c.Request.Context(), by, intQuery(c, "limit", 10))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"by": string(by)})
}

// @Summary Player record
// @Tags leaderboard
// @Param address path string true "player address"
// @Success 200 {object} apiResponse
// @Router /api/v1/leaderboard/{address} [get]
func (h *LeaderboardHandler) player(c *gin.Context) {
	if h.Board == nil {
		Error(c, http.StatusInternalServerError, "leaderboard unavailable", nil)
		return
	}
	addr, ok := addressParam(c, "address")
	if !ok {
		return
	}
	st, err := h.Board.Player(c.Request.Context(), addr)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, st, nil)
}
