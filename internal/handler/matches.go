package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wagerescrow/internal/address"
	"wagerescrow/internal/auth"
	"wagerescrow/internal/engine"
	"wagerescrow/internal/models"
	"wagerescrow/internal/repository"
)

type MatchHandler struct {
	Engine *engine.Engine
	Guard  Guard
	Logger *zap.Logger
	Now    func() time.Time
}

func (h *MatchHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/matches")
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.POST("/:id/refund", h.refund)
	g.POST("", h.Guard.with(h.create, auth.RolePlayer)...)
	g.POST("/:id/join", h.Guard.with(h.join, auth.RolePlayer)...)
	g.POST("/:id/result", h.Guard.with(h.result, auth.RoleOracle)...)
}

func (h *MatchHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

type createMatchRequest struct {
	GameID      string `json:"game_id"`
	WagerAmount int64  `json:"wager_amount"`
	Wager       string `json:"wager"`
	// Either an absolute expiry or a lifetime in seconds.
	ExpiryTime   *time.Time `json:"expiry_time"`
	ExpiresInSec int64      `json:"expires_in_seconds"`
	Funding      string     `json:"funding"`
}

type joinMatchRequest struct {
	Funding string `json:"funding"`
}

type submitResultRequest struct {
	Winner     string `json:"winner"`
	ResultHash string `json:"result_hash"`
	Signature  string `json:"signature"`
	Envelope   string `json:"envelope"`
}

// @Summary Create a match
// @Tags matches
// @Param body body createMatchRequest true "match"
// @Success 200 {object} apiResponse
// @Router /api/v1/matches [post]
func (h *MatchHandler) create(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	creator, ok := actor(c)
	if !ok {
		return
	}
	var req createMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	wager, err := amountField(req.WagerAmount, req.Wager)
	if err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	funding, err := engine.ParseFundingSource(req.Funding)
	if err != nil {
		EngineError(c, err)
		return
	}
	var expiry time.Time
	switch {
	case req.ExpiryTime != nil:
		expiry = req.ExpiryTime.UTC()
	case req.ExpiresInSec > 0:
		expiry = h.now().Add(time.Duration(req.ExpiresInSec) * time.Second)
	default:
		Error(c, http.StatusBadRequest, "expiry_time or expires_in_seconds required", nil)
		return
	}

	m, err := h.Engine.CreateMatch(c.Request.Context(), engine.CreateMatchParams{
		Creator:     creator,
		GameID:      req.GameID,
		WagerAmount: wager,
		ExpiryTime:  expiry,
		Funding:     funding,
	})
	if err != nil {
		EngineError(c, err)
		return
	}
	Ok(c, toMatchView(m), nil)
}

// @Summary Join a match
// @Tags matches
// @Param id path string true "match id"
// @Param body body joinMatchRequest false "funding"
// @Success 200 {object} apiResponse
// @Router /api/v1/matches/{id}/join [post]
func (h *MatchHandler) join(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	joiner, ok := actor(c)
	if !ok {
		return
	}
	id, ok := addressParam(c, "id")
	if !ok {
		return
	}
	var req joinMatchRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			Error(c, http.StatusBadRequest, "invalid body", nil)
			return
		}
	}
	funding, err := engine.ParseFundingSource(req.Funding)
	if err != nil {
		EngineError(c, err)
		return
	}
	m, err := h.Engine.JoinMatch(c.Request.Context(), id, joiner, funding)
	if err != nil {
		EngineError(c, err)
		return
	}
	Ok(c, toMatchView(m), nil)
}

// @Summary Submit an oracle-attested result
// @Tags matches
// @Param id path string true "match id"
// @Param body body submitResultRequest true "attested result"
// @Success 200 {object} apiResponse
// @Router /api/v1/matches/{id}/result [post]
func (h *MatchHandler) result(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	id, ok := addressParam(c, "id")
	if !ok {
		return
	}
	var req submitResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	winner, err := address.Parse(req.Winner)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid winner", nil)
		return
	}
	hash, err := decodeHex(req.ResultHash)
	if err != nil || len(hash) != 32 {
		Error(c, http.StatusBadRequest, "result_hash must be 32 hex-encoded bytes", nil)
		return
	}
	sig, err := decodeHex(req.Signature)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid signature encoding", nil)
		return
	}
	env, err := decodeHex(req.Envelope)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid envelope encoding", nil)
		return
	}
	p := engine.SubmitResultParams{
		MatchID:   id,
		Winner:    winner,
		Signature: sig,
		Envelope:  env,
	}
	copy(p.ResultHash[:], hash)

	m, err := h.Engine.SubmitResult(c.Request.Context(), p)
	if err != nil {
		if h.Logger != nil && engine.Kind(err) == engine.KindAuthorization {
			h.Logger.Warn("result rejected", zap.String("match_id", id.String()), zap.Error(err))
		}
		EngineError(c, err)
		return
	}
	Ok(c, toMatchView(m), nil)
}

// @Summary Refund a match
// @Description Anyone may trigger the refund of an expired match.
// @Tags matches
// @Param id path string true "match id"
// @Success 200 {object} apiResponse
// @Router /api/v1/matches/{id}/refund [post]
func (h *MatchHandler) refund(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	id, ok := addressParam(c, "id")
	if !ok {
		return
	}
	m, err := h.Engine.RefundMatch(c.Request.Context(), id)
	if err != nil {
		EngineError(c, err)
		return
	}
	Ok(c, toMatchView(m), nil)
}

// @Summary Get a match
// @Tags matches
// @Param id path string true "match id"
// @Success 200 {object} apiResponse
// @Router /api/v1/matches/{id} [get]
func (h *MatchHandler) get(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	id, ok := addressParam(c, "id")
	if !ok {
		return
	}
	m, err := h.Engine.GetMatch(c.Request.Context(), id)
	if err != nil {
		EngineError(c, err)
		return
	}
	Ok(c, toMatchView(m), nil)
}

// @Summary List matches
// @Tags matches
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Param status query string false "waiting_for_player|in_progress|completed|refunded"
// @Param creator query string false "creator address"
// @Param player query string false "creator or joiner address"
// @Param game_id query string false "game id"
// @Param order_by query string false "created_at|expiry_time|wager_amount"
// @Param order query string false "asc|desc"
// @Success 200 {object} apiResponse
// @Router /api/v1/matches [get]
func (h *MatchHandler) list(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	orderBy := parseOrder(c.Query("order_by"), map[string]string{
		"created_at":   "created_at",
		"expiry_time":  "expiry_time",
		"wager_amount": "wager_amount",
	})
	if orderBy == "" {
		orderBy = "created_at"
	}
	asc := strings.EqualFold(strings.TrimSpace(c.Query("order")), "asc")

	var status *models.MatchStatus
	if v := strQueryPtr(c, "status"); v != nil {
		s := models.MatchStatus(strings.ToLower(*v))
		status = &s
	}
	params := repository.ListMatchesParams{
		Limit:   limit,
		Offset:  offset,
		Status:  status,
		Creator: strQueryPtr(c, "creator"),
		Player:  strQueryPtr(c, "player"),
		GameID:  strQueryPtr(c, "game_id"),
		OrderBy: orderBy,
		Asc:     boolPtr(asc),
	}
	if params.GameID != nil {
		if id, err := engine.NormalizeGameID(*params.GameID); err == nil {
			params.GameID = &id
		}
	}
	items, total, err := h.Engine.ListMatches(c.Request.Context(), params)
	if err != nil {
		EngineError(c, err)
		return
	}
	out := make([]matchView, 0, len(items))
	for i := range items {
		out = append(out, toMatchView(&items[i]))
	}
	Ok(c, out, paginationMeta(limit, offset, total))
}
