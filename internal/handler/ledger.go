package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"wagerescrow/internal/address"
	"wagerescrow/internal/amount"
	"wagerescrow/internal/auth"
	"wagerescrow/internal/engine"
	"wagerescrow/internal/repository"
)

type LedgerHandler struct {
	Engine *engine.Engine
	Guard  Guard
}

func (h *LedgerHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/ledger")
	g.GET("/:address", h.account)
	g.POST("/fund", h.Guard.with(h.fund, auth.RoleOperator)...)
}

type fundRequest struct {
	Address string `json:"address"`
	Amount  int64  `json:"amount"`
	Tokens  string `json:"tokens"`
	Ref     string `json:"ref"`
}

// @Summary Ledger balance and journal for an address
// @Tags ledger
// @Param address path string true "account address"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Param ref query string false "filter by reference"
// @Success 200 {object} apiResponse
// @Router /api/v1/ledger/{address} [get]
func (h *LedgerHandler) account(c *gin.Context) {
	if h.Engine == nil || h.Engine.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	addr, ok := addressParam(c, "address")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	balance, err := h.Engine.Balance(ctx, addr)
	if err != nil {
		EngineError(c, err)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	s := addr.String()
	entries, err := h.Engine.Repo.ListLedgerEntries(ctx, repository.ListLedgerEntriesParams{
		Limit:   limit,
		Offset:  offset,
		Address: &s,
		Ref:     strQueryPtr(c, "ref"),
	})
	if err != nil {
		EngineError(c, err)
		return
	}
	Ok(c, gin.H{
		"address":        s,
		"balance":        balance,
		"balance_tokens": amount.FormatToken(balance),
		"entries":        toLedgerEntryViews(entries),
	}, map[string]any{"limit": limit, "offset": offset})
}

// @Summary Credit an address from the external on-ramp
// @Tags ledger
// @Param body body fundRequest true "address and amount"
// @Success 200 {object} apiResponse
// @Router /api/v1/ledger/fund [post]
func (h *LedgerHandler) fund(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	var req fundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	addr, err := address.Parse(req.Address)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid address", nil)
		return
	}
	amt, err := amountField(req.Amount, req.Tokens)
	if err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	ref := strings.TrimSpace(req.Ref)
	if ref == "" {
		if claims, ok := auth.ClaimsFrom(c); ok {
			ref = "operator:" + claims.Subject
		}
	}
	balance, err := h.Engine.Fund(c.Request.Context(), addr, amt, ref)
	if err != nil {
		EngineError(c, err)
		return
	}
	Ok(c, gin.H{
		"address":        addr.String(),
		"amount":         amt,
		"balance":        balance,
		"balance_tokens": amount.FormatToken(balance),
	}, nil)
}
