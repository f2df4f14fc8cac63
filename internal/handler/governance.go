package handler

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wagerescrow/internal/address"
	"wagerescrow/internal/engine"
	"wagerescrow/internal/fees"
	"wagerescrow/internal/governance"
)

// GovernanceHandler exposes the multisig operations. The admin signatures in
// the request body are the authorization, so these routes take no token.
type GovernanceHandler struct {
	Engine *engine.Engine
	Logger *zap.Logger
}

func (h *GovernanceHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/admin")
	g.GET("/digest", h.digest)
	g.POST("/pause", h.pause)
	g.POST("/unpause", h.unpause)
	g.POST("/fees", h.updateFees)
	g.POST("/recover", h.recoverVault)
}

type approvalRequest struct {
	Signer    string `json:"signer"`
	Signature string `json:"signature"`
}

type approvalsRequest struct {
	Approvals []approvalRequest `json:"approvals"`
}

type feesRequest struct {
	PlatformFeeBps int64             `json:"platform_fee_bps"`
	TreasuryFeeBps int64             `json:"treasury_fee_bps"`
	ReferralFeeBps int64             `json:"referral_fee_bps"`
	Approvals      []approvalRequest `json:"approvals"`
}

type recoverRequest struct {
	Owner          string            `json:"owner"`
	Destination    string            `json:"destination"`
	ThresholdHours int64             `json:"threshold_hours"`
	Approvals      []approvalRequest `json:"approvals"`
}

type digestResponse struct {
	Operation     string `json:"operation"`
	Digest        string `json:"digest"`
	ConfigVersion int64  `json:"config_version"`
}

func parseApprovals(items []approvalRequest) ([]governance.Approval, error) {
	out := make([]governance.Approval, 0, len(items))
	for i, it := range items {
		signer, err := address.Parse(it.Signer)
		if err != nil {
			return nil, fmt.Errorf("approvals[%d].signer: %w", i, err)
		}
		sig, err := decodeHex(it.Signature)
		if err != nil {
			return nil, fmt.Errorf("approvals[%d].signature: %w", i, err)
		}
		out = append(out, governance.Approval{Signer: signer, Signature: sig})
	}
	return out, nil
}

// @Summary Digest admins must sign for a governance operation
// @Tags governance
// @Param operation query string true "emergency_pause|emergency_unpause|update_fees|recover_inactive_vault"
// @Param platform_fee_bps query int false "update_fees"
// @Param treasury_fee_bps query int false "update_fees"
// @Param referral_fee_bps query int false "update_fees"
// @Param owner query string false "recover_inactive_vault"
// @Param destination query string false "recover_inactive_vault"
// @Param threshold_hours query int false "recover_inactive_vault"
// @Success 200 {object} apiResponse
// @Router /api/v1/admin/digest [get]
func (h *GovernanceHandler) digest(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	op, err := governance.ParseOperation(c.Query("operation"))
	if err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	var params []byte
	switch op {
	case governance.OpUpdateFees:
		params = governance.FeesParams(
			int64Query(c, "platform_fee_bps"),
			int64Query(c, "treasury_fee_bps"),
			int64Query(c, "referral_fee_bps"),
		)
	case governance.OpRecoverVault:
		owner, err := address.Parse(c.Query("owner"))
		if err != nil {
			Error(c, http.StatusBadRequest, "invalid owner", nil)
			return
		}
		dest, err := address.Parse(c.Query("destination"))
		if err != nil {
			Error(c, http.StatusBadRequest, "invalid destination", nil)
			return
		}
		params = governance.RecoverParams(owner, dest, int64Query(c, "threshold_hours"))
	}
	d, version, err := h.Engine.GovernanceDigest(c.Request.Context(), op, params)
	if err != nil {
		EngineError(c, err)
		return
	}
	Ok(c, digestResponse{Operation: string(op), Digest: hex.EncodeToString(d), ConfigVersion: version}, nil)
}

// @Summary Emergency pause
// @Tags governance
// @Param body body approvalsRequest true "2-of-3 admin approvals"
// @Success 200 {object} apiResponse
// @Router /api/v1/admin/pause [post]
func (h *GovernanceHandler) pause(c *gin.Context) {
	h.setPaused(c, true)
}

// @Summary Lift an emergency pause
// @Tags governance
// @Param body body approvalsRequest true "2-of-3 admin approvals"
// @Success 200 {object} apiResponse
// @Router /api/v1/admin/unpause [post]
func (h *GovernanceHandler) unpause(c *gin.Context) {
	h.setPaused(c, false)
}

func (h *GovernanceHandler) setPaused(c *gin.Context, paused bool) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	var req approvalsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	approvals, err := parseApprovals(req.Approvals)
	if err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	call := h.Engine.EmergencyUnpause
	if paused {
		call = h.Engine.EmergencyPause
	}
	cfg, err := call(c.Request.Context(), approvals)
	if err != nil {
		h.logRejected(c, "pause", err)
		EngineError(c, err)
		return
	}
	Ok(c, toPlatformView(cfg), nil)
}

// @Summary Update the fee schedule
// @Tags governance
// @Param body body feesRequest true "new schedule and approvals"
// @Success 200 {object} apiResponse
// @Router /api/v1/admin/fees [post]
func (h *GovernanceHandler) updateFees(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	var req feesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	approvals, err := parseApprovals(req.Approvals)
	if err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	cfg, err := h.Engine.UpdateFees(c.Request.Context(), fees.Schedule{
		PlatformBps: req.PlatformFeeBps,
		TreasuryBps: req.TreasuryFeeBps,
		ReferralBps: req.ReferralFeeBps,
	}, approvals)
	if err != nil {
		h.logRejected(c, "fees", err)
		EngineError(c, err)
		return
	}
	Ok(c, toPlatformView(cfg), nil)
}

// @Summary Recover an inactive session vault
// @Tags governance
// @Param body body recoverRequest true "vault, destination and approvals"
// @Success 200 {object} apiResponse
// @Router /api/v1/admin/recover [post]
func (h *GovernanceHandler) recoverVault(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	var req recoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	owner, err := address.Parse(req.Owner)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid owner", nil)
		return
	}
	dest, err := address.Parse(req.Destination)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid destination", nil)
		return
	}
	approvals, err := parseApprovals(req.Approvals)
	if err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	rec, err := h.Engine.RecoverInactiveVault(c.Request.Context(), engine.RecoverParams{
		Owner:          owner,
		Destination:    dest,
		ThresholdHours: req.ThresholdHours,
	}, approvals)
	if err != nil {
		h.logRejected(c, "recover", err)
		EngineError(c, err)
		return
	}
	Ok(c, gin.H{
		"vault":            toSessionView(rec.Vault),
		"destination":      rec.Destination,
		"amount":           rec.Amount,
		"inactivity_hours": rec.InactivityHours,
	}, nil)
}

func (h *GovernanceHandler) logRejected(c *gin.Context, op string, err error) {
	if h.Logger == nil || engine.Kind(err) != engine.KindAuthorization {
		return
	}
	h.Logger.Warn("governance request rejected",
		zap.String("op", op),
		zap.String("client_ip", c.ClientIP()),
		zap.Error(err),
	)
}

func int64Query(c *gin.Context, key string) int64 {
	n, _ := strconv.ParseInt(c.Query(key), 10, 64)
	return n
}
