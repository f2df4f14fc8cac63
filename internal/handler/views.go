package handler

import (
	"encoding/json"
	"time"

	"wagerescrow/internal/amount"
	"wagerescrow/internal/models"
)

// Response shapes. Lamport amounts are returned as integers, with a
// "_tokens" decimal string alongside the headline figures.

type matchView struct {
	ID             string     `json:"id"`
	GameID         string     `json:"game_id"`
	Escrow         string     `json:"escrow"`
	Creator        string     `json:"creator"`
	Joiner         *string    `json:"joiner,omitempty"`
	Status         string     `json:"status"`
	WagerAmount    int64      `json:"wager_amount"`
	WagerTokens    string     `json:"wager_tokens"`
	TotalPot       int64      `json:"total_pot"`
	CreatorFunding string     `json:"creator_funding"`
	JoinerFunding  *string    `json:"joiner_funding,omitempty"`
	Winner         *string    `json:"winner,omitempty"`
	ResultHash     *string    `json:"result_hash,omitempty"`
	PlatformFee    int64      `json:"platform_fee"`
	TreasuryFee    int64      `json:"treasury_fee"`
	ReferralFee    int64      `json:"referral_fee"`
	WinnerAmount   int64      `json:"winner_amount"`
	Residual       int64      `json:"residual"`
	RefundAmount   int64      `json:"refund_amount"`
	ExpiryTime     time.Time  `json:"expiry_time"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	SettledAt      *time.Time `json:"settled_at,omitempty"`
	ArchivedAt     *time.Time `json:"archived_at,omitempty"`
}

func toMatchView(m *models.Match) matchView {
	return matchView{
		ID:             m.ID,
		GameID:         m.GameID,
		Escrow:         m.Escrow,
		Creator:        m.Creator,
		Joiner:         m.Joiner,
		Status:         string(m.Status),
		WagerAmount:    m.WagerAmount,
		WagerTokens:    amount.FormatToken(m.WagerAmount),
		TotalPot:       m.TotalPot,
		CreatorFunding: m.CreatorFunding,
		JoinerFunding:  m.JoinerFunding,
		Winner:         m.Winner,
		ResultHash:     m.ResultHash,
		PlatformFee:    m.PlatformFee,
		TreasuryFee:    m.TreasuryFee,
		ReferralFee:    m.ReferralFee,
		WinnerAmount:   m.WinnerAmount,
		Residual:       m.Residual,
		RefundAmount:   m.RefundAmount,
		ExpiryTime:     m.ExpiryTime,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		SettledAt:      m.SettledAt,
		ArchivedAt:     m.ArchivedAt,
	}
}

type sessionView struct {
	Owner          string    `json:"owner"`
	Account        string    `json:"account"`
	Balance        int64     `json:"balance"`
	BalanceTokens  string    `json:"balance_tokens"`
	TotalDeposited int64     `json:"total_deposited"`
	TotalWithdrawn int64     `json:"total_withdrawn"`
	MatchesPlayed  int64     `json:"matches_played"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivity   time.Time `json:"last_activity"`
}

func toSessionView(v *models.SessionVault) sessionView {
	return sessionView{
		Owner:          v.Owner,
		Account:        v.Account,
		Balance:        v.Balance,
		BalanceTokens:  amount.FormatToken(v.Balance),
		TotalDeposited: v.TotalDeposited,
		TotalWithdrawn: v.TotalWithdrawn,
		MatchesPlayed:  v.MatchesPlayed,
		CreatedAt:      v.CreatedAt,
		LastActivity:   v.LastActivity,
	}
}

type platformView struct {
	Treasury       string    `json:"treasury"`
	ReferralPool   string    `json:"referral_pool"`
	Verifier       string    `json:"verifier"`
	Admins         []string  `json:"admins"`
	PlatformFeeBps int64     `json:"platform_fee_bps"`
	TreasuryFeeBps int64     `json:"treasury_fee_bps"`
	ReferralFeeBps int64     `json:"referral_fee_bps"`
	IsPaused       bool      `json:"is_paused"`
	TotalMatches   int64     `json:"total_matches"`
	TotalVolume    int64     `json:"total_volume"`
	Version        int64     `json:"version"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toPlatformView(c *models.PlatformConfig) platformView {
	return platformView{
		Treasury:       c.Treasury,
		ReferralPool:   c.ReferralPool,
		Verifier:       c.Verifier,
		Admins:         c.AdminSigners(),
		PlatformFeeBps: c.PlatformFeeBps,
		TreasuryFeeBps: c.TreasuryFeeBps,
		ReferralFeeBps: c.ReferralFeeBps,
		IsPaused:       c.IsPaused,
		TotalMatches:   c.TotalMatches,
		TotalVolume:    c.TotalVolume,
		Version:        c.Version,
		UpdatedAt:      c.UpdatedAt,
	}
}

type ledgerEntryView struct {
	ID        uint64    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Amount    int64     `json:"amount"`
	Reason    string    `json:"reason"`
	Ref       string    `json:"ref,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toLedgerEntryViews(items []models.LedgerEntry) []ledgerEntryView {
	out := make([]ledgerEntryView, 0, len(items))
	for _, e := range items {
		out = append(out, ledgerEntryView{
			ID:        e.ID,
			From:      e.FromAddress,
			To:        e.ToAddress,
			Amount:    e.Amount,
			Reason:    e.Reason,
			Ref:       e.Ref,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}

type alertView struct {
	ID             string     `json:"id"`
	Level          string     `json:"level"`
	Message        string     `json:"message"`
	Acknowledged   bool       `json:"acknowledged"`
	AcknowledgedBy *string    `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func toAlertView(a *models.SystemAlert) alertView {
	return alertView{
		ID:             a.ID,
		Level:          a.Level,
		Message:        a.Message,
		Acknowledged:   a.Acknowledged,
		AcknowledgedBy: a.AcknowledgedBy,
		AcknowledgedAt: a.AcknowledgedAt,
		CreatedAt:      a.CreatedAt,
	}
}

type adminActionView struct {
	ID            string          `json:"id"`
	Action        string          `json:"action"`
	Signers       json.RawMessage `json:"signers"`
	Details       json.RawMessage `json:"details,omitempty"`
	ConfigVersion int64           `json:"config_version"`
	CreatedAt     time.Time       `json:"created_at"`
}

func toAdminActionView(a *models.AdminAction) adminActionView {
	return adminActionView{
		ID:            a.ID,
		Action:        a.Action,
		Signers:       json.RawMessage(a.Signers),
		Details:       json.RawMessage(a.Details),
		ConfigVersion: a.ConfigVersion,
		CreatedAt:     a.CreatedAt,
	}
}

type eventRecordView struct {
	ID        string          `json:"id"`
	Event     string          `json:"event"`
	Ref       string          `json:"ref,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

func toEventRecordView(e *models.EventRecord) eventRecordView {
	return eventRecordView{
		ID:        e.ID,
		Event:     e.Name,
		Ref:       e.Ref,
		Payload:   json.RawMessage(e.Payload),
		CreatedAt: e.CreatedAt,
	}
}
