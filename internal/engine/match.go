package engine

import (
	"context"
	"encoding/hex"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"wagerescrow/internal/address"
	"wagerescrow/internal/amount"
	"wagerescrow/internal/fees"
	"wagerescrow/internal/ledger"
	"wagerescrow/internal/models"
	"wagerescrow/internal/notify"
	"wagerescrow/internal/oracle"
	"wagerescrow/internal/repository"
)

const maxGameIDLen = 64

type CreateMatchParams struct {
	Creator     address.Address
	GameID      string
	WagerAmount int64
	ExpiryTime  time.Time
	Funding     FundingSource
}

type SubmitResultParams struct {
	MatchID    address.Address
	Winner     address.Address
	ResultHash [32]byte
	Signature  []byte
	Envelope   []byte
}

// NormalizeGameID lowercases and slugifies a game identifier.
func NormalizeGameID(gameID string) (string, error) {
	id := slug.Make(strings.TrimSpace(gameID))
	if id == "" || len(id) > maxGameIDLen {
		return "", ErrInvalidGameID
	}
	return id, nil
}

func (e *Engine) CreateMatch(ctx context.Context, p CreateMatchParams) (*models.Match, error) {
	if p.Funding == nil {
		return nil, ErrInvalidFundingSource
	}
	gameID, err := NormalizeGameID(p.GameID)
	if err != nil {
		return nil, err
	}

	var out *models.Match
	err = e.run(ctx, func(tx repository.Tx, o *op) error {
		cfg, err := e.loadConfig(ctx, tx)
		if err != nil {
			return err
		}
		if cfg.IsPaused {
			return ErrPlatformPaused
		}
		if p.WagerAmount < amount.MinWager {
			return ErrWagerTooLow
		}
		if p.WagerAmount > amount.MaxWager {
			return ErrWagerTooHigh
		}
		if !p.ExpiryTime.After(o.now) {
			return ErrInvalidExpiryTime
		}

		id := address.MatchID(p.Creator, gameID, o.now.UnixNano())
		existing, err := tx.GetMatchForUpdate(ctx, id.String())
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrMatchIDConflict
		}
		escrow := address.Escrow(id)
		m := &models.Match{
			ID:             id.String(),
			GameID:         gameID,
			Escrow:         escrow.String(),
			Creator:        p.Creator.String(),
			WagerAmount:    p.WagerAmount,
			TotalPot:       p.WagerAmount,
			CreatorFunding: p.Funding.String(),
			Status:         models.MatchWaitingForPlayer,
			ExpiryTime:     p.ExpiryTime.UTC(),
			CreatedAt:      o.now,
			UpdatedAt:      o.now,
		}
		if err := e.fundEscrow(ctx, tx, o, p.Creator, escrow, p.WagerAmount, p.Funding, m.ID); err != nil {
			return err
		}
		if err := tx.InsertMatch(ctx, m); err != nil {
			return err
		}

		o.emit(notify.EventMatchCreated, m.ID, map[string]any{
			"match_id":     m.ID,
			"creator":      m.Creator,
			"game_id":      m.GameID,
			"wager_amount": m.WagerAmount,
			"expiry_time":  m.ExpiryTime.Unix(),
			"funding":      m.CreatorFunding,
		})
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// fundEscrow moves one wager into the escrow from the chosen source.
func (e *Engine) fundEscrow(ctx context.Context, tx repository.Tx, o *op, player, escrow address.Address, wager int64, src FundingSource, ref string) error {
	switch src.(type) {
	case DirectFunding:
		return e.Ledger.Transfer(ctx, tx, player, escrow, wager, ledger.ReasonMatchStake, ref, o.now)
	case SessionFunding:
		vault, err := e.debitForMatch(ctx, tx, o, player, wager)
		if err != nil {
			return err
		}
		custody, err := address.Parse(vault.Account)
		if err != nil {
			return err
		}
		return e.Ledger.Transfer(ctx, tx, custody, escrow, wager, ledger.ReasonMatchStake, ref, o.now)
	default:
		return ErrInvalidFundingSource
	}
}

func (e *Engine) JoinMatch(ctx context.Context, matchID, joiner address.Address, funding FundingSource) (*models.Match, error) {
	if funding == nil {
		return nil, ErrInvalidFundingSource
	}
	var out *models.Match
	err := e.run(ctx, func(tx repository.Tx, o *op) error {
		cfg, err := e.loadConfig(ctx, tx)
		if err != nil {
			return err
		}
		if cfg.IsPaused {
			return ErrPlatformPaused
		}
		m, err := lockMatch(ctx, tx, matchID)
		if err != nil {
			return err
		}
		if m.Status != models.MatchWaitingForPlayer {
			return ErrMatchNotAvailable
		}
		if m.Creator == joiner.String() {
			return ErrCannotJoinOwnMatch
		}
		if !o.now.Before(m.ExpiryTime) {
			return ErrMatchExpired
		}
		escrow, err := address.Parse(m.Escrow)
		if err != nil {
			return err
		}
		if err := e.fundEscrow(ctx, tx, o, joiner, escrow, m.WagerAmount, funding, m.ID); err != nil {
			return err
		}

		j := joiner.String()
		f := funding.String()
		m.Joiner = &j
		m.JoinerFunding = &f
		m.TotalPot = 2 * m.WagerAmount
		m.Status = models.MatchInProgress
		m.UpdatedAt = o.now
		if err := tx.SaveMatch(ctx, m); err != nil {
			return err
		}
		o.emit(notify.EventMatchJoined, m.ID, map[string]any{
			"match_id":  m.ID,
			"joiner":    j,
			"total_pot": m.TotalPot,
			"funding":   f,
		})
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitResult settles an in-progress match on an oracle attestation. The
// fee schedule in force at settlement time applies.
func (e *Engine) SubmitResult(ctx context.Context, p SubmitResultParams) (*models.Match, error) {
	var out *models.Match
	err := e.run(ctx, func(tx repository.Tx, o *op) error {
		cfg, err := e.loadConfig(ctx, tx)
		if err != nil {
			return err
		}
		m, err := lockMatch(ctx, tx, p.MatchID)
		if err != nil {
			return err
		}
		if m.Status != models.MatchInProgress {
			return ErrMatchNotInProgress
		}
		winner := p.Winner.String()
		var loser string
		switch {
		case winner == m.Creator && m.Joiner != nil:
			loser = *m.Joiner
		case m.Joiner != nil && winner == *m.Joiner:
			loser = m.Creator
		default:
			return ErrInvalidWinner
		}

		verifier, err := address.Parse(cfg.Verifier)
		if err != nil {
			return err
		}
		msg := oracle.ResultMessage(p.MatchID, p.Winner, p.ResultHash)
		if err := e.verifier().Verify(verifier, msg, p.Signature, p.Envelope); err != nil {
			e.logger().Warn("oracle attestation rejected", zap.String("match_id", m.ID), zap.Error(err))
			return err
		}

		split := fees.Compute(m.TotalPot, scheduleOf(cfg))
		escrow, err := address.Parse(m.Escrow)
		if err != nil {
			return err
		}
		held, err := e.Ledger.BalanceOf(ctx, tx, escrow)
		if err != nil {
			return err
		}
		if held < m.TotalPot {
			return ErrInsufficientEscrowBalance
		}
		treasury, err := address.Parse(cfg.Treasury)
		if err != nil {
			return err
		}
		referral, err := address.Parse(cfg.ReferralPool)
		if err != nil {
			return err
		}
		payouts := []struct {
			to     address.Address
			amount int64
			reason string
		}{
			{p.Winner, split.WinnerAmount, ledger.ReasonPayoutWinner},
			{treasury, split.TreasuryFee, ledger.ReasonPayoutTreasury},
			{referral, split.ReferralFee, ledger.ReasonPayoutReferral},
		}
		for _, po := range payouts {
			if po.amount == 0 {
				continue
			}
			if err := e.Ledger.Transfer(ctx, tx, escrow, po.to, po.amount, po.reason, m.ID, o.now); err != nil {
				return err
			}
		}

		hash := hex.EncodeToString(p.ResultHash[:])
		settledAt := o.now
		m.Status = models.MatchCompleted
		m.Winner = &winner
		m.ResultHash = &hash
		m.PlatformFee = split.PlatformFee
		m.TreasuryFee = split.TreasuryFee
		m.ReferralFee = split.ReferralFee
		m.WinnerAmount = split.WinnerAmount
		m.Residual = split.Residual
		m.SettledAt = &settledAt
		m.UpdatedAt = o.now
		if err := tx.SaveMatch(ctx, m); err != nil {
			return err
		}
		cfg.TotalMatches++
		cfg.TotalVolume += m.TotalPot
		cfg.UpdatedAt = o.now
		if err := tx.SavePlatformConfig(ctx, cfg); err != nil {
			return err
		}

		o.emit(notify.EventMatchCompleted, m.ID, map[string]any{
			"match_id":      m.ID,
			"winner":        winner,
			"winner_amount": split.WinnerAmount,
			"platform_fee":  split.PlatformFee,
			"treasury_fee":  split.TreasuryFee,
			"referral_fee":  split.ReferralFee,
		})
		if e.Board != nil {
			loserAddr, _ := address.Parse(loser)
			winnings := split.WinnerAmount
			o.onCommit(func(ctx context.Context) {
				if err := e.Board.Record(ctx, p.Winner, loserAddr, winnings); err != nil {
					e.logger().Warn("leaderboard update failed", zap.String("match_id", p.MatchID.String()), zap.Error(err))
				}
			})
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RefundMatch returns each participant's wager once the match has expired or
// was cancelled. Anyone may call it.
func (e *Engine) RefundMatch(ctx context.Context, matchID address.Address) (*models.Match, error) {
	var out *models.Match
	err := e.run(ctx, func(tx repository.Tx, o *op) error {
		m, err := lockMatch(ctx, tx, matchID)
		if err != nil {
			return err
		}
		if m.Status.Terminal() {
			return ErrMatchAlreadySettled
		}
		if !(o.now.After(m.ExpiryTime) || m.Status == models.MatchCancelled) {
			return ErrMatchNotExpired
		}

		recipients := []string{m.Creator}
		if m.Joiner != nil && *m.Joiner != "" {
			recipients = append(recipients, *m.Joiner)
		}
		total := m.WagerAmount * int64(len(recipients))
		escrow, err := address.Parse(m.Escrow)
		if err != nil {
			return err
		}
		held, err := e.Ledger.BalanceOf(ctx, tx, escrow)
		if err != nil {
			return err
		}
		if held < total {
			return ErrInsufficientEscrowBalance
		}
		for _, r := range recipients {
			to, err := address.Parse(r)
			if err != nil {
				return err
			}
			if err := e.Ledger.Transfer(ctx, tx, escrow, to, m.WagerAmount, ledger.ReasonRefund, m.ID, o.now); err != nil {
				return err
			}
		}

		settledAt := o.now
		m.Status = models.MatchRefunded
		m.RefundAmount = total
		m.SettledAt = &settledAt
		m.UpdatedAt = o.now
		if err := tx.SaveMatch(ctx, m); err != nil {
			return err
		}
		o.emit(notify.EventMatchRefunded, m.ID, map[string]any{
			"match_id":      m.ID,
			"refund_amount": total,
			"recipients":    recipients,
		})
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) GetMatch(ctx context.Context, id address.Address) (*models.Match, error) {
	m, err := e.Repo.GetMatch(ctx, id.String())
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrMatchNotFound
	}
	return m, nil
}

func (e *Engine) ListMatches(ctx context.Context, params repository.ListMatchesParams) ([]models.Match, int64, error) {
	items, err := e.Repo.ListMatches(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	total, err := e.Repo.CountMatches(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func lockMatch(ctx context.Context, tx repository.Tx, id address.Address) (*models.Match, error) {
	m, err := tx.GetMatchForUpdate(ctx, id.String())
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrMatchNotFound
	}
	return m, nil
}

func (e *Engine) verifier() Verifier {
	if e.Verifier != nil {
		return e.Verifier
	}
	return oracle.Ed25519Verifier{}
}
