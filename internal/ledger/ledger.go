// Package ledger moves balances between addresses inside a repository
// transaction and journals every movement.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"wagerescrow/internal/address"
	"wagerescrow/internal/models"
	"wagerescrow/internal/repository"
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrSelfTransfer      = errors.New("transfer to self")
	ErrBalanceOverflow   = errors.New("balance overflow")
)

// Transfer reasons recorded on journal entries.
const (
	ReasonFund           = "fund"
	ReasonMatchStake     = "match_stake"
	ReasonPayoutWinner   = "payout_winner"
	ReasonPayoutTreasury = "payout_treasury"
	ReasonPayoutReferral = "payout_referral"
	ReasonRefund         = "refund"
	ReasonDeposit        = "session_deposit"
	ReasonWithdraw       = "session_withdraw"
	ReasonRecovery       = "vault_recovery"
)

type Ledger struct {
	Logger *zap.Logger
}

func New(logger *zap.Logger) *Ledger {
	return &Ledger{Logger: logger}
}

func (l *Ledger) BalanceOf(ctx context.Context, tx repository.Tx, addr address.Address) (int64, error) {
	acc, err := tx.LockLedgerAccount(ctx, addr.String())
	if err != nil {
		return 0, err
	}
	return acc.Balance, nil
}

// Transfer moves amount from one account to another. Both rows are locked in
// address order so opposing transfers cannot deadlock. Nothing is written
// unless the source can cover the amount.
func (l *Ledger) Transfer(ctx context.Context, tx repository.Tx, from, to address.Address, amount int64, reason, ref string, at time.Time) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if from == to {
		return ErrSelfTransfer
	}

	first, second := from, to
	if to.String() < from.String() {
		first, second = to, from
	}
	a, err := tx.LockLedgerAccount(ctx, first.String())
	if err != nil {
		return err
	}
	b, err := tx.LockLedgerAccount(ctx, second.String())
	if err != nil {
		return err
	}
	src, dst := a, b
	if first != from {
		src, dst = b, a
	}

	if from != address.External && src.Balance < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientFunds, from, src.Balance, amount)
	}
	if dst.Balance > math.MaxInt64-amount || src.Balance < math.MinInt64+amount {
		return fmt.Errorf("%w: moving %d from %s to %s", ErrBalanceOverflow, amount, from, to)
	}
	src.Balance -= amount
	dst.Balance += amount
	if err := tx.SaveLedgerAccount(ctx, src); err != nil {
		return err
	}
	if err := tx.SaveLedgerAccount(ctx, dst); err != nil {
		return err
	}
	entry := &models.LedgerEntry{
		FromAddress: from.String(),
		ToAddress:   to.String(),
		Amount:      amount,
		Reason:      reason,
		Ref:         ref,
		CreatedAt:   at,
	}
	if err := tx.InsertLedgerEntry(ctx, entry); err != nil {
		return err
	}
	if l != nil && l.Logger != nil {
		l.Logger.Debug("ledger transfer",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
			zap.Int64("amount", amount),
			zap.String("reason", reason),
			zap.String("ref", ref),
		)
	}
	return nil
}

// Fund credits addr from the external on-ramp account.
func (l *Ledger) Fund(ctx context.Context, tx repository.Tx, addr address.Address, amount int64, ref string, at time.Time) error {
	return l.Transfer(ctx, tx, address.External, addr, amount, ReasonFund, ref, at)
}
