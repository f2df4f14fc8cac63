package engine

import (
	"context"

	"wagerescrow/internal/address"
	"wagerescrow/internal/ledger"
	"wagerescrow/internal/models"
	"wagerescrow/internal/notify"
	"wagerescrow/internal/repository"
)

// CreateSession opens an empty vault for owner. Its funds are held by the
// derived custody account.
func (e *Engine) CreateSession(ctx context.Context, owner address.Address) (*models.SessionVault, error) {
	var out *models.SessionVault
	err := e.run(ctx, func(tx repository.Tx, o *op) error {
		existing, err := tx.GetSessionVaultForUpdate(ctx, owner.String())
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrSessionAlreadyExists
		}
		v := &models.SessionVault{
			Owner:        owner.String(),
			Account:      address.SessionVault(owner).String(),
			CreatedAt:    o.now,
			LastActivity: o.now,
		}
		if err := tx.InsertSessionVault(ctx, v); err != nil {
			return err
		}
		o.emit(notify.EventSessionCreated, v.Owner, map[string]any{
			"owner":   v.Owner,
			"account": v.Account,
		})
		out = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) Deposit(ctx context.Context, owner address.Address, amount int64) (*models.SessionVault, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	var out *models.SessionVault
	err := e.run(ctx, func(tx repository.Tx, o *op) error {
		v, err := lockVault(ctx, tx, owner)
		if err != nil {
			return err
		}
		custody, err := address.Parse(v.Account)
		if err != nil {
			return err
		}
		if err := e.Ledger.Transfer(ctx, tx, owner, custody, amount, ledger.ReasonDeposit, v.Owner, o.now); err != nil {
			return err
		}
		v.Balance += amount
		v.TotalDeposited += amount
		v.LastActivity = o.now
		if err := tx.SaveSessionVault(ctx, v); err != nil {
			return err
		}
		o.emit(notify.EventSessionDeposit, v.Owner, map[string]any{
			"owner":   v.Owner,
			"amount":  amount,
			"balance": v.Balance,
		})
		out = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) Withdraw(ctx context.Context, owner address.Address, amount int64) (*models.SessionVault, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	var out *models.SessionVault
	err := e.run(ctx, func(tx repository.Tx, o *op) error {
		v, err := lockVault(ctx, tx, owner)
		if err != nil {
			return err
		}
		if v.Balance < amount {
			return ErrInsufficientSessionBalance
		}
		custody, err := address.Parse(v.Account)
		if err != nil {
			return err
		}
		if err := e.Ledger.Transfer(ctx, tx, custody, owner, amount, ledger.ReasonWithdraw, v.Owner, o.now); err != nil {
			return err
		}
		v.Balance -= amount
		v.TotalWithdrawn += amount
		v.LastActivity = o.now
		if err := tx.SaveSessionVault(ctx, v); err != nil {
			return err
		}
		o.emit(notify.EventSessionWithdraw, v.Owner, map[string]any{
			"owner":   v.Owner,
			"amount":  amount,
			"balance": v.Balance,
		})
		out = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// debitForMatch reserves amount from owner's vault for a wager. The caller
// moves the same amount from the custody account into the escrow within the
// same transaction.
func (e *Engine) debitForMatch(ctx context.Context, tx repository.Tx, o *op, owner address.Address, amount int64) (*models.SessionVault, error) {
	v, err := lockVault(ctx, tx, owner)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if v.Balance < amount {
		return nil, ErrInsufficientSessionBalance
	}
	v.Balance -= amount
	v.MatchesPlayed++
	v.LastActivity = o.now
	if err := tx.SaveSessionVault(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (e *Engine) GetSession(ctx context.Context, owner address.Address) (*models.SessionVault, error) {
	v, err := e.Repo.GetSessionVault(ctx, owner.String())
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrSessionNotFound
	}
	return v, nil
}

func lockVault(ctx context.Context, tx repository.Tx, owner address.Address) (*models.SessionVault, error) {
	v, err := tx.GetSessionVaultForUpdate(ctx, owner.String())
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrSessionNotFound
	}
	return v, nil
}
