// Package engine is the match settlement and escrow engine. Every operation
// runs as one repository transaction; its notifications are persisted inside
// that transaction and published only after it commits.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wagerescrow/internal/address"
	"wagerescrow/internal/fees"
	"wagerescrow/internal/leaderboard"
	"wagerescrow/internal/ledger"
	"wagerescrow/internal/models"
	"wagerescrow/internal/notify"
	"wagerescrow/internal/repository"
)

// Verifier checks an oracle attestation for message against the configured
// verifier identity.
type Verifier interface {
	Verify(verifier address.Address, message, signature, envelope []byte) error
}

type Clock func() time.Time

type Engine struct {
	Repo     repository.Repository
	Ledger   *ledger.Ledger
	Verifier Verifier
	Notifier notify.Publisher
	Board    leaderboard.Board
	Logger   *zap.Logger
	Clock    Clock
}

func (e *Engine) now() time.Time {
	if e.Clock != nil {
		return e.Clock().UTC()
	}
	return time.Now().UTC()
}

func (e *Engine) logger() *zap.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return zap.NewNop()
}

// op accumulates what a transaction produced so it can be released once the
// transaction commits.
type op struct {
	now    time.Time
	events []notify.Event
	after  []func(ctx context.Context)
}

func (o *op) emit(name, ref string, payload map[string]any) {
	o.events = append(o.events, notify.Event{
		ID:      uuid.NewString(),
		Name:    name,
		Ref:     ref,
		Payload: payload,
		At:      o.now,
	})
}

func (o *op) onCommit(fn func(ctx context.Context)) {
	o.after = append(o.after, fn)
}

func (e *Engine) run(ctx context.Context, fn func(tx repository.Tx, o *op) error) error {
	if e.Repo == nil {
		return fmt.Errorf("engine: repository not configured")
	}
	o := &op{now: e.now()}
	err := e.Repo.InTx(ctx, func(tx repository.Tx) error {
		o.events = o.events[:0]
		o.after = o.after[:0]
		if err := fn(tx, o); err != nil {
			return err
		}
		for _, ev := range o.events {
			payload, err := json.Marshal(ev.Payload)
			if err != nil {
				return err
			}
			if err := tx.InsertEventRecord(ctx, &models.EventRecord{
				ID:        ev.ID,
				Name:      ev.Name,
				Ref:       ev.Ref,
				Payload:   payload,
				CreatedAt: ev.At,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, ev := range o.events {
		if e.Notifier == nil {
			break
		}
		if err := e.Notifier.Publish(ctx, ev); err != nil {
			e.logger().Warn("publish event failed", zap.String("event", ev.Name), zap.String("ref", ev.Ref), zap.Error(err))
		}
	}
	for _, fn := range o.after {
		fn(ctx)
	}
	return nil
}

func (e *Engine) loadConfig(ctx context.Context, tx repository.Tx) (*models.PlatformConfig, error) {
	cfg, err := tx.GetPlatformConfigForUpdate(ctx)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, ErrNotInitialized
	}
	return cfg, nil
}

func scheduleOf(cfg *models.PlatformConfig) fees.Schedule {
	return fees.Schedule{
		PlatformBps: cfg.PlatformFeeBps,
		TreasuryBps: cfg.TreasuryFeeBps,
		ReferralBps: cfg.ReferralFeeBps,
	}
}

// PlatformConfig returns the persisted configuration.
func (e *Engine) PlatformConfig(ctx context.Context) (*models.PlatformConfig, error) {
	cfg, err := e.Repo.GetPlatformConfig(ctx)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, ErrNotInitialized
	}
	return cfg, nil
}

// Balance reads a ledger account outside any transaction.
func (e *Engine) Balance(ctx context.Context, addr address.Address) (int64, error) {
	return e.Repo.GetLedgerBalance(ctx, addr.String())
}

// Fund credits addr from the external on-ramp account.
func (e *Engine) Fund(ctx context.Context, addr address.Address, amount int64, ref string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if addr.IsZero() || addr == address.External {
		return 0, fmt.Errorf("%w: cannot fund %s", ErrInvalidDestination, addr)
	}
	var balance int64
	err := e.run(ctx, func(tx repository.Tx, o *op) error {
		if err := e.Ledger.Fund(ctx, tx, addr, amount, ref, o.now); err != nil {
			return err
		}
		b, err := e.Ledger.BalanceOf(ctx, tx, addr)
		if err != nil {
			return err
		}
		balance = b
		o.emit(notify.EventLedgerFunded, addr.String(), map[string]any{
			"address": addr.String(),
			"amount":  amount,
			"balance": b,
			"ref":     ref,
		})
		return nil
	})
	return balance, err
}
