package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wagerescrow/internal/address"
	"wagerescrow/internal/amount"
	"wagerescrow/internal/fees"
	"wagerescrow/internal/governance"
	"wagerescrow/internal/ledger"
	"wagerescrow/internal/models"
	"wagerescrow/internal/notify"
	"wagerescrow/internal/repository"
)

// MinRecoveryThresholdHours is the shortest inactivity window after which a
// vault may be recovered.
const MinRecoveryThresholdHours = 48

type InitializeParams struct {
	Treasury     address.Address
	ReferralPool address.Address
	Verifier     address.Address
	Admins       []address.Address
	Fees         fees.Schedule
}

type RecoverParams struct {
	Owner          address.Address
	Destination    address.Address
	ThresholdHours int64
}

type Recovery struct {
	Vault           *models.SessionVault `json:"vault"`
	Destination     string               `json:"destination"`
	Amount          int64                `json:"amount"`
	InactivityHours int64                `json:"inactivity_hours"`
}

// Initialize creates the platform configuration. It succeeds once.
func (e *Engine) Initialize(ctx context.Context, p InitializeParams) (*models.PlatformConfig, error) {
	if err := governance.ValidateSignerSet(p.Admins); err != nil {
		return nil, err
	}
	if err := p.Fees.Validate(); err != nil {
		return nil, err
	}
	for _, a := range []address.Address{p.Treasury, p.ReferralPool, p.Verifier} {
		if a.IsZero() {
			return nil, fmt.Errorf("%w: zero platform address", ErrInvalidDestination)
		}
	}

	var out *models.PlatformConfig
	err := e.run(ctx, func(tx repository.Tx, o *op) error {
		existing, err := tx.GetPlatformConfigForUpdate(ctx)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrAlreadyInitialized
		}
		cfg := &models.PlatformConfig{
			Key:            models.PlatformConfigKey,
			Treasury:       p.Treasury.String(),
			ReferralPool:   p.ReferralPool.String(),
			Verifier:       p.Verifier.String(),
			Admin1:         p.Admins[0].String(),
			Admin2:         p.Admins[1].String(),
			Admin3:         p.Admins[2].String(),
			PlatformFeeBps: p.Fees.PlatformBps,
			TreasuryFeeBps: p.Fees.TreasuryBps,
			ReferralFeeBps: p.Fees.ReferralBps,
			Version:        1,
			CreatedAt:      o.now,
			UpdatedAt:      o.now,
		}
		if err := tx.SavePlatformConfig(ctx, cfg); err != nil {
			return err
		}
		o.emit(notify.EventPlatformInitialized, cfg.Key, map[string]any{
			"treasury":         cfg.Treasury,
			"referral_pool":    cfg.ReferralPool,
			"verifier":         cfg.Verifier,
			"platform_fee_bps": cfg.PlatformFeeBps,
			"treasury_fee_bps": cfg.TreasuryFeeBps,
			"referral_fee_bps": cfg.ReferralFeeBps,
		})
		out = cfg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GovernanceDigest returns the digest admins must sign for op against the
// current configuration version.
func (e *Engine) GovernanceDigest(ctx context.Context, operation governance.Operation, params []byte) ([]byte, int64, error) {
	cfg, err := e.PlatformConfig(ctx)
	if err != nil {
		return nil, 0, err
	}
	return governance.Digest(operation, cfg.Version, params), cfg.Version, nil
}

func (e *Engine) EmergencyPause(ctx context.Context, approvals []governance.Approval) (*models.PlatformConfig, error) {
	return e.setPaused(ctx, true, approvals)
}

func (e *Engine) EmergencyUnpause(ctx context.Context, approvals []governance.Approval) (*models.PlatformConfig, error) {
	return e.setPaused(ctx, false, approvals)
}

func (e *Engine) setPaused(ctx context.Context, paused bool, approvals []governance.Approval) (*models.PlatformConfig, error) {
	operation, event, level := governance.OpEmergencyPause, notify.EventEmergencyPauseActivated, models.AlertCritical
	if !paused {
		operation, event, level = governance.OpEmergencyUnpause, notify.EventEmergencyPauseDeactivated, models.AlertWarning
	}

	var out *models.PlatformConfig
	err := e.run(ctx, func(tx repository.Tx, o *op) error {
		cfg, err := e.loadConfig(ctx, tx)
		if err != nil {
			return err
		}
		signers, err := e.authorize(cfg, operation, nil, approvals)
		if err != nil {
			return err
		}
		// Pause and unpause are edge-triggered: a no-op request is rejected.
		if cfg.IsPaused == paused {
			return ErrPlatformPaused
		}
		cfg.IsPaused = paused
		cfg.Version++
		cfg.UpdatedAt = o.now
		if err := tx.SavePlatformConfig(ctx, cfg); err != nil {
			return err
		}

		details := map[string]any{"is_paused": paused}
		msg := "platform paused by admin multisig"
		if !paused {
			msg = "platform unpaused by admin multisig"
		}
		if err := e.audit(ctx, tx, o, string(operation), signers, details, cfg.Version, level, msg); err != nil {
			return err
		}
		o.emit(event, cfg.Key, map[string]any{
			"admin1":    signers[0].String(),
			"admin2":    signers[1].String(),
			"timestamp": o.now.Unix(),
		})
		out = cfg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateFees replaces the fee schedule. Matches settled afterwards use it,
// including ones already in progress.
func (e *Engine) UpdateFees(ctx context.Context, s fees.Schedule, approvals []governance.Approval) (*models.PlatformConfig, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	var out *models.PlatformConfig
	err := e.run(ctx, func(tx repository.Tx, o *op) error {
		cfg, err := e.loadConfig(ctx, tx)
		if err != nil {
			return err
		}
		signers, err := e.authorize(cfg, governance.OpUpdateFees, governance.FeesParams(s.PlatformBps, s.TreasuryBps, s.ReferralBps), approvals)
		if err != nil {
			return err
		}
		old := scheduleOf(cfg)
		cfg.PlatformFeeBps = s.PlatformBps
		cfg.TreasuryFeeBps = s.TreasuryBps
		cfg.ReferralFeeBps = s.ReferralBps
		cfg.Version++
		cfg.UpdatedAt = o.now
		if err := tx.SavePlatformConfig(ctx, cfg); err != nil {
			return err
		}

		payload := map[string]any{
			"old_platform_fee_bps": old.PlatformBps,
			"old_treasury_fee_bps": old.TreasuryBps,
			"old_referral_fee_bps": old.ReferralBps,
			"new_platform_fee_bps": s.PlatformBps,
			"new_treasury_fee_bps": s.TreasuryBps,
			"new_referral_fee_bps": s.ReferralBps,
		}
		msg := fmt.Sprintf("fee schedule changed from %d/%d/%d to %d/%d/%d bps",
			old.PlatformBps, old.TreasuryBps, old.ReferralBps, s.PlatformBps, s.TreasuryBps, s.ReferralBps)
		if err := e.audit(ctx, tx, o, string(governance.OpUpdateFees), signers, payload, cfg.Version, models.AlertWarning, msg); err != nil {
			return err
		}
		o.emit(notify.EventFeesUpdated, cfg.Key, payload)
		out = cfg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RecoverInactiveVault moves the whole balance of a vault idle for at least
// ThresholdHours to its owner or the platform treasury.
func (e *Engine) RecoverInactiveVault(ctx context.Context, p RecoverParams, approvals []governance.Approval) (*Recovery, error) {
	if p.ThresholdHours < MinRecoveryThresholdHours {
		return nil, ErrThresholdTooLow
	}
	var out *Recovery
	err := e.run(ctx, func(tx repository.Tx, o *op) error {
		cfg, err := e.loadConfig(ctx, tx)
		if err != nil {
			return err
		}
		params := governance.RecoverParams(p.Owner, p.Destination, p.ThresholdHours)
		signers, err := e.authorize(cfg, governance.OpRecoverVault, params, approvals)
		if err != nil {
			return err
		}
		if p.Destination != p.Owner && p.Destination.String() != cfg.Treasury {
			return ErrInvalidDestination
		}
		v, err := lockVault(ctx, tx, p.Owner)
		if err != nil {
			return err
		}
		idle := o.now.Sub(v.LastActivity)
		if idle < time.Duration(p.ThresholdHours)*time.Hour {
			return ErrVaultNotInactive
		}
		if v.Balance <= 0 {
			return ErrEmptyVault
		}
		custody, err := address.Parse(v.Account)
		if err != nil {
			return err
		}
		moved := v.Balance
		if err := e.Ledger.Transfer(ctx, tx, custody, p.Destination, moved, ledger.ReasonRecovery, v.Owner, o.now); err != nil {
			return err
		}
		v.Balance = 0
		v.TotalWithdrawn += moved
		v.LastActivity = o.now
		if err := tx.SaveSessionVault(ctx, v); err != nil {
			return err
		}
		cfg.Version++
		cfg.UpdatedAt = o.now
		if err := tx.SavePlatformConfig(ctx, cfg); err != nil {
			return err
		}

		hours := int64(idle / time.Hour)
		payload := map[string]any{
			"owner":            v.Owner,
			"destination":      p.Destination.String(),
			"amount":           moved,
			"inactivity_hours": hours,
			"admin1":           signers[0].String(),
			"admin2":           signers[1].String(),
		}
		msg := fmt.Sprintf("recovered %s from inactive vault %s to %s", amount.FormatToken(moved), v.Owner, p.Destination)
		if err := e.audit(ctx, tx, o, string(governance.OpRecoverVault), signers, payload, cfg.Version, models.AlertCritical, msg); err != nil {
			return err
		}
		o.emit(notify.EventVaultRecovered, v.Owner, payload)
		out = &Recovery{Vault: v, Destination: p.Destination.String(), Amount: moved, InactivityHours: hours}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) authorize(cfg *models.PlatformConfig, operation governance.Operation, params []byte, approvals []governance.Approval) ([]address.Address, error) {
	signers := make([]address.Address, 0, 3)
	for _, s := range cfg.AdminSigners() {
		a, err := address.Parse(s)
		if err != nil {
			return nil, err
		}
		signers = append(signers, a)
	}
	policy, err := governance.NewPolicy(signers)
	if err != nil {
		return nil, err
	}
	approved, err := policy.Authorize(governance.Digest(operation, cfg.Version, params), approvals)
	if err != nil {
		e.logger().Warn("governance authorization failed",
			zap.String("operation", string(operation)),
			zap.Int("approvals", len(approvals)),
			zap.Int64("config_version", cfg.Version),
			zap.Error(err),
		)
		return nil, err
	}
	return approved, nil
}

func (e *Engine) audit(ctx context.Context, tx repository.Tx, o *op, action string, signers []address.Address, details map[string]any, version int64, level, message string) error {
	names := make([]string, 0, len(signers))
	for _, s := range signers {
		names = append(names, s.String())
	}
	signersJSON, err := json.Marshal(names)
	if err != nil {
		return err
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return err
	}
	if err := tx.InsertAdminAction(ctx, &models.AdminAction{
		ID:            uuid.NewString(),
		Action:        action,
		Signers:       signersJSON,
		Details:       detailsJSON,
		ConfigVersion: version,
		CreatedAt:     o.now,
	}); err != nil {
		return err
	}
	return tx.InsertSystemAlert(ctx, &models.SystemAlert{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: o.now,
	})
}

// AcknowledgeAlert marks an alert as seen by an operator.
func (e *Engine) AcknowledgeAlert(ctx context.Context, id string, by address.Address) (*models.SystemAlert, error) {
	a, err := e.Repo.AcknowledgeSystemAlert(ctx, id, by.String(), e.now())
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrAlertNotFound
	}
	return a, nil
}
