package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"wagerescrow/internal/address"
	"wagerescrow/internal/fees"
	"wagerescrow/internal/governance"
	"wagerescrow/internal/models"
	"wagerescrow/internal/repository"
	"wagerescrow/internal/repository/memory"
)

func (h *harness) approvals(op governance.Operation, params []byte, signers ...int) []governance.Approval {
	h.t.Helper()
	digest, _, err := h.eng.GovernanceDigest(context.Background(), op, params)
	if err != nil {
		h.t.Fatalf("digest: %v", err)
	}
	out := make([]governance.Approval, 0, len(signers))
	for _, i := range signers {
		out = append(out, governance.Sign(h.admins[i], digest))
	}
	return out
}

func TestGovernance_MultisigGate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, rogue := newKey(t)

	digest, _, _ := h.eng.GovernanceDigest(ctx, governance.OpEmergencyPause, nil)
	cases := []struct {
		name      string
		approvals []governance.Approval
		want      error
	}{
		{name: "none", want: governance.ErrInsufficientAdminSignatures},
		{name: "one", approvals: h.approvals(governance.OpEmergencyPause, nil, 0), want: governance.ErrInsufficientAdminSignatures},
		{name: "same signer twice", approvals: h.approvals(governance.OpEmergencyPause, nil, 1, 1), want: governance.ErrInsufficientAdminSignatures},
		{name: "outsider", approvals: []governance.Approval{governance.Sign(h.admins[0], digest), governance.Sign(rogue, digest)}, want: governance.ErrUnauthorizedAdmin},
		{name: "wrong operation", approvals: h.approvals(governance.OpEmergencyUnpause, nil, 0, 1), want: governance.ErrUnauthorizedAdmin},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.eng.EmergencyPause(ctx, tc.approvals)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err=%v want=%v", err, tc.want)
			}
			if Kind(err) != KindAuthorization {
				t.Fatalf("kind=%s", Kind(err))
			}
		})
	}
	cfg, _ := h.eng.PlatformConfig(ctx)
	if cfg.IsPaused || cfg.Version != 1 {
		t.Fatalf("config mutated: paused=%v version=%d", cfg.IsPaused, cfg.Version)
	}

	approvals := h.approvals(governance.OpEmergencyPause, nil, 0, 2)
	cfg, err := h.eng.EmergencyPause(ctx, approvals)
	if err != nil {
		t.Fatalf("pause: %v", err)
	}
	if !cfg.IsPaused || cfg.Version != 2 {
		t.Fatalf("paused=%v version=%d", cfg.IsPaused, cfg.Version)
	}

	// Approvals are bound to the config version and cannot be replayed.
	if _, err := h.eng.EmergencyUnpause(ctx, approvals); !errors.Is(err, governance.ErrUnauthorizedAdmin) {
		t.Fatalf("replay err=%v", err)
	}
}

func TestGovernance_PauseIsEdgeTriggered(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	creator := h.player(2 * token)
	m := h.create(creator, token, DirectFunding{})

	if _, err := h.eng.EmergencyUnpause(ctx, h.approvals(governance.OpEmergencyUnpause, nil, 0, 1)); !errors.Is(err, ErrPlatformPaused) {
		t.Fatalf("unpause err=%v want=%v", err, ErrPlatformPaused)
	}
	if got := Kind(ErrPlatformPaused); got != KindPolicy {
		t.Fatalf("kind=%s want=%s", got, KindPolicy)
	}
	if _, err := h.eng.EmergencyPause(ctx, h.approvals(governance.OpEmergencyPause, nil, 0, 1)); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if _, err := h.eng.EmergencyPause(ctx, h.approvals(governance.OpEmergencyPause, nil, 1, 2)); !errors.Is(err, ErrPlatformPaused) {
		t.Fatalf("double pause err=%v want=%v", err, ErrPlatformPaused)
	}

	_, err := h.eng.CreateMatch(ctx, CreateMatchParams{
		Creator: creator, GameID: "chess", WagerAmount: token, ExpiryTime: h.now.Add(time.Hour), Funding: DirectFunding{},
	})
	if !errors.Is(err, ErrPlatformPaused) {
		t.Fatalf("create while paused err=%v", err)
	}
	joiner := h.player(token)
	if _, err := h.eng.JoinMatch(ctx, address.MustParse(m.ID), joiner, DirectFunding{}); !errors.Is(err, ErrPlatformPaused) {
		t.Fatalf("join while paused err=%v", err)
	}

	// Users can still move money in and out of their vaults.
	if _, err := h.eng.CreateSession(ctx, joiner); err != nil {
		t.Fatalf("create session while paused: %v", err)
	}
	if _, err := h.eng.Deposit(ctx, joiner, token); err != nil {
		t.Fatalf("deposit while paused: %v", err)
	}
	if _, err := h.eng.Withdraw(ctx, joiner, token); err != nil {
		t.Fatalf("withdraw while paused: %v", err)
	}

	cfg, err := h.eng.EmergencyUnpause(ctx, h.approvals(governance.OpEmergencyUnpause, nil, 2, 0))
	if err != nil {
		t.Fatalf("unpause: %v", err)
	}
	if cfg.IsPaused {
		t.Fatalf("still paused")
	}
	actions, _ := h.store.ListAdminActions(ctx, repository.ListAdminActionsParams{})
	if len(actions) != 2 {
		t.Fatalf("admin actions=%d want=2", len(actions))
	}
	level := models.AlertCritical
	alerts, _ := h.store.ListSystemAlerts(ctx, repository.ListSystemAlertsParams{Level: &level})
	if len(alerts) != 1 {
		t.Fatalf("critical alerts=%d want=1", len(alerts))
	}
}

func TestGovernance_UpdateFees(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	bad := []fees.Schedule{
		{PlatformBps: 1100, TreasuryBps: 1000, ReferralBps: 100},
		{PlatformBps: 650, TreasuryBps: 500, ReferralBps: 100},
	}
	for _, s := range bad {
		params := governance.FeesParams(s.PlatformBps, s.TreasuryBps, s.ReferralBps)
		_, err := h.eng.UpdateFees(ctx, s, h.approvals(governance.OpUpdateFees, params, 0, 1))
		if !errors.Is(err, ErrInvalidFeeSchedule) {
			t.Fatalf("schedule %+v err=%v", s, err)
		}
	}
	cfg, _ := h.eng.PlatformConfig(ctx)
	if scheduleOf(cfg) != fees.Default || cfg.Version != 1 {
		t.Fatalf("config changed: %+v", cfg)
	}

	creator, joiner := h.player(token), h.player(token)
	m := h.join(h.create(creator, token, DirectFunding{}), joiner)

	next := fees.Schedule{PlatformBps: 1000, TreasuryBps: 800, ReferralBps: 200}
	params := governance.FeesParams(next.PlatformBps, next.TreasuryBps, next.ReferralBps)
	// Approvals over different parameters do not authorize this change.
	other := governance.FeesParams(1000, 900, 100)
	if _, err := h.eng.UpdateFees(ctx, next, h.approvals(governance.OpUpdateFees, other, 0, 1)); !errors.Is(err, governance.ErrUnauthorizedAdmin) {
		t.Fatalf("mismatched params err=%v", err)
	}
	if _, err := h.eng.UpdateFees(ctx, next, h.approvals(governance.OpUpdateFees, params, 0, 1)); err != nil {
		t.Fatalf("update fees: %v", err)
	}

	// The in-progress match settles under the schedule in force now.
	m, err := h.eng.SubmitResult(ctx, h.attest(m, joiner))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if m.PlatformFee != 200_000_000 || m.TreasuryFee != 160_000_000 || m.ReferralFee != 40_000_000 {
		t.Fatalf("fees=%d/%d/%d", m.PlatformFee, m.TreasuryFee, m.ReferralFee)
	}
}

func TestGovernance_RecoverInactiveVault(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := h.player(5 * token)
	if _, err := h.eng.CreateSession(ctx, owner); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := h.eng.Deposit(ctx, owner, 5*token); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	p := RecoverParams{Owner: owner, Destination: h.treasury, ThresholdHours: 48}
	params := governance.RecoverParams(p.Owner, p.Destination, p.ThresholdHours)

	h.now = h.now.Add(47 * time.Hour)
	if _, err := h.eng.RecoverInactiveVault(ctx, p, h.approvals(governance.OpRecoverVault, params, 0, 1)); !errors.Is(err, ErrVaultNotInactive) {
		t.Fatalf("active vault err=%v want=%v", err, ErrVaultNotInactive)
	}

	h.now = h.now.Add(53 * time.Hour)
	low := RecoverParams{Owner: owner, Destination: h.treasury, ThresholdHours: 10}
	lowParams := governance.RecoverParams(low.Owner, low.Destination, low.ThresholdHours)
	if _, err := h.eng.RecoverInactiveVault(ctx, low, h.approvals(governance.OpRecoverVault, lowParams, 0, 1)); !errors.Is(err, ErrThresholdTooLow) {
		t.Fatalf("low threshold err=%v want=%v", err, ErrThresholdTooLow)
	}

	stranger := RecoverParams{Owner: owner, Destination: address.Derive("attacker"), ThresholdHours: 48}
	strangerParams := governance.RecoverParams(stranger.Owner, stranger.Destination, stranger.ThresholdHours)
	if _, err := h.eng.RecoverInactiveVault(ctx, stranger, h.approvals(governance.OpRecoverVault, strangerParams, 0, 1)); !errors.Is(err, ErrInvalidDestination) {
		t.Fatalf("stranger destination err=%v want=%v", err, ErrInvalidDestination)
	}

	rec, err := h.eng.RecoverInactiveVault(ctx, p, h.approvals(governance.OpRecoverVault, params, 1, 2))
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if rec.Amount != 5*token || rec.InactivityHours != 100 {
		t.Fatalf("recovery=%+v", rec)
	}
	if rec.Vault.Balance != 0 || rec.Vault.TotalWithdrawn != 5*token {
		t.Fatalf("vault=%+v", rec.Vault)
	}
	if got := h.balance(h.treasury); got != 5*token {
		t.Fatalf("treasury=%d want=%d", got, 5*token)
	}
	if got := h.balance(address.SessionVault(owner)); got != 0 {
		t.Fatalf("custody=%d want=0", got)
	}

	// The vault was just touched, and it is empty.
	h.now = h.now.Add(200 * time.Hour)
	if _, err := h.eng.RecoverInactiveVault(ctx, p, h.approvals(governance.OpRecoverVault, params, 0, 1)); !errors.Is(err, ErrEmptyVault) {
		t.Fatalf("empty vault err=%v want=%v", err, ErrEmptyVault)
	}
}

func TestGovernance_InitializeOnce(t *testing.T) {
	h := newHarness(t)
	a, _ := newKey(t)
	b, _ := newKey(t)
	c, _ := newKey(t)
	_, err := h.eng.Initialize(context.Background(), InitializeParams{
		Treasury: h.treasury, ReferralPool: h.referral, Verifier: a,
		Admins: []address.Address{a, b, c}, Fees: fees.Default,
	})
	if !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("err=%v want=%v", err, ErrAlreadyInitialized)
	}

	_, err = (&Engine{Repo: memory.New()}).Initialize(context.Background(), InitializeParams{
		Treasury: h.treasury, ReferralPool: h.referral, Verifier: a,
		Admins: []address.Address{a, a, c}, Fees: fees.Default,
	})
	if !errors.Is(err, governance.ErrInvalidSignerSet) {
		t.Fatalf("duplicate admins err=%v", err)
	}
}
