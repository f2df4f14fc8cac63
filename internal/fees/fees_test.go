package fees

import (
	"errors"
	"testing"
)

func TestCompute_DefaultScheduleTwoTokenPot(t *testing.T) {
	got := Compute(2_000_000_000, Default)
	if got.PlatformFee != 130_000_000 {
		t.Fatalf("platform=%d want=130000000", got.PlatformFee)
	}
	if got.TreasuryFee != 110_000_000 {
		t.Fatalf("treasury=%d want=110000000", got.TreasuryFee)
	}
	if got.ReferralFee != 20_000_000 {
		t.Fatalf("referral=%d want=20000000", got.ReferralFee)
	}
	if got.WinnerAmount != 1_870_000_000 {
		t.Fatalf("winner=%d want=1870000000", got.WinnerAmount)
	}
	if got.Residual != 0 || got.Paid() != got.TotalPot {
		t.Fatalf("unexpected residual=%d paid=%d", got.Residual, got.Paid())
	}
}

func TestCompute_TruncationResidual(t *testing.T) {
	// 650/550/100 on a pot of 199: platform=12, treasury=10, referral=1.
	got := Compute(199, Default)
	if got.PlatformFee != 12 || got.TreasuryFee != 10 || got.ReferralFee != 1 {
		t.Fatalf("unexpected split %+v", got)
	}
	if got.WinnerAmount != 187 {
		t.Fatalf("winner=%d want=187", got.WinnerAmount)
	}
	if got.Residual != 1 {
		t.Fatalf("residual=%d want=1", got.Residual)
	}
	if got.Paid()+got.Residual != got.TotalPot {
		t.Fatalf("split does not conserve the pot: %+v", got)
	}
}

func TestCompute_ConservesAcrossPots(t *testing.T) {
	schedules := []Schedule{Default, {PlatformBps: 1000, TreasuryBps: 999, ReferralBps: 1}, {}}
	for _, s := range schedules {
		for pot := int64(0); pot < 5000; pot += 37 {
			got := Compute(pot, s)
			if got.Residual < 0 {
				t.Fatalf("negative residual pot=%d schedule=%+v", pot, s)
			}
			if got.Paid()+got.Residual != pot {
				t.Fatalf("pot=%d schedule=%+v split=%+v", pot, s, got)
			}
		}
	}
}

func TestSchedule_Validate(t *testing.T) {
	valid := []Schedule{Default, {}, {PlatformBps: 1000, TreasuryBps: 500, ReferralBps: 500}}
	for _, s := range valid {
		if err := s.Validate(); err != nil {
			t.Fatalf("schedule %+v: %v", s, err)
		}
	}
	invalid := []Schedule{
		{PlatformBps: 1001, TreasuryBps: 1001},
		{PlatformBps: 650, TreasuryBps: 550, ReferralBps: 99},
		{PlatformBps: 100, TreasuryBps: 200, ReferralBps: -100},
	}
	for _, s := range invalid {
		if err := s.Validate(); !errors.Is(err, ErrInvalidSchedule) {
			t.Fatalf("schedule %+v: expected ErrInvalidSchedule, got %v", s, err)
		}
	}
}
