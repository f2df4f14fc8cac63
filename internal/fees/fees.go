// Package fees splits a settled pot between the winner, the platform
// treasury and the referral pool.
package fees

import (
	"errors"
	"fmt"
)

const (
	BpsDenominator = int64(10_000)
	MaxPlatformBps = int64(1_000)
)

var ErrInvalidSchedule = errors.New("invalid fee schedule")

type Schedule struct {
	PlatformBps int64 `json:"platform_fee_bps"`
	TreasuryBps int64 `json:"treasury_fee_bps"`
	ReferralBps int64 `json:"referral_fee_bps"`
}

var Default = Schedule{PlatformBps: 650, TreasuryBps: 550, ReferralBps: 100}

func (s Schedule) Validate() error {
	if s.PlatformBps < 0 || s.TreasuryBps < 0 || s.ReferralBps < 0 {
		return fmt.Errorf("%w: negative basis points", ErrInvalidSchedule)
	}
	if s.PlatformBps > MaxPlatformBps {
		return fmt.Errorf("%w: platform fee %d bps exceeds cap %d", ErrInvalidSchedule, s.PlatformBps, MaxPlatformBps)
	}
	if s.TreasuryBps+s.ReferralBps != s.PlatformBps {
		return fmt.Errorf("%w: treasury %d + referral %d != platform %d", ErrInvalidSchedule, s.TreasuryBps, s.ReferralBps, s.PlatformBps)
	}
	return nil
}

type Split struct {
	TotalPot     int64 `json:"total_pot"`
	PlatformFee  int64 `json:"platform_fee"`
	TreasuryFee  int64 `json:"treasury_fee"`
	ReferralFee  int64 `json:"referral_fee"`
	WinnerAmount int64 `json:"winner_amount"`
	// Residual is the truncation remainder platformFee - treasuryFee - referralFee.
	// It is never paid out and stays with the escrow.
	Residual int64 `json:"residual"`
}

// Compute applies s to totalPot. Each fee is truncated independently from the
// full pot, so TreasuryFee+ReferralFee may fall short of PlatformFee.
func Compute(totalPot int64, s Schedule) Split {
	platform := totalPot * s.PlatformBps / BpsDenominator
	treasury := totalPot * s.TreasuryBps / BpsDenominator
	referral := totalPot * s.ReferralBps / BpsDenominator
	return Split{
		TotalPot:     totalPot,
		PlatformFee:  platform,
		TreasuryFee:  treasury,
		ReferralFee:  referral,
		WinnerAmount: totalPot - platform,
		Residual:     platform - treasury - referral,
	}
}

// Paid is the amount that leaves the escrow on settlement.
func (s Split) Paid() int64 {
	return s.WinnerAmount + s.TreasuryFee + s.ReferralFee
}
