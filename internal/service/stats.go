package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"wagerescrow/internal/amount"
	"wagerescrow/internal/cache"
	"wagerescrow/internal/fees"
	"wagerescrow/internal/notify"
	"wagerescrow/internal/repository"
)

const statsCacheKey = "stats:platform"

// PlatformStats is the dashboard view. Token fields are the lamport figures
// rendered as decimal strings.
type PlatformStats struct {
	TotalMatches          int64         `json:"total_matches"`
	TotalVolume           int64         `json:"total_volume"`
	TotalVolumeTokens     string        `json:"total_volume_tokens"`
	PlatformRevenue       int64         `json:"platform_revenue"`
	PlatformRevenueTokens string        `json:"platform_revenue_tokens"`
	ResidualHeld          int64         `json:"residual_held"`
	OpenMatches           int64         `json:"open_matches"`
	CompletedMatches      int64         `json:"completed_matches"`
	RefundedMatches       int64         `json:"refunded_matches"`
	ActiveVaults          int64         `json:"active_vaults"`
	TotalVaultBalance     int64         `json:"total_vault_balance"`
	IsPaused              bool          `json:"is_paused"`
	Fees                  fees.Schedule `json:"fees"`
	ConfigVersion         int64         `json:"config_version"`
	GeneratedAt           time.Time     `json:"generated_at"`
}

type StatsService struct {
	Repo   repository.Repository
	Cache  cache.Store
	TTL    time.Duration
	Logger *zap.Logger
}

func (s *StatsService) Stats(ctx context.Context) (*PlatformStats, error) {
	if s.Cache != nil {
		var cached PlatformStats
		found, err := cache.GetJSON(ctx, s.Cache, statsCacheKey, &cached)
		if err != nil && s.Logger != nil {
			s.Logger.Warn("stats cache read failed", zap.Error(err))
		}
		if found {
			return &cached, nil
		}
	}

	agg, err := s.Repo.GetPlatformStats(ctx)
	if err != nil {
		return nil, err
	}
	out := &PlatformStats{
		PlatformRevenue:       agg.PlatformRevenue,
		PlatformRevenueTokens: amount.FormatToken(agg.PlatformRevenue),
		ResidualHeld:          agg.ResidualHeld,
		OpenMatches:           agg.OpenMatches,
		CompletedMatches:      agg.CompletedMatches,
		RefundedMatches:       agg.RefundedMatches,
		ActiveVaults:          agg.ActiveVaults,
		TotalVaultBalance:     agg.TotalVaultBalance,
		TotalVolumeTokens:     amount.FormatToken(0),
		GeneratedAt:           time.Now().UTC(),
	}
	cfg, err := s.Repo.GetPlatformConfig(ctx)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		out.TotalMatches = cfg.TotalMatches
		out.TotalVolume = cfg.TotalVolume
		out.TotalVolumeTokens = amount.FormatToken(cfg.TotalVolume)
		out.IsPaused = cfg.IsPaused
		out.ConfigVersion = cfg.Version
		out.Fees = fees.Schedule{PlatformBps: cfg.PlatformFeeBps, TreasuryBps: cfg.TreasuryFeeBps, ReferralBps: cfg.ReferralFeeBps}
	}

	if s.Cache != nil {
		ttl := s.TTL
		if ttl <= 0 {
			ttl = 15 * time.Second
		}
		if err := cache.SetJSON(ctx, s.Cache, statsCacheKey, out, ttl); err != nil && s.Logger != nil {
			s.Logger.Warn("stats cache write failed", zap.Error(err))
		}
	}
	return out, nil
}

// Invalidate drops the cached stats so the next read is fresh.
func (s *StatsService) Invalidate(ctx context.Context) {
	if s.Cache == nil {
		return
	}
	_ = s.Cache.Delete(ctx, statsCacheKey)
}

// Publish invalidates the cache whenever the engine commits a change, so the
// service can sit in the notifier fan-out.
func (s *StatsService) Publish(ctx context.Context, _ notify.Event) error {
	s.Invalidate(ctx)
	return nil
}
