package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"wagerescrow/internal/address"
	"wagerescrow/internal/engine"
	"wagerescrow/internal/models"
	"wagerescrow/internal/repository"
)

// MatchRefunder is the part of the engine the sweeper drives.
type MatchRefunder interface {
	RefundMatch(ctx context.Context, matchID address.Address) (*models.Match, error)
}

type SweepResult struct {
	Scanned  int `json:"scanned"`
	Refunded int `json:"refunded"`
	Skipped  int `json:"skipped"`
}

// RefundSweeper refunds matches whose expiry has passed without settlement.
// A match that a concurrent settlement finished first is skipped.
type RefundSweeper struct {
	Repo     repository.Repository
	Refunder MatchRefunder
	Logger   *zap.Logger
	Limit    int
	Now      func() time.Time
}

func (s *RefundSweeper) RunOnce(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	if s == nil || s.Repo == nil || s.Refunder == nil {
		return res, nil
	}
	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}
	expired, err := s.Repo.ListExpiredMatches(ctx, now, normalizeLimit(s.Limit, 200))
	if err != nil {
		return res, err
	}
	for _, m := range expired {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.Scanned++
		id, err := address.Parse(m.ID)
		if err != nil {
			res.Skipped++
			s.logWarn("sweep: bad match id", m.ID, err)
			continue
		}
		if _, err := s.Refunder.RefundMatch(ctx, id); err != nil {
			res.Skipped++
			if engine.Kind(err) != engine.KindState {
				s.logWarn("sweep: refund failed", m.ID, err)
			}
			continue
		}
		res.Refunded++
	}
	if res.Refunded > 0 && s.Logger != nil {
		s.Logger.Info("expired matches refunded", zap.Int("refunded", res.Refunded), zap.Int("skipped", res.Skipped))
	}
	return res, nil
}

func (s *RefundSweeper) logWarn(msg, matchID string, err error) {
	if s.Logger == nil {
		return
	}
	s.Logger.Warn(msg, zap.String("match_id", matchID), zap.Error(err))
}

func normalizeLimit(limit int, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}
