// Package leaderboard keeps per-player win and winnings tallies fed by match
// settlement.
package leaderboard

import (
	"context"
	"errors"
	"strings"

	"wagerescrow/internal/address"
)

type By string

const (
	ByWinnings By = "winnings"
	ByWins     By = "wins"
)

var ErrUnknownOrder = errors.New("unknown leaderboard order")

func ParseBy(s string) (By, error) {
	switch By(strings.ToLower(strings.TrimSpace(s))) {
	case "", ByWinnings:
		return ByWinnings, nil
	case ByWins:
		return ByWins, nil
	default:
		return "", ErrUnknownOrder
	}
}

type Entry struct {
	Rank    int    `json:"rank"`
	Address string `json:"address"`
	Score   int64  `json:"score"`
}

type PlayerStats struct {
	Address       string `json:"address"`
	Wins          int64  `json:"wins"`
	Losses        int64  `json:"losses"`
	MatchesPlayed int64  `json:"matches_played"`
	Winnings      int64  `json:"winnings"`
}

type Board interface {
	Record(ctx context.Context, winner, loser address.Address, winnings int64) error
	Top(ctx context.Context, by By, limit int) ([]Entry, error)
	Player(ctx context.Context, addr address.Address) (PlayerStats, error)
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 10
	}
	if limit > 100 {
		return 100
	}
	return limit
}
