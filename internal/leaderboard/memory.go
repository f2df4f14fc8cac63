package leaderboard

import (
	"context"
	"sort"
	"sync"

	"wagerescrow/internal/address"
)

type MemoryBoard struct {
	mu      sync.RWMutex
	players map[address.Address]*PlayerStats
}

func NewMemoryBoard() *MemoryBoard {
	return &MemoryBoard{players: map[address.Address]*PlayerStats{}}
}

func (b *MemoryBoard) get(a address.Address) *PlayerStats {
	p, ok := b.players[a]
	if !ok {
		p = &PlayerStats{Address: a.String()}
		b.players[a] = p
	}
	return p
}

func (b *MemoryBoard) Record(_ context.Context, winner, loser address.Address, winnings int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	w := b.get(winner)
	w.Wins++
	w.MatchesPlayed++
	w.Winnings += winnings
	l := b.get(loser)
	l.Losses++
	l.MatchesPlayed++
	return nil
}

func (b *MemoryBoard) Top(_ context.Context, by By, limit int) ([]Entry, error) {
	limit = normalizeLimit(limit)
	b.mu.RLock()
	rows := make([]Entry, 0, len(b.players))
	for _, p := range b.players {
		score := p.Winnings
		if by == ByWins {
			score = p.Wins
		}
		if score <= 0 {
			continue
		}
		rows = append(rows, Entry{Address: p.Address, Score: score})
	}
	b.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].Address < rows[j].Address
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows, nil
}

func (b *MemoryBoard) Player(_ context.Context, addr address.Address) (PlayerStats, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if p, ok := b.players[addr]; ok {
		return *p, nil
	}
	return PlayerStats{Address: addr.String()}, nil
}
