package leaderboard

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"

	"wagerescrow/internal/address"
)

// RedisBoard stores rankings in two sorted sets and per-player counters in a
// hash, all under Prefix.
type RedisBoard struct {
	Client *redis.Client
	Prefix string
}

func NewRedisBoard(client *redis.Client, prefix string) *RedisBoard {
	return &RedisBoard{Client: client, Prefix: prefix}
}

func (b *RedisBoard) zkey(by By) string {
	return b.Prefix + "lb:" + string(by)
}

func (b *RedisBoard) playerKey(a address.Address) string {
	return b.Prefix + "lb:player:" + a.String()
}

func (b *RedisBoard) Record(ctx context.Context, winner, loser address.Address, winnings int64) error {
	w, l := winner.String(), loser.String()
	_, err := b.Client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZIncrBy(ctx, b.zkey(ByWinnings), float64(winnings), w)
		p.ZIncrBy(ctx, b.zkey(ByWins), 1, w)
		p.HIncrBy(ctx, b.playerKey(winner), "wins", 1)
		p.HIncrBy(ctx, b.playerKey(winner), "matches_played", 1)
		p.HIncrBy(ctx, b.playerKey(winner), "winnings", winnings)
		p.HIncrBy(ctx, b.playerKey(loser), "losses", 1)
		p.HIncrBy(ctx, b.playerKey(loser), "matches_played", 1)
		p.ZIncrBy(ctx, b.zkey(ByWins), 0, l)
		return nil
	})
	return err
}

func (b *RedisBoard) Top(ctx context.Context, by By, limit int) ([]Entry, error) {
	limit = normalizeLimit(limit)
	// Fetch a little extra so zero-score members can be dropped.
	zs, err := b.Client.ZRevRangeWithScores(ctx, b.zkey(by), 0, int64(limit*2-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, limit)
	for _, z := range zs {
		if z.Score <= 0 {
			continue
		}
		member, _ := z.Member.(string)
		out = append(out, Entry{Rank: len(out) + 1, Address: member, Score: int64(z.Score)})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (b *RedisBoard) Player(ctx context.Context, addr address.Address) (PlayerStats, error) {
	vals, err := b.Client.HGetAll(ctx, b.playerKey(addr)).Result()
	if err != nil {
		return PlayerStats{}, err
	}
	stats := PlayerStats{Address: addr.String()}
	stats.Wins = parseInt(vals["wins"])
	stats.Losses = parseInt(vals["losses"])
	stats.MatchesPlayed = parseInt(vals["matches_played"])
	stats.Winnings = parseInt(vals["winnings"])
	return stats, nil
}

func parseInt(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
