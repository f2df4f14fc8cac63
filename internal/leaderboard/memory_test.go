package leaderboard

import (
	"context"
	"testing"

	"wagerescrow/internal/address"
)

func TestMemoryBoard_RecordAndTop(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBoard()
	alice := address.Derive("alice")
	bob := address.Derive("bob")
	carol := address.Derive("carol")

	_ = b.Record(ctx, alice, bob, 187)
	_ = b.Record(ctx, alice, carol, 100)
	_ = b.Record(ctx, bob, carol, 500)

	top, err := b.Top(ctx, ByWinnings, 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("len=%d want=2", len(top))
	}
	if top[0].Address != bob.String() || top[0].Score != 500 || top[0].Rank != 1 {
		t.Fatalf("first=%+v", top[0])
	}

	wins, _ := b.Top(ctx, ByWins, 1)
	if len(wins) != 1 || wins[0].Address != alice.String() || wins[0].Score != 2 {
		t.Fatalf("wins=%+v", wins)
	}

	st, _ := b.Player(ctx, carol)
	if st.Losses != 2 || st.MatchesPlayed != 2 || st.Wins != 0 {
		t.Fatalf("carol=%+v", st)
	}
}

func TestParseBy(t *testing.T) {
	if by, err := ParseBy(""); err != nil || by != ByWinnings {
		t.Fatalf("default by=%s err=%v", by, err)
	}
	if _, err := ParseBy("losses"); err == nil {
		t.Fatalf("expected error")
	}
}
