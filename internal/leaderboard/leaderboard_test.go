package leaderboard_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/cozyartz/michiganspots/internal/leaderboard"
	"github.com/cozyartz/michiganspots/internal/spots"
)

var base = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func newBoard(t *testing.T) *leaderboard.Board {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return leaderboard.New(rdb, "test")
}

func update(user string, joinedDay int, global int64) leaderboard.Update {
	return leaderboard.Update{
		UserID:    user,
		JoinedAt:  base.AddDate(0, 0, joinedDay),
		UpdatedAt: base.AddDate(0, 1, 0),
		Scores:    map[leaderboard.Scope]int64{leaderboard.Global: global},
	}
}

func ids(entries []spots.LeaderboardEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.UserID
	}
	return out
}

func TestTopOrdering(t *testing.T) {
	b := newBoard(t)
	ctx := context.Background()

	for _, u := range []leaderboard.Update{
		update("carol", 3, 25),
		update("alice", 1, 50),
		update("bob", 2, 25),
		update("dave", 0, 10),
	} {
		if err := b.Apply(ctx, u); err != nil {
			t.Fatalf("apply %s: %v", u.UserID, err)
		}
	}

	top, err := b.Top(ctx, leaderboard.Global, 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}

	want := []string{"alice", "bob", "carol", "dave"}
	got := ids(top)
	if len(got) != len(want) {
		t.Fatalf("top = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("top = %v, want %v", got, want)
		}
		if top[i].Rank != i+1 {
			t.Errorf("%s rank = %d, want %d", top[i].UserID, top[i].Rank, i+1)
		}
	}
	if top[0].Score != 50 || top[1].Score != 25 {
		t.Errorf("scores = %d, %d; want 50, 25", top[0].Score, top[1].Score)
	}
	if !top[0].UpdatedAt.Equal(base.AddDate(0, 1, 0)) {
		t.Errorf("updatedAt = %v", top[0].UpdatedAt)
	}

	limited, err := b.Top(ctx, leaderboard.Global, 2)
	if err != nil {
		t.Fatalf("top 2: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("len(top 2) = %d", len(limited))
	}
}

func TestTieBreakIsStable(t *testing.T) {
	b := newBoard(t)
	ctx := context.Background()

	// Same score; zed joined first so zed must outrank amy despite the name.
	b.Apply(ctx, update("amy", 5, 40))
	b.Apply(ctx, update("zed", 1, 40))

	for range 20 {
		top, err := b.Top(ctx, leaderboard.Global, 2)
		if err != nil {
			t.Fatalf("top: %v", err)
		}
		if got := ids(top); got[0] != "zed" || got[1] != "amy" {
			t.Fatalf("order = %v, want [zed amy]", got)
		}
	}

	e, ok, err := b.RankOf(ctx, leaderboard.Global, "amy")
	if err != nil || !ok {
		t.Fatalf("rankOf: ok=%v err=%v", ok, err)
	}
	if e.Rank != 2 || e.Score != 40 {
		t.Errorf("amy = %+v, want rank 2 score 40", e)
	}
}

func TestApplyRepositionsUser(t *testing.T) {
	b := newBoard(t)
	ctx := context.Background()

	b.Apply(ctx, update("alice", 1, 50))
	b.Apply(ctx, update("bob", 2, 10))
	b.Apply(ctx, update("bob", 2, 60))

	top, err := b.Top(ctx, leaderboard.Global, 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if got := ids(top); len(got) != 2 || got[0] != "bob" {
		t.Fatalf("top = %v, want bob first and no duplicate entry", got)
	}
}

func TestApplyNeverLowersScore(t *testing.T) {
	b := newBoard(t)
	ctx := context.Background()

	b.Apply(ctx, update("alice", 1, 60))
	b.Apply(ctx, update("alice", 1, 35)) // stale writer

	e, ok, err := b.RankOf(ctx, leaderboard.Global, "alice")
	if err != nil || !ok {
		t.Fatalf("rankOf: ok=%v err=%v", ok, err)
	}
	if e.Score != 60 {
		t.Errorf("score = %d, want 60", e.Score)
	}
}

func TestRankOfUnknownUser(t *testing.T) {
	b := newBoard(t)
	ctx := context.Background()

	_, ok, err := b.RankOf(ctx, leaderboard.Global, "ghost")
	if err != nil {
		t.Fatalf("rankOf: %v", err)
	}
	if ok {
		t.Error("ghost should not be ranked")
	}

	// Ranked globally but never in this category.
	b.Apply(ctx, update("alice", 1, 10))
	_, ok, err = b.RankOf(ctx, leaderboard.Category("museum"), "alice")
	if err != nil || ok {
		t.Errorf("category rank: ok=%v err=%v, want not ranked", ok, err)
	}
}

func TestCategoryScopes(t *testing.T) {
	b := newBoard(t)
	ctx := context.Background()

	coffee := leaderboard.Category("coffee")
	b.Apply(ctx, leaderboard.Update{
		UserID: "alice", JoinedAt: base, UpdatedAt: base,
		Scores: map[leaderboard.Scope]int64{leaderboard.Global: 60, coffee: 10},
	})
	b.Apply(ctx, leaderboard.Update{
		UserID: "bob", JoinedAt: base.Add(time.Hour), UpdatedAt: base,
		Scores: map[leaderboard.Scope]int64{leaderboard.Global: 20, coffee: 20},
	})

	top, err := b.Top(ctx, coffee, 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if got := ids(top); len(got) != 2 || got[0] != "bob" {
		t.Errorf("coffee top = %v, want bob first", got)
	}

	n, err := b.Count(ctx, leaderboard.Global)
	if err != nil || n != 2 {
		t.Errorf("count = %d, %v; want 2", n, err)
	}
}

func TestRebuildReplacesState(t *testing.T) {
	b := newBoard(t)
	ctx := context.Background()

	b.Apply(ctx, update("alice", 1, 500))
	b.Apply(ctx, leaderboard.Update{
		UserID: "bob", JoinedAt: base, UpdatedAt: base,
		Scores: map[leaderboard.Scope]int64{leaderboard.Category("bar"): 99},
	})

	err := b.Rebuild(ctx, []leaderboard.Update{update("alice", 1, 50), update("carol", 2, 70)})
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	top, err := b.Top(ctx, leaderboard.Global, 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if got := ids(top); len(got) != 2 || got[0] != "carol" || top[1].Score != 50 {
		t.Errorf("after rebuild = %+v", top)
	}
	if n, _ := b.Count(ctx, leaderboard.Category("bar")); n != 0 {
		t.Errorf("stale category scope survived rebuild: %d entries", n)
	}
}

func TestRebuildKeepsBestOfRepeatedUser(t *testing.T) {
	b := newBoard(t)
	ctx := context.Background()

	err := b.Rebuild(ctx, []leaderboard.Update{
		update("alice", 1, 80),
		update("bob", 2, 60),
		update("alice", 1, 30),
	})
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	top, err := b.Top(ctx, leaderboard.Global, 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 2 || top[0].UserID != "alice" || top[0].Score != 80 {
		t.Errorf("after rebuild = %+v", top)
	}
}

func TestConcurrentUpdatesConverge(t *testing.T) {
	b := newBoard(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for score := int64(1); score <= 40; score++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := b.Apply(ctx, update("alice", 1, score)); err != nil {
				t.Errorf("apply: %v", err)
			}
		}()
	}
	wg.Wait()

	e, ok, err := b.RankOf(ctx, leaderboard.Global, "alice")
	if err != nil || !ok || e.Score != 40 {
		t.Errorf("alice = %+v ok=%v err=%v, want score 40", e, ok, err)
	}
}

func TestParseScope(t *testing.T) {
	tests := []struct {
		in      string
		want    leaderboard.Scope
		wantErr bool
	}{
		{in: "", want: leaderboard.Global},
		{in: "global", want: leaderboard.Global},
		{in: "category:coffee", want: leaderboard.Category("coffee")},
		{in: "category:", wantErr: true},
		{in: "category:Bad Name", wantErr: true},
		{in: "weekly", wantErr: true},
	}
	for _, tt := range tests {
		got, err := leaderboard.ParseScope(tt.in)
		if tt.wantErr {
			if !errors.Is(err, leaderboard.ErrInvalidScope) {
				t.Errorf("ParseScope(%q) err = %v, want ErrInvalidScope", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseScope(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}
