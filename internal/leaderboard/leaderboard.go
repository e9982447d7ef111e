// Package leaderboard maintains ranked score projections in Redis sorted
// sets, one per scope.
//
// Sets store the negated score so that ascending order is score
// descending; Redis orders equal scores by member, and members are
// "<zero-padded join millis>:<user id>", which ranks the earliest account
// first and breaks any remaining tie by user id.
package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cozyartz/michiganspots/internal/spots"
)

type Scope string

const Global Scope = "global"

const categoryPrefix = "category:"

func Category(name string) Scope { return Scope(categoryPrefix + name) }

var categoryRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// ValidCategory reports whether name can be used as a category scope.
func ValidCategory(name string) bool { return categoryRe.MatchString(name) }

var ErrInvalidScope = errors.New("invalid leaderboard scope")

// ParseScope accepts "global" (or "") and "category:<name>".
func ParseScope(s string) (Scope, error) {
	if s == "" || s == string(Global) {
		return Global, nil
	}
	name, ok := strings.CutPrefix(s, categoryPrefix)
	if !ok || !ValidCategory(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidScope, s)
	}
	return Category(name), nil
}

var topScript = redis.NewScript(`
local rows = redis.call('ZRANGE', KEYS[1], 0, tonumber(ARGV[1]) - 1, 'WITHSCORES')
local out = {}
for i = 1, #rows, 2 do
	out[#out + 1] = rows[i]
	out[#out + 1] = rows[i + 1]
	out[#out + 1] = redis.call('HGET', KEYS[2], rows[i]) or ''
end
return out
`)

var rankScript = redis.NewScript(`
local m = redis.call('HGET', KEYS[1], ARGV[1])
if not m then
	return false
end
local rank = redis.call('ZRANK', KEYS[2], m)
if not rank then
	return false
end
return {rank, redis.call('ZSCORE', KEYS[2], m), redis.call('HGET', KEYS[3], m) or ''}
`)

// Board is the leaderboard maintainer. It keeps no in-process state; every
// read and write goes to Redis.
type Board struct {
	rdb    redis.UniversalClient
	prefix string
}

func New(rdb redis.UniversalClient, prefix string) *Board {
	if prefix == "" {
		prefix = "spots"
	}
	return &Board{rdb: rdb, prefix: prefix + ":lb"}
}

func (b *Board) scopeKey(s Scope) string { return b.prefix + ":scope:" + string(s) }
func (b *Board) membersKey() string     { return b.prefix + ":members" }
func (b *Board) updatedKey() string     { return b.prefix + ":updated" }
func (b *Board) scopesKey() string      { return b.prefix + ":scopes" }

// Update is the absolute state of one user's scores.
type Update struct {
	UserID    string
	JoinedAt  time.Time
	UpdatedAt time.Time
	Scores    map[Scope]int64
}

func member(userID string, joinedAt time.Time) string {
	return fmt.Sprintf("%015d:%s", max(joinedAt.UnixMilli(), 0), userID)
}

func userFromMember(m string) string {
	_, id, _ := strings.Cut(m, ":")
	return id
}

// Apply moves the user to their new position in every scope of u in a
// single MULTI/EXEC, so readers see either the old or the new ranking.
// Scores only ever move up (ZADD LT on negated values): a stale writer
// that lost a race cannot pull a user back down.
func (b *Board) Apply(ctx context.Context, u Update) error {
	m := member(u.UserID, u.JoinedAt)
	_, err := b.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		b.queue(ctx, p, m, u)
		return nil
	})
	if err != nil {
		return fmt.Errorf("applying leaderboard update for %s: %w", u.UserID, err)
	}
	return nil
}

func (b *Board) queue(ctx context.Context, p redis.Pipeliner, m string, u Update) {
	p.HSet(ctx, b.membersKey(), u.UserID, m)
	p.HSet(ctx, b.updatedKey(), m, u.UpdatedAt.UnixMilli())

	scopes := make([]Scope, 0, len(u.Scores))
	for s := range u.Scores {
		scopes = append(scopes, s)
	}
	slices.Sort(scopes)
	for _, s := range scopes {
		z := redis.Z{Score: -float64(u.Scores[s]), Member: m}
		p.SAdd(ctx, b.scopesKey(), string(s))
		p.ZAddLT(ctx, b.scopeKey(s), z)
	}
}

// Rebuild replaces every scope with the given state in one transaction.
// Writes after the DEL use the same ZADD LT as Apply, so a user listed
// twice keeps their best score.
func (b *Board) Rebuild(ctx context.Context, updates []Update) error {
	scopes, err := b.rdb.SMembers(ctx, b.scopesKey()).Result()
	if err != nil {
		return fmt.Errorf("listing scopes: %w", err)
	}

	_, err = b.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		keys := []string{b.membersKey(), b.updatedKey(), b.scopesKey()}
		for _, s := range scopes {
			keys = append(keys, b.scopeKey(Scope(s)))
		}
		p.Del(ctx, keys...)
		for _, u := range updates {
			b.queue(ctx, p, member(u.UserID, u.JoinedAt), u)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("rebuilding leaderboard: %w", err)
	}
	return nil
}

// Top returns the first n entries of scope, best first.
func (b *Board) Top(ctx context.Context, scope Scope, n int) ([]spots.LeaderboardEntry, error) {
	if n <= 0 {
		return []spots.LeaderboardEntry{}, nil
	}
	res, err := topScript.Run(ctx, b.rdb, []string{b.scopeKey(scope), b.updatedKey()}, n).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("reading top %d of %s: %w", n, scope, err)
	}

	entries := make([]spots.LeaderboardEntry, 0, len(res)/3)
	for i := 0; i+2 < len(res); i += 3 {
		e, err := entry(res[i], res[i+1], res[i+2])
		if err != nil {
			return nil, err
		}
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}
	return entries, nil
}

// RankOf returns userID's entry in scope; ok is false when the user is
// not ranked there.
func (b *Board) RankOf(ctx context.Context, scope Scope, userID string) (spots.LeaderboardEntry, bool, error) {
	res, err := rankScript.Run(ctx, b.rdb,
		[]string{b.membersKey(), b.scopeKey(scope), b.updatedKey()}, userID,
	).Slice()
	if errors.Is(err, redis.Nil) {
		return spots.LeaderboardEntry{}, false, nil
	}
	if err != nil {
		return spots.LeaderboardEntry{}, false, fmt.Errorf("ranking %s in %s: %w", userID, scope, err)
	}
	if len(res) != 3 {
		return spots.LeaderboardEntry{}, false, fmt.Errorf("ranking %s: unexpected reply %v", userID, res)
	}

	rank, ok := res[0].(int64)
	if !ok {
		return spots.LeaderboardEntry{}, false, fmt.Errorf("ranking %s: unexpected rank %T", userID, res[0])
	}
	score, _ := res[1].(string)
	updated, _ := res[2].(string)

	e, err := entry(":"+userID, score, updated)
	if err != nil {
		return spots.LeaderboardEntry{}, false, err
	}
	e.Rank = int(rank) + 1
	return e, true, nil
}

// Count returns the number of ranked users in scope.
func (b *Board) Count(ctx context.Context, scope Scope) (int64, error) {
	n, err := b.rdb.ZCard(ctx, b.scopeKey(scope)).Result()
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", scope, err)
	}
	return n, nil
}

func entry(m, score, updated string) (spots.LeaderboardEntry, error) {
	f, err := strconv.ParseFloat(score, 64)
	if err != nil {
		return spots.LeaderboardEntry{}, fmt.Errorf("parsing score %q: %w", score, err)
	}
	e := spots.LeaderboardEntry{
		UserID: userFromMember(m),
		Score:  int64(math.Round(-f)),
	}
	if updated != "" {
		ms, err := strconv.ParseInt(updated, 10, 64)
		if err != nil {
			return spots.LeaderboardEntry{}, fmt.Errorf("parsing timestamp %q: %w", updated, err)
		}
		e.UpdatedAt = time.UnixMilli(ms).UTC()
	}
	return e, nil
}
