// Package ratelimit caps how many proofs a user may submit per UTC day and
// per UTC hour. Counters live in Redis and expire at the end of their
// window; there is no cleanup logic.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cozyartz/michiganspots/internal/spots"
)

const DefaultDailyCap = 10

// checkAndIncr refuses (without touching either counter) when a cap is
// reached, otherwise increments both counters and refreshes their TTLs.
//
// KEYS[1] day counter, KEYS[2] hour counter
// ARGV[1] daily cap, ARGV[2] hourly cap (0 = none), ARGV[3] day ttl ms, ARGV[4] hour ttl ms
var checkAndIncr = redis.NewScript(`
local day = tonumber(redis.call('GET', KEYS[1]) or '0')
local hour = tonumber(redis.call('GET', KEYS[2]) or '0')
if day >= tonumber(ARGV[1]) then
	return -1
end
local hourly = tonumber(ARGV[2])
if hourly > 0 and hour >= hourly then
	return -2
end
day = redis.call('INCR', KEYS[1])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
redis.call('INCR', KEYS[2])
redis.call('PEXPIRE', KEYS[2], ARGV[4])
return day
`)

type Options struct {
	Prefix    string
	DailyCap  int
	HourlyCap int
	Now       func() time.Time
}

type Limiter struct {
	rdb       redis.UniversalClient
	prefix    string
	dailyCap  int
	hourlyCap int
	now       func() time.Time
}

func New(rdb redis.UniversalClient, opts Options) *Limiter {
	if opts.Prefix == "" {
		opts.Prefix = "spots"
	}
	if opts.DailyCap <= 0 {
		opts.DailyCap = DefaultDailyCap
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Limiter{
		rdb:       rdb,
		prefix:    opts.Prefix + ":rl",
		dailyCap:  opts.DailyCap,
		hourlyCap: opts.HourlyCap,
		now:       opts.Now,
	}
}

// CheckAndIncrement admits one submission for userID or fails with
// spots.ErrRateLimitExceeded, in which case nothing is mutated.
func (l *Limiter) CheckAndIncrement(ctx context.Context, userID string) error {
	now := l.now().UTC()
	dayKey, dayEnd := l.dayKey(userID, now)
	hourKey, hourEnd := l.hourKey(userID, now)

	n, err := checkAndIncr.Run(ctx, l.rdb,
		[]string{dayKey, hourKey},
		l.dailyCap, l.hourlyCap, ttlMillis(now, dayEnd), ttlMillis(now, hourEnd),
	).Int64()
	if err != nil {
		return fmt.Errorf("rate limit script: %w", err)
	}
	switch n {
	case -1:
		return fmt.Errorf("%w: daily cap of %d reached", spots.ErrRateLimitExceeded, l.dailyCap)
	case -2:
		return fmt.Errorf("%w: hourly cap of %d reached", spots.ErrRateLimitExceeded, l.hourlyCap)
	}
	return nil
}

type Usage struct {
	Day  int
	Hour int
}

// Usage reads the current window counters without mutating them.
func (l *Limiter) Usage(ctx context.Context, userID string) (Usage, error) {
	now := l.now().UTC()
	dayKey, _ := l.dayKey(userID, now)
	hourKey, _ := l.hourKey(userID, now)

	vals, err := l.rdb.MGet(ctx, dayKey, hourKey).Result()
	if err != nil {
		return Usage{}, fmt.Errorf("reading counters: %w", err)
	}
	var u Usage
	u.Day, err = counter(vals[0])
	if err != nil {
		return Usage{}, err
	}
	u.Hour, err = counter(vals[1])
	if err != nil {
		return Usage{}, err
	}
	return u, nil
}

func (l *Limiter) dayKey(userID string, now time.Time) (string, time.Time) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return fmt.Sprintf("%s:day:%s:%s", l.prefix, userID, start.Format("20060102")), start.AddDate(0, 0, 1)
}

func (l *Limiter) hourKey(userID string, now time.Time) (string, time.Time) {
	start := now.Truncate(time.Hour)
	return fmt.Sprintf("%s:hour:%s:%s", l.prefix, userID, start.Format("2006010215")), start.Add(time.Hour)
}

func ttlMillis(now, end time.Time) int64 {
	ms := end.Sub(now).Milliseconds()
	if ms < 1 {
		return 1
	}
	return ms
}

var errBadCounter = errors.New("unexpected counter value")

func counter(v any) (int, error) {
	switch v := v.(type) {
	case nil:
		return 0, nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", errBadCounter, v)
		}
		return n, nil
	}
	return 0, fmt.Errorf("%w: %T", errBadCounter, v)
}
