package rate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRateLimited is returned once a counter exceeds its budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps any Redis failure while counting.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// hitScript increments KEYS[1] and starts its window on the first hit.
// ARGV[1] is the window length in milliseconds.
var hitScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// Window is a family of fixed-window counters sharing a key prefix. Each
// subject gets its own counter that lives Period from its first hit.
//
// A Window with Limit <= 0 is disabled and never touches Redis. A nil
// *Window behaves the same.
type Window struct {
	redis  redis.UniversalClient
	prefix string
	limit  int
	period time.Duration
}

// NewWindow returns a Window whose counters are keyed prefix+subject.
func NewWindow(rdb redis.UniversalClient, prefix string, limit int, period time.Duration) *Window {
	return &Window{redis: rdb, prefix: prefix, limit: limit, period: period}
}

func (w *Window) disabled() bool { return w == nil || w.limit <= 0 }

// Limit is the budget per window.
func (w *Window) Limit() int {
	if w == nil {
		return 0
	}
	return w.limit
}

// Hit counts one event for subject and returns ErrRateLimited once the count
// passes the limit.
func (w *Window) Hit(ctx context.Context, subject string) error {
	if w.disabled() {
		return nil
	}
	n, err := hitScript.Run(ctx, w.redis, []string{w.prefix + subject},
		strconv.FormatInt(w.period.Milliseconds(), 10)).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if n > int64(w.limit) {
		return ErrRateLimited
	}
	return nil
}

// Spent reports ErrRateLimited when subject has used its whole budget,
// without counting anything.
func (w *Window) Spent(ctx context.Context, subject string) error {
	if w.disabled() {
		return nil
	}
	n, err := w.Count(ctx, subject)
	if err != nil {
		return err
	}
	if n >= w.limit {
		return ErrRateLimited
	}
	return nil
}

// Count returns the events counted for subject in the current window.
func (w *Window) Count(ctx context.Context, subject string) (int, error) {
	if w.disabled() {
		return 0, nil
	}
	n, err := w.redis.Get(ctx, w.prefix+subject).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return max(n, 0), nil
}

// Reset drops the counters of subjects.
func (w *Window) Reset(ctx context.Context, subjects ...string) error {
	if w.disabled() || len(subjects) == 0 {
		return nil
	}
	keys := make([]string, len(subjects))
	for i, s := range subjects {
		keys[i] = w.prefix + s
	}
	if err := w.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
