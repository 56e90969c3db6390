package rate

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds the login failure budget.
type Config struct {
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
}

// Limiter locks logins for an email (and optionally a client IP) after too
// many rejected attempts. Only failures count; a successful login clears the
// email's counter.
type Limiter struct {
	byEmail *Window
	byIP    *Window
}

// New returns a login Limiter on rdb.
func New(rdb redis.UniversalClient, cfg Config) *Limiter {
	l := &Limiter{
		byEmail: NewWindow(rdb, "pl:", cfg.MaxLoginAttempts, cfg.LoginCooldownDuration),
	}
	if cfg.EnableIPThrottle {
		l.byIP = NewWindow(rdb, "pli:", cfg.MaxLoginAttempts, cfg.LoginCooldownDuration)
	}
	return l
}

// Allow returns ErrRateLimited while email or ip is locked out.
func (l *Limiter) Allow(ctx context.Context, email, ip string) error {
	if l == nil {
		return nil
	}
	if err := l.byEmail.Spent(ctx, normalize(email)); err != nil {
		return err
	}
	if ip != "" {
		return l.byIP.Spent(ctx, ip)
	}
	return nil
}

// Fail records a rejected attempt. It returns ErrRateLimited when this
// attempt used up the budget.
func (l *Limiter) Fail(ctx context.Context, email, ip string) error {
	if l == nil {
		return nil
	}
	if err := l.byEmail.Hit(ctx, normalize(email)); err != nil {
		return err
	}
	if ip != "" {
		return l.byIP.Hit(ctx, ip)
	}
	return nil
}

// Succeed clears the email's failures. The IP counter keeps running.
func (l *Limiter) Succeed(ctx context.Context, email string) error {
	if l == nil {
		return nil
	}
	return l.byEmail.Reset(ctx, normalize(email))
}

// Attempts returns the failures counted for email in the current window.
func (l *Limiter) Attempts(ctx context.Context, email string) (int, error) {
	if l == nil {
		return 0, nil
	}
	return l.byEmail.Count(ctx, normalize(email))
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
