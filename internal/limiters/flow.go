package limiters

import (
	"context"
	"strings"
	"time"

	"github.com/MrEthical07/goPortal/internal/rate"
	"github.com/redis/go-redis/v9"
)

// FlowConfig sets the fixed-window budgets of the registration and recovery
// flows. A zero Max disables that budget.
type FlowConfig struct {
	EnableIPThrottle  bool
	Window            time.Duration
	MaxIdentify       int
	MaxCodeSend       int
	MaxCodeVerify     int
	MaxPerIPPerWindow int
}

// FlowLimiter counts flow submissions per subject (identification or email)
// and per client IP. Every submission counts, accepted or not.
type FlowLimiter struct {
	identify *rate.Window
	send     *rate.Window
	verify   *rate.Window
	perIP    *rate.Window
}

func NewFlowLimiter(rdb redis.UniversalClient, cfg FlowConfig) *FlowLimiter {
	l := &FlowLimiter{
		identify: rate.NewWindow(rdb, "pfi:", cfg.MaxIdentify, cfg.Window),
		send:     rate.NewWindow(rdb, "pfs:", cfg.MaxCodeSend, cfg.Window),
		verify:   rate.NewWindow(rdb, "pfv:", cfg.MaxCodeVerify, cfg.Window),
	}
	if cfg.EnableIPThrottle {
		l.perIP = rate.NewWindow(rdb, "pfip:", cfg.MaxPerIPPerWindow, cfg.Window)
	}
	return l
}

// CheckIdentify counts an identification lookup.
func (l *FlowLimiter) CheckIdentify(ctx context.Context, identification, ip string) error {
	if l == nil {
		return nil
	}
	return l.count(ctx, l.identify, strings.TrimSpace(identification), ip)
}

// CheckCodeSend counts a send or resend of a recovery code.
func (l *FlowLimiter) CheckCodeSend(ctx context.Context, email, ip string) error {
	if l == nil {
		return nil
	}
	return l.count(ctx, l.send, normalizeEmail(email), ip)
}

// CheckCodeVerify counts a code verification attempt.
func (l *FlowLimiter) CheckCodeVerify(ctx context.Context, email, ip string) error {
	if l == nil {
		return nil
	}
	return l.count(ctx, l.verify, normalizeEmail(email), ip)
}

// count hits the subject window, then the shared per-IP window.
func (l *FlowLimiter) count(ctx context.Context, w *rate.Window, subject, ip string) error {
	if err := w.Hit(ctx, subject); err != nil {
		return err
	}
	if ip == "" {
		return nil
	}
	return l.perIP.Hit(ctx, ip)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
