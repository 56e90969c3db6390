package limiters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goPortal/internal/rate"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestFlowLimiterIdentifyBudget(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l := NewFlowLimiter(rdb, FlowConfig{Window: time.Minute, MaxIdentify: 2})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.CheckIdentify(ctx, "1234567890", ""); err != nil {
			t.Fatalf("attempt %d: unexpected error %v", i+1, err)
		}
	}
	if err := l.CheckIdentify(ctx, "1234567890", ""); !errors.Is(err, rate.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := l.CheckIdentify(ctx, "9999999999", ""); err != nil {
		t.Fatalf("other identification must have its own budget: %v", err)
	}

	mr.FastForward(time.Minute + time.Second)
	if err := l.CheckIdentify(ctx, "1234567890", ""); err != nil {
		t.Fatalf("window should have expired: %v", err)
	}
}

func TestFlowLimiterEmailKeysAreNormalized(t *testing.T) {
	_, rdb := newTestRedis(t)
	l := NewFlowLimiter(rdb, FlowConfig{Window: time.Minute, MaxCodeSend: 1})
	ctx := context.Background()

	if err := l.CheckCodeSend(ctx, "Alice@Example.com", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := l.CheckCodeSend(ctx, " alice@example.com", ""); !errors.Is(err, rate.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := l.CheckCodeVerify(ctx, "alice@example.com", ""); err != nil {
		t.Fatalf("verify budget is disabled, got %v", err)
	}
}

func TestFlowLimiterIPThrottle(t *testing.T) {
	_, rdb := newTestRedis(t)
	l := NewFlowLimiter(rdb, FlowConfig{
		EnableIPThrottle:  true,
		Window:            time.Minute,
		MaxCodeVerify:     10,
		MaxPerIPPerWindow: 2,
	})
	ctx := context.Background()

	_ = l.CheckCodeVerify(ctx, "a@example.com", "10.0.0.1")
	_ = l.CheckCodeVerify(ctx, "b@example.com", "10.0.0.1")
	if err := l.CheckCodeVerify(ctx, "c@example.com", "10.0.0.1"); !errors.Is(err, rate.ErrRateLimited) {
		t.Fatalf("expected per-IP limit, got %v", err)
	}
	if err := l.CheckCodeVerify(ctx, "c@example.com", "10.0.0.2"); err != nil {
		t.Fatalf("other IP should pass: %v", err)
	}
}

func TestFlowLimiterRedisDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l := NewFlowLimiter(rdb, FlowConfig{Window: time.Minute, MaxIdentify: 1})
	mr.Close()

	if err := l.CheckIdentify(context.Background(), "1234567890", ""); !errors.Is(err, rate.ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}

func TestFlowLimiterNilSafe(t *testing.T) {
	var l *FlowLimiter
	if err := l.CheckIdentify(context.Background(), "x", "y"); err != nil {
		t.Fatalf("nil limiter must allow: %v", err)
	}
}
