package goPortal_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	goPortal "github.com/MrEthical07/goPortal"
	"github.com/MrEthical07/goPortal/internal/mocks"
)

func buildAuditedPortal(t *testing.T, sink goPortal.AuditSink) (*goPortal.Portal, *mocks.MockBackend) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := goPortal.DefaultConfig()
	cfg.JWT.PrivateKey = testKey

	backend := mocks.NewMockBackend(gomock.NewController(t))
	p, err := goPortal.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithBackend(backend).
		WithAuditSink(sink).
		Build()
	require.NoError(t, err)
	return p, backend
}

func nextEvent(t *testing.T, sink *goPortal.ChannelSink) goPortal.AuditEvent {
	t.Helper()
	select {
	case ev := <-sink.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no audit event")
		return goPortal.AuditEvent{}
	}
}

func TestAuditLoginCarriesRequestContext(t *testing.T) {
	sink := goPortal.NewChannelSink(8)
	p, backend := buildAuditedPortal(t, sink)
	defer p.Close()

	backend.EXPECT().
		Login(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(goPortal.User{ID: "u-1", Role: goPortal.RoleAdmin}, nil)

	ctx := goPortal.WithRequestID(goPortal.WithClientIP(context.Background(), "10.1.2.3"), "req-42")
	_, err := p.Login(ctx, "admin@example.com", "pw")
	require.NoError(t, err)

	ev := nextEvent(t, sink)
	assert.Equal(t, goPortal.AuditLogin, ev.EventType)
	assert.True(t, ev.Success)
	assert.Equal(t, "u-1", ev.UserID)
	assert.Equal(t, "ADMIN", ev.Role)
	assert.Equal(t, "req-42", ev.RequestID)
	assert.Equal(t, "10.1.2.3", ev.IP)
	assert.NotContains(t, ev.Metadata["email"], "admin@")
}

func TestAuditFlowFailureCode(t *testing.T) {
	sink := goPortal.NewChannelSink(8)
	p, backend := buildAuditedPortal(t, sink)
	defer p.Close()

	backend.EXPECT().VerifyEmailExists(gomock.Any(), gomock.Any()).Return(false, nil)

	f := p.NewRecovery()
	require.NoError(t, f.EditEmail("nobody@example.com"))
	require.ErrorIs(t, f.SubmitEmail(context.Background()), goPortal.ErrEmailNotRegistered)

	ev := nextEvent(t, sink)
	assert.Equal(t, goPortal.AuditSendCode, ev.EventType)
	assert.Equal(t, "recovery", ev.Flow)
	assert.False(t, ev.Success)
	assert.Equal(t, "email_not_registered", ev.Error)
}

func TestAuditGuardRedirect(t *testing.T) {
	sink := goPortal.NewChannelSink(8)
	p, _ := buildAuditedPortal(t, sink)
	defer p.Close()

	d := p.Navigate(context.Background(), goPortal.Anonymous, "/carrito/")
	require.Equal(t, goPortal.PathLogin, d.Target)

	ev := nextEvent(t, sink)
	assert.Equal(t, goPortal.AuditGuardRedirect, ev.EventType)
	assert.Equal(t, "/carrito", ev.Path)
	assert.Equal(t, goPortal.PathLogin, ev.Metadata["target"])
}

func TestAuditDisabledWithoutSink(t *testing.T) {
	h := newHarness(t, nil)
	h.portal.Navigate(context.Background(), goPortal.Anonymous, "/carrito")
	assert.Zero(t, h.portal.AuditStats())
}
