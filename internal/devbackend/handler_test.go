package devbackend_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goPortal "github.com/MrEthical07/goPortal"
	"github.com/MrEthical07/goPortal/backend"
	"github.com/MrEthical07/goPortal/internal/devbackend"
	"github.com/MrEthical07/goPortal/password"
)

func startDevBackend(t *testing.T) (*devbackend.Store, *backend.Client) {
	t.Helper()

	h, err := password.NewArgon2(password.Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := devbackend.NewStore(devbackend.DefaultCatalog(), devbackend.Options{Hasher: h, Logger: logger})
	require.NoError(t, err)
	require.NoError(t, store.Seed(devbackend.DefaultUsers()...))

	srv := httptest.NewServer(devbackend.Handler(store, logger))
	t.Cleanup(srv.Close)

	client, err := backend.New(backend.Config{BaseURL: srv.URL})
	require.NoError(t, err)
	return store, client
}

func TestHandlerMalformedBody(t *testing.T) {
	store, _ := startDevBackend(t)
	srv := httptest.NewServer(devbackend.Handler(store, nil))
	defer srv.Close()

	resp, err := http.Post(srv.URL+backend.PathLogin, "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPortalAgainstDevBackend(t *testing.T) {
	store, client := startDevBackend(t)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	cfg := goPortal.DefaultConfig()
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	p, err := goPortal.New().WithConfig(cfg).WithRedis(rdb).WithBackend(client).Build()
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()

	// Recovery end to end.
	rec := p.NewRecovery()
	require.NoError(t, rec.EditEmail("coordinador@portal.local"))
	require.NoError(t, rec.SubmitEmail(ctx))
	code, ok := store.LastCode("coordinador@portal.local")
	require.True(t, ok)
	require.NoError(t, rec.Paste(0, code))
	require.NoError(t, rec.SubmitCode(ctx))
	require.NoError(t, rec.EditPasswords("Cambiada1", "Cambiada1"))
	done, err := rec.SubmitPassword(ctx)
	require.NoError(t, err)
	assert.Equal(t, goPortal.PathLogin, done.Redirect)

	// Login with the new password lands on the coordinator home.
	res, err := p.Login(ctx, "coordinador@portal.local", "Cambiada1")
	require.NoError(t, err)
	assert.Equal(t, goPortal.PathCoordinatorOrders, res.Redirect)

	_, err = p.Login(ctx, "coordinador@portal.local", "Coord1234")
	assert.ErrorIs(t, err, goPortal.ErrInvalidCredentials)

	// Verification for an existing client adding a company.
	ver := p.NewVerification()
	require.NoError(t, ver.EditIdentification("1700000003"))
	require.NoError(t, ver.Identify(ctx))
	require.Equal(t, goPortal.ModeExistingUser, ver.State().Mode)

	require.NoError(t, ver.EditEmail("otro@portal.local"))
	err = ver.ConfirmOwnership(ctx)
	require.ErrorIs(t, err, goPortal.ErrBackendRejected)
	assert.Equal(t, "The email does not match our records.", ver.State().Error)

	require.NoError(t, ver.EditEmail("cliente@portal.local"))
	require.NoError(t, ver.ConfirmOwnership(ctx))
	require.NoError(t, ver.ToggleCompany("sierra-retail"))
	require.NoError(t, ver.RequestAdditionalAccess(ctx))
	assert.Equal(t, goPortal.StepConfirmed, ver.State().Step)

	reqs := store.AccessRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, []string{"sierra-retail"}, reqs[0].Companies)
}
