package middleware_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	goPortal "github.com/MrEthical07/goPortal"
	"github.com/MrEthical07/goPortal/internal/mocks"
	"github.com/MrEthical07/goPortal/middleware"
)

func newPortal(t *testing.T) (*goPortal.Portal, *mocks.MockBackend) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := goPortal.DefaultConfig()
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")

	backend := mocks.NewMockBackend(gomock.NewController(t))
	p, err := goPortal.New().WithConfig(cfg).WithRedis(rdb).WithBackend(backend).Build()
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p, backend
}

func loginAs(t *testing.T, p *goPortal.Portal, backend *mocks.MockBackend, role goPortal.Role) string {
	t.Helper()
	backend.EXPECT().
		Login(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(goPortal.User{ID: "u-" + role.String(), Role: role}, nil)
	res, err := p.Login(context.Background(), "someone@example.com", "pw")
	require.NoError(t, err)
	return res.Token
}

func screen(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := middleware.SessionFromContext(r.Context())
		_, _ = io.WriteString(w, sess.Role().String())
	})
}

func TestGuardRedirectsAnonymousBrowser(t *testing.T) {
	p, _ := newPortal(t)
	h := middleware.Guard(p)(screen(t))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/carrito?paso=2", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?redirect_uri=%2Fcarrito%3Fpaso%3D2", rec.Header().Get("Location"))
}

func TestGuardAnswersJSONClients(t *testing.T) {
	p, backend := newPortal(t)
	h := middleware.Guard(p)(screen(t))

	req := httptest.NewRequest(http.MethodGet, "/admin/usuarios", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := loginAs(t, p, backend, goPortal.RoleCoordinator)
	req = httptest.NewRequest(http.MethodGet, "/admin/usuarios", nil)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, goPortal.PathCoordinatorOrders, body["redirect"])
}

func TestGuardRendersWithSessionFromCookie(t *testing.T) {
	p, backend := newPortal(t)
	h := middleware.Guard(p)(screen(t))
	token := loginAs(t, p, backend, goPortal.RoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/admin/usuarios", nil)
	req.AddCookie(&http.Cookie{Name: middleware.CookieName, Value: token})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ADMIN", rec.Body.String())
}

func TestSessionDoesNotGuard(t *testing.T) {
	p, _ := newPortal(t)
	h := middleware.Session(p)(screen(t))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/session", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "UNKNOWN", rec.Body.String())
}

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	var seen string
	h := middleware.RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = goPortal.RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, rec.Header().Get(middleware.RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "abc-123", seen)
}

func TestRecoverTurnsPanicInto500(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := middleware.Recover(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestTokenFromRequestPrefersCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer header-token")
	assert.Equal(t, "header-token", middleware.TokenFromRequest(req))

	req.AddCookie(&http.Cookie{Name: middleware.CookieName, Value: "cookie-token"})
	assert.Equal(t, "cookie-token", middleware.TokenFromRequest(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic xyz")
	assert.Empty(t, middleware.TokenFromRequest(req))
}
