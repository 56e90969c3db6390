package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goPortal "github.com/MrEthical07/goPortal"
	"github.com/MrEthical07/goPortal/backend"
)

func writeEnvelope(t *testing.T, w http.ResponseWriter, status int, success bool, data any, message string) {
	t.Helper()
	env := map[string]any{"success": success}
	if data != nil {
		env["data"] = data
	}
	if message != "" {
		env["message"] = message
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(env))
}

func newClient(t *testing.T, h http.HandlerFunc) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := backend.New(backend.Config{BaseURL: srv.URL})
	require.NoError(t, err)
	return c
}

func TestNewValidatesBaseURL(t *testing.T) {
	for _, base := range []string{"", "ftp://x", "not a url", "http://"} {
		_, err := backend.New(backend.Config{BaseURL: base})
		assert.Error(t, err, "base %q", base)
	}
	_, err := backend.New(backend.Config{BaseURL: "http://localhost:8081", RequestsPerSecond: -1})
	assert.Error(t, err)
}

func TestVerifyIdentificationDecodesData(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, backend.PathVerifyIdentification, r.URL.Path)
		assert.Equal(t, "req-1", r.Header.Get("X-Request-ID"))

		var body backend.IdentificationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "1712345678", body.Identification)

		writeEnvelope(t, w, http.StatusOK, true, backend.IdentificationData{
			UserExists:  true,
			MaskedEmail: "j***n@example.com",
			Companies:   []goPortal.Company{{ID: "c1", Name: "Andes", Status: "approved"}},
		}, "")
	})

	ctx := goPortal.WithRequestID(context.Background(), "req-1")
	res, err := c.VerifyIdentification(ctx, "1712345678")
	require.NoError(t, err)
	assert.True(t, res.UserExists)
	assert.Equal(t, "j***n@example.com", res.MaskedEmail)
	require.Len(t, res.Companies, 1)
	assert.True(t, res.Companies[0].Granted())
}

func TestRejectedEnvelopeCarriesMessage(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(t, w, http.StatusBadRequest, false, nil, "El correo no coincide")
	})

	err := c.VerifyExistingEmail(context.Background(), "1712345678", "x@example.com")
	require.ErrorIs(t, err, goPortal.ErrBackendRejected)

	var rejected *goPortal.RejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, "El correo no coincide", rejected.Message)
}

func TestNonEnvelopeIsTransportFailure(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	err := c.SendVerificationCode(context.Background(), "x@example.com")
	require.Error(t, err)
	assert.NotErrorIs(t, err, goPortal.ErrBackendRejected)
}

func TestLoginParsesRole(t *testing.T) {
	roles := map[string]goPortal.Role{
		"ADMIN":       goPortal.RoleAdmin,
		"coordinator": goPortal.RoleCoordinator,
		"CLIENT":      goPortal.RoleClient,
		"AUDITOR":     goPortal.RoleUnknown,
	}
	for wire, want := range roles {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeEnvelope(t, w, http.StatusOK, true, backend.UserData{ID: "u1", Name: "N", Email: "n@example.com", Role: wire}, "")
		})
		u, err := c.Login(context.Background(), "n@example.com", "pw")
		require.NoError(t, err)
		assert.Equal(t, want, u.Role, "wire role %q", wire)
		assert.Equal(t, "u1", u.ID)
	}
}

func TestBooleanEndpoints(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case backend.PathEmailExists:
			writeEnvelope(t, w, http.StatusOK, true, backend.EmailExistsData{Exists: true}, "")
		case backend.PathVerifyCode:
			var body backend.VerifyCodeRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			writeEnvelope(t, w, http.StatusOK, true, backend.VerifyCodeData{Valid: body.Code == "123456"}, "")
		default:
			writeEnvelope(t, w, http.StatusNotFound, false, nil, "not found")
		}
	})
	ctx := context.Background()

	exists, err := c.VerifyEmailExists(ctx, "a@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	valid, err := c.VerifyCode(ctx, "a@example.com", "123456")
	require.NoError(t, err)
	assert.True(t, valid)

	valid, err = c.VerifyCode(ctx, "a@example.com", "000000")
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestThrottleHonoursContext(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeEnvelope(t, w, http.StatusOK, true, nil, "")
	}))
	defer srv.Close()

	c, err := backend.New(backend.Config{BaseURL: srv.URL, RequestsPerSecond: 0.001, Burst: 1})
	require.NoError(t, err)

	require.NoError(t, c.SendVerificationCode(context.Background(), "a@example.com"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = c.SendVerificationCode(ctx, "a@example.com")
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}
