package devbackend

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goPortal "github.com/MrEthical07/goPortal"
	"github.com/MrEthical07/goPortal/password"
)

func newTestStore(t *testing.T, now func() time.Time) *Store {
	t.Helper()

	h, err := password.NewArgon2(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	})
	require.NoError(t, err)

	s, err := NewStore(DefaultCatalog(), Options{
		Hasher:          h,
		MaxCodeAttempts: 2,
		CodeTTL:         time.Minute,
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:             now,
	})
	require.NoError(t, err)
	require.NoError(t, s.Seed(DefaultUsers()...))
	return s
}

func TestSeedRejectsDuplicates(t *testing.T) {
	s := newTestStore(t, nil)
	err := s.Seed(SeedUser{Identification: "1700000001", Email: "other@portal.local", Password: "Secret123"})
	require.Error(t, err)
}

func TestVerifyIdentificationAnnotatesGrants(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	res, err := s.VerifyIdentification(ctx, "1700000003")
	require.NoError(t, err)
	require.True(t, res.UserExists)
	assert.Equal(t, "c***e@portal.local", res.MaskedEmail)

	status := map[string]string{}
	for _, c := range res.Companies {
		status[c.ID] = c.Status
	}
	assert.Equal(t, GrantApproved, status["andes-foods"])
	assert.Equal(t, GrantPending, status["pacific-trade"])
	assert.Empty(t, status["sierra-retail"])

	res, err = s.VerifyIdentification(ctx, "0999999999")
	require.NoError(t, err)
	assert.False(t, res.UserExists)
	assert.Len(t, res.Companies, len(DefaultCatalog()))

	_, err = s.VerifyIdentification(ctx, "12ab")
	assert.ErrorIs(t, err, goPortal.ErrBackendRejected)
}

func TestRequestAccessRules(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	err := s.RequestAccess(ctx, goPortal.AccessRequest{
		Identification: "1700000003", Email: "cliente@portal.local", Companies: []string{"andes-foods"},
	})
	assert.ErrorIs(t, err, goPortal.ErrBackendRejected, "already granted")

	err = s.RequestAccess(ctx, goPortal.AccessRequest{
		Identification: "1700000003", Email: "cliente@portal.local", Companies: []string{"nope"},
	})
	assert.ErrorIs(t, err, goPortal.ErrBackendRejected, "unknown company")

	require.NoError(t, s.RequestAccess(ctx, goPortal.AccessRequest{
		Identification: "1700000003", Email: "CLIENTE@portal.local", Companies: []string{"sierra-retail"},
	}))

	require.NoError(t, s.RequestAccess(ctx, goPortal.AccessRequest{
		Identification: "0912345678", Email: "nuevo@example.com", Companies: []string{"costa-logistics"},
		IsNewUser: true, Password: "Nuevo1234",
	}))
	err = s.RequestAccess(ctx, goPortal.AccessRequest{
		Identification: "0912345678", Email: "x@example.com", Companies: []string{"andes-foods"},
		IsNewUser: true, Password: "Nuevo1234",
	})
	assert.ErrorIs(t, err, goPortal.ErrBackendRejected, "already registered")

	reqs := s.AccessRequests()
	require.Len(t, reqs, 2)
	assert.True(t, reqs[1].IsNewUser)

	u, err := s.Login(ctx, "nuevo@example.com", "Nuevo1234")
	require.NoError(t, err)
	assert.Equal(t, goPortal.RoleClient, u.Role)

	require.NoError(t, s.Approve("0912345678", "costa-logistics"))
	require.Error(t, s.Approve("0912345678", "costa-logistics"))
}

func TestCodeLifecycle(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, func() time.Time { return now })
	ctx := context.Background()
	email := "admin@portal.local"

	require.ErrorIs(t, s.SendVerificationCode(ctx, "ghost@portal.local"), goPortal.ErrBackendRejected)

	require.NoError(t, s.SendVerificationCode(ctx, email))
	code, ok := s.LastCode(email)
	require.True(t, ok)
	require.Len(t, code, 6)

	valid, err := s.VerifyCode(ctx, email, code)
	require.NoError(t, err)
	assert.True(t, valid)

	require.NoError(t, s.ResetPassword(ctx, email, code, "Nueva1234"))
	_, err = s.Login(ctx, email, "Admin1234")
	assert.ErrorIs(t, err, goPortal.ErrBackendRejected)
	_, err = s.Login(ctx, email, "Nueva1234")
	require.NoError(t, err)

	// Consumed.
	valid, err = s.VerifyCode(ctx, email, code)
	require.NoError(t, err)
	assert.False(t, valid)

	// Expiry.
	require.NoError(t, s.SendVerificationCode(ctx, email))
	code, _ = s.LastCode(email)
	now = now.Add(2 * time.Minute)
	valid, err = s.VerifyCode(ctx, email, code)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestCodeAttemptBudget(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()
	email := "coordinador@portal.local"

	require.NoError(t, s.SendVerificationCode(ctx, email))
	code, _ := s.LastCode(email)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	for i := 0; i < 2; i++ {
		valid, err := s.VerifyCode(ctx, email, wrong)
		require.NoError(t, err)
		require.False(t, valid)
	}
	_, err := s.VerifyCode(ctx, email, code)
	assert.ErrorIs(t, err, goPortal.ErrBackendRejected)
}

func TestLoginRejectsUnknownAndWrongPassword(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	_, err := s.Login(ctx, "nobody@portal.local", "Admin1234")
	assert.ErrorIs(t, err, goPortal.ErrBackendRejected)

	_, err = s.Login(ctx, "admin@portal.local", "wrong-pass")
	assert.ErrorIs(t, err, goPortal.ErrBackendRejected)

	u, err := s.Login(ctx, " Admin@Portal.local ", "Admin1234")
	require.NoError(t, err)
	assert.Equal(t, goPortal.RoleAdmin, u.Role)
	assert.NotEmpty(t, u.ID)
}

func TestLoginUpgradesWeakHash(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	weak, err := password.NewArgon2(password.Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	require.NoError(t, err)
	old, err := weak.Hash("Cliente1234")
	require.NoError(t, err)

	s.mu.Lock()
	s.byEmail["cliente@portal.local"].hash = old
	s.mu.Unlock()

	_, err = s.Login(ctx, "cliente@portal.local", "Cliente1234")
	require.NoError(t, err)

	s.mu.Lock()
	upgraded := s.byEmail["cliente@portal.local"].hash
	s.mu.Unlock()
	assert.NotEqual(t, old, upgraded)

	up, err := s.opts.Hasher.NeedsUpgrade(upgraded)
	require.NoError(t, err)
	assert.False(t, up)

	_, err = s.Login(ctx, "cliente@portal.local", "Cliente1234")
	assert.NoError(t, err)
}
