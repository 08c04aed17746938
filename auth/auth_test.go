package auth

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hkanyike/tradingbuddy/config"
	"github.com/hkanyike/tradingbuddy/store"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()

	st, err := store.Open(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.AuthConfig{
		SessionTTL: config.Duration(time.Hour),
		BcryptCost: 4, // minimum cost keeps the tests quick
		AdminEmail: "admin@example.com",
	}
	return NewService(st, cfg, config.PaperConfig{StartingCash: 25_000}), st
}

func seedInvite(t *testing.T, st *store.Store, code string, uses int) {
	t.Helper()

	require.NoError(t, st.CreateInvite(context.Background(), store.InviteCode{
		Code:          code,
		CreatedBy:     "test",
		UsesRemaining: uses,
		ExpiresAt:     time.Now().Add(24 * time.Hour),
		CreatedAt:     time.Now().UTC(),
	}))
}

func register(t *testing.T, svc *Service, st *store.Store, email string) store.User {
	t.Helper()

	code := NewInviteCode()
	seedInvite(t, st, code, 1)
	u, err := svc.Register(context.Background(), RegisterRequest{
		Email: email, Password: "hunter2hunter2", DisplayName: "Test", InviteCode: code,
	})
	require.NoError(t, err)
	return u
}

func TestRegisterRequestValidate(t *testing.T) {
	t.Parallel()

	valid := RegisterRequest{
		Email: "  Alice@Example.COM ", Password: "longenough", DisplayName: " Alice ", InviteCode: " ABC123 ",
	}
	require.NoError(t, valid.Validate())
	assert.Equal(t, "alice@example.com", valid.Email)
	assert.Equal(t, "Alice", valid.DisplayName)
	assert.Equal(t, "ABC123", valid.InviteCode)

	bad := []RegisterRequest{
		{Email: "", Password: "longenough", DisplayName: "A", InviteCode: "X"},
		{Email: "not-an-email", Password: "longenough", DisplayName: "A", InviteCode: "X"},
		{Email: "a@b.com", Password: "short", DisplayName: "A", InviteCode: "X"},
		{Email: "a@b.com", Password: "longenough", DisplayName: "", InviteCode: "X"},
		{Email: "a@b.com", Password: "longenough", DisplayName: "A", InviteCode: ""},
	}
	for _, req := range bad {
		assert.Error(t, req.Validate(), "request %+v", req)
	}
}

func TestRegisterCreatesUserAndAccount(t *testing.T) {
	t.Parallel()

	svc, st := newTestService(t)
	u := register(t, svc, st, "alice@example.com")

	assert.Equal(t, store.RoleUser, u.Role)
	assert.True(t, u.Active)

	accounts, err := st.ListAccounts(context.Background(), u.UserID)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "Paper Trading", accounts[0].Name)
	assert.Equal(t, 25_000.0, accounts[0].Cash)
	assert.Equal(t, 25_000.0, accounts[0].Equity)
}

func TestRegisterAdminEmail(t *testing.T) {
	t.Parallel()

	svc, st := newTestService(t)
	u := register(t, svc, st, "admin@example.com")
	assert.Equal(t, store.RoleAdmin, u.Role)
}

func TestRegisterInviteErrors(t *testing.T) {
	t.Parallel()

	svc, st := newTestService(t)
	ctx := context.Background()

	req := RegisterRequest{Email: "bob@example.com", Password: "longenough", DisplayName: "Bob", InviteCode: "NOPE"}
	_, err := svc.Register(ctx, req)
	assert.ErrorIs(t, err, store.ErrInviteInvalid)

	seedInvite(t, st, "ONESHOT", 1)
	req.InviteCode = "ONESHOT"
	_, err = svc.Register(ctx, req)
	require.NoError(t, err)

	req.Email = "carol@example.com"
	_, err = svc.Register(ctx, req)
	assert.ErrorIs(t, err, store.ErrInviteExhausted)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	t.Parallel()

	svc, st := newTestService(t)
	register(t, svc, st, "dup@example.com")

	code := NewInviteCode()
	seedInvite(t, st, code, 5)
	_, err := svc.Register(context.Background(), RegisterRequest{
		Email: "dup@example.com", Password: "longenough", DisplayName: "Again", InviteCode: code,
	})
	assert.ErrorIs(t, err, store.ErrEmailTaken)

	// The failed registration must not have consumed an invite use.
	inv, err := st.GetInvite(context.Background(), code)
	require.NoError(t, err)
	assert.Equal(t, 5, inv.UsesRemaining)
}

func TestLoginAndResolve(t *testing.T) {
	t.Parallel()

	svc, st := newTestService(t)
	u := register(t, svc, st, "alice@example.com")
	ctx := context.Background()

	got, sess, err := svc.Login(ctx, "ALICE@example.com", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, u.UserID, got.UserID)
	assert.Len(t, sess.Token, 64) // 32 random bytes, hex

	resolved, err := svc.Resolve(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, u.UserID, resolved.UserID)
}

func TestLoginBadCredentials(t *testing.T) {
	t.Parallel()

	svc, st := newTestService(t)
	register(t, svc, st, "alice@example.com")
	ctx := context.Background()

	_, _, err := svc.Login(ctx, "alice@example.com", "wrongpassword")
	assert.ErrorIs(t, err, ErrBadCredentials)

	_, _, err = svc.Login(ctx, "nobody@example.com", "hunter2hunter2")
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestLoginInactive(t *testing.T) {
	t.Parallel()

	svc, st := newTestService(t)
	u := register(t, svc, st, "alice@example.com")
	ctx := context.Background()

	require.NoError(t, st.SetUserActive(ctx, u.UserID, false))
	_, _, err := svc.Login(ctx, "alice@example.com", "hunter2hunter2")
	assert.ErrorIs(t, err, ErrInactive)
}

func TestResolveExpiredSessionDeleted(t *testing.T) {
	t.Parallel()

	svc, st := newTestService(t)
	register(t, svc, st, "alice@example.com")
	ctx := context.Background()

	_, sess, err := svc.Login(ctx, "alice@example.com", "hunter2hunter2")
	require.NoError(t, err)

	svc.SetClock(func() time.Time { return time.Now().Add(2 * time.Hour) })
	_, err = svc.Resolve(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrBadToken)

	// The expired row is gone, not just ignored.
	_, err = st.GetSession(ctx, sess.Token)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestResolveInactiveUser(t *testing.T) {
	t.Parallel()

	svc, st := newTestService(t)
	u := register(t, svc, st, "alice@example.com")
	ctx := context.Background()

	_, sess, err := svc.Login(ctx, "alice@example.com", "hunter2hunter2")
	require.NoError(t, err)

	require.NoError(t, st.SetUserActive(ctx, u.UserID, false))
	_, err = svc.Resolve(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrInactive)
}

func TestLogout(t *testing.T) {
	t.Parallel()

	svc, st := newTestService(t)
	register(t, svc, st, "alice@example.com")
	ctx := context.Background()

	_, sess, err := svc.Login(ctx, "alice@example.com", "hunter2hunter2")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, sess.Token))
	_, err = svc.Resolve(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrBadToken)
}

func TestNewInviteCode(t *testing.T) {
	t.Parallel()

	a, b := NewInviteCode(), NewInviteCode()
	assert.Len(t, a, 12)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, strings.ToUpper(a))
}
