package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hkanyike/tradingbuddy/config"
	"github.com/hkanyike/tradingbuddy/pkg/id"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	st, err := Open(config.DatabaseConfig{
		Path: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	return st
}

func seedInvite(t *testing.T, st *Store, code string, uses int) {
	t.Helper()

	now := time.Now().UTC()
	require.NoError(t, st.CreateInvite(context.Background(), InviteCode{
		Code:          code,
		UsesRemaining: uses,
		ExpiresAt:     now.Add(24 * time.Hour),
		CreatedBy:     "test",
		CreatedAt:     now,
	}))
}

func seedUser(t *testing.T, st *Store, email string) (User, Account) {
	t.Helper()

	now := time.Now().UTC()
	u := User{
		UserID:       id.New(),
		Email:        email,
		PasswordHash: "x",
		DisplayName:  "Test User",
		Role:         RoleUser,
		Active:       true,
		CreatedAt:    now,
	}
	a := Account{
		AccountID: id.New(),
		UserID:    u.UserID,
		Name:      "Paper Trading",
		Cash:      100_000,
		Equity:    100_000,
		CreatedAt: now,
	}

	seedInvite(t, st, "SEED-"+u.UserID, 1)
	require.NoError(t, st.RegisterUser(context.Background(), u, "SEED-"+u.UserID, a))
	return u, a
}

func TestOpenCreatesSchema(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)

	rows, err := st.DB().Query(`SELECT name FROM sqlite_master WHERE type='table'`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	require.NoError(t, rows.Err())

	for _, table := range []string{"users", "sessions", "invite_codes", "accounts", "orders", "positions", "strategies", "backtest_runs"} {
		assert.True(t, found[table], "missing table %s", table)
	}
}

func TestRegisterUserConsumesInvite(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()

	seedInvite(t, st, "WELCOME", 2)
	u, a := User{UserID: id.New(), Email: "a@b.co", PasswordHash: "x", DisplayName: "A", Role: RoleUser, Active: true, CreatedAt: time.Now().UTC()},
		Account{AccountID: id.New(), Name: "Paper", Cash: 1000, Equity: 1000, CreatedAt: time.Now().UTC()}
	a.UserID = u.UserID

	require.NoError(t, st.RegisterUser(ctx, u, "WELCOME", a))

	inv, err := st.GetInvite(ctx, "WELCOME")
	require.NoError(t, err)
	assert.Equal(t, 1, inv.UsesRemaining)

	got, err := st.GetUserByEmail(ctx, "a@b.co")
	require.NoError(t, err)
	assert.Equal(t, u.UserID, got.UserID)

	accounts, err := st.ListAccounts(ctx, u.UserID)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, 1000.0, accounts[0].Cash)
}

func TestRegisterUserInviteErrors(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()

	mkUser := func(email string) (User, Account) {
		u := User{UserID: id.New(), Email: email, PasswordHash: "x", DisplayName: "A", Role: RoleUser, Active: true, CreatedAt: time.Now().UTC()}
		return u, Account{AccountID: id.New(), UserID: u.UserID, Name: "P", Cash: 1, Equity: 1, CreatedAt: time.Now().UTC()}
	}

	u, a := mkUser("no-invite@x.co")
	assert.ErrorIs(t, st.RegisterUser(ctx, u, "NOPE", a), ErrInviteInvalid)

	seedInvite(t, st, "ONE", 1)
	u, a = mkUser("first@x.co")
	require.NoError(t, st.RegisterUser(ctx, u, "ONE", a))
	u, a = mkUser("second@x.co")
	assert.ErrorIs(t, st.RegisterUser(ctx, u, "ONE", a), ErrInviteExhausted)

	// Exhausted registration must not have inserted the user.
	_, err := st.GetUserByEmail(ctx, "second@x.co")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, st.CreateInvite(ctx, InviteCode{
		Code: "OLD", UsesRemaining: 5,
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
		CreatedBy: "test", CreatedAt: time.Now().UTC(),
	}))
	u, a = mkUser("late@x.co")
	assert.ErrorIs(t, st.RegisterUser(ctx, u, "OLD", a), ErrInviteExpired)
}

func TestRegisterUserDuplicateEmail(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()

	seedInvite(t, st, "DUP", 5)
	u1 := User{UserID: id.New(), Email: "dup@x.co", PasswordHash: "x", DisplayName: "A", Role: RoleUser, Active: true, CreatedAt: time.Now().UTC()}
	a1 := Account{AccountID: id.New(), UserID: u1.UserID, Name: "P", Cash: 1, Equity: 1, CreatedAt: time.Now().UTC()}
	require.NoError(t, st.RegisterUser(ctx, u1, "DUP", a1))

	u2 := User{UserID: id.New(), Email: "dup@x.co", PasswordHash: "x", DisplayName: "B", Role: RoleUser, Active: true, CreatedAt: time.Now().UTC()}
	a2 := Account{AccountID: id.New(), UserID: u2.UserID, Name: "P", Cash: 1, Equity: 1, CreatedAt: time.Now().UTC()}
	assert.ErrorIs(t, st.RegisterUser(ctx, u2, "DUP", a2), ErrEmailTaken)

	// The failed registration must not have burned an invite use.
	inv, err := st.GetInvite(ctx, "DUP")
	require.NoError(t, err)
	assert.Equal(t, 4, inv.UsesRemaining)
}

func TestSessions(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()
	u, _ := seedUser(t, st, "sess@x.co")

	now := time.Now().UTC()
	sess := Session{Token: "tok-1", UserID: u.UserID, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, st.CreateSession(ctx, sess))

	got, err := st.GetSession(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, u.UserID, got.UserID)

	_, err = st.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, st.CreateSession(ctx, Session{
		Token: "tok-old", UserID: u.UserID,
		CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour),
	}))
	n, err := st.DeleteExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, st.DeleteSession(ctx, "tok-1"))
	_, err = st.GetSession(ctx, "tok-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserAdminFlows(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()
	u, _ := seedUser(t, st, "admin-flow@x.co")

	require.NoError(t, st.SetUserActive(ctx, u.UserID, false))
	got, err := st.GetUser(ctx, u.UserID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	require.NoError(t, st.SetUserRole(ctx, u.UserID, RoleAdmin))
	got, err = st.GetUser(ctx, u.UserID)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, got.Role)

	assert.Error(t, st.SetUserRole(ctx, u.UserID, "superuser"))
	assert.ErrorIs(t, st.SetUserActive(ctx, "missing", true), ErrNotFound)

	users, err := st.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, 1, users[0].Accounts)
}

func TestOrdersListAndFilter(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()
	_, acct := seedUser(t, st, "orders@x.co")

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	filled := base.Add(time.Minute)
	orders := []Order{
		{OrderID: "O1", AccountID: acct.AccountID, Symbol: "SPY240621C00470000", Side: SideBuy, Type: OrderMarket, Quantity: 1, FillPrice: 5.1, Status: StatusFilled, PlacedAt: base, FilledAt: &filled},
		{OrderID: "O2", AccountID: acct.AccountID, Symbol: "SPY240621C00470000", Side: SideBuy, Type: OrderLimit, Quantity: 2, LimitPrice: 4.0, Status: StatusRejected, Reason: "limit not marketable", PlacedAt: base.Add(time.Hour)},
	}
	for _, o := range orders {
		require.NoError(t, st.InsertOrder(ctx, o))
	}

	all, err := st.ListOrders(ctx, acct.AccountID, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "O2", all[0].OrderID) // newest first

	rejected, err := st.ListOrders(ctx, acct.AccountID, StatusRejected, 0)
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.Equal(t, "limit not marketable", rejected[0].Reason)
	assert.Nil(t, rejected[0].FilledAt)

	one, err := st.ListOrders(ctx, acct.AccountID, "", 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)

	got, err := st.GetOrder(ctx, "O1")
	require.NoError(t, err)
	require.NotNil(t, got.FilledAt)
	assert.WithinDuration(t, filled, *got.FilledAt, time.Second)

	_, err = st.GetOrder(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApplyExecutionAtomicity(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()
	_, acct := seedUser(t, st, "exec@x.co")

	now := time.Now().UTC()
	pos := Position{
		PositionID: id.New(), AccountID: acct.AccountID,
		Symbol: "SPY240621C00470000", Quantity: 2, AvgPrice: 5.0,
		MarkPrice: 5.2, UnrealizedPL: 40, OpenedAt: now, UpdatedAt: now,
	}
	acct.Cash -= 1000
	acct.Equity = acct.Cash + 2*5.2*100

	err := st.ApplyExecution(ctx, Execution{
		Order: Order{
			OrderID: id.New(), AccountID: acct.AccountID,
			Symbol: pos.Symbol, Side: SideBuy, Type: OrderMarket,
			Quantity: 2, FillPrice: 5.0, Status: StatusFilled,
			PlacedAt: now, FilledAt: &now,
		},
		UpsertPositions: []Position{pos},
		Account:         &acct,
	})
	require.NoError(t, err)

	got, err := st.GetPosition(ctx, acct.AccountID, pos.Symbol)
	require.NoError(t, err)
	assert.Equal(t, 2.0, got.Quantity)

	gotAcct, err := st.GetAccount(ctx, acct.AccountID)
	require.NoError(t, err)
	assert.Equal(t, acct.Cash, gotAcct.Cash)

	// Same symbol again upserts rather than duplicating.
	pos.Quantity = 3
	require.NoError(t, st.ApplyExecution(ctx, Execution{
		Order: Order{
			OrderID: id.New(), AccountID: acct.AccountID,
			Symbol: pos.Symbol, Side: SideBuy, Type: OrderMarket,
			Quantity: 1, FillPrice: 5.0, Status: StatusFilled,
			PlacedAt: now, FilledAt: &now,
		},
		UpsertPositions: []Position{pos},
		Account:         &acct,
	}))

	positions, err := st.ListPositions(ctx, acct.AccountID)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, 3.0, positions[0].Quantity)

	// Close deletes the row.
	require.NoError(t, st.ApplyExecution(ctx, Execution{
		Order: Order{
			OrderID: id.New(), AccountID: acct.AccountID,
			Symbol: pos.Symbol, Side: SideSell, Type: OrderMarket,
			Quantity: 3, FillPrice: 5.5, Status: StatusFilled,
			PlacedAt: now, FilledAt: &now,
		},
		ClosedPositions: []string{pos.Symbol},
		Account:         &acct,
	}))
	positions, err = st.ListPositions(ctx, acct.AccountID)
	require.NoError(t, err)
	assert.Empty(t, positions)

	// A batch against a missing account rolls everything back.
	badAcct := acct
	badAcct.AccountID = "missing"
	badOrder := Order{
		OrderID: id.New(), AccountID: acct.AccountID,
		Symbol: pos.Symbol, Side: SideBuy, Type: OrderMarket,
		Quantity: 1, FillPrice: 5.0, Status: StatusFilled,
		PlacedAt: now, FilledAt: &now,
	}
	err = st.ApplyExecution(ctx, Execution{Order: badOrder, Account: &badAcct})
	require.Error(t, err)
	_, err = st.GetOrder(ctx, badOrder.OrderID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStrategiesCRUD(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()
	u, _ := seedUser(t, st, "strat@x.co")

	now := time.Now().UTC()
	strat := Strategy{
		StrategyID: id.New(), UserID: u.UserID,
		Name: "SPY Iron Condor", Kind: "iron_condor",
		Legs:  []byte(`[{"symbol":"SPY240621C00480000","side":"sell","quantity":1}]`),
		Notes: "weekly income", CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, st.CreateStrategy(ctx, strat))

	got, err := st.GetStrategy(ctx, strat.StrategyID)
	require.NoError(t, err)
	assert.Equal(t, "SPY Iron Condor", got.Name)
	assert.JSONEq(t, string(strat.Legs), string(got.Legs))

	got.Name = "Renamed"
	got.UpdatedAt = now.Add(time.Minute)
	require.NoError(t, st.UpdateStrategy(ctx, got))

	list, err := st.ListStrategies(ctx, u.UserID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Renamed", list[0].Name)

	require.NoError(t, st.DeleteStrategy(ctx, strat.StrategyID))
	_, err = st.GetStrategy(ctx, strat.StrategyID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, st.DeleteStrategy(ctx, strat.StrategyID), ErrNotFound)
}

func TestBacktestsCRUD(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()
	u, _ := seedUser(t, st, "bt@x.co")

	now := time.Now().UTC()
	strat := Strategy{StrategyID: id.New(), UserID: u.UserID, Name: "S", Legs: []byte(`[]`), CreatedAt: now, UpdatedAt: now}
	require.NoError(t, st.CreateStrategy(ctx, strat))

	bt := BacktestRun{
		RunID: id.New(), StrategyID: strat.StrategyID, UserID: u.UserID,
		StartedAt: now.Add(-time.Hour), FinishedAt: now,
		InitialBalance: 100_000, FinalBalance: 112_500,
		TotalTrades: 42, WinRate: 0.62, MaxDrawdown: 0.08, Sharpe: 1.4,
		EquityCurve: []byte(`[100000,105000,112500]`),
		CreatedAt:   now,
	}
	require.NoError(t, st.CreateBacktest(ctx, bt))

	got, err := st.GetBacktest(ctx, bt.RunID)
	require.NoError(t, err)
	assert.Equal(t, 42, got.TotalTrades)
	assert.Equal(t, strat.StrategyID, got.StrategyID)
	assert.JSONEq(t, `[100000,105000,112500]`, string(got.EquityCurve))

	// Deleting the strategy keeps the run, with strategy_id nulled.
	require.NoError(t, st.DeleteStrategy(ctx, strat.StrategyID))
	got, err = st.GetBacktest(ctx, bt.RunID)
	require.NoError(t, err)
	assert.Empty(t, got.StrategyID)

	list, err := st.ListBacktests(ctx, u.UserID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, st.DeleteBacktest(ctx, bt.RunID))
	_, err = st.GetBacktest(ctx, bt.RunID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPlatformStats(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()
	u, _ := seedUser(t, st, "stats@x.co")
	require.NoError(t, st.SetUserActive(ctx, u.UserID, false))
	_, _ = seedUser(t, st, "stats2@x.co")

	stats, err := st.GetPlatformStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Users)
	assert.Equal(t, 1, stats.ActiveUsers)
	assert.Equal(t, 2, stats.Accounts)
	assert.Equal(t, 200_000.0, stats.TotalCash)
}
