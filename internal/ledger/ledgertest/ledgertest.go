// Package ledgertest builds throwaway SQLite-backed stores for tests.
package ledgertest

import (
	"context"
	"io"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"tournament_bot/internal/db"
	"tournament_bot/internal/domain"
	"tournament_bot/internal/ledger"
	"tournament_bot/internal/utils"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB opens a migrated SQLite database in a temp dir. A single connection
// serialises transactions the way row locks would on MySQL.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	gdb, err := gorm.Open(sqlite.Open(path+"?_pragma=busy_timeout(5000)"), db.GormConfig(QuietLogger(), false))
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(gdb))
	return gdb
}

// QuietLogger discards output
func QuietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// NewStore returns a store over a fresh database
func NewStore(t testing.TB, opts ...ledger.Option) (*ledger.Store, *gorm.DB) {
	t.Helper()
	gdb := NewDB(t)
	return ledger.New(gdb, QuietLogger(), opts...), gdb
}

// UserOpt tweaks a seeded user
type UserOpt func(*ledger.NewUser)

// WithMobile overrides the generated mobile number
func WithMobile(m string) UserOpt { return func(u *ledger.NewUser) { u.Mobile = m } }

// SeedUser registers a complete profile for telegramID and funds it with
// balance through a completed deposit, so the ledger stays consistent.
func SeedUser(t testing.TB, s *ledger.Store, telegramID int64, balance int64, opts ...UserOpt) *domain.User {
	t.Helper()
	ctx := context.Background()
	in := ledger.NewUser{
		TelegramID:   telegramID,
		Name:         "Player",
		Mobile:       mobileFor(telegramID),
		UPIID:        "player@upi",
		GameName:     "P" + strconv.FormatInt(telegramID, 10),
		GamePlayerID: "51234567",
	}
	for _, o := range opts {
		o(&in)
	}
	res, err := s.Register(ctx, in)
	require.NoError(t, err)
	if balance > 0 {
		Fund(t, s, res.User.ID, balance)
	}
	u, err := s.UserByID(ctx, res.User.ID)
	require.NoError(t, err)
	return u
}

// Fund credits amount through a completed deposit
func Fund(t testing.TB, s *ledger.Store, userID uint, amount int64) {
	t.Helper()
	ctx := context.Background()
	p := &domain.Payment{
		UserID:  userID,
		Amount:  decimal.NewFromInt(amount),
		OrderID: utils.NewReference("order"),
		Gateway: "sandbox",
		Method:  domain.MethodUPI,
	}
	require.NoError(t, s.CreatePayment(ctx, p))
	_, fresh, err := s.CompletePayment(ctx, p.OrderID, "pay_seed")
	require.NoError(t, err)
	require.True(t, fresh)
}

// SeedTournament creates an open tournament starting in a day
func SeedTournament(t testing.TB, s *ledger.Store, fee int64, maxPlayers int) *domain.Tournament {
	t.Helper()
	tr := &domain.Tournament{
		Name:          "Sunday Scrim",
		Mode:          domain.ModeSquad,
		Map:           "erangel",
		EntryFee:      decimal.NewFromInt(fee),
		PerKillReward: decimal.NewFromInt(10),
		WinnerPrize:   decimal.NewFromInt(500),
		MaxPlayers:    maxPlayers,
		StartTime:     time.Now().Add(24 * time.Hour),
		CreatedBy:     1,
	}
	require.NoError(t, s.CreateTournament(context.Background(), tr))
	return tr
}

// RequireAmount compares a decimal with an integer rupee amount
func RequireAmount(t testing.TB, want int64, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, got.Equal(decimal.NewFromInt(want)), "want %d, got %s", want, got.String())
}

// mobileFor derives a valid, unique Indian mobile number from an id
func mobileFor(id int64) string {
	n := 9000000000 + id%1000000000
	return strconv.FormatInt(n, 10)
}
