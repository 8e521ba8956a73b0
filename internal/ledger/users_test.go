package ledger_test

import (
	"context"
	"testing"

	"tournament_bot/internal/domain"
	"tournament_bot/internal/ledger"
	"tournament_bot/internal/ledger/ledgertest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRejectsDuplicates(t *testing.T) {
	s, _ := ledgertest.NewStore(t)
	ctx := context.Background()
	ledgertest.SeedUser(t, s, 1, 0, ledgertest.WithMobile("9123456789"))

	taken, err := s.MobileTaken(ctx, "9123456789")
	require.NoError(t, err)
	assert.True(t, taken)

	_, err = s.Register(ctx, ledger.NewUser{TelegramID: 2, Name: "B", Mobile: "9123456789"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	_, err = s.Register(ctx, ledger.NewUser{TelegramID: 1, Name: "A", Mobile: "9876543210"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestReferralCreditsBothSides(t *testing.T) {
	s, gdb := ledgertest.NewStore(t)
	ctx := context.Background()
	referrer := ledgertest.SeedUser(t, s, 10, 0)

	added, err := s.AddPendingReferral(ctx, referrer.TelegramID, 20)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.AddPendingReferral(ctx, 99, 20)
	require.NoError(t, err)
	assert.False(t, added, "unknown referrer is ignored")

	added, err = s.AddPendingReferral(ctx, 20, 20)
	require.NoError(t, err)
	assert.False(t, added, "self referral is ignored")

	res, err := s.Register(ctx, ledger.NewUser{TelegramID: 20, Name: "New", Mobile: "9988776655", UPIID: "n@upi", GameName: "N", GamePlayerID: "12345678"})
	require.NoError(t, err)
	assert.Equal(t, referrer.TelegramID, res.ReferrerTelegramID)
	ledgertest.RequireAmount(t, 10, res.ReferralBonus)

	for _, id := range []uint{referrer.ID, res.User.ID} {
		bal, err := s.Balance(ctx, id)
		require.NoError(t, err)
		ledgertest.RequireAmount(t, 10, bal)
		requireLedgerConsistent(t, s, id)
	}

	var n int64
	require.NoError(t, gdb.Model(&domain.PendingReferral{}).Count(&n).Error)
	assert.Zero(t, n)

	count, earned, err := s.ReferralStats(ctx, referrer.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	ledgertest.RequireAmount(t, 10, earned)

	count, _, err = s.ReferralStats(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	added, err = s.AddPendingReferral(ctx, referrer.TelegramID, 20)
	require.NoError(t, err)
	assert.False(t, added, "registered users cannot be referred")
}

func TestNotificationAndBanFlags(t *testing.T) {
	s, _ := ledgertest.NewStore(t)
	ctx := context.Background()
	ledgertest.SeedUser(t, s, 1, 0)
	ledgertest.SeedUser(t, s, 2, 0)
	ledgertest.SeedUser(t, s, 3, 0)

	require.NoError(t, s.SetNotifications(ctx, 2, false))
	require.NoError(t, s.SetBanned(ctx, 3, true))
	assert.ErrorIs(t, s.SetBanned(ctx, 404, true), domain.ErrNotFound)

	ids, err := s.NotifiableTelegramIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)

	ids, err = s.ActiveTelegramIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)

	users, total, err := s.ListUsers(ctx, 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, users, 2)

	isAdmin, err := s.IsAdmin(ctx, 404)
	require.NoError(t, err)
	assert.False(t, isAdmin)
}
