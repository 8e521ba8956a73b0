package scenes

import (
	"context"
	"testing"
	"time"

	"tournament_bot/internal/domain"
	"tournament_bot/internal/ledger/ledgertest"
	"tournament_bot/internal/wizard"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminBroadcast(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ledgertest.SeedUser(t, h.store, 1, 0)
	ledgertest.SeedUser(t, h.store, 2, 0)
	ledgertest.SeedUser(t, h.store, 3, 0)
	require.NoError(t, h.store.SetBanned(ctx, 3, true))
	h.out.FailFor(2)
	a := admin()

	h.enter(a, Broadcast, nil)
	h.text(a, "   ")
	assert.True(t, h.out.Contains(adminID, "as a text message"))
	h.text(a, "Server maintenance tonight")
	h.press(a, "rewrite", "")
	h.text(a, "Maintenance at 2am")
	assert.True(t, h.out.Contains(adminID, "You are about to send this"))
	h.press(a, "send", "")
	assert.False(t, h.active(a))
	h.deps.Wait()

	assert.True(t, h.out.Contains(1, "📢 Announcement 📢\n\nMaintenance at 2am"))
	assert.False(t, h.out.Contains(1, "Server maintenance"))
	assert.Empty(t, h.out.To(3))
	assert.True(t, h.out.Contains(adminID, "Broadcast complete!\n\nSuccess: 1\nFailed: 1"))
}

func TestAdminBroadcastCancelled(t *testing.T) {
	h := newHarness(t)
	ledgertest.SeedUser(t, h.store, 1, 0)
	a := admin()

	h.enter(a, Broadcast, nil)
	h.text(a, "Never mind")
	h.press(a, "cancel", "")
	assert.False(t, h.active(a))
	h.deps.Wait()
	assert.Empty(t, h.out.To(1))
	assert.Equal(t, "Broadcast cancelled.", h.out.Last(adminID).Text)
}

func TestAdminScenesNeedAdmin(t *testing.T) {
	h := newHarness(t)
	tr := ledgertest.SeedTournament(t, h.store, 50, 50)
	p := actorFor(100)

	h.enter(p, Broadcast, nil)
	assert.False(t, h.active(p))
	assert.Equal(t, wizard.PermissionText, h.out.Last(100).Text)

	h.enter(p, EditTournament, tournamentParam(tr.ID))
	assert.False(t, h.active(p))
	assert.Equal(t, wizard.PermissionText, h.out.Last(100).Text)
}

func TestEditTournamentNotifiesRegistrants(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tr := ledgertest.SeedTournament(t, h.store, 50, 50)
	u := ledgertest.SeedUser(t, h.store, 1, 100)
	_, err := h.store.JoinWithWallet(ctx, u.ID, tr.ID)
	require.NoError(t, err)
	ledgertest.SeedUser(t, h.store, 2, 0)
	a := admin()

	h.enter(a, EditTournament, tournamentParam(tr.ID))
	assert.True(t, h.out.Contains(adminID, "Editing Sunday Scrim"))
	h.press(a, "field", fieldName)
	h.text(a, "x")
	assert.True(t, h.out.Contains(adminID, "3-64 characters"))
	h.text(a, "Sunday Finals")
	h.press(a, "field", fieldMax)
	h.press(a, "max", "75")
	assert.True(t, h.out.Contains(adminID, "Pick a player cap"))
	h.press(a, "max", "100")
	h.press(a, "field", fieldStart)
	h.text(a, "05/03/2099 20:00")
	assert.Contains(t, h.out.Last(adminID).Text, "Sunday Finals")
	assert.Contains(t, h.out.Last(adminID).Text, "Slots: 1/100 (99 left)")
	h.press(a, "save", "")
	assert.False(t, h.active(a))
	h.deps.Wait()

	got, err := h.store.TournamentByID(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sunday Finals", got.Name)
	assert.Equal(t, 100, got.MaxPlayers)
	assert.True(t, got.StartTime.Equal(time.Date(2099, 3, 5, 20, 0, 0, 0, time.UTC)))
	assert.True(t, h.out.Contains(1, "Tournament update"))
	assert.True(t, h.out.Contains(1, "Changed: name, max players, start time"))
	assert.Empty(t, h.out.To(2))
}

func TestEditTournamentFeeLockedOnceJoined(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tr := ledgertest.SeedTournament(t, h.store, 50, 50)
	u := ledgertest.SeedUser(t, h.store, 1, 100)
	_, err := h.store.JoinWithWallet(ctx, u.ID, tr.ID)
	require.NoError(t, err)
	a := admin()

	h.enter(a, EditTournament, tournamentParam(tr.ID))
	h.press(a, "save", "")
	assert.Equal(t, "Nothing to save.", h.out.Last(adminID).Text)
	assert.False(t, h.active(a))

	h.enter(a, EditTournament, tournamentParam(tr.ID))
	h.press(a, "field", fieldFee)
	h.text(a, "20")
	h.press(a, "save", "")
	assert.True(t, h.out.Contains(adminID, "entry fee cannot change once players have registered"))
	assert.True(t, h.active(a))
	h.press(a, "cancel", "")
	assert.False(t, h.active(a))

	got, err := h.store.TournamentByID(ctx, tr.ID)
	require.NoError(t, err)
	ledgertest.RequireAmount(t, 50, got.EntryFee)
}

func TestEditTournamentOnlyWhileOpen(t *testing.T) {
	h := newHarness(t)
	tr := ledgertest.SeedTournament(t, h.store, 0, 50)
	require.NoError(t, h.db.Model(&domain.Tournament{}).Where("id = ?", tr.ID).Update("status", domain.TournamentLive).Error)
	a := admin()

	h.enter(a, EditTournament, tournamentParam(tr.ID))
	assert.False(t, h.active(a))
	assert.True(t, h.out.Contains(adminID, "Only open tournaments can be edited"))

	h.enter(a, EditTournament, tournamentParam(9999))
	assert.False(t, h.active(a))
	assert.True(t, h.out.Contains(adminID, "Tournament not found"))
}
