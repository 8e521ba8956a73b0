package scheduler

import (
	"context"
	"testing"
	"time"

	"tournament_bot/internal/chat/chattest"
	"tournament_bot/internal/domain"
	"tournament_bot/internal/ledger"
	"tournament_bot/internal/ledger/ledgertest"
	"tournament_bot/internal/notify"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*Jobs, *ledger.Store, *chattest.Recorder) {
	t.Helper()
	store, _ := ledgertest.NewStore(t)
	log := ledgertest.QuietLogger()
	out := chattest.New()
	return NewJobs(store, notify.New(out, 0, 2, log), time.UTC, log), store, out
}

func tournamentAt(t *testing.T, s *ledger.Store, name string, start time.Time, maxPlayers int) *domain.Tournament {
	t.Helper()
	tr := &domain.Tournament{
		Name:          name,
		Mode:          domain.ModeSolo,
		Map:           "erangel",
		EntryFee:      decimal.NewFromInt(20),
		PerKillReward: decimal.NewFromInt(5),
		WinnerPrize:   decimal.NewFromInt(100),
		MaxPlayers:    maxPlayers,
		StartTime:     start,
	}
	require.NoError(t, s.CreateTournament(context.Background(), tr))
	return tr
}

func join(t *testing.T, s *ledger.Store, tg int64, tournamentID uint) {
	t.Helper()
	u := ledgertest.SeedUser(t, s, tg, 100)
	_, err := s.JoinWithWallet(context.Background(), u.ID, tournamentID)
	require.NoError(t, err)
}

func TestSendRemindersOncePerTournament(t *testing.T) {
	jobs, store, out := setup(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 15, 18, 0, 0, 0, time.UTC)
	jobs.now = func() time.Time { return now }

	soon := tournamentAt(t, store, "Evening Cup", now.Add(30*time.Minute), 50)
	later := tournamentAt(t, store, "Night Cup", now.Add(3*time.Hour), 50)
	join(t, store, 100, soon.ID)
	join(t, store, 101, soon.ID)
	join(t, store, 102, later.ID)
	out.Reset()

	n, err := jobs.SendReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, out.Contains(100, "Evening Cup starts in 30 minutes (18:30)"))
	assert.True(t, out.Contains(101, "Room details will be shared"))
	assert.Empty(t, out.To(102))

	n, err = jobs.SendReminders(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, out.To(100), 1)
}

func TestReminderIncludesRoomForReadyTournament(t *testing.T) {
	jobs, store, out := setup(t)
	now := time.Now()
	jobs.now = func() time.Time { return now }

	tr := tournamentAt(t, store, "Duel", now.Add(10*time.Minute), 1)
	join(t, store, 100, tr.ID)
	out.Reset()

	_, err := jobs.SendReminders(context.Background())
	require.NoError(t, err)
	ready, err := store.TournamentByID(context.Background(), tr.ID)
	require.NoError(t, err)
	require.NotNil(t, ready.RoomID)
	assert.True(t, out.Contains(100, "Room ID: "+*ready.RoomID))
}

func TestStartDueMovesReadyToLive(t *testing.T) {
	jobs, store, _ := setup(t)
	ctx := context.Background()
	start := time.Now().Add(time.Hour)

	full := tournamentAt(t, store, "Full", start, 1)
	open := tournamentAt(t, store, "Open", start, 10)
	join(t, store, 100, full.ID)

	jobs.now = func() time.Time { return start.Add(-time.Minute) }
	n, err := jobs.StartDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	jobs.now = func() time.Time { return start.Add(time.Minute) }
	n, err = jobs.StartDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := store.TournamentByID(ctx, full.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TournamentLive, got.Status)
	got, err = store.TournamentByID(ctx, open.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TournamentOpen, got.Status)
}

func TestStartRunsJobsImmediately(t *testing.T) {
	jobs, store, out := setup(t)
	tr := tournamentAt(t, store, "Lunch Cup", time.Now().Add(20*time.Minute), 50)
	join(t, store, 100, tr.ID)
	out.Reset()

	s, err := Start(context.Background(), jobs, time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown() })

	require.Eventually(t, func() bool { return out.Contains(100, "Lunch Cup starts in") }, 2*time.Second, 10*time.Millisecond)
	assert.Len(t, s.Jobs(), 2)
}
