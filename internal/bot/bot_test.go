package bot

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"tournament_bot/internal/api"
	"tournament_bot/internal/chat"
	"tournament_bot/internal/chat/chattest"
	"tournament_bot/internal/domain"
	"tournament_bot/internal/ledger"
	"tournament_bot/internal/ledger/ledgertest"
	"tournament_bot/internal/lock"
	"tournament_bot/internal/notify"
	"tournament_bot/internal/payment"
	"tournament_bot/internal/payout"
	"tournament_bot/internal/scenes"
	"tournament_bot/internal/session"
	"tournament_bot/internal/utils"
	"tournament_bot/internal/wizard"

	"github.com/alicebob/miniredis/v2"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const adminTG = 900

type fixedOTP struct{}

func (fixedOTP) Send(context.Context, string) (string, error) { return "123456", nil }

type answers struct {
	mu   sync.Mutex
	seen map[string]string
}

func (a *answers) Answer(_ context.Context, id, text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seen[id] = text
	return nil
}

func (a *answers) get(id string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	text, ok := a.seen[id]
	return text, ok
}

type fixture struct {
	t       *testing.T
	bot     *Bot
	store   *ledger.Store
	engine  *wizard.Engine
	out     *chattest.Recorder
	answers *answers
	sandbox *payment.Sandbox
	mr      *miniredis.Miniredis
	hook    *logtest.Hook
	nextCB  int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, _ := ledgertest.NewStore(t)
	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	out := chattest.New()
	notifier := notify.New(out, 0, 4, log)
	sbx := payment.NewSandbox("secret", "https://pay.test")
	deps := &scenes.Deps{
		Store:    store,
		Payments: sbx,
		OTP:      fixedOTP{},
		Notifier: notifier,
		Rules: scenes.Rules{
			MinDeposit:    decimal.NewFromInt(10),
			MinWithdrawal: decimal.NewFromInt(100),
			AdminIDs:      []int64{adminTG},
			MerchantUPI:   "arena@upi",
		},
		Location: time.UTC,
		OTPCost:  bcrypt.MinCost,
		Log:      log,
	}
	engine := wizard.NewEngine(session.NewMemoryStore(0), lock.NewLocal(), out, log, scenes.All(deps)...)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	ans := &answers{seen: make(map[string]string)}
	b := New(engine, deps, payout.New(store, sbx, lock.NewLocal(), notifier, log), rdb, out, ans, Config{
		Username:  "arena_bot",
		AdminIDs:  []int64{adminTG},
		JWTSecret: "jwt-secret",
		JWTTTL:    time.Hour,
		Workers:   4,
	}, log)
	return &fixture{t: t, bot: b, store: store, engine: engine, out: out, answers: ans, sandbox: sbx, mr: mr, hook: hook}
}

func message(from int64, text string) tgbotapi.Update {
	m := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: from, FirstName: "Player"},
		Chat:      &tgbotapi.Chat{ID: from, Type: "private"},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		cmd, _, _ := strings.Cut(text, " ")
		m.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return tgbotapi.Update{Message: m}
}

func (f *fixture) send(from int64, text string) {
	f.t.Helper()
	f.bot.HandleUpdate(context.Background(), message(from, text))
}

// press sends a callback query and returns the toast it was answered with
func (f *fixture) press(from int64, data string) string {
	f.t.Helper()
	f.nextCB++
	id := "cb" + strconv.Itoa(f.nextCB)
	f.bot.HandleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      id,
		From:    &tgbotapi.User{ID: from},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: from}},
		Data:    data,
	}})
	toast, ok := f.answers.get(id)
	require.True(f.t, ok, "callback %s was not answered", data)
	return toast
}

// button returns the data of the latest scene button offering action
func (f *fixture) button(tg int64, action string) string {
	f.t.Helper()
	msgs := f.out.To(tg)
	for i := len(msgs) - 1; i >= 0; i-- {
		for _, row := range msgs[i].Buttons {
			for _, b := range row {
				if ev, ok := wizard.ParseCallback(b.Data); ok && ev.Action == action {
					return b.Data
				}
			}
		}
	}
	f.t.Fatalf("no %s button sent to %d", action, tg)
	return ""
}

func (f *fixture) scene(tg int64) string {
	f.t.Helper()
	name, _, err := f.engine.Active(context.Background(), tg)
	require.NoError(f.t, err)
	return name
}

func (f *fixture) logged(msg string) bool {
	for _, e := range f.hook.AllEntries() {
		if e.Message == msg {
			return true
		}
	}
	return false
}

func TestStartForNewUserRecordsReferral(t *testing.T) {
	f := newFixture(t)
	ledgertest.SeedUser(t, f.store, 100, 0)

	f.send(200, "/start 100")
	msgs := f.out.To(200)
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Text, "Welcome to the BGMI Tournament Bot")
	assert.Equal(t, guestMenu, msgs[0].Menu)
	assert.Contains(t, msgs[1].Text, "invited by a friend")

	// the first link wins
	f.send(200, "/start 100")
	assert.Len(t, f.out.To(200), 3)
}

func TestStartForRegisteredUserShowsBalance(t *testing.T) {
	f := newFixture(t)
	ledgertest.SeedUser(t, f.store, 100, 250)

	f.send(100, "/start")
	last := f.out.Last(100)
	assert.Contains(t, last.Text, "Welcome back, Player")
	assert.Contains(t, last.Text, "₹250")
	assert.Equal(t, playerMenu, last.Menu)

	ledgertest.SeedUser(t, f.store, adminTG, 0)
	f.send(adminTG, "/start")
	assert.Contains(t, f.out.Last(adminTG).Menu, []string{labelCreate, labelResults})
}

func TestMenuLabelOpensScene(t *testing.T) {
	f := newFixture(t)
	ledgertest.SeedUser(t, f.store, 100, 0)

	f.send(100, labelDeposit)
	assert.Equal(t, scenes.Deposit, f.scene(100))
	assert.True(t, f.out.Contains(100, "How much do you want to add?"))
}

func TestCommandReplacesActiveScene(t *testing.T) {
	f := newFixture(t)
	ledgertest.SeedUser(t, f.store, 100, 500)

	f.send(100, "/deposit")
	require.Equal(t, scenes.Deposit, f.scene(100))
	f.send(100, "/withdraw")
	assert.Equal(t, scenes.Withdraw, f.scene(100))
	assert.True(t, f.logged("Scene abandoned"))

	f.send(100, "/cancel")
	assert.Empty(t, f.scene(100))
	assert.Equal(t, "Cancelled.", f.out.Last(100).Text)
	f.send(100, "/cancel")
	assert.Equal(t, "Nothing to cancel.", f.out.Last(100).Text)
}

func TestTextRoutesToActiveScene(t *testing.T) {
	f := newFixture(t)
	ledgertest.SeedUser(t, f.store, 100, 0)

	f.send(100, "hello")
	assert.Equal(t, unknownText, f.out.Last(100).Text)

	f.send(100, "/deposit")
	f.send(100, "150")
	assert.True(t, f.out.Contains(100, "Pay ₹150 with:"))

	toast := f.press(100, f.button(100, "method"))
	assert.Empty(t, toast)
	assert.Empty(t, f.scene(100))
	var link chat.Button
	for _, row := range f.out.Last(100).Buttons {
		for _, b := range row {
			if b.URL != "" {
				link = b
			}
		}
	}
	assert.True(t, strings.HasPrefix(link.URL, "https://pay.test/"), link.URL)
}

func TestStaleSceneButtonIsExpired(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, expiredText, f.press(100, "wz|method|upi"))
	assert.Equal(t, expiredText, f.press(100, "garbage"))
}

func TestOldConfirmButtonDoesNotReachLaterScene(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ledgertest.SeedUser(t, f.store, adminTG, 500)
	tr := ledgertest.SeedTournament(t, f.store, 0, 3)
	for i := int64(1); i <= 3; i++ {
		u := ledgertest.SeedUser(t, f.store, i, 0)
		_, err := f.store.JoinWithWallet(ctx, u.ID, tr.ID)
		require.NoError(t, err)
	}

	f.send(adminTG, "/withdraw")
	f.send(adminTG, "100")
	f.press(adminTG, f.button(adminTG, "saved"))
	oldConfirm := f.button(adminTG, "confirm")
	f.send(adminTG, "/cancel")

	f.press(adminTG, scenes.CallbackID(scenes.CallbackResults, tr.ID))
	require.Equal(t, scenes.EnterResults, f.scene(adminTG))
	for _, kills := range []string{"3", "0", "1"} {
		f.send(adminTG, kills)
	}
	f.press(adminTG, f.button(adminTG, "winner"))

	assert.Equal(t, expiredText, f.press(adminTG, oldConfirm))
	assert.Equal(t, scenes.EnterResults, f.scene(adminTG))
	got, err := f.store.TournamentByID(ctx, tr.ID)
	require.NoError(t, err)
	assert.NotEqual(t, domain.TournamentCompleted, got.Status)
	results, err := f.store.Results(ctx, tr.ID)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.True(t, f.logged("Button from another session ignored"))

	ws, err := f.store.Withdrawals(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, ws)

	assert.Empty(t, f.press(adminTG, f.button(adminTG, "confirm")))
	got, err = f.store.TournamentByID(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TournamentCompleted, got.Status)
}

func TestBannedUserIsRefused(t *testing.T) {
	f := newFixture(t)
	ledgertest.SeedUser(t, f.store, 100, 0)
	require.NoError(t, f.store.SetBanned(context.Background(), 100, true))

	f.send(100, "/deposit")
	assert.Equal(t, bannedText, f.out.Last(100).Text)
	assert.Empty(t, f.scene(100))
	assert.Equal(t, bannedText, f.press(100, "tj:1"))
}

func TestJoinByCodeAndDeepLink(t *testing.T) {
	f := newFixture(t)
	u := ledgertest.SeedUser(t, f.store, 100, 500)
	tr := ledgertest.SeedTournament(t, f.store, 50, 10)

	f.send(100, "/join nope")
	assert.True(t, f.out.Contains(100, "No tournament with code nope"))
	f.send(100, "/join")
	assert.True(t, f.out.Contains(100, "Usage: /join"))

	f.send(100, "/join "+tr.Code)
	assert.Equal(t, scenes.JoinTournament, f.scene(100))
	f.send(100, "/cancel")

	f.send(100, "/start "+joinLinkPrefix+tr.Code)
	assert.Equal(t, scenes.JoinTournament, f.scene(100))
	f.press(100, f.button(100, "wallet"))
	assert.Empty(t, f.scene(100))

	reg, err := f.store.Registration(context.Background(), u.ID, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RegistrationCompleted, reg.PaymentStatus)

	f.send(100, "/mytournaments")
	assert.True(t, f.out.Contains(100, "Sunday Scrim [open]"))
}

func TestTournamentsListOffersJoin(t *testing.T) {
	f := newFixture(t)
	f.send(100, "/tournaments")
	assert.True(t, f.out.Contains(100, "No tournaments are open"))

	tr := ledgertest.SeedTournament(t, f.store, 50, 10)
	f.send(100, "/tournaments")
	last := f.out.Last(100)
	assert.Contains(t, last.Text, "Sunday Scrim")
	assert.Contains(t, last.Text, "Slots: 0/10 (10 left)")
	require.Len(t, last.Buttons, 1)
	require.Len(t, last.Buttons[0], 2)
	assert.Equal(t, scenes.CallbackID(scenes.CallbackJoin, tr.ID), last.Buttons[0][1].Data)

	assert.Empty(t, f.press(100, scenes.CallbackID(scenes.CallbackDetails, tr.ID)))
	assert.Contains(t, f.out.Last(100).Text, "Status: open")
	assert.Equal(t, "Tournament not found", f.press(100, scenes.CallbackID(scenes.CallbackDetails, 999)))
}

func TestAdminApprovesWithdrawalFromButton(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := ledgertest.SeedUser(t, f.store, 100, 500)
	w, _, err := f.store.RequestWithdrawal(ctx, u.ID, decimal.NewFromInt(200), "player@upi")
	require.NoError(t, err)

	f.send(100, "/withdrawals")
	assert.Equal(t, adminOnly, f.out.Last(100).Text)

	f.send(adminTG, "/withdrawals")
	last := f.out.Last(adminTG)
	assert.Contains(t, last.Text, "Withdrawal #"+strconv.FormatUint(uint64(w.ID), 10))
	require.Len(t, last.Buttons, 1)
	approve := last.Buttons[0][0].Data

	assert.Equal(t, "Admins only", f.press(100, approve))
	assert.Empty(t, f.sandbox.Payouts())

	assert.Equal(t, "Approved", f.press(adminTG, approve))
	assert.Len(t, f.sandbox.Payouts(), 1)
	assert.True(t, f.out.Contains(100, "has been sent"))
	assert.Equal(t, "Already processed", f.press(adminTG, approve))
	assert.Equal(t, "Withdrawal not found", f.press(adminTG, scenes.CallbackID(scenes.CallbackReject, 999)))
}

func TestAdminRejectsWithdrawalFromButton(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := ledgertest.SeedUser(t, f.store, 100, 500)
	w, _, err := f.store.RequestWithdrawal(ctx, u.ID, decimal.NewFromInt(200), "player@upi")
	require.NoError(t, err)

	assert.Equal(t, "Rejected", f.press(adminTG, scenes.CallbackID(scenes.CallbackReject, w.ID)))
	bal, err := f.store.Balance(ctx, u.ID)
	require.NoError(t, err)
	ledgertest.RequireAmount(t, 500, bal)
	assert.True(t, f.out.Contains(100, "refunded to your wallet"))
}

func TestAdminConfirmsDirectPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := ledgertest.SeedUser(t, f.store, 100, 0)
	tr := ledgertest.SeedTournament(t, f.store, 50, 1)
	reg, err := f.store.CreatePendingRegistration(ctx, u.ID, tr.ID)
	require.NoError(t, err)

	data := scenes.Callback(scenes.CallbackConfirm, reg.Reference)
	assert.Equal(t, "Confirmed", f.press(adminTG, data))
	assert.True(t, f.out.Contains(adminTG, "room details were sent"))
	assert.True(t, f.out.Contains(100, "payment was confirmed"))
	assert.True(t, f.out.Contains(100, "Room ID: "))
	assert.Equal(t, "Already confirmed or tournament closed", f.press(adminTG, data))
}

func TestResultsListNeedsAdmin(t *testing.T) {
	f := newFixture(t)
	f.send(100, "/results")
	assert.Equal(t, adminOnly, f.out.Last(100).Text)
	f.send(adminTG, "/results")
	assert.Equal(t, "No tournaments are waiting for results.", f.out.Last(adminTG).Text)
}

func TestLeaderboardIsCached(t *testing.T) {
	f := newFixture(t)
	f.send(100, "/leaderboard")
	last := f.out.Last(100).Text
	assert.Contains(t, last, "Top Killers")
	assert.Contains(t, last, "No data yet.")
	assert.True(t, f.mr.Exists(api.LeaderboardKey(leaderboardSize)))
}

func TestProfileCommandsNeedRegistration(t *testing.T) {
	f := newFixture(t)
	for _, cmd := range []string{"/balance", "/profile", "/referral", "/mytournaments", "/notify on"} {
		f.send(100, cmd)
		assert.Equal(t, registerFirst, f.out.Last(100).Text, cmd)
	}

	ledgertest.SeedUser(t, f.store, 100, 75)
	f.send(100, "/balance")
	assert.Equal(t, "💰 Your balance: ₹75", f.out.Last(100).Text)
	f.send(100, "/referral")
	assert.Contains(t, f.out.Last(100).Text, "https://t.me/arena_bot?start=100")
}

func TestNotifyToggle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ledgertest.SeedUser(t, f.store, 100, 0)

	f.send(100, "/notify off")
	u, err := f.store.UserByTelegramID(ctx, 100)
	require.NoError(t, err)
	assert.False(t, u.TournamentNotifications)

	f.send(100, "/notify on")
	u, err = f.store.UserByTelegramID(ctx, 100)
	require.NoError(t, err)
	assert.True(t, u.TournamentNotifications)

	f.send(100, "/notify maybe")
	assert.Contains(t, f.out.Last(100).Text, "Usage")
}

func TestAPITokenForAdmins(t *testing.T) {
	f := newFixture(t)
	f.send(100, "/apitoken")
	assert.Equal(t, adminOnly, f.out.Last(100).Text)

	f.send(adminTG, "/apitoken")
	text := f.out.Last(adminTG).Text
	_, token, ok := strings.Cut(text, "\n\n")
	require.True(t, ok)
	claims, err := utils.ParseJWT(token, "jwt-secret")
	require.NoError(t, err)
	assert.Equal(t, int64(adminTG), claims.TelegramID)
}

func TestServeKeepsPerUserOrder(t *testing.T) {
	f := newFixture(t)
	for _, tg := range []int64{100, 101, 102} {
		ledgertest.SeedUser(t, f.store, tg, 0)
	}
	updates := make(chan tgbotapi.Update, 16)
	for _, tg := range []int64{100, 101, 102} {
		updates <- message(tg, "/deposit")
	}
	for _, tg := range []int64{100, 101, 102} {
		updates <- message(tg, "40")
	}
	close(updates)

	require.NoError(t, f.bot.Serve(context.Background(), updates))
	for _, tg := range []int64{100, 101, 102} {
		assert.True(t, f.out.Contains(tg, "Pay ₹40 with:"), "user %d", tg)
		assert.Equal(t, scenes.Deposit, f.scene(tg))
	}
}

func TestServeStopsWithContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.bot.Serve(ctx, make(chan tgbotapi.Update)) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestAdminBroadcastFromMenu(t *testing.T) {
	f := newFixture(t)
	ledgertest.SeedUser(t, f.store, 100, 0)

	f.send(100, labelBroadcast)
	assert.Equal(t, wizard.PermissionText, f.out.Last(100).Text)
	assert.Empty(t, f.scene(100))

	f.send(adminTG, labelBroadcast)
	require.Equal(t, scenes.Broadcast, f.scene(adminTG))
	f.send(adminTG, "Finals move to Sunday")
	f.press(adminTG, f.button(adminTG, "send"))
	assert.Empty(t, f.scene(adminTG))
	f.bot.scenes.Wait()

	assert.True(t, f.out.Contains(100, "Finals move to Sunday"))
	assert.True(t, f.out.Contains(adminTG, "Success: 1"))
}

func TestAdminAnalytics(t *testing.T) {
	f := newFixture(t)
	ledgertest.SeedUser(t, f.store, 100, 250)
	ledgertest.SeedTournament(t, f.store, 50, 50)

	f.send(100, "/analytics")
	assert.Equal(t, adminOnly, f.out.Last(100).Text)

	f.send(adminTG, labelAnalytics)
	text := f.out.Last(adminTG).Text
	assert.Contains(t, text, "Total Users: 1")
	assert.Contains(t, text, "New Users (7 days): 1")
	assert.Contains(t, text, "Total Tournaments: 1")
	assert.Contains(t, text, "Total Deposits: ₹250")
	assert.Contains(t, text, "Net Balance: ₹250")
}

func TestAdminOpensTournamentEditor(t *testing.T) {
	f := newFixture(t)
	ledgertest.SeedUser(t, f.store, 100, 0)
	tr := ledgertest.SeedTournament(t, f.store, 50, 10)
	edit := scenes.CallbackID(scenes.CallbackEdit, tr.ID)

	f.send(100, "/tournaments")
	for _, b := range f.out.Last(100).Buttons[0] {
		assert.NotEqual(t, edit, b.Data)
	}
	assert.Equal(t, "Admins only", f.press(100, edit))
	assert.Empty(t, f.scene(100))

	f.send(adminTG, "/tournaments")
	row := f.out.Last(adminTG).Buttons[0]
	require.Len(t, row, 3)
	assert.Equal(t, edit, row[2].Data)
	f.press(adminTG, edit)
	assert.Equal(t, scenes.EditTournament, f.scene(adminTG))
	f.send(adminTG, "/cancel")

	f.send(adminTG, "/edit "+tr.Code)
	assert.Equal(t, scenes.EditTournament, f.scene(adminTG))
	f.send(adminTG, "/edit nope")
	assert.Equal(t, "No tournament with code nope.", f.out.Last(adminTG).Text)
}
