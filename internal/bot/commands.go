package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"tournament_bot/internal/api"
	"tournament_bot/internal/chat"
	"tournament_bot/internal/domain"
	"tournament_bot/internal/ledger"
	"tournament_bot/internal/scenes"
	"tournament_bot/internal/utils"

	"github.com/sirupsen/logrus"
)

const (
	registerFirst   = "Please /register first."
	adminOnly       = "⛔ This command is for admins only."
	leaderboardSize = 5
	leaderboardTTL  = 60 * time.Second
	joinLinkPrefix  = "t-"
	listTime        = "02 Jan 2006, 15:04"
)

// command runs a slash command or its keyboard label. Commands that open a
// scene use Replace, so whatever the user was doing is abandoned and logged.
func (b *Bot) command(ctx context.Context, req request, name, args string) error {
	switch name {
	case "start":
		return b.start(ctx, req, args)
	case "help":
		return b.help(ctx, req)
	case "cancel":
		return b.cancel(ctx, req)
	case "register":
		return b.enter(ctx, req, scenes.Register, nil)
	case "deposit":
		return b.enter(ctx, req, scenes.Deposit, nil)
	case "withdraw":
		return b.enter(ctx, req, scenes.Withdraw, nil)
	case "create_tournament":
		return b.enter(ctx, req, scenes.CreateTournament, nil)
	case "edit":
		return b.edit(ctx, req, args)
	case "broadcast":
		return b.enter(ctx, req, scenes.Broadcast, nil)
	case "analytics":
		return b.analytics(ctx, req)
	case "tournaments":
		return b.tournaments(ctx, req)
	case "join":
		return b.join(ctx, req, args)
	case "mytournaments":
		return b.myTournaments(ctx, req)
	case "balance":
		return b.balance(ctx, req)
	case "profile":
		return b.profile(ctx, req)
	case "referral":
		return b.referral(ctx, req)
	case "leaderboard":
		return b.leaderboard(ctx, req)
	case "notify":
		return b.notifications(ctx, req, args)
	case "results":
		return b.results(ctx, req)
	case "withdrawals":
		return b.withdrawals(ctx, req)
	case "apitoken":
		return b.apiToken(ctx, req)
	default:
		return b.reply(ctx, req, "Unknown command. Try /help.")
	}
}

func (b *Bot) enter(ctx context.Context, req request, scene string, params map[string]string) error {
	return b.engine.Replace(ctx, req.actor, scene, params)
}

func (b *Bot) start(ctx context.Context, req request, payload string) error {
	if code, ok := strings.CutPrefix(payload, joinLinkPrefix); ok {
		return b.join(ctx, req, code)
	}
	menu := menuFor(req.registered(), req.actor.IsAdmin)
	if req.registered() {
		return b.send(ctx, req, chat.Message{
			Text: "Welcome back, " + req.user.Name + "! 🎮\n\n" +
				"Your current balance: " + chat.Money(req.user.Balance) + "\n\n" +
				"What would you like to do today?",
			Menu: menu,
		})
	}

	if err := b.send(ctx, req, chat.Message{
		Text: "🎮 Welcome to the BGMI Tournament Bot! 🎮\n\n" +
			"Join tournaments, win cash prizes and withdraw your earnings.\n\n" +
			"To get started, register using the button below.",
		Menu: menu,
	}); err != nil {
		return err
	}
	referrer, err := strconv.ParseInt(payload, 10, 64)
	if err != nil {
		return nil
	}
	added, err := b.store.AddPendingReferral(ctx, referrer, req.actor.UserID)
	if err != nil {
		return err
	}
	if added {
		return b.reply(ctx, req, "You were invited by a friend! You'll both receive a bonus after registration.")
	}
	return nil
}

func (b *Bot) help(ctx context.Context, req request) error {
	var sb strings.Builder
	sb.WriteString("ℹ️ Commands\n\n")
	for _, c := range Commands {
		sb.WriteString("/" + c.Name + " - " + c.Description + "\n")
	}
	if req.actor.IsAdmin {
		sb.WriteString("\nAdmin\n")
		sb.WriteString("/create_tournament - Create a tournament\n")
		sb.WriteString("/results - Enter tournament results\n")
		sb.WriteString("/withdrawals - Review pending withdrawals\n")
		sb.WriteString("/edit <code> - Edit an open tournament\n")
		sb.WriteString("/broadcast - Message every user\n")
		sb.WriteString("/analytics - Platform totals\n")
		sb.WriteString("/apitoken - Get an admin API token\n")
	}
	return b.send(ctx, req, chat.Message{Text: sb.String(), Menu: menuFor(req.registered(), req.actor.IsAdmin)})
}

func (b *Bot) cancel(ctx context.Context, req request) error {
	had, err := b.engine.Cancel(ctx, req.actor)
	if err != nil {
		return err
	}
	text := "Nothing to cancel."
	if had {
		text = "Cancelled."
	}
	return b.send(ctx, req, chat.Message{Text: text, Menu: menuFor(req.registered(), req.actor.IsAdmin)})
}

func (b *Bot) tournaments(ctx context.Context, req request) error {
	list, err := b.store.ListTournaments(ctx, domain.TournamentOpen, domain.TournamentReady)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return b.reply(ctx, req, "No tournaments are open right now. Check back soon!")
	}
	for i := range list {
		t := &list[i]
		if err := b.reply(ctx, req, scenes.TournamentText(t, b.scenes.Location), tournamentButtons(t, req.actor.IsAdmin)); err != nil {
			return err
		}
	}
	return nil
}

func tournamentButtons(t *domain.Tournament, admin bool) []chat.Button {
	row := []chat.Button{{Label: "ℹ️ Details", Data: scenes.CallbackID(scenes.CallbackDetails, t.ID)}}
	if t.Status == domain.TournamentOpen && !t.IsFull() {
		row = append(row, chat.Button{Label: "✅ Join", Data: scenes.CallbackID(scenes.CallbackJoin, t.ID)})
	}
	if admin && t.Status == domain.TournamentOpen {
		row = append(row, chat.Button{Label: "✏️ Edit", Data: scenes.CallbackID(scenes.CallbackEdit, t.ID)})
	}
	return row
}

func (b *Bot) join(ctx context.Context, req request, code string) error {
	if code == "" {
		return b.reply(ctx, req, "Usage: /join <code>")
	}
	t, err := b.store.TournamentByCode(ctx, strings.ToLower(code))
	if errors.Is(err, domain.ErrNotFound) {
		return b.reply(ctx, req, "No tournament with code "+code+".")
	}
	if err != nil {
		return err
	}
	return b.enter(ctx, req, scenes.JoinTournament, map[string]string{scenes.ParamTournament: strconv.FormatUint(uint64(t.ID), 10)})
}

func (b *Bot) edit(ctx context.Context, req request, code string) error {
	if !req.actor.IsAdmin {
		return b.reply(ctx, req, adminOnly)
	}
	if code == "" {
		return b.reply(ctx, req, "Usage: /edit <code>")
	}
	t, err := b.store.TournamentByCode(ctx, code)
	if errors.Is(err, domain.ErrNotFound) {
		return b.reply(ctx, req, "No tournament with code "+code+".")
	}
	if err != nil {
		return err
	}
	return b.enter(ctx, req, scenes.EditTournament, map[string]string{scenes.ParamTournament: strconv.FormatUint(uint64(t.ID), 10)})
}

func (b *Bot) myTournaments(ctx context.Context, req request) error {
	if !req.registered() {
		return b.reply(ctx, req, registerFirst)
	}
	list, err := b.store.UserTournaments(ctx, req.user.ID)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return b.reply(ctx, req, "You haven't joined any tournaments yet. See /tournaments.")
	}
	var sb strings.Builder
	sb.WriteString("🎮 Your tournaments\n")
	for i := range list {
		t := &list[i]
		sb.WriteString("\n" + t.Name + " [" + string(t.Status) + "]\n")
		sb.WriteString("Starts: " + t.StartTime.In(b.scenes.Location).Format(listTime) + "\n")
		if (t.Status == domain.TournamentReady || t.Status == domain.TournamentLive) && t.RoomID != nil && t.RoomPassword != nil {
			sb.WriteString("Room ID: " + *t.RoomID + " | Password: " + *t.RoomPassword + "\n")
		}
	}
	return b.reply(ctx, req, sb.String())
}

func (b *Bot) balance(ctx context.Context, req request) error {
	if !req.registered() {
		return b.reply(ctx, req, registerFirst)
	}
	return b.reply(ctx, req, "💰 Your balance: "+chat.Money(req.user.Balance))
}

func (b *Bot) profile(ctx context.Context, req request) error {
	if !req.registered() {
		return b.reply(ctx, req, registerFirst)
	}
	u := req.user
	notify := "on"
	if !u.TournamentNotifications {
		notify = "off"
	}
	return b.reply(ctx, req, "👤 Your profile\n\n"+
		"Name: "+u.Name+"\n"+
		"Mobile: "+u.Mobile+"\n"+
		"UPI ID: "+u.UPIID+"\n"+
		"In-game name: "+u.GameName+"\n"+
		"Player ID: "+u.GamePlayerID+"\n"+
		"Balance: "+chat.Money(u.Balance)+"\n"+
		"Announcements: "+notify+"\n"+
		"Member since: "+u.CreatedAt.In(b.scenes.Location).Format("02 Jan 2006"))
}

func (b *Bot) referral(ctx context.Context, req request) error {
	if !req.registered() {
		return b.reply(ctx, req, registerFirst)
	}
	count, earned, err := b.store.ReferralStats(ctx, req.user.ID)
	if err != nil {
		return err
	}
	link := "https://t.me/" + b.cfg.Username + "?start=" + strconv.FormatInt(req.actor.UserID, 10)
	return b.reply(ctx, req, "🔗 Your referral link\n"+link+"\n\n"+
		"Friends joined: "+strconv.FormatInt(count, 10)+"\n"+
		"Total earned: "+chat.Money(earned)+"\n\n"+
		"When a friend registers with your link you both get a bonus.")
}

func (b *Bot) leaderboard(ctx context.Context, req request) error {
	board, _, err := utils.Cached(ctx, b.rdb, api.LeaderboardKey(leaderboardSize), leaderboardTTL, func(ctx context.Context) (*ledger.Leaderboard, error) {
		return b.store.Leaderboard(ctx, leaderboardSize)
	})
	if err != nil {
		return err
	}
	var sb strings.Builder
	sb.WriteString("📊 Leaderboard\n")
	writeRanking(&sb, "🔫 Top Killers", board.Killers, func(l ledger.Leader) string { return l.Total.String() + " kills" })
	writeRanking(&sb, "🏆 Top Winners", board.Winners, func(l ledger.Leader) string { return l.Total.String() + " wins" })
	writeRanking(&sb, "💰 Top Earners", board.Earners, func(l ledger.Leader) string { return chat.Money(l.Total) })
	return b.reply(ctx, req, sb.String())
}

func writeRanking(sb *strings.Builder, title string, leaders []ledger.Leader, value func(ledger.Leader) string) {
	sb.WriteString("\n" + title + "\n")
	if len(leaders) == 0 {
		sb.WriteString("No data yet.\n")
		return
	}
	for i, l := range leaders {
		name := l.GameName
		if name == "" {
			name = l.Name
		}
		sb.WriteString(strconv.Itoa(i+1) + ". " + name + " - " + value(l) + "\n")
	}
}

func (b *Bot) notifications(ctx context.Context, req request, arg string) error {
	if !req.registered() {
		return b.reply(ctx, req, registerFirst)
	}
	var on bool
	switch strings.ToLower(arg) {
	case "on":
		on = true
	case "off":
	default:
		return b.reply(ctx, req, "Usage: /notify on or /notify off")
	}
	if err := b.store.SetNotifications(ctx, req.actor.UserID, on); err != nil {
		return err
	}
	if on {
		return b.reply(ctx, req, "🔔 You'll be told about new tournaments.")
	}
	return b.reply(ctx, req, "🔕 New tournament announcements are off.")
}

func (b *Bot) results(ctx context.Context, req request) error {
	if !req.actor.IsAdmin {
		return b.reply(ctx, req, adminOnly)
	}
	list, err := b.store.ListTournaments(ctx, domain.TournamentReady, domain.TournamentLive)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return b.reply(ctx, req, "No tournaments are waiting for results.")
	}
	for i := range list {
		t := &list[i]
		text := t.Name + " [" + string(t.Status) + "]\n" +
			"Players: " + strconv.Itoa(t.RegisteredPlayers) + "/" + strconv.Itoa(t.MaxPlayers) + "\n" +
			"Started: " + t.StartTime.In(b.scenes.Location).Format(listTime)
		if err := b.reply(ctx, req, text, chat.Row(chat.Button{Label: "📝 Enter results", Data: scenes.CallbackID(scenes.CallbackResults, t.ID)})); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) withdrawals(ctx context.Context, req request) error {
	if !req.actor.IsAdmin {
		return b.reply(ctx, req, adminOnly)
	}
	list, err := b.store.Withdrawals(ctx, domain.WithdrawalPending)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return b.reply(ctx, req, "No pending withdrawals.")
	}
	for i := range list {
		w := &list[i]
		who := "user " + strconv.FormatUint(uint64(w.UserID), 10)
		if u, err := b.store.UserByID(ctx, w.UserID); err == nil {
			who = u.Name + " (" + u.Mobile + ")"
		}
		text := "💸 Withdrawal #" + strconv.FormatUint(uint64(w.ID), 10) + "\n" +
			"User: " + who + "\n" +
			"Amount: " + chat.Money(w.Amount) + "\n" +
			"UPI: " + w.UPIID + "\n" +
			"Requested: " + w.CreatedAt.In(b.scenes.Location).Format(listTime)
		if err := b.reply(ctx, req, text, withdrawalButtons(w.ID)); err != nil {
			return err
		}
	}
	return nil
}

func withdrawalButtons(id uint) []chat.Button {
	return chat.Row(
		chat.Button{Label: "✅ Approve", Data: scenes.CallbackID(scenes.CallbackApprove, id)},
		chat.Button{Label: "❌ Reject", Data: scenes.CallbackID(scenes.CallbackReject, id)},
	)
}

func (b *Bot) analytics(ctx context.Context, req request) error {
	if !req.actor.IsAdmin {
		return b.reply(ctx, req, adminOnly)
	}
	a, err := b.store.Analytics(ctx)
	if err != nil {
		return err
	}
	return b.reply(ctx, req, "📊 Analytics Dashboard 📊\n\n"+
		"Total Users: "+strconv.FormatInt(a.Users, 10)+"\n"+
		"New Users (7 days): "+strconv.FormatInt(a.NewUsers, 10)+"\n"+
		"Total Tournaments: "+strconv.FormatInt(a.Tournaments, 10)+"\n\n"+
		"Total Deposits: "+chat.Money(a.Deposits)+"\n"+
		"Total Withdrawals: "+chat.Money(a.Withdrawals)+"\n"+
		"Net Balance: "+chat.Money(a.Net))
}

func (b *Bot) apiToken(ctx context.Context, req request) error {
	if !req.actor.IsAdmin {
		return b.reply(ctx, req, adminOnly)
	}
	token, err := utils.GenerateJWT(req.actor.UserID, b.cfg.JWTSecret, b.cfg.JWTTTL)
	if err != nil {
		return err
	}
	b.log.WithFields(logrus.Fields{"telegram_id": req.actor.UserID, "ttl": b.cfg.JWTTTL.String()}).Info("Admin API token issued")
	return b.reply(ctx, req, "🔑 Admin API token (valid for "+b.cfg.JWTTTL.String()+"):\n\n"+token)
}
