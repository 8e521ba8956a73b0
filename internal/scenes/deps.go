// Package scenes holds the conversations the bot runs on the wizard engine.
package scenes

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"tournament_bot/internal/chat"
	"tournament_bot/internal/domain"
	"tournament_bot/internal/ledger"
	"tournament_bot/internal/notify"
	"tournament_bot/internal/otp"
	"tournament_bot/internal/payment"
	"tournament_bot/internal/wizard"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Scene names
const (
	Register         = "register"
	Deposit          = "deposit"
	Withdraw         = "withdraw"
	CreateTournament = "create_tournament"
	JoinTournament   = "join_tournament"
	EnterResults     = "tournament_results"
	Broadcast        = "broadcast"
	EditTournament   = "edit_tournament"
)

// ParamTournament carries the tournament id into join, edit and result scenes
const ParamTournament = "tournament_id"

// Callback kinds for buttons handled outside any scene
const (
	CallbackJoin    = "tj"
	CallbackDetails = "td"
	CallbackApprove = "wd_ok"
	CallbackReject  = "wd_no"
	CallbackResults = "tr"
	CallbackConfirm = "rc"
	CallbackEdit    = "te"
)

// Callback encodes a kind:arg button payload
func Callback(kind, arg string) string { return kind + ":" + arg }

// CallbackID is Callback for numeric ids
func CallbackID(kind string, id uint) string {
	return Callback(kind, strconv.FormatUint(uint64(id), 10))
}

// ParseCallback splits a kind:arg payload
func ParseCallback(data string) (kind, arg string, ok bool) {
	kind, arg, ok = strings.Cut(data, ":")
	if !ok || kind == "" || arg == "" {
		return "", "", false
	}
	return kind, arg, true
}

// Rules are the business limits the scenes enforce
type Rules struct {
	MinDeposit    decimal.Decimal
	MinWithdrawal decimal.Decimal
	AdminIDs      []int64 // configured admins, merged with is_admin users
	MerchantUPI   string  // payee for direct UPI entry fees
}

// Deps are the collaborators every scene may use
type Deps struct {
	Store       *ledger.Store
	Payments    payment.Provider
	OTP         otp.Sender
	Notifier    *notify.Broadcaster
	Rules       Rules
	Location    *time.Location
	Now         func() time.Time
	CallbackURL string // payment link return page
	OTPCost     int    // bcrypt cost for OTP hashes
	Log         *logrus.Logger

	background sync.WaitGroup
}

// All builds every scene over d
func All(d *Deps) []wizard.Scene {
	d.defaults()
	return []wizard.Scene{
		d.registrationScene(),
		d.depositScene(),
		d.withdrawalScene(),
		d.creationScene(),
		d.joinScene(),
		d.resultsScene(),
		d.broadcastScene(),
		d.editScene(),
	}
}

func (d *Deps) defaults() {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.OTPCost == 0 {
		d.OTPCost = bcrypt.DefaultCost
	}
}

// Go runs fn outside the handled update so fan-outs do not hold the
// user's lock. fn keeps ctx's values but not its cancellation.
func (d *Deps) Go(ctx context.Context, fn func(ctx context.Context)) {
	ctx = context.WithoutCancel(ctx)
	d.background.Add(1)
	go func() {
		defer d.background.Done()
		fn(ctx)
	}()
}

// Wait blocks until work started with Go has finished
func (d *Deps) Wait() { d.background.Wait() }

// AdminChats returns configured admins plus admins in the store
func (d *Deps) AdminChats(ctx context.Context) ([]int64, error) {
	ids, err := d.Store.AdminTelegramIDs(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]bool, len(ids)+len(d.Rules.AdminIDs))
	out := make([]int64, 0, len(ids)+len(d.Rules.AdminIDs))
	for _, id := range append(ids, d.Rules.AdminIDs...) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, nil
}

// NotifyAdmins is best effort: lookup failures are logged and swallowed
func (d *Deps) NotifyAdmins(ctx context.Context, msg chat.Message) notify.Report {
	ids, err := d.AdminChats(ctx)
	if err != nil {
		d.Log.WithError(err).Error("Failed to load admin chats")
		return notify.Report{}
	}
	return d.Notifier.Broadcast(ctx, ids, msg)
}

// AnnounceRoom sends room credentials to every participant of a ready tournament
func (d *Deps) AnnounceRoom(ctx context.Context, t *domain.Tournament) notify.Report {
	ids, err := d.Store.ParticipantTelegramIDs(ctx, t.ID)
	if err != nil {
		d.Log.WithFields(logrus.Fields{"tournament_id": t.ID, "error": err.Error()}).Error("Failed to load participants")
		return notify.Report{}
	}
	rep := d.Notifier.Broadcast(ctx, ids, chat.Text(RoomText(t, d.Location)))
	d.Log.WithFields(logrus.Fields{"tournament_id": t.ID, "sent": rep.Sent, "failed": rep.Failed}).Info("Room credentials sent")
	return rep
}

// RoomText is the message that hands out room credentials
func RoomText(t *domain.Tournament, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("🎮 " + t.Name + " is full!\n\n")
	if t.RoomID != nil {
		b.WriteString("Room ID: " + *t.RoomID + "\n")
	}
	if t.RoomPassword != nil {
		b.WriteString("Password: " + *t.RoomPassword + "\n")
	}
	b.WriteString("Starts: " + t.StartTime.In(loc).Format(displayTime))
	return b.String()
}

// TournamentText summarises a tournament for lists and announcements
func TournamentText(t *domain.Tournament, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("🏆 " + t.Name + "\n")
	b.WriteString("Mode: " + strings.ToUpper(string(t.Mode)) + " | Map: " + cases.Title(language.English).String(t.Map) + "\n")
	b.WriteString("Entry: " + chat.Money(t.EntryFee) + " | Per kill: " + chat.Money(t.PerKillReward) + "\n")
	b.WriteString("Winner: " + chat.Money(t.WinnerPrize) + " | Pool: " + chat.Money(t.PrizePool) + "\n")
	b.WriteString("Slots: " + strconv.Itoa(t.RegisteredPlayers) + "/" + strconv.Itoa(t.MaxPlayers))
	if left := t.SpotsLeft(); left > 0 && t.Status == domain.TournamentOpen {
		b.WriteString(" (" + strconv.Itoa(left) + " left)")
	}
	b.WriteString("\n")
	b.WriteString("Starts: " + t.StartTime.In(loc).Format(displayTime) + "\n")
	b.WriteString("Code: " + t.Code)
	return b.String()
}

const displayTime = "02 Jan 2006, 15:04"

func uintStr(n uint) string   { return strconv.FormatUint(uint64(n), 10) }
func int64Str(n int64) string { return strconv.FormatInt(n, 10) }
