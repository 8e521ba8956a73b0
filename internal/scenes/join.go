package scenes

import (
	"context"
	"errors"
	"strconv"

	"tournament_bot/internal/chat"
	"tournament_bot/internal/domain"
	"tournament_bot/internal/wizard"

	"github.com/sirupsen/logrus"
)

type join struct {
	TournamentID uint   `json:"tournament_id"`
	UserID       uint   `json:"user_id"`
	Reference    string `json:"reference"`
}

func (d *Deps) joinScene() wizard.Scene {
	return wizard.NewFlow[join](JoinTournament, d.startJoin, d.joinPay, d.joinAwaitUPI)
}

func (d *Deps) startJoin(c *wizard.Context, s *join, params map[string]string) (wizard.Transition, error) {
	id, err := strconv.ParseUint(params[ParamTournament], 10, 64)
	if err != nil {
		c.Say("❌ Tournament not found.")
		return wizard.Leave(), nil
	}
	t, err := d.Store.TournamentByID(c.Ctx(), uint(id))
	if errors.Is(err, domain.ErrNotFound) {
		c.Say("❌ Tournament not found.")
		return wizard.Leave(), nil
	}
	if err != nil {
		return wizard.Leave(), err
	}
	if t.Status != domain.TournamentOpen || t.IsFull() {
		c.Say("🔒 Registration for " + t.Name + " is closed.")
		return wizard.Leave(), nil
	}

	u, err := d.registeredUser(c)
	if u == nil {
		return wizard.Leave(), err
	}
	if !u.HasCompleteProfile() {
		c.Say("Your profile is incomplete. Finish /register first.")
		return wizard.Leave(), nil
	}
	_, err = d.Store.Registration(c.Ctx(), u.ID, t.ID)
	switch {
	case err == nil:
		c.Say("✅ You are already registered for " + t.Name + ".")
		return wizard.Leave(), nil
	case !errors.Is(err, domain.ErrNotFound):
		return wizard.Leave(), err
	}

	s.TournamentID = t.ID
	s.UserID = u.ID
	c.Say(TournamentText(t, d.Location)+"\n\n💰 Your balance: "+chat.Money(u.Balance)+"\nHow do you want to pay the entry fee?",
		chat.Row(
			wizard.Button("👛 Wallet", "wallet", ""),
			wizard.Button("📲 UPI", "upi", ""),
		),
		chat.Row(wizard.Button("✖️ Cancel", "cancel", "")),
	)
	return wizard.Stay(), nil
}

// joinRefused explains an expected refusal to the user and returns nil, or
// returns err unchanged when it is not a refusal
func (d *Deps) joinRefused(c *wizard.Context, s *join, err error) error {
	switch {
	case errors.Is(err, domain.ErrInsufficientBalance):
		balance, berr := d.Store.Balance(c.Ctx(), s.UserID)
		if berr != nil {
			return berr
		}
		c.Say("❌ Insufficient balance (" + chat.Money(balance) + "). Use /deposit to add money or pay by UPI.")
	case errors.Is(err, domain.ErrTournamentFull):
		c.Say("😔 Sorry, the tournament just filled up.")
	case errors.Is(err, domain.ErrDuplicate):
		c.Say("✅ You are already registered for this tournament.")
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrNotFound):
		c.Say("🔒 Registration for this tournament is closed.")
	default:
		return err
	}
	return nil
}

func (d *Deps) joinPay(c *wizard.Context, s *join, ev wizard.Event) (wizard.Transition, error) {
	switch {
	case ev.Is("cancel"):
		c.Say("Okay, not joining.")
		return wizard.Leave(), nil
	case ev.Is("wallet"):
		return d.joinWithWallet(c, s)
	case ev.Is("upi"):
		return d.joinWithUPI(c, s)
	}
	c.Say("Please choose a payment option from the buttons above.")
	return wizard.Stay(), nil
}

func (d *Deps) joinWithWallet(c *wizard.Context, s *join) (wizard.Transition, error) {
	res, err := d.Store.JoinWithWallet(c.Ctx(), s.UserID, s.TournamentID)
	if err != nil {
		return wizard.Leave(), d.joinRefused(c, s, err)
	}
	t := res.Tournament
	c.Say("🎉 You're in " + t.Name + "!\n\nNew balance: " + chat.Money(res.NewBalance) + "\nSlots: " +
		strconv.Itoa(t.RegisteredPlayers) + "/" + strconv.Itoa(t.MaxPlayers) + "\nRoom details arrive when the lobby is full.")
	if res.BecameReady {
		d.Go(c.Ctx(), func(ctx context.Context) { d.AnnounceRoom(ctx, t) })
	}
	return wizard.Leave(), nil
}

func (d *Deps) joinWithUPI(c *wizard.Context, s *join) (wizard.Transition, error) {
	reg, err := d.Store.CreatePendingRegistration(c.Ctx(), s.UserID, s.TournamentID)
	if err != nil {
		return wizard.Leave(), d.joinRefused(c, s, err)
	}
	t, err := d.Store.TournamentByID(c.Ctx(), s.TournamentID)
	if err != nil {
		return wizard.Leave(), err
	}
	s.Reference = reg.Reference
	c.Log.WithFields(logrus.Fields{"tournament_id": t.ID, "reference": reg.Reference}).Info("Pending registration created")
	c.Say("📲 Pay "+chat.Money(t.EntryFee)+" to "+d.Rules.MerchantUPI+"\nNote / remark: "+reg.Reference+"\n\nTap \"I have paid\" once done.",
		chat.Row(
			wizard.Button("✅ I have paid", "paid", ""),
			wizard.Button("✖️ Cancel", "cancel_pending", ""),
		),
	)
	return wizard.Advance(), nil
}

func (d *Deps) joinAwaitUPI(c *wizard.Context, s *join, ev wizard.Event) (wizard.Transition, error) {
	switch {
	case ev.Is("cancel_pending"):
		err := d.Store.CancelPendingRegistration(c.Ctx(), s.Reference, s.UserID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return wizard.Leave(), err
		}
		c.Say("Registration cancelled.")
		return wizard.Leave(), nil
	case ev.Is("paid"):
		c.Say("⏳ Thanks! An admin will confirm your payment shortly.")
		d.NotifyAdmins(c.Ctx(), chat.Text(
			"🧾 UPI entry fee claimed\n\nUser: "+c.Actor.Name+" ("+int64Str(c.Actor.UserID)+")\nTournament #"+uintStr(s.TournamentID)+"\nReference: "+s.Reference,
			chat.Row(chat.Button{Label: "✅ Confirm", Data: Callback(CallbackConfirm, s.Reference)}),
		))
		return wizard.Leave(), nil
	}
	c.Say("Tap \"I have paid\" after paying, or cancel.")
	return wizard.Stay(), nil
}
