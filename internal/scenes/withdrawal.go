package scenes

import (
	"errors"

	"tournament_bot/internal/chat"
	"tournament_bot/internal/domain"
	"tournament_bot/internal/wizard"

	"github.com/shopspring/decimal"
)

type withdrawal struct {
	UserID   uint            `json:"user_id"`
	Amount   decimal.Decimal `json:"amount"`
	SavedUPI string          `json:"saved_upi"`
	UPIID    string          `json:"upi_id"`
}

const (
	wdAmount = iota
	wdChooseUPI
	wdNewUPI
	wdConfirm
)

func (d *Deps) withdrawalScene() wizard.Scene {
	return wizard.NewFlow[withdrawal](Withdraw, d.startWithdrawal,
		d.withdrawAmount,
		d.withdrawChooseUPI,
		d.withdrawNewUPI,
		d.withdrawConfirm,
	)
}

func (d *Deps) startWithdrawal(c *wizard.Context, s *withdrawal, _ map[string]string) (wizard.Transition, error) {
	u, err := d.registeredUser(c)
	if u == nil {
		return wizard.Leave(), err
	}
	if u.Balance.LessThan(d.Rules.MinWithdrawal) {
		c.Say("❌ Minimum withdrawal is " + chat.Money(d.Rules.MinWithdrawal) + ". Your balance is " + chat.Money(u.Balance) + ".")
		return wizard.Leave(), nil
	}
	s.UserID = u.ID
	s.SavedUPI = u.UPIID
	c.Say("💸 Balance: " + chat.Money(u.Balance) + "\n\nHow much do you want to withdraw? (minimum " + chat.Money(d.Rules.MinWithdrawal) + ")")
	return wizard.Stay(), nil
}

func (d *Deps) withdrawAmount(c *wizard.Context, s *withdrawal, ev wizard.Event) (wizard.Transition, error) {
	amount, err := parseAmount(ev.Text)
	if err != nil || amount.LessThan(d.Rules.MinWithdrawal) {
		c.Say("❌ Enter an amount of at least " + chat.Money(d.Rules.MinWithdrawal) + ".")
		return wizard.Stay(), nil
	}
	balance, err := d.Store.Balance(c.Ctx(), s.UserID)
	if err != nil {
		return wizard.Stay(), err
	}
	if amount.GreaterThan(balance) {
		c.Say("❌ Insufficient balance. You can withdraw up to " + chat.Money(balance) + ".")
		return wizard.Stay(), nil
	}
	s.Amount = amount
	if s.SavedUPI == "" {
		c.Say("💳 Send the UPI id to pay to.")
		return wizard.JumpTo(wdNewUPI), nil
	}
	c.Say("Where should we send "+chat.Money(amount)+"?",
		chat.Row(wizard.Button("✅ "+s.SavedUPI, "saved", "")),
		chat.Row(wizard.Button("✏️ Another UPI id", "new", "")),
	)
	return wizard.Advance(), nil
}

func (d *Deps) withdrawChooseUPI(c *wizard.Context, s *withdrawal, ev wizard.Event) (wizard.Transition, error) {
	switch {
	case ev.Is("saved"):
		s.UPIID = s.SavedUPI
		d.withdrawSummary(c, s)
		return wizard.JumpTo(wdConfirm), nil
	case ev.Is("new"):
		c.Say("💳 Send the UPI id to pay to.")
		return wizard.Advance(), nil
	}
	c.Say("Please choose one of the options above.")
	return wizard.Stay(), nil
}

func (d *Deps) withdrawNewUPI(c *wizard.Context, s *withdrawal, ev wizard.Event) (wizard.Transition, error) {
	upi, err := parseUPI(ev.Text)
	if err != nil {
		c.Say("❌ That UPI id does not look right. Try again.")
		return wizard.Stay(), nil
	}
	s.UPIID = upi
	d.withdrawSummary(c, s)
	return wizard.Advance(), nil
}

func (d *Deps) withdrawSummary(c *wizard.Context, s *withdrawal) {
	c.Say("Confirm withdrawal\n\nAmount: "+chat.Money(s.Amount)+"\nUPI: "+s.UPIID,
		chat.Row(
			wizard.Button("✅ Confirm", "confirm", ""),
			wizard.Button("✖️ Cancel", "cancel", ""),
		),
	)
}

func (d *Deps) withdrawConfirm(c *wizard.Context, s *withdrawal, ev wizard.Event) (wizard.Transition, error) {
	switch {
	case ev.Is("cancel"):
		c.Say("Withdrawal cancelled.")
		return wizard.Leave(), nil
	case !ev.Is("confirm"):
		c.Say("Please confirm or cancel using the buttons above.")
		return wizard.Stay(), nil
	}

	w, balance, err := d.Store.RequestWithdrawal(c.Ctx(), s.UserID, s.Amount, s.UPIID)
	if errors.Is(err, domain.ErrInsufficientBalance) {
		now, berr := d.Store.Balance(c.Ctx(), s.UserID)
		if berr != nil {
			return wizard.Leave(), berr
		}
		c.Say("❌ Your balance changed and is now " + chat.Money(now) + ". Nothing was withdrawn.")
		return wizard.Leave(), nil
	}
	if err != nil {
		return wizard.Leave(), err
	}

	c.Say("✅ Withdrawal of " + chat.Money(w.Amount) + " requested. New balance: " + chat.Money(balance) + ".\nYou will be notified once it is processed.")
	d.NotifyAdmins(c.Ctx(), chat.Text(
		"💸 New withdrawal #"+uintStr(w.ID)+"\n\nUser: "+c.Actor.Name+" ("+int64Str(c.Actor.UserID)+")\nAmount: "+chat.Money(w.Amount)+"\nUPI: "+w.UPIID,
		chat.Row(
			chat.Button{Label: "✅ Approve", Data: CallbackID(CallbackApprove, w.ID)},
			chat.Button{Label: "❌ Reject", Data: CallbackID(CallbackReject, w.ID)},
		),
	))
	return wizard.Leave(), nil
}
