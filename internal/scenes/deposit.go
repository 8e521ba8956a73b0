package scenes

import (
	"errors"
	"strconv"

	"tournament_bot/internal/chat"
	"tournament_bot/internal/domain"
	"tournament_bot/internal/payment"
	"tournament_bot/internal/utils"
	"tournament_bot/internal/wizard"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type deposit struct {
	UserID uint            `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
}

func (d *Deps) depositScene() wizard.Scene {
	return wizard.NewFlow[deposit](Deposit, d.startDeposit, d.depositAmount, d.depositMethod)
}

// registeredUser loads the actor or tells them to register. A nil user
// with a nil error means the scene should leave.
func (d *Deps) registeredUser(c *wizard.Context) (*domain.User, error) {
	u, err := d.Store.UserByTelegramID(c.Ctx(), c.Actor.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		c.Say("Please /register first.")
		return nil, nil
	}
	return u, err
}

func (d *Deps) startDeposit(c *wizard.Context, s *deposit, _ map[string]string) (wizard.Transition, error) {
	u, err := d.registeredUser(c)
	if u == nil {
		return wizard.Leave(), err
	}
	s.UserID = u.ID
	c.Say("💰 Balance: " + chat.Money(u.Balance) + "\n\nHow much do you want to add? (minimum " + chat.Money(d.Rules.MinDeposit) + ")")
	return wizard.Stay(), nil
}

func (d *Deps) depositAmount(c *wizard.Context, s *deposit, ev wizard.Event) (wizard.Transition, error) {
	amount, err := parseAmount(ev.Text)
	if err != nil || amount.LessThan(d.Rules.MinDeposit) {
		c.Say("❌ Enter an amount of at least " + chat.Money(d.Rules.MinDeposit) + ".")
		return wizard.Stay(), nil
	}
	s.Amount = amount
	c.Say("Pay "+chat.Money(amount)+" with:",
		chat.Row(
			wizard.Button("📲 UPI", "method", string(domain.MethodUPI)),
			wizard.Button("💳 Card", "method", string(domain.MethodCard)),
		),
		chat.Row(wizard.Button("✖️ Cancel", "cancel", "")),
	)
	return wizard.Advance(), nil
}

func (d *Deps) depositMethod(c *wizard.Context, s *deposit, ev wizard.Event) (wizard.Transition, error) {
	if ev.Is("cancel") {
		c.Say("Deposit cancelled.")
		return wizard.Leave(), nil
	}
	method := domain.PaymentMethod(ev.Arg)
	if !ev.Is("method") || (method != domain.MethodUPI && method != domain.MethodCard) {
		c.Say("Please pick a payment method from the buttons above.")
		return wizard.Stay(), nil
	}
	u, err := d.Store.UserByID(c.Ctx(), s.UserID)
	if err != nil {
		return wizard.Stay(), err
	}

	// the Payment row exists before the gateway knows about it, so an
	// early callback always finds its order
	p := &domain.Payment{
		UserID:  u.ID,
		Amount:  s.Amount,
		OrderID: utils.NewReference("order"),
		Gateway: d.Payments.Name(),
		Method:  method,
	}
	if err := d.Store.CreatePayment(c.Ctx(), p); err != nil {
		return wizard.Stay(), err
	}
	link, err := d.openPayment(c, u, p)
	if err != nil {
		if ferr := d.Store.FailPayment(c.Ctx(), p.OrderID, err.Error()); ferr != nil {
			c.Log.WithError(ferr).Error("Failed to mark payment failed")
		}
		return wizard.Leave(), err
	}

	c.Log.WithFields(logrus.Fields{"order_id": p.OrderID, "amount": p.Amount.String(), "method": method}).Info("Deposit link issued")
	c.Say("🔗 Complete your payment of "+chat.Money(s.Amount)+". Your wallet is credited as soon as the payment succeeds.",
		chat.Row(chat.Link("Pay "+chat.Money(s.Amount), link.URL)))
	return wizard.Leave(), nil
}

func (d *Deps) openPayment(c *wizard.Context, u *domain.User, p *domain.Payment) (*payment.Link, error) {
	order, err := d.Payments.CreateOrder(c.Ctx(), p.Amount, p.OrderID, map[string]string{
		"telegram_id": strconv.FormatInt(u.TelegramID, 10),
		"method":      string(p.Method),
	})
	if err != nil {
		return nil, err
	}
	link, err := d.Payments.CreatePaymentLink(c.Ctx(), payment.LinkRequest{
		Amount:       p.Amount,
		OrderID:      p.OrderID,
		Description:  "Wallet deposit",
		PayerName:    u.Name,
		PayerContact: u.Mobile,
		CallbackURL:  d.CallbackURL,
	})
	if err != nil {
		return nil, err
	}
	if err := d.Store.AttachPaymentLink(c.Ctx(), p.OrderID, order.ID, link.ID, link.URL); err != nil {
		return nil, err
	}
	return link, nil
}
