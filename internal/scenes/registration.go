package scenes

import (
	"errors"

	"tournament_bot/internal/chat"
	"tournament_bot/internal/domain"
	"tournament_bot/internal/ledger"
	"tournament_bot/internal/wizard"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const maxOTPAttempts = 5

type registration struct {
	Name     string `json:"name"`
	Mobile   string `json:"mobile"`
	OTPHash  []byte `json:"otp_hash"`
	Attempts int    `json:"attempts"`
	UPIID    string `json:"upi_id"`
	GameName string `json:"game_name"`
}

func (d *Deps) registrationScene() wizard.Scene {
	return wizard.NewFlow[registration](Register, d.startRegistration,
		d.regName,
		d.regMobile,
		d.regOTP,
		d.regUPI,
		d.regGameName,
		d.regPlayerID,
	)
}

func (d *Deps) startRegistration(c *wizard.Context, _ *registration, _ map[string]string) (wizard.Transition, error) {
	_, err := d.Store.UserByTelegramID(c.Ctx(), c.Actor.UserID)
	switch {
	case err == nil:
		c.Say("✅ You are already registered. Use /profile to see your details.")
		return wizard.Leave(), nil
	case !errors.Is(err, domain.ErrNotFound):
		return wizard.Leave(), err
	}
	c.Say("📝 Let's get you registered.\n\nWhat is your full name?")
	return wizard.Stay(), nil
}

func (d *Deps) regName(c *wizard.Context, s *registration, ev wizard.Event) (wizard.Transition, error) {
	name, err := parseName(ev.Text, 2, 64)
	if err != nil {
		c.Say("Please send your full name (2-64 characters).")
		return wizard.Stay(), nil
	}
	s.Name = name
	c.Say("📱 Send your 10 digit mobile number.")
	return wizard.Advance(), nil
}

func (d *Deps) regMobile(c *wizard.Context, s *registration, ev wizard.Event) (wizard.Transition, error) {
	mobile, err := parseMobile(ev.Text)
	if err != nil {
		c.Say("❌ That is not a valid Indian mobile number. Try again.")
		return wizard.Stay(), nil
	}
	taken, err := d.Store.MobileTaken(c.Ctx(), mobile)
	if err != nil {
		return wizard.Stay(), err
	}
	if taken {
		c.Say("❌ This mobile number is already registered with another account.")
		return wizard.Leave(), nil
	}
	code, err := d.OTP.Send(c.Ctx(), mobile)
	if err != nil {
		return wizard.Stay(), err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), d.OTPCost)
	if err != nil {
		return wizard.Stay(), err
	}
	s.Mobile = mobile
	s.OTPHash = hash
	s.Attempts = 0
	c.Say("📨 We sent a 6 digit code to " + mobile + ". Enter it here.")
	return wizard.Advance(), nil
}

func (d *Deps) regOTP(c *wizard.Context, s *registration, ev wizard.Event) (wizard.Transition, error) {
	if bcrypt.CompareHashAndPassword(s.OTPHash, []byte(ev.Text)) != nil {
		s.Attempts++
		if s.Attempts >= maxOTPAttempts {
			c.Log.WithField("attempts", s.Attempts).Warn("OTP attempts exhausted")
			c.Say("❌ Too many wrong codes. Start again with /register.")
			return wizard.Leave(), nil
		}
		c.Say("❌ Wrong code. Please try again.")
		return wizard.Stay(), nil
	}
	s.OTPHash = nil
	c.Say("✅ Mobile verified.\n\n💳 Send your UPI id (e.g. name@okaxis). Winnings are paid here.")
	return wizard.Advance(), nil
}

func (d *Deps) regUPI(c *wizard.Context, s *registration, ev wizard.Event) (wizard.Transition, error) {
	upi, err := parseUPI(ev.Text)
	if err != nil {
		c.Say("❌ That UPI id does not look right. Try again.")
		return wizard.Stay(), nil
	}
	s.UPIID = upi
	c.Say("🎮 What is your in-game name?")
	return wizard.Advance(), nil
}

func (d *Deps) regGameName(c *wizard.Context, s *registration, ev wizard.Event) (wizard.Transition, error) {
	name, err := parseName(ev.Text, 2, 32)
	if err != nil {
		c.Say("Please send your in-game name (2-32 characters).")
		return wizard.Stay(), nil
	}
	s.GameName = name
	c.Say("🔢 Finally, your in-game player id (8-12 digits).")
	return wizard.Advance(), nil
}

func (d *Deps) regPlayerID(c *wizard.Context, s *registration, ev wizard.Event) (wizard.Transition, error) {
	playerID, err := parsePlayerID(ev.Text)
	if err != nil {
		c.Say("❌ Player id must be 8 to 12 digits. Try again.")
		return wizard.Stay(), nil
	}
	res, err := d.Store.Register(c.Ctx(), ledger.NewUser{
		TelegramID:   c.Actor.UserID,
		Username:     c.Actor.Username,
		Name:         s.Name,
		Mobile:       s.Mobile,
		UPIID:        s.UPIID,
		GameName:     s.GameName,
		GamePlayerID: playerID,
	})
	if errors.Is(err, domain.ErrDuplicate) {
		c.Say("❌ This account or mobile number is already registered.")
		return wizard.Leave(), nil
	}
	if err != nil {
		return wizard.Stay(), err
	}

	c.Log.WithFields(logrus.Fields{"db_user_id": res.User.ID}).Info("User registered")
	welcome := "🎉 Registration complete, " + res.User.Name + "!"
	if res.ReferrerTelegramID != 0 {
		welcome += "\n🎁 Referral bonus of " + chat.Money(res.ReferralBonus) + " added to your wallet."
		d.Notifier.Notify(c.Ctx(), res.ReferrerTelegramID,
			chat.Text("🎁 "+res.User.DisplayName()+" joined with your link. "+chat.Money(res.ReferralBonus)+" added to your wallet."))
	}
	c.Say(welcome + "\n\nUse /tournaments to find a match.")
	return wizard.Leave(), nil
}
