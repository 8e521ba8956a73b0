package scenes

import (
	"errors"
	"strconv"
	"strings"

	"tournament_bot/internal/chat"
	"tournament_bot/internal/domain"
	"tournament_bot/internal/ledger"
	"tournament_bot/internal/wizard"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type player struct {
	UserID     uint   `json:"user_id"`
	TelegramID int64  `json:"telegram_id"`
	Name       string `json:"name"`
	Kills      int    `json:"kills"`
}

type resultEntry struct {
	TournamentID uint            `json:"tournament_id"`
	Name         string          `json:"name"`
	PerKill      decimal.Decimal `json:"per_kill"`
	WinnerPrize  decimal.Decimal `json:"winner_prize"`
	Players      []player        `json:"players"`
	Index        int             `json:"index"`
	Winner       int             `json:"winner"`
}

func (d *Deps) resultsScene() wizard.Scene {
	return wizard.NewFlow[resultEntry](EnterResults, d.startResults,
		d.resultKills,
		d.resultWinner,
		d.resultConfirm,
	).RequireAdmin()
}

func (d *Deps) startResults(c *wizard.Context, s *resultEntry, params map[string]string) (wizard.Transition, error) {
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
	if t.Status != domain.TournamentReady && t.Status != domain.TournamentLive {
		c.Say("❌ Results can only be entered for ready or live tournaments. " + t.Name + " is " + string(t.Status) + ".")
		return wizard.Leave(), nil
	}
	regs, err := d.Store.Participants(c.Ctx(), t.ID)
	if err != nil {
		return wizard.Leave(), err
	}
	if len(regs) == 0 {
		c.Say("❌ " + t.Name + " has no registered players.")
		return wizard.Leave(), nil
	}

	s.TournamentID = t.ID
	s.Name = t.Name
	s.PerKill = t.PerKillReward
	s.WinnerPrize = t.WinnerPrize
	s.Winner = -1
	for _, r := range regs {
		s.Players = append(s.Players, player{UserID: r.UserID, TelegramID: r.User.TelegramID, Name: r.User.DisplayName()})
	}
	c.Say("📊 Results for " + t.Name + " (" + strconv.Itoa(len(s.Players)) + " players)")
	s.promptKills(c)
	return wizard.Stay(), nil
}

func (s *resultEntry) promptKills(c *wizard.Context) {
	p := s.Players[s.Index]
	c.Say("(" + strconv.Itoa(s.Index+1) + "/" + strconv.Itoa(len(s.Players)) + ") Kills for " + p.Name + "?")
}

func (s *resultEntry) promptWinner(c *wizard.Context) {
	rows := make([][]chat.Button, 0, len(s.Players))
	for i, p := range s.Players {
		rows = append(rows, chat.Row(wizard.Button("🏆 "+p.Name+" ("+strconv.Itoa(p.Kills)+" kills)", "winner", strconv.Itoa(i))))
	}
	c.Say("Who won?", rows...)
}

func (d *Deps) resultKills(c *wizard.Context, s *resultEntry, ev wizard.Event) (wizard.Transition, error) {
	n, err := parseKills(ev.Text)
	if err != nil {
		c.Say("❌ Kills must be a whole number, 0 or more.")
		s.promptKills(c)
		return wizard.Stay(), nil
	}
	s.Players[s.Index].Kills = n
	s.Index++
	if s.Index < len(s.Players) {
		s.promptKills(c)
		return wizard.Stay(), nil
	}
	s.promptWinner(c)
	return wizard.Advance(), nil
}

func (d *Deps) resultWinner(c *wizard.Context, s *resultEntry, ev wizard.Event) (wizard.Transition, error) {
	i, err := strconv.Atoi(ev.Arg)
	if !ev.Is("winner") || err != nil || i < 0 || i >= len(s.Players) {
		c.Say("Pick the winner from the buttons.")
		return wizard.Stay(), nil
	}
	s.Winner = i
	c.Say(s.summary(),
		chat.Row(wizard.Button("✅ Confirm & pay", "confirm", "")),
		chat.Row(
			wizard.Button("🔁 Change winner", "change_winner", ""),
			wizard.Button("✖️ Cancel", "cancel", ""),
		),
	)
	return wizard.Advance(), nil
}

// rewards are the per-player payouts in player order
func (s *resultEntry) rewards() []decimal.Decimal {
	t := domain.Tournament{PerKillReward: s.PerKill, WinnerPrize: s.WinnerPrize}
	out := make([]decimal.Decimal, len(s.Players))
	for i, p := range s.Players {
		_, _, out[i] = t.Reward(p.Kills, i == s.Winner)
	}
	return out
}

func (s *resultEntry) summary() string {
	var b strings.Builder
	b.WriteString("📋 " + s.Name + " results\n\n")
	total := decimal.Zero
	for i, r := range s.rewards() {
		p := s.Players[i]
		if i == s.Winner {
			b.WriteString("🏆 ")
		}
		b.WriteString(p.Name + ": " + strconv.Itoa(p.Kills) + " kills → " + chat.Money(r) + "\n")
		total = total.Add(r)
	}
	b.WriteString("\nTotal payout: " + chat.Money(total))
	return b.String()
}

func (d *Deps) resultConfirm(c *wizard.Context, s *resultEntry, ev wizard.Event) (wizard.Transition, error) {
	switch {
	case ev.Is("cancel"):
		c.Say("Results discarded. Nothing was paid.")
		return wizard.Leave(), nil
	case ev.Is("change_winner"):
		s.promptWinner(c)
		return wizard.Rewind(), nil
	case !ev.Is("confirm"):
		c.Say("Use the buttons above to confirm, change the winner or cancel.")
		return wizard.Stay(), nil
	}

	t, err := d.Store.TournamentByID(c.Ctx(), s.TournamentID)
	if err != nil {
		return wizard.Leave(), err
	}
	var settled, skipped int
	var failed []string
	for i, p := range s.Players {
		res, fresh, err := d.Store.SettleResult(c.Ctx(), t, ledger.ResultEntry{UserID: p.UserID, Kills: p.Kills, Winner: i == s.Winner})
		if err != nil {
			failed = append(failed, p.Name)
			continue
		}
		if !fresh {
			skipped++
			continue
		}
		settled++
		msg := "📊 " + t.Name + " results are in!\n\nKills: " + strconv.Itoa(p.Kills)
		if i == s.Winner {
			msg += "\n🏆 You won!"
		}
		if res.TotalReward.IsPositive() {
			msg += "\n💰 " + chat.Money(res.TotalReward) + " added to your wallet."
		}
		d.Notifier.Notify(c.Ctx(), p.TelegramID, chat.Text(msg))
	}

	report := "✅ Settled " + strconv.Itoa(settled) + " players"
	if skipped > 0 {
		report += ", " + strconv.Itoa(skipped) + " already settled"
	}
	if len(failed) > 0 {
		c.Log.WithFields(logrus.Fields{"tournament_id": t.ID, "failed": len(failed)}).Error("Result settlement incomplete")
		c.Say(report + ".\n❌ Failed: " + strings.Join(failed, ", ") + "\nThe tournament stays open for results; run them again to retry.")
		return wizard.Leave(), nil
	}
	if err := d.Store.CompleteTournament(c.Ctx(), t.ID); err != nil && !errors.Is(err, domain.ErrInvalidState) {
		return wizard.Leave(), err
	}
	c.Say(report + ". " + t.Name + " is completed.")
	return wizard.Leave(), nil
}
