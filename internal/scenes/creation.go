package scenes

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"tournament_bot/internal/chat"
	"tournament_bot/internal/domain"
	"tournament_bot/internal/wizard"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type creation struct {
	Name        string          `json:"name"`
	Mode        domain.Mode     `json:"mode"`
	Map         string          `json:"map"`
	EntryFee    decimal.Decimal `json:"entry_fee"`
	PerKill     decimal.Decimal `json:"per_kill"`
	WinnerPrize decimal.Decimal `json:"winner_prize"`
	MaxPlayers  int             `json:"max_players"`
	StartTime   time.Time       `json:"start_time"`
}

func (d *Deps) creationScene() wizard.Scene {
	return wizard.NewFlow[creation](CreateTournament, d.startCreation,
		d.createName,
		d.createMode,
		d.createMap,
		d.createAmount("entry fee", func(s *creation, v decimal.Decimal) { s.EntryFee = v }, "💸 Prize for each kill?"),
		d.createAmount("per-kill reward", func(s *creation, v decimal.Decimal) { s.PerKill = v }, "🥇 Prize for the winner?"),
		d.createAmount("winner prize", func(s *creation, v decimal.Decimal) { s.WinnerPrize = v }, ""),
		d.createMaxPlayers,
		d.createStart,
		d.createConfirm,
	).RequireAdmin()
}

func (d *Deps) startCreation(c *wizard.Context, _ *creation, _ map[string]string) (wizard.Transition, error) {
	c.Say("🏆 New tournament\n\nWhat is it called?")
	return wizard.Stay(), nil
}

func (d *Deps) createName(c *wizard.Context, s *creation, ev wizard.Event) (wizard.Transition, error) {
	name, err := parseName(ev.Text, 3, 64)
	if err != nil {
		c.Say("Name must be 3-64 characters.")
		return wizard.Stay(), nil
	}
	s.Name = name
	row := make([]chat.Button, 0, len(domain.Modes))
	for _, m := range domain.Modes {
		row = append(row, wizard.Button(strings.ToUpper(string(m)), "mode", string(m)))
	}
	c.Say("Mode?", row)
	return wizard.Advance(), nil
}

func (d *Deps) createMode(c *wizard.Context, s *creation, ev wizard.Event) (wizard.Transition, error) {
	mode := domain.Mode(ev.Arg)
	if !ev.Is("mode") || !mode.Valid() {
		c.Say("Pick a mode from the buttons.")
		return wizard.Stay(), nil
	}
	s.Mode = mode
	row := make([]chat.Button, 0, len(domain.Maps))
	for _, m := range domain.Maps {
		row = append(row, wizard.Button(strings.ToUpper(m[:1])+m[1:], "map", m))
	}
	c.Say("Map?", row)
	return wizard.Advance(), nil
}

func (d *Deps) createMap(c *wizard.Context, s *creation, ev wizard.Event) (wizard.Transition, error) {
	if !ev.Is("map") || !domain.ValidMap(ev.Arg) {
		c.Say("Pick a map from the buttons.")
		return wizard.Stay(), nil
	}
	s.Map = ev.Arg
	c.Say("💰 Entry fee? (0 for free)")
	return wizard.Advance(), nil
}

// createAmount reads a non-negative rupee amount into the field set updates
func (d *Deps) createAmount(label string, set func(*creation, decimal.Decimal), next string) wizard.StepFunc[creation] {
	return func(c *wizard.Context, s *creation, ev wizard.Event) (wizard.Transition, error) {
		v, err := parseAmount(ev.Text)
		if err != nil {
			c.Say("❌ The " + label + " must be a number, 0 or more.")
			return wizard.Stay(), nil
		}
		set(s, v)
		if next == "" {
			row := make([]chat.Button, 0, len(domain.PlayerCaps))
			for _, n := range domain.PlayerCaps {
				row = append(row, wizard.Button(strconv.Itoa(n)+" players", "max", strconv.Itoa(n)))
			}
			c.Say("👥 Maximum players?", row)
		} else {
			c.Say(next)
		}
		return wizard.Advance(), nil
	}
}

func (d *Deps) createMaxPlayers(c *wizard.Context, s *creation, ev wizard.Event) (wizard.Transition, error) {
	n, err := strconv.Atoi(ev.Arg)
	if !ev.Is("max") || err != nil || !domain.ValidPlayerCap(n) {
		c.Say("Pick a player cap from the buttons.")
		return wizard.Stay(), nil
	}
	s.MaxPlayers = n
	d.promptStart(c)
	return wizard.Advance(), nil
}

func (d *Deps) promptStart(c *wizard.Context) {
	c.Say("🕒 Start time? Send DD/MM/YYYY HH:MM (" + d.Location.String() + ")")
}

func (d *Deps) createStart(c *wizard.Context, s *creation, ev wizard.Event) (wizard.Transition, error) {
	at, err := parseStart(ev.Text, d.Location, d.Now())
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		c.Say("❌ Start time " + verr.Reason + ". Example: 25/12/2025 18:30")
		return wizard.Stay(), nil
	}
	s.StartTime = at.UTC()
	t := s.tournament(c.Actor.UserID)
	c.Say("Please confirm\n\n"+TournamentText(t, d.Location),
		chat.Row(wizard.Button("✅ Create", "confirm", "")),
		chat.Row(
			wizard.Button("🕒 Edit time", "edit_time", ""),
			wizard.Button("✖️ Cancel", "cancel", ""),
		),
	)
	return wizard.Advance(), nil
}

func (d *Deps) createConfirm(c *wizard.Context, s *creation, ev wizard.Event) (wizard.Transition, error) {
	switch {
	case ev.Is("cancel"):
		c.Say("Tournament discarded.")
		return wizard.Leave(), nil
	case ev.Is("edit_time"):
		d.promptStart(c)
		return wizard.Rewind(), nil
	case !ev.Is("confirm"):
		c.Say("Use the buttons above to confirm, edit or cancel.")
		return wizard.Stay(), nil
	}
	if !s.StartTime.After(d.Now()) {
		c.Say("❌ That start time has passed.")
		d.promptStart(c)
		return wizard.Rewind(), nil
	}

	t := s.tournament(c.Actor.UserID)
	if err := d.Store.CreateTournament(c.Ctx(), t); err != nil {
		return wizard.Leave(), err
	}
	c.Say("✅ Tournament created. Code: " + t.Code + "\n📣 Announcing to players…")

	creator := c.Actor.ChatID
	d.Go(c.Ctx(), func(ctx context.Context) { d.announceTournament(ctx, t, creator) })
	return wizard.Leave(), nil
}

// announceTournament tells opted-in players about t and reports the counts to the creator
func (d *Deps) announceTournament(ctx context.Context, t *domain.Tournament, creator int64) {
	ids, err := d.Store.NotifiableTelegramIDs(ctx)
	if err != nil {
		d.Log.WithFields(logrus.Fields{"tournament_id": t.ID, "error": err.Error()}).Error("Failed to load announcement audience")
		d.Notifier.Notify(ctx, creator, chat.Text("⚠️ Could not announce "+t.Code+". Try again from the tournament list."))
		return
	}
	rep := d.Notifier.Broadcast(ctx, ids, chat.Text("📣 New tournament!\n\n"+TournamentText(t, d.Location),
		chat.Row(chat.Button{Label: "🎯 Join", Data: CallbackID(CallbackJoin, t.ID)}),
	))
	d.Log.WithFields(logrus.Fields{"tournament_id": t.ID, "sent": rep.Sent, "failed": rep.Failed}).Info("Tournament announced")
	d.Notifier.Notify(ctx, creator, chat.Text("📣 Announcement sent to "+strconv.Itoa(rep.Sent)+" players, "+strconv.Itoa(rep.Failed)+" failed."))
}

func (s *creation) tournament(createdBy int64) *domain.Tournament {
	return &domain.Tournament{
		Name:          s.Name,
		Mode:          s.Mode,
		Map:           s.Map,
		GameType:      "BGMI",
		EntryFee:      s.EntryFee,
		PerKillReward: s.PerKill,
		WinnerPrize:   s.WinnerPrize,
		PrizePool:     domain.PrizePoolFor(s.WinnerPrize, s.PerKill, s.MaxPlayers),
		MaxPlayers:    s.MaxPlayers,
		StartTime:     s.StartTime,
		CreatedBy:     createdBy,
	}
}
