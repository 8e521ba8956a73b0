package scenes

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"tournament_bot/internal/chat"
	"tournament_bot/internal/domain"
	"tournament_bot/internal/ledger"
	"tournament_bot/internal/wizard"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Editable tournament fields
const (
	fieldName  = "name"
	fieldFee   = "fee"
	fieldMax   = "max"
	fieldStart = "start"
)

// tournamentEdit collects changes until the admin saves them
type tournamentEdit struct {
	TournamentID uint             `json:"tournament_id"`
	Field        string           `json:"field"`
	Name         *string          `json:"name,omitempty"`
	EntryFee     *decimal.Decimal `json:"entry_fee,omitempty"`
	MaxPlayers   *int             `json:"max_players,omitempty"`
	StartTime    *time.Time       `json:"start_time,omitempty"`
}

func (s *tournamentEdit) changed() bool {
	return s.Name != nil || s.EntryFee != nil || s.MaxPlayers != nil || s.StartTime != nil
}

// preview overlays the unsaved changes on t
func (s *tournamentEdit) preview(t *domain.Tournament) *domain.Tournament {
	p := *t
	if s.Name != nil {
		p.Name = *s.Name
	}
	if s.EntryFee != nil {
		p.EntryFee = *s.EntryFee
	}
	if s.MaxPlayers != nil {
		p.MaxPlayers = *s.MaxPlayers
		p.PrizePool = domain.PrizePoolFor(p.WinnerPrize, p.PerKillReward, p.MaxPlayers)
	}
	if s.StartTime != nil {
		p.StartTime = *s.StartTime
	}
	return &p
}

const editMenu = 0 // field choice step

func (d *Deps) editScene() wizard.Scene {
	return wizard.NewFlow[tournamentEdit](EditTournament, d.startEdit,
		d.editChoose,
		d.editValue,
	).RequireAdmin()
}

func (d *Deps) startEdit(c *wizard.Context, s *tournamentEdit, params map[string]string) (wizard.Transition, error) {
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
	if t.Status != domain.TournamentOpen {
		c.Say("❌ Only open tournaments can be edited. " + t.Name + " is " + string(t.Status) + ".")
		return wizard.Leave(), nil
	}
	s.TournamentID = t.ID
	d.editPrompt(c, s, t, "✏️ Editing "+t.Name)
	return wizard.Stay(), nil
}

func (d *Deps) editPrompt(c *wizard.Context, s *tournamentEdit, t *domain.Tournament, title string) {
	c.Say(title+"\n\n"+TournamentText(s.preview(t), d.Location)+"\n\nWhat would you like to change?",
		chat.Row(
			wizard.Button("Name", "field", fieldName),
			wizard.Button("Entry fee", "field", fieldFee),
		),
		chat.Row(
			wizard.Button("Max players", "field", fieldMax),
			wizard.Button("Start time", "field", fieldStart),
		),
		chat.Row(
			wizard.Button("💾 Save", "save", ""),
			wizard.Button("✖️ Cancel", "cancel", ""),
		),
	)
}

func (d *Deps) editChoose(c *wizard.Context, s *tournamentEdit, ev wizard.Event) (wizard.Transition, error) {
	switch {
	case ev.Is("cancel"):
		c.Say("Edit discarded. Nothing was changed.")
		return wizard.Leave(), nil
	case ev.Is("save"):
		return d.editSave(c, s)
	case ev.Is("field"):
	default:
		c.Say("Pick a field or save using the buttons above.")
		return wizard.Stay(), nil
	}

	switch ev.Arg {
	case fieldName:
		c.Say("Send the new name.")
	case fieldFee:
		c.Say("Send the new entry fee. (0 for free)")
	case fieldMax:
		row := make([]chat.Button, 0, len(domain.PlayerCaps))
		for _, n := range domain.PlayerCaps {
			row = append(row, wizard.Button(strconv.Itoa(n)+" players", "max", strconv.Itoa(n)))
		}
		c.Say("👥 Maximum players?", row)
	case fieldStart:
		d.promptStart(c)
	default:
		c.Say("Pick a field from the buttons above.")
		return wizard.Stay(), nil
	}
	s.Field = ev.Arg
	return wizard.Advance(), nil
}

func (d *Deps) editValue(c *wizard.Context, s *tournamentEdit, ev wizard.Event) (wizard.Transition, error) {
	switch s.Field {
	case fieldName:
		name, err := parseName(ev.Text, 3, 64)
		if err != nil {
			c.Say("Name must be 3-64 characters.")
			return wizard.Stay(), nil
		}
		s.Name = &name
	case fieldFee:
		fee, err := parseAmount(ev.Text)
		if err != nil {
			c.Say("❌ The entry fee must be a number, 0 or more.")
			return wizard.Stay(), nil
		}
		s.EntryFee = &fee
	case fieldMax:
		n, err := strconv.Atoi(ev.Arg)
		if !ev.Is("max") || err != nil || !domain.ValidPlayerCap(n) {
			c.Say("Pick a player cap from the buttons.")
			return wizard.Stay(), nil
		}
		s.MaxPlayers = &n
	case fieldStart:
		at, err := parseStart(ev.Text, d.Location, d.Now())
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			c.Say("❌ Start time " + verr.Reason + ". Example: 25/12/2025 18:30")
			return wizard.Stay(), nil
		}
		if err != nil {
			return wizard.Stay(), err
		}
		at = at.UTC()
		s.StartTime = &at
	}
	s.Field = ""

	t, err := d.Store.TournamentByID(c.Ctx(), s.TournamentID)
	if err != nil {
		return wizard.Leave(), err
	}
	d.editPrompt(c, s, t, "Updated. Save when you're done.")
	return wizard.JumpTo(editMenu), nil
}

func (d *Deps) editSave(c *wizard.Context, s *tournamentEdit) (wizard.Transition, error) {
	if !s.changed() {
		c.Say("Nothing to save.")
		return wizard.Leave(), nil
	}
	t, err := d.Store.EditTournament(c.Ctx(), s.TournamentID, ledger.TournamentEdit{
		Name:       s.Name,
		EntryFee:   s.EntryFee,
		MaxPlayers: s.MaxPlayers,
		StartTime:  s.StartTime,
	})
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		c.Say("❌ The " + verr.Field + " " + verr.Reason + ". Change it or cancel.")
		return wizard.Stay(), nil
	case errors.Is(err, domain.ErrInvalidState):
		c.Say("❌ The tournament is no longer open. Nothing was changed.")
		return wizard.Leave(), nil
	case err != nil:
		return wizard.Leave(), err
	}
	c.Say("✅ Tournament updated.")
	fields := s.fields()
	d.Go(c.Ctx(), func(ctx context.Context) { d.announceEdit(ctx, t, fields) })
	return wizard.Leave(), nil
}

func (s *tournamentEdit) fields() []string {
	var out []string
	if s.Name != nil {
		out = append(out, "name")
	}
	if s.EntryFee != nil {
		out = append(out, "entry fee")
	}
	if s.MaxPlayers != nil {
		out = append(out, "max players")
	}
	if s.StartTime != nil {
		out = append(out, "start time")
	}
	return out
}

// announceEdit tells everyone registered for t what changed
func (d *Deps) announceEdit(ctx context.Context, t *domain.Tournament, fields []string) {
	ids, err := d.Store.RegistrantTelegramIDs(ctx, t.ID)
	if err != nil {
		d.Log.WithFields(logrus.Fields{"tournament_id": t.ID, "error": err.Error()}).Error("Failed to load registrants")
		return
	}
	rep := d.Notifier.Broadcast(ctx, ids, chat.Text("🔄 Tournament update\n\n"+
		"Changed: "+strings.Join(fields, ", ")+"\n\n"+
		TournamentText(t, d.Location)))
	d.Log.WithFields(logrus.Fields{"tournament_id": t.ID, "sent": rep.Sent, "failed": rep.Failed}).Info("Tournament edit announced")
}
