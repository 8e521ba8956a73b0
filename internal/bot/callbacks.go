package bot

import (
	"context"
	"errors"
	"strconv"

	"tournament_bot/internal/api"
	"tournament_bot/internal/chat"
	"tournament_bot/internal/domain"
	"tournament_bot/internal/scenes"

	"github.com/sirupsen/logrus"
)

// callback handles buttons that live outside any scene. The returned text
// is shown to the admin as a toast.
func (b *Bot) callback(ctx context.Context, req request, kind, arg string) (string, error) {
	switch kind {
	case scenes.CallbackJoin:
		return "", b.enter(ctx, req, scenes.JoinTournament, map[string]string{scenes.ParamTournament: arg})
	case scenes.CallbackDetails:
		return b.details(ctx, req, arg)
	case scenes.CallbackResults:
		return "", b.enter(ctx, req, scenes.EnterResults, map[string]string{scenes.ParamTournament: arg})
	}

	if !req.actor.IsAdmin {
		b.log.WithFields(logrus.Fields{"telegram_id": req.actor.UserID, "kind": kind}).Warn("Non-admin pressed an admin button")
		return "Admins only", nil
	}
	switch kind {
	case scenes.CallbackApprove:
		return b.approve(ctx, req, arg)
	case scenes.CallbackReject:
		return b.reject(ctx, req, arg)
	case scenes.CallbackConfirm:
		return b.confirm(ctx, req, arg)
	case scenes.CallbackEdit:
		return "", b.enter(ctx, req, scenes.EditTournament, map[string]string{scenes.ParamTournament: arg})
	default:
		return expiredText, nil
	}
}

func (b *Bot) details(ctx context.Context, req request, arg string) (string, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return expiredText, nil
	}
	t, err := b.store.TournamentByID(ctx, uint(id))
	if errors.Is(err, domain.ErrNotFound) {
		return "Tournament not found", nil
	}
	if err != nil {
		return "", err
	}
	text := scenes.TournamentText(t, b.scenes.Location) + "\nStatus: " + string(t.Status)
	return "", b.reply(ctx, req, text, tournamentButtons(t, req.actor.IsAdmin))
}

func withdrawalID(arg string) (uint, bool) {
	id, err := strconv.ParseUint(arg, 10, 64)
	return uint(id), err == nil
}

func (b *Bot) approve(ctx context.Context, req request, arg string) (string, error) {
	id, ok := withdrawalID(arg)
	if !ok {
		return expiredText, nil
	}
	w, err := b.payouts.Approve(ctx, id)
	if toast, handled := decisionRefused(err); handled {
		return toast, nil
	}
	var ext *domain.ExternalError
	if errors.As(err, &ext) {
		return "", b.reply(ctx, req, "⚠️ Payout for withdrawal #"+arg+" failed: "+ext.Err.Error()+"\nIt is still pending.")
	}
	if err != nil {
		return "", err
	}
	return "Approved", b.reply(ctx, req, "✅ Withdrawal #"+arg+" of "+chat.Money(w.Amount)+" paid to "+w.UPIID+" (ref "+w.PayoutRef+").")
}

func (b *Bot) reject(ctx context.Context, req request, arg string) (string, error) {
	id, ok := withdrawalID(arg)
	if !ok {
		return expiredText, nil
	}
	w, err := b.payouts.Reject(ctx, id, "")
	if toast, handled := decisionRefused(err); handled {
		return toast, nil
	}
	if err != nil {
		return "", err
	}
	return "Rejected", b.reply(ctx, req, "❌ Withdrawal #"+arg+" rejected. "+chat.Money(w.Amount)+" refunded.")
}

// decisionRefused turns the expected refusals of a withdrawal decision into a toast
func decisionRefused(err error) (string, bool) {
	switch {
	case errors.Is(err, domain.ErrInvalidState):
		return "Already processed", true
	case errors.Is(err, domain.ErrNotFound):
		return "Withdrawal not found", true
	}
	return "", false
}

func (b *Bot) confirm(ctx context.Context, req request, ref string) (string, error) {
	res, err := api.ConfirmRegistration(ctx, b.log, b.store, b.scenes.Notifier, b.scenes, ref)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "Registration not found", nil
	case errors.Is(err, domain.ErrInvalidState):
		return "Already confirmed or tournament closed", nil
	case errors.Is(err, domain.ErrTournamentFull):
		return "Tournament is full", nil
	case err != nil:
		return "", err
	}
	text := "✅ Registration " + ref + " confirmed for " + res.Tournament.Name + ". Slots: " +
		strconv.Itoa(res.Tournament.RegisteredPlayers) + "/" + strconv.Itoa(res.Tournament.MaxPlayers)
	if res.BecameReady {
		text += "\nThe tournament is full and room details were sent."
	}
	return "Confirmed", b.reply(ctx, req, text)
}
