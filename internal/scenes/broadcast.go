package scenes

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"tournament_bot/internal/chat"
	"tournament_bot/internal/wizard"

	"github.com/sirupsen/logrus"
)

// maxBroadcast leaves room for the header inside Telegram's 4096 limit
const maxBroadcast = 3500

type broadcast struct {
	Text string `json:"text"`
}

func (d *Deps) broadcastScene() wizard.Scene {
	return wizard.NewFlow[broadcast](Broadcast, d.startBroadcast,
		d.broadcastCompose,
		d.broadcastConfirm,
	).RequireAdmin()
}

func (d *Deps) startBroadcast(c *wizard.Context, _ *broadcast, _ map[string]string) (wizard.Transition, error) {
	c.Say("📢 Send the message you want to broadcast to all users.")
	return wizard.Stay(), nil
}

func (d *Deps) broadcastCompose(c *wizard.Context, s *broadcast, ev wizard.Event) (wizard.Transition, error) {
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		c.Say("Please send the announcement as a text message.")
		return wizard.Stay(), nil
	}
	if utf8.RuneCountInString(text) > maxBroadcast {
		c.Say("❌ That message is too long. Keep it under " + strconv.Itoa(maxBroadcast) + " characters.")
		return wizard.Stay(), nil
	}
	s.Text = text
	c.Say("You are about to send this to all users:\n\n"+text+"\n\nAre you sure?",
		chat.Row(
			wizard.Button("✅ Send", "send", ""),
			wizard.Button("✏️ Rewrite", "rewrite", ""),
			wizard.Button("✖️ Cancel", "cancel", ""),
		),
	)
	return wizard.Advance(), nil
}

func (d *Deps) broadcastConfirm(c *wizard.Context, s *broadcast, ev wizard.Event) (wizard.Transition, error) {
	switch {
	case ev.Is("cancel"):
		c.Say("Broadcast cancelled.")
		return wizard.Leave(), nil
	case ev.Is("rewrite"):
		c.Say("📢 Send the new message.")
		return wizard.Rewind(), nil
	case !ev.Is("send"):
		c.Say("Use the buttons above to send, rewrite or cancel.")
		return wizard.Stay(), nil
	}

	ids, err := d.Store.ActiveTelegramIDs(c.Ctx())
	if err != nil {
		return wizard.Leave(), err
	}
	if len(ids) == 0 {
		c.Say("No users to broadcast to.")
		return wizard.Leave(), nil
	}
	c.Say("📢 Broadcasting to " + strconv.Itoa(len(ids)) + " users…")
	admin, text := c.Actor.ChatID, s.Text
	d.Go(c.Ctx(), func(ctx context.Context) {
		rep := d.Notifier.Broadcast(ctx, ids, chat.Text("📢 Announcement 📢\n\n"+text))
		d.Log.WithFields(logrus.Fields{"admin": admin, "sent": rep.Sent, "failed": rep.Failed}).Info("Broadcast finished")
		d.Notifier.Notify(ctx, admin, chat.Text("Broadcast complete!\n\nSuccess: "+strconv.Itoa(rep.Sent)+"\nFailed: "+strconv.Itoa(rep.Failed)))
	})
	return wizard.Leave(), nil
}
