// Package bot adapts Telegram updates onto commands, callbacks and the
// wizard engine.
package bot

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"tournament_bot/internal/chat"
	"tournament_bot/internal/domain"
	"tournament_bot/internal/ledger"
	"tournament_bot/internal/payout"
	"tournament_bot/internal/scenes"
	"tournament_bot/internal/wizard"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	bannedText  = "🚫 Your account has been suspended. Contact support if you think this is a mistake."
	unknownText = "I didn't understand that. Use the menu below or /help."
	expiredText = "This button has expired."
)

// Answerer acknowledges callback queries
type Answerer interface {
	Answer(ctx context.Context, callbackID, text string) error
}

// UpdateSource is the long-polling side of *tgbotapi.BotAPI
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Config carries the bot's settings
type Config struct {
	Username  string        // bot @username, used in referral links
	AdminIDs  []int64       // configured admins
	JWTSecret string        // signs /apitoken tokens
	JWTTTL    time.Duration // lifetime of /apitoken tokens
	Workers   int           // concurrent update handlers
}

// Bot routes updates
type Bot struct {
	engine  *wizard.Engine
	scenes  *scenes.Deps
	store   *ledger.Store
	payouts *payout.Service
	rdb     *redis.Client
	out     chat.Sender
	answers Answerer
	cfg     Config
	log     *logrus.Logger
}

// New builds a Bot. sc must be the same Deps the engine's scenes were built from.
func New(engine *wizard.Engine, sc *scenes.Deps, payouts *payout.Service, rdb *redis.Client, out chat.Sender, answers Answerer, cfg Config, log *logrus.Logger) *Bot {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Bot{
		engine:  engine,
		scenes:  sc,
		store:   sc.Store,
		payouts: payouts,
		rdb:     rdb,
		out:     out,
		answers: answers,
		cfg:     cfg,
		log:     log,
	}
}

// Run long-polls Telegram until ctx is done
func (b *Bot) Run(ctx context.Context, src UpdateSource) error {
	uc := tgbotapi.NewUpdate(0)
	uc.Timeout = 30
	updates := src.GetUpdatesChan(uc)
	defer src.StopReceivingUpdates()
	b.log.WithFields(logrus.Fields{"username": b.cfg.Username, "workers": b.cfg.Workers}).Info("Bot polling started")
	return b.Serve(ctx, updates)
}

// Serve handles updates until ctx is done or the channel closes. Updates
// from the same user always land on the same worker, so they are handled in
// arrival order while different users proceed in parallel. Handlers already
// running when ctx ends are allowed to finish.
func (b *Bot) Serve(ctx context.Context, updates <-chan tgbotapi.Update) error {
	work := context.WithoutCancel(ctx)
	lanes := make([]chan tgbotapi.Update, b.cfg.Workers)
	var g errgroup.Group
	for i := range lanes {
		lane := make(chan tgbotapi.Update, 16)
		lanes[i] = lane
		g.Go(func() error {
			for u := range lane {
				b.HandleUpdate(work, u)
			}
			return nil
		})
	}

	defer func() {
		for _, lane := range lanes {
			close(lane)
		}
		_ = g.Wait()
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			lane := lanes[laneFor(u, len(lanes))]
			select {
			case lane <- u:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func laneFor(u tgbotapi.Update, n int) int {
	var id int64
	if from := u.SentFrom(); from != nil {
		id = from.ID
	}
	if id < 0 {
		id = -id
	}
	return int(id % int64(n))
}

// HandleUpdate routes one update. Failures are logged, never returned, so a
// bad update cannot stop the loop.
func (b *Bot) HandleUpdate(ctx context.Context, u tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.WithFields(logrus.Fields{"update_id": u.UpdateID, "panic": fmt.Sprint(r)}).Error("Update handler panicked")
		}
	}()
	var err error
	switch {
	case u.Message != nil:
		err = b.handleMessage(ctx, u.Message)
	case u.CallbackQuery != nil:
		err = b.handleCallback(ctx, u.CallbackQuery)
	}
	if err != nil {
		b.log.WithFields(logrus.Fields{"update_id": u.UpdateID, "error": err.Error()}).Error("Update handling failed")
	}
}

// request is one inbound interaction, resolved against the store
type request struct {
	actor wizard.Actor
	user  *domain.User // nil until registered
}

func (r request) registered() bool { return r.user != nil }

func (b *Bot) resolve(ctx context.Context, from *tgbotapi.User, chatID int64) (request, error) {
	a := wizard.Actor{
		UserID:   from.ID,
		ChatID:   chatID,
		Username: from.UserName,
		Name:     strings.TrimSpace(from.FirstName + " " + from.LastName),
	}
	u, err := b.store.UserByTelegramID(ctx, from.ID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		u = nil
	case err != nil:
		return request{}, fmt.Errorf("load user %d: %w", from.ID, err)
	}
	a.IsAdmin = slices.Contains(b.cfg.AdminIDs, from.ID) || (u != nil && u.IsAdmin)
	return request{actor: a, user: u}, nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil || msg.From.IsBot {
		return nil
	}
	req, err := b.resolve(ctx, msg.From, msg.Chat.ID)
	if err != nil {
		return err
	}
	if req.user != nil && req.user.IsBanned {
		return b.reply(ctx, req, bannedText)
	}

	if msg.IsCommand() {
		return b.command(ctx, req, msg.Command(), strings.TrimSpace(msg.CommandArguments()))
	}
	text := strings.TrimSpace(msg.Text)
	if cmd, ok := labelCommands[text]; ok {
		return b.command(ctx, req, cmd, "")
	}
	if text == "" {
		return nil
	}
	handled, err := b.engine.Dispatch(ctx, req.actor, wizard.TextEvent(text))
	if err != nil || handled {
		return err
	}
	return b.send(ctx, req, chat.Message{Text: unknownText, Menu: menuFor(req.registered(), req.actor.IsAdmin)})
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb.From == nil {
		return nil
	}
	chatID := cb.From.ID
	if cb.Message != nil && cb.Message.Chat != nil {
		chatID = cb.Message.Chat.ID
	}
	req, err := b.resolve(ctx, cb.From, chatID)
	if err != nil {
		b.answer(ctx, cb.ID, "")
		return err
	}
	if req.user != nil && req.user.IsBanned {
		b.answer(ctx, cb.ID, bannedText)
		return nil
	}

	if ev, ok := wizard.ParseCallback(cb.Data); ok {
		handled, err := b.engine.Dispatch(ctx, req.actor, ev)
		if err == nil && !handled {
			b.answer(ctx, cb.ID, expiredText)
			return nil
		}
		b.answer(ctx, cb.ID, "")
		return err
	}
	kind, arg, ok := scenes.ParseCallback(cb.Data)
	if !ok {
		b.answer(ctx, cb.ID, expiredText)
		return nil
	}
	toast, err := b.callback(ctx, req, kind, arg)
	b.answer(ctx, cb.ID, toast)
	return err
}

func (b *Bot) answer(ctx context.Context, callbackID, text string) {
	if err := b.answers.Answer(ctx, callbackID, text); err != nil {
		b.log.WithFields(logrus.Fields{"callback_id": callbackID, "error": err.Error()}).Warn("Callback answer failed")
	}
}

func (b *Bot) reply(ctx context.Context, req request, text string, rows ...[]chat.Button) error {
	return b.send(ctx, req, chat.Text(text, rows...))
}

func (b *Bot) send(ctx context.Context, req request, msg chat.Message) error {
	return b.out.Send(ctx, req.actor.ChatID, msg)
}
