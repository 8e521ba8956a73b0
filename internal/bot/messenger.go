package bot

import (
	"context"

	"tournament_bot/internal/chat"
	"tournament_bot/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// API is the slice of *tgbotapi.BotAPI the messenger needs
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Messenger delivers chat messages through the Telegram Bot API
type Messenger struct {
	api API
}

func NewMessenger(api API) *Messenger { return &Messenger{api: api} }

// Send implements chat.Sender
func (m *Messenger) Send(ctx context.Context, chatID int64, msg chat.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := m.api.Send(render(chatID, msg)); err != nil {
		return &domain.ExternalError{Service: "telegram", Err: err}
	}
	return nil
}

// Answer acknowledges a callback query; a non-empty text shows as a toast
func (m *Messenger) Answer(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := m.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return &domain.ExternalError{Service: "telegram", Err: err}
	}
	return nil
}

// SetCommands publishes the command list shown in Telegram's menu
func (m *Messenger) SetCommands(cmds []Command) error {
	list := make([]tgbotapi.BotCommand, 0, len(cmds))
	for _, c := range cmds {
		list = append(list, tgbotapi.BotCommand{Command: c.Name, Description: c.Description})
	}
	_, err := m.api.Request(tgbotapi.NewSetMyCommands(list...))
	return err
}

func render(chatID int64, msg chat.Message) tgbotapi.MessageConfig {
	out := tgbotapi.NewMessage(chatID, msg.Text)
	out.DisableWebPagePreview = true
	switch {
	case len(msg.Buttons) > 0:
		out.ReplyMarkup = inlineKeyboard(msg.Buttons)
	case len(msg.Menu) > 0:
		out.ReplyMarkup = replyKeyboard(msg.Menu)
	}
	return out
}

func inlineKeyboard(rows [][]chat.Button) tgbotapi.InlineKeyboardMarkup {
	kb := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		line := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if b.URL != "" {
				line = append(line, tgbotapi.NewInlineKeyboardButtonURL(b.Label, b.URL))
				continue
			}
			line = append(line, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		kb = append(kb, line)
	}
	return tgbotapi.NewInlineKeyboardMarkup(kb...)
}

func replyKeyboard(rows [][]string) tgbotapi.ReplyKeyboardMarkup {
	kb := make([][]tgbotapi.KeyboardButton, 0, len(rows))
	for _, row := range rows {
		line := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, label := range row {
			line = append(line, tgbotapi.NewKeyboardButton(label))
		}
		kb = append(kb, line)
	}
	markup := tgbotapi.NewReplyKeyboard(kb...)
	markup.ResizeKeyboard = true
	return markup
}
