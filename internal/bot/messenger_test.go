package bot

import (
	"context"
	"errors"
	"testing"

	"tournament_bot/internal/chat"
	"tournament_bot/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	err      error
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: f.err == nil}, f.err
}

func TestMessengerRendersInlineButtons(t *testing.T) {
	api := &fakeAPI{}
	m := NewMessenger(api)

	err := m.Send(context.Background(), 42, chat.Text("Pick one",
		chat.Row(chat.Button{Label: "Join", Data: "tj:1"}, chat.Link("Pay", "https://pay.test/o1")),
	))
	require.NoError(t, err)
	require.Len(t, api.sent, 1)
	msg := api.sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, "Pick one", msg.Text)

	kb := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.Len(t, kb.InlineKeyboard, 1)
	row := kb.InlineKeyboard[0]
	require.Len(t, row, 2)
	require.NotNil(t, row[0].CallbackData)
	assert.Equal(t, "tj:1", *row[0].CallbackData)
	require.NotNil(t, row[1].URL)
	assert.Equal(t, "https://pay.test/o1", *row[1].URL)
}

func TestMessengerRendersMenu(t *testing.T) {
	api := &fakeAPI{}
	m := NewMessenger(api)

	require.NoError(t, m.Send(context.Background(), 42, chat.Message{Text: "Hi", Menu: guestMenu}))
	kb := api.sent[0].(tgbotapi.MessageConfig).ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	assert.True(t, kb.ResizeKeyboard)
	require.Len(t, kb.Keyboard, 2)
	assert.Equal(t, labelRegister, kb.Keyboard[0][0].Text)

	require.NoError(t, m.Send(context.Background(), 42, chat.Text("plain")))
	assert.Nil(t, api.sent[1].(tgbotapi.MessageConfig).ReplyMarkup)
}

func TestMessengerWrapsFailures(t *testing.T) {
	api := &fakeAPI{err: errors.New("Forbidden: bot was blocked by the user")}
	m := NewMessenger(api)

	err := m.Send(context.Background(), 42, chat.Text("hi"))
	var ext *domain.ExternalError
	require.ErrorAs(t, err, &ext)
	assert.Equal(t, "telegram", ext.Service)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, m.Send(ctx, 42, chat.Text("hi")), context.Canceled)
	assert.Len(t, api.sent, 1)
}

func TestMessengerAnswersAndPublishesCommands(t *testing.T) {
	api := &fakeAPI{}
	m := NewMessenger(api)

	require.NoError(t, m.Answer(context.Background(), "cb1", "Approved"))
	cb := api.requests[0].(tgbotapi.CallbackConfig)
	assert.Equal(t, "cb1", cb.CallbackQueryID)
	assert.Equal(t, "Approved", cb.Text)

	require.NoError(t, m.SetCommands(Commands))
	cmds := api.requests[1].(tgbotapi.SetMyCommandsConfig)
	assert.Len(t, cmds.Commands, len(Commands))
	assert.Equal(t, "start", cmds.Commands[0].Command)
}
