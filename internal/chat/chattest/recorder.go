// Package chattest records outbound messages for assertions.
package chattest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"tournament_bot/internal/chat"
)

// ErrBlocked simulates a user who blocked the bot
var ErrBlocked = errors.New("bot was blocked by the user")

// Sent is one recorded delivery
type Sent struct {
	ChatID int64
	Msg    chat.Message
}

// Recorder is a chat.Sender that remembers everything it was asked to send
type Recorder struct {
	mu     sync.Mutex
	sent   []Sent
	failed map[int64]bool
}

// New returns an empty Recorder
func New() *Recorder { return &Recorder{failed: make(map[int64]bool)} }

// FailFor makes deliveries to chatID return ErrBlocked
func (r *Recorder) FailFor(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[chatID] = true
}

func (r *Recorder) Send(_ context.Context, chatID int64, msg chat.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failed[chatID] {
		return ErrBlocked
	}
	r.sent = append(r.sent, Sent{ChatID: chatID, Msg: msg})
	return nil
}

// All returns a copy of every delivery
func (r *Recorder) All() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

// To returns deliveries to one chat
func (r *Recorder) To(chatID int64) []chat.Message {
	var out []chat.Message
	for _, s := range r.All() {
		if s.ChatID == chatID {
			out = append(out, s.Msg)
		}
	}
	return out
}

// Last returns the latest message sent to chatID
func (r *Recorder) Last(chatID int64) chat.Message {
	msgs := r.To(chatID)
	if len(msgs) == 0 {
		return chat.Message{}
	}
	return msgs[len(msgs)-1]
}

// Contains reports whether any message to chatID contains substr
func (r *Recorder) Contains(chatID int64, substr string) bool {
	for _, m := range r.To(chatID) {
		if strings.Contains(m.Text, substr) {
			return true
		}
	}
	return false
}

// Reset forgets recorded messages
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}
