package wizard

import (
	"strings"

	"tournament_bot/internal/chat"
)

const callbackPrefix = "wz"

// Event is what a user sent to the active step: free text or a button action
type Event struct {
	Text   string
	Action string
	Arg    string
	Scope  string // session that issued the button
}

// TextEvent wraps a typed message
func TextEvent(text string) Event { return Event{Text: strings.TrimSpace(text)} }

// ActionEvent wraps a pressed button
func ActionEvent(action, arg string) Event { return Event{Action: action, Arg: arg} }

// IsAction reports whether the event came from a button
func (e Event) IsAction() bool { return e.Action != "" }

// Is reports whether the event is the named action
func (e Event) Is(action string) bool { return e.Action == action }

// Button builds an inline button that is routed back to the step that sent
// it. Context.Reply binds it to the session; unbound data never parses.
func Button(label, action, arg string) chat.Button {
	return chat.Button{Label: label, Data: callbackPrefix + "|" + action + "|" + arg}
}

// ParseCallback decodes the data of a bound Button: wz|scope|action|arg
func ParseCallback(data string) (Event, bool) {
	parts := strings.SplitN(data, "|", 4)
	if len(parts) != 4 || parts[0] != callbackPrefix || parts[1] == "" || parts[2] == "" {
		return Event{}, false
	}
	ev := ActionEvent(parts[2], parts[3])
	ev.Scope = parts[1]
	return ev, true
}
