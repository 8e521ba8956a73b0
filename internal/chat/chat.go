// Package chat is the transport-neutral message model the scenes speak.
package chat

import (
	"context"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Button is an inline button. Buttons with a URL open a link instead of
// sending Data back.
type Button struct {
	Label string
	Data  string
	URL   string
}

// Message is an outbound text with optional inline keyboard rows. Menu
// replaces the user's reply keyboard and is ignored when Buttons is set.
type Message struct {
	Text    string
	Buttons [][]Button
	Menu    [][]string
}

// Sender delivers messages to a chat
type Sender interface {
	Send(ctx context.Context, chatID int64, msg Message) error
}

// Text builds a plain message
func Text(s string, rows ...[]Button) Message {
	return Message{Text: s, Buttons: rows}
}

// Row groups buttons on one keyboard line
func Row(b ...Button) []Button { return b }

// Link is a URL button
func Link(label, url string) Button { return Button{Label: label, URL: url} }

var printer = message.NewPrinter(language.MustParse("en-IN"))

// Money renders a rupee amount with grouping, dropping zero paise
func Money(d decimal.Decimal) string {
	if d.Equal(d.Truncate(0)) {
		return printer.Sprintf("₹%d", d.IntPart())
	}
	return printer.Sprintf("₹%.2f", d.InexactFloat64())
}
