package chat

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMoney(t *testing.T) {
	assert.Equal(t, "₹450", Money(decimal.NewFromInt(450)))
	assert.Equal(t, "₹12.50", Money(decimal.RequireFromString("12.5")))
	assert.Contains(t, Money(decimal.NewFromInt(150000)), "1")
	assert.NotEqual(t, "₹150000", Money(decimal.NewFromInt(150000)), "large amounts are grouped")
}

func TestTextBuildsRows(t *testing.T) {
	m := Text("pick", Row(Button{Label: "a", Data: "x"}), Row(Link("pay", "https://p")))
	assert.Len(t, m.Buttons, 2)
	assert.Equal(t, "https://p", m.Buttons[1][0].URL)
}
