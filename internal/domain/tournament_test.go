package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPrizePoolFor(t *testing.T) {
	pool := PrizePoolFor(decimal.NewFromInt(500), decimal.NewFromInt(10), 50)
	assert.True(t, pool.Equal(decimal.NewFromInt(990)), pool.String())

	assert.True(t, PrizePoolFor(decimal.NewFromInt(100), decimal.NewFromInt(5), 0).Equal(decimal.NewFromInt(100)))
}

func TestTournamentReward(t *testing.T) {
	tr := Tournament{PerKillReward: decimal.NewFromInt(10), WinnerPrize: decimal.NewFromInt(500)}

	kill, win, total := tr.Reward(3, true)
	assert.True(t, kill.Equal(decimal.NewFromInt(30)))
	assert.True(t, win.Equal(decimal.NewFromInt(500)))
	assert.True(t, total.Equal(decimal.NewFromInt(530)))

	_, win, total = tr.Reward(0, false)
	assert.True(t, win.IsZero())
	assert.True(t, total.IsZero())
}

func TestTournamentCapacity(t *testing.T) {
	tr := Tournament{MaxPlayers: 50, RegisteredPlayers: 49}
	assert.False(t, tr.IsFull())
	assert.Equal(t, 1, tr.SpotsLeft())

	tr.RegisteredPlayers = 50
	assert.True(t, tr.IsFull())
	assert.Equal(t, 0, tr.SpotsLeft())
}

func TestUserHasCompleteProfile(t *testing.T) {
	u := User{Name: "Asha", Mobile: "9123456789", UPIID: "asha@upi", GameName: "AshaX", GamePlayerID: "51234567"}
	assert.True(t, u.HasCompleteProfile())
	assert.Equal(t, "AshaX", u.DisplayName())

	u.UPIID = ""
	assert.False(t, u.HasCompleteProfile())
}
