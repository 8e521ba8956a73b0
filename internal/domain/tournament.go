package domain

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Mode is the team size of a tournament
type Mode string

const (
	ModeSolo  Mode = "solo"
	ModeDuo   Mode = "duo"
	ModeSquad Mode = "squad"
)

// Modes lists the valid modes in display order
var Modes = []Mode{ModeSolo, ModeDuo, ModeSquad}

// Maps lists the playable maps in display order
var Maps = []string{"erangel", "miramar", "sanhok", "vikendi"}

// PlayerCaps lists the allowed tournament sizes
var PlayerCaps = []int{50, 100}

// Valid reports whether m is a known mode
func (m Mode) Valid() bool { return slices.Contains(Modes, m) }

// ValidMap reports whether name is a playable map
func ValidMap(name string) bool { return slices.Contains(Maps, name) }

// ValidPlayerCap reports whether n is an allowed tournament size
func ValidPlayerCap(n int) bool { return slices.Contains(PlayerCaps, n) }

// TournamentStatus moves open -> ready -> live -> completed
type TournamentStatus string

const (
	TournamentOpen      TournamentStatus = "open"
	TournamentReady     TournamentStatus = "ready"
	TournamentLive      TournamentStatus = "live"
	TournamentCompleted TournamentStatus = "completed"
)

// Tournament Model
type Tournament struct {
	ID                uint             `gorm:"primaryKey" json:"id"`
	Code              string           `gorm:"size:80;uniqueIndex;not null" json:"code"`
	Name              string           `gorm:"size:128;not null" json:"name"`
	Mode              Mode             `gorm:"size:16;not null" json:"mode"`
	Map               string           `gorm:"column:map;size:16;not null" json:"map"`
	GameType          string           `gorm:"size:32;not null;default:BGMI" json:"game_type"`
	EntryFee          decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0" json:"entry_fee"`
	PerKillReward     decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0" json:"per_kill_reward"`
	WinnerPrize       decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0" json:"winner_prize"`
	PrizePool         decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0" json:"prize_pool"`
	MaxPlayers        int              `gorm:"not null" json:"max_players"`
	RegisteredPlayers int              `gorm:"not null;default:0" json:"registered_players"`
	StartTime         time.Time        `gorm:"index;not null" json:"start_time"`
	Status            TournamentStatus `gorm:"size:16;index;not null;default:open" json:"status"`
	RoomID            *string          `gorm:"size:16" json:"room_id,omitempty"`
	RoomPassword      *string          `gorm:"size:16" json:"room_password,omitempty"`
	RemindersSent     bool             `gorm:"not null;default:false" json:"reminders_sent"`
	CreatedBy         int64            `json:"created_by"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// IsFull reports whether every slot is taken
func (t *Tournament) IsFull() bool { return t.RegisteredPlayers >= t.MaxPlayers }

// SpotsLeft is the number of open slots
func (t *Tournament) SpotsLeft() int {
	if t.IsFull() {
		return 0
	}
	return t.MaxPlayers - t.RegisteredPlayers
}

// PrizePoolFor is the most a tournament can pay out: the winner prize plus
// a kill reward for every other player.
func PrizePoolFor(winnerPrize, perKill decimal.Decimal, maxPlayers int) decimal.Decimal {
	if maxPlayers < 1 {
		return winnerPrize
	}
	return winnerPrize.Add(perKill.Mul(decimal.NewFromInt(int64(maxPlayers - 1))))
}

// Reward computes the payout for one registrant.
func (t *Tournament) Reward(kills int, winner bool) (killReward, winnerReward, total decimal.Decimal) {
	killReward = t.PerKillReward.Mul(decimal.NewFromInt(int64(kills)))
	winnerReward = decimal.Zero
	if winner {
		winnerReward = t.WinnerPrize
	}
	return killReward, winnerReward, killReward.Add(winnerReward)
}

// RegistrationStatus tracks whether an entry fee has been settled
type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "pending"
	RegistrationCompleted RegistrationStatus = "completed"
)

// Registration Model, one per user per tournament
type Registration struct {
	ID            uint               `gorm:"primaryKey" json:"id"`
	UserID        uint               `gorm:"uniqueIndex:idx_registration_user_tournament;not null" json:"user_id"`
	TournamentID  uint               `gorm:"uniqueIndex:idx_registration_user_tournament;index;not null" json:"tournament_id"`
	PaymentStatus RegistrationStatus `gorm:"size:16;not null" json:"payment_status"`
	PaymentMethod PaymentMethod      `gorm:"size:16;not null" json:"payment_method"`
	Reference     string             `gorm:"size:64;uniqueIndex;not null" json:"reference"`
	User          User               `gorm:"foreignKey:UserID" json:"-"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// TournamentResult Model, one per registrant once results are entered
type TournamentResult struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	TournamentID uint            `gorm:"uniqueIndex:idx_result_tournament_user;not null" json:"tournament_id"`
	UserID       uint            `gorm:"uniqueIndex:idx_result_tournament_user;index;not null" json:"user_id"`
	Kills        int             `gorm:"not null;default:0" json:"kills"`
	Position     *int            `json:"position,omitempty"`
	KillReward   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"kill_reward"`
	WinnerReward decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"winner_reward"`
	TotalReward  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_reward"`
	CreatedAt    time.Time       `json:"created_at"`
}
