package domain

import (
	"time" // Timestamps

	"github.com/shopspring/decimal" // Exact money arithmetic
)

// User Model
type User struct {
	ID                      uint            `gorm:"primaryKey"`                              // Primary key
	TelegramID              int64           `gorm:"uniqueIndex;not null"`                    // Telegram user id
	Username                string          `gorm:"size:64"`                                 // Telegram @username, may be empty
	Name                    string          `gorm:"size:128;not null"`                       // Full name
	Mobile                  string          `gorm:"size:15;uniqueIndex;not null"`            // Verified mobile number
	UPIID                   string          `gorm:"column:upi_id;size:64"`                   // Payout UPI id
	GameName                string          `gorm:"size:64"`                                 // In-game name
	GamePlayerID            string          `gorm:"size:16"`                                 // In-game numeric player id
	Balance                 decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`   // Wallet balance, never negative
	IsAdmin                 bool            `gorm:"not null;default:false"`                  // Admin flag
	IsBanned                bool            `gorm:"not null;default:false"`                  // Banned users are ignored by the bot
	TournamentNotifications bool            `gorm:"not null;default:true"`                   // Opt-in for tournament announcements
	CreatedAt               time.Time       // Registration time
	UpdatedAt               time.Time       // Last update
}

// HasCompleteProfile reports whether the user can join tournaments
func (u *User) HasCompleteProfile() bool {
	return u.Name != "" && u.Mobile != "" && u.UPIID != "" && u.GameName != "" && u.GamePlayerID != ""
}

// DisplayName prefers the in-game name
func (u *User) DisplayName() string {
	if u.GameName != "" {
		return u.GameName
	}
	return u.Name
}

// PendingReferral Model, removed once the referred user registers
type PendingReferral struct {
	ID                 uint      `gorm:"primaryKey"`           // Primary key
	ReferredTelegramID int64     `gorm:"uniqueIndex;not null"` // User who opened the referral link
	ReferrerTelegramID int64     `gorm:"index;not null"`       // User who shared it
	CreatedAt          time.Time // Creation time
}
