package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// WithdrawalStatus is the lifecycle of a withdrawal request
type WithdrawalStatus string

const (
	WithdrawalPending   WithdrawalStatus = "pending"
	WithdrawalCompleted WithdrawalStatus = "completed"
	WithdrawalRejected  WithdrawalStatus = "rejected"
)

// Withdrawal Model. The wallet is debited when the request is created.
type Withdrawal struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	UserID      uint             `gorm:"index;not null" json:"user_id"`
	Amount      decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"amount"`
	UPIID       string           `gorm:"column:upi_id;size:64;not null" json:"upi_id"`
	Status      WithdrawalStatus `gorm:"size:16;index;not null;default:pending" json:"status"`
	PayoutRef   string           `gorm:"size:64" json:"payout_ref,omitempty"`
	Note        string           `gorm:"size:255" json:"note,omitempty"`
	ProcessedAt *time.Time       `json:"processed_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}
