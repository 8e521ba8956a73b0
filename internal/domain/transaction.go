package domain

import (
	"time" // Timestamps

	"github.com/shopspring/decimal" // Exact money arithmetic
)

// TxType is the kind of ledger movement
type TxType string

const (
	TxDeposit          TxType = "deposit"           // Gateway deposit credited to the wallet
	TxWithdrawal       TxType = "withdrawal"        // Withdrawal request debit
	TxTournamentFee    TxType = "tournament_fee"    // Entry fee debit
	TxTournamentReward TxType = "tournament_reward" // Prize credit
	TxReferralBonus    TxType = "referral_bonus"    // Referral credit
	TxWithdrawalRefund TxType = "withdrawal_refund" // Credit back of a rejected withdrawal
)

// Transaction Model. Rows are append-only; Amount is signed.
type Transaction struct {
	ID           uint            `gorm:"primaryKey" json:"id"`                         // Primary key
	UserID       uint            `gorm:"index;not null" json:"user_id"`                // Owner
	Amount       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`    // Positive credit, negative debit
	Type         TxType          `gorm:"size:32;index;not null" json:"type"`           // Movement kind
	Reference    string          `gorm:"size:64;index" json:"reference"`               // Order id, withdrawal id, etc.
	TournamentID *uint           `gorm:"index" json:"tournament_id,omitempty"`         // Related tournament if any
	Description  string          `gorm:"size:255" json:"description"`                  // Human readable note
	CreatedAt    time.Time       `gorm:"index" json:"created_at"`                      // Creation time
}
