package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is how money is paid in
type PaymentMethod string

const (
	MethodWallet PaymentMethod = "wallet"
	MethodUPI    PaymentMethod = "upi"
	MethodCard   PaymentMethod = "card"
)

// PaymentStatus is the lifecycle of a gateway payment
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Payment Model. Persisted before the gateway is called so every
// link shown to a user has a row to reconcile against.
type Payment struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	UserID           uint            `gorm:"index;not null" json:"user_id"`
	Amount           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	OrderID          string          `gorm:"size:64;uniqueIndex;not null" json:"order_id"`
	Gateway          string          `gorm:"size:32;not null" json:"gateway"`
	GatewayOrderID   string          `gorm:"size:64;index" json:"gateway_order_id,omitempty"`
	Method           PaymentMethod   `gorm:"size:16;not null" json:"method"`
	Status           PaymentStatus   `gorm:"size:16;index;not null;default:pending" json:"status"`
	LinkID           string          `gorm:"size:64" json:"link_id,omitempty"`
	LinkURL          string          `gorm:"size:255" json:"link_url,omitempty"`
	GatewayPaymentID string          `gorm:"size:64" json:"gateway_payment_id,omitempty"`
	FailureReason    string          `gorm:"size:255" json:"failure_reason,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}
