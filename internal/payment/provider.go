// Package payment talks to the payment gateway: collecting deposits through
// payment links and paying out withdrawals.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/shopspring/decimal"
)

// Order is a gateway order that a payment link settles
type Order struct {
	ID       string
	Amount   decimal.Decimal
	Currency string
	Receipt  string
	Status   string
}

// LinkRequest describes a payment link for an order
type LinkRequest struct {
	Amount       decimal.Decimal
	OrderID      string
	Description  string
	PayerName    string
	PayerContact string
	CallbackURL  string
}

// Link is a hosted payment page
type Link struct {
	ID  string
	URL string
}

// PayoutRequest sends money to a UPI id
type PayoutRequest struct {
	UPIID     string
	Amount    decimal.Decimal
	PayeeName string
	Reference string
}

// Payout is the gateway's record of a payout
type Payout struct {
	ID     string
	Status string
}

// Provider is the gateway boundary
type Provider interface {
	Name() string
	CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string, notes map[string]string) (*Order, error)
	CreatePaymentLink(ctx context.Context, req LinkRequest) (*Link, error)
	VerifySignature(orderID, paymentID, signature string) bool
	ProcessPayout(ctx context.Context, req PayoutRequest) (*Payout, error)
}

// Sign is the callback signature: hex HMAC-SHA256 of "orderID|paymentID"
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func verify(secret, orderID, paymentID, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	want := Sign(secret, orderID, paymentID)
	return hmac.Equal([]byte(want), []byte(signature))
}

// paise converts rupees to the gateway's integer minor unit
func paise(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func rupees(p int64) decimal.Decimal {
	return decimal.New(p, -2)
}
