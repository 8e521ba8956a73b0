package payment

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sandbox is an in-process Provider for development. Links point at
// baseURL and payouts always succeed.
type Sandbox struct {
	secret  string
	baseURL string

	mu      sync.Mutex
	payouts []PayoutRequest
}

// NewSandbox builds a Sandbox whose callbacks are signed with secret
func NewSandbox(secret, baseURL string) *Sandbox {
	return &Sandbox{secret: secret, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *Sandbox) Name() string { return "sandbox" }

func (s *Sandbox) CreateOrder(_ context.Context, amount decimal.Decimal, receipt string, _ map[string]string) (*Order, error) {
	return &Order{ID: "order_sbx_" + short(), Amount: amount, Currency: "INR", Receipt: receipt, Status: "created"}, nil
}

func (s *Sandbox) CreatePaymentLink(_ context.Context, in LinkRequest) (*Link, error) {
	id := "plink_sbx_" + short()
	return &Link{ID: id, URL: s.baseURL + "/sandbox/pay/" + in.OrderID}, nil
}

func (s *Sandbox) VerifySignature(orderID, paymentID, signature string) bool {
	return verify(s.secret, orderID, paymentID, signature)
}

func (s *Sandbox) ProcessPayout(_ context.Context, in PayoutRequest) (*Payout, error) {
	s.mu.Lock()
	s.payouts = append(s.payouts, in)
	s.mu.Unlock()
	return &Payout{ID: "pout_sbx_" + short(), Status: "processed"}, nil
}

// Payouts returns every payout requested so far
func (s *Sandbox) Payouts() []PayoutRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PayoutRequest(nil), s.payouts...)
}

func short() string { return strings.ReplaceAll(uuid.NewString(), "-", "")[:14] }
