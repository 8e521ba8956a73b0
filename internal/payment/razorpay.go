package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tournament_bot/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// RazorpayConfig holds gateway credentials
type RazorpayConfig struct {
	BaseURL       string
	KeyID         string
	KeySecret     string
	PayoutAccount string
}

// Razorpay is a Provider over the Razorpay REST API
type Razorpay struct {
	cfg        RazorpayConfig
	HTTPClient *http.Client
	log        *logrus.Logger
}

// NewRazorpay builds a client
func NewRazorpay(cfg RazorpayConfig, log *logrus.Logger) *Razorpay {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Razorpay{
		cfg: cfg,
		log: log,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (r *Razorpay) Name() string { return "razorpay" }

type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// call POSTs body as JSON and decodes the response into out
func (r *Razorpay) call(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(r.cfg.KeyID, r.cfg.KeySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return &domain.ExternalError{Service: "razorpay", Err: fmt.Errorf("call %s: %w", path, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr apiError
		msg := string(body)
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Description != "" {
			msg = apiErr.Error.Code + ": " + apiErr.Error.Description
		}
		r.log.WithFields(logrus.Fields{"path": path, "status": resp.StatusCode, "error": msg}).Error("Gateway call failed")
		return &domain.ExternalError{Service: "razorpay", Err: fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, msg)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.ExternalError{Service: "razorpay", Err: fmt.Errorf("decode %s response: %w", path, err)}
	}
	return nil
}

func (r *Razorpay) CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string, notes map[string]string) (*Order, error) {
	var resp struct {
		ID       string `json:"id"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Receipt  string `json:"receipt"`
		Status   string `json:"status"`
	}
	err := r.call(ctx, "/orders", map[string]any{
		"amount":   paise(amount),
		"currency": "INR",
		"receipt":  receipt,
		"notes":    notes,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &Order{ID: resp.ID, Amount: rupees(resp.Amount), Currency: resp.Currency, Receipt: resp.Receipt, Status: resp.Status}, nil
}

func (r *Razorpay) CreatePaymentLink(ctx context.Context, in LinkRequest) (*Link, error) {
	var resp struct {
		ID       string `json:"id"`
		ShortURL string `json:"short_url"`
	}
	body := map[string]any{
		"amount":       paise(in.Amount),
		"currency":     "INR",
		"description":  in.Description,
		"reference_id": in.OrderID,
		"customer": map[string]string{
			"name":    in.PayerName,
			"contact": in.PayerContact,
		},
		"notify":          map[string]bool{"sms": true},
		"reminder_enable": true,
		"notes":           map[string]string{"order_id": in.OrderID},
	}
	if in.CallbackURL != "" {
		body["callback_url"] = in.CallbackURL
		body["callback_method"] = "get"
	}
	if err := r.call(ctx, "/payment_links", body, &resp); err != nil {
		return nil, err
	}
	return &Link{ID: resp.ID, URL: resp.ShortURL}, nil
}

func (r *Razorpay) VerifySignature(orderID, paymentID, signature string) bool {
	return verify(r.cfg.KeySecret, orderID, paymentID, signature)
}

func (r *Razorpay) ProcessPayout(ctx context.Context, in PayoutRequest) (*Payout, error) {
	var resp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	err := r.call(ctx, "/payouts", map[string]any{
		"account_number": r.cfg.PayoutAccount,
		"amount":         paise(in.Amount),
		"currency":       "INR",
		"mode":           "UPI",
		"purpose":        "payout",
		"reference_id":   in.Reference,
		"fund_account": map[string]any{
			"account_type": "vpa",
			"vpa":          map[string]string{"address": in.UPIID},
			"contact":      map[string]string{"name": in.PayeeName, "type": "customer"},
		},
		"queue_if_low_balance": true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &Payout{ID: resp.ID, Status: resp.Status}, nil
}
