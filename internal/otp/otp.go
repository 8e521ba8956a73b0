// Package otp delivers one-time passwords for mobile verification.
package otp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"tournament_bot/internal/domain"
	"tournament_bot/internal/utils"

	"github.com/sirupsen/logrus"
)

// CodeLength is the number of digits in an OTP
const CodeLength = 6

// Sender delivers a fresh code to mobile and returns it
type Sender interface {
	Send(ctx context.Context, mobile string) (code string, err error)
}

// DevSender logs codes instead of texting them. Never use it in production.
type DevSender struct {
	log *logrus.Logger
}

// NewDevSender builds a DevSender
func NewDevSender(log *logrus.Logger) *DevSender { return &DevSender{log: log} }

func (d *DevSender) Send(_ context.Context, mobile string) (string, error) {
	code, err := utils.RandomDigits(CodeLength)
	if err != nil {
		return "", err
	}
	d.log.WithFields(logrus.Fields{"mobile": mobile, "otp": code}).Warn("Development OTP")
	return code, nil
}

// HTTPSender posts codes to an SMS gateway
type HTTPSender struct {
	URL        string
	APIKey     string
	HTTPClient *http.Client
	log        *logrus.Logger
}

// NewHTTPSender builds an HTTPSender
func NewHTTPSender(url, apiKey string, log *logrus.Logger) *HTTPSender {
	return &HTTPSender{URL: url, APIKey: apiKey, log: log, HTTPClient: &http.Client{Timeout: 15 * time.Second}}
}

func (h *HTTPSender) Send(ctx context.Context, mobile string) (string, error) {
	code, err := utils.RandomDigits(CodeLength)
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(map[string]string{
		"to":      "+91" + mobile,
		"message": fmt.Sprintf("%s is your verification code. It expires in 10 minutes.", code),
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.APIKey)

	resp, err := h.HTTPClient.Do(req)
	if err != nil {
		return "", &domain.ExternalError{Service: "sms", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &domain.ExternalError{Service: "sms", Err: fmt.Errorf("status %d: %s", resp.StatusCode, msg)}
	}
	h.log.WithField("mobile", mask(mobile)).Info("OTP sent")
	return code, nil
}

// mask hides all but the last four digits
func mask(mobile string) string {
	if len(mobile) <= 4 {
		return mobile
	}
	return "******" + mobile[len(mobile)-4:]
}
