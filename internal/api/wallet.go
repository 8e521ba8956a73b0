package api

import (
	"context"  // Context for store and notification calls
	"net/http" // HTTP status codes

	"tournament_bot/internal/chat"       // Outbound message model
	"tournament_bot/internal/domain"     // Domain models
	"tournament_bot/internal/ledger"     // Ledger store
	"tournament_bot/internal/middleware" // Request logger
	"tournament_bot/internal/notify"     // User notifications
	"tournament_bot/internal/payment"    // Gateway boundary

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/google/uuid"     // Sandbox payment ids
	"github.com/sirupsen/logrus" // Logging library
)

// PaymentCallbackRequest is the gateway's payment confirmation
type PaymentCallbackRequest struct {
	OrderID   string `json:"order_id" binding:"required"`   // Our order id or the gateway's
	PaymentID string `json:"payment_id" binding:"required"` // Gateway payment id
	Signature string `json:"signature" binding:"required"`  // HMAC of order_id|payment_id
}

// PaymentCallbackHandler verifies a gateway confirmation and credits the deposit
func PaymentCallbackHandler(store *ledger.Store, provider payment.Provider, notifier *notify.Broadcaster) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PaymentCallbackRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Reject forged confirmations before touching the store
		if !provider.VerifySignature(req.OrderID, req.PaymentID, req.Signature) {
			middleware.Logger(c).WithFields(logrus.Fields{"order_id": req.OrderID, "payment_id": req.PaymentID}).Warn("Payment callback with bad signature")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
			return
		}
		p, fresh, err := completeDeposit(c.Request.Context(), middleware.Logger(c), store, notifier, req.OrderID, req.PaymentID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": p.Status, "order_id": p.OrderID, "credited": fresh})
	}
}

// SandboxPayHandler completes a sandbox payment when its link is opened.
// It is only routed when the sandbox gateway is configured.
func SandboxPayHandler(store *ledger.Store, notifier *notify.Broadcaster) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, _, err := completeDeposit(c.Request.Context(), middleware.Logger(c), store, notifier, c.Param("order_id"), "pay_sbx_"+uuid.NewString())
		if err != nil {
			writeError(c, err)
			return
		}
		c.String(http.StatusOK, "Payment of %s received. You can return to Telegram.", chat.Money(p.Amount))
	}
}

// completeDeposit credits a payment once and tells the user
func completeDeposit(ctx context.Context, log logrus.FieldLogger, store *ledger.Store, notifier *notify.Broadcaster, orderID, paymentID string) (*domain.Payment, bool, error) {
	p, fresh, err := store.CompletePayment(ctx, orderID, paymentID)
	if err != nil || !fresh {
		return p, fresh, err
	}
	u, err := store.UserByID(ctx, p.UserID)
	if err != nil {
		log.WithFields(logrus.Fields{"user_id": p.UserID, "error": err.Error()}).Error("Deposit credited but user lookup failed")
		return p, fresh, nil
	}
	notifier.Notify(ctx, u.TelegramID, chat.Text("💰 "+chat.Money(p.Amount)+" added to your wallet. New balance: "+chat.Money(u.Balance)))
	return p, fresh, nil
}
