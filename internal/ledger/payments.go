package ledger

import (
	"context"
	"fmt"

	"tournament_bot/internal/domain"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CreatePayment stores a pending payment before the gateway is contacted
func (s *Store) CreatePayment(ctx context.Context, p *domain.Payment) error {
	p.Status = domain.PaymentPending
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// AttachPaymentLink records the gateway order and link for a pending payment
func (s *Store) AttachPaymentLink(ctx context.Context, orderID, gatewayOrderID, linkID, linkURL string) error {
	res := s.db.WithContext(ctx).Model(&domain.Payment{}).
		Where("order_id = ? AND status = ?", orderID, domain.PaymentPending).
		Updates(map[string]any{"gateway_order_id": gatewayOrderID, "link_id": linkID, "link_url": linkURL})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// FailPayment marks a pending payment failed
func (s *Store) FailPayment(ctx context.Context, orderID, reason string) error {
	return s.db.WithContext(ctx).Model(&domain.Payment{}).
		Where("order_id = ? AND status = ?", orderID, domain.PaymentPending).
		Updates(map[string]any{"status": domain.PaymentFailed, "failure_reason": reason}).Error
}

// PaymentByOrderID finds a payment by our order id or the gateway's
func (s *Store) PaymentByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	var p domain.Payment
	if err := s.db.WithContext(ctx).
		Where("order_id = ? OR gateway_order_id = ?", orderID, orderID).
		First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// CompletePayment moves a pending payment to completed and credits the
// deposit. It is idempotent: a repeated callback returns fresh=false and
// changes nothing.
func (s *Store) CompletePayment(ctx context.Context, orderID, gatewayPaymentID string) (p *domain.Payment, fresh bool, err error) {
	err = s.tx(ctx, func(tx *gorm.DB) error {
		var pay domain.Payment
		if err := tx.Where("order_id = ? OR gateway_order_id = ?", orderID, orderID).First(&pay).Error; err != nil {
			return notFound(err)
		}
		p = &pay
		if pay.Status == domain.PaymentCompleted {
			return nil
		}
		res := tx.Model(&domain.Payment{}).
			Where("id = ? AND status = ?", pay.ID, domain.PaymentPending).
			Updates(map[string]any{"status": domain.PaymentCompleted, "gateway_payment_id": gatewayPaymentID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("payment %s is %s: %w", pay.OrderID, pay.Status, domain.ErrInvalidState)
		}
		if err := credit(tx, entry{
			UserID:      pay.UserID,
			Amount:      pay.Amount,
			Type:        domain.TxDeposit,
			Reference:   pay.OrderID,
			Description: "Deposit via " + string(pay.Method),
		}); err != nil {
			return err
		}
		pay.Status = domain.PaymentCompleted
		pay.GatewayPaymentID = gatewayPaymentID
		fresh = true
		return nil
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{"order_id": orderID, "error": err.Error()}).Error("Payment completion failed")
		return nil, false, err
	}
	if fresh {
		s.log.WithFields(logrus.Fields{
			"order_id": p.OrderID,
			"user_id":  p.UserID,
			"amount":   p.Amount.String(),
		}).Info("Deposit credited")
	}
	return p, fresh, nil
}
