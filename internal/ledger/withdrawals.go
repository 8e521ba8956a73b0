package ledger

import (
	"context"
	"fmt"
	"strconv"

	"tournament_bot/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RequestWithdrawal debits the wallet, records the withdrawal Transaction
// and creates a pending Withdrawal in one database transaction. The
// conditional debit rejects amounts above the balance at commit time.
func (s *Store) RequestWithdrawal(ctx context.Context, userID uint, amount decimal.Decimal, upiID string) (*domain.Withdrawal, decimal.Decimal, error) {
	var (
		w          domain.Withdrawal
		newBalance decimal.Decimal
	)
	err := s.tx(ctx, func(tx *gorm.DB) error {
		w = domain.Withdrawal{UserID: userID, Amount: amount, UPIID: upiID, Status: domain.WithdrawalPending}
		if err := tx.Create(&w).Error; err != nil {
			return fmt.Errorf("create withdrawal: %w", err)
		}
		if err := debit(tx, entry{
			UserID:      userID,
			Amount:      amount,
			Type:        domain.TxWithdrawal,
			Reference:   withdrawalRef(w.ID),
			Description: "Withdrawal to " + upiID,
		}); err != nil {
			return err
		}
		var err error
		newBalance, err = balanceOf(tx, userID)
		return err
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{"user_id": userID, "amount": amount.String(), "error": err.Error()}).Warn("Withdrawal request refused")
		return nil, decimal.Zero, err
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "withdrawal_id": w.ID, "amount": amount.String()}).Info("Withdrawal requested")
	return &w, newBalance, nil
}

// CompleteWithdrawal marks a pending withdrawal paid out. The wallet was
// already debited at request time so no ledger row is written.
func (s *Store) CompleteWithdrawal(ctx context.Context, id uint, payoutRef string) error {
	now := s.now().UTC()
	res := s.db.WithContext(ctx).Model(&domain.Withdrawal{}).
		Where("id = ? AND status = ?", id, domain.WithdrawalPending).
		Updates(map[string]any{"status": domain.WithdrawalCompleted, "payout_ref": payoutRef, "processed_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("withdrawal %d: %w", id, domain.ErrInvalidState)
	}
	s.log.WithFields(logrus.Fields{"withdrawal_id": id, "payout_ref": payoutRef}).Info("Withdrawal completed")
	return nil
}

// RejectWithdrawal marks a pending withdrawal rejected and refunds it
func (s *Store) RejectWithdrawal(ctx context.Context, id uint, note string) (*domain.Withdrawal, error) {
	var w domain.Withdrawal
	err := s.tx(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&w, id).Error; err != nil {
			return notFound(err)
		}
		now := s.now().UTC()
		res := tx.Model(&domain.Withdrawal{}).
			Where("id = ? AND status = ?", id, domain.WithdrawalPending).
			Updates(map[string]any{"status": domain.WithdrawalRejected, "note": note, "processed_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("withdrawal %d is %s: %w", id, w.Status, domain.ErrInvalidState)
		}
		w.Status = domain.WithdrawalRejected
		w.Note = note
		w.ProcessedAt = &now
		return credit(tx, entry{
			UserID:      w.UserID,
			Amount:      w.Amount,
			Type:        domain.TxWithdrawalRefund,
			Reference:   withdrawalRef(w.ID),
			Description: "Refund of rejected withdrawal",
		})
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"withdrawal_id": id, "user_id": w.UserID, "amount": w.Amount.String()}).Info("Withdrawal rejected and refunded")
	return &w, nil
}

// WithdrawalByID loads one withdrawal
func (s *Store) WithdrawalByID(ctx context.Context, id uint) (*domain.Withdrawal, error) {
	var w domain.Withdrawal
	if err := s.db.WithContext(ctx).First(&w, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &w, nil
}

// Withdrawals lists withdrawals, oldest first, optionally filtered by status
func (s *Store) Withdrawals(ctx context.Context, status domain.WithdrawalStatus) ([]domain.Withdrawal, error) {
	q := s.db.WithContext(ctx).Order("created_at, id")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []domain.Withdrawal
	return out, q.Find(&out).Error
}

func withdrawalRef(id uint) string { return "withdrawal_" + strconv.FormatUint(uint64(id), 10) }
