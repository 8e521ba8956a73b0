package ledger

import (
	"context"
	"time"

	"tournament_bot/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Balance reads the current balance of a user
func (s *Store) Balance(ctx context.Context, userID uint) (decimal.Decimal, error) {
	return balanceOf(s.db.WithContext(ctx), userID)
}

// TxFilter narrows a transaction listing
type TxFilter struct {
	UserID   uint
	Type     string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// Transactions lists ledger rows newest first, with the total match count
func (s *Store) Transactions(ctx context.Context, f TxFilter) ([]domain.Transaction, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	query := s.db.WithContext(ctx).Model(&domain.Transaction{})
	if f.UserID != 0 {
		query = query.Where("user_id = ?", f.UserID)
	}
	if f.Type != "" {
		query = query.Where("type = ?", f.Type)
	}
	if f.From != nil {
		query = query.Where("created_at >= ?", f.From.UTC())
	}
	if f.To != nil {
		query = query.Where("created_at <= ?", f.To.UTC())
	}
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var txs []domain.Transaction
	if err := query.Order("created_at desc, id desc").
		Offset((f.Page - 1) * f.PageSize).
		Limit(f.PageSize).
		Find(&txs).Error; err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

// LedgerSum returns the sum of all Transaction amounts for a user. With a
// zero starting balance it always equals the stored balance.
func (s *Store) LedgerSum(ctx context.Context, userID uint) (decimal.Decimal, error) {
	var rows []domain.Transaction
	if err := s.db.WithContext(ctx).Select("amount").Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, r := range rows {
		sum = sum.Add(r.Amount)
	}
	return sum, nil
}
