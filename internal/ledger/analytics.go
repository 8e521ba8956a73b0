package ledger

import (
	"context"
	"fmt"
	"time"

	"tournament_bot/internal/domain"

	"github.com/shopspring/decimal"
)

// NewUserWindow is how far back Analytics counts new users
const NewUserWindow = 7 * 24 * time.Hour

// Analytics summarises the platform for admins
type Analytics struct {
	Users       int64           `json:"users"`
	NewUsers    int64           `json:"new_users"` // registered within NewUserWindow
	Tournaments int64           `json:"tournaments"`
	Deposits    decimal.Decimal `json:"deposits"`    // credited gateway deposits
	Withdrawals decimal.Decimal `json:"withdrawals"` // paid out withdrawals
	Net         decimal.Decimal `json:"net"`
}

// Analytics runs the dashboard aggregates
func (s *Store) Analytics(ctx context.Context) (*Analytics, error) {
	db := s.db.WithContext(ctx)
	var a Analytics
	if err := db.Model(&domain.User{}).Count(&a.Users).Error; err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if err := db.Model(&domain.User{}).Where("created_at >= ?", s.now().UTC().Add(-NewUserWindow)).Count(&a.NewUsers).Error; err != nil {
		return nil, fmt.Errorf("count new users: %w", err)
	}
	if err := db.Model(&domain.Tournament{}).Count(&a.Tournaments).Error; err != nil {
		return nil, fmt.Errorf("count tournaments: %w", err)
	}
	var err error
	if a.Deposits, err = s.sumAmount(ctx, &domain.Transaction{}, "type = ?", domain.TxDeposit); err != nil {
		return nil, fmt.Errorf("sum deposits: %w", err)
	}
	if a.Withdrawals, err = s.sumAmount(ctx, &domain.Withdrawal{}, "status = ?", domain.WithdrawalCompleted); err != nil {
		return nil, fmt.Errorf("sum withdrawals: %w", err)
	}
	a.Net = a.Deposits.Sub(a.Withdrawals)
	return &a, nil
}

func (s *Store) sumAmount(ctx context.Context, model any, where string, args ...any) (decimal.Decimal, error) {
	var out struct{ Total decimal.Decimal }
	err := s.db.WithContext(ctx).Model(model).
		Where(where, args...).
		Select("COALESCE(SUM(amount), 0) AS total").
		Scan(&out).Error
	return out.Total, err
}
