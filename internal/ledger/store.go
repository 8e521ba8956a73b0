// Package ledger is the single persistence boundary for users, wallets and
// tournaments. Every balance change goes through debit or credit, which pair
// a conditional balance update with an append-only Transaction row inside
// the caller's database transaction.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tournament_bot/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Store wraps the database handle
type Store struct {
	db            *gorm.DB
	log           *logrus.Logger
	now           func() time.Time
	referralBonus decimal.Decimal
}

// Option customises a Store
type Option func(*Store)

// WithReferralBonus sets the amount credited to both sides of a referral
func WithReferralBonus(amount decimal.Decimal) Option {
	return func(s *Store) { s.referralBonus = amount }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New builds a Store
func New(db *gorm.DB, log *logrus.Logger, opts ...Option) *Store {
	s := &Store{
		db:            db,
		log:           log,
		now:           time.Now,
		referralBonus: decimal.NewFromInt(10),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// entry is one ledger movement; Amount is always positive here and the
// sign is decided by debit or credit.
type entry struct {
	UserID       uint
	Amount       decimal.Decimal
	Type         domain.TxType
	Reference    string
	TournamentID *uint
	Description  string
}

// debit removes e.Amount from the user's balance only if the balance covers
// it, then records the negative Transaction.
func debit(tx *gorm.DB, e entry) error {
	if !e.Amount.IsPositive() {
		return fmt.Errorf("debit %s: non-positive amount %s", e.Type, e.Amount)
	}
	res := tx.Model(&domain.User{}).
		Where("id = ? AND balance >= ?", e.UserID, e.Amount).
		Update("balance", gorm.Expr("balance - ?", e.Amount))
	if res.Error != nil {
		return fmt.Errorf("debit %s: %w", e.Type, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrInsufficientBalance
	}
	return record(tx, e, e.Amount.Neg())
}

// credit adds e.Amount to the user's balance and records the Transaction.
func credit(tx *gorm.DB, e entry) error {
	if !e.Amount.IsPositive() {
		return fmt.Errorf("credit %s: non-positive amount %s", e.Type, e.Amount)
	}
	res := tx.Model(&domain.User{}).
		Where("id = ?", e.UserID).
		Update("balance", gorm.Expr("balance + ?", e.Amount))
	if res.Error != nil {
		return fmt.Errorf("credit %s: %w", e.Type, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("credit user %d: %w", e.UserID, domain.ErrNotFound)
	}
	return record(tx, e, e.Amount)
}

func record(tx *gorm.DB, e entry, signed decimal.Decimal) error {
	t := domain.Transaction{
		UserID:       e.UserID,
		Amount:       signed,
		Type:         e.Type,
		Reference:    e.Reference,
		TournamentID: e.TournamentID,
		Description:  e.Description,
	}
	if err := tx.Create(&t).Error; err != nil {
		return fmt.Errorf("record %s: %w", e.Type, err)
	}
	return nil
}

// balanceOf reads the balance inside tx
func balanceOf(tx *gorm.DB, userID uint) (decimal.Decimal, error) {
	var u domain.User
	if err := tx.Select("id", "balance").First(&u, userID).Error; err != nil {
		return decimal.Zero, notFound(err)
	}
	return u.Balance, nil
}

// notFound maps gorm.ErrRecordNotFound onto domain.ErrNotFound
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}

func (s *Store) tx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}
