package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"tournament_bot/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserByTelegramID loads a registered user
func (s *Store) UserByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	var u domain.User
	if err := s.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// UserByID loads a user by primary key
func (s *Store) UserByID(ctx context.Context, id uint) (*domain.User, error) {
	var u domain.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// MobileTaken reports whether a mobile number is already registered
func (s *Store) MobileTaken(ctx context.Context, mobile string) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&domain.User{}).Where("mobile = ?", mobile).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// NewUser is the profile collected by the registration flow
type NewUser struct {
	TelegramID   int64
	Username     string
	Name         string
	Mobile       string
	UPIID        string
	GameName     string
	GamePlayerID string
}

// RegisterResult reports the created user and any referral that paid out
type RegisterResult struct {
	User               *domain.User
	ReferrerTelegramID int64
	ReferralBonus      decimal.Decimal
}

// Register inserts the user. If a pending referral exists for them, both
// sides are credited the referral bonus in the same transaction and the
// pending row is removed.
func (s *Store) Register(ctx context.Context, in NewUser) (*RegisterResult, error) {
	res := &RegisterResult{}
	err := s.tx(ctx, func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.User{}).
			Where("mobile = ? OR telegram_id = ?", in.Mobile, in.TelegramID).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrDuplicate
		}

		u := domain.User{
			TelegramID:              in.TelegramID,
			Username:                in.Username,
			Name:                    in.Name,
			Mobile:                  in.Mobile,
			UPIID:                   in.UPIID,
			GameName:                in.GameName,
			GamePlayerID:            in.GamePlayerID,
			Balance:                 decimal.Zero,
			TournamentNotifications: true,
		}
		if err := tx.Create(&u).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrDuplicate
			}
			return fmt.Errorf("create user: %w", err)
		}
		res.User = &u

		var pending domain.PendingReferral
		err := tx.Where("referred_telegram_id = ?", in.TelegramID).First(&pending).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Delete(&pending).Error; err != nil {
			return err
		}

		var referrer domain.User
		err = tx.Where("telegram_id = ?", pending.ReferrerTelegramID).First(&referrer).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if referrer.ID == u.ID || !s.referralBonus.IsPositive() {
			return nil
		}

		ref := "referral_" + strconv.FormatUint(uint64(u.ID), 10)
		if err := credit(tx, entry{UserID: referrer.ID, Amount: s.referralBonus, Type: domain.TxReferralBonus,
			Reference: ref, Description: "Referral bonus for inviting " + u.Name}); err != nil {
			return err
		}
		if err := credit(tx, entry{UserID: u.ID, Amount: s.referralBonus, Type: domain.TxReferralBonus,
			Reference: ref, Description: "Referral signup bonus"}); err != nil {
			return err
		}
		u.Balance = u.Balance.Add(s.referralBonus)
		res.ReferrerTelegramID = referrer.TelegramID
		res.ReferralBonus = s.referralBonus
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"user_id":     res.User.ID,
		"telegram_id": res.User.TelegramID,
		"referred_by": res.ReferrerTelegramID,
	}).Info("User registered")
	return res, nil
}

// AddPendingReferral remembers who invited a not-yet-registered user. The
// first link a user opens wins; self referrals and registered users are ignored.
func (s *Store) AddPendingReferral(ctx context.Context, referrerTelegramID, referredTelegramID int64) (bool, error) {
	if referrerTelegramID == referredTelegramID {
		return false, nil
	}
	if _, err := s.UserByTelegramID(ctx, referredTelegramID); err == nil {
		return false, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return false, err
	}
	if _, err := s.UserByTelegramID(ctx, referrerTelegramID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	p := domain.PendingReferral{ReferredTelegramID: referredTelegramID, ReferrerTelegramID: referrerTelegramID}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&p)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ReferralStats returns how many users a user has invited and what they earned from it
func (s *Store) ReferralStats(ctx context.Context, userID uint) (int64, decimal.Decimal, error) {
	own := "referral_" + strconv.FormatUint(uint64(userID), 10)
	var rows []domain.Transaction
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND type = ? AND reference <> ?", userID, domain.TxReferralBonus, own).
		Find(&rows).Error; err != nil {
		return 0, decimal.Zero, err
	}
	earned := decimal.Zero
	for _, r := range rows {
		earned = earned.Add(r.Amount)
	}
	return int64(len(rows)), earned, nil
}

// SetNotifications toggles tournament announcements for a user
func (s *Store) SetNotifications(ctx context.Context, telegramID int64, on bool) error {
	res := s.db.WithContext(ctx).Model(&domain.User{}).
		Where("telegram_id = ?", telegramID).
		Update("tournament_notifications", on)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetBanned bans or unbans a user
func (s *Store) SetBanned(ctx context.Context, telegramID int64, banned bool) error {
	res := s.db.WithContext(ctx).Model(&domain.User{}).
		Where("telegram_id = ?", telegramID).
		Update("is_banned", banned)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	s.log.WithFields(logrus.Fields{"telegram_id": telegramID, "banned": banned}).Info("Ban flag changed")
	return nil
}

// NotifiableTelegramIDs lists users who opted in to announcements and are not banned
func (s *Store) NotifiableTelegramIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).Model(&domain.User{}).
		Where("tournament_notifications = ? AND is_banned = ?", true, false).
		Order("id").
		Pluck("telegram_id", &ids).Error
	return ids, err
}

// ActiveTelegramIDs lists every user who is not banned
func (s *Store) ActiveTelegramIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).Model(&domain.User{}).
		Where("is_banned = ?", false).
		Order("id").
		Pluck("telegram_id", &ids).Error
	return ids, err
}

// AdminTelegramIDs lists users flagged as admin in the database
func (s *Store) AdminTelegramIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).Model(&domain.User{}).
		Where("is_admin = ?", true).
		Pluck("telegram_id", &ids).Error
	return ids, err
}

// IsAdmin reports whether the Telegram account is flagged as admin
func (s *Store) IsAdmin(ctx context.Context, telegramID int64) (bool, error) {
	u, err := s.UserByTelegramID(ctx, telegramID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.IsAdmin, nil
}

// ListUsers returns one page of users and the total count
func (s *Store) ListUsers(ctx context.Context, page, pageSize int) ([]domain.User, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&domain.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []domain.User
	if err := s.db.WithContext(ctx).Order("id").Offset((page - 1) * pageSize).Limit(pageSize).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}
