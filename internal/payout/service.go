// Package payout carries out admin decisions on withdrawal requests.
package payout

import (
	"context"
	"fmt"
	"strconv"

	"tournament_bot/internal/chat"
	"tournament_bot/internal/domain"
	"tournament_bot/internal/ledger"
	"tournament_bot/internal/lock"
	"tournament_bot/internal/notify"
	"tournament_bot/internal/payment"

	"github.com/sirupsen/logrus"
)

// Service approves and rejects withdrawals. Decisions on one withdrawal
// are serialised so a payout is never sent twice.
type Service struct {
	store    *ledger.Store
	provider payment.Provider
	locker   lock.Locker
	notifier *notify.Broadcaster
	log      *logrus.Logger
}

// New builds a Service
func New(store *ledger.Store, provider payment.Provider, locker lock.Locker, notifier *notify.Broadcaster, log *logrus.Logger) *Service {
	return &Service{store: store, provider: provider, locker: locker, notifier: notifier, log: log}
}

// Approve pays a pending withdrawal out through the gateway and marks it
// completed. A gateway failure leaves it pending.
func (s *Service) Approve(ctx context.Context, id uint) (*domain.Withdrawal, error) {
	var out *domain.Withdrawal
	err := s.withLock(ctx, id, func() error {
		w, u, err := s.pending(ctx, id)
		if err != nil {
			return err
		}
		po, err := s.provider.ProcessPayout(ctx, payment.PayoutRequest{
			UPIID:     w.UPIID,
			Amount:    w.Amount,
			PayeeName: u.Name,
			Reference: "withdrawal_" + strconv.FormatUint(uint64(w.ID), 10),
		})
		if err != nil {
			s.log.WithFields(logrus.Fields{"withdrawal_id": id, "error": err.Error()}).Error("Payout failed")
			return err
		}
		if err := s.store.CompleteWithdrawal(ctx, id, po.ID); err != nil {
			// the money left; this needs a human
			s.log.WithFields(logrus.Fields{"withdrawal_id": id, "payout_id": po.ID, "error": err.Error()}).Error("Payout sent but withdrawal not marked completed")
			return err
		}
		if out, err = s.store.WithdrawalByID(ctx, id); err != nil {
			return err
		}
		s.notifier.Notify(ctx, u.TelegramID, chat.Text("✅ Your withdrawal of "+chat.Money(w.Amount)+" has been sent to "+w.UPIID+"."))
		return nil
	})
	return out, err
}

// Reject refunds a pending withdrawal to the wallet
func (s *Service) Reject(ctx context.Context, id uint, note string) (*domain.Withdrawal, error) {
	var out *domain.Withdrawal
	err := s.withLock(ctx, id, func() error {
		_, u, err := s.pending(ctx, id)
		if err != nil {
			return err
		}
		if out, err = s.store.RejectWithdrawal(ctx, id, note); err != nil {
			return err
		}
		msg := "❌ Your withdrawal of " + chat.Money(out.Amount) + " was rejected and refunded to your wallet."
		if note != "" {
			msg += "\nReason: " + note
		}
		s.notifier.Notify(ctx, u.TelegramID, chat.Text(msg))
		return nil
	})
	return out, err
}

func (s *Service) pending(ctx context.Context, id uint) (*domain.Withdrawal, *domain.User, error) {
	w, err := s.store.WithdrawalByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if w.Status != domain.WithdrawalPending {
		return nil, nil, fmt.Errorf("withdrawal %d is %s: %w", id, w.Status, domain.ErrInvalidState)
	}
	u, err := s.store.UserByID(ctx, w.UserID)
	if err != nil {
		return nil, nil, err
	}
	return w, u, nil
}

func (s *Service) withLock(ctx context.Context, id uint, fn func() error) error {
	unlock, err := s.locker.Lock(ctx, "withdrawal:"+strconv.FormatUint(uint64(id), 10))
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}
