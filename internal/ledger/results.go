package ledger

import (
	"context"
	"errors"
	"fmt"

	"tournament_bot/internal/domain"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ResultEntry is one registrant's outcome as entered by an admin
type ResultEntry struct {
	UserID uint
	Kills  int
	Winner bool
}

// SettleResult stores one registrant's result and credits the reward in the
// same database transaction. A registrant who already has a result row is
// left untouched and fresh is false, so re-running settlement is safe.
func (s *Store) SettleResult(ctx context.Context, t *domain.Tournament, e ResultEntry) (res *domain.TournamentResult, fresh bool, err error) {
	if e.Kills < 0 {
		return nil, false, &domain.ValidationError{Field: "kills", Reason: "must not be negative"}
	}
	err = s.tx(ctx, func(tx *gorm.DB) error {
		var existing domain.TournamentResult
		err := tx.Where("tournament_id = ? AND user_id = ?", t.ID, e.UserID).First(&existing).Error
		if err == nil {
			res = &existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		kill, win, total := t.Reward(e.Kills, e.Winner)
		row := domain.TournamentResult{
			TournamentID: t.ID,
			UserID:       e.UserID,
			Kills:        e.Kills,
			KillReward:   kill,
			WinnerReward: win,
			TotalReward:  total,
		}
		if e.Winner {
			first := 1
			row.Position = &first
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("create result: %w", err)
		}
		if total.IsPositive() {
			tid := t.ID
			if err := credit(tx, entry{
				UserID:       e.UserID,
				Amount:       total,
				Type:         domain.TxTournamentReward,
				Reference:    tournamentRef(t.ID),
				TournamentID: &tid,
				Description:  fmt.Sprintf("%s: %d kills", t.Name, e.Kills),
			}); err != nil {
				return err
			}
		}
		res = &row
		fresh = true
		return nil
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{"tournament_id": t.ID, "user_id": e.UserID, "error": err.Error()}).Error("Result settlement failed")
		return nil, false, err
	}
	if fresh {
		s.log.WithFields(logrus.Fields{
			"tournament_id": t.ID,
			"user_id":       e.UserID,
			"kills":         e.Kills,
			"winner":        e.Winner,
			"reward":        res.TotalReward.String(),
		}).Info("Result settled")
	}
	return res, fresh, nil
}

// Results lists stored results for a tournament
func (s *Store) Results(ctx context.Context, tournamentID uint) ([]domain.TournamentResult, error) {
	var out []domain.TournamentResult
	err := s.db.WithContext(ctx).Where("tournament_id = ?", tournamentID).Order("id").Find(&out).Error
	return out, err
}
