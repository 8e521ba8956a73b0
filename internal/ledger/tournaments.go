package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"tournament_bot/internal/domain"
	"tournament_bot/internal/utils"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CreateTournament inserts an open tournament, deriving its code and prize pool
func (s *Store) CreateTournament(ctx context.Context, t *domain.Tournament) error {
	t.Status = domain.TournamentOpen
	t.RegisteredPlayers = 0
	t.StartTime = t.StartTime.UTC()
	t.PrizePool = domain.PrizePoolFor(t.WinnerPrize, t.PerKillReward, t.MaxPlayers)
	if t.GameType == "" {
		t.GameType = "BGMI"
	}
	if t.Code == "" {
		t.Code = tournamentCode(t.Name)
	}
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("create tournament: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"tournament_id": t.ID,
		"code":          t.Code,
		"entry_fee":     t.EntryFee.String(),
		"max_players":   t.MaxPlayers,
		"start_time":    t.StartTime.Format(time.RFC3339),
	}).Info("Tournament created")
	return nil
}

func tournamentCode(name string) string {
	base := slug.Make(name)
	if len(base) > 40 {
		base = strings.Trim(base[:40], "-")
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	if base == "" {
		return "t-" + suffix
	}
	return base + "-" + suffix
}

// TournamentEdit lists changes to an open tournament; nil fields are kept
type TournamentEdit struct {
	Name       *string
	EntryFee   *decimal.Decimal
	MaxPlayers *int
	StartTime  *time.Time
}

// EditTournament applies e while the tournament is still open. The entry fee
// is fixed once anyone has registered, and the cap must stay above the
// players already in so the ready transition still happens on a join.
func (s *Store) EditTournament(ctx context.Context, id uint, e TournamentEdit) (*domain.Tournament, error) {
	var t domain.Tournament
	changes := map[string]any{}
	err := s.tx(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&t, id).Error; err != nil {
			return notFound(err)
		}
		if t.Status != domain.TournamentOpen {
			return fmt.Errorf("tournament %d is %s: %w", t.ID, t.Status, domain.ErrInvalidState)
		}
		if e.Name != nil {
			t.Name = *e.Name
			changes["name"] = t.Name
		}
		if e.EntryFee != nil && !e.EntryFee.Equal(t.EntryFee) {
			var n int64
			if err := tx.Model(&domain.Registration{}).Where("tournament_id = ?", t.ID).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return &domain.ValidationError{Field: "entry fee", Reason: "cannot change once players have registered"}
			}
			t.EntryFee = *e.EntryFee
			changes["entry_fee"] = t.EntryFee
		}
		if e.MaxPlayers != nil {
			if !domain.ValidPlayerCap(*e.MaxPlayers) {
				return &domain.ValidationError{Field: "max players", Reason: "not an allowed size"}
			}
			if *e.MaxPlayers <= t.RegisteredPlayers {
				return &domain.ValidationError{Field: "max players", Reason: "must be above the " + strconv.Itoa(t.RegisteredPlayers) + " players already in"}
			}
			t.MaxPlayers = *e.MaxPlayers
			t.PrizePool = domain.PrizePoolFor(t.WinnerPrize, t.PerKillReward, t.MaxPlayers)
			changes["max_players"] = t.MaxPlayers
			changes["prize_pool"] = t.PrizePool
		}
		if e.StartTime != nil {
			if !e.StartTime.After(s.now()) {
				return &domain.ValidationError{Field: "start time", Reason: "must be in the future"}
			}
			t.StartTime = e.StartTime.UTC()
			t.RemindersSent = false
			changes["start_time"] = t.StartTime
			changes["reminders_sent"] = false
		}
		if len(changes) == 0 {
			return nil
		}
		// A join may have landed since the read
		res := tx.Model(&domain.Tournament{}).
			Where("id = ? AND status = ? AND registered_players < ?", t.ID, domain.TournamentOpen, t.MaxPlayers).
			Updates(changes)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("tournament %d changed while editing: %w", t.ID, domain.ErrInvalidState)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	fields := make([]string, 0, len(changes))
	for k := range changes {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	s.log.WithFields(logrus.Fields{"tournament_id": t.ID, "fields": strings.Join(fields, ",")}).Info("Tournament edited")
	return &t, nil
}

// RegistrantTelegramIDs lists every registrant of a tournament, pending or completed
func (s *Store) RegistrantTelegramIDs(ctx context.Context, tournamentID uint) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).Model(&domain.Registration{}).
		Joins("JOIN users u ON u.id = registrations.user_id").
		Where("registrations.tournament_id = ?", tournamentID).
		Order("registrations.id").
		Pluck("u.telegram_id", &ids).Error
	return ids, err
}

// TournamentByID loads a tournament
func (s *Store) TournamentByID(ctx context.Context, id uint) (*domain.Tournament, error) {
	var t domain.Tournament
	if err := s.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// TournamentByCode loads a tournament by its public code
func (s *Store) TournamentByCode(ctx context.Context, code string) (*domain.Tournament, error) {
	var t domain.Tournament
	if err := s.db.WithContext(ctx).Where("code = ?", strings.ToLower(strings.TrimSpace(code))).First(&t).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// ListTournaments returns tournaments in the given statuses by start time
func (s *Store) ListTournaments(ctx context.Context, statuses ...domain.TournamentStatus) ([]domain.Tournament, error) {
	q := s.db.WithContext(ctx).Order("start_time, id")
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	var out []domain.Tournament
	return out, q.Find(&out).Error
}

// UserTournaments returns tournaments the user holds a registration for
func (s *Store) UserTournaments(ctx context.Context, userID uint) ([]domain.Tournament, error) {
	var out []domain.Tournament
	err := s.db.WithContext(ctx).
		Joins("JOIN registrations r ON r.tournament_id = tournaments.id").
		Where("r.user_id = ?", userID).
		Order("tournaments.start_time desc").
		Find(&out).Error
	return out, err
}

// Registration returns the user's registration for a tournament
func (s *Store) Registration(ctx context.Context, userID, tournamentID uint) (*domain.Registration, error) {
	var r domain.Registration
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND tournament_id = ?", userID, tournamentID).
		First(&r).Error; err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

// JoinResult describes a successful admission
type JoinResult struct {
	Tournament   *domain.Tournament
	Registration *domain.Registration
	NewBalance   decimal.Decimal
	BecameReady  bool
}

// JoinWithWallet admits the user and pays the entry fee from the wallet in
// one database transaction: capacity increment, debit, fee Transaction and
// Registration either all happen or none do. The join that fills the last
// slot moves the tournament to ready and issues room credentials.
func (s *Store) JoinWithWallet(ctx context.Context, userID, tournamentID uint) (*JoinResult, error) {
	out := &JoinResult{}
	err := s.tx(ctx, func(tx *gorm.DB) error {
		t, err := joinable(tx, userID, tournamentID)
		if err != nil {
			return err
		}
		if err := takeSlot(tx, t.ID); err != nil {
			return err
		}
		reg := domain.Registration{
			UserID:        userID,
			TournamentID:  t.ID,
			PaymentStatus: domain.RegistrationCompleted,
			PaymentMethod: domain.MethodWallet,
			Reference:     utils.NewReference("reg"),
		}
		if err := tx.Create(&reg).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrDuplicate
			}
			return fmt.Errorf("create registration: %w", err)
		}
		if t.EntryFee.IsPositive() {
			tid := t.ID
			if err := debit(tx, entry{
				UserID:       userID,
				Amount:       t.EntryFee,
				Type:         domain.TxTournamentFee,
				Reference:    reg.Reference,
				TournamentID: &tid,
				Description:  "Entry fee for " + t.Name,
			}); err != nil {
				return err
			}
		}
		out.Registration = &reg
		out.Tournament, out.BecameReady, err = readyIfFull(tx, t.ID)
		if err != nil {
			return err
		}
		out.NewBalance, err = balanceOf(tx, userID)
		return err
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{"user_id": userID, "tournament_id": tournamentID, "error": err.Error()}).Warn("Join refused")
		return nil, err
	}
	s.logJoin(out, userID)
	return out, nil
}

// CreatePendingRegistration reserves nothing: it records that the user
// intends to pay the entry fee directly, to be confirmed by an admin.
func (s *Store) CreatePendingRegistration(ctx context.Context, userID, tournamentID uint) (*domain.Registration, error) {
	var reg domain.Registration
	err := s.tx(ctx, func(tx *gorm.DB) error {
		if _, err := joinable(tx, userID, tournamentID); err != nil {
			return err
		}
		reg = domain.Registration{
			UserID:        userID,
			TournamentID:  tournamentID,
			PaymentStatus: domain.RegistrationPending,
			PaymentMethod: domain.MethodUPI,
			Reference:     utils.NewReference("reg"),
		}
		if err := tx.Create(&reg).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrDuplicate
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// CancelPendingRegistration deletes a pending registration owned by userID
func (s *Store) CancelPendingRegistration(ctx context.Context, reference string, userID uint) error {
	res := s.db.WithContext(ctx).
		Where("reference = ? AND user_id = ? AND payment_status = ?", reference, userID, domain.RegistrationPending).
		Delete(&domain.Registration{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ConfirmPendingRegistration admits a directly-paid registration. The fee
// never entered the wallet so no ledger row is written.
func (s *Store) ConfirmPendingRegistration(ctx context.Context, reference string) (*JoinResult, error) {
	out := &JoinResult{}
	var userID uint
	err := s.tx(ctx, func(tx *gorm.DB) error {
		var reg domain.Registration
		if err := tx.Where("reference = ?", reference).First(&reg).Error; err != nil {
			return notFound(err)
		}
		if reg.PaymentStatus != domain.RegistrationPending {
			return fmt.Errorf("registration %s is %s: %w", reference, reg.PaymentStatus, domain.ErrInvalidState)
		}
		userID = reg.UserID
		var t domain.Tournament
		if err := tx.First(&t, reg.TournamentID).Error; err != nil {
			return notFound(err)
		}
		if t.Status != domain.TournamentOpen {
			return fmt.Errorf("tournament %d is %s: %w", t.ID, t.Status, domain.ErrInvalidState)
		}
		if err := takeSlot(tx, t.ID); err != nil {
			return err
		}
		res := tx.Model(&domain.Registration{}).
			Where("id = ? AND payment_status = ?", reg.ID, domain.RegistrationPending).
			Update("payment_status", domain.RegistrationCompleted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrInvalidState
		}
		reg.PaymentStatus = domain.RegistrationCompleted
		out.Registration = &reg
		var err error
		out.Tournament, out.BecameReady, err = readyIfFull(tx, t.ID)
		if err != nil {
			return err
		}
		out.NewBalance, err = balanceOf(tx, reg.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logJoin(out, userID)
	return out, nil
}

func (s *Store) logJoin(out *JoinResult, userID uint) {
	s.log.WithFields(logrus.Fields{
		"user_id":       userID,
		"tournament_id": out.Tournament.ID,
		"registered":    out.Tournament.RegisteredPlayers,
		"max_players":   out.Tournament.MaxPlayers,
		"method":        out.Registration.PaymentMethod,
		"became_ready":  out.BecameReady,
	}).Info("Tournament join")
}

// joinable checks the tournament can take this user
func joinable(tx *gorm.DB, userID, tournamentID uint) (*domain.Tournament, error) {
	var t domain.Tournament
	if err := tx.First(&t, tournamentID).Error; err != nil {
		return nil, notFound(err)
	}
	if t.Status != domain.TournamentOpen {
		return nil, fmt.Errorf("tournament %d is %s: %w", t.ID, t.Status, domain.ErrInvalidState)
	}
	if t.IsFull() {
		return nil, domain.ErrTournamentFull
	}
	var n int64
	if err := tx.Model(&domain.Registration{}).
		Where("user_id = ? AND tournament_id = ?", userID, tournamentID).
		Count(&n).Error; err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, domain.ErrDuplicate
	}
	return &t, nil
}

// takeSlot increments registered_players only while below capacity
func takeSlot(tx *gorm.DB, tournamentID uint) error {
	res := tx.Model(&domain.Tournament{}).
		Where("id = ? AND status = ? AND registered_players < max_players", tournamentID, domain.TournamentOpen).
		Update("registered_players", gorm.Expr("registered_players + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrTournamentFull
	}
	return nil
}

// readyIfFull moves a full open tournament to ready with fresh room
// credentials. The conditional update makes the transition happen once.
func readyIfFull(tx *gorm.DB, tournamentID uint) (*domain.Tournament, bool, error) {
	var t domain.Tournament
	if err := tx.First(&t, tournamentID).Error; err != nil {
		return nil, false, err
	}
	if !t.IsFull() || t.Status != domain.TournamentOpen {
		return &t, false, nil
	}
	roomID, err := utils.RandomDigits(8)
	if err != nil {
		return nil, false, err
	}
	password, err := utils.RandomDigits(6)
	if err != nil {
		return nil, false, err
	}
	res := tx.Model(&domain.Tournament{}).
		Where("id = ? AND status = ?", t.ID, domain.TournamentOpen).
		Updates(map[string]any{"status": domain.TournamentReady, "room_id": roomID, "room_password": password})
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		return &t, false, nil
	}
	t.Status = domain.TournamentReady
	t.RoomID = &roomID
	t.RoomPassword = &password
	return &t, true, nil
}

// Participants lists completed registrations with their users, in join order
func (s *Store) Participants(ctx context.Context, tournamentID uint) ([]domain.Registration, error) {
	var regs []domain.Registration
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("tournament_id = ? AND payment_status = ?", tournamentID, domain.RegistrationCompleted).
		Order("id").
		Find(&regs).Error
	return regs, err
}

// ParticipantTelegramIDs is Participants reduced to chat ids
func (s *Store) ParticipantTelegramIDs(ctx context.Context, tournamentID uint) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).Model(&domain.Registration{}).
		Joins("JOIN users u ON u.id = registrations.user_id").
		Where("registrations.tournament_id = ? AND registrations.payment_status = ?", tournamentID, domain.RegistrationCompleted).
		Order("registrations.id").
		Pluck("u.telegram_id", &ids).Error
	return ids, err
}

// PendingRegistrations lists direct-payment registrations awaiting confirmation
func (s *Store) PendingRegistrations(ctx context.Context) ([]domain.Registration, error) {
	var regs []domain.Registration
	err := s.db.WithContext(ctx).Preload("User").
		Where("payment_status = ?", domain.RegistrationPending).
		Order("id").
		Find(&regs).Error
	return regs, err
}

// DueForReminder lists ready or open tournaments starting within window
// that have not been reminded yet
func (s *Store) DueForReminder(ctx context.Context, now time.Time, window time.Duration) ([]domain.Tournament, error) {
	var out []domain.Tournament
	err := s.db.WithContext(ctx).
		Where("status IN ? AND reminders_sent = ? AND start_time > ? AND start_time <= ?",
			[]domain.TournamentStatus{domain.TournamentOpen, domain.TournamentReady}, false, now.UTC(), now.UTC().Add(window)).
		Order("start_time").
		Find(&out).Error
	return out, err
}

// MarkReminded flags a tournament as reminded; false if another worker did it first
func (s *Store) MarkReminded(ctx context.Context, id uint) (bool, error) {
	res := s.db.WithContext(ctx).Model(&domain.Tournament{}).
		Where("id = ? AND reminders_sent = ?", id, false).
		Update("reminders_sent", true)
	return res.RowsAffected > 0, res.Error
}

// StartDue moves ready tournaments whose start time has passed to live
func (s *Store) StartDue(ctx context.Context, now time.Time) ([]domain.Tournament, error) {
	var due []domain.Tournament
	if err := s.db.WithContext(ctx).
		Where("status = ? AND start_time <= ?", domain.TournamentReady, now.UTC()).
		Find(&due).Error; err != nil {
		return nil, err
	}
	started := make([]domain.Tournament, 0, len(due))
	for _, t := range due {
		res := s.db.WithContext(ctx).Model(&domain.Tournament{}).
			Where("id = ? AND status = ?", t.ID, domain.TournamentReady).
			Update("status", domain.TournamentLive)
		if res.Error != nil {
			return started, res.Error
		}
		if res.RowsAffected > 0 {
			t.Status = domain.TournamentLive
			started = append(started, t)
			s.log.WithField("tournament_id", t.ID).Info("Tournament live")
		}
	}
	return started, nil
}

// CompleteTournament closes a ready or live tournament
func (s *Store) CompleteTournament(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Model(&domain.Tournament{}).
		Where("id = ? AND status IN ?", id, []domain.TournamentStatus{domain.TournamentReady, domain.TournamentLive}).
		Update("status", domain.TournamentCompleted)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("tournament %d: %w", id, domain.ErrInvalidState)
	}
	s.log.WithField("tournament_id", id).Info("Tournament completed")
	return nil
}

func tournamentRef(id uint) string { return "tournament_" + strconv.FormatUint(uint64(id), 10) }
