// Package scheduler runs the bot's periodic jobs.
package scheduler

import (
	"context"
	"strconv"
	"time"

	"tournament_bot/internal/chat"
	"tournament_bot/internal/domain"
	"tournament_bot/internal/ledger"
	"tournament_bot/internal/notify"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"
)

// ReminderWindow is how far ahead of the start time players are reminded
const ReminderWindow = time.Hour

// Jobs holds the work done on every tick
type Jobs struct {
	store    *ledger.Store
	notifier *notify.Broadcaster
	loc      *time.Location
	now      func() time.Time
	log      *logrus.Logger
}

func NewJobs(store *ledger.Store, notifier *notify.Broadcaster, loc *time.Location, log *logrus.Logger) *Jobs {
	if loc == nil {
		loc = time.UTC
	}
	return &Jobs{store: store, notifier: notifier, loc: loc, now: time.Now, log: log}
}

// SendReminders messages the participants of every tournament starting
// within ReminderWindow. A tournament is claimed before its broadcast, so
// each one is reminded at most once even with several instances running.
func (j *Jobs) SendReminders(ctx context.Context) (int, error) {
	due, err := j.store.DueForReminder(ctx, j.now(), ReminderWindow)
	if err != nil {
		return 0, err
	}
	reminded := 0
	for i := range due {
		t := &due[i]
		claimed, err := j.store.MarkReminded(ctx, t.ID)
		if err != nil {
			return reminded, err
		}
		if !claimed {
			continue
		}
		ids, err := j.store.ParticipantTelegramIDs(ctx, t.ID)
		if err != nil {
			return reminded, err
		}
		rep := j.notifier.Broadcast(ctx, ids, chat.Text(reminderText(t, j.loc, j.now())))
		j.log.WithFields(logrus.Fields{"tournament_id": t.ID, "sent": rep.Sent, "failed": rep.Failed}).Info("Tournament reminder sent")
		reminded++
	}
	return reminded, nil
}

func reminderText(t *domain.Tournament, loc *time.Location, now time.Time) string {
	mins := int(t.StartTime.Sub(now).Round(time.Minute) / time.Minute)
	text := "⏰ " + t.Name + " starts in " + pluralMinutes(mins) + " (" + t.StartTime.In(loc).Format("15:04") + ")."
	if t.RoomID != nil && t.RoomPassword != nil {
		text += "\n\nRoom ID: " + *t.RoomID + "\nPassword: " + *t.RoomPassword
	} else {
		text += "\nRoom details will be shared once all slots are filled."
	}
	return text
}

func pluralMinutes(n int) string {
	if n == 1 {
		return "1 minute"
	}
	return strconv.Itoa(n) + " minutes"
}

// StartDue moves ready tournaments whose start time has passed to live
func (j *Jobs) StartDue(ctx context.Context) (int, error) {
	started, err := j.store.StartDue(ctx, j.now())
	return len(started), err
}

// Start schedules both jobs every interval and runs them once right away.
// Each job is a singleton: a run that overlaps the previous one is skipped
// to the next tick. Call Shutdown on the returned scheduler to stop.
func Start(ctx context.Context, jobs *Jobs, every time.Duration) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(jobs.loc))
	if err != nil {
		return nil, err
	}
	for name, run := range map[string]func(context.Context) (int, error){
		"tournament-reminders": jobs.SendReminders,
		"tournament-start":     jobs.StartDue,
	} {
		_, err := s.NewJob(
			gocron.DurationJob(every),
			gocron.NewTask(func() {
				n, err := run(ctx)
				entry := jobs.log.WithFields(logrus.Fields{"job": name, "count": n})
				if err != nil {
					entry.WithError(err).Error("Scheduled job failed")
					return
				}
				entry.Debug("Scheduled job finished")
			}),
			gocron.WithName(name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			_ = s.Shutdown()
			return nil, err
		}
	}
	s.Start()
	jobs.log.WithField("every", every.String()).Info("Scheduler started")
	return s, nil
}
