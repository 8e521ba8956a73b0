// Package notify fans messages out to many chats without letting one
// blocked user or a slow transport stop the rest.
package notify

import (
	"context"
	"sync"

	"tournament_bot/internal/chat"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Report summarises a fan-out
type Report struct {
	Sent      int
	Failed    int
	FailedIDs []int64
}

// Broadcaster sends through a bounded worker pool behind a rate limiter
type Broadcaster struct {
	sender  chat.Sender
	limiter *rate.Limiter
	workers int
	log     *logrus.Logger
}

// New builds a Broadcaster. perSecond <= 0 disables rate limiting.
func New(sender chat.Sender, perSecond float64, workers int, log *logrus.Logger) *Broadcaster {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if workers < 1 {
		workers = 1
	}
	return &Broadcaster{
		sender:  sender,
		limiter: rate.NewLimiter(limit, 1),
		workers: workers,
		log:     log,
	}
}

// Broadcast delivers msg to every chat. Failures are counted, logged and
// otherwise ignored.
func (b *Broadcaster) Broadcast(ctx context.Context, chatIDs []int64, msg chat.Message) Report {
	var (
		mu  sync.Mutex
		rep Report
	)
	g := new(errgroup.Group)
	g.SetLimit(b.workers)
	for _, id := range chatIDs {
		g.Go(func() error {
			err := b.limiter.Wait(ctx)
			if err == nil {
				err = b.sender.Send(ctx, id, msg)
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				rep.Failed++
				rep.FailedIDs = append(rep.FailedIDs, id)
				b.log.WithFields(logrus.Fields{"chat_id": id, "error": err.Error()}).Warn("Broadcast delivery failed")
				return nil
			}
			rep.Sent++
			return nil
		})
	}
	_ = g.Wait()
	b.log.WithFields(logrus.Fields{"sent": rep.Sent, "failed": rep.Failed}).Info("Broadcast finished")
	return rep
}

// Notify sends a single best-effort message
func (b *Broadcaster) Notify(ctx context.Context, chatID int64, msg chat.Message) bool {
	if err := b.sender.Send(ctx, chatID, msg); err != nil {
		b.log.WithFields(logrus.Fields{"chat_id": chatID, "error": err.Error()}).Warn("Notification failed")
		return false
	}
	return true
}
