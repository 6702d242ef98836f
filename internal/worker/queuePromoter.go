package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bookwell/bookwell/pkg/queue"
)

// QueuePromoter moves due delayed jobs onto the main queue so external
// notification workers, which only read the main list, pick them up.
type QueuePromoter struct {
	queue    *queue.RedisQueue
	interval time.Duration
}

func NewQueuePromoter(q *queue.RedisQueue, interval time.Duration) *QueuePromoter {
	return &QueuePromoter{queue: q, interval: interval}
}

func (w *QueuePromoter) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logrus.Info("Queue promoter started")

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Queue promoter stopped")
			return
		case <-ticker.C:
			if _, err := w.queue.PromoteDue(ctx, time.Now()); err != nil {
				logrus.Errorf("Failed to promote due jobs: %v", err)
			}
		}
	}
}
