package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bookwell/bookwell/internal/service"
)

// BookingSweepWorker periodically settles bookings the clock has passed by:
// confirmed bookings whose end time passed become completed, and pending
// bookings that were never confirmed before their start are cancelled.
type BookingSweepWorker struct {
	bookingService service.BookingService
	interval       time.Duration
}

func NewBookingSweepWorker(bookingService service.BookingService, interval time.Duration) *BookingSweepWorker {
	return &BookingSweepWorker{
		bookingService: bookingService,
		interval:       interval,
	}
}

func (w *BookingSweepWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logrus.Info("Booking sweep worker started")

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Booking sweep worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *BookingSweepWorker) sweep(ctx context.Context) {
	completed, err := w.bookingService.CompletePastBookings(ctx)
	if err != nil {
		logrus.Errorf("Failed to complete past bookings: %v", err)
	} else if completed > 0 {
		logrus.Infof("Marked %d past bookings completed", completed)
	}

	cancelled, err := w.bookingService.CancelStalePending(ctx)
	if err != nil {
		logrus.Errorf("Failed to cancel stale pending bookings: %v", err)
	} else if cancelled > 0 {
		logrus.Infof("Cancelled %d stale pending bookings", cancelled)
	}
}
