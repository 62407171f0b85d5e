package booking

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Reconciler is the periodic sweep that turns expired holds back into
// sellable inventory. It is idempotent and safe to run concurrently
// with confirm traffic (and with other replicas' reconcilers): every
// booking it touches goes through the same PENDING -> EXPIRED
// compare-and-swap that confirm competes on, so each expired booking is
// resolved exactly once, by exactly one winner.
type Reconciler struct {
	service  *Service
	seats    SeatInventory
	bookings BookingStore
	interval time.Duration
	batch    int
	log      *logrus.Entry
}

// NewReconciler constructs a Reconciler sweeping at the given interval.
func NewReconciler(service *Service, seats SeatInventory, bookings BookingStore, interval time.Duration, log *logrus.Entry) *Reconciler {
	if service == nil || seats == nil || bookings == nil {
		panic("nil dependency passed to NewReconciler")
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Reconciler{
		service:  service,
		seats:    seats,
		bookings: bookings,
		interval: interval,
		batch:    500,
		log:      log,
	}
}

// SweepStats summarizes one reconciliation pass.
type SweepStats struct {
	BookingsExpired int
	OrphansReleased int64
}

// Run sweeps on a ticker until the context is cancelled. Sweep failures
// are logged and retried on the next tick; they never stop the loop.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	r.log.WithField("interval", r.interval.String()).Info("expiry reconciler started")
	for {
		select {
		case <-ctx.Done():
			r.log.Info("expiry reconciler stopped")
			return
		case <-ticker.C:
			if _, err := r.Reconcile(ctx, time.Now().UTC()); err != nil {
				r.log.WithError(err).Error("reconciliation sweep failed")
			}
		}
	}
}

// Reconcile performs a single sweep at the given instant. It expires
// every PENDING booking whose deadline has passed, releasing its
// still-LOCKED seats, and then frees orphaned seat locks that expired
// before a booking was ever created for them. Bookings that a racing
// confirm resolves first are simply skipped.
func (r *Reconciler) Reconcile(ctx context.Context, now time.Time) (SweepStats, error) {
	var stats SweepStats
	ids, err := r.bookings.ListExpiredPending(ctx, now, r.batch)
	if err != nil {
		return stats, err
	}
	for _, id := range ids {
		won, err := r.service.Expire(ctx, id, now)
		if err != nil {
			r.log.WithError(err).WithField("booking_id", id).Error("failed to expire booking")
			continue
		}
		if won {
			stats.BookingsExpired++
		}
	}
	released, err := r.seats.ReleaseExpiredOrphans(ctx, now)
	if err != nil {
		return stats, err
	}
	stats.OrphansReleased = released
	if stats.BookingsExpired > 0 || stats.OrphansReleased > 0 {
		r.log.WithFields(logrus.Fields{
			"bookings_expired": stats.BookingsExpired,
			"orphans_released": stats.OrphansReleased,
		}).Info("reconciliation sweep released inventory")
	} else {
		r.log.Debug("reconciliation sweep found nothing to release")
	}
	return stats, nil
}
