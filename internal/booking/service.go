package booking

import (
	"context"
	"errors"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/ntkiet1912/cifastar-booking-engine/internal/model"
	"github.com/ntkiet1912/cifastar-booking-engine/internal/queue"
	"github.com/ntkiet1912/cifastar-booking-engine/internal/repository"
)

// Service is the booking state machine. It owns the
// PENDING -> {CONFIRMED, CANCELLED, EXPIRED} lifecycle and coordinates
// the lock manager, pricing engine and ticket issuer around it. The
// status compare-and-swap on the booking row is the single point of
// truth for every race: whichever caller wins it proceeds, the loser
// observes the new terminal state and takes no action.
type Service struct {
	locks      *LockManager
	pricing    *PricingEngine
	issuer     *TicketIssuer
	bookings   BookingStore
	seats      SeatInventory
	seatInfo   SeatCatalog
	screenings ScreeningStore
	loyalty    LoyaltyStore
	publisher  EventPublisher
	log        *logrus.Entry
	now        func() time.Time
}

// NewService wires the booking state machine. publisher may be nil when
// notification dispatch is disabled.
func NewService(locks *LockManager, pricing *PricingEngine, issuer *TicketIssuer, bookings BookingStore, seats SeatInventory, seatInfo SeatCatalog, screenings ScreeningStore, loyalty LoyaltyStore, publisher EventPublisher, log *logrus.Entry) *Service {
	if locks == nil || pricing == nil || issuer == nil || bookings == nil || seats == nil || seatInfo == nil || screenings == nil || loyalty == nil {
		panic("nil dependency passed to NewService")
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Service{
		locks:      locks,
		pricing:    pricing,
		issuer:     issuer,
		bookings:   bookings,
		seats:      seats,
		seatInfo:   seatInfo,
		screenings: screenings,
		loyalty:    loyalty,
		publisher:  publisher,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Locks exposes the lock manager for the transport layer.
func (s *Service) Locks() *LockManager { return s.locks }

// CreateResult bundles the new booking with its pricing breakdown.
type CreateResult struct {
	Booking   *model.Booking
	Breakdown *Breakdown
}

// Create builds a PENDING booking from a successful lock batch. The
// seats currently held under lockToken are priced together with the
// combo selections and the requested loyalty redemption, then bound to
// the new booking in one atomic step. The booking inherits the hold TTL
// so its deadline stays in the same class as the seat locks.
//
// It fails with ErrEmptySelection when the token holds no seats,
// ErrScreeningNotBookable outside the sale window, and the pricing
// errors (PriceNotFoundError, InvalidRedemptionError) pass through
// unchanged. A SeatUnavailableError is returned when another actor
// claimed the seats between locking and binding.
func (s *Service) Create(ctx context.Context, customerID, screeningID uint64, lockToken string, selections []ComboSelection, pointsToRedeem int64) (*CreateResult, error) {
	screening, err := s.screenings.GetByID(ctx, screeningID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !screening.Bookable(now) {
		return nil, ErrScreeningNotBookable
	}
	held, err := s.seats.HeldByToken(ctx, screeningID, lockToken)
	if err != nil {
		return nil, err
	}
	if len(held) == 0 {
		return nil, ErrEmptySelection
	}
	seatIDs := lo.Map(held, func(seat model.ScreeningSeat, _ int) uint64 { return seat.SeatID })
	breakdown, err := s.pricing.Price(ctx, screening, seatIDs, selections, customerID, pointsToRedeem)
	if err != nil {
		return nil, err
	}
	b := &model.Booking{
		CustomerID:    customerID,
		ScreeningID:   screeningID,
		SeatSubtotal:  breakdown.SeatSubtotal,
		ComboSubtotal: breakdown.ComboSubtotal,
		Discount:      breakdown.Discount,
		Total:         breakdown.Total,
		PointsUsed:    breakdown.PointsUsed,
		ExpiresAt:     now.Add(s.locks.TTL()),
	}
	if err := s.bookings.CreateWithSeats(ctx, b, breakdown.Combos, breakdown.SeatPrices, lockToken); err != nil {
		if errors.Is(err, repository.ErrSeatsNotHeld) {
			return nil, &SeatUnavailableError{SeatIDs: seatIDs}
		}
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"booking_id":   b.ID,
		"screening_id": screeningID,
		"seats":        len(seatIDs),
		"total":        b.Total,
	}).Info("booking created")
	return &CreateResult{Booking: b, Breakdown: breakdown}, nil
}

// UpdateCombos replaces the combo line items of a PENDING booking and
// recomputes its totals. The discount is revalidated against the new
// subtotal so a shrinking order cannot keep an oversized redemption.
// Updating a booking that already reached a terminal state fails with
// ErrBookingNotPending (CONFIRMED included: combos are frozen once paid).
func (s *Service) UpdateCombos(ctx context.Context, bookingID, customerID uint64, selections []ComboSelection) (*model.Booking, error) {
	b, err := s.getOwned(ctx, bookingID, customerID)
	if err != nil {
		return nil, err
	}
	if b.Terminal() {
		return nil, ErrBookingNotPending
	}
	lineItems, comboSubtotal, err := s.pricing.PriceCombos(ctx, selections)
	if err != nil {
		return nil, err
	}
	discount, err := s.pricing.validateRedemption(ctx, customerID, b.PointsUsed, b.SeatSubtotal+comboSubtotal)
	if err != nil {
		return nil, err
	}
	total := b.SeatSubtotal + comboSubtotal - discount
	if total < 0 {
		total = 0
	}
	ok, err := s.bookings.ReplaceCombos(ctx, bookingID, lineItems, comboSubtotal, discount, total)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the race against confirm/cancel/reconcile.
		return nil, ErrBookingNotPending
	}
	return s.bookings.GetByID(ctx, bookingID)
}

// ConfirmResult carries the confirmed booking and its tickets. Repeated
// confirms return the same set.
type ConfirmResult struct {
	Booking *model.Booking
	Tickets []model.Ticket
}

// Confirm reacts to a successful payment signal. From PENDING, and only
// before the hold deadline, it wins the status compare-and-swap
// (redeeming loyalty points in the same transaction), issues the
// tickets, finalizes the seats to SOLD and publishes the confirmation
// event. If issuance fails after the CAS won, the transition is rolled
// back and the points refunded, so the booking returns to PENDING and
// the payment webhook can retry.
//
// Calling Confirm on an already-CONFIRMED booking is a no-op that
// returns the previously issued tickets, so retries are safe. Past the
// deadline it fails with ErrBookingExpired and triggers the same expiry
// path as the reconciler; losing the CAS to the reconciler reports the
// same error.
func (s *Service) Confirm(ctx context.Context, bookingID uint64, paymentRef string) (*ConfirmResult, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	switch b.Status {
	case model.BookingStatusConfirmed:
		return s.confirmedResult(ctx, bookingID)
	case model.BookingStatusCancelled:
		return nil, ErrBookingNotPending
	case model.BookingStatusExpired:
		return nil, ErrBookingExpired
	}
	now := s.now()
	if !now.Before(b.ExpiresAt) {
		// Too late: take the reconciler's path instead of confirming.
		s.expire(ctx, b, now)
		return nil, ErrBookingExpired
	}
	ok, err := s.bookings.Confirm(ctx, bookingID, paymentRef)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientPoints) {
			return nil, &InvalidRedemptionError{Requested: b.PointsUsed}
		}
		return nil, err
	}
	if !ok {
		// Someone else moved the booking first; observe and report.
		current, err := s.bookings.GetByID(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		switch current.Status {
		case model.BookingStatusConfirmed:
			return s.confirmedResult(ctx, bookingID)
		case model.BookingStatusExpired:
			return nil, ErrBookingExpired
		default:
			return nil, ErrBookingNotPending
		}
	}
	// This call owns the confirmation. Tickets are issued while the
	// seats are still LOCKED and bound, so a failure up to this point
	// can be compensated without touching the inventory.
	seats, err := s.seats.ByBooking(ctx, bookingID)
	if err != nil {
		return nil, s.rollbackConfirm(ctx, b, err)
	}
	tickets, err := s.issuer.Issue(ctx, b, seats, now)
	if err != nil {
		if errors.Is(err, repository.ErrTicketsExist) {
			// A recovering retry minted the batch first; adopt its set.
			return s.confirmedResult(ctx, bookingID)
		}
		return nil, s.rollbackConfirm(ctx, b, err)
	}
	if _, err := s.seats.MarkSoldByBooking(ctx, bookingID); err != nil {
		// Tickets already exist, so the booking stays CONFIRMED; the
		// next retry finalizes the seats through the idempotent branch.
		return nil, err
	}
	b.Status = model.BookingStatusConfirmed
	b.PaymentRef = &paymentRef
	s.log.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"tickets":    len(tickets),
	}).Info("booking confirmed")
	s.publishConfirmed(ctx, b, seats, tickets, now)
	return &ConfirmResult{Booking: b, Tickets: tickets}, nil
}

// confirmedResult assembles the idempotent answer for a booking that is
// already CONFIRMED: the previously issued tickets, after finalizing
// any seats an interrupted earlier attempt left LOCKED. A concurrent
// winner inserts its tickets an instant after winning the status CAS,
// so an empty read re-checks briefly instead of trusting the first
// answer; a booking that stays CONFIRMED with no tickets gets them
// minted here.
func (s *Service) confirmedResult(ctx context.Context, bookingID uint64) (*ConfirmResult, error) {
	var tickets []model.Ticket
	for attempt := 0; ; attempt++ {
		var err error
		tickets, err = s.issuer.tickets.ByBooking(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		if len(tickets) > 0 || attempt == 2 {
			break
		}
		b, err := s.bookings.GetByID(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		switch b.Status {
		case model.BookingStatusConfirmed:
		case model.BookingStatusExpired:
			return nil, ErrBookingExpired
		default:
			// The attempt we raced against rolled its CAS back; the booking
			// is PENDING again and the caller's retry confirms it anew.
			return nil, ErrBookingNotPending
		}
		time.Sleep(20 * time.Millisecond)
	}
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		// An earlier attempt confirmed the booking but never minted its
		// tickets and could not roll back either. Recover by issuing
		// now; the per-booking guard in CreateBatch keeps concurrent
		// recoveries from double-minting.
		seats, err := s.seats.ByBooking(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		tickets, err = s.issuer.Issue(ctx, b, seats, s.now())
		if errors.Is(err, repository.ErrTicketsExist) {
			tickets, err = s.issuer.tickets.ByBooking(ctx, bookingID)
		}
		if err != nil {
			return nil, err
		}
	}
	if _, err := s.seats.MarkSoldByBooking(ctx, bookingID); err != nil {
		return nil, err
	}
	return &ConfirmResult{Booking: b, Tickets: tickets}, nil
}

// rollbackConfirm compensates a confirmation that won the status CAS but
// could not complete: the CAS is reverted and the redeemed points are
// refunded, so the failure leaves no partial state behind. The original
// cause is always returned; a failed compensation is logged and leaves
// the booking to the retry's idempotent branch.
func (s *Service) rollbackConfirm(ctx context.Context, b *model.Booking, cause error) error {
	if existing, err := s.issuer.tickets.ByBooking(ctx, b.ID); err == nil && len(existing) > 0 {
		// A concurrent retry already minted tickets; the confirmation
		// stands and this attempt just reports its own failure.
		return cause
	}
	won, err := s.bookings.TransitionStatus(ctx, b.ID, model.BookingStatusConfirmed, model.BookingStatusPending)
	if err != nil {
		s.log.WithError(err).WithField("booking_id", b.ID).Error("confirm rollback failed")
		return cause
	}
	if !won {
		return cause
	}
	if b.PointsUsed > 0 {
		if err := s.loyalty.Refund(ctx, b.CustomerID, b.PointsUsed); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"booking_id": b.ID,
				"points":     b.PointsUsed,
			}).Error("loyalty refund failed after confirm rollback")
		}
	}
	return cause
}

// Cancel voids a PENDING booking on explicit customer request and
// releases its seats back to AVAILABLE. Confirmed bookings cannot be
// cancelled here; tickets already exist and freeing their seats belongs
// to a separate refund workflow.
func (s *Service) Cancel(ctx context.Context, bookingID, customerID uint64) (*model.Booking, error) {
	b, err := s.getOwned(ctx, bookingID, customerID)
	if err != nil {
		return nil, err
	}
	ok, err := s.bookings.TransitionStatus(ctx, bookingID, model.BookingStatusPending, model.BookingStatusCancelled)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBookingNotPending
	}
	released, err := s.seats.ReleaseByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"booking_id":     bookingID,
		"seats_released": released,
	}).Info("booking cancelled")
	b.Status = model.BookingStatusCancelled
	return b, nil
}

// CheckIn consumes a ticket at the gate: the ACTIVE -> USED
// compare-and-swap stamps usedAt exactly once. It returns
// ErrTicketNotCheckable when the ticket is in any other state, and
// never touches the originating seat.
func (s *Service) CheckIn(ctx context.Context, code string) (*model.Ticket, error) {
	ok, err := s.issuer.tickets.MarkUsed(ctx, code, s.now())
	if err != nil {
		return nil, err
	}
	t, getErr := s.issuer.tickets.GetByCode(ctx, code)
	if getErr != nil {
		if errors.Is(getErr, repository.ErrTicketNotFound) {
			return nil, ErrNotFound
		}
		return nil, getErr
	}
	if !ok {
		return nil, ErrTicketNotCheckable
	}
	return t, nil
}

// Expire applies the expiry path to one booking: the PENDING -> EXPIRED
// compare-and-swap followed by releasing its still-LOCKED seats. Safe
// to race with Confirm; the loser of the CAS does nothing. Used by the
// reconciler and by late confirm attempts.
func (s *Service) Expire(ctx context.Context, bookingID uint64, now time.Time) (bool, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return false, err
	}
	return s.expire(ctx, b, now), nil
}

// expire performs the expiry CAS and release; reports whether this call
// won the transition.
func (s *Service) expire(ctx context.Context, b *model.Booking, now time.Time) bool {
	won, err := s.bookings.TransitionStatus(ctx, b.ID, model.BookingStatusPending, model.BookingStatusExpired)
	if err != nil {
		s.log.WithError(err).WithField("booking_id", b.ID).Error("expiry transition failed")
		return false
	}
	if !won {
		return false
	}
	released, err := s.seats.ReleaseByBooking(ctx, b.ID)
	if err != nil {
		s.log.WithError(err).WithField("booking_id", b.ID).Error("seat release failed after expiry")
		return true
	}
	s.log.WithFields(logrus.Fields{
		"booking_id":     b.ID,
		"seats_released": released,
	}).Info("booking expired")
	if s.publisher != nil {
		s.publisher.BookingExpired(ctx, queue.BookingExpiredEvent{
			BookingID:   b.ID,
			CustomerID:  b.CustomerID,
			ScreeningID: b.ScreeningID,
			SeatsFreed:  released,
			ExpiredAt:   now.UTC().Format(time.RFC3339),
		})
	}
	return true
}

// getOwned loads a booking and enforces that it belongs to the caller.
func (s *Service) getOwned(ctx context.Context, bookingID, customerID uint64) (*model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if b.CustomerID != customerID {
		return nil, ErrNotFound
	}
	return b, nil
}

// publishConfirmed assembles and dispatches the confirmation event.
// Enrichment failures only degrade the payload; dispatch is
// best-effort by contract.
func (s *Service) publishConfirmed(ctx context.Context, b *model.Booking, seats []model.ScreeningSeat, tickets []model.Ticket, now time.Time) {
	if s.publisher == nil {
		return
	}
	ev := queue.BookingConfirmedEvent{
		BookingID:   b.ID,
		CustomerID:  b.CustomerID,
		ScreeningID: b.ScreeningID,
		Total:       b.Total,
		ConfirmedAt: now.UTC().Format(time.RFC3339),
		TicketCodes: lo.Map(tickets, func(t model.Ticket, _ int) string { return t.Code }),
	}
	if screening, err := s.screenings.GetByID(ctx, b.ScreeningID); err == nil {
		ev.MovieTitle = screening.MovieTitle
		ev.StartsAt = screening.StartsAt.Format(time.RFC3339)
	}
	seatIDs := lo.Map(seats, func(seat model.ScreeningSeat, _ int) uint64 { return seat.SeatID })
	if labels, err := s.seatInfo.LabelsByIDs(ctx, seatIDs); err == nil {
		ev.SeatLabels = lo.Map(seatIDs, func(id uint64, _ int) string { return labels[id] })
	}
	s.publisher.BookingConfirmed(ctx, ev)
}
