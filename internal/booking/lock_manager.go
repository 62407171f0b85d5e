package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// LockManager turns a customer's seat selection into a time-boxed,
// exclusive hold. The whole batch transitions AVAILABLE -> LOCKED or
// nothing does; the underlying store performs the transition as
// per-seat conditional updates inside one transaction, so two batches
// racing for an overlapping seat set cannot both win the overlap.
type LockManager struct {
	seats      SeatInventory
	screenings ScreeningStore
	ttl        time.Duration
	now        func() time.Time
}

// NewLockManager constructs a LockManager. ttl is the hold duration
// applied to every lock batch.
func NewLockManager(seats SeatInventory, screenings ScreeningStore, ttl time.Duration) *LockManager {
	if seats == nil || screenings == nil {
		panic("nil store passed to NewLockManager")
	}
	return &LockManager{seats: seats, screenings: screenings, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

// LockResult describes a successful hold: the token correlating the
// batch, the deduplicated seat IDs locked, and the shared deadline.
type LockResult struct {
	Token     string
	SeatIDs   []uint64
	ExpiresAt time.Time
}

// Lock places a hold on the requested seats of a screening. Duplicate
// seat IDs are deduplicated before the all-or-nothing attempt. It
// returns ErrEmptySelection for an empty request, ErrNotFound for an
// unknown screening, ErrScreeningNotBookable outside the sale window,
// and a SeatUnavailableError naming the conflicting seats when any seat
// is not AVAILABLE; in that case no seat of the batch stays locked.
func (m *LockManager) Lock(ctx context.Context, screeningID uint64, seatIDs []uint64) (*LockResult, error) {
	unique := lo.Uniq(lo.Filter(seatIDs, func(id uint64, _ int) bool { return id != 0 }))
	if len(unique) == 0 {
		return nil, ErrEmptySelection
	}
	screening, err := m.screenings.GetByID(ctx, screeningID)
	if err != nil {
		return nil, err
	}
	now := m.now()
	if !screening.Bookable(now) {
		return nil, ErrScreeningNotBookable
	}
	token := uuid.NewString()
	until := now.Add(m.ttl)
	conflicts, err := m.seats.Lock(ctx, screeningID, unique, token, until)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, &SeatUnavailableError{SeatIDs: conflicts}
	}
	return &LockResult{Token: token, SeatIDs: unique, ExpiresAt: until}, nil
}

// Unlock releases the unbound seats of a lock batch back to AVAILABLE.
// This is the explicit-cancellation mode: the deadline is ignored.
// Expiry-driven release belongs to the reconciler. Returns the number
// of seats released.
func (m *LockManager) Unlock(ctx context.Context, screeningID uint64, token string) (int64, error) {
	return m.seats.ReleaseByToken(ctx, screeningID, token)
}

// TTL exposes the configured hold duration so the state machine can
// keep booking deadlines in the same TTL class as seat locks.
func (m *LockManager) TTL() time.Duration { return m.ttl }
