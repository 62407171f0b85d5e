package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ntkiet1912/cifastar-booking-engine/internal/model"
	"github.com/ntkiet1912/cifastar-booking-engine/internal/queue"
	"github.com/ntkiet1912/cifastar-booking-engine/internal/repository"
)

// memBackend is an in-memory implementation of every store interface
// the engine depends on. All mutations happen under one mutex and honor
// the same compare-and-swap contracts as the MySQL repositories, so the
// concurrency behavior of the engine can be exercised without a
// database.
type memBackend struct {
	mu sync.Mutex

	screenings map[uint64]model.Screening
	seatTypes  map[uint64]string
	seatLabels map[uint64]string
	rows       map[uint64]*model.ScreeningSeat
	bookings   map[uint64]*model.Booking
	combosBy   map[uint64][]model.BookingCombo
	tickets    map[string]*model.Ticket
	balances   map[uint64]int64
	prices     map[string]int64
	catalogue  map[uint64]model.Combo

	nextRowID     uint64
	nextBookingID uint64
	nextTicketID  uint64
}

func newMemBackend() *memBackend {
	return &memBackend{
		screenings: map[uint64]model.Screening{},
		seatTypes:  map[uint64]string{},
		seatLabels: map[uint64]string{},
		rows:       map[uint64]*model.ScreeningSeat{},
		bookings:   map[uint64]*model.Booking{},
		combosBy:   map[uint64][]model.BookingCombo{},
		tickets:    map[string]*model.Ticket{},
		balances:   map[uint64]int64{},
		prices:     map[string]int64{},
		catalogue:  map[uint64]model.Combo{},
	}
}

// --- seeding helpers ---

func (m *memBackend) addScreening(s model.Screening) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.screenings[s.ID] = s
}

func (m *memBackend) addSeat(screeningID, seatID uint64, seatType, label string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seatTypes[seatID] = seatType
	m.seatLabels[seatID] = label
	m.nextRowID++
	m.rows[m.nextRowID] = &model.ScreeningSeat{
		ID:          m.nextRowID,
		ScreeningID: screeningID,
		SeatID:      seatID,
		Status:      model.SeatStatusAvailable,
	}
}

func (m *memBackend) setPrice(seatType, dayType, timeSlot string, price int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[priceKey(seatType, dayType, timeSlot)] = price
}

func (m *memBackend) addCombo(c model.Combo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catalogue[c.ID] = c
}

func (m *memBackend) setBalance(customerID uint64, points int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[customerID] = points
}

func (m *memBackend) row(screeningID, seatID uint64) *model.ScreeningSeat {
	for _, r := range m.rows {
		if r.ScreeningID == screeningID && r.SeatID == seatID {
			return r
		}
	}
	return nil
}

func (m *memBackend) seatStatus(screeningID, seatID uint64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r := m.row(screeningID, seatID); r != nil {
		return r.Status
	}
	return ""
}

func priceKey(seatType, dayType, timeSlot string) string {
	return fmt.Sprintf("%s/%s/%s", seatType, dayType, timeSlot)
}

// --- SeatInventory ---

func (m *memBackend) Lock(_ context.Context, screeningID uint64, seatIDs []uint64, token string, until time.Time) ([]uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var conflicts []uint64
	for _, id := range seatIDs {
		r := m.row(screeningID, id)
		if r == nil || r.Status != model.SeatStatusAvailable {
			conflicts = append(conflicts, id)
		}
	}
	if len(conflicts) > 0 {
		return conflicts, nil
	}
	for _, id := range seatIDs {
		r := m.row(screeningID, id)
		r.Status = model.SeatStatusLocked
		t, u := token, until
		r.LockToken = &t
		r.LockUntil = &u
	}
	return nil, nil
}

func (m *memBackend) HeldByToken(_ context.Context, screeningID uint64, token string) ([]model.ScreeningSeat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ScreeningSeat
	for _, r := range m.rows {
		if r.ScreeningID == screeningID && r.Status == model.SeatStatusLocked &&
			r.LockToken != nil && *r.LockToken == token && r.BookingID == nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memBackend) ByBooking(_ context.Context, bookingID uint64) ([]model.ScreeningSeat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ScreeningSeat
	for _, r := range m.rows {
		if r.BookingID != nil && *r.BookingID == bookingID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memBackend) ReleaseByToken(_ context.Context, screeningID uint64, token string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.rows {
		if r.ScreeningID == screeningID && r.Status == model.SeatStatusLocked &&
			r.LockToken != nil && *r.LockToken == token && r.BookingID == nil {
			release(r)
			n++
		}
	}
	return n, nil
}

func (m *memBackend) ReleaseByBooking(_ context.Context, bookingID uint64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.rows {
		if r.Status == model.SeatStatusLocked && r.BookingID != nil && *r.BookingID == bookingID {
			release(r)
			n++
		}
	}
	return n, nil
}

func (m *memBackend) ReleaseExpiredOrphans(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.rows {
		if r.Status == model.SeatStatusLocked && r.BookingID == nil &&
			r.LockUntil != nil && !now.Before(*r.LockUntil) {
			release(r)
			n++
		}
	}
	return n, nil
}

func (m *memBackend) MarkSoldByBooking(_ context.Context, bookingID uint64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.rows {
		if r.Status == model.SeatStatusLocked && r.BookingID != nil && *r.BookingID == bookingID {
			r.Status = model.SeatStatusSold
			r.LockUntil = nil
			r.LockToken = nil
			n++
		}
	}
	return n, nil
}

func release(r *model.ScreeningSeat) {
	r.Status = model.SeatStatusAvailable
	r.LockUntil = nil
	r.LockToken = nil
	r.BookingID = nil
	r.Price = nil
}

// --- BookingStore ---

func (m *memBackend) CreateWithSeats(_ context.Context, b *model.Booking, combos []model.BookingCombo, seatPrices map[uint64]int64, lockToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var bound []*model.ScreeningSeat
	for seatID := range seatPrices {
		r := m.row(b.ScreeningID, seatID)
		if r == nil || r.Status != model.SeatStatusLocked || r.BookingID != nil ||
			r.LockToken == nil || *r.LockToken != lockToken {
			return repository.ErrSeatsNotHeld
		}
		bound = append(bound, r)
	}
	m.nextBookingID++
	b.ID = m.nextBookingID
	b.Status = model.BookingStatusPending
	stored := *b
	m.bookings[b.ID] = &stored
	m.combosBy[b.ID] = append([]model.BookingCombo(nil), combos...)
	for _, r := range bound {
		id := b.ID
		price := seatPrices[r.SeatID]
		r.BookingID = &id
		r.Price = &price
	}
	return nil
}

func (m *memBackend) GetByID(_ context.Context, id uint64) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memBackend) Confirm(_ context.Context, id uint64, paymentRef string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return false, repository.ErrBookingNotFound
	}
	if b.Status != model.BookingStatusPending {
		return false, nil
	}
	if b.PointsUsed > 0 {
		if m.balances[b.CustomerID] < b.PointsUsed {
			return false, repository.ErrInsufficientPoints
		}
		m.balances[b.CustomerID] -= b.PointsUsed
	}
	b.Status = model.BookingStatusConfirmed
	b.PaymentRef = &paymentRef
	return true, nil
}

func (m *memBackend) TransitionStatus(_ context.Context, id uint64, from, to string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return false, repository.ErrBookingNotFound
	}
	if b.Status != from {
		return false, nil
	}
	b.Status = to
	return true, nil
}

func (m *memBackend) ReplaceCombos(_ context.Context, bookingID uint64, combos []model.BookingCombo, comboSubtotal, discount, total int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok {
		return false, repository.ErrBookingNotFound
	}
	if b.Status != model.BookingStatusPending {
		return false, nil
	}
	m.combosBy[bookingID] = append([]model.BookingCombo(nil), combos...)
	b.ComboSubtotal = comboSubtotal
	b.Discount = discount
	b.Total = total
	return true, nil
}

func (m *memBackend) CombosByBooking(_ context.Context, bookingID uint64) ([]model.BookingCombo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.BookingCombo(nil), m.combosBy[bookingID]...), nil
}

func (m *memBackend) ListExpiredPending(_ context.Context, now time.Time, limit int) ([]uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []uint64
	for id, b := range m.bookings {
		if b.Status == model.BookingStatusPending && !now.Before(b.ExpiresAt) {
			out = append(out, id)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// --- TicketStore ---

func (m *memBackend) CodeExists(_ context.Context, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tickets[code]
	return ok, nil
}

func (m *memBackend) CreateBatch(_ context.Context, tickets []model.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(tickets) > 0 {
		for _, existing := range m.tickets {
			if existing.BookingID == tickets[0].BookingID {
				return repository.ErrTicketsExist
			}
		}
	}
	seen := map[string]bool{}
	for _, t := range tickets {
		if seen[t.Code] {
			return repository.ErrDuplicateTicketCode
		}
		seen[t.Code] = true
		if _, ok := m.tickets[t.Code]; ok {
			return repository.ErrDuplicateTicketCode
		}
	}
	for _, t := range tickets {
		m.nextTicketID++
		t.ID = m.nextTicketID
		stored := t
		m.tickets[t.Code] = &stored
	}
	return nil
}

func (m *memBackend) TicketsByBooking(ctx context.Context, bookingID uint64) ([]model.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Ticket
	for _, t := range m.tickets {
		if t.BookingID == bookingID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memBackend) GetByCode(_ context.Context, code string) (*model.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[code]
	if !ok {
		return nil, repository.ErrTicketNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memBackend) MarkUsed(_ context.Context, code string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[code]
	if !ok || t.Status != model.TicketStatusActive {
		return false, nil
	}
	t.Status = model.TicketStatusUsed
	u := now
	t.UsedAt = &u
	return true, nil
}

// --- LoyaltyStore / PriceLookup / ComboCatalog / SeatCatalog / ScreeningStore ---

func (m *memBackend) Balance(_ context.Context, customerID uint64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[customerID], nil
}

func (m *memBackend) Refund(_ context.Context, customerID uint64, points int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if points > 0 {
		m.balances[customerID] += points
	}
	return nil
}

func (m *memBackend) UnitPrice(_ context.Context, seatType, dayType, timeSlot string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prices[priceKey(seatType, dayType, timeSlot)]
	if !ok {
		return 0, repository.ErrPriceNotFound
	}
	return p, nil
}

func (m *memBackend) ActiveByIDs(_ context.Context, ids []uint64) (map[uint64]model.Combo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uint64]model.Combo, len(ids))
	for _, id := range ids {
		if c, ok := m.catalogue[id]; ok && c.IsActive {
			out[id] = c
		}
	}
	return out, nil
}

func (m *memBackend) TypesByIDs(_ context.Context, seatIDs []uint64) (map[uint64]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uint64]string, len(seatIDs))
	for _, id := range seatIDs {
		if t, ok := m.seatTypes[id]; ok {
			out[id] = t
		}
	}
	return out, nil
}

func (m *memBackend) LabelsByIDs(_ context.Context, seatIDs []uint64) (map[uint64]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uint64]string, len(seatIDs))
	for _, id := range seatIDs {
		if l, ok := m.seatLabels[id]; ok {
			out[id] = l
		}
	}
	return out, nil
}

func (m *memBackend) GetScreening(ctx context.Context, id uint64) (*model.Screening, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.screenings[id]
	if !ok {
		return nil, repository.ErrScreeningNotFound
	}
	return &s, nil
}

// screeningStore adapts memBackend to the ScreeningStore interface
// without colliding with BookingStore.GetByID.
type screeningStore struct{ m *memBackend }

func (s screeningStore) GetByID(ctx context.Context, id uint64) (*model.Screening, error) {
	return s.m.GetScreening(ctx, id)
}

// ticketStore adapts memBackend to the TicketStore interface; its
// ByBooking and GetByCode would otherwise collide with the seat and
// booking methods.
type ticketStore struct{ m *memBackend }

func (t ticketStore) CodeExists(ctx context.Context, code string) (bool, error) {
	return t.m.CodeExists(ctx, code)
}
func (t ticketStore) CreateBatch(ctx context.Context, tickets []model.Ticket) error {
	return t.m.CreateBatch(ctx, tickets)
}
func (t ticketStore) ByBooking(ctx context.Context, bookingID uint64) ([]model.Ticket, error) {
	return t.m.TicketsByBooking(ctx, bookingID)
}
func (t ticketStore) GetByCode(ctx context.Context, code string) (*model.Ticket, error) {
	return t.m.GetByCode(ctx, code)
}
func (t ticketStore) MarkUsed(ctx context.Context, code string, now time.Time) (bool, error) {
	return t.m.MarkUsed(ctx, code, now)
}

// recordingPublisher captures dispatched events for assertions.
type recordingPublisher struct {
	mu        sync.Mutex
	confirmed []queue.BookingConfirmedEvent
	expired   []queue.BookingExpiredEvent
}

func (p *recordingPublisher) BookingConfirmed(_ context.Context, ev queue.BookingConfirmedEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirmed = append(p.confirmed, ev)
}

func (p *recordingPublisher) BookingExpired(_ context.Context, ev queue.BookingExpiredEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expired = append(p.expired, ev)
}
