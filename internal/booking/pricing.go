package booking

import (
	"context"
	"errors"
	"time"

	"github.com/samber/lo"

	"github.com/ntkiet1912/cifastar-booking-engine/internal/model"
	"github.com/ntkiet1912/cifastar-booking-engine/internal/repository"
)

// DayTypeOf derives the pricing day type from a screening's calendar
// date: Saturday and Sunday are WEEKEND, everything else WEEKDAY.
func DayTypeOf(startsAt time.Time) string {
	switch startsAt.Weekday() {
	case time.Saturday, time.Sunday:
		return model.DayTypeWeekend
	default:
		return model.DayTypeWeekday
	}
}

// TimeSlotOf derives the pricing time slot from a screening's start
// time. Slots are half-open intervals over the minute of day:
// MORNING [06:00, 12:00), AFTERNOON [12:00, 18:00), EVENING
// [18:00, 23:00) and LATE_NIGHT [23:00, 06:00), which wraps past
// midnight and therefore needs a wrap-aware containment test instead of
// a plain interval comparison.
func TimeSlotOf(startsAt time.Time) string {
	minute := startsAt.Hour()*60 + startsAt.Minute()
	switch {
	case minute >= 6*60 && minute < 12*60:
		return model.TimeSlotMorning
	case minute >= 12*60 && minute < 18*60:
		return model.TimeSlotAfternoon
	case minute >= 18*60 && minute < 23*60:
		return model.TimeSlotEvening
	default:
		// 23:00-24:00 and 00:00-06:00 both fall into the wrapped slot.
		return model.TimeSlotLateNight
	}
}

// ComboSelection is one requested combo line: the combo product and how
// many units the customer wants.
type ComboSelection struct {
	ComboID  uint64 `json:"combo_id"`
	Quantity uint32 `json:"quantity"`
}

// Breakdown is the priced outcome of a booking request. Discount is
// applied last, after seats and combos are summed, and the total is
// floored at zero.
type Breakdown struct {
	SeatSubtotal  int64                `json:"seat_subtotal"`
	ComboSubtotal int64                `json:"combo_subtotal"`
	Discount      int64                `json:"discount"`
	Total         int64                `json:"total"`
	SeatPrices    map[uint64]int64     `json:"-"`
	Combos        []model.BookingCombo `json:"-"`
	PointsUsed    int64                `json:"-"`
}

// PricingEngine computes booking totals from the price table, the combo
// catalogue and the customer's loyalty balance. It holds no mutable
// state and is safe for concurrent use.
type PricingEngine struct {
	prices  PriceLookup
	combos  ComboCatalog
	seats   SeatCatalog
	loyalty LoyaltyStore

	// maxRedeemFraction bounds the loyalty discount to a fraction of
	// the combined seat + combo subtotal (0.5 means at most half the
	// order can be paid with points).
	maxRedeemFraction float64
}

// NewPricingEngine constructs a PricingEngine.
func NewPricingEngine(prices PriceLookup, combos ComboCatalog, seats SeatCatalog, loyalty LoyaltyStore, maxRedeemFraction float64) *PricingEngine {
	if prices == nil || combos == nil || seats == nil || loyalty == nil {
		panic("nil store passed to NewPricingEngine")
	}
	return &PricingEngine{prices: prices, combos: combos, seats: seats, loyalty: loyalty, maxRedeemFraction: maxRedeemFraction}
}

// Price computes the full breakdown for the given seats, combo
// selections and requested loyalty redemption against a screening.
//
// Per seat it resolves the seat type and looks up the unit price for
// (seatType, dayType, timeSlot); a missing entry is a
// PriceNotFoundError, never a silent zero. Combo quantities must be
// positive. The redemption is validated against both the customer's
// balance and the configured cap; violations are rejected with
// InvalidRedemptionError rather than clamped.
func (p *PricingEngine) Price(ctx context.Context, screening *model.Screening, seatIDs []uint64, selections []ComboSelection, customerID uint64, pointsToRedeem int64) (*Breakdown, error) {
	if len(seatIDs) == 0 {
		return nil, ErrEmptySelection
	}
	dayType := DayTypeOf(screening.StartsAt)
	timeSlot := TimeSlotOf(screening.StartsAt)

	types, err := p.seats.TypesByIDs(ctx, seatIDs)
	if err != nil {
		return nil, err
	}
	seatPrices := make(map[uint64]int64, len(seatIDs))
	var seatSubtotal int64
	for _, id := range seatIDs {
		seatType, ok := types[id]
		if !ok {
			return nil, ErrNotFound
		}
		unit, err := p.prices.UnitPrice(ctx, seatType, dayType, timeSlot)
		if err != nil {
			if errors.Is(err, repository.ErrPriceNotFound) {
				return nil, &PriceNotFoundError{SeatType: seatType, DayType: dayType, TimeSlot: timeSlot}
			}
			return nil, err
		}
		seatPrices[id] = unit
		seatSubtotal += unit
	}

	lineItems, comboSubtotal, err := p.priceCombos(ctx, selections)
	if err != nil {
		return nil, err
	}

	discount, err := p.validateRedemption(ctx, customerID, pointsToRedeem, seatSubtotal+comboSubtotal)
	if err != nil {
		return nil, err
	}

	total := seatSubtotal + comboSubtotal - discount
	if total < 0 {
		total = 0
	}
	return &Breakdown{
		SeatSubtotal:  seatSubtotal,
		ComboSubtotal: comboSubtotal,
		Discount:      discount,
		Total:         total,
		SeatPrices:    seatPrices,
		Combos:        lineItems,
		PointsUsed:    pointsToRedeem,
	}, nil
}

// PriceCombos re-prices only the combo portion, used by updateCombos on
// an existing PENDING booking.
func (p *PricingEngine) PriceCombos(ctx context.Context, selections []ComboSelection) ([]model.BookingCombo, int64, error) {
	return p.priceCombos(ctx, selections)
}

func (p *PricingEngine) priceCombos(ctx context.Context, selections []ComboSelection) ([]model.BookingCombo, int64, error) {
	// Zero-quantity lines are dropped rather than rejected; negative
	// quantities cannot be expressed by the unsigned type.
	selections = lo.Filter(selections, func(s ComboSelection, _ int) bool { return s.Quantity > 0 })
	if len(selections) == 0 {
		return nil, 0, nil
	}
	ids := lo.Map(selections, func(s ComboSelection, _ int) uint64 { return s.ComboID })
	catalogue, err := p.combos.ActiveByIDs(ctx, lo.Uniq(ids))
	if err != nil {
		return nil, 0, err
	}
	lineItems := make([]model.BookingCombo, 0, len(selections))
	var subtotal int64
	for _, sel := range selections {
		combo, ok := catalogue[sel.ComboID]
		if !ok {
			return nil, 0, ErrNotFound
		}
		lineSubtotal := combo.UnitPrice * int64(sel.Quantity)
		lineItems = append(lineItems, model.BookingCombo{
			ComboID:   sel.ComboID,
			Quantity:  sel.Quantity,
			UnitPrice: combo.UnitPrice,
			Subtotal:  lineSubtotal,
		})
		subtotal += lineSubtotal
	}
	return lineItems, subtotal, nil
}

// validateRedemption checks the requested points against the customer's
// balance and the cap and returns the resulting discount (one point is
// worth one currency unit).
func (p *PricingEngine) validateRedemption(ctx context.Context, customerID uint64, points, subtotal int64) (int64, error) {
	if points == 0 {
		return 0, nil
	}
	if points < 0 {
		return 0, &InvalidRedemptionError{Requested: points}
	}
	available, err := p.loyalty.Balance(ctx, customerID)
	if err != nil {
		return 0, err
	}
	maxRedeem := int64(p.maxRedeemFraction * float64(subtotal))
	if points > available || points > maxRedeem {
		return 0, &InvalidRedemptionError{Requested: points, Available: available, Cap: maxRedeem}
	}
	return points, nil
}
