package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ntkiet1912/cifastar-booking-engine/internal/model"
)

func TestDayTypeOf(t *testing.T) {
	// 2025-01-03 is a Friday.
	friday := time.Date(2025, 1, 3, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, model.DayTypeWeekday, DayTypeOf(friday))
	assert.Equal(t, model.DayTypeWeekend, DayTypeOf(friday.AddDate(0, 0, 1)))
	assert.Equal(t, model.DayTypeWeekend, DayTypeOf(friday.AddDate(0, 0, 2)))
	assert.Equal(t, model.DayTypeWeekday, DayTypeOf(friday.AddDate(0, 0, 3)))
}

func TestTimeSlotOf(t *testing.T) {
	cases := []struct {
		hour, minute int
		want         string
	}{
		{5, 59, model.TimeSlotLateNight},
		{6, 0, model.TimeSlotMorning},
		{11, 59, model.TimeSlotMorning},
		{12, 0, model.TimeSlotAfternoon},
		{17, 59, model.TimeSlotAfternoon},
		{18, 0, model.TimeSlotEvening},
		{22, 59, model.TimeSlotEvening},
		{23, 0, model.TimeSlotLateNight},
		{23, 30, model.TimeSlotLateNight},
		{0, 0, model.TimeSlotLateNight},
		{3, 15, model.TimeSlotLateNight},
	}
	for _, tc := range cases {
		at := time.Date(2025, 1, 4, tc.hour, tc.minute, 0, 0, time.UTC)
		assert.Equal(t, tc.want, TimeSlotOf(at), "%02d:%02d", tc.hour, tc.minute)
	}
}

func TestPriceMissingTableEntry(t *testing.T) {
	f := newFixture(t)
	screening := model.Screening{ID: 2, StartsAt: screeningStart.AddDate(0, 0, 2)} // Monday evening, unpriced

	_, err := f.pricing.Price(context.Background(), &screening, []uint64{101}, nil, testCustomerID, 0)
	var priceErr *PriceNotFoundError
	require.ErrorAs(t, err, &priceErr)
	assert.Equal(t, model.SeatTypeStandard, priceErr.SeatType)
	assert.Equal(t, model.DayTypeWeekday, priceErr.DayType)
	assert.Equal(t, model.TimeSlotEvening, priceErr.TimeSlot)
}

func TestPriceCombosDropsZeroQuantity(t *testing.T) {
	f := newFixture(t)
	lineItems, subtotal, err := f.pricing.PriceCombos(context.Background(), []ComboSelection{
		{ComboID: 1, Quantity: 0},
		{ComboID: 1, Quantity: 3},
	})
	require.NoError(t, err)
	require.Len(t, lineItems, 1)
	assert.Equal(t, uint32(3), lineItems[0].Quantity)
	assert.Equal(t, int64(150_000), subtotal)
}

func TestPriceCombosUnknownOrInactive(t *testing.T) {
	f := newFixture(t)
	f.backend.addCombo(model.Combo{ID: 2, Name: "Retired", UnitPrice: 10_000, IsActive: false})
	ctx := context.Background()

	_, _, err := f.pricing.PriceCombos(ctx, []ComboSelection{{ComboID: 99, Quantity: 1}})
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = f.pricing.PriceCombos(ctx, []ComboSelection{{ComboID: 2, Quantity: 1}})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedemptionBounds(t *testing.T) {
	f := newFixture(t)
	screening := model.Screening{ID: testScreeningID, StartsAt: screeningStart}
	ctx := context.Background()
	seatIDs := []uint64{101, 102} // 200k subtotal, cap 100k, balance 80k

	// Within both bounds.
	breakdown, err := f.pricing.Price(ctx, &screening, seatIDs, nil, testCustomerID, 80_000)
	require.NoError(t, err)
	assert.Equal(t, int64(120_000), breakdown.Total)

	// Above the balance.
	_, err = f.pricing.Price(ctx, &screening, seatIDs, nil, testCustomerID, 90_000)
	var redeemErr *InvalidRedemptionError
	require.ErrorAs(t, err, &redeemErr)
	assert.Equal(t, int64(80_000), redeemErr.Available)

	// Above the cap, even with enough balance.
	f.backend.setBalance(testCustomerID, 500_000)
	_, err = f.pricing.Price(ctx, &screening, seatIDs, nil, testCustomerID, 150_000)
	require.ErrorAs(t, err, &redeemErr)
	assert.Equal(t, int64(100_000), redeemErr.Cap)

	// Negative requests are rejected outright.
	_, err = f.pricing.Price(ctx, &screening, seatIDs, nil, testCustomerID, -1)
	assert.ErrorAs(t, err, &redeemErr)
}

func TestPriceEmptySelection(t *testing.T) {
	f := newFixture(t)
	screening := model.Screening{ID: testScreeningID, StartsAt: screeningStart}
	_, err := f.pricing.Price(context.Background(), &screening, nil, nil, testCustomerID, 0)
	assert.ErrorIs(t, err, ErrEmptySelection)
}
