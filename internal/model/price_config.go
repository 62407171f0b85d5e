package model

// Day types derived from a screening's calendar date.
const (
	DayTypeWeekday = "WEEKDAY"
	DayTypeWeekend = "WEEKEND"
)

// Time slots derived from a screening's start time. Slots are half-open
// intervals; LATE_NIGHT spans 23:00-06:00 and wraps past midnight.
const (
	TimeSlotMorning   = "MORNING"
	TimeSlotAfternoon = "AFTERNOON"
	TimeSlotEvening   = "EVENING"
	TimeSlotLateNight = "LATE_NIGHT"
)

// PriceConfig maps (seatType, dayType, timeSlot) to a unit seat price.
// The table is read-only from the engine's perspective; a missing entry
// is a hard pricing error, never a silent zero.
type PriceConfig struct {
	ID        uint64 // price_configs.id
	SeatType  string // price_configs.seat_type
	DayType   string // price_configs.day_type
	TimeSlot  string // price_configs.time_slot
	UnitPrice int64  // price_configs.unit_price
}
