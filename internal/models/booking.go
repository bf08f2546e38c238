package models

import (
	"time"

	"salonbook/internal/pricing"
	"salonbook/internal/schedule"
)

// Booking is one service instance in a salon appointment. Services booked
// together in one checkout share a GroupID and run back-to-back.
type Booking struct {
	ID          int64         `json:"id"`
	GroupID     string        `json:"group_id"`
	InstanceID  string        `json:"instance_id"`
	ClientID    int64         `json:"client_id"`
	ClientName  string        `json:"client_name"`
	Phone       string        `json:"phone"`
	ServiceID   int64         `json:"service_id"`
	ServiceName string        `json:"service_name"`
	StaffID     int64         `json:"staff_id"`
	StaffName   string        `json:"staff_name"`
	Start       time.Time     `json:"start"`
	End         time.Time     `json:"end"`
	Duration    int           `json:"duration"` // minutes
	Price       pricing.Price `json:"price"`
	Status      string        `json:"status"` // pending, confirmed, checked-in, completed, cancelled
	Notes       string        `json:"notes"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Version     int64         `json:"version"`
}

// IsActive reports whether the booking still occupies its staff member.
func (b *Booking) IsActive() bool {
	return b.Status != StatusCancelled
}

// Entry projects the booking onto the time-of-day grid of its own start
// day in loc.
func (b *Booking) Entry(loc *time.Location) schedule.Booking {
	return b.EntryOn(b.Start.In(loc))
}

// EntryOn projects the booking onto the calendar day of day, in day's
// location. A booking carried over from the previous evening is clipped to
// start at 00:00, so it still blocks the early part of the day.
func (b *Booking) EntryOn(day time.Time) schedule.Booking {
	local := b.Start.In(day.Location())
	duration := b.Duration
	if duration <= 0 && b.End.After(b.Start) {
		duration = int(b.End.Sub(b.Start) / time.Minute)
	}

	start := int(schedule.ClockOf(local)) + calendarDays(day, local)*schedule.MinutesPerDay
	end := start + duration
	if start < 0 {
		start = 0
	}
	if end < start {
		end = start
	}
	return schedule.Booking{
		ID:       b.ID,
		StaffID:  b.StaffID,
		Start:    schedule.Clock(start),
		End:      schedule.Clock(end),
		Duration: end - start,
		Status:   b.Status,
	}
}

// calendarDays is the number of calendar dates from a to b.
func calendarDays(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours()) / 24
}

// Entries converts the bookings of day for the availability checker.
func Entries(bookings []*Booking, day time.Time) []schedule.Booking {
	out := make([]schedule.Booking, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, b.EntryOn(day))
	}
	return out
}
