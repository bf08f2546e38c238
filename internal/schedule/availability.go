package schedule

// StatusCancelled marks a booking that no longer occupies its interval.
const StatusCancelled = "cancelled"

// Booking is an existing appointment interval on the day being scheduled.
// When End is not after Start the interval is derived from Duration.
type Booking struct {
	ID       int64
	StaffID  int64
	Start    Clock
	End      Clock
	Duration int
	Status   string
}

// Span returns the half-open interval [start, end) occupied by the booking.
func (b Booking) Span() (Clock, Clock) {
	end := b.End
	if end <= b.Start {
		end = b.Start.Add(b.Duration)
	}
	return b.Start, end
}

// Overlaps reports whether the half-open intervals [a, b) and [c, d) intersect.
// Touching endpoints do not overlap.
func Overlaps(a, b, c, d Clock) bool {
	return a < d && c < b
}

// IsSlotAvailable reports whether staffID is free for duration minutes from start,
// given the day's existing bookings. An unassigned staff id is never blocked.
func IsSlotAvailable(start Clock, staffID int64, bookings []Booking, duration int) bool {
	if staffID == 0 || len(bookings) == 0 {
		return true
	}

	end := start.Add(duration)
	for _, b := range bookings {
		if b.StaffID != staffID || b.Status == StatusCancelled {
			continue
		}
		bs, be := b.Span()
		if Overlaps(start, end, bs, be) {
			return false
		}
	}
	return true
}

// Conflicts returns the bookings of staffID that overlap [start, start+duration).
func Conflicts(start Clock, staffID int64, bookings []Booking, duration int) []Booking {
	if staffID == 0 {
		return nil
	}

	end := start.Add(duration)
	var out []Booking
	for _, b := range bookings {
		if b.StaffID != staffID || b.Status == StatusCancelled {
			continue
		}
		bs, be := b.Span()
		if Overlaps(start, end, bs, be) {
			out = append(out, b)
		}
	}
	return out
}
