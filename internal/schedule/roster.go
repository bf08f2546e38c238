package schedule

import "time"

// Staff is the roster identity used for working-day resolution.
type Staff struct {
	ID   int64
	Name string
}

// Shift is either recurring on a weekday or pinned to a specific date.
type Shift struct {
	StaffID   int64
	Recurring bool
	Weekday   time.Weekday
	Date      time.Time
}

// Absence removes a staff member from the roster for one date.
type Absence struct {
	StaffID int64
	Date    time.Time
	Type    string
}

// Matches reports whether the shift applies to date.
func (s Shift) Matches(date time.Time) bool {
	if s.Recurring {
		return s.Weekday == date.Weekday()
	}
	return SameDate(s.Date, date)
}

// SameDate compares calendar dates, ignoring time of day.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// WorkingSet returns the ids of staff with a shift on date and no absence that day.
func WorkingSet(date time.Time, shifts []Shift, absences []Absence) map[int64]bool {
	set := make(map[int64]bool)
	for _, sh := range shifts {
		if sh.Matches(date) {
			set[sh.StaffID] = true
		}
	}
	for _, ab := range absences {
		if SameDate(ab.Date, date) {
			delete(set, ab.StaffID)
		}
	}
	return set
}

// WorkingStaff returns the members of staff eligible for bookings on date,
// in their original order.
func WorkingStaff(date time.Time, staff []Staff, shifts []Shift, absences []Absence) []Staff {
	set := WorkingSet(date, shifts, absences)
	out := make([]Staff, 0, len(set))
	for _, s := range staff {
		if set[s.ID] {
			out = append(out, s)
		}
	}
	return out
}
