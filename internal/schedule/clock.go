// Package schedule holds the appointment slot logic: wall-clock arithmetic,
// per-staff overlap checks, back-to-back sequencing of several services and
// working-day resolution for staff rosters. Everything here is pure and
// operates on data that callers have already loaded.
package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MinutesPerDay is the length of a calendar day in minutes.
const MinutesPerDay = 24 * 60

// ErrInvalidClock is returned when a time label is not a valid "HH:MM" value.
var ErrInvalidClock = errors.New("invalid clock value")

// Clock is a time of day expressed in minutes since midnight.
// Values produced by Add may exceed MinutesPerDay; they still compare correctly
// and String wraps them like a wall clock.
type Clock int

// ParseClock converts a zero-padded "HH:MM" label into a Clock.
func ParseClock(s string) (Clock, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || hh == "" || mm == "" || strings.Contains(mm, ":") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}

	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}

	return Clock(h*60 + m), nil
}

// MustClock is ParseClock for constants. It panics on malformed input.
func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ClockOf returns the time of day of t in t's location.
func ClockOf(t time.Time) Clock {
	return Clock(t.Hour()*60 + t.Minute())
}

// Minutes returns the number of minutes since midnight.
func (c Clock) Minutes() int {
	return int(c)
}

// Add returns c shifted by d minutes. The result is not wrapped at midnight.
func (c Clock) Add(d int) Clock {
	return c + Clock(d)
}

// String formats the clock as "HH:MM", rolling hours over at midnight.
func (c Clock) String() string {
	m := int(c) % MinutesPerDay
	if m < 0 {
		m += MinutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// On places the clock on the calendar day of date as a wall-clock time in
// date's location, so "10:00" stays 10:00 on days the offset changes.
// Clocks past 24:00 land on the following days.
func (c Clock) On(date time.Time) time.Time {
	y, mo, d := date.Date()
	return time.Date(y, mo, d, int(c)/60, int(c)%60, 0, 0, date.Location())
}

// MarshalText implements encoding.TextMarshaler.
func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Clock) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// TimeToMinutes converts an "HH:MM" label to minutes since midnight.
func TimeToMinutes(label string) (int, error) {
	c, err := ParseClock(label)
	if err != nil {
		return 0, err
	}
	return c.Minutes(), nil
}

// AddMinutes returns the "HH:MM" label duration minutes after label.
func AddMinutes(label string, duration int) (string, error) {
	c, err := ParseClock(label)
	if err != nil {
		return "", err
	}
	return c.Add(duration).String(), nil
}
