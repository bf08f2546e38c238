package database

import (
	"context"
	"testing"
	"time"

	"salonbook/internal/models"
	"salonbook/internal/pricing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDay = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

func at(hhmm string) time.Time {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		panic(err)
	}
	return testDay.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
}

func newBooking(staffID int64, start string, duration int) *models.Booking {
	return &models.Booking{
		GroupID:     "g-" + start,
		InstanceID:  "i-" + start,
		ClientName:  "Jo",
		ServiceID:   1,
		ServiceName: "Cut",
		StaffID:     staffID,
		Start:       at(start),
		Duration:    duration,
		Price:       pricing.Parse("45+"),
	}
}

func TestCreateBookingsWithLock(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	t.Run("InsertsSequence", func(t *testing.T) {
		cut := newBooking(1, "10:00", 30)
		colour := newBooking(2, "10:30", 60)
		colour.GroupID = cut.GroupID

		require.NoError(t, db.CreateBookingsWithLock(ctx, []*models.Booking{cut, colour}))
		assert.NotZero(t, cut.ID)
		assert.Equal(t, int64(1), cut.Version)
		assert.Equal(t, models.StatusPending, cut.Status)
		assert.Equal(t, at("10:30"), cut.End)

		stored, err := db.GetBooking(ctx, colour.ID)
		require.NoError(t, err)
		assert.Equal(t, at("10:30"), stored.Start)
		assert.Equal(t, at("11:30"), stored.End)
		assert.Equal(t, "45+", stored.Price.String())

		group, err := db.GetBookingsByGroup(ctx, cut.GroupID)
		require.NoError(t, err)
		assert.Len(t, group, 2)
	})

	t.Run("BackToBackAllowed", func(t *testing.T) {
		require.NoError(t, db.CreateBookingsWithLock(ctx, []*models.Booking{newBooking(1, "10:30", 15)}))
	})

	t.Run("OverlapRejectedAtomically", func(t *testing.T) {
		free := newBooking(3, "12:00", 30)
		clash := newBooking(2, "11:00", 30)
		err := db.CreateBookingsWithLock(ctx, []*models.Booking{free, clash})
		assert.ErrorIs(t, err, ErrSlotTaken)

		bookings, err := db.GetBookingsForDay(ctx, testDay)
		require.NoError(t, err)
		for _, b := range bookings {
			assert.NotEqual(t, int64(3), b.StaffID, "first instance must be rolled back")
		}
	})

	t.Run("UnassignedNeverConflicts", func(t *testing.T) {
		require.NoError(t, db.CreateBookingsWithLock(ctx, []*models.Booking{newBooking(0, "10:00", 30), newBooking(0, "10:00", 30)}))
	})
}

func TestGetBookingsForDay(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	morning := newBooking(1, "09:00", 45)
	late := newBooking(1, "23:30", 60) // runs into the next day
	require.NoError(t, db.CreateBookingsWithLock(ctx, []*models.Booking{morning, late}))

	cancelled := newBooking(2, "11:00", 30)
	require.NoError(t, db.CreateBookingsWithLock(ctx, []*models.Booking{cancelled}))
	require.NoError(t, db.UpdateBookingStatusWithVersion(ctx, cancelled.ID, 1, models.StatusCancelled))

	today, err := db.GetBookingsForDay(ctx, testDay)
	require.NoError(t, err)
	require.Len(t, today, 2)
	assert.Equal(t, morning.ID, today[0].ID)

	tomorrow, err := db.GetBookingsForDay(ctx, testDay.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, tomorrow, 1)
	assert.Equal(t, late.ID, tomorrow[0].ID)

	// cancelled rows still show up in the history range
	all, err := db.GetBookingsByDateRange(ctx, testDay, testDay)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	daily, err := db.GetDailyBookings(ctx, testDay, testDay.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Len(t, daily["2025-03-14"], 3)
}

func TestCancelledSlotCanBeRebooked(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := newBooking(1, "14:00", 30)
	require.NoError(t, db.CreateBookingsWithLock(ctx, []*models.Booking{first}))
	require.NoError(t, db.UpdateBookingStatusWithVersion(ctx, first.ID, first.Version, models.StatusCancelled))

	assert.NoError(t, db.CreateBookingsWithLock(ctx, []*models.Booking{newBooking(1, "14:00", 30)}))
}

func TestRescheduleBookingWithVersion(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	a := newBooking(1, "10:00", 60)
	b := newBooking(1, "12:00", 30)
	require.NoError(t, db.CreateBookingsWithLock(ctx, []*models.Booking{a, b}))

	t.Run("OverlapsOther", func(t *testing.T) {
		_, err := db.RescheduleBookingWithVersion(ctx, b.ID, 1, at("10:30"), 1, "Ana")
		assert.ErrorIs(t, err, ErrSlotTaken)
	})

	t.Run("OverlapsItselfOnly", func(t *testing.T) {
		moved, err := db.RescheduleBookingWithVersion(ctx, a.ID, 1, at("10:30"), 1, "Ana")
		require.NoError(t, err)
		assert.Equal(t, int64(2), moved.Version)
		assert.Equal(t, at("11:30"), moved.End)
	})

	t.Run("StaleVersion", func(t *testing.T) {
		_, err := db.RescheduleBookingWithVersion(ctx, a.ID, 1, at("15:00"), 1, "Ana")
		assert.ErrorIs(t, err, ErrConcurrentModification)
	})

	t.Run("OtherStaff", func(t *testing.T) {
		moved, err := db.RescheduleBookingWithVersion(ctx, b.ID, 1, at("10:30"), 2, "Ben")
		require.NoError(t, err)
		assert.Equal(t, int64(2), moved.StaffID)
		assert.Equal(t, "Ben", moved.StaffName)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := db.RescheduleBookingWithVersion(ctx, 999, 1, at("10:30"), 2, "Ben")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUpdateStatusAndDelete(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	b := newBooking(1, "10:00", 30)
	require.NoError(t, db.CreateBookingsWithLock(ctx, []*models.Booking{b}))

	require.NoError(t, db.UpdateBookingStatusWithVersion(ctx, b.ID, 1, models.StatusConfirmed))
	assert.ErrorIs(t, db.UpdateBookingStatusWithVersion(ctx, b.ID, 1, models.StatusCheckedIn), ErrConcurrentModification)

	require.NoError(t, db.UpdateBookingNotes(ctx, b.ID, "allergic to ammonia"))
	stored, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, stored.Status)
	assert.Equal(t, "allergic to ammonia", stored.Notes)
	assert.Equal(t, int64(2), stored.Version)

	require.NoError(t, db.DeleteBooking(ctx, b.ID))
	_, err = db.GetBooking(ctx, b.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.DeleteBooking(ctx, b.ID), ErrNotFound)
}
