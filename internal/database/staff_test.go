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

func TestStaffRoster(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	ana := &models.Staff{Name: "Ana", IsActive: true, SortOrder: 2}
	ben := &models.Staff{Name: "Ben", IsActive: true, SortOrder: 1, Phone: "0700"}
	gone := &models.Staff{Name: "Gone", IsActive: true}
	for _, s := range []*models.Staff{ana, ben, gone} {
		require.NoError(t, db.CreateStaff(ctx, s))
	}
	require.NoError(t, db.DeactivateStaff(ctx, gone.ID))

	active, err := db.GetActiveStaff(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "Ben", active[0].Name)
	assert.Equal(t, "0700", active[0].Phone)

	got, err := db.GetStaff(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Name)
	_, err = db.GetStaff(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)

	friday := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	t.Run("Shifts", func(t *testing.T) {
		require.NoError(t, db.CreateShift(ctx, &models.Shift{StaffID: ana.ID, Recurring: true, Weekday: time.Friday}))
		require.NoError(t, db.CreateShift(ctx, &models.Shift{StaffID: ben.ID, Date: friday}))
		require.NoError(t, db.CreateShift(ctx, &models.Shift{StaffID: ben.ID, Recurring: true, Weekday: time.Monday}))
		assert.Error(t, db.CreateShift(ctx, &models.Shift{StaffID: ben.ID}))

		shifts, err := db.GetShiftsForDate(ctx, friday)
		require.NoError(t, err)
		require.Len(t, shifts, 2)
		assert.True(t, shifts[0].Recurring)
		assert.Equal(t, time.Friday, shifts[0].Weekday)
		assert.Equal(t, friday, shifts[1].Date)

		saturday, err := db.GetShiftsForDate(ctx, friday.AddDate(0, 0, 1))
		require.NoError(t, err)
		assert.Empty(t, saturday)
	})

	t.Run("Absences", func(t *testing.T) {
		a := &models.Absence{StaffID: ana.ID, Date: friday}
		require.NoError(t, db.CreateAbsence(ctx, a))
		assert.Equal(t, "holiday", a.Type)

		absences, err := db.GetAbsencesForDate(ctx, friday)
		require.NoError(t, err)
		require.Len(t, absences, 1)
		assert.Equal(t, ana.ID, absences[0].StaffID)

		require.NoError(t, db.DeleteAbsence(ctx, a.ID))
		absences, err = db.GetAbsencesForDate(ctx, friday)
		require.NoError(t, err)
		assert.Empty(t, absences)
	})
}

func TestSyncStaff(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SyncStaff(ctx, []models.Staff{
		{ID: 7, Name: "Ana", SortOrder: 1, IsActive: true},
		{ID: 9, Name: "Ben", SortOrder: 2, IsActive: true},
	}))
	require.NoError(t, db.SyncStaff(ctx, []models.Staff{
		{ID: 9, Name: "Benjamin", Phone: "0700", SortOrder: 0, IsActive: true},
		{ID: 7, Name: "Ana", SortOrder: 1, IsActive: false},
	}))

	active, err := db.GetActiveStaff(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, int64(9), active[0].ID)
	assert.Equal(t, "Benjamin", active[0].Name)
	assert.Equal(t, "0700", active[0].Phone)

	friday := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.CreateShift(ctx, &models.Shift{StaffID: 9, Date: friday}))
	require.NoError(t, db.ReplaceRecurringShifts(ctx, 9, []time.Weekday{time.Friday, time.Saturday}))
	require.NoError(t, db.ReplaceRecurringShifts(ctx, 9, []time.Weekday{time.Friday}))

	shifts, err := db.GetShiftsForDate(ctx, friday)
	require.NoError(t, err)
	assert.Len(t, shifts, 2, "weekly shift plus the dated one")

	saturday, err := db.GetShiftsForDate(ctx, friday.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, saturday)
}

func TestServicesCatalogue(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	catalogue := []models.Service{
		{ID: 10, Name: "Colour", Duration: 90, Price: pricing.Parse("POA"), SortOrder: 2, IsActive: true},
		{ID: 11, Name: "Cut", Duration: 30, Price: pricing.Parse("30"), SortOrder: 1, IsActive: true},
	}
	require.NoError(t, db.SyncServices(ctx, catalogue))

	cached := db.CachedServices()
	require.Len(t, cached, 2)
	assert.Equal(t, "Cut", cached[0].Name)

	// re-sync updates in place
	catalogue[1].Price = pricing.Parse("35+")
	require.NoError(t, db.SyncServices(ctx, catalogue))

	active, err := db.GetActiveServices(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "35+", active[0].Price.String())
	assert.True(t, active[1].Price.IsPOA())

	extra := &models.Service{Name: "Blow dry", Duration: 20, Price: pricing.Parse("15"), IsActive: true, SortOrder: 3}
	require.NoError(t, db.CreateService(ctx, extra))
	got, err := db.GetService(ctx, extra.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, got.Duration)

	require.NoError(t, db.DeactivateService(ctx, extra.ID))
	// cache was dropped, so this reads the row again
	got, err = db.GetService(ctx, extra.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	_, err = db.GetService(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClients(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	c := &models.Client{Name: "Jo", Phone: "+44 7000"}
	require.NoError(t, db.CreateClient(ctx, c))

	byPhone, err := db.GetClientByPhone(ctx, "+44 7000")
	require.NoError(t, err)
	assert.Equal(t, c.ID, byPhone.ID)

	c.Email = "jo@example.com"
	require.NoError(t, db.UpdateClient(ctx, c))
	got, err := db.GetClient(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "jo@example.com", got.Email)

	_, err = db.GetClientByPhone(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	b := newBooking(1, "10:00", 30)
	b.ClientID = c.ID
	require.NoError(t, db.CreateBookingsWithLock(ctx, []*models.Booking{b}))
	history, err := db.GetClientBookings(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
