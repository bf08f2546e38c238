package service

import (
	"context"
	"io"
	"testing"
	"time"

	"salonbook/internal/config"
	"salonbook/internal/database"
	"salonbook/internal/models"
	"salonbook/internal/pricing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockEventBus struct {
	mock.Mock
}

func (m *mockEventBus) PublishJSON(eventType string, payload interface{}) error {
	return m.Called(eventType, payload).Error(0)
}

type mockWorker struct {
	mock.Mock
}

func (m *mockWorker) EnqueueTask(ctx context.Context, taskType string, bookingID int64, booking *models.Booking, status string) error {
	return m.Called(ctx, taskType, bookingID, booking, status).Error(0)
}

var testDay = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC) // пятница

func testSalon() config.SalonConfig {
	return config.SalonConfig{
		Name:     "Test",
		Timezone: "UTC",
		Open:     "09:00",
		LastSlot: "20:30",
		Closing:  "21:00",
		SlotStep: 15,
	}
}

type fixture struct {
	db     *database.DB
	ana    *models.Staff
	ben    *models.Staff
	logger *zerolog.Logger
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, db.SyncServices(ctx, []models.Service{
		{ID: 1, Name: "Cut", Duration: 30, Price: pricing.Parse("30"), IsActive: true},
		{ID: 2, Name: "Colour", Duration: 60, Price: pricing.Parse("45+"), IsActive: true},
		{ID: 3, Name: "Consultation", Duration: 15, Price: pricing.Parse("POA"), IsActive: false},
		{ID: 4, Name: "Bridal", Duration: 90, Price: pricing.Parse("POA"), IsActive: true},
	}))

	ana := &models.Staff{Name: "Ana", IsActive: true, SortOrder: 1}
	ben := &models.Staff{Name: "Ben", IsActive: true, SortOrder: 2}
	require.NoError(t, db.CreateStaff(ctx, ana))
	require.NoError(t, db.CreateStaff(ctx, ben))
	require.NoError(t, db.CreateShift(ctx, &models.Shift{StaffID: ana.ID, Recurring: true, Weekday: time.Friday}))
	require.NoError(t, db.CreateShift(ctx, &models.Shift{StaffID: ben.ID, Recurring: true, Weekday: time.Saturday}))

	return &fixture{db: db, ana: ana, ben: ben, logger: &logger}
}
