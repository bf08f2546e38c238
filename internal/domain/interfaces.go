package domain

import (
	"context"
	"time"

	"salonbook/internal/models"
	"salonbook/internal/pricing"
)

// Repository is the persistent store, implemented by *database.DB.
type Repository interface {
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	GetBookingsByGroup(ctx context.Context, groupID string) ([]*models.Booking, error)
	GetBookingsForDay(ctx context.Context, day time.Time) ([]*models.Booking, error)
	GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error)
	GetDailyBookings(ctx context.Context, start, end time.Time) (map[string][]*models.Booking, error)
	CreateBookingsWithLock(ctx context.Context, bookings []*models.Booking) error
	RescheduleBookingWithVersion(ctx context.Context, id, version int64, start time.Time, staffID int64, staffName string) (*models.Booking, error)
	UpdateBookingStatusWithVersion(ctx context.Context, id, version int64, status string) error
	DeleteBooking(ctx context.Context, id int64) error

	GetService(ctx context.Context, id int64) (*models.Service, error)
	GetActiveServices(ctx context.Context) ([]*models.Service, error)
	SyncServices(ctx context.Context, services []models.Service) error

	GetStaff(ctx context.Context, id int64) (*models.Staff, error)
	GetActiveStaff(ctx context.Context) ([]*models.Staff, error)
	GetShiftsForDate(ctx context.Context, date time.Time) ([]*models.Shift, error)
	GetAbsencesForDate(ctx context.Context, date time.Time) ([]*models.Absence, error)
	SyncStaff(ctx context.Context, staff []models.Staff) error
	ReplaceRecurringShifts(ctx context.Context, staffID int64, weekdays []time.Weekday) error
	CreateShift(ctx context.Context, shift *models.Shift) error
	DeleteShift(ctx context.Context, id int64) error
	CreateAbsence(ctx context.Context, absence *models.Absence) error
	DeleteAbsence(ctx context.Context, id int64) error

	GetClient(ctx context.Context, id int64) (*models.Client, error)
	GetClientByPhone(ctx context.Context, phone string) (*models.Client, error)
	CreateClient(ctx context.Context, client *models.Client) error
}

// DraftRepository keeps in-progress checkout selections per session.
type DraftRepository interface {
	GetDraft(ctx context.Context, sessionID string) (*models.BookingDraft, error)
	SaveDraft(ctx context.Context, draft *models.BookingDraft) error
	DeleteDraft(ctx context.Context, sessionID string) error
	CheckRateLimit(ctx context.Context, sessionID string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type SheetsWriter interface {
	UpsertBooking(ctx context.Context, booking *models.Booking) error
	UpdateBookingStatus(ctx context.Context, bookingID int64, status string) error
	DeleteBookingRow(ctx context.Context, bookingID int64) error
}

type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType string, bookingID int64, booking *models.Booking, status string) error
}

// ServiceRequest is one service line of a booking request.
type ServiceRequest struct {
	InstanceID string `json:"instance_id"`
	ServiceID  int64  `json:"service_id"`
	StaffID    int64  `json:"staff_id"`
}

type CreateBookingRequest struct {
	Date     time.Time        `json:"date"`
	Start    string           `json:"start"`
	ClientID int64            `json:"client_id"`
	Name     string           `json:"client_name"`
	Phone    string           `json:"phone"`
	Notes    string           `json:"notes"`
	Services []ServiceRequest `json:"services"`
}

type BookingService interface {
	CandidateSlots() []string
	WorkingStaff(ctx context.Context, day time.Time) ([]*models.Staff, error)
	AvailableStartTimes(ctx context.Context, day time.Time, services []ServiceRequest) ([]string, error)
	CheckSlot(ctx context.Context, day time.Time, start string, staffID int64, duration int) (bool, error)
	CreateBooking(ctx context.Context, req CreateBookingRequest) ([]*models.Booking, error)
	RescheduleBooking(ctx context.Context, id, version int64, day time.Time, start string, staffID int64) (*models.Booking, error)
	ChangeStatus(ctx context.Context, id, version int64, status string) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	GetBookingsForDay(ctx context.Context, day time.Time) ([]*models.Booking, error)
	GetDailyBookings(ctx context.Context, start, end time.Time) (map[string][]*models.Booking, error)
	Location() *time.Location
}

type DraftService interface {
	Get(ctx context.Context, sessionID string) (*models.BookingDraft, error)
	SetDate(ctx context.Context, sessionID string, date time.Time) (*models.BookingDraft, error)
	AddService(ctx context.Context, sessionID string, serviceID int64) (*models.BookingDraft, error)
	AssignStaff(ctx context.Context, sessionID, instanceID string, staffID int64) (*models.BookingDraft, error)
	RemoveInstance(ctx context.Context, sessionID, instanceID string) (*models.BookingDraft, error)
	Clear(ctx context.Context, sessionID string) error
	Allow(ctx context.Context, sessionID string) (bool, error)
}

type CatalogService interface {
	Services(ctx context.Context) ([]*models.Service, error)
	Staff(ctx context.Context) ([]*models.Staff, error)
	Service(ctx context.Context, id int64) (*models.Service, error)
	Quote(ctx context.Context, serviceIDs []int64) (pricing.Quote, error)
	AddShift(ctx context.Context, staffID int64, date time.Time) (*models.Shift, error)
	RemoveShift(ctx context.Context, id int64) error
	AddAbsence(ctx context.Context, absence *models.Absence) error
	RemoveAbsence(ctx context.Context, id int64) error
}
