package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"salonbook/internal/config"
	"salonbook/internal/database"
	"salonbook/internal/domain"
	"salonbook/internal/events"
	"salonbook/internal/metrics"
	"salonbook/internal/models"
	"salonbook/internal/schedule"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type BookingService struct {
	repo         domain.Repository
	eventBus     domain.EventPublisher
	sheetsWorker domain.SyncWorker
	loc          *time.Location
	slots        []schedule.Clock
	closing      schedule.Clock
	logger       *zerolog.Logger
}

func NewBookingService(
	repo domain.Repository,
	eventBus domain.EventPublisher,
	sheetsWorker domain.SyncWorker,
	salon config.SalonConfig,
	logger *zerolog.Logger,
) *BookingService {
	return &BookingService{
		repo:         repo,
		eventBus:     eventBus,
		sheetsWorker: sheetsWorker,
		loc:          salon.Location(),
		slots:        salon.Slots(),
		closing:      salon.ClosingTime(),
		logger:       logger,
	}
}

// Location returns the salon time zone all clock labels refer to.
func (s *BookingService) Location() *time.Location {
	return s.loc
}

// CandidateSlots returns the start time labels of the opening hours grid.
func (s *BookingService) CandidateSlots() []string {
	return schedule.Labels(s.slots)
}

// localDay returns midnight of day's calendar date in the salon zone.
func (s *BookingService) localDay(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

func (s *BookingService) WorkingStaff(ctx context.Context, day time.Time) ([]*models.Staff, error) {
	day = s.localDay(day)

	staff, err := s.repo.GetActiveStaff(ctx)
	if err != nil {
		return nil, err
	}
	shifts, err := s.repo.GetShiftsForDate(ctx, day)
	if err != nil {
		return nil, err
	}
	absences, err := s.repo.GetAbsencesForDate(ctx, day)
	if err != nil {
		return nil, err
	}

	rs, rsh, rab := models.Roster(staff, shifts, absences)
	working := schedule.WorkingStaff(day, rs, rsh, rab)

	byID := make(map[int64]*models.Staff, len(staff))
	for _, st := range staff {
		byID[st.ID] = st
	}
	out := make([]*models.Staff, 0, len(working))
	for _, w := range working {
		out = append(out, byID[w.ID])
	}
	return out, nil
}

// dayEntries loads the bookings of day as clock intervals.
func (s *BookingService) dayEntries(ctx context.Context, day time.Time) ([]schedule.Booking, error) {
	bookings, err := s.repo.GetBookingsForDay(ctx, day)
	if err != nil {
		return nil, err
	}
	return models.Entries(bookings, s.localDay(day)), nil
}

// resolve turns requested lines into scheduler instances using catalogue
// durations. Lines without an instance id get one.
func (s *BookingService) resolve(ctx context.Context, reqs []domain.ServiceRequest) (
	[]schedule.ServiceInstance, map[string]int64, map[string]*models.Service, error,
) {
	instances := make([]schedule.ServiceInstance, 0, len(reqs))
	assign := make(map[string]int64, len(reqs))
	services := make(map[string]*models.Service, len(reqs))

	for i, r := range reqs {
		svc, err := s.repo.GetService(ctx, r.ServiceID)
		if err != nil {
			return nil, nil, nil, err
		}
		if !svc.IsActive {
			return nil, nil, nil, fmt.Errorf("service %d: %w", svc.ID, ErrInactive)
		}

		id := r.InstanceID
		if id == "" {
			id = strconv.Itoa(i)
		}
		if _, dup := services[id]; dup {
			return nil, nil, nil, fmt.Errorf("%w: duplicate instance id %q", ErrInvalidRequest, id)
		}

		instances = append(instances, schedule.ServiceInstance{InstanceID: id, ServiceID: svc.ID, Duration: svc.Duration})
		if r.StaffID != 0 {
			assign[id] = r.StaffID
		}
		services[id] = svc
	}
	return instances, assign, services, nil
}

// AvailableStartTimes returns the labels of every start at which the services
// can run back-to-back with their assigned staff and finish by closing.
func (s *BookingService) AvailableStartTimes(ctx context.Context, day time.Time, reqs []domain.ServiceRequest) ([]string, error) {
	day = s.localDay(day)

	instances, assign, _, err := s.resolve(ctx, reqs)
	if err != nil {
		return nil, err
	}
	existing, err := s.dayEntries(ctx, day)
	if err != nil {
		return nil, err
	}

	starts := schedule.AvailableStartTimes(instances, assign, existing, s.slots)
	starts = schedule.WithinClosing(starts, instances, s.closing)

	metrics.ObserveAvailability(len(starts))
	s.logger.Debug().
		Str("date", day.Format("2006-01-02")).
		Int("services", len(instances)).
		Int("starts", len(starts)).
		Msg("Availability computed")

	return schedule.Labels(starts), nil
}

// CheckSlot reports whether staffID is free for duration minutes from start.
func (s *BookingService) CheckSlot(ctx context.Context, day time.Time, start string, staffID int64, duration int) (bool, error) {
	clock, err := schedule.ParseClock(start)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if duration <= 0 {
		return false, fmt.Errorf("%w: duration must be positive", ErrInvalidRequest)
	}
	existing, err := s.dayEntries(ctx, s.localDay(day))
	if err != nil {
		return false, err
	}
	return schedule.IsSlotAvailable(clock, staffID, existing, duration), nil
}

// checkHours rejects starts off the opening grid or sequences running past closing.
func (s *BookingService) checkHours(start schedule.Clock, totalDuration int) error {
	if len(s.slots) == 0 || start < s.slots[0] || start > s.slots[len(s.slots)-1] {
		return fmt.Errorf("start %s: %w", start, ErrOutsideOpeningHours)
	}
	if start.Add(totalDuration) > s.closing {
		return fmt.Errorf("sequence from %s ends after %s: %w", start, s.closing, ErrOutsideOpeningHours)
	}
	return nil
}

func (s *BookingService) resolveClient(ctx context.Context, req domain.CreateBookingRequest) (*models.Client, error) {
	if req.ClientID != 0 {
		return s.repo.GetClient(ctx, req.ClientID)
	}

	name := strings.TrimSpace(req.Name)
	phone := strings.TrimSpace(req.Phone)
	if name == "" {
		return nil, fmt.Errorf("%w: client name is required", ErrInvalidRequest)
	}
	if phone == "" {
		return &models.Client{Name: name}, nil
	}

	client, err := s.repo.GetClientByPhone(ctx, phone)
	if err == nil {
		return client, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	client = &models.Client{Name: name, Phone: phone}
	if err := s.repo.CreateClient(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

func (s *BookingService) staffName(ctx context.Context, staffID int64, cache map[int64]string) (string, error) {
	if staffID == 0 {
		return "", nil
	}
	if name, ok := cache[staffID]; ok {
		return name, nil
	}
	st, err := s.repo.GetStaff(ctx, staffID)
	if err != nil {
		return "", err
	}
	if !st.IsActive {
		return "", fmt.Errorf("staff %d: %w", staffID, ErrInactive)
	}
	cache[staffID] = st.Name
	return st.Name, nil
}

// CreateBooking plans the requested services back-to-back from req.Start and
// stores them as one group. The plan is checked against the current day
// first; the database repeats the overlap check inside its transaction.
func (s *BookingService) CreateBooking(ctx context.Context, req domain.CreateBookingRequest) ([]*models.Booking, error) {
	if len(req.Services) == 0 {
		return nil, fmt.Errorf("%w: no services selected", ErrInvalidRequest)
	}
	if req.Date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrInvalidRequest)
	}
	start, err := schedule.ParseClock(req.Start)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	day := s.localDay(req.Date)

	instances, assign, services, err := s.resolve(ctx, req.Services)
	if err != nil {
		return nil, err
	}
	for _, in := range instances {
		if assign[in.InstanceID] == 0 {
			return nil, fmt.Errorf("%w: service %d has no staff member", ErrInvalidRequest, in.ServiceID)
		}
	}
	if err := s.checkHours(start, schedule.TotalDuration(instances)); err != nil {
		return nil, err
	}

	existing, err := s.dayEntries(ctx, day)
	if err != nil {
		return nil, err
	}
	plan, ok := schedule.PlanSequence(start, instances, assign, existing)
	if !ok {
		metrics.IncConflict("preflight")
		return nil, fmt.Errorf("start %s: %w", start, ErrNoAvailableStart)
	}

	client, err := s.resolveClient(ctx, req)
	if err != nil {
		return nil, err
	}

	names := make(map[int64]string)
	groupID := uuid.NewString()
	bookings := make([]*models.Booking, 0, len(plan))
	for _, p := range plan {
		staffName, err := s.staffName(ctx, p.StaffID, names)
		if err != nil {
			return nil, err
		}
		svc := services[p.InstanceID]
		bookings = append(bookings, &models.Booking{
			GroupID:     groupID,
			InstanceID:  p.InstanceID,
			ClientID:    client.ID,
			ClientName:  client.Name,
			Phone:       client.Phone,
			ServiceID:   svc.ID,
			ServiceName: svc.Name,
			StaffID:     p.StaffID,
			StaffName:   staffName,
			Start:       p.Start.On(day),
			End:         p.End.On(day),
			Duration:    p.Duration,
			Price:       svc.Price,
			Status:      models.StatusPending,
			Notes:       req.Notes,
		})
	}

	if err := s.repo.CreateBookingsWithLock(ctx, bookings); err != nil {
		if errors.Is(err, database.ErrSlotTaken) {
			metrics.IncConflict("commit")
		}
		return nil, err
	}
	metrics.AddBookings(len(bookings))

	s.logger.Info().
		Str("group_id", groupID).
		Str("client", client.Name).
		Str("start", bookings[0].Start.Format(time.RFC3339)).
		Int("services", len(bookings)).
		Msg("Booking created")

	for _, b := range bookings {
		s.publishEvent(events.EventBookingCreated, b)
		s.enqueueSync(ctx, b, models.SyncTaskUpsert)
	}
	return bookings, nil
}

// RescheduleBooking moves one booking to a new start on day. A zero staffID
// keeps the current staff member.
func (s *BookingService) RescheduleBooking(ctx context.Context, id, version int64, day time.Time, start string, staffID int64) (*models.Booking, error) {
	clock, err := schedule.ParseClock(start)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	current, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != models.StatusPending && current.Status != models.StatusConfirmed {
		return nil, fmt.Errorf("booking %d is %s: %w", id, current.Status, ErrInvalidTransition)
	}
	if err := s.checkHours(clock, current.Duration); err != nil {
		return nil, err
	}

	if staffID == 0 {
		staffID = current.StaffID
	}
	staffName, err := s.staffName(ctx, staffID, map[int64]string{})
	if err != nil {
		return nil, err
	}

	moved, err := s.repo.RescheduleBookingWithVersion(ctx, id, version, clock.On(s.localDay(day)), staffID, staffName)
	if err != nil {
		if errors.Is(err, database.ErrSlotTaken) {
			metrics.IncConflict("commit")
		}
		return nil, err
	}

	s.logger.Info().Int64("booking_id", id).Str("start", moved.Start.Format(time.RFC3339)).Msg("Booking rescheduled")
	s.publishEvent(events.EventBookingRescheduled, moved)
	s.enqueueSync(ctx, moved, models.SyncTaskUpsert)
	return moved, nil
}

// ChangeStatus moves a booking along its lifecycle.
func (s *BookingService) ChangeStatus(ctx context.Context, id, version int64, status string) error {
	next := models.NormalizeStatus(status)
	if next == "" {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, status)
	}

	current, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	if !models.CanTransition(current.Status, next) {
		return fmt.Errorf("%s -> %s: %w", current.Status, next, ErrInvalidTransition)
	}

	if err := s.repo.UpdateBookingStatusWithVersion(ctx, id, version, next); err != nil {
		return err
	}

	booking, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Int64("booking_id", id).Msg("Failed to reload booking after status change")
		return nil
	}

	eventType := events.EventBookingStatusChanged
	if next == models.StatusCancelled {
		eventType = events.EventBookingCancelled
	}
	s.publishEvent(eventType, booking)
	s.enqueueSync(ctx, booking, models.SyncTaskStatus)
	return nil
}

func (s *BookingService) Confirm(ctx context.Context, id, version int64) error {
	return s.ChangeStatus(ctx, id, version, models.StatusConfirmed)
}

func (s *BookingService) CheckIn(ctx context.Context, id, version int64) error {
	return s.ChangeStatus(ctx, id, version, models.StatusCheckedIn)
}

func (s *BookingService) Complete(ctx context.Context, id, version int64) error {
	return s.ChangeStatus(ctx, id, version, models.StatusCompleted)
}

func (s *BookingService) Cancel(ctx context.Context, id, version int64) error {
	return s.ChangeStatus(ctx, id, version, models.StatusCancelled)
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return s.repo.GetBooking(ctx, id)
}

func (s *BookingService) GetBookingsForDay(ctx context.Context, day time.Time) ([]*models.Booking, error) {
	return s.repo.GetBookingsForDay(ctx, s.localDay(day))
}

func (s *BookingService) GetDailyBookings(ctx context.Context, start, end time.Time) (map[string][]*models.Booking, error) {
	return s.repo.GetDailyBookings(ctx, s.localDay(start), s.localDay(end))
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:   booking.ID,
		GroupID:     booking.GroupID,
		ClientID:    booking.ClientID,
		ClientName:  booking.ClientName,
		ServiceID:   booking.ServiceID,
		ServiceName: booking.ServiceName,
		StaffID:     booking.StaffID,
		StaffName:   booking.StaffName,
		Status:      booking.Status,
		Start:       booking.Start,
		End:         booking.End,
		Price:       booking.Price.String(),
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}

func (s *BookingService) enqueueSync(ctx context.Context, booking *models.Booking, taskType string) {
	if s.sheetsWorker == nil {
		return
	}

	var status string
	if taskType == models.SyncTaskStatus {
		status = booking.Status
	}

	if err := s.sheetsWorker.EnqueueTask(ctx, taskType, booking.ID, booking, status); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", booking.ID).Str("task", taskType).Msg("sheets enqueue error")
	}
}
