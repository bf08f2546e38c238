package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"salonbook/internal/domain"
	"salonbook/internal/export"
	"salonbook/internal/models"
	"salonbook/internal/pricing"
	"salonbook/internal/service"
)

const maxBodyBytes = 1 << 20

func (s *HTTPServer) parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: date is required", service.ErrInvalidRequest)
	}
	day, err := time.ParseInLocation(dateLayout, raw, s.bookings.Location())
	if err != nil {
		return time.Time{}, errBadDate
	}
	return day, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body", service.ErrInvalidRequest)
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", service.ErrInvalidRequest, name)
	}
	return id, nil
}

func queryInt(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, fmt.Errorf("%w: %s is required", service.ErrInvalidRequest, name)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", service.ErrInvalidRequest, name)
	}
	return v, nil
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"slots": s.bookings.CandidateSlots()}
	if raw := r.URL.Query().Get("date"); raw != "" {
		day, err := s.parseDate(raw)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		resp["date"] = day.Format(dateLayout)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleStaff(w http.ResponseWriter, r *http.Request) {
	staff, err := s.catalog.Staff(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"staff": nonNil(staff)})
}

func (s *HTTPServer) handleWorkingStaff(w http.ResponseWriter, r *http.Request) {
	day, err := s.parseDate(r.URL.Query().Get("date"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	staff, err := s.bookings.WorkingStaff(r.Context(), day)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": day.Format(dateLayout), "staff": nonNil(staff)})
}

type shiftRequest struct {
	Date string `json:"date"`
}

func (s *HTTPServer) handleAddShift(w http.ResponseWriter, r *http.Request) {
	staffID, err := pathID(r, "id")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	var body shiftRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	day, err := s.parseDate(body.Date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	shift, err := s.catalog.AddShift(r.Context(), staffID, day)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, shift)
}

func (s *HTTPServer) handleRemoveShift(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "shift")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if err := s.catalog.RemoveShift(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type absenceRequest struct {
	Date string `json:"date"`
	Type string `json:"type"`
	Note string `json:"note"`
}

func (s *HTTPServer) handleAddAbsence(w http.ResponseWriter, r *http.Request) {
	staffID, err := pathID(r, "id")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	var body absenceRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	day, err := s.parseDate(body.Date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	absence := &models.Absence{StaffID: staffID, Date: day, Type: body.Type, Note: body.Note}
	if err := s.catalog.AddAbsence(r.Context(), absence); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, absence)
}

func (s *HTTPServer) handleRemoveAbsence(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "absence")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if err := s.catalog.RemoveAbsence(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type availabilityRequest struct {
	Date     string                  `json:"date"`
	Services []domain.ServiceRequest `json:"services"`
}

func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	var body availabilityRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	day, err := s.parseDate(body.Date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if len(body.Services) == 0 {
		s.writeServiceError(w, r, fmt.Errorf("%w: services is required", service.ErrInvalidRequest))
		return
	}

	starts, err := s.bookings.AvailableStartTimes(r.Context(), day, body.Services)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.Availability{Date: day, Starts: nonNil(starts)})
}

func (s *HTTPServer) handleCheckSlot(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	day, err := s.parseDate(q.Get("date"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	staffID, err := queryInt(r, "staff_id")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	duration, err := queryInt(r, "duration")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	start := strings.TrimSpace(q.Get("time"))
	ok, err := s.bookings.CheckSlot(r.Context(), day, start, staffID, int(duration))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":      day.Format(dateLayout),
		"time":      start,
		"staff_id":  staffID,
		"duration":  duration,
		"available": ok,
	})
}

type createBookingRequest struct {
	Date       string                  `json:"date"`
	Start      string                  `json:"start"`
	ClientID   int64                   `json:"client_id"`
	ClientName string                  `json:"client_name"`
	Phone      string                  `json:"phone"`
	Notes      string                  `json:"notes"`
	Services   []domain.ServiceRequest `json:"services"`
}

type bookingGroupResponse struct {
	GroupID  string            `json:"group_id"`
	Quote    string            `json:"quote"`
	Bookings []*models.Booking `json:"bookings"`
}

func groupResponse(bookings []*models.Booking) bookingGroupResponse {
	prices := make([]pricing.Price, 0, len(bookings))
	for _, b := range bookings {
		prices = append(prices, b.Price)
	}
	resp := bookingGroupResponse{Quote: pricing.QuoteOf(prices).Label(), Bookings: bookings}
	if len(bookings) > 0 {
		resp.GroupID = bookings[0].GroupID
	}
	return resp
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var body createBookingRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	day, err := s.parseDate(body.Date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	bookings, err := s.bookings.CreateBooking(r.Context(), domain.CreateBookingRequest{
		Date:     day,
		Start:    body.Start,
		ClientID: body.ClientID,
		Name:     body.ClientName,
		Phone:    body.Phone,
		Notes:    body.Notes,
		Services: body.Services,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, groupResponse(bookings))
}

func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	day, err := s.parseDate(r.URL.Query().Get("date"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	bookings, err := s.bookings.GetBookingsForDay(r.Context(), day)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": day.Format(dateLayout), "bookings": nonNil(bookings)})
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	booking, err := s.bookings.GetBooking(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

type moveBookingRequest struct {
	Version int64  `json:"version"`
	Date    string `json:"date"`
	Start   string `json:"start"`
	StaffID int64  `json:"staff_id"`
}

func (s *HTTPServer) handleMoveBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	var body moveBookingRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if body.Version <= 0 {
		s.writeServiceError(w, r, fmt.Errorf("%w: version is required", service.ErrInvalidRequest))
		return
	}
	day, err := s.parseDate(body.Date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	moved, err := s.bookings.RescheduleBooking(r.Context(), id, body.Version, day, body.Start, body.StaffID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, moved)
}

type bookingStatusRequest struct {
	Version int64  `json:"version"`
	Status  string `json:"status"`
}

func (s *HTTPServer) handleBookingStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	var body bookingStatusRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if body.Version <= 0 {
		s.writeServiceError(w, r, fmt.Errorf("%w: version is required", service.ErrInvalidRequest))
		return
	}

	if err := s.bookings.ChangeStatus(r.Context(), id, body.Version, body.Status); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	booking, err := s.bookings.GetBooking(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// allowDraft applies the per-session limit to draft edits.
func (s *HTTPServer) allowDraft(w http.ResponseWriter, r *http.Request) (string, bool) {
	sessionID := strings.TrimSpace(r.PathValue("session"))
	ok, err := s.drafts.Allow(r.Context(), sessionID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return "", false
	}
	if !ok {
		writeError(w, http.StatusTooManyRequests, "too many draft updates")
		return "", false
	}
	return sessionID, true
}

func (s *HTTPServer) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	draft, err := s.drafts.Get(r.Context(), strings.TrimSpace(r.PathValue("session")))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

type draftDateRequest struct {
	Date string `json:"date"`
}

func (s *HTTPServer) handleSetDraftDate(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.allowDraft(w, r)
	if !ok {
		return
	}
	var body draftDateRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	day, err := s.parseDate(body.Date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	draft, err := s.drafts.SetDate(r.Context(), sessionID, day)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (s *HTTPServer) handleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	if err := s.drafts.Clear(r.Context(), strings.TrimSpace(r.PathValue("session"))); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type draftInstanceRequest struct {
	ServiceID int64 `json:"service_id"`
}

func (s *HTTPServer) handleAddDraftInstance(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.allowDraft(w, r)
	if !ok {
		return
	}
	var body draftInstanceRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	draft, err := s.drafts.AddService(r.Context(), sessionID, body.ServiceID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (s *HTTPServer) handleRemoveDraftInstance(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.allowDraft(w, r)
	if !ok {
		return
	}
	draft, err := s.drafts.RemoveInstance(r.Context(), sessionID, r.PathValue("instance"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

type draftAssignRequest struct {
	InstanceID string `json:"instance_id"`
	StaffID    int64  `json:"staff_id"`
}

func (s *HTTPServer) handleAssignDraftStaff(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.allowDraft(w, r)
	if !ok {
		return
	}
	var body draftAssignRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	draft, err := s.drafts.AssignStaff(r.Context(), sessionID, body.InstanceID, body.StaffID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

// loadDraft returns the session draft once it has a date and services.
func (s *HTTPServer) loadDraft(r *http.Request) (*models.BookingDraft, error) {
	draft, err := s.drafts.Get(r.Context(), strings.TrimSpace(r.PathValue("session")))
	if err != nil {
		return nil, err
	}
	if draft.Date.IsZero() {
		return nil, fmt.Errorf("%w: draft has no date", service.ErrInvalidRequest)
	}
	if len(draft.Instances) == 0 {
		return nil, fmt.Errorf("%w: draft has no services", service.ErrInvalidRequest)
	}
	return draft, nil
}

func (s *HTTPServer) handleDraftAvailability(w http.ResponseWriter, r *http.Request) {
	draft, err := s.loadDraft(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	starts, err := s.bookings.AvailableStartTimes(r.Context(), draft.Date, service.Requests(draft))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.Availability{Date: draft.Date, Starts: nonNil(starts)})
}

type draftCheckoutRequest struct {
	Start      string `json:"start"`
	ClientID   int64  `json:"client_id"`
	ClientName string `json:"client_name"`
	Phone      string `json:"phone"`
	Notes      string `json:"notes"`
}

// handleDraftCheckout books the draft at the chosen start and discards it.
func (s *HTTPServer) handleDraftCheckout(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.allowDraft(w, r)
	if !ok {
		return
	}
	var body draftCheckoutRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	draft, err := s.loadDraft(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	bookings, err := s.bookings.CreateBooking(r.Context(), domain.CreateBookingRequest{
		Date:     draft.Date,
		Start:    body.Start,
		ClientID: body.ClientID,
		Name:     body.ClientName,
		Phone:    body.Phone,
		Notes:    body.Notes,
		Services: service.Requests(draft),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if err := s.drafts.Clear(r.Context(), sessionID); err != nil {
		s.log.Warn().Err(err).Str("session", sessionID).Msg("failed to clear draft after checkout")
	}
	writeJSON(w, http.StatusCreated, groupResponse(bookings))
}

func (s *HTTPServer) handleServices(w http.ResponseWriter, r *http.Request) {
	services, err := s.catalog.Services(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": nonNil(services)})
}

type quoteRequest struct {
	ServiceIDs []int64 `json:"service_ids"`
}

type quoteResponse struct {
	pricing.Quote
	Label string `json:"label"`
}

func (s *HTTPServer) handleQuote(w http.ResponseWriter, r *http.Request) {
	var body quoteRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if len(body.ServiceIDs) == 0 {
		s.writeServiceError(w, r, fmt.Errorf("%w: service_ids is required", service.ErrInvalidRequest))
		return
	}

	quote, err := s.catalog.Quote(r.Context(), body.ServiceIDs)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quoteResponse{Quote: quote, Label: quote.Label()})
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := s.parseDate(q.Get("from"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	to, err := s.parseDate(q.Get("to"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if to.Before(from) {
		s.writeServiceError(w, r, fmt.Errorf("%w: to is before from", service.ErrInvalidRequest))
		return
	}
	if to.After(from.AddDate(0, 0, export.MaxDays-1)) {
		s.writeServiceError(w, r, fmt.Errorf("more than %d days: %w", export.MaxDays, export.ErrRangeTooLong))
		return
	}

	daily, err := s.bookings.GetDailyBookings(r.Context(), from, to)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	staff, err := s.catalog.Staff(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	f, err := s.exporter.Build(from, to, daily, staff)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(from, to)))
	w.WriteHeader(http.StatusOK)
	if err := f.Write(w); err != nil {
		s.log.Error().Err(err).Msg("failed to stream export")
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
