package service

import (
	"context"
	"fmt"
	"time"

	"salonbook/internal/config"
	"salonbook/internal/domain"
	"salonbook/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DraftService edits the in-progress service selection of a checkout session.
type DraftService struct {
	drafts domain.DraftRepository
	repo   domain.Repository
	limit  int
	window time.Duration
	logger *zerolog.Logger
}

func NewDraftService(drafts domain.DraftRepository, repo domain.Repository, cfg config.DraftsConfig, logger *zerolog.Logger) *DraftService {
	return &DraftService{
		drafts: drafts,
		repo:   repo,
		limit:  cfg.RateLimitRequests,
		window: time.Duration(cfg.RateLimitWindow) * time.Second,
		logger: logger,
	}
}

// Get returns the session draft, or an empty one.
func (s *DraftService) Get(ctx context.Context, sessionID string) (*models.BookingDraft, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidRequest)
	}
	draft, err := s.drafts.GetDraft(ctx, sessionID)
	if err != nil {
		s.logger.Error().Err(err).Str("session", sessionID).Msg("failed to get draft")
		return nil, err
	}
	if draft == nil {
		draft = &models.BookingDraft{SessionID: sessionID}
	}
	return draft, nil
}

func (s *DraftService) save(ctx context.Context, draft *models.BookingDraft) (*models.BookingDraft, error) {
	draft.UpdatedAt = time.Now()
	if err := s.drafts.SaveDraft(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// SetDate picks the appointment day for the draft.
func (s *DraftService) SetDate(ctx context.Context, sessionID string, date time.Time) (*models.BookingDraft, error) {
	draft, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	draft.Date = date
	return s.save(ctx, draft)
}

// AddService appends a new instance of serviceID. Adding the same service
// twice yields two independent instances.
func (s *DraftService) AddService(ctx context.Context, sessionID string, serviceID int64) (*models.BookingDraft, error) {
	svc, err := s.repo.GetService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if !svc.IsActive {
		return nil, fmt.Errorf("service %d: %w", serviceID, ErrInactive)
	}

	draft, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	draft.Instances = append(draft.Instances, models.DraftInstance{
		InstanceID: uuid.NewString(),
		ServiceID:  svc.ID,
		Duration:   svc.Duration,
	})
	return s.save(ctx, draft)
}

// AssignStaff sets the staff member of one instance; zero unassigns it.
func (s *DraftService) AssignStaff(ctx context.Context, sessionID, instanceID string, staffID int64) (*models.BookingDraft, error) {
	draft, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	i := draft.Find(instanceID)
	if i < 0 {
		return nil, fmt.Errorf("%s: %w", instanceID, ErrUnknownInstance)
	}

	if staffID != 0 {
		st, err := s.repo.GetStaff(ctx, staffID)
		if err != nil {
			return nil, err
		}
		if !st.IsActive {
			return nil, fmt.Errorf("staff %d: %w", staffID, ErrInactive)
		}
	}

	draft.Instances[i].StaffID = staffID
	return s.save(ctx, draft)
}

func (s *DraftService) RemoveInstance(ctx context.Context, sessionID, instanceID string) (*models.BookingDraft, error) {
	draft, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	i := draft.Find(instanceID)
	if i < 0 {
		return nil, fmt.Errorf("%s: %w", instanceID, ErrUnknownInstance)
	}
	draft.Instances = append(draft.Instances[:i], draft.Instances[i+1:]...)
	return s.save(ctx, draft)
}

func (s *DraftService) Clear(ctx context.Context, sessionID string) error {
	return s.drafts.DeleteDraft(ctx, sessionID)
}

// Allow applies the per-session request limit.
func (s *DraftService) Allow(ctx context.Context, sessionID string) (bool, error) {
	return s.drafts.CheckRateLimit(ctx, sessionID, s.limit, s.window)
}

// Requests converts a draft into booking request lines.
func Requests(draft *models.BookingDraft) []domain.ServiceRequest {
	out := make([]domain.ServiceRequest, 0, len(draft.Instances))
	for _, in := range draft.Instances {
		out = append(out, domain.ServiceRequest{InstanceID: in.InstanceID, ServiceID: in.ServiceID, StaffID: in.StaffID})
	}
	return out
}
