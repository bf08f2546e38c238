package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"salonbook/internal/domain"
	"salonbook/internal/models"
	"salonbook/internal/pricing"

	"github.com/rs/zerolog"
)

// CatalogService caches the active services and staff lists.
type CatalogService struct {
	repo   domain.Repository
	ttl    time.Duration
	logger *zerolog.Logger

	mu        sync.RWMutex
	services  []*models.Service
	staff     []*models.Staff
	expiresAt time.Time
	now       func() time.Time
}

func NewCatalogService(repo domain.Repository, ttl time.Duration, logger *zerolog.Logger) *CatalogService {
	return &CatalogService{
		repo:   repo,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Load seeds the catalogue into the store and refreshes the cache.
func (s *CatalogService) Load(ctx context.Context, services []models.Service) error {
	if err := s.repo.SyncServices(ctx, services); err != nil {
		return err
	}
	s.logger.Info().Int("services", len(services)).Msg("Service catalogue loaded")
	s.Invalidate()
	return nil
}

// LoadRoster seeds staff and replaces their weekly shifts. Entries with a nil
// weekday list keep whatever weekly shifts they already have.
func (s *CatalogService) LoadRoster(ctx context.Context, staff []models.Staff, weekdays map[int64][]time.Weekday) error {
	if err := s.repo.SyncStaff(ctx, staff); err != nil {
		return err
	}
	for _, st := range staff {
		days, ok := weekdays[st.ID]
		if !ok || days == nil {
			continue
		}
		if err := s.repo.ReplaceRecurringShifts(ctx, st.ID, days); err != nil {
			return fmt.Errorf("shifts for staff %d: %w", st.ID, err)
		}
	}
	s.logger.Info().Int("staff", len(staff)).Msg("Staff roster loaded")
	s.Invalidate()
	return nil
}

// AddShift books an extra working day outside the weekly pattern.
func (s *CatalogService) AddShift(ctx context.Context, staffID int64, date time.Time) (*models.Shift, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("%w: shift date is required", ErrInvalidRequest)
	}
	if err := s.activeStaff(ctx, staffID); err != nil {
		return nil, err
	}
	shift := &models.Shift{StaffID: staffID, Date: date}
	if err := s.repo.CreateShift(ctx, shift); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("staff_id", staffID).Str("date", date.Format("2006-01-02")).Msg("Shift added")
	return shift, nil
}

func (s *CatalogService) RemoveShift(ctx context.Context, id int64) error {
	return s.repo.DeleteShift(ctx, id)
}

// AddAbsence takes a staff member off the roster for a whole day.
func (s *CatalogService) AddAbsence(ctx context.Context, absence *models.Absence) error {
	if absence.Date.IsZero() {
		return fmt.Errorf("%w: absence date is required", ErrInvalidRequest)
	}
	if err := s.activeStaff(ctx, absence.StaffID); err != nil {
		return err
	}
	if err := s.repo.CreateAbsence(ctx, absence); err != nil {
		return err
	}
	s.logger.Info().
		Int64("staff_id", absence.StaffID).
		Str("date", absence.Date.Format("2006-01-02")).
		Str("type", absence.Type).
		Msg("Absence recorded")
	return nil
}

func (s *CatalogService) RemoveAbsence(ctx context.Context, id int64) error {
	return s.repo.DeleteAbsence(ctx, id)
}

func (s *CatalogService) activeStaff(ctx context.Context, id int64) error {
	st, err := s.repo.GetStaff(ctx, id)
	if err != nil {
		return err
	}
	if !st.IsActive {
		return fmt.Errorf("staff %d: %w", id, ErrInactive)
	}
	return nil
}

// Invalidate forces the next read to hit the store.
func (s *CatalogService) Invalidate() {
	s.mu.Lock()
	s.expiresAt = time.Time{}
	s.mu.Unlock()
}

func (s *CatalogService) refresh(ctx context.Context) error {
	s.mu.RLock()
	fresh := s.now().Before(s.expiresAt)
	s.mu.RUnlock()
	if fresh {
		return nil
	}

	services, err := s.repo.GetActiveServices(ctx)
	if err != nil {
		return err
	}
	staff, err := s.repo.GetActiveStaff(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.services = services
	s.staff = staff
	s.expiresAt = s.now().Add(s.ttl)
	s.mu.Unlock()
	return nil
}

func (s *CatalogService) Services(ctx context.Context) ([]*models.Service, error) {
	if err := s.refresh(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*models.Service(nil), s.services...), nil
}

func (s *CatalogService) Staff(ctx context.Context) ([]*models.Staff, error) {
	if err := s.refresh(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*models.Staff(nil), s.staff...), nil
}

func (s *CatalogService) Service(ctx context.Context, id int64) (*models.Service, error) {
	return s.repo.GetService(ctx, id)
}

// Quote prices a basket of services. Repeated ids are counted each time.
func (s *CatalogService) Quote(ctx context.Context, serviceIDs []int64) (pricing.Quote, error) {
	prices := make([]pricing.Price, 0, len(serviceIDs))
	for _, id := range serviceIDs {
		svc, err := s.repo.GetService(ctx, id)
		if err != nil {
			return pricing.Quote{}, err
		}
		prices = append(prices, svc.Price)
	}
	return pricing.QuoteOf(prices), nil
}
