package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"salonbook/internal/domain"
	"salonbook/internal/models"

	"github.com/rs/zerolog"
)

// recoveryInterval is how long the primary stays benched after a failure.
const recoveryInterval = time.Minute

// FailoverDraftRepository serves drafts from Redis and switches to memory
// while Redis is unreachable.
type FailoverDraftRepository struct {
	primary  domain.DraftRepository
	fallback domain.DraftRepository
	logger   *zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverDraftRepository(primary, fallback domain.DraftRepository, logger *zerolog.Logger) *FailoverDraftRepository {
	return &FailoverDraftRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// usePrimary reports whether the next call should go to the primary. After
// recoveryInterval a single probe is let through.
func (r *FailoverDraftRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.lastCheck) > recoveryInterval {
		r.lastCheck = time.Now()
		return true
	}
	return false
}

func (r *FailoverDraftRepository) primaryResult(err error) bool {
	if err == nil {
		if r.isDown.CompareAndSwap(true, false) {
			r.logger.Info().Msg("Primary draft repository recovered")
		}
		return true
	}
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("Primary draft repository failed, falling back to memory")
	}
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
	return false
}

// IsDegraded reports whether calls are currently served from memory.
func (r *FailoverDraftRepository) IsDegraded() bool {
	return r.isDown.Load()
}

func (r *FailoverDraftRepository) GetDraft(ctx context.Context, sessionID string) (*models.BookingDraft, error) {
	if r.usePrimary() {
		draft, err := r.primary.GetDraft(ctx, sessionID)
		if r.primaryResult(err) {
			return draft, nil
		}
	}
	return r.fallback.GetDraft(ctx, sessionID)
}

func (r *FailoverDraftRepository) SaveDraft(ctx context.Context, draft *models.BookingDraft) error {
	if r.usePrimary() {
		if r.primaryResult(r.primary.SaveDraft(ctx, draft)) {
			return nil
		}
	}
	return r.fallback.SaveDraft(ctx, draft)
}

func (r *FailoverDraftRepository) DeleteDraft(ctx context.Context, sessionID string) error {
	// the draft may live in either store
	_ = r.fallback.DeleteDraft(ctx, sessionID)
	if r.usePrimary() {
		if r.primaryResult(r.primary.DeleteDraft(ctx, sessionID)) {
			return nil
		}
	}
	return nil
}

func (r *FailoverDraftRepository) CheckRateLimit(ctx context.Context, sessionID string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, sessionID, limit, window)
		if r.primaryResult(err) {
			return allowed, nil
		}
	}
	return r.fallback.CheckRateLimit(ctx, sessionID, limit, window)
}
