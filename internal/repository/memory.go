package repository

import (
	"context"
	"sync"
	"time"

	"salonbook/internal/models"
)

// MemoryDraftRepository is the in-process draft store used without Redis and
// as the failover target. Expiry slides on reads like the Redis store.
type MemoryDraftRepository struct {
	mu         sync.Mutex
	drafts     map[string]memoryDraft
	rateLimits map[string]*rateLimitEntry
	ttl        time.Duration
	now        func() time.Time
}

type memoryDraft struct {
	data      models.BookingDraft
	expiresAt time.Time
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func NewMemoryDraftRepository(ttl time.Duration) *MemoryDraftRepository {
	return &MemoryDraftRepository{
		drafts:     make(map[string]memoryDraft),
		rateLimits: make(map[string]*rateLimitEntry),
		ttl:        ttl,
		now:        time.Now,
	}
}

func (r *MemoryDraftRepository) GetDraft(_ context.Context, sessionID string) (*models.BookingDraft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.drafts[sessionID]
	if !ok {
		return nil, nil
	}
	now := r.now()
	if r.ttl > 0 && now.After(d.expiresAt) {
		delete(r.drafts, sessionID)
		return nil, nil
	}
	d.expiresAt = now.Add(r.ttl)
	r.drafts[sessionID] = d
	return cloneDraft(&d.data), nil
}

func (r *MemoryDraftRepository) SaveDraft(_ context.Context, draft *models.BookingDraft) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.drafts[draft.SessionID] = memoryDraft{data: *cloneDraft(draft), expiresAt: r.now().Add(r.ttl)}
	return nil
}

func (r *MemoryDraftRepository) DeleteDraft(_ context.Context, sessionID string) error {
	r.mu.Lock()
	delete(r.drafts, sessionID)
	r.mu.Unlock()
	return nil
}

func (r *MemoryDraftRepository) CheckRateLimit(_ context.Context, sessionID string, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, ok := r.rateLimits[sessionID]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.rateLimits[sessionID] = entry
	}
	entry.count++
	return entry.count <= limit, nil
}

// cloneDraft keeps callers from mutating stored instances.
func cloneDraft(d *models.BookingDraft) *models.BookingDraft {
	c := *d
	c.Instances = append([]models.DraftInstance(nil), d.Instances...)
	return &c
}
