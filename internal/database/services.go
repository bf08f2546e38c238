package database

import (
	"context"
	"fmt"
	"sort"
	"time"

	"salonbook/internal/models"
	"salonbook/internal/pricing"
)

// SyncServices upserts the catalogue loaded from the services file and
// refreshes the in-memory cache.
func (db *DB) SyncServices(ctx context.Context, services []models.Service) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `INSERT INTO services (id, name, category, duration, price, sort_order, is_active, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                name = excluded.name,
                category = excluded.category,
                duration = excluded.duration,
                price = excluded.price,
                sort_order = excluded.sort_order,
                is_active = excluded.is_active,
                updated_at = excluded.updated_at`
	now := time.Now()
	for i := range services {
		s := services[i]
		if _, err := tx.ExecContext(ctx, query,
			s.ID, s.Name, s.Category, s.Duration, s.Price.String(), s.SortOrder, s.IsActive, now, now,
		); err != nil {
			return fmt.Errorf("failed to sync service %d: %w", s.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit services: %w", err)
	}

	db.mu.Lock()
	for i := range services {
		s := services[i]
		s.UpdatedAt = now
		db.servicesCache[s.ID] = &s
	}
	db.mu.Unlock()
	return nil
}

func (db *DB) CreateService(ctx context.Context, s *models.Service) error {
	query := `INSERT INTO services (name, category, duration, price, sort_order, is_active, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		s.Name, s.Category, s.Duration, s.Price.String(), s.SortOrder, s.IsActive, now, now)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	s.ID = id
	s.CreatedAt = now
	s.UpdatedAt = now

	db.mu.Lock()
	cached := *s
	db.servicesCache[id] = &cached
	db.mu.Unlock()
	return nil
}

// GetService reads through the cache.
func (db *DB) GetService(ctx context.Context, id int64) (*models.Service, error) {
	db.mu.RLock()
	cached, ok := db.servicesCache[id]
	db.mu.RUnlock()
	if ok {
		s := *cached
		return &s, nil
	}

	var (
		s    models.Service
		cost string
	)
	query := `SELECT id, name, COALESCE(category, ''), duration, price, sort_order, is_active, created_at, updated_at
              FROM services WHERE id = ?`
	err := db.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.Name, &s.Category, &s.Duration, &cost, &s.SortOrder, &s.IsActive, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("service %d", id))
	}
	s.Price = pricing.Parse(cost)

	db.mu.Lock()
	cachedCopy := s
	db.servicesCache[id] = &cachedCopy
	db.mu.Unlock()
	return &s, nil
}

func (db *DB) GetActiveServices(ctx context.Context) ([]*models.Service, error) {
	query := `SELECT id, name, COALESCE(category, ''), duration, price, sort_order, is_active, created_at, updated_at
              FROM services WHERE is_active = 1 ORDER BY sort_order, id`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get active services: %w", err)
	}
	defer rows.Close()

	var services []*models.Service
	for rows.Next() {
		var (
			s    models.Service
			cost string
		)
		if err := rows.Scan(&s.ID, &s.Name, &s.Category, &s.Duration, &cost, &s.SortOrder, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		s.Price = pricing.Parse(cost)
		services = append(services, &s)
	}
	return services, rows.Err()
}

func (db *DB) DeactivateService(ctx context.Context, id int64) error {
	query := `UPDATE services SET is_active = 0, updated_at = ? WHERE id = ?`
	if _, err := db.ExecContext(ctx, query, time.Now(), id); err != nil {
		return fmt.Errorf("failed to deactivate service: %w", err)
	}
	db.mu.Lock()
	delete(db.servicesCache, id)
	db.mu.Unlock()
	return nil
}

// CachedServices returns the cached catalogue ordered for display.
func (db *DB) CachedServices() []models.Service {
	db.mu.RLock()
	services := make([]models.Service, 0, len(db.servicesCache))
	for _, s := range db.servicesCache {
		services = append(services, *s)
	}
	db.mu.RUnlock()

	sort.Slice(services, func(i, j int) bool {
		if services[i].SortOrder != services[j].SortOrder {
			return services[i].SortOrder < services[j].SortOrder
		}
		return services[i].ID < services[j].ID
	})
	return services
}
