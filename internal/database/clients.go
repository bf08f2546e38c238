package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"salonbook/internal/models"
)

func (db *DB) CreateClient(ctx context.Context, c *models.Client) error {
	query := `INSERT INTO clients (name, phone, email, notes, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query, c.Name, c.Phone, c.Email, c.Notes, now, now)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	c.ID = id
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

func (db *DB) GetClient(ctx context.Context, id int64) (*models.Client, error) {
	query := `SELECT id, name, phone, email, notes, created_at, updated_at FROM clients WHERE id = ?`
	c, err := scanClient(db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("client %d", id))
	}
	return c, nil
}

func (db *DB) GetClientByPhone(ctx context.Context, phone string) (*models.Client, error) {
	query := `SELECT id, name, phone, email, notes, created_at, updated_at FROM clients WHERE phone = ? ORDER BY id LIMIT 1`
	c, err := scanClient(db.QueryRowContext(ctx, query, phone))
	if err != nil {
		return nil, notFound(err, "client by phone")
	}
	return c, nil
}

func (db *DB) UpdateClient(ctx context.Context, c *models.Client) error {
	query := `UPDATE clients SET name = ?, phone = ?, email = ?, notes = ?, updated_at = ? WHERE id = ?`
	now := time.Now()
	if _, err := db.ExecContext(ctx, query, c.Name, c.Phone, c.Email, c.Notes, now, c.ID); err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}
	c.UpdatedAt = now
	return nil
}

func scanClient(row rowScanner) (*models.Client, error) {
	var (
		c                   models.Client
		phone, email, notes sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Name, &phone, &email, &notes, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Phone = phone.String
	c.Email = email.String
	c.Notes = notes.String
	return &c, nil
}
