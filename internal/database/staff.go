package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"salonbook/internal/models"
)

func (db *DB) CreateStaff(ctx context.Context, s *models.Staff) error {
	query := `INSERT INTO staff (name, phone, sort_order, is_active, created_at) VALUES (?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query, s.Name, s.Phone, s.SortOrder, s.IsActive, now)
	if err != nil {
		return fmt.Errorf("failed to create staff: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	s.ID = id
	s.CreatedAt = now
	return nil
}

// SyncStaff upserts the roster loaded from the catalogue file. Ids are kept
// so that shifts and bookings keep pointing at the same people.
func (db *DB) SyncStaff(ctx context.Context, staff []models.Staff) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `INSERT INTO staff (id, name, phone, sort_order, is_active, created_at)
              VALUES (?, ?, ?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                name = excluded.name,
                phone = excluded.phone,
                sort_order = excluded.sort_order,
                is_active = excluded.is_active`
	now := time.Now()
	for i := range staff {
		s := staff[i]
		if _, err := tx.ExecContext(ctx, query, s.ID, s.Name, s.Phone, s.SortOrder, s.IsActive, now); err != nil {
			return fmt.Errorf("failed to sync staff %d: %w", s.ID, err)
		}
	}
	return tx.Commit()
}

func (db *DB) GetStaff(ctx context.Context, id int64) (*models.Staff, error) {
	var (
		s     models.Staff
		phone sql.NullString
	)
	query := `SELECT id, name, phone, sort_order, is_active, created_at FROM staff WHERE id = ?`
	err := db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.Name, &phone, &s.SortOrder, &s.IsActive, &s.CreatedAt)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("staff %d", id))
	}
	s.Phone = phone.String
	return &s, nil
}

// GetActiveStaff returns staff in roster order.
func (db *DB) GetActiveStaff(ctx context.Context) ([]*models.Staff, error) {
	query := `SELECT id, name, phone, sort_order, is_active, created_at
              FROM staff WHERE is_active = 1 ORDER BY sort_order, id`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get active staff: %w", err)
	}
	defer rows.Close()

	var staff []*models.Staff
	for rows.Next() {
		var (
			s     models.Staff
			phone sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.Name, &phone, &s.SortOrder, &s.IsActive, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan staff: %w", err)
		}
		s.Phone = phone.String
		staff = append(staff, &s)
	}
	return staff, rows.Err()
}

func (db *DB) DeactivateStaff(ctx context.Context, id int64) error {
	_, err := db.ExecContext(ctx, `UPDATE staff SET is_active = 0 WHERE id = ?`, id)
	return err
}

func (db *DB) CreateShift(ctx context.Context, s *models.Shift) error {
	var date any
	if !s.Recurring {
		if s.Date.IsZero() {
			return fmt.Errorf("dated shift for staff %d has no date", s.StaffID)
		}
		date = formatDate(s.Date)
	}
	query := `INSERT INTO staff_shifts (staff_id, recurring, weekday, date) VALUES (?, ?, ?, ?)`
	result, err := db.ExecContext(ctx, query, s.StaffID, s.Recurring, int(s.Weekday), date)
	if err != nil {
		return fmt.Errorf("failed to create shift: %w", err)
	}
	s.ID, err = result.LastInsertId()
	return err
}

// GetShiftsForDate returns the recurring shifts for the weekday of date and
// the dated shifts pinned to it.
func (db *DB) GetShiftsForDate(ctx context.Context, date time.Time) ([]*models.Shift, error) {
	query := `SELECT id, staff_id, recurring, weekday, date FROM staff_shifts
              WHERE (recurring = 1 AND weekday = ?) OR (recurring = 0 AND date = ?)
              ORDER BY id`
	rows, err := db.QueryContext(ctx, query, int(date.Weekday()), formatDate(date))
	if err != nil {
		return nil, fmt.Errorf("failed to get shifts: %w", err)
	}
	defer rows.Close()

	var shifts []*models.Shift
	for rows.Next() {
		var (
			s       models.Shift
			weekday int
			dateStr sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.StaffID, &s.Recurring, &weekday, &dateStr); err != nil {
			return nil, fmt.Errorf("failed to scan shift: %w", err)
		}
		s.Weekday = time.Weekday(weekday)
		if dateStr.Valid {
			if s.Date, err = parseDate(dateStr.String); err != nil {
				return nil, fmt.Errorf("failed to parse shift date %s: %w", dateStr.String, err)
			}
		}
		shifts = append(shifts, &s)
	}
	return shifts, rows.Err()
}

// ReplaceRecurringShifts sets the weekly working days of a staff member.
// Dated shifts are left alone.
func (db *DB) ReplaceRecurringShifts(ctx context.Context, staffID int64, weekdays []time.Weekday) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM staff_shifts WHERE staff_id = ? AND recurring = 1`, staffID); err != nil {
		return fmt.Errorf("failed to clear shifts: %w", err)
	}
	for _, wd := range weekdays {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO staff_shifts (staff_id, recurring, weekday) VALUES (?, 1, ?)`, staffID, int(wd),
		); err != nil {
			return fmt.Errorf("failed to create shift: %w", err)
		}
	}
	return tx.Commit()
}

func (db *DB) DeleteShift(ctx context.Context, id int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM staff_shifts WHERE id = ?`, id)
	return err
}

func (db *DB) CreateAbsence(ctx context.Context, a *models.Absence) error {
	query := `INSERT INTO staff_absences (staff_id, date, type, note) VALUES (?, ?, ?, ?)`
	if a.Type == "" {
		a.Type = "holiday"
	}
	result, err := db.ExecContext(ctx, query, a.StaffID, formatDate(a.Date), a.Type, a.Note)
	if err != nil {
		return fmt.Errorf("failed to create absence: %w", err)
	}
	a.ID, err = result.LastInsertId()
	return err
}

func (db *DB) GetAbsencesForDate(ctx context.Context, date time.Time) ([]*models.Absence, error) {
	query := `SELECT id, staff_id, date, type, COALESCE(note, '') FROM staff_absences WHERE date = ? ORDER BY id`
	rows, err := db.QueryContext(ctx, query, formatDate(date))
	if err != nil {
		return nil, fmt.Errorf("failed to get absences: %w", err)
	}
	defer rows.Close()

	var absences []*models.Absence
	for rows.Next() {
		var (
			a       models.Absence
			dateStr string
		)
		if err := rows.Scan(&a.ID, &a.StaffID, &dateStr, &a.Type, &a.Note); err != nil {
			return nil, fmt.Errorf("failed to scan absence: %w", err)
		}
		if a.Date, err = parseDate(dateStr); err != nil {
			return nil, fmt.Errorf("failed to parse absence date %s: %w", dateStr, err)
		}
		absences = append(absences, &a)
	}
	return absences, rows.Err()
}

func (db *DB) DeleteAbsence(ctx context.Context, id int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM staff_absences WHERE id = ?`, id)
	return err
}
