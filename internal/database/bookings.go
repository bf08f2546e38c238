package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"salonbook/internal/models"
	"salonbook/internal/pricing"
)

const bookingColumns = `id, group_id, instance_id, client_id, client_name, phone, service_id,
	service_name, staff_id, staff_name, start_at, end_at, duration, price,
	status, notes, created_at, updated_at, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var (
		b                models.Booking
		start, end, cost string
		phone, staffName sql.NullString
		notes            sql.NullString
	)
	err := row.Scan(
		&b.ID, &b.GroupID, &b.InstanceID, &b.ClientID, &b.ClientName, &phone, &b.ServiceID,
		&b.ServiceName, &b.StaffID, &staffName, &start, &end, &b.Duration, &cost,
		&b.Status, &notes, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}
	if b.Start, err = parseInstant(start); err != nil {
		return nil, fmt.Errorf("failed to parse booking start %s: %w", start, err)
	}
	if b.End, err = parseInstant(end); err != nil {
		return nil, fmt.Errorf("failed to parse booking end %s: %w", end, err)
	}
	b.Price = pricing.Parse(cost)
	b.Phone = phone.String
	b.StaffName = staffName.String
	b.Notes = notes.String
	return &b, nil
}

func scanBookings(rows *sql.Rows) ([]*models.Booking, error) {
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// staffBusy reports whether staffID has a non-cancelled booking overlapping
// [start, end), ignoring the booking excludeID.
func staffBusy(ctx context.Context, tx *sql.Tx, staffID int64, start, end time.Time, excludeID int64) (bool, error) {
	if staffID == 0 {
		return false, nil
	}
	query := `SELECT COUNT(*) FROM bookings
              WHERE staff_id = ? AND status != ? AND id != ?
              AND start_at < ? AND end_at > ?`
	var count int
	err := tx.QueryRowContext(ctx, query,
		staffID, models.StatusCancelled, excludeID, formatInstant(end), formatInstant(start),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check staff availability in tx: %w", err)
	}
	return count > 0, nil
}

func insertBooking(ctx context.Context, tx *sql.Tx, b *models.Booking, now time.Time) error {
	query := `INSERT INTO bookings (
				group_id, instance_id, client_id, client_name, phone, service_id,
				service_name, staff_id, staff_name, start_at, end_at, duration, price,
				status, notes, created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, query,
		b.GroupID,
		b.InstanceID,
		b.ClientID,
		b.ClientName,
		b.Phone,
		b.ServiceID,
		b.ServiceName,
		b.StaffID,
		b.StaffName,
		formatInstant(b.Start),
		formatInstant(b.End),
		b.Duration,
		b.Price.String(),
		b.Status,
		b.Notes,
		now,
		now,
		1,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}
	b.ID = id
	b.CreatedAt = now
	b.UpdatedAt = now
	b.Version = 1
	return nil
}

// CreateBookingsWithLock inserts the service instances of one checkout. The
// staff overlap check runs again inside the write transaction, so of two
// requests racing for the same interval only one commits; the other gets
// ErrSlotTaken. Either every booking is stored or none is.
func (db *DB) CreateBookingsWithLock(ctx context.Context, bookings []*models.Booking) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	for _, b := range bookings {
		if b.End.IsZero() {
			b.End = b.Start.Add(time.Duration(b.Duration) * time.Minute)
		}
		if b.Status == "" {
			b.Status = models.StatusPending
		}

		busy, err := staffBusy(ctx, tx, b.StaffID, b.Start, b.End, 0)
		if err != nil {
			return err
		}
		if busy {
			return fmt.Errorf("staff %d at %s: %w", b.StaffID, b.Start.Format(time.RFC3339), ErrSlotTaken)
		}

		if err := insertBooking(ctx, tx, b, now); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("booking %d", id))
	}
	return b, nil
}

func (db *DB) GetBookingsByGroup(ctx context.Context, groupID string) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE group_id = ? ORDER BY start_at ASC`
	rows, err := db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings by group: %w", err)
	}
	return scanBookings(rows)
}

// GetBookingsForDay returns the non-cancelled bookings whose interval
// intersects the calendar day of day, in day's location.
func (db *DB) GetBookingsForDay(ctx context.Context, day time.Time) ([]*models.Booking, error) {
	from, to := dayBounds(day)
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE start_at < ? AND end_at > ? AND status != ?
              ORDER BY start_at ASC, staff_id ASC`
	rows, err := db.QueryContext(ctx, query, to, from, models.StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings for day: %w", err)
	}
	return scanBookings(rows)
}

// GetBookingsByDateRange returns every booking, cancelled included, that
// starts on a day in [startDate, endDate].
func (db *DB) GetBookingsByDateRange(ctx context.Context, startDate, endDate time.Time) ([]*models.Booking, error) {
	from, _ := dayBounds(startDate)
	_, to := dayBounds(endDate)
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE start_at >= ? AND start_at < ? ORDER BY start_at ASC`
	rows, err := db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings by date range: %w", err)
	}
	return scanBookings(rows)
}

func (db *DB) GetClientBookings(ctx context.Context, clientID int64) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE client_id = ? ORDER BY start_at DESC`
	rows, err := db.QueryContext(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get client bookings: %w", err)
	}
	return scanBookings(rows)
}

// RescheduleBookingWithVersion moves a booking to a new start and staff
// member. The new interval is checked against every other booking.
func (db *DB) RescheduleBookingWithVersion(
	ctx context.Context,
	id, fromVersion int64,
	start time.Time,
	staffID int64,
	staffName string,
) (*models.Booking, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	b, err := scanBooking(tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("booking %d", id))
	}
	if b.Version != fromVersion {
		return nil, ErrConcurrentModification
	}

	end := start.Add(time.Duration(b.Duration) * time.Minute)
	busy, err := staffBusy(ctx, tx, staffID, start, end, id)
	if err != nil {
		return nil, err
	}
	if busy {
		return nil, fmt.Errorf("staff %d at %s: %w", staffID, start.Format(time.RFC3339), ErrSlotTaken)
	}

	now := time.Now()
	query := `UPDATE bookings SET start_at = ?, end_at = ?, staff_id = ?, staff_name = ?,
	          version = version + 1, updated_at = ? WHERE id = ? AND version = ?`
	result, err := tx.ExecContext(ctx, query,
		formatInstant(start), formatInstant(end), staffID, staffName, now, id, fromVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to reschedule booking: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return nil, ErrConcurrentModification
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit reschedule: %w", err)
	}

	b.Start = start.UTC()
	b.End = end.UTC()
	b.StaffID = staffID
	b.StaffName = staffName
	b.UpdatedAt = now
	b.Version++
	return b, nil
}

func (db *DB) UpdateBookingStatusWithVersion(ctx context.Context, id, fromVersion int64, status string) error {
	query := `UPDATE bookings SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query, status, time.Now(), id, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}

func (db *DB) UpdateBookingNotes(ctx context.Context, id int64, notes string) error {
	query := `UPDATE bookings SET notes = ?, updated_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, notes, time.Now(), id)
	return err
}

func (db *DB) DeleteBooking(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("booking %d: %w", id, ErrNotFound)
	}
	return nil
}

// GetDailyBookings groups the bookings of a period by salon-local date.
func (db *DB) GetDailyBookings(ctx context.Context, startDate, endDate time.Time) (map[string][]*models.Booking, error) {
	bookings, err := db.GetBookingsByDateRange(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}

	loc := startDate.Location()
	daily := make(map[string][]*models.Booking)
	for _, b := range bookings {
		dateKey := b.Start.In(loc).Format(dateLayout)
		daily[dateKey] = append(daily[dateKey], b)
	}
	return daily, nil
}
