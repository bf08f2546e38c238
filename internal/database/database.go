package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"salonbook/internal/models"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

var (
	// ErrSlotTaken means another booking already holds the staff member's interval.
	ErrSlotTaken = errors.New("slot is no longer available")
	// ErrConcurrentModification is returned when an optimistic version check fails.
	ErrConcurrentModification = errors.New("booking was modified concurrently")
	ErrNotFound               = errors.New("not found")
)

// timeLayout is how booking instants are stored: UTC, fixed width, so that
// text comparison orders them correctly.
const timeLayout = "2006-01-02 15:04:05"

const dateLayout = "2006-01-02"

type DB struct {
	*sql.DB
	logger *zerolog.Logger

	mu            sync.RWMutex
	servicesCache map[int64]*models.Service
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	// Создаем директорию для БД, если её нет
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// immediate transactions take the write lock up front, so the overlap
	// check and the insert in CreateBookingsWithLock cannot interleave
	sqlDB, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return &DB{
		DB:            sqlDB,
		logger:        logger,
		servicesCache: make(map[int64]*models.Service),
	}, nil
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_txlock=immediate&_busy_timeout=5000&_foreign_keys=on"
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS clients (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            phone TEXT,
            email TEXT,
            notes TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS services (
            id INTEGER PRIMARY KEY,
            name TEXT NOT NULL,
            category TEXT,
            duration INTEGER NOT NULL,
            price TEXT NOT NULL DEFAULT 'POA',
            sort_order INTEGER NOT NULL DEFAULT 0,
            is_active BOOLEAN NOT NULL DEFAULT 1,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS staff (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            phone TEXT,
            sort_order INTEGER NOT NULL DEFAULT 0,
            is_active BOOLEAN NOT NULL DEFAULT 1,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		// Смена: либо еженедельная (recurring + weekday), либо на дату
		`CREATE TABLE IF NOT EXISTS staff_shifts (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            staff_id INTEGER NOT NULL REFERENCES staff(id) ON DELETE CASCADE,
            recurring BOOLEAN NOT NULL DEFAULT 0,
            weekday INTEGER NOT NULL DEFAULT 0,
            date TEXT
        )`,
		`CREATE TABLE IF NOT EXISTS staff_absences (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            staff_id INTEGER NOT NULL REFERENCES staff(id) ON DELETE CASCADE,
            date TEXT NOT NULL,
            type TEXT NOT NULL DEFAULT 'holiday',
            note TEXT
        )`,
		`CREATE TABLE IF NOT EXISTS bookings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            group_id TEXT NOT NULL,
            instance_id TEXT NOT NULL,
            client_id INTEGER NOT NULL DEFAULT 0,
            client_name TEXT NOT NULL,
            phone TEXT,
            service_id INTEGER NOT NULL,
            service_name TEXT NOT NULL,
            staff_id INTEGER NOT NULL DEFAULT 0,
            staff_name TEXT,
            start_at TEXT NOT NULL,
            end_at TEXT NOT NULL,
            duration INTEGER NOT NULL,
            price TEXT NOT NULL DEFAULT 'POA',
            status TEXT NOT NULL DEFAULT 'pending',
            notes TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            version INTEGER NOT NULL DEFAULT 1
        )`,
		`CREATE TABLE IF NOT EXISTS sync_queue (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            task_type TEXT NOT NULL,
            booking_id INTEGER NOT NULL,
            payload TEXT,
            status TEXT NOT NULL DEFAULT 'pending',
            retry_count INTEGER NOT NULL DEFAULT 0,
            last_error TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            processed_at DATETIME,
            next_retry_at DATETIME
        )`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_staff_start ON bookings(staff_id, start_at)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_start ON bookings(start_at)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_group ON bookings(group_id)`,
		`CREATE INDEX IF NOT EXISTS idx_shifts_staff ON staff_shifts(staff_id)`,
		`CREATE INDEX IF NOT EXISTS idx_absences_date ON staff_absences(date)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_queue_status ON sync_queue(status, next_retry_at)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

func formatInstant(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseInstant(s string) (time.Time, error) {
	return time.ParseInLocation(timeLayout, s, time.UTC)
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.UTC)
}

// dayBounds returns the UTC instants of the start of day and of the next day,
// both taken in day's own location.
func dayBounds(day time.Time) (string, string) {
	y, m, d := day.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	return formatInstant(from), formatInstant(from.AddDate(0, 0, 1))
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}
