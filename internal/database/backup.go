package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"salonbook/internal/config"

	"github.com/rs/zerolog"
)

const (
	backupPrefix = "salonbook_"
	backupSuffix = ".db"
	backupLayout = "20060102_150405.000"
)

// BackupService snapshots the live database on a fixed interval and prunes
// snapshots older than the retention period.
type BackupService struct {
	db        *DB
	dir       string
	interval  time.Duration
	retention int
	enabled   bool
	logger    *zerolog.Logger
	now       func() time.Time
}

func NewBackupService(db *DB, cfg config.BackupConfig, logger *zerolog.Logger) *BackupService {
	interval := 24 * time.Hour
	if cfg.Schedule != "" {
		if d, err := time.ParseDuration(cfg.Schedule); err == nil && d > 0 {
			interval = d
		} else {
			logger.Warn().Err(err).Str("schedule", cfg.Schedule).Msg("Failed to parse backup schedule, using default 24h")
		}
	}

	return &BackupService{
		db:        db,
		dir:       cfg.StoragePath,
		interval:  interval,
		retention: cfg.RetentionDays,
		enabled:   cfg.Enabled,
		logger:    logger,
		now:       time.Now,
	}
}

// Start blocks until ctx is done. The first snapshot is taken right away.
func (s *BackupService) Start(ctx context.Context) {
	if !s.enabled {
		s.logger.Info().Msg("Backup service is disabled")
		return
	}
	s.logger.Info().Dur("interval", s.interval).Str("dir", s.dir).Msg("Backup service started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.PerformBackup(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error().Err(err).Msg("Backup failed")
		}
		if _, err := s.CleanupOldBackups(); err != nil {
			s.logger.Warn().Err(err).Msg("Backup cleanup failed")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// PerformBackup writes a consistent copy of the database with VACUUM INTO,
// which is safe while bookings keep being written.
func (s *BackupService) PerformBackup(ctx context.Context) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	path := filepath.Join(s.dir, backupFileName(s.now()))
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return "", fmt.Errorf("vacuum into %s: %w", path, err)
	}

	s.logger.Info().Str("path", path).Msg("Backup completed")
	return path, nil
}

func backupFileName(t time.Time) string {
	return backupPrefix + t.Format(backupLayout) + backupSuffix
}

// backupTime reads the snapshot time back from a file name. Files that were
// not written by the service are reported as not ok and never removed.
func backupTime(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, backupPrefix) || !strings.HasSuffix(name, backupSuffix) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, backupPrefix), backupSuffix)
	t, err := time.ParseInLocation(backupLayout, stamp, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// CleanupOldBackups removes snapshots older than the retention period and
// returns how many were deleted.
func (s *BackupService) CleanupOldBackups() (int, error) {
	if s.retention <= 0 {
		return 0, nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read backup directory: %w", err)
	}

	cutoff := s.now().AddDate(0, 0, -s.retention)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		taken, ok := backupTime(entry.Name())
		if !ok || !taken.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			s.logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to delete old backup")
			continue
		}
		s.logger.Info().Str("file", entry.Name()).Msg("Old backup deleted")
		removed++
	}
	return removed, nil
}
