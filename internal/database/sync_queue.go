package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"salonbook/internal/models"
)

// Sync task lifecycle: pending -> (retry ->)* completed | failed.
// Failed tasks go back to pending only through RequeueFailedSyncTasks.
const (
	SyncStatusPending   = "pending"
	SyncStatusRetry     = "retry"
	SyncStatusCompleted = "completed"
	SyncStatusFailed    = "failed"
)

const selectSyncTask = `SELECT id, task_type, booking_id, payload, status, retry_count,
       last_error, created_at, processed_at, next_retry_at
  FROM sync_queue`

func (db *DB) CreateSyncTask(ctx context.Context, task *models.SyncTask) error {
	if task.Status == "" {
		task.Status = SyncStatusPending
	}
	task.CreatedAt = time.Now()

	res, err := db.ExecContext(ctx, `
		INSERT INTO sync_queue (task_type, booking_id, payload, status, retry_count, last_error, created_at, next_retry_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		task.TaskType, task.BookingID, task.Payload, task.Status,
		task.RetryCount, task.LastError, task.CreatedAt, task.NextRetryAt,
	)
	if err != nil {
		return fmt.Errorf("insert sync task for booking %d: %w", task.BookingID, err)
	}
	if task.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("sync task id: %w", err)
	}
	return nil
}

// GetPendingSyncTasks returns due tasks in enqueue order.
func (db *DB) GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error) {
	rows, err := db.QueryContext(ctx, selectSyncTask+`
		WHERE status IN (?, ?) AND (next_retry_at IS NULL OR next_retry_at <= ?)
		ORDER BY id LIMIT ?`,
		SyncStatusPending, SyncStatusRetry, time.Now(), limit)
	if err != nil {
		return nil, fmt.Errorf("query pending sync tasks: %w", err)
	}
	return scanSyncTasks(rows)
}

func (db *DB) GetFailedSyncTasks(ctx context.Context) ([]models.SyncTask, error) {
	rows, err := db.QueryContext(ctx, selectSyncTask+` WHERE status = ? ORDER BY id DESC`, SyncStatusFailed)
	if err != nil {
		return nil, fmt.Errorf("query failed sync tasks: %w", err)
	}
	return scanSyncTasks(rows)
}

func (db *DB) CompleteSyncTask(ctx context.Context, id int64) error {
	return db.finishSyncTask(ctx, id, SyncStatusCompleted, nil)
}

func (db *DB) FailSyncTask(ctx context.Context, id int64, cause string) error {
	return db.finishSyncTask(ctx, id, SyncStatusFailed, &cause)
}

func (db *DB) finishSyncTask(ctx context.Context, id int64, status string, cause *string) error {
	_, err := db.ExecContext(ctx, `
		UPDATE sync_queue SET status = ?, last_error = ?, next_retry_at = NULL, processed_at = ?
		WHERE id = ?`, status, cause, time.Now(), id)
	if err != nil {
		return fmt.Errorf("mark sync task %d %s: %w", id, status, err)
	}
	return nil
}

// RetrySyncTask bumps the attempt counter and hides the task until at.
func (db *DB) RetrySyncTask(ctx context.Context, id int64, cause string, at time.Time) error {
	_, err := db.ExecContext(ctx, `
		UPDATE sync_queue SET status = ?, last_error = ?, next_retry_at = ?, retry_count = retry_count + 1
		WHERE id = ?`, SyncStatusRetry, cause, at, id)
	if err != nil {
		return fmt.Errorf("schedule sync task %d retry: %w", id, err)
	}
	return nil
}

// RequeueFailedSyncTasks puts dead tasks back into the pending queue.
func (db *DB) RequeueFailedSyncTasks(ctx context.Context) (int64, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE sync_queue SET status = ?, retry_count = 0, next_retry_at = NULL, processed_at = NULL
		WHERE status = ?`, SyncStatusPending, SyncStatusFailed)
	if err != nil {
		return 0, fmt.Errorf("requeue failed sync tasks: %w", err)
	}
	return res.RowsAffected()
}

// PurgeCompletedSyncTasks drops completed tasks processed before cutoff.
func (db *DB) PurgeCompletedSyncTasks(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM sync_queue WHERE status = ? AND processed_at < ?`,
		SyncStatusCompleted, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge sync tasks: %w", err)
	}
	return res.RowsAffected()
}

// SyncQueueCounts returns the number of tasks per status.
func (db *DB) SyncQueueCounts(ctx context.Context) (map[string]int, error) {
	rows, err := db.QueryContext(ctx, `SELECT status, COUNT(*) FROM sync_queue GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count sync tasks: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func scanSyncTasks(rows *sql.Rows) ([]models.SyncTask, error) {
	defer rows.Close()

	var tasks []models.SyncTask
	for rows.Next() {
		var (
			t       models.SyncTask
			payload sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.TaskType, &t.BookingID, &payload, &t.Status, &t.RetryCount,
			&t.LastError, &t.CreatedAt, &t.ProcessedAt, &t.NextRetryAt); err != nil {
			return nil, fmt.Errorf("scan sync task: %w", err)
		}
		t.Payload = payload.String
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
