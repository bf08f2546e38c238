package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"salonbook/internal/database"
	"salonbook/internal/metrics"
	"salonbook/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	TaskUpsert       = models.SyncTaskUpsert
	TaskDelete       = models.SyncTaskDelete
	TaskUpdateStatus = models.SyncTaskStatus
)

const (
	redisQueueKey = "salon:sheets:queue"
	deadLetterKey = "salon:sheets:deadletter"

	housekeepEvery     = time.Minute
	completedRetention = 7 * 24 * time.Hour
)

// sheetTaskPayload is persisted in SyncTask.Payload as JSON.
type sheetTaskPayload struct {
	BookingID int64           `json:"booking_id"`
	Booking   *models.Booking `json:"booking,omitempty"`
	Status    string          `json:"status,omitempty"`
}

// SheetsClient is the mirror the worker writes to.
type SheetsClient interface {
	UpsertBooking(ctx context.Context, booking *models.Booking) error
	DeleteBookingRow(ctx context.Context, bookingID int64) error
	UpdateBookingStatus(ctx context.Context, bookingID int64, status string) error
}

// SheetsWorker consumes sync_queue tasks and applies them to Google Sheets.
type SheetsWorker struct {
	db            *database.DB
	sheets        SheetsClient
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan models.SyncTask
	pollInterval  time.Duration
	batchSize     int
	lastHousekeep time.Time
	logger        *zerolog.Logger
}

// NewSheetsWorker builds a worker with sane defaults.
func NewSheetsWorker(db *database.DB, sheets SheetsClient, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *SheetsWorker {
	defaults := DefaultRetryPolicy()
	if retry.InitialDelay == 0 {
		retry.InitialDelay = defaults.InitialDelay
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = defaults.MaxDelay
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &SheetsWorker{
		db:           db,
		sheets:       sheets,
		redis:        redisClient,
		retryPolicy:  retry,
		queue:        make(chan models.SyncTask, models.WorkerQueueSize),
		pollInterval: 2 * time.Second,
		batchSize:    20,
		logger:       logger,
	}
}

// EnqueueTask persists the task and schedules it via redis or the in-memory queue.
func (w *SheetsWorker) EnqueueTask(ctx context.Context, taskType string, bookingID int64, booking *models.Booking, status string) error {
	if taskType == "" {
		return errors.New("task type is required")
	}
	if bookingID == 0 && booking != nil {
		bookingID = booking.ID
	}
	if bookingID == 0 {
		return errors.New("booking id is required")
	}

	payloadBytes, err := json.Marshal(sheetTaskPayload{
		BookingID: bookingID,
		Booking:   booking,
		Status:    status,
	})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	task := models.SyncTask{
		TaskType:  taskType,
		BookingID: bookingID,
		Payload:   string(payloadBytes),
		Status:    database.SyncStatusPending,
	}
	if err := w.db.CreateSyncTask(ctx, &task); err != nil {
		return fmt.Errorf("persist sync task: %w", err)
	}

	if w.redis != nil {
		err := w.pushRedis(ctx, redisQueueKey, &task)
		if err == nil {
			return nil
		}
		w.logger.Warn().Err(err).Int64("task_id", task.ID).Msg("Redis push failed, using memory queue")
	}

	select {
	case w.queue <- task:
	default:
		w.logger.Warn().Int64("task_id", task.ID).Msg("Memory queue full, task left to polling")
	}
	return nil
}

// Start runs the main loop until ctx is done.
func (w *SheetsWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("Sheets worker started")
	defer w.logger.Info().Msg("Sheets worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, &t)
			continue
		}

		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, &t)
			continue
		}

		tasks, err := w.db.GetPendingSyncTasks(ctx, w.batchSize)
		if err != nil {
			w.logger.Error().Err(err).Msg("Failed to fetch pending sync tasks")
			w.sleep(ctx)
			continue
		}
		if len(tasks) == 0 {
			w.housekeep(ctx)
			w.sleep(ctx)
			continue
		}
		for i := range tasks {
			w.processTask(ctx, &tasks[i])
		}
	}
}

func (w *SheetsWorker) sleep(ctx context.Context) {
	t := time.NewTimer(w.pollInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// housekeep refreshes the queue gauge and drops old completed tasks.
// It runs on idle polls, at most once per housekeepEvery.
func (w *SheetsWorker) housekeep(ctx context.Context) {
	now := time.Now()
	if now.Sub(w.lastHousekeep) < housekeepEvery {
		return
	}
	w.lastHousekeep = now

	if n, err := w.db.PurgeCompletedSyncTasks(ctx, now.Add(-completedRetention)); err != nil {
		w.logger.Error().Err(err).Msg("Failed to purge completed sync tasks")
	} else if n > 0 {
		w.logger.Debug().Int64("tasks", n).Msg("Purged completed sync tasks")
	}

	counts, err := w.db.SyncQueueCounts(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to count sync tasks")
		return
	}
	metrics.SetSyncQueue(counts)
}

// RequeueFailed moves dead tasks back to pending.
func (w *SheetsWorker) RequeueFailed(ctx context.Context) (int64, error) {
	n, err := w.db.RequeueFailedSyncTasks(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		w.logger.Info().Int64("tasks", n).Msg("Requeued failed sync tasks")
	}
	return n, nil
}

func (w *SheetsWorker) tryLocalQueue() (models.SyncTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return models.SyncTask{}, false
	}
}

func (w *SheetsWorker) tryRedis(ctx context.Context) (models.SyncTask, bool) {
	if w.redis == nil {
		return models.SyncTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, redisQueueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			w.logger.Error().Err(err).Msg("Redis BRPOP failed")
		}
		return models.SyncTask{}, false
	}
	if len(res) != 2 {
		return models.SyncTask{}, false
	}
	var task models.SyncTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("Failed to decode redis task")
		return models.SyncTask{}, false
	}
	return task, true
}

func (w *SheetsWorker) processTask(ctx context.Context, task *models.SyncTask) {
	payload, err := decodePayload(task.Payload)
	if err != nil {
		w.failTask(ctx, task, fmt.Errorf("decode payload: %w", err))
		return
	}

	if err := w.handleSheetTask(ctx, task.TaskType, payload); err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}

	if err := w.db.CompleteSyncTask(ctx, task.ID); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("Failed to mark task completed")
	}
}

func (w *SheetsWorker) handleSheetTask(ctx context.Context, taskType string, payload sheetTaskPayload) error {
	switch taskType {
	case TaskUpsert:
		if payload.Booking == nil {
			return errors.New("booking payload missing")
		}
		return w.sheets.UpsertBooking(ctx, payload.Booking)
	case TaskDelete:
		if payload.BookingID == 0 {
			return errors.New("booking id missing")
		}
		return w.sheets.DeleteBookingRow(ctx, payload.BookingID)
	case TaskUpdateStatus:
		if payload.BookingID == 0 || payload.Status == "" {
			return errors.New("booking id or status missing")
		}
		return w.sheets.UpdateBookingStatus(ctx, payload.BookingID, payload.Status)
	default:
		return fmt.Errorf("unknown task type: %s", taskType)
	}
}

func (w *SheetsWorker) retryOrFail(ctx context.Context, task *models.SyncTask, cause error) {
	attempt := task.RetryCount + 1
	if w.retryPolicy.Exhausted(attempt) {
		w.failTask(ctx, task, cause)
		return
	}

	next := time.Now().Add(w.retryPolicy.NextDelay(attempt))
	if err := w.db.RetrySyncTask(ctx, task.ID, cause.Error(), next); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("Failed to schedule retry")
		return
	}
	w.logger.Warn().Err(cause).Int64("task_id", task.ID).Int("attempt", attempt).Time("next_retry", next).Msg("Sheets task failed, will retry")
}

func (w *SheetsWorker) failTask(ctx context.Context, task *models.SyncTask, cause error) {
	if err := w.db.FailSyncTask(ctx, task.ID, cause.Error()); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("Failed to mark task failed")
	}
	w.logger.Error().Err(cause).Int64("task_id", task.ID).Int64("booking_id", task.BookingID).Msg("Sheets task moved to dead letter")
	if w.redis == nil {
		return
	}
	if err := w.pushRedis(ctx, deadLetterKey, task); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("Dead letter push failed")
	}
}

func decodePayload(raw string) (sheetTaskPayload, error) {
	var payload sheetTaskPayload
	err := json.Unmarshal([]byte(raw), &payload)
	return payload, err
}

func (w *SheetsWorker) pushRedis(ctx context.Context, key string, task *models.SyncTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, key, data).Err()
}
