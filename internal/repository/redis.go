package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"salonbook/internal/config"
	"salonbook/internal/models"

	"github.com/redis/go-redis/v9"
)

// ErrNoRedis is returned by a Redis repository built without a client.
var ErrNoRedis = errors.New("redis client is nil")

// RedisDraftRepository keeps drafts as JSON with a sliding TTL: every read or
// write restarts the expiry.
type RedisDraftRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisDraftRepository(client *redis.Client, ttl time.Duration) *RedisDraftRepository {
	return &RedisDraftRepository{
		client: client,
		ttl:    ttl,
	}
}

func draftKey(sessionID string) string {
	return "salon:draft:" + sessionID
}

func rateLimitKey(sessionID string) string {
	return "salon:rate_limit:" + sessionID
}

func (r *RedisDraftRepository) GetDraft(ctx context.Context, sessionID string) (*models.BookingDraft, error) {
	if r.client == nil {
		return nil, ErrNoRedis
	}
	val, err := r.client.GetEx(ctx, draftKey(sessionID), r.ttl).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft from redis: %w", err)
	}

	var draft models.BookingDraft
	if err := json.Unmarshal([]byte(val), &draft); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft: %w", err)
	}
	return &draft, nil
}

// SaveDraft stores the draft and restarts its TTL.
func (r *RedisDraftRepository) SaveDraft(ctx context.Context, draft *models.BookingDraft) error {
	if r.client == nil {
		return ErrNoRedis
	}
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}
	if err := r.client.Set(ctx, draftKey(draft.SessionID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set draft in redis: %w", err)
	}
	return nil
}

func (r *RedisDraftRepository) DeleteDraft(ctx context.Context, sessionID string) error {
	if r.client == nil {
		return ErrNoRedis
	}
	if err := r.client.Del(ctx, draftKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete draft from redis: %w", err)
	}
	return nil
}

// CheckRateLimit is a fixed-window counter per session.
func (r *RedisDraftRepository) CheckRateLimit(ctx context.Context, sessionID string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, ErrNoRedis
	}
	key := rateLimitKey(sessionID)
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	if count == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	return count <= int64(limit), nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
