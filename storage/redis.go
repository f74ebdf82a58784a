package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"agenda-bot/types"

	"github.com/redis/go-redis/v9"
)

// Storage wraps the redis-backed state the bot keeps between updates: one
// scheduled-events snapshot per chat and the resolved account URI.
type Storage struct {
	client *redis.Client
}

func New(addr, password string, db int) *Storage {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Storage{client: rdb}
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// SaveEvents replaces the chat's bookings snapshot (TTL: 24 hours).
func (s *Storage) SaveEvents(ctx context.Context, chatID int64, events []types.ScheduledEvent) error {
	key := fmt.Sprintf("events:%d", chatID)
	data, err := json.Marshal(events)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, 24*time.Hour).Err()
}

// GetEvents returns the chat's bookings snapshot, or nil when there is none.
func (s *Storage) GetEvents(ctx context.Context, chatID int64) ([]types.ScheduledEvent, error) {
	key := fmt.Sprintf("events:%d", chatID)
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var events []types.ScheduledEvent
	if err := json.Unmarshal([]byte(val), &events); err != nil {
		return nil, err
	}
	return events, nil
}

// SaveUserURI caches the signed-in account URI (TTL: 12 hours).
func (s *Storage) SaveUserURI(ctx context.Context, uri string) error {
	return s.client.Set(ctx, "user:uri", uri, 12*time.Hour).Err()
}

// GetUserURI returns the cached account URI, or "" when the cache is empty.
func (s *Storage) GetUserURI(ctx context.Context) (string, error) {
	val, err := s.client.Get(ctx, "user:uri").Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}
