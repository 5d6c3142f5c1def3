package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore builds a Store backed by Redis. ttl is the conversation
// idle timeout; every Put resets it.
func NewRedisStore(client *redis.Client, ttl time.Duration) Store {
	return &redisStore{client: client, ttl: ttl}
}

func convKey(chatID int64) string {
	return fmt.Sprintf("bot:conv:%d", chatID)
}

func (s *redisStore) Get(ctx context.Context, chatID int64) (*Conversation, error) {
	raw, err := s.client.Get(ctx, convKey(chatID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var conv Conversation
	if err := json.Unmarshal(raw, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *redisStore) Put(ctx context.Context, conv *Conversation) error {
	conv.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(conv)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, convKey(conv.ChatID), raw, s.ttl).Err()
}

func (s *redisStore) Delete(ctx context.Context, chatID int64) error {
	return s.client.Del(ctx, convKey(chatID)).Err()
}
