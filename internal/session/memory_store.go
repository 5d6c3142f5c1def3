package session

import (
	"context"
	"sync"
	"time"
)

type memoryStore struct {
	mu    sync.RWMutex
	convs map[int64]Conversation
}

// NewMemoryStore builds an in-process Store. It does not expire
// conversations; intended for tests and single-node development.
func NewMemoryStore() Store {
	return &memoryStore{convs: map[int64]Conversation{}}
}

func (s *memoryStore) Get(_ context.Context, chatID int64) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.convs[chatID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := conv
	if conv.Fields != nil {
		copied.Fields = make(map[string]string, len(conv.Fields))
		for k, v := range conv.Fields {
			copied.Fields[k] = v
		}
	}
	return &copied, nil
}

func (s *memoryStore) Put(_ context.Context, conv *Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv.UpdatedAt = time.Now().UTC()
	s.convs[conv.ChatID] = *conv
	return nil
}

func (s *memoryStore) Delete(_ context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.convs, chatID)
	return nil
}
