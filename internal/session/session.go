package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates there is no active conversation for the chat.
var ErrNotFound = errors.New("session: conversation not found")

// Kind identifies which multi-step dialogue a chat is in.
type Kind string

const (
	KindRegistration   Kind = "registration"
	KindOrderCreate    Kind = "order_create"
	KindStageReport    Kind = "stage_report"
	KindEvidenceUpload Kind = "evidence_upload"
)

// Conversation is the per-chat dialogue state. Fields collects the answers
// gathered so far, keyed by step name.
type Conversation struct {
	ChatID    int64             `json:"chat_id"`
	Kind      Kind              `json:"kind"`
	Step      string            `json:"step"`
	StartedAt time.Time         `json:"started_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Fields    map[string]string `json:"fields"`
}

// Set records an answer for a step.
func (c *Conversation) Set(key, value string) {
	if c.Fields == nil {
		c.Fields = map[string]string{}
	}
	c.Fields[key] = value
}

// Get returns a previously recorded answer.
func (c *Conversation) Get(key string) string {
	if c.Fields == nil {
		return ""
	}
	return c.Fields[key]
}

// Store persists conversation state between updates. A chat holds at most
// one conversation; Put replaces any existing one and refreshes the idle TTL.
type Store interface {
	Get(ctx context.Context, chatID int64) (*Conversation, error)
	Put(ctx context.Context, conv *Conversation) error
	Delete(ctx context.Context, chatID int64) error
}
