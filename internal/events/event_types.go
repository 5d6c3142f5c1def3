package events

import (
	"time"

	"github.com/spec-kit/fieldops-bot/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventOrderCreated       EventType = "order_created"
	EventOrderAssigned      EventType = "order_assigned"
	EventOrderStageChanged  EventType = "order_stage_changed"
	EventOrderOnHold        EventType = "order_on_hold"
	EventOrderResumed       EventType = "order_resumed"
	EventOrderCompleted     EventType = "order_completed"
	EventOrderCancelled     EventType = "order_cancelled"
	EventEvidenceIncomplete EventType = "evidence_incomplete"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	OrderID   int64       `json:"order_id"`
	ActorID   int64       `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// OrderCreatedPayload payload.
type OrderCreatedPayload struct {
	OrderNumber  string    `json:"order_number"`
	CustomerName string    `json:"customer_name"`
	Site         string    `json:"site"`
	SLADeadline  time.Time `json:"sla_deadline"`
}

// OrderAssignedPayload payload.
type OrderAssignedPayload struct {
	OrderNumber  string `json:"order_number"`
	TechnicianID int64  `json:"technician_id"`
}

// OrderStageChangedPayload payload.
type OrderStageChangedPayload struct {
	OrderNumber string       `json:"order_number"`
	OldStage    domain.Stage `json:"old_stage"`
	NewStage    domain.Stage `json:"new_stage"`
	Notes       string       `json:"notes,omitempty"`
}

// OrderOnHoldPayload payload.
type OrderOnHoldPayload struct {
	OrderNumber string       `json:"order_number"`
	Stage       domain.Stage `json:"stage"`
	Reason      string       `json:"reason,omitempty"`
}

// OrderResumedPayload payload.
type OrderResumedPayload struct {
	OrderNumber string    `json:"order_number"`
	NewDeadline time.Time `json:"new_deadline"`
}

// OrderCompletedPayload payload.
type OrderCompletedPayload struct {
	OrderNumber string  `json:"order_number"`
	TTIHours    float64 `json:"tti_hours"`
	IsCompliant bool    `json:"is_compliant"`
}

// OrderCancelledPayload payload.
type OrderCancelledPayload struct {
	OrderNumber string `json:"order_number"`
	Reason      string `json:"reason,omitempty"`
}

// EvidenceIncompletePayload payload.
type EvidenceIncompletePayload struct {
	OrderNumber  string                `json:"order_number"`
	MissingTypes []domain.EvidenceType `json:"missing_types"`
}
