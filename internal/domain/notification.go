package domain

import "time"

// NotificationType enumerates notification templates.
type NotificationType string

const (
	NotifyOrderAssigned      NotificationType = "ORDER_ASSIGNED"
	NotifyProgressReminder   NotificationType = "PROGRESS_REMINDER"
	NotifySLAWarning         NotificationType = "SLA_WARNING"
	NotifyNetworkNotReady    NotificationType = "NETWORK_NOT_READY"
	NotifyEvidenceIncomplete NotificationType = "EVIDENCE_INCOMPLETE"
	NotifyOrderCompleted     NotificationType = "ORDER_COMPLETED"
)

// NotificationPriority enumerates urgency levels.
type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityMedium NotificationPriority = "medium"
	PriorityHigh   NotificationPriority = "high"
	PriorityUrgent NotificationPriority = "urgent"
)

// Notification is an append-only log entry of a message pushed to an operator.
type Notification struct {
	ID       int64
	ActorID  int64
	OrderID  *int64
	Type     NotificationType
	Title    string
	Message  string
	Priority NotificationPriority
	SentAt   time.Time
	ReadAt   *time.Time
}
