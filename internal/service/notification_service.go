package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/fieldops-bot/internal/domain"
	"github.com/spec-kit/fieldops-bot/internal/events"
	"github.com/spec-kit/fieldops-bot/internal/observability"
	"github.com/spec-kit/fieldops-bot/internal/repository"
	"github.com/spec-kit/fieldops-bot/internal/sla"
	"github.com/spec-kit/fieldops-bot/pkg/util"
)

// Sender pushes a rendered notification to an operator's chat.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// notificationTemplate pairs a type with its operator-facing text. Message
// bodies carry {placeholder} tokens substituted at send time.
type notificationTemplate struct {
	Type     domain.NotificationType
	Title    string
	Message  string
	Priority domain.NotificationPriority
}

var notificationTemplates = map[domain.NotificationType]notificationTemplate{
	domain.NotifyOrderAssigned: {
		Type:     domain.NotifyOrderAssigned,
		Title:    "📋 Order Baru Ditugaskan",
		Message:  "Anda mendapat order baru {order_number}\n\nPelanggan: {customer_name}\nAlamat: {customer_address}\nLayanan: {service_type}\n\nSilakan gunakan /myorders untuk melihat detail lengkap.",
		Priority: domain.PriorityHigh,
	},
	domain.NotifyProgressReminder: {
		Type:     domain.NotifyProgressReminder,
		Title:    "⏰ Reminder Update Progress",
		Message:  "Order {order_number} belum ada update progress dalam 2 jam terakhir.\n\nPelanggan: {customer_name}\nStatus: {status}\n\nSilakan update progress menggunakan /updateprogress",
		Priority: domain.PriorityMedium,
	},
	domain.NotifySLAWarning: {
		Type:     domain.NotifySLAWarning,
		Title:    "🚨 Peringatan SLA",
		Message:  "Order {order_number} mendekati batas SLA (3x24 jam)!\n\nPelanggan: {customer_name}\nSisa waktu: {remaining_time}\nStatus: {status}\n\nSegera selesaikan order ini!",
		Priority: domain.PriorityUrgent,
	},
	domain.NotifyNetworkNotReady: {
		Type:     domain.NotifyNetworkNotReady,
		Title:    "🔧 Jaringan Tidak Ready",
		Message:  "Order {order_number} - Jaringan tidak ready!\n\nPelanggan: {customer_name}\nTeknisi: {technician_name}\n\nOrder otomatis On Hold. Silakan cek kesiapan jaringan dan gunakan /updatestatus untuk melanjutkan.",
		Priority: domain.PriorityUrgent,
	},
	domain.NotifyEvidenceIncomplete: {
		Type:     domain.NotifyEvidenceIncomplete,
		Title:    "📸 Evidence Belum Lengkap",
		Message:  "Order {order_number} tidak bisa ditutup!\n\nEvidence yang masih kurang:\n{missing_list}\n\nSilakan lengkapi evidence menggunakan /evidence",
		Priority: domain.PriorityHigh,
	},
	domain.NotifyOrderCompleted: {
		Type:     domain.NotifyOrderCompleted,
		Title:    "✅ Order Selesai",
		Message:  "Order {order_number} telah selesai!\n\nPelanggan: {customer_name}\nTeknisi: {technician_name}\nWaktu selesai: {completion_time}\n\nTerima kasih atas kerja kerasnya!",
		Priority: domain.PriorityMedium,
	},
}

// SweepConfig tunes the background compliance sweeps.
type SweepConfig struct {
	StaleProgressAfter time.Duration
	DeadlineWindow     time.Duration
	DedupWindow        time.Duration
}

// NotificationService renders templates, persists the notification log and
// hands messages to the chat transport.
type NotificationService struct {
	notifications repository.NotificationRepository
	actors        repository.ActorRepository
	orders        repository.OrderRepository
	engine        *sla.Engine
	sender        Sender
	metrics       *observability.Metrics
	logger        *zap.Logger
	sweep         SweepConfig
	clock         func() time.Time
}

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	NotificationRepo repository.NotificationRepository
	ActorRepo        repository.ActorRepository
	OrderRepo        repository.OrderRepository
	Engine           *sla.Engine
	Sender           Sender
	Metrics          *observability.Metrics
	Logger           *zap.Logger
	Sweep            SweepConfig
	Clock            func() time.Time
}

// NewNotificationService constructs the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		notifications: deps.NotificationRepo,
		actors:        deps.ActorRepo,
		orders:        deps.OrderRepo,
		engine:        deps.Engine,
		sender:        deps.Sender,
		metrics:       deps.Metrics,
		logger:        logger,
		sweep:         deps.Sweep,
		clock:         clock,
	}
}

// Notify renders and delivers one notification. The log row is written
// before delivery; a transport failure is logged but not rolled back.
func (s *NotificationService) Notify(ctx context.Context, actorID int64, notifType domain.NotificationType, orderID *int64, data map[string]string) error {
	template, ok := notificationTemplates[notifType]
	if !ok {
		return fmt.Errorf("no template for notification type %q", notifType)
	}
	message := renderTemplate(template.Message, data)

	notification := &domain.Notification{
		ActorID:  actorID,
		OrderID:  orderID,
		Type:     template.Type,
		Title:    template.Title,
		Message:  message,
		Priority: template.Priority,
	}
	if err := s.notifications.Create(ctx, notification); err != nil {
		return err
	}

	actor, err := s.actors.GetByID(ctx, actorID)
	if err != nil {
		return err
	}
	if err := s.sender.SendText(ctx, actor.TelegramID, template.Title+"\n\n"+message); err != nil {
		s.logger.Warn("notification delivery failed",
			zap.Int64("actor_id", actorID),
			zap.String("type", string(notifType)),
			zap.Error(err))
		if s.metrics != nil {
			s.metrics.RecordNotification(false)
		}
		return nil
	}
	if s.metrics != nil {
		s.metrics.RecordNotification(true)
	}
	return nil
}

// Inbox lists an operator's notification log, newest first.
func (s *NotificationService) Inbox(ctx context.Context, actorID int64, limit, offset int) ([]domain.Notification, error) {
	notifications, err := s.notifications.ListByActor(ctx, actorID, limit, offset)
	if err != nil {
		return nil, util.MapError(err)
	}
	return notifications, nil
}

// MarkRead stamps one of the operator's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, notificationID, actorID int64) error {
	if err := s.notifications.MarkRead(ctx, notificationID, actorID); err != nil {
		return util.MapError(err)
	}
	return nil
}

// RegisterHandlers subscribes the notification reactions to domain events.
func (s *NotificationService) RegisterHandlers(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventOrderAssigned, s.onOrderAssigned)
	dispatcher.Subscribe(events.EventOrderOnHold, s.onOrderOnHold)
	dispatcher.Subscribe(events.EventEvidenceIncomplete, s.onEvidenceIncomplete)
	dispatcher.Subscribe(events.EventOrderCompleted, s.onOrderCompleted)
}

func (s *NotificationService) onOrderAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.OrderAssignedPayload)
	if !ok {
		return nil
	}
	order, err := s.orders.GetByID(ctx, event.OrderID)
	if err != nil {
		return err
	}
	return s.Notify(ctx, payload.TechnicianID, domain.NotifyOrderAssigned, &order.ID, map[string]string{
		"order_number":     order.Number,
		"customer_name":    order.CustomerName,
		"customer_address": order.CustomerAddress,
		"service_type":     order.ServiceType,
	})
}

func (s *NotificationService) onOrderOnHold(ctx context.Context, event events.Event) error {
	if _, ok := event.Payload.(events.OrderOnHoldPayload); !ok {
		return nil
	}
	order, err := s.orders.GetByID(ctx, event.OrderID)
	if err != nil {
		return err
	}
	technicianName := ""
	if order.AssignedTo != nil {
		if tech, err := s.actors.GetByID(ctx, *order.AssignedTo); err == nil {
			technicianName = tech.FullName
		}
	}
	return s.Notify(ctx, order.CreatedBy, domain.NotifyNetworkNotReady, &order.ID, map[string]string{
		"order_number":    order.Number,
		"customer_name":   order.CustomerName,
		"technician_name": technicianName,
	})
}

func (s *NotificationService) onEvidenceIncomplete(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.EvidenceIncompletePayload)
	if !ok {
		return nil
	}
	order, err := s.orders.GetByID(ctx, event.OrderID)
	if err != nil {
		return err
	}
	if order.AssignedTo == nil {
		return nil
	}
	var lines []string
	for _, t := range payload.MissingTypes {
		lines = append(lines, "- "+t.DisplayName())
	}
	return s.Notify(ctx, *order.AssignedTo, domain.NotifyEvidenceIncomplete, &order.ID, map[string]string{
		"order_number": order.Number,
		"missing_list": strings.Join(lines, "\n"),
	})
}

func (s *NotificationService) onOrderCompleted(ctx context.Context, event events.Event) error {
	if _, ok := event.Payload.(events.OrderCompletedPayload); !ok {
		return nil
	}
	order, err := s.orders.GetByID(ctx, event.OrderID)
	if err != nil {
		return err
	}
	technicianName := ""
	if order.AssignedTo != nil {
		if tech, err := s.actors.GetByID(ctx, *order.AssignedTo); err == nil {
			technicianName = tech.FullName
		}
	}
	completionTime := ""
	if order.ClosedAt != nil {
		completionTime = order.ClosedAt.Format("02/01/2006 15:04")
	}
	data := map[string]string{
		"order_number":    order.Number,
		"customer_name":   order.CustomerName,
		"technician_name": technicianName,
		"completion_time": completionTime,
	}
	if order.AssignedTo != nil {
		if err := s.Notify(ctx, *order.AssignedTo, domain.NotifyOrderCompleted, &order.ID, data); err != nil {
			return err
		}
	}
	return s.Notify(ctx, order.CreatedBy, domain.NotifyOrderCompleted, &order.ID, data)
}

// RunStaleProgressSweep reminds technicians about assigned orders with no
// progress for the configured window. Safe to run repeatedly.
func (s *NotificationService) RunStaleProgressSweep(ctx context.Context) error {
	now := s.clock().UTC()
	cutoff := now.Add(-s.sweep.StaleProgressAfter)
	orders, err := s.orders.ListWithFilter(ctx, repository.OrderFilter{
		Statuses:      []domain.OrderStatus{domain.OrderStatusPending, domain.OrderStatusInProgress, domain.OrderStatusOnHold},
		UpdatedBefore: &cutoff,
		Limit:         500,
	})
	if err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordSweep("stale_progress")
	}
	for _, order := range orders {
		if order.AssignedTo == nil {
			continue
		}
		recent, err := s.notifications.ExistsRecent(ctx, order.ID, domain.NotifyProgressReminder, now.Add(-s.sweep.DedupWindow))
		if err != nil {
			return err
		}
		if recent {
			continue
		}
		if err := s.Notify(ctx, *order.AssignedTo, domain.NotifyProgressReminder, &order.ID, map[string]string{
			"order_number":  order.Number,
			"customer_name": order.CustomerName,
			"status":        string(order.Status),
		}); err != nil {
			s.logger.Warn("stale progress reminder failed", zap.Int64("order_id", order.ID), zap.Error(err))
		}
	}
	return nil
}

// RunDeadlineWarningSweep warns assignee and creator about active orders
// approaching or past the SLA deadline. Safe to run repeatedly.
func (s *NotificationService) RunDeadlineWarningSweep(ctx context.Context) error {
	now := s.clock().UTC()
	horizon := now.Add(s.sweep.DeadlineWindow)
	orders, err := s.orders.ListWithFilter(ctx, repository.OrderFilter{
		Statuses:       []domain.OrderStatus{domain.OrderStatusPending, domain.OrderStatusInProgress, domain.OrderStatusOnHold},
		DeadlineBefore: &horizon,
		Limit:          500,
	})
	if err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordSweep("deadline_warning")
	}
	for _, order := range orders {
		recent, err := s.notifications.ExistsRecent(ctx, order.ID, domain.NotifySLAWarning, now.Add(-s.sweep.DedupWindow))
		if err != nil {
			return err
		}
		if recent {
			continue
		}
		result := s.engine.Evaluate(&order, nil, now)
		data := map[string]string{
			"order_number":   order.Number,
			"customer_name":  order.CustomerName,
			"remaining_time": sla.FormatStatus(result),
			"status":         string(order.Status),
		}
		if order.AssignedTo != nil {
			if err := s.Notify(ctx, *order.AssignedTo, domain.NotifySLAWarning, &order.ID, data); err != nil {
				s.logger.Warn("sla warning failed", zap.Int64("order_id", order.ID), zap.Error(err))
			}
		}
		if err := s.Notify(ctx, order.CreatedBy, domain.NotifySLAWarning, &order.ID, data); err != nil {
			s.logger.Warn("sla warning failed", zap.Int64("order_id", order.ID), zap.Error(err))
		}
	}
	return nil
}

func renderTemplate(message string, data map[string]string) string {
	for key, value := range data {
		message = strings.ReplaceAll(message, "{"+key+"}", value)
	}
	return message
}
