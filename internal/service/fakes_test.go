package service

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/fieldops-bot/internal/domain"
	"github.com/spec-kit/fieldops-bot/internal/repository"
)

type fakeActorRepo struct {
	mu     sync.Mutex
	nextID int64
	actors map[int64]domain.Actor
}

func newFakeActorRepo() *fakeActorRepo {
	return &fakeActorRepo{actors: map[int64]domain.Actor{}}
}

func (r *fakeActorRepo) Create(_ context.Context, actor *domain.Actor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	actor.ID = r.nextID
	actor.CreatedAt = time.Now().UTC()
	actor.UpdatedAt = actor.CreatedAt
	r.actors[actor.ID] = *actor
	return nil
}

func (r *fakeActorRepo) Update(_ context.Context, actor *domain.Actor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.actors[actor.ID]; !ok {
		return pgx.ErrNoRows
	}
	actor.UpdatedAt = time.Now().UTC()
	r.actors[actor.ID] = *actor
	return nil
}

func (r *fakeActorRepo) GetByID(_ context.Context, id int64) (*domain.Actor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	actor, ok := r.actors[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := actor
	return &copied, nil
}

func (r *fakeActorRepo) GetByTelegramID(_ context.Context, telegramID int64) (*domain.Actor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, actor := range r.actors {
		if actor.TelegramID == telegramID && actor.Active {
			copied := actor
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeActorRepo) ListByRole(_ context.Context, role domain.ActorRole, activeOnly bool) ([]domain.Actor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Actor
	for _, actor := range r.actors {
		if actor.Role != role {
			continue
		}
		if activeOnly && !actor.Active {
			continue
		}
		out = append(out, actor)
	}
	return out, nil
}

func (r *fakeActorRepo) ListAll(_ context.Context) ([]domain.Actor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Actor
	for _, actor := range r.actors {
		out = append(out, actor)
	}
	return out, nil
}

type fakeOrderRepo struct {
	mu     sync.Mutex
	nextID int64
	orders map[int64]domain.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[int64]domain.Order{}}
}

func (r *fakeOrderRepo) Create(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	order.ID = r.nextID
	order.CreatedAt = time.Now().UTC()
	order.UpdatedAt = order.CreatedAt
	r.orders[order.ID] = *order
	return nil
}

func (r *fakeOrderRepo) Update(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.ID]; !ok {
		return pgx.ErrNoRows
	}
	order.UpdatedAt = time.Now().UTC()
	r.orders[order.ID] = *order
	return nil
}

func (r *fakeOrderRepo) GetByID(_ context.Context, id int64) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := order
	return &copied, nil
}

func (r *fakeOrderRepo) GetByNumber(_ context.Context, number string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, order := range r.orders {
		if order.Number == number {
			copied := order
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeOrderRepo) ListWithFilter(_ context.Context, filter repository.OrderFilter) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Order
	for _, order := range r.orders {
		if filter.CreatedBy != nil && order.CreatedBy != *filter.CreatedBy {
			continue
		}
		if filter.AssignedTo != nil && (order.AssignedTo == nil || *order.AssignedTo != *filter.AssignedTo) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, order.Status) {
			continue
		}
		if filter.DeadlineBefore != nil && order.SLADeadline.After(*filter.DeadlineBefore) {
			continue
		}
		if filter.UpdatedBefore != nil && order.UpdatedAt.After(*filter.UpdatedBefore) {
			continue
		}
		if filter.CreatedFrom != nil && order.CreatedAt.Before(*filter.CreatedFrom) {
			continue
		}
		if filter.CreatedTo != nil && order.CreatedAt.After(*filter.CreatedTo) {
			continue
		}
		out = append(out, order)
	}
	return out, nil
}

func (r *fakeOrderRepo) CountByStatus(_ context.Context) (map[domain.OrderStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[domain.OrderStatus]int{}
	for _, order := range r.orders {
		counts[order.Status]++
	}
	return counts, nil
}

func containsStatus(list []domain.OrderStatus, s domain.OrderStatus) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

type fakeProgressRepo struct {
	mu      sync.Mutex
	records map[int64]*domain.Progress
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{records: map[int64]*domain.Progress{}}
}

func (r *fakeProgressRepo) Init(_ context.Context, orderID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[orderID]; ok {
		return nil
	}
	stages := map[domain.Stage]domain.StageProgress{}
	for _, stage := range domain.WorkStages {
		stages[stage] = domain.StageProgress{Status: domain.StagePending}
	}
	r.records[orderID] = &domain.Progress{OrderID: orderID, Stages: stages, UpdatedAt: time.Now().UTC()}
	return nil
}

func (r *fakeProgressRepo) GetByOrderID(_ context.Context, orderID int64) (*domain.Progress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	progress, ok := r.records[orderID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := domain.Progress{OrderID: progress.OrderID, UpdatedAt: progress.UpdatedAt, Stages: map[domain.Stage]domain.StageProgress{}}
	for stage, rec := range progress.Stages {
		copied.Stages[stage] = rec
	}
	return &copied, nil
}

func (r *fakeProgressRepo) SaveStage(_ context.Context, orderID int64, stage domain.Stage, record domain.StageProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	progress, ok := r.records[orderID]
	if !ok {
		return pgx.ErrNoRows
	}
	progress.Stages[stage] = record
	progress.UpdatedAt = time.Now().UTC()
	return nil
}

type fakeEvidenceRepo struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]domain.EvidenceItem
}

func newFakeEvidenceRepo() *fakeEvidenceRepo {
	return &fakeEvidenceRepo{items: map[int64]domain.EvidenceItem{}}
}

func (r *fakeEvidenceRepo) Create(_ context.Context, item *domain.EvidenceItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	item.ID = r.nextID
	item.UploadedAt = time.Now().UTC()
	r.items[item.ID] = *item
	return nil
}

func (r *fakeEvidenceRepo) ListByOrderID(_ context.Context, orderID int64) ([]domain.EvidenceItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.EvidenceItem
	for _, item := range r.items {
		if item.OrderID == orderID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *fakeEvidenceRepo) DistinctTypes(_ context.Context, orderID int64) ([]domain.EvidenceType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[domain.EvidenceType]struct{}{}
	var out []domain.EvidenceType
	for _, item := range r.items {
		if item.OrderID != orderID {
			continue
		}
		if _, ok := seen[item.Type]; ok {
			continue
		}
		seen[item.Type] = struct{}{}
		out = append(out, item.Type)
	}
	return out, nil
}

func (r *fakeEvidenceRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.items, id)
	return nil
}

type fakeNotificationRepo struct {
	mu            sync.Mutex
	nextID        int64
	notifications []domain.Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{}
}

func (r *fakeNotificationRepo) Create(_ context.Context, notification *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	notification.ID = r.nextID
	if notification.SentAt.IsZero() {
		notification.SentAt = time.Now().UTC()
	}
	r.notifications = append(r.notifications, *notification)
	return nil
}

func (r *fakeNotificationRepo) ListByActor(_ context.Context, actorID int64, _, _ int) ([]domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Notification
	for _, n := range r.notifications {
		if n.ActorID == actorID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, notificationID, actorID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.notifications {
		n := &r.notifications[i]
		if n.ID == notificationID && n.ActorID == actorID && n.ReadAt == nil {
			now := time.Now().UTC()
			n.ReadAt = &now
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeNotificationRepo) ExistsRecent(_ context.Context, orderID int64, notifType domain.NotificationType, since time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notifications {
		if n.OrderID != nil && *n.OrderID == orderID && n.Type == notifType && !n.SentAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	fail bool
}

type sentMessage struct {
	chatID int64
	text   string
}

func (s *fakeSender) SendText(_ context.Context, chatID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return context.DeadlineExceeded
	}
	s.sent = append(s.sent, sentMessage{chatID: chatID, text: text})
	return nil
}
