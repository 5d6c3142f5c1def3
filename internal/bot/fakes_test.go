package bot

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/fieldops-bot/internal/domain"
	"github.com/spec-kit/fieldops-bot/internal/repository"
)

type memActorRepo struct {
	nextID int64
	actors map[int64]domain.Actor
}

func newMemActorRepo() *memActorRepo {
	return &memActorRepo{actors: map[int64]domain.Actor{}}
}

func (r *memActorRepo) Create(_ context.Context, actor *domain.Actor) error {
	r.nextID++
	actor.ID = r.nextID
	r.actors[actor.ID] = *actor
	return nil
}

func (r *memActorRepo) Update(_ context.Context, actor *domain.Actor) error {
	if _, ok := r.actors[actor.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.actors[actor.ID] = *actor
	return nil
}

func (r *memActorRepo) GetByID(_ context.Context, id int64) (*domain.Actor, error) {
	actor, ok := r.actors[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := actor
	return &copied, nil
}

func (r *memActorRepo) GetByTelegramID(_ context.Context, telegramID int64) (*domain.Actor, error) {
	for _, actor := range r.actors {
		if actor.TelegramID == telegramID && actor.Active {
			copied := actor
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memActorRepo) ListByRole(_ context.Context, role domain.ActorRole, activeOnly bool) ([]domain.Actor, error) {
	var out []domain.Actor
	for _, actor := range r.actors {
		if actor.Role != role || (activeOnly && !actor.Active) {
			continue
		}
		out = append(out, actor)
	}
	return out, nil
}

func (r *memActorRepo) ListAll(_ context.Context) ([]domain.Actor, error) {
	var out []domain.Actor
	for _, actor := range r.actors {
		out = append(out, actor)
	}
	return out, nil
}

type memOrderRepo struct {
	nextID int64
	orders map[int64]domain.Order
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: map[int64]domain.Order{}}
}

func (r *memOrderRepo) Create(_ context.Context, order *domain.Order) error {
	r.nextID++
	order.ID = r.nextID
	order.CreatedAt = time.Now().UTC()
	order.UpdatedAt = order.CreatedAt
	r.orders[order.ID] = *order
	return nil
}

func (r *memOrderRepo) Update(_ context.Context, order *domain.Order) error {
	if _, ok := r.orders[order.ID]; !ok {
		return pgx.ErrNoRows
	}
	order.UpdatedAt = time.Now().UTC()
	r.orders[order.ID] = *order
	return nil
}

func (r *memOrderRepo) GetByID(_ context.Context, id int64) (*domain.Order, error) {
	order, ok := r.orders[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := order
	return &copied, nil
}

func (r *memOrderRepo) GetByNumber(_ context.Context, number string) (*domain.Order, error) {
	for _, order := range r.orders {
		if order.Number == number {
			copied := order
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memOrderRepo) ListWithFilter(_ context.Context, filter repository.OrderFilter) ([]domain.Order, error) {
	var out []domain.Order
	for _, order := range r.orders {
		if filter.CreatedBy != nil && order.CreatedBy != *filter.CreatedBy {
			continue
		}
		if filter.AssignedTo != nil && (order.AssignedTo == nil || *order.AssignedTo != *filter.AssignedTo) {
			continue
		}
		if len(filter.Statuses) > 0 {
			match := false
			for _, s := range filter.Statuses {
				if s == order.Status {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, order)
	}
	return out, nil
}

func (r *memOrderRepo) CountByStatus(_ context.Context) (map[domain.OrderStatus]int, error) {
	counts := map[domain.OrderStatus]int{}
	for _, order := range r.orders {
		counts[order.Status]++
	}
	return counts, nil
}

type memProgressRepo struct {
	records map[int64]*domain.Progress
}

func newMemProgressRepo() *memProgressRepo {
	return &memProgressRepo{records: map[int64]*domain.Progress{}}
}

func (r *memProgressRepo) Init(_ context.Context, orderID int64) error {
	if _, ok := r.records[orderID]; ok {
		return nil
	}
	stages := map[domain.Stage]domain.StageProgress{}
	for _, stage := range domain.WorkStages {
		stages[stage] = domain.StageProgress{Status: domain.StagePending}
	}
	r.records[orderID] = &domain.Progress{OrderID: orderID, Stages: stages}
	return nil
}

func (r *memProgressRepo) GetByOrderID(_ context.Context, orderID int64) (*domain.Progress, error) {
	progress, ok := r.records[orderID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := domain.Progress{OrderID: orderID, UpdatedAt: progress.UpdatedAt, Stages: map[domain.Stage]domain.StageProgress{}}
	for stage, rec := range progress.Stages {
		copied.Stages[stage] = rec
	}
	return &copied, nil
}

func (r *memProgressRepo) SaveStage(_ context.Context, orderID int64, stage domain.Stage, record domain.StageProgress) error {
	progress, ok := r.records[orderID]
	if !ok {
		return pgx.ErrNoRows
	}
	progress.Stages[stage] = record
	progress.UpdatedAt = time.Now().UTC()
	return nil
}

type memEvidenceRepo struct {
	nextID int64
	items  map[int64]domain.EvidenceItem
}

func newMemEvidenceRepo() *memEvidenceRepo {
	return &memEvidenceRepo{items: map[int64]domain.EvidenceItem{}}
}

func (r *memEvidenceRepo) Create(_ context.Context, item *domain.EvidenceItem) error {
	r.nextID++
	item.ID = r.nextID
	item.UploadedAt = time.Now().UTC()
	r.items[item.ID] = *item
	return nil
}

func (r *memEvidenceRepo) ListByOrderID(_ context.Context, orderID int64) ([]domain.EvidenceItem, error) {
	var out []domain.EvidenceItem
	for _, item := range r.items {
		if item.OrderID == orderID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *memEvidenceRepo) DistinctTypes(_ context.Context, orderID int64) ([]domain.EvidenceType, error) {
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

func (r *memEvidenceRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.items[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.items, id)
	return nil
}
