package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/fieldops-bot/internal/domain"
)

// OrderFilter captures order search parameters.
type OrderFilter struct {
	CreatedBy      *int64
	AssignedTo     *int64
	Statuses       []domain.OrderStatus
	Stage          *domain.Stage
	DeadlineBefore *time.Time
	DeadlineAfter  *time.Time
	UpdatedBefore  *time.Time
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
	Limit          int
	Offset         int
}

// OrderRepository encapsulates order persistence.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	Update(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)
	ListWithFilter(ctx context.Context, filter OrderFilter) ([]domain.Order, error)
	CountByStatus(ctx context.Context) (map[domain.OrderStatus]int, error)
}

type orderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository instantiates repository.
func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &orderRepository{pool: pool}
}

const orderColumns = `id, order_number, customer_name, customer_address, customer_contact,
               sto, transaction_type, service_type, created_by_hd_id, assigned_technician_id,
               status, current_stage, sla_deadline, hold_started_at, hold_ended_at,
               evidence_complete, created_at, updated_at, closed_at`

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	const query = `
        INSERT INTO orders (order_number, customer_name, customer_address, customer_contact,
            sto, transaction_type, service_type, created_by_hd_id, assigned_technician_id,
            status, current_stage, sla_deadline)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		order.Number,
		order.CustomerName,
		order.CustomerAddress,
		order.CustomerContact,
		order.Site,
		order.TransactionType,
		order.ServiceType,
		order.CreatedBy,
		order.AssignedTo,
		order.Status,
		order.CurrentStage,
		order.SLADeadline,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
}

func (r *orderRepository) Update(ctx context.Context, order *domain.Order) error {
	const query = `
        UPDATE orders SET assigned_technician_id=$1, status=$2, current_stage=$3, sla_deadline=$4,
            hold_started_at=$5, hold_ended_at=$6, evidence_complete=$7, closed_at=$8, updated_at=NOW()
        WHERE id=$9`
	cmd, err := r.pool.Exec(ctx, query,
		order.AssignedTo,
		order.Status,
		order.CurrentStage,
		order.SLADeadline,
		order.HoldStartedAt,
		order.HoldEndedAt,
		order.EvidenceComplete,
		order.ClosedAt,
		order.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *orderRepository) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_number=$1`
	return r.fetchSingle(ctx, query, number)
}

func (r *orderRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Order, error) {
	var order domain.Order
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&order.ID,
		&order.Number,
		&order.CustomerName,
		&order.CustomerAddress,
		&order.CustomerContact,
		&order.Site,
		&order.TransactionType,
		&order.ServiceType,
		&order.CreatedBy,
		&order.AssignedTo,
		&order.Status,
		&order.CurrentStage,
		&order.SLADeadline,
		&order.HoldStartedAt,
		&order.HoldEndedAt,
		&order.EvidenceComplete,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) ListWithFilter(ctx context.Context, filter OrderFilter) ([]domain.Order, error) {
	base := `SELECT ` + orderColumns + ` FROM orders`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CreatedBy != nil {
		args = append(args, *filter.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("created_by_hd_id=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_technician_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Stage != nil {
		args = append(args, *filter.Stage)
		clauses = append(clauses, fmt.Sprintf("current_stage=$%d", len(args)))
	}
	if filter.DeadlineBefore != nil {
		args = append(args, *filter.DeadlineBefore)
		clauses = append(clauses, fmt.Sprintf("sla_deadline <= $%d", len(args)))
	}
	if filter.DeadlineAfter != nil {
		args = append(args, *filter.DeadlineAfter)
		clauses = append(clauses, fmt.Sprintf("sla_deadline >= $%d", len(args)))
	}
	if filter.UpdatedBefore != nil {
		args = append(args, *filter.UpdatedBefore)
		clauses = append(clauses, fmt.Sprintf("updated_at <= $%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

func (r *orderRepository) CountByStatus(ctx context.Context) (map[domain.OrderStatus]int, error) {
	const query = `SELECT status, COUNT(*) FROM orders GROUP BY status`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := map[domain.OrderStatus]int{}
	for rows.Next() {
		var status domain.OrderStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func scanOrders(rows pgx.Rows) ([]domain.Order, error) {
	var result []domain.Order
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(
			&order.ID,
			&order.Number,
			&order.CustomerName,
			&order.CustomerAddress,
			&order.CustomerContact,
			&order.Site,
			&order.TransactionType,
			&order.ServiceType,
			&order.CreatedBy,
			&order.AssignedTo,
			&order.Status,
			&order.CurrentStage,
			&order.SLADeadline,
			&order.HoldStartedAt,
			&order.HoldEndedAt,
			&order.EvidenceComplete,
			&order.CreatedAt,
			&order.UpdatedAt,
			&order.ClosedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, order)
	}
	return result, rows.Err()
}
