package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/fieldops-bot/internal/domain"
)

// ActorRepository encapsulates registered-user persistence.
type ActorRepository interface {
	Create(ctx context.Context, actor *domain.Actor) error
	Update(ctx context.Context, actor *domain.Actor) error
	GetByID(ctx context.Context, id int64) (*domain.Actor, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*domain.Actor, error)
	ListByRole(ctx context.Context, role domain.ActorRole, activeOnly bool) ([]domain.Actor, error)
	ListAll(ctx context.Context) ([]domain.Actor, error)
}

type actorRepository struct {
	pool *pgxpool.Pool
}

// NewActorRepository instantiates repository.
func NewActorRepository(pool *pgxpool.Pool) ActorRepository {
	return &actorRepository{pool: pool}
}

const actorColumns = `id, telegram_id, username, full_name, role, phone, is_active, created_at, updated_at`

func (r *actorRepository) Create(ctx context.Context, actor *domain.Actor) error {
	const query = `
        INSERT INTO users (telegram_id, username, full_name, role, phone, is_active)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		actor.TelegramID,
		actor.Username,
		actor.FullName,
		actor.Role,
		actor.Phone,
		actor.Active,
	).Scan(&actor.ID, &actor.CreatedAt, &actor.UpdatedAt)
}

func (r *actorRepository) Update(ctx context.Context, actor *domain.Actor) error {
	const query = `
        UPDATE users SET username=$1, full_name=$2, role=$3, phone=$4, is_active=$5, updated_at=NOW()
        WHERE id=$6`
	cmd, err := r.pool.Exec(ctx, query,
		actor.Username,
		actor.FullName,
		actor.Role,
		actor.Phone,
		actor.Active,
		actor.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *actorRepository) GetByID(ctx context.Context, id int64) (*domain.Actor, error) {
	query := `SELECT ` + actorColumns + ` FROM users WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

// GetByTelegramID resolves an active operator by chat identity. Deactivated
// operators are invisible here and fall back into the registration flow.
func (r *actorRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.Actor, error) {
	query := `SELECT ` + actorColumns + ` FROM users WHERE telegram_id=$1 AND is_active=TRUE`
	return r.fetchSingle(ctx, query, telegramID)
}

func (r *actorRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Actor, error) {
	var actor domain.Actor
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&actor.ID,
		&actor.TelegramID,
		&actor.Username,
		&actor.FullName,
		&actor.Role,
		&actor.Phone,
		&actor.Active,
		&actor.CreatedAt,
		&actor.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &actor, nil
}

func (r *actorRepository) ListByRole(ctx context.Context, role domain.ActorRole, activeOnly bool) ([]domain.Actor, error) {
	query := `SELECT ` + actorColumns + ` FROM users WHERE role=$1`
	if activeOnly {
		query += ` AND is_active=TRUE`
	}
	query += ` ORDER BY full_name ASC`
	rows, err := r.pool.Query(ctx, query, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanActors(rows)
}

func (r *actorRepository) ListAll(ctx context.Context) ([]domain.Actor, error) {
	query := `SELECT ` + actorColumns + ` FROM users ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanActors(rows)
}

func scanActors(rows pgx.Rows) ([]domain.Actor, error) {
	var result []domain.Actor
	for rows.Next() {
		var actor domain.Actor
		if err := rows.Scan(
			&actor.ID,
			&actor.TelegramID,
			&actor.Username,
			&actor.FullName,
			&actor.Role,
			&actor.Phone,
			&actor.Active,
			&actor.CreatedAt,
			&actor.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, actor)
	}
	return result, rows.Err()
}
