package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/fieldops-bot/internal/domain"
)

// EvidenceRepository encapsulates evidence item persistence.
type EvidenceRepository interface {
	Create(ctx context.Context, item *domain.EvidenceItem) error
	ListByOrderID(ctx context.Context, orderID int64) ([]domain.EvidenceItem, error)
	DistinctTypes(ctx context.Context, orderID int64) ([]domain.EvidenceType, error)
	Delete(ctx context.Context, id int64) error
}

type evidenceRepository struct {
	pool *pgxpool.Pool
}

// NewEvidenceRepository instantiates repository.
func NewEvidenceRepository(pool *pgxpool.Pool) EvidenceRepository {
	return &evidenceRepository{pool: pool}
}

func (r *evidenceRepository) Create(ctx context.Context, item *domain.EvidenceItem) error {
	const query = `
        INSERT INTO evidence_files (order_id, evidence_type, file_url, file_name, text_value, uploaded_by_user_id)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, uploaded_at`
	return r.pool.QueryRow(ctx, query,
		item.OrderID,
		item.Type,
		item.FileRef,
		item.FileName,
		item.TextValue,
		item.UploadedBy,
	).Scan(&item.ID, &item.UploadedAt)
}

func (r *evidenceRepository) ListByOrderID(ctx context.Context, orderID int64) ([]domain.EvidenceItem, error) {
	const query = `
        SELECT id, order_id, evidence_type, file_url, file_name, text_value, uploaded_by_user_id, uploaded_at
        FROM evidence_files WHERE order_id=$1 ORDER BY uploaded_at ASC`
	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []domain.EvidenceItem
	for rows.Next() {
		var item domain.EvidenceItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.Type,
			&item.FileRef,
			&item.FileName,
			&item.TextValue,
			&item.UploadedBy,
			&item.UploadedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

func (r *evidenceRepository) DistinctTypes(ctx context.Context, orderID int64) ([]domain.EvidenceType, error) {
	const query = `SELECT DISTINCT evidence_type FROM evidence_files WHERE order_id=$1`
	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var types []domain.EvidenceType
	for rows.Next() {
		var t domain.EvidenceType
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

func (r *evidenceRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM evidence_files WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
