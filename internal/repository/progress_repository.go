package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/fieldops-bot/internal/domain"
)

// ProgressRepository encapsulates per-order stage tracking persistence.
type ProgressRepository interface {
	Init(ctx context.Context, orderID int64) error
	GetByOrderID(ctx context.Context, orderID int64) (*domain.Progress, error)
	SaveStage(ctx context.Context, orderID int64, stage domain.Stage, record domain.StageProgress) error
}

type progressRepository struct {
	pool *pgxpool.Pool
}

// NewProgressRepository instantiates repository.
func NewProgressRepository(pool *pgxpool.Pool) ProgressRepository {
	return &progressRepository{pool: pool}
}

// stageColumnPrefix maps a work stage to its column group in order_progress.
func stageColumnPrefix(stage domain.Stage) (string, error) {
	switch stage {
	case domain.StageSurvey:
		return "survey", nil
	case domain.StageCablePull:
		return "penarikan_kabel", nil
	case domain.StageONTInstall:
		return "instalasi_ont", nil
	case domain.StageEvidenceUpload:
		return "evidence_upload", nil
	default:
		return "", fmt.Errorf("no progress columns for stage %q", stage)
	}
}

func (r *progressRepository) Init(ctx context.Context, orderID int64) error {
	const query = `
        INSERT INTO order_progress (order_id)
        VALUES ($1)
        ON CONFLICT (order_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, orderID)
	return err
}

func (r *progressRepository) GetByOrderID(ctx context.Context, orderID int64) (*domain.Progress, error) {
	const query = `
        SELECT order_id,
               survey_status, survey_started_at, survey_completed_at, survey_notes, survey_updated_by,
               penarikan_kabel_status, penarikan_kabel_started_at, penarikan_kabel_completed_at, penarikan_kabel_notes, penarikan_kabel_updated_by,
               instalasi_ont_status, instalasi_ont_started_at, instalasi_ont_completed_at, instalasi_ont_notes, instalasi_ont_updated_by,
               evidence_upload_status, evidence_upload_started_at, evidence_upload_completed_at, evidence_upload_notes, evidence_upload_updated_by,
               updated_at
        FROM order_progress WHERE order_id=$1`

	progress := domain.Progress{Stages: make(map[domain.Stage]domain.StageProgress, len(domain.WorkStages))}
	records := make([]domain.StageProgress, len(domain.WorkStages))
	updatedBy := make([]*int64, len(domain.WorkStages))

	dest := []any{&progress.OrderID}
	for i := range records {
		dest = append(dest,
			&records[i].Status,
			&records[i].StartedAt,
			&records[i].CompletedAt,
			&records[i].Notes,
			&updatedBy[i],
		)
	}
	dest = append(dest, &progress.UpdatedAt)

	if err := r.pool.QueryRow(ctx, query, orderID).Scan(dest...); err != nil {
		return nil, err
	}
	for i, stage := range domain.WorkStages {
		if updatedBy[i] != nil {
			records[i].UpdatedBy = *updatedBy[i]
		}
		progress.Stages[stage] = records[i]
	}
	return &progress, nil
}

func (r *progressRepository) SaveStage(ctx context.Context, orderID int64, stage domain.Stage, record domain.StageProgress) error {
	prefix, err := stageColumnPrefix(stage)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
        UPDATE order_progress SET
            %[1]s_status=$1, %[1]s_started_at=$2, %[1]s_completed_at=$3, %[1]s_notes=$4, %[1]s_updated_by=$5,
            updated_at=NOW()
        WHERE order_id=$6`, prefix)

	var updatedBy *int64
	if record.UpdatedBy != 0 {
		updatedBy = &record.UpdatedBy
	}
	cmd, err := r.pool.Exec(ctx, query,
		record.Status,
		record.StartedAt,
		record.CompletedAt,
		record.Notes,
		updatedBy,
		orderID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
