package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/fieldops-bot/internal/domain"
	"github.com/spec-kit/fieldops-bot/internal/repository"
	"github.com/spec-kit/fieldops-bot/pkg/util"
)

// ProgressService tracks per-stage execution state for orders.
type ProgressService struct {
	progress repository.ProgressRepository
	clock    func() time.Time
}

// NewProgressService constructs the service.
func NewProgressService(progressRepo repository.ProgressRepository, clock func() time.Time) *ProgressService {
	if clock == nil {
		clock = time.Now
	}
	return &ProgressService{progress: progressRepo, clock: clock}
}

// Initialize creates the stage tracking record for a fresh order.
func (s *ProgressService) Initialize(ctx context.Context, orderID int64) error {
	return s.progress.Init(ctx, orderID)
}

// Get fetches the stage records for an order.
func (s *ProgressService) Get(ctx context.Context, orderID int64) (*domain.Progress, error) {
	progress, err := s.progress.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, util.MapError(err)
	}
	return progress, nil
}

// UpdateStage moves one stage to a new status. A stage may only be completed
// after every earlier work stage has completed.
func (s *ProgressService) UpdateStage(ctx context.Context, orderID int64, stage domain.Stage, status domain.StageStatus, notes string, actorID int64) (*domain.Progress, error) {
	if domain.StageIndex(stage) < 0 {
		return nil, util.NewValidationError("unknown work stage", map[string]any{"stage": stage})
	}
	progress, err := s.progress.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, util.MapError(err)
	}

	if status == domain.StageDone {
		for _, earlier := range domain.WorkStages {
			if earlier == stage {
				break
			}
			if !progress.StageCompleted(earlier) {
				return nil, util.NewConflict("earlier stage not completed", map[string]any{
					"stage":   stage,
					"blocked": earlier,
				})
			}
		}
	}

	now := s.clock().UTC()
	record := progress.StageRecord(stage)
	record.Status = status
	record.UpdatedBy = actorID
	if strings.TrimSpace(notes) != "" {
		record.Notes = strings.TrimSpace(notes)
	}
	if status == domain.StageInProgress && record.StartedAt == nil {
		record.StartedAt = &now
	}
	if status == domain.StageDone {
		if record.StartedAt == nil {
			record.StartedAt = &now
		}
		record.CompletedAt = &now
	} else {
		record.CompletedAt = nil
	}

	if err := s.progress.SaveStage(ctx, orderID, stage, record); err != nil {
		return nil, util.MapError(err)
	}
	progress.Stages[stage] = record
	progress.UpdatedAt = now
	return progress, nil
}

// NextStage returns the first work stage that is still pending or running,
// false when all four are complete.
func (s *ProgressService) NextStage(ctx context.Context, orderID int64) (domain.Stage, bool, error) {
	progress, err := s.progress.GetByOrderID(ctx, orderID)
	if err != nil {
		return "", false, util.MapError(err)
	}
	for _, stage := range domain.WorkStages {
		if !progress.StageCompleted(stage) {
			return stage, true, nil
		}
	}
	return "", false, nil
}

// ProgressStats summarizes stage completion for an order.
type ProgressStats struct {
	TotalStages          int
	CompletedStages      int
	CurrentStage         *domain.Stage
	CompletionPercentage int
}

// Stats computes completion counters for an order.
func (s *ProgressService) Stats(ctx context.Context, orderID int64) (*ProgressStats, error) {
	progress, err := s.progress.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, util.MapError(err)
	}
	stats := &ProgressStats{TotalStages: len(domain.WorkStages)}
	for _, stage := range domain.WorkStages {
		if progress.StageCompleted(stage) {
			stats.CompletedStages++
		} else if stats.CurrentStage == nil {
			current := stage
			stats.CurrentStage = &current
		}
	}
	stats.CompletionPercentage = int(float64(stats.CompletedStages)/float64(stats.TotalStages)*100 + 0.5)
	return stats, nil
}

// IsComplete reports whether the evidence stage has completed.
func (s *ProgressService) IsComplete(ctx context.Context, orderID int64) (bool, error) {
	progress, err := s.progress.GetByOrderID(ctx, orderID)
	if err != nil {
		return false, util.MapError(err)
	}
	return progress.StageCompleted(domain.StageEvidenceUpload), nil
}

// Summary renders a chat-friendly progress block for an order.
func (s *ProgressService) Summary(ctx context.Context, orderID int64) (string, error) {
	progress, err := s.progress.GetByOrderID(ctx, orderID)
	if err != nil {
		return "", util.MapError(err)
	}
	var b strings.Builder
	b.WriteString("Progress Pekerjaan:\n")
	for _, stage := range domain.WorkStages {
		record := progress.StageRecord(stage)
		b.WriteString(fmt.Sprintf("%s %s", stageIcon(record.Status), stage.DisplayName()))
		if record.CompletedAt != nil {
			b.WriteString(" (" + record.CompletedAt.Format("02/01 15:04") + ")")
		}
		if record.Notes != "" {
			b.WriteString("\n   Catatan: " + record.Notes)
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

func stageIcon(status domain.StageStatus) string {
	switch status {
	case domain.StageDone:
		return "✅"
	case domain.StageInProgress:
		return "🔄"
	case domain.StageOnHold:
		return "⏸"
	default:
		return "⬜"
	}
}
