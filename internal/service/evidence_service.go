package service

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/spec-kit/fieldops-bot/internal/domain"
	"github.com/spec-kit/fieldops-bot/internal/repository"
	"github.com/spec-kit/fieldops-bot/pkg/util"
)

// maxEvidenceFileSize caps uploaded evidence files at 10 MB.
const maxEvidenceFileSize = 10 * 1024 * 1024

var allowedEvidenceExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".pdf":  {},
}

// EvidenceService manages the append-only evidence ledger for orders.
type EvidenceService struct {
	evidence repository.EvidenceRepository
	orders   repository.OrderRepository
}

// NewEvidenceService constructs the service.
func NewEvidenceService(evidenceRepo repository.EvidenceRepository, orderRepo repository.OrderRepository) *EvidenceService {
	return &EvidenceService{evidence: evidenceRepo, orders: orderRepo}
}

// RecordText stores a text-valued evidence slot (ODP name, ONT serial).
func (s *EvidenceService) RecordText(ctx context.Context, orderID int64, evidenceType domain.EvidenceType, text string, actorID int64) (*domain.EvidenceItem, error) {
	if !evidenceType.Valid() {
		return nil, util.NewValidationError("unknown evidence type", map[string]any{"type": evidenceType})
	}
	if !evidenceType.IsText() {
		return nil, util.NewValidationError("evidence type requires a file upload", map[string]any{"type": evidenceType})
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, util.NewValidationError("evidence text must not be empty", nil)
	}
	item := &domain.EvidenceItem{
		OrderID:    orderID,
		Type:       evidenceType,
		TextValue:  text,
		UploadedBy: actorID,
	}
	if err := s.evidence.Create(ctx, item); err != nil {
		return nil, util.MapError(err)
	}
	if err := s.recomputeCompleteness(ctx, orderID); err != nil {
		return nil, err
	}
	return item, nil
}

// RecordFile stores a file-valued evidence slot by chat file reference.
func (s *EvidenceService) RecordFile(ctx context.Context, orderID int64, evidenceType domain.EvidenceType, fileRef, fileName string, actorID int64) (*domain.EvidenceItem, error) {
	if !evidenceType.Valid() {
		return nil, util.NewValidationError("unknown evidence type", map[string]any{"type": evidenceType})
	}
	if evidenceType.IsText() {
		return nil, util.NewValidationError("evidence type requires a text value", map[string]any{"type": evidenceType})
	}
	if strings.TrimSpace(fileRef) == "" {
		return nil, util.NewValidationError("file reference must not be empty", nil)
	}
	item := &domain.EvidenceItem{
		OrderID:    orderID,
		Type:       evidenceType,
		FileRef:    fileRef,
		FileName:   fileName,
		UploadedBy: actorID,
	}
	if err := s.evidence.Create(ctx, item); err != nil {
		return nil, util.MapError(err)
	}
	if err := s.recomputeCompleteness(ctx, orderID); err != nil {
		return nil, err
	}
	return item, nil
}

// Delete removes one evidence item and refreshes the completeness flag.
func (s *EvidenceService) Delete(ctx context.Context, orderID, evidenceID int64) error {
	if err := s.evidence.Delete(ctx, evidenceID); err != nil {
		return util.MapError(err)
	}
	return s.recomputeCompleteness(ctx, orderID)
}

// List returns every recorded item for an order, oldest first.
func (s *EvidenceService) List(ctx context.Context, orderID int64) ([]domain.EvidenceItem, error) {
	items, err := s.evidence.ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, util.MapError(err)
	}
	return items, nil
}

// Missing returns the slots that still have no recorded item, in display order.
func (s *EvidenceService) Missing(ctx context.Context, orderID int64) ([]domain.EvidenceType, error) {
	present, err := s.presentTypes(ctx, orderID)
	if err != nil {
		return nil, err
	}
	var missing []domain.EvidenceType
	for _, t := range domain.EvidenceTypes {
		if _, ok := present[t]; !ok {
			missing = append(missing, t)
		}
	}
	return missing, nil
}

// IsComplete reports whether every slot has at least one item.
func (s *EvidenceService) IsComplete(ctx context.Context, orderID int64) (bool, error) {
	missing, err := s.Missing(ctx, orderID)
	if err != nil {
		return false, err
	}
	return len(missing) == 0, nil
}

// EvidenceSummary summarizes ledger completeness.
type EvidenceSummary struct {
	Total                int
	Completed            int
	Missing              []domain.EvidenceType
	CompletionPercentage int
}

// Summary computes completeness counters for an order.
func (s *EvidenceService) Summary(ctx context.Context, orderID int64) (*EvidenceSummary, error) {
	missing, err := s.Missing(ctx, orderID)
	if err != nil {
		return nil, err
	}
	total := len(domain.EvidenceTypes)
	completed := total - len(missing)
	return &EvidenceSummary{
		Total:                total,
		Completed:            completed,
		Missing:              missing,
		CompletionPercentage: int(float64(completed)/float64(total)*100 + 0.5),
	}, nil
}

// ValidateFile checks an upload against the extension whitelist and size cap.
func (s *EvidenceService) ValidateFile(fileName string, size int64) error {
	ext := strings.ToLower(filepath.Ext(fileName))
	if _, ok := allowedEvidenceExtensions[ext]; !ok {
		return util.NewValidationError("unsupported file type", map[string]any{"extension": ext})
	}
	if size > maxEvidenceFileSize {
		return util.NewValidationError("file too large", map[string]any{"max_bytes": maxEvidenceFileSize})
	}
	return nil
}

func (s *EvidenceService) presentTypes(ctx context.Context, orderID int64) (map[domain.EvidenceType]struct{}, error) {
	types, err := s.evidence.DistinctTypes(ctx, orderID)
	if err != nil {
		return nil, util.MapError(err)
	}
	present := make(map[domain.EvidenceType]struct{}, len(types))
	for _, t := range types {
		present[t] = struct{}{}
	}
	return present, nil
}

// recomputeCompleteness is the single write path for order.EvidenceComplete.
func (s *EvidenceService) recomputeCompleteness(ctx context.Context, orderID int64) error {
	complete, err := s.IsComplete(ctx, orderID)
	if err != nil {
		return err
	}
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return util.MapError(err)
	}
	if order.EvidenceComplete == complete {
		return nil
	}
	order.EvidenceComplete = complete
	if err := s.orders.Update(ctx, order); err != nil {
		return util.MapError(err)
	}
	return nil
}
