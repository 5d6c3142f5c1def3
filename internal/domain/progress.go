package domain

import "time"

// StageStatus enumerates states of a single workflow stage.
type StageStatus string

const (
	StagePending    StageStatus = "PENDING"
	StageInProgress StageStatus = "IN_PROGRESS"
	StageDone       StageStatus = "COMPLETED"
	StageOnHold     StageStatus = "ON_HOLD"
)

// StageProgress holds the per-stage record for one order.
type StageProgress struct {
	Status      StageStatus
	StartedAt   *time.Time
	CompletedAt *time.Time
	Notes       string
	UpdatedBy   int64
}

// Progress aggregates the four stage records for one order.
type Progress struct {
	OrderID   int64
	Stages    map[Stage]StageProgress
	UpdatedAt time.Time
}

// StageRecord returns the record for a work stage, defaulting to PENDING.
func (p *Progress) StageRecord(stage Stage) StageProgress {
	if p == nil || p.Stages == nil {
		return StageProgress{Status: StagePending}
	}
	rec, ok := p.Stages[stage]
	if !ok {
		return StageProgress{Status: StagePending}
	}
	if rec.Status == "" {
		rec.Status = StagePending
	}
	return rec
}

// StageCompleted reports whether a work stage is done.
func (p *Progress) StageCompleted(stage Stage) bool {
	return p.StageRecord(stage).Status == StageDone
}

// AllComplete reports whether every work stage is done.
func (p *Progress) AllComplete() bool {
	for _, stage := range WorkStages {
		if !p.StageCompleted(stage) {
			return false
		}
	}
	return true
}

// CompletedAt returns when the given stage finished, nil when it has not.
func (p *Progress) CompletedAt(stage Stage) *time.Time {
	rec := p.StageRecord(stage)
	if rec.Status != StageDone {
		return nil
	}
	return rec.CompletedAt
}
