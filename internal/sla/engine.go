package sla

import (
	"fmt"
	"time"

	"github.com/spec-kit/fieldops-bot/internal/domain"
)

// Status classifies an order against its time-to-install target.
type Status string

const (
	StatusOnTime  Status = "ON_TIME"
	StatusWarning Status = "WARNING"
	StatusOverdue Status = "OVERDUE"
)

// Result is one evaluation of an order against the TTI target.
type Result struct {
	StartTime      time.Time
	EndTime        *time.Time
	Deadline       time.Time
	RemainingHours float64
	TTIHours       float64
	HoldHours      float64
	IsCompliant    bool
	Status         Status
}

// Engine evaluates SLA compliance. It is stateless; now is always passed in
// so evaluations are reproducible.
type Engine struct {
	TTILimit      time.Duration
	WarningWindow time.Duration
}

// NewEngine builds an engine with the given TTI limit and warning window.
func NewEngine(ttiLimit, warningWindow time.Duration) *Engine {
	return &Engine{TTILimit: ttiLimit, WarningWindow: warningWindow}
}

// Evaluate computes the SLA result for one order. The stored deadline is
// authoritative and never recomputed here. For completed orders the status
// derives from compliance of the effective working time, not from the clock.
func (e *Engine) Evaluate(order *domain.Order, progress *domain.Progress, now time.Time) Result {
	res := Result{
		StartTime: order.CreatedAt,
		Deadline:  order.SLADeadline,
		HoldHours: order.HoldDuration().Hours(),
	}

	endTime := completionTime(progress)
	if endTime == nil {
		remaining := order.SLADeadline.Sub(now)
		if remaining < 0 {
			remaining = 0
		}
		res.RemainingHours = remaining.Hours()
		switch {
		case !now.Before(order.SLADeadline):
			res.Status = StatusOverdue
		case order.SLADeadline.Sub(now) <= e.WarningWindow:
			res.Status = StatusWarning
		default:
			res.Status = StatusOnTime
		}
		return res
	}

	res.EndTime = endTime
	effective := endTime.Sub(order.CreatedAt) - order.HoldDuration()
	if effective < 0 {
		effective = 0
	}
	res.TTIHours = effective.Hours()
	res.IsCompliant = effective <= e.TTILimit
	if res.IsCompliant {
		res.Status = StatusOnTime
	} else {
		res.Status = StatusOverdue
	}
	return res
}

// completionTime is the moment the evidence stage finished, nil while the
// order is still in flight.
func completionTime(progress *domain.Progress) *time.Time {
	if progress == nil {
		return nil
	}
	return progress.CompletedAt(domain.StageEvidenceUpload)
}

// FormatStatus renders a result as short operator-facing text.
func FormatStatus(res Result) string {
	if res.EndTime != nil {
		if res.IsCompliant {
			return fmt.Sprintf("Selesai dalam %.1f jam (sesuai SLA)", res.TTIHours)
		}
		return fmt.Sprintf("Selesai dalam %.1f jam (melewati SLA)", res.TTIHours)
	}
	switch res.Status {
	case StatusOverdue:
		return "SLA terlewati"
	case StatusWarning:
		return fmt.Sprintf("Peringatan: sisa %.1f jam", res.RemainingHours)
	default:
		return fmt.Sprintf("Sisa %.1f jam", res.RemainingHours)
	}
}
