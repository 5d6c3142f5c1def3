package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/fieldops-bot/internal/domain"
	"github.com/spec-kit/fieldops-bot/internal/repository"
	"github.com/spec-kit/fieldops-bot/internal/sla"
	"github.com/spec-kit/fieldops-bot/pkg/util"
)

// OrderReport aggregates lifecycle and compliance numbers for a period.
type OrderReport struct {
	Period          string
	TotalOrders     int
	CompletedOrders int
	PendingOrders   int
	InProgress      int
	OnHold          int
	Cancelled       int
	AverageTTIHours float64
	ComplianceRate  float64
}

// ReportService produces SLA and workload summaries for helpdesk.
type ReportService struct {
	orders   repository.OrderRepository
	progress repository.ProgressRepository
	engine   *sla.Engine
	clock    func() time.Time
}

// NewReportService constructs the service.
func NewReportService(orderRepo repository.OrderRepository, progressRepo repository.ProgressRepository, engine *sla.Engine, clock func() time.Time) *ReportService {
	if clock == nil {
		clock = time.Now
	}
	return &ReportService{orders: orderRepo, progress: progressRepo, engine: engine, clock: clock}
}

// Daily builds the report for one calendar day.
func (s *ReportService) Daily(ctx context.Context, day time.Time) (*OrderReport, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	return s.forPeriod(ctx, start, end, start.Format("02/01/2006"))
}

// Weekly builds the report for the seven days starting at start.
func (s *ReportService) Weekly(ctx context.Context, start time.Time) (*OrderReport, error) {
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(7 * 24 * time.Hour)
	label := start.Format("02/01/2006") + " - " + end.Add(-time.Second).Format("02/01/2006")
	return s.forPeriod(ctx, start, end, label)
}

func (s *ReportService) forPeriod(ctx context.Context, start, end time.Time, label string) (*OrderReport, error) {
	orders, err := s.orders.ListWithFilter(ctx, repository.OrderFilter{
		CreatedFrom: &start,
		CreatedTo:   &end,
		Limit:       1000,
	})
	if err != nil {
		return nil, util.MapError(err)
	}

	report := &OrderReport{Period: label, TotalOrders: len(orders)}
	now := s.clock().UTC()
	var totalTTI float64
	var compliant int
	for i := range orders {
		order := &orders[i]
		switch order.Status {
		case domain.OrderStatusClosed:
			report.CompletedOrders++
		case domain.OrderStatusPending:
			report.PendingOrders++
		case domain.OrderStatusInProgress:
			report.InProgress++
		case domain.OrderStatusOnHold:
			report.OnHold++
		case domain.OrderStatusCancelled:
			report.Cancelled++
		}
		if order.Status != domain.OrderStatusClosed {
			continue
		}
		progress, err := s.progress.GetByOrderID(ctx, order.ID)
		if err != nil {
			continue
		}
		result := s.engine.Evaluate(order, progress, now)
		if result.EndTime == nil {
			continue
		}
		totalTTI += result.TTIHours
		if result.IsCompliant {
			compliant++
		}
	}
	if report.CompletedOrders > 0 {
		report.AverageTTIHours = totalTTI / float64(report.CompletedOrders)
		report.ComplianceRate = float64(compliant) / float64(report.CompletedOrders) * 100
	}
	return report, nil
}

// StatusCounts returns the current order counts grouped by status.
func (s *ReportService) StatusCounts(ctx context.Context) (map[domain.OrderStatus]int, error) {
	counts, err := s.orders.CountByStatus(ctx)
	if err != nil {
		return nil, util.MapError(err)
	}
	return counts, nil
}

// Format renders a report as chat text.
func (s *ReportService) Format(report *OrderReport) string {
	var b strings.Builder
	b.WriteString("📊 Laporan Order (" + report.Period + ")\n\n")
	b.WriteString(fmt.Sprintf("Total Order: %d\n", report.TotalOrders))
	b.WriteString(fmt.Sprintf("✅ Selesai: %d\n", report.CompletedOrders))
	b.WriteString(fmt.Sprintf("🔄 Dikerjakan: %d\n", report.InProgress))
	b.WriteString(fmt.Sprintf("⏳ Menunggu: %d\n", report.PendingOrders))
	b.WriteString(fmt.Sprintf("⏸ On Hold: %d\n", report.OnHold))
	b.WriteString(fmt.Sprintf("❌ Dibatalkan: %d\n", report.Cancelled))
	if report.CompletedOrders > 0 {
		b.WriteString(fmt.Sprintf("\nRata-rata TTI: %.1f jam\n", report.AverageTTIHours))
		b.WriteString(fmt.Sprintf("Kepatuhan SLA: %.1f%%\n", report.ComplianceRate))
	}
	return b.String()
}
