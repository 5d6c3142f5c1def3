package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/fieldops-bot/internal/domain"
	"github.com/spec-kit/fieldops-bot/internal/events"
	"github.com/spec-kit/fieldops-bot/internal/repository"
	"github.com/spec-kit/fieldops-bot/internal/sla"
	"github.com/spec-kit/fieldops-bot/pkg/util"
)

// StageOutcome is what a technician reports for the current stage.
type StageOutcome string

const (
	OutcomeStarted   StageOutcome = "STARTED"
	OutcomeCompleted StageOutcome = "COMPLETED"
	OutcomeOnHold    StageOutcome = "ON_HOLD"
)

// OrderService coordinates the order lifecycle.
type OrderService struct {
	orders     repository.OrderRepository
	actors     repository.ActorRepository
	progress   *ProgressService
	evidence   *EvidenceService
	engine     *sla.Engine
	dispatcher events.Dispatcher
	clock      func() time.Time
}

// OrderDependencies bundles collaborators for the order service.
type OrderDependencies struct {
	OrderRepo  repository.OrderRepository
	ActorRepo  repository.ActorRepository
	Progress   *ProgressService
	Evidence   *EvidenceService
	Engine     *sla.Engine
	Dispatcher events.Dispatcher
	Clock      func() time.Time
}

// OrderCreateInput describes order creation payload.
type OrderCreateInput struct {
	CustomerName    string
	CustomerAddress string
	CustomerContact string
	Site            string
	TransactionType string
	ServiceType     string
	AssignedTo      *int64
}

// NewOrderService constructs the service.
func NewOrderService(deps OrderDependencies) *OrderService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &OrderService{
		orders:     deps.OrderRepo,
		actors:     deps.ActorRepo,
		progress:   deps.Progress,
		evidence:   deps.Evidence,
		engine:     deps.Engine,
		dispatcher: deps.Dispatcher,
		clock:      clock,
	}
}

// allowedTransitions maps each order status to its legal successors.
var allowedTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusPending:    {domain.OrderStatusInProgress, domain.OrderStatusCancelled},
	domain.OrderStatusInProgress: {domain.OrderStatusOnHold, domain.OrderStatusClosed, domain.OrderStatusCancelled},
	domain.OrderStatusOnHold:     {domain.OrderStatusInProgress, domain.OrderStatusCancelled},
	domain.OrderStatusClosed:     {},
	domain.OrderStatusCancelled:  {},
}

func isValidTransition(current, next domain.OrderStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Create registers a new installation order for a helpdesk operator.
func (s *OrderService) Create(ctx context.Context, actor *domain.Actor, input OrderCreateInput) (*domain.Order, error) {
	if !actor.Can(domain.CapCreateOrder) {
		return nil, util.NewForbidden("only helpdesk can create orders")
	}
	if strings.TrimSpace(input.CustomerName) == "" {
		return nil, util.NewValidationError("customer name is required", nil)
	}
	if !domain.ValidSiteCode(input.Site) {
		return nil, util.NewValidationError("unknown STO code", map[string]any{"sto": input.Site})
	}
	if !domain.ValidTransactionType(input.TransactionType) {
		return nil, util.NewValidationError("unknown transaction type", map[string]any{"transaction_type": input.TransactionType})
	}
	if !domain.ValidServiceType(input.ServiceType) {
		return nil, util.NewValidationError("unknown service type", map[string]any{"service_type": input.ServiceType})
	}
	if input.AssignedTo != nil {
		if err := s.verifyTechnician(ctx, *input.AssignedTo); err != nil {
			return nil, err
		}
	}

	now := s.clock().UTC()
	order := &domain.Order{
		Number:          generateOrderNumber(),
		CustomerName:    strings.TrimSpace(input.CustomerName),
		CustomerAddress: strings.TrimSpace(input.CustomerAddress),
		CustomerContact: strings.TrimSpace(input.CustomerContact),
		Site:            input.Site,
		TransactionType: input.TransactionType,
		ServiceType:     input.ServiceType,
		CreatedBy:       actor.ID,
		AssignedTo:      input.AssignedTo,
		Status:          domain.OrderStatusPending,
		CurrentStage:    domain.StageSurvey,
		SLADeadline:     now.Add(s.engine.TTILimit),
	}
	if input.AssignedTo != nil {
		order.Status = domain.OrderStatusInProgress
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, util.MapError(err)
	}
	if err := s.progress.Initialize(ctx, order.ID); err != nil {
		return nil, util.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:    events.EventOrderCreated,
		OrderID: order.ID,
		ActorID: actor.ID,
		Payload: events.OrderCreatedPayload{
			OrderNumber:  order.Number,
			CustomerName: order.CustomerName,
			Site:         order.Site,
			SLADeadline:  order.SLADeadline,
		},
	})
	if order.AssignedTo != nil {
		s.publishEvent(ctx, events.Event{
			Type:    events.EventOrderAssigned,
			OrderID: order.ID,
			ActorID: actor.ID,
			Payload: events.OrderAssignedPayload{
				OrderNumber:  order.Number,
				TechnicianID: *order.AssignedTo,
			},
		})
	}
	return order, nil
}

// Assign hands an order to a technician.
func (s *OrderService) Assign(ctx context.Context, actor *domain.Actor, orderID, technicianID int64) (*domain.Order, error) {
	if !actor.Can(domain.CapAssignTechnician) {
		return nil, util.NewForbidden("only helpdesk can assign technicians")
	}
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, util.MapError(err)
	}
	if order.Status.Terminal() {
		return nil, util.NewConflict("order already closed", map[string]any{"status": order.Status})
	}
	if err := s.verifyTechnician(ctx, technicianID); err != nil {
		return nil, err
	}

	order.AssignedTo = &technicianID
	if order.Status == domain.OrderStatusPending {
		order.Status = domain.OrderStatusInProgress
	}
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, util.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventOrderAssigned,
		OrderID: order.ID,
		ActorID: actor.ID,
		Payload: events.OrderAssignedPayload{
			OrderNumber:  order.Number,
			TechnicianID: technicianID,
		},
	})
	return order, nil
}

// ReportStageOutcome records what happened at the order's current stage.
func (s *OrderService) ReportStageOutcome(ctx context.Context, actor *domain.Actor, orderID int64, stage domain.Stage, outcome StageOutcome, notes string) (*domain.Order, error) {
	if !actor.Can(domain.CapUpdateProgress) {
		return nil, util.NewForbidden("only technicians can report progress")
	}
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, util.MapError(err)
	}
	if order.AssignedTo == nil || *order.AssignedTo != actor.ID {
		return nil, util.NewForbidden("order is assigned to another technician")
	}
	if order.Status.Terminal() {
		return nil, util.NewConflict("order already closed", map[string]any{"status": order.Status})
	}
	if stage != order.CurrentStage {
		return nil, util.NewConflict("stage is not the order's current stage", map[string]any{
			"reported": stage,
			"current":  order.CurrentStage,
		})
	}

	switch outcome {
	case OutcomeStarted:
		return s.startStage(ctx, actor, order, stage, notes)
	case OutcomeCompleted:
		return s.completeStage(ctx, actor, order, stage, notes)
	case OutcomeOnHold:
		return s.holdOrder(ctx, actor, order, stage, notes)
	default:
		return nil, util.NewValidationError("unknown stage outcome", map[string]any{"outcome": outcome})
	}
}

func (s *OrderService) startStage(ctx context.Context, actor *domain.Actor, order *domain.Order, stage domain.Stage, notes string) (*domain.Order, error) {
	// Un-holding closes the hold interval, which only helpdesk Resume does.
	if order.Status == domain.OrderStatusOnHold {
		return nil, util.NewConflict("order is on hold; ask helpdesk to resume it", map[string]any{"status": order.Status})
	}
	if _, err := s.progress.UpdateStage(ctx, order.ID, stage, domain.StageInProgress, notes, actor.ID); err != nil {
		return nil, err
	}
	if order.Status != domain.OrderStatusInProgress {
		if !isValidTransition(order.Status, domain.OrderStatusInProgress) {
			return nil, util.NewConflict("invalid status transition", map[string]any{"from": order.Status})
		}
		order.Status = domain.OrderStatusInProgress
		if err := s.orders.Update(ctx, order); err != nil {
			return nil, util.MapError(err)
		}
	}
	return order, nil
}

func (s *OrderService) completeStage(ctx context.Context, actor *domain.Actor, order *domain.Order, stage domain.Stage, notes string) (*domain.Order, error) {
	if stage == domain.StageEvidenceUpload {
		missing, err := s.evidence.Missing(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		if len(missing) > 0 {
			s.publishEvent(ctx, events.Event{
				Type:    events.EventEvidenceIncomplete,
				OrderID: order.ID,
				ActorID: actor.ID,
				Payload: events.EvidenceIncompletePayload{
					OrderNumber:  order.Number,
					MissingTypes: missing,
				},
			})
			return nil, util.NewConflict("evidence ledger incomplete", map[string]any{"missing": missing})
		}
	}

	progress, err := s.progress.UpdateStage(ctx, order.ID, stage, domain.StageDone, notes, actor.ID)
	if err != nil {
		return nil, err
	}

	oldStage := order.CurrentStage
	next, hasNext := domain.NextWorkStage(stage)
	if hasNext {
		order.CurrentStage = next
		if err := s.orders.Update(ctx, order); err != nil {
			return nil, util.MapError(err)
		}
		s.publishEvent(ctx, events.Event{
			Type:    events.EventOrderStageChanged,
			OrderID: order.ID,
			ActorID: actor.ID,
			Payload: events.OrderStageChangedPayload{
				OrderNumber: order.Number,
				OldStage:    oldStage,
				NewStage:    next,
				Notes:       notes,
			},
		})
		return order, nil
	}

	if !isValidTransition(order.Status, domain.OrderStatusClosed) {
		return nil, util.NewConflict("invalid status transition", map[string]any{"from": order.Status})
	}
	now := s.clock().UTC()
	order.CurrentStage = domain.StageCompleted
	order.Status = domain.OrderStatusClosed
	order.ClosedAt = &now
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, util.MapError(err)
	}
	result := s.engine.Evaluate(order, progress, now)
	s.publishEvent(ctx, events.Event{
		Type:    events.EventOrderCompleted,
		OrderID: order.ID,
		ActorID: actor.ID,
		Payload: events.OrderCompletedPayload{
			OrderNumber: order.Number,
			TTIHours:    result.TTIHours,
			IsCompliant: result.IsCompliant,
		},
	})
	return order, nil
}

func (s *OrderService) holdOrder(ctx context.Context, actor *domain.Actor, order *domain.Order, stage domain.Stage, reason string) (*domain.Order, error) {
	if !isValidTransition(order.Status, domain.OrderStatusOnHold) {
		return nil, util.NewConflict("invalid status transition", map[string]any{"from": order.Status})
	}
	if _, err := s.progress.UpdateStage(ctx, order.ID, stage, domain.StageOnHold, reason, actor.ID); err != nil {
		return nil, err
	}
	now := s.clock().UTC()
	order.Status = domain.OrderStatusOnHold
	order.HoldStartedAt = &now
	order.HoldEndedAt = nil
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, util.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventOrderOnHold,
		OrderID: order.ID,
		ActorID: actor.ID,
		Payload: events.OrderOnHoldPayload{
			OrderNumber: order.Number,
			Stage:       stage,
			Reason:      reason,
		},
	})
	return order, nil
}

// Resume takes an order off hold once the network blocker is cleared.
func (s *OrderService) Resume(ctx context.Context, actor *domain.Actor, orderID int64) (*domain.Order, error) {
	if !actor.Can(domain.CapResumeOrder) {
		return nil, util.NewForbidden("only helpdesk can resume orders")
	}
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, util.MapError(err)
	}
	if order.Status != domain.OrderStatusOnHold {
		return nil, util.NewConflict("order is not on hold", map[string]any{"status": order.Status})
	}
	now := s.clock().UTC()
	order.Status = domain.OrderStatusInProgress
	order.HoldEndedAt = &now
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, util.MapError(err)
	}
	if _, err := s.progress.UpdateStage(ctx, order.ID, order.CurrentStage, domain.StageInProgress, "", actor.ID); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventOrderResumed,
		OrderID: order.ID,
		ActorID: actor.ID,
		Payload: events.OrderResumedPayload{
			OrderNumber: order.Number,
			NewDeadline: order.SLADeadline,
		},
	})
	return order, nil
}

// Cancel terminates a non-closed order.
func (s *OrderService) Cancel(ctx context.Context, actor *domain.Actor, orderID int64, reason string) (*domain.Order, error) {
	if !actor.Can(domain.CapCancelOrder) {
		return nil, util.NewForbidden("only helpdesk can cancel orders")
	}
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, util.MapError(err)
	}
	if order.Status.Terminal() {
		return nil, util.NewConflict("order already closed", map[string]any{"status": order.Status})
	}
	now := s.clock().UTC()
	order.Status = domain.OrderStatusCancelled
	order.ClosedAt = &now
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, util.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventOrderCancelled,
		OrderID: order.ID,
		ActorID: actor.ID,
		Payload: events.OrderCancelledPayload{
			OrderNumber: order.Number,
			Reason:      reason,
		},
	})
	return order, nil
}

// Get fetches an order without access checks.
func (s *OrderService) Get(ctx context.Context, orderID int64) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, util.MapError(err)
	}
	return order, nil
}

// GetByNumber fetches an order by its display number.
func (s *OrderService) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	order, err := s.orders.GetByNumber(ctx, number)
	if err != nil {
		return nil, util.MapError(err)
	}
	return order, nil
}

// GetForActor fetches an order ensuring the actor may see it. Technicians
// see only assigned orders, helpdesk only their own.
func (s *OrderService) GetForActor(ctx context.Context, actor *domain.Actor, orderID int64) (*domain.Order, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !s.actorCanAccess(actor, order) {
		return nil, util.NewForbidden("access denied")
	}
	return order, nil
}

// ListFilter narrows actor-visible order listings.
type ListFilter struct {
	Statuses []domain.OrderStatus
	Limit    int
	Offset   int
}

// ListForActor returns the orders visible to the actor.
func (s *OrderService) ListForActor(ctx context.Context, actor *domain.Actor, filter ListFilter) ([]domain.Order, error) {
	repoFilter := repository.OrderFilter{
		Statuses: filter.Statuses,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}
	switch actor.Role {
	case domain.RoleHelpdesk:
		createdBy := actor.ID
		repoFilter.CreatedBy = &createdBy
	case domain.RoleTechnician:
		assignedTo := actor.ID
		repoFilter.AssignedTo = &assignedTo
	default:
		return nil, util.NewForbidden("unknown role")
	}
	orders, err := s.orders.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, util.MapError(err)
	}
	return orders, nil
}

// EvaluateSLA runs the compliance engine for one order.
func (s *OrderService) EvaluateSLA(ctx context.Context, orderID int64) (*domain.Order, sla.Result, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, sla.Result{}, err
	}
	progress, err := s.progress.Get(ctx, orderID)
	if err != nil {
		return nil, sla.Result{}, err
	}
	return order, s.engine.Evaluate(order, progress, s.clock().UTC()), nil
}

func (s *OrderService) actorCanAccess(actor *domain.Actor, order *domain.Order) bool {
	if actor == nil || !actor.Can(domain.CapViewOrderDetails) {
		return false
	}
	switch actor.Role {
	case domain.RoleHelpdesk:
		return order.CreatedBy == actor.ID
	case domain.RoleTechnician:
		return order.AssignedTo != nil && *order.AssignedTo == actor.ID
	default:
		return false
	}
}

func (s *OrderService) verifyTechnician(ctx context.Context, technicianID int64) error {
	tech, err := s.actors.GetByID(ctx, technicianID)
	if err != nil {
		return util.MapError(err)
	}
	if tech.Role != domain.RoleTechnician || !tech.Active {
		return util.NewValidationError("assignee must be an active technician", map[string]any{"technician_id": technicianID})
	}
	return nil
}

func generateOrderNumber() string {
	return "ORD-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func (s *OrderService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock().UTC()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
