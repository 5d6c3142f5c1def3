package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/fieldops-bot/internal/domain"
	"github.com/spec-kit/fieldops-bot/internal/events"
	"github.com/spec-kit/fieldops-bot/internal/sla"
	"github.com/spec-kit/fieldops-bot/pkg/util"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) record(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) ofType(t events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type orderFixture struct {
	actors   *fakeActorRepo
	orders   *fakeOrderRepo
	evidence *EvidenceService
	svc      *OrderService
	recorder *eventRecorder
	now      time.Time
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	f := &orderFixture{now: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return f.now }

	actorRepo := newFakeActorRepo()
	orderRepo := newFakeOrderRepo()
	progressRepo := newFakeProgressRepo()
	evidenceRepo := newFakeEvidenceRepo()

	recorder := &eventRecorder{}
	dispatcher := events.NewInMemoryDispatcher()
	for _, eventType := range []events.EventType{
		events.EventOrderCreated, events.EventOrderAssigned, events.EventOrderStageChanged,
		events.EventOrderOnHold, events.EventOrderResumed, events.EventOrderCompleted,
		events.EventOrderCancelled, events.EventEvidenceIncomplete,
	} {
		dispatcher.Subscribe(eventType, recorder.record)
	}

	evidence := NewEvidenceService(evidenceRepo, orderRepo)
	svc := NewOrderService(OrderDependencies{
		OrderRepo:  orderRepo,
		ActorRepo:  actorRepo,
		Progress:   NewProgressService(progressRepo, clock),
		Evidence:   evidence,
		Engine:     sla.NewEngine(72*time.Hour, 12*time.Hour),
		Dispatcher: dispatcher,
		Clock:      clock,
	})
	f.actors = actorRepo
	f.orders = orderRepo
	f.evidence = evidence
	f.svc = svc
	f.recorder = recorder
	return f
}

func (f *orderFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *orderFixture) helpdesk(t *testing.T) *domain.Actor {
	t.Helper()
	actor := &domain.Actor{TelegramID: 100, FullName: "Rina HD", Role: domain.RoleHelpdesk, Active: true}
	require.NoError(t, f.actors.Create(context.Background(), actor))
	return actor
}

func (f *orderFixture) technician(t *testing.T) *domain.Actor {
	t.Helper()
	actor := &domain.Actor{TelegramID: 200, FullName: "Budi Teknisi", Role: domain.RoleTechnician, Active: true}
	require.NoError(t, f.actors.Create(context.Background(), actor))
	return actor
}

func validOrderInput(assignedTo *int64) OrderCreateInput {
	return OrderCreateInput{
		CustomerName:    "PT Maju Jaya",
		CustomerAddress: "Jl. Sudirman No. 1",
		CustomerContact: "08123456789",
		Site:            "KBY",
		TransactionType: "New Install",
		ServiceType:     "Astinet",
		AssignedTo:      assignedTo,
	}
}

func TestCreateOrderUnassigned(t *testing.T) {
	f := newOrderFixture(t)
	hd := f.helpdesk(t)

	order, err := f.svc.Create(context.Background(), hd, validOrderInput(nil))
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, domain.StageSurvey, order.CurrentStage)
	assert.Equal(t, f.now.Add(72*time.Hour), order.SLADeadline)
	assert.NotEmpty(t, order.Number)
	assert.Nil(t, order.AssignedTo)

	progress, err := f.svc.progress.Get(context.Background(), order.ID)
	require.NoError(t, err)
	for _, stage := range domain.WorkStages {
		assert.Equal(t, domain.StagePending, progress.StageRecord(stage).Status)
	}

	assert.Len(t, f.recorder.ofType(events.EventOrderCreated), 1)
	assert.Empty(t, f.recorder.ofType(events.EventOrderAssigned))
}

func TestCreateOrderWithTechnician(t *testing.T) {
	f := newOrderFixture(t)
	hd := f.helpdesk(t)
	tech := f.technician(t)

	order, err := f.svc.Create(context.Background(), hd, validOrderInput(&tech.ID))
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusInProgress, order.Status)
	require.NotNil(t, order.AssignedTo)
	assert.Equal(t, tech.ID, *order.AssignedTo)

	assigned := f.recorder.ofType(events.EventOrderAssigned)
	require.Len(t, assigned, 1)
	payload, ok := assigned[0].Payload.(events.OrderAssignedPayload)
	require.True(t, ok)
	assert.Equal(t, tech.ID, payload.TechnicianID)
}

func TestCreateOrderRejectsTechnicianActor(t *testing.T) {
	f := newOrderFixture(t)
	tech := f.technician(t)

	_, err := f.svc.Create(context.Background(), tech, validOrderInput(nil))
	assert.True(t, util.IsCode(err, "FORBIDDEN"))
}

func TestCreateOrderValidatesEnums(t *testing.T) {
	f := newOrderFixture(t)
	hd := f.helpdesk(t)

	input := validOrderInput(nil)
	input.Site = "XXX"
	_, err := f.svc.Create(context.Background(), hd, input)
	assert.True(t, util.IsCode(err, "VALIDATION_FAILED"))

	input = validOrderInput(nil)
	input.TransactionType = "Upgrade"
	_, err = f.svc.Create(context.Background(), hd, input)
	assert.True(t, util.IsCode(err, "VALIDATION_FAILED"))

	input = validOrderInput(nil)
	input.CustomerName = "  "
	_, err = f.svc.Create(context.Background(), hd, input)
	assert.True(t, util.IsCode(err, "VALIDATION_FAILED"))
}

func TestAssignRejectsInactiveTechnician(t *testing.T) {
	f := newOrderFixture(t)
	hd := f.helpdesk(t)
	tech := f.technician(t)

	order, err := f.svc.Create(context.Background(), hd, validOrderInput(nil))
	require.NoError(t, err)

	tech.Active = false
	require.NoError(t, f.actors.Update(context.Background(), tech))

	_, err = f.svc.Assign(context.Background(), hd, order.ID, tech.ID)
	assert.Error(t, err)
}

func TestReportStageOutcomeGuards(t *testing.T) {
	f := newOrderFixture(t)
	hd := f.helpdesk(t)
	tech := f.technician(t)
	other := &domain.Actor{TelegramID: 300, FullName: "Andi Teknisi", Role: domain.RoleTechnician, Active: true}
	require.NoError(t, f.actors.Create(context.Background(), other))

	order, err := f.svc.Create(context.Background(), hd, validOrderInput(&tech.ID))
	require.NoError(t, err)

	_, err = f.svc.ReportStageOutcome(context.Background(), other, order.ID, domain.StageSurvey, OutcomeCompleted, "")
	assert.True(t, util.IsCode(err, "FORBIDDEN"), "non-assignee must be rejected")

	_, err = f.svc.ReportStageOutcome(context.Background(), tech, order.ID, domain.StageCablePull, OutcomeCompleted, "")
	assert.True(t, util.IsCode(err, "CONFLICT"), "only the current stage may be reported")

	_, err = f.svc.ReportStageOutcome(context.Background(), hd, order.ID, domain.StageSurvey, OutcomeCompleted, "")
	assert.True(t, util.IsCode(err, "FORBIDDEN"), "helpdesk cannot report progress")
}

func TestCompleteStageAdvancesOrder(t *testing.T) {
	f := newOrderFixture(t)
	hd := f.helpdesk(t)
	tech := f.technician(t)

	order, err := f.svc.Create(context.Background(), hd, validOrderInput(&tech.ID))
	require.NoError(t, err)

	updated, err := f.svc.ReportStageOutcome(context.Background(), tech, order.ID, domain.StageSurvey, OutcomeCompleted, "lokasi ok")
	require.NoError(t, err)
	assert.Equal(t, domain.StageCablePull, updated.CurrentStage)
	assert.Equal(t, domain.OrderStatusInProgress, updated.Status)

	progress, err := f.svc.progress.Get(context.Background(), order.ID)
	require.NoError(t, err)
	rec := progress.StageRecord(domain.StageSurvey)
	assert.Equal(t, domain.StageDone, rec.Status)
	assert.Equal(t, "lokasi ok", rec.Notes)
	require.NotNil(t, rec.CompletedAt)

	assert.Len(t, f.recorder.ofType(events.EventOrderStageChanged), 1)
}

func TestEvidenceGuardBlocksClosing(t *testing.T) {
	f := newOrderFixture(t)
	hd := f.helpdesk(t)
	tech := f.technician(t)

	order, err := f.svc.Create(context.Background(), hd, validOrderInput(&tech.ID))
	require.NoError(t, err)

	for _, stage := range []domain.Stage{domain.StageSurvey, domain.StageCablePull, domain.StageONTInstall} {
		_, err = f.svc.ReportStageOutcome(context.Background(), tech, order.ID, stage, OutcomeCompleted, "")
		require.NoError(t, err)
	}

	_, err = f.svc.ReportStageOutcome(context.Background(), tech, order.ID, domain.StageEvidenceUpload, OutcomeCompleted, "")
	assert.True(t, util.IsCode(err, "CONFLICT"))
	assert.Len(t, f.recorder.ofType(events.EventEvidenceIncomplete), 1)

	current, err := f.svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusInProgress, current.Status)
	assert.Equal(t, domain.StageEvidenceUpload, current.CurrentStage)
}

func TestFullEvidenceClosesOrder(t *testing.T) {
	f := newOrderFixture(t)
	hd := f.helpdesk(t)
	tech := f.technician(t)

	order, err := f.svc.Create(context.Background(), hd, validOrderInput(&tech.ID))
	require.NoError(t, err)

	for _, stage := range []domain.Stage{domain.StageSurvey, domain.StageCablePull, domain.StageONTInstall} {
		_, err = f.svc.ReportStageOutcome(context.Background(), tech, order.ID, stage, OutcomeCompleted, "")
		require.NoError(t, err)
	}
	fillEvidence(t, f, order.ID, tech.ID)

	closed, err := f.svc.ReportStageOutcome(context.Background(), tech, order.ID, domain.StageEvidenceUpload, OutcomeCompleted, "")
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusClosed, closed.Status)
	assert.Equal(t, domain.StageCompleted, closed.CurrentStage)
	require.NotNil(t, closed.ClosedAt)
	assert.Equal(t, f.now, *closed.ClosedAt)

	completed := f.recorder.ofType(events.EventOrderCompleted)
	require.Len(t, completed, 1)
	payload, ok := completed[0].Payload.(events.OrderCompletedPayload)
	require.True(t, ok)
	assert.True(t, payload.IsCompliant)
}

func TestCompletionOverTwentyHoursYieldsCompliantTTI(t *testing.T) {
	f := newOrderFixture(t)
	hd := f.helpdesk(t)
	tech := f.technician(t)

	order, err := f.svc.Create(context.Background(), hd, validOrderInput(&tech.ID))
	require.NoError(t, err)

	for _, stage := range []domain.Stage{domain.StageSurvey, domain.StageCablePull, domain.StageONTInstall} {
		f.advance(5 * time.Hour)
		_, err = f.svc.ReportStageOutcome(context.Background(), tech, order.ID, stage, OutcomeCompleted, "")
		require.NoError(t, err)
	}
	fillEvidence(t, f, order.ID, tech.ID)

	f.advance(5 * time.Hour)
	closed, err := f.svc.ReportStageOutcome(context.Background(), tech, order.ID, domain.StageEvidenceUpload, OutcomeCompleted, "")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusClosed, closed.Status)

	completed := f.recorder.ofType(events.EventOrderCompleted)
	require.Len(t, completed, 1)
	payload, ok := completed[0].Payload.(events.OrderCompletedPayload)
	require.True(t, ok)
	assert.InDelta(t, 20.0, payload.TTIHours, 0.01)
	assert.True(t, payload.IsCompliant)
}

func TestStartedRejectedWhileOnHold(t *testing.T) {
	f := newOrderFixture(t)
	hd := f.helpdesk(t)
	tech := f.technician(t)

	order, err := f.svc.Create(context.Background(), hd, validOrderInput(&tech.ID))
	require.NoError(t, err)

	_, err = f.svc.ReportStageOutcome(context.Background(), tech, order.ID, domain.StageSurvey, OutcomeOnHold, "jaringan belum ready")
	require.NoError(t, err)

	f.advance(4 * time.Hour)
	_, err = f.svc.ReportStageOutcome(context.Background(), tech, order.ID, domain.StageSurvey, OutcomeStarted, "")
	assert.True(t, util.IsCode(err, "CONFLICT"), "technicians cannot un-hold by reporting STARTED")

	held, err := f.svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusOnHold, held.Status)
	assert.Nil(t, held.HoldEndedAt)

	resumed, err := f.svc.Resume(context.Background(), hd, order.ID)
	require.NoError(t, err)
	require.NotNil(t, resumed.HoldEndedAt)
	assert.Equal(t, 4*time.Hour, resumed.HoldDuration())
}

func TestHoldAndResume(t *testing.T) {
	f := newOrderFixture(t)
	hd := f.helpdesk(t)
	tech := f.technician(t)

	order, err := f.svc.Create(context.Background(), hd, validOrderInput(&tech.ID))
	require.NoError(t, err)

	held, err := f.svc.ReportStageOutcome(context.Background(), tech, order.ID, domain.StageSurvey, OutcomeOnHold, "jaringan belum ready")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusOnHold, held.Status)
	require.NotNil(t, held.HoldStartedAt)
	assert.Nil(t, held.HoldEndedAt)
	assert.Len(t, f.recorder.ofType(events.EventOrderOnHold), 1)

	_, err = f.svc.ReportStageOutcome(context.Background(), tech, order.ID, domain.StageSurvey, OutcomeOnHold, "lagi")
	assert.True(t, util.IsCode(err, "CONFLICT"), "holding an on-hold order must be rejected")

	_, err = f.svc.Resume(context.Background(), tech, order.ID)
	assert.True(t, util.IsCode(err, "FORBIDDEN"), "technicians cannot resume")

	resumed, err := f.svc.Resume(context.Background(), hd, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusInProgress, resumed.Status)
	require.NotNil(t, resumed.HoldEndedAt)
	assert.Len(t, f.recorder.ofType(events.EventOrderResumed), 1)

	_, err = f.svc.Resume(context.Background(), hd, order.ID)
	assert.True(t, util.IsCode(err, "CONFLICT"), "only on-hold orders can be resumed")
}

func TestCancelRejectsTerminalOrder(t *testing.T) {
	f := newOrderFixture(t)
	hd := f.helpdesk(t)

	order, err := f.svc.Create(context.Background(), hd, validOrderInput(nil))
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(context.Background(), hd, order.ID, "pelanggan batal")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.ClosedAt)

	_, err = f.svc.Cancel(context.Background(), hd, order.ID, "lagi")
	assert.True(t, util.IsCode(err, "CONFLICT"))
}

func TestGetForActorAccessControl(t *testing.T) {
	f := newOrderFixture(t)
	hd := f.helpdesk(t)
	tech := f.technician(t)
	other := &domain.Actor{TelegramID: 300, FullName: "Andi Teknisi", Role: domain.RoleTechnician, Active: true}
	require.NoError(t, f.actors.Create(context.Background(), other))

	order, err := f.svc.Create(context.Background(), hd, validOrderInput(&tech.ID))
	require.NoError(t, err)

	got, err := f.svc.GetForActor(context.Background(), tech, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	got, err = f.svc.GetForActor(context.Background(), hd, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = f.svc.GetForActor(context.Background(), other, order.ID)
	assert.True(t, util.IsCode(err, "FORBIDDEN"))
}

func fillEvidence(t *testing.T, f *orderFixture, orderID, actorID int64) {
	t.Helper()
	ctx := context.Background()
	for _, evidenceType := range domain.EvidenceTypes {
		var err error
		if evidenceType.IsText() {
			_, err = f.evidence.RecordText(ctx, orderID, evidenceType, "ODP-KBY-001", actorID)
		} else {
			_, err = f.evidence.RecordFile(ctx, orderID, evidenceType, "file-id-123", "foto.jpg", actorID)
		}
		require.NoError(t, err)
	}
}
