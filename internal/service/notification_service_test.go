package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/fieldops-bot/internal/domain"
	"github.com/spec-kit/fieldops-bot/internal/sla"
	"github.com/spec-kit/fieldops-bot/pkg/util"
)

type notifyFixture struct {
	svc           *NotificationService
	actors        *fakeActorRepo
	orders        *fakeOrderRepo
	notifications *fakeNotificationRepo
	sender        *fakeSender
	now           time.Time
}

func newNotifyFixture(t *testing.T) *notifyFixture {
	t.Helper()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	f := &notifyFixture{
		actors:        newFakeActorRepo(),
		orders:        newFakeOrderRepo(),
		notifications: newFakeNotificationRepo(),
		sender:        &fakeSender{},
		now:           now,
	}
	f.svc = NewNotificationService(NotificationDependencies{
		NotificationRepo: f.notifications,
		ActorRepo:        f.actors,
		OrderRepo:        f.orders,
		Engine:           sla.NewEngine(72*time.Hour, 12*time.Hour),
		Sender:           f.sender,
		Sweep: SweepConfig{
			StaleProgressAfter: 2 * time.Hour,
			DeadlineWindow:     6 * time.Hour,
			DedupWindow:        6 * time.Hour,
		},
		Clock: func() time.Time { return now },
	})
	return f
}

// backdate rewinds an order's updated_at so the staleness cutoff catches it.
func (f *notifyFixture) backdate(orderID int64, age time.Duration) {
	stored := f.orders.orders[orderID]
	stored.UpdatedAt = f.now.Add(-age)
	f.orders.orders[orderID] = stored
}

func (f *notifyFixture) addTechnician(t *testing.T, telegramID int64) *domain.Actor {
	t.Helper()
	actor := &domain.Actor{TelegramID: telegramID, FullName: "Budi Teknisi", Role: domain.RoleTechnician, Active: true}
	require.NoError(t, f.actors.Create(context.Background(), actor))
	return actor
}

func TestNotifyRendersTemplateAndPersists(t *testing.T) {
	f := newNotifyFixture(t)
	tech := f.addTechnician(t, 555)
	orderID := int64(42)

	err := f.svc.Notify(context.Background(), tech.ID, domain.NotifyOrderAssigned, &orderID, map[string]string{
		"order_number":     "ORD-AAAA1111",
		"customer_name":    "PT Maju Jaya",
		"customer_address": "Jl. Sudirman No. 1",
		"service_type":     "Astinet",
	})
	require.NoError(t, err)

	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, int64(555), f.sender.sent[0].chatID)
	assert.Contains(t, f.sender.sent[0].text, "ORD-AAAA1111")
	assert.Contains(t, f.sender.sent[0].text, "PT Maju Jaya")
	assert.NotContains(t, f.sender.sent[0].text, "{order_number}")

	require.Len(t, f.notifications.notifications, 1)
	row := f.notifications.notifications[0]
	assert.Equal(t, domain.NotifyOrderAssigned, row.Type)
	assert.Equal(t, domain.PriorityHigh, row.Priority)
	require.NotNil(t, row.OrderID)
	assert.Equal(t, orderID, *row.OrderID)
}

func TestInboxAndMarkRead(t *testing.T) {
	f := newNotifyFixture(t)
	tech := f.addTechnician(t, 555)
	other := &domain.Actor{TelegramID: 556, FullName: "Andi Teknisi", Role: domain.RoleTechnician, Active: true}
	require.NoError(t, f.actors.Create(context.Background(), other))
	orderID := int64(42)

	require.NoError(t, f.svc.Notify(context.Background(), tech.ID, domain.NotifyOrderAssigned, &orderID, map[string]string{
		"order_number": "ORD-AAAA1111",
	}))

	inbox, err := f.svc.Inbox(context.Background(), tech.ID, 20, 0)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Nil(t, inbox[0].ReadAt)

	err = f.svc.MarkRead(context.Background(), inbox[0].ID, other.ID)
	assert.True(t, util.IsCode(err, "NOT_FOUND"), "cannot read someone else's notification")

	require.NoError(t, f.svc.MarkRead(context.Background(), inbox[0].ID, tech.ID))
	inbox, err = f.svc.Inbox(context.Background(), tech.ID, 20, 0)
	require.NoError(t, err)
	require.NotNil(t, inbox[0].ReadAt)

	err = f.svc.MarkRead(context.Background(), inbox[0].ID, tech.ID)
	assert.True(t, util.IsCode(err, "NOT_FOUND"), "marking twice is rejected")

	empty, err := f.svc.Inbox(context.Background(), other.ID, 20, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestNotifyKeepsRowOnTransportFailure(t *testing.T) {
	f := newNotifyFixture(t)
	tech := f.addTechnician(t, 555)
	f.sender.fail = true

	err := f.svc.Notify(context.Background(), tech.ID, domain.NotifyOrderCompleted, nil, nil)
	require.NoError(t, err, "transport failure must not surface")
	assert.Len(t, f.notifications.notifications, 1)
	assert.Empty(t, f.sender.sent)
}

func TestNotifyUnknownTemplate(t *testing.T) {
	f := newNotifyFixture(t)
	tech := f.addTechnician(t, 555)

	err := f.svc.Notify(context.Background(), tech.ID, domain.NotificationType("NOPE"), nil, nil)
	assert.Error(t, err)
}

func TestStaleProgressSweepDedup(t *testing.T) {
	f := newNotifyFixture(t)
	tech := f.addTechnician(t, 555)
	ctx := context.Background()

	order := &domain.Order{
		Number:       "ORD-AAAA1111",
		CustomerName: "PT Maju Jaya",
		Status:       domain.OrderStatusInProgress,
		CurrentStage: domain.StageSurvey,
		AssignedTo:   &tech.ID,
		SLADeadline:  f.now.Add(48 * time.Hour),
	}
	require.NoError(t, f.orders.Create(ctx, order))
	f.backdate(order.ID, 3*time.Hour)

	require.NoError(t, f.svc.RunStaleProgressSweep(ctx))
	assert.Len(t, f.sender.sent, 1)
	assert.Contains(t, f.sender.sent[0].text, "Reminder Update Progress")

	// Second run inside the dedup window stays quiet.
	f.backdate(order.ID, 3*time.Hour)
	require.NoError(t, f.svc.RunStaleProgressSweep(ctx))
	assert.Len(t, f.sender.sent, 1)
}

func TestStaleProgressSweepSkipsUnassigned(t *testing.T) {
	f := newNotifyFixture(t)
	ctx := context.Background()

	order := &domain.Order{
		Number:       "ORD-BBBB2222",
		CustomerName: "PT Sentosa",
		Status:       domain.OrderStatusPending,
		CurrentStage: domain.StageSurvey,
		SLADeadline:  f.now.Add(48 * time.Hour),
	}
	require.NoError(t, f.orders.Create(ctx, order))
	f.backdate(order.ID, 3*time.Hour)

	require.NoError(t, f.svc.RunStaleProgressSweep(ctx))
	assert.Empty(t, f.sender.sent)
}

func TestDeadlineWarningSweep(t *testing.T) {
	f := newNotifyFixture(t)
	tech := f.addTechnician(t, 555)
	hd := &domain.Actor{TelegramID: 666, FullName: "Rina HD", Role: domain.RoleHelpdesk, Active: true}
	require.NoError(t, f.actors.Create(context.Background(), hd))
	ctx := context.Background()

	near := &domain.Order{
		Number:       "ORD-CCCC3333",
		CustomerName: "PT Maju Jaya",
		CreatedBy:    hd.ID,
		AssignedTo:   &tech.ID,
		Status:       domain.OrderStatusInProgress,
		CurrentStage: domain.StageONTInstall,
		CreatedAt:    f.now.Add(-69 * time.Hour),
		SLADeadline:  f.now.Add(3 * time.Hour),
	}
	require.NoError(t, f.orders.Create(ctx, near))

	far := &domain.Order{
		Number:       "ORD-DDDD4444",
		CustomerName: "PT Sentosa",
		CreatedBy:    hd.ID,
		Status:       domain.OrderStatusPending,
		CurrentStage: domain.StageSurvey,
		SLADeadline:  f.now.Add(48 * time.Hour),
	}
	require.NoError(t, f.orders.Create(ctx, far))

	require.NoError(t, f.svc.RunDeadlineWarningSweep(ctx))

	// Assignee and creator each get a warning for the near-deadline order only.
	require.Len(t, f.sender.sent, 2)
	for _, msg := range f.sender.sent {
		assert.Contains(t, msg.text, "ORD-CCCC3333")
		assert.Contains(t, msg.text, "Peringatan SLA")
	}

	// Rerun inside the dedup window adds nothing.
	require.NoError(t, f.svc.RunDeadlineWarningSweep(ctx))
	assert.Len(t, f.sender.sent, 2)
}

func TestRenderTemplateLeavesUnknownTokens(t *testing.T) {
	out := renderTemplate("Order {order_number} untuk {customer_name}", map[string]string{
		"order_number": "ORD-AAAA1111",
	})
	assert.Equal(t, "Order ORD-AAAA1111 untuk {customer_name}", out)
}
