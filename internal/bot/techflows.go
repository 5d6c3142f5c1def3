package bot

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/fieldops-bot/internal/domain"
	"github.com/spec-kit/fieldops-bot/internal/service"
	"github.com/spec-kit/fieldops-bot/internal/session"
)

// technician dialogue steps
const (
	stepOrderSelect   = "order_select"
	stepOutcome       = "outcome"
	stepNotes         = "notes"
	stepEvidenceType  = "evidence_type"
	stepEvidenceValue = "evidence_value"
)

func (r *Router) startStageReport(ctx context.Context, actor *domain.Actor, in input) Response {
	if !actor.Can(domain.CapUpdateProgress) {
		return Response{Text: "Perintah ini hanya untuk Teknisi."}
	}
	orders, err := r.activeAssignedOrders(ctx, actor)
	if err != nil {
		return r.errorResponse(err)
	}
	if len(orders) == 0 {
		return Response{Text: "Tidak ada order aktif yang ditugaskan ke Anda."}
	}
	conv := &session.Conversation{
		ChatID:    in.chatID,
		Kind:      session.KindStageReport,
		Step:      stepOrderSelect,
		StartedAt: time.Now().UTC(),
	}
	if err := r.sessions.Put(ctx, conv); err != nil {
		r.logger.Error("session put failed", zap.Int64("chat_id", in.chatID), zap.Error(err))
		return Response{Text: msgApology}
	}
	return Response{Text: "Pilih order yang akan diupdate:", Keyboard: orderKeyboard(orders, "order")}
}

func (r *Router) continueStageReport(ctx context.Context, actor *domain.Actor, conv *session.Conversation, in input) Response {
	switch conv.Step {
	case stepOrderSelect:
		return r.stageReportOrder(ctx, actor, conv, in)
	case stepOutcome:
		return r.stageReportOutcome(ctx, actor, conv, in)
	case stepNotes:
		return r.stageReportNotes(ctx, actor, conv, in)
	default:
		_ = r.sessions.Delete(ctx, in.chatID)
		return Response{Text: msgApology}
	}
}

func (r *Router) stageReportOrder(ctx context.Context, actor *domain.Actor, conv *session.Conversation, in input) Response {
	order, resp := r.selectedOrder(ctx, actor, in, "order")
	if order == nil {
		return resp
	}
	conv.Set("order_id", strconv.FormatInt(order.ID, 10))
	conv.Step = stepOutcome
	if err := r.sessions.Put(ctx, conv); err != nil {
		return Response{Text: msgApology}
	}
	return Response{
		Text:     "Order " + order.Number + " — tahap saat ini: " + order.CurrentStage.DisplayName() + "\n\nApa hasilnya?",
		Keyboard: outcomeKeyboard(),
	}
}

func (r *Router) stageReportOutcome(ctx context.Context, actor *domain.Actor, conv *session.Conversation, in input) Response {
	outcome := strings.TrimPrefix(in.text, "outcome:")
	switch service.StageOutcome(outcome) {
	case service.OutcomeStarted, service.OutcomeCompleted, service.OutcomeOnHold:
	default:
		return Response{Text: "Pilih hasil dengan tombol di bawah.", Keyboard: outcomeKeyboard()}
	}
	conv.Set("outcome", outcome)
	conv.Step = stepNotes
	if err := r.sessions.Put(ctx, conv); err != nil {
		return Response{Text: msgApology}
	}
	return Response{Text: "Tambahkan catatan (atau lewati):", Keyboard: notesKeyboard()}
}

func (r *Router) stageReportNotes(ctx context.Context, actor *domain.Actor, conv *session.Conversation, in input) Response {
	notes := strings.TrimSpace(in.text)
	if notes == "notes:skip" {
		notes = ""
	}
	orderID, err := strconv.ParseInt(conv.Get("order_id"), 10, 64)
	if err != nil {
		_ = r.sessions.Delete(ctx, in.chatID)
		return Response{Text: msgApology}
	}
	order, err := r.orders.Get(ctx, orderID)
	if err != nil {
		_ = r.sessions.Delete(ctx, in.chatID)
		return r.errorResponse(err)
	}

	outcome := service.StageOutcome(conv.Get("outcome"))
	updated, err := r.orders.ReportStageOutcome(ctx, actor, orderID, order.CurrentStage, outcome, notes)
	if err != nil {
		_ = r.sessions.Delete(ctx, in.chatID)
		return r.errorResponse(err)
	}
	_ = r.sessions.Delete(ctx, in.chatID)

	switch outcome {
	case service.OutcomeStarted:
		return Response{Text: "▶️ Tahap " + updated.CurrentStage.DisplayName() + " mulai dikerjakan."}
	case service.OutcomeOnHold:
		return Response{Text: "⏸ Order " + updated.Number + " ditandai On Hold. Helpdesk sudah diberi tahu."}
	default:
		if updated.Status == domain.OrderStatusClosed {
			return Response{Text: "🎉 Order " + updated.Number + " selesai! Terima kasih atas kerja kerasnya."}
		}
		return Response{Text: "✅ Tahap selesai. Tahap berikutnya: " + updated.CurrentStage.DisplayName()}
	}
}

func (r *Router) startEvidenceUpload(ctx context.Context, actor *domain.Actor, in input) Response {
	if !actor.Can(domain.CapUploadEvidence) {
		return Response{Text: "Perintah ini hanya untuk Teknisi."}
	}
	orders, err := r.activeAssignedOrders(ctx, actor)
	if err != nil {
		return r.errorResponse(err)
	}
	if len(orders) == 0 {
		return Response{Text: "Tidak ada order aktif yang ditugaskan ke Anda."}
	}
	conv := &session.Conversation{
		ChatID:    in.chatID,
		Kind:      session.KindEvidenceUpload,
		Step:      stepOrderSelect,
		StartedAt: time.Now().UTC(),
	}
	if err := r.sessions.Put(ctx, conv); err != nil {
		r.logger.Error("session put failed", zap.Int64("chat_id", in.chatID), zap.Error(err))
		return Response{Text: msgApology}
	}
	return Response{Text: "Pilih order untuk upload evidence:", Keyboard: orderKeyboard(orders, "order")}
}

func (r *Router) continueEvidenceUpload(ctx context.Context, actor *domain.Actor, conv *session.Conversation, in input) Response {
	switch conv.Step {
	case stepOrderSelect:
		return r.evidenceOrder(ctx, actor, conv, in)
	case stepEvidenceType:
		return r.evidenceType(ctx, conv, in)
	case stepEvidenceValue:
		return r.evidenceValue(ctx, actor, conv, in)
	default:
		_ = r.sessions.Delete(ctx, in.chatID)
		return Response{Text: msgApology}
	}
}

func (r *Router) evidenceOrder(ctx context.Context, actor *domain.Actor, conv *session.Conversation, in input) Response {
	order, resp := r.selectedOrder(ctx, actor, in, "order")
	if order == nil {
		return resp
	}
	missing, err := r.evidence.Missing(ctx, order.ID)
	if err != nil {
		return r.errorResponse(err)
	}
	if len(missing) == 0 {
		_ = r.sessions.Delete(ctx, in.chatID)
		return Response{Text: formatMissingEvidence(missing)}
	}
	conv.Set("order_id", strconv.FormatInt(order.ID, 10))
	conv.Step = stepEvidenceType
	if err := r.sessions.Put(ctx, conv); err != nil {
		return Response{Text: msgApology}
	}
	return Response{
		Text:     formatMissingEvidence(missing) + "\nPilih jenis evidence:",
		Keyboard: evidenceTypeKeyboard(missing),
	}
}

func (r *Router) evidenceType(ctx context.Context, conv *session.Conversation, in input) Response {
	evidenceType := domain.EvidenceType(strings.TrimPrefix(in.text, "ev:"))
	if !evidenceType.Valid() {
		return Response{Text: "Pilih jenis evidence dengan tombol di bawah."}
	}
	conv.Set("evidence_type", string(evidenceType))
	conv.Step = stepEvidenceValue
	if err := r.sessions.Put(ctx, conv); err != nil {
		return Response{Text: msgApology}
	}
	if evidenceType.IsText() {
		return Response{Text: "Ketik nilai untuk " + evidenceType.DisplayName() + ":"}
	}
	return Response{Text: "Kirim foto/file untuk " + evidenceType.DisplayName() + ":"}
}

func (r *Router) evidenceValue(ctx context.Context, actor *domain.Actor, conv *session.Conversation, in input) Response {
	orderID, err := strconv.ParseInt(conv.Get("order_id"), 10, 64)
	if err != nil {
		_ = r.sessions.Delete(ctx, in.chatID)
		return Response{Text: msgApology}
	}
	evidenceType := domain.EvidenceType(conv.Get("evidence_type"))

	if evidenceType.IsText() {
		if in.hasFile || strings.TrimSpace(in.text) == "" {
			return Response{Text: "Evidence ini berupa teks. Ketik nilainya."}
		}
		if _, err := r.evidence.RecordText(ctx, orderID, evidenceType, in.text, actor.ID); err != nil {
			return r.errorResponse(err)
		}
	} else {
		if !in.hasFile {
			return Response{Text: "Evidence ini berupa file. Kirim foto atau dokumen."}
		}
		if err := r.evidence.ValidateFile(in.fileName, in.fileSize); err != nil {
			return r.errorResponse(err)
		}
		if _, err := r.evidence.RecordFile(ctx, orderID, evidenceType, in.fileID, in.fileName, actor.ID); err != nil {
			return r.errorResponse(err)
		}
	}

	missing, err := r.evidence.Missing(ctx, orderID)
	if err != nil {
		return r.errorResponse(err)
	}
	if len(missing) == 0 {
		_ = r.sessions.Delete(ctx, in.chatID)
		return Response{Text: "✅ " + evidenceType.DisplayName() + " tersimpan.\n\nSemua evidence sudah lengkap! Gunakan /updateprogress untuk menyelesaikan order."}
	}
	conv.Step = stepEvidenceType
	if err := r.sessions.Put(ctx, conv); err != nil {
		return Response{Text: msgApology}
	}
	return Response{
		Text:     "✅ " + evidenceType.DisplayName() + " tersimpan.\n\n" + formatMissingEvidence(missing) + "\nPilih jenis evidence berikutnya:",
		Keyboard: evidenceTypeKeyboard(missing),
	}
}

// selectedOrder resolves an "order:<id>" button press into an order the
// technician may act on. A nil order means the Response should be returned.
func (r *Router) selectedOrder(ctx context.Context, actor *domain.Actor, in input, prefix string) (*domain.Order, Response) {
	if !strings.HasPrefix(in.text, prefix+":") {
		orders, err := r.activeAssignedOrders(ctx, actor)
		if err != nil {
			return nil, r.errorResponse(err)
		}
		return nil, Response{Text: "Pilih order dengan tombol di bawah.", Keyboard: orderKeyboard(orders, prefix)}
	}
	orderID, err := strconv.ParseInt(strings.TrimPrefix(in.text, prefix+":"), 10, 64)
	if err != nil {
		return nil, Response{Text: msgApology}
	}
	order, err := r.orders.GetForActor(ctx, actor, orderID)
	if err != nil {
		return nil, r.errorResponse(err)
	}
	return order, Response{}
}

func (r *Router) activeAssignedOrders(ctx context.Context, actor *domain.Actor) ([]domain.Order, error) {
	return r.orders.ListForActor(ctx, actor, service.ListFilter{
		Statuses: []domain.OrderStatus{domain.OrderStatusPending, domain.OrderStatusInProgress, domain.OrderStatusOnHold},
		Limit:    20,
	})
}
