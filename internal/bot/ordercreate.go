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
	"github.com/spec-kit/fieldops-bot/internal/telegram"
)

// order creation dialogue steps
const (
	stepCustomerName        = "customer_name"
	stepCustomerAddress     = "customer_address"
	stepCustomerPhone       = "customer_phone"
	stepSiteSelection       = "site_selection"
	stepTransactionType     = "transaction_type"
	stepServiceType         = "service_type"
	stepTechnicianSelection = "technician_selection"
)

func (r *Router) startOrderCreate(ctx context.Context, actor *domain.Actor, in input) Response {
	if !actor.Can(domain.CapCreateOrder) {
		return Response{Text: "Perintah ini hanya untuk Helpdesk."}
	}
	conv := &session.Conversation{
		ChatID:    in.chatID,
		Kind:      session.KindOrderCreate,
		Step:      stepCustomerName,
		StartedAt: time.Now().UTC(),
	}
	if err := r.sessions.Put(ctx, conv); err != nil {
		r.logger.Error("session put failed", zap.Int64("chat_id", in.chatID), zap.Error(err))
		return Response{Text: msgApology}
	}
	return Response{Text: "📝 Order baru\n\nMasukkan nama pelanggan:"}
}

func (r *Router) continueOrderCreate(ctx context.Context, actor *domain.Actor, conv *session.Conversation, in input) Response {
	switch conv.Step {
	case stepCustomerName:
		return r.collectFreeText(ctx, conv, in, "customer_name", stepCustomerAddress,
			"Masukkan alamat pelanggan:", nil)
	case stepCustomerAddress:
		return r.collectFreeText(ctx, conv, in, "customer_address", stepCustomerPhone,
			"Masukkan nomor kontak pelanggan:", nil)
	case stepCustomerPhone:
		return r.collectFreeText(ctx, conv, in, "customer_phone", stepSiteSelection,
			"Pilih STO:", siteKeyboard())
	case stepSiteSelection:
		return r.orderCreateSite(ctx, conv, in)
	case stepTransactionType:
		return r.orderCreateTransaction(ctx, conv, in)
	case stepServiceType:
		return r.orderCreateService(ctx, conv, in)
	case stepTechnicianSelection:
		return r.orderCreateTechnician(ctx, actor, conv, in)
	default:
		_ = r.sessions.Delete(ctx, in.chatID)
		return Response{Text: msgApology}
	}
}

// collectFreeText stores a non-empty answer and advances to the next step.
func (r *Router) collectFreeText(ctx context.Context, conv *session.Conversation, in input, field, nextStep, prompt string, keyboard telegram.Keyboard) Response {
	text := strings.TrimSpace(in.text)
	if text == "" || in.hasFile {
		return Response{Text: "Mohon kirim jawaban berupa teks."}
	}
	// a command mid-dialogue is not an answer
	if cmd, isCmd := ParseCommand(text); isCmd && cmd.Kind != CmdUnknown {
		return Response{Text: "Dialog masih berjalan. Kirim jawaban berupa teks, atau /cancel untuk membatalkan."}
	}
	conv.Set(field, text)
	conv.Step = nextStep
	if err := r.sessions.Put(ctx, conv); err != nil {
		return Response{Text: msgApology}
	}
	return Response{Text: prompt, Keyboard: keyboard}
}

func (r *Router) orderCreateSite(ctx context.Context, conv *session.Conversation, in input) Response {
	code := strings.TrimPrefix(in.text, "sto:")
	if !domain.ValidSiteCode(code) {
		return Response{Text: "Pilih STO dengan tombol di bawah.", Keyboard: siteKeyboard()}
	}
	conv.Set("site", code)
	conv.Step = stepTransactionType
	if err := r.sessions.Put(ctx, conv); err != nil {
		return Response{Text: msgApology}
	}
	return Response{Text: "Pilih jenis transaksi:", Keyboard: transactionKeyboard()}
}

func (r *Router) orderCreateTransaction(ctx context.Context, conv *session.Conversation, in input) Response {
	txn := strings.TrimPrefix(in.text, "txn:")
	if !domain.ValidTransactionType(txn) {
		return Response{Text: "Pilih jenis transaksi dengan tombol di bawah.", Keyboard: transactionKeyboard()}
	}
	conv.Set("transaction_type", txn)
	conv.Step = stepServiceType
	if err := r.sessions.Put(ctx, conv); err != nil {
		return Response{Text: msgApology}
	}
	return Response{Text: "Pilih jenis layanan:", Keyboard: serviceKeyboard()}
}

func (r *Router) orderCreateService(ctx context.Context, conv *session.Conversation, in input) Response {
	svc := strings.TrimPrefix(in.text, "svc:")
	if !domain.ValidServiceType(svc) {
		return Response{Text: "Pilih jenis layanan dengan tombol di bawah.", Keyboard: serviceKeyboard()}
	}
	conv.Set("service_type", svc)
	conv.Step = stepTechnicianSelection
	if err := r.sessions.Put(ctx, conv); err != nil {
		return Response{Text: msgApology}
	}
	return r.promptTechnician(ctx)
}

func (r *Router) promptTechnician(ctx context.Context) Response {
	technicians, err := r.actors.ListTechnicians(ctx)
	if err != nil {
		return r.errorResponse(err)
	}
	if len(technicians) == 0 {
		return Response{Text: "Belum ada teknisi yang tersedia. Tunggu teknisi mendaftar, lalu kirim pesan apa pun untuk memuat ulang daftar, atau /cancel untuk membatalkan."}
	}
	return Response{Text: "Pilih teknisi:", Keyboard: technicianKeyboard(technicians)}
}

func (r *Router) orderCreateTechnician(ctx context.Context, actor *domain.Actor, conv *session.Conversation, in input) Response {
	if !strings.HasPrefix(in.text, "tech:") {
		return r.promptTechnician(ctx)
	}
	technicianID, err := strconv.ParseInt(strings.TrimPrefix(in.text, "tech:"), 10, 64)
	if err != nil {
		return r.promptTechnician(ctx)
	}

	order, err := r.orders.Create(ctx, actor, service.OrderCreateInput{
		CustomerName:    conv.Get("customer_name"),
		CustomerAddress: conv.Get("customer_address"),
		CustomerContact: conv.Get("customer_phone"),
		Site:            conv.Get("site"),
		TransactionType: conv.Get("transaction_type"),
		ServiceType:     conv.Get("service_type"),
		AssignedTo:      &technicianID,
	})
	if err != nil {
		return r.errorResponse(err)
	}
	_ = r.sessions.Delete(ctx, in.chatID)
	return Response{
		Text: "✅ Order berhasil dibuat!\n\n" + formatOrderSummary(order) + "\nTeknisi sudah menerima notifikasi penugasan.",
	}
}
