package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/fieldops-bot/internal/domain"
	"github.com/spec-kit/fieldops-bot/internal/observability"
	"github.com/spec-kit/fieldops-bot/internal/service"
	"github.com/spec-kit/fieldops-bot/internal/session"
	"github.com/spec-kit/fieldops-bot/internal/telegram"
	"github.com/spec-kit/fieldops-bot/pkg/util"
)

const msgApology = "Maaf, terjadi kesalahan. Silakan coba lagi."

// Router turns inbound chat updates into dialogue state changes and replies.
type Router struct {
	actors   *service.ActorService
	orders   *service.OrderService
	progress *service.ProgressService
	evidence *service.EvidenceService
	reports  *service.ReportService
	sessions session.Store
	metrics  *observability.Metrics
	logger   *zap.Logger
	clock    func() time.Time
}

// RouterDependencies bundles collaborators for the router.
type RouterDependencies struct {
	Actors   *service.ActorService
	Orders   *service.OrderService
	Progress *service.ProgressService
	Evidence *service.EvidenceService
	Reports  *service.ReportService
	Sessions session.Store
	Metrics  *observability.Metrics
	Logger   *zap.Logger
	Clock    func() time.Time
}

// NewRouter constructs the router.
func NewRouter(deps RouterDependencies) *Router {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		actors:   deps.Actors,
		orders:   deps.Orders,
		progress: deps.Progress,
		evidence: deps.Evidence,
		reports:  deps.Reports,
		sessions: deps.Sessions,
		metrics:  deps.Metrics,
		logger:   logger,
		clock:    clock,
	}
}

// input is the normalized view of one update: button presses arrive as text.
type input struct {
	chatID      int64
	telegramID  int64
	username    string
	profileName string
	text        string
	fileID      string
	fileName    string
	fileSize    int64
	hasFile     bool
}

func extractInput(update telegram.Update) (input, bool) {
	if update.CallbackQuery != nil {
		cb := update.CallbackQuery
		if cb.From == nil || cb.Message == nil {
			return input{}, false
		}
		return input{
			chatID:      cb.Message.Chat.ID,
			telegramID:  cb.From.ID,
			username:    cb.From.Username,
			profileName: profileName(cb.From),
			text:        cb.Data,
		}, true
	}
	if update.Message != nil {
		msg := update.Message
		if msg.From == nil {
			return input{}, false
		}
		in := input{
			chatID:      msg.Chat.ID,
			telegramID:  msg.From.ID,
			username:    msg.From.Username,
			profileName: profileName(msg.From),
			text:        msg.Text,
		}
		if msg.Document != nil {
			in.hasFile = true
			in.fileID = msg.Document.FileID
			in.fileName = msg.Document.FileName
			in.fileSize = msg.Document.FileSize
		} else if len(msg.Photo) > 0 {
			// largest variant is last
			photo := msg.Photo[len(msg.Photo)-1]
			in.hasFile = true
			in.fileID = photo.FileID
			in.fileName = "photo.jpg"
			in.fileSize = photo.FileSize
		}
		return in, true
	}
	return input{}, false
}

func profileName(user *telegram.User) string {
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name == "" {
		name = user.Username
	}
	return name
}

// HandleUpdate processes one update and returns the chat to answer plus the
// reply. A zero chat ID means there is nothing to deliver.
func (r *Router) HandleUpdate(ctx context.Context, update telegram.Update) (chatID int64, resp Response) {
	in, ok := extractInput(update)
	if !ok {
		return 0, Response{}
	}
	chatID = in.chatID

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("update handling panicked", zap.Any("panic", rec), zap.Int64("chat_id", chatID))
			if r.metrics != nil {
				r.metrics.RecordError("bot", "update", "PANIC")
			}
			resp = Response{Text: msgApology}
		}
	}()
	if r.metrics != nil {
		r.metrics.RecordUpdate(updateKind(update))
	}

	resp = r.route(ctx, in)
	return chatID, resp
}

func updateKind(update telegram.Update) string {
	if update.CallbackQuery != nil {
		return "callback"
	}
	if update.Message != nil && (update.Message.Document != nil || len(update.Message.Photo) > 0) {
		return "file"
	}
	return "message"
}

func (r *Router) route(ctx context.Context, in input) Response {
	actor, err := r.actors.Resolve(ctx, in.telegramID)
	if err != nil {
		r.logger.Error("actor resolve failed", zap.Int64("telegram_id", in.telegramID), zap.Error(err))
		return Response{Text: msgApology}
	}

	cmd, isCmd := ParseCommand(in.text)
	if (isCmd && cmd.Kind == CmdCancel) || in.text == "cancel" {
		if err := r.sessions.Delete(ctx, in.chatID); err != nil {
			r.logger.Warn("session delete failed", zap.Int64("chat_id", in.chatID), zap.Error(err))
		}
		return Response{Text: "Dibatalkan. Ketik /help untuk melihat perintah."}
	}

	if actor == nil {
		return r.handleRegistration(ctx, in)
	}

	conv, err := r.sessions.Get(ctx, in.chatID)
	switch {
	case err == nil:
		return r.continueDialogue(ctx, actor, conv, in)
	case errors.Is(err, session.ErrNotFound):
		// no active dialogue
	default:
		r.logger.Error("session fetch failed", zap.Int64("chat_id", in.chatID), zap.Error(err))
		return Response{Text: msgApology}
	}

	if resp, handled := r.handleCallbackAction(ctx, actor, in); handled {
		return resp
	}

	if !isCmd {
		if in.hasFile {
			return Response{Text: "File hanya diterima saat dialog /evidence berjalan."}
		}
		return Response{Text: "Perintah tidak dikenali. Ketik /help untuk melihat daftar perintah."}
	}
	return r.dispatchCommand(ctx, actor, cmd, in)
}

func (r *Router) continueDialogue(ctx context.Context, actor *domain.Actor, conv *session.Conversation, in input) Response {
	switch conv.Kind {
	case session.KindRegistration:
		// already registered; stale record
		_ = r.sessions.Delete(ctx, in.chatID)
		return Response{Text: "Anda sudah terdaftar. Ketik /help untuk melihat perintah."}
	case session.KindOrderCreate:
		return r.continueOrderCreate(ctx, actor, conv, in)
	case session.KindStageReport:
		return r.continueStageReport(ctx, actor, conv, in)
	case session.KindEvidenceUpload:
		return r.continueEvidenceUpload(ctx, actor, conv, in)
	default:
		_ = r.sessions.Delete(ctx, in.chatID)
		return Response{Text: msgApology}
	}
}

// handleCallbackAction resolves button presses that carry the whole action
// in their payload and need no conversation.
func (r *Router) handleCallbackAction(ctx context.Context, actor *domain.Actor, in input) (Response, bool) {
	if strings.HasPrefix(in.text, "resume:") {
		orderID, err := strconv.ParseInt(strings.TrimPrefix(in.text, "resume:"), 10, 64)
		if err != nil {
			return Response{Text: msgApology}, true
		}
		order, err := r.orders.Resume(ctx, actor, orderID)
		if err != nil {
			return r.errorResponse(err), true
		}
		return Response{Text: "▶️ Order " + order.Number + " dilanjutkan kembali."}, true
	}
	if strings.HasPrefix(in.text, "cancelorder:") {
		orderID, err := strconv.ParseInt(strings.TrimPrefix(in.text, "cancelorder:"), 10, 64)
		if err != nil {
			return Response{Text: msgApology}, true
		}
		order, err := r.orders.Cancel(ctx, actor, orderID, "dibatalkan oleh helpdesk")
		if err != nil {
			return r.errorResponse(err), true
		}
		return Response{Text: "❌ Order " + order.Number + " dibatalkan."}, true
	}
	return Response{}, false
}

func (r *Router) dispatchCommand(ctx context.Context, actor *domain.Actor, cmd Command, in input) Response {
	switch cmd.Kind {
	case CmdStart:
		return Response{Text: "Halo " + actor.FullName + " (" + actor.Role.DisplayName() + ")!\n\n" + helpText(actor.Role)}
	case CmdHelp:
		return Response{Text: helpText(actor.Role)}
	case CmdMyOrders:
		return r.handleMyOrders(ctx, actor)
	case CmdStatus:
		return r.handleStatus(ctx, actor, cmd.Args)
	case CmdOrder:
		return r.startOrderCreate(ctx, actor, in)
	case CmdUpdateStatus:
		return r.handleUpdateStatus(ctx, actor)
	case CmdReport:
		return r.handleReport(ctx, actor, cmd.Args)
	case CmdUpdateProgress:
		return r.startStageReport(ctx, actor, in)
	case CmdEvidence:
		return r.startEvidenceUpload(ctx, actor, in)
	default:
		return Response{Text: "Perintah tidak dikenali. Ketik /help untuk melihat daftar perintah."}
	}
}

func (r *Router) handleMyOrders(ctx context.Context, actor *domain.Actor) Response {
	orders, err := r.orders.ListForActor(ctx, actor, service.ListFilter{Limit: 20})
	if err != nil {
		return r.errorResponse(err)
	}
	return Response{Text: formatOrderList(orders)}
}

func (r *Router) handleStatus(ctx context.Context, actor *domain.Actor, args []string) Response {
	if len(args) == 0 {
		return Response{Text: "Format: /status <nomor order>\nContoh: /status ORD-1A2B3C4D"}
	}
	order, err := r.orders.GetByNumber(ctx, strings.ToUpper(args[0]))
	if err != nil {
		return r.errorResponse(err)
	}
	order, err = r.orders.GetForActor(ctx, actor, order.ID)
	if err != nil {
		return r.errorResponse(err)
	}
	_, result, err := r.orders.EvaluateSLA(ctx, order.ID)
	if err != nil {
		return r.errorResponse(err)
	}
	progressSummary, err := r.progress.Summary(ctx, order.ID)
	if err != nil {
		return r.errorResponse(err)
	}
	evidenceSummary, err := r.evidence.Summary(ctx, order.ID)
	if err != nil {
		return r.errorResponse(err)
	}

	var b strings.Builder
	b.WriteString(formatOrderSummary(order))
	b.WriteString("\n" + formatSLALine(result) + "\n\n")
	b.WriteString(progressSummary)
	b.WriteString("\n📸 Evidence: " + strconv.Itoa(evidenceSummary.Completed) + "/" + strconv.Itoa(evidenceSummary.Total) + " lengkap\n")
	return Response{Text: b.String()}
}

func (r *Router) handleUpdateStatus(ctx context.Context, actor *domain.Actor) Response {
	if !actor.Can(domain.CapResumeOrder) {
		return Response{Text: "Perintah ini hanya untuk Helpdesk."}
	}
	orders, err := r.orders.ListForActor(ctx, actor, service.ListFilter{
		Statuses: []domain.OrderStatus{domain.OrderStatusOnHold},
		Limit:    20,
	})
	if err != nil {
		return r.errorResponse(err)
	}
	if len(orders) == 0 {
		return Response{Text: "Tidak ada order yang sedang on hold."}
	}
	return Response{
		Text:     "Pilih order untuk dilanjutkan:",
		Keyboard: orderKeyboard(orders, "resume"),
	}
}

func (r *Router) handleReport(ctx context.Context, actor *domain.Actor, args []string) Response {
	if !actor.Can(domain.CapGenerateReports) {
		return Response{Text: "Perintah ini hanya untuk Helpdesk."}
	}
	now := r.clock().UTC()
	var (
		report *service.OrderReport
		err    error
	)
	if len(args) > 0 && strings.EqualFold(args[0], "minggu") {
		// seven days ending today
		report, err = r.reports.Weekly(ctx, now.AddDate(0, 0, -6))
	} else {
		report, err = r.reports.Daily(ctx, now)
	}
	if err != nil {
		return r.errorResponse(err)
	}
	return Response{Text: r.reports.Format(report)}
}

func (r *Router) errorResponse(err error) Response {
	domainErr := util.ToDomainError(err)
	switch domainErr.Code {
	case "NOT_FOUND":
		return Response{Text: "Order tidak ditemukan."}
	case "FORBIDDEN":
		return Response{Text: "Anda tidak punya akses untuk aksi ini."}
	case "VALIDATION_FAILED":
		return Response{Text: "Input tidak valid: " + domainErr.Message}
	case "CONFLICT":
		return Response{Text: "Tidak bisa diproses: " + domainErr.Message}
	default:
		r.logger.Error("command failed", zap.Error(err))
		if r.metrics != nil {
			r.metrics.RecordError("bot", "update", domainErr.Code)
		}
		return Response{Text: msgApology}
	}
}
