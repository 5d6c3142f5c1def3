package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/fieldops-bot/internal/domain"
	"github.com/spec-kit/fieldops-bot/internal/service"
	"github.com/spec-kit/fieldops-bot/internal/session"
)

// registration dialogue steps
const (
	stepRoleSelection = "role_selection"
	stepNameInput     = "name_input"
	stepConfirmation  = "confirmation"
)

const msgRolePrompt = "Selamat datang! 👋\n\nUntuk mulai, pilih peran Anda:"

// handleRegistration runs the three-step registration dialogue for chats
// whose Telegram identity is not yet registered.
func (r *Router) handleRegistration(ctx context.Context, in input) Response {
	conv, err := r.sessions.Get(ctx, in.chatID)
	if errors.Is(err, session.ErrNotFound) {
		return r.startRegistration(ctx, in)
	}
	if err != nil {
		r.logger.Error("session fetch failed", zap.Int64("chat_id", in.chatID), zap.Error(err))
		return Response{Text: msgApology}
	}
	if conv.Kind != session.KindRegistration {
		// non-registration state for an unregistered chat is stale
		_ = r.sessions.Delete(ctx, in.chatID)
		return r.startRegistration(ctx, in)
	}

	switch conv.Step {
	case stepRoleSelection:
		return r.registrationRole(ctx, conv, in)
	case stepNameInput:
		return r.registrationName(ctx, conv, in)
	case stepConfirmation:
		return r.registrationConfirm(ctx, conv, in)
	default:
		_ = r.sessions.Delete(ctx, in.chatID)
		return r.startRegistration(ctx, in)
	}
}

func (r *Router) startRegistration(ctx context.Context, in input) Response {
	conv := &session.Conversation{
		ChatID:    in.chatID,
		Kind:      session.KindRegistration,
		Step:      stepRoleSelection,
		StartedAt: time.Now().UTC(),
	}
	if err := r.sessions.Put(ctx, conv); err != nil {
		r.logger.Error("session put failed", zap.Int64("chat_id", in.chatID), zap.Error(err))
		return Response{Text: msgApology}
	}
	return Response{Text: msgRolePrompt, Keyboard: roleKeyboard()}
}

func (r *Router) registrationRole(ctx context.Context, conv *session.Conversation, in input) Response {
	role, ok := parseRoleChoice(in.text)
	if !ok {
		return Response{Text: "Silakan pilih peran dengan tombol di bawah.", Keyboard: roleKeyboard()}
	}
	conv.Set("role", string(role))
	conv.Step = stepNameInput
	if err := r.sessions.Put(ctx, conv); err != nil {
		return Response{Text: msgApology}
	}
	return Response{
		Text:     "Peran: " + role.DisplayName() + "\n\nSekarang masukkan nama lengkap Anda, atau gunakan nama profil Telegram.",
		Keyboard: nameKeyboard(),
	}
}

func (r *Router) registrationName(ctx context.Context, conv *session.Conversation, in input) Response {
	var name string
	if in.text == "name:profile" {
		name = in.profileName
	} else {
		name = strings.TrimSpace(in.text)
	}
	if len([]rune(name)) < 2 {
		return Response{
			Text:     "Nama terlalu pendek. Masukkan nama lengkap Anda.",
			Keyboard: nameKeyboard(),
		}
	}
	if cmd, isCmd := ParseCommand(name); isCmd && cmd.Kind != CmdUnknown {
		return Response{
			Text:     "Masukkan nama lengkap Anda, bukan perintah.",
			Keyboard: nameKeyboard(),
		}
	}
	conv.Set("name", name)
	conv.Step = stepConfirmation
	if err := r.sessions.Put(ctx, conv); err != nil {
		return Response{Text: msgApology}
	}
	role := domain.ActorRole(conv.Get("role"))
	return Response{
		Text:     "Konfirmasi pendaftaran:\n\nNama: " + name + "\nPeran: " + role.DisplayName() + "\n\nSudah benar?",
		Keyboard: confirmKeyboard(),
	}
}

func (r *Router) registrationConfirm(ctx context.Context, conv *session.Conversation, in input) Response {
	switch in.text {
	case "confirm:yes":
		actor, err := r.actors.Register(ctx, service.RegisterInput{
			TelegramID: in.telegramID,
			Username:   in.username,
			FullName:   conv.Get("name"),
			Role:       domain.ActorRole(conv.Get("role")),
		})
		if err != nil {
			r.logger.Error("registration failed", zap.Int64("telegram_id", in.telegramID), zap.Error(err))
			return r.errorResponse(err)
		}
		_ = r.sessions.Delete(ctx, in.chatID)
		return Response{
			Text: "✅ Pendaftaran berhasil!\n\nSelamat bekerja, " + actor.FullName + " (" + actor.Role.DisplayName() + ").\n\n" + helpText(actor.Role),
		}
	case "confirm:no":
		conv.Step = stepRoleSelection
		conv.Fields = nil
		if err := r.sessions.Put(ctx, conv); err != nil {
			return Response{Text: msgApology}
		}
		return Response{Text: msgRolePrompt, Keyboard: roleKeyboard()}
	default:
		return Response{
			Text:     "Silakan jawab dengan tombol di bawah.",
			Keyboard: confirmKeyboard(),
		}
	}
}

func parseRoleChoice(text string) (domain.ActorRole, bool) {
	switch text {
	case "role:HD":
		return domain.RoleHelpdesk, true
	case "role:TEKNISI":
		return domain.RoleTechnician, true
	}
	return "", false
}
