package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/fieldops-bot/internal/bot"
	"github.com/spec-kit/fieldops-bot/internal/telegram"
)

// WebhookHandler receives Telegram updates and answers the chat.
type WebhookHandler struct {
	router *bot.Router
	client *telegram.Client
	logger *zap.Logger
}

// NewWebhookHandler returns a new handler instance.
func NewWebhookHandler(router *bot.Router, client *telegram.Client, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{router: router, client: client, logger: logger}
}

// Handle processes one update. It always answers 200 so Telegram does not
// retry updates that fail on our side.
func (h *WebhookHandler) Handle(c *fiber.Ctx) error {
	var update telegram.Update
	if err := c.BodyParser(&update); err != nil {
		h.logger.Warn("unparseable update", zap.Error(err))
		return c.JSON(fiber.Map{"ok": true})
	}

	chatID, resp := h.router.HandleUpdate(c.UserContext(), update)
	if chatID == 0 || resp.Text == "" {
		return c.JSON(fiber.Map{"ok": true})
	}

	if err := h.client.SendMessage(c.UserContext(), chatID, resp.Text, resp.Keyboard); err != nil {
		h.logger.Error("reply delivery failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return c.JSON(fiber.Map{"ok": true})
	}
	// audit only after confirmed delivery
	h.logger.Info("reply delivered",
		zap.Int64("chat_id", chatID),
		zap.Int("text_len", len(resp.Text)),
		zap.Int("keyboard_rows", len(resp.Keyboard)),
	)
	return c.JSON(fiber.Map{"ok": true})
}
