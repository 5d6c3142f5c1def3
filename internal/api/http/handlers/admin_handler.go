package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/fieldops-bot/internal/auth"
	"github.com/spec-kit/fieldops-bot/internal/domain"
	"github.com/spec-kit/fieldops-bot/internal/observability"
	"github.com/spec-kit/fieldops-bot/internal/service"
	"github.com/spec-kit/fieldops-bot/pkg/util"
)

// AdminHandler serves the operator management and stats API.
type AdminHandler struct {
	actors        *service.ActorService
	reports       *service.ReportService
	notifications *service.NotificationService
	tokens        *auth.TokenManager
	metrics       *observability.Metrics
	adminUsername string
	passwordHash  string
}

// NewAdminHandler returns a new handler instance.
func NewAdminHandler(actors *service.ActorService, reports *service.ReportService, notifications *service.NotificationService, tokens *auth.TokenManager, metrics *observability.Metrics, adminUsername, passwordHash string) *AdminHandler {
	return &AdminHandler{
		actors:        actors,
		reports:       reports,
		notifications: notifications,
		tokens:        tokens,
		metrics:       metrics,
		adminUsername: adminUsername,
		passwordHash:  passwordHash,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login exchanges admin credentials for a JWT.
func (h *AdminHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid request body", nil)
	}
	if req.Username != h.adminUsername {
		return util.NewUnauthorized("invalid credentials")
	}
	if err := auth.ComparePassword(h.passwordHash, req.Password); err != nil {
		return util.NewUnauthorized("invalid credentials")
	}
	token, expiresAt, err := h.tokens.GenerateToken(req.Username)
	if err != nil {
		return util.NewInternalError(err)
	}
	return c.JSON(fiber.Map{
		"token":      token,
		"expires_at": expiresAt.Format(time.RFC3339),
	})
}

type actorResponse struct {
	ID         int64  `json:"id"`
	TelegramID int64  `json:"telegram_id"`
	Username   string `json:"username,omitempty"`
	FullName   string `json:"full_name"`
	Role       string `json:"role"`
	Phone      string `json:"phone,omitempty"`
	Active     bool   `json:"is_active"`
	CreatedAt  string `json:"created_at"`
}

// ListUsers returns every registered operator.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	actors, err := h.actors.ListAll(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]actorResponse, 0, len(actors))
	for _, actor := range actors {
		out = append(out, toActorResponse(&actor))
	}
	return c.JSON(fiber.Map{"users": out})
}

type createUserRequest struct {
	TelegramID int64  `json:"telegram_id"`
	Username   string `json:"username"`
	FullName   string `json:"full_name"`
	Role       string `json:"role"`
	Phone      string `json:"phone"`
}

// CreateUser registers an operator directly, bypassing the chat dialogue.
func (h *AdminHandler) CreateUser(c *fiber.Ctx) error {
	var req createUserRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid request body", nil)
	}
	actor, err := h.actors.Register(c.UserContext(), service.RegisterInput{
		TelegramID: req.TelegramID,
		Username:   req.Username,
		FullName:   req.FullName,
		Role:       domain.ActorRole(req.Role),
		Phone:      req.Phone,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toActorResponse(actor))
}

type notificationResponse struct {
	ID       int64  `json:"id"`
	OrderID  *int64 `json:"order_id,omitempty"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Priority string `json:"priority"`
	SentAt   string `json:"sent_at"`
	ReadAt   string `json:"read_at,omitempty"`
}

// ListNotifications returns an operator's notification log.
func (h *AdminHandler) ListNotifications(c *fiber.Ctx) error {
	actorID, err := c.ParamsInt("actorID")
	if err != nil {
		return util.NewValidationError("invalid actor id", nil)
	}
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)
	notifications, err := h.notifications.Inbox(c.UserContext(), int64(actorID), limit, offset)
	if err != nil {
		return err
	}
	out := make([]notificationResponse, 0, len(notifications))
	for i := range notifications {
		n := &notifications[i]
		resp := notificationResponse{
			ID:       n.ID,
			OrderID:  n.OrderID,
			Type:     string(n.Type),
			Title:    n.Title,
			Message:  n.Message,
			Priority: string(n.Priority),
			SentAt:   n.SentAt.Format(time.RFC3339),
		}
		if n.ReadAt != nil {
			resp.ReadAt = n.ReadAt.Format(time.RFC3339)
		}
		out = append(out, resp)
	}
	return c.JSON(fiber.Map{"notifications": out})
}

// MarkNotificationRead stamps one of the operator's notifications as read.
func (h *AdminHandler) MarkNotificationRead(c *fiber.Ctx) error {
	actorID, err := c.ParamsInt("actorID")
	if err != nil {
		return util.NewValidationError("invalid actor id", nil)
	}
	notificationID, err := c.ParamsInt("id")
	if err != nil {
		return util.NewValidationError("invalid notification id", nil)
	}
	if err := h.notifications.MarkRead(c.UserContext(), int64(notificationID), int64(actorID)); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Stats returns current order counters and process metrics.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	counts, err := h.reports.StatusCounts(c.UserContext())
	if err != nil {
		return err
	}
	byStatus := fiber.Map{}
	total := 0
	for status, count := range counts {
		byStatus[string(status)] = count
		total += count
	}
	return c.JSON(fiber.Map{
		"orders": fiber.Map{
			"total":     total,
			"by_status": byStatus,
		},
		"process": h.metrics.Snapshot(),
	})
}

func toActorResponse(actor *domain.Actor) actorResponse {
	return actorResponse{
		ID:         actor.ID,
		TelegramID: actor.TelegramID,
		Username:   actor.Username,
		FullName:   actor.FullName,
		Role:       string(actor.Role),
		Phone:      actor.Phone,
		Active:     actor.Active,
		CreatedAt:  actor.CreatedAt.Format(time.RFC3339),
	}
}
