package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/fieldops-bot/internal/domain"
	"github.com/spec-kit/fieldops-bot/internal/repository"
	"github.com/spec-kit/fieldops-bot/pkg/util"
)

// ActorService manages operator registration and lookup.
type ActorService struct {
	actors     repository.ActorRepository
	minNameLen int
}

// NewActorService constructs the service.
func NewActorService(actorRepo repository.ActorRepository, minNameLen int) *ActorService {
	if minNameLen <= 0 {
		minNameLen = 2
	}
	return &ActorService{actors: actorRepo, minNameLen: minNameLen}
}

// RegisterInput describes a new operator registration.
type RegisterInput struct {
	TelegramID int64
	Username   string
	FullName   string
	Role       domain.ActorRole
	Phone      string
}

// Register creates an operator record. Registering an existing Telegram
// identity is a conflict.
func (s *ActorService) Register(ctx context.Context, input RegisterInput) (*domain.Actor, error) {
	if !input.Role.Valid() {
		return nil, util.NewValidationError("unknown role", map[string]any{"role": input.Role})
	}
	name := strings.TrimSpace(input.FullName)
	if len([]rune(name)) < s.minNameLen {
		return nil, util.NewValidationError("name too short", map[string]any{"min_length": s.minNameLen})
	}
	if existing, err := s.actors.GetByTelegramID(ctx, input.TelegramID); err == nil && existing != nil {
		return nil, util.NewConflict("operator already registered", map[string]any{"telegram_id": input.TelegramID})
	}

	actor := &domain.Actor{
		TelegramID: input.TelegramID,
		Username:   input.Username,
		FullName:   name,
		Role:       input.Role,
		Phone:      strings.TrimSpace(input.Phone),
		Active:     true,
	}
	if err := s.actors.Create(ctx, actor); err != nil {
		return nil, util.MapError(err)
	}
	return actor, nil
}

// Resolve maps a Telegram identity to a registered operator. Returns
// (nil, nil) when the identity is unknown.
func (s *ActorService) Resolve(ctx context.Context, telegramID int64) (*domain.Actor, error) {
	actor, err := s.actors.GetByTelegramID(ctx, telegramID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, util.MapError(err)
	}
	return actor, nil
}

// GetByID fetches an operator.
func (s *ActorService) GetByID(ctx context.Context, id int64) (*domain.Actor, error) {
	actor, err := s.actors.GetByID(ctx, id)
	if err != nil {
		return nil, util.MapError(err)
	}
	return actor, nil
}

// ListTechnicians returns active technicians available for assignment.
func (s *ActorService) ListTechnicians(ctx context.Context) ([]domain.Actor, error) {
	techs, err := s.actors.ListByRole(ctx, domain.RoleTechnician, true)
	if err != nil {
		return nil, util.MapError(err)
	}
	return techs, nil
}

// ListAll returns every registered operator.
func (s *ActorService) ListAll(ctx context.Context) ([]domain.Actor, error) {
	actors, err := s.actors.ListAll(ctx)
	if err != nil {
		return nil, util.MapError(err)
	}
	return actors, nil
}

// Deactivate flags an operator as inactive without deleting history.
func (s *ActorService) Deactivate(ctx context.Context, id int64) error {
	actor, err := s.actors.GetByID(ctx, id)
	if err != nil {
		return util.MapError(err)
	}
	actor.Active = false
	if err := s.actors.Update(ctx, actor); err != nil {
		return util.MapError(err)
	}
	return nil
}
