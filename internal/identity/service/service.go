// Package service implements the identity registry: actor registration,
// role lookup and admin-gated activation toggling.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"tenderledger/internal/identity/models"
	"tenderledger/internal/ledger"
	"tenderledger/internal/platform/metrics"
	"tenderledger/pkg/domain"
	dErrors "tenderledger/pkg/domain-errors"
	"tenderledger/pkg/platform/sentinel"
)

// ActorStore is the persistence port for actors. Implementations are pure
// data components; all authorization lives here in the service.
type ActorStore interface {
	Create(ctx context.Context, a *models.Actor) error
	FindByID(ctx context.Context, id domain.ActorID) (*models.Actor, error)
	Update(ctx context.Context, a *models.Actor) error
	List(ctx context.Context) ([]*models.Actor, error)
}

// Ledger is the commit point for registry mutations.
type Ledger interface {
	Append(ctx context.Context, events ...ledger.Event) ([]ledger.Event, error)
}

// Service orchestrates the identity registry.
//
// Mutations are serialized by a registry-wide mutex: the ledger append is the
// commit, and the store write that follows must not race another registration
// of the same id.
type Service struct {
	actors  ActorStore
	ledger  Ledger
	logger  *slog.Logger
	metrics *metrics.Metrics
	clock   func() time.Time

	mu sync.Mutex
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the wall clock, for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// New constructs a Service.
func New(actors ActorStore, log Ledger, opts ...Option) *Service {
	s := &Service{actors: actors, ledger: log, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a new actor. Re-registering an existing id fails with
// CodeConflict rather than silently overwriting.
func (s *Service) Register(ctx context.Context, id domain.ActorID, role domain.Role, name string) (*models.Actor, error) {
	name = strings.TrimSpace(name)

	actor, err := models.NewActor(id, role, name, s.clock().UTC())
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.actors.FindByID(ctx, id); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "actor already registered")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check actor")
	}

	event, err := ledger.New(ledger.EventActorRegistered, 0, actor.ID, ledger.ActorRegisteredPayload{
		ID:           actor.ID,
		Role:         actor.Role,
		Name:         actor.Name,
		RegisteredAt: actor.RegisteredAt,
	}, actor.RegisteredAt)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build event")
	}
	if _, err := s.ledger.Append(ctx, event); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit registration")
	}

	if err := s.actors.Create(ctx, actor); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store actor")
	}

	s.logEvent(ctx, "actor_registered", "actor_id", actor.ID, "role", actor.Role)
	if s.metrics != nil {
		s.metrics.ActorsRegistered.Inc()
	}
	return actor, nil
}

// SetActive toggles an actor's active flag. Only an active admin may call it;
// actors are never deleted, so deactivation preserves event attribution.
func (s *Service) SetActive(ctx context.Context, by domain.ActorID, id domain.ActorID, active bool) error {
	if err := s.Authorize(ctx, by, domain.RoleAdmin); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	actor, err := s.actors.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "actor not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load actor")
	}
	if err := actor.CanSetActive(active); err != nil {
		return err
	}

	event, err := ledger.New(ledger.EventActorStatusChanged, 0, by, ledger.ActorStatusChangedPayload{
		ID:     id,
		Active: active,
	}, s.clock().UTC())
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to build event")
	}
	if _, err := s.ledger.Append(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit status change")
	}

	actor.ApplySetActive(active)
	if err := s.actors.Update(ctx, actor); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store actor")
	}

	s.logEvent(ctx, "actor_status_changed", "actor_id", id, "active", active, "by", by)
	return nil
}

// GetRole returns the role registered for the actor.
func (s *Service) GetRole(ctx context.Context, id domain.ActorID) (domain.Role, error) {
	actor, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return actor.Role, nil
}

// Get returns the actor by id.
func (s *Service) Get(ctx context.Context, id domain.ActorID) (*models.Actor, error) {
	actor, err := s.actors.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "actor not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load actor")
	}
	return actor, nil
}

// List returns all registered actors in registration order.
func (s *Service) List(ctx context.Context) ([]*models.Actor, error) {
	actors, err := s.actors.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list actors")
	}
	return actors, nil
}

// Authorize verifies that the actor exists, is active, and holds one of the
// given roles (any role when none are given). Other services call this before
// mutating tenders or bids.
func (s *Service) Authorize(ctx context.Context, id domain.ActorID, roles ...domain.Role) error {
	actor, err := s.actors.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeUnauthorized, "actor is not registered")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load actor")
	}
	if !actor.IsActive() {
		return dErrors.New(dErrors.CodeUnauthorized, "actor is deactivated")
	}
	if len(roles) == 0 {
		return nil
	}
	for _, role := range roles {
		if actor.Role == role {
			return nil
		}
	}
	return dErrors.New(dErrors.CodeUnauthorized, "actor role is not permitted")
}

func (s *Service) logEvent(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}
