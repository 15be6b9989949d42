// Package service implements tender lifecycle operations: creation,
// publication, listing with lazy expiry, and cancellation. Closing with an
// award lives in internal/award.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"tenderledger/internal/ledger"
	"tenderledger/internal/platform/metrics"
	"tenderledger/internal/tender/models"
	"tenderledger/pkg/domain"
	dErrors "tenderledger/pkg/domain-errors"
	"tenderledger/pkg/platform/locks"
	"tenderledger/pkg/platform/sentinel"
)

// TenderStore is the persistence port for tenders.
type TenderStore interface {
	Insert(ctx context.Context, t *models.Tender) error
	FindByID(ctx context.Context, id domain.TenderID) (*models.Tender, error)
	Update(ctx context.Context, t *models.Tender) error
	List(ctx context.Context) ([]*models.Tender, error)
	LastID(ctx context.Context) (domain.TenderID, error)
}

// Authorizer checks that an actor exists, is active and holds one of the
// given roles. Backed by the identity registry.
type Authorizer interface {
	Authorize(ctx context.Context, id domain.ActorID, roles ...domain.Role) error
}

// Ledger is the commit point for tender mutations.
type Ledger interface {
	Append(ctx context.Context, events ...ledger.Event) ([]ledger.Event, error)
}

// CreateRequest carries the caller-supplied fields for a new tender.
type CreateRequest struct {
	Title       string
	Description string
	Budget      int64
	Deadline    time.Time
	DocumentRef string
}

// Normalize trims free-text fields in place.
func (r *CreateRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.DocumentRef = strings.TrimSpace(r.DocumentRef)
}

// Service orchestrates tender lifecycle operations.
type Service struct {
	tenders    TenderStore
	authorizer Authorizer
	ledger     Ledger
	locks      *locks.Keyed
	allowDraft bool
	logger     *slog.Logger
	metrics    *metrics.Metrics
	clock      func() time.Time

	// createMu serializes id allocation; per-tender locks cannot cover an id
	// that does not exist yet.
	createMu sync.Mutex
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithDraftState makes new tenders start as drafts requiring an explicit
// Publish call before they accept bids.
func WithDraftState() Option {
	return func(s *Service) { s.allowDraft = true }
}

// WithClock overrides the wall clock, for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// New constructs a Service. The keyed lock set must be shared with the bid
// and award services so all mutations of one tender serialize.
func New(tenders TenderStore, authorizer Authorizer, log Ledger, keyed *locks.Keyed, opts ...Option) *Service {
	s := &Service{
		tenders:    tenders,
		authorizer: authorizer,
		ledger:     log,
		locks:      keyed,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create publishes a new tender. The creator must be an active officer or
// admin; the deadline must be strictly in the future at call time.
func (s *Service) Create(ctx context.Context, creator domain.ActorID, req CreateRequest) (*models.Tender, error) {
	if err := s.authorizer.Authorize(ctx, creator, domain.RoleOfficer, domain.RoleAdmin); err != nil {
		return nil, err
	}
	req.Normalize()

	status := models.StatusOpen
	if s.allowDraft {
		status = models.StatusDraft
	}

	now := s.clock().UTC()

	s.createMu.Lock()
	defer s.createMu.Unlock()

	last, err := s.tenders.LastID(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate tender id")
	}

	t, err := models.NewTender(last+1, req.Title, req.Description, req.Budget, req.Deadline, creator, status, req.DocumentRef, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	event, err := ledger.New(ledger.EventTenderCreated, t.ID, creator, ledger.TenderCreatedPayload{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Budget:      t.Budget,
		Deadline:    t.Deadline,
		Creator:     t.Creator,
		Status:      string(t.Status),
		DocumentRef: t.DocumentRef,
		CreatedAt:   t.CreatedAt,
	}, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build event")
	}
	if _, err := s.ledger.Append(ctx, event); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit tender")
	}
	if err := s.tenders.Insert(ctx, t); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store tender")
	}

	s.logEvent(ctx, "tender_created", "tender_id", t.ID, "creator", creator, "budget", t.Budget)
	if s.metrics != nil {
		s.metrics.TendersCreated.Inc()
	}
	return t, nil
}

// Publish moves a draft tender to open. Only the creator or an active admin
// may publish.
func (s *Service) Publish(ctx context.Context, id domain.TenderID, by domain.ActorID) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	t, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorizeOwner(ctx, t, by); err != nil {
		return err
	}
	if err := t.CanPublish(); err != nil {
		return err
	}

	event, err := ledger.New(ledger.EventTenderPublished, id, by, ledger.TenderPublishedPayload{ID: id}, s.clock().UTC())
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to build event")
	}
	if _, err := s.ledger.Append(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit publication")
	}

	t.ApplyPublish()
	if err := s.tenders.Update(ctx, t); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store tender")
	}

	s.logEvent(ctx, "tender_published", "tender_id", id, "by", by)
	return nil
}

// Get returns the tender by id.
func (s *Service) Get(ctx context.Context, id domain.TenderID) (*models.Tender, error) {
	unlock := s.locks.RLock(id)
	defer unlock()
	return s.load(ctx, id)
}

// ListOpen returns open tenders ordered by id ascending. Tenders past their
// deadline are excluded even though their stored status still reads open:
// expiry is lazy and only an explicit close or cancel flips the status.
func (s *Service) ListOpen(ctx context.Context) ([]*models.Tender, error) {
	all, err := s.tenders.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list tenders")
	}
	now := s.clock().UTC()
	open := make([]*models.Tender, 0, len(all))
	for _, t := range all {
		if t.IsBiddable(now) {
			open = append(open, t)
		}
	}
	return open, nil
}

// ListByCreator returns all tenders created by the given actor, id ascending.
func (s *Service) ListByCreator(ctx context.Context, creator domain.ActorID) ([]*models.Tender, error) {
	all, err := s.tenders.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list tenders")
	}
	mine := make([]*models.Tender, 0)
	for _, t := range all {
		if t.Creator == creator {
			mine = append(mine, t)
		}
	}
	return mine, nil
}

// Cancel terminates an open tender without an award. Only the creator or an
// active admin may cancel; the state is terminal.
func (s *Service) Cancel(ctx context.Context, id domain.TenderID, by domain.ActorID) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	t, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorizeOwner(ctx, t, by); err != nil {
		return err
	}
	if err := t.CanCancel(); err != nil {
		return err
	}

	event, err := ledger.New(ledger.EventTenderCancelled, id, by, ledger.TenderCancelledPayload{ID: id}, s.clock().UTC())
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to build event")
	}
	if _, err := s.ledger.Append(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit cancellation")
	}

	t.ApplyCancel()
	if err := s.tenders.Update(ctx, t); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store tender")
	}

	s.logEvent(ctx, "tender_cancelled", "tender_id", id, "by", by)
	if s.metrics != nil {
		s.metrics.TendersCancelled.Inc()
	}
	return nil
}

func (s *Service) load(ctx context.Context, id domain.TenderID) (*models.Tender, error) {
	t, err := s.tenders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "tender not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load tender")
	}
	return t, nil
}

// authorizeOwner permits the original creator, or any active admin.
func (s *Service) authorizeOwner(ctx context.Context, t *models.Tender, by domain.ActorID) error {
	if by == t.Creator {
		return nil
	}
	if err := s.authorizer.Authorize(ctx, by, domain.RoleAdmin); err != nil {
		return dErrors.New(dErrors.CodeUnauthorized, "only the creator or an admin may do this")
	}
	return nil
}

func (s *Service) logEvent(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}
