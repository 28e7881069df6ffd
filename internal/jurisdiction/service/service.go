package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	jmetrics "complyledger/internal/jurisdiction/metrics"
	"complyledger/internal/jurisdiction/models"
	dErrors "complyledger/pkg/domain-errors"
	audit "complyledger/pkg/platform/audit"
	"complyledger/pkg/platform/sentinel"
	"complyledger/pkg/requestcontext"
)

type RuleStore interface {
	CreateIfCodeAvailable(ctx context.Context, rule *models.JurisdictionRule) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.JurisdictionRule, error)
	FindActiveByCode(ctx context.Context, code string) (*models.JurisdictionRule, error)
	FindByCode(ctx context.Context, code string) (*models.JurisdictionRule, error)
	Execute(ctx context.Context, id uuid.UUID, validate func(*models.JurisdictionRule) error, mutate func(*models.JurisdictionRule)) (*models.JurisdictionRule, error)
	Delete(ctx context.Context, id uuid.UUID, validate func(*models.JurisdictionRule) error) error
	List(ctx context.Context, filter models.ListRulesFilter) ([]*models.JurisdictionRule, int, error)
	ListActive(ctx context.Context) ([]*models.JurisdictionRule, error)
}

type AssignmentStore interface {
	Assign(ctx context.Context, a *models.TokenJurisdictionAssignment) (*models.TokenJurisdictionAssignment, error)
	Remove(ctx context.Context, key models.AssetKey, code string) error
	ListByAsset(ctx context.Context, key models.AssetKey) ([]*models.TokenJurisdictionAssignment, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service owns jurisdiction rules and token assignments.
type Service struct {
	rules          RuleStore
	assignments    AssignmentStore
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *jmetrics.Metrics
	clock          func() time.Time
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *jmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock overrides time.Now for timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// New constructs a Service.
func New(rules RuleStore, assignments AssignmentStore, opts ...Option) *Service {
	s := &Service{
		rules:       rules,
		assignments: assignments,
		logger:      slog.Default(),
		clock:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const systemActor = "system"

func actorFrom(ctx context.Context) string {
	if a := requestcontext.Actor(ctx); a != "" {
		return a
	}
	return systemActor
}

// emit is best-effort: the write has already committed.
func (s *Service) emit(ctx context.Context, action audit.AuditEvent, subject string, attrs map[string]string) {
	if s.auditPublisher == nil {
		return
	}
	event := audit.NewEvent(action, subject, s.clock())
	event.ActorID = actorFrom(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	event.Attributes = attrs
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", string(action),
			"subject", subject,
			"error", err,
		)
	}
}

func wrapRuleErr(err error, action string) error {
	if err == nil {
		return nil
	}
	if _, ok := dErrors.From(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "rule not found")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeDuplicateJurisdiction, "an active rule already exists for this jurisdiction_code")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "rule was modified concurrently")
	default:
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "failed to "+action)
	}
}

func wrapAssignmentErr(err error, action string) error {
	if err == nil {
		return nil
	}
	if _, ok := dErrors.From(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "assignment not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "concurrent primary assignment, re-read and retry")
	default:
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "failed to "+action)
	}
}
