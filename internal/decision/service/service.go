package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	dmetrics "complyledger/internal/decision/metrics"
	"complyledger/internal/decision/models"
	"complyledger/internal/decision/ports"
	"complyledger/internal/policy"
	dErrors "complyledger/pkg/domain-errors"
	audit "complyledger/pkg/platform/audit"
	"complyledger/pkg/platform/sentinel"
	"complyledger/pkg/requestcontext"
)

// Ledger is the decision store. Writers are atomic per dedup key, and
// Supersede is atomic per (organization, step).
type Ledger interface {
	CreateOrReplay(ctx context.Context, d *models.ComplianceDecision, window time.Duration) (*models.ComplianceDecision, bool, error)
	Supersede(ctx context.Context, previousID uuid.UUID, d *models.ComplianceDecision, window time.Duration) (*models.ComplianceDecision, bool, error)
	FindRecent(ctx context.Context, key models.DedupKey, asOf time.Time, window time.Duration) (*models.ComplianceDecision, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.ComplianceDecision, error)
	FindActive(ctx context.Context, organizationID string, step models.Step, now time.Time) (*models.ComplianceDecision, error)
	Query(ctx context.Context, filter models.DecisionFilter, now time.Time) ([]*models.ComplianceDecision, int, error)
	ListRequiringReview(ctx context.Context, asOf time.Time) ([]*models.ComplianceDecision, error)
	ListExpired(ctx context.Context, now time.Time) ([]*models.ComplianceDecision, error)
}

// ReplayCache is an optional fast path in front of the ledger's dedup lookup.
type ReplayCache interface {
	Get(ctx context.Context, key models.DedupKey) (uuid.UUID, bool, error)
	Set(ctx context.Context, key models.DedupKey, id uuid.UUID, ttl time.Duration) error
}

// Config carries the decision policy defaults.
type Config struct {
	PolicyVersion         string
	DedupWindow           time.Duration
	DefaultExpirationDays int
	DefaultReviewDays     int
	SummaryTopReasons     int
	StatusPolicy          policy.StatusPolicy
}

func DefaultConfig() Config {
	return Config{
		PolicyVersion:         "1.0.0",
		DedupWindow:           time.Hour,
		DefaultExpirationDays: 365,
		DefaultReviewDays:     90,
		SummaryTopReasons:     5,
		StatusPolicy:          policy.DefaultStatusPolicy(),
	}
}

const evidenceTimeout = 5 * time.Second

// Service issues, supersedes and queries compliance decisions.
type Service struct {
	ledger         Ledger
	evidence       ports.EvidenceSource
	jurisdictions  ports.JurisdictionPort
	evaluator      *policy.Evaluator
	cache          ReplayCache
	cfg            Config
	logger         *slog.Logger
	auditPublisher ports.AuditPort
	metrics        *dmetrics.Metrics
	clock          func() time.Time
	tracer         trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher ports.AuditPort) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *dmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock overrides time.Now for decision timestamps and windows.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

func WithConfig(cfg Config) Option {
	return func(s *Service) {
		s.cfg = cfg
	}
}

// WithReplayCache enables the cache fast path for repeated submissions.
func WithReplayCache(cache ReplayCache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

// WithEvaluator replaces the evaluator built from Config.StatusPolicy.
func WithEvaluator(e *policy.Evaluator) Option {
	return func(s *Service) {
		s.evaluator = e
	}
}

// New constructs a Service.
func New(ledger Ledger, evidence ports.EvidenceSource, jurisdictions ports.JurisdictionPort, opts ...Option) *Service {
	s := &Service{
		ledger:        ledger,
		evidence:      evidence,
		jurisdictions: jurisdictions,
		cfg:           DefaultConfig(),
		logger:        slog.Default(),
		clock:         time.Now,
		tracer:        otel.Tracer("complyledger/decision"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.evaluator == nil {
		s.evaluator = policy.NewEvaluator(policy.WithStatusPolicy(s.cfg.StatusPolicy))
	}
	if s.cfg.DedupWindow <= 0 {
		s.cfg.DedupWindow = time.Hour
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

// emit is best-effort: the decision has already committed.
func (s *Service) emit(ctx context.Context, action audit.AuditEvent, d *models.ComplianceDecision, attrs map[string]string) {
	if s.auditPublisher == nil {
		return
	}
	event := audit.NewEvent(action, d.ID.String(), s.clock())
	event.OrganizationID = d.OrganizationID
	event.Decision = string(d.Outcome)
	event.Reason = d.Reason
	event.ActorID = actorFrom(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	event.Attributes = map[string]string{
		"step":           string(d.Step),
		"policy_version": d.PolicyVersion,
	}
	for k, v := range attrs {
		event.Attributes[k] = v
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", string(action),
			"decision_id", d.ID.String(),
			"error", err,
		)
	}
}

func wrapLedgerErr(err error, action string) error {
	if err == nil {
		return nil
	}
	if _, ok := dErrors.From(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "decision not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "decision was superseded concurrently, re-read and retry")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeValidation, "previous decision belongs to a different organization or step")
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "timed out trying to "+action)
	default:
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "failed to "+action)
	}
}

// track starts a span for an operation. The returned func ends it and
// records err when non-nil.
func (s *Service) track(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := s.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		}
		span.End()
	}
}
