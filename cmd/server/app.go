package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"

	"complyledger/internal/decision/adapters"
	dhandler "complyledger/internal/decision/handler"
	dmetrics "complyledger/internal/decision/metrics"
	"complyledger/internal/decision/review"
	dservice "complyledger/internal/decision/service"
	dstore "complyledger/internal/decision/store"
	"complyledger/internal/decision/store/idempotency"
	jhandler "complyledger/internal/jurisdiction/handler"
	jmetrics "complyledger/internal/jurisdiction/metrics"
	jmodels "complyledger/internal/jurisdiction/models"
	jservice "complyledger/internal/jurisdiction/service"
	"complyledger/internal/jurisdiction/store/assignment"
	"complyledger/internal/jurisdiction/store/rule"
	"complyledger/internal/platform/config"
	"complyledger/internal/platform/kafka"
	platformmetrics "complyledger/internal/platform/metrics"
	"complyledger/internal/platform/middleware"
	"complyledger/internal/platform/postgres"
	"complyledger/internal/platform/redis"
	"complyledger/internal/policy"
	"complyledger/migrations"
	audit "complyledger/pkg/platform/audit"
	"complyledger/pkg/platform/audit/publishers/compliance"
	auditkafka "complyledger/pkg/platform/audit/store/kafka"
	auditmemory "complyledger/pkg/platform/audit/store/memory"
	auditpostgres "complyledger/pkg/platform/audit/store/postgres"
	"complyledger/pkg/platform/circuit"
	"complyledger/pkg/platform/httputil"
	platformstrings "complyledger/pkg/platform/strings"
)

// app holds the wired components and the resources to release on shutdown.
type app struct {
	cfg           config.Server
	logger        *slog.Logger
	registry      *prometheus.Registry
	jurisdictions *jservice.Service
	decisions     *dservice.Service
	evidence      *adapters.StaticEvidenceSource
	worker        *review.Worker

	db     *sql.DB
	pool   *pgxpool.Pool
	redis  *redis.Client
	kafka  *kgo.Client
	health []func(context.Context) error
}

func buildApp(ctx context.Context, cfg config.Server, logger *slog.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	sink := platformmetrics.NewPrometheus("complyledger", a.registry)

	if err := a.openBackends(ctx); err != nil {
		return nil, err
	}

	auditStore, err := a.auditStore(ctx)
	if err != nil {
		return nil, err
	}
	publisher := compliance.New(auditStore,
		compliance.WithLogger(logger),
		compliance.WithMetrics(sink),
	)

	var (
		rules       jservice.RuleStore
		assignments jservice.AssignmentStore
		ledger      dservice.Ledger
	)
	if a.db != nil {
		rules = rule.NewPostgres(a.db)
		assignments = assignment.NewPostgres(a.db)
		ledger = dstore.NewPostgres(a.pool)
	} else {
		rules = rule.NewInMemory()
		assignments = assignment.NewInMemory()
		ledger = dstore.NewInMemory()
	}

	a.jurisdictions = jservice.New(rules, assignments,
		jservice.WithLogger(logger),
		jservice.WithAuditPublisher(publisher),
		jservice.WithMetrics(jmetrics.New(a.registry)),
	)

	statusPolicy, err := statusPolicyFrom(cfg.Policy)
	if err != nil {
		return nil, err
	}
	dcfg := dservice.Config{
		PolicyVersion:         cfg.Policy.Version,
		DedupWindow:           cfg.Policy.DedupWindow,
		DefaultExpirationDays: cfg.Policy.DefaultExpirationDays,
		DefaultReviewDays:     cfg.Policy.DefaultReviewDays,
		SummaryTopReasons:     cfg.Policy.SummaryTopReasons,
		StatusPolicy:          statusPolicy,
	}
	decisionMetrics := dmetrics.New(sink)
	opts := []dservice.Option{
		dservice.WithLogger(logger),
		dservice.WithAuditPublisher(publisher),
		dservice.WithMetrics(decisionMetrics),
		dservice.WithConfig(dcfg),
	}
	if a.redis != nil {
		opts = append(opts, dservice.WithReplayCache(idempotency.NewRedis(a.redis.Client)))
	}
	a.evidence = adapters.NewStaticEvidenceSource()
	evidence := adapters.NewGuardedEvidenceSource(a.evidence, circuit.New("evidence"), logger)
	a.decisions = dservice.New(ledger, evidence, adapters.NewJurisdictionAdapter(a.jurisdictions), opts...)

	if cfg.Review.Enabled {
		a.worker = review.New(a.decisions, cfg.Review.Interval,
			review.WithLogger(logger),
			review.WithAuditPublisher(publisher),
			review.WithMetrics(decisionMetrics),
		)
	}
	return a, nil
}

func (a *app) openBackends(ctx context.Context) error {
	if a.cfg.Database.URL != "" {
		db, err := postgres.OpenDB(ctx, a.cfg.Database)
		if err != nil {
			return err
		}
		a.db = db
		stmts, err := migrations.Statements()
		if err != nil {
			return err
		}
		if err := postgres.Migrate(ctx, db, stmts); err != nil {
			return err
		}
		pool, err := postgres.OpenPool(ctx, a.cfg.Database)
		if err != nil {
			return err
		}
		a.pool = pool
		a.health = append(a.health, db.PingContext, pool.Ping)
		a.logger.InfoContext(ctx, "postgres stores enabled")
	}

	client, err := redis.New(ctx, a.cfg.Redis)
	if err != nil {
		return err
	}
	if client != nil {
		a.redis = client
		a.health = append(a.health, client.Health)
		a.logger.InfoContext(ctx, "redis idempotency cache enabled")
	}

	kc, err := kafka.NewClient(a.cfg.Kafka)
	if err != nil {
		return err
	}
	if kc != nil {
		a.kafka = kc
		if err := kafka.EnsureTopic(ctx, kc, a.cfg.Kafka.AuditTopic, a.cfg.Kafka.Partitions, a.logger); err != nil {
			return err
		}
		a.health = append(a.health, kc.Ping)
	}
	return nil
}

// auditStore prefers Kafka, then the Postgres outbox, then memory.
func (a *app) auditStore(ctx context.Context) (audit.Store, error) {
	switch {
	case a.kafka != nil:
		a.logger.InfoContext(ctx, "audit events published to kafka", "topic", a.cfg.Kafka.AuditTopic)
		return auditkafka.New(a.kafka, a.cfg.Kafka.AuditTopic), nil
	case a.db != nil:
		return auditpostgres.New(a.db), nil
	default:
		return auditmemory.NewInMemoryStore(), nil
	}
}

func statusPolicyFrom(cfg config.PolicyConfig) (policy.StatusPolicy, error) {
	p := policy.StatusPolicy{MaxNonBlockingFailures: cfg.MaxNonBlockingFailures}
	for _, raw := range platformstrings.DedupeAndTrim(cfg.BlockingSeverities) {
		sev, err := jmodels.ParseSeverity(raw)
		if err != nil {
			return policy.StatusPolicy{}, fmt.Errorf("invalid config: blocking severity %q: %w", raw, err)
		}
		p.BlockingSeverities = append(p.BlockingSeverities, sev)
	}
	return p, nil
}

func (a *app) router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Actor)

	r.Get("/healthz", a.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))

	dhandler.New(a.decisions, a.logger).Register(r)
	if a.cfg.AdminToken == "" {
		a.logger.Warn("admin token not set, jurisdiction admin routes are unprotected")
	}
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdminToken(a.cfg.AdminToken, a.logger))
		jhandler.New(a.jurisdictions, a.logger).Register(r)
	})
	return r
}

func (a *app) handleHealth(w http.ResponseWriter, r *http.Request) {
	for _, check := range a.health {
		if err := check(r.Context()); err != nil {
			a.logger.ErrorContext(r.Context(), "health check failed", "error", err)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Close releases backends in reverse order of opening.
func (a *app) Close() {
	var errs []error
	if a.kafka != nil {
		a.kafka.Close()
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("closing backends", "error", err)
	}
}
