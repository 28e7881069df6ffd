package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"complyledger/internal/decision/models"
	dErrors "complyledger/pkg/domain-errors"
	"complyledger/pkg/platform/httputil"
	"complyledger/pkg/requestcontext"
)

// Service defines the decision ledger operations exposed over HTTP.
type Service interface {
	CreateDecision(ctx context.Context, req models.CreateDecisionRequest, decisionMaker string) (*models.ComplianceDecision, bool, error)
	UpdateDecision(ctx context.Context, previousID uuid.UUID, req models.CreateDecisionRequest, decisionMaker string) (*models.ComplianceDecision, bool, error)
	GetDecision(ctx context.Context, id uuid.UUID) (*models.ComplianceDecision, error)
	GetActiveDecision(ctx context.Context, organizationID string, step models.Step) (*models.ComplianceDecision, error)
	QueryDecisions(ctx context.Context, filter models.DecisionFilter) (*models.DecisionPage, error)
	GetDecisionHistory(ctx context.Context, id uuid.UUID) ([]*models.ComplianceDecision, error)
	GetDecisionsRequiringReview(ctx context.Context, asOf time.Time) ([]*models.ComplianceDecision, error)
	GetExpiredDecisions(ctx context.Context) ([]*models.ComplianceDecision, error)
}

// Handler serves the decision ledger endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Register mounts the decision endpoints on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/decisions", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleQuery)
		r.Get("/review-due", h.handleReviewDue)
		r.Get("/expired", h.handleExpired)
		r.Get("/{decisionID}", h.handleGet)
		r.Get("/{decisionID}/history", h.handleHistory)
		r.Post("/{decisionID}/supersede", h.handleSupersede)
	})
	r.Get("/organizations/{orgID}/steps/{step}/decision", h.handleActive)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[DecisionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	d, replay, err := h.service.CreateDecision(ctx, req.ToCreate(), req.DecisionMaker)
	if err != nil {
		h.logFailure(ctx, "create decision failed", err,
			"organization_id", req.OrganizationID,
			"step", req.Step,
		)
		httputil.WriteError(w, err)
		return
	}
	status := http.StatusCreated
	if replay {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, DecisionResponse{ComplianceDecision: d, IsReplay: replay})
}

func (h *Handler) handleSupersede(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	previousID, ok := parseDecisionID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[DecisionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	d, replay, err := h.service.UpdateDecision(ctx, previousID, req.ToCreate(), req.DecisionMaker)
	if err != nil {
		h.logFailure(ctx, "supersede decision failed", err, "previous_decision_id", previousID)
		httputil.WriteError(w, err)
		return
	}
	status := http.StatusCreated
	if replay {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, DecisionResponse{ComplianceDecision: d, IsReplay: replay})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseDecisionID(w, r)
	if !ok {
		return
	}
	d, err := h.service.GetDecision(r.Context(), id)
	if err != nil {
		h.logFailure(r.Context(), "get decision failed", err, "decision_id", id)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseDecisionID(w, r)
	if !ok {
		return
	}
	chain, err := h.service.GetDecisionHistory(r.Context(), id)
	if err != nil {
		h.logFailure(r.Context(), "decision history failed", err, "decision_id", id)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromList(chain))
}

func (h *Handler) handleActive(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	step, err := models.ParseStep(chi.URLParam(r, "step"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	d, err := h.service.GetActiveDecision(r.Context(), orgID, step)
	if err != nil {
		h.logFailure(r.Context(), "active decision lookup failed", err,
			"organization_id", orgID,
			"step", step,
		)
		httputil.WriteError(w, err)
		return
	}
	if d == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no active decision"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	page, err := h.service.QueryDecisions(r.Context(), filter)
	if err != nil {
		h.logFailure(r.Context(), "query decisions failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromPage(page))
}

func (h *Handler) handleReviewDue(w http.ResponseWriter, r *http.Request) {
	var asOf time.Time
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		t, err := timeParam("as_of", raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		asOf = *t
	}
	due, err := h.service.GetDecisionsRequiringReview(r.Context(), asOf)
	if err != nil {
		h.logFailure(r.Context(), "review-due lookup failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromList(due))
}

func (h *Handler) handleExpired(w http.ResponseWriter, r *http.Request) {
	expired, err := h.service.GetExpiredDecisions(r.Context())
	if err != nil {
		h.logFailure(r.Context(), "expired lookup failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromList(expired))
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error, args ...any) {
	attrs := append([]any{"request_id", requestcontext.RequestID(ctx), "error", err}, args...)
	switch dErrors.CodeOf(err) {
	case dErrors.CodeStoreUnavailable, dErrors.CodeUnavailable, dErrors.CodeTimeout,
		dErrors.CodeInternal, dErrors.CodeInvariantViolation:
		h.logger.ErrorContext(ctx, msg, attrs...)
	default:
		h.logger.WarnContext(ctx, msg, attrs...)
	}
}

func filterFromQuery(r *http.Request) (models.DecisionFilter, error) {
	q := r.URL.Query()
	filter := models.DecisionFilter{
		OrganizationID:    q.Get("organization_id"),
		Step:              models.Step(q.Get("step")),
		IncludeSuperseded: q.Get("include_superseded") == "true",
		IncludeExpired:    q.Get("include_expired") == "true",
	}
	var err error
	if filter.FromDate, err = timeParam("from_date", q.Get("from_date")); err != nil {
		return filter, err
	}
	if filter.ToDate, err = timeParam("to_date", q.Get("to_date")); err != nil {
		return filter, err
	}
	if filter.Page, err = intParam(q.Get("page")); err != nil {
		return filter, err
	}
	if filter.PageSize, err = intParam(q.Get("page_size")); err != nil {
		return filter, err
	}
	return filter, nil
}

func parseDecisionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "decisionID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "decision id must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}

func timeParam(name, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, name+" must be an RFC 3339 timestamp")
	}
	return &t, nil
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, "paging parameters must be integers")
	}
	return n, nil
}
