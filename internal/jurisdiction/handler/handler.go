package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"complyledger/internal/jurisdiction/models"
	dErrors "complyledger/pkg/domain-errors"
	"complyledger/pkg/platform/httputil"
	"complyledger/pkg/requestcontext"
)

// Service defines the jurisdiction operations exposed over HTTP.
type Service interface {
	CreateRule(ctx context.Context, req models.CreateRuleRequest) (*models.JurisdictionRule, error)
	GetRule(ctx context.Context, id uuid.UUID) (*models.JurisdictionRule, error)
	UpdateRule(ctx context.Context, id uuid.UUID, req models.UpdateRuleRequest) (*models.JurisdictionRule, error)
	DeleteRule(ctx context.Context, id uuid.UUID) error
	ListRules(ctx context.Context, filter models.ListRulesFilter) (*models.RulePage, error)
	AssignJurisdiction(ctx context.Context, req models.AssignJurisdictionRequest) (*models.TokenJurisdictionAssignment, error)
	RemoveJurisdiction(ctx context.Context, assetID, network, code string) error
	GetAssignments(ctx context.Context, assetID, network string) ([]*models.TokenJurisdictionAssignment, error)
}

// Handler serves the admin endpoints for rules and token assignments.
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

// Register mounts the jurisdiction endpoints on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/admin/jurisdictions/rules", func(r chi.Router) {
		r.Post("/", h.handleCreateRule)
		r.Get("/", h.handleListRules)
		r.Get("/{ruleID}", h.handleGetRule)
		r.Patch("/{ruleID}", h.handleUpdateRule)
		r.Delete("/{ruleID}", h.handleDeleteRule)
	})
	r.Route("/admin/tokens/{network}/{assetID}/jurisdictions", func(r chi.Router) {
		r.Get("/", h.handleGetAssignments)
		r.Post("/", h.handleAssign)
		r.Delete("/{code}", h.handleRemove)
	})
}

func (h *Handler) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RuleRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	rule, err := h.service.CreateRule(ctx, req.ToCreate())
	if err != nil {
		h.logFailure(ctx, "create rule failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, rule)
}

func (h *Handler) handleGetRule(w http.ResponseWriter, r *http.Request) {
	id, ok := parseRuleID(w, r)
	if !ok {
		return
	}
	rule, err := h.service.GetRule(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rule)
}

func (h *Handler) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, ok := parseRuleID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateRuleRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	rule, err := h.service.UpdateRule(ctx, id, req.ToUpdate())
	if err != nil {
		h.logFailure(ctx, "update rule failed", err, "rule_id", id)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rule)
}

func (h *Handler) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id, ok := parseRuleID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteRule(r.Context(), id); err != nil {
		h.logFailure(r.Context(), "delete rule failed", err, "rule_id", id)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListRules(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.ListRulesFilter{
		JurisdictionCode:    q.Get("jurisdiction_code"),
		RegulatoryFramework: q.Get("regulatory_framework"),
		ActiveOnly:          q.Get("active_only") == "true",
	}
	var err error
	if filter.Page, err = intParam(q.Get("page")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if filter.PageSize, err = intParam(q.Get("page_size")); err != nil {
		httputil.WriteError(w, err)
		return
	}

	page, err := h.service.ListRules(r.Context(), filter)
	if err != nil {
		h.logFailure(r.Context(), "list rules failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRulePage(page))
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[AssignRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	assigned, err := h.service.AssignJurisdiction(ctx, models.AssignJurisdictionRequest{
		AssetID:          chi.URLParam(r, "assetID"),
		Network:          chi.URLParam(r, "network"),
		JurisdictionCode: req.JurisdictionCode,
		IsPrimary:        req.IsPrimary,
		Reason:           req.Reason,
	})
	if err != nil {
		h.logFailure(ctx, "assign jurisdiction failed", err, "asset_id", chi.URLParam(r, "assetID"))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, assigned)
}

func (h *Handler) handleGetAssignments(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.GetAssignments(r.Context(), chi.URLParam(r, "assetID"), chi.URLParam(r, "network"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, AssignmentsResponse{Assignments: list})
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	err := h.service.RemoveJurisdiction(r.Context(),
		chi.URLParam(r, "assetID"), chi.URLParam(r, "network"), chi.URLParam(r, "code"))
	if err != nil {
		h.logFailure(r.Context(), "remove jurisdiction failed", err, "asset_id", chi.URLParam(r, "assetID"))
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error, args ...any) {
	attrs := append([]any{"request_id", requestcontext.RequestID(ctx), "error", err}, args...)
	if dErrors.HasCode(err, dErrors.CodeStoreUnavailable) || dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, msg, attrs...)
		return
	}
	h.logger.WarnContext(ctx, msg, attrs...)
}

func parseRuleID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "ruleID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "rule id must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
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
