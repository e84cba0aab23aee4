package evaluations

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/scoreline/scoreline/internal/platform/httpx"
	"github.com/scoreline/scoreline/internal/rbac"
	"github.com/scoreline/scoreline/internal/shared"
)

var validate = validator.New()

// Handler serves the evaluation and analytics endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the evaluation endpoints.
func (h *Handler) MountRoutes(r chi.Router, guard rbac.Middleware) {
	if h == nil {
		return
	}
	r.With(guard.Require(rbac.PermEvaluationRead)).Get("/", h.handleList)
	r.With(guard.Require(rbac.PermEvaluationSubmit)).Post("/", h.handleSubmit)
	r.With(guard.RequireResource(rbac.ResourceEvaluation, rbac.PermEvaluationRead)).Get("/{id}", h.handleGet)
	r.With(guard.Require(rbac.PermEvaluationApprove)).Post("/{id}/approve", h.handleApprove)
	r.With(guard.Require(rbac.PermEvaluationApprove)).Post("/{id}/reject", h.handleReject)
	r.With(guard.Require(rbac.PermAnalyticsExport)).Get("/export.csv", h.handleExport)
}

// MountAnalyticsRoutes registers the aggregation endpoints.
func (h *Handler) MountAnalyticsRoutes(r chi.Router, guard rbac.Middleware) {
	if h == nil {
		return
	}
	r.With(guard.Require(rbac.PermAnalyticsRead)).Get("/teams", h.handleTeamAnalytics)
	r.With(guard.Require(rbac.PermAnalyticsRead)).Get("/salespeople", h.handleSalespersonAnalytics)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var in SubmitInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := validate.Struct(in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	ev, err := h.service.Submit(r.Context(), actorID(r), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ev)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	f := parseFilters(r)
	list, total, err := h.service.List(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"evaluations": list,
		"total":       total,
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ev, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ev)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Approve)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Reject)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, deciderID, id int64) (Evaluation, error)) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ev, err := fn(r.Context(), actorID(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ev)
}

func (h *Handler) handleTeamAnalytics(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.TeamAnalytics(r.Context(), parseWindow(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"teams": rows})
}

func (h *Handler) handleSalespersonAnalytics(w http.ResponseWriter, r *http.Request) {
	var teamID *int64
	if v, err := strconv.ParseInt(r.URL.Query().Get("teamId"), 10, 64); err == nil {
		teamID = &v
	}
	rows, err := h.service.SalespersonAnalytics(r.Context(), parseWindow(r), teamID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"salespeople": rows})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("evaluation operation failed",
		slog.String("path", r.URL.Path),
		slog.Any("error", err))
	httpx.RespondError(w, err)
}

func parseFilters(r *http.Request) Filters {
	q := r.URL.Query()
	var f Filters
	if v, err := strconv.ParseInt(q.Get("salespersonId"), 10, 64); err == nil {
		f.SalespersonID = &v
	}
	if v, err := strconv.ParseInt(q.Get("teamId"), 10, 64); err == nil {
		f.TeamID = &v
	}
	if v, err := strconv.ParseInt(q.Get("scorecardId"), 10, 64); err == nil {
		f.ScorecardID = &v
	}
	if v, err := strconv.ParseInt(q.Get("evaluatorId"), 10, 64); err == nil {
		f.EvaluatorID = &v
	}
	f.Status = q.Get("status")
	if ts, err := time.Parse(time.RFC3339, q.Get("startDate")); err == nil {
		f.From = ts
	}
	if ts, err := time.Parse(time.RFC3339, q.Get("endDate")); err == nil {
		f.To = ts
	}
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	f.Offset, _ = strconv.Atoi(q.Get("offset"))
	return f
}

func parseWindow(r *http.Request) Window {
	var w Window
	if ts, err := time.Parse(time.RFC3339, r.URL.Query().Get("startDate")); err == nil {
		w.From = ts
	}
	if ts, err := time.Parse(time.RFC3339, r.URL.Query().Get("endDate")); err == nil {
		w.To = ts
	}
	return w
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return 0, false
	}
	return id, true
}

func actorID(r *http.Request) int64 {
	if identity, ok := shared.IdentityFromContext(r.Context()); ok {
		return identity.UserID
	}
	return 0
}
