package gdpr

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/scoreline/scoreline/internal/platform/httpx"
	"github.com/scoreline/scoreline/internal/rbac"
	"github.com/scoreline/scoreline/internal/shared"
)

// Handler serves the data-subject request endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the workflow endpoints, each behind its own
// permission.
func (h *Handler) MountRoutes(r chi.Router, guard rbac.Middleware) {
	if h == nil {
		return
	}
	r.With(guard.Require(rbac.PermGDPRAccess)).Get("/data-access", h.handleAccess)
	r.With(guard.Require(rbac.PermGDPRExport)).Post("/data-portability", h.handlePortability)
	r.With(guard.Require(rbac.PermGDPRErase)).Post("/data-erasure", h.handleErasure)
	r.With(guard.Require(rbac.PermGDPRRectify)).Post("/data-rectification", h.handleRectification)
	r.With(guard.Require(rbac.PermGDPRRestrict)).Post("/data-restriction", h.handleRestriction)
	r.With(guard.Require(rbac.PermGDPRAccess)).Post("/data-subject-request", h.handleSubjectRequest)
	r.With(guard.Require(rbac.PermAuditRead)).Get("/requests", h.handleListRequests)
}

type subjectPayload struct {
	UserID      int64             `json:"userId"`
	Type        RequestType       `json:"type,omitempty"`
	Corrections map[string]string `json:"corrections,omitempty"`
	Restriction RestrictionType   `json:"restrictionType,omitempty"`
	Reason      string            `json:"reason,omitempty"`
}

func (h *Handler) handleAccess(w http.ResponseWriter, r *http.Request) {
	userID, ok := subjectID(w, r)
	if !ok {
		return
	}
	bundle, err := h.service.ProcessAccess(r.Context(), userID, callerID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bundle)
}

func (h *Handler) handlePortability(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodePayload(w, r)
	if !ok {
		return
	}
	export, err := h.service.ProcessPortability(r.Context(), payload.UserID, callerID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, export)
}

func (h *Handler) handleErasure(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodePayload(w, r)
	if !ok {
		return
	}
	result, err := h.service.ProcessErasure(r.Context(), payload.UserID, callerID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleRectification(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodePayload(w, r)
	if !ok {
		return
	}
	applied, err := h.service.ProcessRectification(r.Context(), payload.UserID, callerID(r), payload.Corrections)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"userId":  payload.UserID,
		"applied": applied,
	})
}

func (h *Handler) handleRestriction(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodePayload(w, r)
	if !ok {
		return
	}
	restriction, err := h.service.ProcessRestriction(r.Context(), payload.UserID, callerID(r), payload.Restriction, payload.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, restriction)
}

// handleSubjectRequest is the generic entry point dispatching on the
// request type in the payload.
func (h *Handler) handleSubjectRequest(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodePayload(w, r)
	if !ok {
		return
	}
	if !payload.Type.Valid() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown request type")
		return
	}

	ctx := r.Context()
	caller := callerID(r)
	var result any
	var err error
	switch payload.Type {
	case RequestAccess:
		result, err = h.service.ProcessAccess(ctx, payload.UserID, caller)
	case RequestPortability:
		result, err = h.service.ProcessPortability(ctx, payload.UserID, caller)
	case RequestErasure:
		result, err = h.service.ProcessErasure(ctx, payload.UserID, caller)
	case RequestRectification:
		result, err = h.service.ProcessRectification(ctx, payload.UserID, caller, payload.Corrections)
	case RequestRestriction:
		result, err = h.service.ProcessRestriction(ctx, payload.UserID, caller, payload.Restriction, payload.Reason)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"type":   payload.Type,
		"result": result,
	})
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	requests, total, err := h.service.Requests(r.Context(), limit, offset)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"requests": requests,
		"total":    total,
	})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("gdpr workflow failed",
		slog.String("path", r.URL.Path),
		slog.Any("error", err))
	httpx.RespondError(w, err)
}

func decodePayload(w http.ResponseWriter, r *http.Request) (subjectPayload, bool) {
	var payload subjectPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return subjectPayload{}, false
	}
	if payload.UserID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "userId is required")
		return subjectPayload{}, false
	}
	return payload, true
}

func subjectID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("userId")
	if raw == "" {
		// Absent an explicit subject, the caller asks about themselves.
		if identity, ok := shared.IdentityFromContext(r.Context()); ok {
			return identity.UserID, true
		}
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "userId is required")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid userId")
		return 0, false
	}
	return id, true
}

func callerID(r *http.Request) int64 {
	if identity, ok := shared.IdentityFromContext(r.Context()); ok {
		return identity.UserID
	}
	return 0
}
