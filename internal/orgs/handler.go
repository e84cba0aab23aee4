package orgs

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/scoreline/scoreline/internal/platform/httpx"
	"github.com/scoreline/scoreline/internal/rbac"
	"github.com/scoreline/scoreline/internal/shared"
)

var validate = validator.New()

// Handler serves the organization and team endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountOrganizationRoutes registers the organization endpoints.
func (h *Handler) MountOrganizationRoutes(r chi.Router, guard rbac.Middleware) {
	if h == nil {
		return
	}
	r.With(guard.Require(rbac.PermOrgRead)).Get("/", h.handleListOrganizations)
	r.With(guard.Require(rbac.PermOrgCreate)).Post("/", h.handleCreateOrganization)
	r.With(guard.RequireResource(rbac.ResourceOrganization, rbac.PermOrgRead)).Get("/{id}", h.handleGetOrganization)
	r.With(guard.RequireResource(rbac.ResourceOrganization, rbac.PermOrgUpdate)).Put("/{id}", h.handleUpdateOrganization)
	r.With(guard.Require(rbac.PermOrgDelete)).Delete("/{id}", h.handleDeactivateOrganization)
}

// MountTeamRoutes registers the team endpoints.
func (h *Handler) MountTeamRoutes(r chi.Router, guard rbac.Middleware) {
	if h == nil {
		return
	}
	r.With(guard.Require(rbac.PermTeamRead)).Get("/", h.handleListTeams)
	r.With(guard.Require(rbac.PermTeamCreate)).Post("/", h.handleCreateTeam)
	r.With(guard.RequireResource(rbac.ResourceTeam, rbac.PermTeamRead)).Get("/{id}", h.handleGetTeam)
	r.With(guard.RequireResource(rbac.ResourceTeam, rbac.PermTeamUpdate)).Put("/{id}", h.handleUpdateTeam)
	r.With(guard.Require(rbac.PermTeamDelete)).Delete("/{id}", h.handleDeactivateTeam)
}

func (h *Handler) handleListOrganizations(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Organizations(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"organizations": list})
}

func (h *Handler) handleCreateOrganization(w http.ResponseWriter, r *http.Request) {
	var in OrganizationInput
	if ok := decodeValid(w, r, &in); !ok {
		return
	}
	org, err := h.service.CreateOrganization(r.Context(), actorID(r), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, org)
}

func (h *Handler) handleGetOrganization(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	org, err := h.service.Organization(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, org)
}

func (h *Handler) handleUpdateOrganization(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in OrganizationInput
	if ok := decodeValid(w, r, &in); !ok {
		return
	}
	org, err := h.service.UpdateOrganization(r.Context(), actorID(r), id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, org)
}

func (h *Handler) handleDeactivateOrganization(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeactivateOrganization(r.Context(), actorID(r), id); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

func (h *Handler) handleListTeams(w http.ResponseWriter, r *http.Request) {
	var organizationID *int64
	if v, err := strconv.ParseInt(r.URL.Query().Get("organizationId"), 10, 64); err == nil {
		organizationID = &v
	}
	list, err := h.service.Teams(r.Context(), organizationID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"teams": list})
}

func (h *Handler) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	var in TeamInput
	if ok := decodeValid(w, r, &in); !ok {
		return
	}
	team, err := h.service.CreateTeam(r.Context(), actorID(r), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, team)
}

func (h *Handler) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	team, err := h.service.Team(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, team)
}

func (h *Handler) handleUpdateTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in TeamInput
	if ok := decodeValid(w, r, &in); !ok {
		return
	}
	team, err := h.service.UpdateTeam(r.Context(), actorID(r), id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, team)
}

func (h *Handler) handleDeactivateTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeactivateTeam(r.Context(), actorID(r), id); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("org operation failed",
		slog.String("path", r.URL.Path),
		slog.Any("error", err))
	httpx.RespondError(w, err)
}

func decodeValid(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return false
	}
	if err := validate.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
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
