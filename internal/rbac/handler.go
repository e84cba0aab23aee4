package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/scoreline/scoreline/internal/platform/httpx"
	"github.com/scoreline/scoreline/internal/shared"
)

// Handler exposes the permission catalog.
type Handler struct {
	logger *slog.Logger
	rbac   Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, rbac Middleware) *Handler {
	return &Handler{logger: logger, rbac: rbac}
}

// MountRoutes registers permission routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(PermPermissionRead))
		r.Get("/", h.listPermissions)
		r.Get("/mine", h.myPermissions)
	})
}

type roleSummary struct {
	Role        Role         `json:"role"`
	Scope       string       `json:"scope"`
	Permissions []Permission `json:"permissions"`
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	summaries := make([]roleSummary, 0, len(Roles()))
	for _, role := range Roles() {
		scope, _ := RoleScope(role)
		summaries = append(summaries, roleSummary{
			Role:        role,
			Scope:       scope.String(),
			Permissions: RolePermissions(role),
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"catalog": Catalog(),
		"roles":   summaries,
	})
}

func (h *Handler) myPermissions(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	role, ok := ParseRole(identity.Role)
	if !ok {
		// Unrecognized role means zero permissions, not an error.
		httpx.JSON(w, http.StatusOK, map[string]any{"role": identity.Role, "permissions": []Permission{}})
		return
	}
	scope, _ := RoleScope(role)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"role":        role,
		"scope":       scope.String(),
		"permissions": RolePermissions(role),
	})
}
