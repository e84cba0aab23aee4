package rbac

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/scoreline/scoreline/internal/platform/httpx"
	"github.com/scoreline/scoreline/internal/shared"
)

// Denials are surfaced to the metrics layer through this narrow interface.
type DenialCounter interface {
	AuthDenied()
}

// Middleware wires RBAC authorization guards for HTTP handlers.
type Middleware struct {
	Evaluator *Evaluator
	Logger    *slog.Logger
	Metrics   DenialCounter
}

// Require ensures the current user holds the permission. Operations with no
// target resource do not narrow own-scoped checks.
func (m Middleware) Require(perm Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := shared.IdentityFromContext(r.Context())
			if !ok {
				m.deny(w, r, perm)
				return
			}
			if !m.Evaluator.HasPermission(r.Context(), identity.UserID, perm, nil) {
				m.deny(w, r, perm)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireResource guards routes carrying an {id} URL parameter, checking
// permission against the addressed resource's ownership.
func (m Middleware) RequireResource(resourceType ResourceType, perm Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := shared.IdentityFromContext(r.Context())
			if !ok {
				m.deny(w, r, perm)
				return
			}
			resourceID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
			if err != nil {
				httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid resource id")
				return
			}
			if !m.Evaluator.CheckResourceAccess(r.Context(), identity.UserID, resourceType, resourceID, perm) {
				m.deny(w, r, perm)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) deny(w http.ResponseWriter, r *http.Request, perm Permission) {
	if m.Logger != nil {
		m.Logger.Warn("authorization denied",
			slog.String("permission", string(perm)),
			slog.String("path", r.URL.Path))
	}
	if m.Metrics != nil {
		m.Metrics.AuthDenied()
	}
	httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient permissions")
}
