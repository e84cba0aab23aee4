package audithttp

import (
	"github.com/go-chi/chi/v5"

	"github.com/scoreline/scoreline/internal/rbac"
)

// MountRoutes registers the audit query and export endpoints.
func (h *Handler) MountRoutes(r chi.Router, guard rbac.Middleware) {
	if h == nil {
		return
	}
	r.Group(func(r chi.Router) {
		r.Use(guard.Require(rbac.PermAuditRead))
		r.Get("/", h.handleList)
		r.Get("/security-events", h.handleSecurityEvents)
		r.Get("/data-access", h.handleDataAccess)
		r.Get("/compliance-report", h.handleComplianceReport)
	})
	r.Group(func(r chi.Router) {
		r.Use(guard.Require(rbac.PermAuditExport))
		r.Get("/export.csv", h.handleExport)
	})
	r.Group(func(r chi.Router) {
		r.Use(guard.Require(rbac.PermAuditCleanup))
		r.Get("/cleanup", h.handleCleanup)
	})
}
