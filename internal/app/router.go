package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	audithttp "github.com/scoreline/scoreline/internal/audit/http"
	"github.com/scoreline/scoreline/internal/auth"
	"github.com/scoreline/scoreline/internal/evaluations"
	"github.com/scoreline/scoreline/internal/gdpr"
	"github.com/scoreline/scoreline/internal/observability"
	"github.com/scoreline/scoreline/internal/orgs"
	"github.com/scoreline/scoreline/internal/ratelimit"
	"github.com/scoreline/scoreline/internal/rbac"
	"github.com/scoreline/scoreline/internal/salespeople"
	"github.com/scoreline/scoreline/internal/scorecards"
	"github.com/scoreline/scoreline/internal/users"
	"github.com/scoreline/scoreline/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	Pool               *pgxpool.Pool
	Authenticator      auth.Authenticator
	RateLimiter        ratelimit.Middleware
	RBACMiddleware     rbac.Middleware
	AuthHandler        *auth.Handler
	UsersHandler       *users.Handler
	OrgsHandler        *orgs.Handler
	SalespeopleHandler *salespeople.Handler
	ScorecardsHandler  *scorecards.Handler
	EvaluationsHandler *evaluations.Handler
	AuditHandler       *audithttp.Handler
	GDPRHandler        *gdpr.Handler
	PermissionsHandler *rbac.Handler
	JobsHandler        *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with Scoreline defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	guard := params.RBACMiddleware

	r.Route("/api", func(r chi.Router) {
		r.Use(params.RateLimiter.Handler)

		r.Route("/auth", func(r chi.Router) {
			// Login stays outside the authenticator so first-time callers
			// can obtain a token. The limiter still counts failed attempts.
			r.Group(func(r chi.Router) {
				params.AuthHandler.MountPublicRoutes(r)
			})
			r.Group(func(r chi.Router) {
				r.Use(params.Authenticator.Middleware)
				params.AuthHandler.MountProtectedRoutes(r)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(params.Authenticator.Middleware)

			r.Route("/users", func(r chi.Router) {
				params.UsersHandler.MountRoutes(r, guard)
			})
			r.Route("/organizations", func(r chi.Router) {
				params.OrgsHandler.MountOrganizationRoutes(r, guard)
			})
			r.Route("/teams", func(r chi.Router) {
				params.OrgsHandler.MountTeamRoutes(r, guard)
			})
			r.Route("/salespeople", func(r chi.Router) {
				params.SalespeopleHandler.MountRoutes(r, guard)
			})
			r.Route("/scorecards", func(r chi.Router) {
				params.ScorecardsHandler.MountRoutes(r, guard)
			})
			r.Route("/evaluations", func(r chi.Router) {
				params.EvaluationsHandler.MountRoutes(r, guard)
			})
			r.Route("/analytics", func(r chi.Router) {
				params.EvaluationsHandler.MountAnalyticsRoutes(r, guard)
			})
			r.Route("/audit-logs", func(r chi.Router) {
				params.AuditHandler.MountRoutes(r, guard)
			})
			r.Route("/gdpr", func(r chi.Router) {
				params.GDPRHandler.MountRoutes(r, guard)
			})
			r.Route("/permissions", func(r chi.Router) {
				params.PermissionsHandler.MountRoutes(r)
			})
			if params.JobsHandler != nil {
				r.Route("/jobs", func(r chi.Router) {
					r.Use(guard.Require(rbac.PermAuditRead))
					params.JobsHandler.MountRoutes(r)
				})
			}
		})
	})

	return r
}
