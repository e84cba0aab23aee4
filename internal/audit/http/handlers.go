package audithttp

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/scoreline/scoreline/internal/audit"
	"github.com/scoreline/scoreline/internal/platform/httpx"
	"github.com/scoreline/scoreline/internal/shared"
)

// Service defines the business contract for audit queries.
type Service interface {
	List(ctx context.Context, filters audit.Filters) (audit.Result, error)
	SecurityEvents(ctx context.Context, filters audit.Filters) (audit.Result, error)
	DataAccessLogs(ctx context.Context, filters audit.Filters) (audit.Result, error)
	ComplianceReport(ctx context.Context, organizationID int64, from, to time.Time) (audit.ComplianceReport, error)
	Cleanup(ctx context.Context, retentionDays int) (int64, error)
}

// Handler serves the audit query endpoints.
type Handler struct {
	logger   *slog.Logger
	service  Service
	recorder *audit.Recorder
	now      func() time.Time
}

// NewHandler builds an audit HTTP handler.
func NewHandler(logger *slog.Logger, service Service, recorder *audit.Recorder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, recorder: recorder, now: time.Now}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.serverError(w, r, "list audit logs", err)
		return
	}
	h.recordRead(r, audit.ActionAuditRead, "audit_logs")
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleSecurityEvents(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.SecurityEvents(r.Context(), filters)
	if err != nil {
		h.serverError(w, r, "list security events", err)
		return
	}
	h.recordRead(r, audit.ActionAuditRead, "security_events")
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleDataAccess(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.DataAccessLogs(r.Context(), filters)
	if err != nil {
		h.serverError(w, r, "list data access logs", err)
		return
	}
	h.recordRead(r, audit.ActionAuditRead, "data_access_logs")
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleComplianceReport(w http.ResponseWriter, r *http.Request) {
	orgID, err := strconv.ParseInt(r.URL.Query().Get("organization_id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "organization_id is required")
		return
	}
	from, to, err := parseWindow(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if from.IsZero() || to.IsZero() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "start_date and end_date are required")
		return
	}
	report, err := h.service.ComplianceReport(r.Context(), orgID, from, to)
	if err != nil {
		h.serverError(w, r, "compliance report", err)
		return
	}
	h.recordRead(r, audit.ActionAuditRead, "compliance_report")
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleCleanup(w http.ResponseWriter, r *http.Request) {
	retentionDays := 0
	if raw := r.URL.Query().Get("retention_days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid retention_days")
			return
		}
		retentionDays = parsed
	}
	deleted, err := h.service.Cleanup(r.Context(), retentionDays)
	if err != nil {
		h.serverError(w, r, "audit cleanup", err)
		return
	}
	h.recordRead(r, audit.ActionSystemCleanup, "audit_logs")
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Error(op, slog.Any("error", err), slog.String("path", r.URL.Path))
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}

func (h *Handler) recordRead(r *http.Request, action audit.Action, resource string) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		return
	}
	ip := r.RemoteAddr
	ua := r.UserAgent()
	h.recorder.Record(r.Context(), audit.Entry{
		UserID:    &identity.UserID,
		Action:    action,
		Resource:  &resource,
		IPAddress: &ip,
		UserAgent: &ua,
		Success:   true,
	})
}

func parseFilters(r *http.Request) (audit.Filters, error) {
	q := r.URL.Query()
	var filters audit.Filters

	if raw := q.Get("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filters, errInvalidParam("user_id")
		}
		filters.UserID = &id
	}
	if raw := q.Get("organization_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filters, errInvalidParam("organization_id")
		}
		filters.OrganizationID = &id
	}
	filters.Action = audit.Action(q.Get("action"))
	filters.Resource = q.Get("resource")

	from, to, err := parseWindow(r)
	if err != nil {
		return filters, err
	}
	filters.From = from
	filters.To = to

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return filters, errInvalidParam("limit")
		}
		filters.Limit = limit
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return filters, errInvalidParam("offset")
		}
		filters.Offset = offset
	}
	return filters, nil
}

func parseWindow(r *http.Request) (time.Time, time.Time, error) {
	var from, to time.Time
	q := r.URL.Query()
	if raw := q.Get("start_date"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			return from, to, errInvalidParam("start_date")
		}
		from = parsed
	}
	if raw := q.Get("end_date"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			return from, to, errInvalidParam("end_date")
		}
		to = parsed
	}
	return from, to, nil
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

type paramError string

func errInvalidParam(name string) error { return paramError(name) }

func (e paramError) Error() string { return "invalid parameter: " + string(e) }
