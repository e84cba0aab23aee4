package audithttp

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/scoreline/scoreline/internal/audit"
	"github.com/scoreline/scoreline/internal/platform/httpx"
)

const (
	csvFlushEvery = 200
	csvBufferSize = 32 * 1024
	exportLimit   = 10000
)

type csvStreamer struct {
	buf          *bufio.Writer
	csv          *csv.Writer
	flushEvery   int
	pendingLines int
}

func newCSVStreamer(w io.Writer) *csvStreamer {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true
	return &csvStreamer{buf: buf, csv: writer, flushEvery: csvFlushEvery}
}

func (s *csvStreamer) writeRow(row []string) error {
	if err := s.csv.Write(row); err != nil {
		return err
	}
	s.pendingLines++
	if s.flushEvery > 0 && s.pendingLines >= s.flushEvery {
		return s.flush()
	}
	return nil
}

func (s *csvStreamer) flush() error {
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	s.pendingLines = 0
	return nil
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	filters.Limit = exportLimit
	filters.Offset = 0

	result, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.serverError(w, r, "export audit logs", err)
		return
	}

	filename := fmt.Sprintf("audit-logs-%s.csv", h.now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	streamer := newCSVStreamer(w)
	header := []string{"occurred_at", "user_id", "organization_id", "action", "resource", "resource_id", "success", "ip_address", "error_message"}
	if err := streamer.writeRow(header); err != nil {
		h.logger.Error("write csv header", "error", err)
		return
	}
	for _, entry := range result.Entries {
		if err := streamer.writeRow(csvRow(entry)); err != nil {
			h.logger.Error("write csv row", "error", err)
			return
		}
	}
	if err := streamer.flush(); err != nil {
		h.logger.Error("flush csv", "error", err)
		return
	}
	h.recordRead(r, audit.ActionAuditExport, "audit_logs")
}

func csvRow(entry audit.Entry) []string {
	return []string{
		entry.OccurredAt.UTC().Format(time.RFC3339),
		formatInt64Ptr(entry.UserID),
		formatInt64Ptr(entry.OrganizationID),
		string(entry.Action),
		stringPtr(entry.Resource),
		stringPtr(entry.ResourceID),
		strconv.FormatBool(entry.Success),
		stringPtr(entry.IPAddress),
		stringPtr(entry.ErrorMessage),
	}
}

func formatInt64Ptr(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func stringPtr(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
