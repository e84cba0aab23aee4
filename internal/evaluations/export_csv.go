package evaluations

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// csvStreamer writes rows through a buffered CSV writer, flushing in
// batches so large exports stream instead of buffering whole.
type csvStreamer struct {
	buf       *bufio.Writer
	csv       *csv.Writer
	written   int
	flushEach int
}

func newCSVStreamer(w http.ResponseWriter) *csvStreamer {
	buf := bufio.NewWriterSize(w, 32*1024)
	cw := csv.NewWriter(buf)
	cw.UseCRLF = true
	return &csvStreamer{buf: buf, csv: cw, flushEach: 200}
}

func (s *csvStreamer) write(record []string) error {
	if err := s.csv.Write(record); err != nil {
		return err
	}
	s.written++
	if s.written%s.flushEach == 0 {
		s.csv.Flush()
		if err := s.csv.Error(); err != nil {
			return err
		}
		if err := s.buf.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (s *csvStreamer) close() error {
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	return s.buf.Flush()
}

// scorePrinter formats totals with locale-aware separators so exported
// sheets open cleanly in spreadsheet tools.
var scorePrinter = message.NewPrinter(language.English)

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.ExportRows(r.Context(), parseFilters(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	filename := fmt.Sprintf("evaluations-%s.csv", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	streamer := newCSVStreamer(w)
	header := []string{"id", "salesperson_id", "scorecard_id", "evaluator_id",
		"status", "total_score", "evaluated_at", "decided_by", "decided_at"}
	if err := streamer.write(header); err != nil {
		h.logger.Error("csv export failed", "error", err)
		return
	}

	for _, ev := range rows {
		record := []string{
			strconv.FormatInt(ev.ID, 10),
			strconv.FormatInt(ev.SalespersonID, 10),
			strconv.FormatInt(ev.ScorecardID, 10),
			strconv.FormatInt(ev.EvaluatorID, 10),
			ev.Status,
			scorePrinter.Sprintf("%.2f", ev.TotalScore),
			ev.EvaluatedAt.UTC().Format(time.RFC3339),
			formatInt64Ptr(ev.DecidedBy),
			formatTimePtr(ev.DecidedAt),
		}
		if err := streamer.write(record); err != nil {
			h.logger.Error("csv export failed", "error", err)
			return
		}
	}
	if err := streamer.close(); err != nil {
		h.logger.Error("csv export flush failed", "error", err)
	}
}

func formatInt64Ptr(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func formatTimePtr(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.UTC().Format(time.RFC3339)
}
